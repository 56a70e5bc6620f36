package reports_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"

	"github.com/vonity-org/visor-api/databases/mocks"
	"github.com/vonity-org/visor-api/models"
	"github.com/vonity-org/visor-api/reports"
)

type fakeCascader struct {
	calls []string
	err   error
}

func (f *fakeCascader) RemoveForReport(_ context.Context, _, reportID string) error {
	f.calls = append(f.calls, reportID)
	return f.err
}

func draftInput() models.ReportInput {
	return models.ReportInput{
		ReportName:      "Crash Site Daymar",
		Published:       "true",
		VisorLocation:   map[string]interface{}{"system": "Stanton"},
		ReportMeta:      map[string]interface{}{"rsiHandle": "tester"},
		LocationDetails: map[string]interface{}{"classification": "crash-site"},
		Navigation:      models.Navigation{System: "Stanton", StellarObject: "Crusader", PlanetLevelObject: "Daymar"},
	}
}

func TestLifecycle_Create(t *testing.T) {
	rdb := &mocks.ReportDatabase{}
	rdb.On("InsertOne", mock.Anything, mock.MatchedBy(func(r models.Report) bool {
		return r.Organization == "test-org" &&
			!r.Approved &&
			r.Published &&
			r.Version == 1
	})).Return(nil, nil)

	l := reports.NewLifecycle(rdb, nil, nil, zap.NewNop().Sugar())
	id, similar, err := l.Create(context.Background(), "test-org", draftInput())

	assert.NoError(t, err)
	assert.NotEmpty(t, id)
	assert.Empty(t, similar)
	rdb.AssertExpectations(t)

	_, err = primitive.ObjectIDFromHex(id)
	assert.NoError(t, err)
}

func TestLifecycle_CreateReportsSimilar(t *testing.T) {
	rdb := &mocks.ReportDatabase{}
	existing := markedReport("earlier sighting", models.OMMarkers{"OM1", nil, nil, nil, nil, nil})
	rdb.On("Find", mock.Anything, mock.Anything, mock.Anything).Return([]models.Report{existing}, nil)
	rdb.On("InsertOne", mock.Anything, mock.Anything).Return(nil, nil)

	similarity := reports.NewSimilarity(rdb, 1, zap.NewNop().Sugar())
	l := reports.NewLifecycle(rdb, nil, similarity, zap.NewNop().Sugar())

	in := draftInput()
	in.OMMarkers = models.OMMarkers{"OM1", "OM2", nil, nil, nil, nil}
	id, similar, err := l.Create(context.Background(), "test-org", in)

	assert.NoError(t, err)
	assert.NotEmpty(t, id)
	assert.Len(t, similar, 1)
	assert.Equal(t, "earlier sighting", similar[0].ReportName)
}

func TestLifecycle_CreateValidates(t *testing.T) {
	l := reports.NewLifecycle(&mocks.ReportDatabase{}, nil, nil, zap.NewNop().Sugar())

	in := draftInput()
	in.ReportName = ""
	_, _, err := l.Create(context.Background(), "test-org", in)

	assert.ErrorIs(t, err, reports.ErrValidation)
}

func TestLifecycle_Get(t *testing.T) {
	oid := primitive.NewObjectID()
	rdb := &mocks.ReportDatabase{}
	rdb.On("FindOne", mock.Anything, bson.M{"_id": oid, "organization": "test-org"}).
		Return(&models.Report{ID: oid, Organization: "test-org"}, nil)

	l := reports.NewLifecycle(rdb, nil, nil, zap.NewNop().Sugar())
	report, err := l.Get(context.Background(), "test-org", oid.Hex())

	assert.NoError(t, err)
	assert.Equal(t, oid, report.ID)
}

func TestLifecycle_GetBadID(t *testing.T) {
	l := reports.NewLifecycle(&mocks.ReportDatabase{}, nil, nil, zap.NewNop().Sugar())

	_, err := l.Get(context.Background(), "test-org", "not-a-hex-id")

	assert.ErrorIs(t, err, reports.ErrValidation)
}

func TestLifecycle_GetNotFound(t *testing.T) {
	rdb := &mocks.ReportDatabase{}
	rdb.On("FindOne", mock.Anything, mock.Anything).Return(nil, mongo.ErrNoDocuments)

	l := reports.NewLifecycle(rdb, nil, nil, zap.NewNop().Sugar())
	_, err := l.Get(context.Background(), "test-org", primitive.NewObjectID().Hex())

	assert.ErrorIs(t, err, reports.ErrNotFound)
}

func TestLifecycle_Update(t *testing.T) {
	oid := primitive.NewObjectID()
	rdb := &mocks.ReportDatabase{}
	rdb.On("FindOne", mock.Anything, mock.Anything).
		Return(&models.Report{ID: oid, Organization: "test-org", Version: 3}, nil)
	rdb.On("UpdateOne", mock.Anything, mock.MatchedBy(func(filter interface{}) bool {
		m, ok := filter.(bson.M)
		return ok &&
			m["approved"] == false &&
			m["version"] == int64(3)
	}), mock.Anything).Return(int64(1), nil)

	l := reports.NewLifecycle(rdb, nil, nil, zap.NewNop().Sugar())
	err := l.Update(context.Background(), "test-org", oid.Hex(), draftInput())

	assert.NoError(t, err)
	rdb.AssertExpectations(t)
}

func TestLifecycle_UpdateApprovedIsImmutable(t *testing.T) {
	oid := primitive.NewObjectID()
	rdb := &mocks.ReportDatabase{}
	rdb.On("FindOne", mock.Anything, mock.Anything).
		Return(&models.Report{ID: oid, Organization: "test-org", Approved: true, Version: 2}, nil)

	l := reports.NewLifecycle(rdb, nil, nil, zap.NewNop().Sugar())
	err := l.Update(context.Background(), "test-org", oid.Hex(), draftInput())

	assert.ErrorIs(t, err, reports.ErrImmutableState)
	rdb.AssertNotCalled(t, "UpdateOne", mock.Anything, mock.Anything, mock.Anything)
}

func TestLifecycle_UpdateLosesRaceToApproval(t *testing.T) {
	oid := primitive.NewObjectID()
	rdb := &mocks.ReportDatabase{}
	// first read sees a draft, the conditional write matches nothing, the
	// re-read finds the approval that won
	rdb.On("FindOne", mock.Anything, mock.Anything).
		Return(&models.Report{ID: oid, Organization: "test-org", Version: 1}, nil).Once()
	rdb.On("UpdateOne", mock.Anything, mock.Anything, mock.Anything).Return(int64(0), nil)
	rdb.On("FindOne", mock.Anything, mock.Anything).
		Return(&models.Report{ID: oid, Organization: "test-org", Approved: true, Version: 2}, nil).Once()

	l := reports.NewLifecycle(rdb, nil, nil, zap.NewNop().Sugar())
	err := l.Update(context.Background(), "test-org", oid.Hex(), draftInput())

	assert.ErrorIs(t, err, reports.ErrImmutableState)
}

func TestLifecycle_UpdateConflict(t *testing.T) {
	oid := primitive.NewObjectID()
	rdb := &mocks.ReportDatabase{}
	rdb.On("FindOne", mock.Anything, mock.Anything).
		Return(&models.Report{ID: oid, Organization: "test-org", Version: 1}, nil).Once()
	rdb.On("UpdateOne", mock.Anything, mock.Anything, mock.Anything).Return(int64(0), nil)
	rdb.On("FindOne", mock.Anything, mock.Anything).
		Return(&models.Report{ID: oid, Organization: "test-org", Version: 2}, nil).Once()

	l := reports.NewLifecycle(rdb, nil, nil, zap.NewNop().Sugar())
	err := l.Update(context.Background(), "test-org", oid.Hex(), draftInput())

	assert.ErrorIs(t, err, reports.ErrConflict)
}

func TestLifecycle_Approve(t *testing.T) {
	oid := primitive.NewObjectID()
	rdb := &mocks.ReportDatabase{}
	rdb.On("UpdateOne", mock.Anything, mock.MatchedBy(func(filter interface{}) bool {
		m, ok := filter.(bson.M)
		return ok && m["approved"] == false && m["organization"] == "test-org"
	}), mock.Anything).Return(int64(1), nil)

	l := reports.NewLifecycle(rdb, nil, nil, zap.NewNop().Sugar())
	already, err := l.Approve(context.Background(), "test-org", oid.Hex(), "approver", "verified in person")

	assert.NoError(t, err)
	assert.False(t, already)
	rdb.AssertExpectations(t)
}

func TestLifecycle_ApproveIdempotent(t *testing.T) {
	oid := primitive.NewObjectID()
	rdb := &mocks.ReportDatabase{}
	rdb.On("UpdateOne", mock.Anything, mock.Anything, mock.Anything).Return(int64(0), nil)
	rdb.On("FindOne", mock.Anything, mock.Anything).
		Return(&models.Report{ID: oid, Organization: "test-org", Approved: true}, nil)

	l := reports.NewLifecycle(rdb, nil, nil, zap.NewNop().Sugar())
	already, err := l.Approve(context.Background(), "test-org", oid.Hex(), "approver", "verified in person")

	assert.NoError(t, err)
	assert.True(t, already)
}

func TestLifecycle_ApproveRequiresReason(t *testing.T) {
	l := reports.NewLifecycle(&mocks.ReportDatabase{}, nil, nil, zap.NewNop().Sugar())

	_, err := l.Approve(context.Background(), "test-org", primitive.NewObjectID().Hex(), "approver", "")

	assert.ErrorIs(t, err, reports.ErrValidation)
}

func TestLifecycle_DeleteCascadesImages(t *testing.T) {
	oid := primitive.NewObjectID()
	rdb := &mocks.ReportDatabase{}
	rdb.On("DeleteOne", mock.Anything, bson.M{"_id": oid, "organization": "test-org"}).
		Return(int64(1), nil)
	cascader := &fakeCascader{}

	l := reports.NewLifecycle(rdb, cascader, nil, zap.NewNop().Sugar())
	err := l.Delete(context.Background(), "test-org", oid.Hex(), "actor", "duplicate report")

	assert.NoError(t, err)
	assert.Equal(t, []string{oid.Hex()}, cascader.calls)
}

func TestLifecycle_DeleteNotFound(t *testing.T) {
	rdb := &mocks.ReportDatabase{}
	rdb.On("DeleteOne", mock.Anything, mock.Anything).Return(int64(0), nil)

	l := reports.NewLifecycle(rdb, &fakeCascader{}, nil, zap.NewNop().Sugar())
	err := l.Delete(context.Background(), "test-org", primitive.NewObjectID().Hex(), "actor", "duplicate report")

	assert.ErrorIs(t, err, reports.ErrNotFound)
}

func TestLifecycle_DeleteRequiresReason(t *testing.T) {
	l := reports.NewLifecycle(&mocks.ReportDatabase{}, nil, nil, zap.NewNop().Sugar())

	err := l.Delete(context.Background(), "test-org", primitive.NewObjectID().Hex(), "actor", "")

	assert.ErrorIs(t, err, reports.ErrValidation)
}
