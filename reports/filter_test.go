package reports_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/vonity-org/visor-api/databases/mocks"
	"github.com/vonity-org/visor-api/models"
	"github.com/vonity-org/visor-api/reports"
)

func intPtr(n int) *int { return &n }

func namedReport(name string, meta map[string]interface{}) models.Report {
	return models.Report{
		ID:         primitive.NewObjectID(),
		ReportName: name,
		ReportMeta: meta,
	}
}

func TestBuildPlan_Empty(t *testing.T) {
	plan := reports.BuildPlan("test-org", models.SearchFilter{})

	assert.Equal(t, bson.M{"organization": "test-org"}, plan)
}

func TestBuildPlan_Name(t *testing.T) {
	plan := reports.BuildPlan("test-org", models.SearchFilter{Name: "crash (site)"})

	assert.Equal(t, bson.M{"$regex": `crash \(site\)`, "$options": "i"}, plan["reportName"])
}

func TestBuildPlan_BoolTokens(t *testing.T) {
	plan := reports.BuildPlan("test-org", models.SearchFilter{Published: "true", Approved: "false"})
	assert.Equal(t, true, plan["published"])
	assert.Equal(t, false, plan["approved"])

	// anything that is not a boolean token matches nothing
	plan = reports.BuildPlan("test-org", models.SearchFilter{Published: "maybe"})
	assert.Equal(t, bson.M{"$in": bson.A{}}, plan["published"])
}

func TestBuildPlan_PartialMaps(t *testing.T) {
	plan := reports.BuildPlan("test-org", models.SearchFilter{
		Location: map[string]interface{}{"system": "Stanton"},
		Meta:     map[string]interface{}{"rsiHandle": "tester"},
	})

	assert.Equal(t, "Stanton", plan["visorLocation.system"])
	assert.Equal(t, "tester", plan["reportMeta.rsiHandle"])
}

func TestBuildPlan_CriteriaCombine(t *testing.T) {
	plan := reports.BuildPlan("test-org", models.SearchFilter{
		Name:      "wreck",
		Published: "true",
		Location:  map[string]interface{}{"system": "Sol"},
	})

	// every criterion lands in the same plan, all AND together
	assert.Len(t, plan, 4)
	assert.Equal(t, "test-org", plan["organization"])
}

func TestKeywordMatch(t *testing.T) {
	r := namedReport("Crash Site Daymar", map[string]interface{}{"rsiHandle": "StarRunner", "votes": 3})

	assert.True(t, reports.KeywordMatch(r, "daymar"))
	assert.True(t, reports.KeywordMatch(r, "starrunner"))
	assert.True(t, reports.KeywordMatch(r, "rsihandle"))
	assert.False(t, reports.KeywordMatch(r, "microtech"))
}

func TestPaginate(t *testing.T) {
	a := namedReport("A", nil)
	b := namedReport("B", nil)
	c := namedReport("C", nil)
	d := namedReport("D", nil)
	e := namedReport("E", nil)
	matched := []models.Report{a, b, c, d, e}

	// from + length
	page := reports.Paginate(matched, intPtr(2), intPtr(3), nil)
	assert.Equal(t, []models.Report{c, d, e}, page)

	// to is exclusive and absolute
	page = reports.Paginate(matched, intPtr(1), nil, intPtr(3))
	assert.Equal(t, []models.Report{b, c}, page)

	// to wins over length
	page = reports.Paginate(matched, intPtr(1), intPtr(10), intPtr(2))
	assert.Equal(t, []models.Report{b}, page)

	// bounds clamp instead of failing
	page = reports.Paginate(matched, intPtr(10), intPtr(3), nil)
	assert.Empty(t, page)
	page = reports.Paginate(matched, intPtr(4), nil, intPtr(2))
	assert.Empty(t, page)
	page = reports.Paginate(matched, nil, nil, intPtr(99))
	assert.Len(t, page, 5)

	// no paging settings returns everything
	page = reports.Paginate(matched, nil, nil, nil)
	assert.Len(t, page, 5)
}

func TestFilter_Query(t *testing.T) {
	rdb := &mocks.ReportDatabase{}
	stored := []models.Report{
		namedReport("Crash Site Daymar", map[string]interface{}{"rsiHandle": "tester"}),
		namedReport("Outpost Wala", map[string]interface{}{"rsiHandle": "other"}),
		namedReport("Cave Daymar", map[string]interface{}{"rsiHandle": "tester"}),
	}
	rdb.On("Find", mock.Anything, mock.Anything, mock.Anything).Return(stored, nil)

	f := reports.NewFilter(rdb, zap.NewNop().Sugar())
	matched, count, err := f.Query(context.Background(), "test-org", models.SearchFilter{Keyword: "daymar"})

	assert.NoError(t, err)
	assert.Equal(t, 2, count)
	assert.Len(t, matched, 2)
	assert.Equal(t, "Crash Site Daymar", matched[0].ReportName)
	assert.Equal(t, "Cave Daymar", matched[1].ReportName)
}

func TestFilter_QueryCountIsPostKeywordTotal(t *testing.T) {
	rdb := &mocks.ReportDatabase{}
	stored := []models.Report{
		namedReport("Daymar One", nil),
		namedReport("Daymar Two", nil),
		namedReport("Daymar Three", nil),
		namedReport("Yela", nil),
	}
	rdb.On("Find", mock.Anything, mock.Anything, mock.Anything).Return(stored, nil)

	f := reports.NewFilter(rdb, zap.NewNop().Sugar())
	matched, count, err := f.Query(context.Background(), "test-org", models.SearchFilter{
		Keyword: "daymar",
		Length:  intPtr(1),
	})

	assert.NoError(t, err)
	assert.Equal(t, 3, count)
	assert.Len(t, matched, 1)
}

func TestFilter_QueryFindError(t *testing.T) {
	rdb := &mocks.ReportDatabase{}
	rdb.On("Find", mock.Anything, mock.Anything, mock.Anything).Return(nil, errors.New("mocked-error"))

	f := reports.NewFilter(rdb, zap.NewNop().Sugar())
	_, _, err := f.Query(context.Background(), "test-org", models.SearchFilter{})

	assert.ErrorIs(t, err, reports.ErrPersistence)
}

func TestFilter_QueryScopedToOrganization(t *testing.T) {
	rdb := &mocks.ReportDatabase{}
	rdb.On("Find", mock.Anything, mock.MatchedBy(func(plan interface{}) bool {
		m, ok := plan.(bson.M)
		return ok && m["organization"] == "org-a"
	}), mock.Anything).Return([]models.Report{namedReport("A", nil)}, nil)

	f := reports.NewFilter(rdb, zap.NewNop().Sugar())
	_, count, err := f.Query(context.Background(), "org-a", models.SearchFilter{})

	assert.NoError(t, err)
	assert.Equal(t, 1, count)
	rdb.AssertExpectations(t)
}
