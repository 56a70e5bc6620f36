package reports

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"

	"github.com/vonity-org/visor-api/databases"
	"github.com/vonity-org/visor-api/models"
)

// ImageCascader is the slice of the image manager the lifecycle needs for
// the delete cascade.
type ImageCascader interface {
	RemoveForReport(ctx context.Context, organization, reportID string) error
}

// Lifecycle enforces the report state machine: Draft -> Approved (one-way,
// then read-only) -> Deleted. Every operation is a stateless transformation
// plus a bounded number of store calls; races between update and approve
// resolve through conditional writes, never through double success.
type Lifecycle struct {
	RDB        databases.ReportDatabase
	Images     ImageCascader
	Similarity *Similarity
	Logger     *zap.SugaredLogger
}

// NewLifecycle wires a lifecycle manager
func NewLifecycle(rdb databases.ReportDatabase, images ImageCascader, similarity *Similarity, logger *zap.SugaredLogger) *Lifecycle {
	return &Lifecycle{RDB: rdb, Images: images, Similarity: similarity, Logger: logger}
}

// Create validates and persists a new draft report, returning its id and,
// when the report carries markers, the reports it may duplicate. The
// similarity warning is advisory; a failed scan is logged and creation
// proceeds. Approval can never be set at creation: the input type has no
// approved field and the stored document starts unapproved.
func (l *Lifecycle) Create(ctx context.Context, organization string, in models.ReportInput) (string, []models.Report, error) {
	if err := in.Validate(); err != nil {
		return "", nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}

	var similar []models.Report
	if in.OMMarkers != nil && l.Similarity != nil {
		_, found, err := l.Similarity.FindSimilar(ctx, organization, in.OMMarkers, in.Navigation)
		if err != nil {
			l.Logger.Warnw("similarity check failed during create",
				"organization", organization,
				"error", err,
			)
		} else {
			similar = found
		}
	}

	now := primitive.NewDateTimeFromTime(time.Now())
	report := models.Report{
		ID:              primitive.NewObjectID(),
		Organization:    organization,
		Published:       in.PublishedBool(),
		Approved:        false,
		ReportName:      in.ReportName,
		VisorLocation:   in.VisorLocation,
		ReportMeta:      in.ReportMeta,
		LocationDetails: in.LocationDetails,
		Navigation:      in.Navigation,
		OMMarkers:       in.OMMarkers,
		Version:         1,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if _, err := l.RDB.InsertOne(ctx, report); err != nil {
		return "", nil, fmt.Errorf("%w: insert: %v", ErrPersistence, err)
	}
	return report.ID.Hex(), similar, nil
}

// Get fetches one report scoped to the organization. Ids belonging to a
// different tenant return ErrNotFound, indistinguishable from absence.
func (l *Lifecycle) Get(ctx context.Context, organization, id string) (*models.Report, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid id %q", ErrValidation, id)
	}
	report, err := l.RDB.FindOne(ctx, bson.M{"_id": oid, "organization": organization})
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: fetch: %v", ErrPersistence, err)
	}
	return report, nil
}

// Update replaces a draft report's content. Approved reports are immutable:
// the write is conditional on approved=false and the version read, so an
// approval racing this update cannot be overwritten.
func (l *Lifecycle) Update(ctx context.Context, organization, id string, in models.ReportInput) error {
	if err := in.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrValidation, err)
	}
	current, err := l.Get(ctx, organization, id)
	if err != nil {
		return err
	}
	if current.Approved {
		return ErrImmutableState
	}

	filter := bson.M{
		"_id":          current.ID,
		"organization": organization,
		"approved":     false,
		"version":      current.Version,
	}
	update := bson.M{
		"$set": bson.M{
			"published":       in.PublishedBool(),
			"reportName":      in.ReportName,
			"visorLocation":   in.VisorLocation,
			"reportMeta":      in.ReportMeta,
			"locationDetails": in.LocationDetails,
			"navigation":      in.Navigation,
			"omMarkers":       in.OMMarkers,
			"updatedAt":       primitive.NewDateTimeFromTime(time.Now()),
		},
		"$inc": bson.M{"version": 1},
	}
	matched, err := l.RDB.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("%w: update: %v", ErrPersistence, err)
	}
	if matched == 0 {
		// Lost the race; re-read to say which way.
		after, err := l.Get(ctx, organization, id)
		if err != nil {
			return err
		}
		if after.Approved {
			return ErrImmutableState
		}
		return ErrConflict
	}
	return nil
}

// Approve performs the one-way Draft -> Approved transition. The reason and
// acting identity are required and audit-logged regardless of outcome.
// Approving an already-approved report is a no-op success; the returned
// flag tells the caller to note it.
func (l *Lifecycle) Approve(ctx context.Context, organization, id, approver, reason string) (bool, error) {
	if reason == "" {
		return false, fmt.Errorf("%w: approveReason is required", ErrValidation)
	}
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return false, fmt.Errorf("%w: invalid id %q", ErrValidation, id)
	}

	l.Logger.Warnw("report approval requested",
		"organization", organization,
		"report", id,
		"approver", approver,
		"reason", reason,
	)

	filter := bson.M{"_id": oid, "organization": organization, "approved": false}
	update := bson.M{
		"$set": bson.M{
			"approved":  true,
			"updatedAt": primitive.NewDateTimeFromTime(time.Now()),
		},
		"$inc": bson.M{"version": 1},
	}
	matched, err := l.RDB.UpdateOne(ctx, filter, update)
	if err != nil {
		return false, fmt.Errorf("%w: approve: %v", ErrPersistence, err)
	}
	if matched == 0 {
		current, err := l.Get(ctx, organization, id)
		if err != nil {
			return false, err
		}
		if current.Approved {
			return true, nil
		}
		return false, ErrConflict
	}
	return false, nil
}

// Delete removes a report in any state; it is the only mutation permitted
// on an approved report. Image cleanup cascades through the image manager;
// a failed cascade is logged and left for the orphan sweep.
func (l *Lifecycle) Delete(ctx context.Context, organization, id, actor, reason string) error {
	if reason == "" {
		return fmt.Errorf("%w: deletionReason is required", ErrValidation)
	}
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return fmt.Errorf("%w: invalid id %q", ErrValidation, id)
	}

	l.Logger.Warnw("report deletion requested",
		"organization", organization,
		"report", id,
		"actor", actor,
		"reason", reason,
	)

	deleted, err := l.RDB.DeleteOne(ctx, bson.M{"_id": oid, "organization": organization})
	if err != nil {
		return fmt.Errorf("%w: delete: %v", ErrPersistence, err)
	}
	if deleted == 0 {
		return ErrNotFound
	}

	if l.Images != nil {
		if err := l.Images.RemoveForReport(ctx, organization, id); err != nil {
			l.Logger.Errorw("image cascade failed, orphan sweep will retry",
				"organization", organization,
				"report", id,
				"error", err,
			)
		}
	}
	return nil
}
