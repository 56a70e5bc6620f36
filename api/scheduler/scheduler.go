package scheduler

import (
	"context"
	"errors"
	"time"

	"github.com/robfig/cron/v3"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"

	"github.com/vonity-org/visor-api/databases"
	"github.com/vonity-org/visor-api/images"
)

// sweepTimeout bounds one full orphan sweep.
const sweepTimeout = 5 * time.Minute

// Scheduler runs periodic background jobs. Image metadata holds only a weak
// reference to its report, so deletions that failed to cascade leave
// orphans behind; the sweep reaps them.
type Scheduler struct {
	cron     *cron.Cron
	IDB      databases.ImageDatabase
	RDB      databases.ReportDatabase
	Uploader images.Uploader
	Logger   *zap.SugaredLogger
}

// New creates a new scheduler instance
func New(idb databases.ImageDatabase, rdb databases.ReportDatabase, up images.Uploader, logger *zap.SugaredLogger) *Scheduler {
	return &Scheduler{
		cron:     cron.New(cron.WithLocation(time.UTC)),
		IDB:      idb,
		RDB:      rdb,
		Uploader: up,
		Logger:   logger,
	}
}

// Start begins the scheduler with all registered jobs
func (s *Scheduler) Start() {
	// Reap orphaned images daily at 4 AM UTC
	_, err := s.cron.AddFunc("0 4 * * *", s.CleanupOrphanImages)
	if err != nil {
		s.Logger.Errorw("failed to register orphan image job", "error", err)
	}

	s.cron.Start()
	s.Logger.Info("orphan image scheduler started")
}

// Stop gracefully stops the scheduler
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.Logger.Info("orphan image scheduler stopped")
}

// CleanupOrphanImages destroys stored binaries and removes metadata for
// images whose report no longer exists. Failures are logged and retried on
// the next run.
func (s *Scheduler) CleanupOrphanImages() {
	ctx, cancel := context.WithTimeout(context.Background(), sweepTimeout)
	defer cancel()

	imgs, err := s.IDB.Find(ctx, bson.M{})
	if err != nil {
		s.Logger.Errorw("orphan sweep failed to list images", "error", err)
		return
	}

	reaped := 0
	for _, img := range imgs {
		oid, err := primitive.ObjectIDFromHex(img.ReportID)
		if err != nil {
			// unparsable reference, the metadata can never resolve
			s.Logger.Warnw("image has invalid report reference",
				"key", img.Key,
				"reportId", img.ReportID,
			)
		} else {
			_, err = s.RDB.FindOne(ctx, bson.M{"_id": oid, "organization": img.Organization})
			if err == nil {
				continue
			}
			if !errors.Is(err, mongo.ErrNoDocuments) {
				s.Logger.Errorw("orphan sweep failed to check report", "key", img.Key, "error", err)
				continue
			}
		}

		if err := s.Uploader.Destroy(ctx, img.Key); err != nil {
			s.Logger.Errorw("orphan sweep failed to destroy image", "key", img.Key, "error", err)
			continue
		}
		if _, err := s.IDB.DeleteOne(ctx, bson.M{"key": img.Key}); err != nil {
			s.Logger.Errorw("orphan sweep failed to delete image metadata", "key", img.Key, "error", err)
			continue
		}
		reaped++
	}

	s.Logger.Infow("orphan image sweep finished",
		"checked", len(imgs),
		"reaped", reaped,
	)
}
