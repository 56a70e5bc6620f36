package images

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"

	"github.com/vonity-org/visor-api/databases"
	"github.com/vonity-org/visor-api/models"
	"github.com/vonity-org/visor-api/reports"
)

// Manager associates uploaded images with reports: the binary lives in the
// upload store under a generated key, the metadata in Mongo. Report ids are
// weak references; the orphan sweep reaps metadata whose report is gone.
type Manager struct {
	IDB      databases.ImageDatabase
	Uploader Uploader
	Logger   *zap.SugaredLogger
}

// NewManager wires an image manager
func NewManager(idb databases.ImageDatabase, up Uploader, logger *zap.SugaredLogger) *Manager {
	return &Manager{IDB: idb, Uploader: up, Logger: logger}
}

// Attach uploads the image bytes and records its metadata under the report.
func (m *Manager) Attach(ctx context.Context, organization, reportID string, file io.Reader, description string) (*models.Image, error) {
	key := uuid.NewString()
	url, err := m.Uploader.Upload(ctx, file, key)
	if err != nil {
		return nil, fmt.Errorf("%w: image upload: %v", reports.ErrPersistence, err)
	}

	image := models.Image{
		ID:           primitive.NewObjectID(),
		Key:          key,
		ReportID:     reportID,
		Organization: organization,
		Description:  description,
		URL:          url,
		CreatedAt:    primitive.NewDateTimeFromTime(time.Now()),
	}
	if _, err := m.IDB.InsertOne(ctx, image); err != nil {
		// best effort: don't leave an unreferenced binary behind
		if derr := m.Uploader.Destroy(ctx, key); derr != nil {
			m.Logger.Errorw("failed to destroy uploaded image after metadata insert failure",
				"key", key,
				"error", derr,
			)
		}
		return nil, fmt.Errorf("%w: image metadata insert: %v", reports.ErrPersistence, err)
	}
	return &image, nil
}

// ListFor returns the metadata of every image attached to the report.
func (m *Manager) ListFor(ctx context.Context, organization, reportID string) ([]models.Image, error) {
	images, err := m.IDB.Find(ctx, bson.M{"organization": organization, "reportId": reportID})
	if err != nil {
		return nil, fmt.Errorf("%w: image list: %v", reports.ErrPersistence, err)
	}
	if images == nil {
		images = []models.Image{}
	}
	return images, nil
}

// Remove destroys the stored binary and deletes the metadata by key.
func (m *Manager) Remove(ctx context.Context, key string) error {
	if _, err := m.IDB.FindOne(ctx, bson.M{"key": key}); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return reports.ErrNotFound
		}
		return fmt.Errorf("%w: image lookup: %v", reports.ErrPersistence, err)
	}
	if err := m.Uploader.Destroy(ctx, key); err != nil {
		return fmt.Errorf("%w: image destroy: %v", reports.ErrPersistence, err)
	}
	if _, err := m.IDB.DeleteOne(ctx, bson.M{"key": key}); err != nil {
		return fmt.Errorf("%w: image metadata delete: %v", reports.ErrPersistence, err)
	}
	return nil
}

// UpdateDescription changes the description of an image by key.
func (m *Manager) UpdateDescription(ctx context.Context, key, description string) error {
	matched, err := m.IDB.UpdateOne(ctx, bson.M{"key": key}, bson.M{"$set": bson.M{"description": description}})
	if err != nil {
		return fmt.Errorf("%w: image description update: %v", reports.ErrPersistence, err)
	}
	if matched == 0 {
		return reports.ErrNotFound
	}
	return nil
}

// RemoveForReport removes every image attached to the report; used by the
// delete cascade. The first failure is returned so the caller can leave the
// rest for the orphan sweep.
func (m *Manager) RemoveForReport(ctx context.Context, organization, reportID string) error {
	images, err := m.ListFor(ctx, organization, reportID)
	if err != nil {
		return err
	}
	for _, img := range images {
		if err := m.Remove(ctx, img.Key); err != nil {
			return err
		}
	}
	return nil
}
