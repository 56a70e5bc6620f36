package databases

// go generate: mockery --name ImageDatabase

import (
	"context"

	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/vonity-org/visor-api/models"
)

const imageName = "images"

// ImageDatabase contains the methods to use with the image metadata database
type ImageDatabase interface {
	FindOne(ctx context.Context, filter interface{}) (*models.Image, error)
	Find(ctx context.Context, filter interface{}, opts ...*options.FindOptions) ([]models.Image, error)
	InsertOne(ctx context.Context, image models.Image) (interface{}, error)
	UpdateOne(ctx context.Context, filter interface{}, update interface{}) (int64, error)
	DeleteOne(ctx context.Context, filter interface{}) (int64, error)
}

type imageDatabase struct {
	db DatabaseHelper
}

// NewImageDatabase initializes a new instance of image database with the provided db connection
func NewImageDatabase(db DatabaseHelper) ImageDatabase {
	return &imageDatabase{
		db: db,
	}
}

func (c *imageDatabase) FindOne(ctx context.Context, filter interface{}) (*models.Image, error) {
	image := &models.Image{}
	err := c.db.Collection(imageName).FindOne(ctx, filter).Decode(&image)
	if err != nil {
		return nil, err
	}
	return image, nil
}

func (c *imageDatabase) Find(ctx context.Context, filter interface{}, opts ...*options.FindOptions) ([]models.Image, error) {
	var images []models.Image
	cur, err := c.db.Collection(imageName).Find(ctx, filter, opts...)
	if err != nil {
		return nil, err
	}
	err = cur.Decode(&images)
	if err != nil {
		return nil, err
	}
	return images, nil
}

func (c *imageDatabase) InsertOne(ctx context.Context, image models.Image) (interface{}, error) {
	res, err := c.db.Collection(imageName).InsertOne(ctx, image)
	if err != nil {
		return nil, err
	}
	return res.Decode(), nil
}

func (c *imageDatabase) UpdateOne(ctx context.Context, filter interface{}, update interface{}) (int64, error) {
	res, err := c.db.Collection(imageName).UpdateOne(ctx, filter, update)
	if err != nil {
		return 0, err
	}
	return res.MatchedCount(), nil
}

func (c *imageDatabase) DeleteOne(ctx context.Context, filter interface{}) (int64, error) {
	res, err := c.db.Collection(imageName).DeleteOne(ctx, filter)
	if err != nil {
		return 0, err
	}
	return res.DeletedCount(), nil
}
