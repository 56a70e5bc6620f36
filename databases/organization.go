package databases

// go generate: mockery --name OrganizationDatabase

import (
	"context"

	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/vonity-org/visor-api/models"
)

const organizationName = "organizations"

// OrganizationDatabase contains the methods to use with the organization database
type OrganizationDatabase interface {
	FindOne(ctx context.Context, filter interface{}) (*models.Organization, error)
	Find(ctx context.Context, filter interface{}, opts ...*options.FindOptions) ([]models.Organization, error)
	InsertOne(ctx context.Context, org models.Organization) (interface{}, error)
	UpdateOne(ctx context.Context, filter interface{}, update interface{}) (int64, error)
	DeleteOne(ctx context.Context, filter interface{}) (int64, error)
}

type organizationDatabase struct {
	db DatabaseHelper
}

// NewOrganizationDatabase initializes a new instance of organization database with the provided db connection
func NewOrganizationDatabase(db DatabaseHelper) OrganizationDatabase {
	return &organizationDatabase{
		db: db,
	}
}

func (c *organizationDatabase) FindOne(ctx context.Context, filter interface{}) (*models.Organization, error) {
	org := &models.Organization{}
	err := c.db.Collection(organizationName).FindOne(ctx, filter).Decode(&org)
	if err != nil {
		return nil, err
	}
	return org, nil
}

func (c *organizationDatabase) Find(ctx context.Context, filter interface{}, opts ...*options.FindOptions) ([]models.Organization, error) {
	var orgs []models.Organization
	cur, err := c.db.Collection(organizationName).Find(ctx, filter, opts...)
	if err != nil {
		return nil, err
	}
	err = cur.Decode(&orgs)
	if err != nil {
		return nil, err
	}
	return orgs, nil
}

func (c *organizationDatabase) InsertOne(ctx context.Context, org models.Organization) (interface{}, error) {
	res, err := c.db.Collection(organizationName).InsertOne(ctx, org)
	if err != nil {
		return nil, err
	}
	return res.Decode(), nil
}

func (c *organizationDatabase) UpdateOne(ctx context.Context, filter interface{}, update interface{}) (int64, error) {
	res, err := c.db.Collection(organizationName).UpdateOne(ctx, filter, update)
	if err != nil {
		return 0, err
	}
	return res.MatchedCount(), nil
}

func (c *organizationDatabase) DeleteOne(ctx context.Context, filter interface{}) (int64, error) {
	res, err := c.db.Collection(organizationName).DeleteOne(ctx, filter)
	if err != nil {
		return 0, err
	}
	return res.DeletedCount(), nil
}
