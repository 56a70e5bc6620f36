package databases

// go generate: mockery --name ReportDatabase

import (
	"context"

	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/vonity-org/visor-api/models"
)

const reportName = "reports"

// ReportDatabase contains the methods to use with the report database
type ReportDatabase interface {
	FindOne(ctx context.Context, filter interface{}) (*models.Report, error)
	Find(ctx context.Context, filter interface{}, opts ...*options.FindOptions) ([]models.Report, error)
	InsertOne(ctx context.Context, report models.Report) (interface{}, error)
	UpdateOne(ctx context.Context, filter interface{}, update interface{}) (int64, error)
	DeleteOne(ctx context.Context, filter interface{}) (int64, error)
}

type reportDatabase struct {
	db DatabaseHelper
}

// NewReportDatabase initializes a new instance of report database with the provided db connection
func NewReportDatabase(db DatabaseHelper) ReportDatabase {
	return &reportDatabase{
		db: db,
	}
}

func (c *reportDatabase) FindOne(ctx context.Context, filter interface{}) (*models.Report, error) {
	report := &models.Report{}
	err := c.db.Collection(reportName).FindOne(ctx, filter).Decode(&report)
	if err != nil {
		return nil, err
	}
	return report, nil
}

func (c *reportDatabase) Find(ctx context.Context, filter interface{}, opts ...*options.FindOptions) ([]models.Report, error) {
	var reports []models.Report
	cur, err := c.db.Collection(reportName).Find(ctx, filter, opts...)
	if err != nil {
		return nil, err
	}
	err = cur.Decode(&reports)
	if err != nil {
		return nil, err
	}
	return reports, nil
}

func (c *reportDatabase) InsertOne(ctx context.Context, report models.Report) (interface{}, error) {
	res, err := c.db.Collection(reportName).InsertOne(ctx, report)
	if err != nil {
		return nil, err
	}
	return res.Decode(), nil
}

func (c *reportDatabase) UpdateOne(ctx context.Context, filter interface{}, update interface{}) (int64, error) {
	res, err := c.db.Collection(reportName).UpdateOne(ctx, filter, update)
	if err != nil {
		return 0, err
	}
	return res.MatchedCount(), nil
}

func (c *reportDatabase) DeleteOne(ctx context.Context, filter interface{}) (int64, error) {
	res, err := c.db.Collection(reportName).DeleteOne(ctx, filter)
	if err != nil {
		return 0, err
	}
	return res.DeletedCount(), nil
}
