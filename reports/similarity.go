package reports

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"github.com/vonity-org/visor-api/databases"
	"github.com/vonity-org/visor-api/models"
)

// Similarity detects possible duplicate sightings: reports in the same
// navigation scope whose marker tuples overlap the candidate's. The check
// is advisory only, it never blocks a write.
type Similarity struct {
	RDB databases.ReportDatabase

	// MinOverlap is the number of marker indexes that must carry a value in
	// both reports before they count as similar. Values below 1 behave as 1
	// (simple presence-overlap).
	MinOverlap int

	Logger *zap.SugaredLogger
}

// NewSimilarity wires a similarity engine over the given report database
func NewSimilarity(rdb databases.ReportDatabase, minOverlap int, logger *zap.SugaredLogger) *Similarity {
	return &Similarity{RDB: rdb, MinOverlap: minOverlap, Logger: logger}
}

// FindSimilar returns every report of the organization in the exact
// navigation scope whose markers overlap the given tuple, in insertion
// order. Distinct celestial bodies never collide: planetLevelObject narrows
// the scope only when supplied.
func (s *Similarity) FindSimilar(ctx context.Context, organization string, markers models.OMMarkers, nav models.Navigation) (bool, []models.Report, error) {
	if err := markers.Validate(); err != nil {
		return false, nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}
	if nav.System == "" || nav.StellarObject == "" {
		return false, nil, fmt.Errorf("%w: navigation requires system and stellarObject", ErrValidation)
	}

	scope := bson.M{
		"organization":             organization,
		"navigation.system":        nav.System,
		"navigation.stellarObject": nav.StellarObject,
	}
	if nav.PlanetLevelObject != "" {
		scope["navigation.planetLevelObject"] = nav.PlanetLevelObject
	}

	sort := options.Find().SetSort(bson.D{{Key: "_id", Value: 1}})
	candidates, err := s.RDB.Find(ctx, scope, sort)
	if err != nil {
		return false, nil, fmt.Errorf("%w: similarity scan: %v", ErrPersistence, err)
	}

	min := s.MinOverlap
	if min < 1 {
		min = 1
	}

	var similar []models.Report
	for _, c := range candidates {
		if markers.Overlap(c.OMMarkers) >= min {
			similar = append(similar, c)
		}
	}

	s.Logger.Debugw("similarity scan",
		"organization", organization,
		"system", nav.System,
		"stellarObject", nav.StellarObject,
		"candidates", len(candidates),
		"similar", len(similar),
	)
	return len(similar) > 0, similar, nil
}
