package reports

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"github.com/vonity-org/visor-api/databases"
	"github.com/vonity-org/visor-api/models"
)

// Filter translates a partially-specified SearchFilter into a deterministic
// query over one organization's reports. Criteria that Mongo can evaluate
// become part of the predicate plan; keyword containment over the
// stringified reportMeta and the final pagination run in-process over the
// _id-ordered matched set, so the returned count is always the post-filter
// total.
type Filter struct {
	RDB    databases.ReportDatabase
	Logger *zap.SugaredLogger
}

// NewFilter wires a query filter over the given report database
func NewFilter(rdb databases.ReportDatabase, logger *zap.SugaredLogger) *Filter {
	return &Filter{RDB: rdb, Logger: logger}
}

// Query returns the page of matching reports plus the total matched count.
// An empty result is not an error; malformed criteria never reach this
// method (the boundary rejects them first).
func (f *Filter) Query(ctx context.Context, organization string, criteria models.SearchFilter) ([]models.Report, int, error) {
	plan := BuildPlan(organization, criteria)

	// insertion order, stable across identical calls
	sort := options.Find().SetSort(bson.D{{Key: "_id", Value: 1}})
	matched, err := f.RDB.Find(ctx, plan, sort)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: filter query: %v", ErrPersistence, err)
	}

	if kw := strings.TrimSpace(criteria.Keyword); kw != "" {
		kept := matched[:0]
		for _, r := range matched {
			if KeywordMatch(r, kw) {
				kept = append(kept, r)
			}
		}
		matched = kept
	}

	total := len(matched)
	page := Paginate(matched, criteria.From, criteria.Length, criteria.To)
	f.Logger.Debugw("filtered reports",
		"organization", organization,
		"matched", total,
		"returned", len(page),
	)
	return page, total, nil
}

// BuildPlan composes the Mongo predicate for every criterion except keyword.
// All criteria AND together; an absent criterion constrains nothing.
func BuildPlan(organization string, criteria models.SearchFilter) bson.M {
	plan := bson.M{"organization": organization}

	if name := strings.TrimSpace(criteria.Name); name != "" {
		plan["reportName"] = bson.M{"$regex": regexp.QuoteMeta(name), "$options": "i"}
	}
	if criteria.Published != "" {
		plan["published"] = boolToken(criteria.Published)
	}
	if criteria.Approved != "" {
		plan["approved"] = boolToken(criteria.Approved)
	}
	for k, v := range criteria.Location {
		plan["visorLocation."+k] = v
	}
	for k, v := range criteria.Meta {
		plan["reportMeta."+k] = v
	}
	return plan
}

// boolToken maps the filter's string token onto the stored boolean. Tokens
// other than true/false match nothing, mirroring an exact string comparison
// against the rendered flag.
func boolToken(token string) interface{} {
	switch strings.ToLower(strings.TrimSpace(token)) {
	case "true":
		return true
	case "false":
		return false
	default:
		return bson.M{"$in": bson.A{}}
	}
}

// KeywordMatch reports whether the keyword appears, case-insensitively, in
// the report name or anywhere in the stringified report metadata.
func KeywordMatch(r models.Report, keyword string) bool {
	kw := strings.ToLower(keyword)
	if strings.Contains(strings.ToLower(r.ReportName), kw) {
		return true
	}
	meta, err := json.Marshal(r.ReportMeta)
	if err != nil {
		return false
	}
	return strings.Contains(strings.ToLower(string(meta)), kw)
}

// Paginate slices the matched set. From is a zero-based offset into the
// matched reports; To is an exclusive absolute upper index and wins over
// Length when both are supplied. Out-of-range bounds clamp rather than fail.
func Paginate(matched []models.Report, from, length, to *int) []models.Report {
	start := 0
	if from != nil && *from > 0 {
		start = *from
	}
	if start > len(matched) {
		start = len(matched)
	}

	end := len(matched)
	if to != nil {
		end = *to
	} else if length != nil {
		end = start + *length
	}
	if end > len(matched) {
		end = len(matched)
	}
	if end < start {
		end = start
	}
	return matched[start:end]
}
