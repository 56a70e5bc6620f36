package models

import (
	"fmt"
	"strings"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// OMMarkerCount is the fixed number of positional markers on a report.
const OMMarkerCount = 6

// OMMarkers is the ordered tuple of observational markers attached to a
// report. Entries are opaque tokens (numbers or strings); a nil or empty
// entry means the marker was not observed.
type OMMarkers []interface{}

// Validate ensures the tuple has exactly OMMarkerCount entries.
func (m OMMarkers) Validate() error {
	if len(m) != OMMarkerCount {
		return fmt.Errorf("omMarkers must contain exactly %d entries, got %d", OMMarkerCount, len(m))
	}
	return nil
}

// Present reports whether the marker at index i carries a value.
func (m OMMarkers) Present(i int) bool {
	if i < 0 || i >= len(m) {
		return false
	}
	switch v := m[i].(type) {
	case nil:
		return false
	case string:
		return strings.TrimSpace(v) != ""
	default:
		return true
	}
}

// Overlap counts the marker indexes that carry a value in both tuples.
func (m OMMarkers) Overlap(other OMMarkers) int {
	n := 0
	for i := 0; i < OMMarkerCount; i++ {
		if m.Present(i) && other.Present(i) {
			n++
		}
	}
	return n
}

// Navigation is the celestial scope of a report. Similarity comparisons
// never cross navigation boundaries.
type Navigation struct {
	System            string `bson:"system" json:"system"`
	StellarObject     string `bson:"stellarObject" json:"stellarObject"`
	PlanetLevelObject string `bson:"planetLevelObject,omitempty" json:"planetLevelObject,omitempty"`
}

// Report represents a VISOR sighting report scoped to one organization
type Report struct {
	ID              primitive.ObjectID     `bson:"_id,omitempty" json:"id,omitempty"`
	Organization    string                 `bson:"organization" json:"organization"`
	Published       bool                   `bson:"published" json:"published"`
	Approved        bool                   `bson:"approved" json:"approved"`
	ReportName      string                 `bson:"reportName" json:"reportName"`
	VisorLocation   map[string]interface{} `bson:"visorLocation" json:"visorLocation"`
	ReportMeta      map[string]interface{} `bson:"reportMeta" json:"reportMeta"`
	LocationDetails map[string]interface{} `bson:"locationDetails" json:"locationDetails"`
	Navigation      Navigation             `bson:"navigation" json:"navigation"`
	OMMarkers       OMMarkers              `bson:"omMarkers,omitempty" json:"omMarkers,omitempty"`
	Version         int64                  `bson:"version" json:"version"`
	CreatedAt       primitive.DateTime     `bson:"createdAt" json:"createdAt"`
	UpdatedAt       primitive.DateTime     `bson:"updatedAt" json:"updatedAt"`
}

// ReportInput is the client-supplied body for create and update. Approval
// state is deliberately absent: decoding into this type strips any
// client-supplied "approved" value, approval is its own operation.
type ReportInput struct {
	ReportName      string                 `json:"reportName"`
	Published       string                 `json:"published"`
	VisorLocation   map[string]interface{} `json:"visorLocation"`
	ReportMeta      map[string]interface{} `json:"reportMeta"`
	LocationDetails map[string]interface{} `json:"locationDetails"`
	Navigation      Navigation             `json:"navigation"`
	OMMarkers       OMMarkers              `json:"omMarkers,omitempty"`
}

// Validate checks the structural validity invariant: all required top-level
// fields present and omMarkers, when supplied, of the fixed length.
func (in *ReportInput) Validate() error {
	if strings.TrimSpace(in.ReportName) == "" {
		return fmt.Errorf("reportName is required")
	}
	if in.Published == "" {
		return fmt.Errorf("published is required")
	}
	if in.VisorLocation == nil {
		return fmt.Errorf("visorLocation is required")
	}
	if in.ReportMeta == nil {
		return fmt.Errorf("reportMeta is required")
	}
	if in.LocationDetails == nil {
		return fmt.Errorf("locationDetails is required")
	}
	if in.Navigation.System == "" || in.Navigation.StellarObject == "" {
		return fmt.Errorf("navigation requires system and stellarObject")
	}
	if in.OMMarkers != nil {
		if err := in.OMMarkers.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// PublishedBool normalizes the client's published string token. Anything
// other than "true" (case-insensitive) is unpublished.
func (in *ReportInput) PublishedBool() bool {
	return strings.EqualFold(strings.TrimSpace(in.Published), "true")
}
