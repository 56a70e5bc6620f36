package models

import "go.mongodb.org/mongo-driver/bson/primitive"

// Organization is a tenant of the VISOR API. Access tokens are never stored
// in the clear; only the sha256 hex of the current token is kept, and the
// token itself is handed out exactly once at activation or regeneration.
type Organization struct {
	ID             primitive.ObjectID `bson:"_id,omitempty" json:"id,omitempty"`
	Name           string             `bson:"name" json:"name"`
	ContactEmail   string             `bson:"contactEmail" json:"contactEmail"`
	TokenHash      string             `bson:"tokenHash,omitempty" json:"-"`
	ActivationCode string             `bson:"activationCode,omitempty" json:"-"`
	Activated      bool               `bson:"activated" json:"activated"`
	CreatedAt      primitive.DateTime `bson:"createdAt" json:"createdAt"`
}
