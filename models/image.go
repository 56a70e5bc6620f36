package models

import "go.mongodb.org/mongo-driver/bson/primitive"

// Image is the stored metadata for one uploaded report image. The binary
// itself lives in Cloudinary under Key; ReportID is a weak reference, the
// report may be deleted independently and the orphan sweep reaps leftovers.
type Image struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"id,omitempty"`
	Key          string             `bson:"key" json:"key"`
	ReportID     string             `bson:"reportId" json:"reportId"`
	Organization string             `bson:"organization" json:"organization"`
	Description  string             `bson:"description" json:"description"`
	URL          string             `bson:"url" json:"url"`
	CreatedAt    primitive.DateTime `bson:"createdAt" json:"createdAt"`
}
