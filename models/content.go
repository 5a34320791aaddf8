package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ContentItem is one scraped passage of text belonging to an institution.
// Items are retired with IsActive=false instead of being deleted so that
// historical answers stay explainable.
type ContentItem struct {
	ID            primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	InstitutionID primitive.ObjectID `bson:"institution_id" json:"institution_id"`
	SourceURL     string             `bson:"source_url" json:"source_url"`
	Title         string             `bson:"title,omitempty" json:"title,omitempty"`
	Body          string             `bson:"body" json:"body"`
	ContentType   string             `bson:"content_type,omitempty" json:"content_type,omitempty"` // e.g. "program page", "admissions page"
	Language      string             `bson:"language,omitempty" json:"language,omitempty"`
	BodyHash      string             `bson:"body_hash,omitempty" json:"-"`
	ScrapedAt     time.Time          `bson:"scraped_at" json:"scraped_at"`
	UpdatedAt     time.Time          `bson:"updated_at" json:"updated_at"`
	IsActive      bool               `bson:"is_active" json:"is_active"`
}

// EmbeddingVector holds the vector for one active ContentItem. At most one
// current vector exists per item; a model mismatch marks the vector stale.
type EmbeddingVector struct {
	ID            primitive.ObjectID `bson:"_id,omitempty"`
	ContentItemID primitive.ObjectID `bson:"content_item_id"`
	InstitutionID primitive.ObjectID `bson:"institution_id"`
	Vector        []float32          `bson:"vector"`
	Model         string             `bson:"model"`
	BodyHash      string             `bson:"body_hash,omitempty"`
	UpdatedAt     time.Time          `bson:"updated_at"`
}
