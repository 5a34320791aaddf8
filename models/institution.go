package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Institution is an organization (university, job agency, housing agency)
// whose website content is indexed for grounded chat.
type Institution struct {
	ID            primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name          string             `bson:"name" json:"name"`
	Website       string             `bson:"website" json:"website"`
	Country       string             `bson:"country,omitempty" json:"country,omitempty"`
	Category      string             `bson:"category,omitempty" json:"category,omitempty"` // university, job_agency, housing_agency
	LastScrapedAt *time.Time         `bson:"last_scraped_at,omitempty" json:"last_scraped_at,omitempty"`
	CreatedAt     time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt     time.Time          `bson:"updated_at" json:"updated_at"`
}

// CreateInstitutionRequest is the payload for institution registration.
type CreateInstitutionRequest struct {
	Name     string `json:"name" binding:"required,min=2,max=200"`
	Website  string `json:"website" binding:"omitempty,url"`
	Country  string `json:"country,omitempty"`
	Category string `json:"category,omitempty"`
}
