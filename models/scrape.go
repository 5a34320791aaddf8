package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// JobStatus is the canonical scrape job state. The legacy data mixed cased
// variants ("PENDING" vs "pending"); everything in this codebase reads and
// writes the lowercase forms only.
type JobStatus string

const (
	JobStatusPending    JobStatus = "pending"
	JobStatusInProgress JobStatus = "in_progress"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusFailed     JobStatus = "failed"
)

// Terminal reports whether the status ends the job instance. A new job may
// still be created later for the same institution and target.
func (s JobStatus) Terminal() bool {
	return s == JobStatusCompleted || s == JobStatusFailed
}

// ScrapeJob tracks one scrape attempt for one (institution, target URL) pair.
// Jobs are never deleted, only superseded by a newer job on re-scrape.
type ScrapeJob struct {
	ID            primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	InstitutionID primitive.ObjectID `bson:"institution_id" json:"institution_id"`
	TargetURL     string             `bson:"target_url" json:"target_url"`
	Status        JobStatus          `bson:"status" json:"status"`
	PagesScraped  int                `bson:"pages_scraped" json:"pages_scraped"`
	AttemptCount  int                `bson:"attempt_count" json:"attempt_count"`
	ErrorMessage  string             `bson:"error_message,omitempty" json:"error_message,omitempty"`
	CreatedAt     time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt     time.Time          `bson:"updated_at" json:"updated_at"`
	CompletedAt   *time.Time         `bson:"completed_at,omitempty" json:"completed_at,omitempty"`
}

// ScrapeStatusResponse is the job status reported back to callers.
type ScrapeStatusResponse struct {
	Status        JobStatus  `json:"status"`
	PagesScraped  int        `json:"pages_scraped"`
	ErrorMessage  string     `json:"error_message,omitempty"`
	LastScrapedAt *time.Time `json:"last_scraped_at,omitempty"`
}
