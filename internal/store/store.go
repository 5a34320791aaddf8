package store

import (
	"errors"

	"go.mongodb.org/mongo-driver/mongo"
)

var (
	ErrNotFound       = errors.New("not found")
	ErrAlreadyClaimed = errors.New("job already claimed")
	ErrNoWebsite      = errors.New("institution has no website")
)

// Store bundles the Mongo-backed repositories over the three core
// collections plus the institutions collaborator.
type Store struct {
	Institutions *InstitutionStore
	Jobs         *JobStore
	Content      *ContentStore
	Vectors      *VectorStore
}

func NewStore(db *mongo.Database) *Store {
	return &Store{
		Institutions: &InstitutionStore{col: db.Collection("institutions")},
		Jobs:         &JobStore{col: db.Collection("scrape_jobs")},
		Content:      &ContentStore{col: db.Collection("content_items")},
		Vectors:      &VectorStore{col: db.Collection("embedding_vectors")},
	}
}
