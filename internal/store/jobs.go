package store

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/dianabombi/student-advisor-sub002/models"
)

// JobStore persists scrape jobs and implements the claim/retry/terminal
// transitions of the job state machine. All transitions go through
// conditional updates so concurrent workers cannot double-process a job.
type JobStore struct {
	col *mongo.Collection
}

// Enqueue creates a pending job for (institution, target). If a non-terminal
// job already exists for the same pair the existing job is returned and no
// new row is written (at-most-one in-flight job per institution+target).
// The partial unique index on (institution_id, target_url) over non-terminal
// statuses backs this up: when two enqueues race past the existence check,
// one insert fails with a duplicate key and resolves to the winner's job.
func (s *JobStore) Enqueue(ctx context.Context, institutionID primitive.ObjectID, targetURL string) (*models.ScrapeJob, bool, error) {
	inFlight := bson.M{
		"institution_id": institutionID,
		"target_url":     targetURL,
		"status":         bson.M{"$in": []models.JobStatus{models.JobStatusPending, models.JobStatusInProgress}},
	}

	var existing models.ScrapeJob
	err := s.col.FindOne(ctx, inFlight).Decode(&existing)
	if err == nil {
		return &existing, false, nil
	}
	if err != mongo.ErrNoDocuments {
		return nil, false, err
	}

	now := time.Now()
	job := models.ScrapeJob{
		ID:            primitive.NewObjectID(),
		InstitutionID: institutionID,
		TargetURL:     targetURL,
		Status:        models.JobStatusPending,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if _, err := s.col.InsertOne(ctx, job); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			if ferr := s.col.FindOne(ctx, inFlight).Decode(&existing); ferr == nil {
				return &existing, false, nil
			}
			return nil, false, err
		}
		return nil, false, err
	}
	return &job, true, nil
}

// Claim atomically moves a pending job to in_progress. Exactly one caller
// wins; everyone else gets ErrAlreadyClaimed.
func (s *JobStore) Claim(ctx context.Context, jobID primitive.ObjectID) (*models.ScrapeJob, error) {
	var job models.ScrapeJob
	err := s.col.FindOneAndUpdate(ctx,
		bson.M{"_id": jobID, "status": models.JobStatusPending},
		bson.M{"$set": bson.M{
			"status":     models.JobStatusInProgress,
			"updated_at": time.Now(),
		}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&job)
	if err == mongo.ErrNoDocuments {
		return nil, ErrAlreadyClaimed
	}
	if err != nil {
		return nil, err
	}
	return &job, nil
}

// RecordAttempt logs a transient failure without leaving in_progress.
// Returns the new attempt count so the worker can check its retry ceiling.
func (s *JobStore) RecordAttempt(ctx context.Context, jobID primitive.ObjectID, errMsg string) (int, error) {
	var job models.ScrapeJob
	err := s.col.FindOneAndUpdate(ctx,
		bson.M{"_id": jobID, "status": models.JobStatusInProgress},
		bson.M{
			"$inc": bson.M{"attempt_count": 1},
			"$set": bson.M{"error_message": errMsg, "updated_at": time.Now()},
		},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&job)
	if err != nil {
		return 0, err
	}
	return job.AttemptCount, nil
}

// Touch refreshes updated_at so a long-running job is not reclaimed as stale.
func (s *JobStore) Touch(ctx context.Context, jobID primitive.ObjectID) error {
	_, err := s.col.UpdateOne(ctx,
		bson.M{"_id": jobID, "status": models.JobStatusInProgress},
		bson.M{"$set": bson.M{"updated_at": time.Now()}},
	)
	return err
}

// Complete marks the job terminal-successful with its page count.
func (s *JobStore) Complete(ctx context.Context, jobID primitive.ObjectID, pagesScraped int) error {
	now := time.Now()
	res, err := s.col.UpdateOne(ctx,
		bson.M{"_id": jobID, "status": models.JobStatusInProgress},
		bson.M{"$set": bson.M{
			"status":        models.JobStatusCompleted,
			"pages_scraped": pagesScraped,
			"error_message": "",
			"updated_at":    now,
			"completed_at":  now,
		}},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// Fail marks the job terminal-failed with the last error.
func (s *JobStore) Fail(ctx context.Context, jobID primitive.ObjectID, errMsg string) error {
	res, err := s.col.UpdateOne(ctx,
		bson.M{"_id": jobID, "status": models.JobStatusInProgress},
		bson.M{"$set": bson.M{
			"status":        models.JobStatusFailed,
			"error_message": errMsg,
			"updated_at":    time.Now(),
		}},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// LatestForInstitution returns the most recently created job for the
// institution, regardless of status.
func (s *JobStore) LatestForInstitution(ctx context.Context, institutionID primitive.ObjectID) (*models.ScrapeJob, error) {
	var job models.ScrapeJob
	err := s.col.FindOne(ctx,
		bson.M{"institution_id": institutionID},
		options.FindOne().SetSort(bson.D{{Key: "created_at", Value: -1}}),
	).Decode(&job)
	if err == mongo.ErrNoDocuments {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &job, nil
}

// ReclaimStale fails in_progress jobs whose last update is older than the
// threshold, so a crashed worker cannot park a job in_progress forever.
func (s *JobStore) ReclaimStale(ctx context.Context, olderThan time.Duration) (int64, error) {
	cutoff := time.Now().Add(-olderThan)
	res, err := s.col.UpdateMany(ctx,
		bson.M{"status": models.JobStatusInProgress, "updated_at": bson.M{"$lt": cutoff}},
		bson.M{"$set": bson.M{
			"status":        models.JobStatusFailed,
			"error_message": "scrape timed out: no progress past staleness threshold",
			"updated_at":    time.Now(),
		}},
	)
	if err != nil {
		return 0, err
	}
	return res.ModifiedCount, nil
}
