package queue

import (
	"context"
	"fmt"
	"strings"

	"github.com/hibiken/asynq"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/dianabombi/student-advisor-sub002/internal/config"
	"github.com/dianabombi/student-advisor-sub002/internal/logger"
	"github.com/dianabombi/student-advisor-sub002/internal/store"
	"github.com/dianabombi/student-advisor-sub002/models"
)

// Service is the job-submission side of the pipeline: it validates the
// institution, creates the pending job row and hands it to the worker queue.
type Service struct {
	cfg    *config.Config
	store  *store.Store
	client *asynq.Client
}

func NewService(cfg *config.Config, st *store.Store, client *asynq.Client) *Service {
	return &Service{cfg: cfg, store: st, client: client}
}

// EnqueueScrape creates a scrape job for the institution's website.
// An institution without a website fails fast: no job row, no network call.
// A non-terminal job for the same target is returned as-is (coalesced).
func (s *Service) EnqueueScrape(ctx context.Context, institutionID primitive.ObjectID) (*models.ScrapeJob, error) {
	inst, err := s.store.Institutions.ByID(ctx, institutionID)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(inst.Website) == "" {
		return nil, store.ErrNoWebsite
	}

	job, created, err := s.store.Jobs.Enqueue(ctx, institutionID, inst.Website)
	if err != nil {
		return nil, err
	}
	if !created {
		logger.Info("scrape already in flight, coalescing",
			"institution", institutionID.Hex(), "job", job.ID.Hex(), "status", string(job.Status))
		return job, nil
	}

	task, err := NewScrapeTask(job.ID.Hex(), institutionID.Hex(), inst.Website, s.cfg.ScrapeTimeout)
	if err != nil {
		return nil, err
	}
	if _, err := s.client.EnqueueContext(ctx, task); err != nil {
		// Leave the row pending; the refresh sweep re-enqueues it later.
		return nil, fmt.Errorf("failed to enqueue scrape task: %w", err)
	}

	logger.Info("scrape job enqueued", "institution", institutionID.Hex(), "job", job.ID.Hex(), "url", inst.Website)
	return job, nil
}

// Status reports the latest job for the institution together with the
// institution's last successful scrape time.
func (s *Service) Status(ctx context.Context, institutionID primitive.ObjectID) (*models.ScrapeStatusResponse, error) {
	inst, err := s.store.Institutions.ByID(ctx, institutionID)
	if err != nil {
		return nil, err
	}

	job, err := s.store.Jobs.LatestForInstitution(ctx, institutionID)
	if err == store.ErrNotFound {
		return &models.ScrapeStatusResponse{LastScrapedAt: inst.LastScrapedAt}, nil
	}
	if err != nil {
		return nil, err
	}

	return &models.ScrapeStatusResponse{
		Status:        job.Status,
		PagesScraped:  job.PagesScraped,
		ErrorMessage:  job.ErrorMessage,
		LastScrapedAt: inst.LastScrapedAt,
	}, nil
}

// RefreshDue re-enqueues every institution whose content is older than the
// refresh TTL. Called from the periodic sweep.
func (s *Service) RefreshDue(ctx context.Context) (int, error) {
	due, err := s.store.Institutions.DueForRefresh(ctx, s.cfg.ScrapeRefreshTTL, 100)
	if err != nil {
		return 0, err
	}

	enqueued := 0
	for _, inst := range due {
		if _, err := s.EnqueueScrape(ctx, inst.ID); err != nil {
			if err == store.ErrNoWebsite {
				continue
			}
			logger.Warn("refresh enqueue failed", "institution", inst.ID.Hex(), "error", err)
			continue
		}
		enqueued++
	}
	return enqueued, nil
}
