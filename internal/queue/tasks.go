package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/dianabombi/student-advisor-sub002/internal/config"
	"github.com/dianabombi/student-advisor-sub002/internal/crawler"
	"github.com/dianabombi/student-advisor-sub002/internal/logger"
	"github.com/dianabombi/student-advisor-sub002/internal/store"
	"github.com/dianabombi/student-advisor-sub002/internal/telemetry"
	"github.com/dianabombi/student-advisor-sub002/models"
	"github.com/dianabombi/student-advisor-sub002/utils"
)

const (
	TaskScrapeRun  = "scrape:run"
	TaskEmbedBatch = "embed:batch"
)

type ScrapePayload struct {
	JobID         string `json:"job_id"`
	InstitutionID string `json:"institution_id"`
	TargetURL     string `json:"target_url"`
}

type EmbedBatchPayload struct {
	InstitutionID  string   `json:"institution_id"`
	ContentItemIDs []string `json:"content_item_ids"`
}

// NewScrapeTask wraps a scrape job for the worker queue. Retries are handled
// inside the handler (in-place, against the job row); asynq-level retry only
// covers crashes before the job is claimed.
func NewScrapeTask(jobID, institutionID, targetURL string, timeout time.Duration) (*asynq.Task, error) {
	payload, err := json.Marshal(ScrapePayload{
		JobID:         jobID,
		InstitutionID: institutionID,
		TargetURL:     targetURL,
	})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(
		TaskScrapeRun,
		payload,
		asynq.MaxRetry(1),
		asynq.Timeout(timeout),
		asynq.Queue("critical"),
	), nil
}

func NewEmbedBatchTask(institutionID string, contentItemIDs []string) (*asynq.Task, error) {
	payload, err := json.Marshal(EmbedBatchPayload{
		InstitutionID:  institutionID,
		ContentItemIDs: contentItemIDs,
	})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(
		TaskEmbedBatch,
		payload,
		asynq.MaxRetry(3),
		asynq.Timeout(10*time.Minute),
		asynq.Queue("default"),
	), nil
}

// TaskProcessor executes queued work against the stores.
type TaskProcessor struct {
	cfg     *config.Config
	store   *store.Store
	embed   EmbedBatchFunc
	client  *asynq.Client
	metrics *telemetry.Metrics
	crawlFn func(crawler.Config) (*crawler.Result, error)
	sleepFn func(context.Context, time.Duration)
}

// EmbedBatchFunc runs one embedding batch and reports counts.
type EmbedBatchFunc func(ctx context.Context, ids []primitive.ObjectID) (successCount, errorCount int, err error)

func NewTaskProcessor(cfg *config.Config, st *store.Store, embed EmbedBatchFunc, client *asynq.Client, metrics *telemetry.Metrics) *TaskProcessor {
	return &TaskProcessor{
		cfg:     cfg,
		store:   st,
		embed:   embed,
		client:  client,
		metrics: metrics,
		crawlFn: crawler.Crawl,
		sleepFn: sleepContext,
	}
}

// sleepContext sleeps for d or until ctx is done, whichever comes first, so
// backoff waits never outlive the task's deadline.
func sleepContext(ctx context.Context, d time.Duration) {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}

// terminalWriteCtx detaches a context for the writes that make a job
// terminal. A job whose wall-clock budget just expired must still be marked
// failed; the expired task context would reject the write.
func terminalWriteCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), 15*time.Second)
}

// BackoffDelay is the in-place retry schedule for transient fetch failures:
// 2s, 4s, 8s... capped at one minute.
func BackoffDelay(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	d := 2 * time.Second << uint(attempt-1)
	if d > time.Minute {
		d = time.Minute
	}
	return d
}

// HandleScrape claims and runs one scrape job end to end.
func (p *TaskProcessor) HandleScrape(ctx context.Context, t *asynq.Task) error {
	var payload ScrapePayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("unmarshal failed: %w", asynq.SkipRetry)
	}

	jobID, err := primitive.ObjectIDFromHex(payload.JobID)
	if err != nil {
		return fmt.Errorf("bad job id: %w", asynq.SkipRetry)
	}
	institutionID, err := primitive.ObjectIDFromHex(payload.InstitutionID)
	if err != nil {
		return fmt.Errorf("bad institution id: %w", asynq.SkipRetry)
	}

	job, err := p.store.Jobs.Claim(ctx, jobID)
	if err == store.ErrAlreadyClaimed {
		// Another worker won the claim, or the job is already terminal.
		logger.Info("scrape job not claimable", "job", payload.JobID)
		return nil
	}
	if err != nil {
		return err
	}

	logger.Info("scrape job claimed", "job", job.ID.Hex(), "institution", payload.InstitutionID, "url", job.TargetURL)
	start := time.Now()

	result, runErr := p.runWithRetries(ctx, job)
	if runErr != nil {
		p.failJob(ctx, job.ID, payload.InstitutionID, runErr.Error(), start)
		// The job row is terminal now; asynq must not retry it.
		return nil
	}

	changedIDs, err := p.persistPages(ctx, institutionID, result)
	if err != nil {
		p.failJob(ctx, job.ID, payload.InstitutionID, "failed to store scraped content: "+err.Error(), start)
		return nil
	}

	writeCtx, cancelWrite := terminalWriteCtx(ctx)
	defer cancelWrite()
	if err := p.store.Jobs.Complete(writeCtx, job.ID, result.PagesCrawled); err != nil {
		return err
	}
	if p.metrics != nil {
		p.metrics.RecordScrapeJob(payload.InstitutionID, "completed", time.Since(start).Seconds())
	}
	if err := p.store.Institutions.SetLastScraped(ctx, institutionID, time.Now()); err != nil {
		logger.Warn("failed to update last_scraped_at", "institution", payload.InstitutionID, "error", err)
	}

	logger.Info("scrape job completed",
		"job", job.ID.Hex(), "pages", result.PagesCrawled, "changed_items", len(changedIDs))

	if len(changedIDs) > 0 && p.client != nil {
		ids := make([]string, len(changedIDs))
		for i, id := range changedIDs {
			ids[i] = id.Hex()
		}
		task, err := NewEmbedBatchTask(payload.InstitutionID, ids)
		if err != nil {
			return err
		}
		if _, err := p.client.EnqueueContext(ctx, task); err != nil {
			logger.Error("failed to enqueue embedding batch", "institution", payload.InstitutionID, "error", err)
		}
	}

	return nil
}

// failJob makes the job terminal-failed on a detached context and records
// the outcome.
func (p *TaskProcessor) failJob(ctx context.Context, jobID primitive.ObjectID, institutionID, errMsg string, start time.Time) {
	writeCtx, cancel := terminalWriteCtx(ctx)
	defer cancel()
	if err := p.store.Jobs.Fail(writeCtx, jobID, errMsg); err != nil {
		logger.Error("failed to mark job failed", "job", jobID.Hex(), "error", err)
	}
	if p.metrics != nil {
		p.metrics.RecordScrapeJob(institutionID, "failed", time.Since(start).Seconds())
	}
}

// runWithRetries executes the crawl, retrying transient failures in place
// with exponential backoff while the job stays in_progress. The retry
// ceiling turns the last transient error terminal.
func (p *TaskProcessor) runWithRetries(ctx context.Context, job *models.ScrapeJob) (*crawler.Result, error) {
	cfg := crawler.Config{
		URL:         job.TargetURL,
		MaxPages:    p.cfg.ScrapeMaxPages,
		FollowLinks: true,
		RenderJS:    p.cfg.ScrapeRenderJS,
	}

	for {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("scrape timed out: %v", ctx.Err())
		}

		result, err := p.crawlFn(cfg)
		if err == nil {
			return result, nil
		}

		if !crawler.IsTransient(err) {
			return nil, err
		}

		attempts, recErr := p.store.Jobs.RecordAttempt(ctx, job.ID, err.Error())
		if recErr != nil {
			return nil, recErr
		}
		if attempts >= p.cfg.ScrapeMaxRetries {
			return nil, err
		}

		logger.Warn("transient scrape failure, retrying",
			"job", job.ID.Hex(), "attempt", attempts, "error", err)
		p.sleepFn(ctx, BackoffDelay(attempts))
	}
}

// persistPages upserts every crawled page and retires items the crawl no
// longer saw. Returns ids of items whose body changed (embedding candidates).
func (p *TaskProcessor) persistPages(ctx context.Context, institutionID primitive.ObjectID, result *crawler.Result) ([]primitive.ObjectID, error) {
	changed := make([]primitive.ObjectID, 0, len(result.Pages))
	seenURLs := make([]string, 0, len(result.Pages))

	for _, page := range result.Pages {
		item := models.ContentItem{
			InstitutionID: institutionID,
			SourceURL:     page.URL,
			Title:         page.Title,
			Body:          page.Content,
			ContentType:   crawler.ClassifyContentType(page.URL, page.Title),
			Language:      page.Language,
			BodyHash:      utils.HashBody(page.Content),
			ScrapedAt:     page.FetchedAt,
		}
		id, bodyChanged, err := p.store.Content.Upsert(ctx, item)
		if err != nil {
			return nil, err
		}
		seenURLs = append(seenURLs, page.URL)
		if bodyChanged {
			changed = append(changed, id)
		}
	}

	if _, err := p.store.Content.DeactivateMissing(ctx, institutionID, seenURLs); err != nil {
		logger.Warn("failed to retire missing items", "institution", institutionID.Hex(), "error", err)
	}

	return changed, nil
}

// HandleEmbedBatch embeds the content items written by a completed scrape.
func (p *TaskProcessor) HandleEmbedBatch(ctx context.Context, t *asynq.Task) error {
	var payload EmbedBatchPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("unmarshal failed: %w", asynq.SkipRetry)
	}

	ids := make([]primitive.ObjectID, 0, len(payload.ContentItemIDs))
	for _, raw := range payload.ContentItemIDs {
		id, err := primitive.ObjectIDFromHex(raw)
		if err != nil {
			continue
		}
		ids = append(ids, id)
	}
	if len(ids) == 0 {
		return nil
	}

	successCount, errorCount, err := p.embed(ctx, ids)
	if err != nil {
		return err
	}

	if p.metrics != nil && successCount > 0 {
		p.metrics.RecordEmbeddings(int64(successCount), p.cfg.GoogleEmbeddingsModel)
	}

	logger.Info("embedding batch finished",
		"institution", payload.InstitutionID, "success", successCount, "errors", errorCount)

	// Items that failed stay un-embedded; asynq retries pick them up, the
	// skip check keeps already-done items cheap.
	if errorCount > 0 {
		return fmt.Errorf("embedding batch: %d of %d items failed", errorCount, len(ids))
	}
	return nil
}
