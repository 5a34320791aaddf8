package ai

import (
	"context"
	"sync"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/dianabombi/student-advisor-sub002/internal/logger"
	"github.com/dianabombi/student-advisor-sub002/models"
)

// TextEmbedder is what the batch runner needs from an embedding client.
type TextEmbedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	Model() string
}

// ContentSource supplies the items to embed.
type ContentSource interface {
	ByIDs(ctx context.Context, ids []primitive.ObjectID) ([]models.ContentItem, error)
}

// VectorSink receives the finished vectors. Upserts are keyed by content
// item id, so re-running a batch is idempotent.
type VectorSink interface {
	Upsert(ctx context.Context, v models.EmbeddingVector) error
	ByContentItem(ctx context.Context, contentItemID primitive.ObjectID) (*models.EmbeddingVector, error)
}

// BatchResult reports per-batch outcome counts for observability.
type BatchResult struct {
	SuccessCount int `json:"success_count"`
	ErrorCount   int `json:"error_count"`
	SkippedCount int `json:"skipped_count"`
}

// BatchEmbedder embeds content items in bulk. Items are independent: one
// failure never aborts the batch, the failed item simply stays un-embedded
// until the next pass.
type BatchEmbedder struct {
	embedder    TextEmbedder
	content     ContentSource
	vectors     VectorSink
	concurrency int
}

func NewBatchEmbedder(embedder TextEmbedder, content ContentSource, vectors VectorSink, concurrency int) *BatchEmbedder {
	if concurrency <= 0 {
		concurrency = 4
	}
	return &BatchEmbedder{
		embedder:    embedder,
		content:     content,
		vectors:     vectors,
		concurrency: concurrency,
	}
}

// EmbedBatch embeds every given content item with bounded parallelism.
// Items whose stored vector already matches the current model and body hash
// are skipped.
func (b *BatchEmbedder) EmbedBatch(ctx context.Context, ids []primitive.ObjectID) (BatchResult, error) {
	items, err := b.content.ByIDs(ctx, ids)
	if err != nil {
		return BatchResult{}, err
	}

	var (
		mu     sync.Mutex
		wg     sync.WaitGroup
		result BatchResult
	)
	sem := make(chan struct{}, b.concurrency)

	for _, item := range items {
		if ctx.Err() != nil {
			break
		}
		wg.Add(1)
		sem <- struct{}{}
		go func(item models.ContentItem) {
			defer wg.Done()
			defer func() { <-sem }()

			outcome := b.embedOne(ctx, item)
			mu.Lock()
			switch outcome {
			case embedOK:
				result.SuccessCount++
			case embedSkipped:
				result.SkippedCount++
			default:
				result.ErrorCount++
			}
			mu.Unlock()
		}(item)
	}
	wg.Wait()

	if result.ErrorCount > 0 {
		logger.Warn("embedding batch finished with errors",
			"success", result.SuccessCount, "errors", result.ErrorCount, "skipped", result.SkippedCount)
	}
	return result, nil
}

type embedOutcome int

const (
	embedOK embedOutcome = iota
	embedSkipped
	embedFailed
)

func (b *BatchEmbedder) embedOne(ctx context.Context, item models.ContentItem) embedOutcome {
	if existing, err := b.vectors.ByContentItem(ctx, item.ID); err == nil {
		if existing.Model == b.embedder.Model() && existing.BodyHash != "" && existing.BodyHash == item.BodyHash {
			return embedSkipped
		}
	}

	vec, err := b.embedder.Embed(ctx, item.Body)
	if err != nil {
		logger.Warn("embedding failed", "content_item", item.ID.Hex(), "error", err)
		return embedFailed
	}

	err = b.vectors.Upsert(ctx, models.EmbeddingVector{
		ContentItemID: item.ID,
		InstitutionID: item.InstitutionID,
		Vector:        vec,
		Model:         b.embedder.Model(),
		BodyHash:      item.BodyHash,
	})
	if err != nil {
		logger.Error("embedding upsert failed", "content_item", item.ID.Hex(), "error", err)
		return embedFailed
	}
	return embedOK
}
