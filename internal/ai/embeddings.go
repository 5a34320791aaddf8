package ai

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/generative-ai-go/genai"
	"github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"
	"google.golang.org/api/option"

	"github.com/dianabombi/student-advisor-sub002/internal/config"
	"github.com/dianabombi/student-advisor-sub002/internal/logger"
)

// Embedder converts text into fixed-length vectors.
// Default provider is Google Generative AI (text-embedding-004).
type Embedder struct {
	client   *genai.Client
	model    string
	maxChars int
	limiter  *rate.Limiter
	cache    *redis.Client // optional query-embedding cache
	cacheTTL time.Duration
}

// NewEmbedder builds the embedder. rdb may be nil; the cache is then skipped.
func NewEmbedder(cfg *config.Config, rdb *redis.Client) (*Embedder, error) {
	switch cfg.EmbeddingsProvider {
	case "google", "":
	case "openai":
		return nil, fmt.Errorf("openai embeddings not implemented")
	default:
		return nil, fmt.Errorf("unknown embeddings provider: %s", cfg.EmbeddingsProvider)
	}

	if cfg.GeminiAPIKey == "" {
		return nil, fmt.Errorf("missing GEMINI_API_KEY for embeddings")
	}
	client, err := genai.NewClient(context.Background(), option.WithAPIKey(cfg.GeminiAPIKey))
	if err != nil {
		return nil, err
	}

	return &Embedder{
		client:   client,
		model:    cfg.GoogleEmbeddingsModel,
		maxChars: cfg.EmbeddingMaxChars,
		limiter:  rate.NewLimiter(rate.Limit(2), 4), // provider-side embedding QPS guard
		cache:    rdb,
		cacheTTL: cfg.EmbedCacheTTL,
	}, nil
}

// Model returns the embedding model identifier stored alongside vectors.
// A stored vector whose model differs from this value is stale.
func (e *Embedder) Model() string { return e.model }

// Embed returns the vector for one text. Oversized input is truncated to the
// configured budget before the provider call; on provider failure an error is
// returned, never a zero vector.
func (e *Embedder) Embed(ctx context.Context, text string) ([]float32, error) {
	text = TruncateText(text, e.maxChars)
	if text == "" {
		return nil, fmt.Errorf("empty text")
	}

	if err := e.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	model := e.client.EmbeddingModel(e.model)
	resp, err := model.EmbedContent(ctx, genai.Text(text))
	if err != nil {
		return nil, err
	}
	if resp.Embedding == nil || len(resp.Embedding.Values) == 0 {
		return nil, fmt.Errorf("no embedding returned")
	}

	return resp.Embedding.Values, nil
}

// EmbedQuery is Embed with a Redis cache in front, keyed by text hash.
// Repeated user questions skip the provider round trip.
func (e *Embedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	if e.cache == nil {
		return e.Embed(ctx, text)
	}

	key := "embed:" + e.model + ":" + hashText(TruncateText(text, e.maxChars))
	if raw, err := e.cache.Get(ctx, key).Bytes(); err == nil {
		var vec []float32
		if err := json.Unmarshal(raw, &vec); err == nil && len(vec) > 0 {
			return vec, nil
		}
	}

	vec, err := e.Embed(ctx, text)
	if err != nil {
		return nil, err
	}

	if raw, err := json.Marshal(vec); err == nil {
		if err := e.cache.Set(ctx, key, raw, e.cacheTTL).Err(); err != nil {
			logger.Debug("embedding cache write failed", "error", err)
		}
	}
	return vec, nil
}

// TruncateText cuts text to at most maxChars runes without splitting a rune.
func TruncateText(text string, maxChars int) string {
	if maxChars <= 0 {
		return text
	}
	runes := []rune(text)
	if len(runes) <= maxChars {
		return text
	}
	return string(runes[:maxChars])
}

func hashText(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}

func (e *Embedder) Close() error {
	if e.client != nil {
		return e.client.Close()
	}
	return nil
}
