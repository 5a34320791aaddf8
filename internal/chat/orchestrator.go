package chat

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/dianabombi/student-advisor-sub002/internal/ai"
	"github.com/dianabombi/student-advisor-sub002/internal/config"
	"github.com/dianabombi/student-advisor-sub002/internal/logger"
	"github.com/dianabombi/student-advisor-sub002/internal/retrieval"
	"github.com/dianabombi/student-advisor-sub002/models"
)

// Retriever finds the content passages most relevant to a query.
type Retriever interface {
	Search(ctx context.Context, institutionID primitive.ObjectID, query string, topK int) ([]retrieval.ScoredItem, error)
}

// Completer produces a completion for an assembled prompt.
type Completer interface {
	GenerateContent(ctx context.Context, prompt string) (*ai.CompletionResult, error)
}

// Answer is the outcome of one chat turn.
type Answer struct {
	Text       string
	Grounded   bool
	Success    bool
	TokensUsed int
	CostUSD    float64
	Latency    time.Duration
}

// Orchestrator runs the retrieval-then-completion pipeline for chat turns.
type Orchestrator struct {
	retriever     Retriever
	completer     Completer
	metrics       *Metrics
	topK          int
	passageBudget int
}

func NewOrchestrator(cfg *config.Config, retriever Retriever, completer Completer, metrics *Metrics) *Orchestrator {
	return &Orchestrator{
		retriever:     retriever,
		completer:     completer,
		metrics:       metrics,
		topK:          cfg.TopKDefault,
		passageBudget: cfg.PassageCharBudget,
	}
}

// Answer handles one user turn. Retrieval failure degrades to an ungrounded
// prompt; completion failure degrades to a canned apology in the requested
// language. The returned error is reserved for caller bugs, not provider
// outages.
func (o *Orchestrator) Answer(ctx context.Context, institutionID primitive.ObjectID, query string, history []models.ChatTurn, outputLanguage string) (*Answer, error) {
	tracer := otel.Tracer("chat-orchestrator")
	ctx, span := tracer.Start(ctx, "chat.answer", trace.WithAttributes(
		attribute.String("institution.id", institutionID.Hex()),
		attribute.String("chat.language", outputLanguage),
	))
	defer span.End()

	start := time.Now()

	passages, err := o.retriever.Search(ctx, institutionID, query, o.topK)
	if err != nil {
		logger.Warn("retrieval failed, answering ungrounded", "institution_id", institutionID.Hex(), "error", err)
		passages = nil
	}
	// A hit means retrieval produced passages at all, fallback ones included.
	// Grounded is stricter: at least one passage came from similarity search.
	hit := len(passages) > 0
	grounded := false
	for _, p := range passages {
		if !p.Fallback {
			grounded = true
			break
		}
	}
	span.SetAttributes(
		attribute.Int("retrieval.passages", len(passages)),
		attribute.Bool("retrieval.hit", hit),
		attribute.Bool("retrieval.grounded", grounded),
	)

	prompt := BuildPrompt(query, passages, history, outputLanguage, o.passageBudget)

	result, err := o.completer.GenerateContent(ctx, prompt)
	latency := time.Since(start)
	if err != nil {
		logger.Error("completion failed", "institution_id", institutionID.Hex(), "error", err)
		o.metrics.record(false, hit, 0, latency.Milliseconds())
		return &Answer{
			Text:     Apology(outputLanguage),
			Grounded: grounded,
			Success:  false,
			Latency:  latency,
		}, nil
	}

	o.metrics.record(true, hit, result.TokensUsed, latency.Milliseconds())
	span.SetAttributes(attribute.Int("chat.tokens_used", result.TokensUsed))

	return &Answer{
		Text:       result.Text,
		Grounded:   grounded,
		Success:    true,
		TokensUsed: result.TokensUsed,
		CostUSD:    float64(result.TokensUsed) * costMicrosPerToken / 1e6,
		Latency:    latency,
	}, nil
}

// Metrics exposes the orchestrator's counters for the metrics endpoint.
func (o *Orchestrator) Metrics() *Metrics {
	return o.metrics
}
