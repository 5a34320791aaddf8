package chat

import (
	"context"
	"errors"
	"strings"
	"testing"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/dianabombi/student-advisor-sub002/internal/ai"
	"github.com/dianabombi/student-advisor-sub002/internal/config"
	"github.com/dianabombi/student-advisor-sub002/internal/retrieval"
	"github.com/dianabombi/student-advisor-sub002/models"
)

type stubRetriever struct {
	results []retrieval.ScoredItem
	err     error
}

func (s *stubRetriever) Search(ctx context.Context, institutionID primitive.ObjectID, query string, topK int) ([]retrieval.ScoredItem, error) {
	return s.results, s.err
}

type stubCompleter struct {
	result     *ai.CompletionResult
	err        error
	lastPrompt string
}

func (s *stubCompleter) GenerateContent(ctx context.Context, prompt string) (*ai.CompletionResult, error) {
	s.lastPrompt = prompt
	return s.result, s.err
}

func testConfig() *config.Config {
	return &config.Config{TopKDefault: 5, TopKMax: 10, PassageCharBudget: 1200}
}

func TestAnswerGrounded(t *testing.T) {
	retr := &stubRetriever{results: []retrieval.ScoredItem{
		{Item: models.ContentItem{Title: "Fees", SourceURL: "https://x.example/fees", Body: "Tuition is 500 EUR.", Language: "en"}, Score: 0.9},
	}}
	comp := &stubCompleter{result: &ai.CompletionResult{Text: "Tuition is 500 EUR per semester.", TokensUsed: 42}}
	o := NewOrchestrator(testConfig(), retr, comp, NewMetrics())

	answer, err := o.Answer(context.Background(), primitive.NewObjectID(), "How much is tuition?", nil, "en")
	if err != nil {
		t.Fatalf("Answer: %v", err)
	}
	if !answer.Success || !answer.Grounded {
		t.Errorf("expected grounded success, got %+v", answer)
	}
	if answer.TokensUsed != 42 {
		t.Errorf("tokens = %d, want 42", answer.TokensUsed)
	}
	if !strings.Contains(comp.lastPrompt, "Tuition is 500 EUR.") {
		t.Error("prompt should carry the retrieved passage")
	}

	s := o.Metrics().Snapshot()
	if s.Requests != 1 || s.Successes != 1 || s.RetrievalHits != 1 {
		t.Errorf("metrics not recorded: %+v", s)
	}
}

func TestAnswerFallbackPassagesAreUngrounded(t *testing.T) {
	retr := &stubRetriever{results: []retrieval.ScoredItem{
		{Item: models.ContentItem{Title: "Recent", Body: "Something recent."}, Fallback: true},
	}}
	comp := &stubCompleter{result: &ai.CompletionResult{Text: "ok", TokensUsed: 5}}
	o := NewOrchestrator(testConfig(), retr, comp, NewMetrics())

	answer, err := o.Answer(context.Background(), primitive.NewObjectID(), "q", nil, "en")
	if err != nil {
		t.Fatalf("Answer: %v", err)
	}
	if answer.Grounded {
		t.Error("fallback-only passages should not count as grounded")
	}

	// Retrieval still produced passages, so the turn is a hit even though
	// it is not grounded.
	s := o.Metrics().Snapshot()
	if s.RetrievalHits != 1 || s.RetrievalMisses != 0 {
		t.Errorf("fallback passages should count as a hit: %+v", s)
	}
}

func TestAnswerNoPassagesCountsAsMiss(t *testing.T) {
	retr := &stubRetriever{}
	comp := &stubCompleter{result: &ai.CompletionResult{Text: "ok", TokensUsed: 3}}
	o := NewOrchestrator(testConfig(), retr, comp, NewMetrics())

	if _, err := o.Answer(context.Background(), primitive.NewObjectID(), "q", nil, "en"); err != nil {
		t.Fatalf("Answer: %v", err)
	}

	s := o.Metrics().Snapshot()
	if s.RetrievalHits != 0 || s.RetrievalMisses != 1 {
		t.Errorf("empty retrieval should count as a miss: %+v", s)
	}
}

func TestAnswerRetrievalErrorStillAnswers(t *testing.T) {
	retr := &stubRetriever{err: errors.New("mongo down")}
	comp := &stubCompleter{result: &ai.CompletionResult{Text: "Best effort answer.", TokensUsed: 10}}
	o := NewOrchestrator(testConfig(), retr, comp, NewMetrics())

	answer, err := o.Answer(context.Background(), primitive.NewObjectID(), "q", nil, "en")
	if err != nil {
		t.Fatalf("Answer: %v", err)
	}
	if !answer.Success {
		t.Error("completion succeeded, so the turn should succeed")
	}
	if answer.Grounded {
		t.Error("no passages means ungrounded")
	}
	if !strings.Contains(comp.lastPrompt, "No website excerpts are available") {
		t.Error("prompt should state that no excerpts were found")
	}
}

func TestAnswerCompletionFailureReturnsApology(t *testing.T) {
	retr := &stubRetriever{}
	comp := &stubCompleter{err: errors.New("circuit open")}
	o := NewOrchestrator(testConfig(), retr, comp, NewMetrics())

	answer, err := o.Answer(context.Background(), primitive.NewObjectID(), "q", nil, "sk")
	if err != nil {
		t.Fatalf("provider outage must not surface as error: %v", err)
	}
	if answer.Success {
		t.Error("failed completion should not be marked success")
	}
	if answer.Text != Apology("sk") {
		t.Errorf("expected Slovak apology, got %q", answer.Text)
	}

	s := o.Metrics().Snapshot()
	if s.Failures != 1 {
		t.Errorf("failure not counted: %+v", s)
	}
}

func TestAnswerHistoryIsVerbatim(t *testing.T) {
	retr := &stubRetriever{}
	comp := &stubCompleter{result: &ai.CompletionResult{Text: "ok"}}
	o := NewOrchestrator(testConfig(), retr, comp, NewMetrics())

	history := []models.ChatTurn{
		{Role: "user", Text: "Do you offer scholarships?"},
		{Role: "assistant", Text: "Yes, merit based ones."},
	}
	if _, err := o.Answer(context.Background(), primitive.NewObjectID(), "How do I apply?", history, "en"); err != nil {
		t.Fatalf("Answer: %v", err)
	}

	for _, turn := range history {
		if !strings.Contains(comp.lastPrompt, turn.Text) {
			t.Errorf("prompt missing history turn %q", turn.Text)
		}
	}
}
