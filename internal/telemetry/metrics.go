package telemetry

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metrics holds all application metrics
type Metrics struct {
	RequestCounter      metric.Int64Counter
	RequestDuration     metric.Float64Histogram
	TokensUsed          metric.Int64Counter
	ChatTurns           metric.Int64Counter
	ScrapeJobs          metric.Int64Counter
	ScrapeDuration      metric.Float64Histogram
	EmbeddingsGenerated metric.Int64Counter
	CircuitBreakerState metric.Int64Counter
}

// InitMetrics initializes all application metrics
func InitMetrics() (*Metrics, error) {
	meter := otel.Meter("student-advisor")

	requestCounter, err := meter.Int64Counter(
		"http.requests.total",
		metric.WithDescription("Total HTTP requests"),
	)
	if err != nil {
		return nil, err
	}

	requestDuration, err := meter.Float64Histogram(
		"http.request.duration",
		metric.WithDescription("HTTP request duration in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	tokensUsed, err := meter.Int64Counter(
		"gemini.tokens.used",
		metric.WithDescription("Total Gemini tokens used"),
	)
	if err != nil {
		return nil, err
	}

	chatTurns, err := meter.Int64Counter(
		"chat.turns.total",
		metric.WithDescription("Total chat turns answered"),
	)
	if err != nil {
		return nil, err
	}

	scrapeJobs, err := meter.Int64Counter(
		"scrape.jobs.total",
		metric.WithDescription("Total scrape jobs by outcome"),
	)
	if err != nil {
		return nil, err
	}

	scrapeDuration, err := meter.Float64Histogram(
		"scrape.job.duration",
		metric.WithDescription("Scrape job duration in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	embeddingsGenerated, err := meter.Int64Counter(
		"embeddings.generated.total",
		metric.WithDescription("Total embedding vectors generated"),
	)
	if err != nil {
		return nil, err
	}

	circuitBreakerState, err := meter.Int64Counter(
		"circuit_breaker.state_changes",
		metric.WithDescription("Circuit breaker state changes"),
	)
	if err != nil {
		return nil, err
	}

	return &Metrics{
		RequestCounter:      requestCounter,
		RequestDuration:     requestDuration,
		TokensUsed:          tokensUsed,
		ChatTurns:           chatTurns,
		ScrapeJobs:          scrapeJobs,
		ScrapeDuration:      scrapeDuration,
		EmbeddingsGenerated: embeddingsGenerated,
		CircuitBreakerState: circuitBreakerState,
	}, nil
}

// RecordRequest records HTTP request metrics
func (m *Metrics) RecordRequest(method, path, status string, duration float64) {
	attrs := []attribute.KeyValue{
		attribute.String("http.method", method),
		attribute.String("http.path", path),
		attribute.String("http.status", status),
	}

	m.RequestCounter.Add(context.Background(), 1, metric.WithAttributes(attrs...))
	m.RequestDuration.Record(context.Background(), duration, metric.WithAttributes(attrs...))
}

// RecordTokensUsed records Gemini token usage
func (m *Metrics) RecordTokensUsed(tokens int64, model string) {
	attrs := []attribute.KeyValue{
		attribute.String("gemini.model", model),
		attribute.String("service", "gemini"),
	}

	m.TokensUsed.Add(context.Background(), tokens, metric.WithAttributes(attrs...))
}

// RecordChatTurn records one answered chat turn
func (m *Metrics) RecordChatTurn(institutionID string, success, grounded bool) {
	attrs := []attribute.KeyValue{
		attribute.String("institution.id", institutionID),
		attribute.Bool("chat.success", success),
		attribute.Bool("chat.grounded", grounded),
	}

	m.ChatTurns.Add(context.Background(), 1, metric.WithAttributes(attrs...))
}

// RecordScrapeJob records a finished scrape job
func (m *Metrics) RecordScrapeJob(institutionID, outcome string, duration float64) {
	attrs := []attribute.KeyValue{
		attribute.String("institution.id", institutionID),
		attribute.String("scrape.outcome", outcome),
	}

	m.ScrapeJobs.Add(context.Background(), 1, metric.WithAttributes(attrs...))
	m.ScrapeDuration.Record(context.Background(), duration, metric.WithAttributes(attrs...))
}

// RecordEmbeddings records generated embedding vectors
func (m *Metrics) RecordEmbeddings(count int64, model string) {
	attrs := []attribute.KeyValue{
		attribute.String("embeddings.model", model),
	}

	m.EmbeddingsGenerated.Add(context.Background(), count, metric.WithAttributes(attrs...))
}

// RecordCircuitBreakerState records circuit breaker state changes
func (m *Metrics) RecordCircuitBreakerState(service, state string) {
	attrs := []attribute.KeyValue{
		attribute.String("service", service),
		attribute.String("state", state),
	}

	m.CircuitBreakerState.Add(context.Background(), 1, metric.WithAttributes(attrs...))
}
