package chat

import "sync/atomic"

// Cost estimate per generated token, in micro USD. Blended input/output rate
// for the flash tier.
const costMicrosPerToken = 0.2

// Metrics counts chat pipeline outcomes. All fields are updated atomically
// so handlers can snapshot without locking the orchestrator.
type Metrics struct {
	requests       atomic.Int64
	successes      atomic.Int64
	failures       atomic.Int64
	retrievalHits  atomic.Int64
	retrievalMiss  atomic.Int64
	tokensUsed     atomic.Int64
	costNanosUSD   atomic.Int64
	latencyMsTotal atomic.Int64
}

// MetricsSnapshot is a point-in-time copy with derived rates.
type MetricsSnapshot struct {
	Requests         int64   `json:"requests"`
	Successes        int64   `json:"successes"`
	Failures         int64   `json:"failures"`
	RetrievalHits    int64   `json:"retrieval_hits"`
	RetrievalMisses  int64   `json:"retrieval_misses"`
	TokensUsed       int64   `json:"tokens_used"`
	EstimatedCostUSD float64 `json:"estimated_cost_usd"`
	SuccessRate      float64 `json:"success_rate"`
	HitRate          float64 `json:"hit_rate"`
	AvgLatencyMs     float64 `json:"avg_latency_ms"`
	Health           string  `json:"health"`
}

func NewMetrics() *Metrics {
	return &Metrics{}
}

func (m *Metrics) record(success, hit bool, tokens int, latencyMs int64) {
	m.requests.Add(1)
	if success {
		m.successes.Add(1)
	} else {
		m.failures.Add(1)
	}
	if hit {
		m.retrievalHits.Add(1)
	} else {
		m.retrievalMiss.Add(1)
	}
	m.tokensUsed.Add(int64(tokens))
	// Nano-USD granularity so short turns still accrue cost instead of
	// truncating to zero.
	m.costNanosUSD.Add(int64(float64(tokens) * costMicrosPerToken * 1000))
	m.latencyMsTotal.Add(latencyMs)
}

// Snapshot returns current counters with derived rates. Health is "degraded"
// once the success rate drops below 95 percent.
func (m *Metrics) Snapshot() MetricsSnapshot {
	s := MetricsSnapshot{
		Requests:        m.requests.Load(),
		Successes:       m.successes.Load(),
		Failures:        m.failures.Load(),
		RetrievalHits:   m.retrievalHits.Load(),
		RetrievalMisses: m.retrievalMiss.Load(),
		TokensUsed:      m.tokensUsed.Load(),
	}
	s.EstimatedCostUSD = float64(m.costNanosUSD.Load()) / 1e9
	s.Health = "ok"
	if s.Requests > 0 {
		s.SuccessRate = float64(s.Successes) / float64(s.Requests)
		s.HitRate = float64(s.RetrievalHits) / float64(s.Requests)
		s.AvgLatencyMs = float64(m.latencyMsTotal.Load()) / float64(s.Requests)
		if s.SuccessRate < 0.95 {
			s.Health = "degraded"
		}
	}
	return s
}

// Reset zeroes all counters. Used by operators after an incident window.
func (m *Metrics) Reset() {
	m.requests.Store(0)
	m.successes.Store(0)
	m.failures.Store(0)
	m.retrievalHits.Store(0)
	m.retrievalMiss.Store(0)
	m.tokensUsed.Store(0)
	m.costNanosUSD.Store(0)
	m.latencyMsTotal.Store(0)
}
