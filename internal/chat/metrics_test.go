package chat

import "testing"

func TestMetricsSnapshot(t *testing.T) {
	m := NewMetrics()
	m.record(true, true, 100, 250)
	m.record(true, false, 50, 150)
	m.record(false, true, 0, 400)

	s := m.Snapshot()
	if s.Requests != 3 || s.Successes != 2 || s.Failures != 1 {
		t.Fatalf("counts wrong: %+v", s)
	}
	if s.RetrievalHits != 2 || s.RetrievalMisses != 1 {
		t.Errorf("hit counts wrong: %+v", s)
	}
	if s.TokensUsed != 150 {
		t.Errorf("tokens = %d, want 150", s.TokensUsed)
	}
	if s.EstimatedCostUSD <= 0 {
		t.Errorf("cost should be positive, got %v", s.EstimatedCostUSD)
	}
	if s.AvgLatencyMs < 266 || s.AvgLatencyMs > 267 {
		t.Errorf("avg latency = %v, want about 266.7", s.AvgLatencyMs)
	}
}

func TestMetricsCostAccruesOnShortTurns(t *testing.T) {
	m := NewMetrics()
	for i := 0; i < 100; i++ {
		m.record(true, true, 1, 10)
	}

	// 100 tokens at 0.2 micro USD each.
	want := 100 * costMicrosPerToken / 1e6
	got := m.Snapshot().EstimatedCostUSD
	if got < want*0.999 || got > want*1.001 {
		t.Errorf("cost = %v, want about %v", got, want)
	}
}

func TestMetricsHealthDegrades(t *testing.T) {
	m := NewMetrics()
	if got := m.Snapshot().Health; got != "ok" {
		t.Errorf("empty metrics health = %q, want ok", got)
	}

	for i := 0; i < 90; i++ {
		m.record(true, true, 10, 100)
	}
	for i := 0; i < 10; i++ {
		m.record(false, false, 0, 100)
	}

	s := m.Snapshot()
	if s.Health != "degraded" {
		t.Errorf("health = %q at %.0f%% success, want degraded", s.Health, s.SuccessRate*100)
	}
}

func TestMetricsReset(t *testing.T) {
	m := NewMetrics()
	m.record(true, true, 100, 250)
	m.Reset()

	s := m.Snapshot()
	if s.Requests != 0 || s.TokensUsed != 0 || s.EstimatedCostUSD != 0 {
		t.Errorf("reset left counters: %+v", s)
	}
	if s.Health != "ok" {
		t.Errorf("health after reset = %q, want ok", s.Health)
	}
}
