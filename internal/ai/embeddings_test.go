package ai

import (
	"context"
	"os"
	"testing"

	"github.com/dianabombi/student-advisor-sub002/internal/config"
)

func TestTruncateText(t *testing.T) {
	if got := TruncateText("hello", 10); got != "hello" {
		t.Errorf("short text should pass through, got %q", got)
	}
	if got := TruncateText("hello world", 5); got != "hello" {
		t.Errorf("TruncateText = %q, want hello", got)
	}
	// Rune safe: never splits a multibyte character.
	if got := TruncateText("héllo wörld", 6); got != "héllo " {
		t.Errorf("TruncateText = %q, want %q", got, "héllo ")
	}
	if got := TruncateText("abc", 0); got != "abc" {
		t.Errorf("non-positive budget disables truncation, got %q", got)
	}
}

func TestEmbedLive(t *testing.T) {
	if os.Getenv("GEMINI_API_KEY") == "" {
		t.Skip("GEMINI_API_KEY not set")
	}
	cfg, err := config.LoadConfig()
	if err != nil {
		t.Skipf("config load failed: %v", err)
	}
	embedder, err := NewEmbedder(cfg, nil)
	if err != nil {
		t.Fatalf("NewEmbedder: %v", err)
	}
	defer embedder.Close()

	vec, err := embedder.Embed(context.Background(), "hello world")
	if err != nil {
		t.Fatalf("embedding error: %v", err)
	}
	if len(vec) == 0 {
		t.Fatal("empty embedding")
	}
}
