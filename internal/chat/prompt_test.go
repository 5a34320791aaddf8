package chat

import (
	"strings"
	"testing"

	"github.com/dianabombi/student-advisor-sub002/internal/retrieval"
	"github.com/dianabombi/student-advisor-sub002/models"
)

func TestApology(t *testing.T) {
	if got := Apology("de"); !strings.Contains(got, "leid") {
		t.Errorf("German apology looks wrong: %q", got)
	}
	if Apology("xx") != Apology("en") {
		t.Error("unknown language should fall back to English")
	}
	if Apology("") != Apology("en") {
		t.Error("empty language should fall back to English")
	}
	if Apology("de-AT") != Apology("de") {
		t.Error("regional tag should resolve to its base language")
	}
}

func TestLanguageName(t *testing.T) {
	if got := LanguageName("fr"); got != "French" {
		t.Errorf("LanguageName(fr) = %q", got)
	}
	if got := LanguageName("klingon"); got != "English" {
		t.Errorf("unknown language should map to English, got %q", got)
	}
	if got := LanguageName("UK"); got != "Ukrainian" {
		t.Errorf("LanguageName should be case insensitive, got %q", got)
	}
}

func TestBuildPromptIncludesPassagesAndHistory(t *testing.T) {
	passages := []retrieval.ScoredItem{
		{Item: models.ContentItem{
			Title:     "Admissions",
			SourceURL: "https://uni.example/admissions",
			Body:      "Applications open in May.",
			Language:  "en",
		}},
		{Item: models.ContentItem{
			Title:     "Studiengebühren",
			SourceURL: "https://uni.example/gebuehren",
			Body:      "Die Studiengebühren betragen 500 Euro pro Semester.",
			Language:  "de",
		}},
	}
	history := []models.ChatTurn{
		{Role: "user", Text: "Hello"},
		{Role: "assistant", Text: "Hi, how can I help?"},
	}

	prompt := BuildPrompt("When do applications open?", passages, history, "en", 1200)

	for _, want := range []string{
		"Answer in English only",
		"Applications open in May.",
		"https://uni.example/admissions",
		"(de, https://uni.example/gebuehren)",
		"user: Hello",
		"assistant: Hi, how can I help?",
		"user: When do applications open?",
	} {
		if !strings.Contains(prompt, want) {
			t.Errorf("prompt missing %q", want)
		}
	}
}

func TestBuildPromptTruncatesPassages(t *testing.T) {
	long := strings.Repeat("word ", 500)
	passages := []retrieval.ScoredItem{
		{Item: models.ContentItem{Title: "Long", SourceURL: "https://x.example/", Body: long, Language: "en"}},
	}

	prompt := BuildPrompt("q", passages, nil, "en", 100)

	if strings.Contains(prompt, long) {
		t.Error("passage body should be truncated to the budget")
	}
}

func TestBuildPromptWithoutPassages(t *testing.T) {
	prompt := BuildPrompt("Any deadlines?", nil, nil, "de", 1200)

	if !strings.Contains(prompt, "No website excerpts are available") {
		t.Error("empty retrieval should be stated in the prompt")
	}
	if !strings.Contains(prompt, "Answer in German only") {
		t.Error("output language directive missing")
	}
}
