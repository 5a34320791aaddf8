package store

import (
	"context"
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/dianabombi/student-advisor-sub002/models"
	"github.com/dianabombi/student-advisor-sub002/utils"
)

func TestContentUpsertReportsChange(t *testing.T) {
	st := testStore(t)
	ctx := context.Background()
	instID := primitive.NewObjectID()

	item := models.ContentItem{
		InstitutionID: instID,
		SourceURL:     "https://example.com/fees",
		Title:         "Fees",
		Body:          "Tuition is 500 EUR.",
		BodyHash:      utils.HashBody("Tuition is 500 EUR."),
		ScrapedAt:     time.Now(),
	}

	id1, changed, err := st.Content.Upsert(ctx, item)
	if err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	if !changed {
		t.Error("first write should report changed")
	}

	// Same body again: same row, no change.
	id2, changed, err := st.Content.Upsert(ctx, item)
	if err != nil {
		t.Fatalf("re-Upsert: %v", err)
	}
	if changed {
		t.Error("identical body should not report changed")
	}
	if id2 != id1 {
		t.Errorf("upsert created a second row: %s vs %s", id2.Hex(), id1.Hex())
	}

	// New body: same row, change reported.
	item.Body = "Tuition is 600 EUR."
	item.BodyHash = utils.HashBody(item.Body)
	id3, changed, err := st.Content.Upsert(ctx, item)
	if err != nil {
		t.Fatalf("update Upsert: %v", err)
	}
	if !changed || id3 != id1 {
		t.Errorf("body change should update in place and report changed (changed=%v)", changed)
	}
}

func TestDeactivateMissing(t *testing.T) {
	st := testStore(t)
	ctx := context.Background()
	instID := primitive.NewObjectID()

	for _, url := range []string{"https://example.com/a", "https://example.com/b"} {
		_, _, err := st.Content.Upsert(ctx, models.ContentItem{
			InstitutionID: instID,
			SourceURL:     url,
			Body:          "text for " + url,
			BodyHash:      utils.HashBody("text for " + url),
			ScrapedAt:     time.Now(),
		})
		if err != nil {
			t.Fatalf("Upsert: %v", err)
		}
	}

	// Only /a survived the latest crawl.
	n, err := st.Content.DeactivateMissing(ctx, instID, []string{"https://example.com/a"})
	if err != nil {
		t.Fatalf("DeactivateMissing: %v", err)
	}
	if n != 1 {
		t.Errorf("deactivated %d items, want 1", n)
	}

	active, err := st.Content.RecentActive(ctx, instID, 10)
	if err != nil {
		t.Fatalf("RecentActive: %v", err)
	}
	if len(active) != 1 || active[0].SourceURL != "https://example.com/a" {
		t.Errorf("active items = %+v, want only /a", active)
	}
}
