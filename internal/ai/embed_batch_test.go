package ai

import (
	"context"
	"errors"
	"sync"
	"testing"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/dianabombi/student-advisor-sub002/models"
)

type stubEmbedder struct {
	model  string
	failOn string
	mu     sync.Mutex
	embeds int
}

func (s *stubEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	s.mu.Lock()
	s.embeds++
	s.mu.Unlock()
	if s.failOn != "" && text == s.failOn {
		return nil, errors.New("provider error")
	}
	return []float32{0.1, 0.2}, nil
}

func (s *stubEmbedder) Model() string { return s.model }

type stubContent struct {
	items []models.ContentItem
}

func (s *stubContent) ByIDs(ctx context.Context, ids []primitive.ObjectID) ([]models.ContentItem, error) {
	return s.items, nil
}

type stubVectors struct {
	mu       sync.Mutex
	existing map[primitive.ObjectID]models.EmbeddingVector
	upserts  []models.EmbeddingVector
}

func (s *stubVectors) Upsert(ctx context.Context, v models.EmbeddingVector) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.upserts = append(s.upserts, v)
	return nil
}

func (s *stubVectors) ByContentItem(ctx context.Context, contentItemID primitive.ObjectID) (*models.EmbeddingVector, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if v, ok := s.existing[contentItemID]; ok {
		return &v, nil
	}
	return nil, errors.New("not found")
}

func TestEmbedBatchCounts(t *testing.T) {
	okItem := models.ContentItem{ID: primitive.NewObjectID(), Body: "fine", BodyHash: "h1"}
	badItem := models.ContentItem{ID: primitive.NewObjectID(), Body: "broken", BodyHash: "h2"}

	embedder := &stubEmbedder{model: "m1", failOn: "broken"}
	vectors := &stubVectors{}
	batch := NewBatchEmbedder(embedder, &stubContent{items: []models.ContentItem{okItem, badItem}}, vectors, 2)

	result, err := batch.EmbedBatch(context.Background(), []primitive.ObjectID{okItem.ID, badItem.ID})
	if err != nil {
		t.Fatalf("EmbedBatch: %v", err)
	}
	if result.SuccessCount != 1 || result.ErrorCount != 1 || result.SkippedCount != 0 {
		t.Fatalf("counts = %+v, want 1 success, 1 error", result)
	}
	if len(vectors.upserts) != 1 {
		t.Fatalf("got %d upserts, want 1", len(vectors.upserts))
	}
	if vectors.upserts[0].Model != "m1" || vectors.upserts[0].BodyHash != "h1" {
		t.Errorf("upserted vector carries wrong metadata: %+v", vectors.upserts[0])
	}
}

func TestEmbedBatchSkipsUnchangedItems(t *testing.T) {
	item := models.ContentItem{ID: primitive.NewObjectID(), Body: "same text", BodyHash: "h1"}

	embedder := &stubEmbedder{model: "m1"}
	vectors := &stubVectors{existing: map[primitive.ObjectID]models.EmbeddingVector{
		item.ID: {ContentItemID: item.ID, Model: "m1", BodyHash: "h1"},
	}}
	batch := NewBatchEmbedder(embedder, &stubContent{items: []models.ContentItem{item}}, vectors, 2)

	result, err := batch.EmbedBatch(context.Background(), []primitive.ObjectID{item.ID})
	if err != nil {
		t.Fatalf("EmbedBatch: %v", err)
	}
	if result.SkippedCount != 1 || result.SuccessCount != 0 {
		t.Fatalf("counts = %+v, want 1 skipped", result)
	}
	if embedder.embeds != 0 {
		t.Errorf("provider called %d times for an unchanged item", embedder.embeds)
	}
}

func TestEmbedBatchReembedsOnModelChange(t *testing.T) {
	item := models.ContentItem{ID: primitive.NewObjectID(), Body: "text", BodyHash: "h1"}

	embedder := &stubEmbedder{model: "m2"}
	vectors := &stubVectors{existing: map[primitive.ObjectID]models.EmbeddingVector{
		item.ID: {ContentItemID: item.ID, Model: "m1", BodyHash: "h1"},
	}}
	batch := NewBatchEmbedder(embedder, &stubContent{items: []models.ContentItem{item}}, vectors, 2)

	result, err := batch.EmbedBatch(context.Background(), []primitive.ObjectID{item.ID})
	if err != nil {
		t.Fatalf("EmbedBatch: %v", err)
	}
	if result.SuccessCount != 1 {
		t.Fatalf("counts = %+v, want re-embed on model change", result)
	}
}
