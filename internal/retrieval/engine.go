package retrieval

import (
	"context"
	"math"
	"sort"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/dianabombi/student-advisor-sub002/internal/logger"
	"github.com/dianabombi/student-advisor-sub002/models"
)

// QueryEmbedder turns a user query into a vector.
type QueryEmbedder interface {
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
	Model() string
}

// VectorSource lists the stored vectors of one institution.
type VectorSource interface {
	ByInstitution(ctx context.Context, institutionID primitive.ObjectID) ([]models.EmbeddingVector, error)
}

// ContentSource resolves vector hits to content items and supplies the
// cold-start fallback.
type ContentSource interface {
	ByIDs(ctx context.Context, ids []primitive.ObjectID) ([]models.ContentItem, error)
	RecentActive(ctx context.Context, institutionID primitive.ObjectID, limit int) ([]models.ContentItem, error)
}

// ScoredItem is one ranked passage with its similarity score.
// Fallback results carry Score 0.
type ScoredItem struct {
	Item     models.ContentItem
	Score    float64
	Fallback bool
}

// Engine ranks an institution's content against a query by vector
// similarity, brute-force in process. Institutions hold at most a few
// hundred passages, so a scan beats an index round trip here.
type Engine struct {
	embedder QueryEmbedder
	vectors  VectorSource
	content  ContentSource

	topKDefault int
	topKMax     int
}

func NewEngine(embedder QueryEmbedder, vectors VectorSource, content ContentSource, topKDefault, topKMax int) *Engine {
	if topKDefault <= 0 {
		topKDefault = 5
	}
	if topKMax <= 0 {
		topKMax = 10
	}
	return &Engine{
		embedder:    embedder,
		vectors:     vectors,
		content:     content,
		topKDefault: topKDefault,
		topKMax:     topKMax,
	}
}

// Search returns the institution's topK most relevant passages for the
// query. Scoping is strict: only vectors and items of this institution are
// ever considered. With no usable vectors it falls back to the most recent
// active items, so callers always get some grounding when content exists.
func (e *Engine) Search(ctx context.Context, institutionID primitive.ObjectID, query string, topK int) ([]ScoredItem, error) {
	topK = e.clampTopK(topK)

	vectors, err := e.vectors.ByInstitution(ctx, institutionID)
	if err != nil {
		return nil, err
	}

	// Vectors from an older embedding model are stale and never surfaced.
	usable := vectors[:0:0]
	for _, v := range vectors {
		if v.Model == e.embedder.Model() && len(v.Vector) > 0 {
			usable = append(usable, v)
		}
	}

	if len(usable) == 0 {
		return e.fallback(ctx, institutionID, topK)
	}

	queryVec, err := e.embedder.EmbedQuery(ctx, query)
	if err != nil {
		// Query not embeddable right now means "not yet indexed", not
		// zero similarity; recency fallback keeps the answer grounded.
		logger.Warn("query embedding failed, using recency fallback", "error", err)
		return e.fallback(ctx, institutionID, topK)
	}

	type candidate struct {
		id    primitive.ObjectID
		score float64
	}
	candidates := make([]candidate, 0, len(usable))
	for _, v := range usable {
		candidates = append(candidates, candidate{
			id:    v.ContentItemID,
			score: CosineSimilarity(queryVec, v.Vector),
		})
	}
	sort.Slice(candidates, func(i, j int) bool { return candidates[i].score > candidates[j].score })

	// Over-fetch to survive inactive items and to have scrape times for
	// the tie break.
	fetch := topK * 2
	if fetch > len(candidates) {
		fetch = len(candidates)
	}
	ids := make([]primitive.ObjectID, fetch)
	scoreByID := make(map[primitive.ObjectID]float64, fetch)
	for i := 0; i < fetch; i++ {
		ids[i] = candidates[i].id
		scoreByID[candidates[i].id] = candidates[i].score
	}

	items, err := e.content.ByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}

	results := make([]ScoredItem, 0, len(items))
	for _, item := range items {
		results = append(results, ScoredItem{Item: item, Score: scoreByID[item.ID]})
	}
	sort.Slice(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		// Ties go to the most recently scraped item.
		return results[i].Item.ScrapedAt.After(results[j].Item.ScrapedAt)
	})

	if len(results) > topK {
		results = results[:topK]
	}
	return results, nil
}

func (e *Engine) clampTopK(topK int) int {
	if topK <= 0 {
		return e.topKDefault
	}
	if topK > e.topKMax {
		return e.topKMax
	}
	return topK
}

func (e *Engine) fallback(ctx context.Context, institutionID primitive.ObjectID, topK int) ([]ScoredItem, error) {
	items, err := e.content.RecentActive(ctx, institutionID, topK)
	if err != nil {
		return nil, err
	}
	results := make([]ScoredItem, 0, len(items))
	for _, item := range items {
		results = append(results, ScoredItem{Item: item, Fallback: true})
	}
	return results, nil
}

// CosineSimilarity computes the cosine of the angle between two vectors.
// Mismatched lengths score over the shared prefix; zero vectors score 0.
func CosineSimilarity(a, b []float32) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var dot, normA, normB float64
	for i := 0; i < n; i++ {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
