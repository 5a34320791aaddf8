package store

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/dianabombi/student-advisor-sub002/models"
)

// ContentStore persists scraped passages. Writes are idempotent upserts keyed
// by (institution_id, source_url) so retried or duplicate scrape runs never
// produce duplicate rows.
type ContentStore struct {
	col *mongo.Collection
}

// Upsert writes one scraped page. The returned flag reports whether the body
// actually changed (new item or new hash), which callers use to decide
// whether re-embedding is needed.
func (s *ContentStore) Upsert(ctx context.Context, item models.ContentItem) (primitive.ObjectID, bool, error) {
	now := time.Now()
	filter := bson.M{
		"institution_id": item.InstitutionID,
		"source_url":     item.SourceURL,
	}
	update := bson.M{
		"$set": bson.M{
			"title":        item.Title,
			"body":         item.Body,
			"content_type": item.ContentType,
			"language":     item.Language,
			"body_hash":    item.BodyHash,
			"scraped_at":   item.ScrapedAt,
			"updated_at":   now,
			"is_active":    true,
		},
		"$setOnInsert": bson.M{
			"institution_id": item.InstitutionID,
			"source_url":     item.SourceURL,
		},
	}

	var before models.ContentItem
	err := s.col.FindOneAndUpdate(ctx, filter, update,
		options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.Before),
	).Decode(&before)
	if err == mongo.ErrNoDocuments {
		// Inserted fresh; look the id up by the natural key.
		var inserted models.ContentItem
		if err := s.col.FindOne(ctx, filter).Decode(&inserted); err != nil {
			return primitive.NilObjectID, false, err
		}
		return inserted.ID, true, nil
	}
	if err != nil {
		return primitive.NilObjectID, false, err
	}
	changed := before.BodyHash != item.BodyHash
	return before.ID, changed, nil
}

// DeactivateMissing retires items of an institution whose source URL was not
// seen in the latest scrape. Logical delete only; rows stay for history.
func (s *ContentStore) DeactivateMissing(ctx context.Context, institutionID primitive.ObjectID, seenURLs []string) (int64, error) {
	res, err := s.col.UpdateMany(ctx,
		bson.M{
			"institution_id": institutionID,
			"is_active":      true,
			"source_url":     bson.M{"$nin": seenURLs},
		},
		bson.M{"$set": bson.M{"is_active": false, "updated_at": time.Now()}},
	)
	if err != nil {
		return 0, err
	}
	return res.ModifiedCount, nil
}

// RecentActive returns the institution's newest active items, used as the
// cold-start retrieval fallback.
func (s *ContentStore) RecentActive(ctx context.Context, institutionID primitive.ObjectID, limit int) ([]models.ContentItem, error) {
	cursor, err := s.col.Find(ctx,
		bson.M{"institution_id": institutionID, "is_active": true},
		options.Find().
			SetSort(bson.D{{Key: "scraped_at", Value: -1}}).
			SetLimit(int64(limit)),
	)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	items := make([]models.ContentItem, 0, limit)
	if err := cursor.All(ctx, &items); err != nil {
		return nil, err
	}
	return items, nil
}

// ByIDs returns active items for the given ids, in no particular order.
func (s *ContentStore) ByIDs(ctx context.Context, ids []primitive.ObjectID) ([]models.ContentItem, error) {
	cursor, err := s.col.Find(ctx, bson.M{
		"_id":       bson.M{"$in": ids},
		"is_active": true,
	})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	items := make([]models.ContentItem, 0, len(ids))
	if err := cursor.All(ctx, &items); err != nil {
		return nil, err
	}
	return items, nil
}

// ByID returns one item whether or not it is still active.
func (s *ContentStore) ByID(ctx context.Context, id primitive.ObjectID) (*models.ContentItem, error) {
	var item models.ContentItem
	err := s.col.FindOne(ctx, bson.M{"_id": id}).Decode(&item)
	if err == mongo.ErrNoDocuments {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}
