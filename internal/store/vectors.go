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

// VectorStore persists embedding vectors, one per active content item.
// The unique index on content_item_id makes the upsert idempotent.
type VectorStore struct {
	col *mongo.Collection
}

func (s *VectorStore) Upsert(ctx context.Context, v models.EmbeddingVector) error {
	_, err := s.col.UpdateOne(ctx,
		bson.M{"content_item_id": v.ContentItemID},
		bson.M{"$set": bson.M{
			"content_item_id": v.ContentItemID,
			"institution_id":  v.InstitutionID,
			"vector":          v.Vector,
			"model":           v.Model,
			"body_hash":       v.BodyHash,
			"updated_at":      time.Now(),
		}},
		options.Update().SetUpsert(true),
	)
	return err
}

// ByContentItem returns the current vector for an item, or ErrNotFound.
func (s *VectorStore) ByContentItem(ctx context.Context, contentItemID primitive.ObjectID) (*models.EmbeddingVector, error) {
	var v models.EmbeddingVector
	err := s.col.FindOne(ctx, bson.M{"content_item_id": contentItemID}).Decode(&v)
	if err == mongo.ErrNoDocuments {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &v, nil
}

// ByInstitution returns all vectors stored for one institution. Retrieval is
// strictly scoped by this filter; there is no cross-institution path.
func (s *VectorStore) ByInstitution(ctx context.Context, institutionID primitive.ObjectID) ([]models.EmbeddingVector, error) {
	cursor, err := s.col.Find(ctx, bson.M{"institution_id": institutionID})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	vectors := make([]models.EmbeddingVector, 0)
	if err := cursor.All(ctx, &vectors); err != nil {
		return nil, err
	}
	return vectors, nil
}
