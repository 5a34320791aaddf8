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

// InstitutionStore is the thin repository over the institutions collection.
// The core reads websites from it and writes back last_scraped_at; everything
// else about institutions is owned by the CRUD layer.
type InstitutionStore struct {
	col *mongo.Collection
}

func (s *InstitutionStore) Create(ctx context.Context, inst models.Institution) (*models.Institution, error) {
	now := time.Now()
	inst.ID = primitive.NewObjectID()
	inst.CreatedAt = now
	inst.UpdatedAt = now
	if _, err := s.col.InsertOne(ctx, inst); err != nil {
		return nil, err
	}
	return &inst, nil
}

func (s *InstitutionStore) ByID(ctx context.Context, id primitive.ObjectID) (*models.Institution, error) {
	var inst models.Institution
	err := s.col.FindOne(ctx, bson.M{"_id": id}).Decode(&inst)
	if err == mongo.ErrNoDocuments {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &inst, nil
}

func (s *InstitutionStore) List(ctx context.Context, limit int) ([]models.Institution, error) {
	cursor, err := s.col.Find(ctx, bson.M{},
		options.Find().SetSort(bson.D{{Key: "name", Value: 1}}).SetLimit(int64(limit)))
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	institutions := make([]models.Institution, 0)
	if err := cursor.All(ctx, &institutions); err != nil {
		return nil, err
	}
	return institutions, nil
}

func (s *InstitutionStore) SetLastScraped(ctx context.Context, id primitive.ObjectID, at time.Time) error {
	_, err := s.col.UpdateOne(ctx,
		bson.M{"_id": id},
		bson.M{"$set": bson.M{"last_scraped_at": at, "updated_at": time.Now()}},
	)
	return err
}

// DueForRefresh lists institutions with a website whose content is older than
// the TTL (or never scraped), candidates for the periodic re-scrape sweep.
func (s *InstitutionStore) DueForRefresh(ctx context.Context, ttl time.Duration, limit int) ([]models.Institution, error) {
	cutoff := time.Now().Add(-ttl)
	cursor, err := s.col.Find(ctx,
		bson.M{
			"website": bson.M{"$ne": ""},
			"$or": []bson.M{
				{"last_scraped_at": bson.M{"$lt": cutoff}},
				{"last_scraped_at": bson.M{"$exists": false}},
				{"last_scraped_at": nil},
			},
		},
		options.Find().SetLimit(int64(limit)),
	)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	institutions := make([]models.Institution, 0)
	if err := cursor.All(ctx, &institutions); err != nil {
		return nil, err
	}
	return institutions, nil
}
