package config

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func ConnectMongoDB(cfg *Config) (*mongo.Client, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.MongoURI))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %v", err)
	}

	err = client.Ping(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to ping MongoDB: %v", err)
	}

	err = EnsureIndexes(client.Database(cfg.DBName))
	if err != nil {
		return nil, fmt.Errorf("failed to create indexes: %v", err)
	}

	return client, nil
}

// EnsureIndexes creates the collection indexes the stores rely on. Safe to
// call repeatedly; Mongo treats an existing identical index as a no-op.
func EnsureIndexes(db *mongo.Database) error {

	institutionsCollection := db.Collection("institutions")
	institutionIndexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "name", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys: bson.D{{Key: "last_scraped_at", Value: 1}},
		},
	}
	_, err := institutionsCollection.Indexes().CreateMany(context.Background(), institutionIndexes)
	if err != nil {
		return err
	}

	// At most one non-terminal job per (institution, target). The partial
	// unique index makes the coalescing in the store race-safe: concurrent
	// enqueues collide on the insert instead of both slipping past the
	// existence check.
	jobsCollection := db.Collection("scrape_jobs")
	jobIndexes := []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "institution_id", Value: 1}, {Key: "target_url", Value: 1}},
			Options: options.Index().
				SetUnique(true).
				SetPartialFilterExpression(bson.M{
					"status": bson.M{"$in": []string{"pending", "in_progress"}},
				}),
		},
		{
			Keys: bson.D{{Key: "institution_id", Value: 1}, {Key: "target_url", Value: 1}, {Key: "created_at", Value: -1}},
		},
		{
			Keys: bson.D{{Key: "status", Value: 1}, {Key: "updated_at", Value: 1}},
		},
	}
	_, err = jobsCollection.Indexes().CreateMany(context.Background(), jobIndexes)
	if err != nil {
		return err
	}

	contentCollection := db.Collection("content_items")
	contentIndexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "institution_id", Value: 1}, {Key: "source_url", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys: bson.D{{Key: "institution_id", Value: 1}, {Key: "is_active", Value: 1}, {Key: "scraped_at", Value: -1}},
		},
	}
	_, err = contentCollection.Indexes().CreateMany(context.Background(), contentIndexes)
	if err != nil {
		return err
	}

	vectorsCollection := db.Collection("embedding_vectors")
	vectorIndexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "content_item_id", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys: bson.D{{Key: "institution_id", Value: 1}},
		},
	}
	_, err = vectorsCollection.Indexes().CreateMany(context.Background(), vectorIndexes)
	if err != nil {
		return err
	}

	return nil
}
