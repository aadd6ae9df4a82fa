package store

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/ayush/feedback-app/internal/models"
)

// ActivityStore keeps the per-user activity log in MongoDB.
type ActivityStore struct {
	col *mongo.Collection
}

func NewActivityStore(db *mongo.Database) *ActivityStore {
	return &ActivityStore{col: db.Collection("activity")}
}

// EnsureIndexes creates the (username, created_at) index used by ListByUser.
func (s *ActivityStore) EnsureIndexes(ctx context.Context) error {
	_, err := s.col.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "username", Value: 1}, {Key: "created_at", Value: -1}},
	})
	if err != nil {
		return fmt.Errorf("mongo activity index: %w", err)
	}
	return nil
}

func (s *ActivityStore) Record(ctx context.Context, a *models.Activity) error {
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now().UTC()
	}
	if _, err := s.col.InsertOne(ctx, a); err != nil {
		return fmt.Errorf("mongo insert activity: %w", err)
	}
	return nil
}

// ListByUser returns the newest entries first.
func (s *ActivityStore) ListByUser(ctx context.Context, username string, limit int64) ([]models.Activity, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}}).SetLimit(limit)
	cur, err := s.col.Find(ctx, bson.M{"username": username}, opts)
	if err != nil {
		return nil, fmt.Errorf("mongo find activity: %w", err)
	}
	defer cur.Close(ctx)

	var out []models.Activity
	if err := cur.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("mongo decode activity: %w", err)
	}
	return out, nil
}

func (s *ActivityStore) DeleteByUser(ctx context.Context, username string) error {
	if _, err := s.col.DeleteMany(ctx, bson.M{"username": username}); err != nil {
		return fmt.Errorf("mongo delete activity: %w", err)
	}
	return nil
}

// NopActivityStore is used when no MongoDB is configured.
type NopActivityStore struct{}

func (NopActivityStore) Record(context.Context, *models.Activity) error { return nil }

func (NopActivityStore) ListByUser(context.Context, string, int64) ([]models.Activity, error) {
	return nil, nil
}

func (NopActivityStore) DeleteByUser(context.Context, string) error { return nil }
