package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"roomchat/internal/app/middleware"
)

const defaultIdempotencyTTL = 24 * time.Hour

type idempotencyDocument struct {
	Key        string    `bson:"_id"`
	Payload    []byte    `bson:"payload"`
	OccurredAt time.Time `bson:"occurred_at"`
	ExpiresAt  time.Time `bson:"expires_at"`
}

// IdempotencyStore keeps replayable command results until expires_at, which a
// TTL index enforces.
type IdempotencyStore struct {
	col *mongo.Collection
	ttl time.Duration
}

func NewIdempotencyStore(ctx context.Context, db *mongo.Database, ttl time.Duration) (*IdempotencyStore, error) {
	if ttl <= 0 {
		ttl = defaultIdempotencyTTL
	}
	col := db.Collection("command_results")
	expiry := mongo.IndexModel{
		Keys:    bson.D{{Key: "expires_at", Value: 1}},
		Options: options.Index().SetExpireAfterSeconds(0),
	}
	if _, err := col.Indexes().CreateOne(ctx, expiry); err != nil {
		return nil, fmt.Errorf("idempotency: create ttl index: %w", err)
	}
	return &IdempotencyStore{col: col, ttl: ttl}, nil
}

// Get ignores documents past expires_at that the TTL monitor has not yet removed.
func (s *IdempotencyStore) Get(ctx context.Context, key string) (middleware.IdempotencyRecord, bool, error) {
	filter := bson.D{
		{Key: "_id", Value: key},
		{Key: "expires_at", Value: bson.D{{Key: "$gt", Value: time.Now().UTC()}}},
	}
	var doc idempotencyDocument
	err := s.col.FindOne(ctx, filter).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return middleware.IdempotencyRecord{}, false, nil
	}
	if err != nil {
		return middleware.IdempotencyRecord{}, false, err
	}
	return middleware.IdempotencyRecord{Key: doc.Key, Payload: doc.Payload, OccurredAt: doc.OccurredAt}, true, nil
}

// Save keeps the first result stored under a key; a concurrent duplicate is dropped.
func (s *IdempotencyStore) Save(ctx context.Context, rec middleware.IdempotencyRecord) error {
	_, err := s.col.InsertOne(ctx, idempotencyDocument{
		Key:        rec.Key,
		Payload:    rec.Payload,
		OccurredAt: rec.OccurredAt,
		ExpiresAt:  rec.OccurredAt.Add(s.ttl),
	})
	if mongo.IsDuplicateKeyError(err) {
		return nil
	}
	return err
}

var _ middleware.IdempotencyStore = (*IdempotencyStore)(nil)
