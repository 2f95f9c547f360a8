package outbox

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	appoutbox "roomchat/internal/app/outbox"
)

const collectionName = "room_events_outbox"

type state string

const (
	statePending   state = "pending"
	stateInFlight  state = "in_flight"
	stateDelivered state = "delivered"
	stateRetrying  state = "retrying"
)

// A claim older than leaseTimeout is treated as abandoned by its worker.
const leaseTimeout = time.Minute

// EventDocument is one outbox entry as stored in Mongo.
type EventDocument struct {
	ID          string            `bson:"_id"`
	Name        string            `bson:"name"`
	Aggregate   string            `bson:"aggregate"`
	Payload     []byte            `bson:"payload"`
	Headers     map[string]string `bson:"headers,omitempty"`
	OccurredAt  time.Time         `bson:"occurred_at"`
	State       state             `bson:"state"`
	Attempts    int               `bson:"attempts"`
	NextAttempt time.Time         `bson:"next_attempt_at"`
	LeasedBy    string            `bson:"leased_by,omitempty"`
	LeasedAt    time.Time         `bson:"leased_at,omitempty"`
	DeliveredAt time.Time         `bson:"delivered_at,omitempty"`
	LastError   string            `bson:"last_error,omitempty"`
	CreatedAt   time.Time         `bson:"created_at"`
}

// Store persists events in Mongo as soon as they are added. Flush is a no-op
// because the Worker does the relaying.
type Store struct {
	col *mongo.Collection
	now func() time.Time
}

func NewStore(ctx context.Context, db *mongo.Database) (*Store, error) {
	col := db.Collection(collectionName)
	_, err := col.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "state", Value: 1}, {Key: "next_attempt_at", Value: 1}}},
		{Keys: bson.D{{Key: "aggregate", Value: 1}, {Key: "occurred_at", Value: 1}}},
	})
	if err != nil {
		return nil, fmt.Errorf("outbox: create indexes: %w", err)
	}
	return &Store{col: col, now: func() time.Time { return time.Now().UTC() }}, nil
}

func (s *Store) Add(ctx context.Context, rec appoutbox.EventRecord) error {
	now := s.now()
	_, err := s.col.InsertOne(ctx, EventDocument{
		ID:          rec.ID,
		Name:        rec.Name,
		Aggregate:   rec.Aggregate,
		Payload:     rec.Payload,
		Headers:     rec.Headers,
		OccurredAt:  rec.OccurredAt,
		State:       statePending,
		NextAttempt: now,
		CreatedAt:   now,
	})
	if mongo.IsDuplicateKeyError(err) {
		return nil
	}
	return err
}

func (s *Store) Flush(context.Context) error { return nil }

// Claim leases the earliest due event to workerID. It returns nil, nil when
// nothing is due.
func (s *Store) Claim(ctx context.Context, workerID string) (*EventDocument, error) {
	now := s.now()
	due := bson.D{{Key: "$or", Value: bson.A{
		bson.D{
			{Key: "state", Value: bson.D{{Key: "$in", Value: bson.A{statePending, stateRetrying}}}},
			{Key: "next_attempt_at", Value: bson.D{{Key: "$lte", Value: now}}},
		},
		bson.D{
			{Key: "state", Value: stateInFlight},
			{Key: "leased_at", Value: bson.D{{Key: "$lte", Value: now.Add(-leaseTimeout)}}},
		},
	}}}
	lease := bson.D{{Key: "$set", Value: bson.D{
		{Key: "state", Value: stateInFlight},
		{Key: "leased_by", Value: workerID},
		{Key: "leased_at", Value: now},
	}}}
	opts := options.FindOneAndUpdate().
		SetSort(bson.D{{Key: "next_attempt_at", Value: 1}}).
		SetReturnDocument(options.After)

	var doc EventDocument
	switch err := s.col.FindOneAndUpdate(ctx, due, lease, opts).Decode(&doc); {
	case errors.Is(err, mongo.ErrNoDocuments):
		return nil, nil
	case err != nil:
		return nil, err
	}
	return &doc, nil
}

func (s *Store) MarkSent(ctx context.Context, id string) error {
	_, err := s.col.UpdateByID(ctx, id, bson.D{{Key: "$set", Value: bson.D{
		{Key: "state", Value: stateDelivered},
		{Key: "delivered_at", Value: s.now()},
	}}})
	return err
}

func (s *Store) MarkFailed(ctx context.Context, id string, next time.Time, errMsg string) error {
	_, err := s.col.UpdateByID(ctx, id, bson.D{
		{Key: "$set", Value: bson.D{
			{Key: "state", Value: stateRetrying},
			{Key: "next_attempt_at", Value: next.UTC()},
			{Key: "last_error", Value: errMsg},
		}},
		{Key: "$inc", Value: bson.D{{Key: "attempts", Value: 1}}},
	})
	return err
}

var (
	_ appoutbox.Outbox = (*Store)(nil)
	_ ClaimStore       = (*Store)(nil)
)
