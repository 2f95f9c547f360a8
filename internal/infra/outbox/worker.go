package outbox

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	defaultInterval  = 500 * time.Millisecond
	defaultBatchSize = 100
	defaultRetry     = 5 * time.Second
	defaultSource    = "app://roomchat"
)

var ErrWorkerNotConfigured = errors.New("outbox: worker missing dependencies")

type Producer interface {
	Publish(ctx context.Context, topic string, key string, payload []byte, headers map[string]string) error
}

// ClaimStore is the part of Store the worker drives.
type ClaimStore interface {
	Claim(ctx context.Context, workerID string) (*EventDocument, error)
	MarkSent(ctx context.Context, id string) error
	MarkFailed(ctx context.Context, id string, next time.Time, errMsg string) error
}

// cloudEvent is the structured-mode CloudEvents 1.0 envelope put on the wire.
type cloudEvent struct {
	SpecVersion     string          `json:"specversion"`
	ID              string          `json:"id"`
	Type            string          `json:"type"`
	Source          string          `json:"source"`
	Subject         string          `json:"subject,omitempty"`
	Time            time.Time       `json:"time"`
	DataContentType string          `json:"datacontenttype"`
	TraceParent     string          `json:"traceparent,omitempty"`
	Data            json.RawMessage `json:"data"`
}

// Worker polls the store and relays due events to the broker. Failed
// publishes are rescheduled following Backoff, indexed by attempt.
type Worker struct {
	Store       ClaimStore
	Producer    Producer
	Interval    time.Duration
	TopicPrefix string
	Source      string
	ID          string
	Backoff     []time.Duration
	BatchSize   int
	Logger      *slog.Logger
	OnRelayed   func(event string, err error)
}

func (w *Worker) Run(ctx context.Context) error {
	if w.Store == nil || w.Producer == nil {
		return ErrWorkerNotConfigured
	}
	if w.ID == "" {
		w.ID = uuid.NewString()
	}
	interval := w.Interval
	if interval <= 0 {
		interval = defaultInterval
	}
	log := w.log().With("worker", w.ID)
	log.Info("outbox worker started", "interval", interval)
	for {
		if err := w.drain(ctx); err != nil && ctx.Err() == nil {
			log.Error("outbox relay failed", "error", err)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(interval):
		}
	}
}

// drain relays up to one batch and stops early once nothing is due.
func (w *Worker) drain(ctx context.Context) error {
	limit := w.BatchSize
	if limit <= 0 {
		limit = defaultBatchSize
	}
	for range limit {
		doc, err := w.Store.Claim(ctx, w.ID)
		if err != nil {
			return fmt.Errorf("claim: %w", err)
		}
		if doc == nil {
			return nil
		}
		if err := w.relay(ctx, doc); err != nil {
			return err
		}
	}
	return nil
}

func (w *Worker) relay(ctx context.Context, doc *EventDocument) error {
	payload, err := w.envelope(doc)
	if err == nil {
		headers := map[string]string{"content-type": "application/cloudevents+json"}
		for k, v := range doc.Headers {
			if k != "content-type" {
				headers[k] = v
			}
		}
		err = w.Producer.Publish(ctx, topicFor(w.TopicPrefix, doc.Name), doc.Aggregate, payload, headers)
	}
	if w.OnRelayed != nil {
		w.OnRelayed(doc.Name, err)
	}
	if err == nil {
		return w.Store.MarkSent(ctx, doc.ID)
	}
	w.log().Warn("outbox event publish failed",
		"event_id", doc.ID, "event", doc.Name, "attempts", doc.Attempts+1, "error", err)
	return w.Store.MarkFailed(ctx, doc.ID, time.Now().Add(w.retryDelay(doc.Attempts)), err.Error())
}

func (w *Worker) envelope(doc *EventDocument) ([]byte, error) {
	if !json.Valid(doc.Payload) {
		return nil, fmt.Errorf("event %s: payload is not valid JSON", doc.ID)
	}
	source := w.Source
	if source == "" {
		source = defaultSource
	}
	return json.Marshal(cloudEvent{
		SpecVersion:     "1.0",
		ID:              doc.ID,
		Type:            doc.Name + ".v1",
		Source:          source,
		Subject:         doc.Aggregate,
		Time:            doc.OccurredAt,
		DataContentType: "application/json",
		TraceParent:     doc.Headers["traceparent"],
		Data:            doc.Payload,
	})
}

// retryDelay picks the Backoff step for the given number of prior attempts,
// repeating the last step once the schedule is exhausted.
func (w *Worker) retryDelay(attempts int) time.Duration {
	switch {
	case len(w.Backoff) == 0:
		return defaultRetry
	case attempts < len(w.Backoff):
		return w.Backoff[attempts]
	default:
		return w.Backoff[len(w.Backoff)-1]
	}
}

func (w *Worker) log() *slog.Logger {
	if w.Logger != nil {
		return w.Logger
	}
	return slog.Default()
}

// topicFor maps "room.message_posted" to "<prefix>room.events.v1".
func topicFor(prefix, name string) string {
	aggregate, _, _ := strings.Cut(name, ".")
	return prefix + aggregate + ".events.v1"
}
