package memory

import (
	"context"
	"log/slog"
	"sync"

	appoutbox "roomchat/internal/app/outbox"
)

// Outbox keeps events in memory until the command completes, then logs and
// discards them. Used when no durable outbox is configured.
type Outbox struct {
	Logger *slog.Logger

	mu      sync.Mutex
	records []appoutbox.EventRecord
}

func NewOutbox(logger *slog.Logger) *Outbox {
	return &Outbox{Logger: logger}
}

func (o *Outbox) Add(ctx context.Context, record appoutbox.EventRecord) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.records = append(o.records, record)
	return nil
}

func (o *Outbox) Flush(ctx context.Context) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.Logger != nil {
		for _, rec := range o.records {
			o.Logger.Debug("event dropped without broker", "event", rec.Name, "aggregate", rec.Aggregate, "id", rec.ID)
		}
	}
	o.records = nil
	return nil
}

// Discard drops buffered records without logging them.
func (o *Outbox) Discard(ctx context.Context) {
	o.mu.Lock()
	o.records = nil
	o.mu.Unlock()
}

// Pending returns a copy of buffered records.
func (o *Outbox) Pending() []appoutbox.EventRecord {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]appoutbox.EventRecord(nil), o.records...)
}

var (
	_ appoutbox.Outbox    = (*Outbox)(nil)
	_ appoutbox.Discarder = (*Outbox)(nil)
)
