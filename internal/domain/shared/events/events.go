package events

import "time"

// DomainEvent is a fact raised by an aggregate and published through the outbox.
type DomainEvent interface {
	EventName() string
	AggregateID() string
	OccurredAt() time.Time
}

// Buffer is embedded by aggregates to hold raised events until the command
// handler drains them into the outbox.
type Buffer struct {
	raised []DomainEvent
}

func (b *Buffer) Raise(ev DomainEvent) {
	if ev != nil {
		b.raised = append(b.raised, ev)
	}
}

// PendingEvents returns a snapshot without clearing the buffer.
func (b *Buffer) PendingEvents() []DomainEvent {
	return append([]DomainEvent(nil), b.raised...)
}

// DrainEvents returns the raised events and empties the buffer.
func (b *Buffer) DrainEvents() []DomainEvent {
	out := b.raised
	b.raised = nil
	return out
}
