package memory

import (
	"context"
	"sync"
	"time"

	"roomchat/internal/app/middleware"
)

type idempotencyEntry struct {
	record  middleware.IdempotencyRecord
	expires time.Time
}

// IdempotencyStore keeps command results for TTL; zero TTL keeps them forever.
type IdempotencyStore struct {
	TTL time.Duration

	mu      sync.Mutex
	entries map[string]idempotencyEntry
}

func NewIdempotencyStore(ttl time.Duration) *IdempotencyStore {
	return &IdempotencyStore{TTL: ttl, entries: map[string]idempotencyEntry{}}
}

func (s *IdempotencyStore) Get(ctx context.Context, key string) (middleware.IdempotencyRecord, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.entries[key]
	if !ok {
		return middleware.IdempotencyRecord{}, false, nil
	}
	if !entry.expires.IsZero() && time.Now().After(entry.expires) {
		delete(s.entries, key)
		return middleware.IdempotencyRecord{}, false, nil
	}
	return entry.record, true, nil
}

func (s *IdempotencyStore) Save(ctx context.Context, rec middleware.IdempotencyRecord) error {
	entry := idempotencyEntry{record: rec}
	if s.TTL > 0 {
		entry.expires = time.Now().Add(s.TTL)
	}
	s.mu.Lock()
	if prev, exists := s.entries[rec.Key]; !exists || (!prev.expires.IsZero() && time.Now().After(prev.expires)) {
		s.entries[rec.Key] = entry
	}
	s.mu.Unlock()
	return nil
}

var _ middleware.IdempotencyStore = (*IdempotencyStore)(nil)
