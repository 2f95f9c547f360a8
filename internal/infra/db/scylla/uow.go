package scylla

import (
	"context"
	"log/slog"
	"sync"

	"roomchat/internal/app/uow"
	domainroom "roomchat/internal/domain/room"
)

// Archive is the history store the decorated room repositories write to.
type Archive interface {
	Append(ctx context.Context, msg domainroom.Message) error
	Recent(ctx context.Context, roomID domainroom.ID, limit int) ([]domainroom.Message, error)
}

// Factory wraps another unit-of-work factory so that committed messages are
// mirrored to the archive. History reads check the archive against the inner
// store and backfill what is missing.
type Factory struct {
	Inner   uow.UoWFactory
	Archive Archive
	Logger  *slog.Logger
}

func (f Factory) Begin(ctx context.Context, opts uow.TxOptions) (uow.UnitOfWork, error) {
	inner, err := f.Inner.Begin(ctx, opts)
	if err != nil {
		return nil, err
	}
	return &unit{UnitOfWork: inner, archive: f.Archive, logger: f.Logger}, nil
}

type unit struct {
	uow.UnitOfWork
	archive Archive
	logger  *slog.Logger

	mu      sync.Mutex
	pending []domainroom.Message
}

func (u *unit) Rooms() domainroom.Repository {
	return &rooms{Repository: u.UnitOfWork.Rooms(), unit: u}
}

// Commit mirrors appended messages only after the inner commit succeeded.
// Archive failures are logged; the relational store stays authoritative.
func (u *unit) Commit(ctx context.Context) error {
	if err := u.UnitOfWork.Commit(ctx); err != nil {
		return err
	}
	u.mu.Lock()
	pending := u.pending
	u.pending = nil
	u.mu.Unlock()
	for _, msg := range pending {
		if err := u.archive.Append(ctx, msg); err != nil {
			u.warn("message archive write failed", "room_id", msg.RoomID, "message_id", msg.ID, "error", err)
		}
	}
	return nil
}

func (u *unit) Rollback(ctx context.Context) error {
	u.mu.Lock()
	u.pending = nil
	u.mu.Unlock()
	return u.UnitOfWork.Rollback(ctx)
}

func (u *unit) stage(msg domainroom.Message) {
	msg.Author = nil
	u.mu.Lock()
	u.pending = append(u.pending, msg)
	u.mu.Unlock()
}

type rooms struct {
	domainroom.Repository
	unit *unit
}

func (r *rooms) AppendMessage(ctx context.Context, msg *domainroom.Message) error {
	if err := r.Repository.AppendMessage(ctx, msg); err != nil {
		return err
	}
	r.unit.stage(*msg)
	return nil
}

// Messages serves the window from the inner store, which is authoritative,
// and repairs archive gaps left by failed post-commit writes.
func (r *rooms) Messages(ctx context.Context, id domainroom.ID, limit int) ([]domainroom.Message, error) {
	msgs, err := r.Repository.Messages(ctx, id, limit)
	if err != nil {
		return nil, err
	}
	window := msgs
	if len(window) > maxArchiveWindow {
		window = window[len(window)-maxArchiveWindow:]
	}
	if len(window) == 0 {
		return msgs, nil
	}
	archived, err := r.unit.archive.Recent(ctx, id, len(window))
	if err != nil {
		r.unit.warn("message archive read failed", "room_id", id, "error", err)
		return msgs, nil
	}
	have := make(map[domainroom.MessageID]struct{}, len(archived))
	for _, m := range archived {
		have[m.ID] = struct{}{}
	}
	repaired := 0
	for _, m := range window {
		if _, ok := have[m.ID]; ok {
			continue
		}
		m.Author = nil
		if err := r.unit.archive.Append(ctx, m); err != nil {
			r.unit.warn("message archive repair failed", "room_id", id, "message_id", m.ID, "error", err)
			continue
		}
		repaired++
	}
	if repaired > 0 && r.unit.logger != nil {
		r.unit.logger.Info("message archive repaired", "room_id", id, "messages", repaired)
	}
	return msgs, nil
}

func (u *unit) warn(msg string, args ...any) {
	if u.logger != nil {
		u.logger.Warn(msg, args...)
	}
}

var _ uow.UoWFactory = Factory{}
