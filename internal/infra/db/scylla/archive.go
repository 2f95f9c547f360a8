package scylla

import (
	"context"
	"errors"
	"time"

	"github.com/gocql/gocql"

	domainroom "roomchat/internal/domain/room"
	domainuser "roomchat/internal/domain/user"
)

const maxArchiveWindow = 200

var errSessionMissing = errors.New("scylla: session not initialized")

// MessageArchive keeps room history in a wide partition per room, newest first.
type MessageArchive struct {
	session *gocql.Session
}

func NewMessageArchive(session *gocql.Session) *MessageArchive {
	return &MessageArchive{session: session}
}

func (a *MessageArchive) Append(ctx context.Context, msg domainroom.Message) error {
	if a.session == nil {
		return errSessionMissing
	}
	return a.session.
		Query(`INSERT INTO room_messages (room_id, created_at, message_id, author_id, text) VALUES (?, ?, ?, ?, ?)`,
			string(msg.RoomID), msg.CreatedAt.UTC(), string(msg.ID), string(msg.AuthorID), msg.Text).
		WithContext(ctx).
		Consistency(gocql.Quorum).
		Exec()
}

// Recent returns up to limit latest messages of a room, oldest first. Authors
// are left unresolved.
func (a *MessageArchive) Recent(ctx context.Context, roomID domainroom.ID, limit int) ([]domainroom.Message, error) {
	if a.session == nil {
		return nil, errSessionMissing
	}
	if limit <= 0 || limit > maxArchiveWindow {
		limit = maxArchiveWindow
	}
	iter := a.session.
		Query(`SELECT message_id, author_id, text, created_at FROM room_messages WHERE room_id = ? ORDER BY created_at DESC, message_id DESC LIMIT ?`,
			string(roomID), limit).
		WithContext(ctx).
		Consistency(gocql.One).
		Iter()

	var (
		id, author, text string
		createdAt        time.Time
	)
	newestFirst := make([]domainroom.Message, 0, limit)
	for iter.Scan(&id, &author, &text, &createdAt) {
		newestFirst = append(newestFirst, domainroom.Message{
			ID:        domainroom.MessageID(id),
			RoomID:    roomID,
			AuthorID:  domainuser.ID(author),
			Text:      text,
			CreatedAt: createdAt.UTC(),
		})
	}
	if err := iter.Close(); err != nil {
		return nil, err
	}
	out := make([]domainroom.Message, len(newestFirst))
	for i, m := range newestFirst {
		out[len(newestFirst)-1-i] = m
	}
	return out, nil
}
