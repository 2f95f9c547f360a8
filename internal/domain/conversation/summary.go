package conversation

import (
	"errors"
	"log/slog"
	"strings"
	"time"

	"roomchat/internal/domain/room"
	"roomchat/internal/domain/user"
)

const (
	// NoMessagesText stands in for the last message of an empty room.
	NoMessagesText = "No messages yet"
	// DefaultAvatar is used for participants without an avatar.
	DefaultAvatar = "/images/default-avatar.png"

	clockLayout = "15:04"
)

// Reasons passed to Builder.OnSkip.
const (
	SkipMemberUnresolved = "member_unresolved"
	SkipAuthorUnresolved = "author_unresolved"
)

var ErrUnauthenticated = errors.New("conversation: requester is not authenticated")

// Summary is one chat-list entry: a room seen through one of its other participants.
type Summary struct {
	RoomID        room.ID
	ParticipantID user.ID
	Name          string
	Email         string
	Phone         string
	Location      string
	Avatar        string
	LastMessage   string
	Timestamp     string
	Unread        bool
	LastSeen      string
}

// Builder projects loaded rooms into summaries. The zero value formats in UTC.
type Builder struct {
	Location *time.Location
	Logger   *slog.Logger
	OnSkip   func(reason string)
}

// Build emits one summary per (room, member) pair where the member is not the
// requester, preserving room order and member order. Unread tracking is not
// implemented, so Unread is always false.
func (b Builder) Build(requester user.ID, rooms []room.Room) ([]Summary, error) {
	if strings.TrimSpace(string(requester)) == "" {
		return nil, ErrUnauthenticated
	}
	out := make([]Summary, 0, len(rooms))
	for i := range rooms {
		r := &rooms[i]
		text, stamp := b.lastActivity(r)
		for _, m := range r.Members {
			if m.UserID == requester {
				continue
			}
			if m.User == nil {
				b.skip(SkipMemberUnresolved, "room_id", r.ID, "user_id", m.UserID)
				continue
			}
			out = append(out, Summary{
				RoomID:        r.ID,
				ParticipantID: m.User.ID,
				Name:          m.User.Name,
				Email:         m.User.Email,
				Phone:         m.User.Phone,
				Location:      m.User.Location,
				Avatar:        avatarOrDefault(m.User.AvatarURL),
				LastMessage:   text,
				Timestamp:     stamp,
				Unread:        false,
				LastSeen:      b.clock(m.User.LastActivityAt),
			})
		}
	}
	return out, nil
}

func (b Builder) lastActivity(r *room.Room) (string, string) {
	msg := r.LastMessage
	if msg != nil && msg.Author == nil {
		b.skip(SkipAuthorUnresolved, "room_id", r.ID, "message_id", msg.ID, "author_id", msg.AuthorID)
		msg = nil
	}
	if msg == nil {
		return NoMessagesText, b.clock(r.UpdatedAt)
	}
	return msg.Text, b.clock(msg.CreatedAt)
}

func (b Builder) clock(t time.Time) string {
	loc := b.Location
	if loc == nil {
		loc = time.UTC
	}
	return t.In(loc).Format(clockLayout)
}

func (b Builder) skip(reason string, attrs ...any) {
	if b.Logger != nil {
		b.Logger.Warn("conversation summary reference skipped", append([]any{"reason", reason}, attrs...)...)
	}
	if b.OnSkip != nil {
		b.OnSkip(reason)
	}
}

func avatarOrDefault(url string) string {
	if url == "" {
		return DefaultAvatar
	}
	return url
}
