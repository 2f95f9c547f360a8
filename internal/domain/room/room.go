package room

import (
	"context"
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"roomchat/internal/domain/shared/events"
	"roomchat/internal/domain/user"
)

// MaxMessageLength caps message text in runes.
const MaxMessageLength = 4000

var (
	ErrIDRequired        = errors.New("room: id is required")
	ErrNotFound          = errors.New("room: not found")
	ErrTooFewMembers     = errors.New("room: at least two distinct members are required")
	ErrNotParticipant    = errors.New("room: user is not a participant")
	ErrMessageIDRequired = errors.New("room: message id is required")
	ErrTextRequired      = errors.New("room: message text is required")
	ErrTextTooLong       = errors.New("room: message text is too long")
	ErrDirectExists      = errors.New("room: direct room already exists for these users")
)

type ID string

type MessageID string

// Member is a user's participation in a room. User is nil when the referenced
// user could not be resolved by the store.
type Member struct {
	UserID   user.ID
	User     *user.User
	JoinedAt time.Time
}

type Room struct {
	ID          ID
	Name        string
	Members     []Member
	LastMessage *Message
	CreatedAt   time.Time
	UpdatedAt   time.Time

	events.Buffer
}

// Message is a single text entry in a room. Author is nil when the store could
// not resolve AuthorID.
type Message struct {
	ID        MessageID
	RoomID    ID
	AuthorID  user.ID
	Author    *user.User
	Text      string
	CreatedAt time.Time
}

// Repository is the room store port.
type Repository interface {
	ByID(ctx context.Context, id ID) (*Room, error)
	// ListForParticipant returns the rooms userID belongs to in creation order.
	// Members exclude userID and LastMessage carries its resolved author.
	ListForParticipant(ctx context.Context, userID user.ID) ([]Room, error)
	// FindDirect returns the unnamed two-member room shared by a and b.
	FindDirect(ctx context.Context, a, b user.ID) (*Room, error)
	// Save fails with ErrDirectExists when another direct room holds the same pair.
	Save(ctx context.Context, room *Room) error
	// AppendMessage stores msg and advances the room's activity and last message.
	AppendMessage(ctx context.Context, msg *Message) error
	// Messages returns up to limit most recent messages, oldest first.
	Messages(ctx context.Context, id ID, limit int) ([]Message, error)
}

type CreateParams struct {
	ID      ID
	Name    string
	Members []user.ID
	Now     time.Time
}

// NewRoom builds a room from distinct member ids. Member order follows the params.
func NewRoom(params CreateParams) (*Room, error) {
	id := strings.TrimSpace(string(params.ID))
	if id == "" {
		return nil, ErrIDRequired
	}
	now := params.Now
	if now.IsZero() {
		now = time.Now()
	}
	now = now.UTC()

	seen := make(map[user.ID]struct{}, len(params.Members))
	members := make([]Member, 0, len(params.Members))
	for _, raw := range params.Members {
		uid := user.ID(strings.TrimSpace(string(raw)))
		if uid == "" {
			continue
		}
		if _, ok := seen[uid]; ok {
			continue
		}
		seen[uid] = struct{}{}
		members = append(members, Member{UserID: uid, JoinedAt: now})
	}
	if len(members) < 2 {
		return nil, ErrTooFewMembers
	}

	r := &Room{
		ID:        ID(id),
		Name:      strings.TrimSpace(params.Name),
		Members:   members,
		CreatedAt: now,
		UpdatedAt: now,
	}
	r.Raise(RoomOpenedEvent{RoomID: r.ID, Members: memberIDs(members), At: now})
	return r, nil
}

// IsDirect reports whether the room is an unnamed conversation between exactly two users.
func (r *Room) IsDirect() bool {
	return r.Name == "" && len(r.Members) == 2
}

// DirectKey identifies the pair of a direct room regardless of member order.
// It is empty for any other room.
func (r *Room) DirectKey() string {
	if !r.IsDirect() {
		return ""
	}
	a, b := r.Members[0].UserID, r.Members[1].UserID
	if b < a {
		a, b = b, a
	}
	return string(a) + ":" + string(b)
}

func (r *Room) HasMember(id user.ID) bool {
	for _, m := range r.Members {
		if m.UserID == id {
			return true
		}
	}
	return false
}

type PostParams struct {
	ID     MessageID
	Author user.ID
	Text   string
	Now    time.Time
}

// Post validates and creates a message authored by a member. The room's
// activity timestamp and last message advance accordingly.
func (r *Room) Post(params PostParams) (*Message, error) {
	if strings.TrimSpace(string(params.ID)) == "" {
		return nil, ErrMessageIDRequired
	}
	if !r.HasMember(params.Author) {
		return nil, ErrNotParticipant
	}
	text, err := NormalizeText(params.Text)
	if err != nil {
		return nil, err
	}
	now := params.Now
	if now.IsZero() {
		now = time.Now()
	}
	now = now.UTC()

	msg := &Message{
		ID:        params.ID,
		RoomID:    r.ID,
		AuthorID:  params.Author,
		Text:      text,
		CreatedAt: now,
	}
	if r.LastMessage == nil || !msg.CreatedAt.Before(r.LastMessage.CreatedAt) {
		r.LastMessage = msg
	}
	if now.After(r.UpdatedAt) {
		r.UpdatedAt = now
	}
	r.Raise(MessagePostedEvent{
		RoomID:    r.ID,
		MessageID: msg.ID,
		AuthorID:  msg.AuthorID,
		Text:      msg.Text,
		At:        now,
	})
	return msg, nil
}

func memberIDs(members []Member) []user.ID {
	out := make([]user.ID, 0, len(members))
	for _, m := range members {
		out = append(out, m.UserID)
	}
	return out
}

// NormalizeText trims message text and enforces the length bounds.
func NormalizeText(raw string) (string, error) {
	text := strings.TrimSpace(raw)
	if text == "" {
		return "", ErrTextRequired
	}
	if utf8.RuneCountInString(text) > MaxMessageLength {
		return "", ErrTextTooLong
	}
	return text, nil
}
