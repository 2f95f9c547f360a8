package rooms

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"roomchat/internal/app/commands"
	"roomchat/internal/app/dto"
	"roomchat/internal/app/outbox"
	"roomchat/internal/app/uow"
	domainroom "roomchat/internal/domain/room"
	domainuser "roomchat/internal/domain/user"
)

const postMessageKey = "rooms.messages.post"

// PostMessageCommand appends a message to a room on behalf of the requester.
type PostMessageCommand struct {
	Requester string
	RoomID    string
	Text      string
	// ClientKey is the caller-supplied Idempotency-Key header, if any.
	ClientKey string
}

func (c PostMessageCommand) Key() string         { return postMessageKey }
func (c PostMessageCommand) RequesterID() string { return c.Requester }

func (c PostMessageCommand) IdempotencyKey() string {
	key := strings.TrimSpace(c.ClientKey)
	if key == "" {
		return ""
	}
	return postMessageKey + ":" + c.Requester + ":" + key
}

func (c PostMessageCommand) ResultPrototype() any { return &dto.ChatMessage{} }

func (c PostMessageCommand) Validate() error {
	if strings.TrimSpace(c.RoomID) == "" {
		return domainroom.ErrIDRequired
	}
	_, err := domainroom.NormalizeText(c.Text)
	return err
}

type PostMessageHandler struct {
	Outbox   outbox.Outbox
	Encoder  outbox.EventEncoder
	Logger   *slog.Logger
	Now      func() time.Time
	OnPosted func()
}

func (h *PostMessageHandler) Handle(ctx context.Context, cmd PostMessageCommand) (dto.ChatMessage, error) {
	unit, err := uow.Require(ctx)
	if err != nil {
		return dto.ChatMessage{}, err
	}
	r, err := unit.Rooms().ByID(ctx, domainroom.ID(strings.TrimSpace(cmd.RoomID)))
	if err != nil {
		return dto.ChatMessage{}, err
	}
	now := h.now()
	author := domainuser.ID(cmd.Requester)
	msg, err := r.Post(domainroom.PostParams{
		ID:     domainroom.MessageID(uuid.NewString()),
		Author: author,
		Text:   cmd.Text,
		Now:    now,
	})
	if err != nil {
		return dto.ChatMessage{}, err
	}
	if err := unit.Rooms().AppendMessage(ctx, msg); err != nil {
		return dto.ChatMessage{}, err
	}

	u, err := unit.Users().ByID(ctx, author)
	if err != nil {
		return dto.ChatMessage{}, err
	}
	u.RecordActivity(now)
	if err := unit.Users().Save(ctx, u); err != nil {
		return dto.ChatMessage{}, err
	}

	if err := outbox.RecordDomainEvents(ctx, h.Outbox, h.Encoder, r.DrainEvents()); err != nil {
		return dto.ChatMessage{}, err
	}
	if h.OnPosted != nil {
		h.OnPosted()
	}
	if h.Logger != nil {
		h.Logger.Debug("message posted", "room_id", r.ID, "message_id", msg.ID, "author_id", author)
	}
	return dto.MapChatMessage(msg), nil
}

func (h *PostMessageHandler) now() time.Time {
	if h.Now != nil {
		return h.Now()
	}
	return time.Now()
}

var _ commands.Handler[PostMessageCommand, dto.ChatMessage] = (*PostMessageHandler)(nil)
