package rooms

import (
	"context"
	"strings"

	"roomchat/internal/app/dto"
	"roomchat/internal/app/handlers/support"
	"roomchat/internal/app/queries"
	"roomchat/internal/app/uow"
	domainroom "roomchat/internal/domain/room"
	domainuser "roomchat/internal/domain/user"
)

const (
	listMessagesKey = "rooms.messages.list"

	DefaultMessageLimit = 50
	MaxMessageLimit     = 200
)

// ListMessagesQuery returns the latest messages of a room the requester belongs to.
type ListMessagesQuery struct {
	Requester string
	RoomID    string
	Limit     int
}

func (q ListMessagesQuery) Key() string         { return listMessagesKey }
func (q ListMessagesQuery) RequesterID() string { return q.Requester }

func (q ListMessagesQuery) Validate() error {
	if strings.TrimSpace(q.RoomID) == "" {
		return domainroom.ErrIDRequired
	}
	return nil
}

type ListMessagesHandler struct {
	UoWFactory uow.UoWFactory
}

func (h *ListMessagesHandler) Handle(ctx context.Context, q ListMessagesQuery) (dto.ChatMessageList, error) {
	return support.Read(ctx, h.UoWFactory, func(ctx context.Context, unit uow.UnitOfWork) (dto.ChatMessageList, error) {
		r, err := unit.Rooms().ByID(ctx, domainroom.ID(strings.TrimSpace(q.RoomID)))
		if err != nil {
			return dto.ChatMessageList{}, err
		}
		if !r.HasMember(domainuser.ID(q.Requester)) {
			return dto.ChatMessageList{}, domainroom.ErrNotParticipant
		}
		msgs, err := unit.Rooms().Messages(ctx, r.ID, clampLimit(q.Limit))
		if err != nil {
			return dto.ChatMessageList{}, err
		}
		return dto.MapChatMessages(msgs), nil
	})
}

func clampLimit(limit int) int {
	switch {
	case limit <= 0:
		return DefaultMessageLimit
	case limit > MaxMessageLimit:
		return MaxMessageLimit
	default:
		return limit
	}
}

var _ queries.Handler[ListMessagesQuery, dto.ChatMessageList] = (*ListMessagesHandler)(nil)
