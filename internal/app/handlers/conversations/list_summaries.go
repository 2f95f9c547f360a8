package conversations

import (
	"context"
	"strings"

	"roomchat/internal/app/dto"
	"roomchat/internal/app/handlers/support"
	"roomchat/internal/app/queries"
	"roomchat/internal/app/uow"
	"roomchat/internal/domain/conversation"
	domainroom "roomchat/internal/domain/room"
	domainuser "roomchat/internal/domain/user"
)

const listSummariesKey = "conversations.summaries"

// ListSummariesQuery asks for the chat list of the requester.
type ListSummariesQuery struct {
	Requester string
}

func (q ListSummariesQuery) Key() string         { return listSummariesKey }
func (q ListSummariesQuery) RequesterID() string { return q.Requester }

// ListSummariesHandler loads the requester's rooms and projects them into summaries.
type ListSummariesHandler struct {
	UoWFactory uow.UoWFactory
	Builder    conversation.Builder
	OnBuilt    func(count int)
}

func (h *ListSummariesHandler) Handle(ctx context.Context, q ListSummariesQuery) ([]dto.ConversationSummary, error) {
	requester := domainuser.ID(strings.TrimSpace(q.Requester))
	rooms, err := support.Read(ctx, h.UoWFactory, func(ctx context.Context, unit uow.UnitOfWork) ([]domainroom.Room, error) {
		return unit.Rooms().ListForParticipant(ctx, requester)
	})
	if err != nil {
		return nil, err
	}
	summaries, err := h.Builder.Build(requester, rooms)
	if err != nil {
		return nil, err
	}
	if h.OnBuilt != nil {
		h.OnBuilt(len(summaries))
	}
	return dto.MapConversationSummaries(summaries), nil
}

var _ queries.Handler[ListSummariesQuery, []dto.ConversationSummary] = (*ListSummariesHandler)(nil)
