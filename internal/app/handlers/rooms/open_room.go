package rooms

import (
	"context"
	"errors"
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

const openRoomKey = "rooms.open"

// OpenRoomCommand opens a room between the requester and the listed users.
type OpenRoomCommand struct {
	Requester      string
	ParticipantIDs []string
	Name           string
}

func (c OpenRoomCommand) Key() string         { return openRoomKey }
func (c OpenRoomCommand) RequesterID() string { return c.Requester }

// Validate rejects requests that name no participant besides the requester.
func (c OpenRoomCommand) Validate() error {
	for _, id := range c.ParticipantIDs {
		if id = strings.TrimSpace(id); id != "" && id != strings.TrimSpace(c.Requester) {
			return nil
		}
	}
	return domainroom.ErrTooFewMembers
}

// OpenRoomHandler creates rooms. A request for an unnamed room with a single
// other participant returns the existing direct room when there is one.
type OpenRoomHandler struct {
	Outbox  outbox.Outbox
	Encoder outbox.EventEncoder
	Logger  *slog.Logger
	Now     func() time.Time
}

func (h *OpenRoomHandler) Handle(ctx context.Context, cmd OpenRoomCommand) (dto.Room, error) {
	unit, err := uow.Require(ctx)
	if err != nil {
		return dto.Room{}, err
	}
	requester := domainuser.ID(strings.TrimSpace(cmd.Requester))
	if _, err := unit.Users().ByID(ctx, requester); err != nil {
		return dto.Room{}, err
	}

	members := []domainuser.ID{requester}
	for _, raw := range cmd.ParticipantIDs {
		id := domainuser.ID(strings.TrimSpace(raw))
		if id == "" || id == requester {
			continue
		}
		if _, err := unit.Users().ByID(ctx, id); err != nil {
			return dto.Room{}, err
		}
		members = append(members, id)
	}

	r, err := domainroom.NewRoom(domainroom.CreateParams{
		ID:      domainroom.ID(uuid.NewString()),
		Name:    cmd.Name,
		Members: members,
		Now:     h.now(),
	})
	if err != nil {
		return dto.Room{}, err
	}
	if r.IsDirect() {
		existing, err := unit.Rooms().FindDirect(ctx, r.Members[0].UserID, r.Members[1].UserID)
		switch {
		case err == nil:
			return dto.MapRoom(existing), nil
		case !errors.Is(err, domainroom.ErrNotFound):
			return dto.Room{}, err
		}
	}

	if err := unit.Rooms().Save(ctx, r); err != nil {
		if !errors.Is(err, domainroom.ErrDirectExists) {
			return dto.Room{}, err
		}
		// A concurrent request created the pair after our lookup.
		existing, err := unit.Rooms().FindDirect(ctx, r.Members[0].UserID, r.Members[1].UserID)
		if err != nil {
			return dto.Room{}, err
		}
		return dto.MapRoom(existing), nil
	}
	if err := outbox.RecordDomainEvents(ctx, h.Outbox, h.Encoder, r.DrainEvents()); err != nil {
		return dto.Room{}, err
	}
	if h.Logger != nil {
		h.Logger.Info("room opened", "room_id", r.ID, "members", len(r.Members), "requester", requester)
	}
	return dto.MapRoom(r), nil
}

func (h *OpenRoomHandler) now() time.Time {
	if h.Now != nil {
		return h.Now()
	}
	return time.Now()
}

var _ commands.Handler[OpenRoomCommand, dto.Room] = (*OpenRoomHandler)(nil)
