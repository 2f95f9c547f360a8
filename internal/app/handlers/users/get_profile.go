package users

import (
	"context"

	"roomchat/internal/app/dto"
	"roomchat/internal/app/handlers/support"
	"roomchat/internal/app/queries"
	"roomchat/internal/app/uow"
	domainuser "roomchat/internal/domain/user"
)

const getProfileKey = "users.profile"

// GetProfileQuery loads the requester's own profile.
type GetProfileQuery struct {
	Requester string
}

func (q GetProfileQuery) Key() string         { return getProfileKey }
func (q GetProfileQuery) RequesterID() string { return q.Requester }

type GetProfileHandler struct {
	UoWFactory uow.UoWFactory
}

func (h *GetProfileHandler) Handle(ctx context.Context, q GetProfileQuery) (dto.UserProfile, error) {
	return support.Read(ctx, h.UoWFactory, func(ctx context.Context, unit uow.UnitOfWork) (dto.UserProfile, error) {
		u, err := unit.Users().ByID(ctx, domainuser.ID(q.Requester))
		if err != nil {
			return dto.UserProfile{}, err
		}
		return dto.MapUserProfile(u), nil
	})
}

var _ queries.Handler[GetProfileQuery, dto.UserProfile] = (*GetProfileHandler)(nil)
