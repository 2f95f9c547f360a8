package users

import (
	"context"
	"strings"

	"roomchat/internal/app/dto"
	"roomchat/internal/app/handlers/support"
	"roomchat/internal/app/queries"
	"roomchat/internal/app/uow"
)

const searchUsersKey = "users.search"

// SearchUsersQuery filters the directory by a substring of email, phone or name.
type SearchUsersQuery struct {
	Requester string
	Query     string
}

func (q SearchUsersQuery) Key() string         { return searchUsersKey }
func (q SearchUsersQuery) RequesterID() string { return q.Requester }

type SearchUsersHandler struct {
	UoWFactory uow.UoWFactory
}

func (h *SearchUsersHandler) Handle(ctx context.Context, q SearchUsersQuery) ([]dto.UserProfile, error) {
	term := strings.TrimSpace(q.Query)
	return support.Read(ctx, h.UoWFactory, func(ctx context.Context, unit uow.UnitOfWork) ([]dto.UserProfile, error) {
		found, err := unit.Users().Search(ctx, term)
		if err != nil {
			return nil, err
		}
		return dto.MapUserProfiles(found), nil
	})
}

var _ queries.Handler[SearchUsersQuery, []dto.UserProfile] = (*SearchUsersHandler)(nil)
