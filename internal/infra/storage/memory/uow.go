package memory

import (
	"context"
	"errors"

	"roomchat/internal/app/uow"
	domainroom "roomchat/internal/domain/room"
	domainuser "roomchat/internal/domain/user"
)

// Factory wires in-memory repositories into a unit-of-work boundary.
type Factory struct {
	UsersRepo domainuser.Repository
	RoomsRepo domainroom.Repository
}

// ErrFactoryMisconfigured indicates missing repositories.
var ErrFactoryMisconfigured = errors.New("memory: unit of work factory misconfigured")

// Begin starts a lightweight transaction boundary. No isolation or rollback is
// provided but the abstraction matches the application ports.
func (f Factory) Begin(ctx context.Context, opts uow.TxOptions) (uow.UnitOfWork, error) {
	if f.UsersRepo == nil || f.RoomsRepo == nil {
		return nil, ErrFactoryMisconfigured
	}
	return &Unit{users: f.UsersRepo, rooms: f.RoomsRepo}, nil
}

// Unit is a lightweight uow.UnitOfWork backed by in-memory stores.
type Unit struct {
	users domainuser.Repository
	rooms domainroom.Repository
}

func (u *Unit) Users() domainuser.Repository {
	return u.users
}

func (u *Unit) Rooms() domainroom.Repository {
	return u.rooms
}

func (u *Unit) Commit(ctx context.Context) error {
	return nil
}

func (u *Unit) Rollback(ctx context.Context) error {
	return nil
}
