package uow

import (
	"context"
	"errors"

	domainroom "roomchat/internal/domain/room"
	domainuser "roomchat/internal/domain/user"
)

var ErrUnitOfWorkMissing = errors.New("uow: unit of work missing from context")

// UnitOfWork groups the user directory and the room store behind one
// transaction. Repositories returned by a unit are only valid until Commit or
// Rollback.
type UnitOfWork interface {
	Users() domainuser.Repository
	Rooms() domainroom.Repository

	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

type UoWFactory interface {
	Begin(ctx context.Context, opts TxOptions) (UnitOfWork, error)
}

type TxOptions struct {
	ReadOnly bool
}

type unitKey struct{}

func With(ctx context.Context, unit UnitOfWork) context.Context {
	return context.WithValue(ctx, unitKey{}, unit)
}

func From(ctx context.Context) (UnitOfWork, bool) {
	unit, ok := ctx.Value(unitKey{}).(UnitOfWork)
	return unit, ok && unit != nil
}

// Require is From for handlers that only run inside the transaction middleware.
func Require(ctx context.Context) (UnitOfWork, error) {
	if unit, ok := From(ctx); ok {
		return unit, nil
	}
	return nil, ErrUnitOfWorkMissing
}
