package support

import (
	"context"

	"roomchat/internal/app/uow"
)

// Read runs fn against the unit of work carried by ctx. Without one, it opens a
// read-only unit from factory and rolls it back once fn returns.
func Read[T any](ctx context.Context, factory uow.UoWFactory, fn func(context.Context, uow.UnitOfWork) (T, error)) (T, error) {
	if unit, ok := uow.From(ctx); ok {
		return fn(ctx, unit)
	}
	var zero T
	if factory == nil {
		return zero, uow.ErrUnitOfWorkMissing
	}
	unit, err := factory.Begin(ctx, uow.TxOptions{ReadOnly: true})
	if err != nil {
		return zero, err
	}
	ctx = uow.With(ctx, unit)
	defer func() { _ = unit.Rollback(ctx) }()
	return fn(ctx, unit)
}
