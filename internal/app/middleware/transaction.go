package middleware

import (
	"context"
	"errors"

	"roomchat/internal/app/commands"
	"roomchat/internal/app/uow"
)

// TxOptionsProvider picks transaction options per command; nil means read-write.
type TxOptionsProvider func(cmd commands.Command) uow.TxOptions

// Transaction gives every command its own unit of work. The unit is committed
// when the handler succeeds and rolled back otherwise, including on panic.
func Transaction(factory uow.UoWFactory, optsProvider TxOptionsProvider) CommandMiddleware {
	if factory == nil {
		panic("middleware: uow factory required")
	}
	return func(next commands.Bus) commands.Bus {
		return commandFunc(func(ctx context.Context, cmd commands.Command) (res any, err error) {
			var opts uow.TxOptions
			if optsProvider != nil {
				opts = optsProvider(cmd)
			}
			unit, err := factory.Begin(ctx, opts)
			if err != nil {
				return nil, err
			}
			txCtx := uow.With(ctx, unit)
			done := false
			defer func() {
				if done {
					return
				}
				if rbErr := unit.Rollback(txCtx); rbErr != nil && err != nil {
					err = errors.Join(err, rbErr)
				}
			}()

			if res, err = next.Dispatch(txCtx, cmd); err != nil {
				return nil, err
			}
			if err = unit.Commit(txCtx); err != nil {
				return nil, err
			}
			done = true
			return res, nil
		})
	}
}
