package middleware

import (
	"context"

	"roomchat/internal/app/commands"
	"roomchat/internal/app/outbox"
)

// OutboxFlush hands buffered events over once the command succeeded. Outboxes
// that can discard are told to drop what a failed command recorded.
func OutboxFlush(box outbox.Outbox) CommandMiddleware {
	if box == nil {
		panic("middleware: outbox required")
	}
	return func(next commands.Bus) commands.Bus {
		return commandFunc(func(ctx context.Context, cmd commands.Command) (any, error) {
			res, err := next.Dispatch(ctx, cmd)
			if err != nil {
				if d, ok := box.(outbox.Discarder); ok {
					d.Discard(ctx)
				}
				return nil, err
			}
			if err := box.Flush(ctx); err != nil {
				return nil, err
			}
			return res, nil
		})
	}
}
