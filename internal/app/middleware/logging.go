package middleware

import (
	"context"
	"log/slog"
	"time"

	"roomchat/internal/app/commands"
	"roomchat/internal/app/queries"
)

// Observer receives the outcome of every bus message.
type Observer func(kind, key string, elapsed time.Duration, err error)

// Logging records failed commands at error level and successful ones at debug level.
func Logging(logger *slog.Logger, observe Observer) CommandMiddleware {
	return func(next commands.Bus) commands.Bus {
		return commandFunc(func(ctx context.Context, cmd commands.Command) (any, error) {
			start := time.Now()
			res, err := next.Dispatch(ctx, cmd)
			report(ctx, logger, observe, "command", cmd.Key(), time.Since(start), err)
			return res, err
		})
	}
}

// QueryLogging is the query-side counterpart of Logging.
func QueryLogging(logger *slog.Logger, observe Observer) QueryMiddleware {
	return func(next queries.Bus) queries.Bus {
		return queryFunc(func(ctx context.Context, q queries.Query) (any, error) {
			start := time.Now()
			res, err := next.Ask(ctx, q)
			report(ctx, logger, observe, "query", q.Key(), time.Since(start), err)
			return res, err
		})
	}
}

func report(ctx context.Context, logger *slog.Logger, observe Observer, kind, key string, elapsed time.Duration, err error) {
	if observe != nil {
		observe(kind, key, elapsed, err)
	}
	if logger == nil {
		return
	}
	if err != nil {
		logger.ErrorContext(ctx, kind+" failed", "key", key, "duration", elapsed, "error", err)
		return
	}
	logger.DebugContext(ctx, kind+" handled", "key", key, "duration", elapsed)
}
