package middleware

import (
	"context"
	"encoding/json"
	"fmt"
	"reflect"
	"time"

	"roomchat/internal/app/commands"
)

// IdempotentCommand is a command the client may safely resend. ResultPrototype
// returns a pointer to a zero value of the handler's result type.
type IdempotentCommand interface {
	commands.Command
	IdempotencyKey() string
	ResultPrototype() any
}

type IdempotencyRecord struct {
	Key        string
	Payload    []byte
	OccurredAt time.Time
}

type IdempotencyStore interface {
	Get(ctx context.Context, key string) (IdempotencyRecord, bool, error)
	Save(ctx context.Context, rec IdempotencyRecord) error
}

// Idempotency answers a repeated key with the JSON-stored result of the first
// successful run. Failures are not stored.
func Idempotency(store IdempotencyStore, now func() time.Time) CommandMiddleware {
	if store == nil {
		panic("middleware: idempotency store required")
	}
	if now == nil {
		now = time.Now
	}
	return func(next commands.Bus) commands.Bus {
		return commandFunc(func(ctx context.Context, cmd commands.Command) (any, error) {
			idem, ok := cmd.(IdempotentCommand)
			if !ok || idem.IdempotencyKey() == "" {
				return next.Dispatch(ctx, cmd)
			}
			key := idem.IdempotencyKey()
			rec, found, err := store.Get(ctx, key)
			if err != nil {
				return nil, err
			}
			if found {
				return replay(idem, rec)
			}
			result, err := next.Dispatch(ctx, cmd)
			if err != nil {
				return nil, err
			}
			payload, err := json.Marshal(result)
			if err != nil {
				return nil, fmt.Errorf("idempotency %s: %w", key, err)
			}
			if err := store.Save(ctx, IdempotencyRecord{Key: key, Payload: payload, OccurredAt: now().UTC()}); err != nil {
				return nil, err
			}
			return result, nil
		})
	}
}

func replay(cmd IdempotentCommand, rec IdempotencyRecord) (any, error) {
	target := cmd.ResultPrototype()
	rv := reflect.ValueOf(target)
	if rv.Kind() != reflect.Pointer || rv.IsNil() {
		return nil, fmt.Errorf("idempotency %s: result prototype must be a non-nil pointer", cmd.Key())
	}
	if err := json.Unmarshal(rec.Payload, target); err != nil {
		return nil, fmt.Errorf("idempotency %s: %w", rec.Key, err)
	}
	return rv.Elem().Interface(), nil
}
