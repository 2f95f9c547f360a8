package middleware_test

import (
	"context"
	"errors"
	"testing"

	"roomchat/internal/app/commands"
	"roomchat/internal/app/middleware"
	"roomchat/internal/app/outbox"
	"roomchat/internal/app/uow"
	domainroom "roomchat/internal/domain/room"
	domainuser "roomchat/internal/domain/user"
	"roomchat/internal/infra/storage/memory"
)

type echoResult struct {
	Value int `json:"value"`
}

type echoCommand struct {
	Requester string
	ClientKey string
}

func (c echoCommand) Key() string            { return "test.echo" }
func (c echoCommand) RequesterID() string    { return c.Requester }
func (c echoCommand) IdempotencyKey() string { return c.ClientKey }
func (c echoCommand) ResultPrototype() any   { return &echoResult{} }

type busFunc func(ctx context.Context, cmd commands.Command) (any, error)

func (f busFunc) Dispatch(ctx context.Context, cmd commands.Command) (any, error) { return f(ctx, cmd) }

func TestIdempotencyReplaysSuccess(t *testing.T) {
	calls := 0
	base := busFunc(func(context.Context, commands.Command) (any, error) {
		calls++
		return echoResult{Value: calls}, nil
	})
	bus := middleware.ChainCommands(base, middleware.Idempotency(memory.NewIdempotencyStore(0), nil))

	first, err := commands.Dispatch[echoCommand, echoResult](context.Background(), bus, echoCommand{Requester: "u1", ClientKey: "k"})
	if err != nil {
		t.Fatalf("first dispatch: %v", err)
	}
	second, err := commands.Dispatch[echoCommand, echoResult](context.Background(), bus, echoCommand{Requester: "u1", ClientKey: "k"})
	if err != nil {
		t.Fatalf("replay: %v", err)
	}
	if calls != 1 || first != second {
		t.Fatalf("expected replay of %+v, got %+v after %d calls", first, second, calls)
	}

	if _, err := commands.Dispatch[echoCommand, echoResult](context.Background(), bus, echoCommand{Requester: "u1"}); err != nil {
		t.Fatalf("keyless dispatch: %v", err)
	}
	if calls != 2 {
		t.Fatalf("commands without a key must always run, calls = %d", calls)
	}
}

func TestIdempotencyDoesNotRecordFailures(t *testing.T) {
	calls := 0
	boom := errors.New("boom")
	base := busFunc(func(context.Context, commands.Command) (any, error) {
		calls++
		if calls == 1 {
			return nil, boom
		}
		return echoResult{Value: 7}, nil
	})
	bus := middleware.ChainCommands(base, middleware.Idempotency(memory.NewIdempotencyStore(0), nil))

	if _, err := bus.Dispatch(context.Background(), echoCommand{Requester: "u1", ClientKey: "k"}); !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
	res, err := commands.Dispatch[echoCommand, echoResult](context.Background(), bus, echoCommand{Requester: "u1", ClientKey: "k"})
	if err != nil || res.Value != 7 || calls != 2 {
		t.Fatalf("retry after failure should run the command, got %+v, %v, calls %d", res, err, calls)
	}
}

func TestAuthorizationRejectsAnonymous(t *testing.T) {
	reached := false
	base := busFunc(func(context.Context, commands.Command) (any, error) {
		reached = true
		return nil, nil
	})
	bus := middleware.ChainCommands(base, middleware.Authorization(middleware.RequireRequester{}))

	_, err := bus.Dispatch(context.Background(), echoCommand{Requester: "  "})
	if !errors.Is(err, middleware.ErrUnauthenticated) {
		t.Fatalf("expected ErrUnauthenticated, got %v", err)
	}
	if reached {
		t.Fatalf("handler reached without requester")
	}
}

type recordingUnit struct {
	committed, rolledBack int
}

func (u *recordingUnit) Users() domainuser.Repository { return nil }
func (u *recordingUnit) Rooms() domainroom.Repository { return nil }
func (u *recordingUnit) Commit(context.Context) error {
	u.committed++
	return nil
}
func (u *recordingUnit) Rollback(context.Context) error {
	u.rolledBack++
	return nil
}

type recordingFactory struct {
	unit *recordingUnit
}

func (f recordingFactory) Begin(context.Context, uow.TxOptions) (uow.UnitOfWork, error) {
	return f.unit, nil
}

func TestTransactionCommitsAndRollsBack(t *testing.T) {
	unit := &recordingUnit{}
	fail := false
	base := busFunc(func(ctx context.Context, _ commands.Command) (any, error) {
		if _, ok := uow.From(ctx); !ok {
			t.Fatalf("unit of work missing from handler context")
		}
		if fail {
			return nil, errors.New("handler failed")
		}
		return echoResult{}, nil
	})
	bus := middleware.ChainCommands(base, middleware.Transaction(recordingFactory{unit: unit}, nil))

	if _, err := bus.Dispatch(context.Background(), echoCommand{Requester: "u1"}); err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	fail = true
	if _, err := bus.Dispatch(context.Background(), echoCommand{Requester: "u1"}); err == nil {
		t.Fatalf("expected handler error")
	}
	if unit.committed != 1 || unit.rolledBack != 1 {
		t.Fatalf("committed %d rolled back %d, want 1 and 1", unit.committed, unit.rolledBack)
	}
}

func TestChainCommandsOrder(t *testing.T) {
	var trace []string
	mark := func(name string) middleware.CommandMiddleware {
		return func(next commands.Bus) commands.Bus {
			return busFunc(func(ctx context.Context, cmd commands.Command) (any, error) {
				trace = append(trace, name)
				return next.Dispatch(ctx, cmd)
			})
		}
	}
	base := busFunc(func(context.Context, commands.Command) (any, error) {
		trace = append(trace, "handler")
		return nil, nil
	})
	bus := middleware.ChainCommands(base, mark("outer"), mark("inner"))
	if _, err := bus.Dispatch(context.Background(), echoCommand{}); err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	if len(trace) != 3 || trace[0] != "outer" || trace[1] != "inner" || trace[2] != "handler" {
		t.Fatalf("unexpected order %v", trace)
	}
}

type checkedCommand struct {
	err error
}

func (c checkedCommand) Key() string     { return "test.checked" }
func (c checkedCommand) Validate() error { return c.err }

func TestValidationStopsInvalidCommands(t *testing.T) {
	calls := 0
	base := busFunc(func(context.Context, commands.Command) (any, error) {
		calls++
		return nil, nil
	})
	bus := middleware.ChainCommands(base, middleware.Validation(middleware.MessageValidator{}))

	invalid := errors.New("invalid")
	if _, err := bus.Dispatch(context.Background(), checkedCommand{err: invalid}); !errors.Is(err, invalid) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if _, err := bus.Dispatch(context.Background(), checkedCommand{}); err != nil {
		t.Fatalf("valid command: %v", err)
	}
	if _, err := bus.Dispatch(context.Background(), echoCommand{}); err != nil {
		t.Fatalf("commands without Validate pass through: %v", err)
	}
	if calls != 2 {
		t.Fatalf("handler calls = %d, want 2", calls)
	}
}

func TestOutboxFlushDiscardsOnFailure(t *testing.T) {
	box := memory.NewOutbox(nil)
	fail := errors.New("boom")
	bus := middleware.ChainCommands(busFunc(func(ctx context.Context, cmd commands.Command) (any, error) {
		_ = box.Add(ctx, outbox.EventRecord{ID: "e1", Name: "room.opened"})
		return nil, fail
	}), middleware.OutboxFlush(box))

	if _, err := bus.Dispatch(context.Background(), echoCommand{Requester: "u1"}); !errors.Is(err, fail) {
		t.Fatalf("expected handler error, got %v", err)
	}
	if pending := box.Pending(); len(pending) != 0 {
		t.Fatalf("failed command left %d events behind", len(pending))
	}
}
