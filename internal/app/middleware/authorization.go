package middleware

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

var ErrUnauthenticated = errors.New("middleware: requester not authenticated")

type Authorizer interface {
	Authorize(ctx context.Context, message any) error
}

// RequesterScoped is implemented by messages that act on behalf of a signed-in user.
type RequesterScoped interface {
	RequesterID() string
}

// RequireRequester rejects requester-scoped messages that carry no requester id.
// Messages that are not requester-scoped pass through.
type RequireRequester struct{}

func (RequireRequester) Authorize(_ context.Context, message any) error {
	if scoped, ok := message.(RequesterScoped); ok && strings.TrimSpace(scoped.RequesterID()) == "" {
		return fmt.Errorf("%w: %T", ErrUnauthenticated, message)
	}
	return nil
}

func Authorization(a Authorizer) CommandMiddleware {
	if a == nil {
		panic("middleware: authorizer required")
	}
	return precheck(a.Authorize).commands()
}

func QueryAuthorization(a Authorizer) QueryMiddleware {
	if a == nil {
		panic("middleware: authorizer required")
	}
	return precheck(a.Authorize).queries()
}

var _ Authorizer = RequireRequester{}
