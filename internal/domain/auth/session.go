package auth

import (
	"context"
	"errors"
	"strings"
	"time"

	"roomchat/internal/domain/user"
)

var (
	ErrTokenRequired   = errors.New("auth: token is required")
	ErrUserRequired    = errors.New("auth: user is required")
	ErrTTLInvalid      = errors.New("auth: ttl must be positive")
	ErrSessionNotFound = errors.New("auth: session not found")
)

// Token is the opaque bearer credential handed to clients.
type Token string

type Session struct {
	Token     Token
	UserID    user.ID
	CreatedAt time.Time
	ExpiresAt time.Time
}

// Issue opens a session for userID that lives for ttl starting at now.
func Issue(token Token, userID user.ID, ttl time.Duration, now time.Time) (*Session, error) {
	token = Token(strings.TrimSpace(string(token)))
	switch {
	case token == "":
		return nil, ErrTokenRequired
	case strings.TrimSpace(string(userID)) == "":
		return nil, ErrUserRequired
	case ttl <= 0:
		return nil, ErrTTLInvalid
	}
	if now.IsZero() {
		now = time.Now()
	}
	now = now.UTC()
	return &Session{Token: token, UserID: userID, CreatedAt: now, ExpiresAt: now.Add(ttl)}, nil
}

// ActiveAt reports whether the session is still usable at t.
func (s *Session) ActiveAt(t time.Time) bool {
	return s.ExpiresAt.After(t.UTC())
}

// Remaining is the lifetime left at t, clamped at zero.
func (s *Session) Remaining(t time.Time) time.Duration {
	return max(s.ExpiresAt.Sub(t.UTC()), 0)
}

type SessionStore interface {
	Save(ctx context.Context, session *Session) error
	Get(ctx context.Context, token Token) (*Session, error)
	Delete(ctx context.Context, token Token) error
	DeleteByUser(ctx context.Context, userID user.ID) error
}
