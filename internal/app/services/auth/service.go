package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	domainauth "roomchat/internal/domain/auth"
	domainuser "roomchat/internal/domain/user"
)

const (
	minPasswordLength = 8
	defaultSessionTTL = 24 * time.Hour
)

var (
	ErrInvalidCredentials = errors.New("auth: invalid credentials")
	ErrPasswordTooShort   = errors.New("auth: password must be at least 8 characters")
)

type PasswordHasher interface {
	Hash(password string) (string, error)
	Compare(hash, password string) error
}

type TokenGenerator interface {
	NewToken() (string, error)
}

type Service struct {
	Users      domainuser.Repository
	Sessions   domainauth.SessionStore
	Passwords  PasswordHasher
	Tokens     TokenGenerator
	SessionTTL time.Duration
	Logger     *slog.Logger
	Now        func() time.Time
}

type RegisterParams struct {
	Email    string
	Name     string
	Password string
	Phone    string
	Location string
}

type LoginParams struct {
	Email    string
	Password string
}

type AuthResult struct {
	User  *domainuser.User
	Token string
}

type ResolveResult struct {
	User    *domainuser.User
	Session *domainauth.Session
}

// Register creates an account and signs it in.
func (s *Service) Register(ctx context.Context, params RegisterParams) (*AuthResult, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	if utf8.RuneCountInString(params.Password) < minPasswordLength {
		return nil, ErrPasswordTooShort
	}
	hash, err := s.Passwords.Hash(params.Password)
	if err != nil {
		return nil, err
	}
	user, err := domainuser.NewUser(domainuser.CreateParams{
		ID:           domainuser.ID(uuid.NewString()),
		Email:        params.Email,
		Name:         params.Name,
		Phone:        params.Phone,
		Location:     params.Location,
		PasswordHash: hash,
		CreatedAt:    s.now(),
	})
	if err != nil {
		return nil, err
	}
	if err := s.Users.Save(ctx, user); err != nil {
		return nil, err
	}
	return s.signIn(ctx, user, "user registered")
}

// Login checks the password and starts a new session. Unknown emails and wrong
// passwords are indistinguishable to the caller.
func (s *Service) Login(ctx context.Context, params LoginParams) (*AuthResult, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	user, err := s.Users.ByEmail(ctx, params.Email)
	switch {
	case errors.Is(err, domainuser.ErrNotFound):
		return nil, ErrInvalidCredentials
	case err != nil:
		return nil, err
	}
	if s.Passwords.Compare(user.PasswordHash, params.Password) != nil {
		return nil, ErrInvalidCredentials
	}
	user.RecordActivity(s.now())
	if err := s.Users.Save(ctx, user); err != nil {
		return nil, err
	}
	return s.signIn(ctx, user, "user authenticated")
}

// Logout revokes token. An empty token is a no-op.
func (s *Service) Logout(ctx context.Context, token string) error {
	if err := s.ready(); err != nil {
		return err
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return nil
	}
	if err := s.Sessions.Delete(ctx, domainauth.Token(token)); err != nil {
		return err
	}
	s.log().Info("session terminated")
	return nil
}

// ResolveToken maps a bearer token to its live session and user. Sessions of
// users that no longer exist are dropped.
func (s *Service) ResolveToken(ctx context.Context, token string) (*ResolveResult, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, domainauth.ErrTokenRequired
	}
	session, err := s.Sessions.Get(ctx, domainauth.Token(token))
	if err != nil {
		return nil, err
	}
	user, err := s.Users.ByID(ctx, session.UserID)
	if err == nil {
		return &ResolveResult{User: user, Session: session}, nil
	}
	_ = s.Sessions.Delete(ctx, session.Token)
	if errors.Is(err, domainuser.ErrNotFound) {
		return nil, domainauth.ErrSessionNotFound
	}
	return nil, err
}

func (s *Service) signIn(ctx context.Context, user *domainuser.User, msg string) (*AuthResult, error) {
	token, err := s.Tokens.NewToken()
	if err != nil {
		return nil, err
	}
	ttl := s.SessionTTL
	if ttl <= 0 {
		ttl = defaultSessionTTL
	}
	session, err := domainauth.Issue(domainauth.Token(token), user.ID, ttl, s.now())
	if err != nil {
		return nil, err
	}
	if err := s.Sessions.Save(ctx, session); err != nil {
		return nil, err
	}
	s.log().Info(msg, "user_id", user.ID)
	return &AuthResult{User: user, Token: token}, nil
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func (s *Service) log() *slog.Logger {
	if s.Logger != nil {
		return s.Logger
	}
	return slog.New(slog.DiscardHandler)
}

func (s *Service) ready() error {
	var missing []error
	if s.Users == nil {
		missing = append(missing, errors.New("user repository"))
	}
	if s.Sessions == nil {
		missing = append(missing, errors.New("session store"))
	}
	if s.Passwords == nil {
		missing = append(missing, errors.New("password hasher"))
	}
	if s.Tokens == nil {
		missing = append(missing, errors.New("token generator"))
	}
	if len(missing) > 0 {
		return fmt.Errorf("auth: service not configured: %w", errors.Join(missing...))
	}
	return nil
}
