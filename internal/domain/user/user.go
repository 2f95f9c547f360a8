package user

import (
	"context"
	"errors"
	"strings"
	"time"
)

var (
	ErrIDRequired          = errors.New("user: id is required")
	ErrEmailRequired       = errors.New("user: email is required")
	ErrPasswordHashMissing = errors.New("user: password hash is required")
	ErrNameRequired        = errors.New("user: name is required")
	ErrEmailAlreadyUsed    = errors.New("user: email already used")
	ErrNotFound            = errors.New("user: not found")
)

type ID string

type User struct {
	ID             ID
	Email          string
	Name           string
	Phone          string
	Location       string
	AvatarURL      string
	PasswordHash   string
	LastActivityAt time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Repository is the user directory port.
type Repository interface {
	ByID(ctx context.Context, id ID) (*User, error)
	ByEmail(ctx context.Context, email string) (*User, error)
	// Search returns users whose email, phone or name contains query, ignoring case.
	// An empty query matches every user.
	Search(ctx context.Context, query string) ([]User, error)
	Save(ctx context.Context, user *User) error
}

type CreateParams struct {
	ID           ID
	Email        string
	Name         string
	Phone        string
	Location     string
	PasswordHash string
	CreatedAt    time.Time
}

func NewUser(params CreateParams) (*User, error) {
	id := strings.TrimSpace(string(params.ID))
	if id == "" {
		return nil, ErrIDRequired
	}
	email := NormalizeEmail(params.Email)
	if email == "" {
		return nil, ErrEmailRequired
	}
	if strings.TrimSpace(params.PasswordHash) == "" {
		return nil, ErrPasswordHashMissing
	}
	name := strings.TrimSpace(params.Name)
	if name == "" {
		return nil, ErrNameRequired
	}

	now := params.CreatedAt
	if now.IsZero() {
		now = time.Now()
	}
	now = now.UTC()

	return &User{
		ID:             ID(id),
		Email:          email,
		Name:           name,
		Phone:          strings.TrimSpace(params.Phone),
		Location:       strings.TrimSpace(params.Location),
		PasswordHash:   params.PasswordHash,
		LastActivityAt: now,
		CreatedAt:      now,
		UpdatedAt:      now,
	}, nil
}

func (u *User) UpdateProfile(name, phone, location string, now time.Time) error {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return ErrNameRequired
	}
	u.Name = trimmed
	u.Phone = strings.TrimSpace(phone)
	u.Location = strings.TrimSpace(location)
	u.touch(now)
	return nil
}

func (u *User) SetAvatar(url string, now time.Time) {
	u.AvatarURL = strings.TrimSpace(url)
	u.touch(now)
}

// RecordActivity marks the user as seen at now.
func (u *User) RecordActivity(now time.Time) {
	if now.IsZero() {
		now = time.Now()
	}
	u.LastActivityAt = now.UTC()
	u.touch(now)
}

func (u *User) touch(now time.Time) {
	if now.IsZero() {
		now = time.Now()
	}
	u.UpdatedAt = now.UTC()
}

// Matches reports whether query is a case-insensitive substring of the user's email, phone or name.
func (u *User) Matches(query string) bool {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return true
	}
	for _, field := range []string{u.Email, u.Phone, u.Name} {
		if strings.Contains(strings.ToLower(field), q) {
			return true
		}
	}
	return false
}

func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
