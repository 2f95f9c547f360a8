package memory

import (
	"context"
	"slices"
	"strings"
	"sync"

	domainuser "roomchat/internal/domain/user"
)

// UserRepository keeps users in registration order behind a single lock.
type UserRepository struct {
	mu     sync.RWMutex
	users  map[domainuser.ID]domainuser.User
	emails map[string]domainuser.ID
	order  []domainuser.ID
}

func NewUserRepository() *UserRepository {
	return &UserRepository{
		users:  map[domainuser.ID]domainuser.User{},
		emails: map[string]domainuser.ID{},
	}
}

func (r *UserRepository) ByID(ctx context.Context, id domainuser.ID) (*domainuser.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.lookup(id)
}

func (r *UserRepository) ByEmail(ctx context.Context, email string) (*domainuser.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.emails[domainuser.NormalizeEmail(email)]
	if !ok {
		return nil, domainuser.ErrNotFound
	}
	return r.lookup(id)
}

func (r *UserRepository) Search(ctx context.Context, query string) ([]domainuser.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	found := []domainuser.User{}
	for _, id := range r.order {
		if u := r.users[id]; u.Matches(query) {
			found = append(found, u)
		}
	}
	return found, nil
}

func (r *UserRepository) Save(ctx context.Context, user *domainuser.User) error {
	if user == nil || strings.TrimSpace(string(user.ID)) == "" {
		return domainuser.ErrIDRequired
	}
	email := domainuser.NormalizeEmail(user.Email)
	if email == "" {
		return domainuser.ErrEmailRequired
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if owner, taken := r.emails[email]; taken && owner != user.ID {
		return domainuser.ErrEmailAlreadyUsed
	}
	prev, exists := r.users[user.ID]
	switch {
	case !exists:
		r.order = append(r.order, user.ID)
	case domainuser.NormalizeEmail(prev.Email) != email:
		delete(r.emails, domainuser.NormalizeEmail(prev.Email))
	}
	r.emails[email] = user.ID
	r.users[user.ID] = *user
	return nil
}

// Delete removes a user without touching rooms that reference it.
func (r *UserRepository) Delete(ctx context.Context, id domainuser.ID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return domainuser.ErrNotFound
	}
	delete(r.emails, domainuser.NormalizeEmail(u.Email))
	delete(r.users, id)
	r.order = slices.DeleteFunc(r.order, func(existing domainuser.ID) bool { return existing == id })
	return nil
}

func (r *UserRepository) lookup(id domainuser.ID) (*domainuser.User, error) {
	u, ok := r.users[id]
	if !ok {
		return nil, domainuser.ErrNotFound
	}
	return &u, nil
}

var _ domainuser.Repository = (*UserRepository)(nil)
