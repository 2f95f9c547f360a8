package security

import (
	"errors"

	"golang.org/x/crypto/bcrypt"
)

// bcrypt ignores input past this length.
const maxPasswordBytes = 72

var (
	ErrPasswordTooLong  = errors.New("security: password exceeds 72 bytes")
	ErrPasswordMismatch = errors.New("security: password does not match")
)

// BcryptHasher hashes passwords with Cost, or bcrypt.DefaultCost when Cost is
// out of range.
type BcryptHasher struct {
	Cost int
}

func (h BcryptHasher) Hash(password string) (string, error) {
	if len(password) > maxPasswordBytes {
		return "", ErrPasswordTooLong
	}
	cost := h.Cost
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	return string(hash), err
}

func (h BcryptHasher) Compare(hash, password string) error {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		return ErrPasswordMismatch
	}
	return err
}
