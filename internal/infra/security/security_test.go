package security

import (
	"errors"
	"strings"
	"testing"

	"golang.org/x/crypto/bcrypt"
)

func TestBcryptHasherRoundTrip(t *testing.T) {
	h := BcryptHasher{Cost: bcrypt.MinCost}
	hash, err := h.Hash("correct horse")
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}
	if err := h.Compare(hash, "correct horse"); err != nil {
		t.Fatalf("Compare: %v", err)
	}
	if err := h.Compare(hash, "wrong horse"); !errors.Is(err, ErrPasswordMismatch) {
		t.Fatalf("expected ErrPasswordMismatch, got %v", err)
	}
}

func TestBcryptHasherRejectsLongPasswords(t *testing.T) {
	_, err := BcryptHasher{Cost: bcrypt.MinCost}.Hash(strings.Repeat("x", 73))
	if !errors.Is(err, ErrPasswordTooLong) {
		t.Fatalf("expected ErrPasswordTooLong, got %v", err)
	}
}

func TestRandomTokenGenerator(t *testing.T) {
	g := RandomTokenGenerator{Size: 16, Prefix: "rc_"}
	a, err := g.NewToken()
	if err != nil {
		t.Fatalf("NewToken: %v", err)
	}
	b, _ := g.NewToken()
	if a == b {
		t.Fatalf("tokens should differ")
	}
	if !strings.HasPrefix(a, "rc_") {
		t.Fatalf("missing prefix: %q", a)
	}
	// 16 bytes -> 22 base64url chars without padding
	if len(a) != len("rc_")+22 {
		t.Fatalf("unexpected token length %d", len(a))
	}
}

func TestRandomTokenGeneratorShortSource(t *testing.T) {
	g := RandomTokenGenerator{Size: 8, Source: strings.NewReader("abc")}
	if _, err := g.NewToken(); err == nil {
		t.Fatalf("expected error from exhausted entropy source")
	}
}
