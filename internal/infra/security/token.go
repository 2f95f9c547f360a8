package security

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"io"
)

const defaultTokenBytes = 32

// RandomTokenGenerator mints opaque base64url bearer tokens. Entropy comes
// from crypto/rand unless Source is set.
type RandomTokenGenerator struct {
	Size   int
	Prefix string
	Source io.Reader
}

func (g RandomTokenGenerator) NewToken() (string, error) {
	n := g.Size
	if n <= 0 {
		n = defaultTokenBytes
	}
	src := g.Source
	if src == nil {
		src = rand.Reader
	}
	raw := make([]byte, n)
	if _, err := io.ReadFull(src, raw); err != nil {
		return "", fmt.Errorf("security: read token entropy: %w", err)
	}
	return g.Prefix + base64.RawURLEncoding.EncodeToString(raw), nil
}
