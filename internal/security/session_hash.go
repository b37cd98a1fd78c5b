package security

import (
	"crypto/sha256"
	"encoding/base64"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

const DefaultSessionHashCost = 12

// SessionHasher hashes raw refresh credentials for storage. The credential
// is reduced to its SHA-256 digest first because bcrypt only reads the first
// 72 bytes of its input and every JWT shares a long common prefix.
type SessionHasher struct {
	cost int
}

func NewSessionHasher(cost int) *SessionHasher {
	if cost <= 0 {
		cost = DefaultSessionHashCost
	}
	if cost < bcrypt.MinCost {
		cost = bcrypt.MinCost
	}
	if cost > bcrypt.MaxCost {
		cost = bcrypt.MaxCost
	}
	return &SessionHasher{cost: cost}
}

func (h *SessionHasher) Hash(raw string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword(digest(raw), h.cost)
	if err != nil {
		return "", fmt.Errorf("hash refresh token: %w", err)
	}
	return string(hash), nil
}

// Matches reports whether raw is the credential behind hash.
func (h *SessionHasher) Matches(raw string, hash string) bool {
	if raw == "" || hash == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), digest(raw)) == nil
}

func digest(raw string) []byte {
	sum := sha256.Sum256([]byte(raw))
	return []byte(base64.RawStdEncoding.EncodeToString(sum[:]))
}
