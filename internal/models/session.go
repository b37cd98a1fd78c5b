package models

import "time"

// RefreshSession is the server-side record of one issued refresh credential.
// TokenHash is a one-way hash; the raw credential is never persisted.
type RefreshSession struct {
	ID        string
	UserID    string
	TokenHash string
	ExpiresAt time.Time
	RevokedAt *time.Time
	CreatedAt time.Time
}

// Usable reports whether the session can still back a refresh.
func (s RefreshSession) Usable(now time.Time) bool {
	return s.RevokedAt == nil && s.ExpiresAt.After(now)
}

// Expired reports whether the absolute expiry has passed, independent of
// revocation.
func (s RefreshSession) Expired(now time.Time) bool {
	return !s.ExpiresAt.After(now)
}
