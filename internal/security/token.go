package security

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	DefaultAccessTTL  = 15 * time.Minute
	DefaultRefreshTTL = 30 * 24 * time.Hour
)

var (
	ErrInvalidSignature = errors.New("invalid token signature")
	ErrExpired          = errors.New("token expired")
)

var expiresInPattern = regexp.MustCompile(`^(\d+)\s*(m|d)$`)

// ParseExpiresIn resolves the "<n>m" / "<n>d" short-hand. Any other input,
// including a zero amount, yields fallback.
func ParseExpiresIn(value string, fallback time.Duration) time.Duration {
	m := expiresInPattern.FindStringSubmatch(strings.ToLower(strings.TrimSpace(value)))
	if m == nil {
		return fallback
	}
	n, err := strconv.Atoi(m[1])
	if err != nil || n <= 0 {
		return fallback
	}
	switch m[2] {
	case "m":
		return time.Duration(n) * time.Minute
	case "d":
		return time.Duration(n) * 24 * time.Hour
	}
	return fallback
}

// Claim is the identity asserted by both credential types. SessionID is
// the non-secret key of the refresh session the pair was issued with.
type Claim struct {
	Subject   string
	Role      string
	SessionID string
}

type tokenClaims struct {
	Role      string `json:"role"`
	SessionID string `json:"sid,omitempty"`
	jwt.RegisteredClaims
}

type CodecConfig struct {
	AccessSecret  string
	RefreshSecret string
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
	Now           func() time.Time
}

// Codec issues and verifies access and refresh JWTs. Each type has its own
// HMAC secret so a leaked access secret cannot mint refresh tokens.
type Codec struct {
	accessSecret  []byte
	refreshSecret []byte
	accessTTL     time.Duration
	refreshTTL    time.Duration
	now           func() time.Time
}

func NewCodec(cfg CodecConfig) *Codec {
	if cfg.AccessTTL <= 0 {
		cfg.AccessTTL = DefaultAccessTTL
	}
	if cfg.RefreshTTL <= 0 {
		cfg.RefreshTTL = DefaultRefreshTTL
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Codec{
		accessSecret:  []byte(cfg.AccessSecret),
		refreshSecret: []byte(cfg.RefreshSecret),
		accessTTL:     cfg.AccessTTL,
		refreshTTL:    cfg.RefreshTTL,
		now:           cfg.Now,
	}
}

func (c *Codec) AccessTTL() time.Duration  { return c.accessTTL }
func (c *Codec) RefreshTTL() time.Duration { return c.refreshTTL }

func (c *Codec) IssueAccess(claim Claim) (string, time.Time, error) {
	return c.issue(claim, c.accessSecret, c.accessTTL)
}

func (c *Codec) IssueRefresh(claim Claim) (string, time.Time, error) {
	return c.issue(claim, c.refreshSecret, c.refreshTTL)
}

func (c *Codec) VerifyAccess(raw string) (Claim, error) {
	return c.verify(raw, c.accessSecret)
}

func (c *Codec) VerifyRefresh(raw string) (Claim, error) {
	return c.verify(raw, c.refreshSecret)
}

func (c *Codec) issue(claim Claim, secret []byte, ttl time.Duration) (string, time.Time, error) {
	now := c.now()
	expiresAt := now.Add(ttl).Truncate(time.Second)

	claims := tokenClaims{
		Role:      claim.Role,
		SessionID: claim.SessionID,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   claim.Subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign jwt: %w", err)
	}
	return signed, expiresAt, nil
}

func (c *Codec) verify(raw string, secret []byte) (Claim, error) {
	token, err := jwt.ParseWithClaims(raw, &tokenClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithStrictDecoding(),
		jwt.WithTimeFunc(c.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return Claim{}, ErrExpired
		}
		return Claim{}, ErrInvalidSignature
	}

	claims, ok := token.Claims.(*tokenClaims)
	if !ok || !token.Valid || claims.Subject == "" {
		return Claim{}, ErrInvalidSignature
	}
	return Claim{
		Subject:   claims.Subject,
		Role:      claims.Role,
		SessionID: claims.SessionID,
	}, nil
}
