package security

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
)

const (
	AccessCookieName  = "accessToken"
	RefreshCookieName = "refreshToken"
)

type CookiePolicy struct {
	Secure     bool
	SameSite   string
	Domain     string
	AccessTTL  time.Duration
	RefreshTTL time.Duration
}

// CookieBinder carries the credential pair as two http-only cookies.
type CookieBinder struct {
	secure     bool
	sameSite   http.SameSite
	domain     string
	accessTTL  time.Duration
	refreshTTL time.Duration
}

func NewCookieBinder(policy CookiePolicy) *CookieBinder {
	return &CookieBinder{
		secure:     policy.Secure,
		sameSite:   ParseSameSite(policy.SameSite),
		domain:     policy.Domain,
		accessTTL:  policy.AccessTTL,
		refreshTTL: policy.RefreshTTL,
	}
}

// ParseSameSite maps lax, strict and none; anything else is lax.
func ParseSameSite(value string) http.SameSite {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "strict":
		return http.SameSiteStrictMode
	case "none":
		return http.SameSiteNoneMode
	default:
		return http.SameSiteLaxMode
	}
}

func (b *CookieBinder) SetPair(c *gin.Context, accessToken string, refreshToken string) {
	b.set(c, AccessCookieName, accessToken, b.accessTTL)
	b.set(c, RefreshCookieName, refreshToken, b.refreshTTL)
}

// Clear expires both cookies immediately.
func (b *CookieBinder) Clear(c *gin.Context) {
	b.write(c, AccessCookieName, "", -1)
	b.write(c, RefreshCookieName, "", -1)
}

// Access returns the access credential from its cookie, falling back to an
// Authorization bearer header.
func (b *CookieBinder) Access(c *gin.Context) string {
	if v, err := c.Cookie(AccessCookieName); err == nil && v != "" {
		return v
	}
	authHeader := c.GetHeader("Authorization")
	if len(authHeader) > 7 && strings.EqualFold(authHeader[:7], "Bearer ") {
		return strings.TrimSpace(authHeader[7:])
	}
	return ""
}

func (b *CookieBinder) Refresh(c *gin.Context) string {
	v, err := c.Cookie(RefreshCookieName)
	if err != nil {
		return ""
	}
	return v
}

func (b *CookieBinder) set(c *gin.Context, name string, value string, ttl time.Duration) {
	b.write(c, name, value, int(ttl/time.Second))
}

func (b *CookieBinder) write(c *gin.Context, name string, value string, maxAge int) {
	http.SetCookie(c.Writer, &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		Domain:   b.domain,
		MaxAge:   maxAge,
		Secure:   b.secure,
		HttpOnly: true,
		SameSite: b.sameSite,
	})
}
