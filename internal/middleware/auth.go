package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"bizreport/api/internal/response"
	"bizreport/api/internal/security"
	"bizreport/api/internal/service"
)

const identityKey = "identity"

type AccessVerifier interface {
	VerifyAccess(raw string) (service.Identity, error)
}

// Auth verifies the access credential without a store round trip and
// stores the identity on the context.
func Auth(verifier AccessVerifier, cookies *security.CookieBinder) gin.HandlerFunc {
	return func(c *gin.Context) {
		identity, err := verifier.VerifyAccess(cookies.Access(c))
		if err != nil {
			response.Fail(c, http.StatusUnauthorized, "unauthorized", "AUTH_UNAUTHORIZED")
			return
		}
		c.Set(identityKey, identity)
		c.Next()
	}
}

func CurrentIdentity(c *gin.Context) (service.Identity, bool) {
	v, ok := c.Get(identityKey)
	if !ok {
		return service.Identity{}, false
	}
	identity, ok := v.(service.Identity)
	return identity, ok
}
