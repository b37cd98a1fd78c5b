package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"bizreport/api/internal/models"
	"bizreport/api/internal/response"
)

func RequireRoles(roles ...models.UserRole) gin.HandlerFunc {
	roleSet := make(map[models.UserRole]struct{}, len(roles))
	for _, role := range roles {
		roleSet[role] = struct{}{}
	}

	return func(c *gin.Context) {
		identity, ok := CurrentIdentity(c)
		if !ok {
			response.Fail(c, http.StatusUnauthorized, "unauthorized", "AUTH_UNAUTHORIZED")
			return
		}

		if _, ok := roleSet[identity.Role]; !ok {
			response.Fail(c, http.StatusForbidden, "forbidden", "AUTH_FORBIDDEN")
			return
		}

		c.Next()
	}
}
