package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"bizreport/api/internal/response"
)

const serviceName = "bizreport-api"

type healthResponse struct {
	OK      bool              `json:"ok"`
	Service string            `json:"service"`
	Env     string            `json:"env"`
	Checks  map[string]string `json:"checks"`
}

func (h HandlerSet) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	resp := healthResponse{OK: true, Service: serviceName, Env: h.env, Checks: make(map[string]string, len(h.checks))}
	for _, check := range h.checks {
		if err := check.Probe(ctx); err != nil {
			resp.OK = false
			resp.Checks[check.Name] = "error"
			h.log.Error().Err(err).Str("check", check.Name).Msg("health check failed")
			continue
		}
		resp.Checks[check.Name] = "ok"
	}

	status := http.StatusOK
	if !resp.OK {
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, resp)
}

func (h HandlerSet) Ping(c *gin.Context) {
	response.OK(c, http.StatusOK, "pong", nil)
}

// RolePing echoes the caller's identity behind a role guard.
func (h HandlerSet) RolePing(message string) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := identity(c)
		response.OK(c, http.StatusOK, message, gin.H{"role": id.Role, "userId": id.UserID})
	}
}
