package handlers

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"bizreport/api/internal/response"
	"bizreport/api/internal/service"
)

var kindStatus = []struct {
	kind   error
	status int
}{
	{service.ErrInvalidInput, http.StatusBadRequest},
	{service.ErrDuplicateIdentity, http.StatusConflict},
	{service.ErrInvalidCredentials, http.StatusUnauthorized},
	{service.ErrAccountDisabled, http.StatusForbidden},
	{service.ErrUnauthorized, http.StatusUnauthorized},
	{service.ErrForbidden, http.StatusForbidden},
	{service.ErrNotFound, http.StatusNotFound},
}

// fail writes err as an envelope. Anything that is not a service.Error is
// logged and reported as an opaque server error.
func (h HandlerSet) fail(c *gin.Context, err error) {
	var svcErr *service.Error
	if errors.As(err, &svcErr) {
		for _, ks := range kindStatus {
			if errors.Is(svcErr.Kind, ks.kind) {
				response.Fail(c, ks.status, svcErr.Message, svcErr.Code)
				return
			}
		}
	}

	h.log.Error().
		Err(err).
		Str("path", c.FullPath()).
		Str("request_id", c.Writer.Header().Get("X-Request-Id")).
		Msg("request failed")
	response.Fail(c, http.StatusInternalServerError, "server error", "SERVER_ERROR")
}

// bindJSON decodes the body into dst. An empty body leaves dst zero so
// the service reports the missing fields.
func bindJSON(c *gin.Context, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil && !errors.Is(err, io.EOF) {
		response.Fail(c, http.StatusBadRequest, "Invalid request body", "VALIDATION_BODY_INVALID")
		return false
	}
	return true
}
