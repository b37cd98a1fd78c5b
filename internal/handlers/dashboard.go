package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"bizreport/api/internal/response"
)

func (h HandlerSet) AdminOverview(c *gin.Context) {
	overview, err := h.dashboards.AdminOverview(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	response.OK(c, http.StatusOK, "admin_dashboard_overview", overview)
}

func (h HandlerSet) OwnerOverview(c *gin.Context) {
	overview, err := h.dashboards.OwnerOverview(c.Request.Context(), identity(c).UserID)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.OK(c, http.StatusOK, "business_owner_dashboard_overview", overview)
}
