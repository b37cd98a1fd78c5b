package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"bizreport/api/internal/response"
	"bizreport/api/internal/service"
)

func (h HandlerSet) ListBusinesses(c *gin.Context) {
	page := service.NewPageRequest(service.ParseInt(c.Query("page")), service.ParseInt(c.Query("limit")))
	list, err := h.businesses.List(c.Request.Context(), page, c.Query("search"))
	if err != nil {
		h.fail(c, err)
		return
	}
	response.OK(c, http.StatusOK, "businesses_list", gin.H{
		"businesses":     newBusinessResponses(list.Businesses),
		"pagination":     list.Pagination,
		"appliedFilters": gin.H{"search": list.Search},
	})
}

type createBusinessRequest struct {
	OwnerUserID  string `json:"ownerUserId"`
	BusinessName string `json:"businessName"`
	OwnerName    string `json:"ownerName"`
	OwnerPhone   string `json:"ownerPhone"`
	Category     string `json:"category"`
	City         string `json:"city"`
}

func (h HandlerSet) CreateBusiness(c *gin.Context) {
	var req createBusinessRequest
	if !bindJSON(c, &req) {
		return
	}

	b, err := h.businesses.Create(c.Request.Context(), service.CreateBusinessInput{
		OwnerUserID:  req.OwnerUserID,
		BusinessName: req.BusinessName,
		OwnerName:    req.OwnerName,
		OwnerPhone:   req.OwnerPhone,
		Category:     req.Category,
		City:         req.City,
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	response.OK(c, http.StatusCreated, "business_created", gin.H{"business": newBusinessResponse(b)})
}

func (h HandlerSet) GetBusiness(c *gin.Context) {
	b, err := h.businesses.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	response.OK(c, http.StatusOK, "business_details", gin.H{"business": newBusinessResponse(b)})
}

type updateBusinessRequest struct {
	OwnerUserID  *string `json:"ownerUserId"`
	BusinessName *string `json:"businessName"`
	OwnerName    *string `json:"ownerName"`
	OwnerPhone   *string `json:"ownerPhone"`
	Category     *string `json:"category"`
	City         *string `json:"city"`
	IsActive     *bool   `json:"isActive"`
}

func (r updateBusinessRequest) input() service.UpdateBusinessInput {
	return service.UpdateBusinessInput{
		OwnerUserID:  r.OwnerUserID,
		BusinessName: r.BusinessName,
		OwnerName:    r.OwnerName,
		OwnerPhone:   r.OwnerPhone,
		Category:     r.Category,
		City:         r.City,
		IsActive:     r.IsActive,
	}
}

func (h HandlerSet) UpdateBusiness(c *gin.Context) {
	var req updateBusinessRequest
	if !bindJSON(c, &req) {
		return
	}

	b, err := h.businesses.Update(c.Request.Context(), c.Param("id"), req.input())
	if err != nil {
		h.fail(c, err)
		return
	}
	response.OK(c, http.StatusOK, "business_updated", gin.H{"business": newBusinessResponse(b)})
}

func (h HandlerSet) BusinessOptions(c *gin.Context) {
	items, err := h.businesses.Options(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	options := make([]businessOption, 0, len(items))
	for _, b := range items {
		options = append(options, businessOption{ID: b.ID, BusinessName: b.BusinessName})
	}
	response.OK(c, http.StatusOK, "business_options", gin.H{"businesses": options})
}

func (h HandlerSet) MyBusinesses(c *gin.Context) {
	items, err := h.businesses.ListMine(c.Request.Context(), identity(c).UserID)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.OK(c, http.StatusOK, "my_businesses", gin.H{"businesses": newBusinessResponses(items)})
}

func (h HandlerSet) MyBusiness(c *gin.Context) {
	b, err := h.businesses.GetMine(c.Request.Context(), identity(c).UserID, c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	response.OK(c, http.StatusOK, "my_business_details", gin.H{"business": newBusinessResponse(b)})
}

func (h HandlerSet) UpdateMyBusiness(c *gin.Context) {
	var req updateBusinessRequest
	if !bindJSON(c, &req) {
		return
	}

	b, err := h.businesses.UpdateMine(c.Request.Context(), identity(c).UserID, c.Param("id"), req.input())
	if err != nil {
		h.fail(c, err)
		return
	}
	response.OK(c, http.StatusOK, "business_updated", gin.H{"business": newBusinessResponse(b)})
}
