package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"bizreport/api/internal/response"
	"bizreport/api/internal/service"
)

func userListQuery(c *gin.Context) service.UserListQuery {
	return service.UserListQuery{
		Page:     service.ParseInt(c.Query("page")),
		Limit:    service.ParseInt(c.Query("limit")),
		Search:   c.Query("search"),
		Role:     c.Query("role"),
		Tab:      c.Query("tab"),
		IsActive: c.Query("isActive"),
		SortBy:   c.Query("sortBy"),
		Order:    c.Query("order"),
	}
}

func (h HandlerSet) ListUsers(c *gin.Context) {
	list, err := h.users.List(c.Request.Context(), userListQuery(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	response.OK(c, http.StatusOK, "users_list", gin.H{
		"users":          newUserResponses(list.Users),
		"pagination":     list.Pagination,
		"appliedFilters": list.Filters,
	})
}

func (h HandlerSet) UsersOverview(c *gin.Context) {
	overview, err := h.users.Overview(c.Request.Context(), userListQuery(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	response.OK(c, http.StatusOK, "users_overview", gin.H{
		"users":          newUserResponses(overview.Users),
		"pagination":     overview.Pagination,
		"stats":          overview.Stats,
		"appliedFilters": overview.Filters,
	})
}

func (h HandlerSet) UserStats(c *gin.Context) {
	stats, err := h.users.Stats(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	response.OK(c, http.StatusOK, "users_stats", stats)
}

func (h HandlerSet) UserOptions(c *gin.Context) {
	users, err := h.users.Options(c.Request.Context(), c.Query("role"))
	if err != nil {
		h.fail(c, err)
		return
	}
	response.OK(c, http.StatusOK, "user_options", gin.H{"users": newUserResponses(users)})
}

type createUserRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role"`
	Mobile   string `json:"mobile"`
}

func (h HandlerSet) CreateUser(c *gin.Context) {
	var req createUserRequest
	if !bindJSON(c, &req) {
		return
	}

	user, err := h.users.Create(c.Request.Context(), service.CreateUserInput{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
		Role:     req.Role,
		Mobile:   req.Mobile,
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	response.OK(c, http.StatusCreated, "user_created", gin.H{"user": newUserResponse(user)})
}

func (h HandlerSet) GetUser(c *gin.Context) {
	user, err := h.users.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	response.OK(c, http.StatusOK, "user_details", gin.H{"user": newUserResponse(user)})
}

type updateUserRequest struct {
	Name     *string `json:"name"`
	Role     *string `json:"role"`
	Mobile   *string `json:"mobile"`
	IsActive *bool   `json:"isActive"`
}

func (h HandlerSet) UpdateUser(c *gin.Context) {
	var req updateUserRequest
	if !bindJSON(c, &req) {
		return
	}

	user, err := h.users.Update(c.Request.Context(), c.Param("id"), service.UpdateUserInput{
		Name:     req.Name,
		Role:     req.Role,
		Mobile:   req.Mobile,
		IsActive: req.IsActive,
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	response.OK(c, http.StatusOK, "user_updated", gin.H{"user": newUserResponse(user)})
}

type userStatusRequest struct {
	IsActive *bool `json:"isActive"`
}

func (h HandlerSet) SetUserStatus(c *gin.Context) {
	var req userStatusRequest
	if !bindJSON(c, &req) {
		return
	}

	user, err := h.users.SetStatus(c.Request.Context(), identity(c).UserID, c.Param("id"), req.IsActive)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.OK(c, http.StatusOK, "user_status_updated", gin.H{"user": newUserResponse(user)})
}
