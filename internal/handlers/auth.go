package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"bizreport/api/internal/response"
	"bizreport/api/internal/service"
)

type registerRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Mobile   string `json:"mobile"`
	Role     string `json:"role"`
}

func (h HandlerSet) RegisterUser(c *gin.Context) {
	var req registerRequest
	if !bindJSON(c, &req) {
		return
	}

	result, err := h.auth.Register(c.Request.Context(), service.RegisterInput{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
		Mobile:   req.Mobile,
		Role:     req.Role,
	})
	if err != nil {
		h.fail(c, err)
		return
	}

	h.sendAuth(c, http.StatusCreated, "registered", result)
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h HandlerSet) Login(c *gin.Context) {
	var req loginRequest
	if !bindJSON(c, &req) {
		return
	}

	result, err := h.auth.Login(c.Request.Context(), service.LoginInput{
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		h.fail(c, err)
		return
	}

	h.sendAuth(c, http.StatusOK, "logged_in", result)
}

// Refresh rotates the pair carried by the refresh cookie. A rejected
// credential also clears both cookies.
func (h HandlerSet) Refresh(c *gin.Context) {
	result, err := h.auth.Refresh(c.Request.Context(), h.cookies.Refresh(c))
	if err != nil {
		h.cookies.Clear(c)
		h.fail(c, err)
		return
	}

	h.sendAuth(c, http.StatusOK, "refreshed", result)
}

func (h HandlerSet) Logout(c *gin.Context) {
	raw := h.cookies.Refresh(c)
	h.cookies.Clear(c)
	h.auth.Logout(c.Request.Context(), raw)
	response.OK(c, http.StatusOK, "logged_out", nil)
}

func (h HandlerSet) Me(c *gin.Context) {
	user, err := h.auth.Me(c.Request.Context(), identity(c).UserID)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.OK(c, http.StatusOK, "me", gin.H{"user": newUserResponse(user)})
}

func (h HandlerSet) sendAuth(c *gin.Context, status int, message string, result service.AuthResult) {
	h.cookies.SetPair(c, result.Credentials.AccessToken, result.Credentials.RefreshToken)
	response.OK(c, status, message, gin.H{"user": newUserResponse(result.User)})
}
