package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"bizreport/api/internal/middleware"
	"bizreport/api/internal/models"
	"bizreport/api/internal/response"
	"bizreport/api/internal/security"
	"bizreport/api/internal/service"
)

type Authenticator interface {
	Register(ctx context.Context, input service.RegisterInput) (service.AuthResult, error)
	Login(ctx context.Context, input service.LoginInput) (service.AuthResult, error)
	Refresh(ctx context.Context, raw string) (service.AuthResult, error)
	Logout(ctx context.Context, raw string)
	VerifyAccess(raw string) (service.Identity, error)
	Me(ctx context.Context, userID string) (models.User, error)
}

type UserAdmin interface {
	List(ctx context.Context, q service.UserListQuery) (service.UserList, error)
	Create(ctx context.Context, input service.CreateUserInput) (models.User, error)
	Get(ctx context.Context, id string) (models.User, error)
	Update(ctx context.Context, id string, input service.UpdateUserInput) (models.User, error)
	SetStatus(ctx context.Context, actorID string, id string, isActive *bool) (models.User, error)
	Stats(ctx context.Context) (service.UserStats, error)
	Overview(ctx context.Context, q service.UserListQuery) (service.UserOverview, error)
	Options(ctx context.Context, role string) ([]models.User, error)
}

type BusinessManager interface {
	List(ctx context.Context, page service.PageRequest, search string) (service.BusinessList, error)
	Create(ctx context.Context, input service.CreateBusinessInput) (models.Business, error)
	Get(ctx context.Context, id string) (models.Business, error)
	Update(ctx context.Context, id string, input service.UpdateBusinessInput) (models.Business, error)
	Options(ctx context.Context) ([]models.Business, error)
	ListMine(ctx context.Context, ownerUserID string) ([]models.Business, error)
	GetMine(ctx context.Context, ownerUserID string, id string) (models.Business, error)
	UpdateMine(ctx context.Context, ownerUserID string, id string, input service.UpdateBusinessInput) (models.Business, error)
}

type ReportManager interface {
	Create(ctx context.Context, input service.CreateReportInput) (service.ReportDetail, error)
	ListMine(ctx context.Context, ownerUserID string, q service.ReportListQuery) (service.ReportList, error)
	List(ctx context.Context, q service.ReportListQuery) (service.ReportList, error)
	Get(ctx context.Context, id string) (service.ReportDetail, error)
	GetMine(ctx context.Context, ownerUserID string, id string) (service.ReportDetail, error)
	StatsMine(ctx context.Context, ownerUserID string) (service.ReportStats, error)
}

type Dashboards interface {
	AdminOverview(ctx context.Context) (service.AdminOverview, error)
	OwnerOverview(ctx context.Context, ownerUserID string) (service.OwnerOverview, error)
}

// HealthCheck probes one backing service.
type HealthCheck struct {
	Name  string
	Probe func(ctx context.Context) error
}

type Deps struct {
	Environment    string
	Cookies        *security.CookieBinder
	Auth           Authenticator
	Users          UserAdmin
	Businesses     BusinessManager
	Reports        ReportManager
	Dashboards     Dashboards
	Checks         []HealthCheck
	MaxUploadBytes int64
}

type HandlerSet struct {
	log            zerolog.Logger
	env            string
	cookies        *security.CookieBinder
	auth           Authenticator
	users          UserAdmin
	businesses     BusinessManager
	reports        ReportManager
	dashboards     Dashboards
	checks         []HealthCheck
	maxUploadBytes int64
}

func NewHandlerSet(log zerolog.Logger, deps Deps) HandlerSet {
	return HandlerSet{
		log:            log,
		env:            deps.Environment,
		cookies:        deps.Cookies,
		auth:           deps.Auth,
		users:          deps.Users,
		businesses:     deps.Businesses,
		reports:        deps.Reports,
		dashboards:     deps.Dashboards,
		checks:         deps.Checks,
		maxUploadBytes: deps.MaxUploadBytes,
	}
}

func (h HandlerSet) Register(router *gin.RouterGroup) {
	router.GET("/health", h.Health)
	router.GET("/ping", h.Ping)

	requireAuth := middleware.Auth(h.auth, h.cookies)

	auth := router.Group("/auth")
	{
		auth.POST("/register", h.RegisterUser)
		auth.POST("/login", h.Login)
		auth.POST("/refresh", h.Refresh)
		auth.POST("/logout", h.Logout)
		auth.GET("/me", requireAuth, h.Me)
	}

	router.GET("/investor/ping", requireAuth, middleware.RequireRoles(models.UserRoleInvestor), h.RolePing("investor pong"))

	admin := router.Group("/admin")
	admin.Use(requireAuth, middleware.RequireRoles(models.UserRoleAdmin))
	{
		admin.GET("/ping", h.RolePing("admin pong"))

		admin.GET("/users", h.ListUsers)
		admin.POST("/users", h.CreateUser)
		admin.GET("/users/stats", h.UserStats)
		admin.GET("/users/overview", h.UsersOverview)
		admin.GET("/users/options", h.UserOptions)
		admin.PATCH("/users/:id/status", h.SetUserStatus)
		admin.GET("/users/:id", h.GetUser)
		admin.PUT("/users/:id", h.UpdateUser)

		admin.GET("/businesses", h.ListBusinesses)
		admin.POST("/businesses", h.CreateBusiness)
		admin.GET("/businesses/options", h.BusinessOptions)
		admin.GET("/businesses/:id", h.GetBusiness)
		admin.PUT("/businesses/:id", h.UpdateBusiness)

		admin.GET("/reports", h.AdminListReports)
		admin.GET("/reports/:id", h.AdminGetReport)

		admin.GET("/dashboard/overview", h.AdminOverview)
	}

	owner := router.Group("/business-owner")
	owner.Use(requireAuth, middleware.RequireRoles(models.UserRoleBusinessOwner))
	{
		owner.GET("/ping", h.RolePing("business owner pong"))

		owner.GET("/businesses", h.MyBusinesses)
		owner.GET("/businesses/:id", h.MyBusiness)
		owner.PUT("/businesses/:id", h.UpdateMyBusiness)

		owner.POST("/reports", h.CreateReport)
		owner.GET("/reports", h.MyReports)
		owner.GET("/reports/stats", h.MyReportStats)
		owner.GET("/reports/:id", h.MyReport)

		owner.GET("/dashboard/overview", h.OwnerOverview)
	}
}

// NotFound answers unmatched routes.
func NotFound(c *gin.Context) {
	response.Fail(c, http.StatusNotFound, "Route not found", "ROUTE_NOT_FOUND")
}

// identity is only called behind middleware.Auth.
func identity(c *gin.Context) service.Identity {
	id, _ := middleware.CurrentIdentity(c)
	return id
}
