package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"bizreport/api/internal/ids"
	"bizreport/api/internal/models"
	"bizreport/api/internal/repository"
	"bizreport/api/internal/security"
)

const userOptionsLimit = 500

type UserDirectory interface {
	Create(ctx context.Context, user models.User) error
	GetByID(ctx context.Context, id string) (models.User, error)
	FindByEmail(ctx context.Context, email string) (models.User, error)
	List(ctx context.Context, filter repository.UserFilter) ([]models.User, int, error)
	Update(ctx context.Context, user models.User) error
	SetActive(ctx context.Context, id string, active bool) error
	CountByRole(ctx context.Context) (map[models.UserRole]int, error)
	Options(ctx context.Context, role *models.UserRole, limit int) ([]models.User, error)
}

type UserService struct {
	users UserDirectory
	now   func() time.Time
	log   zerolog.Logger
}

func NewUserService(users UserDirectory, log zerolog.Logger) *UserService {
	return &UserService{users: users, now: time.Now, log: log}
}

type UserListQuery struct {
	Page     int
	Limit    int
	Search   string
	Role     string
	Tab      string
	IsActive string
	SortBy   string
	Order    string
}

// AppliedUserFilters echoes the filters a listing was resolved with.
type AppliedUserFilters struct {
	Tab      string           `json:"tab"`
	Role     *models.UserRole `json:"role"`
	Search   *string          `json:"search"`
	IsActive *bool            `json:"isActive"`
	SortBy   string           `json:"sortBy"`
	Order    string           `json:"order"`
}

type UserList struct {
	Users      []models.User
	Pagination Pagination
	Filters    AppliedUserFilters
}

type UserStats struct {
	TotalUsers   int                     `json:"totalUsers"`
	CountsByRole map[models.UserRole]int `json:"countsByRole"`
}

type UserOverview struct {
	UserList
	Stats UserStats
}

var tabRoles = map[string]models.UserRole{
	"admins":    models.UserRoleAdmin,
	"owners":    models.UserRoleBusinessOwner,
	"investors": models.UserRoleInvestor,
}

func (s *UserService) List(ctx context.Context, q UserListQuery) (UserList, error) {
	page := NewPageRequest(q.Page, q.Limit)
	filters, err := resolveUserFilters(q)
	if err != nil {
		return UserList{}, err
	}

	filter := repository.UserFilter{
		Role:     filters.Role,
		IsActive: filters.IsActive,
		SortBy:   filters.SortBy,
		Desc:     filters.Order == "desc",
		Limit:    page.Limit,
		Offset:   page.Offset(),
	}
	if filters.Search != nil {
		filter.Search = *filters.Search
	}
	if filter.SortBy == "createdAt" {
		filter.SortBy = "created_at"
	}

	users, total, err := s.users.List(ctx, filter)
	if err != nil {
		return UserList{}, fmt.Errorf("list users: %w", err)
	}
	return UserList{Users: users, Pagination: NewPagination(total, page), Filters: filters}, nil
}

// resolveUserFilters applies the tab mapping first; an explicit role
// overrides it.
func resolveUserFilters(q UserListQuery) (AppliedUserFilters, error) {
	filters := AppliedUserFilters{Tab: "all", SortBy: "createdAt", Order: "desc"}

	if tab := strings.ToLower(strings.TrimSpace(q.Tab)); tab != "" {
		filters.Tab = tab
		if role, ok := tabRoles[tab]; ok {
			filters.Role = &role
		}
	}
	if raw := strings.TrimSpace(q.Role); raw != "" {
		role := models.UserRole(strings.ToUpper(raw))
		if !role.Valid() {
			return AppliedUserFilters{}, invalid("VALIDATION_ROLE_INVALID", "Invalid role")
		}
		filters.Role = &role
	}
	if search := strings.TrimSpace(q.Search); search != "" {
		filters.Search = &search
	}
	if raw := strings.TrimSpace(q.IsActive); raw != "" {
		active := strings.EqualFold(raw, "true")
		filters.IsActive = &active
	}
	if q.SortBy == "name" {
		filters.SortBy = "name"
	}
	if strings.EqualFold(strings.TrimSpace(q.Order), "asc") {
		filters.Order = "asc"
	}
	return filters, nil
}

type CreateUserInput struct {
	Name     string
	Email    string
	Password string
	Role     string
	Mobile   string
}

func (s *UserService) Create(ctx context.Context, input CreateUserInput) (models.User, error) {
	name := strings.TrimSpace(input.Name)
	email := normalizeEmail(input.Email)
	role := models.UserRole(strings.TrimSpace(input.Role))

	if name == "" {
		return models.User{}, invalid("VALIDATION_NAME_REQUIRED", "Name is required")
	}
	if !emailPattern.MatchString(email) {
		return models.User{}, invalid("VALIDATION_EMAIL_INVALID", "Valid email is required")
	}
	if len(input.Password) < minPasswordLength {
		return models.User{}, invalid("VALIDATION_PASSWORD_WEAK", "Password must be at least 8 characters")
	}
	if !role.Valid() {
		return models.User{}, invalid("VALIDATION_ROLE_INVALID", "Valid role is required")
	}

	if _, err := s.users.FindByEmail(ctx, email); err == nil {
		return models.User{}, errEmailExists
	} else if !errors.Is(err, repository.ErrUserNotFound) {
		return models.User{}, fmt.Errorf("lookup email: %w", err)
	}

	passwordHash, err := security.HashPassword(input.Password)
	if err != nil {
		return models.User{}, err
	}

	now := s.now()
	user := models.User{
		ID:           ids.New(),
		Name:         name,
		Email:        email,
		Mobile:       optional(input.Mobile),
		PasswordHash: passwordHash,
		Role:         role,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicateEmail) {
			return models.User{}, errEmailExists
		}
		return models.User{}, fmt.Errorf("create user: %w", err)
	}

	s.log.Info().Str("user_id", user.ID).Str("role", string(role)).Msg("user created by admin")
	return user, nil
}

func (s *UserService) Get(ctx context.Context, id string) (models.User, error) {
	if !ids.Valid(id) {
		return models.User{}, invalid("VALIDATION_ID_INVALID", "Invalid user id")
	}
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return models.User{}, notFound("USER_NOT_FOUND", "User not found")
		}
		return models.User{}, fmt.Errorf("load user: %w", err)
	}
	return user, nil
}

// UpdateUserInput holds the editable profile fields; nil leaves a field
// unchanged and an empty Mobile clears it. Email and password are not
// editable here.
type UpdateUserInput struct {
	Name     *string
	Role     *string
	Mobile   *string
	IsActive *bool
}

func (s *UserService) Update(ctx context.Context, id string, input UpdateUserInput) (models.User, error) {
	user, err := s.Get(ctx, id)
	if err != nil {
		return models.User{}, err
	}

	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			return models.User{}, invalid("VALIDATION_NAME_INVALID", "Name is invalid")
		}
		user.Name = name
	}
	if input.Role != nil {
		role := models.UserRole(*input.Role)
		if !role.Valid() {
			return models.User{}, invalid("VALIDATION_ROLE_INVALID", "Role is invalid")
		}
		user.Role = role
	}
	if input.Mobile != nil {
		user.Mobile = optional(*input.Mobile)
	}
	if input.IsActive != nil {
		user.IsActive = *input.IsActive
	}

	if err := s.users.Update(ctx, user); err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return models.User{}, notFound("USER_NOT_FOUND", "User not found")
		}
		return models.User{}, fmt.Errorf("update user: %w", err)
	}
	user.UpdatedAt = s.now()
	return user, nil
}

// SetStatus enables or disables an account. An admin cannot disable the
// account they are acting from.
func (s *UserService) SetStatus(ctx context.Context, actorID string, id string, isActive *bool) (models.User, error) {
	if !ids.Valid(id) {
		return models.User{}, invalid("VALIDATION_ID_INVALID", "Invalid user id")
	}
	if isActive == nil {
		return models.User{}, invalid("VALIDATION_IS_ACTIVE_REQUIRED", "isActive is required")
	}

	user, err := s.Get(ctx, id)
	if err != nil {
		return models.User{}, err
	}
	if user.ID == actorID && !*isActive {
		return models.User{}, forbidden("AUTH_SELF_DISABLE_FORBIDDEN", "You cannot disable your own account")
	}

	if err := s.users.SetActive(ctx, user.ID, *isActive); err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return models.User{}, notFound("USER_NOT_FOUND", "User not found")
		}
		return models.User{}, fmt.Errorf("set user status: %w", err)
	}
	user.IsActive = *isActive
	user.UpdatedAt = s.now()

	s.log.Info().Str("user_id", user.ID).Str("actor_id", actorID).Bool("active", *isActive).Msg("user status changed")
	return user, nil
}

func (s *UserService) Stats(ctx context.Context) (UserStats, error) {
	counts, err := s.users.CountByRole(ctx)
	if err != nil {
		return UserStats{}, fmt.Errorf("count users: %w", err)
	}
	stats := UserStats{CountsByRole: make(map[models.UserRole]int, len(models.Roles))}
	for _, role := range models.Roles {
		stats.CountsByRole[role] = counts[role]
		stats.TotalUsers += counts[role]
	}
	return stats, nil
}

func (s *UserService) Overview(ctx context.Context, q UserListQuery) (UserOverview, error) {
	list, err := s.List(ctx, q)
	if err != nil {
		return UserOverview{}, err
	}
	stats, err := s.Stats(ctx)
	if err != nil {
		return UserOverview{}, err
	}
	return UserOverview{UserList: list, Stats: stats}, nil
}

func (s *UserService) Options(ctx context.Context, role string) ([]models.User, error) {
	var filter *models.UserRole
	if raw := strings.TrimSpace(role); raw != "" {
		r := models.UserRole(strings.ToUpper(raw))
		if !r.Valid() {
			return nil, invalid("VALIDATION_ROLE_INVALID", "Invalid role")
		}
		filter = &r
	}
	users, err := s.users.Options(ctx, filter, userOptionsLimit)
	if err != nil {
		return nil, fmt.Errorf("list user options: %w", err)
	}
	return users, nil
}
