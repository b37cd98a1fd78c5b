package service

import (
	"context"
	"testing"

	"github.com/rs/zerolog"

	"bizreport/api/internal/ids"
	"bizreport/api/internal/models"
)

func newUserEnv(t *testing.T) (*UserService, *fakeUsers) {
	t.Helper()
	users := newFakeUsers()
	return NewUserService(users, zerolog.Nop()), users
}

func seedUser(users *fakeUsers, role models.UserRole, active bool) models.User {
	u := models.User{ID: ids.New(), Name: "user " + string(role), Email: ids.New() + "@example.com", Role: role, IsActive: active}
	users.put(u)
	return u
}

func TestResolveUserFilters(t *testing.T) {
	admin := models.UserRoleAdmin
	owner := models.UserRoleBusinessOwner

	tests := []struct {
		name     string
		query    UserListQuery
		wantTab  string
		wantRole *models.UserRole
		wantSort string
		wantDir  string
	}{
		{"defaults", UserListQuery{}, "all", nil, "createdAt", "desc"},
		{"tab maps to role", UserListQuery{Tab: "Admins"}, "admins", &admin, "createdAt", "desc"},
		{"role overrides tab", UserListQuery{Tab: "admins", Role: "business_owner"}, "admins", &owner, "createdAt", "desc"},
		{"unknown tab is unfiltered", UserListQuery{Tab: "everyone"}, "everyone", nil, "createdAt", "desc"},
		{"sort by name asc", UserListQuery{SortBy: "name", Order: "ASC"}, "all", nil, "name", "asc"},
		{"unknown sort falls back", UserListQuery{SortBy: "password_hash"}, "all", nil, "createdAt", "desc"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := resolveUserFilters(tt.query)
			if err != nil {
				t.Fatalf("resolveUserFilters() error: %v", err)
			}
			if got.Tab != tt.wantTab || got.SortBy != tt.wantSort || got.Order != tt.wantDir {
				t.Fatalf("resolveUserFilters() = %+v", got)
			}
			if (got.Role == nil) != (tt.wantRole == nil) || (got.Role != nil && *got.Role != *tt.wantRole) {
				t.Fatalf("role = %v, want %v", got.Role, tt.wantRole)
			}
		})
	}

	_, err := resolveUserFilters(UserListQuery{Role: "ROOT"})
	assertCode(t, err, ErrInvalidInput, "VALIDATION_ROLE_INVALID")
}

func TestUserServiceList(t *testing.T) {
	svc, users := newUserEnv(t)
	for i := 0; i < 3; i++ {
		seedUser(users, models.UserRoleInvestor, true)
	}
	seedUser(users, models.UserRoleInvestor, false)
	seedUser(users, models.UserRoleAdmin, true)

	list, err := svc.List(context.Background(), UserListQuery{Tab: "investors", IsActive: "true", Limit: 2, Page: 2, SortBy: "createdAt"})
	if err != nil {
		t.Fatalf("List() error: %v", err)
	}
	if list.Pagination.Total != 3 || list.Pagination.TotalPages != 2 || len(list.Users) != 1 {
		t.Fatalf("List() pagination = %+v, users = %d", list.Pagination, len(list.Users))
	}
	if users.lastFilter.SortBy != "created_at" || !users.lastFilter.Desc || users.lastFilter.Offset != 2 {
		t.Fatalf("repository filter = %+v", users.lastFilter)
	}
	if list.Filters.IsActive == nil || !*list.Filters.IsActive {
		t.Fatalf("applied isActive = %v", list.Filters.IsActive)
	}
}

func TestUserServiceCreate(t *testing.T) {
	svc, users := newUserEnv(t)
	ctx := context.Background()

	tests := []struct {
		name  string
		input CreateUserInput
		code  string
	}{
		{"missing name", CreateUserInput{Email: "a@b.co", Password: "longenough", Role: "ADMIN"}, "VALIDATION_NAME_REQUIRED"},
		{"bad email", CreateUserInput{Name: "A", Email: "nope", Password: "longenough", Role: "ADMIN"}, "VALIDATION_EMAIL_INVALID"},
		{"short password", CreateUserInput{Name: "A", Email: "a@b.co", Password: "123456", Role: "ADMIN"}, "VALIDATION_PASSWORD_WEAK"},
		{"missing role", CreateUserInput{Name: "A", Email: "a@b.co", Password: "longenough"}, "VALIDATION_ROLE_INVALID"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Create(ctx, tt.input)
			assertCode(t, err, ErrInvalidInput, tt.code)
		})
	}

	user, err := svc.Create(ctx, CreateUserInput{Name: " Ada ", Email: "Ada@Example.com", Password: "longenough", Role: "ADMIN", Mobile: " 555 "})
	if err != nil {
		t.Fatalf("Create() error: %v", err)
	}
	if user.Name != "Ada" || user.Email != "ada@example.com" || user.Mobile == nil || *user.Mobile != "555" || !user.IsActive {
		t.Fatalf("Create() = %+v", user)
	}
	if _, err := users.GetByID(ctx, user.ID); err != nil {
		t.Fatalf("created user not stored: %v", err)
	}

	_, err = svc.Create(ctx, CreateUserInput{Name: "B", Email: "ada@example.com", Password: "longenough", Role: "INVESTOR"})
	assertCode(t, err, ErrDuplicateIdentity, "AUTH_EMAIL_EXISTS")
}

func TestUserServiceGetAndUpdate(t *testing.T) {
	svc, users := newUserEnv(t)
	ctx := context.Background()
	u := seedUser(users, models.UserRoleInvestor, true)

	_, err := svc.Get(ctx, "42")
	assertCode(t, err, ErrInvalidInput, "VALIDATION_ID_INVALID")
	_, err = svc.Get(ctx, ids.New())
	assertCode(t, err, ErrNotFound, "USER_NOT_FOUND")

	blank := "  "
	_, err = svc.Update(ctx, u.ID, UpdateUserInput{Name: &blank})
	assertCode(t, err, ErrInvalidInput, "VALIDATION_NAME_INVALID")

	root := "ROOT"
	_, err = svc.Update(ctx, u.ID, UpdateUserInput{Role: &root})
	assertCode(t, err, ErrInvalidInput, "VALIDATION_ROLE_INVALID")

	name, role, mobile, off := "Renamed", "BUSINESS_OWNER", "", false
	updated, err := svc.Update(ctx, u.ID, UpdateUserInput{Name: &name, Role: &role, Mobile: &mobile, IsActive: &off})
	if err != nil {
		t.Fatalf("Update() error: %v", err)
	}
	if updated.Name != name || updated.Role != models.UserRoleBusinessOwner || updated.Mobile != nil || updated.IsActive {
		t.Fatalf("Update() = %+v", updated)
	}
	if updated.Email != u.Email {
		t.Fatalf("email changed to %q", updated.Email)
	}
}

func TestUserServiceSetStatus(t *testing.T) {
	svc, users := newUserEnv(t)
	ctx := context.Background()
	admin := seedUser(users, models.UserRoleAdmin, true)
	other := seedUser(users, models.UserRoleInvestor, true)
	off, on := false, true

	_, err := svc.SetStatus(ctx, admin.ID, other.ID, nil)
	assertCode(t, err, ErrInvalidInput, "VALIDATION_IS_ACTIVE_REQUIRED")

	_, err = svc.SetStatus(ctx, admin.ID, admin.ID, &off)
	assertCode(t, err, ErrForbidden, "AUTH_SELF_DISABLE_FORBIDDEN")

	if _, err := svc.SetStatus(ctx, admin.ID, admin.ID, &on); err != nil {
		t.Fatalf("self enable error: %v", err)
	}

	got, err := svc.SetStatus(ctx, admin.ID, other.ID, &off)
	if err != nil {
		t.Fatalf("SetStatus() error: %v", err)
	}
	stored, _ := users.GetByID(ctx, other.ID)
	if got.IsActive || stored.IsActive {
		t.Fatalf("SetStatus() did not disable: got %v stored %v", got.IsActive, stored.IsActive)
	}
}

func TestUserServiceStatsAndOptions(t *testing.T) {
	svc, users := newUserEnv(t)
	ctx := context.Background()
	seedUser(users, models.UserRoleAdmin, true)
	seedUser(users, models.UserRoleInvestor, true)
	seedUser(users, models.UserRoleInvestor, false)

	stats, err := svc.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats() error: %v", err)
	}
	if stats.TotalUsers != 3 || stats.CountsByRole[models.UserRoleInvestor] != 2 {
		t.Fatalf("Stats() = %+v", stats)
	}
	if n, ok := stats.CountsByRole[models.UserRoleBusinessOwner]; !ok || n != 0 {
		t.Fatalf("roles without users must be zero-filled, got %v", stats.CountsByRole)
	}

	opts, err := svc.Options(ctx, "investor")
	if err != nil || len(opts) != 2 {
		t.Fatalf("Options() = %d users, err %v", len(opts), err)
	}
	_, err = svc.Options(ctx, "nobody")
	assertCode(t, err, ErrInvalidInput, "VALIDATION_ROLE_INVALID")

	overview, err := svc.Overview(ctx, UserListQuery{})
	if err != nil {
		t.Fatalf("Overview() error: %v", err)
	}
	if overview.Pagination.Total != 3 || overview.Stats.TotalUsers != 3 {
		t.Fatalf("Overview() = %+v", overview)
	}
}
