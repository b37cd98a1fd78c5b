package service

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"bizreport/api/internal/ids"
	"bizreport/api/internal/models"
	"bizreport/api/internal/repository"
	"bizreport/api/internal/security"
)

const (
	DefaultSessionWindow = 20
	minPasswordLength    = 8
)

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

type IdentityStore interface {
	Create(ctx context.Context, user models.User) error
	GetByID(ctx context.Context, id string) (models.User, error)
	FindByEmail(ctx context.Context, email string) (models.User, error)
}

type SessionStore interface {
	Create(ctx context.Context, session models.RefreshSession) error
	GetByID(ctx context.Context, id string) (models.RefreshSession, error)
	FindCandidates(ctx context.Context, userID string, limit int) ([]models.RefreshSession, error)
	Revoke(ctx context.Context, id string, at time.Time) error
	RevokeAll(ctx context.Context, userID string, at time.Time) (int64, error)
	RevokeBeyond(ctx context.Context, userID string, keep int, at time.Time) (int64, error)
}

// PruneScheduler queues background removal of a user's dead sessions.
type PruneScheduler interface {
	Schedule(userID string)
}

type AuthOptions struct {
	SessionWindow       int
	SelfAssignableRoles []models.UserRole
	Now                 func() time.Time
}

type AuthService struct {
	users      IdentityStore
	sessions   SessionStore
	codec      *security.Codec
	hasher     *security.SessionHasher
	pruner     PruneScheduler
	window     int
	assignable map[models.UserRole]bool
	now        func() time.Time
	log        zerolog.Logger
}

func NewAuthService(
	users IdentityStore,
	sessions SessionStore,
	codec *security.Codec,
	hasher *security.SessionHasher,
	pruner PruneScheduler,
	opts AuthOptions,
	log zerolog.Logger,
) *AuthService {
	if opts.SessionWindow <= 0 {
		opts.SessionWindow = DefaultSessionWindow
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	assignable := make(map[models.UserRole]bool, len(opts.SelfAssignableRoles))
	for _, role := range opts.SelfAssignableRoles {
		if role.Valid() {
			assignable[role] = true
		}
	}
	return &AuthService{
		users:      users,
		sessions:   sessions,
		codec:      codec,
		hasher:     hasher,
		pruner:     pruner,
		window:     opts.SessionWindow,
		assignable: assignable,
		now:        opts.Now,
		log:        log,
	}
}

type Credentials struct {
	AccessToken      string
	RefreshToken     string
	AccessExpiresAt  time.Time
	RefreshExpiresAt time.Time
}

type AuthResult struct {
	User        models.User
	Credentials Credentials
}

// Identity is the verified subject of an access credential.
type Identity struct {
	UserID string
	Role   models.UserRole
}

type RegisterInput struct {
	Name     string
	Email    string
	Password string
	Mobile   string
	Role     string
}

func (s *AuthService) Register(ctx context.Context, input RegisterInput) (AuthResult, error) {
	name := strings.TrimSpace(input.Name)
	email := normalizeEmail(input.Email)

	if name == "" {
		return AuthResult{}, invalid("VALIDATION_NAME_REQUIRED", "Name is required")
	}
	if !emailPattern.MatchString(email) {
		return AuthResult{}, invalid("VALIDATION_EMAIL_INVALID", "Valid email is required")
	}
	if len(input.Password) < minPasswordLength {
		return AuthResult{}, invalid("VALIDATION_PASSWORD_WEAK", "Password must be at least 8 characters")
	}

	if _, err := s.users.FindByEmail(ctx, email); err == nil {
		return AuthResult{}, errEmailExists
	} else if !errors.Is(err, repository.ErrUserNotFound) {
		return AuthResult{}, fmt.Errorf("lookup email: %w", err)
	}

	passwordHash, err := security.HashPassword(input.Password)
	if err != nil {
		return AuthResult{}, err
	}

	user := models.User{
		ID:           ids.New(),
		Name:         name,
		Email:        email,
		Mobile:       optional(input.Mobile),
		PasswordHash: passwordHash,
		Role:         s.resolveRole(input.Role),
		IsActive:     true,
		CreatedAt:    s.now(),
		UpdatedAt:    s.now(),
	}

	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicateEmail) {
			return AuthResult{}, errEmailExists
		}
		return AuthResult{}, fmt.Errorf("create user: %w", err)
	}

	creds, err := s.issue(ctx, user)
	if err != nil {
		return AuthResult{}, err
	}
	return AuthResult{User: user, Credentials: creds}, nil
}

// resolveRole honours a requested role only when it is self-assignable.
func (s *AuthService) resolveRole(requested string) models.UserRole {
	role := models.UserRole(strings.ToUpper(strings.TrimSpace(requested)))
	if s.assignable[role] {
		return role
	}
	return models.UserRoleInvestor
}

type LoginInput struct {
	Email    string
	Password string
}

// Login checks the password before the account status, so a disabled
// account is only revealed to someone who knows its password.
func (s *AuthService) Login(ctx context.Context, input LoginInput) (AuthResult, error) {
	email := normalizeEmail(input.Email)
	if !emailPattern.MatchString(email) {
		return AuthResult{}, invalid("VALIDATION_EMAIL_INVALID", "valid email is required")
	}
	if input.Password == "" {
		return AuthResult{}, invalid("VALIDATION_PASSWORD_REQUIRED", "password is required")
	}

	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			security.BurnPasswordCheck(input.Password)
			return AuthResult{}, errInvalidCredentials
		}
		return AuthResult{}, fmt.Errorf("lookup email: %w", err)
	}

	ok, err := security.VerifyPassword(input.Password, user.PasswordHash)
	if err != nil {
		s.log.Error().Err(err).Str("user_id", user.ID).Msg("stored password hash unreadable")
		return AuthResult{}, errInvalidCredentials
	}
	if !ok {
		return AuthResult{}, errInvalidCredentials
	}
	if !user.IsActive {
		return AuthResult{}, errAccountDisabled
	}

	creds, err := s.issue(ctx, user)
	if err != nil {
		return AuthResult{}, err
	}
	return AuthResult{User: user, Credentials: creds}, nil
}

var errNoMatch = errors.New("no matching session")

// Refresh rotates a refresh credential. A credential with a valid signature
// but no live session behind it has been used before, so every session of
// its subject is revoked.
func (s *AuthService) Refresh(ctx context.Context, raw string) (AuthResult, error) {
	if raw == "" {
		return AuthResult{}, s.reject("missing refresh credential", nil)
	}

	claim, err := s.codec.VerifyRefresh(raw)
	if err != nil {
		return AuthResult{}, s.reject("refresh credential rejected", err)
	}

	user, err := s.users.GetByID(ctx, claim.Subject)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return AuthResult{}, s.reject("refresh subject no longer exists", err)
		}
		return AuthResult{}, fmt.Errorf("load user: %w", err)
	}
	if !user.IsActive {
		return AuthResult{}, s.reject("refresh subject disabled", nil)
	}

	now := s.now()
	session, err := s.match(ctx, user.ID, claim, raw, now)
	if err != nil {
		if errors.Is(err, errNoMatch) {
			s.revokeAll(ctx, user.ID, now)
			return AuthResult{}, errUnauthorized
		}
		return AuthResult{}, err
	}

	if err := s.sessions.Revoke(ctx, session.ID, now); err != nil {
		if errors.Is(err, repository.ErrSessionNotFound) {
			// A concurrent rotation of the same credential won.
			s.revokeAll(ctx, user.ID, now)
			return AuthResult{}, errUnauthorized
		}
		return AuthResult{}, fmt.Errorf("revoke session: %w", err)
	}

	creds, err := s.issue(ctx, user)
	if err != nil {
		return AuthResult{}, err
	}
	return AuthResult{User: user, Credentials: creds}, nil
}

// Logout revokes the session behind raw when there is one. It never fails:
// the caller has already cleared the client's cookies.
func (s *AuthService) Logout(ctx context.Context, raw string) {
	if raw == "" {
		return
	}
	claim, err := s.codec.VerifyRefresh(raw)
	if err != nil {
		s.log.Debug().Err(err).Msg("logout with unusable refresh credential")
		return
	}

	session, err := s.match(ctx, claim.Subject, claim, raw, s.now())
	switch {
	case err == nil:
		if err := s.sessions.Revoke(ctx, session.ID, s.now()); err != nil && !errors.Is(err, repository.ErrSessionNotFound) {
			s.log.Error().Err(err).Str("user_id", claim.Subject).Msg("logout revoke failed")
		}
	case !errors.Is(err, errNoMatch):
		s.log.Error().Err(err).Str("user_id", claim.Subject).Msg("logout session lookup failed")
	}

	s.pruner.Schedule(claim.Subject)
}

// VerifyAccess checks an access credential without touching the store.
func (s *AuthService) VerifyAccess(raw string) (Identity, error) {
	if raw == "" {
		return Identity{}, errUnauthorized
	}
	claim, err := s.codec.VerifyAccess(raw)
	if err != nil {
		s.log.Debug().Err(err).Msg("access credential rejected")
		return Identity{}, errUnauthorized
	}
	return Identity{UserID: claim.Subject, Role: models.UserRole(claim.Role)}, nil
}

func (s *AuthService) Me(ctx context.Context, userID string) (models.User, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return models.User{}, notFound("AUTH_USER_NOT_FOUND", "user not found")
		}
		return models.User{}, fmt.Errorf("load user: %w", err)
	}
	return user, nil
}

// match finds the live session issued together with raw. Credentials that
// name their session are checked against that row alone; older ones fall
// back to scanning the newest sessions of the subject.
func (s *AuthService) match(ctx context.Context, userID string, claim security.Claim, raw string, now time.Time) (models.RefreshSession, error) {
	if claim.SessionID != "" {
		row, err := s.sessions.GetByID(ctx, claim.SessionID)
		if err != nil {
			if errors.Is(err, repository.ErrSessionNotFound) {
				return models.RefreshSession{}, errNoMatch
			}
			return models.RefreshSession{}, fmt.Errorf("load session: %w", err)
		}
		if row.UserID != userID || !row.Usable(now) || !s.hasher.Matches(raw, row.TokenHash) {
			return models.RefreshSession{}, errNoMatch
		}
		return row, nil
	}

	candidates, err := s.sessions.FindCandidates(ctx, userID, s.window)
	if err != nil {
		return models.RefreshSession{}, fmt.Errorf("load sessions: %w", err)
	}
	for _, row := range candidates {
		if row.Expired(now) {
			continue
		}
		if s.hasher.Matches(raw, row.TokenHash) {
			return row, nil
		}
	}
	return models.RefreshSession{}, errNoMatch
}

// issue mints a credential pair backed by a new session, then caps the
// number of usable sessions at the scan window.
func (s *AuthService) issue(ctx context.Context, user models.User) (Credentials, error) {
	claim := security.Claim{
		Subject:   user.ID,
		Role:      string(user.Role),
		SessionID: uuid.NewString(),
	}

	access, accessExp, err := s.codec.IssueAccess(claim)
	if err != nil {
		return Credentials{}, err
	}
	refresh, refreshExp, err := s.codec.IssueRefresh(claim)
	if err != nil {
		return Credentials{}, err
	}
	hash, err := s.hasher.Hash(refresh)
	if err != nil {
		return Credentials{}, err
	}

	now := s.now()
	if err := s.sessions.Create(ctx, models.RefreshSession{
		ID:        claim.SessionID,
		UserID:    user.ID,
		TokenHash: hash,
		ExpiresAt: refreshExp,
		CreatedAt: now,
	}); err != nil {
		return Credentials{}, fmt.Errorf("persist session: %w", err)
	}

	if n, err := s.sessions.RevokeBeyond(ctx, user.ID, s.window, now); err != nil {
		s.log.Warn().Err(err).Str("user_id", user.ID).Msg("session cap failed")
	} else if n > 0 {
		s.log.Debug().Str("user_id", user.ID).Int64("revoked", n).Msg("session cap applied")
	}
	s.pruner.Schedule(user.ID)

	return Credentials{
		AccessToken:      access,
		RefreshToken:     refresh,
		AccessExpiresAt:  accessExp,
		RefreshExpiresAt: refreshExp,
	}, nil
}

func (s *AuthService) revokeAll(ctx context.Context, userID string, now time.Time) {
	n, err := s.sessions.RevokeAll(ctx, userID, now)
	if err != nil {
		s.log.Error().Err(err).Str("user_id", userID).Msg("revoke all after refresh reuse failed")
		return
	}
	s.log.Warn().Str("user_id", userID).Int64("revoked", n).Msg("refresh credential reuse detected")
}

func (s *AuthService) reject(reason string, cause error) error {
	s.log.Debug().Err(cause).Msg(reason)
	return errUnauthorized
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func optional(value string) *string {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}
	return &value
}
