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
)

const (
	businessOptionsLimit = 1000
	ownerBusinessLimit   = 500
)

type BusinessStore interface {
	Create(ctx context.Context, b models.Business) error
	GetByID(ctx context.Context, id string) (models.Business, error)
	GetOwned(ctx context.Context, id string, ownerUserID string) (models.Business, error)
	List(ctx context.Context, filter repository.BusinessFilter) ([]models.Business, int, error)
	Update(ctx context.Context, b models.Business) error
	Options(ctx context.Context, limit int) ([]models.Business, error)
	Recent(ctx context.Context, ownerUserID string, limit int) ([]models.Business, error)
}

// UserLookup resolves the account a business is assigned to.
type UserLookup interface {
	GetByID(ctx context.Context, id string) (models.User, error)
}

type BusinessService struct {
	businesses BusinessStore
	users      UserLookup
	now        func() time.Time
	log        zerolog.Logger
}

func NewBusinessService(businesses BusinessStore, users UserLookup, log zerolog.Logger) *BusinessService {
	return &BusinessService{businesses: businesses, users: users, now: time.Now, log: log}
}

var errBusinessNotFound = &Error{Kind: ErrNotFound, Code: "BUSINESS_NOT_FOUND", Message: "Business not found"}

type BusinessList struct {
	Businesses []models.Business
	Pagination Pagination
	Search     *string
}

func (s *BusinessService) List(ctx context.Context, page PageRequest, search string) (BusinessList, error) {
	search = strings.TrimSpace(search)
	items, total, err := s.businesses.List(ctx, repository.BusinessFilter{
		Search: search,
		Limit:  page.Limit,
		Offset: page.Offset(),
	})
	if err != nil {
		return BusinessList{}, fmt.Errorf("list businesses: %w", err)
	}
	out := BusinessList{Businesses: items, Pagination: NewPagination(total, page)}
	if search != "" {
		out.Search = &search
	}
	return out, nil
}

type CreateBusinessInput struct {
	OwnerUserID  string
	BusinessName string
	OwnerName    string
	OwnerPhone   string
	Category     string
	City         string
}

func (s *BusinessService) Create(ctx context.Context, input CreateBusinessInput) (models.Business, error) {
	b := models.Business{
		ID:           ids.New(),
		BusinessName: strings.TrimSpace(input.BusinessName),
		OwnerName:    strings.TrimSpace(input.OwnerName),
		OwnerPhone:   optional(input.OwnerPhone),
		Category:     strings.TrimSpace(input.Category),
		City:         strings.TrimSpace(input.City),
		IsActive:     true,
	}

	switch {
	case b.BusinessName == "":
		return models.Business{}, invalid("VALIDATION_BUSINESS_NAME_REQUIRED", "Business name is required")
	case b.OwnerName == "":
		return models.Business{}, invalid("VALIDATION_OWNER_NAME_REQUIRED", "Owner name is required")
	case b.Category == "":
		return models.Business{}, invalid("VALIDATION_CATEGORY_REQUIRED", "Category is required")
	case b.City == "":
		return models.Business{}, invalid("VALIDATION_CITY_REQUIRED", "City is required")
	}

	if owner := strings.TrimSpace(input.OwnerUserID); owner != "" {
		if err := s.checkOwner(ctx, owner); err != nil {
			return models.Business{}, err
		}
		b.OwnerUserID = &owner
	}

	if err := s.businesses.Create(ctx, b); err != nil {
		return models.Business{}, fmt.Errorf("create business: %w", err)
	}
	now := s.now()
	b.CreatedAt, b.UpdatedAt = now, now
	return b, nil
}

// checkOwner accepts only existing BUSINESS_OWNER accounts as assignees.
func (s *BusinessService) checkOwner(ctx context.Context, userID string) error {
	if !ids.Valid(userID) {
		return invalid("VALIDATION_OWNER_USER_INVALID", "Owner user is invalid")
	}
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return invalid("VALIDATION_OWNER_USER_INVALID", "Owner user is invalid")
		}
		return fmt.Errorf("load owner: %w", err)
	}
	if user.Role != models.UserRoleBusinessOwner {
		return invalid("VALIDATION_OWNER_USER_INVALID", "Owner user must be a business owner")
	}
	return nil
}

func (s *BusinessService) Get(ctx context.Context, id string) (models.Business, error) {
	if !ids.Valid(id) {
		return models.Business{}, invalid("VALIDATION_ID_INVALID", "Invalid business id")
	}
	return s.load(s.businesses.GetByID(ctx, id))
}

// UpdateBusinessInput holds optional changes. A non-nil empty OwnerPhone
// clears the phone; a non-nil empty OwnerUserID unassigns the business.
type UpdateBusinessInput struct {
	OwnerUserID  *string
	BusinessName *string
	OwnerName    *string
	OwnerPhone   *string
	Category     *string
	City         *string
	IsActive     *bool
}

func (s *BusinessService) Update(ctx context.Context, id string, input UpdateBusinessInput) (models.Business, error) {
	b, err := s.Get(ctx, id)
	if err != nil {
		return models.Business{}, err
	}

	if input.OwnerUserID != nil {
		owner := strings.TrimSpace(*input.OwnerUserID)
		if owner == "" {
			b.OwnerUserID = nil
		} else {
			if err := s.checkOwner(ctx, owner); err != nil {
				return models.Business{}, err
			}
			b.OwnerUserID = &owner
		}
	}
	if err := applyBusinessFields(&b, input); err != nil {
		return models.Business{}, err
	}
	return s.save(ctx, b)
}

func (s *BusinessService) Options(ctx context.Context) ([]models.Business, error) {
	items, err := s.businesses.Options(ctx, businessOptionsLimit)
	if err != nil {
		return nil, fmt.Errorf("list business options: %w", err)
	}
	return items, nil
}

func (s *BusinessService) ListMine(ctx context.Context, ownerUserID string) ([]models.Business, error) {
	items, err := s.businesses.Recent(ctx, ownerUserID, ownerBusinessLimit)
	if err != nil {
		return nil, fmt.Errorf("list owned businesses: %w", err)
	}
	return items, nil
}

// GetMine reports another owner's business as not found.
func (s *BusinessService) GetMine(ctx context.Context, ownerUserID string, id string) (models.Business, error) {
	if !ids.Valid(id) {
		return models.Business{}, invalid("VALIDATION_ID_INVALID", "Invalid business id")
	}
	return s.load(s.businesses.GetOwned(ctx, id, ownerUserID))
}

// UpdateMine applies an owner's edits; the assignment itself is not
// editable by the owner and input.OwnerUserID is ignored.
func (s *BusinessService) UpdateMine(ctx context.Context, ownerUserID string, id string, input UpdateBusinessInput) (models.Business, error) {
	b, err := s.GetMine(ctx, ownerUserID, id)
	if err != nil {
		return models.Business{}, err
	}
	if err := applyBusinessFields(&b, input); err != nil {
		return models.Business{}, err
	}
	return s.save(ctx, b)
}

func applyBusinessFields(b *models.Business, input UpdateBusinessInput) error {
	if input.BusinessName != nil {
		name := strings.TrimSpace(*input.BusinessName)
		if name == "" {
			return invalid("VALIDATION_BUSINESS_NAME_INVALID", "Business name is invalid")
		}
		b.BusinessName = name
	}
	if input.OwnerName != nil {
		name := strings.TrimSpace(*input.OwnerName)
		if name == "" {
			return invalid("VALIDATION_OWNER_NAME_INVALID", "Owner name is invalid")
		}
		b.OwnerName = name
	}
	if input.OwnerPhone != nil {
		b.OwnerPhone = optional(*input.OwnerPhone)
	}
	if input.Category != nil {
		category := strings.TrimSpace(*input.Category)
		if category == "" {
			return invalid("VALIDATION_CATEGORY_INVALID", "Category is invalid")
		}
		b.Category = category
	}
	if input.City != nil {
		city := strings.TrimSpace(*input.City)
		if city == "" {
			return invalid("VALIDATION_CITY_INVALID", "City is invalid")
		}
		b.City = city
	}
	if input.IsActive != nil {
		b.IsActive = *input.IsActive
	}
	return nil
}

func (s *BusinessService) save(ctx context.Context, b models.Business) (models.Business, error) {
	if err := s.businesses.Update(ctx, b); err != nil {
		if errors.Is(err, repository.ErrBusinessNotFound) {
			return models.Business{}, errBusinessNotFound
		}
		return models.Business{}, fmt.Errorf("update business: %w", err)
	}
	b.UpdatedAt = s.now()
	return b, nil
}

func (s *BusinessService) load(b models.Business, err error) (models.Business, error) {
	if err != nil {
		if errors.Is(err, repository.ErrBusinessNotFound) {
			return models.Business{}, errBusinessNotFound
		}
		return models.Business{}, fmt.Errorf("load business: %w", err)
	}
	return b, nil
}
