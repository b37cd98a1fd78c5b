package models

import "time"

type UserRole string

const (
	UserRoleAdmin         UserRole = "ADMIN"
	UserRoleInvestor      UserRole = "INVESTOR"
	UserRoleBusinessOwner UserRole = "BUSINESS_OWNER"
)

// Roles lists every role in display order.
var Roles = []UserRole{UserRoleAdmin, UserRoleInvestor, UserRoleBusinessOwner}

func (r UserRole) Valid() bool {
	switch r {
	case UserRoleAdmin, UserRoleInvestor, UserRoleBusinessOwner:
		return true
	}
	return false
}

type User struct {
	ID           string
	Name         string
	Email        string
	Mobile       *string
	PasswordHash string
	Role         UserRole
	IsActive     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
