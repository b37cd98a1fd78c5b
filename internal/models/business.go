package models

import "time"

type Business struct {
	ID           string
	OwnerUserID  *string
	BusinessName string
	OwnerName    string
	OwnerPhone   *string
	Category     string
	City         string
	IsActive     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
