package handlers

import (
	"encoding/json"
	"time"

	"bizreport/api/internal/models"
	"bizreport/api/internal/service"
)

type userResponse struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Email     string          `json:"email"`
	Mobile    *string         `json:"mobile"`
	Role      models.UserRole `json:"role"`
	IsActive  bool            `json:"isActive"`
	CreatedAt time.Time       `json:"createdAt"`
	UpdatedAt time.Time       `json:"updatedAt"`
}

func newUserResponse(u models.User) userResponse {
	return userResponse{
		ID:        u.ID,
		Name:      u.Name,
		Email:     u.Email,
		Mobile:    u.Mobile,
		Role:      u.Role,
		IsActive:  u.IsActive,
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
}

func newUserResponses(users []models.User) []userResponse {
	out := make([]userResponse, 0, len(users))
	for _, u := range users {
		out = append(out, newUserResponse(u))
	}
	return out
}

type businessResponse struct {
	ID           string    `json:"id"`
	OwnerUserID  *string   `json:"ownerUserId"`
	BusinessName string    `json:"businessName"`
	OwnerName    string    `json:"ownerName"`
	OwnerPhone   *string   `json:"ownerPhone"`
	Category     string    `json:"category"`
	City         string    `json:"city"`
	IsActive     bool      `json:"isActive"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

func newBusinessResponse(b models.Business) businessResponse {
	return businessResponse{
		ID:           b.ID,
		OwnerUserID:  b.OwnerUserID,
		BusinessName: b.BusinessName,
		OwnerName:    b.OwnerName,
		OwnerPhone:   b.OwnerPhone,
		Category:     b.Category,
		City:         b.City,
		IsActive:     b.IsActive,
		CreatedAt:    b.CreatedAt,
		UpdatedAt:    b.UpdatedAt,
	}
}

func newBusinessResponses(items []models.Business) []businessResponse {
	out := make([]businessResponse, 0, len(items))
	for _, b := range items {
		out = append(out, newBusinessResponse(b))
	}
	return out
}

type businessOption struct {
	ID           string `json:"id"`
	BusinessName string `json:"businessName"`
}

type reportResponse struct {
	ID              string            `json:"id"`
	BusinessID      string            `json:"businessId"`
	BusinessName    string            `json:"businessName,omitempty"`
	CreatedByUserID string            `json:"createdByUserId"`
	ReportType      models.ReportType `json:"reportType"`
	Data            json.RawMessage   `json:"data"`
	Notes           *string           `json:"notes"`
	PhotoKey        *string           `json:"photoKey"`
	VideoKey        *string           `json:"videoKey"`
	PhotoURL        *string           `json:"photoUrl"`
	VideoURL        *string           `json:"videoUrl"`
	CreatedAt       time.Time         `json:"createdAt"`
	UpdatedAt       time.Time         `json:"updatedAt"`
}

func newReportResponse(r service.ReportDetail) reportResponse {
	data := r.Data
	if len(data) == 0 {
		data = json.RawMessage("{}")
	}
	return reportResponse{
		ID:              r.ID,
		BusinessID:      r.BusinessID,
		BusinessName:    r.BusinessName,
		CreatedByUserID: r.CreatedByUserID,
		ReportType:      r.ReportType,
		Data:            data,
		Notes:           r.Notes,
		PhotoKey:        r.PhotoKey,
		VideoKey:        r.VideoKey,
		PhotoURL:        r.PhotoURL,
		VideoURL:        r.VideoURL,
		CreatedAt:       r.CreatedAt,
		UpdatedAt:       r.UpdatedAt,
	}
}

func newReportResponses(items []service.ReportDetail) []reportResponse {
	out := make([]reportResponse, 0, len(items))
	for _, r := range items {
		out = append(out, newReportResponse(r))
	}
	return out
}
