package models

import (
	"encoding/json"
	"time"
)

type ReportType string

const (
	ReportTypeDaily      ReportType = "DAILY"
	ReportTypeWeekly     ReportType = "WEEKLY"
	ReportTypeMonthly    ReportType = "MONTHLY"
	ReportTypeQuarterly  ReportType = "QUARTERLY"
	ReportTypeHalfYearly ReportType = "HALF_YEARLY"
	ReportTypeYearly     ReportType = "YEARLY"
)

var ReportTypes = []ReportType{
	ReportTypeDaily,
	ReportTypeWeekly,
	ReportTypeMonthly,
	ReportTypeQuarterly,
	ReportTypeHalfYearly,
	ReportTypeYearly,
}

func (t ReportType) Valid() bool {
	for _, rt := range ReportTypes {
		if rt == t {
			return true
		}
	}
	return false
}

// Report is a periodic figure submission for a business. Data is the raw
// JSON object supplied by the owner; PhotoKey and VideoKey are object
// storage keys of the optional attachments. BusinessName is read through a
// join and never written.
type Report struct {
	ID              string
	BusinessID      string
	BusinessName    string
	CreatedByUserID string
	ReportType      ReportType
	Data            json.RawMessage
	Notes           *string
	PhotoKey        *string
	VideoKey        *string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// ReportDatum is the slice of a report the dashboards aggregate over.
type ReportDatum struct {
	BusinessID string
	Data       json.RawMessage
	CreatedAt  time.Time
}
