package models

import (
	"errors"
	"strings"
	"time"
)

var (
	// ErrIncompleteReport is returned when a daily report misses a field
	ErrIncompleteReport  = errors.New("Please fill in all fields before submitting.")
	ErrInvalidReportDate = errors.New("Report date must be in YYYY-MM-DD format.")
)

// RouteEvent is a journal entry for a successful route transition
type RouteEvent struct {
	ID               string      `json:"id" db:"id"`
	TruckID          string      `json:"truck_id" db:"truck_id"`
	MunicipalCouncil string      `json:"municipal_council" db:"municipal_council"`
	District         string      `json:"district" db:"district"`
	Ward             string      `json:"ward" db:"ward"`
	SupervisorID     string      `json:"supervisor_id" db:"supervisor_id"`
	FromStatus       RouteStatus `json:"from_status" db:"from_status"`
	ToStatus         RouteStatus `json:"to_status" db:"to_status"`
	OccurredAt       int64       `json:"occurred_at" db:"occurred_at"`
}

// LocationRecord is a journal entry for an accepted GPS sample
type LocationRecord struct {
	ID        int     `json:"id" db:"id"`
	TruckID   string  `json:"truck_id" db:"truck_id"`
	Latitude  float64 `json:"latitude" db:"latitude"`
	Longitude float64 `json:"longitude" db:"longitude"`
	Heading   float64 `json:"heading" db:"heading"`
	Speed     float64 `json:"speed" db:"speed"`
	Timestamp string  `json:"timestamp" db:"timestamp"` // ISO8601 as written to the truck document
	CreatedAt int64   `json:"created_at" db:"created_at"`
}

// DailyReport is the driver's end-of-day report
type DailyReport struct {
	ID          string `json:"id" db:"id"`
	TruckID     string `json:"truck_id" db:"truck_id"`
	ReportDate  string `json:"report_date" db:"report_date"`
	Area        string `json:"area" db:"area"`
	Description string `json:"description" db:"description"`
	CreatedAt   int64  `json:"created_at" db:"created_at"`
}

// Validate checks a report before it is stored. ReportDate must be YYYY-MM-DD.
func (r *DailyReport) Validate() error {
	if strings.TrimSpace(r.TruckID) == "" ||
		strings.TrimSpace(r.ReportDate) == "" ||
		strings.TrimSpace(r.Area) == "" ||
		strings.TrimSpace(r.Description) == "" {
		return ErrIncompleteReport
	}
	if _, err := time.Parse("2006-01-02", r.ReportDate); err != nil {
		return ErrInvalidReportDate
	}
	return nil
}
