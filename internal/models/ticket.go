package models

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// TicketStatus represents the lifecycle of a citizen collection request
type TicketStatus string

const (
	TicketStatusPending    TicketStatus = "pending"
	TicketStatusAssigned   TicketStatus = "assigned"
	TicketStatusInProgress TicketStatus = "in_progress"
	TicketStatusResolved   TicketStatus = "resolved"
	TicketStatusCancelled  TicketStatus = "cancelled"
)

// MaxCompletionNotes is the longest completion note a driver can attach
const MaxCompletionNotes = 500

var (
	ErrTicketNotFound = errors.New("ticket not found")
	ErrNotesTooLong   = fmt.Errorf("completion notes must be at most %d characters", MaxCompletionNotes)
)

// TicketCounts backs the badges on the driver home screen
type TicketCounts struct {
	Pending  int `json:"pending"`  // unassigned tickets in the ward
	Assigned int `json:"assigned"` // open tickets assigned to the truck
}

// TicketCompletion is what the driver submits when closing a ticket
type TicketCompletion struct {
	Notes      string `json:"notes"`
	DriverName string `json:"driverName"`
}

// Ticket represents a citizen-reported collection request assigned to a truck
type Ticket struct {
	ID                   string       `json:"id"`
	CouncilID            string       `json:"councilId"`
	DistrictID           string       `json:"districtId"`
	WardID               string       `json:"wardId"`
	Status               TicketStatus `json:"status"`
	IssueType            string       `json:"issueType,omitempty"`
	WasteType            string       `json:"wasteType,omitempty"`
	UserName             string       `json:"userName,omitempty"`
	UserEmail            string       `json:"userEmail,omitempty"`
	PhoneNumber          string       `json:"phoneNumber,omitempty"`
	Notes                string       `json:"notes,omitempty"`
	HomeLocation         *GeoPoint    `json:"homeLocation,omitempty"`
	WardName             string       `json:"wardName,omitempty"`
	DistrictName         string       `json:"districtName,omitempty"`
	MunicipalCouncilName string       `json:"municipalCouncilName,omitempty"`
	AssignedTo           string       `json:"assignedTo,omitempty"`
	CreatedAt            *time.Time   `json:"createdAt,omitempty"`
	UpdatedAt            *time.Time   `json:"updatedAt,omitempty"`
	AssignedAt           *time.Time   `json:"assignedAt,omitempty"`
	StartedWorkingAt     *time.Time   `json:"startedWorkingAt,omitempty"`
	ResolvedAt           *time.Time   `json:"resolvedAt,omitempty"`
}

// StatusText returns the label shown to the driver
func (s TicketStatus) StatusText() string {
	switch s {
	case TicketStatusPending:
		return "Pending"
	case TicketStatusAssigned:
		return "Assigned"
	case TicketStatusInProgress:
		return "In Progress"
	case TicketStatusResolved:
		return "Resolved"
	case TicketStatusCancelled:
		return "Cancelled"
	default:
		return "Unknown"
	}
}

// LocationLabel joins ward, district and council names for display
func (t *Ticket) LocationLabel() string {
	parts := make([]string, 0, 3)
	for _, p := range []string{t.WardName, t.DistrictName, t.MunicipalCouncilName} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, ", ")
}

// TicketFilter narrows a ticket list by status and free-text search
type TicketFilter struct {
	Status TicketStatus // empty means all
	Query  string
}

// Apply returns the tickets matching the filter, preserving order.
// The query matches user name, waste type or issue type, case-insensitively.
func (f TicketFilter) Apply(tickets []Ticket) []Ticket {
	query := strings.ToLower(strings.TrimSpace(f.Query))
	out := make([]Ticket, 0, len(tickets))
	for _, t := range tickets {
		if f.Status != "" && t.Status != f.Status {
			continue
		}
		if query != "" &&
			!strings.Contains(strings.ToLower(t.UserName), query) &&
			!strings.Contains(strings.ToLower(t.WasteType), query) &&
			!strings.Contains(strings.ToLower(t.IssueType), query) {
			continue
		}
		out = append(out, t)
	}
	return out
}

// FormatTimeAgo renders a timestamp relative to now ("just now", "5m ago", "3d ago", ...)
func FormatTimeAgo(ts, now time.Time) string {
	if ts.IsZero() {
		return ""
	}

	seconds := int64(now.Sub(ts).Round(time.Second) / time.Second)
	if seconds < 60 {
		return "just now"
	}

	minutes := seconds / 60
	if minutes < 60 {
		return fmt.Sprintf("%dm ago", minutes)
	}

	hours := minutes / 60
	if hours < 24 {
		return fmt.Sprintf("%dh ago", hours)
	}

	days := hours / 24
	if days < 30 {
		return fmt.Sprintf("%dd ago", days)
	}

	return fmt.Sprintf("%dmo ago", days/30)
}
