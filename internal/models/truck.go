package models

import (
	"errors"
	"time"
)

// RouteStatus represents the current status of a truck's route
type RouteStatus string

const (
	RouteStatusIdle      RouteStatus = "idle"      // No route today, or reset for a new day
	RouteStatusActive    RouteStatus = "active"    // Collecting
	RouteStatusPaused    RouteStatus = "paused"    // On break
	RouteStatusCompleted RouteStatus = "completed" // Ended by the driver
)

// Valid reports whether s is one of the known route statuses
func (s RouteStatus) Valid() bool {
	switch s {
	case RouteStatusIdle, RouteStatusActive, RouteStatusPaused, RouteStatusCompleted:
		return true
	}
	return false
}

// ErrTruckNotFound is returned by stores when the truck document does not exist
var ErrTruckNotFound = errors.New("truck not found")

// Truck document field names
const (
	FieldRouteStatus        = "routeStatus"
	FieldCurrentLocation    = "currentLocation"
	FieldLastLocationUpdate = "lastLocationUpdate"
	FieldLastRouteStarted   = "lastRouteStarted"
	FieldLastCompletedDate  = "lastCompletedDate"
	FieldLastStatusReset    = "lastStatusReset"
	FieldLastResetDate      = "lastResetDate"
)

// TruckDocument is the part of the remote truck document the driver agent reads.
// Other fields (assignment, supervisor data) belong to the dispatch backend.
type TruckDocument struct {
	Identity           TruckIdentity    `json:"identity"`
	RouteStatus        RouteStatus      `json:"routeStatus"`
	CurrentLocation    *CurrentLocation `json:"currentLocation,omitempty"`
	LastRouteStarted   string           `json:"lastRouteStarted,omitempty"`
	LastCompletedDate  string           `json:"lastCompletedDate,omitempty"`
	LastResetDate      string           `json:"lastResetDate,omitempty"`
	LastLocationUpdate *time.Time       `json:"lastLocationUpdate,omitempty"`
	LastStatusReset    *time.Time       `json:"lastStatusReset,omitempty"`
	Email              string           `json:"email,omitempty"`
	DriverName         string           `json:"driverName,omitempty"`
	Extra              map[string]any   `json:"extra,omitempty"`
}

// CurrentLocation is the last accepted GPS sample as stored on the truck document
type CurrentLocation struct {
	Latitude  float64 `json:"latitude" firestore:"latitude"`
	Longitude float64 `json:"longitude" firestore:"longitude"`
	Heading   float64 `json:"heading" firestore:"heading"`
	Speed     float64 `json:"speed" firestore:"speed"`
	Timestamp string  `json:"timestamp" firestore:"timestamp"`
}

// ToMap returns the nested map written to the store
func (c CurrentLocation) ToMap() map[string]any {
	return map[string]any{
		"latitude":  c.Latitude,
		"longitude": c.Longitude,
		"heading":   c.Heading,
		"speed":     c.Speed,
		"timestamp": c.Timestamp,
	}
}

// FieldUpdates is a partial update of a document: only the named fields are written
type FieldUpdates map[string]any

type serverTimestamp struct{}

// ServerTimestamp is a placeholder replaced by the store with its own commit time
var ServerTimestamp = serverTimestamp{}

// IsServerTimestamp reports whether v is the ServerTimestamp placeholder
func IsServerTimestamp(v any) bool {
	_, ok := v.(serverTimestamp)
	return ok
}
