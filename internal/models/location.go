package models

// PermissionStatus is the device's foreground location permission
type PermissionStatus string

const (
	PermissionGranted      PermissionStatus = "granted"
	PermissionDenied       PermissionStatus = "denied"
	PermissionUndetermined PermissionStatus = "undetermined"
)

// Accuracy requested from the device GPS
type Accuracy string

const (
	AccuracyLow      Accuracy = "low"
	AccuracyBalanced Accuracy = "balanced"
	AccuracyHigh     Accuracy = "high"
)

// LocationSample represents a GPS fix reported by the device
type LocationSample struct {
	Latitude  float64  `json:"latitude"`
	Longitude float64  `json:"longitude"`
	Heading   *float64 `json:"heading,omitempty"`  // Direction of travel (0-360 degrees)
	Speed     *float64 `json:"speed,omitempty"`    // Speed in m/s
	Accuracy  *float64 `json:"accuracy,omitempty"` // GPS accuracy in meters
	Timestamp string   `json:"timestamp"`          // Device-supplied, RFC3339 or epoch millis
}

// HeadingOrZero returns the heading, 0 when the device did not report one
func (s LocationSample) HeadingOrZero() float64 {
	if s.Heading == nil {
		return 0
	}
	return *s.Heading
}

// SpeedOrZero returns the speed, 0 when the device did not report one
func (s LocationSample) SpeedOrZero() float64 {
	if s.Speed == nil {
		return 0
	}
	return *s.Speed
}
