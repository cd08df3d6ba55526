package tracking

import (
	"errors"
	"fmt"

	"vatelanka-driver/internal/models"
)

var (
	// ErrTruckInfoNotSet means a remote operation was attempted before the
	// full truck identity was configured.
	ErrTruckInfoNotSet = errors.New("truck information not set")

	// ErrIdentityLocked means the identity was changed while a route is running
	ErrIdentityLocked = errors.New("truck identity cannot change while a route is in progress")

	ErrServicesDisabled  = errors.New("location services are disabled")
	ErrPermissionDenied  = errors.New("location permission is required to track routes")
	ErrLocationTimeout   = errors.New("location request timed out")
	ErrInvalidTransition = errors.New("invalid route transition")

	// ErrDeviceUnavailable is wrapped by providers that have no device to ask
	ErrDeviceUnavailable = errors.New("location device not connected")
)

// RemoteError wraps a failed read or write against the truck document
type RemoteError struct {
	Op  string
	Err error
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *RemoteError) Unwrap() error {
	return e.Err
}

func transitionError(from, to models.RouteStatus) error {
	return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, to)
}

// UserMessage maps an error from the manager to banner text for the driver
func UserMessage(err error) string {
	var remote *RemoteError

	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrTruckInfoNotSet):
		return "Truck information not set. Please log in again."
	case errors.Is(err, ErrIdentityLocked):
		return "End the current route before switching trucks."
	case errors.Is(err, ErrDeviceUnavailable):
		return "Connect the location device and try again."
	case errors.Is(err, ErrServicesDisabled):
		return "Location services are disabled. Please enable them in your device settings."
	case errors.Is(err, ErrPermissionDenied):
		return "Location permission is required to track routes."
	case errors.Is(err, ErrLocationTimeout):
		return "Location request timed out. Please try again or check your device settings."
	case errors.Is(err, ErrInvalidTransition):
		return "That action is not available for the current route status."
	case errors.As(err, &remote):
		return fmt.Sprintf("Failed to %s. Please try again.", remote.Op)
	default:
		return "Something went wrong. Please try again."
	}
}
