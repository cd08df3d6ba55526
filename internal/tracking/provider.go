package tracking

import (
	"context"
	"time"

	"vatelanka-driver/internal/models"
)

// WatchOptions configures a position subscription
type WatchOptions struct {
	Accuracy         models.Accuracy
	DistanceInterval float64       // meters
	TimeInterval     time.Duration // minimum time between samples
}

// DefaultWatchOptions mirrors a balanced, battery-friendly tracking profile
func DefaultWatchOptions() WatchOptions {
	return WatchOptions{
		Accuracy:         models.AccuracyBalanced,
		DistanceInterval: 10,
		TimeInterval:     3 * time.Second,
	}
}

// Subscription is an active position subscription. Remove must be idempotent.
type Subscription interface {
	Remove()
}

// LocationProvider is the device side of tracking: permissions, one-shot fixes
// and continuous updates.
type LocationProvider interface {
	HasServicesEnabled(ctx context.Context) (bool, error)
	GetForegroundPermission(ctx context.Context) (models.PermissionStatus, error)
	RequestForegroundPermission(ctx context.Context) (models.PermissionStatus, error)
	// GetCurrentPosition blocks until a fix arrives or ctx is done
	GetCurrentPosition(ctx context.Context, accuracy models.Accuracy) (models.LocationSample, error)
	WatchPosition(opts WatchOptions, onSample func(models.LocationSample)) (Subscription, error)
}

// TruckStore reads and partially updates truck documents.
// UpdateTruck must only touch the given fields.
type TruckStore interface {
	GetTruck(ctx context.Context, id models.TruckIdentity) (*models.TruckDocument, error)
	UpdateTruck(ctx context.Context, id models.TruckIdentity, fields models.FieldUpdates) error
}

// Journal keeps a local history of transitions and accepted samples
type Journal interface {
	RecordTransition(ctx context.Context, event models.RouteEvent) error
	RecordSample(ctx context.Context, record models.LocationRecord) error
}

// Notifier is told about every successful route transition
type Notifier interface {
	RouteStatusChanged(ctx context.Context, id models.TruckIdentity, from, to models.RouteStatus)
}
