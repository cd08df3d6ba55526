package tracking

import (
	"context"
	"fmt"

	"vatelanka-driver/internal/models"

	"go.uber.org/zap"
)

// Readiness is the outcome of EnsureLocationReady
type Readiness int

const (
	Ready Readiness = iota
	NeedsPermission
	ServicesDisabled
)

func (r Readiness) String() string {
	switch r {
	case Ready:
		return "ready"
	case NeedsPermission:
		return "needs_permission"
	case ServicesDisabled:
		return "services_disabled"
	default:
		return "unknown"
	}
}

// Err converts a non-ready outcome to the matching permission error
func (r Readiness) Err() error {
	switch r {
	case NeedsPermission:
		return ErrPermissionDenied
	case ServicesDisabled:
		return ErrServicesDisabled
	default:
		return nil
	}
}

// EnsureLocationReady checks services, then the foreground permission, asking
// for it when it has not been granted yet.
func (m *Manager) EnsureLocationReady(ctx context.Context) (Readiness, error) {
	enabled, err := m.provider.HasServicesEnabled(ctx)
	if err != nil {
		return ServicesDisabled, fmt.Errorf("check location services: %w", err)
	}
	if !enabled {
		return ServicesDisabled, nil
	}

	status, err := m.provider.GetForegroundPermission(ctx)
	if err != nil {
		return NeedsPermission, fmt.Errorf("read location permission: %w", err)
	}
	if status == models.PermissionGranted {
		return Ready, nil
	}

	status, err = m.provider.RequestForegroundPermission(ctx)
	if err != nil {
		return NeedsPermission, fmt.Errorf("request location permission: %w", err)
	}
	if status != models.PermissionGranted {
		m.log.Warn("⚠️  Foreground location permission denied", zap.String("status", string(status)))
		return NeedsPermission, nil
	}

	return Ready, nil
}
