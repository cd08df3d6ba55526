package tracking

import (
	"context"
	"time"

	"vatelanka-driver/internal/models"

	"go.uber.org/zap"
)

// CheckAndResetRouteStatus mirrors the remote route status and resets a route
// completed on a previous day back to idle. It returns true only when a reset
// was written. Failures are logged and reported as false.
func (m *Manager) CheckAndResetRouteStatus(ctx context.Context) bool {
	id, err := m.requireIdentity()
	if err != nil {
		return false
	}

	readCtx, cancel := context.WithTimeout(ctx, m.writeTimeout)
	doc, err := m.store.GetTruck(readCtx, id)
	cancel()
	if err != nil {
		m.log.Warn("⚠️  Reading truck document for daily reset failed", zap.Error(err))
		return false
	}

	remote := doc.RouteStatus
	if !remote.Valid() {
		remote = models.RouteStatusIdle
	}
	m.mu.Lock()
	m.status = remote
	m.synced = true
	m.mu.Unlock()

	if remote != models.RouteStatusCompleted {
		return false
	}

	completedOn, ok := datePart(doc.LastCompletedDate)
	if !ok {
		return false
	}

	today := m.now().UTC().Format(dateLayout)
	if completedOn >= today {
		return false
	}

	err = m.write(ctx, id, "reset route status", models.FieldUpdates{
		models.FieldRouteStatus:     string(models.RouteStatusIdle),
		models.FieldLastStatusReset: models.ServerTimestamp,
		models.FieldLastResetDate:   today,
	})
	if err != nil {
		return false
	}

	m.commit(ctx, id, models.RouteStatusCompleted, models.RouteStatusIdle)
	m.log.Info("🔄 Route status reset for a new day", zap.String("completed_on", completedOn))
	return true
}

// datePart extracts the UTC calendar date of an ISO8601 timestamp
func datePart(value string) (string, bool) {
	if value == "" {
		return "", false
	}
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t.UTC().Format(dateLayout), true
	}
	if len(value) >= len(dateLayout) {
		if t, err := time.Parse(dateLayout, value[:len(dateLayout)]); err == nil {
			return t.Format(dateLayout), true
		}
	}
	return "", false
}
