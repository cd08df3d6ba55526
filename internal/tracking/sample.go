package tracking

import (
	"context"
	"strconv"
	"time"

	"vatelanka-driver/internal/models"

	"go.uber.org/zap"
)

// handleSample is the watch callback. Samples arriving after tracking stopped
// are dropped so a late delivery never overwrites a completed route.
func (m *Manager) handleSample(sample models.LocationSample) {
	m.mu.Lock()
	tracking := m.tracking
	id := m.identity
	m.mu.Unlock()

	if !tracking || !id.Complete() {
		m.log.Debug("Dropping location sample, not tracking")
		return
	}

	loc := m.toCurrentLocation(sample)

	ctx, cancel := context.WithTimeout(context.Background(), m.writeTimeout)
	defer cancel()

	err := m.store.UpdateTruck(ctx, id, models.FieldUpdates{
		models.FieldCurrentLocation:    loc.ToMap(),
		models.FieldLastLocationUpdate: models.ServerTimestamp,
	})
	if err != nil {
		m.log.Error("❌ Location update failed", zap.Error(err))
		return
	}

	m.log.Debug("📍 Location updated",
		zap.Float64("lat", loc.Latitude),
		zap.Float64("lng", loc.Longitude))

	if m.journal != nil {
		record := models.LocationRecord{
			TruckID:   id.TruckID,
			Latitude:  loc.Latitude,
			Longitude: loc.Longitude,
			Heading:   loc.Heading,
			Speed:     loc.Speed,
			Timestamp: loc.Timestamp,
			CreatedAt: m.now().Unix(),
		}
		if err := m.journal.RecordSample(ctx, record); err != nil {
			m.log.Warn("⚠️  Journal sample write failed", zap.Error(err))
		}
	}
}

func (m *Manager) toCurrentLocation(sample models.LocationSample) models.CurrentLocation {
	return models.CurrentLocation{
		Latitude:  sample.Latitude,
		Longitude: sample.Longitude,
		Heading:   sample.HeadingOrZero(),
		Speed:     sample.SpeedOrZero(),
		Timestamp: m.sampleTime(sample.Timestamp).UTC().Format(isoLayout),
	}
}

// sampleTime accepts RFC3339 or epoch milliseconds and falls back to the clock
func (m *Manager) sampleTime(raw string) time.Time {
	if raw == "" {
		return m.now()
	}
	if t, err := time.Parse(time.RFC3339Nano, raw); err == nil {
		return t
	}
	if ms, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return time.UnixMilli(ms)
	}
	if f, err := strconv.ParseFloat(raw, 64); err == nil {
		return time.UnixMilli(int64(f))
	}
	return m.now()
}
