package websocket

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"sync"
	"time"

	"vatelanka-driver/internal/models"
	"vatelanka-driver/internal/tracking"

	"go.uber.org/zap"
)

// ErrDeviceNotConnected means no GPS device is attached to the hub
var ErrDeviceNotConnected = fmt.Errorf("no location device connected: %w", tracking.ErrDeviceUnavailable)

const permissionRequestTimeout = 30 * time.Second

// deviceMessage is sent to the GPS device
type deviceMessage struct {
	Type      string `json:"type"`
	Timestamp string `json:"timestamp"`
	Data      any    `json:"data,omitempty"`
}

func (h *Hub) sendToDeviceLocked(msgType string, data any) error {
	if h.device == nil {
		return ErrDeviceNotConnected
	}

	b, err := json.Marshal(deviceMessage{Type: msgType, Timestamp: time.Now().UTC().Format(time.RFC3339), Data: data})
	if err != nil {
		return err
	}

	select {
	case h.device.send <- b:
		return nil
	default:
		h.log.Warn("⚠️  Device buffer full, dropping message", zap.String("type", msgType))
		return nil
	}
}

func (h *Hub) sendToDevice(msgType string, data any) error {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.sendToDeviceLocked(msgType, data)
}

// HasServicesEnabled returns what the device last reported
func (h *Hub) HasServicesEnabled(context.Context) (bool, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.device == nil {
		return false, ErrDeviceNotConnected
	}
	return h.servicesEnabled, nil
}

func (h *Hub) GetForegroundPermission(context.Context) (models.PermissionStatus, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.device == nil {
		return models.PermissionUndetermined, ErrDeviceNotConnected
	}
	return h.permission, nil
}

// RequestForegroundPermission asks the device to prompt the driver and waits for the answer
func (h *Hub) RequestForegroundPermission(ctx context.Context) (models.PermissionStatus, error) {
	ch := make(chan models.PermissionStatus, 1)

	h.mu.Lock()
	if h.permission == models.PermissionGranted && h.device != nil {
		h.mu.Unlock()
		return models.PermissionGranted, nil
	}
	if err := h.sendToDeviceLocked("permission_request", nil); err != nil {
		h.mu.Unlock()
		return models.PermissionDenied, err
	}
	h.permissionWaiters = append(h.permissionWaiters, ch)
	h.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, permissionRequestTimeout)
	defer cancel()

	select {
	case status := <-ch:
		return status, nil
	case <-ctx.Done():
		h.mu.Lock()
		h.permissionWaiters = removeWaiter(h.permissionWaiters, ch)
		h.mu.Unlock()
		return models.PermissionDenied, nil
	}
}

// GetCurrentPosition asks the device for a fix and waits for the next location update
func (h *Hub) GetCurrentPosition(ctx context.Context, accuracy models.Accuracy) (models.LocationSample, error) {
	ch := make(chan models.LocationSample, 1)

	h.mu.Lock()
	if err := h.sendToDeviceLocked("position_request", map[string]any{"accuracy": accuracy}); err != nil {
		h.mu.Unlock()
		return models.LocationSample{}, err
	}
	h.positionWaiters = append(h.positionWaiters, ch)
	h.mu.Unlock()

	select {
	case sample := <-ch:
		return sample, nil
	case <-ctx.Done():
		h.mu.Lock()
		h.positionWaiters = removeWaiter(h.positionWaiters, ch)
		h.mu.Unlock()
		return models.LocationSample{}, ctx.Err()
	}
}

// WatchPosition forwards throttled location updates to onSample until the
// subscription is removed.
func (h *Hub) WatchPosition(opts tracking.WatchOptions, onSample func(models.LocationSample)) (tracking.Subscription, error) {
	h.mu.Lock()
	if h.device == nil {
		h.mu.Unlock()
		return nil, ErrDeviceNotConnected
	}

	w := newWatcher(opts, onSample)
	id := h.nextWatchID
	h.nextWatchID++
	h.watchers[id] = w
	h.mu.Unlock()

	go w.run()
	h.sendWatchStart()

	h.log.Info("📡 Device watch started", zap.Int("watch_id", id))
	return &subscription{hub: h, id: id}, nil
}

// sendWatchStart asks the device for the tightest settings any watcher needs
func (h *Hub) sendWatchStart() {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if len(h.watchers) == 0 {
		return
	}

	var opts tracking.WatchOptions
	first := true
	for _, w := range h.watchers {
		if first || w.opts.DistanceInterval < opts.DistanceInterval {
			opts.DistanceInterval = w.opts.DistanceInterval
		}
		if first || w.opts.TimeInterval < opts.TimeInterval {
			opts.TimeInterval = w.opts.TimeInterval
		}
		if first || w.opts.Accuracy == models.AccuracyHigh {
			opts.Accuracy = w.opts.Accuracy
		}
		first = false
	}

	_ = h.sendToDeviceLocked("watch_start", map[string]any{
		"accuracy":         opts.Accuracy,
		"distanceInterval": opts.DistanceInterval,
		"timeInterval":     opts.TimeInterval.Milliseconds(),
	})
}

func (h *Hub) removeWatch(id int) {
	h.mu.Lock()
	w, ok := h.watchers[id]
	if ok {
		delete(h.watchers, id)
	}
	last := ok && len(h.watchers) == 0
	if last {
		_ = h.sendToDeviceLocked("watch_stop", nil)
	}
	h.mu.Unlock()

	if ok {
		w.stop()
		h.log.Info("📡 Device watch removed", zap.Int("watch_id", id))
	}
}

type subscription struct {
	hub  *Hub
	id   int
	once sync.Once
}

// Remove is idempotent
func (s *subscription) Remove() {
	s.once.Do(func() { s.hub.removeWatch(s.id) })
}

// handleDeviceMessage applies a message received from the device connection
func (h *Hub) handleDeviceMessage(msg IncomingMessage) {
	switch msg.Type {
	case "device_status":
		enabled, _ := msg.Data["servicesEnabled"].(bool)
		perm, _ := msg.Data["permission"].(string)

		h.mu.Lock()
		h.servicesEnabled = enabled
		if perm != "" {
			h.permission = models.PermissionStatus(perm)
		}
		h.mu.Unlock()

		h.log.Info("📱 Device status",
			zap.Bool("services_enabled", enabled),
			zap.String("permission", perm))

	case "permission_response":
		perm, _ := msg.Data["status"].(string)
		status := models.PermissionStatus(perm)
		if status != models.PermissionGranted {
			status = models.PermissionDenied
		}

		h.mu.Lock()
		h.permission = status
		waiters := h.permissionWaiters
		h.permissionWaiters = nil
		h.mu.Unlock()

		for _, ch := range waiters {
			ch <- status
		}

	case "location_update":
		sample, ok := parseSample(msg.Data)
		if !ok {
			h.log.Warn("⚠️  Invalid location update from device")
			return
		}
		h.dispatchSample(sample, time.Now())
	}
}

func (h *Hub) dispatchSample(sample models.LocationSample, now time.Time) {
	h.mu.Lock()
	waiters := h.positionWaiters
	h.positionWaiters = nil
	for _, w := range h.watchers {
		w.offer(sample, now)
	}
	h.mu.Unlock()

	for _, ch := range waiters {
		ch <- sample
	}
}

func parseSample(data map[string]any) (models.LocationSample, bool) {
	lat, ok := data["latitude"].(float64)
	if !ok {
		return models.LocationSample{}, false
	}
	lng, ok := data["longitude"].(float64)
	if !ok {
		return models.LocationSample{}, false
	}

	sample := models.LocationSample{Latitude: lat, Longitude: lng}
	if v, ok := data["heading"].(float64); ok {
		sample.Heading = &v
	}
	if v, ok := data["speed"].(float64); ok {
		sample.Speed = &v
	}
	if v, ok := data["accuracy"].(float64); ok {
		sample.Accuracy = &v
	}

	switch ts := data["timestamp"].(type) {
	case string:
		sample.Timestamp = ts
	case float64:
		sample.Timestamp = strconv.FormatInt(int64(ts), 10)
	}
	return sample, true
}

func removeWaiter[T any](waiters []chan T, ch chan T) []chan T {
	for i, w := range waiters {
		if w == ch {
			return append(waiters[:i], waiters[i+1:]...)
		}
	}
	return waiters
}
