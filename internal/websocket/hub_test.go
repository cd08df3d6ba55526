package websocket

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"vatelanka-driver/internal/models"
	"vatelanka-driver/internal/tracking"

	"github.com/stretchr/testify/require"
)

func attachDevice(t *testing.T, h *Hub) *Client {
	t.Helper()
	c := &Client{ID: "device-1", Role: RoleDevice, hub: h, send: make(chan []byte, 64)}
	h.addClient(c)
	return c
}

func nextMessage(t *testing.T, c *Client) deviceMessage {
	t.Helper()
	select {
	case b := <-c.send:
		var msg deviceMessage
		require.NoError(t, json.Unmarshal(b, &msg))
		return msg
	case <-time.After(time.Second):
		t.Fatal("no message sent to client")
		return deviceMessage{}
	}
}

func locationUpdate(lat, lng float64) IncomingMessage {
	return IncomingMessage{Type: "location_update", Data: map[string]any{
		"latitude":  lat,
		"longitude": lng,
		"heading":   90.0,
		"timestamp": 1773480600000.0,
	}}
}

func TestWatcherThrottle(t *testing.T) {
	w := newWatcher(tracking.WatchOptions{DistanceInterval: 10, TimeInterval: 3 * time.Second}, nil)
	t0 := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
	at := func(lat float64) models.LocationSample { return models.LocationSample{Latitude: lat, Longitude: 79.85} }

	require.True(t, w.accept(at(6.9), t0))
	// far enough but too soon
	require.False(t, w.accept(at(6.901), t0.Add(time.Second)))
	// late enough but too close (about 1 m)
	require.False(t, w.accept(at(6.90001), t0.Add(5*time.Second)))
	// both thresholds met (about 111 m)
	require.True(t, w.accept(at(6.901), t0.Add(5*time.Second)))
}

func TestHubNoDevice(t *testing.T) {
	h := NewHub(nil)
	_, err := h.HasServicesEnabled(context.Background())
	require.ErrorIs(t, err, ErrDeviceNotConnected)
	require.ErrorIs(t, err, tracking.ErrDeviceUnavailable)

	_, err = h.WatchPosition(tracking.DefaultWatchOptions(), func(models.LocationSample) {})
	require.ErrorIs(t, err, ErrDeviceNotConnected)
}

func TestHubDeviceStatusAndPermission(t *testing.T) {
	h := NewHub(nil)
	dev := attachDevice(t, h)

	h.handleDeviceMessage(IncomingMessage{Type: "device_status", Data: map[string]any{
		"servicesEnabled": true,
		"permission":      "undetermined",
	}})
	enabled, err := h.HasServicesEnabled(context.Background())
	require.NoError(t, err)
	require.True(t, enabled)

	result := make(chan models.PermissionStatus, 1)
	go func() {
		st, _ := h.RequestForegroundPermission(context.Background())
		result <- st
	}()

	require.Equal(t, "permission_request", nextMessage(t, dev).Type)
	h.handleDeviceMessage(IncomingMessage{Type: "permission_response", Data: map[string]any{"status": "granted"}})

	require.Equal(t, models.PermissionGranted, <-result)
	perm, err := h.GetForegroundPermission(context.Background())
	require.NoError(t, err)
	require.Equal(t, models.PermissionGranted, perm)
}

func TestHubCurrentPosition(t *testing.T) {
	h := NewHub(nil)
	dev := attachDevice(t, h)

	result := make(chan models.LocationSample, 1)
	go func() {
		s, _ := h.GetCurrentPosition(context.Background(), models.AccuracyBalanced)
		result <- s
	}()

	require.Equal(t, "position_request", nextMessage(t, dev).Type)
	h.handleDeviceMessage(locationUpdate(6.9, 79.85))

	s := <-result
	require.Equal(t, 6.9, s.Latitude)
	require.Equal(t, "1773480600000", s.Timestamp)
	require.Equal(t, 90.0, s.HeadingOrZero())

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err := h.GetCurrentPosition(ctx, models.AccuracyBalanced)
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestHubWatchAndRemove(t *testing.T) {
	h := NewHub(nil)
	dev := attachDevice(t, h)

	var mu sync.Mutex
	var got []models.LocationSample
	sub, err := h.WatchPosition(tracking.DefaultWatchOptions(), func(s models.LocationSample) {
		mu.Lock()
		got = append(got, s)
		mu.Unlock()
	})
	require.NoError(t, err)

	start := nextMessage(t, dev)
	require.Equal(t, "watch_start", start.Type)

	h.handleDeviceMessage(locationUpdate(6.9, 79.85))
	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(got) == 1
	}, time.Second, 5*time.Millisecond)

	sub.Remove()
	sub.Remove()
	require.Equal(t, "watch_stop", nextMessage(t, dev).Type)

	h.handleDeviceMessage(locationUpdate(7.5, 80.5))
	time.Sleep(20 * time.Millisecond)
	mu.Lock()
	require.Len(t, got, 1)
	mu.Unlock()
	require.Len(t, dev.send, 0)
}

func TestHubBroadcastToUI(t *testing.T) {
	h := NewHub(nil)
	dev := attachDevice(t, h)
	ui := &Client{ID: "ui-1", Role: RoleUI, hub: h, send: make(chan []byte, 4)}
	h.addClient(ui)

	h.RouteStatusChanged(context.Background(), models.TruckIdentity{TruckID: "TRUCK007"}, models.RouteStatusIdle, models.RouteStatusActive)

	msg := nextMessage(t, ui)
	require.Equal(t, "route_status", msg.Type)
	require.Len(t, dev.send, 0)

	h.removeClient(ui)
	require.Equal(t, 1, h.GetClientCount())
}
