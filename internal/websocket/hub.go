package websocket

import (
	"context"
	"encoding/json"
	"sync"

	"vatelanka-driver/internal/models"

	"go.uber.org/zap"
)

// Client roles
const (
	RoleDevice = "device" // supplies GPS
	RoleUI     = "ui"     // driver screens
)

// Hub maintains active WebSocket connections. It is the agent's view of the
// device GPS and pushes route and ticket updates to UI clients.
type Hub struct {
	// Registered clients by connection id
	clients map[string]*Client

	register   chan *Client
	unregister chan *Client
	done       chan struct{}

	log *zap.Logger

	// Guards clients and everything device-related below
	mu sync.RWMutex

	device          *Client
	servicesEnabled bool
	permission      models.PermissionStatus

	permissionWaiters []chan models.PermissionStatus
	positionWaiters   []chan models.LocationSample

	watchers    map[int]*watcher
	nextWatchID int
}

// NewHub creates a new Hub instance
func NewHub(log *zap.Logger) *Hub {
	if log == nil {
		log = zap.NewNop()
	}
	return &Hub{
		clients:    make(map[string]*Client),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		log:        log,
		permission: models.PermissionUndetermined,
		watchers:   make(map[int]*watcher),
	}
}

// Run starts the hub's main loop
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case client := <-h.register:
			h.addClient(client)
		case client := <-h.unregister:
			h.removeClient(client)
		case <-ctx.Done():
			close(h.done)
			h.mu.Lock()
			for id, c := range h.clients {
				close(c.send)
				delete(h.clients, id)
			}
			h.device = nil
			h.mu.Unlock()
			return
		}
	}
}

func (h *Hub) addClient(client *Client) {
	h.mu.Lock()
	h.clients[client.ID] = client

	resumeWatch := false
	if client.Role == RoleDevice {
		if h.device != nil {
			h.log.Warn("⚠️  Replacing connected device", zap.String("previous", h.device.ID))
		}
		h.device = client
		resumeWatch = len(h.watchers) > 0
	}
	total := len(h.clients)
	h.mu.Unlock()

	h.log.Info("✅ [WEBSOCKET] Client connected",
		zap.String("client_id", client.ID),
		zap.String("user_id", client.UserID),
		zap.String("role", client.Role),
		zap.Int("total_clients", total))

	// A reconnecting device resumes the running watch
	if resumeWatch {
		h.sendWatchStart()
	}
}

func (h *Hub) removeClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[client.ID]; !ok {
		return
	}
	delete(h.clients, client.ID)
	close(client.send)

	if h.device == client {
		h.device = nil
		h.servicesEnabled = false
	}

	h.log.Info("🔴 [WEBSOCKET] Client disconnected",
		zap.String("client_id", client.ID),
		zap.String("role", client.Role),
		zap.Int("remaining_clients", len(h.clients)))
}

// BroadcastToRole sends a message to all clients with a specific role
func (h *Hub) BroadcastToRole(role string, data any) {
	dataBytes, err := json.Marshal(data)
	if err != nil {
		h.log.Error("❌ Failed to marshal broadcast message", zap.Error(err))
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for id, client := range h.clients {
		if client.Role != role {
			continue
		}
		select {
		case client.send <- dataBytes:
		default:
			h.log.Warn("⚠️  Client buffer full, skipping", zap.String("client_id", id))
		}
	}
}

// RouteStatusChanged pushes a route transition to UI clients
func (h *Hub) RouteStatusChanged(_ context.Context, id models.TruckIdentity, from, to models.RouteStatus) {
	h.BroadcastToRole(RoleUI, map[string]any{
		"type": "route_status",
		"data": map[string]any{
			"truckId": id.TruckID,
			"from":    from,
			"to":      to,
		},
	})
}

// BroadcastTruck pushes the latest truck document to UI clients
func (h *Hub) BroadcastTruck(doc *models.TruckDocument) {
	h.BroadcastToRole(RoleUI, map[string]any{
		"type": "truck_update",
		"data": doc,
	})
}

// BroadcastTickets pushes the assigned ticket list to UI clients
func (h *Hub) BroadcastTickets(tickets []models.Ticket) {
	h.BroadcastToRole(RoleUI, map[string]any{
		"type": "tickets_update",
		"data": tickets,
	})
}

// GetClientCount returns the number of connected clients
func (h *Hub) GetClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// DeviceConnected reports whether a GPS device is attached
func (h *Hub) DeviceConnected() bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.device != nil
}
