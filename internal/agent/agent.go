package agent

import (
	"context"
	"errors"
	"sync"
	"time"

	"vatelanka-driver/internal/models"
	"vatelanka-driver/internal/session"
	"vatelanka-driver/internal/tracking"

	"go.uber.org/zap"
)

// ErrNoSession is returned when an operation needs a signed-in driver
var ErrNoSession = errors.New("no driver session")

const initTimeout = 10 * time.Second

// TruckFeed streams truck document changes
type TruckFeed interface {
	SubscribeTruck(ctx context.Context, id models.TruckIdentity, onChange func(*models.TruckDocument), onError func(error)) (stop func())
}

// TicketFeed streams the tickets assigned to a truck
type TicketFeed interface {
	SubscribeAssigned(ctx context.Context, id models.TruckIdentity, onChange func([]models.Ticket)) (stop func())
}

// Broadcaster pushes live data to connected UI clients
type Broadcaster interface {
	BroadcastTruck(doc *models.TruckDocument)
	BroadcastTickets(tickets []models.Ticket)
}

// LoginFlow signs drivers in and out
type LoginFlow interface {
	Login(ctx context.Context, truckID, password string) (*models.Session, error)
	Logout(ctx context.Context) error
}

type Deps struct {
	Provider       tracking.LocationProvider
	Store          tracking.TruckStore
	Trucks         TruckFeed
	Tickets        TicketFeed
	Broadcast      Broadcaster
	Login          LoginFlow
	ManagerOptions []tracking.Option
}

// Agent owns the route manager of the signed-in driver. A manager is built
// when a session appears and torn down when it goes away.
type Agent struct {
	deps Deps
	log  *zap.Logger

	mu        sync.Mutex
	session   *models.Session
	manager   *tracking.Manager
	stopFeeds func()
}

func New(deps Deps, log *zap.Logger) *Agent {
	if log == nil {
		log = zap.NewNop()
	}
	return &Agent{deps: deps, log: log}
}

// OnSessionState is registered as a bootstrapper listener
func (a *Agent) OnSessionState(state session.State) {
	if state.Loading {
		return
	}
	if state.Session == nil {
		a.deactivate()
		return
	}
	a.activate(state.Session)
}

// Session returns the active driver session, if any
func (a *Agent) Session() *models.Session {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.session
}

// Manager returns the route manager of the active session
func (a *Agent) Manager() (*tracking.Manager, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.manager == nil {
		return nil, ErrNoSession
	}
	return a.manager, nil
}

// Login signs the driver in and activates the session right away instead of
// waiting for the auth listener to find it.
func (a *Agent) Login(ctx context.Context, truckID, password string) (*models.Session, error) {
	s, err := a.deps.Login.Login(ctx, truckID, password)
	if err != nil {
		return nil, err
	}
	a.activate(s)
	return s, nil
}

// Logout ends a running route, then clears the session and signs out
func (a *Agent) Logout(ctx context.Context) error {
	a.mu.Lock()
	m := a.manager
	a.mu.Unlock()

	if m != nil {
		switch m.Status().RouteStatus {
		case models.RouteStatusActive, models.RouteStatusPaused:
			if err := m.StopRoute(ctx); err != nil {
				a.log.Error("❌ Failed to stop route on logout", zap.Error(err))
			}
		}
	}

	a.deactivate()
	return a.deps.Login.Logout(ctx)
}

// Close tears down the active session without signing out
func (a *Agent) Close() {
	a.deactivate()
}

func sameSession(a, b *models.Session) bool {
	return a != nil && b != nil &&
		a.UID == b.UID &&
		a.Profile.TruckIdentity == b.Profile.TruckIdentity
}

func (a *Agent) activate(s *models.Session) {
	a.mu.Lock()
	if sameSession(a.session, s) {
		a.session = s
		a.mu.Unlock()
		return
	}
	oldManager, oldStop := a.manager, a.stopFeeds

	id := s.Profile.TruckIdentity
	log := a.log.With(zap.String("truck_id", id.TruckID))
	opts := append([]tracking.Option{tracking.WithLogger(log)}, a.deps.ManagerOptions...)
	m := tracking.New(a.deps.Provider, a.deps.Store, opts...)
	if err := m.SetTruckInfo(id); err != nil {
		a.mu.Unlock()
		log.Error("❌ Rejected session identity", zap.Error(err))
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	stops := []func(){cancel}
	if a.deps.Trucks != nil && a.deps.Broadcast != nil {
		stops = append(stops, a.deps.Trucks.SubscribeTruck(ctx, id, a.deps.Broadcast.BroadcastTruck, func(err error) {
			log.Warn("⚠️  Truck feed error", zap.Error(err))
		}))
	}
	if a.deps.Tickets != nil && a.deps.Broadcast != nil {
		stops = append(stops, a.deps.Tickets.SubscribeAssigned(ctx, id, a.deps.Broadcast.BroadcastTickets))
	}

	a.session = s
	a.manager = m
	a.stopFeeds = func() {
		for _, stop := range stops {
			stop()
		}
	}
	a.mu.Unlock()

	if oldManager != nil {
		oldManager.Close()
	}
	if oldStop != nil {
		oldStop()
	}

	log.Info("🚛 Driver session active", zap.String("uid", s.UID))

	// Done before Login returns so the remote status is mirrored before the
	// first route action. A failed run (no device yet) is retried by that action.
	initCtx, cancelInit := context.WithTimeout(ctx, initTimeout)
	defer cancelInit()
	if _, err := m.Initialize(initCtx); err != nil {
		log.Warn("⚠️  Route manager initialization deferred", zap.Error(err))
	}
}

func (a *Agent) deactivate() {
	a.mu.Lock()
	m, stop := a.manager, a.stopFeeds
	hadSession := a.session != nil
	a.session, a.manager, a.stopFeeds = nil, nil, nil
	a.mu.Unlock()

	if m != nil {
		m.Close()
	}
	if stop != nil {
		stop()
	}
	if hadSession {
		a.log.Info("👋 Driver session ended")
	}
}
