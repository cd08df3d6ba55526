package tracking

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"vatelanka-driver/internal/models"

	"go.uber.org/zap"
)

const (
	isoLayout  = "2006-01-02T15:04:05.000Z"
	dateLayout = "2006-01-02"
)

// InitResult reports the device state seen by Initialize
type InitResult struct {
	ServicesEnabled bool                    `json:"servicesEnabled"`
	Foreground      models.PermissionStatus `json:"foregroundStatus"`
	ResetOccurred   bool                    `json:"resetOccurred"`
}

// Snapshot is the manager's local view of the route
type Snapshot struct {
	Identity    models.TruckIdentity `json:"identity"`
	RouteStatus models.RouteStatus   `json:"routeStatus"`
	IsTracking  bool                 `json:"isTracking"`
}

// Manager owns a truck's route status and keeps the truck document's
// location fresh while a route is running. One Manager per driver session.
//
// Transitions are not serialized against each other; callers are expected to
// allow one user action at a time.
type Manager struct {
	provider  LocationProvider
	store     TruckStore
	journal   Journal
	notifiers []Notifier
	log       *zap.Logger
	baseLog   *zap.Logger
	now       func() time.Time

	watch           WatchOptions
	positionTimeout time.Duration
	writeTimeout    time.Duration

	mu            sync.Mutex
	identity      models.TruckIdentity
	status        models.RouteStatus
	tracking      bool
	sub           Subscription
	initialized   bool
	initResult    InitResult
	synced        bool
	lastRouteDate string
}

// Option configures a Manager
type Option func(*Manager)

func WithLogger(l *zap.Logger) Option {
	return func(m *Manager) { m.log = l }
}

// WithClock replaces time.Now, mostly for tests
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

func WithJournal(j Journal) Option {
	return func(m *Manager) { m.journal = j }
}

func WithNotifiers(n ...Notifier) Option {
	return func(m *Manager) { m.notifiers = append(m.notifiers, n...) }
}

func WithWatchOptions(o WatchOptions) Option {
	return func(m *Manager) { m.watch = o }
}

// WithPositionTimeout bounds the one-shot position read
func WithPositionTimeout(d time.Duration) Option {
	return func(m *Manager) {
		if d > 0 {
			m.positionTimeout = d
		}
	}
}

// WithWriteTimeout bounds every store call made by the manager
func WithWriteTimeout(d time.Duration) Option {
	return func(m *Manager) {
		if d > 0 {
			m.writeTimeout = d
		}
	}
}

// New creates a Manager in the idle state with no identity
func New(provider LocationProvider, store TruckStore, opts ...Option) *Manager {
	m := &Manager{
		provider:        provider,
		store:           store,
		log:             zap.NewNop(),
		now:             time.Now,
		watch:           DefaultWatchOptions(),
		positionTimeout: 10 * time.Second,
		writeTimeout:    15 * time.Second,
		status:          models.RouteStatusIdle,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.baseLog = m.log
	return m
}

// SetTruckInfo configures the truck the manager works on. The identity is
// fixed while a route is active or paused.
func (m *Manager) SetTruckInfo(id models.TruckIdentity) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.identity == id {
		return nil
	}

	running := m.status == models.RouteStatusActive || m.status == models.RouteStatusPaused
	if m.identity.Complete() && (m.tracking || running) {
		return ErrIdentityLocked
	}

	m.identity = id
	m.status = models.RouteStatusIdle
	m.initialized = false
	m.synced = false
	m.log = m.baseLog.With(zap.String("truck_id", id.TruckID))
	return nil
}

// Identity returns the configured truck identity
func (m *Manager) Identity() models.TruckIdentity {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.identity
}

// Status returns the local route status and tracking flag
func (m *Manager) Status() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return Snapshot{
		Identity:    m.identity,
		RouteStatus: m.status,
		IsTracking:  m.tracking,
	}
}

// LastRouteDate returns the completion time of the last route ended by this manager
func (m *Manager) LastRouteDate() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastRouteDate
}

// Initialize mirrors the remote route status, running the daily reset check,
// then checks the device. The mirror runs once per identity whether or not a
// device is reachable. Only a successful device check is memoized; a failed
// one is retried on the next call.
func (m *Manager) Initialize(ctx context.Context) (InitResult, error) {
	m.mu.Lock()
	if m.initialized {
		cached := m.initResult
		m.mu.Unlock()
		return cached, nil
	}
	needsSync := m.identity.Complete() && !m.synced
	m.mu.Unlock()

	var reset bool
	if needsSync {
		reset = m.CheckAndResetRouteStatus(ctx)
	}

	enabled, err := m.provider.HasServicesEnabled(ctx)
	if err != nil {
		m.log.Error("❌ Location initialization failed", zap.Error(err))
		return InitResult{Foreground: models.PermissionUndetermined, ResetOccurred: reset}, fmt.Errorf("check location services: %w", err)
	}
	if !enabled {
		m.log.Warn("⚠️  Location services are disabled")
		return InitResult{Foreground: models.PermissionUndetermined, ResetOccurred: reset}, ErrServicesDisabled
	}

	status, err := m.provider.GetForegroundPermission(ctx)
	if err != nil {
		m.log.Error("❌ Reading location permission failed", zap.Error(err))
		return InitResult{ServicesEnabled: true, Foreground: models.PermissionUndetermined, ResetOccurred: reset}, fmt.Errorf("read location permission: %w", err)
	}

	result := InitResult{ServicesEnabled: true, Foreground: status}

	m.mu.Lock()
	m.initialized = true
	m.initResult = result
	m.mu.Unlock()

	result.ResetOccurred = reset

	m.log.Info("✅ Location service initialized",
		zap.String("foreground_status", string(status)),
		zap.Bool("reset_occurred", result.ResetOccurred))
	return result, nil
}

// StartRoute moves the route from idle or completed to active and starts
// position tracking.
// When the status is already active but tracking is not running, only the
// subscription is retried.
func (m *Manager) StartRoute(ctx context.Context) error {
	id, err := m.requireIdentity()
	if err != nil {
		return err
	}

	if _, err := m.Initialize(ctx); err != nil {
		m.log.Warn("⚠️  Initialization before start failed", zap.Error(err))
	}

	m.mu.Lock()
	from, tracking := m.status, m.tracking
	m.mu.Unlock()

	needsWrite := true
	switch {
	case from == models.RouteStatusIdle, from == models.RouteStatusCompleted:
	case from == models.RouteStatusActive && !tracking:
		needsWrite = false
	case from == models.RouteStatusActive:
		return nil
	default:
		return transitionError(from, models.RouteStatusActive)
	}

	readiness, err := m.EnsureLocationReady(ctx)
	if err != nil {
		return err
	}
	if readiness != Ready {
		return readiness.Err()
	}

	if needsWrite {
		err := m.write(ctx, id, "start route", models.FieldUpdates{
			models.FieldRouteStatus:        string(models.RouteStatusActive),
			models.FieldLastLocationUpdate: models.ServerTimestamp,
			models.FieldLastRouteStarted:   m.now().UTC().Format(isoLayout),
		})
		if err != nil {
			return err
		}
		m.commit(ctx, id, from, models.RouteStatusActive)
	}

	m.subscribe()
	return nil
}

// PauseRoute moves an active route to paused. Tracking keeps running.
func (m *Manager) PauseRoute(ctx context.Context) error {
	return m.transition(ctx, "pause route", models.RouteStatusPaused, models.FieldUpdates{
		models.FieldRouteStatus:        string(models.RouteStatusPaused),
		models.FieldLastLocationUpdate: models.ServerTimestamp,
	}, models.RouteStatusActive)
}

// ResumeRoute moves a paused route back to active
func (m *Manager) ResumeRoute(ctx context.Context) error {
	return m.transition(ctx, "resume route", models.RouteStatusActive, models.FieldUpdates{
		models.FieldRouteStatus:        string(models.RouteStatusActive),
		models.FieldLastLocationUpdate: models.ServerTimestamp,
	}, models.RouteStatusPaused)
}

// StopRoute cancels tracking and completes the route
func (m *Manager) StopRoute(ctx context.Context) error {
	id, err := m.requireIdentity()
	if err != nil {
		return err
	}

	m.mu.Lock()
	from := m.status
	if from != models.RouteStatusActive && from != models.RouteStatusPaused {
		m.mu.Unlock()
		return transitionError(from, models.RouteStatusCompleted)
	}
	m.mu.Unlock()

	m.cancelTracking()

	completedAt := m.now().UTC().Format(isoLayout)
	err = m.write(ctx, id, "stop route", models.FieldUpdates{
		models.FieldRouteStatus:        string(models.RouteStatusCompleted),
		models.FieldLastLocationUpdate: models.ServerTimestamp,
		models.FieldLastCompletedDate:  completedAt,
	})
	if err != nil {
		return err
	}

	m.mu.Lock()
	m.lastRouteDate = completedAt
	m.mu.Unlock()

	m.commit(ctx, id, from, models.RouteStatusCompleted)
	return nil
}

// Close cancels tracking without touching the remote document. Safe to call repeatedly.
func (m *Manager) Close() {
	m.cancelTracking()
}

func (m *Manager) transition(ctx context.Context, op string, to models.RouteStatus, fields models.FieldUpdates, allowedFrom ...models.RouteStatus) error {
	id, err := m.requireIdentity()
	if err != nil {
		return err
	}

	m.mu.Lock()
	from := m.status
	m.mu.Unlock()

	allowed := false
	for _, s := range allowedFrom {
		if from == s {
			allowed = true
			break
		}
	}
	if !allowed {
		return transitionError(from, to)
	}

	if err := m.write(ctx, id, op, fields); err != nil {
		return err
	}

	m.commit(ctx, id, from, to)
	return nil
}

func (m *Manager) requireIdentity() (models.TruckIdentity, error) {
	id := m.Identity()
	if !id.Complete() {
		return id, ErrTruckInfoNotSet
	}
	return id, nil
}

func (m *Manager) write(ctx context.Context, id models.TruckIdentity, op string, fields models.FieldUpdates) error {
	ctx, cancel := context.WithTimeout(ctx, m.writeTimeout)
	defer cancel()

	if err := m.store.UpdateTruck(ctx, id, fields); err != nil {
		m.log.Error("❌ Truck document update failed", zap.String("op", op), zap.Error(err))
		return &RemoteError{Op: op, Err: err}
	}
	return nil
}

// commit records a confirmed transition locally, then tells the journal and notifiers
func (m *Manager) commit(ctx context.Context, id models.TruckIdentity, from, to models.RouteStatus) {
	m.mu.Lock()
	m.status = to
	m.mu.Unlock()

	m.log.Info("🚛 Route status changed", zap.String("from", string(from)), zap.String("to", string(to)))

	if m.journal != nil {
		event := models.RouteEvent{
			TruckID:          id.TruckID,
			MunicipalCouncil: id.MunicipalCouncil,
			District:         id.District,
			Ward:             id.Ward,
			SupervisorID:     id.SupervisorID,
			FromStatus:       from,
			ToStatus:         to,
			OccurredAt:       m.now().Unix(),
		}
		if err := m.journal.RecordTransition(context.WithoutCancel(ctx), event); err != nil {
			m.log.Warn("⚠️  Journal write failed", zap.Error(err))
		}
	}

	for _, n := range m.notifiers {
		n.RouteStatusChanged(context.WithoutCancel(ctx), id, from, to)
	}
}

func (m *Manager) subscribe() {
	m.cancelTracking()

	sub, err := m.provider.WatchPosition(m.watch, m.handleSample)
	if err != nil {
		m.log.Error("❌ Position subscription failed, route active without tracking", zap.Error(err))
		return
	}

	m.mu.Lock()
	m.sub = sub
	m.tracking = true
	m.mu.Unlock()

	m.log.Info("📍 Position tracking started",
		zap.Float64("distance_interval_m", m.watch.DistanceInterval),
		zap.Duration("time_interval", m.watch.TimeInterval))
}

func (m *Manager) cancelTracking() {
	m.mu.Lock()
	sub := m.sub
	m.sub = nil
	m.tracking = false
	m.mu.Unlock()

	if sub != nil {
		sub.Remove()
	}
}

// GetCurrentLocation returns a single fix, bounded by the position timeout
func (m *Manager) GetCurrentLocation(ctx context.Context) (models.CurrentLocation, error) {
	status, err := m.provider.GetForegroundPermission(ctx)
	if err != nil {
		return models.CurrentLocation{}, fmt.Errorf("read location permission: %w", err)
	}
	if status != models.PermissionGranted {
		return models.CurrentLocation{}, ErrPermissionDenied
	}

	enabled, err := m.provider.HasServicesEnabled(ctx)
	if err != nil {
		return models.CurrentLocation{}, fmt.Errorf("check location services: %w", err)
	}
	if !enabled {
		return models.CurrentLocation{}, ErrServicesDisabled
	}

	ctx, cancel := context.WithTimeout(ctx, m.positionTimeout)
	defer cancel()

	sample, err := m.provider.GetCurrentPosition(ctx, models.AccuracyBalanced)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return models.CurrentLocation{}, ErrLocationTimeout
		}
		return models.CurrentLocation{}, fmt.Errorf("get current position: %w", err)
	}

	return m.toCurrentLocation(sample), nil
}
