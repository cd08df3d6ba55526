package session

import (
	"context"
	"sync"
	"time"

	"vatelanka-driver/internal/models"

	"go.uber.org/zap"
)

// AuthProvider pushes the authenticated principal, or nil, on every change.
// The callback is also invoked once right after subscribing.
type AuthProvider interface {
	OnAuthStateChanged(cb func(*models.Principal)) (unsubscribe func())
}

// State is what the bootstrapper knows about the current driver
type State struct {
	Loading   bool
	Principal *models.Principal
	Session   *models.Session
}

// Listener receives every state change, in order
type Listener func(State)

// Bootstrapper resolves whether a valid driver session exists, reconciling the
// local session store with auth-state notifications.
type Bootstrapper struct {
	store Store
	auth  AuthProvider
	log   *zap.Logger

	startupTimeout time.Duration
	pollInterval   time.Duration
	pollAttempts   int

	ctx    context.Context
	cancel context.CancelFunc

	mu          sync.Mutex
	state       State
	poll        *Poll
	listeners   []Listener
	unsubscribe func()
	started     bool

	ready     chan struct{}
	readyOnce sync.Once

	sendMu sync.Mutex
	events chan State
	authCh chan *models.Principal
}

type BootstrapOption func(*Bootstrapper)

func WithBootstrapLogger(l *zap.Logger) BootstrapOption {
	return func(b *Bootstrapper) { b.log = l }
}

// WithStartupTimeout bounds the initial local session lookup
func WithStartupTimeout(d time.Duration) BootstrapOption {
	return func(b *Bootstrapper) { b.startupTimeout = d }
}

// WithSessionPolling sets how often and how many times the store is polled
// after a sign-in that has no local session yet.
func WithSessionPolling(interval time.Duration, attempts int) BootstrapOption {
	return func(b *Bootstrapper) {
		b.pollInterval = interval
		b.pollAttempts = attempts
	}
}

func NewBootstrapper(store Store, auth AuthProvider, opts ...BootstrapOption) *Bootstrapper {
	b := &Bootstrapper{
		store:          store,
		auth:           auth,
		log:            zap.NewNop(),
		startupTimeout: 5 * time.Second,
		pollInterval:   time.Second,
		pollAttempts:   10,
		state:          State{Loading: true},
		ready:          make(chan struct{}),
		events:         make(chan State, 32),
		authCh:         make(chan *models.Principal, 8),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Subscribe registers a listener. Listeners added before Start see every change.
func (b *Bootstrapper) Subscribe(l Listener) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.listeners = append(b.listeners, l)
}

// Start begins the startup race and the auth-state subscription
func (b *Bootstrapper) Start(ctx context.Context) {
	b.mu.Lock()
	if b.started {
		b.mu.Unlock()
		return
	}
	b.started = true
	b.ctx, b.cancel = context.WithCancel(ctx)
	b.mu.Unlock()

	go b.dispatch()
	go b.handleAuthEvents()
	go b.raceStartup()

	unsubscribe := b.auth.OnAuthStateChanged(func(p *models.Principal) {
		select {
		case b.authCh <- p:
		case <-b.ctx.Done():
		}
	})

	b.mu.Lock()
	b.unsubscribe = unsubscribe
	b.mu.Unlock()
}

// State returns the current state
func (b *Bootstrapper) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// WaitReady blocks until the loading phase has ended
func (b *Bootstrapper) WaitReady(ctx context.Context) (State, error) {
	select {
	case <-b.ready:
		return b.State(), nil
	case <-ctx.Done():
		return State{}, ctx.Err()
	}
}

// Ready is closed once the loading phase has ended
func (b *Bootstrapper) Ready() <-chan struct{} {
	return b.ready
}

// Close unsubscribes from auth changes and cancels any polling
func (b *Bootstrapper) Close() {
	b.mu.Lock()
	unsubscribe := b.unsubscribe
	b.unsubscribe = nil
	poll := b.poll
	b.poll = nil
	cancel := b.cancel
	b.mu.Unlock()

	if unsubscribe != nil {
		unsubscribe()
	}
	if poll != nil {
		poll.Cancel()
	}
	if cancel != nil {
		cancel()
	}
}

func (b *Bootstrapper) raceStartup() {
	found := make(chan *models.Session, 1)
	go func() {
		found <- b.checkSession(b.ctx)
	}()

	timer := time.NewTimer(b.startupTimeout)
	defer timer.Stop()

	select {
	case s := <-found:
		if s == nil {
			b.log.Info("No valid driver session found on init")
		}
		b.update(func(st *State) {
			if s != nil {
				st.Session = s
			}
			st.Loading = false
		})
		return
	case <-timer.C:
		b.log.Warn("⚠️  Auth initialization timed out")
		b.update(func(st *State) { st.Loading = false })
	case <-b.ctx.Done():
		return
	}

	// A lookup that finishes after the timeout still counts
	select {
	case s := <-found:
		if s != nil {
			b.update(func(st *State) { st.Session = s })
		}
	case <-b.ctx.Done():
	}
}

func (b *Bootstrapper) handleAuthEvents() {
	for {
		select {
		case p := <-b.authCh:
			b.onAuthState(p)
		case <-b.ctx.Done():
			return
		}
	}
}

func (b *Bootstrapper) onAuthState(p *models.Principal) {
	if p == nil {
		b.log.Info("Auth state changed: no user")
		b.cancelPoll()
		b.update(func(st *State) {
			st.Principal = nil
			st.Session = nil
			st.Loading = false
		})
		return
	}

	b.log.Info("Auth state changed: user logged in", zap.String("uid", p.UID))
	b.update(func(st *State) { st.Principal = p })

	if s := b.checkSession(b.ctx); s != nil {
		b.cancelPoll()
		b.update(func(st *State) {
			st.Session = s
			st.Loading = false
		})
		return
	}

	b.log.Info("Starting session check polling", zap.Int("max_attempts", b.pollAttempts))
	b.cancelPoll()
	poll := StartPoll(b.ctx, b.pollInterval, b.pollAttempts, b.store.Load, func(res PollResult) {
		switch res.Outcome {
		case Found:
			b.update(func(st *State) { st.Session = res.Session })
		case Exhausted:
			b.log.Warn("⚠️  Session check timed out after maximum attempts", zap.Int("attempts", res.Attempts))
		}
	})

	b.mu.Lock()
	b.poll = poll
	b.mu.Unlock()

	b.update(func(st *State) { st.Loading = false })
}

func (b *Bootstrapper) cancelPoll() {
	b.mu.Lock()
	poll := b.poll
	b.poll = nil
	b.mu.Unlock()

	if poll != nil {
		poll.Cancel()
	}
}

func (b *Bootstrapper) checkSession(ctx context.Context) *models.Session {
	s, err := b.store.Load(ctx)
	if err != nil {
		b.log.Error("❌ Error checking session", zap.Error(err))
		return nil
	}
	return s
}

func (b *Bootstrapper) update(fn func(*State)) {
	b.sendMu.Lock()
	defer b.sendMu.Unlock()

	b.mu.Lock()
	fn(&b.state)
	snap := b.state
	b.mu.Unlock()

	if !snap.Loading {
		b.readyOnce.Do(func() { close(b.ready) })
	}

	select {
	case b.events <- snap:
	case <-b.ctx.Done():
	}
}

func (b *Bootstrapper) dispatch() {
	for {
		select {
		case st := <-b.events:
			b.mu.Lock()
			listeners := append([]Listener(nil), b.listeners...)
			b.mu.Unlock()
			for _, l := range listeners {
				l(st)
			}
		case <-b.ctx.Done():
			return
		}
	}
}
