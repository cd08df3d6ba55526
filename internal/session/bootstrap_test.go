package session

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"vatelanka-driver/internal/models"

	"github.com/stretchr/testify/require"
)

type funcStore struct {
	load  func(ctx context.Context) (*models.Session, error)
	calls atomic.Int32
}

func (f *funcStore) Save(context.Context, *models.Session) error { return nil }
func (f *funcStore) Clear(context.Context) error                 { return nil }

func (f *funcStore) Load(ctx context.Context) (*models.Session, error) {
	f.calls.Add(1)
	return f.load(ctx)
}

type fakeAuth struct {
	mu           sync.Mutex
	cb           func(*models.Principal)
	unsubscribed bool
}

func (a *fakeAuth) OnAuthStateChanged(cb func(*models.Principal)) func() {
	a.mu.Lock()
	a.cb = cb
	a.mu.Unlock()
	return func() {
		a.mu.Lock()
		a.unsubscribed = true
		a.mu.Unlock()
	}
}

func (a *fakeAuth) emit(p *models.Principal) {
	a.mu.Lock()
	cb := a.cb
	a.mu.Unlock()
	cb(p)
}

func blockingStore() *funcStore {
	return &funcStore{load: func(ctx context.Context) (*models.Session, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	}}
}

func TestBootstrap_LocalSessionWinsRace(t *testing.T) {
	store := &funcStore{load: func(context.Context) (*models.Session, error) { return validSession(), nil }}
	b := NewBootstrapper(store, &fakeAuth{}, WithStartupTimeout(time.Hour))
	b.Start(context.Background())
	defer b.Close()

	st, err := b.WaitReady(waitCtx(t))
	require.NoError(t, err)
	require.False(t, st.Loading)
	require.NotNil(t, st.Session)
	require.Equal(t, "TRUCK007", st.Session.Profile.TruckID)
}

func TestBootstrap_TimeoutEndsLoading(t *testing.T) {
	b := NewBootstrapper(blockingStore(), &fakeAuth{}, WithStartupTimeout(50*time.Millisecond))
	start := time.Now()
	b.Start(context.Background())
	defer b.Close()

	st, err := b.WaitReady(waitCtx(t))
	require.NoError(t, err)
	require.GreaterOrEqual(t, time.Since(start), 50*time.Millisecond)
	require.False(t, st.Loading)
	require.Nil(t, st.Session)
}

func TestBootstrap_NoPrincipalClearsState(t *testing.T) {
	auth := &fakeAuth{}
	b := NewBootstrapper(blockingStore(), auth, WithStartupTimeout(time.Hour))
	b.Start(context.Background())
	defer b.Close()

	auth.emit(nil)

	st, err := b.WaitReady(waitCtx(t))
	require.NoError(t, err)
	require.Nil(t, st.Principal)
	require.Nil(t, st.Session)
}

func TestBootstrap_PollsAfterSignIn(t *testing.T) {
	var found atomic.Bool
	store := &funcStore{load: func(context.Context) (*models.Session, error) {
		if found.Load() {
			return validSession(), nil
		}
		return nil, nil
	}}
	auth := &fakeAuth{}
	b := NewBootstrapper(store, auth, WithStartupTimeout(time.Hour), WithSessionPolling(5*time.Millisecond, 10))

	var mu sync.Mutex
	var seen []State
	b.Subscribe(func(st State) {
		mu.Lock()
		seen = append(seen, st)
		mu.Unlock()
	})
	b.Start(context.Background())
	defer b.Close()

	_, err := b.WaitReady(waitCtx(t))
	require.NoError(t, err)

	auth.emit(&models.Principal{UID: "uid-7"})
	require.Eventually(t, func() bool { return b.State().Principal != nil }, time.Second, 2*time.Millisecond)
	require.Nil(t, b.State().Session)

	found.Store(true)
	require.Eventually(t, func() bool { return b.State().Session != nil }, time.Second, 2*time.Millisecond)

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(seen) > 0 && seen[len(seen)-1].Session != nil
	}, time.Second, 2*time.Millisecond)
}

func TestBootstrap_CloseStopsPolling(t *testing.T) {
	store := &funcStore{load: func(context.Context) (*models.Session, error) { return nil, nil }}
	auth := &fakeAuth{}
	b := NewBootstrapper(store, auth, WithStartupTimeout(time.Hour), WithSessionPolling(5*time.Millisecond, 1000))
	b.Start(context.Background())

	auth.emit(&models.Principal{UID: "uid-7"})
	_, err := b.WaitReady(waitCtx(t))
	require.NoError(t, err)

	b.Close()
	auth.mu.Lock()
	require.True(t, auth.unsubscribed)
	auth.mu.Unlock()

	time.Sleep(20 * time.Millisecond)
	calls := store.calls.Load()
	time.Sleep(30 * time.Millisecond)
	require.Equal(t, calls, store.calls.Load())
}
