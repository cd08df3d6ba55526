package agent

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"vatelanka-driver/internal/models"
	"vatelanka-driver/internal/session"
	"vatelanka-driver/internal/tracking"

	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

type stubProvider struct{}

func (stubProvider) HasServicesEnabled(context.Context) (bool, error) { return true, nil }

func (stubProvider) GetForegroundPermission(context.Context) (models.PermissionStatus, error) {
	return models.PermissionGranted, nil
}

func (stubProvider) RequestForegroundPermission(context.Context) (models.PermissionStatus, error) {
	return models.PermissionGranted, nil
}

func (stubProvider) GetCurrentPosition(ctx context.Context, _ models.Accuracy) (models.LocationSample, error) {
	<-ctx.Done()
	return models.LocationSample{}, ctx.Err()
}

func (stubProvider) WatchPosition(tracking.WatchOptions, func(models.LocationSample)) (tracking.Subscription, error) {
	return stubSubscription{}, nil
}

type stubSubscription struct{}

func (stubSubscription) Remove() {}

type memStore struct {
	mu     sync.Mutex
	status models.RouteStatus
	writes []models.FieldUpdates
}

func (s *memStore) GetTruck(_ context.Context, id models.TruckIdentity) (*models.TruckDocument, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return &models.TruckDocument{Identity: id, RouteStatus: s.status}, nil
}

func (s *memStore) UpdateTruck(_ context.Context, _ models.TruckIdentity, fields models.FieldUpdates) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.writes = append(s.writes, fields)
	if v, ok := fields[models.FieldRouteStatus].(string); ok {
		s.status = models.RouteStatus(v)
	}
	return nil
}

func (s *memStore) lastStatus() models.RouteStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

type feeds struct {
	mu          sync.Mutex
	subscribed  []string
	stopped     int
	truckDocs   []*models.TruckDocument
	ticketLists [][]models.Ticket
}

func (f *feeds) SubscribeTruck(_ context.Context, id models.TruckIdentity, onChange func(*models.TruckDocument), _ func(error)) func() {
	f.mu.Lock()
	f.subscribed = append(f.subscribed, "truck:"+id.TruckID)
	f.mu.Unlock()
	onChange(&models.TruckDocument{Identity: id})
	return f.stop
}

func (f *feeds) SubscribeAssigned(_ context.Context, id models.TruckIdentity, onChange func([]models.Ticket)) func() {
	f.mu.Lock()
	f.subscribed = append(f.subscribed, "tickets:"+id.TruckID)
	f.mu.Unlock()
	onChange([]models.Ticket{{ID: "t1"}})
	return f.stop
}

func (f *feeds) stop() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stopped++
}

func (f *feeds) BroadcastTruck(doc *models.TruckDocument) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.truckDocs = append(f.truckDocs, doc)
}

func (f *feeds) BroadcastTickets(tickets []models.Ticket) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ticketLists = append(f.ticketLists, tickets)
}

type stubLogin struct {
	session   *models.Session
	err       error
	loggedOut bool
}

func (l *stubLogin) Login(context.Context, string, string) (*models.Session, error) {
	return l.session, l.err
}

func (l *stubLogin) Logout(context.Context) error {
	l.loggedOut = true
	return nil
}

func driverSession(truckID string) *models.Session {
	return &models.Session{
		UID:      "uid-" + truckID,
		UserType: models.UserTypeDriver,
		Profile: models.DriverProfile{TruckIdentity: models.TruckIdentity{
			MunicipalCouncil: "CMC",
			District:         "Colombo",
			Ward:             "Ward4",
			SupervisorID:     "sup-1",
			TruckID:          truckID,
		}},
	}
}

type AgentTestSuite struct {
	suite.Suite
	store *memStore
	feeds *feeds
	login *stubLogin
	agent *Agent
}

func (s *AgentTestSuite) SetupTest() {
	s.store = &memStore{status: models.RouteStatusIdle}
	s.feeds = &feeds{}
	s.login = &stubLogin{session: driverSession("TRUCK007")}
	s.agent = New(Deps{
		Provider:  stubProvider{},
		Store:     s.store,
		Trucks:    s.feeds,
		Tickets:   s.feeds,
		Broadcast: s.feeds,
		Login:     s.login,
	}, nil)
}

func (s *AgentTestSuite) TearDownTest() {
	s.agent.Close()
}

func (s *AgentTestSuite) TestNoSessionHasNoManager() {
	_, err := s.agent.Manager()
	s.Require().ErrorIs(err, ErrNoSession)

	s.agent.OnSessionState(session.State{Loading: true, Session: driverSession("TRUCK007")})
	_, err = s.agent.Manager()
	s.Require().ErrorIs(err, ErrNoSession)
}

func (s *AgentTestSuite) TestSessionBuildsManagerAndFeeds() {
	s.agent.OnSessionState(session.State{Session: driverSession("TRUCK007")})

	m, err := s.agent.Manager()
	s.Require().NoError(err)
	s.Equal("TRUCK007", m.Identity().TruckID)
	s.ElementsMatch([]string{"truck:TRUCK007", "tickets:TRUCK007"}, s.feeds.subscribed)
	s.Len(s.feeds.truckDocs, 1)
	s.Len(s.feeds.ticketLists, 1)

	// same session again keeps the manager
	s.agent.OnSessionState(session.State{Session: driverSession("TRUCK007")})
	again, err := s.agent.Manager()
	s.Require().NoError(err)
	s.Same(m, again)
	s.Len(s.feeds.subscribed, 2)
}

func (s *AgentTestSuite) TestSessionSwitchReplacesManager() {
	s.agent.OnSessionState(session.State{Session: driverSession("TRUCK007")})
	first, _ := s.agent.Manager()

	s.agent.OnSessionState(session.State{Session: driverSession("TRUCK008")})
	second, err := s.agent.Manager()
	s.Require().NoError(err)
	s.NotSame(first, second)
	s.Equal("TRUCK008", second.Identity().TruckID)
	s.Equal(3, s.feeds.stopped) // cancel + two feeds of the first session
}

func (s *AgentTestSuite) TestSessionClearedTearsDown() {
	s.agent.OnSessionState(session.State{Session: driverSession("TRUCK007")})
	s.agent.OnSessionState(session.State{})

	s.Nil(s.agent.Session())
	_, err := s.agent.Manager()
	s.ErrorIs(err, ErrNoSession)
	s.Equal(3, s.feeds.stopped)
}

func (s *AgentTestSuite) TestLoginActivatesImmediately() {
	sess, err := s.agent.Login(context.Background(), "truck007", "secret")
	s.Require().NoError(err)
	s.Equal("TRUCK007", sess.Profile.TruckID)

	_, err = s.agent.Manager()
	s.NoError(err)
}

func (s *AgentTestSuite) TestLoginFailureLeavesNoSession() {
	s.login.err = errors.New("Invalid truck ID or password")
	s.login.session = nil

	_, err := s.agent.Login(context.Background(), "TRUCK007", "nope")
	s.Require().Error(err)
	s.Nil(s.agent.Session())
}

func (s *AgentTestSuite) TestLogoutStopsActiveRoute() {
	_, err := s.agent.Login(context.Background(), "TRUCK007", "secret")
	s.Require().NoError(err)

	m, _ := s.agent.Manager()
	s.Require().NoError(m.StartRoute(context.Background()))
	s.Require().Eventually(func() bool {
		return s.store.lastStatus() == models.RouteStatusActive
	}, time.Second, 10*time.Millisecond)

	s.Require().NoError(s.agent.Logout(context.Background()))
	s.Equal(models.RouteStatusCompleted, s.store.lastStatus())
	s.True(s.login.loggedOut)
	s.Nil(s.agent.Session())
}

func (s *AgentTestSuite) TestLogoutWhenIdleDoesNotWrite() {
	_, err := s.agent.Login(context.Background(), "TRUCK007", "secret")
	s.Require().NoError(err)

	s.Require().NoError(s.agent.Logout(context.Background()))
	for _, w := range s.store.writes {
		s.NotEqual(string(models.RouteStatusCompleted), w[models.FieldRouteStatus])
	}
	s.True(s.login.loggedOut)
}

func TestAgentTestSuite(t *testing.T) {
	suite.Run(t, new(AgentTestSuite))
}

func TestSameSession(t *testing.T) {
	require.True(t, sameSession(driverSession("TRUCK007"), driverSession("TRUCK007")))
	require.False(t, sameSession(driverSession("TRUCK007"), driverSession("TRUCK008")))
	require.False(t, sameSession(nil, driverSession("TRUCK007")))
}
