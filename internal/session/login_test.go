package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"vatelanka-driver/internal/models"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"
)

type mockAuthenticator struct {
	mock.Mock
}

func (m *mockAuthenticator) SignIn(ctx context.Context, email, password string) (*models.Principal, error) {
	args := m.Called(ctx, email, password)
	p, _ := args.Get(0).(*models.Principal)
	return p, args.Error(1)
}

func (m *mockAuthenticator) SignOut(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

type mockDirectory struct {
	mock.Mock
}

func (m *mockDirectory) FindTruck(ctx context.Context, truckID string) (*models.TruckDocument, error) {
	args := m.Called(ctx, truckID)
	d, _ := args.Get(0).(*models.TruckDocument)
	return d, args.Error(1)
}

type LoginSuite struct {
	suite.Suite

	mr    *miniredis.Miniredis
	store *RedisStore
	auth  *mockAuthenticator
	dir   *mockDirectory
	svc   *LoginService
}

func (s *LoginSuite) SetupTest() {
	s.mr = miniredis.RunT(s.T())
	s.store = NewRedisStore(redis.NewClient(&redis.Options{Addr: s.mr.Addr()}), "")
	s.auth = &mockAuthenticator{}
	s.dir = &mockDirectory{}
	s.svc = NewLoginService(s.auth, s.dir, s.store, nil)
	s.svc.verifyInterval = time.Millisecond
	s.svc.now = func() time.Time { return time.Date(2026, 3, 14, 6, 0, 0, 0, time.UTC) }
}

func (s *LoginSuite) truckDoc() *models.TruckDocument {
	return &models.TruckDocument{
		Identity:    validSession().Profile.TruckIdentity,
		RouteStatus: models.RouteStatusIdle,
		Email:       "truck007@vatelanka.lk",
		DriverName:  "Nimal",
	}
}

func (s *LoginSuite) TestLoginSavesSession() {
	s.dir.On("FindTruck", mock.Anything, "TRUCK007").Return(s.truckDoc(), nil).Once()
	s.auth.On("SignIn", mock.Anything, "truck007@vatelanka.lk", "secret").
		Return(&models.Principal{UID: "uid-7", Email: "truck007@vatelanka.lk"}, nil).
		Once()

	sess, err := s.svc.Login(context.Background(), "  truck007 ", "secret")
	s.Require().NoError(err)
	s.Require().Equal("uid-7", sess.UID)
	s.Require().Equal(models.UserTypeDriver, sess.UserType)
	s.Require().Equal("2026-03-14T06:00:00.000Z", sess.LastLogin)

	stored, err := s.store.Load(context.Background())
	s.Require().NoError(err)
	s.Require().Equal("TRUCK007", stored.Profile.TruckID)
	s.Require().Equal("Nimal", stored.Profile.DriverName)
	s.dir.AssertExpectations(s.T())
	s.auth.AssertExpectations(s.T())
}

func (s *LoginSuite) TestLoginReturnsWithoutWaitingWhenSessionReadable() {
	s.svc.verifyInterval = time.Hour
	s.dir.On("FindTruck", mock.Anything, "TRUCK007").Return(s.truckDoc(), nil).Once()
	s.auth.On("SignIn", mock.Anything, "truck007@vatelanka.lk", "secret").
		Return(&models.Principal{UID: "uid-7", Email: "truck007@vatelanka.lk"}, nil).
		Once()

	start := time.Now()
	_, err := s.svc.Login(context.Background(), "TRUCK007", "secret")
	s.Require().NoError(err)
	s.Require().Less(time.Since(start), time.Second)
}

func (s *LoginSuite) TestSaveFailureSignsOut() {
	s.dir.On("FindTruck", mock.Anything, "TRUCK007").Return(s.truckDoc(), nil).Once()
	s.auth.On("SignIn", mock.Anything, "truck007@vatelanka.lk", "secret").
		Return(&models.Principal{UID: "uid-7", Email: "truck007@vatelanka.lk"}, nil).
		Once()
	s.auth.On("SignOut", mock.Anything).Return(nil).Once()
	s.mr.Close()

	sess, err := s.svc.Login(context.Background(), "TRUCK007", "secret")
	s.Require().Error(err)
	s.Require().Nil(sess)
	var loginErr *LoginError
	s.Require().True(errors.As(err, &loginErr))
	s.Require().Equal("Login failed", loginErr.Message)
	s.auth.AssertExpectations(s.T())
}

func (s *LoginSuite) TestRejectsBadPrefix() {
	_, err := s.svc.Login(context.Background(), "BUS01", "x")

	var le *LoginError
	s.Require().ErrorAs(err, &le)
	s.Require().ErrorIs(err, ErrInvalidTruckID)
	s.dir.AssertNotCalled(s.T(), "FindTruck", mock.Anything, mock.Anything)
}

func (s *LoginSuite) TestErrorMapping() {
	cases := []struct {
		findErr error
		authErr error
		want    string
	}{
		{findErr: models.ErrTruckNotFound, want: "Truck not found"},
		{authErr: models.ErrInvalidCredentials, want: "Invalid truck ID or password"},
		{authErr: models.ErrAccountDisabled, want: "This account has been disabled"},
		{authErr: models.ErrAuthNetwork, want: "Network error. Please check your connection"},
		{authErr: errors.New("boom"), want: "Login failed"},
	}

	for _, tc := range cases {
		dir := &mockDirectory{}
		auth := &mockAuthenticator{}
		svc := NewLoginService(auth, dir, s.store, nil)

		if tc.findErr != nil {
			dir.On("FindTruck", mock.Anything, "TRUCK001").Return(nil, tc.findErr)
		} else {
			dir.On("FindTruck", mock.Anything, "TRUCK001").Return(s.truckDoc(), nil)
			auth.On("SignIn", mock.Anything, mock.Anything, mock.Anything).Return(nil, tc.authErr)
		}

		_, err := svc.Login(context.Background(), "TRUCK001", "pw")
		s.Require().Error(err)
		s.Require().Equal(tc.want, err.Error())
	}
}

func (s *LoginSuite) TestLogoutClearsAndSignsOut() {
	s.Require().NoError(s.store.Save(context.Background(), validSession()))
	s.auth.On("SignOut", mock.Anything).Return(nil).Once()

	s.Require().NoError(s.svc.Logout(context.Background()))
	s.Require().False(s.mr.Exists("driverSession"))
	s.auth.AssertExpectations(s.T())
}

func TestLoginSuite(t *testing.T) {
	suite.Run(t, new(LoginSuite))
}
