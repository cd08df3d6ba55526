package session

import (
	"context"
	"errors"
	"strings"
	"time"

	"vatelanka-driver/internal/models"

	"go.uber.org/zap"
)

const truckIDPrefix = "TRUCK"

// Authenticator signs drivers in and out with the auth provider
type Authenticator interface {
	SignIn(ctx context.Context, email, password string) (*models.Principal, error)
	SignOut(ctx context.Context) error
}

// TruckDirectory locates a truck document by truck id anywhere in the hierarchy
type TruckDirectory interface {
	FindTruck(ctx context.Context, truckID string) (*models.TruckDocument, error)
}

// LoginError carries the message shown to the driver
type LoginError struct {
	Message string
	Err     error
}

func (e *LoginError) Error() string { return e.Message }

func (e *LoginError) Unwrap() error { return e.Err }

var (
	ErrInvalidTruckID = errors.New("invalid truck id format")
	ErrLogout         = errors.New("logout failed")
)

// LoginService implements driver login and logout
type LoginService struct {
	auth      Authenticator
	directory TruckDirectory
	store     Store
	log       *zap.Logger
	now       func() time.Time

	verifyInterval time.Duration
	verifyAttempts int
}

func NewLoginService(auth Authenticator, directory TruckDirectory, store Store, log *zap.Logger) *LoginService {
	if log == nil {
		log = zap.NewNop()
	}
	return &LoginService{
		auth:           auth,
		directory:      directory,
		store:          store,
		log:            log,
		now:            time.Now,
		verifyInterval: 300 * time.Millisecond,
		verifyAttempts: 5,
	}
}

// NormalizeTruckID trims and upper-cases a truck id as typed by the driver
func NormalizeTruckID(raw string) string {
	return strings.ToUpper(strings.TrimSpace(raw))
}

// Login finds the truck, signs in with its account and persists the session
func (s *LoginService) Login(ctx context.Context, truckID, password string) (*models.Session, error) {
	truckID = NormalizeTruckID(truckID)
	if !strings.HasPrefix(truckID, truckIDPrefix) {
		return nil, &LoginError{Message: "Invalid Truck ID format. ID should start with 'TRUCK'", Err: ErrInvalidTruckID}
	}

	s.log.Info("🔍 Searching for truck", zap.String("truck_id", truckID))
	truck, err := s.directory.FindTruck(ctx, truckID)
	if err != nil {
		s.log.Error("❌ Login error", zap.Error(err))
		return nil, loginError(err)
	}

	principal, err := s.auth.SignIn(ctx, truck.Email, password)
	if err != nil {
		s.log.Error("❌ Login error", zap.Error(err))
		return nil, loginError(err)
	}

	session := &models.Session{
		UID:           principal.UID,
		Email:         principal.Email,
		EmailVerified: true,
		UserType:      models.UserTypeDriver,
		Profile: models.DriverProfile{
			TruckIdentity: truck.Identity,
			Email:         truck.Email,
			DriverName:    truck.DriverName,
			Extra:         truck.Extra,
		},
		LastLogin: s.now().UTC().Format("2006-01-02T15:04:05.000Z"),
	}
	session.Profile.TruckID = truckID

	if err := s.store.Save(ctx, session); err != nil {
		s.log.Error("❌ Error saving driver session", zap.Error(err))
		if signOutErr := s.auth.SignOut(ctx); signOutErr != nil {
			s.log.Warn("⚠️  Sign out after failed session save", zap.Error(signOutErr))
		}
		return nil, loginError(err)
	}

	s.verify(ctx)

	s.log.Info("✅ Driver logged in", zap.String("truck_id", truckID), zap.String("uid", principal.UID))
	return session, nil
}

// verify reads the session back; failing to see it is only logged
func (s *LoginService) verify(ctx context.Context) {
	if got, err := s.store.Load(ctx); err == nil && got != nil && got.Profile.TruckID != "" {
		s.log.Debug("Session verification successful", zap.Int("attempts", 0))
		return
	}

	poll := StartPoll(ctx, s.verifyInterval, s.verifyAttempts, func(ctx context.Context) (*models.Session, error) {
		got, err := s.store.Load(ctx)
		if err != nil || got == nil || got.Profile.TruckID == "" {
			return nil, err
		}
		return got, nil
	}, nil)

	res, err := poll.Wait(ctx)
	if err != nil {
		poll.Cancel()
		return
	}
	if res.Outcome == Found {
		s.log.Debug("Session verification successful", zap.Int("attempts", res.Attempts))
		return
	}
	s.log.Warn("⚠️  Could not verify session after multiple attempts", zap.Int("attempts", res.Attempts))
}

// Logout clears the local session and signs out
func (s *LoginService) Logout(ctx context.Context) error {
	if err := s.store.Clear(ctx); err != nil {
		s.log.Error("❌ Logout error", zap.Error(err))
		return &LoginError{Message: "Failed to logout", Err: errors.Join(ErrLogout, err)}
	}
	if err := s.auth.SignOut(ctx); err != nil {
		s.log.Error("❌ Logout error", zap.Error(err))
		return &LoginError{Message: "Failed to logout", Err: errors.Join(ErrLogout, err)}
	}
	return nil
}

func loginError(err error) error {
	switch {
	case errors.Is(err, models.ErrTruckNotFound):
		return &LoginError{Message: "Truck not found", Err: err}
	case errors.Is(err, models.ErrInvalidCredentials):
		return &LoginError{Message: "Invalid truck ID or password", Err: err}
	case errors.Is(err, models.ErrAccountDisabled):
		return &LoginError{Message: "This account has been disabled", Err: err}
	case errors.Is(err, models.ErrAuthNetwork):
		return &LoginError{Message: "Network error. Please check your connection", Err: err}
	case errors.Is(err, ErrIncompleteSession):
		return &LoginError{Message: "Incomplete driver profile. Please contact your supervisor", Err: err}
	default:
		return &LoginError{Message: "Login failed", Err: err}
	}
}
