package handlers

import (
	"context"
	"errors"
	"net/http"

	"vatelanka-driver/internal/agent"
	"vatelanka-driver/internal/middleware"
	"vatelanka-driver/internal/models"
	"vatelanka-driver/internal/services"
	"vatelanka-driver/internal/session"
	"vatelanka-driver/internal/tracking"
	"vatelanka-driver/pkg/utils"
)

// Driver is the signed-in driver as seen by the API
type Driver interface {
	Session() *models.Session
	Manager() (*tracking.Manager, error)
	Login(ctx context.Context, truckID, password string) (*models.Session, error)
	Logout(ctx context.Context) error
}

type TicketBackend interface {
	ListAssigned(ctx context.Context, id models.TruckIdentity) ([]models.Ticket, error)
	GetTicket(ctx context.Context, id models.TruckIdentity, ticketID string) (*models.Ticket, error)
	StartWorking(ctx context.Context, id models.TruckIdentity, ticketID, driverName string) error
	Complete(ctx context.Context, id models.TruckIdentity, ticketID string, c models.TicketCompletion) error
	Counts(ctx context.Context, id models.TruckIdentity) (models.TicketCounts, error)
}

type TicketNotifier interface {
	TicketResolved(ctx context.Context, id models.TruckIdentity, ticketID string)
}

type ReportStore interface {
	CreateDailyReport(ctx context.Context, r models.DailyReport) (*models.DailyReport, error)
	DailyReports(ctx context.Context, truckID string) ([]models.DailyReport, error)
}

type Geocoder interface {
	ReverseGeocode(ctx context.Context, lat, lng float64) (*services.Address, error)
}

type SessionState interface {
	State() session.State
}

type DeviceStatus interface {
	DeviceConnected() bool
}

// statusFor maps an error to the HTTP status returned to the client
func statusFor(err error) int {
	var remote *tracking.RemoteError
	var loginErr *session.LoginError

	switch {
	case errors.Is(err, agent.ErrNoSession):
		return http.StatusUnauthorized
	case errors.Is(err, tracking.ErrTruckInfoNotSet),
		errors.Is(err, tracking.ErrDeviceUnavailable),
		errors.Is(err, tracking.ErrServicesDisabled),
		errors.Is(err, tracking.ErrPermissionDenied):
		return http.StatusPreconditionFailed
	case errors.Is(err, tracking.ErrIdentityLocked),
		errors.Is(err, tracking.ErrInvalidTransition):
		return http.StatusConflict
	case errors.Is(err, tracking.ErrLocationTimeout):
		return http.StatusGatewayTimeout
	case errors.Is(err, models.ErrTicketNotFound):
		return http.StatusNotFound
	case errors.Is(err, models.ErrNotesTooLong),
		errors.Is(err, models.ErrIncompleteReport),
		errors.Is(err, models.ErrInvalidReportDate):
		return http.StatusBadRequest
	case errors.As(err, &loginErr):
		return http.StatusUnauthorized
	case errors.As(err, &remote):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func respondErr(w http.ResponseWriter, err error) {
	var loginErr *session.LoginError

	switch {
	case errors.Is(err, agent.ErrNoSession):
		utils.RespondError(w, http.StatusUnauthorized, "Not signed in. Please log in again.")
	case errors.Is(err, models.ErrTicketNotFound),
		errors.Is(err, models.ErrNotesTooLong),
		errors.Is(err, models.ErrIncompleteReport),
		errors.Is(err, models.ErrInvalidReportDate):
		utils.RespondError(w, statusFor(err), err.Error())
	case errors.As(err, &loginErr):
		utils.RespondError(w, statusFor(err), loginErr.Message)
	default:
		utils.RespondError(w, statusFor(err), tracking.UserMessage(err))
	}
}

// currentSession returns the session matching the caller's token
func currentSession(d Driver, r *http.Request) (*models.Session, error) {
	claims, ok := middleware.GetUserFromContext(r)
	if !ok {
		return nil, agent.ErrNoSession
	}
	s := d.Session()
	if s == nil || s.Profile.TruckID != claims.TruckID {
		return nil, agent.ErrNoSession
	}
	return s, nil
}

// currentManager returns the route manager for the caller's session
func currentManager(d Driver, r *http.Request) (*tracking.Manager, error) {
	if _, err := currentSession(d, r); err != nil {
		return nil, err
	}
	return d.Manager()
}
