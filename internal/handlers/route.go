package handlers

import (
	"context"
	"net/http"

	"vatelanka-driver/internal/models"
	"vatelanka-driver/internal/services"
	"vatelanka-driver/internal/tracking"
	"vatelanka-driver/pkg/utils"

	"go.uber.org/zap"
)

type routeStatusResponse struct {
	tracking.Snapshot
	LastRouteDate string `json:"lastRouteDate,omitempty"`
}

func routeStatus(m *tracking.Manager) routeStatusResponse {
	return routeStatusResponse{Snapshot: m.Status(), LastRouteDate: m.LastRouteDate()}
}

func GetRouteStatus(d Driver) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		m, err := currentManager(d, r)
		if err != nil {
			respondErr(w, err)
			return
		}
		utils.RespondSuccess(w, routeStatus(m), "")
	}
}

// routeAction runs one route transition and returns the resulting status
func routeAction(d Driver, log *zap.Logger, name, message string, action func(*tracking.Manager, context.Context) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		m, err := currentManager(d, r)
		if err != nil {
			respondErr(w, err)
			return
		}

		if err := action(m, r.Context()); err != nil {
			log.Warn("⚠️  Route action failed",
				zap.String("action", name),
				zap.String("truck_id", m.Identity().TruckID),
				zap.Error(err))
			respondErr(w, err)
			return
		}

		utils.RespondSuccess(w, routeStatus(m), message)
	}
}

func StartRoute(d Driver, log *zap.Logger) http.HandlerFunc {
	return routeAction(d, log, "start", "Route started", (*tracking.Manager).StartRoute)
}

func PauseRoute(d Driver, log *zap.Logger) http.HandlerFunc {
	return routeAction(d, log, "pause", "Route paused", (*tracking.Manager).PauseRoute)
}

func ResumeRoute(d Driver, log *zap.Logger) http.HandlerFunc {
	return routeAction(d, log, "resume", "Route resumed", (*tracking.Manager).ResumeRoute)
}

func StopRoute(d Driver, log *zap.Logger) http.HandlerFunc {
	return routeAction(d, log, "stop", "Route completed", (*tracking.Manager).StopRoute)
}

type refreshResponse struct {
	routeStatusResponse
	ResetOccurred bool `json:"resetOccurred"`
}

// RefreshRoute re-reads the truck document and applies the daily reset
func RefreshRoute(d Driver) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		m, err := currentManager(d, r)
		if err != nil {
			respondErr(w, err)
			return
		}
		reset := m.CheckAndResetRouteStatus(r.Context())
		utils.RespondSuccess(w, refreshResponse{routeStatusResponse: routeStatus(m), ResetOccurred: reset}, "")
	}
}

type currentLocationResponse struct {
	models.CurrentLocation
	Address *services.Address `json:"address,omitempty"`
}

// GetCurrentLocation returns a one-shot fix, with a street address when a geocoder is configured
func GetCurrentLocation(d Driver, geo Geocoder, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		m, err := currentManager(d, r)
		if err != nil {
			respondErr(w, err)
			return
		}

		loc, err := m.GetCurrentLocation(r.Context())
		if err != nil {
			respondErr(w, err)
			return
		}

		resp := currentLocationResponse{CurrentLocation: loc}
		if geo != nil {
			addr, err := geo.ReverseGeocode(r.Context(), loc.Latitude, loc.Longitude)
			if err != nil {
				log.Warn("⚠️  Reverse geocoding failed", zap.Error(err))
			} else {
				resp.Address = addr
			}
		}
		utils.RespondSuccess(w, resp, "")
	}
}
