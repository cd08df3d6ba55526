package handlers

import (
	"net/http"
	"strings"
	"time"

	"vatelanka-driver/internal/models"
	"vatelanka-driver/internal/services"
	"vatelanka-driver/pkg/utils"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

type ticketView struct {
	models.Ticket
	StatusText    string `json:"statusText"`
	TimeAgo       string `json:"timeAgo"`
	LocationLabel string `json:"locationLabel"`
}

func toTicketView(t models.Ticket, now time.Time) ticketView {
	return ticketView{
		Ticket:        t,
		StatusText:    t.Status.StatusText(),
		TimeAgo:       services.TicketAge(t, now),
		LocationLabel: t.LocationLabel(),
	}
}

// ListTickets returns the truck's tickets filtered by status and q.
// sort=nearest orders them by a walk from the truck's current position.
func ListTickets(d Driver, tickets TicketBackend, planner *services.TicketPlanner, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s, err := currentSession(d, r)
		if err != nil {
			respondErr(w, err)
			return
		}

		list, err := tickets.ListAssigned(r.Context(), s.Profile.TruckIdentity)
		if err != nil {
			log.Error("❌ Failed to list tickets", zap.Error(err))
			utils.RespondError(w, http.StatusBadGateway, "Failed to load tickets")
			return
		}

		q := r.URL.Query()
		list = models.TicketFilter{
			Status: models.TicketStatus(q.Get("status")),
			Query:  q.Get("q"),
		}.Apply(list)

		if strings.EqualFold(q.Get("sort"), "nearest") {
			if m, err := d.Manager(); err == nil {
				if loc, err := m.GetCurrentLocation(r.Context()); err == nil {
					list = planner.NearestFirst(list, models.GeoPoint{Latitude: loc.Latitude, Longitude: loc.Longitude})
				} else {
					log.Warn("⚠️  Nearest sort skipped, no position", zap.Error(err))
				}
			}
		}

		now := time.Now()
		views := make([]ticketView, 0, len(list))
		for _, t := range list {
			views = append(views, toTicketView(t, now))
		}
		utils.RespondSuccess(w, views, "")
	}
}

func TicketCounts(d Driver, tickets TicketBackend) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s, err := currentSession(d, r)
		if err != nil {
			respondErr(w, err)
			return
		}
		counts, err := tickets.Counts(r.Context(), s.Profile.TruckIdentity)
		if err != nil {
			utils.RespondError(w, http.StatusBadGateway, "Failed to load ticket counts")
			return
		}
		utils.RespondSuccess(w, counts, "")
	}
}

func GetTicket(d Driver, tickets TicketBackend) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s, err := currentSession(d, r)
		if err != nil {
			respondErr(w, err)
			return
		}
		t, err := tickets.GetTicket(r.Context(), s.Profile.TruckIdentity, chi.URLParam(r, "id"))
		if err != nil {
			respondTicketErr(w, err, "Failed to load ticket")
			return
		}
		utils.RespondSuccess(w, toTicketView(*t, time.Now()), "")
	}
}

func StartTicket(d Driver, tickets TicketBackend, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s, err := currentSession(d, r)
		if err != nil {
			respondErr(w, err)
			return
		}
		ticketID := chi.URLParam(r, "id")
		if err := tickets.StartWorking(r.Context(), s.Profile.TruckIdentity, ticketID, s.Profile.DriverName); err != nil {
			log.Warn("⚠️  Failed to start ticket", zap.String("ticket_id", ticketID), zap.Error(err))
			respondTicketErr(w, err, "Failed to update ticket")
			return
		}
		utils.RespondSuccess(w, map[string]string{"id": ticketID, "status": string(models.TicketStatusInProgress)}, "Ticket started")
	}
}

type completeTicketRequest struct {
	Notes string `json:"notes"`
}

func CompleteTicket(d Driver, tickets TicketBackend, notifier TicketNotifier, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s, err := currentSession(d, r)
		if err != nil {
			respondErr(w, err)
			return
		}

		var req completeTicketRequest
		if r.ContentLength != 0 {
			if err := utils.DecodeJSON(r, &req); err != nil {
				utils.RespondError(w, http.StatusBadRequest, "Invalid request body")
				return
			}
		}

		id := s.Profile.TruckIdentity
		ticketID := chi.URLParam(r, "id")
		err = tickets.Complete(r.Context(), id, ticketID, models.TicketCompletion{
			Notes:      req.Notes,
			DriverName: s.Profile.DriverName,
		})
		if err != nil {
			log.Warn("⚠️  Failed to complete ticket", zap.String("ticket_id", ticketID), zap.Error(err))
			respondTicketErr(w, err, "Failed to complete ticket")
			return
		}

		if notifier != nil {
			notifier.TicketResolved(r.Context(), id, ticketID)
		}
		utils.RespondSuccess(w, map[string]string{"id": ticketID, "status": string(models.TicketStatusResolved)}, "Ticket completed")
	}
}

func respondTicketErr(w http.ResponseWriter, err error, fallback string) {
	switch statusFor(err) {
	case http.StatusNotFound, http.StatusBadRequest:
		respondErr(w, err)
	default:
		utils.RespondError(w, http.StatusBadGateway, fallback)
	}
}
