package services

import (
	"math"

	"vatelanka-driver/internal/models"

	"go.uber.org/zap"
)

// TicketPlanner orders a driver's tickets for visiting
type TicketPlanner struct {
	log *zap.Logger
}

func NewTicketPlanner(log *zap.Logger) *TicketPlanner {
	if log == nil {
		log = zap.NewNop()
	}
	return &TicketPlanner{log: log}
}

// NearestFirst orders tickets by a nearest-neighbour walk starting at start.
// Tickets without a home location keep their relative order at the end.
func (p *TicketPlanner) NearestFirst(tickets []models.Ticket, start models.GeoPoint) []models.Ticket {
	if len(tickets) < 2 {
		return tickets
	}

	ordered := make([]models.Ticket, 0, len(tickets))
	remaining := make([]models.Ticket, 0, len(tickets))
	var unlocated []models.Ticket
	for _, t := range tickets {
		if t.HomeLocation == nil {
			unlocated = append(unlocated, t)
			continue
		}
		remaining = append(remaining, t)
	}

	current := start
	total := 0.0

	// Always take the closest remaining ticket from where we are
	for len(remaining) > 0 {
		bestIdx := 0
		bestDistance := math.MaxFloat64

		for i, t := range remaining {
			d := models.HaversineDistanceKm(current.Latitude, current.Longitude,
				t.HomeLocation.Latitude, t.HomeLocation.Longitude)
			if d < bestDistance {
				bestDistance = d
				bestIdx = i
			}
		}

		best := remaining[bestIdx]
		ordered = append(ordered, best)
		total += bestDistance
		current = *best.HomeLocation
		remaining = append(remaining[:bestIdx], remaining[bestIdx+1:]...)
	}

	p.log.Debug("🎯 Tickets ordered nearest-first",
		zap.Int("tickets", len(ordered)),
		zap.Int("without_location", len(unlocated)),
		zap.Float64("total_km", total))

	return append(ordered, unlocated...)
}
