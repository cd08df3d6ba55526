package services

import (
	"testing"
	"time"

	"vatelanka-driver/internal/models"

	"github.com/stretchr/testify/require"
)

func ticketAt(id string, lat, lng float64) models.Ticket {
	return models.Ticket{ID: id, HomeLocation: &models.GeoPoint{Latitude: lat, Longitude: lng}}
}

func TestNearestFirst(t *testing.T) {
	p := NewTicketPlanner(nil)
	tickets := []models.Ticket{
		ticketAt("far", 6.95, 79.95),
		{ID: "nowhere"},
		ticketAt("near", 6.901, 79.851),
		ticketAt("mid", 6.92, 79.87),
	}

	out := p.NearestFirst(tickets, models.GeoPoint{Latitude: 6.9, Longitude: 79.85})

	ids := make([]string, 0, len(out))
	for _, tk := range out {
		ids = append(ids, tk.ID)
	}
	require.Equal(t, []string{"near", "mid", "far", "nowhere"}, ids)
	require.Equal(t, "far", tickets[0].ID)
}

func TestNearestFirst_Small(t *testing.T) {
	p := NewTicketPlanner(nil)
	require.Empty(t, p.NearestFirst(nil, models.GeoPoint{}))
	one := []models.Ticket{{ID: "a"}}
	require.Equal(t, one, p.NearestFirst(one, models.GeoPoint{}))
}

func TestTicketAge(t *testing.T) {
	now := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)
	assigned := now.Add(-3 * time.Hour)
	created := now.Add(-49 * time.Hour)

	require.Equal(t, "3h ago", TicketAge(models.Ticket{AssignedAt: &assigned, CreatedAt: &created}, now))
	require.Equal(t, "2d ago", TicketAge(models.Ticket{CreatedAt: &created}, now))
	require.Equal(t, "", TicketAge(models.Ticket{}, now))
}
