package services

import (
	"testing"
	"time"

	"vatelanka-driver/internal/models"

	"cloud.google.com/go/firestore"
	"github.com/stretchr/testify/require"
	"google.golang.org/genproto/googleapis/type/latlng"
)

var testIdentity = models.TruckIdentity{
	MunicipalCouncil: "C1",
	District:         "D1",
	Ward:             "W1",
	SupervisorID:     "S1",
	TruckID:          "TRUCK007",
}

func TestToFirestoreUpdates(t *testing.T) {
	updates := toFirestoreUpdates(models.FieldUpdates{
		models.FieldRouteStatus:        "active",
		models.FieldLastLocationUpdate: models.ServerTimestamp,
	})

	require.Len(t, updates, 2)
	require.Equal(t, models.FieldLastLocationUpdate, updates[0].Path)
	require.Equal(t, firestore.ServerTimestamp, updates[0].Value)
	require.Equal(t, models.FieldRouteStatus, updates[1].Path)
	require.Equal(t, "active", updates[1].Value)
}

func TestDecodeTruck(t *testing.T) {
	reset := time.Date(2026, 3, 14, 0, 1, 0, 0, time.UTC)
	doc := decodeTruck(testIdentity, map[string]any{
		"routeStatus":       "completed",
		"lastCompletedDate": "2026-03-13T17:02:11.000Z",
		"lastStatusReset":   reset,
		"email":             "truck007@vatelanka.lk",
		"currentLocation": map[string]any{
			"latitude":  6.9,
			"longitude": 79.85,
			"heading":   int64(90),
			"timestamp": "2026-03-13T17:00:00.000Z",
		},
		"licensePlate": "WP-KA-1234",
	})

	require.Equal(t, models.RouteStatusCompleted, doc.RouteStatus)
	require.Equal(t, "2026-03-13T17:02:11.000Z", doc.LastCompletedDate)
	require.Equal(t, reset, *doc.LastStatusReset)
	require.Equal(t, 90.0, doc.CurrentLocation.Heading)
	require.Equal(t, 0.0, doc.CurrentLocation.Speed)
	require.Equal(t, "WP-KA-1234", doc.Extra["licensePlate"])
	require.NotContains(t, doc.Extra, "email")
	require.Equal(t, testIdentity, doc.Identity)
}

func TestDecodeTicket(t *testing.T) {
	assigned := time.Date(2026, 3, 14, 8, 0, 0, 0, time.UTC)
	tk := decodeTicket("T1", testIdentity, map[string]any{
		"status":       "assigned",
		"userName":     "Kamala",
		"wasteType":    "Plastic",
		"assignedTo":   "TRUCK007",
		"assignedAt":   assigned,
		"homeLocation": &latlng.LatLng{Latitude: 6.91, Longitude: 79.86},
	})

	require.Equal(t, "T1", tk.ID)
	require.Equal(t, "C1", tk.CouncilID)
	require.Equal(t, "W1", tk.WardID)
	require.Equal(t, models.TicketStatusAssigned, tk.Status)
	require.Equal(t, assigned, *tk.AssignedAt)
	require.Equal(t, 6.91, tk.HomeLocation.Latitude)

	tk = decodeTicket("T2", testIdentity, map[string]any{
		"homeLocation": map[string]any{"latitude": 7.0, "longitude": 80.0},
	})
	require.Equal(t, 80.0, tk.HomeLocation.Longitude)
}
