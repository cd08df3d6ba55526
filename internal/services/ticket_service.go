package services

import (
	"context"
	"time"
	"unicode/utf8"

	"vatelanka-driver/internal/models"

	"cloud.google.com/go/firestore"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"google.golang.org/genproto/googleapis/type/latlng"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// TicketService reads and updates the tickets of the truck's ward
type TicketService struct {
	client *firestore.Client
	log    *zap.Logger
}

func NewTicketService(client *firestore.Client, log *zap.Logger) *TicketService {
	if log == nil {
		log = zap.NewNop()
	}
	return &TicketService{client: client, log: log}
}

func (s *TicketService) tickets(id models.TruckIdentity) *firestore.CollectionRef {
	return s.client.Collection(id.WardPath() + "/tickets")
}

func (s *TicketService) assignedQuery(id models.TruckIdentity) firestore.Query {
	return s.tickets(id).
		Where("assignedTo", "==", id.TruckID).
		OrderBy("assignedAt", firestore.Desc)
}

// ListAssigned returns the truck's tickets, most recently assigned first
func (s *TicketService) ListAssigned(ctx context.Context, id models.TruckIdentity) ([]models.Ticket, error) {
	snaps, err := s.assignedQuery(id).Documents(ctx).GetAll()
	if err != nil {
		return nil, errors.Wrap(err, "list assigned tickets")
	}

	out := make([]models.Ticket, 0, len(snaps))
	for _, snap := range snaps {
		out = append(out, decodeTicket(snap.Ref.ID, id, snap.Data()))
	}
	return out, nil
}

// SubscribeAssigned delivers the assigned ticket list on every change.
// A stream error delivers an empty list and ends the subscription.
func (s *TicketService) SubscribeAssigned(ctx context.Context, id models.TruckIdentity, onChange func([]models.Ticket)) (stop func()) {
	ctx, cancel := context.WithCancel(ctx)
	it := s.assignedQuery(id).Snapshots(ctx)

	go func() {
		defer it.Stop()
		for {
			qs, err := it.Next()
			if err != nil {
				if ctx.Err() == nil {
					s.log.Error("❌ Error in tickets subscription", zap.Error(err))
					onChange([]models.Ticket{})
				}
				return
			}

			snaps, err := qs.Documents.GetAll()
			if err != nil {
				s.log.Error("❌ Error reading tickets snapshot", zap.Error(err))
				onChange([]models.Ticket{})
				continue
			}

			tickets := make([]models.Ticket, 0, len(snaps))
			for _, snap := range snaps {
				tickets = append(tickets, decodeTicket(snap.Ref.ID, id, snap.Data()))
			}
			onChange(tickets)
		}
	}()

	return cancel
}

func (s *TicketService) GetTicket(ctx context.Context, id models.TruckIdentity, ticketID string) (*models.Ticket, error) {
	snap, err := s.tickets(id).Doc(ticketID).Get(ctx)
	if status.Code(err) == codes.NotFound {
		return nil, models.ErrTicketNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "get ticket")
	}
	t := decodeTicket(snap.Ref.ID, id, snap.Data())
	return &t, nil
}

// UpdateStatus sets the ticket status and updatedAt; resolving also sets resolvedAt
func (s *TicketService) UpdateStatus(ctx context.Context, id models.TruckIdentity, ticketID string, st models.TicketStatus, extra models.FieldUpdates) error {
	fields := models.FieldUpdates{
		"status":    string(st),
		"updatedAt": models.ServerTimestamp,
	}
	for k, v := range extra {
		fields[k] = v
	}
	if st == models.TicketStatusResolved {
		fields["resolvedAt"] = models.ServerTimestamp
	}

	_, err := s.tickets(id).Doc(ticketID).Update(ctx, toFirestoreUpdates(fields))
	if status.Code(err) == codes.NotFound {
		return models.ErrTicketNotFound
	}
	if err != nil {
		return errors.Wrap(err, "update ticket status")
	}

	s.log.Info("🎫 Ticket status updated", zap.String("ticket_id", ticketID), zap.String("status", string(st)))
	return nil
}

func (s *TicketService) StartWorking(ctx context.Context, id models.TruckIdentity, ticketID, driverName string) error {
	if driverName == "" {
		driverName = "Driver"
	}
	return s.UpdateStatus(ctx, id, ticketID, models.TicketStatusInProgress, models.FieldUpdates{
		"startedWorkingAt": models.ServerTimestamp,
		"lastUpdatedBy":    driverName,
	})
}

func (s *TicketService) Complete(ctx context.Context, id models.TruckIdentity, ticketID string, c models.TicketCompletion) error {
	if utf8.RuneCountInString(c.Notes) > models.MaxCompletionNotes {
		return models.ErrNotesTooLong
	}
	return s.UpdateStatus(ctx, id, ticketID, models.TicketStatusResolved, models.FieldUpdates{
		"completedAt":        models.ServerTimestamp,
		"completionNotes":    c.Notes,
		"completedByName":    c.DriverName,
		"completedByTruckId": id.TruckID,
	})
}

// Counts returns pending tickets in the ward and open tickets assigned to the truck
func (s *TicketService) Counts(ctx context.Context, id models.TruckIdentity) (models.TicketCounts, error) {
	pending, err := s.tickets(id).Where("status", "==", string(models.TicketStatusPending)).Documents(ctx).GetAll()
	if err != nil {
		return models.TicketCounts{}, errors.Wrap(err, "count pending tickets")
	}

	assigned, err := s.tickets(id).Where("assignedTo", "==", id.TruckID).Documents(ctx).GetAll()
	if err != nil {
		return models.TicketCounts{}, errors.Wrap(err, "count assigned tickets")
	}

	open := 0
	for _, snap := range assigned {
		if stringField(snap.Data(), "status") != string(models.TicketStatusResolved) {
			open++
		}
	}

	return models.TicketCounts{Pending: len(pending), Assigned: open}, nil
}

func decodeTicket(ticketID string, id models.TruckIdentity, data map[string]any) models.Ticket {
	t := models.Ticket{
		ID:                   ticketID,
		CouncilID:            id.MunicipalCouncil,
		DistrictID:           id.District,
		WardID:               id.Ward,
		Status:               models.TicketStatus(stringField(data, "status")),
		IssueType:            stringField(data, "issueType"),
		WasteType:            stringField(data, "wasteType"),
		UserName:             stringField(data, "userName"),
		UserEmail:            stringField(data, "userEmail"),
		PhoneNumber:          stringField(data, "phoneNumber"),
		Notes:                stringField(data, "notes"),
		WardName:             stringField(data, "wardName"),
		DistrictName:         stringField(data, "districtName"),
		MunicipalCouncilName: stringField(data, "municipalCouncilName"),
		AssignedTo:           stringField(data, "assignedTo"),
		CreatedAt:            timeField(data, "createdAt"),
		UpdatedAt:            timeField(data, "updatedAt"),
		AssignedAt:           timeField(data, "assignedAt"),
		StartedWorkingAt:     timeField(data, "startedWorkingAt"),
		ResolvedAt:           timeField(data, "resolvedAt"),
	}

	switch loc := data["homeLocation"].(type) {
	case *latlng.LatLng:
		t.HomeLocation = &models.GeoPoint{Latitude: loc.GetLatitude(), Longitude: loc.GetLongitude()}
	case map[string]any:
		t.HomeLocation = &models.GeoPoint{Latitude: floatField(loc, "latitude"), Longitude: floatField(loc, "longitude")}
	}

	return t
}

// TicketAge is the display age of a ticket, based on when it was assigned
func TicketAge(t models.Ticket, now time.Time) string {
	switch {
	case t.AssignedAt != nil:
		return models.FormatTimeAgo(*t.AssignedAt, now)
	case t.CreatedAt != nil:
		return models.FormatTimeAgo(*t.CreatedAt, now)
	default:
		return ""
	}
}
