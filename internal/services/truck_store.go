package services

import (
	"context"
	"sort"
	"time"

	"vatelanka-driver/internal/models"

	"cloud.google.com/go/firestore"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// TruckStore reads and partially updates truck documents in Firestore
type TruckStore struct {
	client *firestore.Client
	log    *zap.Logger
}

func NewTruckStore(client *firestore.Client, log *zap.Logger) *TruckStore {
	if log == nil {
		log = zap.NewNop()
	}
	return &TruckStore{client: client, log: log}
}

func (s *TruckStore) GetTruck(ctx context.Context, id models.TruckIdentity) (*models.TruckDocument, error) {
	snap, err := s.client.Doc(id.DocumentPath()).Get(ctx)
	if status.Code(err) == codes.NotFound {
		return nil, models.ErrTruckNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "firestore get truck")
	}
	return decodeTruck(id, snap.Data()), nil
}

// UpdateTruck writes only the given fields
func (s *TruckStore) UpdateTruck(ctx context.Context, id models.TruckIdentity, fields models.FieldUpdates) error {
	_, err := s.client.Doc(id.DocumentPath()).Update(ctx, toFirestoreUpdates(fields))
	if status.Code(err) == codes.NotFound {
		return models.ErrTruckNotFound
	}
	if err != nil {
		return errors.Wrap(err, "firestore update truck")
	}
	return nil
}

// SubscribeTruck streams the truck document until ctx is done or the returned
// stop func is called. onError is called once when the stream fails.
func (s *TruckStore) SubscribeTruck(ctx context.Context, id models.TruckIdentity, onChange func(*models.TruckDocument), onError func(error)) (stop func()) {
	ctx, cancel := context.WithCancel(ctx)
	it := s.client.Doc(id.DocumentPath()).Snapshots(ctx)

	go func() {
		defer it.Stop()
		for {
			snap, err := it.Next()
			if err != nil {
				if ctx.Err() == nil && onError != nil {
					onError(errors.Wrap(err, "truck snapshot"))
				}
				return
			}
			if !snap.Exists() {
				continue
			}
			onChange(decodeTruck(id, snap.Data()))
		}
	}()

	return cancel
}

func toFirestoreUpdates(fields models.FieldUpdates) []firestore.Update {
	updates := make([]firestore.Update, 0, len(fields))
	for path, v := range fields {
		if models.IsServerTimestamp(v) {
			v = firestore.ServerTimestamp
		}
		updates = append(updates, firestore.Update{Path: path, Value: v})
	}
	sort.Slice(updates, func(i, j int) bool { return updates[i].Path < updates[j].Path })
	return updates
}

var truckFields = map[string]bool{
	models.FieldRouteStatus:        true,
	models.FieldCurrentLocation:    true,
	models.FieldLastLocationUpdate: true,
	models.FieldLastRouteStarted:   true,
	models.FieldLastCompletedDate:  true,
	models.FieldLastStatusReset:    true,
	models.FieldLastResetDate:      true,
	"email":                        true,
	"driverName":                   true,
}

func decodeTruck(id models.TruckIdentity, data map[string]any) *models.TruckDocument {
	doc := &models.TruckDocument{
		Identity:           id,
		RouteStatus:        models.RouteStatus(stringField(data, models.FieldRouteStatus)),
		LastRouteStarted:   stringField(data, models.FieldLastRouteStarted),
		LastCompletedDate:  stringField(data, models.FieldLastCompletedDate),
		LastResetDate:      stringField(data, models.FieldLastResetDate),
		LastLocationUpdate: timeField(data, models.FieldLastLocationUpdate),
		LastStatusReset:    timeField(data, models.FieldLastStatusReset),
		Email:              stringField(data, "email"),
		DriverName:         stringField(data, "driverName"),
	}

	if loc, ok := data[models.FieldCurrentLocation].(map[string]any); ok {
		doc.CurrentLocation = &models.CurrentLocation{
			Latitude:  floatField(loc, "latitude"),
			Longitude: floatField(loc, "longitude"),
			Heading:   floatField(loc, "heading"),
			Speed:     floatField(loc, "speed"),
			Timestamp: stringField(loc, "timestamp"),
		}
	}

	for k, v := range data {
		if truckFields[k] {
			continue
		}
		if t, ok := v.(time.Time); ok {
			v = t.UTC().Format(time.RFC3339)
		}
		if doc.Extra == nil {
			doc.Extra = make(map[string]any)
		}
		doc.Extra[k] = v
	}
	return doc
}

func stringField(data map[string]any, key string) string {
	switch v := data[key].(type) {
	case string:
		return v
	case time.Time:
		return v.UTC().Format("2006-01-02T15:04:05.000Z")
	default:
		return ""
	}
}

func floatField(data map[string]any, key string) float64 {
	switch v := data[key].(type) {
	case float64:
		return v
	case int64:
		return float64(v)
	case int:
		return float64(v)
	default:
		return 0
	}
}

func timeField(data map[string]any, key string) *time.Time {
	if t, ok := data[key].(time.Time); ok {
		return &t
	}
	return nil
}
