package services

import (
	"context"
	"fmt"

	"vatelanka-driver/internal/models"

	"firebase.google.com/go/v4/messaging"
	"go.uber.org/zap"
)

// MessageSender is the part of the FCM client used here
type MessageSender interface {
	Send(ctx context.Context, message *messaging.Message) (string, error)
}

// FCMService notifies a truck's supervisor console through its FCM topic
type FCMService struct {
	client MessageSender
	log    *zap.Logger
}

func NewFCMService(client MessageSender, log *zap.Logger) *FCMService {
	if log == nil {
		log = zap.NewNop()
	}
	return &FCMService{client: client, log: log}
}

// RouteStatusChanged sends a data message to the supervisor topic. Failures are logged.
func (s *FCMService) RouteStatusChanged(ctx context.Context, id models.TruckIdentity, from, to models.RouteStatus) {
	message := &messaging.Message{
		Topic: id.SupervisorTopic(),
		Notification: &messaging.Notification{
			Title: "Route Update",
			Body:  fmt.Sprintf("Truck %s route is now %s", id.TruckID, to),
		},
		Data: map[string]string{
			"type":        "route_status",
			"truck_id":    id.TruckID,
			"ward":        id.Ward,
			"from_status": string(from),
			"to_status":   string(to),
		},
		Android: &messaging.AndroidConfig{
			Priority: "high",
		},
	}

	s.send(ctx, message)
}

// TicketResolved tells the supervisor a driver closed a ticket
func (s *FCMService) TicketResolved(ctx context.Context, id models.TruckIdentity, ticketID string) {
	message := &messaging.Message{
		Topic: id.SupervisorTopic(),
		Notification: &messaging.Notification{
			Title: "Ticket Resolved",
			Body:  fmt.Sprintf("Truck %s resolved ticket %s", id.TruckID, ticketID),
		},
		Data: map[string]string{
			"type":      "ticket_resolved",
			"truck_id":  id.TruckID,
			"ticket_id": ticketID,
		},
		APNS: &messaging.APNSConfig{
			Payload: &messaging.APNSPayload{
				Aps: &messaging.Aps{
					ContentAvailable: true,
					Sound:            "default",
				},
			},
		},
	}

	s.send(ctx, message)
}

func (s *FCMService) send(ctx context.Context, message *messaging.Message) {
	response, err := s.client.Send(ctx, message)
	if err != nil {
		s.log.Error("❌ Error sending FCM message", zap.String("topic", message.Topic), zap.Error(err))
		return
	}
	s.log.Info("✅ FCM notification sent", zap.String("topic", message.Topic), zap.String("message_id", response))
}
