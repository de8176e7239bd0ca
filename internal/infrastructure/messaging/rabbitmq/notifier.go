package rabbitmq

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/baechuer/property-recs/internal/domain"
	"github.com/baechuer/property-recs/internal/infrastructure/notify"
)

const (
	RoutingKeyRecommendations = "email.property_recommendations"
	EventTypeRecommendations  = "email.property_recommendations"
)

// EventPublisher is satisfied by *Publisher.
type EventPublisher interface {
	PublishEvent(ctx context.Context, routingKey, messageID string, body []byte) error
}

// Notifier hands recommendation batches to the email service over RabbitMQ.
type Notifier struct {
	pub        EventPublisher
	routingKey string
}

func NewNotifier(pub EventPublisher, routingKey string) *Notifier {
	if routingKey == "" {
		routingKey = RoutingKeyRecommendations
	}
	return &Notifier{pub: pub, routingKey: routingKey}
}

type envelope struct {
	MessageID  string  `json:"message_id"`
	Type       string  `json:"type"`
	OccurredAt string  `json:"occurred_at"`
	Payload    payload `json:"payload"`
}

type payload struct {
	RunID       string           `json:"run_id"`
	UserID      int64            `json:"user_id"`
	Email       string           `json:"email"`
	DisplayName string           `json:"display_name"`
	Listings    []listingPayload `json:"listings"`
}

type listingPayload struct {
	ID        int64    `json:"id"`
	Title     string   `json:"title"`
	Address   string   `json:"address,omitempty"`
	Price     *string  `json:"price,omitempty"`
	Latitude  *float64 `json:"latitude,omitempty"`
	Longitude *float64 `json:"longitude,omitempty"`
	Promoted  bool     `json:"promoted"`
}

// MessageID is stable per user and UTC day so consumers can dedup redeliveries.
func MessageID(b domain.RecommendationBatch) string {
	return fmt.Sprintf("recs:%d:%s", b.UserID, b.GeneratedAt.UTC().Format(time.DateOnly))
}

func (n *Notifier) Deliver(ctx context.Context, b domain.RecommendationBatch) error {
	if b.Recipient == "" {
		return notify.PermanentError{Err: domain.ErrNoRecipient}
	}

	env := envelope{
		MessageID:  MessageID(b),
		Type:       EventTypeRecommendations,
		OccurredAt: b.GeneratedAt.UTC().Format(time.RFC3339),
		Payload: payload{
			RunID:       b.RunID,
			UserID:      b.UserID,
			Email:       b.Recipient,
			DisplayName: b.DisplayName,
			Listings:    make([]listingPayload, 0, len(b.Listings)),
		},
	}
	for _, l := range b.Listings {
		lp := listingPayload{ID: l.ID, Title: l.Title, Address: l.Address, Promoted: l.Promoted}
		if l.Price != nil {
			s := l.Price.String()
			lp.Price = &s
		}
		if l.Location != nil {
			lp.Latitude, lp.Longitude = &l.Location.Lat, &l.Location.Lon
		}
		env.Payload.Listings = append(env.Payload.Listings, lp)
	}

	body, err := json.Marshal(env)
	if err != nil {
		return notify.PermanentError{Err: err}
	}

	if err := n.pub.PublishEvent(ctx, n.routingKey, env.MessageID, body); err != nil {
		return notify.TemporaryError{Err: err}
	}
	return nil
}
