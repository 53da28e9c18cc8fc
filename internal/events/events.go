// Package events carries order lifecycle notifications from the storefront
// to out-of-process consumers such as the mail notifier.
package events

import (
	"context"
	"fmt"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/example/storefront/internal/models"
)

// Event types.
const (
	OrderPlaced        = "order.placed"
	OrderStatusChanged = "order.status_changed"
)

// Event is the JSON message published for an order change.
type Event struct {
	ID         string             `json:"id"`
	Type       string             `json:"type"`
	OccurredAt time.Time          `json:"occurredAt"`
	OrderID    string             `json:"orderId"`
	UserID     string             `json:"userId"`
	Email      string             `json:"email,omitempty"`
	Name       string             `json:"name,omitempty"`
	Status     models.OrderStatus `json:"status"`
	Total      float64            `json:"total"`
	Items      int                `json:"items"`
}

// NewOrderEvent builds an event of type typ describing order. email and name
// identify the recipient of any notification.
func NewOrderEvent(typ string, order models.Order, email, name string) Event {
	count := 0
	for _, it := range order.Items {
		count += it.Quantity
	}
	return Event{
		ID:         uuid.NewString(),
		Type:       typ,
		OccurredAt: time.Now().UTC(),
		OrderID:    order.ID,
		UserID:     order.UserID,
		Email:      email,
		Name:       name,
		Status:     order.Status,
		Total:      order.TotalPrice,
		Items:      count,
	}
}

// Encode serializes e for the wire.
func (e Event) Encode() ([]byte, error) {
	body, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("failed to encode event %s: %w", e.ID, err)
	}
	return body, nil
}

// Decode parses a wire message.
func Decode(body []byte) (Event, error) {
	var e Event
	if err := json.Unmarshal(body, &e); err != nil {
		return Event{}, fmt.Errorf("failed to decode event: %w", err)
	}
	if e.Type == "" || e.OrderID == "" {
		return Event{}, fmt.Errorf("event is missing type or order id")
	}
	return e, nil
}

// Publisher delivers events.
type Publisher interface {
	Publish(ctx context.Context, e Event) error
	Close() error
}
