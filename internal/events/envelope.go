// Package events builds domain event envelopes and relays outbox records
// to Kafka.
package events

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"storefront/internal/domain"
)

// Envelope wraps every published payload.
type Envelope struct {
	EventID       string          `json:"event_id"`
	EventType     string          `json:"event_type"`
	EventVersion  int             `json:"event_version"`
	OccurredAt    time.Time       `json:"occurred_at"`
	Producer      string          `json:"producer"`
	CorrelationID string          `json:"correlation_id,omitempty"`
	Payload       json.RawMessage `json:"payload"`
}

type OrderLine struct {
	ProductID string `json:"product_id"`
	VariantID string `json:"variant_id"`
	Quantity  int    `json:"quantity"`
	Price     int64  `json:"price"`
}

type OrderCreatedPayload struct {
	OrderID     string      `json:"order_id"`
	UserID      string      `json:"user_id"`
	Items       []OrderLine `json:"items"`
	TotalAmount int64       `json:"total_amount"`
}

// NewOrderCreated builds the outbox record announcing o.
func NewOrderCreated(o domain.Order, producer string) (domain.OutboxEvent, error) {
	payload := OrderCreatedPayload{
		OrderID:     o.ID,
		UserID:      o.UserID,
		Items:       make([]OrderLine, 0, len(o.Items)),
		TotalAmount: o.TotalAmount,
	}
	for _, it := range o.Items {
		payload.Items = append(payload.Items, OrderLine{
			ProductID: it.ProductID,
			VariantID: it.VariantID,
			Quantity:  it.Quantity,
			Price:     it.Price,
		})
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return domain.OutboxEvent{}, fmt.Errorf("marshal order payload: %w", err)
	}

	occurred := o.CreatedAt
	if occurred.IsZero() {
		occurred = time.Now().UTC()
	}
	env, err := json.Marshal(Envelope{
		EventID:       uuid.NewString(),
		EventType:     domain.EventOrderCreated,
		EventVersion:  1,
		OccurredAt:    occurred,
		Producer:      producer,
		CorrelationID: o.ID,
		Payload:       raw,
	})
	if err != nil {
		return domain.OutboxEvent{}, fmt.Errorf("marshal envelope: %w", err)
	}
	return domain.OutboxEvent{
		AggregateID: o.ID,
		EventType:   domain.EventOrderCreated,
		Payload:     env,
	}, nil
}
