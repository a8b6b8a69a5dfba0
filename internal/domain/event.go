package domain

import "time"

const EventOrderCreated = "order.created"

// OutboxEvent is a domain event persisted alongside the state change that
// produced it and relayed to the broker afterwards.
type OutboxEvent struct {
	ID          string
	AggregateID string
	EventType   string
	Payload     []byte
	CreatedAt   time.Time
	PublishedAt *time.Time
}
