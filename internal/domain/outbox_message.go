package domain

import "time"

type OutboxStatus string

const (
	OutboxStatusPending OutboxStatus = "PENDING"
	OutboxStatusSent    OutboxStatus = "SENT"
	OutboxStatusFailed  OutboxStatus = "FAILED"
)

type OutboxMessage struct {
	ID        string
	Topic     string
	Payload   []byte
	Status    OutboxStatus
	CreatedAt time.Time
	SentAt    *time.Time
}

// OrderCompletedEvent is the payload published to Kafka after settlement.
type OrderCompletedEvent struct {
	OrderID         string    `json:"order_id"`
	UserID          string    `json:"user_id"`
	TotalAmount     int64     `json:"total_amount"`
	PaymentIntentID string    `json:"payment_intent_id"`
	CompletedAt     time.Time `json:"completed_at"`
}
