package models

import "time"

// PaymentEvent is the message published to Kafka after an order's paid
// transition. Consumers (fulfillment, analytics) key on OrderID.
type PaymentEvent struct {
	Type      string    `json:"type"`
	OrderID   string    `json:"order_id"`
	UserID    string    `json:"user_id"`
	SessionID string    `json:"session_id"`
	Amount    float64   `json:"amount"`
	Currency  string    `json:"currency"`
	Timestamp time.Time `json:"timestamp"`
}
