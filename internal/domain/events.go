package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Event is a fact raised by an aggregate. Events are buffered on the
// aggregate until pulled by the unit of work, which stores them in the
// outbox within the same transaction as the aggregate mutation.
type Event interface {
	EventName() string
	AggregateID() uuid.UUID
	OccurredAt() time.Time
}

// OrderCreated is raised when a new order enters the system
type OrderCreated struct {
	OrderID    uuid.UUID `json:"order_id"`
	Number     string    `json:"order_number"`
	CustomerID uuid.UUID `json:"customer_id"`
	At         time.Time `json:"occurred_at"`
}

func (e OrderCreated) EventName() string      { return "order.created" }
func (e OrderCreated) AggregateID() uuid.UUID { return e.OrderID }
func (e OrderCreated) OccurredAt() time.Time  { return e.At }

// OrderStatusChanged is raised on every order status transition
type OrderStatusChanged struct {
	OrderID   uuid.UUID   `json:"order_id"`
	Number    string      `json:"order_number"`
	OldStatus OrderStatus `json:"old_status"`
	NewStatus OrderStatus `json:"new_status"`
	At        time.Time   `json:"occurred_at"`
}

func (e OrderStatusChanged) EventName() string      { return "order.status_changed" }
func (e OrderStatusChanged) AggregateID() uuid.UUID { return e.OrderID }
func (e OrderStatusChanged) OccurredAt() time.Time  { return e.At }

// RoutingKey returns the topic routing key for this transition,
// e.g. "order.status.received"
func (e OrderStatusChanged) RoutingKey() string {
	return "order.status." + string(e.NewStatus)
}

// PaymentConfirmed is raised when a payment transitions to confirmed.
// A separate handler applies the corresponding order transition.
type PaymentConfirmed struct {
	PaymentID   uuid.UUID       `json:"payment_id"`
	OrderID     uuid.UUID       `json:"order_id"`
	ReferenceID string          `json:"reference_id"`
	Amount      decimal.Decimal `json:"amount"`
	At          time.Time       `json:"occurred_at"`
}

func (e PaymentConfirmed) EventName() string      { return "payment.confirmed" }
func (e PaymentConfirmed) AggregateID() uuid.UUID { return e.PaymentID }
func (e PaymentConfirmed) OccurredAt() time.Time  { return e.At }

// PaymentFailed is raised when a payment transitions to failed
type PaymentFailed struct {
	PaymentID   uuid.UUID       `json:"payment_id"`
	OrderID     uuid.UUID       `json:"order_id"`
	ReferenceID string          `json:"reference_id"`
	Amount      decimal.Decimal `json:"amount"`
	At          time.Time       `json:"occurred_at"`
}

func (e PaymentFailed) EventName() string      { return "payment.failed" }
func (e PaymentFailed) AggregateID() uuid.UUID { return e.PaymentID }
func (e PaymentFailed) OccurredAt() time.Time  { return e.At }
