package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PaymentStatus represents the status of a payment attempt
type PaymentStatus string

const (
	PaymentPending         PaymentStatus = "pending"
	PaymentConfirmedStatus PaymentStatus = "confirmed"
	PaymentFailedStatus    PaymentStatus = "failed"
)

// Payment is one payment attempt for an order. It references the order
// by identifier only; confirmation propagates to the order through a
// published event, never through a direct object reference.
type Payment struct {
	id          uuid.UUID
	orderID     uuid.UUID
	amount      decimal.Decimal
	status      PaymentStatus
	referenceID string
	qrCodeData  string
	createdAt   time.Time
	confirmedAt *time.Time
	version     int
	events      []Event
}

// NewPayment creates a pending payment for an order. referenceID and
// qrCodeData come from the external gateway.
func NewPayment(orderID uuid.UUID, amount decimal.Decimal, referenceID, qrCodeData string) (*Payment, error) {
	if amount.IsNegative() {
		return nil, ErrPaymentNegativeAmount
	}

	return &Payment{
		id:          uuid.New(),
		orderID:     orderID,
		amount:      amount,
		status:      PaymentPending,
		referenceID: referenceID,
		qrCodeData:  qrCodeData,
		createdAt:   time.Now().UTC(),
	}, nil
}

// RestorePayment rebuilds a persisted payment. Repository use only.
func RestorePayment(
	id, orderID uuid.UUID,
	amount decimal.Decimal,
	status PaymentStatus,
	referenceID, qrCodeData string,
	createdAt time.Time,
	confirmedAt *time.Time,
	version int,
) *Payment {
	return &Payment{
		id:          id,
		orderID:     orderID,
		amount:      amount,
		status:      status,
		referenceID: referenceID,
		qrCodeData:  qrCodeData,
		createdAt:   createdAt,
		confirmedAt: confirmedAt,
		version:     version,
	}
}

func (p *Payment) ID() uuid.UUID           { return p.id }
func (p *Payment) OrderID() uuid.UUID      { return p.orderID }
func (p *Payment) Amount() decimal.Decimal { return p.amount }
func (p *Payment) Status() PaymentStatus   { return p.status }
func (p *Payment) ReferenceID() string     { return p.referenceID }
func (p *Payment) QRCodeData() string      { return p.qrCodeData }
func (p *Payment) CreatedAt() time.Time    { return p.createdAt }
func (p *Payment) ConfirmedAt() *time.Time { return p.confirmedAt }
func (p *Payment) Version() int            { return p.version }

// Confirm transitions the payment from pending to confirmed, exactly
// once. Confirming an already-confirmed payment returns
// ErrPaymentAlreadyConfirmed so the caller can decide whether to treat
// the retry as benign; no event is raised twice either way.
func (p *Payment) Confirm() error {
	switch p.status {
	case PaymentConfirmedStatus:
		return ErrPaymentAlreadyConfirmed
	case PaymentFailedStatus:
		return ErrPaymentNotPending
	}

	now := time.Now().UTC()
	p.status = PaymentConfirmedStatus
	p.confirmedAt = &now
	p.raise(PaymentConfirmed{
		PaymentID:   p.id,
		OrderID:     p.orderID,
		ReferenceID: p.referenceID,
		Amount:      p.amount,
		At:          now,
	})
	return nil
}

// Fail transitions the payment from pending to failed, exactly once
func (p *Payment) Fail() error {
	switch p.status {
	case PaymentFailedStatus:
		return ErrPaymentAlreadyFailed
	case PaymentConfirmedStatus:
		return ErrPaymentNotPending
	}

	p.status = PaymentFailedStatus
	p.raise(PaymentFailed{
		PaymentID:   p.id,
		OrderID:     p.orderID,
		ReferenceID: p.referenceID,
		Amount:      p.amount,
		At:          time.Now().UTC(),
	})
	return nil
}

func (p *Payment) raise(event Event) {
	p.events = append(p.events, event)
}

// PullEvents returns the buffered events and clears the buffer
func (p *Payment) PullEvents() []Event {
	events := p.events
	p.events = nil
	return events
}
