package domain

import (
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestPayment(t *testing.T) *Payment {
	t.Helper()
	p, err := NewPayment(uuid.New(), decimal.RequireFromString("63.18"), "MP-REF-123", "qr-payload")
	require.NoError(t, err)
	return p
}

func TestNewPayment(t *testing.T) {
	orderID := uuid.New()
	amount := decimal.RequireFromString("42.50")

	p, err := NewPayment(orderID, amount, "MP-REF-1", "qr-data")
	require.NoError(t, err)

	assert.Equal(t, PaymentPending, p.Status())
	assert.Equal(t, orderID, p.OrderID())
	assert.True(t, p.Amount().Equal(amount))
	assert.Equal(t, "MP-REF-1", p.ReferenceID())
	assert.Equal(t, "qr-data", p.QRCodeData())
	assert.Nil(t, p.ConfirmedAt())
	assert.Empty(t, p.PullEvents())
}

func TestNewPayment_NegativeAmount(t *testing.T) {
	_, err := NewPayment(uuid.New(), decimal.RequireFromString("-1"), "ref", "qr")
	assert.ErrorIs(t, err, ErrPaymentNegativeAmount)
}

func TestPayment_Confirm(t *testing.T) {
	p := newTestPayment(t)

	require.NoError(t, p.Confirm())
	assert.Equal(t, PaymentConfirmedStatus, p.Status())
	require.NotNil(t, p.ConfirmedAt())

	events := p.PullEvents()
	require.Len(t, events, 1)
	confirmed, ok := events[0].(PaymentConfirmed)
	require.True(t, ok)
	assert.Equal(t, p.ID(), confirmed.PaymentID)
	assert.Equal(t, p.OrderID(), confirmed.OrderID)
	assert.True(t, confirmed.Amount.Equal(p.Amount()))
}

func TestPayment_ConfirmTwice(t *testing.T) {
	p := newTestPayment(t)
	require.NoError(t, p.Confirm())
	p.PullEvents()

	err := p.Confirm()
	assert.ErrorIs(t, err, ErrPaymentAlreadyConfirmed)

	// The second attempt must not raise the event again
	assert.Empty(t, p.PullEvents())
	assert.Equal(t, PaymentConfirmedStatus, p.Status())
}

func TestPayment_Fail(t *testing.T) {
	p := newTestPayment(t)

	require.NoError(t, p.Fail())
	assert.Equal(t, PaymentFailedStatus, p.Status())

	events := p.PullEvents()
	require.Len(t, events, 1)
	assert.Equal(t, "payment.failed", events[0].EventName())

	assert.ErrorIs(t, p.Fail(), ErrPaymentAlreadyFailed)
	assert.ErrorIs(t, p.Confirm(), ErrPaymentNotPending)
}

func TestPayment_ConfirmAfterFail(t *testing.T) {
	p := newTestPayment(t)
	require.NoError(t, p.Fail())
	p.PullEvents()

	assert.ErrorIs(t, p.Confirm(), ErrPaymentNotPending)
	assert.Equal(t, PaymentFailedStatus, p.Status())
	assert.Empty(t, p.PullEvents())
}
