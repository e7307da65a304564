package domain

import (
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestOrder(t *testing.T) *Order {
	t.Helper()
	return NewOrder(uuid.New(), "ORD_20260830_001")
}

func newTestItem(t *testing.T, quantity int, unitPrice string) *OrderItem {
	t.Helper()
	price, err := decimal.NewFromString(unitPrice)
	require.NoError(t, err)
	item, err := NewOrderItem(uuid.New(), quantity, price)
	require.NoError(t, err)
	return item
}

func TestNewOrder(t *testing.T) {
	customerID := uuid.New()
	order := NewOrder(customerID, "ORD_20260830_001")

	assert.Equal(t, StatusPending, order.Status())
	assert.Equal(t, customerID, order.CustomerID())
	assert.Equal(t, "ORD_20260830_001", order.Number())
	assert.True(t, order.Amount().IsZero())

	events := order.PullEvents()
	require.Len(t, events, 1)
	assert.Equal(t, "order.created", events[0].EventName())
	assert.Equal(t, order.ID(), events[0].AggregateID())
}

func TestNewOrderItem_Validation(t *testing.T) {
	price := decimal.NewFromFloat(10.42)

	_, err := NewOrderItem(uuid.New(), 0, price)
	assert.ErrorIs(t, err, ErrItemInvalidQuantity)

	_, err = NewOrderItem(uuid.New(), -3, price)
	assert.ErrorIs(t, err, ErrItemInvalidQuantity)

	_, err = NewOrderItem(uuid.New(), 1, decimal.NewFromFloat(-0.01))
	assert.ErrorIs(t, err, ErrItemNegativeUnitPrice)

	item, err := NewOrderItem(uuid.New(), 1, decimal.Zero)
	require.NoError(t, err)
	assert.True(t, item.Subtotal().IsZero())
}

func TestOrder_AmountRecomputed(t *testing.T) {
	order := newTestOrder(t)

	for i := 0; i < 4; i++ {
		require.NoError(t, order.AddItem(newTestItem(t, 7, "10.42")))
	}

	// 4 × 7 × 10.42 = 291.76
	assert.True(t, order.Amount().Equal(decimal.RequireFromString("291.76")),
		"got %s", order.Amount())

	item := newTestItem(t, 1, "5.00")
	require.NoError(t, order.AddItem(item))
	assert.True(t, order.Amount().Equal(decimal.RequireFromString("296.76")))

	require.NoError(t, order.RemoveItem(item.ID()))
	assert.True(t, order.Amount().Equal(decimal.RequireFromString("291.76")))
}

func TestOrder_AmountWithDiscount(t *testing.T) {
	order := newTestOrder(t)
	require.NoError(t, order.AddItem(newTestItem(t, 7, "10.42")))

	require.NoError(t, order.ApplyDiscount(decimal.RequireFromString("9.76")))

	// 7 × 10.42 − 9.76 = 63.18
	assert.True(t, order.Amount().Equal(decimal.RequireFromString("63.18")),
		"got %s", order.Amount())
}

func TestOrder_ApplyDiscount_Guards(t *testing.T) {
	order := newTestOrder(t)
	require.NoError(t, order.AddItem(newTestItem(t, 1, "10.00")))

	err := order.ApplyDiscount(decimal.RequireFromString("-1"))
	assert.ErrorIs(t, err, ErrOrderDiscountNegative)

	err = order.ApplyDiscount(decimal.RequireFromString("10.01"))
	assert.ErrorIs(t, err, ErrOrderDiscountExceedsSubtotal)

	require.NoError(t, order.ApplyDiscount(decimal.RequireFromString("10.00")))
	assert.True(t, order.Amount().IsZero())
}

func TestOrder_RemoveItem_NotFound(t *testing.T) {
	order := newTestOrder(t)
	require.NoError(t, order.AddItem(newTestItem(t, 1, "10.00")))

	err := order.RemoveItem(uuid.New())
	assert.ErrorIs(t, err, ErrOrderItemNotFound)
	assert.Len(t, order.Items(), 1)
}

func TestOrder_MutationsRejectedWhenNotPending(t *testing.T) {
	states := []struct {
		name    string
		prepare func(t *testing.T, o *Order)
	}{
		{"cancelled", func(t *testing.T, o *Order) { require.NoError(t, o.Cancel()) }},
		{"received", func(t *testing.T, o *Order) { require.NoError(t, o.Receive()) }},
		{"in_preparation", func(t *testing.T, o *Order) {
			require.NoError(t, o.Receive())
			require.NoError(t, o.Prepare())
		}},
		{"ready", func(t *testing.T, o *Order) {
			require.NoError(t, o.Receive())
			require.NoError(t, o.Prepare())
			require.NoError(t, o.MarkReady())
		}},
		{"delivered", func(t *testing.T, o *Order) {
			require.NoError(t, o.Receive())
			require.NoError(t, o.Prepare())
			require.NoError(t, o.MarkReady())
			require.NoError(t, o.Deliver())
		}},
	}

	for _, tc := range states {
		t.Run(tc.name, func(t *testing.T) {
			order := newTestOrder(t)
			item := newTestItem(t, 2, "10.00")
			require.NoError(t, order.AddItem(item))
			tc.prepare(t, order)

			amountBefore := order.Amount()

			err := order.AddItem(newTestItem(t, 1, "10.00"))
			assert.ErrorIs(t, err, ErrOrderAddItemNonPending)

			err = order.RemoveItem(item.ID())
			assert.ErrorIs(t, err, ErrOrderRemoveItemNonPending)

			err = order.ApplyDiscount(decimal.RequireFromString("1.00"))
			assert.ErrorIs(t, err, ErrOrderApplyDiscountNonPending)

			// Failed guards must not mutate the order
			assert.Len(t, order.Items(), 1)
			assert.True(t, order.Discount().IsZero())
			assert.True(t, order.Amount().Equal(amountBefore))
		})
	}
}

func TestOrder_TransitionChain(t *testing.T) {
	order := newTestOrder(t)

	// Out-of-order transitions fail before the chain starts
	assert.ErrorIs(t, order.Prepare(), ErrOrderPrepareNonReceived)
	assert.ErrorIs(t, order.MarkReady(), ErrOrderReadyNonInPreparation)
	assert.ErrorIs(t, order.Deliver(), ErrOrderDeliverNonReady)

	require.NoError(t, order.Receive())
	assert.Equal(t, StatusReceived, order.Status())
	assert.ErrorIs(t, order.Receive(), ErrOrderReceiveNonPending)
	assert.ErrorIs(t, order.MarkReady(), ErrOrderReadyNonInPreparation)
	assert.ErrorIs(t, order.Deliver(), ErrOrderDeliverNonReady)

	require.NoError(t, order.Prepare())
	assert.Equal(t, StatusInPreparation, order.Status())
	assert.ErrorIs(t, order.Prepare(), ErrOrderPrepareNonReceived)
	assert.ErrorIs(t, order.Deliver(), ErrOrderDeliverNonReady)

	require.NoError(t, order.MarkReady())
	assert.Equal(t, StatusReady, order.Status())
	assert.ErrorIs(t, order.MarkReady(), ErrOrderReadyNonInPreparation)

	require.NoError(t, order.Deliver())
	assert.Equal(t, StatusDelivered, order.Status())
	assert.ErrorIs(t, order.Deliver(), ErrOrderDeliverNonReady)
}

func TestOrder_Cancel(t *testing.T) {
	order := newTestOrder(t)
	require.NoError(t, order.Cancel())
	assert.Equal(t, StatusCancelled, order.Status())

	// Every mutating operation fails once cancelled
	assert.ErrorIs(t, order.AddItem(newTestItem(t, 1, "10.00")), ErrOrderAddItemNonPending)
	assert.ErrorIs(t, order.ApplyDiscount(decimal.Zero), ErrOrderApplyDiscountNonPending)
	assert.ErrorIs(t, order.Receive(), ErrOrderReceiveNonPending)
	assert.ErrorIs(t, order.Cancel(), ErrOrderCancelNonPending)
}

func TestOrder_CancelFromNonPending(t *testing.T) {
	order := newTestOrder(t)
	require.NoError(t, order.Receive())

	assert.ErrorIs(t, order.Cancel(), ErrOrderCancelNonPending)
	assert.Equal(t, StatusReceived, order.Status())
}

func TestOrder_StatusChangeEvents(t *testing.T) {
	order := newTestOrder(t)
	order.PullEvents() // drop the creation event

	require.NoError(t, order.Receive())
	require.NoError(t, order.Prepare())

	events := order.PullEvents()
	require.Len(t, events, 2)

	first, ok := events[0].(OrderStatusChanged)
	require.True(t, ok)
	assert.Equal(t, StatusPending, first.OldStatus)
	assert.Equal(t, StatusReceived, first.NewStatus)
	assert.Equal(t, "order.status.received", first.RoutingKey())

	second, ok := events[1].(OrderStatusChanged)
	require.True(t, ok)
	assert.Equal(t, StatusInPreparation, second.NewStatus)

	// Buffer is cleared after pull
	assert.Empty(t, order.PullEvents())
}

func TestOrder_HistoryRecordsTransitions(t *testing.T) {
	order := newTestOrder(t)
	require.NoError(t, order.Receive())
	require.NoError(t, order.Prepare())

	history := order.History()
	require.Len(t, history, 3)
	assert.Equal(t, StatusPending, history[0].Status)
	assert.Equal(t, StatusReceived, history[1].Status)
	assert.Equal(t, StatusInPreparation, history[2].Status)
}

func TestOrder_ItemsReturnsCopy(t *testing.T) {
	order := newTestOrder(t)
	require.NoError(t, order.AddItem(newTestItem(t, 1, "10.00")))

	items := order.Items()
	items[0] = nil

	require.Len(t, order.Items(), 1)
	assert.NotNil(t, order.Items()[0])
}

func TestDomainErrorCodes(t *testing.T) {
	assert.Equal(t, "order.cannot_add_item_to_non_pending_status", ErrOrderAddItemNonPending.Code)
	assert.True(t, IsDomainError(ErrOrderAddItemNonPending))
	assert.False(t, IsDomainError(NewOrderNotFound("x")))
	assert.True(t, IsNotFound(NewOrderNotFound("x")))
}
