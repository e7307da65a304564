package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// OrderStatus represents the status of an order
type OrderStatus string

const (
	StatusPending       OrderStatus = "pending"
	StatusReceived      OrderStatus = "received"
	StatusInPreparation OrderStatus = "in_preparation"
	StatusReady         OrderStatus = "ready"
	StatusDelivered     OrderStatus = "delivered"
	StatusCancelled     OrderStatus = "cancelled"
)

// StatusChange is one entry in an order's status history
type StatusChange struct {
	Status    OrderStatus
	ChangedAt time.Time
}

// Order is the aggregate root for a customer order. It owns its line
// items exclusively and enforces the lifecycle state machine
// pending → received → in_preparation → ready → delivered, with
// cancellation permitted from pending only. Items, discount and amount
// may change only while the order is pending.
//
// The aggregate is not safe for concurrent use; per-order serialization
// happens at the persistence boundary via the version column.
type Order struct {
	id         uuid.UUID
	number     string
	customerID uuid.UUID
	items      []*OrderItem
	discount   decimal.Decimal
	status     OrderStatus
	createdAt  time.Time
	updatedAt  time.Time
	history    []StatusChange
	version    int
	events     []Event
}

// NewOrder creates a pending order for a customer
func NewOrder(customerID uuid.UUID, number string) *Order {
	now := time.Now().UTC()
	o := &Order{
		id:         uuid.New(),
		number:     number,
		customerID: customerID,
		discount:   decimal.Zero,
		status:     StatusPending,
		createdAt:  now,
		updatedAt:  now,
		history:    []StatusChange{{Status: StatusPending, ChangedAt: now}},
	}
	o.raise(OrderCreated{
		OrderID:    o.id,
		Number:     number,
		CustomerID: customerID,
		At:         now,
	})
	return o
}

// RestoreOrder rebuilds a persisted order. Repository use only.
func RestoreOrder(
	id uuid.UUID,
	number string,
	customerID uuid.UUID,
	items []*OrderItem,
	discount decimal.Decimal,
	status OrderStatus,
	createdAt, updatedAt time.Time,
	version int,
) *Order {
	return &Order{
		id:         id,
		number:     number,
		customerID: customerID,
		items:      items,
		discount:   discount,
		status:     status,
		createdAt:  createdAt,
		updatedAt:  updatedAt,
		version:    version,
	}
}

func (o *Order) ID() uuid.UUID             { return o.id }
func (o *Order) Number() string            { return o.number }
func (o *Order) CustomerID() uuid.UUID     { return o.customerID }
func (o *Order) Status() OrderStatus       { return o.status }
func (o *Order) Discount() decimal.Decimal { return o.discount }
func (o *Order) CreatedAt() time.Time      { return o.createdAt }
func (o *Order) UpdatedAt() time.Time      { return o.updatedAt }
func (o *Order) Version() int              { return o.version }

// Items returns a copy of the item collection; items are mutated only
// through the order's own methods.
func (o *Order) Items() []*OrderItem {
	items := make([]*OrderItem, len(o.items))
	copy(items, o.items)
	return items
}

// History returns the in-memory status changes recorded since load
func (o *Order) History() []StatusChange {
	history := make([]StatusChange, len(o.history))
	copy(history, o.history)
	return history
}

// Subtotal returns the sum of all item subtotals
func (o *Order) Subtotal() decimal.Decimal {
	subtotal := decimal.Zero
	for _, item := range o.items {
		subtotal = subtotal.Add(item.Subtotal())
	}
	return subtotal
}

// Amount returns the order total, recomputed on every call:
// Σ(quantity × unit price) − discount.
func (o *Order) Amount() decimal.Decimal {
	return o.Subtotal().Sub(o.discount)
}

// AddItem appends an item to a pending order
func (o *Order) AddItem(item *OrderItem) error {
	if o.status != StatusPending {
		return ErrOrderAddItemNonPending
	}

	o.items = append(o.items, item)
	o.updatedAt = time.Now().UTC()
	return nil
}

// RemoveItem removes the item with the given id from a pending order
func (o *Order) RemoveItem(itemID uuid.UUID) error {
	if o.status != StatusPending {
		return ErrOrderRemoveItemNonPending
	}

	for i, item := range o.items {
		if item.id == itemID {
			o.items = append(o.items[:i], o.items[i+1:]...)
			o.updatedAt = time.Now().UTC()
			return nil
		}
	}

	return ErrOrderItemNotFound
}

// ApplyDiscount sets the discount on a pending order. The discount must
// not drive the amount negative.
func (o *Order) ApplyDiscount(discount decimal.Decimal) error {
	if o.status != StatusPending {
		return ErrOrderApplyDiscountNonPending
	}
	if discount.IsNegative() {
		return ErrOrderDiscountNegative
	}
	if discount.GreaterThan(o.Subtotal()) {
		return ErrOrderDiscountExceedsSubtotal
	}

	o.discount = discount
	o.updatedAt = time.Now().UTC()
	return nil
}

// Cancel transitions a pending order to cancelled
func (o *Order) Cancel() error {
	if o.status != StatusPending {
		return ErrOrderCancelNonPending
	}
	o.setStatus(StatusCancelled)
	return nil
}

// Receive transitions a pending order to received. Applied by the
// payment-confirmed handler once payment settles.
func (o *Order) Receive() error {
	if o.status != StatusPending {
		return ErrOrderReceiveNonPending
	}
	o.setStatus(StatusReceived)
	return nil
}

// Prepare transitions a received order to in preparation
func (o *Order) Prepare() error {
	if o.status != StatusReceived {
		return ErrOrderPrepareNonReceived
	}
	o.setStatus(StatusInPreparation)
	return nil
}

// MarkReady transitions an in-preparation order to ready
func (o *Order) MarkReady() error {
	if o.status != StatusInPreparation {
		return ErrOrderReadyNonInPreparation
	}
	o.setStatus(StatusReady)
	return nil
}

// Deliver transitions a ready order to delivered
func (o *Order) Deliver() error {
	if o.status != StatusReady {
		return ErrOrderDeliverNonReady
	}
	o.setStatus(StatusDelivered)
	return nil
}

func (o *Order) setStatus(next OrderStatus) {
	old := o.status
	now := time.Now().UTC()

	o.status = next
	o.updatedAt = now
	o.history = append(o.history, StatusChange{Status: next, ChangedAt: now})
	o.raise(OrderStatusChanged{
		OrderID:   o.id,
		Number:    o.number,
		OldStatus: old,
		NewStatus: next,
		At:        now,
	})
}

func (o *Order) raise(event Event) {
	o.events = append(o.events, event)
}

// PullEvents returns the buffered events and clears the buffer
func (o *Order) PullEvents() []Event {
	events := o.events
	o.events = nil
	return events
}

// PullStatusChanges returns the status changes recorded since load and
// clears the buffer. Repository use only.
func (o *Order) PullStatusChanges() []StatusChange {
	history := o.history
	o.history = nil
	return history
}
