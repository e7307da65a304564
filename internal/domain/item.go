package domain

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// OrderItem is a line item owned by exactly one order. The unit price is
// snapshotted at add-time, so later catalog changes never affect existing
// orders. Immutable after construction.
type OrderItem struct {
	id        uuid.UUID
	productID uuid.UUID
	quantity  int
	unitPrice decimal.Decimal
}

// NewOrderItem creates a line item for the given product
func NewOrderItem(productID uuid.UUID, quantity int, unitPrice decimal.Decimal) (*OrderItem, error) {
	if quantity < 1 {
		return nil, ErrItemInvalidQuantity
	}
	if unitPrice.IsNegative() {
		return nil, ErrItemNegativeUnitPrice
	}

	return &OrderItem{
		id:        uuid.New(),
		productID: productID,
		quantity:  quantity,
		unitPrice: unitPrice,
	}, nil
}

// RestoreOrderItem rebuilds a persisted line item. Repository use only.
func RestoreOrderItem(id, productID uuid.UUID, quantity int, unitPrice decimal.Decimal) *OrderItem {
	return &OrderItem{
		id:        id,
		productID: productID,
		quantity:  quantity,
		unitPrice: unitPrice,
	}
}

func (i *OrderItem) ID() uuid.UUID              { return i.id }
func (i *OrderItem) ProductID() uuid.UUID       { return i.productID }
func (i *OrderItem) Quantity() int              { return i.quantity }
func (i *OrderItem) UnitPrice() decimal.Decimal { return i.unitPrice }

// Subtotal returns quantity × unit price
func (i *OrderItem) Subtotal() decimal.Decimal {
	return i.unitPrice.Mul(decimal.NewFromInt(int64(i.quantity)))
}
