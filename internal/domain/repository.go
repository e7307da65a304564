package domain

import (
	"context"

	"github.com/google/uuid"
)

// OrderRepository abstracts order persistence. Implementations return
// *NotFoundError when an identifier does not resolve and must enforce
// per-order serialization with the aggregate version on save.
type OrderRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*Order, error)
	GetByNumber(ctx context.Context, number string) (*Order, error)
	Save(ctx context.Context, order *Order) error
	NextOrderNumber(ctx context.Context) (string, error)
}

// PaymentRepository abstracts payment persistence
type PaymentRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*Payment, error)
	GetByOrderID(ctx context.Context, orderID uuid.UUID) ([]*Payment, error)
	Save(ctx context.Context, payment *Payment) error
}
