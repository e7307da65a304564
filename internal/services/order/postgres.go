package order

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"techfood/internal/database"
	"techfood/internal/domain"
)

// ErrConcurrentUpdate reports that the aggregate changed underneath the
// current transaction (optimistic lock miss); the caller should retry.
var ErrConcurrentUpdate = errors.New("order was modified concurrently")

// Repository is the PostgreSQL implementation of domain.OrderRepository
type Repository struct {
	q database.Querier
}

// NewRepository creates an order repository over a pool or transaction
func NewRepository(q database.Querier) *Repository {
	return &Repository{q: q}
}

// GetByID loads an order aggregate with its items
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Order, error) {
	return r.getOrder(ctx, database.GetOrderByIDSQL, id, id.String())
}

// GetByNumber loads an order aggregate by its human-facing number
func (r *Repository) GetByNumber(ctx context.Context, number string) (*domain.Order, error) {
	return r.getOrder(ctx, database.GetOrderByNumberSQL, number, number)
}

func (r *Repository) getOrder(ctx context.Context, query string, arg any, ref string) (*domain.Order, error) {
	var (
		id         uuid.UUID
		number     string
		customerID uuid.UUID
		discount   decimal.Decimal
		status     string
		version    int
		createdAt  time.Time
		updatedAt  time.Time
	)

	err := r.q.QueryRow(ctx, query, arg).Scan(
		&id, &number, &customerID, &discount, &status, &version, &createdAt, &updatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.NewOrderNotFound(ref)
		}
		return nil, fmt.Errorf("failed to query order: %w", err)
	}

	items, err := r.getItems(ctx, id)
	if err != nil {
		return nil, err
	}

	return domain.RestoreOrder(
		id, number, customerID, items, discount,
		domain.OrderStatus(status), createdAt, updatedAt, version,
	), nil
}

func (r *Repository) getItems(ctx context.Context, orderID uuid.UUID) ([]*domain.OrderItem, error) {
	rows, err := r.q.Query(ctx, database.GetOrderItemsSQL, orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to query order items: %w", err)
	}
	defer rows.Close()

	var items []*domain.OrderItem
	for rows.Next() {
		var (
			id        uuid.UUID
			productID uuid.UUID
			quantity  int
			unitPrice decimal.Decimal
		)
		if err := rows.Scan(&id, &productID, &quantity, &unitPrice); err != nil {
			return nil, fmt.Errorf("failed to scan order item: %w", err)
		}
		items = append(items, domain.RestoreOrderItem(id, productID, quantity, unitPrice))
	}

	return items, rows.Err()
}

// Save persists the aggregate: the order row, the full item collection
// and any status changes recorded since load. New aggregates (version 0)
// are inserted; existing ones update with an optimistic version check.
func (r *Repository) Save(ctx context.Context, o *domain.Order) error {
	if o.Version() == 0 {
		_, err := r.q.Exec(ctx, database.InsertOrderSQL,
			o.ID(), o.Number(), o.CustomerID(), o.Discount(), string(o.Status()),
			o.CreatedAt(), o.UpdatedAt(),
		)
		if err != nil {
			return fmt.Errorf("failed to insert order: %w", err)
		}
	} else {
		tag, err := r.q.Exec(ctx, database.UpdateOrderSQL,
			o.ID(), o.Discount(), string(o.Status()), o.UpdatedAt(), o.Version(),
		)
		if err != nil {
			return fmt.Errorf("failed to update order: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return ErrConcurrentUpdate
		}
	}

	if err := r.saveItems(ctx, o); err != nil {
		return err
	}

	for _, change := range o.PullStatusChanges() {
		_, err := r.q.Exec(ctx, database.InsertOrderStatusLogSQL,
			o.ID(), string(change.Status), change.ChangedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to insert status log: %w", err)
		}
	}

	return nil
}

func (r *Repository) saveItems(ctx context.Context, o *domain.Order) error {
	if _, err := r.q.Exec(ctx, database.DeleteOrderItemsSQL, o.ID()); err != nil {
		return fmt.Errorf("failed to delete order items: %w", err)
	}

	for position, item := range o.Items() {
		_, err := r.q.Exec(ctx, database.InsertOrderItemSQL,
			item.ID(), o.ID(), item.ProductID(), item.Quantity(), item.UnitPrice(), position,
		)
		if err != nil {
			return fmt.Errorf("failed to insert order item: %w", err)
		}
	}

	return nil
}

// NextOrderNumber returns the next order number for today, in the form
// ORD_YYYYMMDD_NNN
func (r *Repository) NextOrderNumber(ctx context.Context) (string, error) {
	today := time.Now().UTC().Format("20060102")

	var sequence int
	err := r.q.QueryRow(ctx, database.GetNextOrderNumberSQL, fmt.Sprintf("ORD_%s_%%", today)).Scan(&sequence)
	if err != nil {
		return "", fmt.Errorf("failed to query next order number: %w", err)
	}

	return fmt.Sprintf("ORD_%s_%03d", today, sequence), nil
}
