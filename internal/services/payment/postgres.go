package payment

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

// ErrConcurrentUpdate reports an optimistic lock miss on save
var ErrConcurrentUpdate = errors.New("payment was modified concurrently")

// Repository is the PostgreSQL implementation of
// domain.PaymentRepository
type Repository struct {
	q database.Querier
}

// NewRepository creates a payment repository over a pool or transaction
func NewRepository(q database.Querier) *Repository {
	return &Repository{q: q}
}

// GetByID loads a payment by its identifier
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Payment, error) {
	p, err := r.scanPayment(r.q.QueryRow(ctx, database.GetPaymentByIDSQL, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.NewPaymentNotFound(id.String())
		}
		return nil, fmt.Errorf("failed to query payment: %w", err)
	}
	return p, nil
}

// GetByOrderID loads all payment attempts for an order, oldest first
func (r *Repository) GetByOrderID(ctx context.Context, orderID uuid.UUID) ([]*domain.Payment, error) {
	rows, err := r.q.Query(ctx, database.GetPaymentsByOrderIDSQL, orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to query payments: %w", err)
	}
	defer rows.Close()

	var payments []*domain.Payment
	for rows.Next() {
		p, err := r.scanPayment(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan payment: %w", err)
		}
		payments = append(payments, p)
	}

	return payments, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func (r *Repository) scanPayment(row rowScanner) (*domain.Payment, error) {
	var (
		id          uuid.UUID
		orderID     uuid.UUID
		amount      decimal.Decimal
		status      string
		referenceID string
		qrCodeData  string
		version     int
		createdAt   time.Time
		confirmedAt *time.Time
	)

	err := row.Scan(&id, &orderID, &amount, &status, &referenceID, &qrCodeData, &version, &createdAt, &confirmedAt)
	if err != nil {
		return nil, err
	}

	return domain.RestorePayment(
		id, orderID, amount, domain.PaymentStatus(status),
		referenceID, qrCodeData, createdAt, confirmedAt, version,
	), nil
}

// Save persists the payment. New payments (version 0) are inserted;
// existing ones update with an optimistic version check.
func (r *Repository) Save(ctx context.Context, p *domain.Payment) error {
	if p.Version() == 0 {
		_, err := r.q.Exec(ctx, database.InsertPaymentSQL,
			p.ID(), p.OrderID(), p.Amount(), string(p.Status()),
			p.ReferenceID(), p.QRCodeData(), p.CreatedAt(), p.ConfirmedAt(),
		)
		if err != nil {
			return fmt.Errorf("failed to insert payment: %w", err)
		}
		return nil
	}

	tag, err := r.q.Exec(ctx, database.UpdatePaymentSQL,
		p.ID(), string(p.Status()), p.ConfirmedAt(), p.Version(),
	)
	if err != nil {
		return fmt.Errorf("failed to update payment: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrConcurrentUpdate
	}
	return nil
}
