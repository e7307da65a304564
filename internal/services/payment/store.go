package payment

import (
	"context"

	"github.com/jackc/pgx/v5"

	"techfood/internal/database"
	"techfood/internal/domain"
	"techfood/internal/services/order"
)

// TxStore is the transaction-scoped view handed to a payment command
type TxStore interface {
	Payments() domain.PaymentRepository
	StoreEvents(ctx context.Context, events []domain.Event) error
}

// Store is the persistence boundary the payment service depends on.
// Orders are read-only here: the payment service never mutates an
// order, it only publishes facts the order service reacts to.
type Store interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context, s TxStore) error) error
	Payments() domain.PaymentRepository
	Orders() domain.OrderRepository
}

// PgStore implements Store over the PostgreSQL pool
type PgStore struct {
	db  *database.DB
	uow *database.UnitOfWork
}

// NewPgStore creates the PostgreSQL-backed store
func NewPgStore(db *database.DB) *PgStore {
	return &PgStore{
		db:  db,
		uow: database.NewUnitOfWork(db),
	}
}

type pgTxStore struct {
	tx pgx.Tx
}

func (s *pgTxStore) Payments() domain.PaymentRepository {
	return NewRepository(s.tx)
}

func (s *pgTxStore) StoreEvents(ctx context.Context, events []domain.Event) error {
	return database.StoreEvents(ctx, s.tx, events)
}

// WithinTx runs fn against transaction-scoped repositories
func (s *PgStore) WithinTx(ctx context.Context, fn func(ctx context.Context, store TxStore) error) error {
	return s.uow.WithinTx(ctx, func(ctx context.Context, tx pgx.Tx) error {
		return fn(ctx, &pgTxStore{tx: tx})
	})
}

// Payments returns a pool-backed repository for reads
func (s *PgStore) Payments() domain.PaymentRepository {
	return NewRepository(s.db.Pool)
}

// Orders returns a pool-backed order repository for reads
func (s *PgStore) Orders() domain.OrderRepository {
	return order.NewRepository(s.db.Pool)
}
