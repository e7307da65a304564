package order

import (
	"context"

	"github.com/jackc/pgx/v5"

	"techfood/internal/database"
	"techfood/internal/domain"
)

// PgStore implements Store over the PostgreSQL pool and pgx
// transactions
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

func (s *pgTxStore) Orders() domain.OrderRepository {
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

// Orders returns a pool-backed repository for reads
func (s *PgStore) Orders() domain.OrderRepository {
	return NewRepository(s.db.Pool)
}
