package database

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"techfood/internal/domain"
)

// UnitOfWork runs one handler invocation inside a single database
// transaction: every aggregate change and every stored event commits or
// rolls back together.
type UnitOfWork struct {
	db *DB
}

// NewUnitOfWork creates a unit of work over the connection pool
func NewUnitOfWork(db *DB) *UnitOfWork {
	return &UnitOfWork{db: db}
}

// WithinTx runs fn inside a transaction. Any error from fn rolls the
// transaction back and is returned unchanged.
func (u *UnitOfWork) WithinTx(ctx context.Context, fn func(ctx context.Context, tx pgx.Tx) error) error {
	tx, err := u.db.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := fn(ctx, tx); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// StoreEvents appends domain events to the outbox within the given
// transaction. The relay publishes them after commit.
func StoreEvents(ctx context.Context, q Querier, events []domain.Event) error {
	for _, event := range events {
		payload, err := json.Marshal(event)
		if err != nil {
			return fmt.Errorf("failed to marshal event %s: %w", event.EventName(), err)
		}

		_, err = q.Exec(ctx, InsertOutboxEventSQL,
			uuid.New(),
			event.EventName(),
			event.AggregateID(),
			payload,
			time.Now().UTC(),
		)
		if err != nil {
			return fmt.Errorf("failed to store event %s: %w", event.EventName(), err)
		}
	}
	return nil
}
