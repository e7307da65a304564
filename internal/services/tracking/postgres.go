package tracking

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"techfood/internal/database"
	"techfood/internal/domain"
)

// PgStore runs the tracking read queries against Postgres
type PgStore struct {
	db *database.DB
}

// NewPgStore creates a Postgres-backed tracking store
func NewPgStore(db *database.DB) *PgStore {
	return &PgStore{db: db}
}

func (s *PgStore) GetOrderStatus(ctx context.Context, orderNumber string) (*OrderStatusResponse, error) {
	var (
		status    OrderStatusResponse
		discarded any
	)

	err := s.db.Pool.QueryRow(ctx, database.GetOrderByNumberSQL, orderNumber).Scan(
		&discarded,
		&status.OrderNumber,
		&discarded,
		&discarded,
		&status.CurrentStatus,
		&discarded,
		&discarded,
		&status.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.NewOrderNotFound(orderNumber)
		}
		return nil, fmt.Errorf("failed to query order status: %w", err)
	}

	return &status, nil
}

func (s *PgStore) GetOrderHistory(ctx context.Context, orderNumber string) ([]StatusHistoryEntry, error) {
	rows, err := s.db.Pool.Query(ctx, database.GetOrderStatusHistorySQL, orderNumber)
	if err != nil {
		return nil, fmt.Errorf("failed to query order history: %w", err)
	}
	defer rows.Close()

	var history []StatusHistoryEntry
	for rows.Next() {
		var entry StatusHistoryEntry
		if err := rows.Scan(&entry.Status, &entry.ChangedAt); err != nil {
			return nil, fmt.Errorf("failed to scan history row: %w", err)
		}
		history = append(history, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate history rows: %w", err)
	}

	if len(history) == 0 {
		return nil, domain.NewOrderNotFound(orderNumber)
	}

	return history, nil
}

func (s *PgStore) ListWorkers(ctx context.Context) ([]WorkerStatusResponse, error) {
	rows, err := s.db.Pool.Query(ctx, database.GetAllWorkersSQL)
	if err != nil {
		return nil, fmt.Errorf("failed to query workers: %w", err)
	}
	defer rows.Close()

	var workers []WorkerStatusResponse
	for rows.Next() {
		var worker WorkerStatusResponse
		if err := rows.Scan(&worker.WorkerName, &worker.Status, &worker.OrdersProcessed, &worker.LastSeen); err != nil {
			return nil, fmt.Errorf("failed to scan worker row: %w", err)
		}
		workers = append(workers, worker)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate worker rows: %w", err)
	}

	return workers, nil
}

func (s *PgStore) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}
