package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"techfood/internal/database"
	"techfood/internal/domain"
	"techfood/internal/logger"
)

// Relay drains the outbox table and publishes stored domain events to
// RabbitMQ. Events are marked published only after the broker accepted
// them, so delivery is at-least-once; consumers must tolerate replays.
type Relay struct {
	db        *database.DB
	publisher *Publisher
	logger    *logger.Logger
	interval  time.Duration
	batchSize int
}

// NewRelay creates an outbox relay
func NewRelay(db *database.DB, publisher *Publisher, log *logger.Logger) *Relay {
	return &Relay{
		db:        db,
		publisher: publisher,
		logger:    log,
		interval:  time.Second,
		batchSize: 100,
	}
}

// Run polls the outbox until the context is cancelled
func (r *Relay) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.logger.Info("relay_stopped", "Outbox relay stopped", "", nil)
			return ctx.Err()
		case <-ticker.C:
			if err := r.drainOnce(ctx); err != nil {
				r.logger.Error("relay_drain_failed", "Failed to drain outbox", "", err, nil)
			}
		}
	}
}

func (r *Relay) drainOnce(ctx context.Context) error {
	tx, err := r.db.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	rows, err := tx.Query(ctx, database.GetUnpublishedOutboxEventsSQL, r.batchSize)
	if err != nil {
		return fmt.Errorf("failed to query outbox: %w", err)
	}

	type outboxRow struct {
		id          uuid.UUID
		eventName   string
		aggregateID uuid.UUID
		payload     []byte
	}

	var pending []outboxRow
	for rows.Next() {
		var row outboxRow
		if err := rows.Scan(&row.id, &row.eventName, &row.aggregateID, &row.payload); err != nil {
			rows.Close()
			return fmt.Errorf("failed to scan outbox row: %w", err)
		}
		pending = append(pending, row)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return fmt.Errorf("failed to iterate outbox rows: %w", err)
	}

	for _, row := range pending {
		routingKey := routingKeyFor(row.eventName, row.payload)

		if err := r.publisher.PublishEvent(ctx, routingKey, row.payload); err != nil {
			return fmt.Errorf("failed to publish event %s: %w", row.eventName, err)
		}

		// status changes also fan out to notification subscribers
		if row.eventName == "order.status_changed" {
			if err := r.publisher.PublishNotification(ctx, json.RawMessage(row.payload)); err != nil {
				r.logger.Error("notification_publish_failed", "Failed to fan out status change", "", err, map[string]interface{}{
					"event_id": row.id.String(),
				})
			}
		}

		if _, err := tx.Exec(ctx, database.MarkOutboxEventPublishedSQL, row.id); err != nil {
			return fmt.Errorf("failed to mark event published: %w", err)
		}

		r.logger.Debug("event_relayed", fmt.Sprintf("Relayed event %s", row.eventName), "", map[string]interface{}{
			"event_id":     row.id.String(),
			"aggregate_id": row.aggregateID.String(),
			"routing_key":  routingKey,
		})
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// routingKeyFor maps a stored event to its topic routing key. Status
// changes carry the new status in the key so queues can bind to a
// single transition, e.g. "order.status.received".
func routingKeyFor(eventName string, payload []byte) string {
	if eventName != "order.status_changed" {
		return eventName
	}

	var event domain.OrderStatusChanged
	if err := json.Unmarshal(payload, &event); err != nil {
		return eventName
	}
	return event.RoutingKey()
}
