package kitchen

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"techfood/internal/database"
	"techfood/internal/domain"
	"techfood/internal/logger"
	"techfood/internal/messaging"
	"techfood/internal/services/order"
)

// Worker drives received orders through preparation. It consumes
// order.status.received events, moves the order to in_preparation,
// simulates the cooking time and marks the order ready. Both
// transitions go through the order service so the status log and
// outbox rows are written in the same transaction.
type Worker struct {
	name              string
	heartbeatInterval time.Duration
	cookingTime       time.Duration
	prefetch          int

	db       *database.DB
	consumer *messaging.Consumer
	orders   *order.Service
	logger   *logger.Logger

	shutdown chan os.Signal
	done     chan bool
}

// NewWorker creates a new kitchen worker
func NewWorker(name string, heartbeatInterval, cookingTime time.Duration, prefetch int,
	db *database.DB, consumer *messaging.Consumer, orders *order.Service, log *logger.Logger) *Worker {

	return &Worker{
		name:              name,
		heartbeatInterval: heartbeatInterval,
		cookingTime:       cookingTime,
		prefetch:          prefetch,
		db:                db,
		consumer:          consumer,
		orders:            orders,
		logger:            log,
		shutdown:          make(chan os.Signal, 1),
		done:              make(chan bool, 1),
	}
}

// Start registers the worker and begins consuming received orders
func (w *Worker) Start(ctx context.Context) error {
	requestID := logger.GenerateRequestID()

	if err := w.registerWorker(ctx, requestID); err != nil {
		return fmt.Errorf("failed to register worker: %w", err)
	}

	signal.Notify(w.shutdown, syscall.SIGINT, syscall.SIGTERM)

	go w.heartbeatLoop(ctx)

	go func() {
		if err := w.consumer.StartConsuming(ctx, w.handleMessage); err != nil {
			w.logger.Error("consumer_failed", "Message consumer failed", requestID, err, nil)
		}
		w.done <- true
	}()

	w.logger.Info("worker_started", fmt.Sprintf("Kitchen worker %s started", w.name), requestID, map[string]interface{}{
		"worker_name":        w.name,
		"heartbeat_interval": w.heartbeatInterval.Seconds(),
		"cooking_time":       w.cookingTime.Seconds(),
		"prefetch":           w.prefetch,
	})

	select {
	case <-w.shutdown:
		w.logger.Info("graceful_shutdown", "Received shutdown signal", requestID, nil)
		return w.gracefulShutdown(ctx, requestID)
	case <-w.done:
		return nil
	}
}

// registerWorker registers the worker in the database
func (w *Worker) registerWorker(ctx context.Context, requestID string) error {
	var count int
	err := w.db.Pool.QueryRow(ctx, database.CheckWorkerOnlineSQL, w.name).Scan(&count)
	if err != nil {
		return fmt.Errorf("failed to check worker status: %w", err)
	}

	if count > 0 {
		w.logger.Error("worker_registration_failed", "Worker with same name is already online", requestID, nil, map[string]interface{}{
			"worker_name": w.name,
		})
		return fmt.Errorf("worker %s is already online", w.name)
	}

	var workerID int
	err = w.db.Pool.QueryRow(ctx, database.InsertWorkerSQL, w.name).Scan(&workerID)
	if err != nil {
		return fmt.Errorf("failed to register worker: %w", err)
	}

	w.logger.Info("worker_registered", fmt.Sprintf("Worker %s registered successfully", w.name), requestID, map[string]interface{}{
		"worker_id":   workerID,
		"worker_name": w.name,
	})

	return nil
}

// handleMessage processes a single order.status.received event
func (w *Worker) handleMessage(ctx context.Context, body []byte) error {
	requestID := logger.GenerateRequestID()

	var event domain.OrderStatusChanged
	if err := messaging.ParseMessage(body, &event); err != nil {
		w.logger.Error("message_parsing_failed", "Failed to parse status event", requestID, err, nil)
		// Malformed messages are dropped, requeueing cannot fix them
		return nil
	}

	if event.NewStatus != domain.StatusReceived {
		w.logger.Debug("event_skipped", fmt.Sprintf("Ignoring %s event for order %s", event.NewStatus, event.Number), requestID, map[string]interface{}{
			"order_number": event.Number,
			"new_status":   string(event.NewStatus),
		})
		return nil
	}

	return w.processOrder(ctx, &event, requestID)
}

// processOrder moves a received order through in_preparation to ready
func (w *Worker) processOrder(ctx context.Context, event *domain.OrderStatusChanged, requestID string) error {
	if _, err := w.orders.Prepare(ctx, event.OrderID, requestID); err != nil {
		if domain.IsDomainError(err) || domain.IsNotFound(err) {
			// Redelivery or an order that was cancelled in the meantime
			w.logger.Info("order_skipped", fmt.Sprintf("Order %s is not waiting for preparation", event.Number), requestID, map[string]interface{}{
				"order_number": event.Number,
				"reason":       err.Error(),
			})
			return nil
		}
		return fmt.Errorf("failed to start preparation: %w", err)
	}

	w.logger.Debug("cooking_started", fmt.Sprintf("Cooking order %s for %v", event.Number, w.cookingTime), requestID, map[string]interface{}{
		"order_number":         event.Number,
		"cooking_time_seconds": w.cookingTime.Seconds(),
	})

	select {
	case <-time.After(w.cookingTime):
	case <-ctx.Done():
		return ctx.Err()
	}

	if _, err := w.orders.MarkReady(ctx, event.OrderID, requestID); err != nil {
		if domain.IsDomainError(err) || domain.IsNotFound(err) {
			w.logger.Info("order_skipped", fmt.Sprintf("Order %s left preparation before completion", event.Number), requestID, map[string]interface{}{
				"order_number": event.Number,
				"reason":       err.Error(),
			})
			return nil
		}
		return fmt.Errorf("failed to mark order ready: %w", err)
	}

	if _, err := w.db.Pool.Exec(ctx, database.UpdateWorkerHeartbeatSQL, 1, w.name); err != nil {
		w.logger.Error("worker_stats_failed", "Failed to update processed count", requestID, err, map[string]interface{}{
			"worker_name": w.name,
		})
	}

	w.logger.Debug("order_completed", fmt.Sprintf("Successfully processed order %s", event.Number), requestID, map[string]interface{}{
		"order_number": event.Number,
		"processed_by": w.name,
	})

	return nil
}

// heartbeatLoop sends periodic heartbeats to update last_seen
func (w *Worker) heartbeatLoop(ctx context.Context) {
	ticker := time.NewTicker(w.heartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := w.sendHeartbeat(ctx); err != nil {
				w.logger.Error("heartbeat_failed", "Failed to send heartbeat", "", err, nil)
			} else {
				w.logger.Debug("heartbeat_sent", "Heartbeat sent successfully", "", nil)
			}
		}
	}
}

func (w *Worker) sendHeartbeat(ctx context.Context) error {
	_, err := w.db.Pool.Exec(ctx, database.UpdateWorkerStatusSQL, "online", w.name)
	return err
}

// gracefulShutdown marks the worker offline and stops the consumer
func (w *Worker) gracefulShutdown(ctx context.Context, requestID string) error {
	_, err := w.db.Pool.Exec(ctx, database.UpdateWorkerStatusSQL, "offline", w.name)
	if err != nil {
		w.logger.Error("shutdown_failed", "Failed to update worker status to offline", requestID, err, nil)
	}

	if w.consumer != nil {
		w.consumer.Close()
	}

	w.logger.Info("graceful_shutdown", "Graceful shutdown completed", requestID, nil)
	return nil
}
