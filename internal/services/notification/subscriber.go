package notification

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"techfood/internal/domain"
	"techfood/internal/logger"
	"techfood/internal/messaging"
)

// Subscriber consumes the status fanout and surfaces each transition
// as a human-readable notification.
type Subscriber struct {
	consumer *messaging.Consumer
	logger   *logger.Logger

	shutdown chan os.Signal
	done     chan bool
}

// NewSubscriber creates a new notification subscriber
func NewSubscriber(consumer *messaging.Consumer, log *logger.Logger) *Subscriber {
	return &Subscriber{
		consumer: consumer,
		logger:   log,
		shutdown: make(chan os.Signal, 1),
		done:     make(chan bool, 1),
	}
}

// Start starts the notification subscriber
func (s *Subscriber) Start(ctx context.Context) error {
	requestID := logger.GenerateRequestID()

	signal.Notify(s.shutdown, syscall.SIGINT, syscall.SIGTERM)

	s.logger.Info("service_started", "Notification subscriber started", requestID, nil)

	go func() {
		if err := s.consumer.StartConsuming(ctx, s.handleNotification); err != nil {
			s.logger.Error("consumer_failed", "Notification consumer failed", requestID, err, nil)
		}
		s.done <- true
	}()

	select {
	case <-s.shutdown:
		s.logger.Info("graceful_shutdown", "Received shutdown signal", requestID, nil)
		return s.gracefulShutdown(requestID)
	case <-s.done:
		return nil
	}
}

// handleNotification processes one status change from the fanout
func (s *Subscriber) handleNotification(ctx context.Context, body []byte) error {
	requestID := logger.GenerateRequestID()

	var event domain.OrderStatusChanged
	if err := messaging.ParseMessage(body, &event); err != nil {
		s.logger.Error("message_parsing_failed", "Failed to parse notification message", requestID, err, nil)
		// Malformed messages are dropped, requeueing cannot fix them
		return nil
	}

	fmt.Println(formatNotification(&event))

	s.logger.Info("notification_displayed", "Notification displayed to user", requestID, map[string]interface{}{
		"order_number": event.Number,
		"old_status":   string(event.OldStatus),
		"new_status":   string(event.NewStatus),
		"timestamp":    event.At.Format("2006-01-02 15:04:05"),
	})

	return nil
}

// formatNotification creates a human-readable notification message
func formatNotification(event *domain.OrderStatusChanged) string {
	timestamp := event.At.Format("2006-01-02 15:04:05")

	switch event.NewStatus {
	case domain.StatusReceived:
		return fmt.Sprintf("[%s] Order %s has been received and is waiting for the kitchen", timestamp, event.Number)
	case domain.StatusInPreparation:
		return fmt.Sprintf("[%s] Order %s is now being prepared", timestamp, event.Number)
	case domain.StatusReady:
		return fmt.Sprintf("[%s] Order %s is ready for pickup", timestamp, event.Number)
	case domain.StatusDelivered:
		return fmt.Sprintf("[%s] Order %s has been delivered. Enjoy!", timestamp, event.Number)
	case domain.StatusCancelled:
		return fmt.Sprintf("[%s] Order %s has been cancelled", timestamp, event.Number)
	default:
		return fmt.Sprintf("[%s] Order %s changed status from %s to %s", timestamp, event.Number, event.OldStatus, event.NewStatus)
	}
}

func (s *Subscriber) gracefulShutdown(requestID string) error {
	if s.consumer != nil {
		s.consumer.Close()
	}

	s.logger.Info("graceful_shutdown", "Graceful shutdown completed", requestID, nil)
	return nil
}
