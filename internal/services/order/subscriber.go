package order

import (
	"context"
	"fmt"

	"techfood/internal/domain"
	"techfood/internal/logger"
	"techfood/internal/messaging"
)

// ConfirmationSubscriber applies confirmed payments to their orders.
// It consumes the payment.confirmed events published by the payment
// service and transitions the order from pending to received. The two
// aggregates stay independently persisted; this is the only link.
type ConfirmationSubscriber struct {
	consumer *messaging.Consumer
	service  *Service
	logger   *logger.Logger
}

// NewConfirmationSubscriber creates a payment confirmation subscriber
func NewConfirmationSubscriber(consumer *messaging.Consumer, service *Service, log *logger.Logger) *ConfirmationSubscriber {
	return &ConfirmationSubscriber{
		consumer: consumer,
		service:  service,
		logger:   log,
	}
}

// Start consumes confirmation events until the context is cancelled
func (s *ConfirmationSubscriber) Start(ctx context.Context) error {
	return s.consumer.StartConsuming(ctx, s.handleConfirmation)
}

func (s *ConfirmationSubscriber) handleConfirmation(ctx context.Context, body []byte) error {
	requestID := logger.GenerateRequestID()

	var event domain.PaymentConfirmed
	if err := messaging.ParseMessage(body, &event); err != nil {
		s.logger.Error("message_parsing_failed", "Failed to parse payment confirmation", requestID, err, nil)
		// Malformed payloads never become valid; drop instead of requeue
		return nil
	}

	_, err := s.service.Receive(ctx, event.OrderID, requestID)
	if err != nil {
		// Redelivery of an already-applied confirmation hits the
		// receive guard; acknowledge instead of looping
		if domain.IsDomainError(err) {
			s.logger.Info("confirmation_already_applied",
				fmt.Sprintf("Order %s is past pending, skipping confirmation replay", event.OrderID),
				requestID, map[string]interface{}{
					"order_id":   event.OrderID.String(),
					"payment_id": event.PaymentID.String(),
				})
			return nil
		}
		return err
	}

	s.logger.Info("order_received",
		fmt.Sprintf("Order %s received after payment confirmation", event.OrderID),
		requestID, map[string]interface{}{
			"order_id":   event.OrderID.String(),
			"payment_id": event.PaymentID.String(),
		})

	return nil
}
