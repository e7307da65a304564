package payment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"techfood/internal/domain"
	"techfood/internal/logger"
)

// InitiatePaymentRequest represents the request to start a payment
type InitiatePaymentRequest struct {
	OrderID string `json:"order_id"`
}

// PaymentResponse represents a payment in API responses
type PaymentResponse struct {
	ID          string     `json:"id"`
	OrderID     string     `json:"order_id"`
	Amount      string     `json:"amount"`
	Status      string     `json:"status"`
	ReferenceID string     `json:"reference_id"`
	QRCodeData  string     `json:"qr_code_data"`
	CreatedAt   time.Time  `json:"created_at"`
	ConfirmedAt *time.Time `json:"confirmed_at,omitempty"`
}

// Service executes payment commands: initiating a charge with the
// external gateway and applying the asynchronous confirmation result.
// The associated order is never touched directly; confirmation is
// propagated through the stored payment.confirmed event.
type Service struct {
	store   Store
	gateway Gateway
	logger  *logger.Logger
}

// NewService creates a new payment service
func NewService(store Store, gateway Gateway, log *logger.Logger) *Service {
	return &Service{
		store:   store,
		gateway: gateway,
		logger:  log,
	}
}

// InitiatePayment registers a charge for the order's current amount
// with the gateway and persists the pending payment
func (s *Service) InitiatePayment(ctx context.Context, orderID uuid.UUID, requestID string) (*PaymentResponse, error) {
	o, err := s.store.Orders().GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}

	// The gateway call happens outside the transaction; a pending
	// payment row is only written once the provider accepted the charge
	result, err := s.gateway.CreateQRPayment(ctx, o.ID(), o.Amount())
	if err != nil {
		return nil, fmt.Errorf("failed to create gateway payment: %w", err)
	}

	p, err := domain.NewPayment(o.ID(), o.Amount(), result.ReferenceID, result.QRCodeData)
	if err != nil {
		return nil, err
	}

	err = s.store.WithinTx(ctx, func(ctx context.Context, store TxStore) error {
		return store.Payments().Save(ctx, p)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("payment_initiated", fmt.Sprintf("Payment initiated for order %s", o.Number()), requestID, map[string]interface{}{
		"payment_id":   p.ID().String(),
		"order_id":     o.ID().String(),
		"reference_id": p.ReferenceID(),
		"amount":       p.Amount().StringFixed(2),
	})

	return toPaymentResponse(p), nil
}

// ConfirmPayment applies a successful gateway result to the payment.
// Confirming an already-confirmed payment is a logged no-op, so
// webhook retries never re-trigger downstream order effects.
func (s *Service) ConfirmPayment(ctx context.Context, paymentID uuid.UUID, requestID string) error {
	return s.settle(ctx, paymentID, requestID, (*domain.Payment).Confirm, domain.ErrPaymentAlreadyConfirmed, "payment_confirmed")
}

// FailPayment applies a failed gateway result to the payment
func (s *Service) FailPayment(ctx context.Context, paymentID uuid.UUID, requestID string) error {
	return s.settle(ctx, paymentID, requestID, (*domain.Payment).Fail, domain.ErrPaymentAlreadyFailed, "payment_failed")
}

func (s *Service) settle(ctx context.Context, paymentID uuid.UUID, requestID string, op func(*domain.Payment) error, replayErr *domain.Error, action string) error {
	return s.store.WithinTx(ctx, func(ctx context.Context, store TxStore) error {
		p, err := store.Payments().GetByID(ctx, paymentID)
		if err != nil {
			return err
		}

		if err := op(p); err != nil {
			if errors.Is(err, replayErr) {
				// Idempotent replay: audit it, change nothing
				s.logger.Info("settlement_replayed",
					fmt.Sprintf("Payment %s already settled, ignoring replay", paymentID),
					requestID, map[string]interface{}{
						"payment_id": paymentID.String(),
						"status":     string(p.Status()),
					})
				return nil
			}
			return err
		}

		if err := store.Payments().Save(ctx, p); err != nil {
			return err
		}
		if err := store.StoreEvents(ctx, p.PullEvents()); err != nil {
			return err
		}

		s.logger.Info(action, fmt.Sprintf("Payment %s settled", paymentID), requestID, map[string]interface{}{
			"payment_id": paymentID.String(),
			"order_id":   p.OrderID().String(),
			"status":     string(p.Status()),
		})
		return nil
	})
}

// GetPayment returns the current state of a payment
func (s *Service) GetPayment(ctx context.Context, paymentID uuid.UUID) (*PaymentResponse, error) {
	p, err := s.store.Payments().GetByID(ctx, paymentID)
	if err != nil {
		return nil, err
	}
	return toPaymentResponse(p), nil
}

// GetOrderPayments returns all payment attempts for an order
func (s *Service) GetOrderPayments(ctx context.Context, orderID uuid.UUID) ([]*PaymentResponse, error) {
	payments, err := s.store.Payments().GetByOrderID(ctx, orderID)
	if err != nil {
		return nil, err
	}

	responses := make([]*PaymentResponse, 0, len(payments))
	for _, p := range payments {
		responses = append(responses, toPaymentResponse(p))
	}
	return responses, nil
}

func toPaymentResponse(p *domain.Payment) *PaymentResponse {
	return &PaymentResponse{
		ID:          p.ID().String(),
		OrderID:     p.OrderID().String(),
		Amount:      p.Amount().StringFixed(2),
		Status:      string(p.Status()),
		ReferenceID: p.ReferenceID(),
		QRCodeData:  p.QRCodeData(),
		CreatedAt:   p.CreatedAt(),
		ConfirmedAt: p.ConfirmedAt(),
	}
}
