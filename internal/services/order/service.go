package order

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/semaphore"

	"techfood/internal/domain"
	"techfood/internal/logger"
)

// TxStore is the transaction-scoped view handed to a command: the order
// repository plus the event store, all committing together.
type TxStore interface {
	Orders() domain.OrderRepository
	StoreEvents(ctx context.Context, events []domain.Event) error
}

// Store is the persistence boundary the service depends on
type Store interface {
	// WithinTx runs fn inside one unit of work
	WithinTx(ctx context.Context, fn func(ctx context.Context, s TxStore) error) error
	// Orders returns a repository for reads outside a transaction
	Orders() domain.OrderRepository
}

// Service executes order commands: it loads the aggregate, invokes a
// single domain mutator and persists the result. Business rules live in
// the aggregate; the service only orchestrates and translates.
type Service struct {
	store  Store
	logger *logger.Logger
	sem    *semaphore.Weighted
}

// NewService creates a new order service
func NewService(store Store, log *logger.Logger, maxConcurrent int64) *Service {
	return &Service{
		store:  store,
		logger: log,
		sem:    semaphore.NewWeighted(maxConcurrent),
	}
}

// CreateOrder validates the request and creates a pending order with
// its initial items
func (s *Service) CreateOrder(ctx context.Context, req *CreateOrderRequest, requestID string) (*OrderResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	if err := s.sem.Acquire(ctx, 1); err != nil {
		return nil, fmt.Errorf("failed to acquire order slot: %w", err)
	}
	defer s.sem.Release(1)

	customerID, _ := uuid.Parse(req.CustomerID)

	var resp *OrderResponse
	err := s.store.WithinTx(ctx, func(ctx context.Context, store TxStore) error {
		number, err := store.Orders().NextOrderNumber(ctx)
		if err != nil {
			return err
		}

		o := domain.NewOrder(customerID, number)
		for _, payload := range req.Items {
			productID, _ := uuid.Parse(payload.ProductID)
			price, _ := decimal.NewFromString(payload.UnitPrice)

			item, err := domain.NewOrderItem(productID, payload.Quantity, price)
			if err != nil {
				return err
			}
			if err := o.AddItem(item); err != nil {
				return err
			}
		}

		if err := store.Orders().Save(ctx, o); err != nil {
			return err
		}
		if err := store.StoreEvents(ctx, o.PullEvents()); err != nil {
			return err
		}

		resp = toOrderResponse(o)
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("order_created", fmt.Sprintf("Order %s created", resp.OrderNumber), requestID, map[string]interface{}{
		"order_id":     resp.ID,
		"order_number": resp.OrderNumber,
		"total_amount": resp.Amount,
	})

	return resp, nil
}

// GetOrder returns the current state of an order
func (s *Service) GetOrder(ctx context.Context, orderID uuid.UUID) (*OrderResponse, error) {
	o, err := s.store.Orders().GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	return toOrderResponse(o), nil
}

// AddItem appends an item to a pending order
func (s *Service) AddItem(ctx context.Context, orderID uuid.UUID, req *AddItemRequest, requestID string) (*OrderResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	productID, _ := uuid.Parse(req.ProductID)
	price, _ := decimal.NewFromString(req.UnitPrice)

	return s.mutate(ctx, orderID, requestID, "item_added", func(o *domain.Order) error {
		item, err := domain.NewOrderItem(productID, req.Quantity, price)
		if err != nil {
			return err
		}
		return o.AddItem(item)
	})
}

// RemoveItem removes an item from a pending order
func (s *Service) RemoveItem(ctx context.Context, orderID, itemID uuid.UUID, requestID string) (*OrderResponse, error) {
	return s.mutate(ctx, orderID, requestID, "item_removed", func(o *domain.Order) error {
		return o.RemoveItem(itemID)
	})
}

// ApplyDiscount applies a discount to a pending order
func (s *Service) ApplyDiscount(ctx context.Context, orderID uuid.UUID, req *ApplyDiscountRequest, requestID string) (*OrderResponse, error) {
	discount, err := decimal.NewFromString(req.Discount)
	if err != nil {
		return nil, validationErrorf("discount must be a decimal number")
	}

	return s.mutate(ctx, orderID, requestID, "discount_applied", func(o *domain.Order) error {
		return o.ApplyDiscount(discount)
	})
}

// Cancel cancels a pending order
func (s *Service) Cancel(ctx context.Context, orderID uuid.UUID, requestID string) (*OrderResponse, error) {
	return s.mutate(ctx, orderID, requestID, "order_cancelled", (*domain.Order).Cancel)
}

// Receive transitions a paid order from pending to received. Invoked by
// the payment-confirmed subscriber, not exposed over HTTP.
func (s *Service) Receive(ctx context.Context, orderID uuid.UUID, requestID string) (*OrderResponse, error) {
	return s.mutate(ctx, orderID, requestID, "order_received", (*domain.Order).Receive)
}

// Prepare transitions a received order to in preparation
func (s *Service) Prepare(ctx context.Context, orderID uuid.UUID, requestID string) (*OrderResponse, error) {
	return s.mutate(ctx, orderID, requestID, "order_preparing", (*domain.Order).Prepare)
}

// MarkReady transitions an in-preparation order to ready
func (s *Service) MarkReady(ctx context.Context, orderID uuid.UUID, requestID string) (*OrderResponse, error) {
	return s.mutate(ctx, orderID, requestID, "order_ready", (*domain.Order).MarkReady)
}

// Deliver transitions a ready order to delivered
func (s *Service) Deliver(ctx context.Context, orderID uuid.UUID, requestID string) (*OrderResponse, error) {
	return s.mutate(ctx, orderID, requestID, "order_delivered", (*domain.Order).Deliver)
}

// mutate runs one domain mutator inside the unit of work: load, invoke,
// save, store events. A guard failure rolls everything back.
func (s *Service) mutate(ctx context.Context, orderID uuid.UUID, requestID, action string, op func(*domain.Order) error) (*OrderResponse, error) {
	var resp *OrderResponse
	err := s.store.WithinTx(ctx, func(ctx context.Context, store TxStore) error {
		o, err := store.Orders().GetByID(ctx, orderID)
		if err != nil {
			return err
		}

		if err := op(o); err != nil {
			return err
		}

		if err := store.Orders().Save(ctx, o); err != nil {
			return err
		}
		if err := store.StoreEvents(ctx, o.PullEvents()); err != nil {
			return err
		}

		resp = toOrderResponse(o)
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info(action, fmt.Sprintf("Order %s updated", resp.OrderNumber), requestID, map[string]interface{}{
		"order_id": resp.ID,
		"status":   resp.Status,
	})

	return resp, nil
}

// HealthCheck reports whether the persistence layer is reachable
func (s *Service) HealthCheck(ctx context.Context) bool {
	_, err := s.store.Orders().GetByNumber(ctx, "ORD_00000000_000")
	return err == nil || domain.IsNotFound(err)
}
