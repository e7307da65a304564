package payment

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"techfood/internal/domain"
	"techfood/internal/logger"
)

type fakeStore struct {
	payments  map[uuid.UUID]*domain.Payment
	orders    map[uuid.UUID]*domain.Order
	events    []domain.Event
	saveCount int
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		payments: make(map[uuid.UUID]*domain.Payment),
		orders:   make(map[uuid.UUID]*domain.Order),
	}
}

func (s *fakeStore) WithinTx(ctx context.Context, fn func(ctx context.Context, store TxStore) error) error {
	return fn(ctx, &fakeTxStore{store: s})
}

func (s *fakeStore) Payments() domain.PaymentRepository {
	return &fakePaymentRepo{store: s}
}

func (s *fakeStore) Orders() domain.OrderRepository {
	return &fakeOrderRepo{store: s}
}

type fakeTxStore struct {
	store *fakeStore
}

func (s *fakeTxStore) Payments() domain.PaymentRepository {
	return &fakePaymentRepo{store: s.store}
}

func (s *fakeTxStore) StoreEvents(ctx context.Context, events []domain.Event) error {
	s.store.events = append(s.store.events, events...)
	return nil
}

type fakePaymentRepo struct {
	store *fakeStore
}

func (r *fakePaymentRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Payment, error) {
	p, ok := r.store.payments[id]
	if !ok {
		return nil, domain.NewPaymentNotFound(id.String())
	}
	return p, nil
}

func (r *fakePaymentRepo) GetByOrderID(ctx context.Context, orderID uuid.UUID) ([]*domain.Payment, error) {
	var payments []*domain.Payment
	for _, p := range r.store.payments {
		if p.OrderID() == orderID {
			payments = append(payments, p)
		}
	}
	return payments, nil
}

func (r *fakePaymentRepo) Save(ctx context.Context, p *domain.Payment) error {
	r.store.payments[p.ID()] = p
	r.store.saveCount++
	return nil
}

type fakeOrderRepo struct {
	store *fakeStore
}

func (r *fakeOrderRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Order, error) {
	o, ok := r.store.orders[id]
	if !ok {
		return nil, domain.NewOrderNotFound(id.String())
	}
	return o, nil
}

func (r *fakeOrderRepo) GetByNumber(ctx context.Context, number string) (*domain.Order, error) {
	return nil, domain.NewOrderNotFound(number)
}

func (r *fakeOrderRepo) Save(ctx context.Context, o *domain.Order) error {
	r.store.orders[o.ID()] = o
	return nil
}

func (r *fakeOrderRepo) NextOrderNumber(ctx context.Context) (string, error) {
	return "ORD_20260830_001", nil
}

type fakeGateway struct {
	result *QRPaymentResult
	err    error
	calls  int
}

func (g *fakeGateway) CreateQRPayment(ctx context.Context, orderID uuid.UUID, amount decimal.Decimal) (*QRPaymentResult, error) {
	g.calls++
	if g.err != nil {
		return nil, g.err
	}
	return g.result, nil
}

func newOrderWithItems(t *testing.T, store *fakeStore) *domain.Order {
	t.Helper()
	o := domain.NewOrder(uuid.New(), "ORD_20260830_001")
	price := decimal.RequireFromString("10.42")
	item, err := domain.NewOrderItem(uuid.New(), 7, price)
	require.NoError(t, err)
	require.NoError(t, o.AddItem(item))
	o.PullEvents()
	store.orders[o.ID()] = o
	return o
}

func newTestService(store *fakeStore, gateway Gateway) *Service {
	return NewService(store, gateway, logger.New("payment-service-test"))
}

func TestService_InitiatePayment(t *testing.T) {
	store := newFakeStore()
	gateway := &fakeGateway{result: &QRPaymentResult{ReferenceID: "MP-REF-1", QRCodeData: "qr-payload"}}
	svc := newTestService(store, gateway)

	o := newOrderWithItems(t, store)

	resp, err := svc.InitiatePayment(context.Background(), o.ID(), "req-1")
	require.NoError(t, err)

	assert.Equal(t, o.ID().String(), resp.OrderID)
	assert.Equal(t, "72.94", resp.Amount)
	assert.Equal(t, "pending", resp.Status)
	assert.Equal(t, "MP-REF-1", resp.ReferenceID)
	assert.Equal(t, "qr-payload", resp.QRCodeData)
	assert.Equal(t, 1, gateway.calls)
	assert.Equal(t, 1, store.saveCount)
}

func TestService_InitiatePayment_OrderNotFound(t *testing.T) {
	store := newFakeStore()
	gateway := &fakeGateway{result: &QRPaymentResult{}}
	svc := newTestService(store, gateway)

	_, err := svc.InitiatePayment(context.Background(), uuid.New(), "req-1")

	assert.True(t, domain.IsNotFound(err))
	assert.Zero(t, gateway.calls)
}

func TestService_InitiatePayment_GatewayFailure(t *testing.T) {
	store := newFakeStore()
	gateway := &fakeGateway{err: errors.New("provider unavailable")}
	svc := newTestService(store, gateway)

	o := newOrderWithItems(t, store)

	_, err := svc.InitiatePayment(context.Background(), o.ID(), "req-1")

	require.Error(t, err)
	assert.False(t, domain.IsDomainError(err))
	assert.Zero(t, store.saveCount, "no payment row on gateway failure")
}

func TestService_ConfirmPayment(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store, &fakeGateway{})

	p, err := domain.NewPayment(uuid.New(), decimal.RequireFromString("63.18"), "MP-REF-1", "qr")
	require.NoError(t, err)
	store.payments[p.ID()] = p

	require.NoError(t, svc.ConfirmPayment(context.Background(), p.ID(), "req-1"))

	assert.Equal(t, domain.PaymentConfirmedStatus, p.Status())
	require.Len(t, store.events, 1)
	assert.Equal(t, "payment.confirmed", store.events[0].EventName())
}

func TestService_ConfirmPayment_NotFound(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store, &fakeGateway{})

	err := svc.ConfirmPayment(context.Background(), uuid.New(), "req-1")

	assert.True(t, domain.IsNotFound(err))
	assert.Empty(t, store.events)
	assert.Zero(t, store.saveCount)
}

func TestService_ConfirmPayment_Replay(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store, &fakeGateway{})

	p, err := domain.NewPayment(uuid.New(), decimal.RequireFromString("63.18"), "MP-REF-1", "qr")
	require.NoError(t, err)
	store.payments[p.ID()] = p

	require.NoError(t, svc.ConfirmPayment(context.Background(), p.ID(), "req-1"))
	savesAfterFirst := store.saveCount
	eventsAfterFirst := len(store.events)

	// A webhook retry must be a no-op: no second save, no second event
	require.NoError(t, svc.ConfirmPayment(context.Background(), p.ID(), "req-2"))

	assert.Equal(t, savesAfterFirst, store.saveCount)
	assert.Equal(t, eventsAfterFirst, len(store.events))
}

func TestService_ConfirmPayment_AfterFail(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store, &fakeGateway{})

	p, err := domain.NewPayment(uuid.New(), decimal.RequireFromString("63.18"), "MP-REF-1", "qr")
	require.NoError(t, err)
	store.payments[p.ID()] = p

	require.NoError(t, svc.FailPayment(context.Background(), p.ID(), "req-1"))

	// Confirming a failed payment is a conflict, not a replay
	err = svc.ConfirmPayment(context.Background(), p.ID(), "req-2")
	assert.ErrorIs(t, err, domain.ErrPaymentNotPending)
}

func TestService_FailPayment_Replay(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store, &fakeGateway{})

	p, err := domain.NewPayment(uuid.New(), decimal.RequireFromString("63.18"), "MP-REF-1", "qr")
	require.NoError(t, err)
	store.payments[p.ID()] = p

	require.NoError(t, svc.FailPayment(context.Background(), p.ID(), "req-1"))
	eventsAfterFirst := len(store.events)

	require.NoError(t, svc.FailPayment(context.Background(), p.ID(), "req-2"))
	assert.Equal(t, eventsAfterFirst, len(store.events))
}

func TestService_GetOrderPayments(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store, &fakeGateway{})

	orderID := uuid.New()
	for i := 0; i < 2; i++ {
		p, err := domain.NewPayment(orderID, decimal.RequireFromString("10.00"), "ref", "qr")
		require.NoError(t, err)
		store.payments[p.ID()] = p
	}

	payments, err := svc.GetOrderPayments(context.Background(), orderID)
	require.NoError(t, err)
	assert.Len(t, payments, 2)
}
