package order

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"techfood/internal/domain"
	"techfood/internal/logger"
)

// fakeStore keeps aggregates in memory and records stored events and
// save calls. WithinTx runs the function directly; rollback semantics
// are exercised through the absence of Save calls on guard failures.
type fakeStore struct {
	orders     map[uuid.UUID]*domain.Order
	events     []domain.Event
	saveCount  int
	nextNumber int
}

func newFakeStore() *fakeStore {
	return &fakeStore{orders: make(map[uuid.UUID]*domain.Order)}
}

func (s *fakeStore) WithinTx(ctx context.Context, fn func(ctx context.Context, store TxStore) error) error {
	return fn(ctx, &fakeTxStore{store: s})
}

func (s *fakeStore) Orders() domain.OrderRepository {
	return &fakeOrderRepo{store: s}
}

type fakeTxStore struct {
	store *fakeStore
}

func (s *fakeTxStore) Orders() domain.OrderRepository {
	return &fakeOrderRepo{store: s.store}
}

func (s *fakeTxStore) StoreEvents(ctx context.Context, events []domain.Event) error {
	s.store.events = append(s.store.events, events...)
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
	for _, o := range r.store.orders {
		if o.Number() == number {
			return o, nil
		}
	}
	return nil, domain.NewOrderNotFound(number)
}

func (r *fakeOrderRepo) Save(ctx context.Context, o *domain.Order) error {
	r.store.orders[o.ID()] = o
	r.store.saveCount++
	return nil
}

func (r *fakeOrderRepo) NextOrderNumber(ctx context.Context) (string, error) {
	r.store.nextNumber++
	return fmt.Sprintf("ORD_20260830_%03d", r.store.nextNumber), nil
}

func newTestService(store *fakeStore) *Service {
	return NewService(store, logger.New("order-service-test"), 10)
}

func createOrderRequest() *CreateOrderRequest {
	return &CreateOrderRequest{
		CustomerID: uuid.NewString(),
		Items: []ItemPayload{
			{ProductID: uuid.NewString(), Quantity: 7, UnitPrice: "10.42"},
		},
	}
}

func TestService_CreateOrder(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store)

	resp, err := svc.CreateOrder(context.Background(), createOrderRequest(), "req-1")
	require.NoError(t, err)

	assert.Equal(t, "ORD_20260830_001", resp.OrderNumber)
	assert.Equal(t, "pending", resp.Status)
	assert.Equal(t, "72.94", resp.Amount)
	require.Len(t, resp.Items, 1)

	require.Len(t, store.events, 1)
	assert.Equal(t, "order.created", store.events[0].EventName())
	assert.Equal(t, 1, store.saveCount)
}

func TestService_CreateOrder_Invalid(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store)

	cases := []struct {
		name string
		req  *CreateOrderRequest
	}{
		{"bad customer id", &CreateOrderRequest{CustomerID: "nope", Items: []ItemPayload{{ProductID: uuid.NewString(), Quantity: 1, UnitPrice: "1.00"}}}},
		{"no items", &CreateOrderRequest{CustomerID: uuid.NewString()}},
		{"zero quantity", &CreateOrderRequest{CustomerID: uuid.NewString(), Items: []ItemPayload{{ProductID: uuid.NewString(), Quantity: 0, UnitPrice: "1.00"}}}},
		{"bad price", &CreateOrderRequest{CustomerID: uuid.NewString(), Items: []ItemPayload{{ProductID: uuid.NewString(), Quantity: 1, UnitPrice: "abc"}}}},
		{"negative price", &CreateOrderRequest{CustomerID: uuid.NewString(), Items: []ItemPayload{{ProductID: uuid.NewString(), Quantity: 1, UnitPrice: "-1.00"}}}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.CreateOrder(context.Background(), tc.req, "req-1")
			var validationErr *ValidationError
			assert.ErrorAs(t, err, &validationErr)
		})
	}

	assert.Zero(t, store.saveCount)
}

func TestService_AddItem(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store)

	created, err := svc.CreateOrder(context.Background(), createOrderRequest(), "req-1")
	require.NoError(t, err)
	orderID := uuid.MustParse(created.ID)

	resp, err := svc.AddItem(context.Background(), orderID, &AddItemRequest{
		ProductID: uuid.NewString(),
		Quantity:  2,
		UnitPrice: "3.50",
	}, "req-2")
	require.NoError(t, err)

	assert.Len(t, resp.Items, 2)
	assert.Equal(t, "79.94", resp.Amount)
}

func TestService_AddItem_OrderNotFound(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store)

	_, err := svc.AddItem(context.Background(), uuid.New(), &AddItemRequest{
		ProductID: uuid.NewString(),
		Quantity:  1,
		UnitPrice: "1.00",
	}, "req-1")

	assert.True(t, domain.IsNotFound(err))
	assert.Zero(t, store.saveCount)
}

func TestService_ApplyDiscount(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store)

	created, err := svc.CreateOrder(context.Background(), createOrderRequest(), "req-1")
	require.NoError(t, err)
	orderID := uuid.MustParse(created.ID)

	resp, err := svc.ApplyDiscount(context.Background(), orderID, &ApplyDiscountRequest{Discount: "9.76"}, "req-2")
	require.NoError(t, err)

	assert.Equal(t, "63.18", resp.Amount)
	assert.Equal(t, "9.76", resp.Discount)
}

func TestService_MutationsOnCancelledOrder(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store)

	created, err := svc.CreateOrder(context.Background(), createOrderRequest(), "req-1")
	require.NoError(t, err)
	orderID := uuid.MustParse(created.ID)

	_, err = svc.Cancel(context.Background(), orderID, "req-2")
	require.NoError(t, err)

	savesBefore := store.saveCount

	_, err = svc.AddItem(context.Background(), orderID, &AddItemRequest{
		ProductID: uuid.NewString(), Quantity: 1, UnitPrice: "1.00",
	}, "req-3")
	assert.ErrorIs(t, err, domain.ErrOrderAddItemNonPending)

	_, err = svc.ApplyDiscount(context.Background(), orderID, &ApplyDiscountRequest{Discount: "1.00"}, "req-4")
	assert.ErrorIs(t, err, domain.ErrOrderApplyDiscountNonPending)

	// Guard failures never reach Save
	assert.Equal(t, savesBefore, store.saveCount)
}

func TestService_TransitionChain(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store)
	ctx := context.Background()

	created, err := svc.CreateOrder(ctx, createOrderRequest(), "req-1")
	require.NoError(t, err)
	orderID := uuid.MustParse(created.ID)

	_, err = svc.Prepare(ctx, orderID, "req-2")
	assert.ErrorIs(t, err, domain.ErrOrderPrepareNonReceived)

	resp, err := svc.Receive(ctx, orderID, "req-3")
	require.NoError(t, err)
	assert.Equal(t, "received", resp.Status)

	resp, err = svc.Prepare(ctx, orderID, "req-4")
	require.NoError(t, err)
	assert.Equal(t, "in_preparation", resp.Status)

	resp, err = svc.MarkReady(ctx, orderID, "req-5")
	require.NoError(t, err)
	assert.Equal(t, "ready", resp.Status)

	resp, err = svc.Deliver(ctx, orderID, "req-6")
	require.NoError(t, err)
	assert.Equal(t, "delivered", resp.Status)
}

func TestService_ReceiveStoresStatusEvent(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store)
	ctx := context.Background()

	created, err := svc.CreateOrder(ctx, createOrderRequest(), "req-1")
	require.NoError(t, err)
	orderID := uuid.MustParse(created.ID)

	_, err = svc.Receive(ctx, orderID, "req-2")
	require.NoError(t, err)

	var statusEvents []domain.OrderStatusChanged
	for _, e := range store.events {
		if sc, ok := e.(domain.OrderStatusChanged); ok {
			statusEvents = append(statusEvents, sc)
		}
	}
	require.Len(t, statusEvents, 1)
	assert.Equal(t, domain.StatusPending, statusEvents[0].OldStatus)
	assert.Equal(t, domain.StatusReceived, statusEvents[0].NewStatus)
}

func TestService_GetOrder_NotFound(t *testing.T) {
	svc := newTestService(newFakeStore())

	_, err := svc.GetOrder(context.Background(), uuid.New())
	assert.True(t, domain.IsNotFound(err))
}
