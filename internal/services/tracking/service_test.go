package tracking

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"techfood/internal/domain"
	"techfood/internal/logger"
)

type fakeStore struct {
	status      *OrderStatusResponse
	history     []StatusHistoryEntry
	workers     []WorkerStatusResponse
	statusCalls int
}

func (s *fakeStore) GetOrderStatus(ctx context.Context, orderNumber string) (*OrderStatusResponse, error) {
	s.statusCalls++
	if s.status == nil {
		return nil, domain.NewOrderNotFound(orderNumber)
	}
	return s.status, nil
}

func (s *fakeStore) GetOrderHistory(ctx context.Context, orderNumber string) ([]StatusHistoryEntry, error) {
	if s.history == nil {
		return nil, domain.NewOrderNotFound(orderNumber)
	}
	return s.history, nil
}

func (s *fakeStore) ListWorkers(ctx context.Context) ([]WorkerStatusResponse, error) {
	return s.workers, nil
}

func (s *fakeStore) Ping(ctx context.Context) error { return nil }

type fakeCache struct {
	values map[string]string
	err    error
}

func newFakeCache() *fakeCache {
	return &fakeCache{values: make(map[string]string)}
}

func (c *fakeCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	if c.err != nil {
		return c.err
	}
	c.values[key] = value.(string)
	return nil
}

func (c *fakeCache) Get(ctx context.Context, key string) (string, error) {
	if c.err != nil {
		return "", c.err
	}
	return c.values[key], nil
}

func (c *fakeCache) GenerateKey(operation, key string) string {
	return "tracking-service:" + operation + ":" + key
}

func newTestService(store Store, cache Cache) *Service {
	return NewService(store, cache, logger.New("tracking-service-test"))
}

func TestService_GetOrderStatus_CacheMissThenHit(t *testing.T) {
	store := &fakeStore{status: &OrderStatusResponse{
		OrderNumber:   "ORD_20260830_001",
		CurrentStatus: "in_preparation",
		UpdatedAt:     time.Now().UTC().Truncate(time.Second),
	}}
	cache := newFakeCache()
	svc := newTestService(store, cache)

	first, err := svc.GetOrderStatus(context.Background(), "ORD_20260830_001", "req-1")
	require.NoError(t, err)
	assert.Equal(t, "in_preparation", first.CurrentStatus)
	assert.Equal(t, 1, store.statusCalls)

	// Second read is served from the cache
	second, err := svc.GetOrderStatus(context.Background(), "ORD_20260830_001", "req-2")
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, 1, store.statusCalls)
}

func TestService_GetOrderStatus_NotFound(t *testing.T) {
	svc := newTestService(&fakeStore{}, newFakeCache())

	_, err := svc.GetOrderStatus(context.Background(), "ORD_20260830_999", "req-1")

	assert.True(t, domain.IsNotFound(err))
}

func TestService_GetOrderStatus_CacheFailureFallsBack(t *testing.T) {
	store := &fakeStore{status: &OrderStatusResponse{
		OrderNumber:   "ORD_20260830_001",
		CurrentStatus: "ready",
	}}
	cache := newFakeCache()
	cache.err = errors.New("connection refused")
	svc := newTestService(store, cache)

	status, err := svc.GetOrderStatus(context.Background(), "ORD_20260830_001", "req-1")

	require.NoError(t, err)
	assert.Equal(t, "ready", status.CurrentStatus)
	assert.Equal(t, 1, store.statusCalls)
}

func TestService_GetOrderHistory(t *testing.T) {
	store := &fakeStore{history: []StatusHistoryEntry{
		{Status: "pending", ChangedAt: time.Now().UTC().Add(-2 * time.Minute).Truncate(time.Second)},
		{Status: "received", ChangedAt: time.Now().UTC().Truncate(time.Second)},
	}}
	svc := newTestService(store, newFakeCache())

	history, err := svc.GetOrderHistory(context.Background(), "ORD_20260830_001", "req-1")

	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, "pending", history[0].Status)
	assert.Equal(t, "received", history[1].Status)
}

func TestService_GetWorkerStatus_StaleHeartbeatReportsOffline(t *testing.T) {
	store := &fakeStore{workers: []WorkerStatusResponse{
		{WorkerName: "chef_anna", Status: "online", LastSeen: time.Now().UTC()},
		{WorkerName: "chef_igor", Status: "online", LastSeen: time.Now().UTC().Add(-5 * time.Minute)},
	}}
	svc := newTestService(store, newFakeCache())

	workers, err := svc.GetWorkerStatus(context.Background(), "req-1")

	require.NoError(t, err)
	require.Len(t, workers, 2)
	assert.Equal(t, "online", workers[0].Status)
	assert.Equal(t, "offline", workers[1].Status)
}
