package tracking

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"techfood/internal/logger"
)

const (
	statusCacheTTL  = 5 * time.Second
	historyCacheTTL = 30 * time.Second
)

// OrderStatusResponse is the current tracking state of an order
type OrderStatusResponse struct {
	OrderNumber   string    `json:"order_number"`
	CurrentStatus string    `json:"current_status"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// StatusHistoryEntry is one recorded status transition
type StatusHistoryEntry struct {
	Status    string    `json:"status"`
	ChangedAt time.Time `json:"changed_at"`
}

// WorkerStatusResponse is the reported state of a kitchen worker
type WorkerStatusResponse struct {
	WorkerName      string    `json:"worker_name"`
	Status          string    `json:"status"`
	OrdersProcessed int       `json:"orders_processed"`
	LastSeen        time.Time `json:"last_seen"`
}

// Store provides the tracking read queries
type Store interface {
	GetOrderStatus(ctx context.Context, orderNumber string) (*OrderStatusResponse, error)
	GetOrderHistory(ctx context.Context, orderNumber string) ([]StatusHistoryEntry, error)
	ListWorkers(ctx context.Context) ([]WorkerStatusResponse, error)
	Ping(ctx context.Context) error
}

// Service answers tracking queries through a short-lived Redis cache.
// Cache failures fall back to the database, they never fail a request.
type Service struct {
	store  Store
	cache  Cache
	logger *logger.Logger
}

// NewService creates a new tracking service
func NewService(store Store, cache Cache, log *logger.Logger) *Service {
	return &Service{
		store:  store,
		cache:  cache,
		logger: log,
	}
}

// GetOrderStatus retrieves the current status of an order
func (s *Service) GetOrderStatus(ctx context.Context, orderNumber, requestID string) (*OrderStatusResponse, error) {
	key := s.cache.GenerateKey("status", orderNumber)

	if cached := s.fromCache(ctx, key, requestID); cached != "" {
		var status OrderStatusResponse
		if err := json.Unmarshal([]byte(cached), &status); err == nil {
			return &status, nil
		}
	}

	status, err := s.store.GetOrderStatus(ctx, orderNumber)
	if err != nil {
		return nil, err
	}

	s.toCache(ctx, key, status, statusCacheTTL, requestID)
	return status, nil
}

// GetOrderHistory retrieves the complete status history of an order
func (s *Service) GetOrderHistory(ctx context.Context, orderNumber, requestID string) ([]StatusHistoryEntry, error) {
	key := s.cache.GenerateKey("history", orderNumber)

	if cached := s.fromCache(ctx, key, requestID); cached != "" {
		var history []StatusHistoryEntry
		if err := json.Unmarshal([]byte(cached), &history); err == nil {
			return history, nil
		}
	}

	history, err := s.store.GetOrderHistory(ctx, orderNumber)
	if err != nil {
		return nil, err
	}

	s.toCache(ctx, key, history, historyCacheTTL, requestID)
	return history, nil
}

// GetWorkerStatus retrieves the status of all registered workers.
// Workers whose heartbeat went stale are reported offline regardless
// of their stored status.
func (s *Service) GetWorkerStatus(ctx context.Context, requestID string) ([]WorkerStatusResponse, error) {
	workers, err := s.store.ListWorkers(ctx)
	if err != nil {
		s.logger.Error("db_query_failed", "Failed to query worker status", requestID, err, nil)
		return nil, fmt.Errorf("database error: %w", err)
	}

	heartbeatThreshold := 60 * time.Second
	for i := range workers {
		if workers[i].Status == "online" && time.Since(workers[i].LastSeen) > heartbeatThreshold {
			workers[i].Status = "offline"
		}
	}

	return workers, nil
}

// HealthCheck checks the health of dependencies
func (s *Service) HealthCheck(ctx context.Context) bool {
	if err := s.store.Ping(ctx); err != nil {
		s.logger.Error("health_check_failed", "Database ping failed", "", err, nil)
		return false
	}
	return true
}

func (s *Service) fromCache(ctx context.Context, key, requestID string) string {
	value, err := s.cache.Get(ctx, key)
	if err != nil {
		s.logger.Error("cache_read_failed", "Failed to read from cache", requestID, err, map[string]interface{}{
			"key": key,
		})
		return ""
	}
	return value
}

func (s *Service) toCache(ctx context.Context, key string, value interface{}, ttl time.Duration, requestID string) {
	data, err := json.Marshal(value)
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, key, string(data), ttl); err != nil {
		s.logger.Error("cache_write_failed", "Failed to write to cache", requestID, err, map[string]interface{}{
			"key": key,
		})
	}
}
