package tracking

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"techfood/internal/domain"
	"techfood/internal/logger"
)

// Handler handles HTTP requests for the tracking service
type Handler struct {
	service *Service
	logger  *logger.Logger
}

// NewHandler creates a new tracking handler
func NewHandler(service *Service, log *logger.Logger) *Handler {
	return &Handler{
		service: service,
		logger:  log,
	}
}

// SetupRoutes sets up the HTTP routes
func (h *Handler) SetupRoutes() *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /orders/{number}/status", h.withLogging(h.getOrderStatus))
	mux.HandleFunc("GET /orders/{number}/history", h.withLogging(h.getOrderHistory))
	mux.HandleFunc("GET /workers/status", h.withLogging(h.getWorkerStatus))
	mux.HandleFunc("GET /health", h.withLogging(h.healthCheck))

	return mux
}

func (h *Handler) getOrderStatus(w http.ResponseWriter, r *http.Request) {
	requestID := requestIDFrom(r)

	orderNumber := r.PathValue("number")
	if orderNumber == "" {
		h.writeError(w, http.StatusBadRequest, "Invalid order number", requestID)
		return
	}

	status, err := h.service.GetOrderStatus(r.Context(), orderNumber, requestID)
	if err != nil {
		h.translateError(w, err, requestID)
		return
	}

	h.writeJSON(w, http.StatusOK, status)
}

func (h *Handler) getOrderHistory(w http.ResponseWriter, r *http.Request) {
	requestID := requestIDFrom(r)

	orderNumber := r.PathValue("number")
	if orderNumber == "" {
		h.writeError(w, http.StatusBadRequest, "Invalid order number", requestID)
		return
	}

	history, err := h.service.GetOrderHistory(r.Context(), orderNumber, requestID)
	if err != nil {
		h.translateError(w, err, requestID)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"order_number": orderNumber,
		"history":      history,
	})
}

func (h *Handler) getWorkerStatus(w http.ResponseWriter, r *http.Request) {
	requestID := requestIDFrom(r)

	workers, err := h.service.GetWorkerStatus(r.Context(), requestID)
	if err != nil {
		h.translateError(w, err, requestID)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"workers": workers,
	})
}

func (h *Handler) healthCheck(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	healthy := h.service.HealthCheck(ctx)

	status := http.StatusOK
	state := "ok"
	if !healthy {
		status = http.StatusServiceUnavailable
		state = "unhealthy"
	}

	h.writeJSON(w, status, map[string]interface{}{
		"status":    state,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"service":   "tracking-service",
	})
}

func (h *Handler) translateError(w http.ResponseWriter, err error, requestID string) {
	if domain.IsNotFound(err) {
		h.writeError(w, http.StatusNotFound, err.Error(), requestID)
		return
	}

	h.logger.Error("request_failed", "Unhandled error", requestID, err, nil)
	h.writeError(w, http.StatusInternalServerError, "Internal server error", requestID)
}

func (h *Handler) writeJSON(w http.ResponseWriter, statusCode int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		h.logger.Error("response_encoding_failed", "Failed to encode response", "", err, nil)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, statusCode int, message, requestID string) {
	h.writeJSON(w, statusCode, map[string]interface{}{
		"error":      message,
		"timestamp":  time.Now().UTC().Format(time.RFC3339),
		"request_id": requestID,
	})
}

type contextKey string

const requestIDKey contextKey = "request_id"

func requestIDFrom(r *http.Request) string {
	if id, ok := r.Context().Value(requestIDKey).(string); ok {
		return id
	}
	return logger.GenerateRequestID()
}

// withLogging adds request logging middleware
func (h *Handler) withLogging(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		requestID := logger.GenerateRequestID()

		r = r.WithContext(context.WithValue(r.Context(), requestIDKey, requestID))

		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next(rw, r)

		h.logger.Debug("request_completed",
			fmt.Sprintf("%s %s - %d", r.Method, r.URL.Path, rw.statusCode),
			requestID,
			map[string]interface{}{
				"method":      r.Method,
				"path":        r.URL.Path,
				"status_code": rw.statusCode,
				"duration_ms": time.Since(start).Milliseconds(),
			})
	}
}

// responseWriter wraps http.ResponseWriter to capture status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}
