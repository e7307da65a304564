package order

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"

	"techfood/internal/domain"
	"techfood/internal/logger"
)

// Handler handles HTTP requests for the order service
type Handler struct {
	service *Service
	logger  *logger.Logger
}

// NewHandler creates a new order handler
func NewHandler(service *Service, log *logger.Logger) *Handler {
	return &Handler{
		service: service,
		logger:  log,
	}
}

// SetupRoutes sets up the HTTP routes
func (h *Handler) SetupRoutes() *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /orders", h.withLogging(h.createOrder))
	mux.HandleFunc("GET /orders/{id}", h.withLogging(h.getOrder))
	mux.HandleFunc("POST /orders/{id}/items", h.withLogging(h.addItem))
	mux.HandleFunc("DELETE /orders/{id}/items/{itemId}", h.withLogging(h.removeItem))
	mux.HandleFunc("POST /orders/{id}/discount", h.withLogging(h.applyDiscount))
	mux.HandleFunc("POST /orders/{id}/cancel", h.withLogging(h.transition((*Service).Cancel)))
	mux.HandleFunc("POST /orders/{id}/prepare", h.withLogging(h.transition((*Service).Prepare)))
	mux.HandleFunc("POST /orders/{id}/ready", h.withLogging(h.transition((*Service).MarkReady)))
	mux.HandleFunc("POST /orders/{id}/deliver", h.withLogging(h.transition((*Service).Deliver)))
	mux.HandleFunc("GET /health", h.withLogging(h.healthCheck))

	return mux
}

func (h *Handler) createOrder(w http.ResponseWriter, r *http.Request) {
	requestID := requestIDFrom(r)

	var req CreateOrderRequest
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid JSON format", "", requestID)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 30*time.Second)
	defer cancel()

	resp, err := h.service.CreateOrder(ctx, &req, requestID)
	if err != nil {
		h.translateError(w, err, requestID)
		return
	}

	h.writeJSON(w, http.StatusCreated, resp)
}

func (h *Handler) getOrder(w http.ResponseWriter, r *http.Request) {
	requestID := requestIDFrom(r)

	orderID, ok := h.parseID(w, r, "id", requestID)
	if !ok {
		return
	}

	resp, err := h.service.GetOrder(r.Context(), orderID)
	if err != nil {
		h.translateError(w, err, requestID)
		return
	}

	h.writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) addItem(w http.ResponseWriter, r *http.Request) {
	requestID := requestIDFrom(r)

	orderID, ok := h.parseID(w, r, "id", requestID)
	if !ok {
		return
	}

	var req AddItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid JSON format", "", requestID)
		return
	}

	resp, err := h.service.AddItem(r.Context(), orderID, &req, requestID)
	if err != nil {
		h.translateError(w, err, requestID)
		return
	}

	h.writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) removeItem(w http.ResponseWriter, r *http.Request) {
	requestID := requestIDFrom(r)

	orderID, ok := h.parseID(w, r, "id", requestID)
	if !ok {
		return
	}
	itemID, ok := h.parseID(w, r, "itemId", requestID)
	if !ok {
		return
	}

	resp, err := h.service.RemoveItem(r.Context(), orderID, itemID, requestID)
	if err != nil {
		h.translateError(w, err, requestID)
		return
	}

	h.writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) applyDiscount(w http.ResponseWriter, r *http.Request) {
	requestID := requestIDFrom(r)

	orderID, ok := h.parseID(w, r, "id", requestID)
	if !ok {
		return
	}

	var req ApplyDiscountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid JSON format", "", requestID)
		return
	}

	resp, err := h.service.ApplyDiscount(r.Context(), orderID, &req, requestID)
	if err != nil {
		h.translateError(w, err, requestID)
		return
	}

	h.writeJSON(w, http.StatusOK, resp)
}

// transition adapts a status-transition command to an HTTP handler
func (h *Handler) transition(op func(*Service, context.Context, uuid.UUID, string) (*OrderResponse, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		requestID := requestIDFrom(r)

		orderID, ok := h.parseID(w, r, "id", requestID)
		if !ok {
			return
		}

		resp, err := op(h.service, r.Context(), orderID, requestID)
		if err != nil {
			h.translateError(w, err, requestID)
			return
		}

		h.writeJSON(w, http.StatusOK, resp)
	}
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
		"service":   "order-service",
	})
}

func (h *Handler) parseID(w http.ResponseWriter, r *http.Request, name, requestID string) (uuid.UUID, bool) {
	id, err := uuid.Parse(r.PathValue(name))
	if err != nil {
		h.writeError(w, http.StatusBadRequest, fmt.Sprintf("%s must be a valid UUID", name), "", requestID)
		return uuid.Nil, false
	}
	return id, true
}

// translateError maps the error taxonomy to HTTP: rule violations are
// unprocessable, unknown identifiers are not found, anything else is an
// internal failure with no detail leaked.
func (h *Handler) translateError(w http.ResponseWriter, err error, requestID string) {
	var domainErr *domain.Error
	if errors.As(err, &domainErr) {
		h.writeError(w, http.StatusUnprocessableEntity, domainErr.Message, domainErr.Code, requestID)
		return
	}

	var notFound *domain.NotFoundError
	if errors.As(err, &notFound) {
		h.writeError(w, http.StatusNotFound, notFound.Error(), "", requestID)
		return
	}

	var validationErr *ValidationError
	if errors.As(err, &validationErr) {
		h.writeError(w, http.StatusBadRequest, validationErr.Error(), "", requestID)
		return
	}

	h.logger.Error("request_failed", "Unhandled error", requestID, err, nil)
	h.writeError(w, http.StatusInternalServerError, "Internal server error", "", requestID)
}

func (h *Handler) writeJSON(w http.ResponseWriter, statusCode int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		h.logger.Error("response_encoding_failed", "Failed to encode response", "", err, nil)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, statusCode int, message, code, requestID string) {
	body := map[string]interface{}{
		"error":      message,
		"timestamp":  time.Now().UTC().Format(time.RFC3339),
		"request_id": requestID,
	}
	if code != "" {
		body["code"] = code
	}
	h.writeJSON(w, statusCode, body)
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

		h.logger.Debug("request_started",
			fmt.Sprintf("%s %s", r.Method, r.URL.Path),
			requestID,
			map[string]interface{}{
				"method":      r.Method,
				"path":        r.URL.Path,
				"remote_addr": r.RemoteAddr,
			})

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
