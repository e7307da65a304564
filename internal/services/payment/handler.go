package payment

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

// Handler handles HTTP requests for the payment service, including the
// gateway's asynchronous confirmation webhook
type Handler struct {
	service *Service
	logger  *logger.Logger
}

// NewHandler creates a new payment handler
func NewHandler(service *Service, log *logger.Logger) *Handler {
	return &Handler{
		service: service,
		logger:  log,
	}
}

// SetupRoutes sets up the HTTP routes
func (h *Handler) SetupRoutes() *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /payments", h.withLogging(h.initiatePayment))
	mux.HandleFunc("GET /payments/{id}", h.withLogging(h.getPayment))
	mux.HandleFunc("GET /orders/{orderId}/payments", h.withLogging(h.getOrderPayments))
	mux.HandleFunc("POST /payments/{id}/confirm", h.withLogging(h.confirmPayment))
	mux.HandleFunc("POST /payments/{id}/fail", h.withLogging(h.failPayment))

	return mux
}

func (h *Handler) initiatePayment(w http.ResponseWriter, r *http.Request) {
	requestID := logger.GenerateRequestID()

	var req InitiatePaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid JSON format", requestID)
		return
	}

	orderID, err := uuid.Parse(req.OrderID)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "order_id must be a valid UUID", requestID)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 30*time.Second)
	defer cancel()

	resp, err := h.service.InitiatePayment(ctx, orderID, requestID)
	if err != nil {
		h.translateError(w, err, requestID)
		return
	}

	h.writeJSON(w, http.StatusCreated, resp)
}

func (h *Handler) getPayment(w http.ResponseWriter, r *http.Request) {
	requestID := logger.GenerateRequestID()

	paymentID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "id must be a valid UUID", requestID)
		return
	}

	resp, err := h.service.GetPayment(r.Context(), paymentID)
	if err != nil {
		h.translateError(w, err, requestID)
		return
	}

	h.writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) getOrderPayments(w http.ResponseWriter, r *http.Request) {
	requestID := logger.GenerateRequestID()

	orderID, err := uuid.Parse(r.PathValue("orderId"))
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "orderId must be a valid UUID", requestID)
		return
	}

	resp, err := h.service.GetOrderPayments(r.Context(), orderID)
	if err != nil {
		h.translateError(w, err, requestID)
		return
	}

	h.writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) confirmPayment(w http.ResponseWriter, r *http.Request) {
	h.settle(w, r, h.service.ConfirmPayment)
}

func (h *Handler) failPayment(w http.ResponseWriter, r *http.Request) {
	h.settle(w, r, h.service.FailPayment)
}

func (h *Handler) settle(w http.ResponseWriter, r *http.Request, op func(context.Context, uuid.UUID, string) error) {
	requestID := logger.GenerateRequestID()

	paymentID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "id must be a valid UUID", requestID)
		return
	}

	if err := op(r.Context(), paymentID, requestID); err != nil {
		h.translateError(w, err, requestID)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]string{"status": "accepted"})
}

func (h *Handler) translateError(w http.ResponseWriter, err error, requestID string) {
	var domainErr *domain.Error
	if errors.As(err, &domainErr) {
		h.writeErrorWithCode(w, http.StatusUnprocessableEntity, domainErr.Message, domainErr.Code, requestID)
		return
	}

	var notFound *domain.NotFoundError
	if errors.As(err, &notFound) {
		h.writeError(w, http.StatusNotFound, notFound.Error(), requestID)
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
	h.writeErrorWithCode(w, statusCode, message, "", requestID)
}

func (h *Handler) writeErrorWithCode(w http.ResponseWriter, statusCode int, message, code, requestID string) {
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

// withLogging adds request logging middleware
func (h *Handler) withLogging(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		requestID := logger.GenerateRequestID()

		h.logger.Debug("request_started",
			fmt.Sprintf("%s %s", r.Method, r.URL.Path),
			requestID,
			map[string]interface{}{
				"method":      r.Method,
				"path":        r.URL.Path,
				"remote_addr": r.RemoteAddr,
			})

		next(w, r)

		h.logger.Debug("request_completed",
			fmt.Sprintf("%s %s", r.Method, r.URL.Path),
			requestID,
			map[string]interface{}{
				"method":      r.Method,
				"path":        r.URL.Path,
				"duration_ms": time.Since(start).Milliseconds(),
			})
	}
}
