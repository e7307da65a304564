package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"techfood/internal/config"
)

// QRPaymentResult is what the external gateway hands back for a new
// payment: an opaque reference and a scannable QR payload. The gateway
// wire protocol beyond this pair is its own business.
type QRPaymentResult struct {
	ReferenceID string
	QRCodeData  string
}

// Gateway initiates payments with the external provider
type Gateway interface {
	CreateQRPayment(ctx context.Context, orderID uuid.UUID, amount decimal.Decimal) (*QRPaymentResult, error)
}

// HTTPGateway talks to the provider's QR payment endpoint
type HTTPGateway struct {
	baseURL  string
	apiToken string
	posID    string
	client   *http.Client
}

// NewHTTPGateway creates a gateway client from configuration
func NewHTTPGateway(cfg *config.Config) *HTTPGateway {
	return &HTTPGateway{
		baseURL:  cfg.Gateway.BaseURL,
		apiToken: cfg.Gateway.APIToken,
		posID:    cfg.Gateway.POSID,
		client:   &http.Client{Timeout: 15 * time.Second},
	}
}

type qrPaymentRequest struct {
	ExternalReference string `json:"external_reference"`
	POSID             string `json:"pos_id"`
	Amount            string `json:"amount"`
}

type qrPaymentResponse struct {
	ID         string `json:"id"`
	QRCodeData string `json:"qr_data"`
}

// CreateQRPayment registers the charge with the provider and returns
// its reference plus the QR code payload
func (g *HTTPGateway) CreateQRPayment(ctx context.Context, orderID uuid.UUID, amount decimal.Decimal) (*QRPaymentResult, error) {
	body, err := json.Marshal(qrPaymentRequest{
		ExternalReference: orderID.String(),
		POSID:             g.posID,
		Amount:            amount.StringFixed(2),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal gateway request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+"/qr-payments", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build gateway request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+g.apiToken)

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("gateway request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return nil, fmt.Errorf("gateway returned status %d", resp.StatusCode)
	}

	var result qrPaymentResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode gateway response: %w", err)
	}

	return &QRPaymentResult{
		ReferenceID: result.ID,
		QRCodeData:  result.QRCodeData,
	}, nil
}
