package order

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"techfood/internal/domain"
)

// ItemPayload is one line item in an order request
type ItemPayload struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
	UnitPrice string `json:"unit_price"`
}

// CreateOrderRequest represents the request to create a new order
type CreateOrderRequest struct {
	CustomerID string        `json:"customer_id"`
	Items      []ItemPayload `json:"items"`
}

// AddItemRequest represents the request to add an item to an order
type AddItemRequest struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
	UnitPrice string `json:"unit_price"`
}

// ApplyDiscountRequest represents the request to apply a discount
type ApplyDiscountRequest struct {
	Discount string `json:"discount"`
}

// ItemResponse is one line item in an order response
type ItemResponse struct {
	ID        string `json:"id"`
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
	UnitPrice string `json:"unit_price"`
	Subtotal  string `json:"subtotal"`
}

// OrderResponse represents an order in API responses
type OrderResponse struct {
	ID          string         `json:"id"`
	OrderNumber string         `json:"order_number"`
	CustomerID  string         `json:"customer_id"`
	Status      string         `json:"status"`
	Items       []ItemResponse `json:"items"`
	Discount    string         `json:"discount"`
	Amount      string         `json:"amount"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

// ValidationError reports a malformed request, mapped to 400 at the
// HTTP boundary
type ValidationError struct {
	msg string
}

func (e *ValidationError) Error() string {
	return e.msg
}

func validationErrorf(format string, args ...interface{}) *ValidationError {
	return &ValidationError{msg: fmt.Sprintf(format, args...)}
}

// Validate validates the create order request
func (req *CreateOrderRequest) Validate() error {
	if _, err := uuid.Parse(req.CustomerID); err != nil {
		return validationErrorf("customer_id must be a valid UUID")
	}
	if len(req.Items) == 0 {
		return validationErrorf("items array cannot be empty")
	}
	if len(req.Items) > 20 {
		return validationErrorf("items array cannot contain more than 20 items")
	}

	for i, item := range req.Items {
		if err := validateItemPayload(item, i); err != nil {
			return err
		}
	}

	return nil
}

// Validate validates the add item request
func (req *AddItemRequest) Validate() error {
	return validateItemPayload(ItemPayload(*req), 0)
}

func validateItemPayload(item ItemPayload, index int) error {
	prefix := fmt.Sprintf("items[%d]", index)

	if _, err := uuid.Parse(item.ProductID); err != nil {
		return validationErrorf("%s.product_id must be a valid UUID", prefix)
	}
	if item.Quantity < 1 {
		return validationErrorf("%s.quantity must be a positive integer", prefix)
	}

	price, err := decimal.NewFromString(item.UnitPrice)
	if err != nil {
		return validationErrorf("%s.unit_price must be a decimal number", prefix)
	}
	if price.IsNegative() {
		return validationErrorf("%s.unit_price must not be negative", prefix)
	}

	return nil
}

func toOrderResponse(o *domain.Order) *OrderResponse {
	items := make([]ItemResponse, 0, len(o.Items()))
	for _, item := range o.Items() {
		items = append(items, ItemResponse{
			ID:        item.ID().String(),
			ProductID: item.ProductID().String(),
			Quantity:  item.Quantity(),
			UnitPrice: item.UnitPrice().StringFixed(2),
			Subtotal:  item.Subtotal().StringFixed(2),
		})
	}

	return &OrderResponse{
		ID:          o.ID().String(),
		OrderNumber: o.Number(),
		CustomerID:  o.CustomerID().String(),
		Status:      string(o.Status()),
		Items:       items,
		Discount:    o.Discount().StringFixed(2),
		Amount:      o.Amount().StringFixed(2),
		CreatedAt:   o.CreatedAt(),
		UpdatedAt:   o.UpdatedAt(),
	}
}
