package domain

import (
	"errors"
	"fmt"
)

// Error is a business-rule violation raised by an aggregate guard.
// Code is a stable resource key suitable for localization and API error
// payloads; it never changes once released.
type Error struct {
	Code    string
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

// Is matches two domain errors by code, so wrapped guard failures still
// compare against the package sentinels with errors.Is.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Code == e.Code
}

// Order guard failures
var (
	ErrOrderAddItemNonPending = &Error{
		Code:    "order.cannot_add_item_to_non_pending_status",
		Message: "cannot add item to non-pending order",
	}
	ErrOrderRemoveItemNonPending = &Error{
		Code:    "order.cannot_remove_item_to_non_pending_status",
		Message: "cannot remove item from non-pending order",
	}
	ErrOrderApplyDiscountNonPending = &Error{
		Code:    "order.cannot_apply_discount_to_non_pending_status",
		Message: "cannot apply discount to non-pending order",
	}
	ErrOrderCancelNonPending = &Error{
		Code:    "order.cannot_cancel_non_pending_status",
		Message: "cannot cancel non-pending order",
	}
	ErrOrderReceiveNonPending = &Error{
		Code:    "order.cannot_receive_to_non_pending_status",
		Message: "cannot receive non-pending order",
	}
	ErrOrderPrepareNonReceived = &Error{
		Code:    "order.cannot_prepare_to_non_received_status",
		Message: "cannot prepare non-received order",
	}
	ErrOrderReadyNonInPreparation = &Error{
		Code:    "order.cannot_ready_to_non_in_preparation_status",
		Message: "cannot mark ready a non-in-preparation order",
	}
	ErrOrderDeliverNonReady = &Error{
		Code:    "order.cannot_deliver_to_non_ready_status",
		Message: "cannot deliver non-ready order",
	}
	ErrOrderItemNotFound = &Error{
		Code:    "order.item_not_found",
		Message: "item does not belong to the order",
	}
	ErrOrderDiscountNegative = &Error{
		Code:    "order.discount_must_not_be_negative",
		Message: "discount must not be negative",
	}
	ErrOrderDiscountExceedsSubtotal = &Error{
		Code:    "order.discount_exceeds_subtotal",
		Message: "discount must not exceed the item subtotal",
	}
)

// OrderItem construction failures
var (
	ErrItemInvalidQuantity = &Error{
		Code:    "order_item.quantity_must_be_positive",
		Message: "item quantity must be a positive integer",
	}
	ErrItemNegativeUnitPrice = &Error{
		Code:    "order_item.unit_price_must_not_be_negative",
		Message: "item unit price must not be negative",
	}
)

// Payment guard failures
var (
	ErrPaymentAlreadyConfirmed = &Error{
		Code:    "payment.already_confirmed",
		Message: "payment is already confirmed",
	}
	ErrPaymentAlreadyFailed = &Error{
		Code:    "payment.already_failed",
		Message: "payment is already failed",
	}
	ErrPaymentNotPending = &Error{
		Code:    "payment.not_pending",
		Message: "payment is not pending",
	}
	ErrPaymentNegativeAmount = &Error{
		Code:    "payment.amount_must_not_be_negative",
		Message: "payment amount must not be negative",
	}
)

// NotFoundError reports that an aggregate identifier did not resolve.
// It is distinct from Error so callers can map it to a different
// external response than a business-rule violation.
type NotFoundError struct {
	Resource string
	ID       string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Resource, e.ID)
}

func (e *NotFoundError) Is(target error) bool {
	t, ok := target.(*NotFoundError)
	return ok && t.Resource == e.Resource && (t.ID == "" || t.ID == e.ID)
}

// NewOrderNotFound builds a not-found error for an order identifier
func NewOrderNotFound(id string) *NotFoundError {
	return &NotFoundError{Resource: "order", ID: id}
}

// NewPaymentNotFound builds a not-found error for a payment identifier
func NewPaymentNotFound(id string) *NotFoundError {
	return &NotFoundError{Resource: "payment", ID: id}
}

// IsDomainError reports whether err is a business-rule violation
func IsDomainError(err error) bool {
	var de *Error
	return errors.As(err, &de)
}

// IsNotFound reports whether err is an aggregate not-found failure
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}
