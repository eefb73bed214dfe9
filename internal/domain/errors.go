package domain

import (
	"errors"
	"fmt"
)

// Fulfillment domain errors
var (
	// ErrItemNotFound is returned when a referenced inventory item does not exist
	ErrItemNotFound = errors.New("inventory item not found")

	// ErrInsufficientStock is returned when a requested quantity exceeds available stock
	ErrInsufficientStock = errors.New("insufficient stock")

	// ErrInvalidQuantity is returned when a quantity is zero or negative
	ErrInvalidQuantity = errors.New("quantity must be a positive integer")

	// ErrInvalidStatusTransition is returned when a lifecycle transition is not allowed
	ErrInvalidStatusTransition = errors.New("invalid status transition")

	// ErrRequestNotPending is returned when confirming or rejecting a non-pending shipment request
	ErrRequestNotPending = errors.New("shipment request is not pending")

	// ErrRequestNotConfirmed is returned when restoring stock for a request that was never confirmed
	ErrRequestNotConfirmed = errors.New("shipment request is not confirmed")

	// ErrMissingReason is returned when a rejection or cancellation has no reason
	ErrMissingReason = errors.New("a non-empty reason is required")

	// ErrMissingOverrides is returned when a custom-type confirmation lacks positive admin overrides
	ErrMissingOverrides = errors.New("custom product type requires positive unit price, pack size, and pack price overrides")

	// ErrMissingAdminIdentity is returned when an admin action carries no actor identity
	ErrMissingAdminIdentity = errors.New("admin identity is required")

	// ErrShipExceedsReceived is returned when a partial shipment exceeds the unshipped balance
	ErrShipExceedsReceived = errors.New("ship quantity exceeds received but unshipped balance")

	// ErrNothingReceived is returned when closing a return that never received stock
	ErrNothingReceived = errors.New("cannot close a return with no received quantity")

	// ErrUnknownRate is returned when no rate tier covers the requested pricing lookup
	ErrUnknownRate = errors.New("no rate configured for product type and quantity")
)

// InsufficientStockError carries the offending product so callers can surface
// which line item caused the whole transaction to abort.
type InsufficientStockError struct {
	ProductID string
	Requested int
	Available int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for product %s: requested %d, available %d",
		e.ProductID, e.Requested, e.Available)
}

// Unwrap lets errors.Is(err, ErrInsufficientStock) match.
func (e *InsufficientStockError) Unwrap() error {
	return ErrInsufficientStock
}

// StatusTransitionError reports a disallowed lifecycle move.
type StatusTransitionError struct {
	Entity string
	From   string
	To     string
}

func (e *StatusTransitionError) Error() string {
	return fmt.Sprintf("%s cannot transition from %s to %s", e.Entity, e.From, e.To)
}

func (e *StatusTransitionError) Unwrap() error {
	return ErrInvalidStatusTransition
}
