package application

import (
	"errors"

	apperrors "github.com/warehouse-ops/fulfillment-service/pkg/errors"

	"github.com/warehouse-ops/fulfillment-service/internal/domain"
)

// mapDomainError converts domain errors to transport-level AppErrors.
// Unknown errors pass through for the middleware to classify.
func mapDomainError(err error) error {
	if err == nil {
		return nil
	}

	var stockErr *domain.InsufficientStockError
	if errors.As(err, &stockErr) {
		return apperrors.ErrInsufficientStock(stockErr.ProductID, stockErr.Requested, stockErr.Available)
	}

	switch {
	case errors.Is(err, domain.ErrItemNotFound):
		return apperrors.ErrReferenceNotFound("inventory item", "")
	case errors.Is(err, domain.ErrInvalidStatusTransition):
		return apperrors.ErrConflict(err.Error())
	case errors.Is(err, domain.ErrNothingReceived),
		errors.Is(err, domain.ErrShipExceedsReceived),
		errors.Is(err, domain.ErrInvalidQuantity),
		errors.Is(err, domain.ErrMissingReason),
		errors.Is(err, domain.ErrMissingOverrides),
		errors.Is(err, domain.ErrMissingAdminIdentity),
		errors.Is(err, domain.ErrUnknownRate):
		return apperrors.ErrValidation(err.Error())
	default:
		return err
	}
}

// notFound builds the reference-not-found error for a missing document.
func notFound(resource, id string) error {
	return apperrors.ErrReferenceNotFound(resource, id)
}
