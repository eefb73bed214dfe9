package application

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/warehouse-ops/fulfillment-service/pkg/errors"

	"github.com/warehouse-ops/fulfillment-service/internal/domain"
)

func TestShipmentService_ConfirmHappyPath(t *testing.T) {
	f := newFixture(t)
	itemA := f.seedItem(t, "Widget", 20, "")
	request := f.seedRequest(t, domain.ProductTypeStandard,
		domain.LineItem{ProductID: itemA.ProductID, Quantity: 5, PackOf: 2},
	)

	result, err := f.shipments.Confirm(context.Background(), ConfirmShipmentCommand{
		TenantID:    testTenant,
		RequestID:   request.RequestID,
		ConfirmedBy: "admin@acme",
		Services:    &domain.AdditionalServices{BubbleWrapFeet: 4},
	})
	require.NoError(t, err)

	assert.Equal(t, string(domain.ShipmentStatusConfirmed), result.Request.Status)
	assert.Equal(t, "admin@acme", result.Request.ConfirmedBy)

	// 5 boxes of pack-of-2 consume 10 units
	assert.Equal(t, 10, f.itemQuantity(t, itemA.ProductID))

	rec := result.ShippedRecord
	assert.Equal(t, 5, rec.TotalBoxes)
	assert.Equal(t, 10, rec.TotalUnits)
	assert.Equal(t, 1, rec.TotalSkus)
	// rate table: standard qty 5 -> 3.00/1.00; line 16.00 + 4ft bubble wrap 3.00
	assert.InDelta(t, 19.00, rec.GrandTotal, 1e-9)

	// exactly one shipped record for the whole request
	records, err := f.store.ShippedRecords().FindBySource(context.Background(), testTenant, domain.ShippedSourceShipmentRequest, request.RequestID)
	require.NoError(t, err)
	require.Len(t, records, 1)

	assert.Contains(t, f.outbox.eventTypes(), "fulfillment.shipment.confirmed")
	assert.Contains(t, f.outbox.eventTypes(), "fulfillment.inventory.adjusted")
}

func TestShipmentService_ConfirmAbortsAtomically(t *testing.T) {
	// Scenario: A(qty 5, packOf 2, stock 20) and B(qty 1, packOf 1, stock 0)
	f := newFixture(t)
	itemA := f.seedItem(t, "Widget", 20, "")
	itemB := f.seedItem(t, "Gadget", 0, "")
	request := f.seedRequest(t, domain.ProductTypeStandard,
		domain.LineItem{ProductID: itemA.ProductID, Quantity: 5, PackOf: 2},
		domain.LineItem{ProductID: itemB.ProductID, Quantity: 1, PackOf: 1},
	)

	_, err := f.shipments.Confirm(context.Background(), ConfirmShipmentCommand{
		TenantID:    testTenant,
		RequestID:   request.RequestID,
		ConfirmedBy: "admin@acme",
	})
	require.Error(t, err)

	appErr, ok := apperrors.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.CodeInsufficientStock, appErr.Code)
	assert.Equal(t, itemB.ProductID, appErr.Details["productId"])

	// no partial decrement anywhere
	assert.Equal(t, 20, f.itemQuantity(t, itemA.ProductID))
	assert.Equal(t, 0, f.itemQuantity(t, itemB.ProductID))

	// request still pending, no shipped record, no events
	loaded, err := f.store.ShipmentRequests().FindByRequestID(context.Background(), testTenant, request.RequestID)
	require.NoError(t, err)
	assert.Equal(t, domain.ShipmentStatusPending, loaded.Status)
	assert.Empty(t, f.outbox.eventTypes())
}

func TestShipmentService_ConfirmMissingItemAborts(t *testing.T) {
	f := newFixture(t)
	itemA := f.seedItem(t, "Widget", 20, "")
	request := f.seedRequest(t, domain.ProductTypeStandard,
		domain.LineItem{ProductID: itemA.ProductID, Quantity: 1, PackOf: 1},
		domain.LineItem{ProductID: "missing", Quantity: 1, PackOf: 1},
	)

	_, err := f.shipments.Confirm(context.Background(), ConfirmShipmentCommand{
		TenantID:    testTenant,
		RequestID:   request.RequestID,
		ConfirmedBy: "admin@acme",
	})
	require.Error(t, err)

	appErr, ok := apperrors.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.CodeReferenceNotFound, appErr.Code)
	assert.Equal(t, 20, f.itemQuantity(t, itemA.ProductID))
}

func TestShipmentService_ConfirmCustomRequiresOverrides(t *testing.T) {
	f := newFixture(t)
	item := f.seedItem(t, "Widget", 100, "")
	request := f.seedRequest(t, domain.ProductTypeCustom,
		domain.LineItem{ProductID: item.ProductID, Quantity: 5, PackOf: 2},
	)

	_, err := f.shipments.Confirm(context.Background(), ConfirmShipmentCommand{
		TenantID:    testTenant,
		RequestID:   request.RequestID,
		ConfirmedBy: "admin@acme",
	})
	require.Error(t, err)
	appErr, ok := apperrors.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.CodeValidationError, appErr.Code)

	// with overrides, the override pack size drives the deduction
	result, err := f.shipments.Confirm(context.Background(), ConfirmShipmentCommand{
		TenantID:    testTenant,
		RequestID:   request.RequestID,
		ConfirmedBy: "admin@acme",
		Overrides:   &domain.ConfirmOverrides{UnitPrice: 4.00, PackOf: 3, PackOfPrice: 1.50},
	})
	require.NoError(t, err)
	assert.Equal(t, 15, result.ShippedRecord.TotalUnits)
	assert.Equal(t, 85, f.itemQuantity(t, item.ProductID))
	// 4.00*5 + 1.50*(3-1)
	assert.InDelta(t, 23.00, result.ShippedRecord.GrandTotal, 1e-9)
}

func TestShipmentService_ConfirmIsTerminal(t *testing.T) {
	f := newFixture(t)
	item := f.seedItem(t, "Widget", 20, "")
	request := f.seedRequest(t, domain.ProductTypeStandard,
		domain.LineItem{ProductID: item.ProductID, Quantity: 1, PackOf: 1},
	)

	_, err := f.shipments.Confirm(context.Background(), ConfirmShipmentCommand{
		TenantID: testTenant, RequestID: request.RequestID, ConfirmedBy: "admin@acme",
	})
	require.NoError(t, err)

	_, err = f.shipments.Confirm(context.Background(), ConfirmShipmentCommand{
		TenantID: testTenant, RequestID: request.RequestID, ConfirmedBy: "admin@acme",
	})
	require.Error(t, err)
	appErr, ok := apperrors.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.CodeConflict, appErr.Code)
	assert.Equal(t, 19, f.itemQuantity(t, item.ProductID))
}

func TestShipmentService_RejectPending(t *testing.T) {
	f := newFixture(t)
	item := f.seedItem(t, "Widget", 20, "")
	request := f.seedRequest(t, domain.ProductTypeStandard,
		domain.LineItem{ProductID: item.ProductID, Quantity: 5, PackOf: 2},
	)

	_, err := f.shipments.Reject(context.Background(), RejectShipmentCommand{
		TenantID: testTenant, RequestID: request.RequestID, RejectedBy: "admin@acme",
	})
	require.Error(t, err) // missing reason

	result, err := f.shipments.Reject(context.Background(), RejectShipmentCommand{
		TenantID: testTenant, RequestID: request.RequestID, RejectedBy: "admin@acme", Reason: "no capacity",
	})
	require.NoError(t, err)
	assert.Equal(t, string(domain.ShipmentStatusRejected), result.Status)
	assert.Equal(t, "no capacity", result.RejectionReason)
	assert.Equal(t, 20, f.itemQuantity(t, item.ProductID))
}

func TestShipmentService_ConfirmThenRejectConservesInventory(t *testing.T) {
	f := newFixture(t)
	itemA := f.seedItem(t, "Widget", 20, "")
	itemB := f.seedItem(t, "Gadget", 7, "")
	request := f.seedRequest(t, domain.ProductTypeStandard,
		domain.LineItem{ProductID: itemA.ProductID, Quantity: 5, PackOf: 2},
		domain.LineItem{ProductID: itemB.ProductID, Quantity: 3, PackOf: 1},
	)

	_, err := f.shipments.Confirm(context.Background(), ConfirmShipmentCommand{
		TenantID: testTenant, RequestID: request.RequestID, ConfirmedBy: "admin@acme",
	})
	require.NoError(t, err)
	assert.Equal(t, 10, f.itemQuantity(t, itemA.ProductID))
	assert.Equal(t, 4, f.itemQuantity(t, itemB.ProductID))

	_, err = f.shipments.Reject(context.Background(), RejectShipmentCommand{
		TenantID: testTenant, RequestID: request.RequestID, RejectedBy: "admin@acme", Reason: "customer withdrew",
	})
	require.NoError(t, err)

	// exact pre-confirmation quantities
	assert.Equal(t, 20, f.itemQuantity(t, itemA.ProductID))
	assert.Equal(t, 7, f.itemQuantity(t, itemB.ProductID))
}

func TestShipmentService_ConfirmNotifiesMirroredItems(t *testing.T) {
	f := newFixture(t)
	mirrored := f.seedItem(t, "Widget", 20, "ext-42")
	plain := f.seedItem(t, "Gadget", 20, "")
	request := f.seedRequest(t, domain.ProductTypeStandard,
		domain.LineItem{ProductID: mirrored.ProductID, Quantity: 2, PackOf: 1},
		domain.LineItem{ProductID: plain.ProductID, Quantity: 2, PackOf: 1},
	)

	_, err := f.shipments.Confirm(context.Background(), ConfirmShipmentCommand{
		TenantID: testTenant, RequestID: request.RequestID, ConfirmedBy: "admin@acme",
	})
	require.NoError(t, err)

	assert.Eventually(t, func() bool { return f.notifier.callCount() == 1 }, time.Second, 10*time.Millisecond)

	f.notifier.mu.Lock()
	defer f.notifier.mu.Unlock()
	assert.Equal(t, "ext-42", f.notifier.calls[0].externalRef)
	assert.Equal(t, 18, f.notifier.calls[0].quantity)
}

func TestShipmentService_GetNotFound(t *testing.T) {
	f := newFixture(t)
	_, err := f.shipments.Get(context.Background(), GetShipmentRequestQuery{TenantID: testTenant, RequestID: "nope"})
	require.Error(t, err)
	appErr, ok := apperrors.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.CodeReferenceNotFound, appErr.Code)
}
