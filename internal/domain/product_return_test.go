package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pendingReturn(requested int) *ProductReturn {
	return &ProductReturn{
		ReturnID:          "ret-1",
		TenantID:          "tenant-1",
		Status:            ReturnStatusPending,
		ProductName:       "Widget",
		RequestedQuantity: requested,
		RequestedAt:       time.Now().UTC(),
	}
}

func approvedReturn(requested int) *ProductReturn {
	ret := pendingReturn(requested)
	if err := ret.Approve("admin@acme"); err != nil {
		panic(err)
	}
	ret.ClearDomainEvents()
	return ret
}

func TestReturnStatus_CanTransitionTo(t *testing.T) {
	assert.True(t, ReturnStatusPending.CanTransitionTo(ReturnStatusApproved))
	assert.True(t, ReturnStatusPending.CanTransitionTo(ReturnStatusCancelled))
	assert.True(t, ReturnStatusApproved.CanTransitionTo(ReturnStatusInProgress))
	assert.True(t, ReturnStatusApproved.CanTransitionTo(ReturnStatusClosed))
	assert.True(t, ReturnStatusInProgress.CanTransitionTo(ReturnStatusClosed))
	assert.False(t, ReturnStatusPending.CanTransitionTo(ReturnStatusClosed))
	assert.False(t, ReturnStatusClosed.CanTransitionTo(ReturnStatusInProgress))
	assert.False(t, ReturnStatusCancelled.CanTransitionTo(ReturnStatusApproved))
}

func TestProductReturn_Approve(t *testing.T) {
	ret := pendingReturn(50)

	assert.ErrorIs(t, ret.Approve(""), ErrMissingAdminIdentity)

	require.NoError(t, ret.Approve("admin@acme"))
	assert.Equal(t, ReturnStatusApproved, ret.Status)
	assert.Equal(t, "admin@acme", ret.ApprovedBy)
	assert.NotNil(t, ret.ApprovedAt)
	assert.NotNil(t, ret.ReceivingLog)

	assert.ErrorIs(t, ret.Approve("admin@acme"), ErrInvalidStatusTransition)
}

func TestProductReturn_Cancel(t *testing.T) {
	ret := pendingReturn(50)

	assert.ErrorIs(t, ret.Cancel(""), ErrMissingReason)

	require.NoError(t, ret.Cancel("customer mistake"))
	assert.Equal(t, ReturnStatusCancelled, ret.Status)
	assert.Equal(t, "customer mistake", ret.CancelReason)

	// only pending returns may cancel
	approved := approvedReturn(50)
	assert.ErrorIs(t, approved.Cancel("too late"), ErrInvalidStatusTransition)
}

func TestProductReturn_Receive(t *testing.T) {
	ret := approvedReturn(50)

	require.NoError(t, ret.Receive(20, "ops@acme", "pallet 1"))
	assert.Equal(t, ReturnStatusInProgress, ret.Status)
	assert.Equal(t, 20, ret.ReceivedQuantity)
	require.Len(t, ret.ReceivingLog, 1)
	assert.Equal(t, "pallet 1", ret.ReceivingLog[0].Notes)

	require.NoError(t, ret.Receive(30, "ops@acme", ""))
	assert.Equal(t, 50, ret.ReceivedQuantity)
	assert.Equal(t, ReturnStatusInProgress, ret.Status)

	assert.ErrorIs(t, ret.Receive(0, "ops@acme", ""), ErrInvalidQuantity)
	assert.ErrorIs(t, ret.Receive(5, "", ""), ErrMissingAdminIdentity)

	pending := pendingReturn(10)
	assert.ErrorIs(t, pending.Receive(5, "ops@acme", ""), ErrInvalidStatusTransition)
}

func TestProductReturn_ReceiveAcceptsOverReceipt(t *testing.T) {
	ret := approvedReturn(10)
	require.NoError(t, ret.Receive(15, "ops@acme", "more than requested"))
	assert.Equal(t, 15, ret.ReceivedQuantity)
}

func TestProductReturn_Ship(t *testing.T) {
	ret := approvedReturn(50)
	require.NoError(t, ret.Receive(30, "ops@acme", ""))

	require.NoError(t, ret.Ship(ShippingEntry{Quantity: 10, ShippedBy: "ops@acme"}))
	assert.Equal(t, 10, ret.ShippedQuantity)
	assert.Equal(t, ReturnStatusInProgress, ret.Status)
	assert.Equal(t, 20, ret.RemainingUnshipped())

	// bound: shipped never exceeds received
	assert.ErrorIs(t, ret.Ship(ShippingEntry{Quantity: 21, ShippedBy: "ops@acme"}), ErrShipExceedsReceived)
	assert.Equal(t, 10, ret.ShippedQuantity)

	assert.ErrorIs(t, ret.Ship(ShippingEntry{Quantity: 0, ShippedBy: "ops@acme"}), ErrInvalidQuantity)
	assert.ErrorIs(t, ret.Ship(ShippingEntry{Quantity: 1}), ErrMissingAdminIdentity)
}

func TestProductReturn_ShipWithInvoiceDraft(t *testing.T) {
	ret := approvedReturn(50)
	require.NoError(t, ret.Receive(30, "ops@acme", ""))

	entry := ShippingEntry{
		Quantity:          10,
		ShippedBy:         "ops@acme",
		InvoiceID:         "inv-1",
		ShippingUnitPrice: 1.25,
		ShippingTotal:     12.50,
	}
	require.NoError(t, ret.Ship(entry))
	require.Len(t, ret.ShippingLog, 1)
	assert.Equal(t, "inv-1", ret.ShippingLog[0].InvoiceID)
	assert.InDelta(t, 12.50, ret.ShippingLog[0].ShippingTotal, 1e-9)
}

func TestProductReturn_CanClose(t *testing.T) {
	pending := pendingReturn(10)
	assert.ErrorIs(t, pending.CanClose(), ErrInvalidStatusTransition)

	approved := approvedReturn(10)
	assert.ErrorIs(t, approved.CanClose(), ErrNothingReceived)

	require.NoError(t, approved.Receive(5, "ops@acme", ""))
	assert.NoError(t, approved.CanClose())
}

func TestProductReturn_Close(t *testing.T) {
	ret := approvedReturn(50)
	require.NoError(t, ret.Receive(50, "ops@acme", ""))
	ret.ClearDomainEvents()

	pricing := ComputeReturnClosePricing(2.00, 50, 10, 0, 0, 0, false)
	require.NoError(t, ret.Close("admin@acme", pricing, "inv-9", 50))

	assert.Equal(t, ReturnStatusClosed, ret.Status)
	assert.Equal(t, "admin@acme", ret.ClosedBy)
	assert.Equal(t, "inv-9", ret.InvoiceID)
	require.NotNil(t, ret.Pricing)
	assert.InDelta(t, 110.00, ret.Pricing.Total, 1e-9)

	require.Len(t, ret.DomainEvents, 1)
	evt := ret.DomainEvents[0].(*ReturnClosedEvent)
	assert.Equal(t, 50, evt.CreditedQuantity)

	// replayed close is rejected, not double-applied
	assert.ErrorIs(t, ret.Close("admin@acme", pricing, "", 0), ErrInvalidStatusTransition)
}

func TestProductReturn_WantsShipToAddress(t *testing.T) {
	ret := approvedReturn(10)
	assert.False(t, ret.WantsShipToAddress())

	ret.AdditionalServices = &ReturnServices{Recipient: "Jo"}
	assert.False(t, ret.WantsShipToAddress())

	ret.AdditionalServices.ShipToAddress = "1 Warehouse Way"
	assert.True(t, ret.WantsShipToAddress())
}

func TestProductReturn_ShippedBoundHoldsAcrossOperations(t *testing.T) {
	ret := approvedReturn(100)
	ops := []struct {
		receive int
		ship    int
	}{
		{receive: 10, ship: 5},
		{receive: 20, ship: 25},
		{receive: 5, ship: 5},
	}

	for _, op := range ops {
		require.NoError(t, ret.Receive(op.receive, "ops@acme", ""))
		require.NoError(t, ret.Ship(ShippingEntry{Quantity: op.ship, ShippedBy: "ops@acme"}))
		assert.LessOrEqual(t, ret.ShippedQuantity, ret.ReceivedQuantity)
	}
	assert.Equal(t, 35, ret.ReceivedQuantity)
	assert.Equal(t, 35, ret.ShippedQuantity)
}
