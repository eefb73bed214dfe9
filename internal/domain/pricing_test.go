package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComputeLineTotal(t *testing.T) {
	// unitPrice*quantity + packOfPrice*(packOf-1)
	assert.InDelta(t, 16.00, ComputeLineTotal(3.00, 5, 1.00, 2), 1e-9)
	assert.InDelta(t, 15.00, ComputeLineTotal(3.00, 5, 1.00, 1), 1e-9)

	// packOf of zero never produces a negative surcharge
	assert.InDelta(t, 15.00, ComputeLineTotal(3.00, 5, 1.00, 0), 1e-9)

	assert.InDelta(t, 0.0, ComputeLineTotal(0, 0, 0, 0), 1e-9)
}

func TestLookupShipmentRate(t *testing.T) {
	unit, pack, err := LookupShipmentRate(ProductTypeStandard, 5)
	require.NoError(t, err)
	assert.InDelta(t, 3.00, unit, 1e-9)
	assert.InDelta(t, 1.00, pack, 1e-9)

	// tier boundaries are inclusive
	unit, _, err = LookupShipmentRate(ProductTypeStandard, 10)
	require.NoError(t, err)
	assert.InDelta(t, 3.00, unit, 1e-9)

	unit, _, err = LookupShipmentRate(ProductTypeStandard, 11)
	require.NoError(t, err)
	assert.InDelta(t, 2.50, unit, 1e-9)

	unit, _, err = LookupShipmentRate(ProductTypeStandard, 500)
	require.NoError(t, err)
	assert.InDelta(t, 2.00, unit, 1e-9)

	_, _, err = LookupShipmentRate(ProductTypeCustom, 5)
	assert.ErrorIs(t, err, ErrUnknownRate)

	_, _, err = LookupShipmentRate("nonsense", 5)
	assert.ErrorIs(t, err, ErrUnknownRate)
}

func TestComputeAdditionalServicesTotal(t *testing.T) {
	assert.InDelta(t, 0, ComputeAdditionalServicesTotal(nil), 1e-9)

	total := ComputeAdditionalServicesTotal(&AdditionalServices{
		BubbleWrapFeet:    4,
		StickerRemovalQty: 10,
		WarningLabelQty:   2,
	})
	// 4*0.75 + 10*0.20 + 2*0.25
	assert.InDelta(t, 5.50, total, 1e-9)
}

func TestResolveLinePricing(t *testing.T) {
	req := pendingRequest(ProductTypeStandard)
	unit, pack, err := ResolveLinePricing(req, req.Shipments[0])
	require.NoError(t, err)
	assert.InDelta(t, 3.00, unit, 1e-9)
	assert.InDelta(t, 1.00, pack, 1e-9)

	custom := pendingRequest(ProductTypeCustom)
	_, _, err = ResolveLinePricing(custom, custom.Shipments[0])
	assert.ErrorIs(t, err, ErrMissingOverrides)

	custom.Overrides = &ConfirmOverrides{UnitPrice: 4.50, PackOf: 3, PackOfPrice: 2.00}
	unit, pack, err = ResolveLinePricing(custom, custom.Shipments[0])
	require.NoError(t, err)
	assert.InDelta(t, 4.50, unit, 1e-9)
	assert.InDelta(t, 2.00, pack, 1e-9)
}

func TestComputeReturnClosePricing(t *testing.T) {
	// returnFee*received + packingFee, no shipping
	p := ComputeReturnClosePricing(2.00, 50, 10, 0, 0, 0, false)
	assert.InDelta(t, 110.00, p.Total, 1e-9)
	assert.InDelta(t, 0, p.ShippingFee, 1e-9)

	// ship-to-address adds remainder*shippingUnitPrice
	p = ComputeReturnClosePricing(2.00, 50, 10, 5, 40, 1.50, true)
	assert.InDelta(t, 60.00, p.ShippingFee, 1e-9)
	assert.InDelta(t, 175.00, p.Total, 1e-9)

	// ship-to-address with nothing left to ship adds no fee
	p = ComputeReturnClosePricing(2.00, 50, 10, 0, 0, 1.50, true)
	assert.InDelta(t, 0, p.ShippingFee, 1e-9)
	assert.InDelta(t, 110.00, p.Total, 1e-9)
}

func TestNewShippedRecordAggregatesLines(t *testing.T) {
	items := []ShippedItem{
		{ProductID: "prod-a", BoxesShipped: 5, ShippedQty: 10, PackOf: 2, UnitPrice: 3.00, PackOfPrice: 1.00, LineTotal: 16.00},
		{ProductID: "prod-b", BoxesShipped: 1, ShippedQty: 1, PackOf: 1, UnitPrice: 2.00, LineTotal: 2.00},
	}
	rec := NewShippedRecord("tenant-1", ShippedSourceShipmentRequest, "req-1", items, &AdditionalServices{BubbleWrapFeet: 4})

	assert.Equal(t, 6, rec.TotalBoxes)
	assert.Equal(t, 11, rec.TotalUnits)
	assert.Equal(t, 2, rec.TotalSkus)
	assert.InDelta(t, 3.00, rec.ServicesTotal, 1e-9)
	assert.InDelta(t, 21.00, rec.GrandTotal, 1e-9)
	assert.NotEmpty(t, rec.RecordID)
}

func TestNewInvoiceTotals(t *testing.T) {
	inv := NewInvoice("tenant-1", ShippedSourceProductReturn, "ret-1", "Jo Customer", []InvoiceLineItem{
		{Description: "Return handling", Quantity: 50, UnitPrice: 2.00, Amount: 100.00},
		{Description: "Packing", Quantity: 1, UnitPrice: 10.00, Amount: 10.00},
	})

	assert.InDelta(t, 110.00, inv.Subtotal, 1e-9)
	assert.InDelta(t, 110.00, inv.Total, 1e-9)
	assert.Equal(t, "USD", inv.Currency)
	assert.NotEmpty(t, inv.InvoiceNumber)
	assert.NotEmpty(t, inv.InvoiceID)
}
