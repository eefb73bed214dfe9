package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewInventoryItem(t *testing.T) {
	item, err := NewInventoryItem("tenant-1", "Widget", 10, "")
	require.NoError(t, err)
	assert.NotEmpty(t, item.ProductID)
	assert.Equal(t, "tenant-1", item.TenantID)
	assert.Equal(t, 10, item.Quantity)
	assert.Equal(t, ItemStatusInStock, item.Status)
	assert.False(t, item.IsMirrored())

	empty, err := NewInventoryItem("tenant-1", "Gadget", 0, "ext-99")
	require.NoError(t, err)
	assert.Equal(t, ItemStatusOutOfStock, empty.Status)
	assert.True(t, empty.IsMirrored())

	_, err = NewInventoryItem("tenant-1", "Bad", -1, "")
	assert.ErrorIs(t, err, ErrInvalidQuantity)
}

func TestInventoryItem_Adjust(t *testing.T) {
	item, err := NewInventoryItem("tenant-1", "Widget", 10, "")
	require.NoError(t, err)

	require.NoError(t, item.Adjust(-4, "confirm_shipment"))
	assert.Equal(t, 6, item.Quantity)
	assert.Equal(t, ItemStatusInStock, item.Status)

	require.NoError(t, item.Adjust(-6, "confirm_shipment"))
	assert.Equal(t, 0, item.Quantity)
	assert.Equal(t, ItemStatusOutOfStock, item.Status)

	require.NoError(t, item.Adjust(3, "restock"))
	assert.Equal(t, ItemStatusInStock, item.Status)

	require.Len(t, item.DomainEvents, 3)
	adj, ok := item.DomainEvents[0].(*InventoryAdjustedEvent)
	require.True(t, ok)
	assert.Equal(t, 10, adj.OldQuantity)
	assert.Equal(t, 6, adj.NewQuantity)
	assert.Equal(t, "confirm_shipment", adj.Reason)
}

func TestInventoryItem_AdjustNeverGoesNegative(t *testing.T) {
	item, err := NewInventoryItem("tenant-1", "Widget", 5, "")
	require.NoError(t, err)

	err = item.Adjust(-6, "confirm_shipment")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInsufficientStock)

	var stockErr *InsufficientStockError
	require.ErrorAs(t, err, &stockErr)
	assert.Equal(t, item.ProductID, stockErr.ProductID)
	assert.Equal(t, 6, stockErr.Requested)
	assert.Equal(t, 5, stockErr.Available)

	// rejected adjustment must not mutate
	assert.Equal(t, 5, item.Quantity)
	assert.Equal(t, ItemStatusInStock, item.Status)
	assert.Empty(t, item.DomainEvents)
}

func TestInventoryItem_MirroredAdjustEmitsSyncEvent(t *testing.T) {
	item, err := NewInventoryItem("tenant-1", "Widget", 10, "ext-42")
	require.NoError(t, err)

	require.NoError(t, item.Adjust(-3, "confirm_shipment"))
	require.Len(t, item.DomainEvents, 2)

	sync, ok := item.DomainEvents[1].(*InventorySyncEvent)
	require.True(t, ok)
	assert.Equal(t, "ext-42", sync.ExternalRef)
	assert.Equal(t, 7, sync.Quantity)
}

func TestInventoryItem_Restock(t *testing.T) {
	item, err := NewInventoryItem("tenant-1", "Widget", 2, "")
	require.NoError(t, err)

	entry, err := item.Restock(8, "admin@acme", "weekly replenishment")
	require.NoError(t, err)
	assert.Equal(t, 10, item.Quantity)
	assert.Equal(t, 8, entry.Quantity)
	assert.Equal(t, 10, entry.NewQuantity)
	assert.Equal(t, "admin@acme", entry.RestockedBy)

	_, err = item.Restock(0, "admin@acme", "")
	assert.ErrorIs(t, err, ErrInvalidQuantity)
}

func TestInventoryItem_ApplyEdit(t *testing.T) {
	item, err := NewInventoryItem("tenant-1", "Widget", 10, "")
	require.NoError(t, err)

	log, err := item.ApplyEdit("Widget Mk2", 0, "admin@acme")
	require.NoError(t, err)
	assert.Equal(t, "Widget", log.OldName)
	assert.Equal(t, "Widget Mk2", log.NewName)
	assert.Equal(t, 10, log.OldQuantity)
	assert.Equal(t, 0, log.NewQuantity)
	assert.Equal(t, ItemStatusOutOfStock, item.Status)

	_, err = item.ApplyEdit("Widget Mk2", -1, "admin@acme")
	assert.ErrorIs(t, err, ErrInvalidQuantity)
}

func TestInventoryItem_Snapshot(t *testing.T) {
	item, err := NewInventoryItem("tenant-1", "Widget", 7, "ext-1")
	require.NoError(t, err)

	snap := item.Snapshot("obsolete", "admin@acme")
	assert.Equal(t, item.ProductID, snap.ProductID)
	assert.Equal(t, 7, snap.Quantity)
	assert.Equal(t, ItemStatusInStock, snap.Status)
	assert.Equal(t, "ext-1", snap.ExternalRef)
	assert.Equal(t, "obsolete", snap.Reason)
}
