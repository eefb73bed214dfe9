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

func TestInventoryService_Create(t *testing.T) {
	f := newFixture(t)

	dto, err := f.inventory.Create(context.Background(), CreateItemCommand{
		TenantID:    testTenant,
		ProductName: "Widget",
		Quantity:    25,
		ExternalRef: "ext-7",
		CreatedBy:   "admin@acme",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, dto.ProductID)
	assert.Equal(t, 25, dto.Quantity)
	assert.Equal(t, string(domain.ItemStatusInStock), dto.Status)
	assert.Equal(t, "ext-7", dto.ExternalRef)

	_, err = f.inventory.Create(context.Background(), CreateItemCommand{
		TenantID: testTenant, ProductName: "Broken", Quantity: -1,
	})
	require.Error(t, err)
	appErr, ok := apperrors.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.CodeValidationError, appErr.Code)
}

func TestInventoryService_EditWritesAuditLog(t *testing.T) {
	f := newFixture(t)
	item := f.seedItem(t, "Widget", 10, "ext-7")

	dto, err := f.inventory.Edit(context.Background(), EditItemCommand{
		TenantID:    testTenant,
		ProductID:   item.ProductID,
		ProductName: "Widget v2",
		Quantity:    4,
		EditedBy:    "admin@acme",
	})
	require.NoError(t, err)
	assert.Equal(t, "Widget v2", dto.ProductName)
	assert.Equal(t, 4, dto.Quantity)

	entries := f.store.EditLogEntries()
	require.Len(t, entries, 1)
	assert.Equal(t, "Widget", entries[0].OldName)
	assert.Equal(t, "Widget v2", entries[0].NewName)
	assert.Equal(t, 10, entries[0].OldQuantity)
	assert.Equal(t, 4, entries[0].NewQuantity)
	assert.Equal(t, "admin@acme", entries[0].EditedBy)

	types := f.outbox.eventTypes()
	assert.Contains(t, types, "fulfillment.inventory.adjusted")
	assert.Contains(t, types, "fulfillment.inventory.sync")

	// mirrored item, so the quantity change is pushed out
	assert.Eventually(t, func() bool { return f.notifier.callCount() == 1 }, time.Second, 10*time.Millisecond)
	f.notifier.mu.Lock()
	defer f.notifier.mu.Unlock()
	assert.Equal(t, "ext-7", f.notifier.calls[0].externalRef)
	assert.Equal(t, 4, f.notifier.calls[0].quantity)
}

func TestInventoryService_EditToZeroGoesOutOfStock(t *testing.T) {
	f := newFixture(t)
	item := f.seedItem(t, "Widget", 10, "")

	dto, err := f.inventory.Edit(context.Background(), EditItemCommand{
		TenantID:    testTenant,
		ProductID:   item.ProductID,
		ProductName: "Widget",
		Quantity:    0,
		EditedBy:    "admin@acme",
	})
	require.NoError(t, err)
	assert.Equal(t, string(domain.ItemStatusOutOfStock), dto.Status)
}

func TestInventoryService_Restock(t *testing.T) {
	f := newFixture(t)
	item := f.seedItem(t, "Widget", 0, "")

	dto, err := f.inventory.Restock(context.Background(), RestockItemCommand{
		TenantID:    testTenant,
		ProductID:   item.ProductID,
		Quantity:    30,
		RestockedBy: "ops@acme",
		Notes:       "container arrived",
	})
	require.NoError(t, err)
	assert.Equal(t, 30, dto.Quantity)
	assert.Equal(t, string(domain.ItemStatusInStock), dto.Status)

	entries := f.store.RestockEntries()
	require.Len(t, entries, 1)
	assert.Equal(t, 30, entries[0].Quantity)
	assert.Equal(t, 30, entries[0].NewQuantity)
	assert.Equal(t, "container arrived", entries[0].Notes)

	_, err = f.inventory.Restock(context.Background(), RestockItemCommand{
		TenantID: testTenant, ProductID: item.ProductID, Quantity: 0, RestockedBy: "ops@acme",
	})
	require.Error(t, err)
	appErr, _ := apperrors.AsAppError(err)
	assert.Equal(t, apperrors.CodeValidationError, appErr.Code)
}

func TestInventoryService_RecycleRemovesItemKeepingSnapshot(t *testing.T) {
	f := newFixture(t)
	item := f.seedItem(t, "Widget", 12, "ext-7")

	err := f.inventory.Recycle(context.Background(), RecycleItemCommand{
		TenantID:   testTenant,
		ProductID:  item.ProductID,
		Reason:     "damaged batch",
		RecycledBy: "admin@acme",
	})
	require.NoError(t, err)

	_, err = f.inventory.Get(context.Background(), GetItemQuery{TenantID: testTenant, ProductID: item.ProductID})
	require.Error(t, err)
	appErr, _ := apperrors.AsAppError(err)
	assert.Equal(t, apperrors.CodeReferenceNotFound, appErr.Code)

	snapshots := f.store.RecycledEntries()
	require.Len(t, snapshots, 1)
	assert.Equal(t, "Widget", snapshots[0].ProductName)
	assert.Equal(t, 12, snapshots[0].Quantity)
	assert.Equal(t, "damaged batch", snapshots[0].Reason)
	assert.Equal(t, "ext-7", snapshots[0].ExternalRef)

	assert.Contains(t, f.outbox.eventTypes(), "fulfillment.inventory.deleted")
}

func TestInventoryService_DeleteWritesDeleteLog(t *testing.T) {
	f := newFixture(t)
	item := f.seedItem(t, "Widget", 5, "")

	err := f.inventory.Delete(context.Background(), DeleteItemCommand{
		TenantID:  testTenant,
		ProductID: item.ProductID,
		Reason:    "duplicate entry",
		DeletedBy: "admin@acme",
	})
	require.NoError(t, err)

	_, err = f.inventory.Get(context.Background(), GetItemQuery{TenantID: testTenant, ProductID: item.ProductID})
	require.Error(t, err)

	logs := f.store.DeleteLogEntries()
	require.Len(t, logs, 1)
	assert.NotEmpty(t, logs[0].LogID)
	assert.Equal(t, item.ProductID, logs[0].ProductID)
	assert.Equal(t, 5, logs[0].Quantity)
	assert.Equal(t, "duplicate entry", logs[0].Reason)
}

func TestInventoryService_DeleteMissingItem(t *testing.T) {
	f := newFixture(t)

	err := f.inventory.Delete(context.Background(), DeleteItemCommand{
		TenantID: testTenant, ProductID: "nope", Reason: "cleanup", DeletedBy: "admin@acme",
	})
	require.Error(t, err)
	appErr, ok := apperrors.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.CodeReferenceNotFound, appErr.Code)

	// aborted transaction leaves no audit evidence behind
	assert.Empty(t, f.store.DeleteLogEntries())
}

func TestInventoryService_List(t *testing.T) {
	f := newFixture(t)
	f.seedItem(t, "Widget A", 1, "")
	f.seedItem(t, "Widget B", 2, "")
	f.seedItem(t, "Widget C", 3, "")

	items, total, err := f.inventory.List(context.Background(), ListItemsQuery{TenantID: testTenant})
	require.NoError(t, err)
	assert.Len(t, items, 3)
	assert.Equal(t, int64(3), total)

	items, total, err = f.inventory.List(context.Background(), ListItemsQuery{TenantID: testTenant, Limit: 2})
	require.NoError(t, err)
	assert.Len(t, items, 2)
	assert.Equal(t, int64(3), total)

	items, _, err = f.inventory.List(context.Background(), ListItemsQuery{TenantID: testTenant, Limit: 2, Offset: 2})
	require.NoError(t, err)
	assert.Len(t, items, 1)

	items, total, err = f.inventory.List(context.Background(), ListItemsQuery{TenantID: "other-tenant"})
	require.NoError(t, err)
	assert.Empty(t, items)
	assert.Zero(t, total)
}
