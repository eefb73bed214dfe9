package memory

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warehouse-ops/fulfillment-service/internal/domain"
)

func seedItem(t *testing.T, store *Store, tenantID, name string, qty int) *domain.InventoryItem {
	t.Helper()
	item, err := domain.NewInventoryItem(tenantID, name, qty, "")
	require.NoError(t, err)
	require.NoError(t, store.Inventory().Save(context.Background(), item))
	return item
}

func TestStore_TransactionCommits(t *testing.T) {
	store := NewStore()
	item := seedItem(t, store, "tenant-1", "Widget", 10)

	err := store.RunTransaction(context.Background(), func(ctx context.Context) error {
		loaded, err := store.Inventory().FindByProductID(ctx, "tenant-1", item.ProductID)
		require.NoError(t, err)
		require.NotNil(t, loaded)

		require.NoError(t, loaded.Adjust(-4, "test"))
		return store.Inventory().Update(ctx, loaded)
	})
	require.NoError(t, err)

	after, err := store.Inventory().FindByProductID(context.Background(), "tenant-1", item.ProductID)
	require.NoError(t, err)
	assert.Equal(t, 6, after.Quantity)
}

func TestStore_TransactionRollsBackOnError(t *testing.T) {
	store := NewStore()
	item := seedItem(t, store, "tenant-1", "Widget", 10)
	boom := errors.New("boom")

	err := store.RunTransaction(context.Background(), func(ctx context.Context) error {
		loaded, err := store.Inventory().FindByProductID(ctx, "tenant-1", item.ProductID)
		require.NoError(t, err)

		require.NoError(t, loaded.Adjust(-4, "test"))
		require.NoError(t, store.Inventory().Update(ctx, loaded))

		other, err := domain.NewInventoryItem("tenant-1", "Gadget", 5, "")
		require.NoError(t, err)
		require.NoError(t, store.Inventory().Save(ctx, other))

		return boom
	})
	assert.ErrorIs(t, err, boom)

	after, err := store.Inventory().FindByProductID(context.Background(), "tenant-1", item.ProductID)
	require.NoError(t, err)
	assert.Equal(t, 10, after.Quantity)

	gadget, err := store.Inventory().FindByName(context.Background(), "tenant-1", "Gadget")
	require.NoError(t, err)
	assert.Nil(t, gadget)
}

func TestStore_RollbackRestoresAuditTrail(t *testing.T) {
	store := NewStore()
	item := seedItem(t, store, "tenant-1", "Widget", 10)

	err := store.RunTransaction(context.Background(), func(ctx context.Context) error {
		entry, err := item.Restock(5, "admin@acme", "")
		require.NoError(t, err)
		require.NoError(t, store.Audits().SaveRestock(ctx, entry))
		return errors.New("abort")
	})
	require.Error(t, err)

	assert.Empty(t, store.RestockEntries())
}

func TestStore_FindReturnsDetachedCopies(t *testing.T) {
	store := NewStore()
	item := seedItem(t, store, "tenant-1", "Widget", 10)

	loaded, err := store.Inventory().FindByProductID(context.Background(), "tenant-1", item.ProductID)
	require.NoError(t, err)

	// mutation without Update must not leak into the store
	loaded.Quantity = 999

	again, err := store.Inventory().FindByProductID(context.Background(), "tenant-1", item.ProductID)
	require.NoError(t, err)
	assert.Equal(t, 10, again.Quantity)
}

func TestStore_TenantIsolation(t *testing.T) {
	store := NewStore()
	item := seedItem(t, store, "tenant-1", "Widget", 10)

	other, err := store.Inventory().FindByProductID(context.Background(), "tenant-2", item.ProductID)
	require.NoError(t, err)
	assert.Nil(t, other)

	list, err := store.Inventory().FindAll(context.Background(), "tenant-2", 50, 0)
	require.NoError(t, err)
	assert.Empty(t, list)
}
