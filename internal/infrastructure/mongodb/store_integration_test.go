package mongodb_test

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warehouse-ops/fulfillment-service/pkg/logging"
	mdb "github.com/warehouse-ops/fulfillment-service/pkg/mongodb"
	pkgtesting "github.com/warehouse-ops/fulfillment-service/pkg/testing"

	"github.com/warehouse-ops/fulfillment-service/internal/domain"
	"github.com/warehouse-ops/fulfillment-service/internal/infrastructure/mongodb"
)

const testDatabase = "fulfillment_test"

// setupStore connects to the instance named by MONGO_TEST_URI, or
// starts a throwaway container when the variable is unset. Tests are
// skipped when neither works so the suite stays runnable anywhere.
func setupStore(t *testing.T) (*mongodb.Store, func()) {
	t.Helper()

	uri := os.Getenv("MONGO_TEST_URI")
	var container *pkgtesting.MongoDBContainer
	if uri == "" {
		var err error
		container, err = pkgtesting.NewMongoDBContainer(context.Background())
		if err != nil {
			t.Skipf("MongoDB container unavailable: %v", err)
		}
		uri = container.URI
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	cfg := mdb.DefaultConfig()
	cfg.URI = uri
	cfg.Database = testDatabase
	cfg.ConnectTimeout = 3 * time.Second

	client, err := mdb.NewClient(ctx, cfg)
	if err != nil {
		if container != nil {
			_ = container.Close(context.Background())
		}
		t.Skipf("MongoDB not available at %s: %v", uri, err)
	}

	logger := logging.New(logging.DefaultConfig("fulfillment-test"))
	store, err := mongodb.NewStore(context.Background(), client, logger, nil)
	require.NoError(t, err)

	cleanup := func() {
		ctx := context.Background()
		_ = client.Database().Drop(ctx)
		_ = client.Close(ctx)
		if container != nil {
			_ = container.Close(ctx)
		}
	}
	return store, cleanup
}

func Test_InventoryRepository_SaveAndFind(t *testing.T) {
	store, cleanup := setupStore(t)
	defer cleanup()
	ctx := context.Background()

	item, err := domain.NewInventoryItem("TENANT-001", "Widget", 25, "ext-9")
	require.NoError(t, err)
	require.NoError(t, store.Inventory().Save(ctx, item))

	found, err := store.Inventory().FindByProductID(ctx, "TENANT-001", item.ProductID)
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, "Widget", found.ProductName)
	assert.Equal(t, 25, found.Quantity)
	assert.Equal(t, domain.ItemStatusInStock, found.Status)
	assert.Equal(t, "ext-9", found.ExternalRef)

	byName, err := store.Inventory().FindByName(ctx, "TENANT-001", "Widget")
	require.NoError(t, err)
	require.NotNil(t, byName)
	assert.Equal(t, item.ProductID, byName.ProductID)

	missing, err := store.Inventory().FindByProductID(ctx, "TENANT-001", "no-such-id")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func Test_InventoryRepository_UpdateAndDelete(t *testing.T) {
	store, cleanup := setupStore(t)
	defer cleanup()
	ctx := context.Background()

	item, err := domain.NewInventoryItem("TENANT-001", "Widget", 10, "")
	require.NoError(t, err)
	require.NoError(t, store.Inventory().Save(ctx, item))

	require.NoError(t, item.Adjust(-10, "confirm_shipment"))
	item.ClearDomainEvents()
	require.NoError(t, store.Inventory().Update(ctx, item))

	found, err := store.Inventory().FindByProductID(ctx, "TENANT-001", item.ProductID)
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, 0, found.Quantity)
	assert.Equal(t, domain.ItemStatusOutOfStock, found.Status)

	require.NoError(t, store.Inventory().Delete(ctx, "TENANT-001", item.ProductID))
	found, err = store.Inventory().FindByProductID(ctx, "TENANT-001", item.ProductID)
	require.NoError(t, err)
	assert.Nil(t, found)

	// updating a deleted item reports not found
	err = store.Inventory().Update(ctx, item)
	assert.ErrorIs(t, err, domain.ErrItemNotFound)
}

func Test_InventoryRepository_TenantIsolation(t *testing.T) {
	store, cleanup := setupStore(t)
	defer cleanup()
	ctx := context.Background()

	itemA, err := domain.NewInventoryItem("TENANT-A", "Widget", 5, "")
	require.NoError(t, err)
	itemB, err := domain.NewInventoryItem("TENANT-B", "Widget", 7, "")
	require.NoError(t, err)
	require.NoError(t, store.Inventory().Save(ctx, itemA))
	require.NoError(t, store.Inventory().Save(ctx, itemB))

	crossTenant, err := store.Inventory().FindByProductID(ctx, "TENANT-B", itemA.ProductID)
	require.NoError(t, err)
	assert.Nil(t, crossTenant)

	itemsA, err := store.Inventory().FindAll(ctx, "TENANT-A", 10, 0)
	require.NoError(t, err)
	assert.Len(t, itemsA, 1)
	assert.Equal(t, 5, itemsA[0].Quantity)
}

func Test_ShipmentRequestRepository_Lifecycle(t *testing.T) {
	store, cleanup := setupStore(t)
	defer cleanup()
	ctx := context.Background()

	request := &domain.ShipmentRequest{
		RequestID:   "REQ-001",
		TenantID:    "TENANT-001",
		Status:      domain.ShipmentStatusPending,
		ProductType: domain.ProductTypeStandard,
		Shipments: []domain.LineItem{
			{ProductID: "P-1", Quantity: 5, PackOf: 2},
		},
	}
	require.NoError(t, store.ShipmentRequests().Save(ctx, request))

	require.NoError(t, request.Confirm("admin@acme", "", nil, nil))
	request.ClearDomainEvents()
	require.NoError(t, store.ShipmentRequests().Update(ctx, request))

	found, err := store.ShipmentRequests().FindByRequestID(ctx, "TENANT-001", "REQ-001")
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, domain.ShipmentStatusConfirmed, found.Status)
	require.Len(t, found.Shipments, 1)
	assert.Equal(t, 2, found.Shipments[0].PackOf)

	confirmed, err := store.ShipmentRequests().FindByStatus(ctx, "TENANT-001", domain.ShipmentStatusConfirmed, 10, 0)
	require.NoError(t, err)
	assert.Len(t, confirmed, 1)
}

func Test_ProductReturnRepository_Lifecycle(t *testing.T) {
	store, cleanup := setupStore(t)
	defer cleanup()
	ctx := context.Background()

	ret := &domain.ProductReturn{
		ReturnID:          "RET-001",
		TenantID:          "TENANT-001",
		Status:            domain.ReturnStatusPending,
		ProductName:       "Widget",
		RequestedQuantity: 50,
	}
	require.NoError(t, store.Returns().Save(ctx, ret))

	require.NoError(t, ret.Approve("admin@acme"))
	require.NoError(t, ret.Receive(20, "ops@acme", ""))
	ret.ClearDomainEvents()
	require.NoError(t, store.Returns().Update(ctx, ret))

	found, err := store.Returns().FindByReturnID(ctx, "TENANT-001", "RET-001")
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, domain.ReturnStatusInProgress, found.Status)
	assert.Equal(t, 20, found.ReceivedQuantity)
	require.Len(t, found.ReceivingLog, 1)
	assert.Equal(t, 20, found.ReceivingLog[0].Quantity)
}

func Test_ShippedRecordRepository_FindBySource(t *testing.T) {
	store, cleanup := setupStore(t)
	defer cleanup()
	ctx := context.Background()

	record := domain.NewShippedRecord("TENANT-001", domain.ShippedSourceShipmentRequest, "REQ-001", []domain.ShippedItem{
		{ProductID: "P-1", ProductName: "Widget", BoxesShipped: 5, ShippedQty: 10, PackOf: 2, UnitPrice: 3.00, PackOfPrice: 1.00, LineTotal: 20.00},
	}, nil)
	require.NoError(t, store.ShippedRecords().Save(ctx, record))

	records, err := store.ShippedRecords().FindBySource(ctx, "TENANT-001", domain.ShippedSourceShipmentRequest, "REQ-001")
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, 10, records[0].TotalUnits)
	assert.InDelta(t, 20.00, records[0].GrandTotal, 1e-9)

	byID, err := store.ShippedRecords().FindByRecordID(ctx, "TENANT-001", record.RecordID)
	require.NoError(t, err)
	require.NotNil(t, byID)
}

func Test_AuditRepository_Append(t *testing.T) {
	store, cleanup := setupStore(t)
	defer cleanup()
	ctx := context.Background()

	item, err := domain.NewInventoryItem("TENANT-001", "Widget", 10, "")
	require.NoError(t, err)

	entry, err := item.Restock(5, "ops@acme", "container arrived")
	require.NoError(t, err)
	require.NoError(t, store.Audits().SaveRestock(ctx, entry))

	editLog, err := item.ApplyEdit("Widget v2", 12, "admin@acme")
	require.NoError(t, err)
	require.NoError(t, store.Audits().SaveEditLog(ctx, editLog))

	require.NoError(t, store.Audits().SaveRecycled(ctx, item.Snapshot("damaged", "admin@acme")))
}
