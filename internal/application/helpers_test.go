package application

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/warehouse-ops/fulfillment-service/pkg/logging"
	"github.com/warehouse-ops/fulfillment-service/pkg/outbox"

	"github.com/warehouse-ops/fulfillment-service/internal/domain"
	"github.com/warehouse-ops/fulfillment-service/internal/infrastructure/memory"
)

const testTenant = "tenant-1"

// fakeOutbox collects outbox events in memory
type fakeOutbox struct {
	mu     sync.Mutex
	events []*outbox.OutboxEvent
}

func (f *fakeOutbox) Save(ctx context.Context, event *outbox.OutboxEvent) error {
	return f.SaveAll(ctx, []*outbox.OutboxEvent{event})
}

func (f *fakeOutbox) SaveAll(_ context.Context, events []*outbox.OutboxEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, events...)
	return nil
}

func (f *fakeOutbox) FindUnpublished(context.Context, int) ([]*outbox.OutboxEvent, error) {
	return nil, nil
}
func (f *fakeOutbox) MarkPublished(context.Context, string) error          { return nil }
func (f *fakeOutbox) IncrementRetry(context.Context, string, string) error { return nil }
func (f *fakeOutbox) DeletePublished(context.Context, int64) error         { return nil }
func (f *fakeOutbox) GetByID(context.Context, string) (*outbox.OutboxEvent, error) {
	return nil, nil
}
func (f *fakeOutbox) FindByAggregateID(context.Context, string) ([]*outbox.OutboxEvent, error) {
	return nil, nil
}

func (f *fakeOutbox) eventTypes() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	types := make([]string, len(f.events))
	for i, e := range f.events {
		types[i] = e.EventType
	}
	return types
}

// fakeNotifier records mirror notifications
type fakeNotifier struct {
	mu    sync.Mutex
	calls []mirrorUpdate
}

func (f *fakeNotifier) NotifyQuantity(_ context.Context, _ string, externalRef string, quantity int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, mirrorUpdate{externalRef: externalRef, quantity: quantity})
}

func (f *fakeNotifier) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

// fakeRenderer records rendered invoices
type fakeRenderer struct {
	mu       sync.Mutex
	invoices []*domain.Invoice
}

func (f *fakeRenderer) Render(_ context.Context, invoice *domain.Invoice) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.invoices = append(f.invoices, invoice)
}

func (f *fakeRenderer) renderCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.invoices)
}

type fixture struct {
	store    *memory.Store
	outbox   *fakeOutbox
	notifier *fakeNotifier
	renderer *fakeRenderer

	shipments *ShipmentService
	returns   *ReturnService
	inventory *InventoryService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	f := &fixture{
		store:    memory.NewStore(),
		outbox:   &fakeOutbox{},
		notifier: &fakeNotifier{},
		renderer: &fakeRenderer{},
	}
	logger := logging.New(logging.DefaultConfig("fulfillment-test"))
	f.shipments = NewShipmentService(f.store, f.outbox, f.notifier, logger, nil)
	f.returns = NewReturnService(f.store, f.outbox, f.notifier, f.renderer, logger, nil)
	f.inventory = NewInventoryService(f.store, f.outbox, f.notifier, logger, nil)
	return f
}

func (f *fixture) seedItem(t *testing.T, name string, qty int, externalRef string) *domain.InventoryItem {
	t.Helper()
	item, err := domain.NewInventoryItem(testTenant, name, qty, externalRef)
	require.NoError(t, err)
	require.NoError(t, f.store.Inventory().Save(context.Background(), item))
	return item
}

func (f *fixture) seedRequest(t *testing.T, productType string, lines ...domain.LineItem) *domain.ShipmentRequest {
	t.Helper()
	request := &domain.ShipmentRequest{
		RequestID:   "req-" + productType,
		TenantID:    testTenant,
		Status:      domain.ShipmentStatusPending,
		ProductType: productType,
		Shipments:   lines,
	}
	require.NoError(t, f.store.ShipmentRequests().Save(context.Background(), request))
	return request
}

func (f *fixture) seedReturn(t *testing.T, name string, requested int, services *domain.ReturnServices) *domain.ProductReturn {
	t.Helper()
	ret := &domain.ProductReturn{
		ReturnID:           "ret-1",
		TenantID:           testTenant,
		Status:             domain.ReturnStatusPending,
		ProductName:        name,
		RequestedQuantity:  requested,
		AdditionalServices: services,
	}
	require.NoError(t, f.store.Returns().Save(context.Background(), ret))
	return ret
}

func (f *fixture) itemQuantity(t *testing.T, productID string) int {
	t.Helper()
	item, err := f.store.Inventory().FindByProductID(context.Background(), testTenant, productID)
	require.NoError(t, err)
	require.NotNil(t, item)
	return item.Quantity
}
