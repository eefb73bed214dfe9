package mongodb

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	apperrors "github.com/warehouse-ops/fulfillment-service/pkg/errors"
	"github.com/warehouse-ops/fulfillment-service/pkg/logging"
	"github.com/warehouse-ops/fulfillment-service/pkg/metrics"
	mdb "github.com/warehouse-ops/fulfillment-service/pkg/mongodb"
	"github.com/warehouse-ops/fulfillment-service/pkg/tracing"

	"github.com/warehouse-ops/fulfillment-service/internal/domain"
)

// Collection names
const (
	collInventory      = "inventory"
	collRequests       = "shipment_requests"
	collReturns        = "product_returns"
	collShipped        = "shipped_records"
	collInvoices       = "invoices"
	collRestockHistory = "restock_history"
	collEditLogs       = "edit_logs"
	collDeleteLogs     = "delete_logs"
	collRecycled       = "recycled_items"
)

// Store backs the fulfillment workflows with MongoDB. RunTransaction
// requires a replica set; every repository call made with the session
// context joins the multi-document transaction.
type Store struct {
	client  *mdb.Client
	db      *mongo.Database
	logger  *logging.Logger
	metrics *metrics.Metrics
	tracer  trace.Tracer

	inventory *inventoryRepo
	requests  *requestRepo
	returns   *returnRepo
	shipped   *shippedRepo
	invoices  *invoiceRepo
	audits    *auditRepo
}

// NewStore creates a Store and ensures its indexes
func NewStore(ctx context.Context, client *mdb.Client, logger *logging.Logger, m *metrics.Metrics) (*Store, error) {
	db := client.Database()
	s := &Store{
		client:  client,
		db:      db,
		logger:  logger.WithComponent("mongodb-store"),
		metrics: m,
		tracer:  otel.Tracer("mongodb-store"),

		inventory: &inventoryRepo{col: db.Collection(collInventory)},
		requests:  &requestRepo{col: db.Collection(collRequests)},
		returns:   &returnRepo{col: db.Collection(collReturns)},
		shipped:   &shippedRepo{col: db.Collection(collShipped)},
		invoices:  &invoiceRepo{col: db.Collection(collInvoices)},
		audits: &auditRepo{
			restocks: db.Collection(collRestockHistory),
			edits:    db.Collection(collEditLogs),
			deletes:  db.Collection(collDeleteLogs),
			recycled: db.Collection(collRecycled),
		},
	}

	if err := s.ensureIndexes(ctx); err != nil {
		return nil, fmt.Errorf("failed to ensure indexes: %w", err)
	}
	return s, nil
}

func (s *Store) Inventory() domain.InventoryRepository { return s.inventory }

func (s *Store) ShipmentRequests() domain.ShipmentRequestRepository { return s.requests }

func (s *Store) Returns() domain.ProductReturnRepository { return s.returns }

func (s *Store) ShippedRecords() domain.ShippedRecordRepository { return s.shipped }

func (s *Store) Invoices() domain.InvoiceRepository { return s.invoices }

func (s *Store) Audits() domain.AuditRepository { return s.audits }

// RunTransaction executes fn inside a multi-document transaction. The
// driver retries transient conflicts internally; a conflict that
// survives the driver's retry window surfaces as a retryable AppError.
func (s *Store) RunTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	err := tracing.TracedVoidOperation(ctx, s.tracer, "store.transaction", func(ctx context.Context) error {
		return s.client.WithTransaction(ctx, func(sessCtx mongo.SessionContext) error {
			return fn(sessCtx)
		})
	})
	if err == nil {
		return nil
	}

	if mdb.IsTransientTxnError(err) {
		if s.metrics != nil {
			s.metrics.RecordTransactionRetry("store")
		}
		s.logger.Warn("Transaction aborted on write conflict", "error", err)
		return apperrors.ErrTxnConflict(err)
	}
	return err
}

func (s *Store) ensureIndexes(ctx context.Context) error {
	specs := []struct {
		col     *mongo.Collection
		indexes []mongo.IndexModel
	}{
		{s.inventory.col, []mongo.IndexModel{
			{Keys: bson.D{{Key: "tenantId", Value: 1}, {Key: "productId", Value: 1}}, Options: options.Index().SetUnique(true)},
			{Keys: bson.D{{Key: "tenantId", Value: 1}, {Key: "productName", Value: 1}}},
			{Keys: bson.D{{Key: "tenantId", Value: 1}, {Key: "status", Value: 1}}},
		}},
		{s.requests.col, []mongo.IndexModel{
			{Keys: bson.D{{Key: "tenantId", Value: 1}, {Key: "requestId", Value: 1}}, Options: options.Index().SetUnique(true)},
			{Keys: bson.D{{Key: "tenantId", Value: 1}, {Key: "status", Value: 1}}},
		}},
		{s.returns.col, []mongo.IndexModel{
			{Keys: bson.D{{Key: "tenantId", Value: 1}, {Key: "returnId", Value: 1}}, Options: options.Index().SetUnique(true)},
			{Keys: bson.D{{Key: "tenantId", Value: 1}, {Key: "status", Value: 1}}},
		}},
		{s.shipped.col, []mongo.IndexModel{
			{Keys: bson.D{{Key: "tenantId", Value: 1}, {Key: "recordId", Value: 1}}, Options: options.Index().SetUnique(true)},
			{Keys: bson.D{{Key: "tenantId", Value: 1}, {Key: "source", Value: 1}, {Key: "sourceId", Value: 1}}},
		}},
		{s.invoices.col, []mongo.IndexModel{
			{Keys: bson.D{{Key: "tenantId", Value: 1}, {Key: "invoiceId", Value: 1}}, Options: options.Index().SetUnique(true)},
		}},
		{s.audits.restocks, []mongo.IndexModel{
			{Keys: bson.D{{Key: "tenantId", Value: 1}, {Key: "productId", Value: 1}}},
		}},
		{s.audits.edits, []mongo.IndexModel{
			{Keys: bson.D{{Key: "tenantId", Value: 1}, {Key: "productId", Value: 1}}},
		}},
		{s.audits.deletes, []mongo.IndexModel{
			{Keys: bson.D{{Key: "tenantId", Value: 1}, {Key: "productId", Value: 1}}},
		}},
		{s.audits.recycled, []mongo.IndexModel{
			{Keys: bson.D{{Key: "tenantId", Value: 1}, {Key: "productId", Value: 1}}},
		}},
	}

	for _, spec := range specs {
		if _, err := spec.col.Indexes().CreateMany(ctx, spec.indexes); err != nil {
			return fmt.Errorf("collection %s: %w", spec.col.Name(), err)
		}
	}
	return nil
}
