package mongodb

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/warehouse-ops/fulfillment-service/internal/domain"
)

// findOne decodes a single document, mapping ErrNoDocuments to (nil, nil).
func findOne[T any](ctx context.Context, col *mongo.Collection, filter bson.M) (*T, error) {
	var doc T
	err := col.FindOne(ctx, filter).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find in %s: %w", col.Name(), err)
	}
	return &doc, nil
}

func findMany[T any](ctx context.Context, col *mongo.Collection, filter bson.M, opts ...*options.FindOptions) ([]*T, error) {
	cursor, err := col.Find(ctx, filter, opts...)
	if err != nil {
		return nil, fmt.Errorf("find in %s: %w", col.Name(), err)
	}
	defer cursor.Close(ctx)

	var docs []*T
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode from %s: %w", col.Name(), err)
	}
	return docs, nil
}

func pageOpts(sortKey string, limit, offset int) *options.FindOptions {
	return options.Find().
		SetSort(bson.D{{Key: sortKey, Value: 1}}).
		SetLimit(int64(limit)).
		SetSkip(int64(offset))
}

type inventoryRepo struct{ col *mongo.Collection }

func (r *inventoryRepo) Save(ctx context.Context, item *domain.InventoryItem) error {
	if _, err := r.col.InsertOne(ctx, item); err != nil {
		return fmt.Errorf("insert inventory item: %w", err)
	}
	return nil
}

func (r *inventoryRepo) Update(ctx context.Context, item *domain.InventoryItem) error {
	filter := bson.M{"tenantId": item.TenantID, "productId": item.ProductID}
	result, err := r.col.ReplaceOne(ctx, filter, item)
	if err != nil {
		return fmt.Errorf("update inventory item: %w", err)
	}
	if result.MatchedCount == 0 {
		return domain.ErrItemNotFound
	}
	return nil
}

func (r *inventoryRepo) FindByProductID(ctx context.Context, tenantID, productID string) (*domain.InventoryItem, error) {
	return findOne[domain.InventoryItem](ctx, r.col, bson.M{"tenantId": tenantID, "productId": productID})
}

func (r *inventoryRepo) FindByName(ctx context.Context, tenantID, productName string) (*domain.InventoryItem, error) {
	return findOne[domain.InventoryItem](ctx, r.col, bson.M{"tenantId": tenantID, "productName": productName})
}

func (r *inventoryRepo) FindAll(ctx context.Context, tenantID string, limit, offset int) ([]*domain.InventoryItem, error) {
	return findMany[domain.InventoryItem](ctx, r.col, bson.M{"tenantId": tenantID}, pageOpts("productId", limit, offset))
}

func (r *inventoryRepo) Count(ctx context.Context, tenantID string) (int64, error) {
	n, err := r.col.CountDocuments(ctx, bson.M{"tenantId": tenantID})
	if err != nil {
		return 0, fmt.Errorf("count inventory items: %w", err)
	}
	return n, nil
}

func (r *inventoryRepo) Delete(ctx context.Context, tenantID, productID string) error {
	if _, err := r.col.DeleteOne(ctx, bson.M{"tenantId": tenantID, "productId": productID}); err != nil {
		return fmt.Errorf("delete inventory item: %w", err)
	}
	return nil
}

type requestRepo struct{ col *mongo.Collection }

func (r *requestRepo) Save(ctx context.Context, request *domain.ShipmentRequest) error {
	if _, err := r.col.InsertOne(ctx, request); err != nil {
		return fmt.Errorf("insert shipment request: %w", err)
	}
	return nil
}

func (r *requestRepo) Update(ctx context.Context, request *domain.ShipmentRequest) error {
	filter := bson.M{"tenantId": request.TenantID, "requestId": request.RequestID}
	if _, err := r.col.ReplaceOne(ctx, filter, request); err != nil {
		return fmt.Errorf("update shipment request: %w", err)
	}
	return nil
}

func (r *requestRepo) FindByRequestID(ctx context.Context, tenantID, requestID string) (*domain.ShipmentRequest, error) {
	return findOne[domain.ShipmentRequest](ctx, r.col, bson.M{"tenantId": tenantID, "requestId": requestID})
}

func (r *requestRepo) FindByStatus(ctx context.Context, tenantID string, status domain.ShipmentStatus, limit, offset int) ([]*domain.ShipmentRequest, error) {
	filter := bson.M{"tenantId": tenantID, "status": status}
	return findMany[domain.ShipmentRequest](ctx, r.col, filter, pageOpts("requestId", limit, offset))
}

type returnRepo struct{ col *mongo.Collection }

func (r *returnRepo) Save(ctx context.Context, ret *domain.ProductReturn) error {
	if _, err := r.col.InsertOne(ctx, ret); err != nil {
		return fmt.Errorf("insert product return: %w", err)
	}
	return nil
}

func (r *returnRepo) Update(ctx context.Context, ret *domain.ProductReturn) error {
	filter := bson.M{"tenantId": ret.TenantID, "returnId": ret.ReturnID}
	if _, err := r.col.ReplaceOne(ctx, filter, ret); err != nil {
		return fmt.Errorf("update product return: %w", err)
	}
	return nil
}

func (r *returnRepo) FindByReturnID(ctx context.Context, tenantID, returnID string) (*domain.ProductReturn, error) {
	return findOne[domain.ProductReturn](ctx, r.col, bson.M{"tenantId": tenantID, "returnId": returnID})
}

func (r *returnRepo) FindByStatus(ctx context.Context, tenantID string, status domain.ReturnStatus, limit, offset int) ([]*domain.ProductReturn, error) {
	filter := bson.M{"tenantId": tenantID, "status": status}
	return findMany[domain.ProductReturn](ctx, r.col, filter, pageOpts("returnId", limit, offset))
}

type shippedRepo struct{ col *mongo.Collection }

func (r *shippedRepo) Save(ctx context.Context, record *domain.ShippedRecord) error {
	if _, err := r.col.InsertOne(ctx, record); err != nil {
		return fmt.Errorf("insert shipped record: %w", err)
	}
	return nil
}

func (r *shippedRepo) FindByRecordID(ctx context.Context, tenantID, recordID string) (*domain.ShippedRecord, error) {
	return findOne[domain.ShippedRecord](ctx, r.col, bson.M{"tenantId": tenantID, "recordId": recordID})
}

func (r *shippedRepo) FindBySource(ctx context.Context, tenantID, source, sourceID string) ([]*domain.ShippedRecord, error) {
	filter := bson.M{"tenantId": tenantID, "source": source, "sourceId": sourceID}
	return findMany[domain.ShippedRecord](ctx, r.col, filter, options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}}))
}

type invoiceRepo struct{ col *mongo.Collection }

func (r *invoiceRepo) Save(ctx context.Context, invoice *domain.Invoice) error {
	if _, err := r.col.InsertOne(ctx, invoice); err != nil {
		return fmt.Errorf("insert invoice: %w", err)
	}
	return nil
}

func (r *invoiceRepo) FindByInvoiceID(ctx context.Context, tenantID, invoiceID string) (*domain.Invoice, error) {
	return findOne[domain.Invoice](ctx, r.col, bson.M{"tenantId": tenantID, "invoiceId": invoiceID})
}

// auditRepo appends to the four append-only audit collections
type auditRepo struct {
	restocks *mongo.Collection
	edits    *mongo.Collection
	deletes  *mongo.Collection
	recycled *mongo.Collection
}

func (r *auditRepo) SaveRestock(ctx context.Context, entry *domain.RestockHistory) error {
	if _, err := r.restocks.InsertOne(ctx, entry); err != nil {
		return fmt.Errorf("insert restock history: %w", err)
	}
	return nil
}

func (r *auditRepo) SaveEditLog(ctx context.Context, entry *domain.EditLog) error {
	if _, err := r.edits.InsertOne(ctx, entry); err != nil {
		return fmt.Errorf("insert edit log: %w", err)
	}
	return nil
}

func (r *auditRepo) SaveDeleteLog(ctx context.Context, entry *domain.DeleteLog) error {
	if _, err := r.deletes.InsertOne(ctx, entry); err != nil {
		return fmt.Errorf("insert delete log: %w", err)
	}
	return nil
}

func (r *auditRepo) SaveRecycled(ctx context.Context, entry *domain.RecycledItem) error {
	if _, err := r.recycled.InsertOne(ctx, entry); err != nil {
		return fmt.Errorf("insert recycled snapshot: %w", err)
	}
	return nil
}
