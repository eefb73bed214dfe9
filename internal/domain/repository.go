package domain

import "context"

// InventoryRepository defines the interface for inventory persistence.
// Find methods return (nil, nil) when no document matches; callers map
// that to ErrItemNotFound.
type InventoryRepository interface {
	Save(ctx context.Context, item *InventoryItem) error
	Update(ctx context.Context, item *InventoryItem) error
	FindByProductID(ctx context.Context, tenantID, productID string) (*InventoryItem, error)
	FindByName(ctx context.Context, tenantID, productName string) (*InventoryItem, error)
	FindAll(ctx context.Context, tenantID string, limit, offset int) ([]*InventoryItem, error)
	Count(ctx context.Context, tenantID string) (int64, error)
	Delete(ctx context.Context, tenantID, productID string) error
}

// ShipmentRequestRepository persists shipment requests
type ShipmentRequestRepository interface {
	Save(ctx context.Context, request *ShipmentRequest) error
	Update(ctx context.Context, request *ShipmentRequest) error
	FindByRequestID(ctx context.Context, tenantID, requestID string) (*ShipmentRequest, error)
	FindByStatus(ctx context.Context, tenantID string, status ShipmentStatus, limit, offset int) ([]*ShipmentRequest, error)
}

// ProductReturnRepository persists product returns
type ProductReturnRepository interface {
	Save(ctx context.Context, ret *ProductReturn) error
	Update(ctx context.Context, ret *ProductReturn) error
	FindByReturnID(ctx context.Context, tenantID, returnID string) (*ProductReturn, error)
	FindByStatus(ctx context.Context, tenantID string, status ReturnStatus, limit, offset int) ([]*ProductReturn, error)
}

// ShippedRecordRepository persists shipped records
type ShippedRecordRepository interface {
	Save(ctx context.Context, record *ShippedRecord) error
	FindByRecordID(ctx context.Context, tenantID, recordID string) (*ShippedRecord, error)
	FindBySource(ctx context.Context, tenantID, source, sourceID string) ([]*ShippedRecord, error)
}

// InvoiceRepository persists invoices
type InvoiceRepository interface {
	Save(ctx context.Context, invoice *Invoice) error
	FindByInvoiceID(ctx context.Context, tenantID, invoiceID string) (*Invoice, error)
}

// AuditRepository appends audit evidence. Nothing reads it back except
// display queries outside this engine.
type AuditRepository interface {
	SaveRestock(ctx context.Context, entry *RestockHistory) error
	SaveEditLog(ctx context.Context, entry *EditLog) error
	SaveDeleteLog(ctx context.Context, entry *DeleteLog) error
	SaveRecycled(ctx context.Context, entry *RecycledItem) error
}

// Store is the transactional document store behind every workflow.
// RunTransaction executes fn atomically: every repository call made with
// the ctx passed to fn joins the same transaction, reads precede writes,
// and the whole body either fully commits or fully aborts.
type Store interface {
	Inventory() InventoryRepository
	ShipmentRequests() ShipmentRequestRepository
	Returns() ProductReturnRepository
	ShippedRecords() ShippedRecordRepository
	Invoices() InvoiceRepository
	Audits() AuditRepository

	RunTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}
