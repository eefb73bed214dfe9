package memory

import (
	"context"
	"sort"

	"github.com/warehouse-ops/fulfillment-service/internal/domain"
)

type inventoryRepo struct{ s *Store }

func (r *inventoryRepo) Save(ctx context.Context, item *domain.InventoryItem) error {
	defer r.s.lock(ctx)()
	r.s.inventory[key(item.TenantID, item.ProductID)] = deepCopy(item)
	return nil
}

func (r *inventoryRepo) Update(ctx context.Context, item *domain.InventoryItem) error {
	return r.Save(ctx, item)
}

func (r *inventoryRepo) FindByProductID(ctx context.Context, tenantID, productID string) (*domain.InventoryItem, error) {
	defer r.s.lock(ctx)()
	item, ok := r.s.inventory[key(tenantID, productID)]
	if !ok {
		return nil, nil
	}
	return deepCopy(item), nil
}

func (r *inventoryRepo) FindByName(ctx context.Context, tenantID, productName string) (*domain.InventoryItem, error) {
	defer r.s.lock(ctx)()
	for _, item := range r.s.inventory {
		if item.TenantID == tenantID && item.ProductName == productName {
			return deepCopy(item), nil
		}
	}
	return nil, nil
}

func (r *inventoryRepo) FindAll(ctx context.Context, tenantID string, limit, offset int) ([]*domain.InventoryItem, error) {
	defer r.s.lock(ctx)()
	items := make([]*domain.InventoryItem, 0)
	for _, item := range r.s.inventory {
		if item.TenantID == tenantID {
			items = append(items, deepCopy(item))
		}
	}
	sort.Slice(items, func(i, j int) bool { return items[i].ProductID < items[j].ProductID })
	return page(items, limit, offset), nil
}

func (r *inventoryRepo) Count(ctx context.Context, tenantID string) (int64, error) {
	defer r.s.lock(ctx)()
	var n int64
	for _, item := range r.s.inventory {
		if item.TenantID == tenantID {
			n++
		}
	}
	return n, nil
}

func (r *inventoryRepo) Delete(ctx context.Context, tenantID, productID string) error {
	defer r.s.lock(ctx)()
	delete(r.s.inventory, key(tenantID, productID))
	return nil
}

type requestRepo struct{ s *Store }

func (r *requestRepo) Save(ctx context.Context, request *domain.ShipmentRequest) error {
	defer r.s.lock(ctx)()
	r.s.requests[key(request.TenantID, request.RequestID)] = deepCopy(request)
	return nil
}

func (r *requestRepo) Update(ctx context.Context, request *domain.ShipmentRequest) error {
	return r.Save(ctx, request)
}

func (r *requestRepo) FindByRequestID(ctx context.Context, tenantID, requestID string) (*domain.ShipmentRequest, error) {
	defer r.s.lock(ctx)()
	request, ok := r.s.requests[key(tenantID, requestID)]
	if !ok {
		return nil, nil
	}
	return deepCopy(request), nil
}

func (r *requestRepo) FindByStatus(ctx context.Context, tenantID string, status domain.ShipmentStatus, limit, offset int) ([]*domain.ShipmentRequest, error) {
	defer r.s.lock(ctx)()
	requests := make([]*domain.ShipmentRequest, 0)
	for _, request := range r.s.requests {
		if request.TenantID == tenantID && request.Status == status {
			requests = append(requests, deepCopy(request))
		}
	}
	sort.Slice(requests, func(i, j int) bool { return requests[i].RequestID < requests[j].RequestID })
	return page(requests, limit, offset), nil
}

type returnRepo struct{ s *Store }

func (r *returnRepo) Save(ctx context.Context, ret *domain.ProductReturn) error {
	defer r.s.lock(ctx)()
	r.s.returns[key(ret.TenantID, ret.ReturnID)] = deepCopy(ret)
	return nil
}

func (r *returnRepo) Update(ctx context.Context, ret *domain.ProductReturn) error {
	return r.Save(ctx, ret)
}

func (r *returnRepo) FindByReturnID(ctx context.Context, tenantID, returnID string) (*domain.ProductReturn, error) {
	defer r.s.lock(ctx)()
	ret, ok := r.s.returns[key(tenantID, returnID)]
	if !ok {
		return nil, nil
	}
	return deepCopy(ret), nil
}

func (r *returnRepo) FindByStatus(ctx context.Context, tenantID string, status domain.ReturnStatus, limit, offset int) ([]*domain.ProductReturn, error) {
	defer r.s.lock(ctx)()
	returns := make([]*domain.ProductReturn, 0)
	for _, ret := range r.s.returns {
		if ret.TenantID == tenantID && ret.Status == status {
			returns = append(returns, deepCopy(ret))
		}
	}
	sort.Slice(returns, func(i, j int) bool { return returns[i].ReturnID < returns[j].ReturnID })
	return page(returns, limit, offset), nil
}

type shippedRepo struct{ s *Store }

func (r *shippedRepo) Save(ctx context.Context, record *domain.ShippedRecord) error {
	defer r.s.lock(ctx)()
	r.s.shipped[key(record.TenantID, record.RecordID)] = deepCopy(record)
	return nil
}

func (r *shippedRepo) FindByRecordID(ctx context.Context, tenantID, recordID string) (*domain.ShippedRecord, error) {
	defer r.s.lock(ctx)()
	record, ok := r.s.shipped[key(tenantID, recordID)]
	if !ok {
		return nil, nil
	}
	return deepCopy(record), nil
}

func (r *shippedRepo) FindBySource(ctx context.Context, tenantID, source, sourceID string) ([]*domain.ShippedRecord, error) {
	defer r.s.lock(ctx)()
	records := make([]*domain.ShippedRecord, 0)
	for _, record := range r.s.shipped {
		if record.TenantID == tenantID && record.Source == source && record.SourceID == sourceID {
			records = append(records, deepCopy(record))
		}
	}
	sort.Slice(records, func(i, j int) bool { return records[i].RecordID < records[j].RecordID })
	return records, nil
}

type invoiceRepo struct{ s *Store }

func (r *invoiceRepo) Save(ctx context.Context, invoice *domain.Invoice) error {
	defer r.s.lock(ctx)()
	r.s.invoices[key(invoice.TenantID, invoice.InvoiceID)] = deepCopy(invoice)
	return nil
}

func (r *invoiceRepo) FindByInvoiceID(ctx context.Context, tenantID, invoiceID string) (*domain.Invoice, error) {
	defer r.s.lock(ctx)()
	invoice, ok := r.s.invoices[key(tenantID, invoiceID)]
	if !ok {
		return nil, nil
	}
	return deepCopy(invoice), nil
}

type auditRepo struct{ s *Store }

func (r *auditRepo) SaveRestock(ctx context.Context, entry *domain.RestockHistory) error {
	defer r.s.lock(ctx)()
	r.s.restocks = append(r.s.restocks, deepCopy(entry))
	return nil
}

func (r *auditRepo) SaveEditLog(ctx context.Context, entry *domain.EditLog) error {
	defer r.s.lock(ctx)()
	r.s.editLogs = append(r.s.editLogs, deepCopy(entry))
	return nil
}

func (r *auditRepo) SaveDeleteLog(ctx context.Context, entry *domain.DeleteLog) error {
	defer r.s.lock(ctx)()
	r.s.deleteLogs = append(r.s.deleteLogs, deepCopy(entry))
	return nil
}

func (r *auditRepo) SaveRecycled(ctx context.Context, entry *domain.RecycledItem) error {
	defer r.s.lock(ctx)()
	r.s.recycled = append(r.s.recycled, deepCopy(entry))
	return nil
}

func page[T any](items []T, limit, offset int) []T {
	if offset >= len(items) {
		return nil
	}
	items = items[offset:]
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}
