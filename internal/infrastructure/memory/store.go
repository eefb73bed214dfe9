// Package memory provides an in-memory domain.Store for tests and local
// development. Transactions take a snapshot of the whole state and
// restore it when the body returns an error, giving the same
// all-or-nothing semantics as the document store.
package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/warehouse-ops/fulfillment-service/internal/domain"
)

type txKey struct{}

// Store is the in-memory implementation of domain.Store
type Store struct {
	mu sync.Mutex

	inventory map[string]*domain.InventoryItem
	requests  map[string]*domain.ShipmentRequest
	returns   map[string]*domain.ProductReturn
	shipped   map[string]*domain.ShippedRecord
	invoices  map[string]*domain.Invoice

	restocks   []*domain.RestockHistory
	editLogs   []*domain.EditLog
	deleteLogs []*domain.DeleteLog
	recycled   []*domain.RecycledItem
}

// NewStore creates an empty in-memory store
func NewStore() *Store {
	return &Store{
		inventory: make(map[string]*domain.InventoryItem),
		requests:  make(map[string]*domain.ShipmentRequest),
		returns:   make(map[string]*domain.ProductReturn),
		shipped:   make(map[string]*domain.ShippedRecord),
		invoices:  make(map[string]*domain.Invoice),
	}
}

func (s *Store) Inventory() domain.InventoryRepository              { return &inventoryRepo{s} }
func (s *Store) ShipmentRequests() domain.ShipmentRequestRepository { return &requestRepo{s} }
func (s *Store) Returns() domain.ProductReturnRepository            { return &returnRepo{s} }
func (s *Store) ShippedRecords() domain.ShippedRecordRepository     { return &shippedRepo{s} }
func (s *Store) Invoices() domain.InvoiceRepository                 { return &invoiceRepo{s} }
func (s *Store) Audits() domain.AuditRepository                     { return &auditRepo{s} }

// RunTransaction executes fn under the store lock. On error every
// mutation made by fn is rolled back from the entry snapshot.
func (s *Store) RunTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := s.snapshot()
	if err := fn(context.WithValue(ctx, txKey{}, true)); err != nil {
		s.restore(snap)
		return err
	}
	return nil
}

// lock acquires the store mutex unless ctx already runs inside a
// transaction holding it.
func (s *Store) lock(ctx context.Context) func() {
	if ctx.Value(txKey{}) != nil {
		return func() {}
	}
	s.mu.Lock()
	return s.mu.Unlock
}

type state struct {
	inventory map[string]*domain.InventoryItem
	requests  map[string]*domain.ShipmentRequest
	returns   map[string]*domain.ProductReturn
	shipped   map[string]*domain.ShippedRecord
	invoices  map[string]*domain.Invoice

	restocks   []*domain.RestockHistory
	editLogs   []*domain.EditLog
	deleteLogs []*domain.DeleteLog
	recycled   []*domain.RecycledItem
}

func (s *Store) snapshot() state {
	snap := state{
		inventory: make(map[string]*domain.InventoryItem, len(s.inventory)),
		requests:  make(map[string]*domain.ShipmentRequest, len(s.requests)),
		returns:   make(map[string]*domain.ProductReturn, len(s.returns)),
		shipped:   make(map[string]*domain.ShippedRecord, len(s.shipped)),
		invoices:  make(map[string]*domain.Invoice, len(s.invoices)),
	}
	for k, v := range s.inventory {
		snap.inventory[k] = deepCopy(v)
	}
	for k, v := range s.requests {
		snap.requests[k] = deepCopy(v)
	}
	for k, v := range s.returns {
		snap.returns[k] = deepCopy(v)
	}
	for k, v := range s.shipped {
		snap.shipped[k] = deepCopy(v)
	}
	for k, v := range s.invoices {
		snap.invoices[k] = deepCopy(v)
	}
	snap.restocks = append(snap.restocks, s.restocks...)
	snap.editLogs = append(snap.editLogs, s.editLogs...)
	snap.deleteLogs = append(snap.deleteLogs, s.deleteLogs...)
	snap.recycled = append(snap.recycled, s.recycled...)
	return snap
}

func (s *Store) restore(snap state) {
	s.inventory = snap.inventory
	s.requests = snap.requests
	s.returns = snap.returns
	s.shipped = snap.shipped
	s.invoices = snap.invoices
	s.restocks = snap.restocks
	s.editLogs = snap.editLogs
	s.deleteLogs = snap.deleteLogs
	s.recycled = snap.recycled
}

// RestockEntries exposes the audit trail for tests
func (s *Store) RestockEntries() []*domain.RestockHistory {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*domain.RestockHistory(nil), s.restocks...)
}

// EditLogEntries exposes the audit trail for tests
func (s *Store) EditLogEntries() []*domain.EditLog {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*domain.EditLog(nil), s.editLogs...)
}

// DeleteLogEntries exposes the audit trail for tests
func (s *Store) DeleteLogEntries() []*domain.DeleteLog {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*domain.DeleteLog(nil), s.deleteLogs...)
}

// RecycledEntries exposes the audit trail for tests
func (s *Store) RecycledEntries() []*domain.RecycledItem {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*domain.RecycledItem(nil), s.recycled...)
}

func key(tenantID, id string) string {
	return tenantID + "/" + id
}

// deepCopy round-trips through JSON so stored documents never alias
// caller-held pointers. Unexported and bson-only fields are not carried,
// matching what a real document store would persist.
func deepCopy[T any](src *T) *T {
	raw, err := json.Marshal(src)
	if err != nil {
		panic(fmt.Sprintf("memory store copy failed: %v", err))
	}
	dst := new(T)
	if err := json.Unmarshal(raw, dst); err != nil {
		panic(fmt.Sprintf("memory store copy failed: %v", err))
	}
	return dst
}
