package application

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/warehouse-ops/fulfillment-service/pkg/logging"
	"github.com/warehouse-ops/fulfillment-service/pkg/metrics"
	"github.com/warehouse-ops/fulfillment-service/pkg/outbox"

	"github.com/warehouse-ops/fulfillment-service/internal/domain"
)

// InventoryService handles admin inventory operations. Every mutation
// appends its audit record in the same transaction.
type InventoryService struct {
	store      domain.Store
	outboxRepo outbox.Repository
	notifier   SyncNotifier
	logger     *logging.Logger
	metrics    *metrics.Metrics
}

// NewInventoryService creates an InventoryService
func NewInventoryService(store domain.Store, outboxRepo outbox.Repository, notifier SyncNotifier, logger *logging.Logger, m *metrics.Metrics) *InventoryService {
	return &InventoryService{
		store:      store,
		outboxRepo: outboxRepo,
		notifier:   notifier,
		logger:     logger.WithComponent("inventory-service"),
		metrics:    m,
	}
}

// Create adds a new inventory item for the tenant
func (s *InventoryService) Create(ctx context.Context, cmd CreateItemCommand) (*InventoryItemDTO, error) {
	item, err := domain.NewInventoryItem(cmd.TenantID, cmd.ProductName, cmd.Quantity, cmd.ExternalRef)
	if err != nil {
		return nil, mapDomainError(err)
	}

	if err := s.store.Inventory().Save(ctx, item); err != nil {
		s.logger.Error("Failed to create inventory item", "productName", cmd.ProductName, "error", err)
		return nil, fmt.Errorf("failed to create item: %w", err)
	}

	s.logger.Info("Inventory item created", "productId", item.ProductID, "tenantId", cmd.TenantID, "quantity", cmd.Quantity)
	return ToInventoryItemDTO(item), nil
}

// Edit applies an admin edit, writing the edit log in the same transaction
func (s *InventoryService) Edit(ctx context.Context, cmd EditItemCommand) (*InventoryItemDTO, error) {
	var (
		result  *InventoryItemDTO
		mirrors []mirrorUpdate
	)

	err := s.store.RunTransaction(ctx, func(txCtx context.Context) error {
		mirrors = mirrors[:0]

		item, err := s.store.Inventory().FindByProductID(txCtx, cmd.TenantID, cmd.ProductID)
		if err != nil {
			return fmt.Errorf("failed to read inventory item: %w", err)
		}
		if item == nil {
			return notFound("inventory item", cmd.ProductID)
		}

		editLog, err := item.ApplyEdit(cmd.ProductName, cmd.Quantity, cmd.EditedBy)
		if err != nil {
			return mapDomainError(err)
		}

		if err := s.store.Inventory().Update(txCtx, item); err != nil {
			return fmt.Errorf("failed to update inventory item: %w", err)
		}
		if err := s.store.Audits().SaveEditLog(txCtx, editLog); err != nil {
			return fmt.Errorf("failed to save edit log: %w", err)
		}
		if err := enqueueDomainEvents(txCtx, s.outboxRepo, cmd.TenantID, item.ProductID, "inventory_item", item.DomainEvents); err != nil {
			return err
		}
		if item.IsMirrored() {
			mirrors = append(mirrors, mirrorUpdate{externalRef: item.ExternalRef, quantity: item.Quantity})
		}
		item.ClearDomainEvents()

		result = ToInventoryItemDTO(item)
		return nil
	})
	if err != nil {
		s.logger.Error("Inventory edit failed", "productId", cmd.ProductID, "tenantId", cmd.TenantID, "error", err)
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.RecordStockAdjustment("admin_edit")
	}
	s.notifyMirrors(ctx, cmd.TenantID, mirrors)
	return result, nil
}

// Restock increments stock, writing the restock history in the same transaction
func (s *InventoryService) Restock(ctx context.Context, cmd RestockItemCommand) (*InventoryItemDTO, error) {
	var (
		result  *InventoryItemDTO
		mirrors []mirrorUpdate
	)

	err := s.store.RunTransaction(ctx, func(txCtx context.Context) error {
		mirrors = mirrors[:0]

		item, err := s.store.Inventory().FindByProductID(txCtx, cmd.TenantID, cmd.ProductID)
		if err != nil {
			return fmt.Errorf("failed to read inventory item: %w", err)
		}
		if item == nil {
			return notFound("inventory item", cmd.ProductID)
		}

		entry, err := item.Restock(cmd.Quantity, cmd.RestockedBy, cmd.Notes)
		if err != nil {
			return mapDomainError(err)
		}

		if err := s.store.Inventory().Update(txCtx, item); err != nil {
			return fmt.Errorf("failed to update inventory item: %w", err)
		}
		if err := s.store.Audits().SaveRestock(txCtx, entry); err != nil {
			return fmt.Errorf("failed to save restock history: %w", err)
		}
		if err := enqueueDomainEvents(txCtx, s.outboxRepo, cmd.TenantID, item.ProductID, "inventory_item", item.DomainEvents); err != nil {
			return err
		}
		if item.IsMirrored() {
			mirrors = append(mirrors, mirrorUpdate{externalRef: item.ExternalRef, quantity: item.Quantity})
		}
		item.ClearDomainEvents()

		result = ToInventoryItemDTO(item)
		return nil
	})
	if err != nil {
		s.logger.Error("Restock failed", "productId", cmd.ProductID, "tenantId", cmd.TenantID, "error", err)
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.RecordStockAdjustment("restock")
	}
	s.notifyMirrors(ctx, cmd.TenantID, mirrors)
	return result, nil
}

// Recycle snapshots the item and removes it from active inventory
func (s *InventoryService) Recycle(ctx context.Context, cmd RecycleItemCommand) error {
	err := s.store.RunTransaction(ctx, func(txCtx context.Context) error {
		item, err := s.store.Inventory().FindByProductID(txCtx, cmd.TenantID, cmd.ProductID)
		if err != nil {
			return fmt.Errorf("failed to read inventory item: %w", err)
		}
		if item == nil {
			return notFound("inventory item", cmd.ProductID)
		}

		snapshot := item.Snapshot(cmd.Reason, cmd.RecycledBy)
		if err := s.store.Audits().SaveRecycled(txCtx, snapshot); err != nil {
			return fmt.Errorf("failed to save recycled snapshot: %w", err)
		}
		if err := s.store.Inventory().Delete(txCtx, cmd.TenantID, cmd.ProductID); err != nil {
			return fmt.Errorf("failed to delete inventory item: %w", err)
		}

		return s.enqueueDeletion(txCtx, item, "recycle")
	})
	if err != nil {
		s.logger.Error("Recycle failed", "productId", cmd.ProductID, "tenantId", cmd.TenantID, "error", err)
		return err
	}

	if s.metrics != nil {
		s.metrics.RecordStockAdjustment("recycle")
	}
	s.logger.Info("Inventory item recycled", "productId", cmd.ProductID, "tenantId", cmd.TenantID, "reason", cmd.Reason)
	return nil
}

// Delete permanently removes an item, writing a delete log and snapshot
func (s *InventoryService) Delete(ctx context.Context, cmd DeleteItemCommand) error {
	err := s.store.RunTransaction(ctx, func(txCtx context.Context) error {
		item, err := s.store.Inventory().FindByProductID(txCtx, cmd.TenantID, cmd.ProductID)
		if err != nil {
			return fmt.Errorf("failed to read inventory item: %w", err)
		}
		if item == nil {
			return notFound("inventory item", cmd.ProductID)
		}

		deleteLog := &domain.DeleteLog{
			LogID:       uuid.NewString(),
			TenantID:    item.TenantID,
			ProductID:   item.ProductID,
			ProductName: item.ProductName,
			Quantity:    item.Quantity,
			Reason:      cmd.Reason,
			DeletedBy:   cmd.DeletedBy,
			DeletedAt:   time.Now().UTC(),
		}
		if err := s.store.Audits().SaveDeleteLog(txCtx, deleteLog); err != nil {
			return fmt.Errorf("failed to save delete log: %w", err)
		}
		if err := s.store.Inventory().Delete(txCtx, cmd.TenantID, cmd.ProductID); err != nil {
			return fmt.Errorf("failed to delete inventory item: %w", err)
		}

		return s.enqueueDeletion(txCtx, item, cmd.Reason)
	})
	if err != nil {
		s.logger.Error("Delete failed", "productId", cmd.ProductID, "tenantId", cmd.TenantID, "error", err)
		return err
	}

	if s.metrics != nil {
		s.metrics.RecordStockAdjustment("delete")
	}
	s.logger.Info("Inventory item deleted", "productId", cmd.ProductID, "tenantId", cmd.TenantID, "reason", cmd.Reason)
	return nil
}

// Get fetches one inventory item
func (s *InventoryService) Get(ctx context.Context, query GetItemQuery) (*InventoryItemDTO, error) {
	item, err := s.store.Inventory().FindByProductID(ctx, query.TenantID, query.ProductID)
	if err != nil {
		return nil, fmt.Errorf("failed to read inventory item: %w", err)
	}
	if item == nil {
		return nil, notFound("inventory item", query.ProductID)
	}
	return ToInventoryItemDTO(item), nil
}

// List pages through the tenant's inventory
func (s *InventoryService) List(ctx context.Context, query ListItemsQuery) ([]*InventoryItemDTO, int64, error) {
	limit := query.Limit
	if limit <= 0 || limit > 200 {
		limit = 50
	}

	items, err := s.store.Inventory().FindAll(ctx, query.TenantID, limit, query.Offset)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list inventory: %w", err)
	}
	total, err := s.store.Inventory().Count(ctx, query.TenantID)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count inventory: %w", err)
	}
	return ToInventoryItemDTOs(items), total, nil
}

func (s *InventoryService) enqueueDeletion(ctx context.Context, item *domain.InventoryItem, reason string) error {
	event := &domain.InventoryDeletedEvent{
		ProductID: item.ProductID,
		TenantID:  item.TenantID,
		Quantity:  item.Quantity,
		Reason:    reason,
		DeletedAt: item.UpdatedAt,
	}
	return enqueueDomainEvents(ctx, s.outboxRepo, item.TenantID, item.ProductID, "inventory_item", []domain.DomainEvent{event})
}

func (s *InventoryService) notifyMirrors(ctx context.Context, tenantID string, mirrors []mirrorUpdate) {
	if s.notifier == nil {
		return
	}
	for _, m := range mirrors {
		go s.notifier.NotifyQuantity(context.WithoutCancel(ctx), tenantID, m.externalRef, m.quantity)
	}
}
