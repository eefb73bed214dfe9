package application

import (
	"context"
	"fmt"

	"github.com/warehouse-ops/fulfillment-service/pkg/logging"
	"github.com/warehouse-ops/fulfillment-service/pkg/metrics"
	"github.com/warehouse-ops/fulfillment-service/pkg/outbox"

	"github.com/warehouse-ops/fulfillment-service/internal/domain"
)

// mirrorUpdate captures a post-commit notification for the external mirror
type mirrorUpdate struct {
	externalRef string
	quantity    int
}

// ShipmentService drives the shipment-request confirmation workflow.
// Every confirm or reject is exactly one store transaction.
type ShipmentService struct {
	store      domain.Store
	outboxRepo outbox.Repository
	notifier   SyncNotifier
	logger     *logging.Logger
	metrics    *metrics.Metrics
}

// NewShipmentService creates a ShipmentService
func NewShipmentService(store domain.Store, outboxRepo outbox.Repository, notifier SyncNotifier, logger *logging.Logger, m *metrics.Metrics) *ShipmentService {
	return &ShipmentService{
		store:      store,
		outboxRepo: outboxRepo,
		notifier:   notifier,
		logger:     logger.WithComponent("shipment-service"),
		metrics:    m,
	}
}

// Confirm executes a confirmation as a single transaction with two
// strict phases: read every referenced item and verify stock, then
// decrement inventory, mark the request confirmed, and create exactly
// one shipped record. Any insufficient line aborts the whole
// transaction with no partial decrement.
func (s *ShipmentService) Confirm(ctx context.Context, cmd ConfirmShipmentCommand) (*ConfirmShipmentResultDTO, error) {
	var (
		result  ConfirmShipmentResultDTO
		mirrors []mirrorUpdate
	)

	err := s.store.RunTransaction(ctx, func(txCtx context.Context) error {
		mirrors = mirrors[:0]

		request, err := s.store.ShipmentRequests().FindByRequestID(txCtx, cmd.TenantID, cmd.RequestID)
		if err != nil {
			return fmt.Errorf("failed to load shipment request: %w", err)
		}
		if request == nil {
			return notFound("shipment request", cmd.RequestID)
		}

		if err := request.ValidateForConfirm(cmd.ConfirmedBy, cmd.Overrides); err != nil {
			return mapDomainError(err)
		}
		if request.IsCustom() {
			request.Overrides = cmd.Overrides
		}

		// Read phase: every item, every sufficiency check, before any write.
		items := make([]*domain.InventoryItem, len(request.Shipments))
		units := make([]int, len(request.Shipments))
		for i, line := range request.Shipments {
			item, err := s.store.Inventory().FindByProductID(txCtx, cmd.TenantID, line.ProductID)
			if err != nil {
				return fmt.Errorf("failed to read inventory item: %w", err)
			}
			if item == nil {
				return notFound("inventory item", line.ProductID)
			}

			need := request.TotalUnits(line)
			if !item.HasStock(need) {
				return mapDomainError(&domain.InsufficientStockError{
					ProductID: line.ProductID,
					Requested: need,
					Available: item.Quantity,
				})
			}
			items[i] = item
			units[i] = need
		}

		// Price every line before mutating anything.
		shippedItems := make([]domain.ShippedItem, len(request.Shipments))
		for i, line := range request.Shipments {
			unitPrice, packOfPrice, err := domain.ResolveLinePricing(request, line)
			if err != nil {
				return mapDomainError(err)
			}
			packOf := request.EffectivePackOf(line)
			shippedItems[i] = domain.ShippedItem{
				ProductID:    line.ProductID,
				ProductName:  items[i].ProductName,
				BoxesShipped: line.Quantity,
				ShippedQty:   units[i],
				PackOf:       packOf,
				UnitPrice:    unitPrice,
				PackOfPrice:  packOfPrice,
				RemainingQty: items[i].Quantity - units[i],
				LineTotal:    domain.ComputeLineTotal(unitPrice, line.Quantity, packOfPrice, packOf),
			}
		}

		// Write phase.
		for i, item := range items {
			if err := item.Adjust(-units[i], "confirm_shipment"); err != nil {
				return mapDomainError(err)
			}
			if err := s.store.Inventory().Update(txCtx, item); err != nil {
				return fmt.Errorf("failed to update inventory item: %w", err)
			}
			if err := enqueueDomainEvents(txCtx, s.outboxRepo, cmd.TenantID, item.ProductID, "inventory_item", item.DomainEvents); err != nil {
				return err
			}
			if item.IsMirrored() {
				mirrors = append(mirrors, mirrorUpdate{externalRef: item.ExternalRef, quantity: item.Quantity})
			}
			item.ClearDomainEvents()
		}

		if err := request.Confirm(cmd.ConfirmedBy, cmd.AdminRemarks, cmd.Services, cmd.Overrides); err != nil {
			return mapDomainError(err)
		}

		record := domain.NewShippedRecord(cmd.TenantID, domain.ShippedSourceShipmentRequest, request.RequestID, shippedItems, cmd.Services)
		if err := s.store.ShippedRecords().Save(txCtx, record); err != nil {
			return fmt.Errorf("failed to save shipped record: %w", err)
		}

		request.AddDomainEvent(&domain.ShipmentConfirmedEvent{
			RequestID:       request.RequestID,
			TenantID:        cmd.TenantID,
			ShippedRecordID: record.RecordID,
			TotalUnits:      record.TotalUnits,
			GrandTotal:      record.GrandTotal,
			ConfirmedBy:     cmd.ConfirmedBy,
			ConfirmedAt:     *request.ConfirmedAt,
		})
		if err := s.store.ShipmentRequests().Update(txCtx, request); err != nil {
			return fmt.Errorf("failed to update shipment request: %w", err)
		}
		if err := enqueueDomainEvents(txCtx, s.outboxRepo, cmd.TenantID, request.RequestID, "shipment_request", request.DomainEvents); err != nil {
			return err
		}
		request.ClearDomainEvents()

		result = ConfirmShipmentResultDTO{
			Request:       ToShipmentRequestDTO(request),
			ShippedRecord: ToShippedRecordDTO(record),
		}
		return nil
	})
	if err != nil {
		s.logger.Error("Shipment confirmation failed", "requestId", cmd.RequestID, "tenantId", cmd.TenantID, "error", err)
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.RecordShipmentConfirmed()
	}
	s.logger.Info("Shipment request confirmed",
		"requestId", cmd.RequestID,
		"tenantId", cmd.TenantID,
		"confirmedBy", cmd.ConfirmedBy,
		"totalUnits", result.ShippedRecord.TotalUnits,
	)

	s.notifyMirrors(ctx, cmd.TenantID, mirrors)
	return &result, nil
}

// Reject moves a request to rejected. For an already-confirmed request
// it first restores every line's deducted units in the same transaction,
// so confirm-then-reject leaves inventory exactly where it started.
func (s *ShipmentService) Reject(ctx context.Context, cmd RejectShipmentCommand) (*ShipmentRequestDTO, error) {
	if cmd.Reason == "" {
		return nil, mapDomainError(domain.ErrMissingReason)
	}

	var (
		result   *ShipmentRequestDTO
		restored bool
		mirrors  []mirrorUpdate
	)

	err := s.store.RunTransaction(ctx, func(txCtx context.Context) error {
		mirrors = mirrors[:0]

		request, err := s.store.ShipmentRequests().FindByRequestID(txCtx, cmd.TenantID, cmd.RequestID)
		if err != nil {
			return fmt.Errorf("failed to load shipment request: %w", err)
		}
		if request == nil {
			return notFound("shipment request", cmd.RequestID)
		}

		restored = request.Status == domain.ShipmentStatusConfirmed
		if restored {
			for _, line := range request.Shipments {
				item, err := s.store.Inventory().FindByProductID(txCtx, cmd.TenantID, line.ProductID)
				if err != nil {
					return fmt.Errorf("failed to read inventory item: %w", err)
				}
				if item == nil {
					return notFound("inventory item", line.ProductID)
				}
				if err := item.Adjust(request.TotalUnits(line), "reject_restore"); err != nil {
					return mapDomainError(err)
				}
				if err := s.store.Inventory().Update(txCtx, item); err != nil {
					return fmt.Errorf("failed to restore inventory item: %w", err)
				}
				if err := enqueueDomainEvents(txCtx, s.outboxRepo, cmd.TenantID, item.ProductID, "inventory_item", item.DomainEvents); err != nil {
					return err
				}
				if item.IsMirrored() {
					mirrors = append(mirrors, mirrorUpdate{externalRef: item.ExternalRef, quantity: item.Quantity})
				}
				item.ClearDomainEvents()
			}
		}

		if err := request.Reject(cmd.Reason); err != nil {
			return mapDomainError(err)
		}
		if err := s.store.ShipmentRequests().Update(txCtx, request); err != nil {
			return fmt.Errorf("failed to update shipment request: %w", err)
		}
		if err := enqueueDomainEvents(txCtx, s.outboxRepo, cmd.TenantID, request.RequestID, "shipment_request", request.DomainEvents); err != nil {
			return err
		}
		request.ClearDomainEvents()

		result = ToShipmentRequestDTO(request)
		return nil
	})
	if err != nil {
		s.logger.Error("Shipment rejection failed", "requestId", cmd.RequestID, "tenantId", cmd.TenantID, "error", err)
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.RecordShipmentRejected(restored)
	}
	s.logger.Info("Shipment request rejected",
		"requestId", cmd.RequestID,
		"tenantId", cmd.TenantID,
		"restoredStock", restored,
	)

	s.notifyMirrors(ctx, cmd.TenantID, mirrors)
	return result, nil
}

// Get fetches one shipment request
func (s *ShipmentService) Get(ctx context.Context, query GetShipmentRequestQuery) (*ShipmentRequestDTO, error) {
	request, err := s.store.ShipmentRequests().FindByRequestID(ctx, query.TenantID, query.RequestID)
	if err != nil {
		return nil, fmt.Errorf("failed to load shipment request: %w", err)
	}
	if request == nil {
		return nil, notFound("shipment request", query.RequestID)
	}
	return ToShipmentRequestDTO(request), nil
}

// notifyMirrors fires the best-effort mirror updates after commit. The
// notifier owns failure handling; nothing here waits on the outcome.
func (s *ShipmentService) notifyMirrors(ctx context.Context, tenantID string, mirrors []mirrorUpdate) {
	if s.notifier == nil {
		return
	}
	for _, m := range mirrors {
		go s.notifier.NotifyQuantity(context.WithoutCancel(ctx), tenantID, m.externalRef, m.quantity)
	}
}
