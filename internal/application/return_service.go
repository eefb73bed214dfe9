package application

import (
	"context"
	"fmt"

	"github.com/warehouse-ops/fulfillment-service/pkg/logging"
	"github.com/warehouse-ops/fulfillment-service/pkg/metrics"
	"github.com/warehouse-ops/fulfillment-service/pkg/outbox"

	"github.com/warehouse-ops/fulfillment-service/internal/domain"
)

// ReturnService drives the product-return lifecycle. Each transition is
// one store transaction; close settles the unshipped remainder by either
// shipping it out or crediting it back to the inventory ledger.
type ReturnService struct {
	store      domain.Store
	outboxRepo outbox.Repository
	notifier   SyncNotifier
	renderer   InvoiceRenderer
	logger     *logging.Logger
	metrics    *metrics.Metrics
}

// NewReturnService creates a ReturnService
func NewReturnService(store domain.Store, outboxRepo outbox.Repository, notifier SyncNotifier, renderer InvoiceRenderer, logger *logging.Logger, m *metrics.Metrics) *ReturnService {
	return &ReturnService{
		store:      store,
		outboxRepo: outboxRepo,
		notifier:   notifier,
		renderer:   renderer,
		logger:     logger.WithComponent("return-service"),
		metrics:    m,
	}
}

// Approve moves a pending return to approved
func (s *ReturnService) Approve(ctx context.Context, cmd ApproveReturnCommand) (*ProductReturnDTO, error) {
	dto, err := s.transition(ctx, cmd.TenantID, cmd.ReturnID, "approve", func(ret *domain.ProductReturn) error {
		return ret.Approve(cmd.ApprovedBy)
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("Return approved", "returnId", cmd.ReturnID, "tenantId", cmd.TenantID, "approvedBy", cmd.ApprovedBy)
	return dto, nil
}

// Cancel moves a pending return to cancelled
func (s *ReturnService) Cancel(ctx context.Context, cmd CancelReturnCommand) (*ProductReturnDTO, error) {
	dto, err := s.transition(ctx, cmd.TenantID, cmd.ReturnID, "cancel", func(ret *domain.ProductReturn) error {
		return ret.Cancel(cmd.Reason)
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("Return cancelled", "returnId", cmd.ReturnID, "tenantId", cmd.TenantID, "reason", cmd.Reason)
	return dto, nil
}

// Receive appends a receiving-log entry. Receipts beyond the requested
// quantity are accepted and logged at warn level.
func (s *ReturnService) Receive(ctx context.Context, cmd ReceiveReturnCommand) (*ProductReturnDTO, error) {
	var overReceipt bool
	dto, err := s.transition(ctx, cmd.TenantID, cmd.ReturnID, "receive", func(ret *domain.ProductReturn) error {
		if err := ret.Receive(cmd.Quantity, cmd.ReceivedBy, cmd.Notes); err != nil {
			return err
		}
		overReceipt = ret.ReceivedQuantity > ret.RequestedQuantity
		return nil
	})
	if err != nil {
		return nil, err
	}

	if overReceipt {
		s.logger.Warn("Return received more than requested",
			"returnId", cmd.ReturnID,
			"tenantId", cmd.TenantID,
			"receivedQuantity", dto.ReceivedQuantity,
			"requestedQuantity", dto.RequestedQuantity,
		)
	}
	return dto, nil
}

// Ship records a partial outbound shipment against the received balance,
// optionally generating an invoice draft in the same transaction.
func (s *ReturnService) Ship(ctx context.Context, cmd ShipReturnCommand) (*ProductReturnDTO, error) {
	if cmd.Quantity <= 0 {
		return nil, mapDomainError(domain.ErrInvalidQuantity)
	}

	var (
		result  *ProductReturnDTO
		invoice *domain.Invoice
	)

	err := s.store.RunTransaction(ctx, func(txCtx context.Context) error {
		invoice = nil

		ret, err := s.store.Returns().FindByReturnID(txCtx, cmd.TenantID, cmd.ReturnID)
		if err != nil {
			return fmt.Errorf("failed to load return: %w", err)
		}
		if ret == nil {
			return notFound("product return", cmd.ReturnID)
		}

		entry := domain.ShippingEntry{
			Quantity:  cmd.Quantity,
			ShippedBy: cmd.ShippedBy,
			Notes:     cmd.Notes,
		}

		if cmd.CreateInvoice {
			unitPrice := cmd.UnitPrice
			if unitPrice <= 0 && cmd.TotalCost > 0 {
				unitPrice = cmd.TotalCost / float64(cmd.Quantity)
			}
			total := unitPrice * float64(cmd.Quantity)

			recipient := ""
			if ret.AdditionalServices != nil {
				recipient = ret.AdditionalServices.Recipient
			}
			invoice = domain.NewInvoice(cmd.TenantID, domain.ShippedSourceProductReturn, ret.ReturnID, recipient, []domain.InvoiceLineItem{
				{Description: "Return shipment: " + ret.ProductName, Quantity: cmd.Quantity, UnitPrice: unitPrice, Amount: total},
			})
			if err := s.store.Invoices().Save(txCtx, invoice); err != nil {
				return fmt.Errorf("failed to save invoice: %w", err)
			}

			entry.InvoiceID = invoice.InvoiceID
			entry.ShippingUnitPrice = unitPrice
			entry.ShippingTotal = total
		}

		if err := ret.Ship(entry); err != nil {
			return mapDomainError(err)
		}
		if err := s.store.Returns().Update(txCtx, ret); err != nil {
			return fmt.Errorf("failed to update return: %w", err)
		}
		if err := enqueueDomainEvents(txCtx, s.outboxRepo, cmd.TenantID, ret.ReturnID, "product_return", ret.DomainEvents); err != nil {
			return err
		}
		ret.ClearDomainEvents()

		result = ToProductReturnDTO(ret)
		return nil
	})
	if err != nil {
		s.logger.Error("Return shipment failed", "returnId", cmd.ReturnID, "tenantId", cmd.TenantID, "error", err)
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.RecordReturnTransition("ship")
	}
	s.renderInvoice(ctx, invoice)
	return result, nil
}

// Close finalizes a return: prices it, settles the unshipped remainder
// (ship-to-address shipment or inventory credit), and writes the invoice
// inside the same transaction. Rendering runs post-commit, best effort.
func (s *ReturnService) Close(ctx context.Context, cmd CloseReturnCommand) (*CloseReturnResultDTO, error) {
	var (
		result  CloseReturnResultDTO
		invoice *domain.Invoice
		mirrors []mirrorUpdate
	)

	err := s.store.RunTransaction(ctx, func(txCtx context.Context) error {
		invoice = nil
		mirrors = mirrors[:0]

		ret, err := s.store.Returns().FindByReturnID(txCtx, cmd.TenantID, cmd.ReturnID)
		if err != nil {
			return fmt.Errorf("failed to load return: %w", err)
		}
		if ret == nil {
			return notFound("product return", cmd.ReturnID)
		}
		if err := ret.CanClose(); err != nil {
			return mapDomainError(err)
		}

		remaining := ret.RemainingUnshipped()
		shipRemainder := ret.WantsShipToAddress() && remaining > 0
		pricing := domain.ComputeReturnClosePricing(
			cmd.ReturnFee, ret.ReceivedQuantity, cmd.PackingFee, cmd.PalletFee,
			remaining, cmd.ShippingUnitPrice, ret.WantsShipToAddress(),
		)

		credited := 0
		shippedRemainder := 0
		switch {
		case shipRemainder:
			if err := ret.Ship(domain.ShippingEntry{
				Quantity:          remaining,
				ShippedBy:         cmd.ClosedBy,
				Notes:             "remainder shipped on close",
				ShippingUnitPrice: cmd.ShippingUnitPrice,
				ShippingTotal:     pricing.ShippingFee,
			}); err != nil {
				return mapDomainError(err)
			}

			record := domain.NewShippedRecord(cmd.TenantID, domain.ShippedSourceProductReturn, ret.ReturnID, []domain.ShippedItem{
				{
					ProductName:  ret.ProductName,
					BoxesShipped: remaining,
					ShippedQty:   remaining,
					PackOf:       1,
					UnitPrice:    cmd.ShippingUnitPrice,
					LineTotal:    pricing.ShippingFee,
				},
			}, nil)
			if err := s.store.ShippedRecords().Save(txCtx, record); err != nil {
				return fmt.Errorf("failed to save shipped record: %w", err)
			}
			shippedRemainder = remaining

		case remaining > 0:
			// Credit the remainder back into the inventory ledger.
			item, err := s.store.Inventory().FindByName(txCtx, cmd.TenantID, ret.ProductName)
			if err != nil {
				return fmt.Errorf("failed to read inventory item: %w", err)
			}
			if item == nil {
				item, err = domain.NewInventoryItem(cmd.TenantID, ret.ProductName, 0, "")
				if err != nil {
					return mapDomainError(err)
				}
				if err := s.store.Inventory().Save(txCtx, item); err != nil {
					return fmt.Errorf("failed to create inventory item: %w", err)
				}
			}

			restock, err := item.Restock(remaining, cmd.ClosedBy, "return close credit: "+ret.ReturnID)
			if err != nil {
				return mapDomainError(err)
			}
			if err := s.store.Inventory().Update(txCtx, item); err != nil {
				return fmt.Errorf("failed to update inventory item: %w", err)
			}
			if err := s.store.Audits().SaveRestock(txCtx, restock); err != nil {
				return fmt.Errorf("failed to save restock history: %w", err)
			}
			if err := enqueueDomainEvents(txCtx, s.outboxRepo, cmd.TenantID, item.ProductID, "inventory_item", item.DomainEvents); err != nil {
				return err
			}
			if item.IsMirrored() {
				mirrors = append(mirrors, mirrorUpdate{externalRef: item.ExternalRef, quantity: item.Quantity})
			}
			item.ClearDomainEvents()
			credited = remaining
		}

		invoiceID := ""
		if cmd.CreateInvoice {
			recipient := ""
			if ret.AdditionalServices != nil {
				recipient = ret.AdditionalServices.Recipient
			}
			lines := buildCloseInvoiceLines(ret, pricing)
			invoice = domain.NewInvoice(cmd.TenantID, domain.ShippedSourceProductReturn, ret.ReturnID, recipient, lines)
			if err := s.store.Invoices().Save(txCtx, invoice); err != nil {
				return fmt.Errorf("failed to save invoice: %w", err)
			}
			invoiceID = invoice.InvoiceID
		}

		if err := ret.Close(cmd.ClosedBy, pricing, invoiceID, credited); err != nil {
			return mapDomainError(err)
		}
		if err := s.store.Returns().Update(txCtx, ret); err != nil {
			return fmt.Errorf("failed to update return: %w", err)
		}
		if err := enqueueDomainEvents(txCtx, s.outboxRepo, cmd.TenantID, ret.ReturnID, "product_return", ret.DomainEvents); err != nil {
			return err
		}
		ret.ClearDomainEvents()

		result = CloseReturnResultDTO{
			Return:           ToProductReturnDTO(ret),
			InvoiceID:        invoiceID,
			CreditedQuantity: credited,
			ShippedRemainder: shippedRemainder,
		}
		return nil
	})
	if err != nil {
		s.logger.Error("Return close failed", "returnId", cmd.ReturnID, "tenantId", cmd.TenantID, "error", err)
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.RecordReturnTransition("close")
	}
	s.logger.Info("Return closed",
		"returnId", cmd.ReturnID,
		"tenantId", cmd.TenantID,
		"creditedQuantity", result.CreditedQuantity,
		"shippedRemainder", result.ShippedRemainder,
		"total", result.Return.Pricing.Total,
	)

	s.renderInvoice(ctx, invoice)
	s.notifyMirrors(ctx, cmd.TenantID, mirrors)
	return &result, nil
}

// Get fetches one product return
func (s *ReturnService) Get(ctx context.Context, query GetReturnQuery) (*ProductReturnDTO, error) {
	ret, err := s.store.Returns().FindByReturnID(ctx, query.TenantID, query.ReturnID)
	if err != nil {
		return nil, fmt.Errorf("failed to load return: %w", err)
	}
	if ret == nil {
		return nil, notFound("product return", query.ReturnID)
	}
	return ToProductReturnDTO(ret), nil
}

// transition runs a simple load-mutate-update cycle as one transaction.
func (s *ReturnService) transition(ctx context.Context, tenantID, returnID, name string, mutate func(*domain.ProductReturn) error) (*ProductReturnDTO, error) {
	var result *ProductReturnDTO

	err := s.store.RunTransaction(ctx, func(txCtx context.Context) error {
		ret, err := s.store.Returns().FindByReturnID(txCtx, tenantID, returnID)
		if err != nil {
			return fmt.Errorf("failed to load return: %w", err)
		}
		if ret == nil {
			return notFound("product return", returnID)
		}

		if err := mutate(ret); err != nil {
			return mapDomainError(err)
		}
		if err := s.store.Returns().Update(txCtx, ret); err != nil {
			return fmt.Errorf("failed to update return: %w", err)
		}
		if err := enqueueDomainEvents(txCtx, s.outboxRepo, tenantID, ret.ReturnID, "product_return", ret.DomainEvents); err != nil {
			return err
		}
		ret.ClearDomainEvents()

		result = ToProductReturnDTO(ret)
		return nil
	})
	if err != nil {
		s.logger.Error("Return transition failed", "returnId", returnID, "tenantId", tenantID, "transition", name, "error", err)
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.RecordReturnTransition(name)
	}
	return result, nil
}

func (s *ReturnService) renderInvoice(ctx context.Context, invoice *domain.Invoice) {
	if s.renderer == nil || invoice == nil {
		return
	}
	go s.renderer.Render(context.WithoutCancel(ctx), invoice)
}

func (s *ReturnService) notifyMirrors(ctx context.Context, tenantID string, mirrors []mirrorUpdate) {
	if s.notifier == nil {
		return
	}
	for _, m := range mirrors {
		go s.notifier.NotifyQuantity(context.WithoutCancel(ctx), tenantID, m.externalRef, m.quantity)
	}
}

// buildCloseInvoiceLines includes only components with a non-zero amount.
func buildCloseInvoiceLines(ret *domain.ProductReturn, pricing domain.ReturnPricing) []domain.InvoiceLineItem {
	lines := make([]domain.InvoiceLineItem, 0, 4)
	if pricing.ReturnFee > 0 {
		lines = append(lines, domain.InvoiceLineItem{
			Description: "Return handling: " + ret.ProductName,
			Quantity:    pricing.ReceivedQuantity,
			UnitPrice:   pricing.ReturnFee,
			Amount:      pricing.ReturnFee * float64(pricing.ReceivedQuantity),
		})
	}
	if pricing.PackingFee > 0 {
		lines = append(lines, domain.InvoiceLineItem{Description: "Packing", Quantity: 1, UnitPrice: pricing.PackingFee, Amount: pricing.PackingFee})
	}
	if pricing.PalletFee > 0 {
		lines = append(lines, domain.InvoiceLineItem{Description: "Pallet", Quantity: 1, UnitPrice: pricing.PalletFee, Amount: pricing.PalletFee})
	}
	if pricing.ShippingFee > 0 {
		qty := 0
		if pricing.ShippingUnitPrice > 0 {
			qty = int(pricing.ShippingFee/pricing.ShippingUnitPrice + 0.5)
		}
		lines = append(lines, domain.InvoiceLineItem{Description: "Shipping", Quantity: qty, UnitPrice: pricing.ShippingUnitPrice, Amount: pricing.ShippingFee})
	}
	return lines
}
