package application

import "github.com/warehouse-ops/fulfillment-service/internal/domain"

// ToInventoryItemDTO converts a domain InventoryItem to its DTO
func ToInventoryItemDTO(item *domain.InventoryItem) *InventoryItemDTO {
	return &InventoryItemDTO{
		ProductID:   item.ProductID,
		ProductName: item.ProductName,
		Quantity:    item.Quantity,
		Status:      string(item.Status),
		ExternalRef: item.ExternalRef,
		DateAdded:   item.DateAdded,
		UpdatedAt:   item.UpdatedAt,
	}
}

// ToInventoryItemDTOs converts a slice of items
func ToInventoryItemDTOs(items []*domain.InventoryItem) []*InventoryItemDTO {
	dtos := make([]*InventoryItemDTO, len(items))
	for i, item := range items {
		dtos[i] = ToInventoryItemDTO(item)
	}
	return dtos
}

// ToShipmentRequestDTO converts a domain ShipmentRequest to its DTO
func ToShipmentRequestDTO(r *domain.ShipmentRequest) *ShipmentRequestDTO {
	return &ShipmentRequestDTO{
		RequestID:       r.RequestID,
		Status:          string(r.Status),
		Shipments:       r.Shipments,
		ProductType:     r.ProductType,
		ShipmentType:    r.ShipmentType,
		PalletSubType:   r.PalletSubType,
		LabelURL:        r.LabelURL,
		Remarks:         r.Remarks,
		RequestedAt:     r.RequestedAt,
		ConfirmedAt:     r.ConfirmedAt,
		ConfirmedBy:     r.ConfirmedBy,
		AdminRemarks:    r.AdminRemarks,
		Services:        r.AdminAdditionalServices,
		RejectedAt:      r.RejectedAt,
		RejectionReason: r.RejectionReason,
	}
}

// ToShippedRecordDTO converts a domain ShippedRecord to its DTO
func ToShippedRecordDTO(rec *domain.ShippedRecord) *ShippedRecordDTO {
	return &ShippedRecordDTO{
		RecordID:      rec.RecordID,
		Source:        rec.Source,
		SourceID:      rec.SourceID,
		Items:         rec.Items,
		TotalBoxes:    rec.TotalBoxes,
		TotalUnits:    rec.TotalUnits,
		TotalSkus:     rec.TotalSkus,
		ServicesTotal: rec.ServicesTotal,
		GrandTotal:    rec.GrandTotal,
		CreatedAt:     rec.CreatedAt,
	}
}

// ToProductReturnDTO converts a domain ProductReturn to its DTO
func ToProductReturnDTO(p *domain.ProductReturn) *ProductReturnDTO {
	return &ProductReturnDTO{
		ReturnID:          p.ReturnID,
		Status:            string(p.Status),
		ProductName:       p.ProductName,
		RequestedQuantity: p.RequestedQuantity,
		ReceivedQuantity:  p.ReceivedQuantity,
		ShippedQuantity:   p.ShippedQuantity,
		ReceivingLog:      p.ReceivingLog,
		ShippingLog:       p.ShippingLog,
		Services:          p.AdditionalServices,
		Pricing:           p.Pricing,
		InvoiceID:         p.InvoiceID,
		RequestedAt:       p.RequestedAt,
		ApprovedAt:        p.ApprovedAt,
		ClosedAt:          p.ClosedAt,
		CancelledAt:       p.CancelledAt,
		CancelReason:      p.CancelReason,
	}
}

// ToInvoiceDTO converts a domain Invoice to its DTO
func ToInvoiceDTO(inv *domain.Invoice) *InvoiceDTO {
	return &InvoiceDTO{
		InvoiceID:     inv.InvoiceID,
		InvoiceNumber: inv.InvoiceNumber,
		Source:        inv.Source,
		SourceID:      inv.SourceID,
		LineItems:     inv.LineItems,
		Subtotal:      inv.Subtotal,
		Total:         inv.Total,
		Currency:      inv.Currency,
		Recipient:     inv.Recipient,
		CreatedAt:     inv.CreatedAt,
	}
}
