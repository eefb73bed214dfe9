package application

import (
	"time"

	"github.com/warehouse-ops/fulfillment-service/internal/domain"
)

// InventoryItemDTO is the API representation of an inventory item
type InventoryItemDTO struct {
	ProductID   string    `json:"productId"`
	ProductName string    `json:"productName"`
	Quantity    int       `json:"quantity"`
	Status      string    `json:"status"`
	ExternalRef string    `json:"externalRef,omitempty"`
	DateAdded   time.Time `json:"dateAdded"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// ShipmentRequestDTO is the API representation of a shipment request
type ShipmentRequestDTO struct {
	RequestID       string                     `json:"requestId"`
	Status          string                     `json:"status"`
	Shipments       []domain.LineItem          `json:"shipments"`
	ProductType     string                     `json:"productType"`
	ShipmentType    string                     `json:"shipmentType"`
	PalletSubType   string                     `json:"palletSubType,omitempty"`
	LabelURL        string                     `json:"labelUrl,omitempty"`
	Remarks         string                     `json:"remarks,omitempty"`
	RequestedAt     time.Time                  `json:"requestedAt"`
	ConfirmedAt     *time.Time                 `json:"confirmedAt,omitempty"`
	ConfirmedBy     string                     `json:"confirmedBy,omitempty"`
	AdminRemarks    string                     `json:"adminRemarks,omitempty"`
	Services        *domain.AdditionalServices `json:"adminAdditionalServices,omitempty"`
	RejectedAt      *time.Time                 `json:"rejectedAt,omitempty"`
	RejectionReason string                     `json:"rejectionReason,omitempty"`
}

// ConfirmShipmentResultDTO is returned from a successful confirmation
type ConfirmShipmentResultDTO struct {
	Request       *ShipmentRequestDTO `json:"request"`
	ShippedRecord *ShippedRecordDTO   `json:"shippedRecord"`
}

// ShippedRecordDTO is the API representation of a shipped record
type ShippedRecordDTO struct {
	RecordID      string               `json:"recordId"`
	Source        string               `json:"source"`
	SourceID      string               `json:"sourceId"`
	Items         []domain.ShippedItem `json:"items"`
	TotalBoxes    int                  `json:"totalBoxes"`
	TotalUnits    int                  `json:"totalUnits"`
	TotalSkus     int                  `json:"totalSkus"`
	ServicesTotal float64              `json:"servicesTotal,omitempty"`
	GrandTotal    float64              `json:"grandTotal"`
	CreatedAt     time.Time            `json:"createdAt"`
}

// ProductReturnDTO is the API representation of a product return
type ProductReturnDTO struct {
	ReturnID          string                  `json:"returnId"`
	Status            string                  `json:"status"`
	ProductName       string                  `json:"productName"`
	RequestedQuantity int                     `json:"requestedQuantity"`
	ReceivedQuantity  int                     `json:"receivedQuantity"`
	ShippedQuantity   int                     `json:"shippedQuantity"`
	ReceivingLog      []domain.ReceivingEntry `json:"receivingLog"`
	ShippingLog       []domain.ShippingEntry  `json:"shippingLog"`
	Services          *domain.ReturnServices  `json:"additionalServices,omitempty"`
	Pricing           *domain.ReturnPricing   `json:"pricing,omitempty"`
	InvoiceID         string                  `json:"invoiceId,omitempty"`
	RequestedAt       time.Time               `json:"requestedAt"`
	ApprovedAt        *time.Time              `json:"approvedAt,omitempty"`
	ClosedAt          *time.Time              `json:"closedAt,omitempty"`
	CancelledAt       *time.Time              `json:"cancelledAt,omitempty"`
	CancelReason      string                  `json:"cancelReason,omitempty"`
}

// CloseReturnResultDTO is returned from a successful close
type CloseReturnResultDTO struct {
	Return           *ProductReturnDTO `json:"return"`
	InvoiceID        string            `json:"invoiceId,omitempty"`
	CreditedQuantity int               `json:"creditedQuantity"`
	ShippedRemainder int               `json:"shippedRemainder"`
}

// InvoiceDTO is the API representation of an invoice
type InvoiceDTO struct {
	InvoiceID     string                   `json:"invoiceId"`
	InvoiceNumber string                   `json:"invoiceNumber"`
	Source        string                   `json:"source"`
	SourceID      string                   `json:"sourceId"`
	LineItems     []domain.InvoiceLineItem `json:"lineItems"`
	Subtotal      float64                  `json:"subtotal"`
	Total         float64                  `json:"total"`
	Currency      string                   `json:"currency"`
	Recipient     string                   `json:"recipient,omitempty"`
	CreatedAt     time.Time                `json:"createdAt"`
}
