package application

import "github.com/warehouse-ops/fulfillment-service/internal/domain"

// ConfirmShipmentCommand confirms a pending shipment request
type ConfirmShipmentCommand struct {
	TenantID     string
	RequestID    string
	ConfirmedBy  string
	AdminRemarks string
	Services     *domain.AdditionalServices
	Overrides    *domain.ConfirmOverrides
}

// RejectShipmentCommand rejects a shipment request. Rejecting an
// already-confirmed request restores its deducted stock.
type RejectShipmentCommand struct {
	TenantID   string
	RequestID  string
	RejectedBy string
	Reason     string
}

// ApproveReturnCommand approves a pending product return
type ApproveReturnCommand struct {
	TenantID   string
	ReturnID   string
	ApprovedBy string
}

// CancelReturnCommand cancels a pending product return
type CancelReturnCommand struct {
	TenantID    string
	ReturnID    string
	CancelledBy string
	Reason      string
}

// ReceiveReturnCommand records received stock against a return
type ReceiveReturnCommand struct {
	TenantID   string
	ReturnID   string
	Quantity   int
	ReceivedBy string
	Notes      string
}

// ShipReturnCommand ships part of the received balance back out.
// UnitPrice and TotalCost drive the optional invoice draft: the draft
// unit price is UnitPrice when set, else TotalCost/Quantity.
type ShipReturnCommand struct {
	TenantID      string
	ReturnID      string
	Quantity      int
	ShippedBy     string
	Notes         string
	CreateInvoice bool
	UnitPrice     float64
	TotalCost     float64
}

// CloseReturnCommand closes a return, pricing it and settling the
// unshipped remainder.
type CloseReturnCommand struct {
	TenantID          string
	ReturnID          string
	ClosedBy          string
	ReturnFee         float64
	PackingFee        float64
	PalletFee         float64
	ShippingUnitPrice float64
	CreateInvoice     bool
}

// CreateItemCommand creates a new inventory item
type CreateItemCommand struct {
	TenantID    string
	ProductName string
	Quantity    int
	ExternalRef string
	CreatedBy   string
}

// EditItemCommand applies an admin edit to an inventory item
type EditItemCommand struct {
	TenantID    string
	ProductID   string
	ProductName string
	Quantity    int
	EditedBy    string
}

// RestockItemCommand increments an item's stock
type RestockItemCommand struct {
	TenantID    string
	ProductID   string
	Quantity    int
	RestockedBy string
	Notes       string
}

// RecycleItemCommand snapshots and removes an item, keeping the snapshot
type RecycleItemCommand struct {
	TenantID   string
	ProductID  string
	Reason     string
	RecycledBy string
}

// DeleteItemCommand permanently deletes an item with a delete log
type DeleteItemCommand struct {
	TenantID  string
	ProductID string
	Reason    string
	DeletedBy string
}

// GetItemQuery fetches one inventory item
type GetItemQuery struct {
	TenantID  string
	ProductID string
}

// ListItemsQuery pages through a tenant's inventory
type ListItemsQuery struct {
	TenantID string
	Limit    int
	Offset   int
}

// GetShipmentRequestQuery fetches one shipment request
type GetShipmentRequestQuery struct {
	TenantID  string
	RequestID string
}

// GetReturnQuery fetches one product return
type GetReturnQuery struct {
	TenantID string
	ReturnID string
}
