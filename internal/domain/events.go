package domain

import "time"

// DomainEvent is the interface for all domain events
type DomainEvent interface {
	EventType() string
	OccurredAt() time.Time
}

// InventoryAdjustedEvent is published whenever an item's quantity changes
type InventoryAdjustedEvent struct {
	ProductID   string    `json:"productId"`
	TenantID    string    `json:"tenantId"`
	OldQuantity int       `json:"oldQuantity"`
	NewQuantity int       `json:"newQuantity"`
	Reason      string    `json:"reason"`
	AdjustedAt  time.Time `json:"adjustedAt"`
}

func (e *InventoryAdjustedEvent) EventType() string     { return "fulfillment.inventory.adjusted" }
func (e *InventoryAdjustedEvent) OccurredAt() time.Time { return e.AdjustedAt }

// InventoryDeletedEvent is published when an item is deleted or recycled
type InventoryDeletedEvent struct {
	ProductID string    `json:"productId"`
	TenantID  string    `json:"tenantId"`
	Quantity  int       `json:"quantity"`
	Reason    string    `json:"reason"`
	DeletedAt time.Time `json:"deletedAt"`
}

func (e *InventoryDeletedEvent) EventType() string     { return "fulfillment.inventory.deleted" }
func (e *InventoryDeletedEvent) OccurredAt() time.Time { return e.DeletedAt }

// InventorySyncEvent requests reconciliation of an externally mirrored item.
// Carries the absolute quantity so downstream consumers stay idempotent.
type InventorySyncEvent struct {
	ProductID   string    `json:"productId"`
	TenantID    string    `json:"tenantId"`
	ExternalRef string    `json:"externalRef"`
	Quantity    int       `json:"quantity"`
	SyncedAt    time.Time `json:"syncedAt"`
}

func (e *InventorySyncEvent) EventType() string     { return "fulfillment.inventory.sync" }
func (e *InventorySyncEvent) OccurredAt() time.Time { return e.SyncedAt }

// ShipmentConfirmedEvent is published when a shipment request is confirmed
type ShipmentConfirmedEvent struct {
	RequestID       string    `json:"requestId"`
	TenantID        string    `json:"tenantId"`
	ShippedRecordID string    `json:"shippedRecordId"`
	TotalUnits      int       `json:"totalUnits"`
	GrandTotal      float64   `json:"grandTotal"`
	ConfirmedBy     string    `json:"confirmedBy"`
	ConfirmedAt     time.Time `json:"confirmedAt"`
}

func (e *ShipmentConfirmedEvent) EventType() string     { return "fulfillment.shipment.confirmed" }
func (e *ShipmentConfirmedEvent) OccurredAt() time.Time { return e.ConfirmedAt }

// ShipmentRejectedEvent is published when a shipment request is rejected.
// Restored is true when the rejection rolled back a prior confirmation's stock.
type ShipmentRejectedEvent struct {
	RequestID  string    `json:"requestId"`
	TenantID   string    `json:"tenantId"`
	Reason     string    `json:"reason"`
	Restored   bool      `json:"restored"`
	RejectedAt time.Time `json:"rejectedAt"`
}

func (e *ShipmentRejectedEvent) EventType() string     { return "fulfillment.shipment.rejected" }
func (e *ShipmentRejectedEvent) OccurredAt() time.Time { return e.RejectedAt }

// ReturnApprovedEvent is published when a product return is approved
type ReturnApprovedEvent struct {
	ReturnID   string    `json:"returnId"`
	TenantID   string    `json:"tenantId"`
	ApprovedBy string    `json:"approvedBy"`
	ApprovedAt time.Time `json:"approvedAt"`
}

func (e *ReturnApprovedEvent) EventType() string     { return "fulfillment.return.approved" }
func (e *ReturnApprovedEvent) OccurredAt() time.Time { return e.ApprovedAt }

// ReturnCancelledEvent is published when a pending return is cancelled
type ReturnCancelledEvent struct {
	ReturnID    string    `json:"returnId"`
	TenantID    string    `json:"tenantId"`
	Reason      string    `json:"reason"`
	CancelledAt time.Time `json:"cancelledAt"`
}

func (e *ReturnCancelledEvent) EventType() string     { return "fulfillment.return.cancelled" }
func (e *ReturnCancelledEvent) OccurredAt() time.Time { return e.CancelledAt }

// ReturnReceivedEvent is published for each receiving-log append
type ReturnReceivedEvent struct {
	ReturnID         string    `json:"returnId"`
	TenantID         string    `json:"tenantId"`
	Quantity         int       `json:"quantity"`
	ReceivedQuantity int       `json:"receivedQuantity"`
	ReceivedBy       string    `json:"receivedBy"`
	ReceivedAt       time.Time `json:"receivedAt"`
}

func (e *ReturnReceivedEvent) EventType() string     { return "fulfillment.return.received" }
func (e *ReturnReceivedEvent) OccurredAt() time.Time { return e.ReceivedAt }

// ReturnShippedEvent is published for each shipping-log append
type ReturnShippedEvent struct {
	ReturnID        string    `json:"returnId"`
	TenantID        string    `json:"tenantId"`
	Quantity        int       `json:"quantity"`
	ShippedQuantity int       `json:"shippedQuantity"`
	ShippedBy       string    `json:"shippedBy"`
	ShippedAt       time.Time `json:"shippedAt"`
}

func (e *ReturnShippedEvent) EventType() string     { return "fulfillment.return.shipped" }
func (e *ReturnShippedEvent) OccurredAt() time.Time { return e.ShippedAt }

// ReturnClosedEvent is published when a return is closed
type ReturnClosedEvent struct {
	ReturnID         string    `json:"returnId"`
	TenantID         string    `json:"tenantId"`
	ReceivedQuantity int       `json:"receivedQuantity"`
	ShippedQuantity  int       `json:"shippedQuantity"`
	CreditedQuantity int       `json:"creditedQuantity"`
	Total            float64   `json:"total"`
	ClosedBy         string    `json:"closedBy"`
	ClosedAt         time.Time `json:"closedAt"`
}

func (e *ReturnClosedEvent) EventType() string     { return "fulfillment.return.closed" }
func (e *ReturnClosedEvent) OccurredAt() time.Time { return e.ClosedAt }
