package domain

import (
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ItemStatus reflects whether an inventory item has stock on hand.
// It is always recomputed from quantity, never written independently.
type ItemStatus string

const (
	ItemStatusInStock    ItemStatus = "in_stock"
	ItemStatusOutOfStock ItemStatus = "out_of_stock"
)

// InventoryItem is the per-tenant stocked item every other aggregate
// reads and mutates. Quantity never goes negative.
type InventoryItem struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"-"`
	ProductID   string             `bson:"productId" json:"productId"`
	TenantID    string             `bson:"tenantId" json:"tenantId"`
	ProductName string             `bson:"productName" json:"productName"`
	Quantity    int                `bson:"quantity" json:"quantity"`
	Status      ItemStatus         `bson:"status" json:"status"`

	// ExternalRef marks items mirrored in the external system of record.
	ExternalRef string `bson:"externalRef,omitempty" json:"externalRef,omitempty"`

	DateAdded time.Time `bson:"dateAdded" json:"dateAdded"`
	UpdatedAt time.Time `bson:"updatedAt" json:"updatedAt"`

	DomainEvents []DomainEvent `bson:"-" json:"-"`
}

// NewInventoryItem creates a stocked item for a tenant.
func NewInventoryItem(tenantID, productName string, quantity int, externalRef string) (*InventoryItem, error) {
	if quantity < 0 {
		return nil, ErrInvalidQuantity
	}

	now := time.Now().UTC()
	item := &InventoryItem{
		ProductID:    uuid.NewString(),
		TenantID:     tenantID,
		ProductName:  productName,
		Quantity:     quantity,
		ExternalRef:  externalRef,
		DateAdded:    now,
		UpdatedAt:    now,
		DomainEvents: make([]DomainEvent, 0),
	}
	item.recomputeStatus()
	return item, nil
}

// Adjust applies a signed quantity delta and recomputes status.
// It must only be called inside an active store transaction. A delta
// that would push quantity below zero is rejected without mutating.
func (i *InventoryItem) Adjust(delta int, reason string) error {
	next := i.Quantity + delta
	if next < 0 {
		return &InsufficientStockError{
			ProductID: i.ProductID,
			Requested: -delta,
			Available: i.Quantity,
		}
	}

	old := i.Quantity
	i.Quantity = next
	i.recomputeStatus()
	i.UpdatedAt = time.Now().UTC()

	i.AddDomainEvent(&InventoryAdjustedEvent{
		ProductID:   i.ProductID,
		TenantID:    i.TenantID,
		OldQuantity: old,
		NewQuantity: next,
		Reason:      reason,
		AdjustedAt:  i.UpdatedAt,
	})

	if i.IsMirrored() {
		i.AddDomainEvent(&InventorySyncEvent{
			ProductID:   i.ProductID,
			TenantID:    i.TenantID,
			ExternalRef: i.ExternalRef,
			Quantity:    next,
			SyncedAt:    i.UpdatedAt,
		})
	}

	return nil
}

// HasStock reports whether the item can cover the requested units.
func (i *InventoryItem) HasStock(units int) bool {
	return i.Quantity >= units
}

// IsMirrored reports whether the item is tracked by the external mirror.
func (i *InventoryItem) IsMirrored() bool {
	return i.ExternalRef != ""
}

// ApplyEdit updates the mutable admin-editable fields and returns the
// EditLog entry documenting the change.
func (i *InventoryItem) ApplyEdit(productName string, quantity int, editedBy string) (*EditLog, error) {
	if quantity < 0 {
		return nil, ErrInvalidQuantity
	}

	log := &EditLog{
		LogID:       uuid.NewString(),
		TenantID:    i.TenantID,
		ProductID:   i.ProductID,
		OldName:     i.ProductName,
		NewName:     productName,
		OldQuantity: i.Quantity,
		NewQuantity: quantity,
		EditedBy:    editedBy,
		EditedAt:    time.Now().UTC(),
	}

	old := i.Quantity
	i.ProductName = productName
	i.Quantity = quantity
	i.recomputeStatus()
	i.UpdatedAt = log.EditedAt

	if old != quantity {
		i.AddDomainEvent(&InventoryAdjustedEvent{
			ProductID:   i.ProductID,
			TenantID:    i.TenantID,
			OldQuantity: old,
			NewQuantity: quantity,
			Reason:      "admin_edit",
			AdjustedAt:  i.UpdatedAt,
		})
		if i.IsMirrored() {
			i.AddDomainEvent(&InventorySyncEvent{
				ProductID:   i.ProductID,
				TenantID:    i.TenantID,
				ExternalRef: i.ExternalRef,
				Quantity:    quantity,
				SyncedAt:    i.UpdatedAt,
			})
		}
	}

	return log, nil
}

// Restock increments quantity and returns the RestockHistory entry.
func (i *InventoryItem) Restock(quantity int, restockedBy, notes string) (*RestockHistory, error) {
	if quantity <= 0 {
		return nil, ErrInvalidQuantity
	}

	if err := i.Adjust(quantity, "restock"); err != nil {
		return nil, err
	}

	return &RestockHistory{
		LogID:       uuid.NewString(),
		TenantID:    i.TenantID,
		ProductID:   i.ProductID,
		ProductName: i.ProductName,
		Quantity:    quantity,
		NewQuantity: i.Quantity,
		RestockedBy: restockedBy,
		Notes:       notes,
		RestockedAt: time.Now().UTC(),
	}, nil
}

// Snapshot produces the recycled-item snapshot taken before recycling or deletion.
func (i *InventoryItem) Snapshot(reason, actor string) *RecycledItem {
	return &RecycledItem{
		LogID:       uuid.NewString(),
		TenantID:    i.TenantID,
		ProductID:   i.ProductID,
		ProductName: i.ProductName,
		Quantity:    i.Quantity,
		Status:      i.Status,
		ExternalRef: i.ExternalRef,
		Reason:      reason,
		RecycledBy:  actor,
		RecycledAt:  time.Now().UTC(),
	}
}

// AddDomainEvent appends an event for post-commit publication.
func (i *InventoryItem) AddDomainEvent(event DomainEvent) {
	i.DomainEvents = append(i.DomainEvents, event)
}

// ClearDomainEvents drains the pending events after they are handed to the outbox.
func (i *InventoryItem) ClearDomainEvents() {
	i.DomainEvents = make([]DomainEvent, 0)
}

func (i *InventoryItem) recomputeStatus() {
	if i.Quantity > 0 {
		i.Status = ItemStatusInStock
	} else {
		i.Status = ItemStatusOutOfStock
	}
}
