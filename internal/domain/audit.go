package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Audit records are evidence, not state: append-only, written in the same
// transaction as the mutation they document, never read back by workflows.

// RestockHistory documents a stock increment on an inventory item
type RestockHistory struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"-"`
	LogID       string             `bson:"logId" json:"logId"`
	TenantID    string             `bson:"tenantId" json:"tenantId"`
	ProductID   string             `bson:"productId" json:"productId"`
	ProductName string             `bson:"productName" json:"productName"`
	Quantity    int                `bson:"quantity" json:"quantity"`
	NewQuantity int                `bson:"newQuantity" json:"newQuantity"`
	RestockedBy string             `bson:"restockedBy" json:"restockedBy"`
	Notes       string             `bson:"notes,omitempty" json:"notes,omitempty"`
	RestockedAt time.Time          `bson:"restockedAt" json:"restockedAt"`
}

// EditLog documents an admin edit of an inventory item
type EditLog struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"-"`
	LogID       string             `bson:"logId" json:"logId"`
	TenantID    string             `bson:"tenantId" json:"tenantId"`
	ProductID   string             `bson:"productId" json:"productId"`
	OldName     string             `bson:"oldName" json:"oldName"`
	NewName     string             `bson:"newName" json:"newName"`
	OldQuantity int                `bson:"oldQuantity" json:"oldQuantity"`
	NewQuantity int                `bson:"newQuantity" json:"newQuantity"`
	EditedBy    string             `bson:"editedBy" json:"editedBy"`
	EditedAt    time.Time          `bson:"editedAt" json:"editedAt"`
}

// DeleteLog documents a permanent deletion of an inventory item
type DeleteLog struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"-"`
	LogID       string             `bson:"logId" json:"logId"`
	TenantID    string             `bson:"tenantId" json:"tenantId"`
	ProductID   string             `bson:"productId" json:"productId"`
	ProductName string             `bson:"productName" json:"productName"`
	Quantity    int                `bson:"quantity" json:"quantity"`
	Reason      string             `bson:"reason,omitempty" json:"reason,omitempty"`
	DeletedBy   string             `bson:"deletedBy" json:"deletedBy"`
	DeletedAt   time.Time          `bson:"deletedAt" json:"deletedAt"`
}

// RecycledItem is the full snapshot of an item at recycle/delete time
type RecycledItem struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"-"`
	LogID       string             `bson:"logId" json:"logId"`
	TenantID    string             `bson:"tenantId" json:"tenantId"`
	ProductID   string             `bson:"productId" json:"productId"`
	ProductName string             `bson:"productName" json:"productName"`
	Quantity    int                `bson:"quantity" json:"quantity"`
	Status      ItemStatus         `bson:"status" json:"status"`
	ExternalRef string             `bson:"externalRef,omitempty" json:"externalRef,omitempty"`
	Reason      string             `bson:"reason,omitempty" json:"reason,omitempty"`
	RecycledBy  string             `bson:"recycledBy" json:"recycledBy"`
	RecycledAt  time.Time          `bson:"recycledAt" json:"recycledAt"`
}
