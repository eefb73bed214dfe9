package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ShipmentStatus is the lifecycle state of a shipment request.
// The status is written exactly once from pending to a terminal value.
type ShipmentStatus string

const (
	ShipmentStatusPending   ShipmentStatus = "pending"
	ShipmentStatusConfirmed ShipmentStatus = "confirmed"
	ShipmentStatusRejected  ShipmentStatus = "rejected"
)

var shipmentTransitions = map[ShipmentStatus][]ShipmentStatus{
	ShipmentStatusPending:   {ShipmentStatusConfirmed, ShipmentStatusRejected},
	ShipmentStatusConfirmed: {ShipmentStatusRejected},
	ShipmentStatusRejected:  {},
}

// CanTransitionTo checks if a status transition is valid
func (s ShipmentStatus) CanTransitionTo(target ShipmentStatus) bool {
	for _, allowed := range shipmentTransitions[s] {
		if allowed == target {
			return true
		}
	}
	return false
}

// Product types. Custom requires positive admin overrides at confirmation.
const (
	ProductTypeStandard = "standard"
	ProductTypeOversize = "oversize"
	ProductTypeCustom   = "custom"
)

// LineItem is one product entry within a shipment request
type LineItem struct {
	ProductID string  `bson:"productId" json:"productId"`
	Quantity  int     `bson:"quantity" json:"quantity"`
	PackOf    int     `bson:"packOf" json:"packOf"`
	UnitPrice float64 `bson:"unitPrice" json:"unitPrice"`
}

// ConfirmOverrides are the admin-supplied prices for custom product types
type ConfirmOverrides struct {
	UnitPrice   float64 `bson:"unitPrice" json:"unitPrice"`
	PackOf      int     `bson:"packOf" json:"packOf"`
	PackOfPrice float64 `bson:"packOfPrice" json:"packOfPrice"`
}

// Valid reports whether every override is present and positive.
func (o *ConfirmOverrides) Valid() bool {
	return o != nil && o.UnitPrice > 0 && o.PackOf > 0 && o.PackOfPrice > 0
}

// AdditionalServices holds the per-request admin service selections,
// costed by flat per-unit rates and summed into one grand total.
type AdditionalServices struct {
	BubbleWrapFeet    int `bson:"bubbleWrapFeet,omitempty" json:"bubbleWrapFeet,omitempty"`
	StickerRemovalQty int `bson:"stickerRemovalQty,omitempty" json:"stickerRemovalQty,omitempty"`
	WarningLabelQty   int `bson:"warningLabelQty,omitempty" json:"warningLabelQty,omitempty"`
}

// CustomDimensions describes a custom-type shipment's physical size
type CustomDimensions struct {
	LengthIn float64 `bson:"lengthIn" json:"lengthIn"`
	WidthIn  float64 `bson:"widthIn" json:"widthIn"`
	HeightIn float64 `bson:"heightIn" json:"heightIn"`
	WeightLb float64 `bson:"weightLb" json:"weightLb"`
}

// ShipmentRequest is the customer-submitted request an admin confirms or rejects
type ShipmentRequest struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"-"`
	RequestID string             `bson:"requestId" json:"requestId"`
	TenantID  string             `bson:"tenantId" json:"tenantId"`
	Status    ShipmentStatus     `bson:"status" json:"status"`
	Shipments []LineItem         `bson:"shipments" json:"shipments"`

	ProductType      string            `bson:"productType" json:"productType"`
	ShipmentType     string            `bson:"shipmentType" json:"shipmentType"`
	PalletSubType    string            `bson:"palletSubType,omitempty" json:"palletSubType,omitempty"`
	CustomDimensions *CustomDimensions `bson:"customDimensions,omitempty" json:"customDimensions,omitempty"`
	LabelURL         string            `bson:"labelUrl,omitempty" json:"labelUrl,omitempty"`
	Remarks          string            `bson:"remarks,omitempty" json:"remarks,omitempty"`

	Date        time.Time `bson:"date" json:"date"`
	RequestedAt time.Time `bson:"requestedAt" json:"requestedAt"`

	ConfirmedAt             *time.Time          `bson:"confirmedAt,omitempty" json:"confirmedAt,omitempty"`
	ConfirmedBy             string              `bson:"confirmedBy,omitempty" json:"confirmedBy,omitempty"`
	AdminRemarks            string              `bson:"adminRemarks,omitempty" json:"adminRemarks,omitempty"`
	AdminAdditionalServices *AdditionalServices `bson:"adminAdditionalServices,omitempty" json:"adminAdditionalServices,omitempty"`
	Overrides               *ConfirmOverrides   `bson:"overrides,omitempty" json:"overrides,omitempty"`

	RejectedAt      *time.Time `bson:"rejectedAt,omitempty" json:"rejectedAt,omitempty"`
	RejectionReason string     `bson:"rejectionReason,omitempty" json:"rejectionReason,omitempty"`

	DomainEvents []DomainEvent `bson:"-" json:"-"`
}

// IsCustom reports whether confirmation requires admin price overrides.
func (r *ShipmentRequest) IsCustom() bool {
	return r.ProductType == ProductTypeCustom
}

// EffectivePackOf resolves the pack size for a line: the admin override
// for custom product types, else the requested pack size.
func (r *ShipmentRequest) EffectivePackOf(line LineItem) int {
	if r.IsCustom() && r.Overrides != nil && r.Overrides.PackOf > 0 {
		return r.Overrides.PackOf
	}
	return line.PackOf
}

// TotalUnits is the inventory units a line consumes when confirmed.
func (r *ShipmentRequest) TotalUnits(line LineItem) int {
	return line.Quantity * r.EffectivePackOf(line)
}

// ValidateForConfirm rejects a confirmation before any transaction opens.
func (r *ShipmentRequest) ValidateForConfirm(confirmedBy string, overrides *ConfirmOverrides) error {
	if confirmedBy == "" {
		return ErrMissingAdminIdentity
	}
	if r.Status != ShipmentStatusPending {
		return &StatusTransitionError{Entity: "shipment request", From: string(r.Status), To: string(ShipmentStatusConfirmed)}
	}
	if r.IsCustom() && !overrides.Valid() {
		return ErrMissingOverrides
	}
	for _, line := range r.Shipments {
		if line.Quantity <= 0 || line.PackOf <= 0 {
			return ErrInvalidQuantity
		}
	}
	return nil
}

// Confirm marks the request confirmed and records the admin's inputs.
// Stock sufficiency must already have been verified by the caller inside
// the same transaction.
func (r *ShipmentRequest) Confirm(confirmedBy, adminRemarks string, services *AdditionalServices, overrides *ConfirmOverrides) error {
	if err := r.ValidateForConfirm(confirmedBy, overrides); err != nil {
		return err
	}

	now := time.Now().UTC()
	r.Status = ShipmentStatusConfirmed
	r.ConfirmedAt = &now
	r.ConfirmedBy = confirmedBy
	r.AdminRemarks = adminRemarks
	r.AdminAdditionalServices = services
	if r.IsCustom() {
		r.Overrides = overrides
	}
	return nil
}

// Reject moves the request to rejected with a mandatory reason. Callers
// rejecting an already-confirmed request must restore inventory in the
// same transaction before invoking this.
func (r *ShipmentRequest) Reject(reason string) error {
	if reason == "" {
		return ErrMissingReason
	}
	if !r.Status.CanTransitionTo(ShipmentStatusRejected) {
		return &StatusTransitionError{Entity: "shipment request", From: string(r.Status), To: string(ShipmentStatusRejected)}
	}

	now := time.Now().UTC()
	restored := r.Status == ShipmentStatusConfirmed
	r.Status = ShipmentStatusRejected
	r.RejectedAt = &now
	r.RejectionReason = reason

	r.AddDomainEvent(&ShipmentRejectedEvent{
		RequestID:  r.RequestID,
		TenantID:   r.TenantID,
		Reason:     reason,
		Restored:   restored,
		RejectedAt: now,
	})
	return nil
}

// AddDomainEvent appends an event for post-commit publication.
func (r *ShipmentRequest) AddDomainEvent(event DomainEvent) {
	r.DomainEvents = append(r.DomainEvents, event)
}

// ClearDomainEvents drains the pending events.
func (r *ShipmentRequest) ClearDomainEvents() {
	r.DomainEvents = make([]DomainEvent, 0)
}
