package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ReturnStatus is the lifecycle state of a product return
type ReturnStatus string

const (
	ReturnStatusPending    ReturnStatus = "pending"
	ReturnStatusApproved   ReturnStatus = "approved"
	ReturnStatusInProgress ReturnStatus = "in_progress"
	ReturnStatusClosed     ReturnStatus = "closed"
	ReturnStatusCancelled  ReturnStatus = "cancelled"
)

var returnTransitions = map[ReturnStatus][]ReturnStatus{
	ReturnStatusPending:    {ReturnStatusApproved, ReturnStatusCancelled},
	ReturnStatusApproved:   {ReturnStatusInProgress, ReturnStatusClosed},
	ReturnStatusInProgress: {ReturnStatusClosed},
	ReturnStatusClosed:     {},
	ReturnStatusCancelled:  {},
}

// CanTransitionTo checks if a status transition is valid
func (s ReturnStatus) CanTransitionTo(target ReturnStatus) bool {
	for _, allowed := range returnTransitions[s] {
		if allowed == target {
			return true
		}
	}
	return false
}

// ReceivingEntry is one append-only receiving-log record
type ReceivingEntry struct {
	Quantity   int       `bson:"quantity" json:"quantity"`
	ReceivedAt time.Time `bson:"receivedAt" json:"receivedAt"`
	ReceivedBy string    `bson:"receivedBy" json:"receivedBy"`
	Notes      string    `bson:"notes,omitempty" json:"notes,omitempty"`
}

// ShippingEntry is one append-only shipping-log record. Invoice fields
// are set only when the shipment generated an invoice draft.
type ShippingEntry struct {
	Quantity          int       `bson:"quantity" json:"quantity"`
	ShippedAt         time.Time `bson:"shippedAt" json:"shippedAt"`
	ShippedBy         string    `bson:"shippedBy" json:"shippedBy"`
	Notes             string    `bson:"notes,omitempty" json:"notes,omitempty"`
	InvoiceID         string    `bson:"invoiceId,omitempty" json:"invoiceId,omitempty"`
	ShippingUnitPrice float64   `bson:"shippingUnitPrice,omitempty" json:"shippingUnitPrice,omitempty"`
	ShippingTotal     float64   `bson:"shippingTotal,omitempty" json:"shippingTotal,omitempty"`
}

// ReturnServices holds the customer's requested extras for a return.
// A non-empty ShipToAddress means the unshipped remainder is shipped out
// at close instead of being credited back to inventory.
type ReturnServices struct {
	ShipToAddress string `bson:"shipToAddress,omitempty" json:"shipToAddress,omitempty"`
	Recipient     string `bson:"recipient,omitempty" json:"recipient,omitempty"`
}

// ProductReturn tracks a customer return through receiving, partial
// shipping, and closing. receivedQuantity is monotone non-decreasing and
// shippedQuantity never exceeds it.
type ProductReturn struct {
	ID       primitive.ObjectID `bson:"_id,omitempty" json:"-"`
	ReturnID string             `bson:"returnId" json:"returnId"`
	TenantID string             `bson:"tenantId" json:"tenantId"`
	Status   ReturnStatus       `bson:"status" json:"status"`

	ProductName       string `bson:"productName" json:"productName"`
	RequestedQuantity int    `bson:"requestedQuantity" json:"requestedQuantity"`
	ReceivedQuantity  int    `bson:"receivedQuantity" json:"receivedQuantity"`
	ShippedQuantity   int    `bson:"shippedQuantity" json:"shippedQuantity"`

	ReceivingLog []ReceivingEntry `bson:"receivingLog" json:"receivingLog"`
	ShippingLog  []ShippingEntry  `bson:"shippingLog" json:"shippingLog"`

	AdditionalServices *ReturnServices `bson:"additionalServices,omitempty" json:"additionalServices,omitempty"`
	Pricing            *ReturnPricing  `bson:"pricing,omitempty" json:"pricing,omitempty"`
	InvoiceID          string          `bson:"invoiceId,omitempty" json:"invoiceId,omitempty"`

	RequestedAt  time.Time  `bson:"requestedAt" json:"requestedAt"`
	ApprovedAt   *time.Time `bson:"approvedAt,omitempty" json:"approvedAt,omitempty"`
	ApprovedBy   string     `bson:"approvedBy,omitempty" json:"approvedBy,omitempty"`
	CancelledAt  *time.Time `bson:"cancelledAt,omitempty" json:"cancelledAt,omitempty"`
	CancelReason string     `bson:"cancelReason,omitempty" json:"cancelReason,omitempty"`
	ClosedAt     *time.Time `bson:"closedAt,omitempty" json:"closedAt,omitempty"`
	ClosedBy     string     `bson:"closedBy,omitempty" json:"closedBy,omitempty"`

	UpdatedAt time.Time `bson:"updatedAt" json:"updatedAt"`

	DomainEvents []DomainEvent `bson:"-" json:"-"`
}

// Approve moves the return from pending to approved and initializes the
// receiving log.
func (p *ProductReturn) Approve(approvedBy string) error {
	if approvedBy == "" {
		return ErrMissingAdminIdentity
	}
	if !p.Status.CanTransitionTo(ReturnStatusApproved) {
		return &StatusTransitionError{Entity: "product return", From: string(p.Status), To: string(ReturnStatusApproved)}
	}

	now := time.Now().UTC()
	p.Status = ReturnStatusApproved
	p.ApprovedAt = &now
	p.ApprovedBy = approvedBy
	if p.ReceivingLog == nil {
		p.ReceivingLog = make([]ReceivingEntry, 0)
	}
	p.UpdatedAt = now

	p.AddDomainEvent(&ReturnApprovedEvent{
		ReturnID:   p.ReturnID,
		TenantID:   p.TenantID,
		ApprovedBy: approvedBy,
		ApprovedAt: now,
	})
	return nil
}

// Cancel moves a pending return to cancelled. Nothing was received yet,
// so there is no inventory effect.
func (p *ProductReturn) Cancel(reason string) error {
	if reason == "" {
		return ErrMissingReason
	}
	if !p.Status.CanTransitionTo(ReturnStatusCancelled) {
		return &StatusTransitionError{Entity: "product return", From: string(p.Status), To: string(ReturnStatusCancelled)}
	}

	now := time.Now().UTC()
	p.Status = ReturnStatusCancelled
	p.CancelledAt = &now
	p.CancelReason = reason
	p.UpdatedAt = now

	p.AddDomainEvent(&ReturnCancelledEvent{
		ReturnID:    p.ReturnID,
		TenantID:    p.TenantID,
		Reason:      reason,
		CancelledAt: now,
	})
	return nil
}

// Receive appends a receiving-log entry and bumps receivedQuantity,
// moving an approved return to in_progress. Over-receipt beyond
// requestedQuantity is accepted; callers decide whether to warn.
func (p *ProductReturn) Receive(quantity int, receivedBy, notes string) error {
	if quantity <= 0 {
		return ErrInvalidQuantity
	}
	if receivedBy == "" {
		return ErrMissingAdminIdentity
	}
	if p.Status != ReturnStatusApproved && p.Status != ReturnStatusInProgress {
		return &StatusTransitionError{Entity: "product return", From: string(p.Status), To: string(ReturnStatusInProgress)}
	}

	now := time.Now().UTC()
	p.ReceivingLog = append(p.ReceivingLog, ReceivingEntry{
		Quantity:   quantity,
		ReceivedAt: now,
		ReceivedBy: receivedBy,
		Notes:      notes,
	})
	p.ReceivedQuantity += quantity
	p.Status = ReturnStatusInProgress
	p.UpdatedAt = now

	p.AddDomainEvent(&ReturnReceivedEvent{
		ReturnID:         p.ReturnID,
		TenantID:         p.TenantID,
		Quantity:         quantity,
		ReceivedQuantity: p.ReceivedQuantity,
		ReceivedBy:       receivedBy,
		ReceivedAt:       now,
	})
	return nil
}

// Ship appends a shipping-log entry for a partial outbound shipment.
// It never changes status and never lets shippedQuantity pass
// receivedQuantity.
func (p *ProductReturn) Ship(entry ShippingEntry) error {
	if entry.Quantity <= 0 {
		return ErrInvalidQuantity
	}
	if entry.ShippedBy == "" {
		return ErrMissingAdminIdentity
	}
	if p.Status != ReturnStatusApproved && p.Status != ReturnStatusInProgress {
		return &StatusTransitionError{Entity: "product return", From: string(p.Status), To: string(p.Status)}
	}
	if entry.Quantity > p.RemainingUnshipped() {
		return ErrShipExceedsReceived
	}

	if entry.ShippedAt.IsZero() {
		entry.ShippedAt = time.Now().UTC()
	}
	p.ShippingLog = append(p.ShippingLog, entry)
	p.ShippedQuantity += entry.Quantity
	p.UpdatedAt = entry.ShippedAt

	p.AddDomainEvent(&ReturnShippedEvent{
		ReturnID:        p.ReturnID,
		TenantID:        p.TenantID,
		Quantity:        entry.Quantity,
		ShippedQuantity: p.ShippedQuantity,
		ShippedBy:       entry.ShippedBy,
		ShippedAt:       entry.ShippedAt,
	})
	return nil
}

// RemainingUnshipped is the received-but-unshipped balance.
func (p *ProductReturn) RemainingUnshipped() int {
	return p.ReceivedQuantity - p.ShippedQuantity
}

// WantsShipToAddress reports whether the customer asked for the
// remainder to be shipped out at close.
func (p *ProductReturn) WantsShipToAddress() bool {
	return p.AdditionalServices != nil && p.AdditionalServices.ShipToAddress != ""
}

// CanClose guards the close transition: only approved or in_progress
// returns with received stock may close. Replayed closes are rejected
// here rather than silently double-crediting inventory.
func (p *ProductReturn) CanClose() error {
	if p.Status != ReturnStatusApproved && p.Status != ReturnStatusInProgress {
		return &StatusTransitionError{Entity: "product return", From: string(p.Status), To: string(ReturnStatusClosed)}
	}
	if p.ReceivedQuantity <= 0 {
		return ErrNothingReceived
	}
	return nil
}

// Close finalizes the return with its computed pricing. The caller has
// already shipped or credited the unshipped remainder inside the same
// transaction; creditedQuantity records how much went back to stock.
func (p *ProductReturn) Close(closedBy string, pricing ReturnPricing, invoiceID string, creditedQuantity int) error {
	if closedBy == "" {
		return ErrMissingAdminIdentity
	}
	if err := p.CanClose(); err != nil {
		return err
	}

	now := time.Now().UTC()
	p.Status = ReturnStatusClosed
	p.ClosedAt = &now
	p.ClosedBy = closedBy
	p.Pricing = &pricing
	if invoiceID != "" {
		p.InvoiceID = invoiceID
	}
	p.UpdatedAt = now

	p.AddDomainEvent(&ReturnClosedEvent{
		ReturnID:         p.ReturnID,
		TenantID:         p.TenantID,
		ReceivedQuantity: p.ReceivedQuantity,
		ShippedQuantity:  p.ShippedQuantity,
		CreditedQuantity: creditedQuantity,
		Total:            pricing.Total,
		ClosedBy:         closedBy,
		ClosedAt:         now,
	})
	return nil
}

// AddDomainEvent appends an event for post-commit publication.
func (p *ProductReturn) AddDomainEvent(event DomainEvent) {
	p.DomainEvents = append(p.DomainEvents, event)
}

// ClearDomainEvents drains the pending events.
func (p *ProductReturn) ClearDomainEvents() {
	p.DomainEvents = make([]DomainEvent, 0)
}
