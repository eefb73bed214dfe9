package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// InvoiceLineItem is one billed line on an invoice
type InvoiceLineItem struct {
	Description string  `bson:"description" json:"description"`
	Quantity    int     `bson:"quantity" json:"quantity"`
	UnitPrice   float64 `bson:"unitPrice" json:"unitPrice"`
	Amount      float64 `bson:"amount" json:"amount"`
}

// Invoice holds the monetary fields written inside the closing
// transaction. Rendering to a document is a post-commit best-effort call.
type Invoice struct {
	ID            primitive.ObjectID `bson:"_id,omitempty" json:"-"`
	InvoiceID     string             `bson:"invoiceId" json:"invoiceId"`
	InvoiceNumber string             `bson:"invoiceNumber" json:"invoiceNumber"`
	TenantID      string             `bson:"tenantId" json:"tenantId"`

	Source   string `bson:"source" json:"source"`
	SourceID string `bson:"sourceId" json:"sourceId"`

	LineItems []InvoiceLineItem `bson:"lineItems" json:"lineItems"`
	Subtotal  float64           `bson:"subtotal" json:"subtotal"`
	Total     float64           `bson:"total" json:"total"`
	Currency  string            `bson:"currency" json:"currency"`
	Recipient string            `bson:"recipient,omitempty" json:"recipient,omitempty"`

	CreatedAt time.Time `bson:"createdAt" json:"createdAt"`
}

// NewInvoice assembles an invoice from billed lines. Subtotal and total
// are derived from the lines; callers add no further charges.
func NewInvoice(tenantID, source, sourceID, recipient string, lines []InvoiceLineItem) *Invoice {
	now := time.Now().UTC()
	inv := &Invoice{
		InvoiceID:     uuid.NewString(),
		InvoiceNumber: fmt.Sprintf("INV-%s", now.Format("20060102-150405")),
		TenantID:      tenantID,
		Source:        source,
		SourceID:      sourceID,
		LineItems:     lines,
		Currency:      "USD",
		Recipient:     recipient,
		CreatedAt:     now,
	}

	for _, line := range lines {
		inv.Subtotal += line.Amount
	}
	inv.Total = inv.Subtotal

	return inv
}
