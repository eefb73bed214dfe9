package domain

import (
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Shipped-record sources
const (
	ShippedSourceShipmentRequest = "shipment_request"
	ShippedSourceProductReturn   = "product_return"
)

// ShippedItem is one priced line inside a shipped record
type ShippedItem struct {
	ProductID    string  `bson:"productId" json:"productId"`
	ProductName  string  `bson:"productName" json:"productName"`
	BoxesShipped int     `bson:"boxesShipped" json:"boxesShipped"`
	ShippedQty   int     `bson:"shippedQty" json:"shippedQty"`
	PackOf       int     `bson:"packOf" json:"packOf"`
	UnitPrice    float64 `bson:"unitPrice" json:"unitPrice"`
	PackOfPrice  float64 `bson:"packOfPrice" json:"packOfPrice"`
	RemainingQty int     `bson:"remainingQty" json:"remainingQty"`
	LineTotal    float64 `bson:"lineTotal" json:"lineTotal"`
}

// ShippedRecord aggregates every line of one confirmation into a single
// record: one confirmation yields exactly one ShippedRecord regardless of
// how many line items it carried.
type ShippedRecord struct {
	ID       primitive.ObjectID `bson:"_id,omitempty" json:"-"`
	RecordID string             `bson:"recordId" json:"recordId"`
	TenantID string             `bson:"tenantId" json:"tenantId"`

	Source   string `bson:"source" json:"source"`
	SourceID string `bson:"sourceId" json:"sourceId"`

	Items      []ShippedItem `bson:"items" json:"items"`
	TotalBoxes int           `bson:"totalBoxes" json:"totalBoxes"`
	TotalUnits int           `bson:"totalUnits" json:"totalUnits"`
	TotalSkus  int           `bson:"totalSkus" json:"totalSkus"`

	AdditionalServices *AdditionalServices `bson:"additionalServices,omitempty" json:"additionalServices,omitempty"`
	ServicesTotal      float64             `bson:"servicesTotal,omitempty" json:"servicesTotal,omitempty"`
	GrandTotal         float64             `bson:"grandTotal" json:"grandTotal"`

	CreatedAt time.Time `bson:"createdAt" json:"createdAt"`
}

// NewShippedRecord assembles the aggregate from already-priced items.
func NewShippedRecord(tenantID, source, sourceID string, items []ShippedItem, services *AdditionalServices) *ShippedRecord {
	rec := &ShippedRecord{
		RecordID:           uuid.NewString(),
		TenantID:           tenantID,
		Source:             source,
		SourceID:           sourceID,
		Items:              items,
		AdditionalServices: services,
		CreatedAt:          time.Now().UTC(),
	}

	for _, item := range items {
		rec.TotalBoxes += item.BoxesShipped
		rec.TotalUnits += item.ShippedQty
		rec.GrandTotal += item.LineTotal
	}
	rec.TotalSkus = len(items)

	rec.ServicesTotal = ComputeAdditionalServicesTotal(services)
	rec.GrandTotal += rec.ServicesTotal

	return rec
}
