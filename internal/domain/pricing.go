package domain

// Pricing calculator: pure functions, no side effects. All monetary
// arithmetic is plain float64 dollars rounded only at presentation time.

// Flat per-unit rates for additional services
const (
	BubbleWrapRatePerFoot     = 0.75
	StickerRemovalRatePerItem = 0.20
	WarningLabelRatePerLabel  = 0.25
)

// RateTier prices quantities up to and including UpTo. The final tier of
// a table uses UpTo == 0 to mean unbounded.
type RateTier struct {
	UpTo        int
	UnitPrice   float64
	PackOfPrice float64
}

// shipmentRates is the tiered rate table keyed by product type. The
// custom product type is absent on purpose: it always takes admin overrides.
var shipmentRates = map[string][]RateTier{
	ProductTypeStandard: {
		{UpTo: 10, UnitPrice: 3.00, PackOfPrice: 1.00},
		{UpTo: 50, UnitPrice: 2.50, PackOfPrice: 0.85},
		{UpTo: 0, UnitPrice: 2.00, PackOfPrice: 0.70},
	},
	ProductTypeOversize: {
		{UpTo: 10, UnitPrice: 5.50, PackOfPrice: 2.00},
		{UpTo: 50, UnitPrice: 4.75, PackOfPrice: 1.75},
		{UpTo: 0, UnitPrice: 4.00, PackOfPrice: 1.50},
	},
}

// LookupShipmentRate resolves the unit and pack-surcharge price for a
// product type and quantity tier.
func LookupShipmentRate(productType string, quantity int) (unitPrice, packOfPrice float64, err error) {
	tiers, ok := shipmentRates[productType]
	if !ok {
		return 0, 0, ErrUnknownRate
	}
	for _, tier := range tiers {
		if tier.UpTo == 0 || quantity <= tier.UpTo {
			return tier.UnitPrice, tier.PackOfPrice, nil
		}
	}
	return 0, 0, ErrUnknownRate
}

// ComputeLineTotal prices one line item:
// unitPrice*quantity plus the pack surcharge for every pack beyond the first.
func ComputeLineTotal(unitPrice float64, quantity int, packOfPrice float64, packOf int) float64 {
	extraPacks := packOf - 1
	if extraPacks < 0 {
		extraPacks = 0
	}
	return unitPrice*float64(quantity) + packOfPrice*float64(extraPacks)
}

// ComputeAdditionalServicesTotal sums the flat per-unit service charges.
func ComputeAdditionalServicesTotal(s *AdditionalServices) float64 {
	if s == nil {
		return 0
	}
	return BubbleWrapRatePerFoot*float64(s.BubbleWrapFeet) +
		StickerRemovalRatePerItem*float64(s.StickerRemovalQty) +
		WarningLabelRatePerLabel*float64(s.WarningLabelQty)
}

// ResolveLinePricing resolves the effective unit and pack prices for a
// line of a shipment request: admin overrides for the custom product
// type, else the tiered rate table.
func ResolveLinePricing(r *ShipmentRequest, line LineItem) (unitPrice, packOfPrice float64, err error) {
	if r.IsCustom() {
		if !r.Overrides.Valid() {
			return 0, 0, ErrMissingOverrides
		}
		return r.Overrides.UnitPrice, r.Overrides.PackOfPrice, nil
	}
	return LookupShipmentRate(r.ProductType, line.Quantity)
}

// ReturnPricing is the persisted pricing breakdown of a closed return.
// Zero components are omitted from the persisted document; the in-memory
// value always carries every field.
type ReturnPricing struct {
	ReturnFee         float64 `bson:"returnFee,omitempty" json:"returnFee,omitempty"`
	ReceivedQuantity  int     `bson:"receivedQuantity,omitempty" json:"receivedQuantity,omitempty"`
	PackingFee        float64 `bson:"packingFee,omitempty" json:"packingFee,omitempty"`
	PalletFee         float64 `bson:"palletFee,omitempty" json:"palletFee,omitempty"`
	ShippingUnitPrice float64 `bson:"shippingUnitPrice,omitempty" json:"shippingUnitPrice,omitempty"`
	ShippingFee       float64 `bson:"shippingFee,omitempty" json:"shippingFee,omitempty"`
	Total             float64 `bson:"total" json:"total"`
}

// ComputeReturnClosePricing prices the close of a product return.
// The shipping fee applies only when a ship-to-address was requested,
// covering the received-but-unshipped remainder.
func ComputeReturnClosePricing(returnFee float64, receivedQuantity int, packingFee, palletFee float64,
	remainingUnshipped int, shippingUnitPrice float64, shipToAddress bool) ReturnPricing {

	p := ReturnPricing{
		ReturnFee:        returnFee,
		ReceivedQuantity: receivedQuantity,
		PackingFee:       packingFee,
		PalletFee:        palletFee,
	}

	if shipToAddress && remainingUnshipped > 0 {
		p.ShippingUnitPrice = shippingUnitPrice
		p.ShippingFee = float64(remainingUnshipped) * shippingUnitPrice
	}

	p.Total = p.ReturnFee*float64(receivedQuantity) + p.PackingFee + p.PalletFee + p.ShippingFee
	return p
}
