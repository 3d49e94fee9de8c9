package ledger

import (
	"slices"

	"stockflow/internal/domain/catalog"
)

// SourceType classifies why a quantity changed.
type SourceType string

const (
	SourceInitial               SourceType = "INITIAL"
	SourceRecount               SourceType = "RECOUNT"
	SourceAdjustment            SourceType = "ADJUSTMENT"
	SourcePurchasePlanned       SourceType = "PURCHASE_PLANNED"
	SourcePurchaseReceipt       SourceType = "PURCHASE_RECEIPT"
	SourcePurchaseCancelled     SourceType = "PURCHASE_CANCELLED"
	SourceProductionPlanned     SourceType = "PRODUCTION_PLANNED"
	SourceProductionOutput      SourceType = "PRODUCTION_OUTPUT"
	SourceProductionCancelled   SourceType = "PRODUCTION_CANCELLED"
	SourceProductionConsumption SourceType = "PRODUCTION_CONSUMPTION"
	SourceSaleAllocation        SourceType = "SALE_ALLOCATION"
	SourceSaleRelease           SourceType = "SALE_RELEASE"
	SourceSaleShipment          SourceType = "SALE_SHIPMENT"
	SourceSaleReversal          SourceType = "SALE_REVERSAL"
	SourceTransferIn            SourceType = "TRANSFER_IN"
	SourceTransferOut           SourceType = "TRANSFER_OUT"
	SourceScrap                 SourceType = "SCRAP"
	SourceReturn                SourceType = "RETURN"
)

type sourceInfo struct {
	label       string
	description string
	kinds       []catalog.VariantKind
}

var (
	both         = []catalog.VariantKind{catalog.KindMaterial, catalog.KindProduct}
	materialOnly = []catalog.VariantKind{catalog.KindMaterial}
	productOnly  = []catalog.VariantKind{catalog.KindProduct}
)

// sourceOrder fixes the presentation order of source types.
var sourceOrder = []SourceType{
	SourceInitial, SourceRecount, SourceAdjustment,
	SourcePurchasePlanned, SourcePurchaseReceipt, SourcePurchaseCancelled,
	SourceProductionPlanned, SourceProductionOutput, SourceProductionCancelled, SourceProductionConsumption,
	SourceSaleAllocation, SourceSaleRelease, SourceSaleShipment, SourceSaleReversal,
	SourceTransferIn, SourceTransferOut, SourceScrap, SourceReturn,
}

var sources = map[SourceType]sourceInfo{
	SourceInitial:               {"Initial balance", "Opening balance written when the account is created", both},
	SourceRecount:               {"Recount", "Absolute correction after a physical count", both},
	SourceAdjustment:            {"Adjustment", "Manual correction by a stock keeper", both},
	SourcePurchasePlanned:       {"Purchase planned", "Quantity promised by an approved purchasing line", both},
	SourcePurchaseReceipt:       {"Purchase receipt", "Goods received from a supplier", both},
	SourcePurchaseCancelled:     {"Purchase cancelled", "Planned or received purchase withdrawn", both},
	SourceProductionPlanned:     {"Production planned", "Output promised by an approved production line", productOnly},
	SourceProductionOutput:      {"Production output", "Finished goods moved into stock", productOnly},
	SourceProductionCancelled:   {"Production cancelled", "Planned or produced output withdrawn", productOnly},
	SourceProductionConsumption: {"Production consumption", "Materials consumed by production", materialOnly},
	SourceSaleAllocation:        {"Sale allocation", "Stock reserved for a sale", productOnly},
	SourceSaleRelease:           {"Sale release", "Reservation released by a cancelled sale", productOnly},
	SourceSaleShipment:          {"Sale shipment", "Reserved stock packed and removed for shipment", productOnly},
	SourceSaleReversal:          {"Sale reversal", "Packed goods returned to stock after cancellation", productOnly},
	SourceTransferIn:            {"Transfer in", "Goods moved in from another location", both},
	SourceTransferOut:           {"Transfer out", "Goods moved out to another location", both},
	SourceScrap:                 {"Scrap", "Damaged or expired goods written off", both},
	SourceReturn:                {"Return", "Goods returned by a customer or to a supplier", both},
}

// Valid reports whether s is a known source type.
func (s SourceType) Valid() bool {
	_, ok := sources[s]
	return ok
}

// AppliesTo reports whether s belongs to the vocabulary of the given item kind.
func (s SourceType) AppliesTo(kind catalog.VariantKind) bool {
	info, ok := sources[s]
	return ok && slices.Contains(info.kinds, kind)
}

// SourceTypes returns all source types in presentation order.
func SourceTypes() []SourceType {
	return slices.Clone(sourceOrder)
}
