package ledger

import (
	"stockflow/internal/metadata"
)

// Enum names published to the metadata registry.
const (
	EnumStockStatus  = "stock_status"
	EnumMutationKind = "mutation_kind"
	EnumDimension    = "stock_dimension"
	EnumSourceType   = "source_type"
)

// Enums describes the ledger enumerations for client dropdowns.
func Enums() []metadata.EnumDef {
	src := metadata.EnumDef{Name: EnumSourceType, Label: "Source type"}
	for _, s := range sourceOrder {
		info := sources[s]
		src.Values = append(src.Values, metadata.EnumValue{
			Value:       string(s),
			Label:       info.label,
			Description: info.description,
		})
	}

	return []metadata.EnumDef{
		{
			Name:  EnumStockStatus,
			Label: "Stock status",
			Values: []metadata.EnumValue{
				{Value: string(StatusInStock), Label: "In stock", Description: "Available stock is at or above the alert level"},
				{Value: string(StatusLowStock), Label: "Low stock", Description: "Available stock (current minus allocated) is below the alert level"},
				{Value: string(StatusOutOfStock), Label: "Out of stock", Description: "Nothing is available to promise"},
				{Value: string(StatusOverStock), Label: "Over stock", Description: "Current plus incoming stock exceeds the maximum level"},
			},
		},
		{
			Name:  EnumMutationKind,
			Label: "Mutation kind",
			Values: []metadata.EnumValue{
				{Value: string(KindIn), Label: "In", Description: "Quantity increased"},
				{Value: string(KindOut), Label: "Out", Description: "Quantity decreased"},
				{Value: string(KindSet), Label: "Set", Description: "Quantity replaced by an absolute value"},
			},
		},
		{
			Name:  EnumDimension,
			Label: "Stock dimension",
			Values: []metadata.EnumValue{
				{Value: string(DimensionCurrent), Label: "Current", Description: "Physically on hand"},
				{Value: string(DimensionFuture), Label: "Future", Description: "Promised by approved production or purchasing lines"},
				{Value: string(DimensionAllocated), Label: "Allocated", Description: "Reserved for accepted sales"},
			},
		},
		src,
	}
}
