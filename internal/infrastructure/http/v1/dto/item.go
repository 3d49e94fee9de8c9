package dto

import (
	"stockflow/internal/domain/catalog"
)

// UpsertItemRequest creates or renames an item-variant.
type UpsertItemRequest struct {
	Name string `json:"name" binding:"required,max=255"`
	SKU  string `json:"sku" binding:"max=64"`
}

// ItemResponse represents an item-variant.
type ItemResponse struct {
	Kind    string `json:"kind"`
	ItemID  string `json:"itemId"`
	Name    string `json:"name"`
	SKU     string `json:"sku,omitempty"`
	Deleted bool   `json:"deleted"`
}

// FromItem converts catalog state.
func FromItem(s catalog.ItemState) ItemResponse {
	return ItemResponse{
		Kind:    string(s.Item.Kind),
		ItemID:  s.Item.ID.String(),
		Name:    s.Name,
		SKU:     s.SKU,
		Deleted: s.Deleted,
	}
}
