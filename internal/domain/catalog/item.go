// Package catalog describes the items the ledger tracks and the catalog
// collaborator that knows whether they still exist.
package catalog

import (
	"context"
	"fmt"

	"stockflow/internal/core/apperror"
	"stockflow/internal/core/id"
)

// VariantKind distinguishes purchasable materials from sellable products.
type VariantKind string

const (
	KindMaterial VariantKind = "material"
	KindProduct  VariantKind = "product"
)

// Valid reports whether k is a known kind.
func (k VariantKind) Valid() bool {
	return k == KindMaterial || k == KindProduct
}

// ItemRef identifies one stocked item-variant.
type ItemRef struct {
	Kind VariantKind `json:"kind"`
	ID   id.ID       `json:"id"`
}

// Material builds a material-variant reference.
func Material(v id.ID) ItemRef { return ItemRef{Kind: KindMaterial, ID: v} }

// Product builds a product-variant reference.
func Product(v id.ID) ItemRef { return ItemRef{Kind: KindProduct, ID: v} }

func (r ItemRef) String() string {
	return fmt.Sprintf("%s:%s", r.Kind, r.ID)
}

// Validate checks that the reference is complete.
func (r ItemRef) Validate() error {
	if !r.Kind.Valid() {
		return apperror.NewValidation("unknown item kind").WithDetail("kind", string(r.Kind))
	}
	if id.IsNil(r.ID) {
		return apperror.NewValidation("item id is required").WithDetail("kind", string(r.Kind))
	}
	return nil
}

// ItemState is what the catalog knows about a variant.
type ItemState struct {
	Item    ItemRef
	Name    string
	SKU     string
	Deleted bool
}

// ItemCatalog is implemented by the item master-data collaborator.
type ItemCatalog interface {
	// Lookup returns the state of the variant, or a NotFound AppError.
	Lookup(ctx context.Context, item ItemRef) (ItemState, error)
}

// Store is an ItemCatalog that also accepts master-data changes.
type Store interface {
	ItemCatalog

	// Upsert creates or renames an item and clears its deletion mark.
	Upsert(ctx context.Context, state ItemState) error

	// SetDeletionMark sets or clears the soft-delete mark.
	SetDeletionMark(ctx context.Context, item ItemRef, marked bool) error
}

// EnsureAvailable fails with ItemUnavailable when the item is soft-deleted.
func EnsureAvailable(ctx context.Context, c ItemCatalog, item ItemRef) error {
	state, err := c.Lookup(ctx, item)
	if err != nil {
		return err
	}
	if state.Deleted {
		return apperror.NewItemUnavailable(item.String())
	}
	return nil
}
