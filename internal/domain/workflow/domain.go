package workflow

import (
	"slices"
	"strings"

	"stockflow/internal/core/apperror"
	"stockflow/internal/core/numerator"
	"stockflow/internal/domain/catalog"
)

// Definition bundles everything that differs between ticket domains.
type Definition struct {
	Domain Domain
	Rules  RuleTable

	// Done is the terminal success status of details and tickets.
	Done Status

	// Stages is the progression ladder used by the aggregator, from NEW to Done.
	Stages []Status

	// ItemKinds lists the item kinds a detail of this domain may reference.
	ItemKinds []catalog.VariantKind

	// ReferenceType tags ledger entries caused by tickets of this domain.
	ReferenceType string

	// NumberPrefix starts the human-readable ticket number, e.g. PT-2026-00001.
	NumberPrefix string
}

// stage returns the position of s on the progression ladder.
func (d Definition) stage(s Status) int {
	if i := slices.Index(d.Stages, s); i >= 0 {
		return i
	}
	return 0
}

// TicketStatuses lists every status the aggregator can produce.
func (d Definition) TicketStatuses() []Status {
	out := []Status{d.Stages[0]}
	for _, s := range d.Stages[1:] {
		out = append(out, Partial(s), s)
	}
	return append(out, StatusPartialCancelled, StatusCancelled)
}

// numbering returns the sequence of ticket numbers of this domain.
func (d Definition) numbering() numerator.Config {
	prefix := d.NumberPrefix
	if prefix == "" {
		prefix = strings.ToUpper(string(d.Domain))
	}
	return numerator.DefaultConfig(prefix)
}

// AcceptsItem reports whether details of this domain may reference item.
func (d Definition) AcceptsItem(item catalog.ItemRef) bool {
	return slices.Contains(d.ItemKinds, item.Kind)
}

// ProductionDefinition: finished goods made in-house.
func ProductionDefinition() Definition {
	return Definition{
		Domain: DomainProduction,
		Done:   StatusClosed,
		Stages: []Status{StatusNew, StatusApproval, StatusComplete, StatusReady, StatusClosed},
		Rules: NewRuleTable(DomainProduction,
			Rule{StatusNew, []Status{StatusApproval, StatusCancelled},
				"A new production line is approved for planning or dropped before any stock is promised"},
			Rule{StatusApproval, []Status{StatusComplete, StatusCancelled},
				"Approved output is promised as future stock until production completes or is called off"},
			Rule{StatusComplete, []Status{StatusReady, StatusCancelled},
				"Completed goods become ready once they are moved into stock"},
			Rule{StatusReady, []Status{StatusClosed, StatusCancelled},
				"Ready goods are on hand; closing finishes the line, cancelling withdraws the output from stock"},
			Rule{StatusClosed, nil, "Closed lines are final"},
			Rule{StatusCancelled, nil, "Cancelled lines are final"},
		),
		ItemKinds:     []catalog.VariantKind{catalog.KindProduct},
		ReferenceType: "production_ticket",
		NumberPrefix:  "PT",
	}
}

// PurchasingDefinition: goods bought from suppliers.
func PurchasingDefinition() Definition {
	return Definition{
		Domain: DomainPurchasing,
		Done:   StatusClosed,
		Stages: []Status{StatusNew, StatusApproval, StatusSuccessful, StatusShipping, StatusReady, StatusClosed},
		Rules: NewRuleTable(DomainPurchasing,
			Rule{StatusNew, []Status{StatusApproval, StatusCancelled},
				"A requested purchase is approved, which promises the quantity as future stock"},
			Rule{StatusApproval, []Status{StatusSuccessful, StatusCancelled},
				"An approved purchase becomes successful once the supplier confirms the order"},
			Rule{StatusSuccessful, []Status{StatusShipping, StatusCancelled},
				"A confirmed order moves to shipping when the supplier dispatches it"},
			Rule{StatusShipping, []Status{StatusReady, StatusCancelled},
				"Goods in transit become ready on receipt, moving future stock into current stock"},
			Rule{StatusReady, []Status{StatusClosed, StatusCancelled},
				"Received goods are on hand; closing finishes the line, cancelling returns them"},
			Rule{StatusClosed, nil, "Closed lines are final"},
			Rule{StatusCancelled, nil, "Cancelled lines are final"},
		),
		ItemKinds:     []catalog.VariantKind{catalog.KindMaterial, catalog.KindProduct},
		ReferenceType: "purchasing_ticket",
		NumberPrefix:  "PO",
	}
}

// SaleDefinition: customer orders fulfilled from stock.
func SaleDefinition() Definition {
	return Definition{
		Domain: DomainSale,
		Done:   StatusDone,
		Stages: []Status{StatusNew, StatusAllocated, StatusPacked, StatusShipped, StatusDone},
		Rules: NewRuleTable(DomainSale,
			Rule{StatusNew, []Status{StatusAllocated, StatusCancelled},
				"A new order line reserves stock on allocation"},
			Rule{StatusAllocated, []Status{StatusPacked, StatusCancelled},
				"Packing consumes the reservation and removes the goods from stock; cancelling releases it"},
			Rule{StatusPacked, []Status{StatusShipped, StatusCancelled},
				"Packed goods ship to the customer; cancelling puts them back on the shelf"},
			Rule{StatusShipped, []Status{StatusDone, StatusCancelled},
				"Shipped goods have left the warehouse; cancellation no longer touches stock"},
			Rule{StatusDone, nil, "Delivered lines are final"},
			Rule{StatusCancelled, nil, "Cancelled lines are final"},
		),
		ItemKinds:     []catalog.VariantKind{catalog.KindProduct},
		ReferenceType: "sale_ticket",
		NumberPrefix:  "SO",
	}
}

// Definitions returns the three built-in domains.
func Definitions() []Definition {
	return []Definition{ProductionDefinition(), PurchasingDefinition(), SaleDefinition()}
}

// Registry indexes definitions by domain.
type Registry map[Domain]Definition

// NewRegistry builds a registry from defs.
func NewRegistry(defs ...Definition) Registry {
	r := make(Registry, len(defs))
	for _, d := range defs {
		r[d.Domain] = d
	}
	return r
}

// Get returns the definition of domain.
func (r Registry) Get(domain Domain) (Definition, error) {
	d, ok := r[domain]
	if !ok {
		return Definition{}, apperror.NewValidation("unknown ticket domain").WithDetail("domain", string(domain))
	}
	return d, nil
}
