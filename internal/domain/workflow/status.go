// Package workflow drives ticket detail lines through per-domain status state
// machines. Every accepted transition may mutate a stock account through the
// ledger, is recorded in the audit trail and rolls up into the ticket status.
package workflow

import (
	"strings"

	"stockflow/internal/core/apperror"
)

// Domain is the kind of ticket.
type Domain string

const (
	DomainProduction Domain = "production"
	DomainPurchasing Domain = "purchasing"
	DomainSale       Domain = "sale"
)

// Status is a detail or ticket status. Detail statuses come from the rule table
// of the domain; ticket statuses additionally include PARTIAL_* variants.
type Status string

const (
	StatusNew        Status = "NEW"
	StatusApproval   Status = "APPROVAL"
	StatusComplete   Status = "COMPLETE"
	StatusReady      Status = "READY"
	StatusClosed     Status = "CLOSED"
	StatusSuccessful Status = "SUCCESSFUL"
	StatusShipping   Status = "SHIPPING"
	StatusAllocated  Status = "ALLOCATED"
	StatusPacked     Status = "PACKED"
	StatusShipped    Status = "SHIPPED"
	StatusDone       Status = "DONE"
	StatusCancelled  Status = "CANCELLED"

	StatusPartialCancelled Status = "PARTIAL_CANCELLED"
)

const partialPrefix = "PARTIAL_"

// Partial returns the partial ticket status of stage s.
func Partial(s Status) Status {
	return Status(partialPrefix + string(s))
}

// IsPartial reports whether s is a PARTIAL_* ticket status.
func (s Status) IsPartial() bool {
	return strings.HasPrefix(string(s), partialPrefix)
}

// ParseDomain validates a domain name.
func ParseDomain(s string) (Domain, error) {
	d := Domain(strings.ToLower(strings.TrimSpace(s)))
	switch d {
	case DomainProduction, DomainPurchasing, DomainSale:
		return d, nil
	}
	return "", apperror.NewValidation("unknown ticket domain").WithDetail("domain", s)
}
