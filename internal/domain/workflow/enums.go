package workflow

import (
	"strings"

	"stockflow/internal/metadata"
)

var statusLabels = map[Status]string{
	StatusNew:              "New",
	StatusApproval:         "Approval",
	StatusComplete:         "Complete",
	StatusReady:            "Ready",
	StatusClosed:           "Closed",
	StatusSuccessful:       "Successful",
	StatusShipping:         "Shipping",
	StatusAllocated:        "Allocated",
	StatusPacked:           "Packed",
	StatusShipped:          "Shipped",
	StatusDone:             "Done",
	StatusCancelled:        "Cancelled",
	StatusPartialCancelled: "Partially cancelled",
}

var domainLabels = map[Domain]string{
	DomainProduction: "Production",
	DomainPurchasing: "Purchasing",
	DomainSale:       "Sale",
}

// Label returns the display name of s.
func Label(s Status) string {
	if l, ok := statusLabels[s]; ok {
		return l
	}
	if s.IsPartial() {
		base := Status(strings.TrimPrefix(string(s), partialPrefix))
		return "Partially " + strings.ToLower(Label(base))
	}
	return string(s)
}

// DetailStatusEnum returns the enum name of detail statuses of domain.
func DetailStatusEnum(domain Domain) string {
	return string(domain) + "_detail_status"
}

// TicketStatusEnum returns the enum name of ticket statuses of domain.
func TicketStatusEnum(domain Domain) string {
	return string(domain) + "_ticket_status"
}

// Enums describes detail and ticket statuses of every registered domain.
// Detail status descriptions are the rationale of their rule rows.
func (r Registry) Enums() []metadata.EnumDef {
	var defs []metadata.EnumDef
	for _, def := range Definitions() {
		if _, ok := r[def.Domain]; !ok {
			continue
		}
		def = r[def.Domain]

		detail := metadata.EnumDef{
			Name:  DetailStatusEnum(def.Domain),
			Label: domainLabels[def.Domain] + " line status",
		}
		for _, row := range def.Rules.Rows() {
			detail.Values = append(detail.Values, metadata.EnumValue{
				Value:       string(row.Status),
				Label:       Label(row.Status),
				Description: row.Rationale,
			})
		}

		ticket := metadata.EnumDef{
			Name:  TicketStatusEnum(def.Domain),
			Label: domainLabels[def.Domain] + " ticket status",
		}
		for _, s := range def.TicketStatuses() {
			ticket.Values = append(ticket.Values, metadata.EnumValue{
				Value:       string(s),
				Label:       Label(s),
				Description: ticketStatusDescription(def, s),
			})
		}

		defs = append(defs, detail, ticket)
	}
	return defs
}

func ticketStatusDescription(def Definition, s Status) string {
	switch {
	case s == StatusCancelled:
		return "Every line is cancelled, or the ticket was cancelled as a whole"
	case s == StatusPartialCancelled:
		return "Some lines are cancelled while others are still active"
	case s == def.Done:
		return "Every line is finished"
	case s.IsPartial():
		return "Some lines reached " + Label(Status(strings.TrimPrefix(string(s), partialPrefix))) + " while others lag behind"
	default:
		return "Every line is at " + Label(s)
	}
}
