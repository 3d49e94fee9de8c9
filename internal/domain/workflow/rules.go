package workflow

import (
	"slices"

	"stockflow/internal/core/apperror"
)

// Rule is one row of a transition table.
type Rule struct {
	Status    Status   `json:"status"`
	Allowed   []Status `json:"allowed"`
	Rationale string   `json:"rationale"`
}

// Terminal reports whether the row admits no transition.
func (r Rule) Terminal() bool {
	return len(r.Allowed) == 0
}

// RuleTable is the static table of allowed detail transitions of one domain.
type RuleTable struct {
	domain Domain
	order  []Status
	rows   map[Status]Rule
}

// NewRuleTable builds a table from rows in presentation order.
func NewRuleTable(domain Domain, rows ...Rule) RuleTable {
	t := RuleTable{
		domain: domain,
		order:  make([]Status, 0, len(rows)),
		rows:   make(map[Status]Rule, len(rows)),
	}
	for _, r := range rows {
		t.order = append(t.order, r.Status)
		t.rows[r.Status] = r
	}
	return t
}

// IsValid reports whether cur → next is allowed.
func (t RuleTable) IsValid(cur, next Status) bool {
	r, ok := t.rows[cur]
	return ok && slices.Contains(r.Allowed, next)
}

// Describe returns the allowed next statuses and the rationale of cur.
func (t RuleTable) Describe(cur Status) (Rule, error) {
	r, ok := t.rows[cur]
	if !ok {
		return Rule{}, apperror.NewUnknownStatus(string(t.domain), string(cur))
	}
	r.Allowed = slices.Clone(r.Allowed)
	return r, nil
}

// Known reports whether s has a row.
func (t RuleTable) Known(s Status) bool {
	_, ok := t.rows[s]
	return ok
}

// Terminal reports whether s is a known status without outgoing transitions.
func (t RuleTable) Terminal(s Status) bool {
	r, ok := t.rows[s]
	return ok && r.Terminal()
}

// Statuses lists the detail statuses in presentation order.
func (t RuleTable) Statuses() []Status {
	return slices.Clone(t.order)
}

// Rows lists all rows in presentation order.
func (t RuleTable) Rows() []Rule {
	out := make([]Rule, 0, len(t.order))
	for _, s := range t.order {
		r, _ := t.Describe(s)
		out = append(out, r)
	}
	return out
}
