package workflow

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stockflow/internal/core/apperror"
)

func TestRuleTables(t *testing.T) {
	prod := ProductionDefinition().Rules
	assert.True(t, prod.IsValid(StatusNew, StatusApproval))
	assert.True(t, prod.IsValid(StatusReady, StatusCancelled))
	assert.False(t, prod.IsValid(StatusNew, StatusComplete))
	assert.False(t, prod.IsValid(StatusClosed, StatusCancelled))
	assert.False(t, prod.IsValid("BOGUS", StatusCancelled))

	sale := SaleDefinition().Rules
	assert.True(t, sale.IsValid(StatusShipped, StatusDone))
	assert.True(t, sale.Terminal(StatusDone))
	assert.False(t, sale.Terminal(StatusShipped))
	assert.False(t, sale.Terminal("BOGUS"))
}

func TestEveryOpenStatusCanBeCancelled(t *testing.T) {
	for _, def := range Definitions() {
		for _, s := range def.Rules.Statuses() {
			if def.Rules.Terminal(s) {
				continue
			}
			assert.True(t, def.Rules.IsValid(s, StatusCancelled), "%s: %s", def.Domain, s)
		}
		assert.True(t, def.Rules.Terminal(def.Done), def.Domain)
		assert.True(t, def.Rules.Terminal(StatusCancelled), def.Domain)
	}
}

func TestMutationsFollowAllowedTransitions(t *testing.T) {
	reg := NewRegistry(Definitions()...)
	for key, m := range mutations {
		def, err := reg.Get(key.domain)
		require.NoError(t, err)
		assert.True(t, def.Rules.IsValid(key.from, key.to), "%s: %s -> %s", key.domain, key.from, key.to)
		assert.True(t, m.Source.Valid(), m.Operation)
		assert.NotNil(t, m.op, m.Operation)
	}
}

func TestDescribe(t *testing.T) {
	rules := PurchasingDefinition().Rules

	row, err := rules.Describe(StatusShipping)
	require.NoError(t, err)
	assert.Equal(t, []Status{StatusReady, StatusCancelled}, row.Allowed)
	assert.NotEmpty(t, row.Rationale)

	// the returned row is a copy
	row.Allowed[0] = StatusClosed
	again, _ := rules.Describe(StatusShipping)
	assert.Equal(t, StatusReady, again.Allowed[0])

	_, err = rules.Describe("BOGUS")
	assert.True(t, apperror.Is(err, apperror.CodeUnknownStatus))

	assert.Len(t, rules.Rows(), len(rules.Statuses()))
}

func TestTicketStatuses(t *testing.T) {
	got := SaleDefinition().TicketStatuses()
	assert.Equal(t, []Status{
		StatusNew,
		Partial(StatusAllocated), StatusAllocated,
		Partial(StatusPacked), StatusPacked,
		Partial(StatusShipped), StatusShipped,
		Partial(StatusDone), StatusDone,
		StatusPartialCancelled, StatusCancelled,
	}, got)
}

func TestParseDomain(t *testing.T) {
	d, err := ParseDomain(" Sale ")
	require.NoError(t, err)
	assert.Equal(t, DomainSale, d)

	_, err = ParseDomain("repair")
	assert.True(t, apperror.Is(err, apperror.CodeValidation))
}

func TestLabel(t *testing.T) {
	assert.Equal(t, "Approval", Label(StatusApproval))
	assert.Equal(t, "Partially approval", Label(Partial(StatusApproval)))
	assert.Equal(t, "Partially cancelled", Label(StatusPartialCancelled))
	assert.Equal(t, "WEIRD", Label("WEIRD"))
}
