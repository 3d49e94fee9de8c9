package workflow

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAggregate(t *testing.T) {
	production := ProductionDefinition()
	sale := SaleDefinition()

	tests := []struct {
		name     string
		def      Definition
		statuses []Status
		want     Status
	}{
		{"single new", production, []Status{StatusNew}, StatusNew},
		{"all cancelled", production, []Status{StatusCancelled, StatusCancelled}, StatusCancelled},
		{"all closed", production, []Status{StatusClosed, StatusClosed}, StatusClosed},
		{"closed and cancelled", production, []Status{StatusClosed, StatusCancelled}, StatusPartialCancelled},
		{"any cancelled", production, []Status{StatusNew, StatusApproval, StatusCancelled}, StatusPartialCancelled},
		{"same stage", production, []Status{StatusApproval, StatusApproval}, StatusApproval},
		{"mixed takes most advanced", production, []Status{StatusNew, StatusComplete, StatusReady}, Partial(StatusReady)},
		{"one behind done", production, []Status{StatusReady, StatusClosed}, Partial(StatusClosed)},
		{"sale all done", sale, []Status{StatusDone, StatusDone}, StatusDone},
		{"sale mixed", sale, []Status{StatusAllocated, StatusPacked}, Partial(StatusPacked)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Aggregate(tt.def, tt.statuses)
			assert.True(t, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestAggregateWithoutDetails(t *testing.T) {
	_, ok := Aggregate(PurchasingDefinition(), nil)
	assert.False(t, ok)
}

// Every combination of two detail statuses yields a status the ticket can hold.
func TestAggregateIsTotal(t *testing.T) {
	for _, def := range Definitions() {
		valid := def.TicketStatuses()
		statuses := def.Rules.Statuses()
		for _, a := range statuses {
			for _, b := range statuses {
				got, ok := Aggregate(def, []Status{a, b})
				assert.True(t, ok)
				assert.Contains(t, valid, got, "%s: %s + %s", def.Domain, a, b)
			}
		}
	}
}
