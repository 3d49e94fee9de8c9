package ledger

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stockflow/internal/core/apperror"
	"stockflow/internal/core/id"
	"stockflow/internal/domain/catalog"
)

func dec(v int64) decimal.Decimal { return decimal.NewFromInt(v) }

func decPtr(v int64) *decimal.Decimal {
	d := decimal.NewFromInt(v)
	return &d
}

func TestDeriveStatus(t *testing.T) {
	tests := []struct {
		name   string
		levels Levels
		want   StockStatus
	}{
		{"below min", Levels{Current: dec(5), Min: decPtr(10)}, StatusLowStock},
		{"empty without min", Levels{Current: dec(0)}, StatusOutOfStock},
		{"empty with zero min", Levels{Current: dec(0), Min: decPtr(0)}, StatusOutOfStock},
		{"empty below min reports low first", Levels{Current: dec(0), Min: decPtr(5)}, StatusLowStock},
		{"fully allocated", Levels{Current: dec(10), Allocated: dec(10)}, StatusOutOfStock},
		{"over allocated", Levels{Current: dec(5), Allocated: dec(7)}, StatusLowStock},
		{"incoming pushes over max", Levels{Current: dec(8), Future: dec(5), Max: decPtr(10)}, StatusOverStock},
		{"at max", Levels{Current: dec(10), Max: decPtr(10)}, StatusInStock},
		{"unbounded", Levels{Current: dec(1_000_000)}, StatusInStock},
		{"allocation does not hide over stock", Levels{Current: dec(20), Allocated: dec(15), Max: decPtr(10)}, StatusOverStock},
		{"low wins over over", Levels{Current: dec(20), Allocated: dec(18), Future: dec(50), Min: decPtr(5), Max: decPtr(30)}, StatusLowStock},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DeriveStatus(tt.levels))
		})
	}
}

func newAccount(current, future, allocated int64) *Account {
	return &Account{
		Item:           catalog.Product(id.New()),
		CurrentStock:   dec(current),
		FutureStock:    dec(future),
		AllocatedStock: dec(allocated),
		Active:         true,
	}
}

func TestApplyRejectsWithoutSideEffects(t *testing.T) {
	acc := newAccount(10, 2, 4)
	before := *acc

	_, err := acc.applySubtract(DimensionCurrent, dec(11), entryMeta{})
	assert.True(t, apperror.Is(err, apperror.CodeInsufficientStock))

	_, err = acc.applyAllocate(dec(7), entryMeta{})
	assert.True(t, apperror.Is(err, apperror.CodeInsufficientStock))

	_, err = acc.applyMoveFutureToCurrent(dec(3), entryMeta{})
	assert.True(t, apperror.Is(err, apperror.CodeInsufficientStock))

	_, err = acc.applyFulfil(dec(5), entryMeta{})
	assert.True(t, apperror.Is(err, apperror.CodeInsufficientStock))

	_, err = acc.applyAdd(DimensionFuture, dec(0), entryMeta{})
	assert.True(t, apperror.Is(err, apperror.CodeInvalidQuantity))

	_, err = acc.applySet(dec(-1), entryMeta{})
	assert.True(t, apperror.Is(err, apperror.CodeInvalidQuantity))

	assert.Equal(t, before, *acc)
}

func TestApplyMoveFutureToCurrentWritesCounterLeg(t *testing.T) {
	acc := newAccount(10, 5, 0)

	entry, err := acc.applyMoveFutureToCurrent(dec(3), entryMeta{source: SourcePurchaseReceipt, actor: "bob"})
	require.NoError(t, err)

	assert.True(t, acc.CurrentStock.Equal(dec(13)))
	assert.True(t, acc.FutureStock.Equal(dec(2)))

	assert.Equal(t, KindIn, entry.Kind)
	assert.Equal(t, DimensionCurrent, entry.Dimension)
	assert.True(t, entry.Before.Equal(dec(10)))
	assert.True(t, entry.After.Equal(dec(13)))
	require.NotNil(t, entry.Counter)
	assert.Equal(t, DimensionFuture, entry.Counter.Dimension)
	assert.True(t, entry.Counter.Before.Equal(dec(5)))
	assert.True(t, entry.Counter.After.Equal(dec(2)))
	assert.Equal(t, "bob", entry.ActorID)
}

func TestApplyFulfilNeedsAllocationAndStock(t *testing.T) {
	acc := newAccount(10, 0, 4)

	entry, err := acc.applyFulfil(dec(4), entryMeta{source: SourceSaleShipment})
	require.NoError(t, err)

	assert.True(t, acc.CurrentStock.Equal(dec(6)))
	assert.True(t, acc.AllocatedStock.IsZero())
	assert.Equal(t, KindOut, entry.Kind)
	require.NotNil(t, entry.Counter)
	assert.Equal(t, DimensionAllocated, entry.Counter.Dimension)

	b, a, ok := entry.Touches(DimensionAllocated)
	require.True(t, ok)
	assert.True(t, b.Equal(dec(4)))
	assert.True(t, a.IsZero())

	_, _, ok = entry.Touches(DimensionFuture)
	assert.False(t, ok)
}

func TestSourceTypesApplyToKinds(t *testing.T) {
	assert.True(t, SourceAdjustment.AppliesTo(catalog.KindMaterial))
	assert.True(t, SourceAdjustment.AppliesTo(catalog.KindProduct))
	assert.True(t, SourceProductionConsumption.AppliesTo(catalog.KindMaterial))
	assert.False(t, SourceProductionConsumption.AppliesTo(catalog.KindProduct))
	assert.False(t, SourceSaleAllocation.AppliesTo(catalog.KindMaterial))
	assert.False(t, SourceType("MAGIC").Valid())

	types := SourceTypes()
	assert.Len(t, types, len(sources))
	assert.Equal(t, SourceInitial, types[0])
}
