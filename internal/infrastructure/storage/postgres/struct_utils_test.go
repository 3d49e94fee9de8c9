package postgres

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"stockflow/internal/core/entity"
	"stockflow/internal/core/id"
)

type mockRow struct {
	entity.BaseEntity
	Name     string          `db:"name"`
	Quantity decimal.Decimal `db:"quantity"`
	Ignored  string          `db:"-"`
	Plain    string
	StoredNote
}

func TestExtractDBColumns(t *testing.T) {
	cols := ExtractDBColumns[mockRow]()

	assert.Equal(t, []string{
		"id", "version", "name", "quantity", "note", "note_compressed", "note_compression",
	}, cols)
}

func TestStructToMap(t *testing.T) {
	row := mockRow{
		BaseEntity: entity.BaseEntity{ID: id.New(), Version: 5},
		Name:       "Steel sheet",
		Quantity:   decimal.RequireFromString("2.5"),
		Ignored:    "x",
		StoredNote: StoredNote{Text: "ok", Algo: CompressionNone},
	}

	m := StructToMap(&row)

	assert.Equal(t, row.ID, m["id"])
	assert.Equal(t, 5, m["version"])
	assert.Equal(t, "Steel sheet", m["name"])
	assert.True(t, decimal.RequireFromString("2.5").Equal(m["quantity"].(decimal.Decimal)))
	assert.Equal(t, "ok", m["note"])
	assert.NotContains(t, m, "Ignored")
	assert.NotContains(t, m, "Plain")
}

func TestValuesOf(t *testing.T) {
	now := time.Now()
	type row struct {
		A string    `db:"a"`
		B time.Time `db:"b"`
	}

	vals := ValuesOf(row{A: "x", B: now}, []string{"b", "a", "missing"})

	assert.Equal(t, []any{now, "x", nil}, vals)
}
