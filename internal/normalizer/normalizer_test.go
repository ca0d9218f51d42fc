package normalizer

import (
	"errors"
	"math"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ginjaninja78/salesrecon/internal/types"
)

func TestCoerce(t *testing.T) {
	tests := []struct {
		name   string
		in     any
		want   string
		wantOK bool
	}{
		{"nil", nil, "0", true},
		{"empty string", "", "0", true},
		{"whitespace", "   ", "0", true},
		{"currency", "$1,000.00", "1000", true},
		{"plain number string", "42.5", "42.5", true},
		{"negative", "-12.25", "-12.25", true},
		{"accounting negative", "(12.50)", "-12.5", true},
		{"accounting negative with currency", "($1,200.00)", "-1200", true},
		{"percent", "12%", "0.12", true},
		{"lone dash", "-", "0", true},
		{"currency dash", "$-", "0", true},
		{"not a number", "N/A", "0", false},
		{"text", "abc", "0", false},
		{"NaN text", "NaN", "0", false},
		{"float", 12.5, "12.5", true},
		{"NaN float", math.NaN(), "0", false},
		{"Inf float", math.Inf(1), "0", false},
		{"int", 7, "7", true},
		{"int64", int64(9), "9", true},
		{"decimal", decimal.RequireFromString("3.14"), "3.14", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Coerce(tt.in)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got.String())
		})
	}
}

func TestBind_PriorityOrder(t *testing.T) {
	n := New(nil, []types.Field{types.FieldGrossAmount})

	// "Total sales" outranks "Sales" regardless of header order.
	b, err := n.Bind([]string{"Sales", "Category", "Total sales"})
	require.NoError(t, err)

	assert.Equal(t, "Total sales", b.Column(types.FieldGrossAmount))
	assert.Equal(t, "Category", b.Column(types.FieldLabel))
	assert.False(t, b.Bound(types.FieldLossAmount))
}

func TestBind_CaseSensitive(t *testing.T) {
	n := New(nil, []types.Field{types.FieldGrossAmount})

	_, err := n.Bind([]string{"Category", "total sales"})
	require.Error(t, err)

	var schemaErr *SchemaError
	require.True(t, errors.As(err, &schemaErr))
	assert.Equal(t, types.FieldGrossAmount, schemaErr.Field)
	assert.Contains(t, schemaErr.Aliases, "Total sales")
	assert.Equal(t, "total sales", schemaErr.Suggestion)
	assert.Contains(t, err.Error(), `closest header is "total sales"`)
}

func TestBind_OptionalFieldMissing(t *testing.T) {
	n := New(nil, []types.Field{types.FieldGrossAmount})

	b, err := n.Bind([]string{"Amount"})
	require.NoError(t, err)
	assert.True(t, b.Bound(types.FieldGrossAmount))
	assert.False(t, b.Bound(types.FieldTransactionCount))
}

func TestNormalize(t *testing.T) {
	n := New(nil, []types.Field{types.FieldGrossAmount})
	b, err := n.Bind([]string{"SKU", "Item Name", "Transaction Amount", "Loss Amount", "Returned Amount", "Qty"})
	require.NoError(t, err)

	failures := make(Failures)
	row := b.Normalize(types.RawRow{
		"SKU":                " A-100 ",
		"Item Name":          "Negroni",
		"Transaction Amount": "$200.00",
		"Loss Amount":        "$50.00",
		"Returned Amount":    "n/a",
		"Qty":                nil,
	}, 7, failures)

	assert.Equal(t, 7, row.Row)
	assert.Equal(t, "A-100", row.ProductID)
	assert.Equal(t, "Negroni", row.Label)
	assert.Equal(t, "200", row.GrossAmount.String())
	assert.Equal(t, "50", row.LossAmount.String())
	assert.True(t, row.ReturnedAmount.IsZero())
	assert.True(t, row.GrossQuantity.IsZero())

	// Unbound fields are explicit zeros.
	assert.True(t, row.DiscountedAmount.IsZero())

	assert.Equal(t, Failures{"Returned Amount": 1}, failures)
	assert.Equal(t, 1, failures.Total())
}

func TestNormalize_LabelFallback(t *testing.T) {
	n := New(nil, nil)
	b, err := n.Bind([]string{"SKU", "Amount"})
	require.NoError(t, err)

	failures := make(Failures)

	withID := b.Normalize(types.RawRow{"SKU": "X1", "Amount": "5"}, 2, failures)
	assert.Equal(t, "X1", withID.Label)

	withoutID := b.Normalize(types.RawRow{"Amount": "5"}, 3, failures)
	assert.Equal(t, "Row 3", withoutID.Label)
}

func TestAliasTable_Merge(t *testing.T) {
	base := DefaultAliases()
	merged := base.Merge(map[types.Field][]string{
		types.FieldGrossAmount: {"Net Revenue", "Sales", ""},
	})

	labels := merged[types.FieldGrossAmount]
	require.NotEmpty(t, labels)
	assert.Equal(t, "Net Revenue", labels[0])
	assert.Equal(t, "Sales", labels[1])
	assert.NotContains(t, labels, "")

	count := 0
	for _, l := range labels {
		if l == "Sales" {
			count++
		}
	}
	assert.Equal(t, 1, count)

	// The base table is left untouched.
	assert.Equal(t, "Total sales", base[types.FieldGrossAmount][0])
}

func TestFailures_MergeAndColumns(t *testing.T) {
	f := Failures{"B": 1}
	f.Merge(Failures{"A": 2, "B": 3})

	assert.Equal(t, Failures{"A": 2, "B": 4}, f)
	assert.Equal(t, []string{"A", "B"}, f.Columns())
	assert.Equal(t, 6, f.Total())
}
