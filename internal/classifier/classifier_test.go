package classifier

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ginjaninja78/salesrecon/internal/types"
)

func row(n int, productID string, gross, qty, loss int64) types.NormalizedRow {
	r := types.NormalizedRow{Row: n, ProductID: productID, Label: "r"}
	r.GrossAmount = decimal.NewFromInt(gross)
	r.GrossQuantity = decimal.NewFromInt(qty)
	r.LossAmount = decimal.NewFromInt(loss)
	return r
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name     string
		row      types.NormalizedRow
		wantKind types.RowKind
		wantKeep bool
	}{
		{"product with figures", row(1, "SKU1", 10, 1, 0), types.KindProduct, true},
		{"product without figures", row(2, "SKU2", 0, 0, 0), types.KindProduct, true},
		{"category by amount", row(3, "", 100, 0, 0), types.KindCategory, true},
		{"category by quantity only", row(4, "", 0, 5, 0), types.KindCategory, true},
		{"category by loss only", row(5, "", 0, 0, 3), types.KindCategory, true},
		{"blank separator", row(6, "", 0, 0, 0), "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			kind, keep := Classify(tt.row)
			assert.Equal(t, tt.wantKeep, keep)
			assert.Equal(t, tt.wantKind, kind)
		})
	}
}

func TestClassify_QuantityFieldsAloneAreNotActivity(t *testing.T) {
	r := row(1, "", 0, 0, 0)
	r.LossQuantity = decimal.NewFromInt(4)
	r.DiscountedTransactionCount = decimal.NewFromInt(2)

	_, keep := Classify(r)
	assert.False(t, keep)
}

func TestClassifyAll_PreservesOrderAndCountsDropped(t *testing.T) {
	in := []types.NormalizedRow{
		row(1, "", 100, 0, 0),
		row(2, "", 0, 0, 0),
		row(3, "A", 60, 0, 0),
		row(4, "B", 40, 0, 0),
		row(5, "", 0, 0, 0),
	}

	res := ClassifyAll(in)
	require.Len(t, res.Rows, 3)
	assert.Equal(t, 2, res.Dropped)

	assert.Equal(t, 1, res.Rows[0].Row)
	assert.Equal(t, types.KindCategory, res.Rows[0].Kind)
	assert.Equal(t, 3, res.Rows[1].Row)
	assert.Equal(t, types.KindProduct, res.Rows[1].Kind)
	assert.Equal(t, 4, res.Rows[2].Row)
}
