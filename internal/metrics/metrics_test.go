package metrics

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/ginjaninja78/salesrecon/internal/types"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestNet(t *testing.T) {
	tests := []struct {
		name    string
		figures types.Figures
		amount  string
		qty     string
		txns    string
	}{
		{
			name: "losses and returns subtracted",
			figures: types.Figures{
				GrossAmount: d("200.00"), LossAmount: d("50.00"), ReturnedAmount: d("0"),
				GrossQuantity: d("10"), LossQuantity: d("2"), ReturnedQuantity: d("1"),
				TransactionCount: d("8"), LossTransactionCount: d("1"), ReturnedTransactionCount: d("1"),
			},
			amount: "150", qty: "7", txns: "6",
		},
		{
			name: "discounts are not subtracted",
			figures: types.Figures{
				GrossAmount: d("100"), DiscountedAmount: d("30"),
				GrossQuantity: d("4"), DiscountedQuantity: d("4"),
			},
			amount: "100", qty: "4", txns: "0",
		},
		{
			name: "negative net is kept",
			figures: types.Figures{
				GrossAmount: d("10"), ReturnedAmount: d("25.5"),
			},
			amount: "-15.5", qty: "0", txns: "0",
		},
		{
			name:    "zero row",
			figures: types.Figures{},
			amount:  "0", qty: "0", txns: "0",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n := Net(tt.figures)
			assert.Equal(t, tt.amount, n.NetAmount.String())
			assert.Equal(t, tt.qty, n.NetQuantity.String())
			assert.Equal(t, tt.txns, n.NetTransactions.String())
		})
	}
}

func TestNet_ExactDecimalArithmetic(t *testing.T) {
	n := Net(types.Figures{GrossAmount: d("0.3"), LossAmount: d("0.1"), ReturnedAmount: d("0.2")})
	assert.True(t, n.NetAmount.IsZero())
}

func TestComputeAll_KeepsKindAndOrder(t *testing.T) {
	rows := []types.ClassifiedRow{
		{NormalizedRow: types.NormalizedRow{Row: 1, Figures: types.Figures{GrossAmount: d("5")}}, Kind: types.KindCategory},
		{NormalizedRow: types.NormalizedRow{Row: 2, ProductID: "A", Figures: types.Figures{GrossAmount: d("5")}}, Kind: types.KindProduct},
	}

	out := ComputeAll(rows)
	assert.Len(t, out, 2)
	assert.Equal(t, types.KindCategory, out[0].Kind)
	assert.Equal(t, types.KindProduct, out[1].Kind)
	assert.Equal(t, 2, out[1].Row)
	assert.Equal(t, "5", out[1].NetAmount.String())
}
