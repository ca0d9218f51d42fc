// Package metrics derives the net measures of a row.
//
// Net figures subtract losses and returns from gross. Discounts are carried
// through untouched: gross figures already reflect applied discounts, so the
// discount is reported as an informational rate only.
package metrics

import (
	"github.com/ginjaninja78/salesrecon/internal/types"
)

// Net computes the three net measures of a figure set.
// Each measure is computed independently from its own gross, loss and
// returned inputs.
func Net(f types.Figures) types.NetFigures {
	return types.NetFigures{
		NetAmount:       f.GrossAmount.Sub(f.LossAmount).Sub(f.ReturnedAmount),
		NetQuantity:     f.GrossQuantity.Sub(f.LossQuantity).Sub(f.ReturnedQuantity),
		NetTransactions: f.TransactionCount.Sub(f.LossTransactionCount).Sub(f.ReturnedTransactionCount),
	}
}

// Compute produces the MetricRow of a normalized row.
func Compute(row types.NormalizedRow) types.MetricRow {
	return types.MetricRow{
		NormalizedRow: row,
		NetFigures:    Net(row.Figures),
	}
}

// ComputeClassified produces the MetricRow of a classified row, keeping its kind.
func ComputeClassified(row types.ClassifiedRow) types.MetricRow {
	m := Compute(row.NormalizedRow)
	m.Kind = row.Kind
	return m
}

// ComputeAll maps ComputeClassified over rows in order.
func ComputeAll(rows []types.ClassifiedRow) []types.MetricRow {
	out := make([]types.MetricRow, len(rows))
	for i, row := range rows {
		out[i] = ComputeClassified(row)
	}
	return out
}
