// Package classifier tags normalized rows as category subtotals or product
// detail rows.
//
// A row with a product identifier is always a product. A row without one is
// a category when any gross or amount figure is non-zero. Rows that are
// neither (blank separator rows) are dropped. The decision is per row; order
// is preserved so that the aggregator can recover positional ownership.
package classifier

import (
	"github.com/shopspring/decimal"

	"github.com/ginjaninja78/salesrecon/internal/types"
)

// Result is the classified sequence plus the count of dropped blank rows.
type Result struct {
	Rows    []types.ClassifiedRow
	Dropped int
}

// Classify returns the kind of a single row and whether it is kept.
func Classify(row types.NormalizedRow) (types.RowKind, bool) {
	if row.ProductID != "" {
		return types.KindProduct, true
	}
	if hasActivity(row.Figures) {
		return types.KindCategory, true
	}
	return "", false
}

// ClassifyAll tags every row in order and drops blank rows.
func ClassifyAll(rows []types.NormalizedRow) Result {
	res := Result{Rows: make([]types.ClassifiedRow, 0, len(rows))}
	for _, row := range rows {
		kind, keep := Classify(row)
		if !keep {
			res.Dropped++
			continue
		}
		res.Rows = append(res.Rows, types.ClassifiedRow{NormalizedRow: row, Kind: kind})
	}
	return res
}

// hasActivity reports whether any gross or amount figure is non-zero.
func hasActivity(f types.Figures) bool {
	for _, v := range []decimal.Decimal{
		f.GrossAmount,
		f.GrossQuantity,
		f.TransactionCount,
		f.LossAmount,
		f.ReturnedAmount,
		f.DiscountedAmount,
	} {
		if !v.IsZero() {
			return true
		}
	}
	return false
}
