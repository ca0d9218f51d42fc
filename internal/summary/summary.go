// =============================================================================
// Sales Reconciliation Engine - Summary Reporter
// =============================================================================
//
// The summary is the fixed set of portfolio KPIs consumed by dashboards:
//   - total net sales, quantity and transactions (straight sums)
//   - total discounted and loss amounts (absolute value of the sums)
//   - average transaction value, discount rate and loss rate
//
// Ratios with a zero denominator are reported as an explicit "undefined"
// value. Totals are always computed from row data.
//
// =============================================================================

package summary

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/ginjaninja78/salesrecon/internal/hierarchy"
	"github.com/ginjaninja78/salesrecon/internal/types"
)

var hundred = decimal.NewFromInt(100)

// Summary is an immutable snapshot computed once per run.
type Summary struct {
	TotalNetSales         decimal.Decimal `json:"total_net_sales" yaml:"total_net_sales"`
	TotalNetQuantity      decimal.Decimal `json:"total_net_quantity" yaml:"total_net_quantity"`
	TotalNetTransactions  decimal.Decimal `json:"total_net_transactions" yaml:"total_net_transactions"`
	TotalDiscountedAmount decimal.Decimal `json:"total_discounted_amount" yaml:"total_discounted_amount"`
	TotalLossAmount       decimal.Decimal `json:"total_loss_amount" yaml:"total_loss_amount"`

	AvgTransactionValue Ratio `json:"avg_transaction_value" yaml:"avg_transaction_value"`
	DiscountRate        Ratio `json:"discount_rate" yaml:"discount_rate"`
	LossRate            Ratio `json:"loss_rate" yaml:"loss_rate"`

	// Rows is the number of metric rows the totals were summed over.
	Rows int `json:"rows" yaml:"rows"`
}

// =============================================================================
// BASIS
// =============================================================================

// Basis selects which rows feed the totals.
type Basis string

const (
	// BasisRows sums every category and product row (grand totals excluded).
	BasisRows Basis = "rows"

	// BasisCategories sums declared category rows plus the products of the
	// implicit category, so subtotal and detail rows are not both counted.
	BasisCategories Basis = "categories"
)

// ParseBasis validates a basis name. Empty means BasisRows.
func ParseBasis(s string) (Basis, error) {
	switch Basis(s) {
	case "", BasisRows:
		return BasisRows, nil
	case BasisCategories:
		return BasisCategories, nil
	}
	return "", fmt.Errorf("unknown summary basis %q (want rows or categories)", s)
}

// =============================================================================
// COMPUTATION
// =============================================================================

// Compute derives the summary from a set of metric rows.
// Callers exclude grand-total rows before calling.
func Compute(rows []types.MetricRow) Summary {
	var totals types.Totals
	for _, r := range rows {
		totals.Include(r)
	}

	s := Summary{
		TotalNetSales:         totals.NetAmount,
		TotalNetQuantity:      totals.NetQuantity,
		TotalNetTransactions:  totals.NetTransactions,
		TotalDiscountedAmount: totals.DiscountedAmount.Abs(),
		TotalLossAmount:       totals.LossAmount.Abs(),
		Rows:                  totals.Rows,
	}

	s.AvgTransactionValue = NewRatio(s.TotalNetSales, s.TotalNetTransactions)
	s.DiscountRate = NewRatio(s.TotalDiscountedAmount, s.TotalNetSales)
	s.LossRate = NewRatio(s.TotalLossAmount, s.TotalNetSales)

	return s
}

// CategoryRows returns the rows used by BasisCategories: each declared
// category row, and the products of categories without one.
func CategoryRows(tree hierarchy.Tree) []types.MetricRow {
	var rows []types.MetricRow
	for i := range tree.Categories {
		c := &tree.Categories[i]
		if c.Declared != nil {
			rows = append(rows, *c.Declared)
			continue
		}
		rows = append(rows, c.Products...)
	}
	return rows
}

// =============================================================================
// CATEGORY SHARES
// =============================================================================

// Share is one category's portion of total category net sales.
type Share struct {
	Category  string          `json:"category" yaml:"category"`
	NetAmount decimal.Decimal `json:"net_amount" yaml:"net_amount"`

	// Percent is 0-100, undefined when the category total is zero.
	Percent Ratio `json:"percent" yaml:"percent"`
}

// CategoryShares returns each category's percent of the summed category
// net amounts, in tree order.
func CategoryShares(tree hierarchy.Tree) []Share {
	total := decimal.Zero
	for i := range tree.Categories {
		total = total.Add(tree.Categories[i].NetAmount())
	}

	shares := make([]Share, 0, len(tree.Categories))
	for i := range tree.Categories {
		c := &tree.Categories[i]
		net := c.NetAmount()
		shares = append(shares, Share{
			Category:  c.Label,
			NetAmount: net,
			Percent:   NewRatio(net, total).Percent(),
		})
	}
	return shares
}

// =============================================================================
// GRAND TOTAL CROSS-CHECK
// =============================================================================

// GrandTotalCheck compares a grand-total row with the computed summary.
type GrandTotalCheck struct {
	Label    string          `json:"label" yaml:"label"`
	Row      int             `json:"row" yaml:"row"`
	Declared decimal.Decimal `json:"declared" yaml:"declared"`
	Computed decimal.Decimal `json:"computed" yaml:"computed"`
	Delta    decimal.Decimal `json:"delta" yaml:"delta"`
	Matches  bool            `json:"matches" yaml:"matches"`
}

// CheckGrandTotals compares each grand-total row's net amount with the
// summary's total net sales. s should be computed over CategoryRows so that
// subtotals are not counted together with their products.
func CheckGrandTotals(grand []types.MetricRow, s Summary, tol hierarchy.Tolerance) []GrandTotalCheck {
	checks := make([]GrandTotalCheck, 0, len(grand))
	for _, g := range grand {
		delta := g.NetAmount.Sub(s.TotalNetSales)
		checks = append(checks, GrandTotalCheck{
			Label:    g.Label,
			Row:      g.Row,
			Declared: g.NetAmount,
			Computed: s.TotalNetSales,
			Delta:    delta,
			Matches:  !tol.Exceeded(g.NetAmount, delta),
		})
	}
	return checks
}
