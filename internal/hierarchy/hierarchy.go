// =============================================================================
// Sales Reconciliation Engine - Hierarchy Aggregator
// =============================================================================
//
// The aggregator rebuilds the category -> product tree implied by sheet
// layout and checks every category subtotal against its products.
//
// OWNERSHIP RULE:
//   A single top-to-bottom scan. A category row opens a new category and
//   closes the previous one. A product row is appended to the open category.
//   Products seen before any category row belong to an implicit
//   "Uncategorized" category that has no declared total.
//
// GRAND TOTALS:
//   Category rows whose label matches the grand-total pattern are set aside.
//   They do not open a category and are kept for summary cross-checks.
//
// RECONCILIATION:
//   For each category with a declared row and at least one product, the
//   products are summed and the net amount is compared with the declared net
//   amount. A mismatch is collected as a ReconciliationWarning; the tree is
//   returned unchanged.
//
// =============================================================================

package hierarchy

import (
	"regexp"

	"github.com/shopspring/decimal"

	"github.com/ginjaninja78/salesrecon/internal/types"
)

// DefaultUncategorizedLabel names the implicit category.
const DefaultUncategorizedLabel = "Uncategorized"

// DefaultGrandTotalPattern matches labels such as "Grand Total".
const DefaultGrandTotalPattern = `(?i)^\s*grand`

// =============================================================================
// TREE TYPES
// =============================================================================

// Category is a subtotal row and the product rows it owns.
type Category struct {
	// Label is the category row's label text.
	Label string `json:"label" yaml:"label"`

	// Position is the sheet row number of the category row.
	// Zero for the implicit category.
	Position int `json:"position" yaml:"position"`

	// Implicit marks the category that collects products seen before the
	// first category row.
	Implicit bool `json:"implicit,omitempty" yaml:"implicit,omitempty"`

	// Declared is the category row's own metrics. Nil for the implicit category.
	Declared *types.MetricRow `json:"declared,omitempty" yaml:"declared,omitempty"`

	// Computed is the sum over Products.
	Computed types.Totals `json:"computed" yaml:"computed"`

	// Products are the owned product rows in sheet order.
	Products []types.MetricRow `json:"products" yaml:"products"`
}

// NetAmount returns the declared net amount, or the computed one when the
// category has no declared row.
func (c *Category) NetAmount() decimal.Decimal {
	if c.Declared != nil {
		return c.Declared.NetAmount
	}
	return c.Computed.NetAmount
}

// ReconciliationWarning reports a category whose declared total does not
// match the sum of its products.
type ReconciliationWarning struct {
	Category string          `json:"category" yaml:"category"`
	Row      int             `json:"row" yaml:"row"`
	Declared decimal.Decimal `json:"declared" yaml:"declared"`
	Computed decimal.Decimal `json:"computed" yaml:"computed"`

	// Delta is Declared - Computed.
	Delta decimal.Decimal `json:"delta" yaml:"delta"`
}

// Tree is the output of Build.
type Tree struct {
	Categories  []Category              `json:"categories" yaml:"categories"`
	GrandTotals []types.MetricRow       `json:"grand_totals,omitempty" yaml:"grand_totals,omitempty"`
	Warnings    []ReconciliationWarning `json:"warnings" yaml:"warnings"`
}

// Products returns every product in the tree in sheet order.
func (t *Tree) Products() []types.MetricRow {
	var out []types.MetricRow
	for i := range t.Categories {
		out = append(out, t.Categories[i].Products...)
	}
	return out
}

// =============================================================================
// OPTIONS
// =============================================================================

// Tolerance bounds an acceptable reconciliation delta.
type Tolerance struct {
	// Abs is the absolute tolerance in currency units.
	Abs decimal.Decimal

	// Rel is the tolerance relative to the declared value (0.005 = 0.5%).
	Rel decimal.Decimal
}

// DefaultTolerance returns 0.01 absolute and 0.5% relative.
func DefaultTolerance() Tolerance {
	return Tolerance{
		Abs: decimal.RequireFromString("0.01"),
		Rel: decimal.RequireFromString("0.005"),
	}
}

// Exceeded reports whether delta is outside tolerance for the declared value.
// The absolute bound always applies; the relative bound applies when the
// declared value is non-zero.
func (t Tolerance) Exceeded(declared, delta decimal.Decimal) bool {
	abs := delta.Abs()
	if abs.GreaterThan(t.Abs) {
		return true
	}
	if declared.IsZero() {
		return false
	}
	return abs.Div(declared.Abs()).GreaterThan(t.Rel)
}

// Options configures Build.
type Options struct {
	Tolerance Tolerance

	// GrandTotal matches labels of rows to set aside. Nil disables exclusion.
	GrandTotal *regexp.Regexp

	// UncategorizedLabel names the implicit category.
	UncategorizedLabel string
}

// DefaultOptions returns the default tolerance, grand-total pattern and label.
func DefaultOptions() Options {
	return Options{
		Tolerance:          DefaultTolerance(),
		GrandTotal:         regexp.MustCompile(DefaultGrandTotalPattern),
		UncategorizedLabel: DefaultUncategorizedLabel,
	}
}

// IsGrandTotal reports whether a row is a grand-total row under opts.
func (o Options) IsGrandTotal(row types.MetricRow) bool {
	return row.Kind == types.KindCategory && o.GrandTotal != nil && o.GrandTotal.MatchString(row.Label)
}

// =============================================================================
// BUILD
// =============================================================================

// Build scans classified metric rows and returns the category tree.
//
// PARAMETERS:
//   - rows: metric rows in sheet order, each tagged category or product.
//   - opts: tolerance, grand-total pattern, implicit category label.
//
// RETURNS:
//   - The tree with reconciliation warnings collected.
func Build(rows []types.MetricRow, opts Options) Tree {
	if opts.UncategorizedLabel == "" {
		opts.UncategorizedLabel = DefaultUncategorizedLabel
	}

	tree := Tree{
		Categories: []Category{},
		Warnings:   []ReconciliationWarning{},
	}
	open := -1

	for _, row := range rows {
		switch row.Kind {
		case types.KindCategory:
			if opts.IsGrandTotal(row) {
				tree.GrandTotals = append(tree.GrandTotals, row)
				continue
			}
			declared := row
			tree.Categories = append(tree.Categories, Category{
				Label:    row.Label,
				Position: row.Row,
				Declared: &declared,
				Products: []types.MetricRow{},
			})
			open = len(tree.Categories) - 1

		case types.KindProduct:
			if open < 0 {
				tree.Categories = append(tree.Categories, Category{
					Label:    opts.UncategorizedLabel,
					Implicit: true,
					Products: []types.MetricRow{},
				})
				open = len(tree.Categories) - 1
			}
			cat := &tree.Categories[open]
			cat.Products = append(cat.Products, row)
			cat.Computed.Include(row)
		}
	}

	for i := range tree.Categories {
		if w, ok := reconcile(&tree.Categories[i], opts.Tolerance); ok {
			tree.Warnings = append(tree.Warnings, w)
		}
	}

	return tree
}

// reconcile compares a category's declared net amount with its products.
func reconcile(c *Category, tol Tolerance) (ReconciliationWarning, bool) {
	if c.Declared == nil || len(c.Products) == 0 {
		return ReconciliationWarning{}, false
	}

	declared := c.Declared.NetAmount
	computed := c.Computed.NetAmount
	delta := declared.Sub(computed)

	if !tol.Exceeded(declared, delta) {
		return ReconciliationWarning{}, false
	}

	return ReconciliationWarning{
		Category: c.Label,
		Row:      c.Position,
		Declared: declared,
		Computed: computed,
		Delta:    delta,
	}, true
}
