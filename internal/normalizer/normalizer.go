// =============================================================================
// Sales Reconciliation Engine - Column Normalizer
// =============================================================================
//
// The normalizer maps heterogeneous sheet columns onto the canonical schema
// in two steps:
//   1. Bind: resolve every canonical field against the sheet header once.
//      A required numeric field with no alias in the header is a SchemaError.
//   2. Normalize: read one raw row through the binding. Cells that cannot be
//      read as numbers become zero and are counted per source column.
//
// A field missing from a single row is a zero. A field missing from the whole
// header is a schema problem only when that field is required.
//
// =============================================================================

package normalizer

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/schollz/closestmatch"
	"github.com/shopspring/decimal"

	"github.com/ginjaninja78/salesrecon/internal/types"
)

// =============================================================================
// ERRORS
// =============================================================================

// SchemaError reports a required canonical field that no header column
// satisfies. It aborts the load.
type SchemaError struct {
	// Field is the canonical field that could not be bound.
	Field types.Field

	// Aliases are the labels that would have been accepted.
	Aliases []string

	// Suggestion is the header label closest to the first alias, if any.
	Suggestion string
}

// Error implements the error interface.
func (e *SchemaError) Error() string {
	msg := fmt.Sprintf("required field %q has no matching column (accepted: %s)",
		e.Field, strings.Join(quoteAll(e.Aliases), ", "))
	if e.Suggestion != "" {
		msg += fmt.Sprintf("; closest header is %q", e.Suggestion)
	}
	return msg
}

func quoteAll(labels []string) []string {
	out := make([]string, len(labels))
	for i, l := range labels {
		out[i] = strconv.Quote(l)
	}
	return out
}

// =============================================================================
// COERCION COUNTERS
// =============================================================================

// Failures counts cells that could not be coerced, keyed by source column.
type Failures map[string]int

// Merge adds the counts of o into f.
func (f Failures) Merge(o Failures) {
	for col, n := range o {
		f[col] += n
	}
}

// Total returns the number of failed cells across all columns.
func (f Failures) Total() int {
	total := 0
	for _, n := range f {
		total += n
	}
	return total
}

// Columns returns the columns with at least one failure, sorted.
func (f Failures) Columns() []string {
	cols := make([]string, 0, len(f))
	for col, n := range f {
		if n > 0 {
			cols = append(cols, col)
		}
	}
	sort.Strings(cols)
	return cols
}

// =============================================================================
// NORMALIZER
// =============================================================================

// Normalizer holds the alias table and the list of required fields.
// It has no mutable state and may be shared between goroutines.
type Normalizer struct {
	aliases  AliasTable
	required []types.Field
}

// New creates a Normalizer. A nil table uses DefaultAliases.
func New(aliases AliasTable, required []types.Field) *Normalizer {
	if aliases == nil {
		aliases = DefaultAliases()
	}
	return &Normalizer{
		aliases:  aliases,
		required: required,
	}
}

// Aliases returns the table the normalizer resolves against.
func (n *Normalizer) Aliases() AliasTable {
	return n.aliases
}

// Binding is the resolved column for each canonical field of one sheet.
type Binding struct {
	columns map[types.Field]string
}

// Column returns the source column bound to field, or "".
func (b *Binding) Column(field types.Field) string {
	return b.columns[field]
}

// Bound reports whether field resolved to a header column.
func (b *Binding) Bound(field types.Field) bool {
	_, ok := b.columns[field]
	return ok
}

// Bind resolves the alias table against a sheet header.
//
// PARAMETERS:
//   - header: the column labels declared by the sheet, matched case-sensitively.
//
// RETURNS:
//   - The binding used by Normalize.
//   - A *SchemaError when a required field has no matching column.
func (n *Normalizer) Bind(header []string) (*Binding, error) {
	present := make(map[string]bool, len(header))
	for _, h := range header {
		present[h] = true
	}

	binding := &Binding{columns: make(map[types.Field]string)}
	for field, labels := range n.aliases {
		for _, label := range labels {
			if present[label] {
				binding.columns[field] = label
				break
			}
		}
	}

	for _, field := range n.required {
		if binding.Bound(field) {
			continue
		}
		return nil, &SchemaError{
			Field:      field,
			Aliases:    n.aliases[field],
			Suggestion: suggest(header, n.aliases[field]),
		}
	}

	return binding, nil
}

// suggest returns the header label closest to the first accepted alias.
func suggest(header, aliases []string) string {
	if len(header) == 0 || len(aliases) == 0 {
		return ""
	}
	cm := closestmatch.New(header, []int{2, 3})
	return cm.Closest(aliases[0])
}

// Normalize reads one raw row through the binding.
//
// PARAMETERS:
//   - row: the raw cells keyed by header label.
//   - rowNumber: the 1-based sheet row number.
//   - failures: receives one count per cell that could not be coerced.
//
// RETURNS:
//   - A NormalizedRow with every numeric field set, zero when absent.
func (b *Binding) Normalize(row types.RawRow, rowNumber int, failures Failures) types.NormalizedRow {
	out := types.NormalizedRow{Row: rowNumber}

	for _, field := range types.NumericFields {
		col, ok := b.columns[field]
		if !ok {
			out.Set(field, decimal.Zero)
			continue
		}

		v, ok := Coerce(row[col])
		if !ok {
			failures[col]++
		}
		out.Set(field, v)
	}

	if col, ok := b.columns[types.FieldProductID]; ok {
		out.ProductID = CellText(row[col])
	}

	if col, ok := b.columns[types.FieldLabel]; ok {
		out.Label = CellText(row[col])
	}
	if out.Label == "" {
		if out.ProductID != "" {
			out.Label = out.ProductID
		} else {
			out.Label = fmt.Sprintf("Row %d", rowNumber)
		}
	}

	return out
}

// CellText renders a raw cell as trimmed text.
func CellText(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case decimal.Decimal:
		return t.String()
	default:
		return strings.TrimSpace(fmt.Sprintf("%v", t))
	}
}
