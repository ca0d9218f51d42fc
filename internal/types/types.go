// =============================================================================
// Sales Reconciliation Engine - Shared Types
// =============================================================================
//
// This package contains the row and table types shared by every stage of the
// reconciliation pipeline. Keeping them here avoids import cycles between:
//   - normalizer
//   - classifier
//   - metrics
//   - hierarchy
//   - summary
//
// All monetary and count figures are decimal.Decimal so that reconciliation
// deltas are exact and repeated runs produce identical output.
//
// =============================================================================

package types

import (
	"github.com/shopspring/decimal"
)

// =============================================================================
// INPUT TYPES
// =============================================================================

// RawRow is one spreadsheet row keyed by header label.
// Values are string, float64, int, int64, decimal.Decimal, or nil for blank.
type RawRow map[string]any

// Table is an in-memory sheet handed to the engine by a sheet reader.
type Table struct {
	// Source identifies where the table came from (file name, sheet).
	// Used in logs and reports only.
	Source string

	// Header is the ordered list of column labels declared by the sheet.
	Header []string

	// Rows holds the data rows in sheet order.
	Rows []RawRow

	// FirstRow is the 1-based sheet row number of Rows[0].
	// Zero means rows are numbered from 1.
	FirstRow int
}

// RowNumber returns the sheet row number for the row at index i.
func (t *Table) RowNumber(i int) int {
	if t.FirstRow <= 0 {
		return i + 1
	}
	return t.FirstRow + i
}

// =============================================================================
// CANONICAL FIELDS
// =============================================================================

// Field names a canonical column of the normalized schema.
type Field string

const (
	FieldProductID                  Field = "product_id"
	FieldLabel                      Field = "label"
	FieldGrossAmount                Field = "gross_amount"
	FieldGrossQuantity              Field = "gross_quantity"
	FieldTransactionCount           Field = "transaction_count"
	FieldLossAmount                 Field = "loss_amount"
	FieldLossQuantity               Field = "loss_quantity"
	FieldLossTransactionCount       Field = "loss_transaction_count"
	FieldReturnedAmount             Field = "returned_amount"
	FieldReturnedQuantity           Field = "returned_quantity"
	FieldReturnedTransactionCount   Field = "returned_transaction_count"
	FieldDiscountedAmount           Field = "discounted_amount"
	FieldDiscountedQuantity         Field = "discounted_quantity"
	FieldDiscountedTransactionCount Field = "discounted_transaction_count"
)

// NumericFields lists the numeric canonical fields in schema order.
var NumericFields = []Field{
	FieldGrossAmount,
	FieldGrossQuantity,
	FieldTransactionCount,
	FieldLossAmount,
	FieldLossQuantity,
	FieldLossTransactionCount,
	FieldReturnedAmount,
	FieldReturnedQuantity,
	FieldReturnedTransactionCount,
	FieldDiscountedAmount,
	FieldDiscountedQuantity,
	FieldDiscountedTransactionCount,
}

// IsNumeric reports whether f is one of the numeric canonical fields.
func (f Field) IsNumeric() bool {
	for _, n := range NumericFields {
		if n == f {
			return true
		}
	}
	return false
}

// =============================================================================
// NORMALIZED ROWS
// =============================================================================

// Figures holds the twelve numeric fields of the canonical schema.
// A missing source column is an explicit zero, never an absent value.
type Figures struct {
	GrossAmount      decimal.Decimal `json:"gross_amount" yaml:"gross_amount"`
	GrossQuantity    decimal.Decimal `json:"gross_quantity" yaml:"gross_quantity"`
	TransactionCount decimal.Decimal `json:"transaction_count" yaml:"transaction_count"`

	LossAmount           decimal.Decimal `json:"loss_amount" yaml:"loss_amount"`
	LossQuantity         decimal.Decimal `json:"loss_quantity" yaml:"loss_quantity"`
	LossTransactionCount decimal.Decimal `json:"loss_transaction_count" yaml:"loss_transaction_count"`

	ReturnedAmount           decimal.Decimal `json:"returned_amount" yaml:"returned_amount"`
	ReturnedQuantity         decimal.Decimal `json:"returned_quantity" yaml:"returned_quantity"`
	ReturnedTransactionCount decimal.Decimal `json:"returned_transaction_count" yaml:"returned_transaction_count"`

	DiscountedAmount           decimal.Decimal `json:"discounted_amount" yaml:"discounted_amount"`
	DiscountedQuantity         decimal.Decimal `json:"discounted_quantity" yaml:"discounted_quantity"`
	DiscountedTransactionCount decimal.Decimal `json:"discounted_transaction_count" yaml:"discounted_transaction_count"`
}

// Set assigns the value of a numeric canonical field.
// Non-numeric fields are ignored.
func (f *Figures) Set(field Field, v decimal.Decimal) {
	if p := f.ref(field); p != nil {
		*p = v
	}
}

// Get returns the value of a numeric canonical field, or zero.
func (f *Figures) Get(field Field) decimal.Decimal {
	if p := f.ref(field); p != nil {
		return *p
	}
	return decimal.Zero
}

func (f *Figures) ref(field Field) *decimal.Decimal {
	switch field {
	case FieldGrossAmount:
		return &f.GrossAmount
	case FieldGrossQuantity:
		return &f.GrossQuantity
	case FieldTransactionCount:
		return &f.TransactionCount
	case FieldLossAmount:
		return &f.LossAmount
	case FieldLossQuantity:
		return &f.LossQuantity
	case FieldLossTransactionCount:
		return &f.LossTransactionCount
	case FieldReturnedAmount:
		return &f.ReturnedAmount
	case FieldReturnedQuantity:
		return &f.ReturnedQuantity
	case FieldReturnedTransactionCount:
		return &f.ReturnedTransactionCount
	case FieldDiscountedAmount:
		return &f.DiscountedAmount
	case FieldDiscountedQuantity:
		return &f.DiscountedQuantity
	case FieldDiscountedTransactionCount:
		return &f.DiscountedTransactionCount
	}
	return nil
}

// Add returns the field-wise sum of f and o.
func (f Figures) Add(o Figures) Figures {
	out := f
	for _, field := range NumericFields {
		out.Set(field, f.Get(field).Add(o.Get(field)))
	}
	return out
}

// NormalizedRow is a row mapped onto the canonical schema.
type NormalizedRow struct {
	// Row is the 1-based sheet row number.
	Row int `json:"row" yaml:"row"`

	// Label is the category or product display text.
	Label string `json:"label" yaml:"label"`

	// ProductID is empty for rows without a product identifier.
	ProductID string `json:"product_id,omitempty" yaml:"product_id,omitempty"`

	Figures `yaml:",inline"`
}

// =============================================================================
// CLASSIFIED AND METRIC ROWS
// =============================================================================

// RowKind tags a row as a category subtotal or a product detail row.
type RowKind string

const (
	KindCategory RowKind = "category"
	KindProduct  RowKind = "product"
)

// ClassifiedRow is a normalized row with its classification.
type ClassifiedRow struct {
	NormalizedRow
	Kind RowKind
}

// NetFigures holds the derived net measures of a row or total.
type NetFigures struct {
	NetAmount       decimal.Decimal `json:"net_amount" yaml:"net_amount"`
	NetQuantity     decimal.Decimal `json:"net_quantity" yaml:"net_quantity"`
	NetTransactions decimal.Decimal `json:"net_transactions" yaml:"net_transactions"`
}

// Add returns the field-wise sum of n and o.
func (n NetFigures) Add(o NetFigures) NetFigures {
	return NetFigures{
		NetAmount:       n.NetAmount.Add(o.NetAmount),
		NetQuantity:     n.NetQuantity.Add(o.NetQuantity),
		NetTransactions: n.NetTransactions.Add(o.NetTransactions),
	}
}

// MetricRow is a normalized row plus its net measures.
// Net values may be negative; they are reported, never clamped.
type MetricRow struct {
	NormalizedRow `yaml:",inline"`
	NetFigures    `yaml:",inline"`
	Kind          RowKind `json:"kind" yaml:"kind"`
}

// Totals is an aggregate over metric rows.
type Totals struct {
	Figures    `yaml:",inline"`
	NetFigures `yaml:",inline"`
	Rows       int `json:"rows" yaml:"rows"`
}

// Include adds a metric row to the totals.
func (t *Totals) Include(r MetricRow) {
	t.Figures = t.Figures.Add(r.Figures)
	t.NetFigures = t.NetFigures.Add(r.NetFigures)
	t.Rows++
}
