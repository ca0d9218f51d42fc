// =============================================================================
// Sales Reconciliation Engine - Column Alias Table
// =============================================================================
//
// POS exports drift between versions: the same measure appears as
// "Total sales" in one file and "Total Amount" in the next. The alias table
// maps each canonical field to an ordered list of accepted source labels.
// The first label present in a sheet header wins.
//
// The table is declarative. New labels are added through configuration
// (engine.aliases) and are tried before the built-in labels.
//
// =============================================================================

package normalizer

import (
	"sort"

	"github.com/ginjaninja78/salesrecon/internal/types"
)

// AliasTable maps a canonical field to its accepted source labels in
// priority order.
type AliasTable map[types.Field][]string

// DefaultAliases returns the built-in alias table.
// Each call returns a fresh copy that callers may modify.
func DefaultAliases() AliasTable {
	return AliasTable{
		types.FieldProductID: {"SKU", "Product ID", "Item ID", "PLU"},
		types.FieldLabel: {
			"Category", "Item", "Item Name", "Product", "Product Name",
			"Name", "Order type", "Description",
		},

		types.FieldGrossAmount: {
			"Total sales", "Total Amount", "Transaction Amount",
			"Gross Sales", "Sales", "Amount",
		},
		types.FieldGrossQuantity:    {"Quantity", "Items sold", "Qty", "Covers", "Units Sold"},
		types.FieldTransactionCount: {"Transactions", "Transaction Count", "Receipts", "Checks"},

		types.FieldLossAmount:           {"Loss Amount", "Comps", "Waste Amount"},
		types.FieldLossQuantity:         {"Loss Quantity", "Waste Quantity"},
		types.FieldLossTransactionCount: {"Loss Transactions", "Loss Count"},

		types.FieldReturnedAmount:           {"Returned Amount", "Refunds", "Returns"},
		types.FieldReturnedQuantity:         {"Returned Quantity", "Refunded Quantity"},
		types.FieldReturnedTransactionCount: {"Returned Transactions", "Refund Count"},

		types.FieldDiscountedAmount:           {"Discounted Amount", "Discounts"},
		types.FieldDiscountedQuantity:         {"Discounted Quantity"},
		types.FieldDiscountedTransactionCount: {"Discounted Transactions", "Discount Count"},
	}
}

// Merge returns a new table where the labels in extra are tried before the
// labels already in t. Duplicate labels keep their first position.
func (t AliasTable) Merge(extra map[types.Field][]string) AliasTable {
	out := make(AliasTable, len(t))
	for field, labels := range t {
		out[field] = append([]string(nil), labels...)
	}

	for field, labels := range extra {
		merged := make([]string, 0, len(labels)+len(out[field]))
		seen := make(map[string]bool)
		for _, label := range append(append([]string(nil), labels...), out[field]...) {
			if label == "" || seen[label] {
				continue
			}
			seen[label] = true
			merged = append(merged, label)
		}
		out[field] = merged
	}

	return out
}

// Fields returns the fields of the table in a stable order.
func (t AliasTable) Fields() []types.Field {
	fields := make([]types.Field, 0, len(t))
	for field := range t {
		fields = append(fields, field)
	}
	sort.Slice(fields, func(i, j int) bool { return fields[i] < fields[j] })
	return fields
}
