package normalizer

import (
	"fmt"
	"math"
	"strings"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// Coerce converts a raw cell value to a finite decimal.
//
// PARAMETERS:
//   - v: the raw cell value (string, number, decimal, or nil).
//
// RETURNS:
//   - The parsed value, or zero.
//   - ok=false when the cell held something that could not be read as a
//     number. Blank cells and a lone "-" are zero with ok=true.
//
// STRING HANDLING:
//   - "$" and "," are stripped
//   - "12%" becomes 0.12
//   - "(12.50)" becomes -12.50
func Coerce(v any) (decimal.Decimal, bool) {
	switch t := v.(type) {
	case nil:
		return decimal.Zero, true
	case decimal.Decimal:
		return t, true
	case float64:
		if math.IsNaN(t) || math.IsInf(t, 0) {
			return decimal.Zero, false
		}
		return decimal.NewFromFloat(t), true
	case float32:
		return Coerce(float64(t))
	case int:
		return decimal.NewFromInt(int64(t)), true
	case int64:
		return decimal.NewFromInt(t), true
	case int32:
		return decimal.NewFromInt(int64(t)), true
	case string:
		return coerceString(t)
	case fmt.Stringer:
		return coerceString(t.String())
	default:
		return coerceString(fmt.Sprintf("%v", t))
	}
}

func coerceString(s string) (decimal.Decimal, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, true
	}

	negative := false
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		negative = true
		s = strings.TrimSpace(s[1 : len(s)-1])
	}

	percent := false
	if strings.HasSuffix(s, "%") {
		percent = true
		s = strings.TrimSuffix(s, "%")
	}

	s = strings.ReplaceAll(s, "$", "")
	s = strings.ReplaceAll(s, ",", "")
	s = strings.ReplaceAll(s, " ", "")

	// Accounting exports print zero as "-" or "$-".
	if s == "-" || s == "" {
		return decimal.Zero, true
	}

	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, false
	}

	if percent {
		d = d.Div(hundred)
	}
	if negative {
		d = d.Neg()
	}

	return d, true
}
