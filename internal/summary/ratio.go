package summary

import (
	"encoding/json"

	"github.com/shopspring/decimal"
)

// undefinedText is how an undefined ratio is rendered in every output format.
const undefinedText = "undefined"

// ratioPlaces is the rounding applied when a ratio is rendered.
const ratioPlaces = 6

// Ratio is a derived quotient that is explicitly undefined when its
// denominator is zero. It never carries NaN or Inf.
type Ratio struct {
	value   decimal.Decimal
	defined bool
}

// NewRatio returns num/den, or an undefined Ratio when den is zero.
func NewRatio(num, den decimal.Decimal) Ratio {
	if den.IsZero() {
		return Ratio{}
	}
	return Ratio{value: num.Div(den), defined: true}
}

// Undefined returns the undefined sentinel.
func Undefined() Ratio {
	return Ratio{}
}

// Defined reports whether the ratio has a value.
func (r Ratio) Defined() bool {
	return r.defined
}

// Value returns the ratio and whether it is defined.
func (r Ratio) Value() (decimal.Decimal, bool) {
	return r.value, r.defined
}

// Percent returns the ratio scaled by 100, keeping definedness.
func (r Ratio) Percent() Ratio {
	if !r.defined {
		return r
	}
	return Ratio{value: r.value.Mul(hundred), defined: true}
}

// String renders the ratio rounded, or "undefined".
func (r Ratio) String() string {
	if !r.defined {
		return undefinedText
	}
	return r.value.Round(ratioPlaces).String()
}

// MarshalJSON renders the ratio as a decimal string, or "undefined".
func (r Ratio) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.String())
}

// MarshalYAML renders the ratio as a decimal string, or "undefined".
func (r Ratio) MarshalYAML() (interface{}, error) {
	return r.String(), nil
}

// MarshalText lets the ratio appear as a map key or in text encoders.
func (r Ratio) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}
