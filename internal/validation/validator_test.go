package validation

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ginjaninja78/salesrecon/internal/metrics"
	"github.com/ginjaninja78/salesrecon/internal/normalizer"
	"github.com/ginjaninja78/salesrecon/internal/summary"
	"github.com/ginjaninja78/salesrecon/internal/types"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func row(n int, f types.Figures) types.MetricRow {
	return metrics.Compute(types.NormalizedRow{Row: n, Label: "item", Figures: f})
}

func share(pct string) summary.Share {
	return summary.Share{Category: "c", Percent: summary.NewRatio(d(pct), decimal.NewFromInt(1))}
}

func TestValidateRow(t *testing.T) {
	v := NewValidator()

	tests := []struct {
		name  string
		row   types.MetricRow
		rules []string
	}{
		{
			name: "clean",
			row:  row(2, types.Figures{GrossAmount: d("100"), LossAmount: d("10")}),
		},
		{
			name:  "negative loss inflates net",
			row:   row(3, types.Figures{GrossAmount: d("100"), LossAmount: d("-10")}),
			rules: []string{RuleNetExceedsGross},
		},
		{
			name:  "negative net",
			row:   row(4, types.Figures{GrossAmount: d("10"), ReturnedAmount: d("30")}),
			rules: []string{RuleNegativeNet},
		},
		{
			name:  "negative returned quantity",
			row:   row(5, types.Figures{GrossQuantity: d("3"), ReturnedQuantity: d("-1")}),
			rules: []string{RuleNetExceedsGross},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			errs := v.ValidateRow(tt.row)
			var rules []string
			for _, e := range errs {
				assert.Equal(t, SeverityWarning, e.Severity)
				assert.Equal(t, tt.row.Row, e.Row)
				rules = append(rules, e.Rule)
			}
			assert.Equal(t, tt.rules, rules)
		})
	}
}

func TestValidateShares(t *testing.T) {
	v := NewValidator()

	assert.Nil(t, v.ValidateShares(nil))
	assert.Nil(t, v.ValidateShares([]summary.Share{share("33.333333"), share("33.333333"), share("33.333333")}))
	assert.Nil(t, v.ValidateShares([]summary.Share{{Category: "a", Percent: summary.Undefined()}}))

	e := v.ValidateShares([]summary.Share{share("60"), share("20")})
	require.NotNil(t, e)
	assert.Equal(t, SeverityError, e.Severity)
	assert.Equal(t, RuleShareSum, e.Rule)
	assert.Contains(t, e.Message, "80%")
}

func TestValidate(t *testing.T) {
	in := Input{
		Rows: []types.MetricRow{
			row(2, types.Figures{GrossAmount: d("100")}),
			row(3, types.Figures{GrossAmount: d("5"), ReturnedAmount: d("10")}),
		},
		Shares:   []summary.Share{share("100")},
		Failures: normalizer.Failures{"Qty": 2},
	}

	result := NewValidator().Validate(in)

	assert.True(t, result.IsValid)
	assert.Equal(t, 0, result.ErrorCount)
	assert.Equal(t, 2, result.WarningCount)
	require.Len(t, result.Errors, 2)
	assert.Equal(t, RuleNegativeNet, result.Errors[0].Rule)
	assert.Equal(t, RuleCoercion, result.Errors[1].Rule)
	assert.Equal(t, "Qty", result.Errors[1].Field)
}

func TestValidate_WarningsAsErrors(t *testing.T) {
	opts := DefaultValidationOptions()
	opts.TreatWarningsAsErrors = true

	result := NewValidatorWithOptions(opts).Validate(Input{
		Failures: normalizer.Failures{"Amount": 1},
	})

	assert.False(t, result.IsValid)
	assert.Equal(t, 1, result.WarningCount)
}

func TestValidate_ShareErrorInvalidates(t *testing.T) {
	result := NewValidator().Validate(Input{Shares: []summary.Share{share("50")}})

	assert.False(t, result.IsValid)
	assert.Equal(t, 1, result.ErrorCount)
}

func TestFormatErrors(t *testing.T) {
	assert.Equal(t, "No validation findings.", FormatErrors(nil))

	out := FormatErrors([]*ValidationError{
		{Severity: SeverityWarning, Rule: RuleNegativeNet, Row: 4, Field: "net_amount", Message: "negative"},
		{Severity: SeverityError, Rule: RuleShareSum, Message: "off"},
	})
	assert.Contains(t, out, "2 finding(s)")
	assert.Contains(t, out, "1. [WARNING] row 4, net_amount: negative")
	assert.Contains(t, out, "2. [ERROR] off")
}
