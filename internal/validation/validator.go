// =============================================================================
// Sales Reconciliation Engine - Result Audit
// =============================================================================
//
// This module audits a finished run against the invariants dashboards rely
// on. Findings are collected, not thrown: a run with findings is still a
// usable result.
//
// CHECKS:
//   1. Row-level: net figures must not exceed gross figures, which happens
//      when loss or return columns carry the wrong sign. Negative net
//      amounts are reported as well.
//   2. Share-level: category shares must sum to ~100%.
//   3. Cell-level: columns with cells that could not be read as numbers.
//
// SEVERITY:
//   - "error"   = the result breaks an invariant
//   - "warning" = data quality issue, the result is still consistent
//
// =============================================================================

package validation

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/ginjaninja78/salesrecon/internal/normalizer"
	"github.com/ginjaninja78/salesrecon/internal/summary"
	"github.com/ginjaninja78/salesrecon/internal/types"
)

// Severity levels.
const (
	SeverityError   = "error"
	SeverityWarning = "warning"
)

// Rule names.
const (
	RuleNetExceedsGross = "net_exceeds_gross"
	RuleNegativeNet     = "negative_net"
	RuleShareSum        = "share_sum"
	RuleCoercion        = "coercion"
)

// =============================================================================
// VALIDATION ERROR TYPES
// =============================================================================

// ValidationError is a single audit finding.
type ValidationError struct {
	// Severity is SeverityError or SeverityWarning.
	Severity string `json:"severity" yaml:"severity"`

	// Rule is the check that produced the finding.
	Rule string `json:"rule" yaml:"rule"`

	// Row is the sheet row number, zero for sheet-level findings.
	Row int `json:"row,omitempty" yaml:"row,omitempty"`

	// Field is the canonical field or source column involved.
	Field string `json:"field,omitempty" yaml:"field,omitempty"`

	// Message is a human-readable description.
	Message string `json:"message" yaml:"message"`
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	if e.Row > 0 {
		return fmt.Sprintf("[%s] row %d, %s: %s", strings.ToUpper(e.Severity), e.Row, e.Field, e.Message)
	}
	if e.Field != "" {
		return fmt.Sprintf("[%s] %s: %s", strings.ToUpper(e.Severity), e.Field, e.Message)
	}
	return fmt.Sprintf("[%s] %s", strings.ToUpper(e.Severity), e.Message)
}

// =============================================================================
// VALIDATION RESULT
// =============================================================================

// ValidationResult contains the collected findings.
type ValidationResult struct {
	// IsValid is true if there are no error findings.
	IsValid bool `json:"is_valid" yaml:"is_valid"`

	Errors       []*ValidationError `json:"findings" yaml:"findings"`
	ErrorCount   int                `json:"error_count" yaml:"error_count"`
	WarningCount int                `json:"warning_count" yaml:"warning_count"`
}

func (r *ValidationResult) add(e *ValidationError, opts ValidationOptions) {
	r.Errors = append(r.Errors, e)
	if e.Severity == SeverityError {
		r.ErrorCount++
		r.IsValid = false
		return
	}
	r.WarningCount++
	if opts.TreatWarningsAsErrors {
		r.IsValid = false
	}
}

// =============================================================================
// VALIDATOR
// =============================================================================

// ValidationOptions contains options for the audit.
type ValidationOptions struct {
	// TreatWarningsAsErrors marks the result invalid on any warning.
	TreatWarningsAsErrors bool

	// ShareTolerance is the allowed distance of the share sum from 100.
	ShareTolerance decimal.Decimal
}

// DefaultValidationOptions returns the default options.
func DefaultValidationOptions() ValidationOptions {
	return ValidationOptions{
		ShareTolerance: decimal.RequireFromString("0.1"),
	}
}

// Input is everything the audit looks at.
type Input struct {
	Rows     []types.MetricRow
	Shares   []summary.Share
	Failures normalizer.Failures
}

// Validator audits run results.
type Validator struct {
	options ValidationOptions
}

// NewValidator creates a Validator with default options.
func NewValidator() *Validator {
	return &Validator{options: DefaultValidationOptions()}
}

// NewValidatorWithOptions creates a Validator with custom options.
func NewValidatorWithOptions(options ValidationOptions) *Validator {
	return &Validator{options: options}
}

// Validate runs every check and returns the collected findings.
func (v *Validator) Validate(in Input) *ValidationResult {
	result := &ValidationResult{
		IsValid: true,
		Errors:  make([]*ValidationError, 0),
	}

	for _, row := range in.Rows {
		for _, e := range v.ValidateRow(row) {
			result.add(e, v.options)
		}
	}

	if e := v.ValidateShares(in.Shares); e != nil {
		result.add(e, v.options)
	}

	for _, col := range in.Failures.Columns() {
		result.add(&ValidationError{
			Severity: SeverityWarning,
			Rule:     RuleCoercion,
			Field:    col,
			Message:  fmt.Sprintf("%d cell(s) could not be read as numbers and were counted as zero", in.Failures[col]),
		}, v.options)
	}

	return result
}

// ValidateRow checks the net-versus-gross invariants of one row.
func (v *Validator) ValidateRow(row types.MetricRow) []*ValidationError {
	var errs []*ValidationError

	pairs := []struct {
		field string
		net   decimal.Decimal
		gross decimal.Decimal
	}{
		{string(types.FieldGrossAmount), row.NetAmount, row.GrossAmount},
		{string(types.FieldGrossQuantity), row.NetQuantity, row.GrossQuantity},
		{string(types.FieldTransactionCount), row.NetTransactions, row.TransactionCount},
	}

	for _, p := range pairs {
		if p.net.GreaterThan(p.gross) {
			errs = append(errs, &ValidationError{
				Severity: SeverityWarning,
				Rule:     RuleNetExceedsGross,
				Row:      row.Row,
				Field:    p.field,
				Message:  fmt.Sprintf("net %s exceeds gross %s for %q; loss or return figures are negative", p.net, p.gross, row.Label),
			})
		}
	}

	if row.NetAmount.IsNegative() {
		errs = append(errs, &ValidationError{
			Severity: SeverityWarning,
			Rule:     RuleNegativeNet,
			Row:      row.Row,
			Field:    "net_amount",
			Message:  fmt.Sprintf("net amount %s is negative for %q", row.NetAmount, row.Label),
		})
	}

	return errs
}

// ValidateShares checks that defined category shares sum to ~100%.
// Returns nil when the shares are consistent or all undefined.
func (v *Validator) ValidateShares(shares []summary.Share) *ValidationError {
	sum := decimal.Zero
	defined := 0
	for _, s := range shares {
		if p, ok := s.Percent.Value(); ok {
			sum = sum.Add(p)
			defined++
		}
	}
	if defined == 0 {
		return nil
	}

	if sum.Sub(decimal.NewFromInt(100)).Abs().GreaterThan(v.options.ShareTolerance) {
		return &ValidationError{
			Severity: SeverityError,
			Rule:     RuleShareSum,
			Message:  fmt.Sprintf("category shares sum to %s%%, want 100%%", sum.Round(4)),
		}
	}
	return nil
}

// =============================================================================
// ERROR FORMATTING
// =============================================================================

// FormatErrors formats findings for display or logging.
func FormatErrors(errors []*ValidationError) string {
	if len(errors) == 0 {
		return "No validation findings."
	}

	var builder strings.Builder
	builder.WriteString(fmt.Sprintf("Validation completed with %d finding(s):\n\n", len(errors)))
	for i, err := range errors {
		builder.WriteString(fmt.Sprintf("%d. %s\n", i+1, err.Error()))
	}
	return builder.String()
}
