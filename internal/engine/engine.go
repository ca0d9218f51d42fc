// =============================================================================
// Sales Reconciliation Engine - Engine Module
// =============================================================================
//
// This module runs the reconciliation pipeline for a single table. It holds
// no mutable state, so one Engine may serve concurrent runs on different
// tables.
//
// PIPELINE:
//   1. Bind the header against the alias table (fatal on SchemaError)
//   2. Normalize, classify and compute net metrics per row
//      (row chunks in parallel for large tables)
//   3. Build the category tree and reconcile subtotals
//   4. Compute the summary, excluding grand-total rows
//   5. Cross-check grand-total rows against the summary
//   6. Compute category shares and top products
//   7. Audit the result
//
// =============================================================================

package engine

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"regexp"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/ginjaninja78/salesrecon/internal/classifier"
	"github.com/ginjaninja78/salesrecon/internal/config"
	"github.com/ginjaninja78/salesrecon/internal/hierarchy"
	"github.com/ginjaninja78/salesrecon/internal/metrics"
	"github.com/ginjaninja78/salesrecon/internal/normalizer"
	"github.com/ginjaninja78/salesrecon/internal/summary"
	"github.com/ginjaninja78/salesrecon/internal/types"
	"github.com/ginjaninja78/salesrecon/internal/validation"
)

// Logger is an interface for logging. *slog.Logger satisfies it.
type Logger interface {
	Debug(msg string, args ...interface{})
	Info(msg string, args ...interface{})
	Warn(msg string, args ...interface{})
	Error(msg string, args ...interface{})
}

// =============================================================================
// OPTIONS
// =============================================================================

// Options configures an Engine.
type Options struct {
	// Aliases is the alias table. Nil uses the built-in table.
	Aliases normalizer.AliasTable

	// Required lists fields that must be present in the header.
	Required []types.Field

	Hierarchy hierarchy.Options
	Basis     summary.Basis
	RankBy    hierarchy.RankBy

	// TopN is the number of top products. 0 keeps every eligible product.
	TopN int

	// MaxConcurrency bounds the chunk workers.
	MaxConcurrency int

	// ChunkSize is the number of rows per chunk. Tables that fit in one
	// chunk run sequentially.
	ChunkSize int

	Validation validation.ValidationOptions
}

// DefaultOptions returns the engine defaults.
func DefaultOptions() Options {
	return Options{
		Aliases:        normalizer.DefaultAliases(),
		Required:       []types.Field{types.FieldGrossAmount},
		Hierarchy:      hierarchy.DefaultOptions(),
		Basis:          summary.BasisRows,
		RankBy:         hierarchy.RankByAmount,
		TopN:           10,
		MaxConcurrency: 4,
		ChunkSize:      5000,
		Validation:     validation.DefaultValidationOptions(),
	}
}

// OptionsFromConfig converts validated engine settings into Options.
func OptionsFromConfig(cfg config.EngineConfig) (Options, error) {
	opts := DefaultOptions()

	extra := make(map[types.Field][]string, len(cfg.Aliases))
	for field, labels := range cfg.Aliases {
		extra[types.Field(field)] = labels
	}
	opts.Aliases = normalizer.DefaultAliases().Merge(extra)

	if len(cfg.RequiredFields) > 0 {
		opts.Required = make([]types.Field, len(cfg.RequiredFields))
		for i, f := range cfg.RequiredFields {
			opts.Required[i] = types.Field(f)
		}
	}

	pattern, err := regexp.Compile(cfg.GrandTotalPattern)
	if err != nil {
		return Options{}, fmt.Errorf("failed to compile grand total pattern: %w", err)
	}
	opts.Hierarchy = hierarchy.Options{
		Tolerance: hierarchy.Tolerance{
			Abs: decimal.NewFromFloat(cfg.AbsTolerance),
			Rel: decimal.NewFromFloat(cfg.RelTolerance),
		},
		GrandTotal:         pattern,
		UncategorizedLabel: cfg.UncategorizedLabel,
	}

	if opts.Basis, err = summary.ParseBasis(cfg.SummaryBasis); err != nil {
		return Options{}, err
	}
	if opts.RankBy, err = hierarchy.ParseRankBy(cfg.RankBy); err != nil {
		return Options{}, err
	}

	opts.TopN = cfg.TopN
	if cfg.MaxConcurrency > 0 {
		opts.MaxConcurrency = cfg.MaxConcurrency
	}
	if cfg.ChunkSize > 0 {
		opts.ChunkSize = cfg.ChunkSize
	}
	opts.Validation.ShareTolerance = decimal.NewFromFloat(cfg.ShareTolerance)

	return opts, nil
}

// =============================================================================
// RESULT STRUCTURE
// =============================================================================

// Result is the outcome of one run.
type Result struct {
	Source string `json:"source" yaml:"source"`

	Tree hierarchy.Tree `json:"tree" yaml:"tree"`

	// Warnings holds category reconciliation warnings followed by grand-total
	// mismatches.
	Warnings []hierarchy.ReconciliationWarning `json:"warnings" yaml:"warnings"`

	Summary summary.Summary `json:"summary" yaml:"summary"`

	// CoercionFailures counts unreadable numeric cells per source column.
	CoercionFailures normalizer.Failures `json:"coercion_failures" yaml:"coercion_failures"`

	GrandTotalChecks []summary.GrandTotalCheck `json:"grand_total_checks,omitempty" yaml:"grand_total_checks,omitempty"`
	Shares           []summary.Share           `json:"category_shares" yaml:"category_shares"`
	TopProducts      []types.MetricRow         `json:"top_products" yaml:"top_products"`

	Audit *validation.ValidationResult `json:"audit" yaml:"audit"`

	Stats Stats `json:"stats" yaml:"stats"`
}

// Stats counts rows through the pipeline.
type Stats struct {
	RowsRead    int `json:"rows_read" yaml:"rows_read"`
	RowsDropped int `json:"rows_dropped" yaml:"rows_dropped"`
	Categories  int `json:"categories" yaml:"categories"`
	Products    int `json:"products" yaml:"products"`
	GrandTotals int `json:"grand_totals" yaml:"grand_totals"`
}

// =============================================================================
// ENGINE
// =============================================================================

// Engine runs the reconciliation pipeline.
type Engine struct {
	opts       Options
	normalizer *normalizer.Normalizer
	validator  *validation.Validator
	logger     Logger
}

// New creates an Engine. A nil logger discards log output.
func New(opts Options, logger Logger) *Engine {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if opts.MaxConcurrency < 1 {
		opts.MaxConcurrency = 1
	}
	if opts.ChunkSize < 1 {
		opts.ChunkSize = DefaultOptions().ChunkSize
	}
	return &Engine{
		opts:       opts,
		normalizer: normalizer.New(opts.Aliases, opts.Required),
		validator:  validation.NewValidatorWithOptions(opts.Validation),
		logger:     logger,
	}
}

// Aliases returns the effective alias table.
func (e *Engine) Aliases() normalizer.AliasTable {
	return e.normalizer.Aliases()
}

// Run executes the pipeline on one table.
//
// PARAMETERS:
//   - ctx: cancels chunk workers on large tables.
//   - table: the sheet contents.
//
// RETURNS:
//   - The result. Reconciliation mismatches and audit findings are data on
//     the result, not errors.
//   - A *normalizer.SchemaError when a required field is missing from the
//     header, or the context error.
func (e *Engine) Run(ctx context.Context, table types.Table) (*Result, error) {
	e.logger.Debug("binding header", "source", table.Source, "columns", len(table.Header))

	binding, err := e.normalizer.Bind(table.Header)
	if err != nil {
		return nil, err
	}

	// =========================================================================
	// STAGES 1-3: NORMALIZE, CLASSIFY, COMPUTE
	// =========================================================================

	rows, failures, dropped, err := e.prepare(ctx, binding, table)
	if err != nil {
		return nil, err
	}

	e.logger.Debug("rows prepared",
		"source", table.Source,
		"rows", len(rows),
		"dropped", dropped,
		"coercion_failures", failures.Total())

	// =========================================================================
	// STAGE 4: HIERARCHY
	// =========================================================================

	tree := hierarchy.Build(rows, e.opts.Hierarchy)

	// =========================================================================
	// STAGE 5: SUMMARY
	// =========================================================================

	var basisRows []types.MetricRow
	switch e.opts.Basis {
	case summary.BasisCategories:
		basisRows = summary.CategoryRows(tree)
	default:
		basisRows = make([]types.MetricRow, 0, len(rows))
		for _, r := range rows {
			if !e.opts.Hierarchy.IsGrandTotal(r) {
				basisRows = append(basisRows, r)
			}
		}
	}
	sum := summary.Compute(basisRows)

	result := &Result{
		Source:           table.Source,
		Tree:             tree,
		Summary:          sum,
		CoercionFailures: failures,
		Shares:           summary.CategoryShares(tree),
		TopProducts:      hierarchy.TopProducts(tree, e.opts.RankBy, e.opts.TopN),
	}

	result.Warnings = append(result.Warnings, tree.Warnings...)
	// Grand totals are declared over categories; the rows basis counts
	// subtotals and their products both.
	grandBasis := sum
	if e.opts.Basis != summary.BasisCategories && len(tree.GrandTotals) > 0 {
		grandBasis = summary.Compute(summary.CategoryRows(tree))
	}
	result.GrandTotalChecks = summary.CheckGrandTotals(tree.GrandTotals, grandBasis, e.opts.Hierarchy.Tolerance)
	for _, c := range result.GrandTotalChecks {
		if c.Matches {
			continue
		}
		result.Warnings = append(result.Warnings, hierarchy.ReconciliationWarning{
			Category: c.Label,
			Row:      c.Row,
			Declared: c.Declared,
			Computed: c.Computed,
			Delta:    c.Delta,
		})
	}
	if result.Warnings == nil {
		result.Warnings = []hierarchy.ReconciliationWarning{}
	}

	result.Audit = e.validator.Validate(validation.Input{
		Rows:     rows,
		Shares:   result.Shares,
		Failures: failures,
	})
	if len(result.Audit.Errors) > 0 {
		e.logger.Debug("audit findings",
			"source", table.Source,
			"valid", result.Audit.IsValid,
			"findings", validation.FormatErrors(result.Audit.Errors))
	}

	products := 0
	for i := range tree.Categories {
		products += len(tree.Categories[i].Products)
	}
	result.Stats = Stats{
		RowsRead:    len(table.Rows),
		RowsDropped: dropped,
		Categories:  len(tree.Categories),
		Products:    products,
		GrandTotals: len(tree.GrandTotals),
	}

	for _, w := range result.Warnings {
		e.logger.Warn("reconciliation mismatch",
			"source", table.Source,
			"category", w.Category,
			"row", w.Row,
			"declared", w.Declared.String(),
			"computed", w.Computed.String(),
			"delta", w.Delta.String())
	}

	e.logger.Info("table reconciled",
		"source", table.Source,
		"categories", result.Stats.Categories,
		"products", result.Stats.Products,
		"warnings", len(result.Warnings),
		"total_net_sales", sum.TotalNetSales.String())

	return result, nil
}

// =============================================================================
// CHUNKED PREPARATION
// =============================================================================

// chunk is the output of stages 1-3 for a contiguous range of rows.
type chunk struct {
	rows     []types.MetricRow
	failures normalizer.Failures
	dropped  int
}

// prepare runs stages 1-3 over the table, in parallel chunks when the table
// is larger than one chunk. Chunk outputs are joined in sheet order.
func (e *Engine) prepare(ctx context.Context, binding *normalizer.Binding, table types.Table) ([]types.MetricRow, normalizer.Failures, int, error) {
	size := e.opts.ChunkSize
	n := (len(table.Rows) + size - 1) / size
	if n <= 1 || e.opts.MaxConcurrency == 1 {
		c := prepareRange(binding, &table, 0, len(table.Rows))
		return c.rows, c.failures, c.dropped, nil
	}

	chunks := make([]chunk, n)
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(e.opts.MaxConcurrency)

	for i := 0; i < n; i++ {
		i := i
		start := i * size
		end := min(start+size, len(table.Rows))
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			chunks[i] = prepareRange(binding, &table, start, end)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, nil, 0, fmt.Errorf("failed to prepare rows: %w", err)
	}

	e.logger.Debug("merged row chunks", "source", table.Source, "chunks", n)

	rows := make([]types.MetricRow, 0, len(table.Rows))
	failures := make(normalizer.Failures)
	dropped := 0
	for _, c := range chunks {
		rows = append(rows, c.rows...)
		failures.Merge(c.failures)
		dropped += c.dropped
	}
	return rows, failures, dropped, nil
}

// prepareRange normalizes, classifies and computes rows [start, end).
func prepareRange(binding *normalizer.Binding, table *types.Table, start, end int) chunk {
	failures := make(normalizer.Failures)
	normalized := make([]types.NormalizedRow, 0, end-start)
	for i := start; i < end; i++ {
		normalized = append(normalized, binding.Normalize(table.Rows[i], table.RowNumber(i), failures))
	}

	classified := classifier.ClassifyAll(normalized)
	return chunk{
		rows:     metrics.ComputeAll(classified.Rows),
		failures: failures,
		dropped:  classified.Dropped,
	}
}
