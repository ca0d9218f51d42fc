// =============================================================================
// Sales Reconciliation Engine - Analyze Command
// =============================================================================
//
// COMMAND USAGE:
//   salesrecon analyze [flags]
//
// FLAGS:
//   --file             : Analyze one file instead of the input directory
//   --sheet            : Worksheet name for workbooks
//   --profile          : Use this profile instead of matching by file name
//   --format           : json, yaml, markdown or html
//   --output           : Override the output directory
//   --top              : Number of top products to report
//   --basis            : Summary basis, rows or categories
//   --include-products : List every product in markdown and HTML reports
//   --dry-run          : Print reports to stdout, write and archive nothing
//
// PROCESSING PIPELINE:
//   1. Load configuration and source profiles
//   2. Discover exports in the input directory (or take --file)
//   3. For each file (concurrently, bounded by max_concurrency):
//      a. Match a source profile and merge its overrides
//      b. Read the sheet into a table
//      c. Run the reconciliation engine
//      d. Render and write the report
//      e. Archive the export if configured
//   4. Write the run summary
//
// =============================================================================

package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"github.com/ginjaninja78/salesrecon/internal/config"
	"github.com/ginjaninja78/salesrecon/internal/engine"
	"github.com/ginjaninja78/salesrecon/internal/normalizer"
	"github.com/ginjaninja78/salesrecon/internal/report"
	"github.com/ginjaninja78/salesrecon/internal/sheetreader"
	"github.com/ginjaninja78/salesrecon/pkg/utils"
)

// =============================================================================
// COMMAND FLAGS
// =============================================================================

var (
	filePath        string
	sheetName       string
	profileCode     string
	outputFormat    string
	outputDir       string
	topN            int
	summaryBasis    string
	includeProducts bool
	dryRun          bool
)

// analyzeCmd represents the 'analyze' command.
var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Reconcile POS exports and write reports",
	Long: `The analyze command reads POS exports, rebuilds the category/product
hierarchy, reconciles category subtotals against their products and writes a
report per file.

Without --file every supported export in the input directory is analyzed
concurrently. A file that fails does not stop the others unless
stop_on_error is set.

Reconciliation mismatches are reported as warnings in the report; they do
not fail the run. A missing required column does.`,

	RunE: func(cmd *cobra.Command, args []string) error {
		return runAnalyze(cmd.Context(), cmd.OutOrStdout(), cmd.ErrOrStderr(), cmd)
	},
}

func init() {
	rootCmd.AddCommand(analyzeCmd)

	analyzeCmd.Flags().StringVar(&filePath, "file", "", "Analyze a single file")
	analyzeCmd.Flags().StringVar(&sheetName, "sheet", "", "Worksheet name for workbooks (default: first sheet)")
	analyzeCmd.Flags().StringVar(&profileCode, "profile", "", "Source profile code to use instead of file name matching")
	analyzeCmd.Flags().StringVar(&outputFormat, "format", "", "Report format: json, yaml, markdown or html")
	analyzeCmd.Flags().StringVar(&outputDir, "output", "", "Output directory (overrides output_dir)")
	analyzeCmd.Flags().IntVar(&topN, "top", 0, "Number of top products to report (0 reports all)")
	analyzeCmd.Flags().StringVar(&summaryBasis, "basis", "", "Summary basis: rows or categories")
	analyzeCmd.Flags().BoolVar(&includeProducts, "include-products", false, "List every product in markdown and HTML reports")
	analyzeCmd.Flags().BoolVar(&dryRun, "dry-run", false, "Print reports to stdout without writing or archiving files")
}

// =============================================================================
// ANALYZER
// =============================================================================

// analyzer holds everything shared by the per-file workers.
type analyzer struct {
	cfg      *config.MainConfig
	profiles []*config.SourceProfile
	fm       *utils.FileManager
	format   report.Format
	options  report.GenerateOptions
	logger   *slog.Logger

	// stdout receives reports in dry-run mode; mu keeps them whole.
	stdout io.Writer
	mu     sync.Mutex
}

// fileResult is the outcome of one file.
type fileResult struct {
	path    string
	output  string
	archive string
	profile string
	result  *engine.Result
	err     error
	elapsed time.Duration
}

// runAnalyze is the main function that orchestrates an analysis run.
func runAnalyze(ctx context.Context, stdout, stderr io.Writer, cmd *cobra.Command) error {
	if ctx == nil {
		ctx = context.Background()
	}
	startTime := time.Now()

	// =========================================================================
	// STEP 1: LOAD CONFIGURATION
	// =========================================================================

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if err := applyAnalyzeFlags(cfg, cmd); err != nil {
		return err
	}

	logger := newLogger(cfg, stderr)

	profiles, err := config.LoadSourceProfiles(cfg.ProfilesDir)
	if err != nil {
		return fmt.Errorf("failed to load source profiles: %w", err)
	}
	logger.Debug("configuration loaded", "config", cfgFile, "profiles", len(profiles))

	format, err := report.ParseFormat(cfg.Format)
	if err != nil {
		return err
	}

	a := &analyzer{
		cfg:      cfg,
		profiles: profiles,
		fm:       utils.NewFileManager(cfg.InputDir, cfg.OutputDir, cfg.InputArchiveDir),
		format:   format,
		options:  report.DefaultGenerateOptions(),
		logger:   logger,
		stdout:   stdout,
	}
	a.options.IncludeProducts = includeProducts
	a.fm.UseTimestampSubdirs = cfg.ArchiveTimestampSubdirs

	// =========================================================================
	// STEP 2: DISCOVER INPUT FILES
	// =========================================================================

	var inputFiles []string
	if filePath != "" {
		inputFiles = []string{filePath}
	} else {
		if !dryRun {
			if err := cfg.EnsureDirectories(); err != nil {
				return err
			}
		}
		inputFiles, err = a.fm.DiscoverInputFiles(sheetreader.Supported)
		if err != nil {
			return fmt.Errorf("failed to discover input files: %w", err)
		}
	}

	if len(inputFiles) == 0 {
		fmt.Fprintf(stderr, "No supported exports found in %s (extensions: %s)\n",
			cfg.InputDir, strings.Join(sheetreader.Extensions, ", "))
		return nil
	}
	logger.Info("analysis started", "files", len(inputFiles), "format", format)

	// =========================================================================
	// STEP 3: ANALYZE FILES CONCURRENTLY
	// =========================================================================

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var wg sync.WaitGroup
	results := make(chan fileResult, len(inputFiles))
	slots := make(chan struct{}, cfg.MaxConcurrency)

	for _, file := range inputFiles {
		wg.Add(1)
		go func(path string) {
			defer wg.Done()
			slots <- struct{}{}
			defer func() { <-slots }()

			if err := ctx.Err(); err != nil {
				results <- fileResult{path: path, err: fmt.Errorf("skipped: %w", err)}
				return
			}

			r := a.analyzeFile(ctx, path)
			if r.err != nil && cfg.StopOnError {
				cancel()
			}
			results <- r
		}(file)
	}

	go func() {
		wg.Wait()
		close(results)
	}()

	// =========================================================================
	// STEP 4: COLLECT RESULTS
	// =========================================================================

	var collected []fileResult
	for r := range results {
		collected = append(collected, r)
	}
	sort.Slice(collected, func(i, j int) bool { return collected[i].path < collected[j].path })

	summary := utils.RunSummary{StartTime: startTime, TotalFiles: len(inputFiles)}
	for _, r := range collected {
		name := filepath.Base(r.path)
		if r.err != nil {
			summary.FailedFiles++
			summary.FailedFilesList = append(summary.FailedFilesList, utils.FailedFileInfo{
				InputFile:    r.path,
				ErrorMessage: r.err.Error(),
			})
			fmt.Fprintf(stderr, "  ✗ %s: %v\n", name, r.err)
			printSchemaHint(stderr, r.err)
			continue
		}

		summary.SuccessfulFiles++
		summary.TotalWarnings += len(r.result.Warnings)
		summary.ProcessedFiles = append(summary.ProcessedFiles, utils.ProcessedFileInfo{
			InputFile:     r.path,
			OutputFile:    r.output,
			ArchivePath:   r.archive,
			Profile:       r.profile,
			Rows:          r.result.Stats.RowsRead,
			Categories:    r.result.Stats.Categories,
			Products:      r.result.Stats.Products,
			Warnings:      len(r.result.Warnings),
			TotalNetSales: r.result.Summary.TotalNetSales.StringFixed(2),
			ProcessTime:   r.elapsed,
		})
		if !dryRun {
			fmt.Fprintf(stderr, "  ✓ %s -> %s (%d warning(s))\n", name, r.output, len(r.result.Warnings))
		}
	}
	summary.EndTime = time.Now()

	// =========================================================================
	// STEP 5: RUN SUMMARY
	// =========================================================================

	if !dryRun && len(inputFiles) > 1 {
		path, err := utils.WriteSummaryLog(summary, cfg.OutputDir)
		if err != nil {
			logger.Error("failed to write run summary", "error", err)
		} else {
			logger.Info("run summary written", "path", path)
		}
	}

	logger.Info("analysis complete",
		"files", summary.TotalFiles,
		"successful", summary.SuccessfulFiles,
		"failed", summary.FailedFiles,
		"warnings", summary.TotalWarnings,
		"elapsed", summary.EndTime.Sub(startTime).String())

	if summary.FailedFiles > 0 {
		return fmt.Errorf("%d of %d file(s) failed", summary.FailedFiles, summary.TotalFiles)
	}
	return nil
}

// applyAnalyzeFlags copies explicitly set flags over the configuration.
func applyAnalyzeFlags(cfg *config.MainConfig, cmd *cobra.Command) error {
	if outputFormat != "" {
		cfg.Format = outputFormat
	}
	if outputDir != "" {
		cfg.OutputDir = outputDir
	}
	if cmd != nil && cmd.Flags().Changed("top") {
		if topN < 0 {
			return fmt.Errorf("--top must not be negative")
		}
		cfg.Engine.TopN = topN
	}
	if summaryBasis != "" {
		cfg.Engine.SummaryBasis = summaryBasis
	}
	return nil
}

// analyzeFile runs the full pipeline for one export.
func (a *analyzer) analyzeFile(ctx context.Context, path string) fileResult {
	start := time.Now()
	res := fileResult{path: path, profile: "default"}
	logger := a.logger.With("file", filepath.Base(path))

	input := a.cfg.Input
	engineCfg := a.cfg.Engine

	profile, err := a.selectProfile(path)
	if err != nil {
		res.err = err
		return res
	}
	if profile != nil {
		input = profile.ApplyInput(input)
		engineCfg = profile.ApplyEngine(engineCfg)
		res.profile = profile.Key()
		logger.Debug("profile matched", "profile", profile.Name, "path", profile.Path())
	}
	if sheetName != "" {
		input.Sheet = sheetName
	}

	if err := config.ValidateInput(input); err != nil {
		res.err = err
		return res
	}
	if err := config.ValidateEngine(engineCfg); err != nil {
		res.err = err
		return res
	}
	opts, err := engine.OptionsFromConfig(engineCfg)
	if err != nil {
		res.err = err
		return res
	}

	table, err := sheetreader.Read(path, input)
	if err != nil {
		res.err = fmt.Errorf("failed to read sheet: %w", err)
		return res
	}

	result, err := engine.New(opts, logger).Run(ctx, table)
	if err != nil {
		res.err = fmt.Errorf("failed to reconcile: %w", err)
		return res
	}
	res.result = result

	data, err := report.GenerateWithOptions(report.NewDocument(result, res.profile), a.format, a.options)
	if err != nil {
		res.err = err
		return res
	}

	if dryRun {
		a.mu.Lock()
		_, err = a.stdout.Write(data)
		a.mu.Unlock()
		if err != nil {
			res.err = fmt.Errorf("failed to print report: %w", err)
		}
		res.elapsed = time.Since(start)
		return res
	}

	name := utils.GenerateOutputFileName(a.cfg.OutputNameFormat, a.format.Extension(), map[string]string{
		"source":  utils.SourceName(path),
		"profile": res.profile,
	})
	res.output, err = a.fm.WriteOutputFile(name, data)
	if err != nil {
		res.err = err
		return res
	}

	if a.cfg.ArchiveInputs {
		res.archive, err = a.fm.ArchiveInputFile(path)
		if err != nil {
			// The report exists; archival failure is logged, not fatal.
			logger.Error("failed to archive input", "error", err)
		}
	}

	res.elapsed = time.Since(start)
	return res
}

// selectProfile returns the --profile profile, or the first profile whose
// patterns match the file name. Nil means main configuration only.
func (a *analyzer) selectProfile(path string) (*config.SourceProfile, error) {
	if profileCode == "" {
		return config.FindMatchingProfile(path, a.profiles), nil
	}
	for _, p := range a.profiles {
		if p.Key() == profileCode {
			return p, nil
		}
	}
	return nil, fmt.Errorf("profile %q not found in %s", profileCode, a.cfg.ProfilesDir)
}

// printSchemaHint explains a missing required column.
func printSchemaHint(w io.Writer, err error) {
	var schemaErr *normalizer.SchemaError
	if !errors.As(err, &schemaErr) {
		return
	}
	fmt.Fprintf(w, "    add the column label to engine.aliases.%s in the configuration", schemaErr.Field)
	if schemaErr.Suggestion != "" {
		fmt.Fprintf(w, " (the sheet has %q)", schemaErr.Suggestion)
	}
	fmt.Fprintln(w)
}
