// =============================================================================
// Sales Reconciliation Engine - Root Command
// =============================================================================
//
// COBRA CLI STRUCTURE:
//   rootCmd (salesrecon)
//   ├── analyzeCmd  (salesrecon analyze)
//   ├── aliasesCmd  (salesrecon aliases)
//   ├── validateCmd (salesrecon validate)
//   └── versionCmd  (salesrecon version)
//
// The root command owns the global flags and the shared helpers that load
// configuration and build the logger.
//
// =============================================================================

package cmd

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ginjaninja78/salesrecon/internal/config"
)

// defaultConfigFile is used when --config is not given. A missing default
// file is not an error.
const defaultConfigFile = "config.yaml"

// defaultEnvFile is loaded when present. A missing default file is not an
// error.
const defaultEnvFile = ".env"

// cfgFile holds the path to the main configuration file.
var cfgFile string

// envFile holds the path to a dotenv file with SALESRECON_* overrides.
var envFile string

// verbose forces debug logging.
var verbose bool

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "salesrecon",
	Short: "Sales Reconciliation Engine - reconcile POS exports into net sales metrics",
	Long: `salesrecon reads point-of-sale exports (CSV, XLSX, XLS) that mix category
subtotal rows with product detail rows, rebuilds the category/product
hierarchy, checks every subtotal against its products, and reports net sales
KPIs.

Key Features:
  - Column aliases absorb header drift between export versions
  - Net amount, quantity and transactions (gross minus losses and returns)
  - Reconciliation warnings with absolute and relative tolerances
  - JSON, YAML, Markdown and HTML reports
  - Per-source profiles matched by file name

Example Usage:
  salesrecon analyze                          # Analyze every export in the input directory
  salesrecon analyze --file week03.xlsx       # Analyze one file
  salesrecon analyze --file week03.csv --dry-run --format markdown
  salesrecon aliases                          # Show accepted column labels`,

	SilenceUsage: true,

	Run: func(cmd *cobra.Command, args []string) {
		cmd.Help()
	},
}

// Execute runs the root command. It is called by main.main().
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(
		&cfgFile,
		"config",
		defaultConfigFile,
		"Path to the main configuration file (.yaml or .toml)",
	)

	rootCmd.PersistentFlags().StringVar(
		&envFile,
		"env-file",
		defaultEnvFile,
		"Path to a dotenv file with SALESRECON_* overrides",
	)

	rootCmd.PersistentFlags().BoolVarP(
		&verbose,
		"verbose",
		"v",
		false,
		"Enable debug logging",
	)
}

// =============================================================================
// SHARED HELPERS
// =============================================================================

// loadConfig loads the dotenv file and the main configuration. When the
// default config file does not exist, defaults plus environment overrides are
// used.
func loadConfig() (*config.MainConfig, error) {
	if err := config.LoadEnvFile(envFile, envFile != defaultEnvFile); err != nil {
		return nil, err
	}

	cfg, err := config.LoadMainConfig(cfgFile)
	if err == nil {
		return cfg, nil
	}

	if cfgFile == defaultConfigFile && errors.Is(err, os.ErrNotExist) {
		cfg = config.New()
		if err := config.Finish(cfg); err != nil {
			return nil, err
		}
		return cfg, nil
	}

	return nil, fmt.Errorf("failed to load main config: %w", err)
}

// newLogger builds the slog logger described by the configuration.
func newLogger(cfg *config.MainConfig, w io.Writer) *slog.Logger {
	level := parseLevel(cfg.LogLevel)
	if verbose {
		level = slog.LevelDebug
	}

	opts := &slog.HandlerOptions{Level: level}
	if strings.EqualFold(cfg.LogFormat, "json") {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}
