// =============================================================================
// Sales Reconciliation Engine - Configuration Module
// =============================================================================
//
// This module loads the main application configuration and the per-source
// profiles that tune how individual POS exports are read.
//
// CONFIGURATION FILES:
//   1. Main Config (config.yaml or config.toml): Global settings and the
//      engine defaults (tolerances, aliases, summary basis).
//   2. Source Profiles (profiles/*.yaml|*.toml): Per-export overrides,
//      matched to input files by glob pattern.
//
// LOAD ORDER:
//   .env file -> file -> environment (SALESRECON_*) -> defaults -> validation
//
// =============================================================================

package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"github.com/ginjaninja78/salesrecon/internal/types"
)

// EnvPrefix is the prefix of every environment override.
const EnvPrefix = "SALESRECON"

// =============================================================================
// MAIN CONFIGURATION STRUCTURE
// =============================================================================

// MainConfig holds the global application configuration.
type MainConfig struct {
	// =========================================================================
	// DIRECTORY SETTINGS
	// =========================================================================

	// InputDir is scanned for exports when no --file is given.
	// Default: "./input"
	InputDir string `yaml:"input_dir" toml:"input_dir" envconfig:"INPUT_DIR"`

	// OutputDir receives the rendered reports.
	// Default: "./output"
	OutputDir string `yaml:"output_dir" toml:"output_dir" envconfig:"OUTPUT_DIR"`

	// InputArchiveDir receives processed exports when ArchiveInputs is set.
	// Default: "./input_archive"
	InputArchiveDir string `yaml:"input_archive_dir" toml:"input_archive_dir" envconfig:"INPUT_ARCHIVE_DIR"`

	// ProfilesDir holds the source profiles.
	// Default: "./profiles"
	ProfilesDir string `yaml:"profiles_dir" toml:"profiles_dir" envconfig:"PROFILES_DIR"`

	// =========================================================================
	// LOGGING SETTINGS
	// =========================================================================

	// LogLevel is one of "debug", "info", "warn", "error".
	// Default: "info"
	LogLevel string `yaml:"log_level" toml:"log_level" envconfig:"LOG_LEVEL" validate:"oneof=debug info warn error"`

	// LogFormat is "text" or "json".
	// Default: "text"
	LogFormat string `yaml:"log_format" toml:"log_format" envconfig:"LOG_FORMAT" validate:"oneof=text json"`

	// =========================================================================
	// OUTPUT SETTINGS
	// =========================================================================

	// Format is the report format: "json", "yaml", "markdown" or "html".
	// Default: "json"
	Format string `yaml:"format" toml:"format" envconfig:"FORMAT" validate:"oneof=json yaml markdown html"`

	// OutputNameFormat defines report file names.
	// Placeholders:
	//   {uuid}      - A random UUID
	//   {timestamp} - Current timestamp (YYYYMMDD_HHMMSS)
	//   {source}    - Input file name without extension
	//   {profile}   - Matched profile code, "default" if none
	// The extension of the chosen format is appended.
	// Default: "{source}_{timestamp}"
	OutputNameFormat string `yaml:"output_name_format" toml:"output_name_format" envconfig:"OUTPUT_NAME_FORMAT"`

	// ArchiveInputs moves each successfully analyzed export to InputArchiveDir.
	ArchiveInputs bool `yaml:"archive_inputs" toml:"archive_inputs" envconfig:"ARCHIVE_INPUTS"`

	// ArchiveTimestampSubdirs archives into year/month/day subdirectories.
	ArchiveTimestampSubdirs bool `yaml:"archive_timestamp_subdirs" toml:"archive_timestamp_subdirs" envconfig:"ARCHIVE_TIMESTAMP_SUBDIRS"`

	// =========================================================================
	// PROCESSING SETTINGS
	// =========================================================================

	// MaxConcurrency is the maximum number of files analyzed at once.
	// Default: 4
	MaxConcurrency int `yaml:"max_concurrency" toml:"max_concurrency" envconfig:"MAX_CONCURRENCY" validate:"min=1"`

	// StopOnError makes a directory run fail on the first file error.
	StopOnError bool `yaml:"stop_on_error" toml:"stop_on_error" envconfig:"STOP_ON_ERROR"`

	// Input holds the default sheet reading settings.
	Input InputSettings `yaml:"input" toml:"input" envconfig:"INPUT"`

	// Engine holds the reconciliation settings.
	Engine EngineConfig `yaml:"engine" toml:"engine" envconfig:"ENGINE"`
}

// =============================================================================
// INPUT SETTINGS
// =============================================================================

// InputSettings controls how a sheet is turned into a table.
type InputSettings struct {
	// Sheet is the worksheet name for workbooks. Empty means the first sheet.
	Sheet string `yaml:"sheet" toml:"sheet" envconfig:"SHEET"`

	// HeaderRow is the 1-based row holding column labels.
	// Default: 1
	HeaderRow int `yaml:"header_row" toml:"header_row" envconfig:"HEADER_ROW" validate:"min=1"`

	// DataStartRow is the 1-based row where data begins.
	// Default: HeaderRow + 1
	DataStartRow int `yaml:"data_start_row" toml:"data_start_row" envconfig:"DATA_START_ROW" validate:"gtfield=HeaderRow"`

	// Delimiter separates CSV fields: one character, or "tab", "pipe" or
	// "semicolon" for files whose settings are easier to write by name.
	// Default: ","
	Delimiter string `yaml:"delimiter" toml:"delimiter" envconfig:"DELIMITER" validate:"len=1|oneof=tab pipe semicolon"`

	// Encoding of CSV files: "UTF-8", "ISO-8859-1" or "Windows-1252".
	// Default: "UTF-8"
	Encoding string `yaml:"encoding" toml:"encoding" envconfig:"ENCODING" validate:"oneof=UTF-8 ISO-8859-1 Windows-1252"`
}

// =============================================================================
// ENGINE SETTINGS
// =============================================================================

// EngineConfig holds the reconciliation settings.
type EngineConfig struct {
	// AbsTolerance is the absolute reconciliation tolerance in currency units.
	// Default: 0.01
	AbsTolerance float64 `yaml:"abs_tolerance" toml:"abs_tolerance" envconfig:"ABS_TOLERANCE" validate:"gte=0"`

	// RelTolerance is the tolerance relative to the declared value.
	// Default: 0.005 (0.5%)
	RelTolerance float64 `yaml:"rel_tolerance" toml:"rel_tolerance" envconfig:"REL_TOLERANCE" validate:"gte=0"`

	// ShareTolerance is the allowed distance of the category share sum from 100.
	// Default: 0.1
	ShareTolerance float64 `yaml:"share_tolerance" toml:"share_tolerance" envconfig:"SHARE_TOLERANCE" validate:"gte=0"`

	// GrandTotalPattern matches labels of grand-total rows.
	// Default: "(?i)^\s*grand"
	GrandTotalPattern string `yaml:"grand_total_pattern" toml:"grand_total_pattern" envconfig:"GRAND_TOTAL_PATTERN"`

	// UncategorizedLabel names the category of products seen before any
	// category row.
	// Default: "Uncategorized"
	UncategorizedLabel string `yaml:"uncategorized_label" toml:"uncategorized_label" envconfig:"UNCATEGORIZED_LABEL"`

	// RequiredFields are the canonical fields that must be present in the header.
	// Default: ["gross_amount"]
	RequiredFields []string `yaml:"required_fields" toml:"required_fields" envconfig:"REQUIRED_FIELDS"`

	// Aliases adds source labels per canonical field. They are tried before
	// the built-in labels.
	//
	// Example:
	//   aliases:
	//     gross_amount: ["Net Revenue", "Revenue"]
	Aliases map[string][]string `yaml:"aliases" toml:"aliases" ignored:"true"`

	// SummaryBasis is "rows" (every category and product row) or
	// "categories" (declared category rows plus uncategorized products).
	// Default: "rows"
	SummaryBasis string `yaml:"summary_basis" toml:"summary_basis" envconfig:"SUMMARY_BASIS" validate:"oneof=rows categories"`

	// RankBy orders top products: "amount" or "quantity".
	// Default: "amount"
	RankBy string `yaml:"rank_by" toml:"rank_by" envconfig:"RANK_BY" validate:"oneof=amount quantity"`

	// TopN is the number of top products reported. 0 reports all.
	// Default: 10
	TopN int `yaml:"top_n" toml:"top_n" envconfig:"TOP_N" validate:"gte=0"`

	// MaxConcurrency bounds the workers normalizing one large table.
	// Default: 4
	MaxConcurrency int `yaml:"max_concurrency" toml:"max_concurrency" envconfig:"MAX_CONCURRENCY" validate:"min=1"`

	// ChunkSize is the number of rows per worker. Tables no larger than one
	// chunk are processed sequentially.
	// Default: 5000
	ChunkSize int `yaml:"chunk_size" toml:"chunk_size" envconfig:"CHUNK_SIZE" validate:"min=1"`
}

// =============================================================================
// SOURCE PROFILE STRUCTURE
// =============================================================================

// SourceProfile tunes how exports from one POS system or one store are read.
// Zero-valued settings inherit from the main configuration.
type SourceProfile struct {
	// Name is the human-readable name used in logs.
	Name string `yaml:"name" toml:"name" validate:"required"`

	// Code is a short identifier, usable as {profile} in output names.
	Code string `yaml:"code" toml:"code"`

	// FileMatchingPatterns are glob patterns matched against the input file
	// name. The first profile with a matching pattern is used.
	//
	// Examples:
	//   - "square_*.csv"
	//   - "*_pos_export.xlsx"
	FileMatchingPatterns []string `yaml:"file_matching_patterns" toml:"file_matching_patterns" validate:"required,min=1,dive,required"`

	// Input overrides the main input settings.
	Input InputSettings `yaml:"input" toml:"input"`

	// Aliases are tried before the main configuration's aliases.
	Aliases map[string][]string `yaml:"aliases" toml:"aliases"`

	// RequiredFields replaces the main list when set.
	RequiredFields []string `yaml:"required_fields" toml:"required_fields"`

	// GrandTotalPattern replaces the main pattern when set.
	GrandTotalPattern string `yaml:"grand_total_pattern" toml:"grand_total_pattern"`

	// SummaryBasis replaces the main basis when set.
	SummaryBasis string `yaml:"summary_basis" toml:"summary_basis" validate:"omitempty,oneof=rows categories"`

	// path is the file the profile was loaded from.
	path string
}

// Path returns the file the profile was loaded from.
func (p *SourceProfile) Path() string {
	return p.path
}

// Key returns the profile's code, or its file name when no code is set.
func (p *SourceProfile) Key() string {
	if p.Code != "" {
		return p.Code
	}
	return strings.TrimSuffix(filepath.Base(p.path), filepath.Ext(p.path))
}

// Matches reports whether the file name matches one of the profile's patterns.
// Invalid patterns never match.
func (p *SourceProfile) Matches(filePath string) bool {
	fileName := filepath.Base(filePath)
	for _, pattern := range p.FileMatchingPatterns {
		matched, err := filepath.Match(pattern, fileName)
		if err != nil {
			continue
		}
		if matched {
			return true
		}
	}
	return false
}

// ApplyInput returns base with the profile's non-zero input settings applied.
func (p *SourceProfile) ApplyInput(base InputSettings) InputSettings {
	out := base
	if p.Input.Sheet != "" {
		out.Sheet = p.Input.Sheet
	}
	if p.Input.HeaderRow > 0 {
		out.HeaderRow = p.Input.HeaderRow
		if p.Input.DataStartRow == 0 {
			out.DataStartRow = out.HeaderRow + 1
		}
	}
	if p.Input.DataStartRow > 0 {
		out.DataStartRow = p.Input.DataStartRow
	}
	if p.Input.Delimiter != "" {
		out.Delimiter = p.Input.Delimiter
	}
	if p.Input.Encoding != "" {
		out.Encoding = p.Input.Encoding
	}
	return out
}

// ApplyEngine returns base with the profile's engine overrides applied.
// Profile aliases go in front of the base aliases.
func (p *SourceProfile) ApplyEngine(base EngineConfig) EngineConfig {
	out := base
	if len(p.Aliases) > 0 {
		out.Aliases = make(map[string][]string, len(base.Aliases)+len(p.Aliases))
		for field, labels := range base.Aliases {
			out.Aliases[field] = append([]string(nil), labels...)
		}
		for field, labels := range p.Aliases {
			out.Aliases[field] = append(append([]string(nil), labels...), out.Aliases[field]...)
		}
	}
	if len(p.RequiredFields) > 0 {
		out.RequiredFields = append([]string(nil), p.RequiredFields...)
	}
	if p.GrandTotalPattern != "" {
		out.GrandTotalPattern = p.GrandTotalPattern
	}
	if p.SummaryBasis != "" {
		out.SummaryBasis = p.SummaryBasis
	}
	return out
}

// =============================================================================
// CONFIGURATION LOADING FUNCTIONS
// =============================================================================

// Default returns the configuration used when no file is present.
func Default() *MainConfig {
	config := New()
	applyMainConfigDefaults(config)
	return config
}

// New returns a configuration seeded with the defaults of settings for which
// zero is a valid choice. Files and the environment are decoded on top of it,
// so an explicit 0 survives. Everything else is filled in by Finish.
func New() *MainConfig {
	return &MainConfig{
		Engine: EngineConfig{
			AbsTolerance:   0.01,
			RelTolerance:   0.005,
			ShareTolerance: 0.1,
			TopN:           10,
		},
	}
}

// LoadMainConfig loads the main configuration from a YAML or TOML file.
//
// PARAMETERS:
//   - configPath: The path to the main configuration file. Files ending in
//     .toml are parsed as TOML, everything else as YAML.
//
// RETURNS:
//   - A pointer to the MainConfig struct with environment overrides and
//     defaults applied.
//   - An error if the file cannot be read, parsed or validated.
func LoadMainConfig(configPath string) (*MainConfig, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := New()
	if err := decode(configPath, data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := Finish(config); err != nil {
		return nil, err
	}
	return config, nil
}

// LoadEnvFile loads KEY=VALUE pairs from a dotenv file into the process
// environment. Variables already set are not overwritten. A missing file is
// an error only when required is true.
func LoadEnvFile(path string, required bool) error {
	if path == "" {
		return nil
	}
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) && !required {
			return nil
		}
		return fmt.Errorf("failed to read env file: %w", err)
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("failed to load env file %s: %w", path, err)
	}
	return nil
}

// Finish applies environment overrides and defaults, then validates.
func Finish(config *MainConfig) error {
	if err := envconfig.Process(EnvPrefix, config); err != nil {
		return fmt.Errorf("failed to apply environment overrides: %w", err)
	}

	applyMainConfigDefaults(config)

	if err := validateMainConfig(config); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

// decode parses data as TOML or YAML depending on the file extension.
func decode(path string, data []byte, out any) error {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		return toml.Unmarshal(data, out)
	default:
		return yaml.Unmarshal(data, out)
	}
}

// applyMainConfigDefaults sets default values for any unset configuration options.
func applyMainConfigDefaults(config *MainConfig) {
	if config.InputDir == "" {
		config.InputDir = "./input"
	}
	if config.OutputDir == "" {
		config.OutputDir = "./output"
	}
	if config.InputArchiveDir == "" {
		config.InputArchiveDir = "./input_archive"
	}
	if config.ProfilesDir == "" {
		config.ProfilesDir = "./profiles"
	}
	if config.LogLevel == "" {
		config.LogLevel = "info"
	}
	if config.LogFormat == "" {
		config.LogFormat = "text"
	}
	if config.Format == "" {
		config.Format = "json"
	}
	if config.OutputNameFormat == "" {
		config.OutputNameFormat = "{source}_{timestamp}"
	}
	if config.MaxConcurrency == 0 {
		config.MaxConcurrency = 4
	}

	applyInputDefaults(&config.Input)
	applyEngineDefaults(&config.Engine)
}

func applyInputDefaults(in *InputSettings) {
	if in.HeaderRow == 0 {
		in.HeaderRow = 1
	}
	if in.DataStartRow == 0 {
		in.DataStartRow = in.HeaderRow + 1
	}
	if in.Delimiter == "" {
		in.Delimiter = ","
	}
	if in.Encoding == "" {
		in.Encoding = "UTF-8"
	}
}

func applyEngineDefaults(e *EngineConfig) {
	if e.GrandTotalPattern == "" {
		e.GrandTotalPattern = `(?i)^\s*grand`
	}
	if e.UncategorizedLabel == "" {
		e.UncategorizedLabel = "Uncategorized"
	}
	if len(e.RequiredFields) == 0 {
		e.RequiredFields = []string{string(types.FieldGrossAmount)}
	}
	if e.SummaryBasis == "" {
		e.SummaryBasis = "rows"
	}
	if e.RankBy == "" {
		e.RankBy = "amount"
	}
	if e.MaxConcurrency == 0 {
		e.MaxConcurrency = 4
	}
	if e.ChunkSize == 0 {
		e.ChunkSize = 5000
	}
}

// structValidator is shared; validator.Validate caches struct metadata and is
// safe for concurrent use.
var structValidator = validator.New()

// validateMainConfig validates tags and the settings tags cannot express.
func validateMainConfig(config *MainConfig) error {
	if err := structValidator.Struct(config); err != nil {
		return err
	}
	return validateEngine(&config.Engine)
}

// ValidateInput checks input settings after profile overrides are applied.
func ValidateInput(in InputSettings) error {
	if err := structValidator.Struct(in); err != nil {
		return fmt.Errorf("invalid input settings: %w", err)
	}
	return nil
}

// ValidateEngine checks engine settings after profile overrides are applied.
func ValidateEngine(e EngineConfig) error {
	if err := structValidator.Struct(e); err != nil {
		return fmt.Errorf("invalid engine settings: %w", err)
	}
	return validateEngine(&e)
}

func validateEngine(e *EngineConfig) error {
	if _, err := regexp.Compile(e.GrandTotalPattern); err != nil {
		return fmt.Errorf("grand_total_pattern: %w", err)
	}
	for _, f := range e.RequiredFields {
		if !types.Field(f).IsNumeric() {
			return fmt.Errorf("required_fields: %q is not a numeric field", f)
		}
	}
	for f := range e.Aliases {
		if !knownField(f) {
			return fmt.Errorf("aliases: unknown field %q", f)
		}
	}
	return nil
}

func knownField(f string) bool {
	return types.Field(f) == types.FieldProductID ||
		types.Field(f) == types.FieldLabel ||
		types.Field(f).IsNumeric()
}

// EnsureDirectories creates the input, output and archive directories.
func (c *MainConfig) EnsureDirectories() error {
	dirs := []string{c.InputDir, c.OutputDir}
	if c.ArchiveInputs {
		dirs = append(dirs, c.InputArchiveDir)
	}
	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}
	return nil
}

// =============================================================================
// SOURCE PROFILE LOADING
// =============================================================================

// LoadSourceProfiles loads all source profiles from a directory.
//
// PARAMETERS:
//   - profilesDir: The directory containing *.yaml, *.yml and *.toml files.
//     A missing directory yields no profiles.
//
// RETURNS:
//   - The profiles sorted by file name, which is also the matching order.
//   - An error if any file cannot be parsed or validated.
func LoadSourceProfiles(profilesDir string) ([]*SourceProfile, error) {
	if _, err := os.Stat(profilesDir); os.IsNotExist(err) {
		return nil, nil
	}

	var files []string
	for _, ext := range []string{"*.yaml", "*.yml", "*.toml"} {
		matches, err := filepath.Glob(filepath.Join(profilesDir, ext))
		if err != nil {
			return nil, fmt.Errorf("failed to list profile files: %w", err)
		}
		files = append(files, matches...)
	}
	sort.Strings(files)

	profiles := make([]*SourceProfile, 0, len(files))
	seen := make(map[string]string)
	for _, file := range files {
		profile, err := loadSourceProfile(file)
		if err != nil {
			return nil, fmt.Errorf("failed to load %s: %w", file, err)
		}
		if prev, ok := seen[profile.Key()]; ok {
			return nil, fmt.Errorf("profile %q defined in both %s and %s", profile.Key(), prev, file)
		}
		seen[profile.Key()] = file
		profiles = append(profiles, profile)
	}

	return profiles, nil
}

// loadSourceProfile loads and validates a single profile file.
func loadSourceProfile(filePath string) (*SourceProfile, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	var profile SourceProfile
	if err := decode(filePath, data, &profile); err != nil {
		return nil, fmt.Errorf("failed to parse file: %w", err)
	}
	profile.path = filePath

	if err := structValidator.StructExcept(&profile, "Input"); err != nil {
		return nil, err
	}
	if profile.GrandTotalPattern != "" {
		if _, err := regexp.Compile(profile.GrandTotalPattern); err != nil {
			return nil, fmt.Errorf("grand_total_pattern: %w", err)
		}
	}
	for f := range profile.Aliases {
		if !knownField(f) {
			return nil, fmt.Errorf("aliases: unknown field %q", f)
		}
	}

	return &profile, nil
}

// FindMatchingProfile returns the first profile whose patterns match the
// file name, or nil.
func FindMatchingProfile(filePath string, profiles []*SourceProfile) *SourceProfile {
	for _, p := range profiles {
		if p.Matches(filePath) {
			return p
		}
	}
	return nil
}
