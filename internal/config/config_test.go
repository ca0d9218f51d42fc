package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, "./input", cfg.InputDir)
	assert.Equal(t, "json", cfg.Format)
	assert.Equal(t, 4, cfg.MaxConcurrency)
	assert.Equal(t, 1, cfg.Input.HeaderRow)
	assert.Equal(t, 2, cfg.Input.DataStartRow)
	assert.Equal(t, ",", cfg.Input.Delimiter)
	assert.Equal(t, "UTF-8", cfg.Input.Encoding)
	assert.Equal(t, 0.01, cfg.Engine.AbsTolerance)
	assert.Equal(t, 0.005, cfg.Engine.RelTolerance)
	assert.Equal(t, []string{"gross_amount"}, cfg.Engine.RequiredFields)
	assert.Equal(t, "rows", cfg.Engine.SummaryBasis)
	assert.Equal(t, "amount", cfg.Engine.RankBy)
	assert.Equal(t, 10, cfg.Engine.TopN)

	require.NoError(t, validateMainConfig(cfg))
}

func TestLoadMainConfig_YAML(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "config.yaml", `
output_dir: ./reports
format: markdown
archive_timestamp_subdirs: true
input:
  header_row: 3
  delimiter: ";"
engine:
  abs_tolerance: 0.5
  summary_basis: categories
  aliases:
    gross_amount: ["Revenue"]
`)

	cfg, err := LoadMainConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "./reports", cfg.OutputDir)
	assert.Equal(t, "markdown", cfg.Format)
	assert.True(t, cfg.ArchiveTimestampSubdirs)
	assert.Equal(t, 3, cfg.Input.HeaderRow)
	assert.Equal(t, 4, cfg.Input.DataStartRow)
	assert.Equal(t, ";", cfg.Input.Delimiter)
	assert.Equal(t, 0.5, cfg.Engine.AbsTolerance)
	assert.Equal(t, "categories", cfg.Engine.SummaryBasis)
	assert.Equal(t, []string{"Revenue"}, cfg.Engine.Aliases["gross_amount"])
}

func TestLoadMainConfig_TOML(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "config.toml", `
format = "yaml"
max_concurrency = 2

[engine]
rel_tolerance = 0.01
rank_by = "quantity"
top_n = 5
`)

	cfg, err := LoadMainConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "yaml", cfg.Format)
	assert.Equal(t, 2, cfg.MaxConcurrency)
	assert.Equal(t, 0.01, cfg.Engine.RelTolerance)
	assert.Equal(t, "quantity", cfg.Engine.RankBy)
	assert.Equal(t, 5, cfg.Engine.TopN)
}

func TestLoadMainConfig_EnvironmentOverrides(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "config.yaml", "format: json\n")

	t.Setenv("SALESRECON_FORMAT", "html")
	t.Setenv("SALESRECON_ENGINE_ABS_TOLERANCE", "2.5")
	t.Setenv("SALESRECON_INPUT_ENCODING", "Windows-1252")

	cfg, err := LoadMainConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "html", cfg.Format)
	assert.Equal(t, 2.5, cfg.Engine.AbsTolerance)
	assert.Equal(t, "Windows-1252", cfg.Input.Encoding)
}

func TestLoadMainConfig_ExplicitZeros(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		content string
	}{
		{"yaml", "config.yaml", "engine:\n  top_n: 0\n  abs_tolerance: 0\n  rel_tolerance: 0\n  share_tolerance: 0\n"},
		{"toml", "config.toml", "[engine]\ntop_n = 0\nabs_tolerance = 0.0\nrel_tolerance = 0.0\nshare_tolerance = 0.0\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeFile(t, t.TempDir(), tt.file, tt.content)
			cfg, err := LoadMainConfig(path)
			require.NoError(t, err)

			assert.Equal(t, 0, cfg.Engine.TopN)
			assert.Equal(t, 0.0, cfg.Engine.AbsTolerance)
			assert.Equal(t, 0.0, cfg.Engine.RelTolerance)
			assert.Equal(t, 0.0, cfg.Engine.ShareTolerance)
		})
	}
}

func TestLoadMainConfig_OmittedKeepsDefaults(t *testing.T) {
	path := writeFile(t, t.TempDir(), "config.yaml", "engine:\n  rank_by: quantity\n")
	cfg, err := LoadMainConfig(path)
	require.NoError(t, err)

	assert.Equal(t, 10, cfg.Engine.TopN)
	assert.Equal(t, 0.01, cfg.Engine.AbsTolerance)
	assert.Equal(t, 0.005, cfg.Engine.RelTolerance)
	assert.Equal(t, 0.1, cfg.Engine.ShareTolerance)
}

func TestLoadMainConfig_NamedDelimiters(t *testing.T) {
	for _, name := range []string{"tab", "pipe", "semicolon", "|"} {
		t.Run(name, func(t *testing.T) {
			path := writeFile(t, t.TempDir(), "config.yaml", "input:\n  delimiter: \""+name+"\"\n")
			cfg, err := LoadMainConfig(path)
			require.NoError(t, err)
			assert.Equal(t, name, cfg.Input.Delimiter)
		})
	}
}

func TestLoadMainConfig_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"unknown format", "format: pdf\n"},
		{"bad log level", "log_level: loud\n"},
		{"bad pattern", "engine:\n  grand_total_pattern: \"([\"\n"},
		{"non-numeric required field", "engine:\n  required_fields: [label]\n"},
		{"unknown alias field", "engine:\n  aliases:\n    margin: [\"Margin\"]\n"},
		{"data before header", "input:\n  header_row: 4\n  data_start_row: 2\n"},
		{"long delimiter", "input:\n  delimiter: \"||\"\n"},
		{"unknown delimiter name", "input:\n  delimiter: comma\n"},
		{"negative tolerance", "engine:\n  abs_tolerance: -1\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeFile(t, t.TempDir(), "config.yaml", tt.content)
			_, err := LoadMainConfig(path)
			assert.Error(t, err)
		})
	}
}

func TestLoadMainConfig_MissingFile(t *testing.T) {
	_, err := LoadMainConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestEnsureDirectories(t *testing.T) {
	dir := t.TempDir()
	cfg := Default()
	cfg.InputDir = filepath.Join(dir, "in")
	cfg.OutputDir = filepath.Join(dir, "out")
	cfg.InputArchiveDir = filepath.Join(dir, "archive")
	cfg.ArchiveInputs = true

	require.NoError(t, cfg.EnsureDirectories())

	for _, d := range []string{cfg.InputDir, cfg.OutputDir, cfg.InputArchiveDir} {
		info, err := os.Stat(d)
		require.NoError(t, err)
		assert.True(t, info.IsDir())
	}
}

func TestLoadSourceProfiles(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a_square.yaml", `
name: Square exports
code: square
file_matching_patterns: ["square_*.csv"]
input:
  delimiter: ";"
aliases:
  gross_amount: ["Net Sales"]
summary_basis: categories
`)
	writeFile(t, dir, "b_toast.toml", `
name = "Toast exports"
file_matching_patterns = ["toast_*.xlsx", "*_toast.xls"]
required_fields = ["gross_amount", "transaction_count"]

[input]
sheet = "Sales"
header_row = 2
`)
	writeFile(t, dir, "notes.txt", "ignored")

	profiles, err := LoadSourceProfiles(dir)
	require.NoError(t, err)
	require.Len(t, profiles, 2)

	assert.Equal(t, "square", profiles[0].Key())
	assert.Equal(t, "b_toast", profiles[1].Key())
	assert.Equal(t, filepath.Join(dir, "b_toast.toml"), profiles[1].Path())

	assert.Same(t, profiles[0], FindMatchingProfile("/data/square_week1.csv", profiles))
	assert.Same(t, profiles[1], FindMatchingProfile("store_toast.xls", profiles))
	assert.Nil(t, FindMatchingProfile("clover.csv", profiles))
}

func TestLoadSourceProfiles_MissingDir(t *testing.T) {
	profiles, err := LoadSourceProfiles(filepath.Join(t.TempDir(), "missing"))
	require.NoError(t, err)
	assert.Empty(t, profiles)
}

func TestLoadSourceProfiles_Errors(t *testing.T) {
	tests := []struct {
		name  string
		files map[string]string
	}{
		{
			name:  "missing name",
			files: map[string]string{"p.yaml": "file_matching_patterns: [\"*.csv\"]\n"},
		},
		{
			name:  "missing patterns",
			files: map[string]string{"p.yaml": "name: P\n"},
		},
		{
			name:  "bad basis",
			files: map[string]string{"p.yaml": "name: P\nfile_matching_patterns: [\"*\"]\nsummary_basis: weekly\n"},
		},
		{
			name:  "unknown alias field",
			files: map[string]string{"p.yaml": "name: P\nfile_matching_patterns: [\"*\"]\naliases:\n  margin: [M]\n"},
		},
		{
			name: "duplicate code",
			files: map[string]string{
				"a.yaml": "name: A\ncode: pos\nfile_matching_patterns: [\"*\"]\n",
				"b.yaml": "name: B\ncode: pos\nfile_matching_patterns: [\"*\"]\n",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			for name, content := range tt.files {
				writeFile(t, dir, name, content)
			}
			_, err := LoadSourceProfiles(dir)
			assert.Error(t, err)
		})
	}
}

func TestSourceProfile_ApplyInput(t *testing.T) {
	base := Default().Input

	p := &SourceProfile{Input: InputSettings{Sheet: "Sales", HeaderRow: 3, Encoding: "ISO-8859-1"}}
	got := p.ApplyInput(base)

	assert.Equal(t, "Sales", got.Sheet)
	assert.Equal(t, 3, got.HeaderRow)
	assert.Equal(t, 4, got.DataStartRow)
	assert.Equal(t, ",", got.Delimiter)
	assert.Equal(t, "ISO-8859-1", got.Encoding)
	require.NoError(t, ValidateInput(got))

	p = &SourceProfile{Input: InputSettings{HeaderRow: 3, DataStartRow: 6}}
	assert.Equal(t, 6, p.ApplyInput(base).DataStartRow)
}

func TestSourceProfile_ApplyEngine(t *testing.T) {
	base := Default().Engine
	base.Aliases = map[string][]string{"gross_amount": {"Revenue"}}

	p := &SourceProfile{
		Aliases:           map[string][]string{"gross_amount": {"Net Sales"}, "label": {"Dept"}},
		RequiredFields:    []string{"transaction_count"},
		GrandTotalPattern: "^TOTAL$",
		SummaryBasis:      "categories",
	}
	got := p.ApplyEngine(base)

	assert.Equal(t, []string{"Net Sales", "Revenue"}, got.Aliases["gross_amount"])
	assert.Equal(t, []string{"Dept"}, got.Aliases["label"])
	assert.Equal(t, []string{"transaction_count"}, got.RequiredFields)
	assert.Equal(t, "^TOTAL$", got.GrandTotalPattern)
	assert.Equal(t, "categories", got.SummaryBasis)
	require.NoError(t, ValidateEngine(got))

	// The base is not modified.
	assert.Equal(t, []string{"Revenue"}, base.Aliases["gross_amount"])
	assert.Equal(t, "rows", base.SummaryBasis)
}

func TestLoadEnvFile(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, ".env", "SALESRECON_OUTPUT_NAME_FORMAT={profile}_{date}\n")
	t.Cleanup(func() { os.Unsetenv("SALESRECON_OUTPUT_NAME_FORMAT") })

	require.NoError(t, LoadEnvFile(path, true))

	cfg := &MainConfig{}
	require.NoError(t, Finish(cfg))
	assert.Equal(t, "{profile}_{date}", cfg.OutputNameFormat)
}

func TestLoadEnvFile_Missing(t *testing.T) {
	missing := filepath.Join(t.TempDir(), ".env")

	assert.NoError(t, LoadEnvFile(missing, false))
	assert.Error(t, LoadEnvFile(missing, true))
	assert.NoError(t, LoadEnvFile("", true))
}

func TestLoadEnvFile_KeepsExistingVariables(t *testing.T) {
	t.Setenv("SALESRECON_LOG_LEVEL", "warn")
	path := writeFile(t, t.TempDir(), ".env", "SALESRECON_LOG_LEVEL=debug\n")

	require.NoError(t, LoadEnvFile(path, true))
	assert.Equal(t, "warn", os.Getenv("SALESRECON_LOG_LEVEL"))
}
