// =============================================================================
// Sales Reconciliation Engine - Report Writer
// =============================================================================
//
// This module renders a reconciliation result for people and dashboards.
//
// FORMATS:
//   - json     : the full result, machine readable
//   - yaml     : the full result, machine readable
//   - markdown : summary, category table, warnings, top products, findings
//   - html     : the markdown report rendered with goldmark (GFM tables)
//
// Decimal figures are rendered as strings in every format so that no
// precision is lost. Undefined ratios render as "undefined".
//
// =============================================================================

package report

import (
	"bytes"
	"encoding/json"
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"gopkg.in/yaml.v3"

	"github.com/ginjaninja78/salesrecon/internal/engine"
)

// =============================================================================
// FORMATS
// =============================================================================

// Format is a report output format.
type Format string

const (
	FormatJSON     Format = "json"
	FormatYAML     Format = "yaml"
	FormatMarkdown Format = "markdown"
	FormatHTML     Format = "html"
)

// ParseFormat validates a format name. "md" and "yml" are accepted.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(s) {
	case "json", "":
		return FormatJSON, nil
	case "yaml", "yml":
		return FormatYAML, nil
	case "markdown", "md":
		return FormatMarkdown, nil
	case "html":
		return FormatHTML, nil
	}
	return "", fmt.Errorf("unknown report format %q (want json, yaml, markdown or html)", s)
}

// Extension returns the file extension for the format, with the dot.
func (f Format) Extension() string {
	switch f {
	case FormatYAML:
		return ".yaml"
	case FormatMarkdown:
		return ".md"
	case FormatHTML:
		return ".html"
	}
	return ".json"
}

// =============================================================================
// DOCUMENT
// =============================================================================

// Document is a result plus the run metadata printed with it.
type Document struct {
	RunID       string    `json:"run_id" yaml:"run_id"`
	GeneratedAt time.Time `json:"generated_at" yaml:"generated_at"`
	Profile     string    `json:"profile,omitempty" yaml:"profile,omitempty"`

	engine.Result `yaml:",inline"`
}

// NewDocument wraps a result with a fresh run ID and timestamp.
func NewDocument(result *engine.Result, profile string) Document {
	return Document{
		RunID:       uuid.New().String(),
		GeneratedAt: time.Now().UTC(),
		Profile:     profile,
		Result:      *result,
	}
}

// =============================================================================
// GENERATION OPTIONS
// =============================================================================

// GenerateOptions contains options for report generation.
type GenerateOptions struct {
	// Indent is used by the JSON encoder.
	// Default: "  "
	Indent string

	// IncludeProducts lists every product under its category in markdown
	// and HTML reports.
	IncludeProducts bool

	// Title overrides the report heading.
	Title string
}

// DefaultGenerateOptions returns the default generation options.
func DefaultGenerateOptions() GenerateOptions {
	return GenerateOptions{
		Indent: "  ",
	}
}

// Generate renders the document in the given format with default options.
func Generate(doc Document, format Format) ([]byte, error) {
	return GenerateWithOptions(doc, format, DefaultGenerateOptions())
}

// GenerateWithOptions renders the document in the given format.
func GenerateWithOptions(doc Document, format Format, options GenerateOptions) ([]byte, error) {
	switch format {
	case FormatJSON:
		data, err := json.MarshalIndent(doc, "", options.Indent)
		if err != nil {
			return nil, fmt.Errorf("failed to encode JSON report: %w", err)
		}
		return append(data, '\n'), nil

	case FormatYAML:
		var buf bytes.Buffer
		enc := yaml.NewEncoder(&buf)
		enc.SetIndent(2)
		if err := enc.Encode(doc); err != nil {
			return nil, fmt.Errorf("failed to encode YAML report: %w", err)
		}
		if err := enc.Close(); err != nil {
			return nil, fmt.Errorf("failed to encode YAML report: %w", err)
		}
		return buf.Bytes(), nil

	case FormatMarkdown:
		return renderMarkdown(doc, options), nil

	case FormatHTML:
		return renderHTML(doc, options)
	}
	return nil, fmt.Errorf("unknown report format %q", format)
}

// =============================================================================
// HTML
// =============================================================================

var markdownRenderer = goldmark.New(goldmark.WithExtensions(extension.GFM))

// renderHTML converts the markdown report into a standalone HTML page.
func renderHTML(doc Document, options GenerateOptions) ([]byte, error) {
	var body bytes.Buffer
	if err := markdownRenderer.Convert(renderMarkdown(doc, options), &body); err != nil {
		return nil, fmt.Errorf("failed to render HTML report: %w", err)
	}

	var page bytes.Buffer
	page.WriteString("<!DOCTYPE html>\n<html lang=\"en\">\n<head>\n<meta charset=\"utf-8\">\n")
	fmt.Fprintf(&page, "<title>%s</title>\n", html.EscapeString(title(doc, options)))
	page.WriteString("<style>body{font-family:sans-serif;margin:2em}table{border-collapse:collapse}" +
		"th,td{border:1px solid #ccc;padding:4px 8px}td{text-align:right}td:first-child{text-align:left}</style>\n")
	page.WriteString("</head>\n<body>\n")
	page.Write(body.Bytes())
	page.WriteString("</body>\n</html>\n")
	return page.Bytes(), nil
}

func title(doc Document, options GenerateOptions) string {
	if options.Title != "" {
		return options.Title
	}
	return "Sales reconciliation: " + doc.Source
}
