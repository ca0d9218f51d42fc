// =============================================================================
// Sales Reconciliation Engine - Sheet Reader
// =============================================================================
//
// This module turns a POS export on disk into a types.Table. It knows about
// file formats only; all interpretation of cell contents is left to the
// normalizer, so cells are handed over as text.
//
// SUPPORTED FORMATS:
//   - .xlsx / .xlsm : excelize (raw cell values, no display formatting)
//   - .xls          : extrame/xls
//   - .csv / .txt   : encoding/csv, with ISO-8859-1 and Windows-1252 decoding
//
// ROW NUMBERING:
//   Blank rows inside the data area are kept so that row numbers in warnings
//   match the sheet. The classifier drops and counts them.
//
// =============================================================================

package sheetreader

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/ginjaninja78/salesrecon/internal/config"
	"github.com/ginjaninja78/salesrecon/internal/types"
)

// Extensions lists the file extensions Read accepts.
var Extensions = []string{".csv", ".txt", ".xlsx", ".xlsm", ".xls"}

// Supported reports whether Read accepts the file's extension.
func Supported(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, e := range Extensions {
		if e == ext {
			return true
		}
	}
	return false
}

// Read loads a sheet from disk.
//
// PARAMETERS:
//   - path: The export file. The format is chosen by extension.
//   - settings: Sheet name, header and data rows, CSV delimiter and encoding.
//
// RETURNS:
//   - The table with Source set to the file name (and sheet for workbooks).
//   - An error if the file cannot be opened or has no header row.
func Read(path string, settings config.InputSettings) (types.Table, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv", ".txt":
		return readCSVFile(path, settings)
	case ".xlsx", ".xlsm":
		return readXLSX(path, settings)
	case ".xls":
		return readXLS(path, settings)
	}
	return types.Table{}, fmt.Errorf("unsupported file type %q", filepath.Ext(path))
}

// =============================================================================
// GRID TO TABLE
// =============================================================================

// buildTable converts a grid of cell text into a table.
func buildTable(source string, grid [][]string, settings config.InputSettings) (types.Table, error) {
	headerRow := settings.HeaderRow
	if headerRow <= 0 {
		headerRow = 1
	}
	dataStart := settings.DataStartRow
	if dataStart <= headerRow {
		dataStart = headerRow + 1
	}

	if len(grid) < headerRow {
		return types.Table{}, fmt.Errorf("sheet has %d row(s), header expected on row %d", len(grid), headerRow)
	}

	header := cleanHeaders(grid[headerRow-1])
	if len(header) == 0 {
		return types.Table{}, fmt.Errorf("header row %d is empty", headerRow)
	}

	table := types.Table{
		Source:   source,
		Header:   header,
		Rows:     []types.RawRow{},
		FirstRow: dataStart,
	}

	for i := dataStart - 1; i < len(grid); i++ {
		table.Rows = append(table.Rows, toRawRow(header, grid[i]))
	}

	// Trailing blank rows carry no information and are not sheet content.
	for len(table.Rows) > 0 && isRowEmpty(table.Rows[len(table.Rows)-1]) {
		table.Rows = table.Rows[:len(table.Rows)-1]
	}

	return table, nil
}

// cleanHeaders trims header labels and names blank ones Column_N.
// A UTF-8 byte order mark on the first label is removed.
func cleanHeaders(headers []string) []string {
	cleaned := make([]string, len(headers))
	for i, header := range headers {
		if i == 0 {
			header = strings.TrimPrefix(header, "\ufeff")
		}
		header = strings.TrimSpace(header)
		if header == "" {
			header = fmt.Sprintf("Column_%d", i+1)
		}
		cleaned[i] = header
	}
	return cleaned
}

// toRawRow maps cells onto header labels. Missing cells are nil.
// When two columns share a label the first one wins.
func toRawRow(header, cells []string) types.RawRow {
	row := make(types.RawRow, len(header))
	for i, label := range header {
		if _, dup := row[label]; dup {
			continue
		}
		if i < len(cells) {
			row[label] = cells[i]
		} else {
			row[label] = nil
		}
	}
	return row
}

func isRowEmpty(row types.RawRow) bool {
	for _, v := range row {
		if s, ok := v.(string); ok && strings.TrimSpace(s) != "" {
			return false
		}
	}
	return true
}
