package sheetreader

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/extrame/xls"
	"github.com/xuri/excelize/v2"

	"github.com/ginjaninja78/salesrecon/internal/config"
	"github.com/ginjaninja78/salesrecon/internal/types"
)

// readXLSX reads the configured sheet, or the first one, of an OOXML workbook.
func readXLSX(path string, settings config.InputSettings) (types.Table, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return types.Table{}, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()

	sheetName := settings.Sheet
	if sheetName == "" {
		sheetName = f.GetSheetName(0)
		if sheetName == "" {
			return types.Table{}, fmt.Errorf("workbook has no sheets")
		}
	} else if idx, err := f.GetSheetIndex(sheetName); err != nil || idx < 0 {
		return types.Table{}, fmt.Errorf("sheet %q not found", sheetName)
	}

	// Raw values keep "1234.5" instead of the display text "$1,234.50".
	grid, err := f.GetRows(sheetName, excelize.Options{RawCellValue: true})
	if err != nil {
		return types.Table{}, fmt.Errorf("failed to read rows: %w", err)
	}

	return buildTable(sheetSource(path, sheetName), grid, settings)
}

// readXLS reads the configured sheet, or the first one, of a BIFF workbook.
func readXLS(path string, settings config.InputSettings) (types.Table, error) {
	file, err := os.Open(path)
	if err != nil {
		return types.Table{}, fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	wb, err := xls.OpenReader(file, "utf-8")
	if err != nil {
		return types.Table{}, fmt.Errorf("failed to open workbook: %w", err)
	}
	if wb == nil || wb.NumSheets() == 0 {
		return types.Table{}, fmt.Errorf("workbook has no sheets")
	}

	var sheet *xls.WorkSheet
	if settings.Sheet == "" {
		sheet = wb.GetSheet(0)
	} else {
		for i := 0; i < wb.NumSheets(); i++ {
			if s := wb.GetSheet(i); s != nil && s.Name == settings.Sheet {
				sheet = s
				break
			}
		}
	}
	if sheet == nil {
		return types.Table{}, fmt.Errorf("sheet %q not found", settings.Sheet)
	}

	grid := make([][]string, 0, int(sheet.MaxRow)+1)
	for i := 0; i <= int(sheet.MaxRow); i++ {
		grid = append(grid, xlsCells(sheet, i))
	}

	return buildTable(sheetSource(path, sheet.Name), grid, settings)
}

// xlsCells returns the cell text of row i, or nil when the sheet has no
// record for it. WorkSheet.Row dereferences missing rows, so that panic is
// turned into an empty row.
func xlsCells(sheet *xls.WorkSheet, i int) (cells []string) {
	defer func() {
		if recover() != nil {
			cells = nil
		}
	}()

	row := sheet.Row(i)
	cells = make([]string, row.LastCol())
	for c := row.FirstCol(); c < row.LastCol(); c++ {
		cells[c] = row.Col(c)
	}
	return cells
}

func sheetSource(path, sheet string) string {
	return fmt.Sprintf("%s[%s]", filepath.Base(path), sheet)
}
