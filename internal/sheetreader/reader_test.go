package sheetreader

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/ginjaninja78/salesrecon/internal/config"
	"github.com/ginjaninja78/salesrecon/internal/types"
)

func settings() config.InputSettings {
	return config.Default().Input
}

func TestReadCSV(t *testing.T) {
	input := "\ufeffCategory, Total sales ,,Covers\n" +
		"Dine-in,\"$1,000.00\",x,50\n" +
		",,,\n" +
		"Other,$500.00\n" +
		",,,\n"

	table, err := ReadCSV(strings.NewReader(input), "orders.csv", settings())
	require.NoError(t, err)

	assert.Equal(t, "orders.csv", table.Source)
	assert.Equal(t, []string{"Category", "Total sales", "Column_3", "Covers"}, table.Header)
	assert.Equal(t, 2, table.FirstRow)

	// The blank separator row is kept, the trailing one is not.
	require.Len(t, table.Rows, 3)
	assert.Equal(t, "$1,000.00", table.Rows[0]["Total sales"])
	assert.True(t, isRowEmpty(table.Rows[1]))
	assert.Equal(t, "Other", table.Rows[2]["Category"])
	assert.Nil(t, table.Rows[2]["Covers"])
	assert.Equal(t, 4, table.RowNumber(2))
}

func TestReadCSV_Options(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		settings func(*config.InputSettings)
		want     types.RawRow
	}{
		{
			name:     "semicolon",
			input:    "Item;Sales\nTea;2,50\n",
			settings: func(s *config.InputSettings) { s.Delimiter = ";" },
			want:     types.RawRow{"Item": "Tea", "Sales": "2,50"},
		},
		{
			name:     "tab",
			input:    "Item\tSales\nTea\t3\n",
			settings: func(s *config.InputSettings) { s.Delimiter = "\t" },
			want:     types.RawRow{"Item": "Tea", "Sales": "3"},
		},
		{
			name:     "tab by name",
			input:    "Item\tSales\nTea\t3\n",
			settings: func(s *config.InputSettings) { s.Delimiter = "tab" },
			want:     types.RawRow{"Item": "Tea", "Sales": "3"},
		},
		{
			name:     "pipe by name",
			input:    "Item|Sales\nTea|3\n",
			settings: func(s *config.InputSettings) { s.Delimiter = "pipe" },
			want:     types.RawRow{"Item": "Tea", "Sales": "3"},
		},
		{
			name:     "semicolon by name",
			input:    "Item;Sales\nTea;3\n",
			settings: func(s *config.InputSettings) { s.Delimiter = "semicolon" },
			want:     types.RawRow{"Item": "Tea", "Sales": "3"},
		},
		{
			name:     "windows-1252",
			input:    "Item,Sales\nCaf\xe9,4\n",
			settings: func(s *config.InputSettings) { s.Encoding = "Windows-1252" },
			want:     types.RawRow{"Item": "Café", "Sales": "4"},
		},
		{
			name:     "latin-1",
			input:    "Item,Sales\nCr\xe8me,5\n",
			settings: func(s *config.InputSettings) { s.Encoding = "ISO-8859-1" },
			want:     types.RawRow{"Item": "Crème", "Sales": "5"},
		},
		{
			name:  "header below title rows",
			input: "Weekly report\nStore 12\nItem,Sales\nTea,6\n",
			settings: func(s *config.InputSettings) {
				s.HeaderRow = 3
				s.DataStartRow = 4
			},
			want: types.RawRow{"Item": "Tea", "Sales": "6"},
		},
		{
			name:     "duplicate header keeps first",
			input:    "Item,Sales,Sales\nTea,7,8\n",
			settings: func(s *config.InputSettings) {},
			want:     types.RawRow{"Item": "Tea", "Sales": "7"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := settings()
			tt.settings(&s)

			table, err := ReadCSV(strings.NewReader(tt.input), "in.csv", s)
			require.NoError(t, err)
			require.Len(t, table.Rows, 1)
			assert.Equal(t, tt.want, table.Rows[0])
		})
	}
}

func TestReadCSV_Errors(t *testing.T) {
	_, err := ReadCSV(strings.NewReader(""), "empty.csv", settings())
	assert.Error(t, err)

	s := settings()
	s.HeaderRow = 5
	_, err = ReadCSV(strings.NewReader("a,b\n1,2\n"), "short.csv", s)
	assert.Error(t, err)

	s = settings()
	s.Encoding = "EBCDIC"
	_, err = ReadCSV(strings.NewReader("a,b\n"), "enc.csv", s)
	assert.Error(t, err)
}

func TestRead_XLSX(t *testing.T) {
	path := filepath.Join(t.TempDir(), "week.xlsx")

	f := excelize.NewFile()
	_, err := f.NewSheet("Sales")
	require.NoError(t, err)
	require.NoError(t, f.SetSheetRow("Sales", "A1", &[]interface{}{"SKU", "Item", "Sales", "Qty"}))
	require.NoError(t, f.SetSheetRow("Sales", "A2", &[]interface{}{"", "BEER", 30.5, 3}))
	require.NoError(t, f.SetSheetRow("Sales", "A4", &[]interface{}{"B1", "IPA", 30.5, 3}))
	require.NoError(t, f.SaveAs(path))
	require.NoError(t, f.Close())

	s := settings()
	s.Sheet = "Sales"
	table, err := Read(path, s)
	require.NoError(t, err)

	assert.Equal(t, "week.xlsx[Sales]", table.Source)
	assert.Equal(t, []string{"SKU", "Item", "Sales", "Qty"}, table.Header)
	require.Len(t, table.Rows, 3)
	assert.Equal(t, "BEER", table.Rows[0]["Item"])
	assert.Equal(t, "30.5", table.Rows[0]["Sales"])
	assert.True(t, isRowEmpty(table.Rows[1]))
	assert.Equal(t, "B1", table.Rows[2]["SKU"])
	assert.Equal(t, 4, table.RowNumber(2))

	s.Sheet = "Missing"
	_, err = Read(path, s)
	assert.Error(t, err)
}

func TestRead_XLSXFirstSheet(t *testing.T) {
	path := filepath.Join(t.TempDir(), "first.xlsx")

	f := excelize.NewFile()
	require.NoError(t, f.SetSheetRow("Sheet1", "A1", &[]interface{}{"Category", "Sales"}))
	require.NoError(t, f.SetSheetRow("Sheet1", "A2", &[]interface{}{"Retail", 12}))
	require.NoError(t, f.SaveAs(path))
	require.NoError(t, f.Close())

	table, err := Read(path, settings())
	require.NoError(t, err)
	assert.Equal(t, "first.xlsx[Sheet1]", table.Source)
	require.Len(t, table.Rows, 1)
	assert.Equal(t, "12", table.Rows[0]["Sales"])
}

func TestRead_CSVFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "export.csv")
	require.NoError(t, os.WriteFile(path, []byte("Category,Sales\nRetail,9\n"), 0644))

	table, err := Read(path, settings())
	require.NoError(t, err)
	assert.Equal(t, "export.csv", table.Source)
	require.Len(t, table.Rows, 1)
}

func TestRead_Unsupported(t *testing.T) {
	_, err := Read("report.pdf", settings())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported file type")

	_, err = Read(filepath.Join(t.TempDir(), "missing.xls"), settings())
	assert.Error(t, err)
}

func TestSupported(t *testing.T) {
	tests := map[string]bool{
		"a.csv":  true,
		"a.CSV":  true,
		"a.txt":  true,
		"a.xlsx": true,
		"a.xlsm": true,
		"a.xls":  true,
		"a.json": false,
		"a":      false,
	}
	for path, want := range tests {
		assert.Equal(t, want, Supported(path), path)
	}
}
