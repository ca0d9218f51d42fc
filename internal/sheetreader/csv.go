package sheetreader

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"

	"github.com/ginjaninja78/salesrecon/internal/config"
	"github.com/ginjaninja78/salesrecon/internal/types"
)

func readCSVFile(path string, settings config.InputSettings) (types.Table, error) {
	file, err := os.Open(path)
	if err != nil {
		return types.Table{}, fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	return ReadCSV(file, filepath.Base(path), settings)
}

// ReadCSV reads a delimited export from r.
func ReadCSV(r io.Reader, source string, settings config.InputSettings) (types.Table, error) {
	decoded, err := decodeReader(bufio.NewReader(r), settings.Encoding)
	if err != nil {
		return types.Table{}, err
	}

	reader := csv.NewReader(decoded)
	configureReader(reader, settings)

	grid, err := reader.ReadAll()
	if err != nil {
		return types.Table{}, fmt.Errorf("failed to read CSV: %w", err)
	}
	if len(grid) == 0 {
		return types.Table{}, fmt.Errorf("CSV file is empty")
	}

	return buildTable(source, grid, settings)
}

// decodeReader wraps r with a decoder for single-byte encodings.
func decodeReader(r io.Reader, encoding string) (io.Reader, error) {
	switch strings.ToUpper(strings.ReplaceAll(encoding, "_", "-")) {
	case "", "UTF-8", "UTF8":
		return r, nil
	case "ISO-8859-1", "LATIN1", "LATIN-1":
		return transform.NewReader(r, charmap.ISO8859_1.NewDecoder()), nil
	case "WINDOWS-1252", "CP1252":
		return transform.NewReader(r, charmap.Windows1252.NewDecoder()), nil
	}
	return nil, fmt.Errorf("unsupported encoding %q", encoding)
}

// configureReader applies the delimiter and the lenient parsing options
// POS exports need.
func configureReader(reader *csv.Reader, settings config.InputSettings) {
	switch settings.Delimiter {
	case "tab":
		reader.Comma = '\t'
	case "pipe":
		reader.Comma = '|'
	case "semicolon":
		reader.Comma = ';'
	default:
		if len(settings.Delimiter) > 0 {
			reader.Comma = rune(settings.Delimiter[0])
		} else {
			reader.Comma = ','
		}
	}

	// Footer and title rows often have fewer fields than the header.
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true
}
