// Package ingest parses supplier spreadsheets and office lists into domain
// records, validating every row at the boundary.
package ingest

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/coverage-cli/internal/geo"
	"github.com/sells-group/coverage-cli/internal/model"
)

// Required supplier columns.
const (
	ColumnSupplierName   = "supplier_name"
	ColumnSupplierCoords = "supplier_coords"
)

// Sentinel errors for file-level validation.
var (
	ErrEmptyFile   = eris.New("file is empty")
	ErrNoValidRows = eris.New("no valid data rows found")
)

// Format is a supported supplier file format.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
)

// DetectFormat picks the format from a file name. Anything that is not
// .csv is treated as a spreadsheet.
func DetectFormat(filename string) Format {
	if strings.EqualFold(filepath.Ext(filename), ".csv") {
		return FormatCSV
	}
	return FormatXLSX
}

// ParseSuppliers parses a supplier file in the given format.
func ParseSuppliers(ctx context.Context, r io.Reader, format Format) ([]model.Supplier, error) {
	var (
		table [][]string
		err   error
	)
	switch format {
	case FormatCSV:
		table, err = readCSV(ctx, r)
	case FormatXLSX:
		data, rerr := io.ReadAll(r)
		if rerr != nil {
			return nil, eris.Wrap(rerr, "ingest: read spreadsheet")
		}
		table, err = readXLSX(data)
	default:
		return nil, eris.Errorf("ingest: unsupported format %q", format)
	}
	if err != nil {
		return nil, err
	}
	return suppliersFromTable(table)
}

// ReadSuppliersFile opens path and parses it according to its extension.
func ReadSuppliersFile(ctx context.Context, path string) ([]model.Supplier, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "ingest: open %s", path)
	}
	defer f.Close()

	return ParseSuppliers(ctx, f, DetectFormat(path))
}

// suppliersFromTable validates a header row plus data rows. Row numbers in
// errors are 1-based and count data rows only.
func suppliersFromTable(table [][]string) ([]model.Supplier, error) {
	if len(table) < 2 {
		return nil, eris.Wrap(ErrEmptyFile, "ingest")
	}

	nameIdx, coordsIdx := -1, -1
	for i, h := range table[0] {
		switch strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))) {
		case ColumnSupplierName:
			nameIdx = i
		case ColumnSupplierCoords:
			coordsIdx = i
		}
	}
	if nameIdx < 0 {
		return nil, eris.Errorf("ingest: missing required column: %s", ColumnSupplierName)
	}
	if coordsIdx < 0 {
		return nil, eris.Errorf("ingest: missing required column: %s", ColumnSupplierCoords)
	}

	suppliers := make([]model.Supplier, 0, len(table)-1)
	for i, row := range table[1:] {
		if blankRow(row) {
			continue
		}
		rowNum := i + 1

		name := strings.TrimSpace(cell(row, nameIdx))
		if name == "" {
			return nil, eris.Errorf("ingest: row %d: missing supplier name", rowNum)
		}
		raw := strings.TrimSpace(cell(row, coordsIdx))
		if raw == "" {
			return nil, eris.Errorf("ingest: row %d: missing supplier coordinates", rowNum)
		}
		loc, err := geo.ParseCoordinates(raw)
		if err != nil {
			return nil, eris.Wrapf(err, "ingest: row %d", rowNum)
		}

		suppliers = append(suppliers, model.Supplier{
			Name:                name,
			Location:            loc,
			OriginalCoordinates: raw,
			Position:            len(suppliers),
		})
	}

	if len(suppliers) == 0 {
		return nil, eris.Wrap(ErrNoValidRows, "ingest")
	}
	return suppliers, nil
}

func cell(row []string, idx int) string {
	if idx >= len(row) {
		return ""
	}
	return row[idx]
}

func blankRow(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
