package export

import (
	"io"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/sells-group/coverage-cli/internal/coverage"
)

const sheetName = "Coverage"

// WriteXLSX writes the CSV columns plus a coverage share column to a single
// worksheet.
func WriteXLSX(w io.Writer, run coverage.Run) error {
	f := xlsx.NewFile()
	sh, err := f.AddSheet(sheetName)
	if err != nil {
		return eris.Wrap(err, "export: add sheet")
	}

	header := sh.AddRow()
	for _, col := range append(append([]string{}, csvColumns...), "Coverage Share") {
		header.AddCell().SetString(col)
	}

	for _, res := range run.Results {
		row := sh.AddRow()
		row.AddCell().SetInt(res.Rank)
		row.AddCell().SetString(res.OfficeName)
		row.AddCell().SetInt(res.SuppliersCount)
		row.AddCell().SetString(res.Coordinates)
		row.AddCell().SetFloat(run.RadiusKM)
		row.AddCell().SetString(strings.Join(res.SupplierNames, "; "))
		row.AddCell().SetString(formatShare(run.Share(res)))
	}

	if err := f.Write(w); err != nil {
		return eris.Wrap(err, "export: write workbook")
	}
	return nil
}
