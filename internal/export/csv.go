package export

import (
	"encoding/csv"
	"io"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/coverage-cli/internal/coverage"
)

// csvColumns defines the ordered CSV output columns.
var csvColumns = []string{
	"Rank",
	"Office Name",
	"Suppliers in Radius",
	"Coordinates",
	"Radius (km)",
	"Supplier Names",
}

// WriteCSV writes one row per ranked office.
func WriteCSV(w io.Writer, run coverage.Run) error {
	cw := csv.NewWriter(w)

	if err := cw.Write(csvColumns); err != nil {
		return eris.Wrap(err, "export: write csv header")
	}
	for _, res := range run.Results {
		if err := cw.Write(buildCSVRow(res, run.RadiusKM)); err != nil {
			return eris.Wrap(err, "export: write csv row")
		}
	}

	cw.Flush()
	return eris.Wrap(cw.Error(), "export: flush csv")
}

func buildCSVRow(res coverage.Result, radiusKM float64) []string {
	return []string{
		strconv.Itoa(res.Rank),
		res.OfficeName,
		strconv.Itoa(res.SuppliersCount),
		res.Coordinates,
		formatRadius(radiusKM),
		strings.Join(res.SupplierNames, "; "),
	}
}
