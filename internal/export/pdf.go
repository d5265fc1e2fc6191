package export

import (
	"fmt"
	"io"
	"strconv"

	"github.com/go-pdf/fpdf"
	"github.com/rotisserie/eris"

	"github.com/sells-group/coverage-cli/internal/coverage"
)

// pdfColumn is one column of the ranking table.
type pdfColumn struct {
	title string
	width float64
	align string
}

var pdfColumns = []pdfColumn{
	{"Rank", 14, "C"},
	{"Office Name", 58, "L"},
	{"Suppliers", 24, "R"},
	{"Share", 20, "R"},
	{"Coordinates", 64, "L"},
}

// WritePDF renders an A4 report: title, radius, ranking table and, when
// given, the AI recommendation.
func WritePDF(w io.Writer, run coverage.Run, recommendation string) error {
	pdf := fpdf.New("P", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.SetTitle("Office Coverage Analysis", true)
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 18)
	pdf.CellFormat(0, 10, "Office Coverage Analysis", "", 1, "L", false, 0, "")

	pdf.SetFont("Helvetica", "", 11)
	pdf.CellFormat(0, 7, fmt.Sprintf("Radius: %s km", formatRadius(run.RadiusKM)), "", 1, "L", false, 0, "")
	pdf.CellFormat(0, 7, fmt.Sprintf("Total suppliers: %d", run.TotalSuppliers), "", 1, "L", false, 0, "")
	if !run.ComputedAt.IsZero() {
		pdf.CellFormat(0, 7, "Computed: "+run.ComputedAt.UTC().Format("2006-01-02 15:04 MST"), "", 1, "L", false, 0, "")
	}
	pdf.Ln(4)

	pdf.SetFont("Helvetica", "B", 10)
	pdf.SetFillColor(230, 230, 230)
	for _, c := range pdfColumns {
		pdf.CellFormat(c.width, 8, c.title, "1", 0, c.align, true, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Helvetica", "", 10)
	for _, res := range run.Results {
		cells := []string{
			strconv.Itoa(res.Rank),
			tr(res.OfficeName),
			strconv.Itoa(res.SuppliersCount),
			formatShare(run.Share(res)),
			res.Coordinates,
		}
		for i, c := range pdfColumns {
			pdf.CellFormat(c.width, 7, cells[i], "1", 0, c.align, false, 0, "")
		}
		pdf.Ln(-1)
	}

	if recommendation != "" {
		pdf.Ln(6)
		pdf.SetFont("Helvetica", "B", 13)
		pdf.CellFormat(0, 8, "AI Recommendation", "", 1, "L", false, 0, "")
		pdf.SetFont("Helvetica", "", 10)
		pdf.MultiCell(0, 5, tr(recommendation), "", "L", false)
	}

	if err := pdf.Output(w); err != nil {
		return eris.Wrap(err, "export: render pdf")
	}
	return nil
}
