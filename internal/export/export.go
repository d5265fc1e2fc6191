// Package export renders a ranked coverage run as downloadable reports.
package export

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/coverage-cli/internal/coverage"
)

// Format is a report file format.
type Format string

const (
	FormatCSV     Format = "csv"
	FormatXLSX    Format = "xlsx"
	FormatPDF     Format = "pdf"
	FormatPNG     Format = "png"
	FormatGeoJSON Format = "geojson"
)

// ParseFormat accepts a format name case-insensitively.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatCSV, FormatXLSX, FormatPDF, FormatPNG, FormatGeoJSON:
		return f, nil
	default:
		return "", eris.Errorf("export: unsupported format %q", s)
	}
}

// ContentType returns the MIME type served for f.
func (f Format) ContentType() string {
	switch f {
	case FormatCSV:
		return "text/csv; charset=utf-8"
	case FormatXLSX:
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	case FormatPDF:
		return "application/pdf"
	case FormatPNG:
		return "image/png"
	case FormatGeoJSON:
		return "application/geo+json"
	default:
		return "application/octet-stream"
	}
}

// Filename names a report the way downloads are named:
// office_analysis_<radius>km_<YYYY-MM-DD>.<ext>.
func Filename(radiusKM float64, f Format, now time.Time) string {
	return fmt.Sprintf("office_analysis_%skm_%s.%s", formatRadius(radiusKM), now.Format("2006-01-02"), f)
}

// Options carries optional report content.
type Options struct {
	// Recommendation is appended to PDF reports when non-empty.
	Recommendation string
}

// Write renders run in a tabular format. GeoJSON overlays are per office and
// are produced by Overlay instead.
func Write(w io.Writer, f Format, run coverage.Run, opts Options) error {
	switch f {
	case FormatCSV:
		return WriteCSV(w, run)
	case FormatXLSX:
		return WriteXLSX(w, run)
	case FormatPDF:
		return WritePDF(w, run, opts.Recommendation)
	case FormatPNG:
		return WriteChart(w, run)
	default:
		return eris.Errorf("export: format %q needs an office overlay", f)
	}
}

// formatRadius prints the shortest decimal form, so 50 renders as "50" and
// 12.5 as "12.5".
func formatRadius(r float64) string {
	return strconv.FormatFloat(r, 'f', -1, 64)
}

func formatShare(pct float64) string {
	return strconv.FormatFloat(pct, 'f', 1, 64) + "%"
}
