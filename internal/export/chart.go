package export

import (
	"io"
	"strconv"

	"github.com/fogleman/gg"
	"github.com/rotisserie/eris"
	"golang.org/x/image/font/basicfont"

	"github.com/sells-group/coverage-cli/internal/coverage"
)

const (
	chartWidth    = 900
	chartBarH     = 28
	chartGap      = 10
	chartMargin   = 20
	chartLabelW   = 220
	chartHeaderH  = 40
	chartMaxLabel = 30
)

// WriteChart draws a horizontal bar chart of suppliers per office, best
// office on top, and encodes it as PNG.
func WriteChart(w io.Writer, run coverage.Run) error {
	n := len(run.Results)
	height := chartHeaderH + chartMargin*2 + n*(chartBarH+chartGap)

	dc := gg.NewContext(chartWidth, height)
	dc.SetRGB(1, 1, 1)
	dc.Clear()
	dc.SetFontFace(basicfont.Face7x13)

	dc.SetRGB(0.1, 0.1, 0.1)
	dc.DrawString("Suppliers within "+formatRadius(run.RadiusKM)+" km", chartMargin, chartMargin+13)

	maxCount := 0
	for _, res := range run.Results {
		if res.SuppliersCount > maxCount {
			maxCount = res.SuppliersCount
		}
	}
	barSpace := float64(chartWidth - chartLabelW - chartMargin*2 - 60)

	for i, res := range run.Results {
		y := float64(chartHeaderH + chartMargin + i*(chartBarH+chartGap))

		dc.SetRGB(0.1, 0.1, 0.1)
		dc.DrawStringAnchored(truncate(res.OfficeName, chartMaxLabel), chartMargin, y+chartBarH/2, 0, 0.5)

		barW := 0.0
		if maxCount > 0 {
			barW = barSpace * float64(res.SuppliersCount) / float64(maxCount)
		}
		x := float64(chartMargin + chartLabelW)
		if i == 0 && res.SuppliersCount > 0 {
			dc.SetHexColor("#22c55e")
		} else {
			dc.SetHexColor("#3b82f6")
		}
		dc.DrawRectangle(x, y, barW, chartBarH)
		dc.Fill()

		dc.SetRGB(0.1, 0.1, 0.1)
		dc.DrawStringAnchored(strconv.Itoa(res.SuppliersCount), x+barW+8, y+chartBarH/2, 0, 0.5)
	}

	if err := dc.EncodePNG(w); err != nil {
		return eris.Wrap(err, "export: encode png")
	}
	return nil
}

func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max-3]) + "..."
}
