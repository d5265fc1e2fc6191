// Package insights turns a ranked coverage run into model prompts and parses
// the recommendation and SWOT answers that come back.
package insights

import (
	"strconv"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/sells-group/coverage-cli/internal/coverage"
	"github.com/sells-group/coverage-cli/internal/model"
)

const tableHeader = "Rank | Office Name | Suppliers in Radius | Coordinates\n"

// FormatRankingTable renders results as the fixed-width table the prompts
// embed. Widths are counted in runes.
func FormatRankingTable(results []coverage.Result) string {
	var b strings.Builder
	b.WriteString(tableHeader)
	b.WriteString(strings.Repeat("-", 60))
	b.WriteByte('\n')
	for i, r := range results {
		b.WriteString(strconv.Itoa(i + 1))
		b.WriteString("    | ")
		b.WriteString(padEnd(r.OfficeName, 15))
		b.WriteString(" | ")
		b.WriteString(padEnd(strconv.Itoa(r.SuppliersCount), 18))
		b.WriteString(" | ")
		b.WriteString(r.Coordinates)
		b.WriteByte('\n')
	}
	return b.String()
}

// padEnd pads by rune count. Astral-plane characters count once here, so such
// names get one more space each than UTF-16 based padding would give them.
func padEnd(s string, width int) string {
	n := utf8.RuneCountInString(s)
	if n >= width {
		return s
	}
	return s + strings.Repeat(" ", width-n)
}

var printer = message.NewPrinter(language.English)

const noContext = "No contextual information available. Please supplement with your knowledge about the region."

// FormatContext renders caller-supplied location context for a prompt.
// Missing sections are spelled out so the model knows to fill the gaps.
func FormatContext(cd *model.ContextualData) string {
	if cd == nil {
		return noContext
	}

	var b strings.Builder
	if loc := cd.Location; loc != nil {
		b.WriteString("Location Details:\n")
		b.WriteString("- Address: " + orNA(loc.Address) + "\n")
		b.WriteString("- City: " + orNA(loc.City) + "\n")
		b.WriteString("- State: " + orNA(loc.State) + "\n")
		b.WriteString("- Country: " + orNA(loc.Country) + "\n\n")
	}

	if p := cd.Population; p != nil {
		b.WriteString("Population:\n")
		b.WriteString("- City: " + p.City + "\n")
		if p.Population > 0 {
			b.WriteString(printer.Sprintf("- Population: %d\n\n", p.Population))
		} else {
			b.WriteString("- Population: Data not available\n\n")
		}
	} else {
		b.WriteString("Population: Data not available (please supplement with your knowledge)\n\n")
	}

	writeFacility(&b, "Railway Station", "Nearest Railway Station", cd.Railway)
	writeFacility(&b, "Airport", "Nearest Airport", cd.Airport)

	if len(cd.Highways) > 0 {
		b.WriteString("Major Highways:\n")
		for _, h := range cd.Highways {
			name := h.Name
			if name == "" {
				name = "N/A"
			}
			b.WriteString("- " + h.Ref + ": " + name + " (" + km(h.DistanceKM) + " km)\n")
		}
		b.WriteByte('\n')
	} else {
		b.WriteString("Highways: No major highways found nearby\n\n")
	}
	return b.String()
}

func writeFacility(b *strings.Builder, label, heading string, f *model.Facility) {
	if f == nil {
		b.WriteString(label + ": Not found within search radius\n\n")
		return
	}
	b.WriteString(heading + ":\n")
	b.WriteString("- Name: " + f.Name + "\n")
	b.WriteString("- Distance: " + km(f.DistanceKM) + " km\n\n")
}

func orNA(s string) string {
	if s == "" {
		return "Not available"
	}
	return s
}

func km(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
