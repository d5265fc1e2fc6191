package coverage

import (
	"sort"

	"github.com/sells-group/coverage-cli/internal/geo"
)

// Result is one ranked office row of an analysis run.
type Result struct {
	OfficeID       string   `json:"office_id"`
	OfficeName     string   `json:"office_name"`
	RadiusKM       float64  `json:"radius_km"`
	SuppliersCount int      `json:"suppliers_count"`
	SupplierNames  []string `json:"supplier_names"`
	Coordinates    string   `json:"coordinates"`
	Latitude       float64  `json:"latitude"`
	Longitude      float64  `json:"longitude"`
	Rank           int      `json:"rank"`
}

// Location returns the office position of the result.
func (r Result) Location() geo.Point {
	return geo.Point{Lat: r.Latitude, Lon: r.Longitude}
}

// Rank orders coverages by supplier count descending and assigns ranks
// 1..N. Ties keep their input order and still receive distinct ranks.
func Rank(radiusKM float64, coverages []OfficeCoverage) []Result {
	results := make([]Result, len(coverages))
	for i, c := range coverages {
		results[i] = Result{
			OfficeID:       c.Office.ID,
			OfficeName:     c.Office.Name,
			RadiusKM:       radiusKM,
			SuppliersCount: c.Count(),
			SupplierNames:  c.Names(),
			Coordinates:    geo.FormatCoordinates(c.Office.Location),
			Latitude:       c.Office.Location.Lat,
			Longitude:      c.Office.Location.Lon,
		}
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].SuppliersCount > results[j].SuppliersCount
	})

	for i := range results {
		results[i].Rank = i + 1
	}
	return results
}
