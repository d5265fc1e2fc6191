package export

import (
	"encoding/json"
	"io"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/geojson"

	"github.com/sells-group/coverage-cli/internal/analysis"
	"github.com/sells-group/coverage-cli/internal/geo"
	"github.com/sells-group/coverage-cli/internal/model"
)

// CircleSegments is the number of sides of the radius polygon.
const CircleSegments = 64

// Marker and line colours used by map clients that honour simplestyle.
const (
	colorOffice  = "#ef4444"
	colorWithin  = "#22c55e"
	colorOutside = "#3b82f6"
	colorSpoke   = "#6b7280"
)

// Overlay builds the map overlay for one office: the office point, its radius
// polygon, every supplier point and a dashed spoke from the office to each
// supplier.
func Overlay(office model.Office, radiusKM float64, suppliers []analysis.SupplierDistance) *geojson.FeatureCollection {
	within := 0
	for _, s := range suppliers {
		if s.Within {
			within++
		}
	}

	fc := &geojson.FeatureCollection{}
	fc.Features = append(fc.Features, &geojson.Feature{
		ID:       office.ID,
		Geometry: geo.GeomPoint(office.Location),
		Properties: map[string]interface{}{
			"kind":                "office",
			"name":                office.Name,
			"coordinates":         geo.FormatCoordinates(office.Location),
			"suppliers_in_radius": within,
			"marker-color":        colorOffice,
		},
	})

	ring := geo.Circle(office.Location, radiusKM, CircleSegments)
	flat := make([]float64, 0, len(ring)*2)
	for _, p := range ring {
		flat = append(flat, p.Lon, p.Lat)
	}
	fc.Features = append(fc.Features, &geojson.Feature{
		Geometry: geom.NewPolygonFlat(geom.XY, flat, []int{len(flat)}),
		Properties: map[string]interface{}{
			"kind":         "radius",
			"radius_km":    radiusKM,
			"stroke":       colorOffice,
			"fill":         colorOffice,
			"fill-opacity": 0.1,
		},
	})

	for _, s := range suppliers {
		color := colorOutside
		if s.Within {
			color = colorWithin
		}
		fc.Features = append(fc.Features, &geojson.Feature{
			ID:       s.Supplier.ID,
			Geometry: geo.GeomPoint(s.Supplier.Location),
			Properties: map[string]interface{}{
				"kind":         "supplier",
				"name":         s.Supplier.Name,
				"distance_km":  s.DistanceKM,
				"within":       s.Within,
				"marker-color": color,
			},
		})
	}

	for _, s := range suppliers {
		line := geom.NewLineStringFlat(geom.XY, []float64{
			office.Location.Lon, office.Location.Lat,
			s.Supplier.Location.Lon, s.Supplier.Location.Lat,
		})
		fc.Features = append(fc.Features, &geojson.Feature{
			Geometry: line,
			Properties: map[string]interface{}{
				"kind":       "spoke",
				"supplier":   s.Supplier.Name,
				"within":     s.Within,
				"stroke":     colorSpoke,
				"dash-array": "5, 5",
			},
		})
	}

	return fc
}

// WriteOverlay encodes the overlay for office as GeoJSON.
func WriteOverlay(w io.Writer, office model.Office, radiusKM float64, suppliers []analysis.SupplierDistance) error {
	data, err := json.Marshal(Overlay(office, radiusKM, suppliers))
	if err != nil {
		return eris.Wrap(err, "export: encode geojson")
	}
	if _, err := w.Write(data); err != nil {
		return eris.Wrap(err, "export: write geojson")
	}
	return nil
}
