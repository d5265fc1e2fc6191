package geo

import (
	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/ewkb"
)

// SRID is the spatial reference used for stored geometries (WGS84).
const SRID = 4326

// GeomPoint converts p to a go-geom point with SRID 4326. Coordinates are
// stored in x=lon, y=lat order.
func GeomPoint(p Point) *geom.Point {
	return geom.NewPointFlat(geom.XY, []float64{p.Lon, p.Lat}).SetSRID(SRID)
}

// EncodeEWKB encodes p as little-endian EWKB for a PostGIS geometry column.
func EncodeEWKB(p Point) ([]byte, error) {
	data, err := ewkb.Marshal(GeomPoint(p), ewkb.NDR)
	if err != nil {
		return nil, eris.Wrap(err, "geo: encode EWKB")
	}
	return data, nil
}

// DecodeEWKB decodes an EWKB point written by EncodeEWKB.
func DecodeEWKB(data []byte) (Point, error) {
	g, err := ewkb.Unmarshal(data)
	if err != nil {
		return Point{}, eris.Wrap(err, "geo: decode EWKB")
	}
	pt, ok := g.(*geom.Point)
	if !ok {
		return Point{}, eris.Errorf("geo: expected point geometry, got %T", g)
	}
	return Point{Lat: pt.Y(), Lon: pt.X()}, nil
}

// Circle approximates the radiusKM circle around center as a closed ring of
// segments+1 points, suitable for a map overlay polygon.
func Circle(center Point, radiusKM float64, segments int) []Point {
	if segments < 3 {
		segments = 3
	}
	ring := make([]Point, 0, segments+1)
	for i := 0; i < segments; i++ {
		bearing := float64(i) * 360 / float64(segments)
		ring = append(ring, Destination(center, bearing, radiusKM))
	}
	return append(ring, ring[0])
}
