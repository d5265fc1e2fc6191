// Package geo provides great-circle distance and coordinate handling for
// supplier coverage analysis.
package geo

import "math"

// EarthRadiusKM is the mean Earth radius used by Distance.
const EarthRadiusKM = 6371.0

// Point is a WGS84 position in decimal degrees.
type Point struct {
	Lat float64 `json:"latitude" yaml:"lat"`
	Lon float64 `json:"longitude" yaml:"lon"`
}

// Distance returns the haversine great-circle distance between a and b in
// kilometers. It is symmetric and returns exactly 0 for identical points.
// Inputs are assumed valid; see ValidatePoint.
func Distance(a, b Point) float64 {
	if a == b {
		return 0
	}

	dLat := toRadians(b.Lat - a.Lat)
	dLon := toRadians(b.Lon - a.Lon)
	lat1 := toRadians(a.Lat)
	lat2 := toRadians(b.Lat)

	sinLat := math.Sin(dLat / 2)
	sinLon := math.Sin(dLon / 2)
	h := sinLat*sinLat + math.Cos(lat1)*math.Cos(lat2)*sinLon*sinLon

	// Rounding can push h marginally past 1 near antipodes.
	h = math.Min(math.Max(h, 0), 1)

	return EarthRadiusKM * 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
}

// Destination returns the point reached by travelling distKM from p along
// the given initial bearing (degrees clockwise from north).
func Destination(p Point, bearingDeg, distKM float64) Point {
	delta := distKM / EarthRadiusKM
	theta := toRadians(bearingDeg)
	lat1 := toRadians(p.Lat)
	lon1 := toRadians(p.Lon)

	lat2 := math.Asin(math.Sin(lat1)*math.Cos(delta) + math.Cos(lat1)*math.Sin(delta)*math.Cos(theta))
	lon2 := lon1 + math.Atan2(
		math.Sin(theta)*math.Sin(delta)*math.Cos(lat1),
		math.Cos(delta)-math.Sin(lat1)*math.Sin(lat2),
	)

	lon := toDegrees(lon2)
	// Normalize to [-180, 180).
	lon = math.Mod(lon+540, 360) - 180

	return Point{Lat: toDegrees(lat2), Lon: lon}
}

func toRadians(deg float64) float64 { return deg * math.Pi / 180 }

func toDegrees(rad float64) float64 { return rad * 180 / math.Pi }
