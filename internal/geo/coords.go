package geo

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
)

// ErrInvalidCoordinates is returned when a "lat,lon" string cannot be parsed.
var ErrInvalidCoordinates = eris.New(`invalid coordinates format, expected "lat,lon"`)

// ValidatePoint rejects non-finite or out-of-range coordinates. Values are
// never clamped.
func ValidatePoint(p Point) error {
	if math.IsNaN(p.Lat) || math.IsInf(p.Lat, 0) || math.IsNaN(p.Lon) || math.IsInf(p.Lon, 0) {
		return eris.Errorf("geo: coordinates must be finite (%v, %v)", p.Lat, p.Lon)
	}
	if p.Lat < -90 || p.Lat > 90 {
		return eris.Errorf("geo: latitude %v out of range [-90, 90]", p.Lat)
	}
	if p.Lon < -180 || p.Lon > 180 {
		return eris.Errorf("geo: longitude %v out of range [-180, 180]", p.Lon)
	}
	return nil
}

// ValidateRadius rejects NaN, infinite and non-positive radii.
func ValidateRadius(radiusKM float64) error {
	if math.IsNaN(radiusKM) || math.IsInf(radiusKM, 0) {
		return eris.Errorf("geo: radius must be finite, got %v", radiusKM)
	}
	if radiusKM <= 0 {
		return eris.Errorf("geo: radius must be positive, got %v", radiusKM)
	}
	return nil
}

// ParseCoordinates parses a "lat,lon" string such as "28.6139, 77.2090".
func ParseCoordinates(s string) (Point, error) {
	latStr, lonStr, ok := strings.Cut(s, ",")
	if !ok {
		return Point{}, eris.Wrapf(ErrInvalidCoordinates, "geo: parse %q", s)
	}

	lat, err := strconv.ParseFloat(strings.TrimSpace(latStr), 64)
	if err != nil {
		return Point{}, eris.Wrapf(ErrInvalidCoordinates, "geo: parse latitude %q", latStr)
	}
	lon, err := strconv.ParseFloat(strings.TrimSpace(lonStr), 64)
	if err != nil {
		return Point{}, eris.Wrapf(ErrInvalidCoordinates, "geo: parse longitude %q", lonStr)
	}

	p := Point{Lat: lat, Lon: lon}
	if err := ValidatePoint(p); err != nil {
		return Point{}, err
	}
	return p, nil
}

// FormatCoordinates renders p as "lat, lon" with six decimals.
func FormatCoordinates(p Point) string {
	return fmt.Sprintf("%.6f, %.6f", noNegZero(p.Lat), noNegZero(p.Lon))
}

// String implements fmt.Stringer.
func (p Point) String() string {
	return FormatCoordinates(p)
}

// noNegZero maps -0 onto +0 so it prints as "0.000000". Small negatives
// keep their sign, matching Number.prototype.toFixed.
func noNegZero(v float64) float64 {
	if v == 0 {
		return 0
	}
	return v
}
