package geo

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEWKBRoundTrip(t *testing.T) {
	data, err := EncodeEWKB(delhi)
	require.NoError(t, err)
	// NDR byte order marker.
	assert.Equal(t, byte(0x01), data[0])

	got, err := DecodeEWKB(data)
	require.NoError(t, err)
	assert.Equal(t, delhi, got)
}

func TestDecodeEWKB_Invalid(t *testing.T) {
	_, err := DecodeEWKB([]byte{0x01, 0x02})
	assert.Error(t, err)
}

func TestGeomPoint_AxisOrder(t *testing.T) {
	pt := GeomPoint(newYork)
	assert.Equal(t, newYork.Lon, pt.X())
	assert.Equal(t, newYork.Lat, pt.Y())
	assert.Equal(t, SRID, pt.SRID())
}

func TestCircle(t *testing.T) {
	ring := Circle(mumbai, 25, 16)
	require.Len(t, ring, 17)
	assert.Equal(t, ring[0], ring[16])
	for _, p := range ring {
		assert.InDelta(t, 25, Distance(mumbai, p), 1e-6)
	}

	assert.Len(t, Circle(mumbai, 25, 1), 4)
}
