package geo

import (
	"math"

	"github.com/paulmach/orb/maptile"
)

// DefaultZoom is the zoom level boundaries are sharded at.
const DefaultZoom maptile.Zoom = 11

// Project maps a WGS84 coordinate to the slippy-map tile containing it.
//
// Longitude is mapped linearly to [0, 1) and latitude through the Mercator
// log-tangent transform, both scaled by 2^z. Fractions are floored, then
// clamped to the grid so that lng = 180 or |lat| beyond the Mercator limit
// lands on the edge tile instead of outside it.
func Project(lat, lng float64, z maptile.Zoom) maptile.Tile {
	n := math.Exp2(float64(z))

	xFrac := lng/360 + 0.5
	yFrac := math.Log(math.Tan((0.25-lat/360)*math.Pi))/(2*math.Pi) + 0.5

	return maptile.New(clampCell(xFrac*n, n), clampCell(yFrac*n, n), z)
}

// Unproject returns the north-west corner of a tile. It is the inverse of
// Project only up to the floor: Unproject(Project(p)) is the corner of the
// tile holding p, not p itself.
func Unproject(t maptile.Tile) (lat, lng float64) {
	n := math.Exp2(float64(t.Z))
	x := float64(t.X) / n
	y := float64(t.Y) / n

	lat = (0.25 - math.Atan(math.Exp((y-0.5)*2*math.Pi))/math.Pi) * 360
	lng = (x - 0.5) * 360

	return lat, lng
}

func clampCell(v, n float64) uint32 {
	v = math.Floor(v)
	switch {
	case math.IsNaN(v), v < 0:
		return 0
	case v > n-1:
		return uint32(n - 1)
	default:
		return uint32(v)
	}
}
