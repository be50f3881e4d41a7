package geo

import (
	"errors"
	"math"

	"github.com/OCAP2/spacecombat/pkg/core"
	geom "github.com/peterstace/simplefeatures/geom"
)

// Grid positions are stored as planar XY points without an SRID. The grid is
// abstract, so no projection applies; WKB keeps SQLite and Postgres readable alike.

// ErrShortPath is returned when a path has fewer than two points
var ErrShortPath = errors.New("path must have at least 2 points")

// Chebyshev returns the king-move distance between two grid cells.
func Chebyshev(x1, y1, x2, y2 int) int {
	return max(abs(x1-x2), abs(y1-y2))
}

// ChebyshevF is Chebyshev for fractional positions
func ChebyshevF(x1, y1, x2, y2 float64) float64 {
	return math.Max(math.Abs(x1-x2), math.Abs(y1-y2))
}

// Euclid returns the straight-line distance between two positions.
func Euclid(x1, y1, x2, y2 float64) float64 {
	return math.Hypot(x2-x1, y2-y1)
}

// Lerp returns the point a fraction f of the way from (x,y) to (tx,ty).
func Lerp(x, y, tx, ty, f float64) (float64, float64) {
	return x + (tx-x)*f, y + (ty-y)*f
}

// PointFromPosition builds a planar point from a grid cell
func PointFromPosition(p core.Position) geom.Point {
	return geom.NewPoint(geom.Coordinates{
		XY:   geom.XY{X: float64(p.X), Y: float64(p.Y)},
		Type: geom.DimXY,
	})
}

// PositionFromPoint converts a stored point back into a grid cell, rounding to the nearest cell.
func PositionFromPoint(pt geom.Point) (core.Position, bool) {
	coord, ok := pt.Coordinates()
	if !ok {
		return core.Position{}, false
	}
	return core.Position{X: int(math.Round(coord.X)), Y: int(math.Round(coord.Y))}, true
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
