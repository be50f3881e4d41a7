package geo

import (
	"fmt"

	"github.com/OCAP2/spacecombat/pkg/core"
	geom "github.com/peterstace/simplefeatures/geom"
)

// PathToLineString converts a missile path into a LineString.
func PathToLineString(path core.Path) (geom.LineString, error) {
	if len(path) < 2 {
		return geom.LineString{}, ErrShortPath
	}

	flat := make([]float64, 0, len(path)*2)
	for _, p := range path {
		flat = append(flat, p.X, p.Y)
	}

	seq := geom.NewSequence(flat, geom.DimXY)
	return geom.NewLineString(seq), nil
}

// LineStringToPath converts a stored LineString back into a path.
func LineStringToPath(ls geom.LineString) core.Path {
	seq := ls.Coordinates()
	n := seq.Length()
	path := make(core.Path, n)
	for i := 0; i < n; i++ {
		xy := seq.GetXY(i)
		path[i] = core.PathPoint{X: xy.X, Y: xy.Y}
	}
	return path
}

// PathLength returns the travelled distance along a path.
func PathLength(path core.Path) float64 {
	var total float64
	for i := 1; i < len(path); i++ {
		total += Euclid(path[i-1].X, path[i-1].Y, path[i].X, path[i].Y)
	}
	return total
}

// FormatPath renders a path as "(x,y) -> (x,y)" for log output.
func FormatPath(path core.Path) string {
	s := ""
	for i, p := range path {
		if i > 0 {
			s += " -> "
		}
		s += fmt.Sprintf("(%.2f,%.2f)", p.X, p.Y)
	}
	return s
}
