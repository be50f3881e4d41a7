// pkg/core/position.go
package core

// Position is a battlefield grid cell.
type Position struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// PathPoint is a sub-cell position along a missile trajectory.
type PathPoint struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Path is an ordered sequence of trajectory points.
type Path []PathPoint
