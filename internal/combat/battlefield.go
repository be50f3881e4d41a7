package combat

import (
	"fmt"
	"math/rand"
)

const (
	GridWidth  = 10
	GridHeight = 8

	// deployment columns on each edge that never hold obstacles
	deployColumns = 2
)

// SystemType selects how dense the obstacle band of a battlefield is.
type SystemType uint8

const (
	SystemNormal SystemType = iota
	SystemNebula
	SystemAsteroids
	SystemDenseAsteroids
)

var systemTypeNames = map[SystemType]string{
	SystemNormal:         "normal",
	SystemNebula:         "nebula",
	SystemAsteroids:      "asteroids",
	SystemDenseAsteroids: "dense_asteroids",
}

func (t SystemType) String() string {
	if n, ok := systemTypeNames[t]; ok {
		return n
	}
	return fmt.Sprintf("system(%d)", t)
}

// ParseSystemType maps a system type name to its value.
func ParseSystemType(name string) (SystemType, error) {
	if name == "" {
		return SystemNormal, nil
	}
	for t, n := range systemTypeNames {
		if n == name {
			return t, nil
		}
	}
	return SystemNormal, fmt.Errorf("unknown system type %q", name)
}

func (t SystemType) bandWidth() int {
	switch t {
	case SystemNebula:
		return 2
	case SystemAsteroids:
		return 3
	case SystemDenseAsteroids:
		return 4
	default:
		return 0
	}
}

// Battlefield is the obstruction map of the combat grid.
type Battlefield struct {
	blocked [GridWidth][GridHeight]bool
	rng     *rand.Rand
	erosion float64
}

// NewBattlefield returns an empty field. erosion is the per-cell chance of clearing each round.
func NewBattlefield(rng *rand.Rand, erosion float64) *Battlefield {
	return &Battlefield{rng: rng, erosion: erosion}
}

// Generate rebuilds the obstruction map as a contiguous vertical band centred on
// the grid. Owned systems get a band one column narrower.
func (b *Battlefield) Generate(t SystemType, owned bool, density float64) {
	b.blocked = [GridWidth][GridHeight]bool{}

	width := t.bandWidth()
	if owned && width > 0 {
		width--
	}
	width = min(width, GridWidth-2*deployColumns)
	if width <= 0 {
		return
	}

	start := (GridWidth - width) / 2
	for x := start; x < start+width; x++ {
		for y := 0; y < GridHeight; y++ {
			if b.rng.Float64() < density {
				b.blocked[x][y] = true
			}
		}
	}
}

func (b *Battlefield) InBounds(x, y int) bool {
	return x >= 0 && x < GridWidth && y >= 0 && y < GridHeight
}

// Obstructed reports whether an in-bounds cell holds an obstacle.
func (b *Battlefield) Obstructed(x, y int) bool {
	return b.InBounds(x, y) && b.blocked[x][y]
}

// IsValid reports whether a stack may stand on (x,y).
func (b *Battlefield) IsValid(x, y int) bool {
	return b.InBounds(x, y) && !b.blocked[x][y]
}

// SetObstructed places or clears an obstacle.
func (b *Battlefield) SetObstructed(x, y int, v bool) {
	if b.InBounds(x, y) {
		b.blocked[x][y] = v
	}
}

// ObstructionCount returns the number of obstructed cells.
func (b *Battlefield) ObstructionCount() int {
	n := 0
	for x := range b.blocked {
		for y := range b.blocked[x] {
			if b.blocked[x][y] {
				n++
			}
		}
	}
	return n
}

// Erode gives every obstacle a chance to clear, visiting cells in random order.
// At most one cell clears per call. It reports whether a cell was cleared.
func (b *Battlefield) Erode() bool {
	if b.erosion <= 0 {
		return false
	}
	cells := make([]Point, 0, GridWidth*GridHeight)
	for x := range b.blocked {
		for y := range b.blocked[x] {
			if b.blocked[x][y] {
				cells = append(cells, Point{X: x, Y: y})
			}
		}
	}
	b.rng.Shuffle(len(cells), func(i, j int) { cells[i], cells[j] = cells[j], cells[i] })
	for _, c := range cells {
		if b.rng.Float64() < b.erosion {
			b.blocked[c.X][c.Y] = false
			return true
		}
	}
	return false
}
