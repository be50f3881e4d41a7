package combat

import "github.com/OCAP2/spacecombat/internal/geo"

var neighbours = [8]Point{
	{-1, -1}, {0, -1}, {1, -1},
	{-1, 0}, {1, 0},
	{-1, 1}, {0, 1}, {1, 1},
}

// ValidMove reports whether s may move to (x,y) with the movement it has left.
func (m *Manager) ValidMove(s *Stack, x, y int) bool {
	if s.removed || s.Destroyed() || !s.Movable() {
		return false
	}
	if x == s.X && y == s.Y {
		return false
	}
	if !m.field.IsValid(x, y) {
		return false
	}
	if occ := m.StackAt(x, y); occ != nil && occ != s && !m.canDisplace(s, occ) {
		return false
	}
	if !bypassesRepulsors(s) && m.repulsed(s, x, y) {
		return false
	}
	if s.teleporting {
		return true
	}
	cost := m.PathCost(s, x, y)
	return cost >= 0 && cost <= s.Move
}

// MoveStack moves s to (x,y) if the move is valid, pushing aside a weaker
// stack when s is able to displace it.
func (m *Manager) MoveStack(s *Stack, x, y int) bool {
	if !m.ValidMove(s, x, y) {
		return false
	}
	cost := s.Move
	if !s.teleporting {
		cost = m.PathCost(s, x, y)
	}
	if occ := m.StackAt(x, y); occ != nil && occ != s {
		m.displace(occ)
	}
	m.log.Debug("stack moved",
		"stack", s.Name, "from", s.Position(), "to", Point{X: x, Y: y}, "teleport", s.teleporting)
	s.X, s.Y = x, y
	s.Move -= cost
	return true
}

// Passable reports whether s could pass through (x,y) on its way somewhere.
func (m *Manager) Passable(s *Stack, x, y int) bool {
	if !m.field.IsValid(x, y) {
		return false
	}
	if occ := m.StackAt(x, y); occ != nil && occ != s {
		return false
	}
	return bypassesRepulsors(s) || !m.repulsed(s, x, y)
}

// PathCost returns the number of steps s needs to reach (x,y), or -1 when no
// path exists. The destination itself may hold a stack s can displace.
func (m *Manager) PathCost(s *Stack, x, y int) int {
	start := s.Position()
	goal := Point{X: x, Y: y}
	if start == goal {
		return 0
	}

	dist := map[Point]int{start: 0}
	queue := []Point{start}
	for len(queue) > 0 {
		p := queue[0]
		queue = queue[1:]
		for _, d := range neighbours {
			n := Point{X: p.X + d.X, Y: p.Y + d.Y}
			if _, seen := dist[n]; seen {
				continue
			}
			if n == goal {
				return dist[p] + 1
			}
			if !m.Passable(s, n.X, n.Y) {
				continue
			}
			dist[n] = dist[p] + 1
			queue = append(queue, n)
		}
	}
	return -1
}

func bypassesRepulsors(s *Stack) bool {
	return s.Cloaked || s.teleporting
}

// repulsed reports whether (x,y) lies inside the repulsor field of a stack hostile to s.
func (m *Manager) repulsed(s *Stack, x, y int) bool {
	for _, t := range m.stacks {
		if t.removed || t == s || t.Destroyed() || t.RepulsorRange <= 0 {
			continue
		}
		if !m.hostile(s.Owner, t.Owner) {
			continue
		}
		if geo.Chebyshev(t.X, t.Y, x, y) <= t.RepulsorRange {
			return true
		}
	}
	return false
}

func (m *Manager) canDisplace(s, occ *Stack) bool {
	if !s.Displaces || s.Kind != KindMonster || occ.Kind == KindColony {
		return false
	}
	if occ.TotalHits() >= s.TotalHits() {
		return false
	}
	_, ok := m.freeNeighbour(occ)
	return ok
}

func (m *Manager) freeNeighbour(s *Stack) (Point, bool) {
	for _, d := range neighbours {
		p := Point{X: s.X + d.X, Y: s.Y + d.Y}
		if m.field.IsValid(p.X, p.Y) && m.StackAt(p.X, p.Y) == nil {
			return p, true
		}
	}
	return Point{}, false
}

func (m *Manager) displace(s *Stack) {
	if p, ok := m.freeNeighbour(s); ok {
		m.log.Debug("stack displaced", "stack", s.Name, "to", p)
		s.X, s.Y = p.X, p.Y
	}
}
