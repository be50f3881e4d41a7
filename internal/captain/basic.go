// Package captain holds the decision policies that drive stacks in battle.
package captain

import (
	"log/slog"

	"github.com/OCAP2/spacecombat/internal/combat"
)

// maxActions bounds the fire/move cycle of a single turn.
const maxActions = 16

// Basic fires at the visible hostile it expects to hurt most and closes
// distance when nothing is in range. It withdraws once its hit pool drops
// below RetreatBelow of what it started with.
type Basic struct {
	RetreatBelow float64
	Fallback     string

	log *slog.Logger
}

var _ combat.Captain = (*Basic)(nil)

// NewBasic creates a Basic captain. fallback is the retreat destination for
// stacks without a home system.
func NewBasic(retreatBelow float64, fallback string, log *slog.Logger) *Basic {
	if log == nil {
		log = slog.Default()
	}
	return &Basic{RetreatBelow: retreatBelow, Fallback: fallback, log: log}
}

func (c *Basic) PerformTurn(m *combat.Manager, s *combat.Stack) {
	if c.WantToRetreat(m, s) {
		if dest, ok := c.RetreatDestination(s, s.Home()); ok && s.RetreatToSystem(dest) {
			c.log.Debug("captain retreating", "stack", s.Name, "destination", dest)
			return
		}
	}

	for range maxActions {
		if m.Current() != s || s.IsTurnComplete() {
			return
		}
		if c.fire(m, s) {
			continue
		}
		if !c.approach(m, s) {
			return
		}
	}
}

func (c *Basic) WantToRetreat(_ *combat.Manager, s *combat.Stack) bool {
	if c.RetreatBelow <= 0 || !s.CanRetreat() {
		return false
	}
	full := float64(s.StartingNum) * s.MaxHits
	return full > 0 && s.TotalHits() < c.RetreatBelow*full
}

func (c *Basic) RetreatDestination(_ *combat.Stack, home string) (string, bool) {
	switch {
	case home != "":
		return home, true
	case c.Fallback != "":
		return c.Fallback, true
	}
	return "", false
}

// PathTo returns the cells leading from s towards (x,y), ending next to it
// when the cell itself is occupied. It returns nil if no route exists.
func (c *Basic) PathTo(m *combat.Manager, s *combat.Stack, x, y int) []combat.Point {
	start := s.Position()
	goal := combat.Point{X: x, Y: y}
	prev := map[combat.Point]combat.Point{start: start}
	queue := []combat.Point{start}

	var end *combat.Point
	for len(queue) > 0 && end == nil {
		p := queue[0]
		queue = queue[1:]
		for _, n := range adjacent(p) {
			if _, seen := prev[n]; seen {
				continue
			}
			if n == goal {
				end = &p
				break
			}
			if !m.Passable(s, n.X, n.Y) {
				continue
			}
			prev[n] = p
			queue = append(queue, n)
		}
	}
	if end == nil || *end == start {
		return nil
	}

	var path []combat.Point
	for p := *end; p != start; p = prev[p] {
		path = append(path, p)
	}
	for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
		path[i], path[j] = path[j], path[i]
	}
	return path
}

func (c *Basic) fire(m *combat.Manager, s *combat.Stack) bool {
	target := c.bestTarget(m, s, true)
	if target == nil || !s.SelectBestWeapon(target) {
		return false
	}
	return s.FireWeapon(target, s.SelectedWeapon(), true) > 0
}

// approach moves s along the path to the best target as far as its movement allows.
func (c *Basic) approach(m *combat.Manager, s *combat.Stack) bool {
	if !s.Movable() {
		return false
	}
	target := c.bestTarget(m, s, false)
	if target == nil {
		return false
	}
	path := c.PathTo(m, s, target.X, target.Y)
	for i := len(path) - 1; i >= 0; i-- {
		if m.ValidMove(s, path[i].X, path[i].Y) {
			return m.MoveStack(s, path[i].X, path[i].Y)
		}
	}
	return false
}

// bestTarget picks the hostile with the highest estimated kills, nearest first on ties.
func (c *Basic) bestTarget(m *combat.Manager, s *combat.Stack, inRange bool) *combat.Stack {
	var best *combat.Stack
	var bestScore float64
	var bestDist int
	for _, t := range m.HostileStacks(s) {
		if !t.Targetable() || t.InStasis || !t.Visible() {
			continue
		}
		if inRange && !s.CanAttackAny(t) {
			continue
		}
		score := s.EstimatedKills(t)
		d := s.DistanceTo(t)
		if best == nil || score > bestScore || (score == bestScore && d < bestDist) {
			best, bestScore, bestDist = t, score, d
		}
	}
	return best
}

func adjacent(p combat.Point) []combat.Point {
	out := make([]combat.Point, 0, 8)
	for dx := -1; dx <= 1; dx++ {
		for dy := -1; dy <= 1; dy++ {
			if dx == 0 && dy == 0 {
				continue
			}
			out = append(out, combat.Point{X: p.X + dx, Y: p.Y + dy})
		}
	}
	return out
}
