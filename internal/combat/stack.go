package combat

import "github.com/OCAP2/spacecombat/internal/geo"

// Kind is the variant tag of a Stack.
type Kind uint8

const (
	KindShip Kind = iota
	KindMonster
	KindMissile
	KindColony
)

func (k Kind) String() string {
	switch k {
	case KindMonster:
		return "monster"
	case KindMissile:
		return "missile"
	case KindColony:
		return "colony"
	default:
		return "ship"
	}
}

// Point is a grid cell.
type Point struct {
	X, Y int
}

// ColonyInfo is the payload carried by colony stacks. Num counts defensive bases.
type ColonyInfo struct {
	Population   float64
	Interdiction bool
}

// Stack is a group of identical units sharing a cell, hit pool and weapons.
// Ships and colony bases track hits per unit; monsters and missiles lose every
// unit at once when their hit pool runs out.
type Stack struct {
	ID      int
	Name    string
	Kind    Kind
	Owner   Owner
	Captain Captain

	Num         int
	StartingNum int
	MaxHits     float64
	Hits        float64
	MaxShield   float64
	Shield      float64

	Attack          int
	BeamDefense     int
	MissileDefense  int
	Initiative      int
	MaxMove         int
	Move            int
	Maneuverability int

	RepairPct      float64
	BeamRangeBonus int
	RepulsorRange  int
	Scanner        bool
	CanCloak       bool
	CanTeleport    bool
	Displaces      bool

	X, Y    int
	Weapons []*WeaponSlot
	Colony  *ColonyInfo

	InStasis    bool
	StasisTurns int
	Cloaked     bool
	Retreating  bool

	home        string
	selected    int
	teleporting bool
	fired       bool
	ward        *Stack
	mgr         *Manager
	removed     bool
	destroyed   bool
}

// Destroyed reports whether no unit of the stack remains.
func (s *Stack) Destroyed() bool {
	return s.Num < 1 || s.MaxHits <= 0
}

// Removed reports whether the stack has left the active roster.
func (s *Stack) Removed() bool {
	return s.removed
}

// Targetable reports whether the stack can be chosen as a weapon target at all.
// A colony whose bases have fallen stays targetable while it has population,
// but only ground-only weapons may fire at it.
func (s *Stack) Targetable() bool {
	if s.removed || s.Kind == KindMissile {
		return false
	}
	return !s.Destroyed() || s.Fallen()
}

// Fallen reports whether s is a colony with no bases left but people to bomb.
func (s *Stack) Fallen() bool {
	return s.Kind == KindColony && s.Destroyed() && s.Colony != nil && s.Colony.Population > 0
}

// Movable reports whether the stack has movement left this turn.
func (s *Stack) Movable() bool {
	if s.InStasis || s.Kind == KindColony || s.Kind == KindMissile {
		return false
	}
	return s.Move > 0
}

// Armed reports whether any weapon slot can still fire in some future turn.
func (s *Stack) Armed() bool {
	if s.Destroyed() {
		return false
	}
	for _, ws := range s.Weapons {
		if ws.Count > 0 && ws.HasAmmo() {
			return true
		}
	}
	return false
}

// Retreatable reports whether the stack can leave the battle under its own power.
func (s *Stack) Retreatable() bool {
	return s.CanRetreat()
}

// Visible reports whether hostiles can currently see the stack.
func (s *Stack) Visible() bool {
	return !s.Cloaked
}

// Teleporting reports whether the stack may teleport this turn.
func (s *Stack) Teleporting() bool {
	return s.teleporting
}

func (s *Stack) Position() Point {
	return Point{X: s.X, Y: s.Y}
}

// Home is the system the stack retreats to by default.
func (s *Stack) Home() string {
	return s.home
}

// DistanceTo returns the grid distance to another stack.
func (s *Stack) DistanceTo(o *Stack) int {
	return geo.Chebyshev(s.X, s.Y, o.X, o.Y)
}

// TotalHits is the combined hit pool of all remaining units.
func (s *Stack) TotalHits() float64 {
	if s.Destroyed() {
		return 0
	}
	return float64(s.Num-1)*s.MaxHits + s.Hits
}

// Ward returns the stack this one is protecting.
func (s *Stack) Ward() *Stack {
	return s.ward
}

func (s *Stack) HasWard() bool {
	return s.ward != nil
}

func (s *Stack) SetWard(w *Stack) {
	s.ward = w
}

func (s *Stack) perUnit() bool {
	return s.Kind == KindShip || s.Kind == KindColony
}

// BeginTurn prepares the stack to act.
func (s *Stack) BeginTurn() {
	s.Move = s.MaxMove
	s.fired = false
	s.teleporting = s.CanTeleport && (s.mgr == nil || !s.mgr.interdicts(s))
	s.ReloadWeapons()
	if s.RepairPct > 0 && !s.Destroyed() && s.Hits < s.MaxHits {
		s.Hits = min(s.MaxHits, s.Hits+s.RepairPct*s.MaxHits)
	}
	if s.mgr != nil {
		s.mgr.pursueMissiles(s)
	}
}

// EndTurn applies end-of-turn effects: stasis countdown, recloaking and missile ageing.
func (s *Stack) EndTurn() {
	if s.InStasis && s.StasisTurns > 0 {
		s.StasisTurns--
		if s.StasisTurns == 0 {
			s.InStasis = false
		}
	}
	if s.CanCloak && !s.fired && !s.Destroyed() {
		s.Cloaked = true
	}
	if s.mgr != nil {
		s.mgr.ageMissiles(s)
	}
}

// IsTurnComplete reports whether the stack has nothing left to do this turn.
func (s *Stack) IsTurnComplete() bool {
	if s.InStasis {
		return true
	}
	return !s.Movable() && !s.canFireAtAnything()
}

func (s *Stack) canFireAtAnything() bool {
	if s.mgr == nil {
		for _, ws := range s.Weapons {
			if ws.Ready() {
				return true
			}
		}
		return false
	}
	for _, t := range s.mgr.stacks {
		if t.removed || !s.mgr.Hostile(s.Owner, t.Owner) {
			continue
		}
		if s.CanAttackAny(t) {
			return true
		}
	}
	return false
}

// CanRetreat reports whether the stack may withdraw from the battle.
func (s *Stack) CanRetreat() bool {
	switch {
	case s.Kind == KindColony || s.Kind == KindMissile:
		return false
	case s.Maneuverability <= 0:
		return false
	case s.InStasis || s.removed || s.Destroyed():
		return false
	}
	return true
}

// RetreatToSystem withdraws the stack towards dest.
func (s *Stack) RetreatToSystem(dest string) bool {
	if !s.CanRetreat() {
		return false
	}
	s.Retreating = true
	if s.mgr != nil {
		s.mgr.RetreatStack(s, dest)
	} else {
		s.removed = true
	}
	return true
}

// LoseShip removes one unit and restores the survivors to full strength.
func (s *Stack) LoseShip() {
	if s.Num <= 0 {
		return
	}
	s.Num--
	if s.Kind == KindColony && s.mgr != nil {
		s.mgr.results.AddBasesDestroyed(s, 1)
	}
	if s.Num > 0 {
		s.Hits = s.MaxHits
		s.Shield = s.MaxShield
		return
	}
	s.Hits = 0
	s.notifyDestroyed()
}

func (s *Stack) loseAll() {
	if s.Num <= 0 {
		return
	}
	s.Num = 0
	s.Hits = 0
	s.notifyDestroyed()
}

func (s *Stack) notifyDestroyed() {
	if s.mgr != nil {
		s.mgr.DestroyStack(s)
		return
	}
	s.BecomeDestroyed()
}

// BecomeDestroyed zeroes the stack and releases its weapons.
func (s *Stack) BecomeDestroyed() {
	s.Num = 0
	s.Hits = 0
	s.Move = 0
	s.Cloaked = false
	s.teleporting = false
	for _, ws := range s.Weapons {
		ws.ShotsLeft = 0
	}
}
