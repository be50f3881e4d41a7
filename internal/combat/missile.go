package combat

import (
	"math"

	"github.com/OCAP2/spacecombat/internal/geo"
)

const (
	missileAttackRadius    = 0.5
	defaultMissileSpeed    = 2
	defaultMissileLifetime = 3
)

// MissileOutcome records how a missile left the battle.
type MissileOutcome string

const (
	MissileInFlight  MissileOutcome = ""
	MissileImpact    MissileOutcome = "impact"
	MissileExpired   MissileOutcome = "expired"
	MissileOutranged MissileOutcome = "outranged"
	MissileLostLock  MissileOutcome = "lost"
	MissileSpent     MissileOutcome = "spent"
)

// PathPoint is a fractional grid position.
type PathPoint struct {
	X, Y float64
}

// Missile is an in-flight salvo locked onto a single target. It advances on
// its launcher's turn and ages at the end of that turn.
type Missile struct {
	Stack

	Launcher  *Stack
	Target    *Stack
	Weapon    *Weapon
	PosX      float64
	PosY      float64
	Lifetime  int
	RangeLeft float64
	Travelled float64
	Path      []PathPoint

	Outcome     MissileOutcome
	DamageDealt float64
	UnitsKilled int
	done        bool
	launchTurn  int
}

// Done reports whether the missile has resolved.
func (ms *Missile) Done() bool {
	return ms.done
}

func (ms *Missile) speed() float64 {
	if ms.Weapon.Speed > 0 {
		return ms.Weapon.Speed
	}
	return defaultMissileSpeed
}

// moveRate is the distance covered per pursuit tick. Faster targets shorten it.
func (ms *Missile) moveRate() float64 {
	v := ms.speed()
	return v * v / (v + float64(ms.Target.MaxMove)/2)
}

func (ms *Missile) lostLock() bool {
	return ms.Target.removed || ms.Target.Destroyed() || ms.Launcher.Destroyed()
}

func (ms *Missile) falloffDamage(dmg float64) float64 {
	return dmg - ms.Weapon.Falloff*ms.Travelled
}

// Pursue runs one pursuit tick.
func (ms *Missile) Pursue() {
	if ms.done {
		return
	}
	if ms.lostLock() {
		ms.resolve(MissileLostLock)
		return
	}
	if !ms.Target.Visible() {
		return
	}

	tx, ty := float64(ms.Target.X), float64(ms.Target.Y)
	dist := geo.ChebyshevF(ms.PosX, ms.PosY, tx, ty)
	if dist <= missileAttackRadius {
		ms.impact()
		return
	}

	step := min(ms.moveRate(), ms.RangeLeft)
	if step >= dist-missileAttackRadius {
		ms.advance(tx, ty, dist, dist-missileAttackRadius)
		ms.impact()
		return
	}
	ms.advance(tx, ty, dist, step)

	switch {
	case ms.falloffDamage(ms.Weapon.MaxDamage) <= 0:
		ms.resolve(MissileSpent)
	case ms.RangeLeft <= 0:
		ms.resolve(MissileOutranged)
	}
}

// Age counts down the missile's lifetime.
func (ms *Missile) Age() {
	if ms.done {
		return
	}
	ms.Lifetime--
	if ms.Lifetime <= 0 {
		ms.resolve(MissileExpired)
	}
}

func (ms *Missile) advance(tx, ty, dist, step float64) {
	if step <= 0 || dist <= 0 {
		return
	}
	ms.PosX, ms.PosY = geo.Lerp(ms.PosX, ms.PosY, tx, ty, step/dist)
	ms.X, ms.Y = int(math.Round(ms.PosX)), int(math.Round(ms.PosY))
	ms.RangeLeft -= step
	ms.Travelled += step
	ms.Path = append(ms.Path, PathPoint{X: ms.PosX, Y: ms.PosY})
}

func (ms *Missile) impact() {
	// resolved up front so a target destroyed by this salvo does not cancel it
	ms.done = true
	ms.Outcome = MissileImpact

	m := ms.mgr
	target := ms.Target
	chance := hitChance(ms.Attack, target.MissileDefense)
	for i := 0; i < ms.Num && !target.Destroyed(); i++ {
		if m.rng.Float64() >= chance {
			continue
		}
		dmg := ms.falloffDamage(m.rollDamage(ms.Weapon))
		if dmg <= 0 {
			continue
		}
		before := target.TotalHits()
		if ms.Weapon.Kind == WeaponTorpedo {
			ms.UnitsKilled += target.TakeTorpedoDamage(dmg, ms.Weapon.ShieldAdj)
		} else {
			ms.UnitsKilled += target.TakeMissileDamage(dmg, ms.Weapon.ShieldAdj)
		}
		ms.DamageDealt += max(0, before-target.TotalHits())
	}
	m.missileResolved(ms)
}

// resolve ends the missile without dealing damage.
func (ms *Missile) resolve(outcome MissileOutcome) {
	if ms.done {
		return
	}
	ms.done = true
	ms.Outcome = outcome
	ms.mgr.missileResolved(ms)
}

func (m *Manager) launchMissile(launcher, target *Stack, ws *WeaponSlot, count int) *Missile {
	w := ws.Weapon
	m.nextID++
	ms := &Missile{
		Stack: Stack{
			ID:          m.nextID,
			Name:        w.Name,
			Kind:        KindMissile,
			Owner:       launcher.Owner,
			Num:         count,
			StartingNum: count,
			MaxHits:     1,
			Hits:        1,
			Attack:      launcher.Attack + w.AttackBonus,
			MaxMove:     int(w.Speed),
			X:           launcher.X,
			Y:           launcher.Y,
			mgr:         m,
		},
		Launcher:   launcher,
		Target:     target,
		Weapon:     w,
		PosX:       float64(launcher.X),
		PosY:       float64(launcher.Y),
		Lifetime:   w.Lifetime,
		RangeLeft:  float64(launcher.WeaponRange(ws, target)) + missileAttackRadius,
		Path:       []PathPoint{{X: float64(launcher.X), Y: float64(launcher.Y)}},
		launchTurn: m.turnSeq,
	}
	if ms.Lifetime <= 0 {
		ms.Lifetime = defaultMissileLifetime
	}
	m.missiles = append(m.missiles, ms)
	m.metrics.missileLaunched()
	m.log.Debug("missile launched",
		"launcher", launcher.Name, "target", target.Name, "weapon", w.Name, "count", count)
	return ms
}

func (m *Manager) missileResolved(ms *Missile) {
	m.log.Debug("missile resolved",
		"launcher", ms.Launcher.Name, "target", ms.Target.Name,
		"outcome", string(ms.Outcome), "damage", ms.DamageDealt)
	if m.observer != nil {
		m.observer.MissileResolved(m, ms)
	}
}

// pursueMissiles advances every missile launched by s.
func (m *Manager) pursueMissiles(s *Stack) {
	for i := 0; i < len(m.missiles); i++ {
		if ms := m.missiles[i]; ms.Launcher == s && !ms.done {
			ms.Pursue()
		}
	}
}

// ageMissiles ages the missiles of s. A salvo launched this turn has not
// flown yet and keeps its full lifetime.
func (m *Manager) ageMissiles(s *Stack) {
	for i := 0; i < len(m.missiles); i++ {
		if ms := m.missiles[i]; ms.Launcher == s && !ms.done && ms.launchTurn != m.turnSeq {
			ms.Age()
		}
	}
}

// cancelMissiles resolves every missile launched by or locked onto s.
func (m *Manager) cancelMissiles(s *Stack) {
	for i := 0; i < len(m.missiles); i++ {
		if ms := m.missiles[i]; !ms.done && (ms.Launcher == s || ms.Target == s) {
			ms.resolve(MissileLostLock)
		}
	}
}

// Missiles returns the missiles still in flight.
func (m *Manager) Missiles() []*Missile {
	var out []*Missile
	for _, ms := range m.missiles {
		if !ms.done {
			out = append(out, ms)
		}
	}
	return out
}
