package combat

import "math"

const (
	minKillPct = 0.05
	maxKillPct = 1.0

	killEpsilon = 1e-9
)

func mitigate(dmg, shield, shieldAdj float64) float64 {
	return max(0, dmg-shield*shieldAdj)
}

func (s *Stack) damageImmune() bool {
	return s.InStasis || s.removed || s.Destroyed()
}

// takeDamage subtracts dmg from the current unit and returns the number of units lost.
func (s *Stack) takeDamage(dmg float64) int {
	if dmg <= 0 || s.damageImmune() {
		return 0
	}
	s.recordDamage(min(dmg, s.Hits))
	s.Hits -= dmg
	if s.Hits > 0 {
		return 0
	}
	if s.perUnit() {
		s.LoseShip()
		return 1
	}
	lost := s.Num
	s.loseAll()
	return lost
}

func (s *Stack) recordDamage(dmg float64) {
	if s.mgr != nil && dmg > 0 {
		s.mgr.results.AddDamageSustained(s.Owner, dmg)
	}
}

// TakeHullDamage applies damage that ignores shields.
func (s *Stack) TakeHullDamage(dmg float64) int {
	return s.takeDamage(dmg)
}

func (s *Stack) TakeBeamDamage(dmg, shieldAdj float64) int {
	return s.takeDamage(mitigate(dmg, s.Shield, shieldAdj))
}

func (s *Stack) TakeMissileDamage(dmg, shieldAdj float64) int {
	return s.takeDamage(mitigate(dmg, s.Shield, shieldAdj))
}

func (s *Stack) TakeTorpedoDamage(dmg, shieldAdj float64) int {
	return s.takeDamage(mitigate(dmg, s.Shield, shieldAdj))
}

func (s *Stack) TakePulsarDamage(dmg, shieldAdj float64) int {
	return s.takeDamage(mitigate(dmg, s.Shield, shieldAdj))
}

// TakeBombDamage only affects colonies. Each hit kills population; while
// bases remain it also damages them.
func (s *Stack) TakeBombDamage(dmg, shieldAdj float64) int {
	if s.Kind != KindColony || s.InStasis || s.removed {
		return 0
	}
	dmg = mitigate(dmg, s.Shield, shieldAdj)
	if dmg <= 0 {
		return 0
	}
	if s.Colony != nil {
		s.Colony.Population = max(0, s.Colony.Population-dmg/10)
	}
	if s.Destroyed() {
		return 0
	}
	return s.takeDamage(dmg)
}

// TakeStreamingDamage carries damage left over after a unit dies into the next unit.
func (s *Stack) TakeStreamingDamage(dmg, shieldAdj float64) int {
	remaining := mitigate(dmg, s.Shield, shieldAdj)
	lost := 0
	for remaining > 0 && !s.damageImmune() {
		if remaining < s.Hits {
			lost += s.takeDamage(remaining)
			break
		}
		remaining -= s.Hits
		lost += s.takeDamage(s.Hits)
	}
	return lost
}

// TakeBlackHoleDamage kills a fraction of the stack's units outright.
func (s *Stack) TakeBlackHoleDamage(pct float64) int {
	if s.damageImmune() {
		return 0
	}
	pct = min(maxKillPct, max(minKillPct, pct))
	// any fraction of a unit is a whole unit lost
	kills := min(s.Num, int(math.Ceil(float64(s.Num)*pct-killEpsilon)))
	if kills <= 0 {
		return 0
	}
	s.recordDamage(float64(kills-1)*s.MaxHits + s.Hits)
	if s.Kind == KindColony && s.mgr != nil {
		s.mgr.results.AddBasesDestroyed(s, kills)
	}
	if kills == s.Num {
		lost := s.Num
		s.loseAll()
		return lost
	}
	s.Num -= kills
	s.Hits = s.MaxHits
	s.Shield = s.MaxShield
	return kills
}
