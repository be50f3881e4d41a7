package combat

import "github.com/OCAP2/spacecombat/internal/geo"

func (m *Manager) rollDamage(w *Weapon) float64 {
	if w.MaxDamage <= w.MinDamage {
		return w.MinDamage
	}
	return w.MinDamage + m.rng.Float64()*(w.MaxDamage-w.MinDamage)
}

// resolveFire applies one firing event of ws. Damage scales with the number of
// units, shots taken and physical weapons.
func (m *Manager) resolveFire(shooter, target *Stack, ws *WeaponSlot, shots int) {
	w := ws.Weapon
	attacks := shooter.Num * shots * ws.Count
	m.metrics.shotsFired(w.Name, attacks)

	if w.Launches() {
		m.launchMissile(shooter, target, ws, attacks)
		return
	}

	report := FireReport{
		Shooter: shooter,
		Target:  target,
		Weapon:  w,
		Shots:   shots,
		Attacks: attacks,
	}
	switch w.Kind {
	case WeaponPulsar:
		// pulsars hit every hostile within range, not only the target
		for _, t := range m.stacks {
			if !t.Targetable() || t.Destroyed() || t.InStasis || !m.hostile(shooter.Owner, t.Owner) {
				continue
			}
			if geo.Chebyshev(shooter.X, shooter.Y, t.X, t.Y) > shooter.WeaponRange(ws, t) {
				continue
			}
			r := FireReport{Shooter: shooter, Target: t, Weapon: w, Shots: shots, Attacks: attacks}
			m.applyAttacks(&r, ws)
			m.reportFire(r)
		}
		return
	case WeaponBlackHole:
		m.applyBlackHole(&report, ws)
	case WeaponStasis:
		if m.rng.Float64() < hitChance(shooter.Attack+w.AttackBonus, target.BeamDefense) {
			report.Hits = 1
			target.InStasis = true
			target.StasisTurns = max(1, int(w.MaxDamage))
		}
	default:
		m.applyAttacks(&report, ws)
	}
	m.reportFire(report)
}

func (m *Manager) applyAttacks(r *FireReport, ws *WeaponSlot) {
	w := ws.Weapon
	target := r.Target
	chance := hitChance(r.Shooter.Attack+w.AttackBonus, target.BeamDefense)
	absorbs := func() bool {
		if target.removed {
			return false
		}
		return !target.Destroyed() || (w.groundOnly() && target.Fallen())
	}
	for i := 0; i < r.Attacks && absorbs(); i++ {
		if w.Kind != WeaponPulsar && m.rng.Float64() >= chance {
			continue
		}
		r.Hits++
		dmg := m.rollDamage(w)
		before := target.TotalHits()
		switch w.Kind {
		case WeaponBomb:
			r.UnitsKilled += target.TakeBombDamage(dmg, w.ShieldAdj)
		case WeaponStreaming:
			r.UnitsKilled += target.TakeStreamingDamage(dmg, w.ShieldAdj)
		case WeaponPulsar:
			r.UnitsKilled += target.TakePulsarDamage(dmg, w.ShieldAdj)
		default:
			r.UnitsKilled += target.TakeBeamDamage(dmg, w.ShieldAdj)
		}
		r.Damage += max(0, before-target.TotalHits())
	}
}

func (m *Manager) applyBlackHole(r *FireReport, ws *WeaponSlot) {
	target := r.Target
	pct := m.rollDamage(ws.Weapon) - 0.02*float64(target.BeamDefense)
	before := target.TotalHits()
	r.Hits = 1
	r.UnitsKilled = target.TakeBlackHoleDamage(pct)
	r.Damage = max(0, before-target.TotalHits())
}

func (m *Manager) reportFire(r FireReport) {
	m.log.Debug("weapon fired",
		"shooter", r.Shooter.Name, "target", r.Target.Name, "weapon", r.Weapon.Name,
		"attacks", r.Attacks, "hits", r.Hits, "damage", r.Damage, "killed", r.UnitsKilled)
	if m.observer != nil {
		m.observer.WeaponFired(m, r)
	}
}
