package combat

import "fmt"

// WeaponKind selects how a weapon resolves against its target.
type WeaponKind uint8

const (
	WeaponBeam WeaponKind = iota
	WeaponMissile
	WeaponTorpedo
	WeaponBomb
	WeaponStreaming
	WeaponPulsar
	WeaponBlackHole
	WeaponStasis
)

var weaponKindNames = map[WeaponKind]string{
	WeaponBeam:      "beam",
	WeaponMissile:   "missile",
	WeaponTorpedo:   "torpedo",
	WeaponBomb:      "bomb",
	WeaponStreaming: "streaming",
	WeaponPulsar:    "pulsar",
	WeaponBlackHole: "black_hole",
	WeaponStasis:    "stasis",
}

func (k WeaponKind) String() string {
	if n, ok := weaponKindNames[k]; ok {
		return n
	}
	return fmt.Sprintf("weapon(%d)", k)
}

// ParseWeaponKind maps a weapon kind name to its value.
func ParseWeaponKind(name string) (WeaponKind, error) {
	for k, n := range weaponKindNames {
		if n == name {
			return k, nil
		}
	}
	return WeaponBeam, fmt.Errorf("unknown weapon kind %q", name)
}

// Weapon is the static description of a weapon design.
type Weapon struct {
	Name        string
	Kind        WeaponKind
	MinDamage   float64
	MaxDamage   float64
	Range       int
	ShieldAdj   float64
	AttackBonus int
	// Ammo is the number of firing events available per battle; 0 is unlimited.
	Ammo       int
	Cooldown   int
	GroundOnly bool

	// missile and torpedo payload
	Speed    float64
	Lifetime int
	Falloff  float64
}

// Limited reports whether the weapon carries finite ammunition.
func (w *Weapon) Limited() bool {
	return w.Ammo > 0
}

// Launches reports whether firing spawns a missile instead of hitting directly.
func (w *Weapon) Launches() bool {
	return w.Kind == WeaponMissile || w.Kind == WeaponTorpedo
}

func (w *Weapon) groundOnly() bool {
	return w.GroundOnly || w.Kind == WeaponBomb
}

func (w *Weapon) AverageDamage() float64 {
	return (w.MinDamage + w.MaxDamage) / 2
}

// WeaponSlot is a mounted group of identical weapons on a stack.
type WeaponSlot struct {
	Weapon          *Weapon
	Count           int
	ShotsPerRound   int
	ShotsLeft       int
	Ammo            int
	TurnsUntilReady int
}

// NewWeaponSlot mounts count copies of w.
func NewWeaponSlot(w *Weapon, count, shotsPerRound int) *WeaponSlot {
	if shotsPerRound < 1 {
		shotsPerRound = 1
	}
	return &WeaponSlot{
		Weapon:        w,
		Count:         count,
		ShotsPerRound: shotsPerRound,
		ShotsLeft:     shotsPerRound,
		Ammo:          w.Ammo,
	}
}

func (ws *WeaponSlot) Cooldown() int {
	return ws.Weapon.Cooldown
}

func (ws *WeaponSlot) HasAmmo() bool {
	return !ws.Weapon.Limited() || ws.Ammo > 0
}

// Ready reports whether the slot can fire right now against some target.
func (ws *WeaponSlot) Ready() bool {
	return ws.Count > 0 && ws.ShotsLeft > 0 && ws.TurnsUntilReady == 0 && ws.HasAmmo()
}

func (ws *WeaponSlot) reload() {
	if ws.TurnsUntilReady > 0 {
		ws.TurnsUntilReady--
	}
	ws.ShotsLeft = ws.ShotsPerRound
}

// spend consumes shots for one firing event and returns the shots taken.
func (ws *WeaponSlot) spend(allShots bool) int {
	shots := 1
	if allShots {
		shots = ws.ShotsLeft
	}
	ws.ShotsLeft -= shots
	if ws.Weapon.Limited() {
		ws.Ammo--
	}
	if ws.ShotsLeft == 0 && ws.Weapon.Cooldown > 0 {
		// the next reload decrements once before the slot is checked again
		ws.TurnsUntilReady = ws.Weapon.Cooldown + 1
	}
	return shots
}

// ReloadWeapons restores per-turn shots. Ammunition is never restored.
func (s *Stack) ReloadWeapons() {
	for _, ws := range s.Weapons {
		ws.reload()
	}
}

// WeaponRange returns the effective range of a slot against target.
func (s *Stack) WeaponRange(ws *WeaponSlot, target *Stack) int {
	r := ws.Weapon.Range
	switch {
	case ws.Weapon.Kind == WeaponBeam:
		r += s.BeamRangeBonus
	case ws.Weapon.Launches() && (s.Kind == KindColony || target.Kind == KindColony):
		r *= 2
	}
	return r
}

// CanAttack reports whether the given slot may fire at target now.
func (s *Stack) CanAttack(target *Stack, slot int) bool {
	if target == nil || slot < 0 || slot >= len(s.Weapons) {
		return false
	}
	if target.InStasis || target.Kind == KindMissile || !target.Targetable() {
		return false
	}
	ws := s.Weapons[slot]
	if !ws.Ready() {
		return false
	}
	if ws.Weapon.groundOnly() && target.Kind != KindColony {
		return false
	}
	if target.Destroyed() && !ws.Weapon.groundOnly() {
		return false
	}
	return s.DistanceTo(target) <= s.WeaponRange(ws, target)
}

// CanAttackAny reports whether any slot may fire at target now.
func (s *Stack) CanAttackAny(target *Stack) bool {
	for i := range s.Weapons {
		if s.CanAttack(target, i) {
			return true
		}
	}
	return false
}

// SelectedWeapon returns the currently selected slot index.
func (s *Stack) SelectedWeapon() int {
	return s.selected
}

// SelectBestWeapon keeps the selected slot if it can fire at target, otherwise
// rotates through the remaining slots. It reports false after a full rotation
// without a usable slot.
func (s *Stack) SelectBestWeapon(target *Stack) bool {
	n := len(s.Weapons)
	if n == 0 {
		return false
	}
	if s.selected >= n {
		s.selected = 0
	}
	for i := 0; i < n; i++ {
		slot := (s.selected + i) % n
		if s.CanAttack(target, slot) {
			s.selected = slot
			return true
		}
	}
	return false
}

// FireWeapon fires slot at target, taking one shot or every remaining shot.
// It returns the number of shots taken, 0 if the slot could not fire.
func (s *Stack) FireWeapon(target *Stack, slot int, allShots bool) int {
	if s.mgr == nil || !s.CanAttack(target, slot) {
		return 0
	}
	ws := s.Weapons[slot]
	shots := ws.spend(allShots)
	s.fired = true
	s.Cloaked = false
	s.mgr.resolveFire(s, target, ws, shots)
	return shots
}

// EstimatedKills is a deterministic guess of how many target units one full
// volley of every weapon would destroy.
func (s *Stack) EstimatedKills(target *Stack) float64 {
	var kills float64
	for _, ws := range s.Weapons {
		if ws.Count <= 0 || !ws.HasAmmo() {
			continue
		}
		if ws.Weapon.groundOnly() && target.Kind != KindColony {
			continue
		}
		defense := target.BeamDefense
		if ws.Weapon.Launches() {
			defense = target.MissileDefense
		}
		kills += hitChance(s.Attack+ws.Weapon.AttackBonus, defense) * s.expectedKills(ws, target)
	}
	return kills
}

func (s *Stack) expectedKills(ws *WeaponSlot, target *Stack) float64 {
	if target.MaxHits <= 0 || target.Num <= 0 {
		return 0
	}
	attacks := float64(s.Num * ws.Count * ws.ShotsPerRound)
	switch ws.Weapon.Kind {
	case WeaponBlackHole:
		return float64(target.Num) * min(maxKillPct, max(minKillPct, ws.Weapon.AverageDamage()))
	case WeaponStasis:
		return 0
	}
	dmg := mitigate(ws.Weapon.AverageDamage(), target.Shield, ws.Weapon.ShieldAdj)
	if dmg <= 0 {
		return 0
	}
	perAttack := min(1, dmg/target.MaxHits)
	if ws.Weapon.Kind == WeaponStreaming {
		perAttack = dmg / target.MaxHits
	}
	return min(float64(target.Num), attacks*perAttack)
}

func hitChance(attack, defense int) float64 {
	return min(1.0, max(0.05, float64(5+attack-defense)/10))
}
