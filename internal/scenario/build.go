package scenario

import (
	"fmt"

	"github.com/OCAP2/spacecombat/internal/combat"
)

// Build turns the scenario into a battle with fresh stacks. Every stack is
// driven by captain.
func (f *File) Build(captain combat.Captain) (combat.Battle, error) {
	systemType, err := combat.ParseSystemType(f.System.Type)
	if err != nil {
		return combat.Battle{}, err
	}
	attacker, ok := f.Owner(f.Attacker)
	if !ok {
		return combat.Battle{}, ErrNoSides
	}
	defender, ok := f.Owner(f.Defender)
	if !ok {
		return combat.Battle{}, ErrNoSides
	}

	weapons := make(map[string]*combat.Weapon, len(f.Weapons))
	for name, spec := range f.Weapons {
		w, err := spec.build(name)
		if err != nil {
			return combat.Battle{}, err
		}
		weapons[name] = w
	}

	b := combat.Battle{
		Name:           f.Name,
		System:         combat.System{Name: f.System.Name, Type: systemType},
		Attacker:       attacker,
		Defender:       defender,
		MonsterCaptain: captain,
	}
	for _, fl := range f.Fleets {
		owner, _ := f.Owner(fl.Empire)
		fleet := combat.Fleet{Owner: owner, Home: fl.Home, Captain: captain}
		for _, spec := range fl.Stacks {
			fleet.Stacks = append(fleet.Stacks, spec.build(combat.KindShip, weapons))
		}
		b.Fleets = append(b.Fleets, fleet)
	}
	for _, spec := range f.Monsters {
		b.Monsters = append(b.Monsters, spec.build(combat.KindMonster, weapons))
	}
	if c := f.Colony; c != nil {
		owner, _ := f.Owner(c.Empire)
		b.Colony = c.build(owner, weapons)
		b.Colony.Captain = captain
	}
	return b, nil
}

func (w WeaponSpec) build(name string) (*combat.Weapon, error) {
	kind, err := combat.ParseWeaponKind(w.Kind)
	if err != nil {
		return nil, fmt.Errorf("weapon %q: %w", name, err)
	}
	shieldAdj := 1.0
	if w.ShieldAdj != nil {
		shieldAdj = *w.ShieldAdj
	}
	return &combat.Weapon{
		Name:        name,
		Kind:        kind,
		MinDamage:   w.Damage[0],
		MaxDamage:   w.Damage[1],
		Range:       w.Range,
		ShieldAdj:   shieldAdj,
		AttackBonus: w.AttackBonus,
		Ammo:        w.Ammo,
		Cooldown:    w.Cooldown,
		GroundOnly:  w.GroundOnly,
		Speed:       w.Speed,
		Lifetime:    w.Lifetime,
		Falloff:     w.Falloff,
	}, nil
}

func mount(mounts []MountSpec, weapons map[string]*combat.Weapon) []*combat.WeaponSlot {
	slots := make([]*combat.WeaponSlot, 0, len(mounts))
	for _, m := range mounts {
		count := m.Count
		if count == 0 {
			count = 1
		}
		slots = append(slots, combat.NewWeaponSlot(weapons[m.Weapon], count, m.Shots))
	}
	return slots
}

func (s StackSpec) build(kind combat.Kind, weapons map[string]*combat.Weapon) *combat.Stack {
	return &combat.Stack{
		Name:            s.Name,
		Kind:            kind,
		Num:             s.Units,
		MaxHits:         s.Hits,
		MaxShield:       s.Shield,
		Attack:          s.Attack,
		BeamDefense:     s.BeamDefense,
		MissileDefense:  s.MissileDefense,
		Initiative:      s.Initiative,
		MaxMove:         s.Move,
		Maneuverability: s.Maneuverability,
		RepairPct:       s.Repair,
		BeamRangeBonus:  s.BeamRange,
		RepulsorRange:   s.Repulsor,
		Scanner:         s.Scanner,
		CanCloak:        s.Cloak,
		Cloaked:         s.Cloak,
		CanTeleport:     s.Teleport,
		Displaces:       s.Displaces,
		Weapons:         mount(s.Weapons, weapons),
	}
}

func (c ColonySpec) build(owner combat.Owner, weapons map[string]*combat.Weapon) *combat.Stack {
	hits := c.Hits
	if hits <= 0 {
		hits = 1
	}
	return &combat.Stack{
		Name:           c.Name,
		Kind:           combat.KindColony,
		Owner:          owner,
		Num:            c.Bases,
		MaxHits:        hits,
		MaxShield:      c.Shield,
		BeamDefense:    c.BeamDefense,
		MissileDefense: c.MissileDefense,
		Initiative:     c.Initiative,
		Weapons:        mount(c.Weapons, weapons),
		Colony:         &combat.ColonyInfo{Population: c.Population, Interdiction: c.Interdiction},
	}
}
