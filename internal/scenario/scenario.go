// Package scenario loads battle descriptions from YAML files.
package scenario

import (
	"errors"
	"fmt"
	"os"

	"github.com/OCAP2/spacecombat/internal/combat"
	"gopkg.in/yaml.v3"
)

var (
	// ErrNoSides is returned when a scenario does not name a known attacker and defender.
	ErrNoSides = errors.New("scenario needs an attacker and a defender")
	// ErrUnknownWeapon is returned when a stack mounts a weapon that is not defined.
	ErrUnknownWeapon = errors.New("unknown weapon")
)

// File is the on-disk scenario format.
type File struct {
	Name      string                `yaml:"name"`
	Seed      int64                 `yaml:"seed"`
	MaxRounds int                   `yaml:"max_rounds"`
	System    SystemSpec            `yaml:"system"`
	Empires   []EmpireSpec          `yaml:"empires"`
	Attacker  string                `yaml:"attacker"`
	Defender  string                `yaml:"defender"`
	Weapons   map[string]WeaponSpec `yaml:"weapons"`
	Fleets    []FleetSpec           `yaml:"fleets"`
	Colony    *ColonySpec           `yaml:"colony"`
	Monsters  []StackSpec           `yaml:"monsters"`
}

type SystemSpec struct {
	Name string `yaml:"name"`
	Type string `yaml:"type"`
}

type EmpireSpec struct {
	ID   int    `yaml:"id"`
	Name string `yaml:"name"`
}

// WeaponSpec describes a weapon design. Damage is [min, max].
type WeaponSpec struct {
	Kind        string     `yaml:"kind"`
	Damage      [2]float64 `yaml:"damage"`
	Range       int        `yaml:"range"`
	ShieldAdj   *float64   `yaml:"shield_adj"`
	AttackBonus int        `yaml:"attack_bonus"`
	Ammo        int        `yaml:"ammo"`
	Cooldown    int        `yaml:"cooldown"`
	GroundOnly  bool       `yaml:"ground_only"`
	Speed       float64    `yaml:"speed"`
	Lifetime    int        `yaml:"lifetime"`
	Falloff     float64    `yaml:"falloff"`
}

// MountSpec mounts Count copies of a named weapon.
type MountSpec struct {
	Weapon string `yaml:"weapon"`
	Count  int    `yaml:"count"`
	Shots  int    `yaml:"shots"`
}

// StackSpec describes a ship or monster stack. Hits is per unit.
type StackSpec struct {
	Name            string      `yaml:"name"`
	Units           int         `yaml:"units"`
	Hits            float64     `yaml:"hits"`
	Shield          float64     `yaml:"shield"`
	Attack          int         `yaml:"attack"`
	BeamDefense     int         `yaml:"beam_defense"`
	MissileDefense  int         `yaml:"missile_defense"`
	Initiative      int         `yaml:"initiative"`
	Move            int         `yaml:"move"`
	Maneuverability int         `yaml:"maneuverability"`
	Repair          float64     `yaml:"repair"`
	BeamRange       int         `yaml:"beam_range"`
	Repulsor        int         `yaml:"repulsor"`
	Scanner         bool        `yaml:"scanner"`
	Cloak           bool        `yaml:"cloak"`
	Teleport        bool        `yaml:"teleport"`
	Displaces       bool        `yaml:"displaces"`
	Weapons         []MountSpec `yaml:"weapons"`
}

type FleetSpec struct {
	Empire string      `yaml:"empire"`
	Home   string      `yaml:"home"`
	Stacks []StackSpec `yaml:"stacks"`
}

// ColonySpec describes a defended colony. Bases is the number of missile bases.
type ColonySpec struct {
	Name           string      `yaml:"name"`
	Empire         string      `yaml:"empire"`
	Bases          int         `yaml:"bases"`
	Hits           float64     `yaml:"hits"`
	Shield         float64     `yaml:"shield"`
	BeamDefense    int         `yaml:"beam_defense"`
	MissileDefense int         `yaml:"missile_defense"`
	Initiative     int         `yaml:"initiative"`
	Population     float64     `yaml:"population"`
	Interdiction   bool        `yaml:"interdiction"`
	Weapons        []MountSpec `yaml:"weapons"`
}

// Load reads and validates a scenario file.
func Load(path string) (*File, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading scenario: %w", err)
	}
	f, err := Parse(b)
	if err != nil {
		return nil, fmt.Errorf("scenario %s: %w", path, err)
	}
	return f, nil
}

// Parse decodes a scenario, applies defaults and validates it.
func Parse(b []byte) (*File, error) {
	var f File
	if err := yaml.Unmarshal(b, &f); err != nil {
		return nil, fmt.Errorf("decoding yaml: %w", err)
	}
	f.applyDefaults()
	if err := f.Validate(); err != nil {
		return nil, err
	}
	return &f, nil
}

func (f *File) applyDefaults() {
	if f.Name == "" {
		f.Name = "unnamed battle"
	}
	if f.System.Name == "" {
		f.System.Name = "unknown system"
	}
	for i := range f.Empires {
		if f.Empires[i].ID == 0 {
			f.Empires[i].ID = i + 1
		}
	}
	for i := range f.Fleets {
		for j := range f.Fleets[i].Stacks {
			defaultStack(&f.Fleets[i].Stacks[j], 1)
		}
	}
	for j := range f.Monsters {
		defaultStack(&f.Monsters[j], 0)
	}
}

func defaultStack(s *StackSpec, maneuverability int) {
	if s.Units == 0 {
		s.Units = 1
	}
	if s.Maneuverability == 0 {
		s.Maneuverability = maneuverability
	}
}

// Validate checks sides, system type, weapon definitions and references.
func (f *File) Validate() error {
	if f.Attacker == "" || f.Defender == "" {
		return ErrNoSides
	}
	if _, ok := f.Owner(f.Attacker); !ok {
		return fmt.Errorf("%w: attacker %q is not a listed empire", ErrNoSides, f.Attacker)
	}
	if _, ok := f.Owner(f.Defender); !ok {
		return fmt.Errorf("%w: defender %q is not a listed empire", ErrNoSides, f.Defender)
	}
	if _, err := combat.ParseSystemType(f.System.Type); err != nil {
		return err
	}
	for name, w := range f.Weapons {
		if _, err := combat.ParseWeaponKind(w.Kind); err != nil {
			return fmt.Errorf("weapon %q: %w", name, err)
		}
		if w.Damage[1] < w.Damage[0] {
			return fmt.Errorf("weapon %q: max damage below min damage", name)
		}
	}

	for _, fl := range f.Fleets {
		if _, ok := f.Owner(fl.Empire); !ok {
			return fmt.Errorf("fleet of unknown empire %q", fl.Empire)
		}
		for _, s := range fl.Stacks {
			if err := f.validateStack(s.Name, s.Hits, s.Weapons); err != nil {
				return err
			}
		}
	}
	for _, s := range f.Monsters {
		if err := f.validateStack(s.Name, s.Hits, s.Weapons); err != nil {
			return err
		}
	}
	if c := f.Colony; c != nil {
		if _, ok := f.Owner(c.Empire); !ok {
			return fmt.Errorf("colony of unknown empire %q", c.Empire)
		}
		if err := f.validateMounts(c.Name, c.Weapons); err != nil {
			return err
		}
	}
	return nil
}

func (f *File) validateStack(name string, hits float64, mounts []MountSpec) error {
	if hits <= 0 {
		return fmt.Errorf("stack %q: hits must be positive", name)
	}
	return f.validateMounts(name, mounts)
}

func (f *File) validateMounts(name string, mounts []MountSpec) error {
	for _, m := range mounts {
		if _, ok := f.Weapons[m.Weapon]; !ok {
			return fmt.Errorf("stack %q: %w %q", name, ErrUnknownWeapon, m.Weapon)
		}
	}
	return nil
}

// Config overlays the scenario's seed and round cap on base.
func (f *File) Config(base combat.Config) combat.Config {
	if f.Seed != 0 {
		base.Seed = f.Seed
	}
	if f.MaxRounds > 0 {
		base.MaxRounds = f.MaxRounds
	}
	return base
}

// Owner resolves an empire name.
func (f *File) Owner(name string) (combat.Owner, bool) {
	for _, e := range f.Empires {
		if e.Name == name {
			return combat.Empire(e.ID, e.Name), true
		}
	}
	return combat.Owner{}, false
}
