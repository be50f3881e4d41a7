// Package combat resolves tactical battles between fleets, colonies and
// monsters on a small grid. A Manager owns every stack for the duration of a
// battle and is advanced one stack-turn at a time with Step.
package combat

import (
	"log/slog"
	"math/rand"
)

const (
	CloakInitiativeBonus    = 200
	TeleportInitiativeBonus = 100
)

// Config holds the tunables of a battle.
type Config struct {
	MaxRounds       int
	ErosionChance   float64
	ObstacleDensity float64
	Seed            int64
}

// DefaultConfig returns the standard battle settings.
func DefaultConfig() Config {
	return Config{
		MaxRounds:       100,
		ErosionChance:   0.05,
		ObstacleDensity: 0.6,
		Seed:            1,
	}
}

// System describes where the battle takes place.
type System struct {
	Name string
	Type SystemType
}

// Fleet is one owner's contribution of stacks.
type Fleet struct {
	Owner   Owner
	Home    string
	Captain Captain
	Stacks  []*Stack
}

// Battle is everything SetupBattle needs.
type Battle struct {
	Name     string
	System   System
	Attacker Owner
	Defender Owner
	Fleets   []Fleet
	Colony   *Stack
	Monsters []*Stack
	// MonsterCaptain drives monster stacks that have no captain of their own.
	MonsterCaptain Captain
}

type state uint8

const (
	stateSetup state = iota
	stateInProgress
	stateFinished
)

// Option configures a Manager.
type Option func(*Manager)

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(m *Manager) {
		m.log = l
	}
}

// WithResults sets the results sink. Defaults to a Tally created at setup.
func WithResults(r Results) Option {
	return func(m *Manager) {
		m.results = r
	}
}

func WithObserver(o Observer) Option {
	return func(m *Manager) {
		m.observer = o
	}
}

func WithRenderer(r Renderer) Option {
	return func(m *Manager) {
		m.renderer = r
	}
}

// WithHostility replaces DefaultHostility.
func WithHostility(f HostilityFunc) Option {
	return func(m *Manager) {
		m.hostile = f
	}
}

// Manager runs a single battle.
type Manager struct {
	cfg      Config
	log      *slog.Logger
	rng      *rand.Rand
	field    *Battlefield
	hostile  HostilityFunc
	results  Results
	observer Observer
	renderer Renderer
	metrics  *instruments

	name     string
	system   System
	attacker Owner
	defender Owner
	colony   *Stack

	state        state
	round        int
	stalemate    bool
	interdiction bool
	nextID       int

	stacks   []*Stack
	missiles []*Missile
	turnList []*Stack
	turnIdx  int
	current  *Stack
	turnSeq  int

	conflict map[ownerKey]bool
	scanned  map[ownerKey]map[*Stack]bool
}

// NewManager creates a manager. The battlefield and hit rolls share one RNG
// seeded from cfg.Seed, so a battle replays identically for a given seed.
func NewManager(cfg Config, opts ...Option) (*Manager, error) {
	if cfg.MaxRounds <= 0 {
		cfg.MaxRounds = DefaultConfig().MaxRounds
	}
	metrics, err := newInstruments()
	if err != nil {
		return nil, err
	}

	rng := rand.New(rand.NewSource(cfg.Seed))
	m := &Manager{
		cfg:     cfg,
		log:     slog.Default(),
		rng:     rng,
		field:   NewBattlefield(rng, cfg.ErosionChance),
		hostile: DefaultHostility,
		metrics: metrics,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}

// Hostile reports whether stacks of a and b fight each other.
func (m *Manager) Hostile(a, b Owner) bool {
	return m.hostile(a, b)
}

func (m *Manager) Name() string { return m.name }
func (m *Manager) System() System { return m.system }
func (m *Manager) Config() Config { return m.cfg }
func (m *Manager) Battlefield() *Battlefield { return m.field }
func (m *Manager) Results() Results { return m.results }
func (m *Manager) Attacker() Owner { return m.attacker }
func (m *Manager) Defender() Owner { return m.defender }
func (m *Manager) Colony() *Stack { return m.colony }
func (m *Manager) Round() int { return m.round }
func (m *Manager) Stalemate() bool { return m.stalemate }
func (m *Manager) Interdiction() bool { return m.interdiction }
func (m *Manager) InProgress() bool { return m.state == stateInProgress }
func (m *Manager) Current() *Stack { return m.current }
func (m *Manager) TurnOrder() []*Stack { return m.turnList }
func (m *Manager) Logger() *slog.Logger { return m.log }
func (m *Manager) RNG() *rand.Rand { return m.rng }

// Stacks returns the stacks still on the battlefield, colonies included.
func (m *Manager) Stacks() []*Stack {
	out := make([]*Stack, 0, len(m.stacks))
	for _, s := range m.stacks {
		if !s.removed {
			out = append(out, s)
		}
	}
	return out
}

// AllStacks returns every stack that took part, including removed ones.
func (m *Manager) AllStacks() []*Stack {
	return m.stacks
}

// HostileStacks returns the stacks on the battlefield that are hostile to s.
func (m *Manager) HostileStacks(s *Stack) []*Stack {
	var out []*Stack
	for _, t := range m.stacks {
		if !t.removed && t != s && m.hostile(s.Owner, t.Owner) {
			out = append(out, t)
		}
	}
	return out
}

// StackAt returns the stack occupying (x,y), if any.
func (m *Manager) StackAt(x, y int) *Stack {
	for _, s := range m.stacks {
		if !s.removed && s.X == x && s.Y == y {
			return s
		}
	}
	return nil
}

// Scanned reports whether owner learned the details of s before the battle.
func (m *Manager) Scanned(owner Owner, s *Stack) bool {
	return m.scanned[owner.key()][s]
}

func (m *Manager) interdicts(s *Stack) bool {
	return m.interdiction && m.colony != nil && m.hostile(s.Owner, m.colony.Owner)
}

func (m *Manager) render() {
	if m.renderer != nil && m.renderer.Animate() {
		m.renderer.Paint(m)
	}
}
