package combat

import (
	"testing"

	"github.com/stretchr/testify/require"
)

var (
	attackerEmpire = Empire(1, "Alkari")
	defenderEmpire = Empire(2, "Bulrathi")
)

// scripted is a captain that runs an optional function and counts its turns.
type scripted struct {
	turns   int
	act     func(m *Manager, s *Stack)
	retreat bool
}

func (c *scripted) PerformTurn(m *Manager, s *Stack) {
	c.turns++
	if c.act != nil {
		c.act(m, s)
	}
}

func (c *scripted) WantToRetreat(*Manager, *Stack) bool { return c.retreat }

func (c *scripted) RetreatDestination(_ *Stack, home string) (string, bool) {
	if home == "" {
		return "deep space", true
	}
	return home, true
}

func (c *scripted) PathTo(*Manager, *Stack, int, int) []Point { return nil }

func laser(dmg float64, rng int) *Weapon {
	return &Weapon{Name: "laser", Kind: WeaponBeam, MinDamage: dmg, MaxDamage: dmg, Range: rng, ShieldAdj: 1}
}

func ship(name string, num int, hits float64, slots ...*WeaponSlot) *Stack {
	return &Stack{
		Name:            name,
		Kind:            KindShip,
		Num:             num,
		MaxHits:         hits,
		MaxMove:         2,
		Maneuverability: 1,
		Weapons:         slots,
	}
}

func newTestManager(t *testing.T, cfg Config, opts ...Option) *Manager {
	t.Helper()
	if cfg.Seed == 0 {
		cfg.Seed = 7
	}
	m, err := NewManager(cfg, opts...)
	require.NoError(t, err)
	return m
}

// duel sets up attacker a against defender d in an empty normal system.
func duel(t *testing.T, a, d *Stack, opts ...Option) *Manager {
	t.Helper()
	m := newTestManager(t, Config{MaxRounds: 100}, opts...)
	m.SetupBattle(Battle{
		Name:     "duel",
		System:   System{Name: "Sol", Type: SystemNormal},
		Attacker: attackerEmpire,
		Defender: defenderEmpire,
		Fleets: []Fleet{
			{Owner: attackerEmpire, Home: "Alkar", Captain: &scripted{}, Stacks: []*Stack{a}},
			{Owner: defenderEmpire, Home: "Bulrath", Captain: &scripted{}, Stacks: []*Stack{d}},
		},
	})
	return m
}

// countingResults wraps a Tally and counts destruction notifications.
type countingResults struct {
	*Tally
	destroyed map[*Stack]int
}

func newCountingResults() *countingResults {
	return &countingResults{
		Tally:     NewTally(attackerEmpire, defenderEmpire),
		destroyed: make(map[*Stack]int),
	}
}

func (r *countingResults) AddShipStackDestroyed(s *Stack) {
	r.destroyed[s]++
	r.Tally.AddShipStackDestroyed(s)
}
