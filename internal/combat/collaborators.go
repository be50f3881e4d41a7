package combat

// Captain is the decision policy driving a stack. The engine calls it and never
// looks inside.
type Captain interface {
	// PerformTurn moves and fires for s. It must only act through the Manager
	// and Stack methods and return once it is done for this turn.
	PerformTurn(m *Manager, s *Stack)
	WantToRetreat(m *Manager, s *Stack) bool
	RetreatDestination(s *Stack, home string) (string, bool)
	PathTo(m *Manager, s *Stack, x, y int) []Point
}

// Results receives the authoritative outcome of a battle.
type Results interface {
	AddShipsRetreated(s *Stack, count int)
	AddShipStackDestroyed(s *Stack)
	AddBasesDestroyed(s *Stack, count int)
	AddDamageSustained(owner Owner, dmg float64)
	DamageSustained(owner Owner) float64
	SetVictor(owner Owner)
	Victor() (Owner, bool)
	Attacker() Owner
	Defender() Owner
}

// FireReport describes one direct-fire event.
type FireReport struct {
	Shooter     *Stack
	Target      *Stack
	Weapon      *Weapon
	Shots       int
	Attacks     int
	Hits        int
	Damage      float64
	UnitsKilled int
}

// Observer is notified of fine-grained battle events. Observers must not
// mutate the battle.
type Observer interface {
	BattleStarted(m *Manager)
	RoundStarted(m *Manager, round int)
	WeaponFired(m *Manager, r FireReport)
	MissileResolved(m *Manager, ms *Missile)
	StackDestroyed(m *Manager, s *Stack)
	StackRetreated(m *Manager, s *Stack, dest string, forced bool)
	BattleEnded(m *Manager)
}

// Renderer is an optional display hook. It is advisory: the battle resolves the
// same with or without it.
type Renderer interface {
	Animate() bool
	Paint(m *Manager)
}
