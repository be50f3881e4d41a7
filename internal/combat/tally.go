package combat

// Tally is the basic in-memory Results implementation.
type Tally struct {
	attacker Owner
	defender Owner

	victor    Owner
	hasVictor bool

	damage         map[ownerKey]float64
	retreated      map[ownerKey]int
	shipsLost      map[ownerKey]int
	stacksLost     map[ownerKey]int
	basesDestroyed int
}

var _ Results = (*Tally)(nil)

func NewTally(attacker, defender Owner) *Tally {
	return &Tally{
		attacker:   attacker,
		defender:   defender,
		damage:     make(map[ownerKey]float64),
		retreated:  make(map[ownerKey]int),
		shipsLost:  make(map[ownerKey]int),
		stacksLost: make(map[ownerKey]int),
	}
}

func (t *Tally) AddShipsRetreated(s *Stack, count int) {
	t.retreated[s.Owner.key()] += count
}

func (t *Tally) AddShipStackDestroyed(s *Stack) {
	t.stacksLost[s.Owner.key()]++
	t.shipsLost[s.Owner.key()] += s.StartingNum
}

func (t *Tally) AddBasesDestroyed(_ *Stack, count int) {
	t.basesDestroyed += count
}

func (t *Tally) AddDamageSustained(owner Owner, dmg float64) {
	t.damage[owner.key()] += dmg
}

func (t *Tally) DamageSustained(owner Owner) float64 {
	return t.damage[owner.key()]
}

func (t *Tally) SetVictor(owner Owner) {
	t.victor = owner
	t.hasVictor = true
}

// Victor returns the winning side once the battle has ended.
func (t *Tally) Victor() (Owner, bool) {
	return t.victor, t.hasVictor
}

func (t *Tally) Attacker() Owner { return t.attacker }
func (t *Tally) Defender() Owner { return t.defender }

// ShipsRetreated returns how many units of owner left the battle.
func (t *Tally) ShipsRetreated(owner Owner) int {
	return t.retreated[owner.key()]
}

// StacksDestroyed returns how many stacks owner lost.
func (t *Tally) StacksDestroyed(owner Owner) int {
	return t.stacksLost[owner.key()]
}

// ShipsDestroyed counts the units in every stack owner lost.
func (t *Tally) ShipsDestroyed(owner Owner) int {
	return t.shipsLost[owner.key()]
}

func (t *Tally) BasesDestroyed() int {
	return t.basesDestroyed
}
