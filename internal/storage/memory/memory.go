package memory

import (
	"sync"

	"github.com/OCAP2/spacecombat/internal/config"
	"github.com/OCAP2/spacecombat/pkg/core"
)

// CombatantRecord groups a combatant with all its time-series data
type CombatantRecord struct {
	Combatant   core.Combatant
	States      []core.StackState
	FireEvents  []core.FireEvent
	Destroyed   *core.DestroyedEvent
	RetreatedTo *core.RetreatEvent
}

// Backend stores battle data in memory and exports to JSON
type Backend struct {
	cfg    config.MemoryConfig
	battle *core.Battle

	combatants map[int]*CombatantRecord // keyed by StackID
	order      []int

	missileEvents []core.MissileEvent

	idCounter      uint
	lastExportPath string
	mu             sync.RWMutex
}

// New creates a new memory backend
func New(cfg config.MemoryConfig) *Backend {
	return &Backend{
		cfg:        cfg,
		combatants: make(map[int]*CombatantRecord),
	}
}

// Init initializes the backend
func (b *Backend) Init() error {
	return nil
}

// Close cleans up resources
func (b *Backend) Close() error {
	return nil
}

// StartBattle begins recording a new battle
func (b *Backend) StartBattle(battle *core.Battle) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	copied := *battle
	b.battle = &copied

	// Reset all collections
	b.combatants = make(map[int]*CombatantRecord)
	b.order = nil
	b.missileEvents = nil
	b.idCounter = 0
	b.lastExportPath = ""

	return nil
}

// EndBattle stores the final battle record and exports it
func (b *Backend) EndBattle(battle *core.Battle) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.battle == nil {
		return nil
	}
	id := b.battle.ID
	*b.battle = *battle
	b.battle.ID = id

	return b.exportJSON()
}

// AddCombatant registers a new combatant
func (b *Backend) AddCombatant(c *core.Combatant) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.idCounter++
	c.ID = b.idCounter

	if _, ok := b.combatants[c.StackID]; !ok {
		b.order = append(b.order, c.StackID)
	}
	b.combatants[c.StackID] = &CombatantRecord{
		Combatant: *c,
		States:    make([]core.StackState, 0),
	}
	return nil
}

// GetCombatant looks up a combatant by its stack ID
func (b *Backend) GetCombatant(stackID int) (*core.Combatant, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if record, ok := b.combatants[stackID]; ok {
		return &record.Combatant, true
	}
	return nil, false
}

// RecordStackState records a per-round stack snapshot
func (b *Backend) RecordStackState(s *core.StackState) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if record, ok := b.combatants[s.StackID]; ok {
		record.States = append(record.States, *s)
	}
	return nil // silently ignore if combatant not found
}

// RecordFireEvent records a direct-fire event against the shooter
func (b *Backend) RecordFireEvent(e *core.FireEvent) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if record, ok := b.combatants[e.ShooterID]; ok {
		record.FireEvents = append(record.FireEvents, *e)
	}
	return nil
}

// RecordMissileEvent records a resolved missile salvo
func (b *Backend) RecordMissileEvent(e *core.MissileEvent) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.missileEvents = append(b.missileEvents, *e)
	return nil
}

// RecordDestroyedEvent marks a combatant destroyed
func (b *Backend) RecordDestroyedEvent(e *core.DestroyedEvent) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if record, ok := b.combatants[e.StackID]; ok {
		ev := *e
		record.Destroyed = &ev
	}
	return nil
}

// RecordRetreatEvent marks a combatant as retreated
func (b *Backend) RecordRetreatEvent(e *core.RetreatEvent) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if record, ok := b.combatants[e.StackID]; ok {
		ev := *e
		record.RetreatedTo = &ev
	}
	return nil
}
