package gormstorage

import (
	"testing"
	"time"

	"github.com/OCAP2/spacecombat/internal/cache"
	"github.com/OCAP2/spacecombat/internal/database"
	"github.com/OCAP2/spacecombat/internal/logging"
	"github.com/OCAP2/spacecombat/internal/model"
	"github.com/OCAP2/spacecombat/internal/storage"
	"github.com/OCAP2/spacecombat/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestBackend creates a Backend with no DB (queue-only mode for unit testing).
func newTestBackend(t *testing.T) *Backend {
	t.Helper()
	b := New(Dependencies{
		DB:         nil,
		StackCache: cache.NewStackCache(),
		LogManager: logging.NewSlogManager(),
	})
	require.NoError(t, b.Init())
	t.Cleanup(func() { require.NoError(t, b.Close()) })
	return b
}

// newSqliteBackend creates a Backend over a fresh in-memory SQLite DB.
func newSqliteBackend(t *testing.T) *Backend {
	t.Helper()
	db, err := database.GetSqliteDBStandalone("")
	require.NoError(t, err)

	b := New(Dependencies{
		DB:            db,
		StackCache:    cache.NewStackCache(),
		LogManager:    logging.NewSlogManager(),
		WriteInterval: time.Hour,
	})
	require.NoError(t, b.Init())
	t.Cleanup(func() { require.NoError(t, b.Close()) })
	return b
}

// Compile-time interface check
var _ storage.Backend = (*Backend)(nil)

func TestNew_Defaults(t *testing.T) {
	b := New(Dependencies{})
	require.NotNil(t, b)
	assert.NotNil(t, b.deps.StackCache)
	assert.NotNil(t, b.deps.LogManager)
	assert.Equal(t, DefaultWriteInterval, b.deps.WriteInterval)
	assert.Equal(t, "spacecombat", b.deps.InstanceName)
}

func TestInitClose(t *testing.T) {
	b := New(Dependencies{})

	require.NoError(t, b.Init())
	require.NotNil(t, b.queues)
	require.NotNil(t, b.stopChan)

	require.NoError(t, b.Close())
	// second close is a no-op
	require.NoError(t, b.Close())
}

func TestAddCombatant_QueuesAndCaches(t *testing.T) {
	b := newTestBackend(t)

	c := &core.Combatant{StackID: 42, Name: "Falcon", Owner: "Alkari"}
	require.NoError(t, b.AddCombatant(c))

	assert.Equal(t, uint(42), c.ID)
	assert.Equal(t, 1, b.queues.Combatants.Len())
	assert.True(t, b.deps.StackCache.Has(42))
}

func TestRecords_QueueToInternalQueues(t *testing.T) {
	b := newTestBackend(t)

	require.NoError(t, b.RecordStackState(&core.StackState{StackID: 1, Round: 1}))
	require.NoError(t, b.RecordFireEvent(&core.FireEvent{ShooterID: 1, TargetID: 2}))
	require.NoError(t, b.RecordMissileEvent(&core.MissileEvent{LauncherID: 1, Outcome: core.MissileExpired}))
	require.NoError(t, b.RecordDestroyedEvent(&core.DestroyedEvent{StackID: 2}))
	require.NoError(t, b.RecordRetreatEvent(&core.RetreatEvent{StackID: 3}))

	assert.Equal(t, model.WriteQueueLengths{
		StackStates:     1,
		FireEvents:      1,
		MissileEvents:   1,
		DestroyedEvents: 1,
		RetreatEvents:   1,
	}, b.QueueLengths())
}

func TestStartBattle_NoDB(t *testing.T) {
	b := newTestBackend(t)
	b.deps.StackCache.Add(core.Combatant{StackID: 9})

	battle := &core.Battle{Name: "No DB"}
	require.NoError(t, b.StartBattle(battle))

	assert.Equal(t, uint(0), battle.ID)
	assert.Equal(t, 0, b.deps.StackCache.Len(), "cache resets per battle")
	require.NoError(t, b.EndBattle(battle))
}

func TestQueueLengths_BeforeInit(t *testing.T) {
	b := New(Dependencies{})
	assert.Equal(t, model.WriteQueueLengths{}, b.QueueLengths())
}

func TestSetBattleID(t *testing.T) {
	b := newTestBackend(t)
	b.SetBattleID(12)
	assert.Equal(t, uint(12), b.BattleID())
}

func TestBattleLifecycle_SQLite(t *testing.T) {
	b := newSqliteBackend(t)
	start := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	battle := &core.Battle{
		UUID:       "7f0c3a4e-0000-4000-8000-000000000001",
		Name:       "Battle of Sol",
		SystemName: "Sol",
		Attacker:   "Alkari",
		Defender:   "Bulrathi",
		StartTime:  start,
	}
	require.NoError(t, b.StartBattle(battle))
	require.NotZero(t, battle.ID)

	require.NoError(t, b.AddCombatant(&core.Combatant{StackID: 1, Name: "Falcon", Owner: "Alkari", Units: 6, Start: core.Position{X: 1, Y: 5}}))
	require.NoError(t, b.AddCombatant(&core.Combatant{StackID: 2, Name: "Bear", Owner: "Bulrathi", Units: 2, Start: core.Position{X: 8, Y: 5}}))
	require.NoError(t, b.RecordStackState(&core.StackState{StackID: 1, Round: 1, Position: core.Position{X: 2, Y: 5}, Units: 6, Hits: 3}))
	require.NoError(t, b.RecordFireEvent(&core.FireEvent{Round: 1, ShooterID: 1, TargetID: 2, Weapon: "laser", Damage: 12}))
	require.NoError(t, b.RecordMissileEvent(&core.MissileEvent{
		Round: 1, LauncherID: 2, TargetID: 1, Outcome: core.MissileImpact,
		Path: core.Path{{X: 8, Y: 5}, {X: 5, Y: 5}, {X: 2, Y: 5}},
	}))
	require.NoError(t, b.RecordDestroyedEvent(&core.DestroyedEvent{Round: 2, StackID: 2, Owner: "Bulrathi", Units: 2}))
	require.NoError(t, b.RecordRetreatEvent(&core.RetreatEvent{Round: 2, StackID: 1, Owner: "Alkari", Destination: "Altair"}))

	battle.EndTime = start.Add(time.Minute)
	battle.Rounds = 2
	battle.Victor = "Alkari"
	battle.Summary = []core.SideSummary{{Owner: "Bulrathi", StacksDestroyed: 1, ShipsDestroyed: 2}}
	require.NoError(t, b.EndBattle(battle))

	assert.Equal(t, model.WriteQueueLengths{}, b.QueueLengths())
	assert.Greater(t, b.GetLastDBWriteDuration(), time.Duration(0))

	db := b.DB()

	var stored model.Battle
	require.NoError(t, db.First(&stored, battle.ID).Error)
	assert.Equal(t, "Alkari", stored.Victor)
	assert.Equal(t, 2, stored.Rounds)
	assert.Contains(t, string(stored.Summary), `"shipsDestroyed":2`)

	var combatants []model.Combatant
	require.NoError(t, db.Where("battle_id = ?", battle.ID).Order("stack_id").Find(&combatants).Error)
	require.Len(t, combatants, 2)
	assert.Equal(t, "Falcon", combatants[0].Name)

	var missile model.MissileEvent
	require.NoError(t, db.Where("battle_id = ?", battle.ID).First(&missile).Error)
	assert.Equal(t, 3, missile.Path.Coordinates().Length())

	for _, table := range []any{&model.StackState{}, &model.FireEvent{}, &model.DestroyedEvent{}, &model.RetreatEvent{}} {
		var count int64
		require.NoError(t, db.Model(table).Where("battle_id = ?", battle.ID).Count(&count).Error)
		assert.Equal(t, int64(1), count)
	}
}

func TestWriter_FlushesOnTick(t *testing.T) {
	db, err := database.GetSqliteDBStandalone("")
	require.NoError(t, err)

	b := New(Dependencies{DB: db, WriteInterval: 10 * time.Millisecond})
	require.NoError(t, b.Init())
	defer b.Close()

	require.NoError(t, b.StartBattle(&core.Battle{UUID: "tick", Name: "Tick"}))
	require.NoError(t, b.RecordStackState(&core.StackState{StackID: 1, Round: 1}))

	assert.Eventually(t, func() bool {
		return b.QueueLengths().StackStates == 0
	}, time.Second, 10*time.Millisecond)
}

func TestClose_FlushesRemaining(t *testing.T) {
	db, err := database.GetSqliteDBStandalone("")
	require.NoError(t, err)

	b := New(Dependencies{DB: db, WriteInterval: time.Hour})
	require.NoError(t, b.Init())
	require.NoError(t, b.StartBattle(&core.Battle{UUID: "close", Name: "Close"}))
	require.NoError(t, b.RecordFireEvent(&core.FireEvent{ShooterID: 1, TargetID: 2}))

	require.NoError(t, b.Close())

	var count int64
	require.NoError(t, db.Model(&model.FireEvent{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}
