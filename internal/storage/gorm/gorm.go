// Package gormstorage implements the storage.Backend interface over any GORM
// database with internal queues and a background DB writer goroutine.
package gormstorage

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/OCAP2/spacecombat/internal/cache"
	"github.com/OCAP2/spacecombat/internal/database"
	"github.com/OCAP2/spacecombat/internal/logging"
	"github.com/OCAP2/spacecombat/internal/model"
	"github.com/OCAP2/spacecombat/internal/model/convert"
	"github.com/OCAP2/spacecombat/internal/queue"
	"github.com/OCAP2/spacecombat/pkg/core"

	"gorm.io/gorm"
)

// DefaultWriteInterval is how often the writer drains the queues.
const DefaultWriteInterval = 2 * time.Second

// Dependencies holds all dependencies for the GORM storage backend.
type Dependencies struct {
	DB            *gorm.DB
	StackCache    *cache.StackCache
	LogManager    *logging.SlogManager
	InstanceName  string
	WriteInterval time.Duration
}

// queues holds all the write queues for batch DB insertion.
type queues struct {
	Combatants      *queue.Queue[model.Combatant]
	StackStates     *queue.Queue[model.StackState]
	FireEvents      *queue.Queue[model.FireEvent]
	MissileEvents   *queue.Queue[model.MissileEvent]
	DestroyedEvents *queue.Queue[model.DestroyedEvent]
	RetreatEvents   *queue.Queue[model.RetreatEvent]
}

func newQueues() *queues {
	return &queues{
		Combatants:      queue.New[model.Combatant](),
		StackStates:     queue.New[model.StackState](),
		FireEvents:      queue.New[model.FireEvent](),
		MissileEvents:   queue.New[model.MissileEvent](),
		DestroyedEvents: queue.New[model.DestroyedEvent](),
		RetreatEvents:   queue.New[model.RetreatEvent](),
	}
}

// Backend implements storage.Backend using GORM with queue-based batch writes.
type Backend struct {
	deps     Dependencies
	queues   *queues
	battleID atomic.Uint64

	// serialises queue flushes between the writer goroutine and EndBattle
	writeMu       sync.Mutex
	lastWrite     atomic.Int64
	stopChan      chan struct{}
	writerDone    chan struct{}
	closeOnce     sync.Once
	writerStarted bool
}

// New creates a new GORM storage backend.
func New(deps Dependencies) *Backend {
	if deps.StackCache == nil {
		deps.StackCache = cache.NewStackCache()
	}
	if deps.LogManager == nil {
		deps.LogManager = logging.NewSlogManager()
	}
	if deps.WriteInterval <= 0 {
		deps.WriteInterval = DefaultWriteInterval
	}
	if deps.InstanceName == "" {
		deps.InstanceName = "spacecombat"
	}
	return &Backend{
		deps: deps,
	}
}

// Init creates internal queues, migrates the schema and starts the DB writer
// goroutine. Without a DB the backend only queues, which tests rely on.
func (b *Backend) Init() error {
	b.queues = newQueues()
	b.stopChan = make(chan struct{})
	b.writerDone = make(chan struct{})

	if b.deps.DB == nil {
		close(b.writerDone)
		return nil
	}

	b.deps.LogManager.WriteLog("setupDB", "Migrating schema", "INFO")
	if err := database.Migrate(b.deps.DB, b.deps.InstanceName); err != nil {
		close(b.writerDone)
		return fmt.Errorf("failed to setup DB: %w", err)
	}
	b.deps.LogManager.WriteLog("setupDB", "Database setup complete", "INFO")

	b.writerStarted = true
	go b.runWriter()
	return nil
}

// DB returns the underlying connection.
func (b *Backend) DB() *gorm.DB {
	return b.deps.DB
}

// Close stops the DB writer goroutine and flushes whatever is still queued.
func (b *Backend) Close() error {
	b.closeOnce.Do(func() {
		if b.stopChan != nil {
			close(b.stopChan)
			<-b.writerDone
		}
		if b.writerStarted {
			b.flush()
		}
	})
	return nil
}

// StartBattle inserts the battle row synchronously so records can reference it.
func (b *Backend) StartBattle(battle *core.Battle) error {
	b.deps.StackCache.Reset()
	if b.deps.DB == nil {
		return nil
	}

	gormBattle := convert.CoreToBattle(*battle)
	gormBattle.ID = 0
	if err := b.deps.DB.Create(&gormBattle).Error; err != nil {
		return fmt.Errorf("failed to insert new battle: %w", err)
	}

	battle.ID = gormBattle.ID
	b.battleID.Store(uint64(gormBattle.ID))
	b.deps.LogManager.WriteLog("StartBattle", fmt.Sprintf("Battle %q recorded with ID %d", battle.Name, battle.ID), "INFO")
	return nil
}

// SetBattleID sets the current battle ID for the DB writer.
func (b *Backend) SetBattleID(id uint) {
	b.battleID.Store(uint64(id))
}

// BattleID returns the ID of the battle being recorded.
func (b *Backend) BattleID() uint {
	return uint(b.battleID.Load())
}

// EndBattle flushes all queued records and stores the battle outcome.
func (b *Backend) EndBattle(battle *core.Battle) error {
	if b.deps.DB == nil {
		return nil
	}

	b.flush()
	if b.QueueLengths() != (model.WriteQueueLengths{}) {
		return fmt.Errorf("battle %d ended with unwritten records", b.BattleID())
	}

	gormBattle := convert.CoreToBattle(*battle)
	gormBattle.ID = b.BattleID()
	err := b.deps.DB.Model(&gormBattle).
		Select("end_time", "rounds", "victor", "stalemate", "summary").
		Updates(&gormBattle).Error
	if err != nil {
		return fmt.Errorf("failed to update battle %d: %w", gormBattle.ID, err)
	}
	battle.ID = gormBattle.ID
	return nil
}

// AddCombatant caches the combatant and queues it for insertion.
func (b *Backend) AddCombatant(c *core.Combatant) error {
	c.ID = uint(c.StackID)
	b.deps.StackCache.Add(*c)
	b.queues.Combatants.Push(convert.CoreToCombatant(*c))
	return nil
}

// RecordStackState converts and queues a stack state.
func (b *Backend) RecordStackState(s *core.StackState) error {
	b.queues.StackStates.Push(convert.CoreToStackState(*s))
	return nil
}

// RecordFireEvent converts and queues a fire event.
func (b *Backend) RecordFireEvent(e *core.FireEvent) error {
	b.queues.FireEvents.Push(convert.CoreToFireEvent(*e))
	return nil
}

// RecordMissileEvent converts and queues a missile event.
func (b *Backend) RecordMissileEvent(e *core.MissileEvent) error {
	b.queues.MissileEvents.Push(convert.CoreToMissileEvent(*e))
	return nil
}

// RecordDestroyedEvent converts and queues a destroyed event.
func (b *Backend) RecordDestroyedEvent(e *core.DestroyedEvent) error {
	b.queues.DestroyedEvents.Push(convert.CoreToDestroyedEvent(*e))
	return nil
}

// RecordRetreatEvent converts and queues a retreat event.
func (b *Backend) RecordRetreatEvent(e *core.RetreatEvent) error {
	b.queues.RetreatEvents.Push(convert.CoreToRetreatEvent(*e))
	return nil
}

// QueueLengths reports the number of records waiting in each queue.
func (b *Backend) QueueLengths() model.WriteQueueLengths {
	if b.queues == nil {
		return model.WriteQueueLengths{}
	}
	return model.WriteQueueLengths{
		Combatants:      uint16(min(b.queues.Combatants.Len(), 65535)),
		StackStates:     uint16(min(b.queues.StackStates.Len(), 65535)),
		FireEvents:      uint16(min(b.queues.FireEvents.Len(), 65535)),
		MissileEvents:   uint16(min(b.queues.MissileEvents.Len(), 65535)),
		DestroyedEvents: uint16(min(b.queues.DestroyedEvents.Len(), 65535)),
		RetreatEvents:   uint16(min(b.queues.RetreatEvents.Len(), 65535)),
	}
}

// GetLastDBWriteDuration returns how long the last flush took.
func (b *Backend) GetLastDBWriteDuration() time.Duration {
	return time.Duration(b.lastWrite.Load())
}

// writeQueue writes all items from a queue to the database in a transaction.
// On failure the items go back to the head of the queue.
func writeQueue[T any](db *gorm.DB, q *queue.Queue[T], name string, log func(string, string, string), prepare func([]T)) {
	if q.Empty() {
		return
	}

	tx := db.Begin()
	items := q.GetAndEmpty()
	if prepare != nil {
		prepare(items)
	}
	if err := tx.Create(&items).Error; err != nil {
		log(":DB:WRITER:", fmt.Sprintf("Error creating %s: %v", name, err), "ERROR")
		tx.Rollback()
		q.Requeue(items...)
		return
	}

	if err := tx.Commit().Error; err != nil {
		log(":DB:WRITER:", fmt.Sprintf("Error committing %s: %v", name, err), "ERROR")
		q.Requeue(items...)
	}
}

// flush drains every queue into the DB, stamping the current battle ID.
func (b *Backend) flush() {
	b.writeMu.Lock()
	defer b.writeMu.Unlock()

	start := time.Now()
	db := b.deps.DB
	log := b.deps.LogManager.WriteLog
	battleID := b.BattleID()

	// combatants first, everything else references them
	writeQueue(db, b.queues.Combatants, "combatants", log, func(items []model.Combatant) {
		for i := range items {
			items[i].BattleID = battleID
		}
	})
	writeQueue(db, b.queues.StackStates, "stack states", log, func(items []model.StackState) {
		for i := range items {
			items[i].BattleID = battleID
		}
	})
	writeQueue(db, b.queues.FireEvents, "fire events", log, func(items []model.FireEvent) {
		for i := range items {
			items[i].BattleID = battleID
		}
	})
	writeQueue(db, b.queues.MissileEvents, "missile events", log, func(items []model.MissileEvent) {
		for i := range items {
			items[i].BattleID = battleID
		}
	})
	writeQueue(db, b.queues.DestroyedEvents, "destroyed events", log, func(items []model.DestroyedEvent) {
		for i := range items {
			items[i].BattleID = battleID
		}
	})
	writeQueue(db, b.queues.RetreatEvents, "retreat events", log, func(items []model.RetreatEvent) {
		for i := range items {
			items[i].BattleID = battleID
		}
	})

	b.lastWrite.Store(int64(time.Since(start)))
}

// runWriter periodically drains queues into the DB until Close.
func (b *Backend) runWriter() {
	defer close(b.writerDone)

	ticker := time.NewTicker(b.deps.WriteInterval)
	defer ticker.Stop()

	for {
		select {
		case <-b.stopChan:
			return
		case <-ticker.C:
			if b.BattleID() == 0 {
				continue
			}
			b.flush()
		}
	}
}
