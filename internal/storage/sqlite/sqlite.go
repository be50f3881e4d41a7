// Package sqlitestorage implements the storage.Backend interface using an in-memory
// SQLite database with periodic disk dumps via VACUUM INTO.
// It wraps the GORM backend; the SQLite-specific parts are the in-memory DB,
// the periodic dump and the final per-battle dump file.
package sqlitestorage

import (
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/OCAP2/spacecombat/internal/cache"
	"github.com/OCAP2/spacecombat/internal/config"
	"github.com/OCAP2/spacecombat/internal/database"
	"github.com/OCAP2/spacecombat/internal/logging"
	gormstorage "github.com/OCAP2/spacecombat/internal/storage/gorm"
	"github.com/OCAP2/spacecombat/pkg/core"

	"gorm.io/gorm"
)

// Backend wraps the GORM backend for SQLite-specific behavior.
type Backend struct {
	*gormstorage.Backend
	db       *gorm.DB
	cfg      config.SQLiteConfig
	log      *logging.SlogManager
	stopChan chan struct{}
	stopOnce sync.Once
	loops    sync.WaitGroup

	mu       sync.Mutex
	dumpPath string
}

// New creates a new SQLite storage backend.
func New(cfg config.SQLiteConfig, stackCache *cache.StackCache, logManager *logging.SlogManager) (*Backend, error) {
	db, err := database.GetSqliteDBStandalone("")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory SQLite DB: %w", err)
	}
	if logManager == nil {
		logManager = logging.NewSlogManager()
	}

	gormBackend := gormstorage.New(gormstorage.Dependencies{
		DB:         db,
		StackCache: stackCache,
		LogManager: logManager,
	})

	return &Backend{
		Backend:  gormBackend,
		db:       db,
		cfg:      cfg,
		log:      logManager,
		stopChan: make(chan struct{}),
	}, nil
}

// Init initializes the embedded GORM backend and starts the dump goroutine.
func (b *Backend) Init() error {
	if err := b.Backend.Init(); err != nil {
		return err
	}

	if b.cfg.OutputDir != "" && b.cfg.DumpInterval > 0 {
		b.loops.Add(1)
		go b.dumpLoop()
	}

	return nil
}

// Close stops the dump goroutine and closes the embedded GORM backend.
func (b *Backend) Close() error {
	b.stopOnce.Do(func() { close(b.stopChan) })
	b.loops.Wait()
	return b.Backend.Close()
}

// StartBattle records the battle and picks the dump file for it.
func (b *Backend) StartBattle(battle *core.Battle) error {
	if err := b.Backend.StartBattle(battle); err != nil {
		return err
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.cfg.OutputDir != "" {
		name := strings.ReplaceAll(battle.Name, " ", "_")
		b.dumpPath = filepath.Join(b.cfg.OutputDir,
			fmt.Sprintf("%s_%s.db", name, battle.StartTime.Format("20060102_150405")))
	}
	return nil
}

// EndBattle writes the outcome and dumps the finished battle to disk.
func (b *Backend) EndBattle(battle *core.Battle) error {
	if err := b.Backend.EndBattle(battle); err != nil {
		return err
	}
	return b.dump()
}

// DumpPath returns the file the current battle is dumped to.
func (b *Backend) DumpPath() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.dumpPath
}

func (b *Backend) dump() error {
	path := b.DumpPath()
	if path == "" {
		return nil
	}
	start := time.Now()
	if err := database.DumpMemoryDBToDisk(b.db, path); err != nil {
		return err
	}
	b.log.WriteLog("sqlite:dump", fmt.Sprintf("Dumped %s in %s", path, time.Since(start)), "DEBUG")
	return nil
}

// dumpLoop periodically dumps the in-memory SQLite database to disk via VACUUM INTO.
// VACUUM INTO creates a point-in-time snapshot, so no pause mechanism is needed.
func (b *Backend) dumpLoop() {
	defer b.loops.Done()
	ticker := time.NewTicker(b.cfg.DumpInterval)
	defer ticker.Stop()

	for {
		select {
		case <-b.stopChan:
			return
		case <-ticker.C:
			if err := b.dump(); err != nil {
				b.log.WriteLog("sqlite:dumpLoop", fmt.Sprintf("Error dumping to disk: %v", err), "ERROR")
			}
		}
	}
}
