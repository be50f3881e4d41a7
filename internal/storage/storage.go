package storage

import (
	"errors"

	"github.com/OCAP2/spacecombat/pkg/core"
)

// ErrUnknownBackend is returned for an unrecognised storage type.
var ErrUnknownBackend = errors.New("unknown storage backend")

// Backend is the interface all storage implementations must satisfy
type Backend interface {
	// Lifecycle
	Init() error
	Close() error

	// Battle management. EndBattle receives the final battle record.
	StartBattle(b *core.Battle) error
	EndBattle(b *core.Battle) error

	// Combatant registration (assigns ID to the passed pointer)
	AddCombatant(c *core.Combatant) error

	// State recording
	RecordStackState(s *core.StackState) error

	// Event recording
	RecordFireEvent(e *core.FireEvent) error
	RecordMissileEvent(e *core.MissileEvent) error
	RecordDestroyedEvent(e *core.DestroyedEvent) error
	RecordRetreatEvent(e *core.RetreatEvent) error
}

// Uploadable is an optional interface for storage backends that produce
// files suitable for upload to a report server.
type Uploadable interface {
	GetExportedFilePath() string
	GetExportMetadata() core.UploadMetadata
}

// Types lists the storage types the CLI accepts.
var Types = []string{"memory", "sqlite", "postgres", "websocket"}
