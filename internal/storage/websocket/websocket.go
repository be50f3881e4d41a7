package websocket

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/OCAP2/spacecombat/pkg/core"
	"github.com/OCAP2/spacecombat/pkg/streaming"
)

// Config holds WebSocket backend configuration.
type Config struct {
	URL          string
	Secret       string
	AckTimeout   time.Duration
	MaxReconnect int
	FirstBackoff time.Duration
}

// Backend streams battle records over WebSocket to a report server.
// It implements storage.Backend but not storage.Uploadable.
type Backend struct {
	conn *connection
	cfg  Config
}

// New creates a new WebSocket storage backend. A nil logger uses slog.Default.
func New(cfg Config, logger *slog.Logger) *Backend {
	if cfg.AckTimeout <= 0 {
		cfg.AckTimeout = 10 * time.Second
	}
	if cfg.MaxReconnect <= 0 {
		cfg.MaxReconnect = 10
	}
	if cfg.FirstBackoff <= 0 {
		cfg.FirstBackoff = time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Backend{
		conn: newConnection(logger, cfg.MaxReconnect, cfg.FirstBackoff),
		cfg:  cfg,
	}
}

// Init connects to the WebSocket server.
func (b *Backend) Init() error {
	if b.cfg.URL == "" {
		return fmt.Errorf("websocket URL not set")
	}
	return b.conn.dial(b.cfg.URL, b.cfg.Secret)
}

// Close disconnects from the WebSocket server.
func (b *Backend) Close() error {
	return b.conn.close()
}

// sendEnvelope marshals the payload into an Envelope and pushes it
// to the write loop (fire-and-forget).
func (b *Backend) sendEnvelope(msgType string, payload any) error {
	data, err := streaming.Marshal(msgType, payload)
	if err != nil {
		return err
	}
	b.conn.send(data)
	return nil
}

// StartBattle sends the battle header and waits for the server ack.
func (b *Backend) StartBattle(battle *core.Battle) error {
	data, err := streaming.Marshal(streaming.TypeStartBattle, battle)
	if err != nil {
		return err
	}

	b.conn.mu.Lock()
	b.conn.cachedStartMsg = data
	b.conn.mu.Unlock()

	return b.conn.sendAndWait(data, streaming.TypeStartBattle, b.cfg.AckTimeout)
}

// EndBattle sends the final battle record and waits for the server ack.
// Records queued earlier are written first, so the ack covers them too.
func (b *Backend) EndBattle(battle *core.Battle) error {
	data, err := streaming.Marshal(streaming.TypeEndBattle, battle)
	if err != nil {
		return err
	}
	err = b.conn.sendAndWait(data, streaming.TypeEndBattle, b.cfg.AckTimeout)

	b.conn.mu.Lock()
	b.conn.cachedStartMsg = nil
	b.conn.mu.Unlock()

	return err
}

// AddCombatant uses the stack ID as the combatant ID and sends it.
func (b *Backend) AddCombatant(c *core.Combatant) error {
	c.ID = uint(c.StackID)
	return b.sendEnvelope(streaming.TypeAddCombatant, c)
}

func (b *Backend) RecordStackState(s *core.StackState) error {
	return b.sendEnvelope(streaming.TypeStackState, s)
}

func (b *Backend) RecordFireEvent(e *core.FireEvent) error {
	return b.sendEnvelope(streaming.TypeFireEvent, e)
}

func (b *Backend) RecordMissileEvent(e *core.MissileEvent) error {
	return b.sendEnvelope(streaming.TypeMissileEvent, e)
}

func (b *Backend) RecordDestroyedEvent(e *core.DestroyedEvent) error {
	return b.sendEnvelope(streaming.TypeDestroyedEvent, e)
}

func (b *Backend) RecordRetreatEvent(e *core.RetreatEvent) error {
	return b.sendEnvelope(streaming.TypeRetreatEvent, e)
}
