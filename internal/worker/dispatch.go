package worker

import (
	"fmt"

	"github.com/OCAP2/spacecombat/internal/dispatcher"
	"github.com/OCAP2/spacecombat/internal/influx"
	"github.com/OCAP2/spacecombat/pkg/core"

	influxdb2_write "github.com/influxdata/influxdb-client-go/v2/api/write"
)

// RegisterHandlers registers all record handlers with the dispatcher.
func (m *Manager) RegisterHandlers(d *dispatcher.Dispatcher) {
	// Battle and combatant registration - sync (must land before records arrive)
	d.Register(dispatcher.CmdBattleStart, m.handleBattleStart, dispatcher.Logged())
	d.Register(dispatcher.CmdCombatantAdd, m.handleCombatantAdd, dispatcher.Logged())

	// Per-round records - buffered, blocking so none are dropped
	d.Register(dispatcher.CmdStackState, m.handleStackState, dispatcher.Buffered(10000), dispatcher.Blocking(), dispatcher.Logged())
	d.Register(dispatcher.CmdFireEvent, m.handleFireEvent, dispatcher.Buffered(5000), dispatcher.Blocking(), dispatcher.Logged())
	d.Register(dispatcher.CmdMissileEvent, m.handleMissileEvent, dispatcher.Buffered(1000), dispatcher.Blocking(), dispatcher.Logged())
	d.Register(dispatcher.CmdDestroyedEvent, m.handleDestroyedEvent, dispatcher.Buffered(500), dispatcher.Blocking(), dispatcher.Logged())
	d.Register(dispatcher.CmdRetreatEvent, m.handleRetreatEvent, dispatcher.Buffered(500), dispatcher.Blocking(), dispatcher.Logged())

	// End - sync, after every buffered record has reached the backend
	d.Register(dispatcher.CmdBattleEnd, func(e dispatcher.Event) (any, error) {
		d.Wait()
		return m.handleBattleEnd(e)
	}, dispatcher.Logged())
}

func payloadError(command string, payload any) error {
	return fmt.Errorf("%s: unexpected payload %T", command, payload)
}

func (m *Manager) handleBattleStart(e dispatcher.Event) (any, error) {
	battle, ok := e.Payload.(*core.Battle)
	if !ok || battle == nil {
		return nil, payloadError(e.Command, e.Payload)
	}

	m.deps.StackCache.Reset()
	if err := m.backend.StartBattle(battle); err != nil {
		return nil, fmt.Errorf("failed to start battle: %w", err)
	}
	m.deps.Session.StartBattle(*battle)

	return battle.ID, nil
}

func (m *Manager) handleCombatantAdd(e dispatcher.Event) (any, error) {
	c, ok := e.Payload.(*core.Combatant)
	if !ok || c == nil {
		return nil, payloadError(e.Command, e.Payload)
	}
	if !m.deps.Session.Active() {
		return nil, ErrNoActiveBattle
	}

	if err := m.backend.AddCombatant(c); err != nil {
		return nil, fmt.Errorf("failed to add combatant %d: %w", c.StackID, err)
	}
	m.deps.StackCache.Add(*c)

	return c.ID, nil
}

func (m *Manager) handleStackState(e dispatcher.Event) (any, error) {
	s, ok := e.Payload.(*core.StackState)
	if !ok || s == nil {
		return nil, payloadError(e.Command, e.Payload)
	}
	if !m.deps.StackCache.Has(s.StackID) {
		return nil, ErrTooEarlyForStateAssociation
	}

	m.deps.Session.ObserveRound(s.Round)
	if err := m.backend.RecordStackState(s); err != nil {
		return nil, fmt.Errorf("failed to record stack state: %w", err)
	}
	m.writeMetric(influx.StackStatePoint(m.deps.Session.GetBattle(), *s))

	return nil, nil
}

func (m *Manager) handleFireEvent(e dispatcher.Event) (any, error) {
	ev, ok := e.Payload.(*core.FireEvent)
	if !ok || ev == nil {
		return nil, payloadError(e.Command, e.Payload)
	}
	if !m.deps.StackCache.Has(ev.ShooterID) {
		return nil, ErrTooEarlyForStateAssociation
	}

	if err := m.backend.RecordFireEvent(ev); err != nil {
		return nil, fmt.Errorf("failed to record fire event: %w", err)
	}
	m.writeMetric(influx.FirePoint(m.deps.Session.GetBattle(), *ev))

	return nil, nil
}

func (m *Manager) handleMissileEvent(e dispatcher.Event) (any, error) {
	ev, ok := e.Payload.(*core.MissileEvent)
	if !ok || ev == nil {
		return nil, payloadError(e.Command, e.Payload)
	}
	if !m.deps.StackCache.Has(ev.LauncherID) {
		return nil, ErrTooEarlyForStateAssociation
	}

	if err := m.backend.RecordMissileEvent(ev); err != nil {
		return nil, fmt.Errorf("failed to record missile event: %w", err)
	}
	m.writeMetric(influx.MissilePoint(m.deps.Session.GetBattle(), *ev))

	return nil, nil
}

func (m *Manager) handleDestroyedEvent(e dispatcher.Event) (any, error) {
	ev, ok := e.Payload.(*core.DestroyedEvent)
	if !ok || ev == nil {
		return nil, payloadError(e.Command, e.Payload)
	}
	if !m.deps.StackCache.Has(ev.StackID) {
		return nil, ErrTooEarlyForStateAssociation
	}

	if err := m.backend.RecordDestroyedEvent(ev); err != nil {
		return nil, fmt.Errorf("failed to record destroyed event: %w", err)
	}
	return nil, nil
}

func (m *Manager) handleRetreatEvent(e dispatcher.Event) (any, error) {
	ev, ok := e.Payload.(*core.RetreatEvent)
	if !ok || ev == nil {
		return nil, payloadError(e.Command, e.Payload)
	}
	if !m.deps.StackCache.Has(ev.StackID) {
		return nil, ErrTooEarlyForStateAssociation
	}

	if err := m.backend.RecordRetreatEvent(ev); err != nil {
		return nil, fmt.Errorf("failed to record retreat event: %w", err)
	}
	return nil, nil
}

func (m *Manager) handleBattleEnd(e dispatcher.Event) (any, error) {
	battle, ok := e.Payload.(*core.Battle)
	if !ok || battle == nil {
		return nil, payloadError(e.Command, e.Payload)
	}
	if !m.deps.Session.Active() {
		return nil, ErrNoActiveBattle
	}

	if err := m.backend.EndBattle(battle); err != nil {
		return nil, fmt.Errorf("failed to end battle: %w", err)
	}
	m.deps.Session.EndBattle(*battle)

	return battle.ID, nil
}

func (m *Manager) writeMetric(p *influxdb2_write.Point) {
	if m.deps.Metrics == nil {
		return
	}
	if err := m.deps.Metrics.WritePoint(influx.BucketBattleData, p); err != nil {
		m.deps.LogManager.WriteLog("worker:metrics", fmt.Sprintf("Error writing point: %v", err), "WARN")
	}
}
