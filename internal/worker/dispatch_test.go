package worker

import (
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/OCAP2/spacecombat/internal/cache"
	"github.com/OCAP2/spacecombat/internal/dispatcher"
	"github.com/OCAP2/spacecombat/internal/influx"
	"github.com/OCAP2/spacecombat/internal/model"
	"github.com/OCAP2/spacecombat/internal/session"
	"github.com/OCAP2/spacecombat/internal/storage"
	"github.com/OCAP2/spacecombat/pkg/core"

	influxdb2_write "github.com/influxdata/influxdb-client-go/v2/api/write"
)

// mockLogger implements dispatcher.Logger for testing
type mockLogger struct {
	mu       sync.Mutex
	messages []string
}

func (l *mockLogger) Debug(msg string, keysAndValues ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.messages = append(l.messages, msg)
}

func (l *mockLogger) Info(msg string, keysAndValues ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.messages = append(l.messages, msg)
}

func (l *mockLogger) Error(msg string, keysAndValues ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.messages = append(l.messages, msg)
}

func (l *mockLogger) contains(s string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, m := range l.messages {
		if strings.Contains(m, s) {
			return true
		}
	}
	return false
}

// mockBackend implements storage.Backend for testing
type mockBackend struct {
	mu sync.Mutex

	battle     *core.Battle
	combatants []*core.Combatant
	states     []*core.StackState
	fires      []*core.FireEvent
	missiles   []*core.MissileEvent
	destroyed  []*core.DestroyedEvent
	retreats   []*core.RetreatEvent

	// record counts seen when EndBattle ran
	statesAtEnd int
	firesAtEnd  int
	ended       bool

	startErr error
	lastWrite time.Duration
}

var _ storage.Backend = (*mockBackend)(nil)

func (b *mockBackend) Init() error  { return nil }
func (b *mockBackend) Close() error { return nil }

func (b *mockBackend) StartBattle(battle *core.Battle) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.startErr != nil {
		return b.startErr
	}
	battle.ID = 7
	b.battle = battle
	return nil
}

func (b *mockBackend) EndBattle(battle *core.Battle) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.statesAtEnd = len(b.states)
	b.firesAtEnd = len(b.fires)
	b.ended = true
	return nil
}

func (b *mockBackend) AddCombatant(c *core.Combatant) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	c.ID = uint(len(b.combatants) + 1)
	b.combatants = append(b.combatants, c)
	return nil
}

func (b *mockBackend) RecordStackState(s *core.StackState) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	// slow writes make the end barrier observable
	time.Sleep(time.Millisecond)
	b.states = append(b.states, s)
	return nil
}

func (b *mockBackend) RecordFireEvent(e *core.FireEvent) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.fires = append(b.fires, e)
	return nil
}

func (b *mockBackend) RecordMissileEvent(e *core.MissileEvent) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.missiles = append(b.missiles, e)
	return nil
}

func (b *mockBackend) RecordDestroyedEvent(e *core.DestroyedEvent) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.destroyed = append(b.destroyed, e)
	return nil
}

func (b *mockBackend) RecordRetreatEvent(e *core.RetreatEvent) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.retreats = append(b.retreats, e)
	return nil
}

func (b *mockBackend) GetLastDBWriteDuration() time.Duration { return b.lastWrite }

func (b *mockBackend) QueueLengths() model.WriteQueueLengths {
	return model.WriteQueueLengths{StackStates: 3}
}

// mockMetrics records written points
type mockMetrics struct {
	mu     sync.Mutex
	points []string
}

func (m *mockMetrics) WritePoint(bucket string, p *influxdb2_write.Point) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.points = append(m.points, bucket+"/"+p.Name())
	return nil
}

func setup(t *testing.T) (*dispatcher.Dispatcher, *Manager, *mockBackend, *mockLogger) {
	t.Helper()
	logger := &mockLogger{}
	d, err := dispatcher.New(logger)
	if err != nil {
		t.Fatalf("failed to create dispatcher: %v", err)
	}
	t.Cleanup(d.Close)

	backend := &mockBackend{}
	m := NewManager(Dependencies{
		StackCache: cache.NewStackCache(),
		Session:    session.NewContext(),
	}, backend)
	m.RegisterHandlers(d)
	return d, m, backend, logger
}

func dispatch(t *testing.T, d *dispatcher.Dispatcher, command string, payload any) any {
	t.Helper()
	result, err := d.Dispatch(dispatcher.Event{Command: command, Payload: payload, Timestamp: time.Now()})
	if err != nil {
		t.Fatalf("%s: unexpected error: %v", command, err)
	}
	return result
}

func TestRegisterHandlers_AllCommands(t *testing.T) {
	d, _, _, _ := setup(t)

	for _, cmd := range []string{
		dispatcher.CmdBattleStart,
		dispatcher.CmdCombatantAdd,
		dispatcher.CmdStackState,
		dispatcher.CmdFireEvent,
		dispatcher.CmdMissileEvent,
		dispatcher.CmdDestroyedEvent,
		dispatcher.CmdRetreatEvent,
		dispatcher.CmdBattleEnd,
	} {
		if !d.HasHandler(cmd) {
			t.Errorf("no handler for %s", cmd)
		}
	}
}

func TestBattleLifecycle(t *testing.T) {
	d, m, backend, _ := setup(t)
	metrics := &mockMetrics{}
	m.deps.Metrics = metrics

	battle := &core.Battle{UUID: "u", Name: "Battle of Sol"}
	if id := dispatch(t, d, dispatcher.CmdBattleStart, battle); id != uint(7) {
		t.Errorf("expected battle ID 7, got %v", id)
	}
	if !m.deps.Session.Active() {
		t.Fatal("expected active session")
	}

	dispatch(t, d, dispatcher.CmdCombatantAdd, &core.Combatant{StackID: 1, Name: "Falcon"})
	dispatch(t, d, dispatcher.CmdCombatantAdd, &core.Combatant{StackID: 2, Name: "Bear"})

	const rounds = 50
	for r := 1; r <= rounds; r++ {
		dispatch(t, d, dispatcher.CmdStackState, &core.StackState{StackID: 1, Round: r})
	}
	dispatch(t, d, dispatcher.CmdFireEvent, &core.FireEvent{ShooterID: 1, TargetID: 2})
	dispatch(t, d, dispatcher.CmdMissileEvent, &core.MissileEvent{LauncherID: 2, TargetID: 1})
	dispatch(t, d, dispatcher.CmdDestroyedEvent, &core.DestroyedEvent{StackID: 2})
	dispatch(t, d, dispatcher.CmdRetreatEvent, &core.RetreatEvent{StackID: 1})

	dispatch(t, d, dispatcher.CmdBattleEnd, &core.Battle{UUID: "u", Name: "Battle of Sol", Victor: "Alkari"})

	backend.mu.Lock()
	defer backend.mu.Unlock()
	if !backend.ended {
		t.Fatal("expected EndBattle to be called")
	}
	if backend.statesAtEnd != rounds {
		t.Errorf("expected %d states before end, got %d", rounds, backend.statesAtEnd)
	}
	if backend.firesAtEnd != 1 {
		t.Errorf("expected 1 fire event before end, got %d", backend.firesAtEnd)
	}
	if len(backend.missiles) != 1 || len(backend.destroyed) != 1 || len(backend.retreats) != 1 {
		t.Errorf("missing events: %d missiles, %d destroyed, %d retreats",
			len(backend.missiles), len(backend.destroyed), len(backend.retreats))
	}
	if m.deps.Session.Active() {
		t.Error("expected session to end")
	}
	if m.deps.Session.Round() != rounds {
		t.Errorf("expected round %d, got %d", rounds, m.deps.Session.Round())
	}
	if got := m.deps.Session.GetBattle().Victor; got != "Alkari" {
		t.Errorf("expected final battle in session, got victor %q", got)
	}

	metrics.mu.Lock()
	defer metrics.mu.Unlock()
	// states, fire and missile each produce a point
	if len(metrics.points) != rounds+2 {
		t.Errorf("expected %d points, got %d", rounds+2, len(metrics.points))
	}
	if metrics.points[0] != influx.BucketBattleData+"/stack_state" {
		t.Errorf("unexpected first point %q", metrics.points[0])
	}
}

func TestCombatantAdd_CachesAssignedID(t *testing.T) {
	d, m, _, _ := setup(t)
	dispatch(t, d, dispatcher.CmdBattleStart, &core.Battle{})

	id := dispatch(t, d, dispatcher.CmdCombatantAdd, &core.Combatant{StackID: 5})
	if id != uint(1) {
		t.Errorf("expected ID 1, got %v", id)
	}
	c, ok := m.deps.StackCache.Get(5)
	if !ok || c.ID != 1 {
		t.Errorf("expected cached combatant with ID 1, got %+v (found=%v)", c, ok)
	}
}

func TestCombatantAdd_NoActiveBattle(t *testing.T) {
	d, _, _, _ := setup(t)

	_, err := d.Dispatch(dispatcher.Event{Command: dispatcher.CmdCombatantAdd, Payload: &core.Combatant{StackID: 1}})
	if !errors.Is(err, ErrNoActiveBattle) {
		t.Errorf("expected ErrNoActiveBattle, got %v", err)
	}
}

func TestBattleEnd_NoActiveBattle(t *testing.T) {
	d, _, _, _ := setup(t)

	_, err := d.Dispatch(dispatcher.Event{Command: dispatcher.CmdBattleEnd, Payload: &core.Battle{}})
	if !errors.Is(err, ErrNoActiveBattle) {
		t.Errorf("expected ErrNoActiveBattle, got %v", err)
	}
}

func TestStackState_TooEarly(t *testing.T) {
	d, _, backend, logger := setup(t)
	dispatch(t, d, dispatcher.CmdBattleStart, &core.Battle{})

	// buffered handlers report errors through the logger
	dispatch(t, d, dispatcher.CmdStackState, &core.StackState{StackID: 99})
	d.Wait()

	if !logger.contains("buffered event failed") {
		t.Error("expected buffered failure to be logged")
	}
	backend.mu.Lock()
	defer backend.mu.Unlock()
	if len(backend.states) != 0 {
		t.Errorf("expected no states, got %d", len(backend.states))
	}
}

func TestHandlers_TooEarly(t *testing.T) {
	_, m, _, _ := setup(t)

	cases := []struct {
		name string
		fn   func(dispatcher.Event) (any, error)
		ev   any
	}{
		{"state", m.handleStackState, &core.StackState{StackID: 1}},
		{"fire", m.handleFireEvent, &core.FireEvent{ShooterID: 1}},
		{"missile", m.handleMissileEvent, &core.MissileEvent{LauncherID: 1}},
		{"destroyed", m.handleDestroyedEvent, &core.DestroyedEvent{StackID: 1}},
		{"retreat", m.handleRetreatEvent, &core.RetreatEvent{StackID: 1}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := tc.fn(dispatcher.Event{Payload: tc.ev})
			if !errors.Is(err, ErrTooEarlyForStateAssociation) {
				t.Errorf("expected ErrTooEarlyForStateAssociation, got %v", err)
			}
		})
	}
}

func TestHandlers_WrongPayload(t *testing.T) {
	_, m, _, _ := setup(t)

	handlers := []func(dispatcher.Event) (any, error){
		m.handleBattleStart,
		m.handleCombatantAdd,
		m.handleStackState,
		m.handleFireEvent,
		m.handleMissileEvent,
		m.handleDestroyedEvent,
		m.handleRetreatEvent,
		m.handleBattleEnd,
	}
	for i, h := range handlers {
		_, err := h(dispatcher.Event{Command: "x", Payload: "not a record"})
		if err == nil || !strings.Contains(err.Error(), "unexpected payload string") {
			t.Errorf("handler %d: expected payload error, got %v", i, err)
		}
	}
}

func TestBattleStart_BackendError(t *testing.T) {
	d, m, backend, _ := setup(t)
	backend.startErr = errors.New("db down")

	_, err := d.Dispatch(dispatcher.Event{Command: dispatcher.CmdBattleStart, Payload: &core.Battle{}})
	if err == nil || !strings.Contains(err.Error(), "db down") {
		t.Errorf("expected wrapped backend error, got %v", err)
	}
	if m.deps.Session.Active() {
		t.Error("session must stay inactive")
	}
}

func TestManager_Providers(t *testing.T) {
	backend := &mockBackend{lastWrite: 40 * time.Millisecond}
	m := NewManager(Dependencies{}, backend)

	if got := m.GetLastDBWriteDuration(); got != 40*time.Millisecond {
		t.Errorf("expected 40ms, got %v", got)
	}
	if got := m.GetQueueLengths().StackStates; got != 3 {
		t.Errorf("expected 3 queued states, got %d", got)
	}
	if m.Backend() != backend {
		t.Error("expected backend to be returned")
	}
}

func TestManager_ProvidersMissing(t *testing.T) {
	m := NewManager(Dependencies{}, &struct{ storage.Backend }{})

	if got := m.GetLastDBWriteDuration(); got != 0 {
		t.Errorf("expected 0, got %v", got)
	}
	if got := m.GetQueueLengths(); got != (model.WriteQueueLengths{}) {
		t.Errorf("expected empty lengths, got %+v", got)
	}
}
