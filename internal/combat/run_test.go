package combat

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// standoff returns a battle that can only end at the round cap.
func standoff(t *testing.T, rounds int) *Manager {
	t.Helper()
	a := ship("A", 1, 10, NewWeaponSlot(laser(5, 1), 1, 1))
	d := ship("D", 1, 10, NewWeaponSlot(laser(5, 1), 1, 1))
	a.MaxMove, d.MaxMove = 0, 0

	m := newTestManager(t, Config{MaxRounds: rounds})
	m.SetupBattle(Battle{
		Attacker: attackerEmpire,
		Defender: defenderEmpire,
		Fleets: []Fleet{
			{Owner: attackerEmpire, Captain: &scripted{}, Stacks: []*Stack{a}},
			{Owner: defenderEmpire, Captain: &scripted{}, Stacks: []*Stack{d}},
		},
	})
	return m
}

func TestRun_Completes(t *testing.T) {
	m := standoff(t, 10)

	require.NoError(t, m.Run(context.Background()))
	assert.True(t, m.CombatIsFinished())
	assert.Equal(t, 10, m.Round())
}

func TestRun_Cancelled(t *testing.T) {
	m := standoff(t, 10)
	current := m.Current()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.ErrorIs(t, m.Run(ctx), context.Canceled)
	assert.False(t, m.CombatIsFinished())
	assert.Same(t, current, m.Current())
}

func TestAutoRunner_RunsToCompletion(t *testing.T) {
	m := standoff(t, 20)
	r := NewAutoRunner(m, 0)

	r.Start(context.Background())
	select {
	case <-r.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("auto-run did not finish")
	}

	assert.NoError(t, r.Err())
	assert.False(t, r.Running())
	assert.True(t, m.CombatIsFinished())
	assert.True(t, m.Stalemate())
}

func TestAutoRunner_StopAndResume(t *testing.T) {
	m := standoff(t, 50)
	r := NewAutoRunner(m, 20*time.Millisecond)

	r.Start(context.Background())
	r.Stop()

	assert.ErrorIs(t, r.Err(), context.Canceled)
	assert.False(t, r.Running())
	require.False(t, m.CombatIsFinished())
	require.NotNil(t, m.Current())
	round := m.Round()

	r2 := NewAutoRunner(m, 0)
	r2.Start(context.Background())
	<-r2.Done()

	assert.NoError(t, r2.Err())
	assert.GreaterOrEqual(t, m.Round(), round)
	assert.True(t, m.CombatIsFinished())
}

func TestAutoRunner_StopWithoutStart(t *testing.T) {
	r := NewAutoRunner(standoff(t, 5), 0)
	r.Stop()
	assert.False(t, r.Running())
}
