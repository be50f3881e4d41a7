package influx

import (
	"compress/gzip"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/OCAP2/spacecombat/internal/config"
	"github.com/OCAP2/spacecombat/internal/model"
	"github.com/OCAP2/spacecombat/pkg/core"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testTime = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func unreachable(backup string) config.InfluxConfig {
	return config.InfluxConfig{
		Enabled:    true,
		Protocol:   "http",
		Host:       "127.0.0.1",
		Port:       "1",
		Org:        "spacecombat",
		BackupPath: backup,
	}
}

func readBackup(t *testing.T, path string) string {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	gz, err := gzip.NewReader(f)
	require.NoError(t, err)
	data, err := io.ReadAll(gz)
	require.NoError(t, err)
	return string(data)
}

func TestConnect_Disabled(t *testing.T) {
	m := NewManager(zerolog.Nop(), config.InfluxConfig{})
	assert.ErrorIs(t, m.Connect(t.Context()), ErrDisabled)
}

func TestConnect_UnreachableUsesBackup(t *testing.T) {
	path := filepath.Join(t.TempDir(), "influx", "backup.lp.gz")
	m := NewManager(zerolog.Nop(), unreachable(path))

	require.NoError(t, m.Connect(t.Context()))
	assert.False(t, m.IsValid)
	require.NotNil(t, m.BackupWriter)

	battle := core.Battle{UUID: "b-1"}
	require.NoError(t, m.WritePoint(BucketBattleData, StackStatePoint(battle, core.StackState{
		StackID: 3, Round: 2, Units: 4, Hits: 6.5, Position: core.Position{X: 1, Y: 2}, Time: testTime,
	})))
	require.NoError(t, m.WritePoint(BucketBattleData, FirePoint(battle, core.FireEvent{
		ShooterID: 3, Weapon: "laser", WeaponKind: "beam", Damage: 12, Time: testTime,
	})))
	require.NoError(t, m.Close())

	lines := strings.Split(strings.TrimSpace(readBackup(t, path)), "\n")
	require.Len(t, lines, 2)
	assert.True(t, strings.HasPrefix(lines[0], "stack_state,battle=b-1,stack=3 "))
	assert.Contains(t, lines[0], "units=4i")
	assert.True(t, strings.HasPrefix(lines[1], "fire,battle=b-1,kind=beam,shooter=3,weapon=laser "))
	assert.True(t, strings.HasSuffix(lines[1], "1772366400000000000"))
}

func TestConnect_UnreachableNoBackupPath(t *testing.T) {
	m := NewManager(zerolog.Nop(), unreachable(""))
	assert.Error(t, m.Connect(t.Context()))
}

func TestWritePoint_NotConnected(t *testing.T) {
	m := NewManager(zerolog.Nop(), config.InfluxConfig{})
	err := m.WritePoint(BucketBattleData, MissilePoint(core.Battle{}, core.MissileEvent{}))
	assert.Error(t, err)
}

func TestClose_Unconnected(t *testing.T) {
	m := NewManager(zerolog.Nop(), config.InfluxConfig{})
	assert.NoError(t, m.Close())
}

func TestMissilePoint(t *testing.T) {
	p := MissilePoint(core.Battle{UUID: "b"}, core.MissileEvent{
		Weapon: "nuclear missile", Outcome: core.MissileImpact, Count: 4, Damage: 16, Time: testTime,
	})
	assert.Equal(t, "missile", p.Name())
	tags := map[string]string{}
	for _, tag := range p.TagList() {
		tags[tag.Key] = tag.Value
	}
	assert.Equal(t, "impact", tags["outcome"])
	assert.Equal(t, testTime, p.Time())
}

func TestPerformancePoint(t *testing.T) {
	p := PerformancePoint(model.RecorderPerformance{
		Time:                testTime,
		BattleID:            7,
		WriteQueueLengths:   model.WriteQueueLengths{StackStates: 12},
		LastWriteDurationMs: 3.5,
	})
	assert.Equal(t, "write_queues", p.Name())
	fields := map[string]any{}
	for _, f := range p.FieldList() {
		fields[f.Key] = f.Value
	}
	assert.Equal(t, int64(12), fields["stack_states"])
	assert.Equal(t, float64(3.5), fields["last_write_ms"])
}
