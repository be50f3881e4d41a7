package postgres

import (
	"path/filepath"
	"testing"

	"github.com/OCAP2/spacecombat/internal/database"
	"github.com/OCAP2/spacecombat/internal/model"
	"github.com/OCAP2/spacecombat/internal/storage"
	gormstorage "github.com/OCAP2/spacecombat/internal/storage/gorm"
	"github.com/OCAP2/spacecombat/pkg/core"
	"github.com/rs/zerolog"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Compile-time interface check
var _ storage.Backend = (*Backend)(nil)

func unreachablePostgres(t *testing.T) {
	t.Cleanup(viper.Reset)
	viper.Set("db.host", "127.0.0.1")
	viper.Set("db.port", "1")
	viper.Set("db.username", "nobody")
	viper.Set("db.database", "none")
}

func TestNew_Unreachable(t *testing.T) {
	unreachablePostgres(t)

	_, err := New(gormstorage.Dependencies{}, zerolog.Nop(), "")
	require.Error(t, err)
}

func TestNew_FallbackToSqlite(t *testing.T) {
	unreachablePostgres(t)
	path := filepath.Join(t.TempDir(), "fallback.db")

	b, err := New(gormstorage.Dependencies{}, zerolog.Nop(), path)
	require.NoError(t, err)
	assert.True(t, b.Local())

	require.NoError(t, b.Init())
	battle := &core.Battle{UUID: "fb", Name: "Fallback"}
	require.NoError(t, b.StartBattle(battle))
	require.NoError(t, b.AddCombatant(&core.Combatant{StackID: 1, Name: "Falcon"}))
	require.NoError(t, b.EndBattle(battle))
	require.NoError(t, b.Close())

	disk, err := database.GetSqliteDBStandalone(path)
	require.NoError(t, err)
	var count int64
	require.NoError(t, disk.Model(&model.Combatant{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestNew_InjectedDB(t *testing.T) {
	db, err := database.GetSqliteDBStandalone("")
	require.NoError(t, err)

	b, err := New(gormstorage.Dependencies{DB: db}, zerolog.Nop(), "")
	require.NoError(t, err)
	assert.False(t, b.Local())
	assert.Same(t, db, b.DB())

	require.NoError(t, b.Init())
	require.NoError(t, b.Close())
}
