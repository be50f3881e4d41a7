package database

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/OCAP2/spacecombat/internal/model"
	"github.com/rs/zerolog"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMigrate_CreatesRecorderInfoOnce(t *testing.T) {
	db, err := GetSqliteDBStandalone(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)

	require.NoError(t, Migrate(db, "alpha"))
	require.NoError(t, Migrate(db, "beta"))

	var infos []model.RecorderInfo
	require.NoError(t, db.Find(&infos).Error)
	require.Len(t, infos, 1)
	assert.Equal(t, "alpha", infos[0].InstanceName)

	for _, m := range model.DatabaseModels {
		assert.True(t, db.Migrator().HasTable(m))
	}
}

func TestDumpMemoryDBToDisk(t *testing.T) {
	db, err := GetSqliteDBStandalone("")
	require.NoError(t, err)
	require.NoError(t, Migrate(db, "dump"))
	require.NoError(t, db.Create(&model.Battle{UUID: "u-1", Name: "Dumped"}).Error)

	path := filepath.Join(t.TempDir(), "out", "dump.db")
	require.NoError(t, DumpMemoryDBToDisk(db, path))
	// second dump replaces the first
	require.NoError(t, DumpMemoryDBToDisk(db, path))

	disk, err := GetSqliteDBStandalone(path)
	require.NoError(t, err)
	var battle model.Battle
	require.NoError(t, disk.First(&battle).Error)
	assert.Equal(t, "Dumped", battle.Name)
}

func TestDumpMemoryDBToDisk_NoPath(t *testing.T) {
	db, err := GetSqliteDBStandalone("")
	require.NoError(t, err)
	assert.Error(t, DumpMemoryDBToDisk(db, ""))
}

func TestGetBackupDBPaths(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"a.db", "b.db", "notes.txt"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), nil, 0644))
	}
	require.NoError(t, os.Mkdir(filepath.Join(dir, "dir.db"), 0755))

	paths, err := GetBackupDBPaths(dir)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{filepath.Join(dir, "a.db"), filepath.Join(dir, "b.db")}, paths)
}

func TestManager_ConnectFallsBackToSqlite(t *testing.T) {
	t.Cleanup(viper.Reset)
	viper.Set("db.host", "127.0.0.1")
	viper.Set("db.port", "1")
	viper.Set("db.username", "nobody")
	viper.Set("db.password", "x")
	viper.Set("db.database", "none")

	path := filepath.Join(t.TempDir(), "fallback.db")
	m := NewManager(zerolog.Nop(), path)

	require.NoError(t, m.Connect())
	defer m.Close()
	assert.True(t, m.IsValid)
	assert.True(t, m.ShouldSaveLocal)
	require.NoError(t, m.Setup("fallback"))

	_, err := os.Stat(path)
	assert.NoError(t, err)
}

func TestManager_ConnectWithoutFallback(t *testing.T) {
	t.Cleanup(viper.Reset)
	viper.Set("db.host", "127.0.0.1")
	viper.Set("db.port", "1")

	m := NewManager(zerolog.Nop(), "")
	err := m.Connect()
	require.Error(t, err)
	assert.False(t, m.IsValid)
}
