package main

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/OCAP2/spacecombat/internal/cache"
	"github.com/OCAP2/spacecombat/internal/config"
	"github.com/OCAP2/spacecombat/internal/logging"
	"github.com/OCAP2/spacecombat/internal/storage"
	gormstorage "github.com/OCAP2/spacecombat/internal/storage/gorm"
	"github.com/OCAP2/spacecombat/internal/storage/memory"
	pgstorage "github.com/OCAP2/spacecombat/internal/storage/postgres"
	sqlitestorage "github.com/OCAP2/spacecombat/internal/storage/sqlite"
	wsstorage "github.com/OCAP2/spacecombat/internal/storage/websocket"

	"github.com/rs/zerolog"
	"github.com/spf13/viper"
	"gorm.io/gorm"
)

// storageDeps are the shared services a backend may need.
type storageDeps struct {
	StackCache *cache.StackCache
	LogManager *logging.SlogManager
	Logger     *slog.Logger
	ZLogger    zerolog.Logger
}

func createStorageBackend(storageCfg config.StorageConfig, deps storageDeps) (storage.Backend, error) {
	switch storageCfg.Type {
	case "memory", "":
		deps.Logger.Info("Memory storage backend initialized", "outputDir", storageCfg.Memory.OutputDir)
		return memory.New(storageCfg.Memory), nil

	case "sqlite":
		backend, err := sqlitestorage.New(storageCfg.SQLite, deps.StackCache, deps.LogManager)
		if err != nil {
			return nil, fmt.Errorf("failed to create SQLite backend: %w", err)
		}
		deps.Logger.Info("SQLite storage backend initialized", "outputDir", storageCfg.SQLite.OutputDir)
		return backend, nil

	case "postgres":
		backend, err := pgstorage.New(gormstorage.Dependencies{
			StackCache:   deps.StackCache,
			LogManager:   deps.LogManager,
			InstanceName: viper.GetString("instanceName"),
		}, deps.ZLogger, viper.GetString("db.fallbackPath"))
		if err != nil {
			return nil, fmt.Errorf("failed to create Postgres backend: %w", err)
		}
		deps.Logger.Info("Postgres storage backend initialized", "local", backend.Local())
		return backend, nil

	case "websocket":
		wsURL := httpToWS(viper.GetString("api.serverUrl")) + "/api/v1/stream"
		deps.Logger.Info("WebSocket storage backend initialized", "url", wsURL)
		return wsstorage.New(wsstorage.Config{
			URL:    wsURL,
			Secret: viper.GetString("api.apiKey"),
		}, deps.Logger), nil

	default:
		return nil, fmt.Errorf("%w: %q (want one of %s)", storage.ErrUnknownBackend, storageCfg.Type, strings.Join(storage.Types, ", "))
	}
}

// dbProvider is satisfied by the GORM-based backends.
type dbProvider interface {
	DB() *gorm.DB
}

// backendDB returns the backend's database handle, nil for non-SQL backends.
func backendDB(b storage.Backend) *gorm.DB {
	if p, ok := b.(dbProvider); ok {
		return p.DB()
	}
	return nil
}

// httpToWS converts an HTTP(S) URL to a WebSocket URL.
func httpToWS(httpURL string) string {
	s := strings.TrimRight(httpURL, "/")
	s = strings.Replace(s, "https://", "wss://", 1)
	s = strings.Replace(s, "http://", "ws://", 1)
	return s
}
