package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/OCAP2/spacecombat/internal/cache"
	"github.com/OCAP2/spacecombat/internal/config"
	"github.com/OCAP2/spacecombat/internal/dispatcher"
	"github.com/OCAP2/spacecombat/internal/influx"
	"github.com/OCAP2/spacecombat/internal/logging"
	"github.com/OCAP2/spacecombat/internal/monitor"
	intOtel "github.com/OCAP2/spacecombat/internal/otel"
	"github.com/OCAP2/spacecombat/internal/session"
	"github.com/OCAP2/spacecombat/internal/storage"
	"github.com/OCAP2/spacecombat/internal/worker"

	"github.com/rs/zerolog"
	"github.com/spf13/viper"
)

// app wires the recording pipeline for one run.
type app struct {
	start     time.Time
	closeOnce sync.Once

	logFile    *os.File
	logger     *slog.Logger
	logManager *logging.SlogManager
	zlog       zerolog.Logger
	otel       *intOtel.Provider

	session    *session.Context
	stackCache *cache.StackCache
	dispatcher *dispatcher.Dispatcher
	backend    storage.Backend
	worker     *worker.Manager
	influx     *influx.Manager
	monitor    *monitor.Service
}

// newApp sets up logging, telemetry, storage and the dispatcher from the
// loaded configuration. The caller must call close.
func newApp(ctx context.Context, stderr io.Writer) (*app, error) {
	a := &app{
		start:      time.Now(),
		session:    session.NewContext(),
		stackCache: cache.NewStackCache(),
		logManager: logging.NewSlogManager(),
	}
	if err := a.setupLogging(stderr); err != nil {
		a.close()
		return nil, err
	}
	if err := a.setupPipeline(ctx); err != nil {
		a.close()
		return nil, err
	}
	return a, nil
}

func (a *app) setupLogging(stderr io.Writer) error {
	logsDir := viper.GetString("logsDir")
	if err := os.MkdirAll(logsDir, 0755); err != nil {
		return fmt.Errorf("failed to create logs dir: %w", err)
	}
	logFilePath := logging.LogFilePath(logsDir, AppName, a.start)
	file, err := os.OpenFile(logFilePath, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	a.logFile = file

	// infrastructure logger: console plus log file
	level, err := zerolog.ParseLevel(viper.GetString("logLevel"))
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	zerolog.TimestampFunc = func() time.Time {
		return time.Now().UTC()
	}
	mlw := zerolog.MultiLevelWriter(
		zerolog.ConsoleWriter{Out: stderr, TimeFormat: time.RFC3339},
		zerolog.ConsoleWriter{Out: file, TimeFormat: time.RFC3339, NoColor: true},
	)
	a.zlog = zerolog.New(mlw).Level(level).With().Timestamp().Logger()

	a.otel, err = intOtel.New(config.GetOTelConfig(), BuildVersion, file)
	if err != nil {
		return fmt.Errorf("failed to initialize OTel provider: %w", err)
	}

	opts := logging.Options{
		File:     file,
		Level:    viper.GetString("logLevel"),
		Provider: a.otel.LoggerProvider(),
		Context:  a.session.LogAttrs,
	}
	if viper.GetBool("graylog.enabled") {
		opts.GraylogAddress = viper.GetString("graylog.address")
	}
	if err := a.logManager.Setup(opts); err != nil {
		return err
	}
	a.logger = a.logManager.Logger()
	a.zlog.Info().Str("path", logFilePath).Str("version", BuildVersion).Msg("Logging to file")
	return nil
}

func (a *app) setupPipeline(ctx context.Context) error {
	var err error
	a.dispatcher, err = dispatcher.New(logging.NewDispatcherLogger(a.zlog))
	if err != nil {
		return fmt.Errorf("failed to create dispatcher: %w", err)
	}

	var metrics worker.PointWriter
	influxManager := influx.NewManager(a.zlog, config.GetInfluxConfig())
	switch err := influxManager.Connect(ctx); {
	case err == nil:
		a.influx = influxManager
		metrics = influxManager
	case errors.Is(err, influx.ErrDisabled):
	default:
		a.zlog.Warn().Err(err).Msg("InfluxDB metrics disabled")
	}

	storageCfg := config.GetStorageConfig()
	a.backend, err = createStorageBackend(storageCfg, storageDeps{
		StackCache: a.stackCache,
		LogManager: a.logManager,
		Logger:     a.logger,
		ZLogger:    a.zlog,
	})
	if err != nil {
		return err
	}
	if err := a.backend.Init(); err != nil {
		return fmt.Errorf("failed to initialize %s storage: %w", storageCfg.Type, err)
	}

	a.worker = worker.NewManager(worker.Dependencies{
		StackCache: a.stackCache,
		LogManager: a.logManager,
		Session:    a.session,
		Metrics:    metrics,
	}, a.backend)
	a.worker.RegisterHandlers(a.dispatcher)

	a.monitor = monitor.NewService(monitor.Dependencies{
		DB:         backendDB(a.backend),
		LogManager: a.logManager,
		Session:    a.session,
		Source:     a.worker,
		Metrics:    metrics,
		StatusFile: viper.GetString("monitor.statusFile"),
		Interval:   viper.GetDuration("monitor.interval"),
	})
	if viper.GetBool("monitor.enabled") {
		a.monitor.Start(ctx)
	}
	return nil
}

// close drains the dispatcher and shuts every service down in reverse order.
// Only the first call has an effect.
func (a *app) close() {
	a.closeOnce.Do(a.shutdown)
}

func (a *app) shutdown() {
	if a.monitor != nil {
		a.monitor.Stop()
	}
	if a.dispatcher != nil {
		a.dispatcher.Close()
	}
	if a.backend != nil {
		if err := a.backend.Close(); err != nil {
			a.zlog.Error().Err(err).Msg("Failed to close storage backend")
		}
	}
	if a.influx != nil {
		if err := a.influx.Close(); err != nil {
			a.zlog.Error().Err(err).Msg("Failed to close InfluxDB")
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if a.otel != nil {
		if err := a.otel.Shutdown(shutdownCtx); err != nil {
			a.zlog.Error().Err(err).Msg("Failed to shut down OTel provider")
		}
	}
	if err := a.logManager.Close(); err != nil {
		a.zlog.Error().Err(err).Msg("Failed to close Graylog writer")
	}
	if a.logFile != nil {
		a.logFile.Close()
	}
}
