package influx

import (
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/OCAP2/spacecombat/internal/config"
	"github.com/OCAP2/spacecombat/internal/model"
	"github.com/OCAP2/spacecombat/pkg/core"
	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	influxdb2_api "github.com/influxdata/influxdb-client-go/v2/api"
	influxdb2_write "github.com/influxdata/influxdb-client-go/v2/api/write"
	"github.com/influxdata/influxdb-client-go/v2/domain"
	"github.com/rs/zerolog"
)

// Buckets written by the recorder.
const (
	BucketBattleData  = "battle_data"
	BucketPerformance = "recorder_performance"
)

// ErrDisabled is returned by Connect when influx.enabled is false.
var ErrDisabled = errors.New("influx is disabled")

// DefaultBucketNames are the buckets created on connect.
var DefaultBucketNames = []string{BucketBattleData, BucketPerformance}

// Manager handles InfluxDB connections and writes.
type Manager struct {
	Client       influxdb2.Client
	Writers      map[string]influxdb2_api.WriteAPI
	BackupWriter *gzip.Writer
	IsValid      bool
	BucketNames  []string
	Logger       zerolog.Logger

	cfg        config.InfluxConfig
	backupFile *os.File
	mu         sync.Mutex // guards BackupWriter
}

// NewManager creates a new InfluxDB manager.
func NewManager(log zerolog.Logger, cfg config.InfluxConfig) *Manager {
	return &Manager{
		Writers:     make(map[string]influxdb2_api.WriteAPI),
		BucketNames: DefaultBucketNames,
		Logger:      log,
		cfg:         cfg,
	}
}

// Connect establishes a connection to InfluxDB. When the server does not
// answer, points go to a gzip line-protocol backup file instead.
func (m *Manager) Connect(ctx context.Context) error {
	if !m.cfg.Enabled {
		return ErrDisabled
	}

	m.Client = influxdb2.NewClientWithOptions(
		m.cfg.URL(),
		m.cfg.Token,
		influxdb2.DefaultOptions().
			SetBatchSize(2500).
			SetFlushInterval(1000),
	)

	running, err := m.Client.Ping(ctx)
	if err != nil || !running {
		m.IsValid = false
		m.Client.Close()
		m.Client = nil
		if berr := m.openBackup(); berr != nil {
			return berr
		}
		m.Logger.Warn().Err(err).Str("backupPath", m.cfg.BackupPath).
			Msg("InfluxDB unreachable, writing to backup file")
		return nil
	}

	if err := m.setupOrganizationAndBuckets(ctx); err != nil {
		return err
	}
	m.CreateWriters()
	m.IsValid = true
	m.Logger.Info().Str("url", m.cfg.URL()).Msg("InfluxDB client initialized")
	return nil
}

func (m *Manager) openBackup() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.BackupWriter != nil {
		return nil
	}
	if m.cfg.BackupPath == "" {
		return fmt.Errorf("influx unreachable and no backup path set")
	}
	if err := os.MkdirAll(filepath.Dir(m.cfg.BackupPath), 0755); err != nil {
		return fmt.Errorf("error creating backup directory: %w", err)
	}
	file, err := os.OpenFile(m.cfg.BackupPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("error creating backup file: %w", err)
	}
	m.backupFile = file
	m.BackupWriter = gzip.NewWriter(file)
	return nil
}

func (m *Manager) setupOrganizationAndBuckets(ctx context.Context) error {
	orgName := m.cfg.Org

	influxOrg, err := m.Client.OrganizationsAPI().FindOrganizationByName(ctx, orgName)
	if err != nil {
		m.Logger.Info().Str("org", orgName).Msg("Organization not found, creating")
		influxOrg, err = m.Client.OrganizationsAPI().CreateOrganizationWithName(ctx, orgName)
		if err != nil {
			m.Logger.Error().Err(err).Str("org", orgName).Msg("Error creating organization")
			return fmt.Errorf("creating organization %s: %w", orgName, err)
		}
	}

	// battle data is kept for 30 days
	for _, bucket := range m.BucketNames {
		if _, err = m.Client.BucketsAPI().FindBucketByName(ctx, bucket); err == nil {
			continue
		}
		m.Logger.Info().Str("bucket", bucket).Msg("Bucket not found, creating")

		rule := domain.RetentionRuleTypeExpire
		_, err = m.Client.BucketsAPI().CreateBucketWithName(ctx, influxOrg, bucket, domain.RetentionRule{
			Type:         &rule,
			EverySeconds: 60 * 60 * 24 * 30,
		})
		if err != nil {
			m.Logger.Error().Err(err).Str("bucket", bucket).Msg("Error creating bucket")
			return fmt.Errorf("creating bucket %s: %w", bucket, err)
		}
	}

	return nil
}

// CreateWriters creates write APIs for all configured buckets.
func (m *Manager) CreateWriters() {
	for _, bucket := range m.BucketNames {
		m.Writers[bucket] = m.Client.WriteAPI(m.cfg.Org, bucket)

		errorsCh := m.Writers[bucket].Errors()
		go func(bucketName string, errorsCh <-chan error) {
			for writeErr := range errorsCh {
				m.Logger.Error().Err(writeErr).Str("bucket", bucketName).
					Msg("Error sending data to InfluxDB")
			}
		}(bucket, errorsCh)
	}

	m.Logger.Debug().Strs("buckets", m.BucketNames).Msg("InfluxDB writers initialized")
}

// WritePoint writes a point to InfluxDB or the backup file.
func (m *Manager) WritePoint(bucket string, point *influxdb2_write.Point) error {
	if m.IsValid {
		w, ok := m.Writers[bucket]
		if !ok {
			return fmt.Errorf("influxDB bucket '%s' not registered", bucket)
		}
		w.WritePoint(point)
		return nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.BackupWriter == nil {
		return fmt.Errorf("influxDB client not initialized and backup writer not available")
	}

	lineProtocol := influxdb2_write.PointToLineProtocol(point, time.Nanosecond)
	if !strings.HasSuffix(lineProtocol, "\n") {
		lineProtocol += "\n"
	}
	if _, err := m.BackupWriter.Write([]byte(lineProtocol)); err != nil {
		return fmt.Errorf("error writing to InfluxDB backup file: %w", err)
	}
	return nil
}

// Close flushes pending points and releases the client or backup file.
func (m *Manager) Close() error {
	for _, w := range m.Writers {
		w.Flush()
	}
	if m.Client != nil {
		m.Client.Close()
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.BackupWriter == nil {
		return nil
	}
	if err := m.BackupWriter.Close(); err != nil {
		return fmt.Errorf("closing backup writer: %w", err)
	}
	m.BackupWriter = nil
	return m.backupFile.Close()
}

// StackStatePoint describes a stack at the end of a round.
func StackStatePoint(battle core.Battle, s core.StackState) *influxdb2_write.Point {
	return influxdb2_write.NewPoint(
		"stack_state",
		map[string]string{
			"battle": battle.UUID,
			"stack":  strconv.Itoa(s.StackID),
		},
		map[string]any{
			"round":   s.Round,
			"units":   s.Units,
			"hits":    s.Hits,
			"x":       s.Position.X,
			"y":       s.Position.Y,
			"cloaked": s.Cloaked,
		},
		s.Time,
	)
}

// FirePoint describes one weapon resolution.
func FirePoint(battle core.Battle, e core.FireEvent) *influxdb2_write.Point {
	return influxdb2_write.NewPoint(
		"fire",
		map[string]string{
			"battle":  battle.UUID,
			"shooter": strconv.Itoa(e.ShooterID),
			"weapon":  e.Weapon,
			"kind":    e.WeaponKind,
		},
		map[string]any{
			"round":        e.Round,
			"attacks":      e.Attacks,
			"hits":         e.Hits,
			"damage":       e.Damage,
			"units_killed": e.UnitsKilled,
			"distance":     e.Distance,
		},
		e.Time,
	)
}

// MissilePoint describes a resolved missile salvo.
func MissilePoint(battle core.Battle, e core.MissileEvent) *influxdb2_write.Point {
	return influxdb2_write.NewPoint(
		"missile",
		map[string]string{
			"battle":  battle.UUID,
			"weapon":  e.Weapon,
			"outcome": e.Outcome,
		},
		map[string]any{
			"round":        e.Round,
			"count":        e.Count,
			"damage":       e.Damage,
			"units_killed": e.UnitsKilled,
		},
		e.Time,
	)
}

// PerformancePoint describes the recorder's write backlog.
func PerformancePoint(p model.RecorderPerformance) *influxdb2_write.Point {
	q := p.WriteQueueLengths
	return influxdb2_write.NewPoint(
		"write_queues",
		map[string]string{"battle": strconv.FormatUint(uint64(p.BattleID), 10)},
		map[string]any{
			"combatants":       int(q.Combatants),
			"stack_states":     int(q.StackStates),
			"fire_events":      int(q.FireEvents),
			"missile_events":   int(q.MissileEvents),
			"destroyed_events": int(q.DestroyedEvents),
			"retreat_events":   int(q.RetreatEvents),
			"last_write_ms":    p.LastWriteDurationMs,
		},
		p.Time,
	)
}
