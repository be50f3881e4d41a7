// Package monitor periodically snapshots the recorder's write backlog.
package monitor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/OCAP2/spacecombat/internal/influx"
	"github.com/OCAP2/spacecombat/internal/logging"
	"github.com/OCAP2/spacecombat/internal/model"
	"github.com/OCAP2/spacecombat/internal/session"
	"github.com/OCAP2/spacecombat/internal/worker"

	"gorm.io/gorm"
)

// DefaultInterval is the snapshot period when none is configured.
const DefaultInterval = time.Second

// StatusSource reports the backlog of the active storage backend;
// *worker.Manager satisfies it.
type StatusSource interface {
	GetQueueLengths() model.WriteQueueLengths
	GetLastDBWriteDuration() time.Duration
}

// Dependencies holds all dependencies for the monitor service
type Dependencies struct {
	DB         *gorm.DB // optional
	LogManager *logging.SlogManager
	Session    *session.Context
	Source     StatusSource
	Metrics    worker.PointWriter // optional
	StatusFile string             // optional
	Interval   time.Duration
}

// Service manages status monitoring
type Service struct {
	deps Dependencies

	mu        sync.Mutex
	isRunning bool
	cancel    context.CancelFunc
	done      chan struct{}
}

// NewService creates a new monitor service
func NewService(deps Dependencies) *Service {
	if deps.Interval <= 0 {
		deps.Interval = DefaultInterval
	}
	if deps.LogManager == nil {
		deps.LogManager = logging.NewSlogManager()
	}
	if deps.Session == nil {
		deps.Session = session.NewContext()
	}
	return &Service{deps: deps}
}

// IsRunning returns whether the status monitor is running
func (s *Service) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.isRunning
}

// Status returns the current backlog and its indented JSON rendering.
func (s *Service) Status() (model.RecorderPerformance, string) {
	perf := model.RecorderPerformance{
		Time:                time.Now(),
		BattleID:            s.deps.Session.GetBattle().ID,
		WriteQueueLengths:   s.deps.Source.GetQueueLengths(),
		LastWriteDurationMs: float32(s.deps.Source.GetLastDBWriteDuration().Milliseconds()),
	}

	out, err := json.MarshalIndent(perf, "", "  ")
	if err != nil {
		out = []byte(fmt.Sprintf(`{"error": %q}`, err.Error()))
	}
	return perf, string(out)
}

// Snapshot takes one status sample and writes it to every configured sink.
// It does nothing while no battle is active.
func (s *Service) Snapshot() error {
	if !s.deps.Session.Active() {
		return nil
	}
	perf, text := s.Status()

	var errs []error
	if s.deps.StatusFile != "" {
		if err := os.WriteFile(s.deps.StatusFile, []byte(text+"\n"), 0o644); err != nil {
			errs = append(errs, fmt.Errorf("failed to write status file: %w", err))
		}
	}
	if s.deps.DB != nil {
		if err := s.deps.DB.Create(&perf).Error; err != nil {
			errs = append(errs, fmt.Errorf("failed to write performance row: %w", err))
		}
	}
	if s.deps.Metrics != nil {
		if err := s.deps.Metrics.WritePoint(influx.BucketPerformance, influx.PerformancePoint(perf)); err != nil {
			errs = append(errs, fmt.Errorf("failed to write performance point: %w", err))
		}
	}
	return errors.Join(errs...)
}

// Start samples the status every interval until Stop is called or ctx ends.
func (s *Service) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.isRunning {
		return
	}
	ctx, s.cancel = context.WithCancel(ctx)
	s.done = make(chan struct{})
	s.isRunning = true

	go s.loop(ctx, s.done)
}

func (s *Service) loop(ctx context.Context, done chan struct{}) {
	defer func() {
		s.mu.Lock()
		s.isRunning = false
		s.mu.Unlock()
		close(done)
	}()

	logger := s.deps.LogManager.Logger()
	logger.Debug("Starting status monitor", "interval", s.deps.Interval)

	ticker := time.NewTicker(s.deps.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.Snapshot(); err != nil {
				logger.Error("Error writing recorder status", "error", err)
			}
		}
	}
}

// Stop stops the status monitor and waits for it to exit.
func (s *Service) Stop() {
	s.mu.Lock()
	cancel, done := s.cancel, s.done
	s.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	<-done
}
