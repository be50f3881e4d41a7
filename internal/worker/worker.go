package worker

import (
	"fmt"
	"time"

	"github.com/OCAP2/spacecombat/internal/cache"
	"github.com/OCAP2/spacecombat/internal/logging"
	"github.com/OCAP2/spacecombat/internal/model"
	"github.com/OCAP2/spacecombat/internal/session"
	"github.com/OCAP2/spacecombat/internal/storage"

	influxdb2_write "github.com/influxdata/influxdb-client-go/v2/api/write"
)

// ErrTooEarlyForStateAssociation is returned when state data arrives before the stack is registered
var ErrTooEarlyForStateAssociation = fmt.Errorf("too early for state association")

// ErrNoActiveBattle is returned for records dispatched outside battle:start and battle:end
var ErrNoActiveBattle = fmt.Errorf("no active battle")

// PointWriter receives metric points; *influx.Manager satisfies it.
type PointWriter interface {
	WritePoint(bucket string, point *influxdb2_write.Point) error
}

// Dependencies holds all dependencies for the worker manager
type Dependencies struct {
	StackCache *cache.StackCache
	LogManager *logging.SlogManager
	Session    *session.Context
	Metrics    PointWriter // optional
}

// Manager forwards dispatched battle records to a storage backend
type Manager struct {
	deps    Dependencies
	backend storage.Backend
}

// NewManager creates a new worker manager
func NewManager(deps Dependencies, backend storage.Backend) *Manager {
	if deps.StackCache == nil {
		deps.StackCache = cache.NewStackCache()
	}
	if deps.LogManager == nil {
		deps.LogManager = logging.NewSlogManager()
	}
	if deps.Session == nil {
		deps.Session = session.NewContext()
	}
	return &Manager{
		deps:    deps,
		backend: backend,
	}
}

// Backend returns the storage backend records are forwarded to.
func (m *Manager) Backend() storage.Backend {
	return m.backend
}

// DBWriteDurationProvider is an optional interface that backends can implement
// to expose their last DB write duration for monitoring.
type DBWriteDurationProvider interface {
	GetLastDBWriteDuration() time.Duration
}

// QueueLengthProvider is an optional interface for backends with write queues.
type QueueLengthProvider interface {
	QueueLengths() model.WriteQueueLengths
}

// GetLastDBWriteDuration returns the duration of the last DB write cycle.
// Returns 0 if the backend doesn't support this metric.
func (m *Manager) GetLastDBWriteDuration() time.Duration {
	if p, ok := m.backend.(DBWriteDurationProvider); ok {
		return p.GetLastDBWriteDuration()
	}
	return 0
}

// GetQueueLengths returns the backend's write backlog, zero if it has none.
func (m *Manager) GetQueueLengths() model.WriteQueueLengths {
	if p, ok := m.backend.(QueueLengthProvider); ok {
		return p.QueueLengths()
	}
	return model.WriteQueueLengths{}
}
