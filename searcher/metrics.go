package searcher

import (
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

type SearchMetrics struct {
	SearchID    uuid.UUID
	StartTime   time.Time
	Duration    time.Duration
	Workers     int
	Depth       int
	Level       int
	Nodes       int64
	Tasks       int64
	Sent        int64 // task messages dispatched to workers
	Received    int64 // results accepted from workers
	Local       int64 // tasks evaluated by the coordinator while idle
	Reevaluated int64 // tasks taken back from a stalled worker
	Stale       int64 // results dropped as late or foreign
}

type MetricsCollector interface {
	Start(id uuid.UUID, workers, depth, level int)
	AddTree(nodes, tasks int)
	AddSent()
	AddReceived()
	AddLocal()
	AddReevaluated()
	AddStale()
	Complete() SearchMetrics
}

type metricsCollector struct {
	id          uuid.UUID
	startTime   time.Time
	workers     int
	depth       int
	level       int
	nodes       atomic.Int64
	tasks       atomic.Int64
	sent        atomic.Int64
	received    atomic.Int64
	local       atomic.Int64
	reevaluated atomic.Int64
	stale       atomic.Int64
}

func NewMetricsCollector() MetricsCollector {
	return &metricsCollector{}
}

func (m *metricsCollector) Start(id uuid.UUID, workers, depth, level int) {
	m.id = id
	m.startTime = time.Now()
	m.workers = workers
	m.depth = depth
	m.level = level
	m.nodes.Store(0)
	m.tasks.Store(0)
	m.sent.Store(0)
	m.received.Store(0)
	m.local.Store(0)
	m.reevaluated.Store(0)
	m.stale.Store(0)
}

func (m *metricsCollector) AddTree(nodes, tasks int) {
	m.nodes.Add(int64(nodes))
	m.tasks.Add(int64(tasks))
}

func (m *metricsCollector) AddSent()        { m.sent.Add(1) }
func (m *metricsCollector) AddReceived()    { m.received.Add(1) }
func (m *metricsCollector) AddLocal()       { m.local.Add(1) }
func (m *metricsCollector) AddReevaluated() { m.reevaluated.Add(1) }
func (m *metricsCollector) AddStale()       { m.stale.Add(1) }

func (m *metricsCollector) Complete() SearchMetrics {
	return SearchMetrics{
		SearchID:    m.id,
		StartTime:   m.startTime,
		Duration:    time.Since(m.startTime),
		Workers:     m.workers,
		Depth:       m.depth,
		Level:       m.level,
		Nodes:       m.nodes.Load(),
		Tasks:       m.tasks.Load(),
		Sent:        m.sent.Load(),
		Received:    m.received.Load(),
		Local:       m.local.Load(),
		Reevaluated: m.reevaluated.Load(),
		Stale:       m.stale.Load(),
	}
}

type noMetricsCollector struct{}

func NewNoMetricsCollector() MetricsCollector {
	return &noMetricsCollector{}
}

func (m *noMetricsCollector) Start(uuid.UUID, int, int, int) {}
func (m *noMetricsCollector) AddTree(int, int)               {}
func (m *noMetricsCollector) AddSent()                       {}
func (m *noMetricsCollector) AddReceived()                   {}
func (m *noMetricsCollector) AddLocal()                      {}
func (m *noMetricsCollector) AddReevaluated()                {}
func (m *noMetricsCollector) AddStale()                      {}
func (m *noMetricsCollector) Complete() SearchMetrics        { return SearchMetrics{} }
