package monitor

import (
	"context"
	goruntime "runtime"
	"sync"
	"time"

	"github.com/flowkit-io/flowkit/job"
	"github.com/flowkit-io/flowkit/logger"
	"github.com/flowkit-io/flowkit/orchestrator"
)

const (
	baseScore      = 100.0
	errorPenalty   = 10.0
	warningPenalty = 2.0
	retryPenalty   = 2.0

	// Runs slower or hungrier than these thresholds lose extra points.
	slowRunThreshold  = time.Minute
	slowRunPenalty    = 10.0
	highMemoryBytes   = 512 << 20
	highMemoryPenalty = 10.0
)

// NodeStats aggregates execution statistics for one graph node.
type NodeStats struct {
	Executions int           `json:"executions"`
	Failures   int           `json:"failures"`
	TotalTime  time.Duration `json:"total_time"`
}

// AverageTime returns the mean execution time across all executions.
func (s NodeStats) AverageTime() time.Duration {
	if s.Executions == 0 {
		return 0
	}
	return s.TotalTime / time.Duration(s.Executions)
}

// ExecutionReport is the monitoring summary of one pipeline run.
type ExecutionReport struct {
	PipelineID string             `json:"pipeline_id"`
	Status     job.PipelineStatus `json:"status"`

	StartedAt  time.Time     `json:"started_at"`
	FinishedAt *time.Time    `json:"finished_at,omitempty"`
	WallClock  time.Duration `json:"wall_clock"`

	// MemoryDeltaBytes is the change in heap allocation between start and
	// finish. Informational only; the engine does not enforce memory
	// ceilings.
	MemoryDeltaBytes int64 `json:"memory_delta_bytes"`

	Errors   int `json:"errors"`
	Warnings int `json:"warnings"`
	Retries  int `json:"retries"`

	// PerformanceScore starts at 100 and loses points per error, warning
	// and retry, clamped to [0, 100].
	PerformanceScore float64 `json:"performance_score"`

	NodeStats map[string]NodeStats `json:"node_stats"`
}

// execution is the mutable in-flight state behind a report.
type execution struct {
	startedAt  time.Time
	startAlloc uint64
	errors     int
	warnings   int
	retries    int
	nodes      map[string]*NodeStats
}

// Monitor tracks pipeline executions and exposes per-run reports. It
// implements orchestrator.Observer so the orchestrators feed it directly.
// Metrics export is optional: a nil Metrics disables it.
type Monitor struct {
	log     *logger.Logger
	metrics *Metrics

	mu      sync.Mutex
	active  map[string]*execution
	reports map[string]*ExecutionReport
}

// New creates a Monitor. metrics may be nil.
func New(log *logger.Logger, metrics *Metrics) *Monitor {
	return &Monitor{
		log:     log.WithComponent("monitor"),
		metrics: metrics,
		active:  make(map[string]*execution),
		reports: make(map[string]*ExecutionReport),
	}
}

// ensure returns the in-flight execution, starting one on first sight.
func (m *Monitor) ensure(pipelineID string) *execution {
	e, ok := m.active[pipelineID]
	if !ok {
		var ms goruntime.MemStats
		goruntime.ReadMemStats(&ms)
		e = &execution{
			startedAt:  time.Now().UTC(),
			startAlloc: ms.HeapAlloc,
			nodes:      make(map[string]*NodeStats),
		}
		m.active[pipelineID] = e
	}
	return e
}

func (m *Monitor) JobStarted(pipelineID, jobID, nodeID string) {
	m.mu.Lock()
	m.ensure(pipelineID)
	m.mu.Unlock()

	if m.metrics != nil {
		m.metrics.RecordJobStart(context.Background())
	}
}

func (m *Monitor) JobCompleted(pipelineID, jobID, nodeID string, elapsed time.Duration) {
	m.mu.Lock()
	e := m.ensure(pipelineID)
	stats, ok := e.nodes[nodeID]
	if !ok {
		stats = &NodeStats{}
		e.nodes[nodeID] = stats
	}
	stats.Executions++
	stats.TotalTime += elapsed
	m.mu.Unlock()

	if m.metrics != nil {
		m.metrics.RecordJobEnd(context.Background(), nodeID, string(job.StatusCompleted), elapsed)
	}
}

func (m *Monitor) JobFailed(pipelineID, jobID, nodeID string, err error) {
	m.mu.Lock()
	e := m.ensure(pipelineID)
	stats, ok := e.nodes[nodeID]
	if !ok {
		stats = &NodeStats{}
		e.nodes[nodeID] = stats
	}
	stats.Executions++
	stats.Failures++
	e.errors++
	m.mu.Unlock()

	if m.metrics != nil {
		m.metrics.RecordJobEnd(context.Background(), nodeID, string(job.StatusFailed), 0)
	}
}

// RecordWarning notes a non-fatal anomaly against a run.
func (m *Monitor) RecordWarning(pipelineID, message string) {
	m.mu.Lock()
	m.ensure(pipelineID).warnings++
	m.mu.Unlock()

	m.log.Warn("execution warning", logger.Fields(
		logger.FieldPipelineID, pipelineID,
		"warning", message,
	))
}

// JobRetried implements the orchestrator's observer retry event.
func (m *Monitor) JobRetried(pipelineID, _, nodeID string) {
	m.RecordRetry(pipelineID, nodeID)
}

// RecordRetry notes a scheduled retry against a run.
func (m *Monitor) RecordRetry(pipelineID, nodeID string) {
	m.mu.Lock()
	m.ensure(pipelineID).retries++
	m.mu.Unlock()

	if m.metrics != nil {
		m.metrics.RecordRetry(context.Background(), nodeID)
	}
}

func (m *Monitor) PipelineFinished(pipelineID string, status job.PipelineStatus) {
	var ms goruntime.MemStats
	goruntime.ReadMemStats(&ms)
	now := time.Now().UTC()

	m.mu.Lock()
	e := m.ensure(pipelineID)
	delete(m.active, pipelineID)

	report := buildReport(pipelineID, status, e, now, ms.HeapAlloc)
	m.reports[pipelineID] = report
	m.mu.Unlock()

	if m.metrics != nil {
		m.metrics.RecordPipelineEnd(context.Background(), status, report.WallClock)
	}

	m.log.Info("execution report", logger.Fields(
		logger.FieldPipelineID, pipelineID,
		logger.FieldStatus, string(status),
		logger.FieldDuration, report.WallClock.String(),
		"errors", report.Errors,
		"warnings", report.Warnings,
		"score", report.PerformanceScore,
	))
}

// Report returns the report for a finished run, or a live snapshot for a
// run still in flight.
func (m *Monitor) Report(pipelineID string) (*ExecutionReport, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if r, ok := m.reports[pipelineID]; ok {
		c := *r
		c.NodeStats = copyNodeStats(r.NodeStats)
		return &c, true
	}
	if e, ok := m.active[pipelineID]; ok {
		var ms goruntime.MemStats
		goruntime.ReadMemStats(&ms)
		r := buildReport(pipelineID, job.PipelineRunning, e, time.Now().UTC(), ms.HeapAlloc)
		r.FinishedAt = nil
		return r, true
	}
	return nil, false
}

func buildReport(pipelineID string, status job.PipelineStatus, e *execution, now time.Time, alloc uint64) *ExecutionReport {
	wallClock := now.Sub(e.startedAt)
	memoryDelta := int64(alloc) - int64(e.startAlloc)

	score := baseScore -
		errorPenalty*float64(e.errors) -
		warningPenalty*float64(e.warnings) -
		retryPenalty*float64(e.retries)
	if wallClock > slowRunThreshold {
		score -= slowRunPenalty
	}
	if memoryDelta > highMemoryBytes {
		score -= highMemoryPenalty
	}
	if score < 0 {
		score = 0
	}
	if score > baseScore {
		score = baseScore
	}

	nodes := make(map[string]NodeStats, len(e.nodes))
	for id, s := range e.nodes {
		nodes[id] = *s
	}

	finished := now
	return &ExecutionReport{
		PipelineID:       pipelineID,
		Status:           status,
		StartedAt:        e.startedAt,
		FinishedAt:       &finished,
		WallClock:        wallClock,
		MemoryDeltaBytes: memoryDelta,
		Errors:           e.errors,
		Warnings:         e.warnings,
		Retries:          e.retries,
		PerformanceScore: score,
		NodeStats:        nodes,
	}
}

func copyNodeStats(src map[string]NodeStats) map[string]NodeStats {
	dst := make(map[string]NodeStats, len(src))
	for k, v := range src {
		dst[k] = v
	}
	return dst
}

var _ orchestrator.Observer = (*Monitor)(nil)
