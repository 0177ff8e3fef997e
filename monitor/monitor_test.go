package monitor

import (
	"fmt"
	"testing"
	"time"

	"github.com/flowkit-io/flowkit/job"
	"github.com/flowkit-io/flowkit/logger"
)

func TestMonitorBuildsReport(t *testing.T) {
	m := New(logger.Nop(), nil)

	m.JobStarted("p1", "j1", "A")
	m.JobCompleted("p1", "j1", "A", 40*time.Millisecond)
	m.JobStarted("p1", "j2", "B")
	m.JobFailed("p1", "j2", "B", fmt.Errorf("connection refused"))
	m.JobRetried("p1", "j-b", "B")
	m.JobStarted("p1", "j2", "B")
	m.JobCompleted("p1", "j2", "B", 20*time.Millisecond)
	m.RecordWarning("p1", "slow upstream")
	m.PipelineFinished("p1", job.PipelineCompleted)

	r, ok := m.Report("p1")
	if !ok {
		t.Fatal("no report for p1")
	}
	if r.Status != job.PipelineCompleted {
		t.Fatalf("status = %s", r.Status)
	}
	if r.Errors != 1 || r.Warnings != 1 || r.Retries != 1 {
		t.Fatalf("errors=%d warnings=%d retries=%d", r.Errors, r.Warnings, r.Retries)
	}
	// 100 - 10 (error) - 2 (warning) - 2 (retry).
	if r.PerformanceScore != 86 {
		t.Fatalf("score = %v, want 86", r.PerformanceScore)
	}
	if r.WallClock <= 0 {
		t.Fatalf("wall clock = %v", r.WallClock)
	}

	a := r.NodeStats["A"]
	if a.Executions != 1 || a.Failures != 0 || a.AverageTime() != 40*time.Millisecond {
		t.Fatalf("node A stats = %+v", a)
	}
	b := r.NodeStats["B"]
	if b.Executions != 2 || b.Failures != 1 {
		t.Fatalf("node B stats = %+v", b)
	}
	if b.AverageTime() != 10*time.Millisecond {
		t.Fatalf("node B average = %v", b.AverageTime())
	}
}

func TestMonitorScoreClampedAtZero(t *testing.T) {
	m := New(logger.Nop(), nil)
	for i := 0; i < 20; i++ {
		m.JobFailed("p1", "j1", "A", fmt.Errorf("boom"))
	}
	m.PipelineFinished("p1", job.PipelineFailed)

	r, ok := m.Report("p1")
	if !ok {
		t.Fatal("no report")
	}
	if r.PerformanceScore != 0 {
		t.Fatalf("score = %v, want 0", r.PerformanceScore)
	}
}

func TestMonitorLiveSnapshot(t *testing.T) {
	m := New(logger.Nop(), nil)
	m.JobStarted("p1", "j1", "A")
	m.JobCompleted("p1", "j1", "A", time.Millisecond)

	r, ok := m.Report("p1")
	if !ok {
		t.Fatal("expected a live snapshot for an in-flight run")
	}
	if r.Status != job.PipelineRunning {
		t.Fatalf("status = %s, want running", r.Status)
	}
	if r.FinishedAt != nil {
		t.Fatal("in-flight snapshot must not carry a finish time")
	}
}

func TestMonitorUnknownPipeline(t *testing.T) {
	m := New(logger.Nop(), nil)
	if _, ok := m.Report("nope"); ok {
		t.Fatal("expected no report for unknown pipeline")
	}
}

func TestMonitorReportIsACopy(t *testing.T) {
	m := New(logger.Nop(), nil)
	m.JobCompleted("p1", "j1", "A", time.Millisecond)
	m.PipelineFinished("p1", job.PipelineCompleted)

	r1, _ := m.Report("p1")
	r1.NodeStats["A"] = NodeStats{Executions: 99}
	r2, _ := m.Report("p1")
	if r2.NodeStats["A"].Executions != 1 {
		t.Fatal("report mutation leaked into the monitor")
	}
}
