package prometheus

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

func gatherValue(t *testing.T, reg *prometheus.Registry, name string) float64 {
	t.Helper()

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("Gather() error = %v", err)
	}
	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
		m := mf.GetMetric()[0]
		if m.GetCounter() != nil {
			return m.GetCounter().GetValue()
		}
		if m.GetGauge() != nil {
			return m.GetGauge().GetValue()
		}
	}
	t.Fatalf("metric %s not found", name)
	return 0
}

func TestObserver_RecordsEvents(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)
	obs := NewObserver(m)

	obs.WorkerStarted()
	obs.WorkerStarted()
	obs.TaskCompleted(25 * time.Millisecond)
	obs.TaskCompleted(50 * time.Millisecond)
	obs.TaskFailed()
	obs.WorkerStopped()

	if got := gatherValue(t, reg, "flowline_tasks_completed_total"); got != 2 {
		t.Errorf("tasks completed = %v, want 2", got)
	}
	if got := gatherValue(t, reg, "flowline_task_failures_total"); got != 1 {
		t.Errorf("task failures = %v, want 1", got)
	}
	if got := gatherValue(t, reg, "flowline_workers_active"); got != 1 {
		t.Errorf("workers active = %v, want 1", got)
	}
}

func TestMetrics_QueueGauges(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)

	m.QueueCapacity.Set(64)
	m.QueueDepth.Set(12)

	if got := gatherValue(t, reg, "flowline_queue_capacity"); got != 64 {
		t.Errorf("queue capacity = %v, want 64", got)
	}
	if got := gatherValue(t, reg, "flowline_queue_depth"); got != 12 {
		t.Errorf("queue depth = %v, want 12", got)
	}
}

func TestGetMetrics_Singleton(t *testing.T) {
	if GetMetrics() != GetMetrics() {
		t.Error("GetMetrics() should return the same instance")
	}
}
