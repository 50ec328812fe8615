package storage

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/cptspacemanspiff/device-monitor/internal/collector"
	"github.com/cptspacemanspiff/device-monitor/internal/monitor"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()

	path := filepath.Join(t.TempDir(), "test.db")
	db, err := Open(path)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() {
		if err := db.Close(); err != nil {
			t.Fatalf("Close() error = %v", err)
		}
	})

	return db
}

func TestMetricRoundTrip(t *testing.T) {
	db := openTestDB(t)

	s1 := MetricSample{Timestamp: 10, CPUPercent: 12.5, MemPercent: 40, MemUsedKB: 400, MemTotalKB: 1000, RxBytesPerSec: 100, DiskPercent: 25}
	s2 := MetricSample{Timestamp: 20, CPUPercent: 30, MemPercent: 41, MemUsedKB: 410, MemTotalKB: 1000, TxBytesPerSec: 50, Stale: "disk"}
	if err := db.InsertMetricSample(s1); err != nil {
		t.Fatalf("InsertMetricSample(s1) error = %v", err)
	}
	if err := db.InsertMetricSample(s2); err != nil {
		t.Fatalf("InsertMetricSample(s2) error = %v", err)
	}

	latest, err := db.LatestMetricSample()
	if err != nil {
		t.Fatalf("LatestMetricSample() error = %v", err)
	}
	if latest == nil || *latest != s2 {
		t.Fatalf("LatestMetricSample() = %#v, want %#v", latest, s2)
	}

	ranged, err := db.MetricSamplesInRange(10, 15)
	if err != nil {
		t.Fatalf("MetricSamplesInRange() error = %v", err)
	}
	if len(ranged) != 1 || ranged[0] != s1 {
		t.Fatalf("MetricSamplesInRange() = %#v, want one row equal to s1", ranged)
	}
}

func TestLatestMetricSample_Empty(t *testing.T) {
	db := openTestDB(t)

	latest, err := db.LatestMetricSample()
	if err != nil {
		t.Fatalf("LatestMetricSample() error = %v", err)
	}
	if latest != nil {
		t.Fatalf("LatestMetricSample() = %#v, want nil", latest)
	}
}

func TestProcessRoundTrip(t *testing.T) {
	db := openTestDB(t)

	procSamples := []ProcessSample{
		{Timestamp: 100, PID: 10, User: "root", Name: "init", CPUPercent: 1, MemPercent: 0.1},
		{Timestamp: 100, PID: 20, User: "u0_a1", Name: "com.example.app", CPUPercent: 9, MemPercent: 5},
		{Timestamp: 101, PID: 30, User: "system", Name: "system_server", CPUPercent: 3, MemPercent: 2},
	}
	if err := db.InsertProcessSamples(procSamples); err != nil {
		t.Fatalf("InsertProcessSamples() error = %v", err)
	}
	if err := db.InsertProcessSamples(nil); err != nil {
		t.Fatalf("InsertProcessSamples(nil) error = %v", err)
	}

	got, err := db.ProcessSamplesInRange(100, 101)
	if err != nil {
		t.Fatalf("ProcessSamplesInRange() error = %v", err)
	}
	if len(got) != 3 || got[0].PID != 20 || got[1].PID != 10 || got[2].PID != 30 {
		t.Fatalf("ProcessSamplesInRange() = %#v, want pids 20,10,30", got)
	}
	if got[0].Name != "com.example.app" || got[0].User != "u0_a1" {
		t.Fatalf("ProcessSamplesInRange()[0] = %#v, want app row", got[0])
	}
}

func TestTerminateEventRoundTrip(t *testing.T) {
	db := openTestDB(t)

	events := []TerminateEvent{
		{Timestamp: 5, TaskID: "a", PID: 42, Force: true},
		{Timestamp: 6, TaskID: "b", PID: 43, Err: "kill 43: No such process"},
	}
	for _, e := range events {
		if err := db.InsertTerminateEvent(e); err != nil {
			t.Fatalf("InsertTerminateEvent(%s) error = %v", e.TaskID, err)
		}
	}

	got, err := db.TerminateEventsInRange(0, 10)
	if err != nil {
		t.Fatalf("TerminateEventsInRange() error = %v", err)
	}
	if len(got) != 2 || got[0] != events[0] || got[1] != events[1] {
		t.Fatalf("TerminateEventsInRange() = %#v, want %#v", got, events)
	}
}

func TestFromSnapshot(t *testing.T) {
	snap := &monitor.Snapshot{
		CapturedAt:    time.Unix(1700000000, 0),
		CPUPercent:    30,
		MemPercent:    75,
		MemUsedKB:     750,
		MemTotalKB:    1000,
		RxBytesPerSec: 1000,
		DiskPercent:   25,
		Processes: []collector.ProcessRecord{
			{PID: 3, User: "a", CPUPercent: 9, Name: "x"},
			{PID: 2, User: "b", CPUPercent: 5, Name: "y"},
			{PID: 1, User: "c", CPUPercent: 1, Name: "z"},
		},
		Status: map[string]monitor.MetricStatus{
			monitor.MetricCPU:     {UpdatedAt: time.Unix(1700000000, 0)},
			monitor.MetricMemory:  {Err: "timeout"},
			monitor.MetricDisk:    {Err: "unexpected format"},
			monitor.MetricNetwork: {},
		},
	}

	sample, procs := FromSnapshot(snap, 2)
	if sample.Timestamp != 1700000000 || sample.CPUPercent != 30 || sample.MemUsedKB != 750 {
		t.Fatalf("FromSnapshot() sample = %#v", sample)
	}
	if sample.Stale != "memory,disk" {
		t.Fatalf("Stale = %q, want %q", sample.Stale, "memory,disk")
	}
	if len(procs) != 2 || procs[0].PID != 3 || procs[1].PID != 2 {
		t.Fatalf("FromSnapshot() procs = %#v, want pids 3,2", procs)
	}
	if procs[0].Timestamp != sample.Timestamp {
		t.Fatalf("process timestamp = %d, want %d", procs[0].Timestamp, sample.Timestamp)
	}

	_, all := FromSnapshot(snap, 0)
	if len(all) != 3 {
		t.Fatalf("FromSnapshot(topN=0) len = %d, want 3", len(all))
	}
}
