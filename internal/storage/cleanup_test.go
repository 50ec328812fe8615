package storage

import (
	"fmt"
	"testing"
)

func countRows(t *testing.T, db *DB, table string) int {
	t.Helper()

	var n int
	row := db.db.QueryRow(fmt.Sprintf("SELECT COUNT(*) FROM %s", table))
	if err := row.Scan(&n); err != nil {
		t.Fatalf("count rows in %s: %v", table, err)
	}
	return n
}

func TestDeleteOlderThan(t *testing.T) {
	db := openTestDB(t)

	const (
		oldTs    int64 = 50
		cutoffTs int64 = 100
		newTs    int64 = 150
	)

	for _, ts := range []int64{oldTs, cutoffTs, newTs} {
		if err := db.InsertMetricSample(MetricSample{Timestamp: ts, CPUPercent: 10}); err != nil {
			t.Fatalf("InsertMetricSample(ts=%d): %v", ts, err)
		}
		if err := db.InsertTerminateEvent(TerminateEvent{Timestamp: ts, TaskID: fmt.Sprint(ts), PID: 1}); err != nil {
			t.Fatalf("InsertTerminateEvent(ts=%d): %v", ts, err)
		}
	}

	err := db.InsertProcessSamples([]ProcessSample{
		{Timestamp: oldTs, PID: 1, User: "a", Name: "a", CPUPercent: 1},
		{Timestamp: cutoffTs, PID: 2, User: "b", Name: "b", CPUPercent: 1},
		{Timestamp: newTs, PID: 3, User: "c", Name: "c", CPUPercent: 1},
	})
	if err != nil {
		t.Fatalf("InsertProcessSamples(): %v", err)
	}

	deleted, err := db.DeleteOlderThan(cutoffTs)
	if err != nil {
		t.Fatalf("DeleteOlderThan() error = %v", err)
	}
	if deleted != 3 {
		t.Fatalf("DeleteOlderThan() deleted = %d, want 3 (one old row per table)", deleted)
	}

	for _, table := range []string{"metric_samples", "process_samples", "terminate_events"} {
		if got := countRows(t, db, table); got != 2 {
			t.Fatalf("%s row count after cleanup = %d, want 2 (cutoff+new)", table, got)
		}
	}
}
