package main

import (
	"errors"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/cptspacemanspiff/device-monitor/internal/collector"
	"github.com/cptspacemanspiff/device-monitor/internal/monitor"
)

type fakeDaemon struct {
	mu         sync.Mutex
	snap       *monitor.Snapshot
	err        error
	terminated []string
}

func (d *fakeDaemon) GetCurrentStats() (*monitor.Snapshot, error) {
	return d.snap, d.err
}

func (d *fakeDaemon) Terminate(pid int, force bool) (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	kind := "term"
	if force {
		kind = "kill"
	}
	d.terminated = append(d.terminated, kind+" "+strconv.Itoa(pid))
	return "task-1", nil
}

func testSnapshot() *monitor.Snapshot {
	return &monitor.Snapshot{
		Cycle:      2,
		CPUPercent: 40,
		CPUHistory: []float64{0, 40},
		Processes: []collector.ProcessRecord{
			{PID: 3, User: "system", CPUPercent: 5, MemPercent: 9, Name: "system_server"},
			{PID: 7, User: "u0_a1", CPUPercent: 30, MemPercent: 1, Name: "com.example.app"},
			{PID: 5, User: "root", CPUPercent: 1, MemPercent: 0.5, Name: "logd"},
		},
		Status: map[string]monitor.MetricStatus{
			monitor.MetricDisk: {Err: "timed out"},
		},
	}
}

func key(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func update(t *testing.T, m Model, msg tea.Msg) (Model, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	return next.(Model), cmd
}

func loaded(t *testing.T, d *fakeDaemon) Model {
	t.Helper()
	m := newModel(d, time.Second)
	m, _ = update(t, m, m.Init()())
	return m
}

func TestModel_SnapshotSortsByCPU(t *testing.T) {
	m := loaded(t, &fakeDaemon{snap: testSnapshot()})

	rows := m.table.Rows()
	if len(rows) != 3 {
		t.Fatalf("rows = %d, want 3", len(rows))
	}
	if rows[0][0] != "7" || rows[2][0] != "5" {
		t.Fatalf("rows = %v, want pid 7 first and pid 5 last", rows)
	}
	if got := m.selectedPID(); got != 7 {
		t.Fatalf("selectedPID() = %d, want 7", got)
	}

	m, _ = update(t, m, key("s"))
	if rows := m.table.Rows(); rows[0][0] != "3" {
		t.Fatalf("rows after mem sort = %v, want pid 3 first", rows)
	}
	if got := m.selectedPID(); got != 7 {
		t.Fatalf("selectedPID() after resort = %d, want 7 kept", got)
	}
}

func TestModel_Filter(t *testing.T) {
	m := loaded(t, &fakeDaemon{snap: testSnapshot()})
	m.filterText = "ROOT"
	m.updateTable()

	rows := m.table.Rows()
	if len(rows) != 1 || rows[0][4] != "logd" {
		t.Fatalf("filtered rows = %v, want only logd", rows)
	}
}

func TestModel_TerminateConfirm(t *testing.T) {
	d := &fakeDaemon{snap: testSnapshot()}
	m := loaded(t, d)

	m, cmd := update(t, m, key("X"))
	if m.mode != confirmMode || cmd != nil {
		t.Fatalf("mode = %v, want confirm without a command", m.mode)
	}
	if !strings.Contains(m.View(), "Force kill process 7?") {
		t.Fatalf("View() missing confirmation prompt:\n%s", m.View())
	}

	m, cmd = update(t, m, key("y"))
	if m.mode != normalMode || cmd == nil {
		t.Fatal("confirm did not issue the terminate command")
	}
	m, _ = update(t, m, cmd())
	if len(d.terminated) != 1 || d.terminated[0] != "kill 7" {
		t.Fatalf("terminated = %v, want [kill 7]", d.terminated)
	}
	if m.statusError || !strings.Contains(m.statusText, "task-1") {
		t.Fatalf("status = %q (error %t), want task id reported", m.statusText, m.statusError)
	}
}

func TestModel_TerminateCancel(t *testing.T) {
	d := &fakeDaemon{snap: testSnapshot()}
	m := loaded(t, d)

	m, _ = update(t, m, key("x"))
	m, cmd := update(t, m, key("n"))
	if m.mode != normalMode || cmd != nil {
		t.Fatalf("mode = %v, cmd = %v after cancel", m.mode, cmd)
	}
	if len(d.terminated) != 0 {
		t.Fatalf("terminated = %v, want none", d.terminated)
	}
}

func TestModel_DaemonError(t *testing.T) {
	m := loaded(t, &fakeDaemon{err: errors.New("no owner")})
	if !m.statusError || !strings.Contains(m.statusText, "no owner") {
		t.Fatalf("status = %q, want the daemon error", m.statusText)
	}
	if !strings.Contains(m.View(), "waiting for the first sample") {
		t.Fatal("View() should show the waiting header without a snapshot")
	}

	m, _ = update(t, m, key("x"))
	if m.mode != normalMode {
		t.Fatal("terminate without a selection entered confirm mode")
	}
}

func TestModel_StaleMetricMarked(t *testing.T) {
	m := loaded(t, &fakeDaemon{snap: testSnapshot()})
	header := m.renderHeader()
	if !strings.Contains(header, "(stale)") {
		t.Fatalf("header missing stale marker:\n%s", header)
	}
	if strings.Count(header, "(stale)") != 1 {
		t.Fatalf("header marks more than the disk metric stale:\n%s", header)
	}
}

func TestSparkline(t *testing.T) {
	tests := []struct {
		name   string
		values []float64
		width  int
		want   string
	}{
		{"scaled", []float64{0, 50, 100}, 10, "▁▄█"},
		{"clamped", []float64{-5, 250}, 10, "▁█"},
		{"truncated to newest", []float64{0, 0, 100}, 1, "█"},
		{"empty", nil, 10, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := sparkline(tt.values, 100, tt.width); got != tt.want {
				t.Fatalf("sparkline(%v) = %q, want %q", tt.values, got, tt.want)
			}
		})
	}
}
