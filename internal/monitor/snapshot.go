package monitor

import (
	"sync/atomic"
	"time"

	"github.com/cptspacemanspiff/device-monitor/internal/collector"
)

// Metric names used for staleness tracking and log topics.
const (
	MetricCPU     = "cpu"
	MetricMemory  = "memory"
	MetricNetwork = "network"
	MetricDisk    = "disk"
	MetricProcess = "process"
)

// Metrics lists the metric names in the order the sampler merges them.
var Metrics = []string{MetricCPU, MetricMemory, MetricNetwork, MetricDisk, MetricProcess}

// MetricStatus records when a metric last updated and why its most recent
// query failed, if it did.
type MetricStatus struct {
	UpdatedAt time.Time `json:"updated_at"`
	Err       string    `json:"error,omitempty"`
}

// Stale reports whether the metric's most recent query failed, meaning the
// published value is carried over from an earlier cycle.
func (s MetricStatus) Stale() bool {
	return s.Err != ""
}

// Snapshot is one consistent view of the device. A published Snapshot is
// never modified; readers may keep it as long as they like.
type Snapshot struct {
	CapturedAt time.Time `json:"captured_at"`
	Cycle      uint64    `json:"cycle"`

	CPUPercent float64 `json:"cpu_percent"`

	MemPercent float64 `json:"mem_percent"`
	MemTotalKB uint64  `json:"mem_total_kb"`
	MemUsedKB  uint64  `json:"mem_used_kb"`

	RxBytesPerSec float64 `json:"rx_bytes_per_sec"`
	TxBytesPerSec float64 `json:"tx_bytes_per_sec"`

	DiskPercent float64 `json:"disk_percent"`
	DiskTotalKB uint64  `json:"disk_total_kb"`
	DiskUsedKB  uint64  `json:"disk_used_kb"`
	DiskMount   string  `json:"disk_mount"`

	CPUHistory []float64 `json:"cpu_history"`
	MemHistory []float64 `json:"mem_history"`
	RxHistory  []float64 `json:"rx_history"`
	TxHistory  []float64 `json:"tx_history"`

	Processes []collector.ProcessRecord `json:"processes"`

	Status map[string]MetricStatus `json:"status"`
}

// Store publishes snapshots from a single writer to any number of readers.
// The zero value holds an empty snapshot.
type Store struct {
	cur atomic.Pointer[Snapshot]
}

var emptySnapshot = &Snapshot{Status: map[string]MetricStatus{}}

// Load returns the latest snapshot. It never blocks and never returns nil.
func (s *Store) Load() *Snapshot {
	if snap := s.cur.Load(); snap != nil {
		return snap
	}
	return emptySnapshot
}

// publish replaces the current snapshot. snap must not be modified afterwards.
func (s *Store) publish(snap *Snapshot) {
	s.cur.Store(snap)
}
