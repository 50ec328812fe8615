package collector

import (
	"errors"
	"time"
)

// ErrParse is wrapped by every parser when the input does not have the expected shape.
var ErrParse = errors.New("unexpected format")

// Raw is one command's output together with the time it was captured.
type Raw struct {
	Text       string
	CapturedAt time.Time
}

// CPUSample holds the cumulative tick counters of the aggregate "cpu" line of /proc/stat.
type CPUSample struct {
	User    uint64 `json:"user"`
	Nice    uint64 `json:"nice"`
	System  uint64 `json:"system"`
	Idle    uint64 `json:"idle"`
	IOWait  uint64 `json:"iowait"`
	IRQ     uint64 `json:"irq"`
	SoftIRQ uint64 `json:"softirq"`
}

// Total returns the sum of all tracked tick counters.
func (s CPUSample) Total() uint64 {
	return s.User + s.Nice + s.System + s.Idle + s.IOWait + s.IRQ + s.SoftIRQ
}

// MemorySample holds total and available memory from /proc/meminfo.
type MemorySample struct {
	TotalKB     uint64 `json:"total_kb"`
	AvailableKB uint64 `json:"available_kb"`
}

// UsedKB returns total minus available, never below zero.
func (s MemorySample) UsedKB() uint64 {
	return saturatingSub(s.TotalKB, s.AvailableKB)
}

// Percent returns the used share of total memory, or 0 when total is unknown.
func (s MemorySample) Percent() float64 {
	if s.TotalKB == 0 {
		return 0
	}
	return float64(s.UsedKB()) / float64(s.TotalKB) * 100
}

// NetSample holds cumulative byte counters summed over all non-loopback interfaces.
type NetSample struct {
	RxBytes    uint64 `json:"rx_bytes"`
	TxBytes    uint64 `json:"tx_bytes"`
	Interfaces int    `json:"interfaces"`
}

// DiskSample holds the usage of one mounted filesystem.
type DiskSample struct {
	Filesystem string `json:"filesystem"`
	Mount      string `json:"mount"`
	TotalKB    uint64 `json:"total_kb"`
	UsedKB     uint64 `json:"used_kb"`
}

// Percent returns used/total as a percentage, or 0 when total is unknown.
func (s DiskSample) Percent() float64 {
	if s.TotalKB == 0 {
		return 0
	}
	return float64(s.UsedKB) / float64(s.TotalKB) * 100
}

// ProcessRecord is one row of the remote process table.
type ProcessRecord struct {
	PID        int     `json:"pid"`
	User       string  `json:"user"`
	CPUPercent float64 `json:"cpu_percent"`
	MemPercent float64 `json:"mem_percent"`
	Name       string  `json:"name"`
}

func saturatingSub(a, b uint64) uint64 {
	if a < b {
		return 0
	}
	return a - b
}
