package monitor

import (
	"strconv"

	"github.com/cptspacemanspiff/device-monitor/internal/collector"
)

// processColumns is the ps field list ParseProcesses understands without a
// header lookup.
const processColumns = "USER,PID,PPID,VSZ,RSS,%CPU,%MEM,S,ARGS"

// query is one remote command issued per cycle.
type query struct {
	metric string
	args   []string
}

func cycleQueries(diskPath string) []query {
	return []query{
		{metric: MetricCPU, args: []string{"cat", "/proc/stat"}},
		{metric: MetricMemory, args: []string{"cat", "/proc/meminfo"}},
		{metric: MetricNetwork, args: []string{"cat", "/proc/net/dev"}},
		{metric: MetricDisk, args: []string{"df", "-h", diskPath}},
		{metric: MetricProcess, args: []string{"ps", "-A", "-o", processColumns}},
	}
}

// killArgs returns the command that terminates pid.
func killArgs(pid int, force bool) []string {
	args := []string{"kill"}
	if force {
		args = append(args, "-9")
	}
	return append(args, strconv.Itoa(pid))
}

// queryResult is the raw outcome of one query.
type queryResult struct {
	raw collector.Raw
	err error
}
