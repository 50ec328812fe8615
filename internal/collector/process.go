package collector

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// processLayout holds the column index of each field we extract. The name
// column runs to the end of the row.
type processLayout struct {
	user, pid, cpu, mem, name int
}

// psLayout matches `ps -A -o USER,PID,PPID,VSZ,RSS,%CPU,%MEM,S,ARGS`.
var psLayout = processLayout{user: 0, pid: 1, cpu: 5, mem: 6, name: 8}

func (l processLayout) minColumns() int {
	return max(l.user, l.pid, l.cpu, l.mem, l.name) + 1
}

// ParseProcesses parses a ps/top listing into records sorted by CPU descending.
// Everything before the first row naming both PID and USER is ignored, as are
// rows too short for the layout or without a numeric PID.
func ParseProcesses(text string) ([]ProcessRecord, error) {
	var (
		layout processLayout
		found  bool
		procs  []ProcessRecord
	)
	for _, line := range strings.Split(text, "\n") {
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}
		if !found {
			layout, found = headerLayout(fields)
			continue
		}
		if len(fields) < layout.minColumns() {
			continue
		}
		pid, err := strconv.Atoi(fields[layout.pid])
		if err != nil {
			continue
		}
		procs = append(procs, ProcessRecord{
			PID:        pid,
			User:       fields[layout.user],
			CPUPercent: parsePercent(fields[layout.cpu]),
			MemPercent: parsePercent(fields[layout.mem]),
			Name:       strings.Join(fields[layout.name:], " "),
		})
	}
	if !found {
		return nil, fmt.Errorf("%w: no PID/USER header row", ErrParse)
	}

	SortByCPU(procs)
	return procs, nil
}

// SortByCPU orders records by CPU share, highest first, keeping the input
// order between equal values.
func SortByCPU(procs []ProcessRecord) {
	sort.SliceStable(procs, func(i, j int) bool {
		return procs[i].CPUPercent > procs[j].CPUPercent
	})
}

// headerLayout reports whether fields form a header row and, if so, the column
// layout it describes. Headers that do not name every column fall back to psLayout.
func headerLayout(fields []string) (processLayout, bool) {
	cols := expandHeader(fields)
	pid := indexOf(cols, "PID")
	user := indexOf(cols, "USER")
	if pid < 0 || user < 0 {
		return processLayout{}, false
	}

	l := processLayout{user: user, pid: pid, cpu: -1, mem: -1, name: -1}
	for i, c := range cols {
		switch c {
		case "%CPU", "CPU%":
			l.cpu = i
		case "%MEM", "MEM%":
			l.mem = i
		case "ARGS", "NAME", "Name", "CMD", "COMMAND", "CMDLINE":
			if l.name < 0 {
				l.name = i
			}
		}
	}
	if l.cpu < 0 || l.mem < 0 || l.name < 0 {
		return psLayout, true
	}
	return l, true
}

// expandHeader splits toybox composite headers such as "S[%CPU]" into the two
// columns they label.
func expandHeader(fields []string) []string {
	cols := make([]string, 0, len(fields))
	for _, f := range fields {
		if open := strings.IndexByte(f, '['); open > 0 && strings.HasSuffix(f, "]") {
			cols = append(cols, f[:open], f[open+1:len(f)-1])
			continue
		}
		cols = append(cols, f)
	}
	return cols
}

func parsePercent(s string) float64 {
	v, err := strconv.ParseFloat(strings.TrimSuffix(s, "%"), 64)
	if err != nil {
		return 0
	}
	return v
}
