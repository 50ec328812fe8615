package collector

import (
	"fmt"
	"strconv"
	"strings"
)

// ParseMemory reads MemTotal and MemAvailable from /proc/meminfo output.
// Kernels older than 3.14 lack MemAvailable; MemFree+Buffers+Cached is used instead.
func ParseMemory(text string) (MemorySample, error) {
	values := make(map[string]uint64)
	for _, line := range strings.Split(text, "\n") {
		label, rest, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		switch label = strings.TrimSpace(label); label {
		case "MemTotal", "MemAvailable", "MemFree", "Buffers", "Cached":
		default:
			continue
		}
		fields := strings.Fields(rest)
		if len(fields) == 0 {
			continue
		}
		v, err := strconv.ParseUint(fields[0], 10, 64)
		if err != nil {
			continue
		}
		values[label] = v
	}

	total, hasTotal := values["MemTotal"]
	avail, hasAvail := values["MemAvailable"]
	if !hasAvail {
		free, hasFree := values["MemFree"]
		if hasFree {
			avail = free + values["Buffers"] + values["Cached"]
			hasAvail = true
		}
	}
	if !hasTotal && !hasAvail {
		return MemorySample{}, fmt.Errorf("%w: no MemTotal or MemAvailable line", ErrParse)
	}

	return MemorySample{TotalKB: total, AvailableKB: avail}, nil
}
