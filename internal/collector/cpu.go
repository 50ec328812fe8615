package collector

import (
	"fmt"
	"strconv"
	"strings"
)

// ParseCPU extracts the aggregate counters from /proc/stat output.
// The line must carry at least user, nice, system and idle; iowait, irq and
// softirq default to zero when missing. Later fields (steal, guest) are ignored.
func ParseCPU(text string) (CPUSample, error) {
	for _, line := range strings.Split(text, "\n") {
		fields := strings.Fields(line)
		if len(fields) == 0 || fields[0] != "cpu" {
			continue
		}

		var vals [7]uint64
		n := 0
		for _, tok := range fields[1:] {
			if n == len(vals) {
				break
			}
			v, err := strconv.ParseUint(tok, 10, 64)
			if err != nil {
				break
			}
			vals[n] = v
			n++
		}
		if n < 4 {
			return CPUSample{}, fmt.Errorf("%w: cpu line has %d counters, need at least 4", ErrParse, n)
		}

		return CPUSample{
			User:    vals[0],
			Nice:    vals[1],
			System:  vals[2],
			Idle:    vals[3],
			IOWait:  vals[4],
			IRQ:     vals[5],
			SoftIRQ: vals[6],
		}, nil
	}
	return CPUSample{}, fmt.Errorf("%w: no aggregate cpu line", ErrParse)
}
