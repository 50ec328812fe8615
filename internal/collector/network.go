package collector

import (
	"fmt"
	"strconv"
	"strings"
)

const loopbackInterface = "lo"

// Column offsets of the documented /proc/net/dev layout, counted in numeric
// fields after the interface name.
const (
	defaultRxColumn = 0
	defaultTxColumn = 8
)

// ParseNetwork sums the receive and transmit byte counters of /proc/net/dev,
// skipping the loopback interface.
func ParseNetwork(text string) (NetSample, error) {
	lines := strings.Split(text, "\n")
	rxCol, txCol := netColumns(lines)

	var s NetSample
	rows := 0
	for _, line := range lines {
		if strings.Contains(line, "|") {
			continue
		}
		name, rest, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		fields := strings.Fields(rest)
		if len(fields) <= txCol {
			continue
		}
		rx, err := strconv.ParseUint(fields[rxCol], 10, 64)
		if err != nil {
			continue
		}
		tx, err := strconv.ParseUint(fields[txCol], 10, 64)
		if err != nil {
			continue
		}
		rows++

		if strings.TrimSpace(name) == loopbackInterface {
			continue
		}
		s.RxBytes += rx
		s.TxBytes += tx
		s.Interfaces++
	}

	if rows == 0 {
		return NetSample{}, fmt.Errorf("%w: no interface rows", ErrParse)
	}
	return s, nil
}

// netColumns locates the receive and transmit "bytes" columns from the
// "face |bytes ...|bytes ..." header. Vendors have been seen adding columns, so
// offsets are only trusted from the header; without one the documented layout is used.
func netColumns(lines []string) (rx, tx int) {
	for _, line := range lines {
		sections := strings.Split(line, "|")
		if len(sections) < 3 {
			continue
		}
		recv := strings.Fields(sections[1])
		xmit := strings.Fields(sections[2])
		ri := indexOf(recv, "bytes")
		ti := indexOf(xmit, "bytes")
		if ri < 0 || ti < 0 {
			continue
		}
		return ri, len(recv) + ti
	}
	return defaultRxColumn, defaultTxColumn
}

func indexOf(tokens []string, want string) int {
	for i, t := range tokens {
		if t == want {
			return i
		}
	}
	return -1
}
