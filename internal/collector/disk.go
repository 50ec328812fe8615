package collector

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

const minDiskColumns = 4

// ParseDisk reads a df report and returns the row for mount. When no row names
// mount, the first data row is used (df was asked about a single path).
func ParseDisk(text, mount string) (DiskSample, error) {
	var (
		rows    [][]string
		pending []string
		header  = true
	)
	for _, line := range strings.Split(text, "\n") {
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}
		if header {
			header = false
			continue
		}
		// Long filesystem names are printed alone with the numbers on the next line.
		if len(fields) == 1 && pending == nil {
			pending = fields
			continue
		}
		if pending != nil {
			fields = append(pending, fields...)
			pending = nil
		}
		if len(fields) >= minDiskColumns {
			rows = append(rows, fields)
		}
	}
	if len(rows) == 0 {
		return DiskSample{}, fmt.Errorf("%w: no df data row", ErrParse)
	}

	row := rows[0]
	for _, r := range rows {
		if len(r) >= 6 && r[5] == mount {
			row = r
			break
		}
	}

	total, err := ParseSize(row[1])
	if err != nil {
		return DiskSample{}, fmt.Errorf("%w: size column: %v", ErrParse, err)
	}
	used, err := ParseSize(row[2])
	if err != nil {
		return DiskSample{}, fmt.Errorf("%w: used column: %v", ErrParse, err)
	}

	s := DiskSample{Filesystem: row[0], Mount: mount, TotalKB: total, UsedKB: used}
	if len(row) >= 6 {
		s.Mount = row[5]
	}
	return s, nil
}

// ParseSize converts a df size field to KB. Plain numbers are already KB;
// K, M and G suffixes are binary multiples. Any other suffix is treated as KB.
func ParseSize(s string) (uint64, error) {
	if s == "" {
		return 0, fmt.Errorf("empty size")
	}

	num, mult := s, 1.0
	if last := s[len(s)-1]; last < '0' || last > '9' {
		num = s[:len(s)-1]
		switch last {
		case 'M':
			mult = 1 << 10
		case 'G':
			mult = 1 << 20
		}
	}

	v, err := strconv.ParseFloat(num, 64)
	if err != nil {
		return 0, fmt.Errorf("parse size %q: %w", s, err)
	}
	if v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("invalid size %q", s)
	}
	return uint64(math.Round(v * mult)), nil
}
