// Package format renders device metrics for the viewers.
package format

import "fmt"

var units = []string{"B", "KB", "MB", "GB", "TB"}

// Bytes renders n bytes with a binary unit, e.g. "1.5 MB".
func Bytes(n float64) string {
	if n < 0 {
		n = 0
	}
	i := 0
	for n >= 1024 && i < len(units)-1 {
		n /= 1024
		i++
	}
	if i == 0 {
		return fmt.Sprintf("%.0f %s", n, units[i])
	}
	return fmt.Sprintf("%.1f %s", n, units[i])
}

// KB renders a kibibyte count.
func KB(kb uint64) string {
	return Bytes(float64(kb) * 1024)
}

// Rate renders a byte rate, e.g. "12.0 KB/s".
func Rate(bytesPerSec float64) string {
	return Bytes(bytesPerSec) + "/s"
}

// Percent renders a percentage with one decimal.
func Percent(p float64) string {
	return fmt.Sprintf("%.1f%%", p)
}
