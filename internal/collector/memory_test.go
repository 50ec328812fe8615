package collector

import (
	"errors"
	"math"
	"testing"
)

const procMeminfo = `MemTotal:        3809036 kB
MemFree:          198508 kB
MemAvailable:    1904518 kB
Buffers:           84100 kB
Cached:          1520044 kB
SwapCached:         1024 kB
`

func TestParseMemory(t *testing.T) {
	s, err := ParseMemory(procMeminfo)
	if err != nil {
		t.Fatalf("ParseMemory() error = %v", err)
	}
	if s.TotalKB != 3809036 {
		t.Fatalf("TotalKB = %d, want 3809036", s.TotalKB)
	}
	if s.AvailableKB != 1904518 {
		t.Fatalf("AvailableKB = %d, want 1904518", s.AvailableKB)
	}
	if s.UsedKB() != 1904518 {
		t.Fatalf("UsedKB() = %d, want 1904518", s.UsedKB())
	}
	if got := s.Percent(); math.Abs(got-50) > 0.001 {
		t.Fatalf("Percent() = %f, want 50", got)
	}
}

func TestParseMemory_FallsBackWithoutMemAvailable(t *testing.T) {
	s, err := ParseMemory("MemTotal: 1000 kB\nMemFree: 100 kB\nBuffers: 50 kB\nCached: 150 kB\n")
	if err != nil {
		t.Fatalf("ParseMemory() error = %v", err)
	}
	if s.AvailableKB != 300 {
		t.Fatalf("AvailableKB = %d, want 300", s.AvailableKB)
	}
}

func TestMemorySample_Saturates(t *testing.T) {
	s := MemorySample{TotalKB: 100, AvailableKB: 200}
	if s.UsedKB() != 0 {
		t.Fatalf("UsedKB() = %d, want 0", s.UsedKB())
	}
	if s.Percent() != 0 {
		t.Fatalf("Percent() = %f, want 0", s.Percent())
	}

	zero := MemorySample{AvailableKB: 10}
	if zero.Percent() != 0 {
		t.Fatalf("Percent() with zero total = %f, want 0", zero.Percent())
	}
}

func TestParseMemory_NoKnownLabels(t *testing.T) {
	_, err := ParseMemory("SwapTotal: 10 kB\nnonsense\n")
	if !errors.Is(err, ErrParse) {
		t.Fatalf("ParseMemory() error = %v, want ErrParse", err)
	}
}
