package collector

import (
	"errors"
	"reflect"
	"testing"
)

const psOutput = `USER           PID  PPID     VSZ    RSS %CPU %MEM S ARGS
root             1     0  123456   4096  0.5  0.1 S init second_stage
u0_a123       4321   700 5551234 204800 12.5  5.4 R com.example.app
shell         9000  8999   10000   2048  0.0 S
system        1200   700 4000000  90000  3.0  2.2 S system_server
`

func TestParseProcesses_PsLayout(t *testing.T) {
	procs, err := ParseProcesses(psOutput)
	if err != nil {
		t.Fatalf("ParseProcesses() error = %v", err)
	}

	want := []ProcessRecord{
		{PID: 4321, User: "u0_a123", CPUPercent: 12.5, MemPercent: 5.4, Name: "com.example.app"},
		{PID: 1200, User: "system", CPUPercent: 3.0, MemPercent: 2.2, Name: "system_server"},
		{PID: 1, User: "root", CPUPercent: 0.5, MemPercent: 0.1, Name: "init second_stage"},
	}
	if !reflect.DeepEqual(procs, want) {
		t.Fatalf("ParseProcesses() = %+v, want %+v", procs, want)
	}
}

func TestParseProcesses_TwoRowsAndShortRow(t *testing.T) {
	text := `USER PID PPID VSZ RSS %CPU %MEM S ARGS
a 10 1 100 10 1.0 0.5 S low
b 11 1 100 10 9.0 0.5 S high
c 12 1 100
`
	procs, err := ParseProcesses(text)
	if err != nil {
		t.Fatalf("ParseProcesses() error = %v", err)
	}
	if len(procs) != 2 {
		t.Fatalf("len(procs) = %d, want 2", len(procs))
	}
	if procs[0].PID != 11 || procs[1].PID != 10 {
		t.Fatalf("order = [%d %d], want [11 10]", procs[0].PID, procs[1].PID)
	}
}

func TestParseProcesses_StableTies(t *testing.T) {
	text := `USER PID PPID VSZ RSS %CPU %MEM S ARGS
a 1 0 0 0 2.0 0 S first
b 2 0 0 0 5.0 0 S top
c 3 0 0 0 2.0 0 S second
d 4 0 0 0 2.0 0 S third
`
	procs, err := ParseProcesses(text)
	if err != nil {
		t.Fatalf("ParseProcesses() error = %v", err)
	}
	var got []int
	for _, p := range procs {
		got = append(got, p.PID)
	}
	if want := []int{2, 1, 3, 4}; !reflect.DeepEqual(got, want) {
		t.Fatalf("order = %v, want %v", got, want)
	}
}

func TestParseProcesses_ToyboxTop(t *testing.T) {
	text := `Tasks: 612 total,   1 running, 611 sleeping,   0 stopped,   0 zombie
Mem:   3809036K total,  3600000K used,   209036K free,    84100K buffers
  PID USER         PR  NI VIRT  RES  SHR S[%CPU] %MEM     TIME+ ARGS
 4321 u0_a123      10 -10 5.2G 200M 100M S 25.0   5.4   1:02.33 com.example.app
 1200 system       18  -2 3.8G  90M  60M S  3.0   2.2  10:11.00 system_server
`
	procs, err := ParseProcesses(text)
	if err != nil {
		t.Fatalf("ParseProcesses() error = %v", err)
	}
	if len(procs) != 2 {
		t.Fatalf("len(procs) = %d, want 2", len(procs))
	}
	first := procs[0]
	if first.PID != 4321 || first.User != "u0_a123" || first.CPUPercent != 25 || first.MemPercent != 5.4 || first.Name != "com.example.app" {
		t.Fatalf("procs[0] = %+v, want pid 4321 at 25%% cpu", first)
	}
}

func TestParseProcesses_PercentSuffixAndBadPID(t *testing.T) {
	text := `USER PID PPID VSZ RSS %CPU %MEM S ARGS
a x 0 0 0 1% 1% S bad-pid
b 7 0 0 0 4% 2% S ok
`
	procs, err := ParseProcesses(text)
	if err != nil {
		t.Fatalf("ParseProcesses() error = %v", err)
	}
	if len(procs) != 1 || procs[0].PID != 7 || procs[0].CPUPercent != 4 || procs[0].MemPercent != 2 {
		t.Fatalf("ParseProcesses() = %+v, want one record pid=7 cpu=4 mem=2", procs)
	}
}

func TestParseProcesses_NoHeader(t *testing.T) {
	_, err := ParseProcesses("a 1 0 0 0 1 1 S x\n")
	if !errors.Is(err, ErrParse) {
		t.Fatalf("ParseProcesses() error = %v, want ErrParse", err)
	}
}

func TestParseProcesses_HeaderOnly(t *testing.T) {
	procs, err := ParseProcesses("USER PID PPID VSZ RSS %CPU %MEM S ARGS\n")
	if err != nil {
		t.Fatalf("ParseProcesses() error = %v", err)
	}
	if len(procs) != 0 {
		t.Fatalf("len(procs) = %d, want 0", len(procs))
	}
}

func TestParseProcesses_Deterministic(t *testing.T) {
	a, _ := ParseProcesses(psOutput)
	b, _ := ParseProcesses(psOutput)
	if !reflect.DeepEqual(a, b) {
		t.Fatalf("ParseProcesses() not repeatable:\n%+v\n%+v", a, b)
	}
}
