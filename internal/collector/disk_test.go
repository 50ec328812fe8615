package collector

import (
	"errors"
	"testing"
)

func TestParseSize(t *testing.T) {
	tests := []struct {
		in   string
		want uint64
	}{
		{in: "512", want: 512},
		{in: "512K", want: 512},
		{in: "3M", want: 3072},
		{in: "10G", want: 10485760},
		{in: "10240M", want: 10485760},
		{in: "1.5G", want: 1572864},
		{in: "0", want: 0},
		{in: "7X", want: 7},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseSize(tt.in)
			if err != nil {
				t.Fatalf("ParseSize(%q) error = %v", tt.in, err)
			}
			if got != tt.want {
				t.Fatalf("ParseSize(%q) = %d, want %d", tt.in, got, tt.want)
			}
		})
	}
}

func TestParseSize_Invalid(t *testing.T) {
	for _, in := range []string{"", "G", "-", "-5M", "abc"} {
		if _, err := ParseSize(in); err == nil {
			t.Fatalf("ParseSize(%q) error = nil, want error", in)
		}
	}
}

func TestParseSize_SuffixesAgree(t *testing.T) {
	g, err := ParseSize("10G")
	if err != nil {
		t.Fatalf("ParseSize(10G) error = %v", err)
	}
	m, err := ParseSize("10240M")
	if err != nil {
		t.Fatalf("ParseSize(10240M) error = %v", err)
	}
	if g != m {
		t.Fatalf("ParseSize(10G) = %d, ParseSize(10240M) = %d, want equal", g, m)
	}
}

func TestParseDisk_HumanReadable(t *testing.T) {
	text := `Filesystem      Size  Used Avail Use% Mounted on
/dev/block/dm-8  10G  2.5G  7.5G  25% /data
`
	s, err := ParseDisk(text, "/data")
	if err != nil {
		t.Fatalf("ParseDisk() error = %v", err)
	}
	if s.TotalKB != 10485760 {
		t.Fatalf("TotalKB = %d, want 10485760", s.TotalKB)
	}
	if s.UsedKB != 2621440 {
		t.Fatalf("UsedKB = %d, want 2621440", s.UsedKB)
	}
	if s.Filesystem != "/dev/block/dm-8" || s.Mount != "/data" {
		t.Fatalf("ParseDisk() = %+v, want filesystem /dev/block/dm-8 on /data", s)
	}
	if s.Percent() != 25 {
		t.Fatalf("Percent() = %f, want 25", s.Percent())
	}
}

func TestParseDisk_PlainKilobytes(t *testing.T) {
	text := "Filesystem 1K-blocks Used Available Use% Mounted on\n/dev/root 2000 500 1500 25% /\n"
	s, err := ParseDisk(text, "/")
	if err != nil {
		t.Fatalf("ParseDisk() error = %v", err)
	}
	if s.TotalKB != 2000 || s.UsedKB != 500 {
		t.Fatalf("ParseDisk() = %+v, want total=2000 used=500", s)
	}
}

func TestParseDisk_WrappedFilesystemName(t *testing.T) {
	text := `Filesystem           Size  Used Avail Use% Mounted on
/dev/mapper/very-long-volume-name
                      4G    1G    3G  25% /data
`
	s, err := ParseDisk(text, "/data")
	if err != nil {
		t.Fatalf("ParseDisk() error = %v", err)
	}
	if s.Filesystem != "/dev/mapper/very-long-volume-name" {
		t.Fatalf("Filesystem = %q, want wrapped name", s.Filesystem)
	}
	if s.TotalKB != 4194304 || s.UsedKB != 1048576 {
		t.Fatalf("ParseDisk() = %+v, want total=4194304 used=1048576", s)
	}
}

func TestParseDisk_PicksConfiguredMount(t *testing.T) {
	text := `Filesystem Size Used Avail Use% Mounted on
tmpfs 1M 0 1M 0% /dev
/dev/block/dm-8 8G 4G 4G 50% /data
`
	s, err := ParseDisk(text, "/data")
	if err != nil {
		t.Fatalf("ParseDisk() error = %v", err)
	}
	if s.Mount != "/data" || s.TotalKB != 8388608 {
		t.Fatalf("ParseDisk() = %+v, want the /data row", s)
	}
}

func TestParseDisk_Malformed(t *testing.T) {
	tests := []struct {
		name string
		text string
	}{
		{name: "empty", text: ""},
		{name: "header only", text: "Filesystem Size Used Avail Use% Mounted on\n"},
		{name: "error message", text: "df: /data: Permission denied\n"},
		{name: "bad size", text: "Filesystem Size Used\n/dev/x ? 1G 1G 1% /data\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ParseDisk(tt.text, "/data"); !errors.Is(err, ErrParse) {
				t.Fatalf("ParseDisk() error = %v, want ErrParse", err)
			}
		})
	}
}
