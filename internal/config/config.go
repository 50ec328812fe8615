package config

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
)

// DefaultPath is where the daemon looks for its configuration.
const DefaultPath = "/etc/devmon/config.toml"

// Supported device transports.
const (
	TransportADB   = "adb"
	TransportSSH   = "ssh"
	TransportLocal = "local"
)

const (
	minCollectionIntervalSeconds = 1
	maxCollectionIntervalSeconds = 3600
	minQueryTimeoutSeconds       = 1
	maxQueryTimeoutSeconds       = 60
	minHistoryCapacity           = 1
	maxHistoryCapacity           = 10000
	minTopProcesses              = 1
	maxTopProcesses              = 500
	minRetentionDays             = 1
	maxRetentionDays             = 3650
	minCleanupIntervalHours      = 1
	maxCleanupIntervalHours      = 720
	minPort                      = 1
	maxPort                      = 65535
)

type Config struct {
	Device     DeviceConfig     `toml:"device" json:"device"`
	Collection CollectionConfig `toml:"collection" json:"collection"`
	Storage    StorageConfig    `toml:"storage" json:"storage"`
	Cleanup    CleanupConfig    `toml:"cleanup" json:"cleanup"`
}

// DeviceConfig selects and addresses the monitored device. Serial and
// ADBPath apply to adb; Host through KnownHosts apply to ssh.
type DeviceConfig struct {
	Transport    string `toml:"transport" json:"transport"`
	Serial       string `toml:"serial" json:"serial"`
	ADBPath      string `toml:"adb_path" json:"adb_path"`
	Host         string `toml:"host" json:"host"`
	Port         int    `toml:"port" json:"port"`
	User         string `toml:"user" json:"user"`
	Password     string `toml:"password" json:"password"`
	IdentityFile string `toml:"identity_file" json:"identity_file"`
	KnownHosts   string `toml:"known_hosts" json:"known_hosts"`
}

type CollectionConfig struct {
	IntervalSeconds     int    `toml:"interval_seconds" json:"interval_seconds"`
	QueryTimeoutSeconds int    `toml:"query_timeout_seconds" json:"query_timeout_seconds"`
	HistoryCapacity     int    `toml:"history_capacity" json:"history_capacity"`
	DiskPath            string `toml:"disk_path" json:"disk_path"`
	TopProcesses        int    `toml:"top_processes" json:"top_processes"`
}

type StorageConfig struct {
	Enabled bool   `toml:"enabled" json:"enabled"`
	DBPath  string `toml:"db_path" json:"db_path"`
}

type CleanupConfig struct {
	RetentionDays int `toml:"retention_days" json:"retention_days"`
	IntervalHours int `toml:"interval_hours" json:"interval_hours"`
}

func DefaultConfig() *Config {
	return &Config{
		Device: DeviceConfig{
			Transport: TransportADB,
			ADBPath:   "adb",
			Port:      22,
		},
		Collection: CollectionConfig{
			IntervalSeconds:     1,
			QueryTimeoutSeconds: 5,
			HistoryCapacity:     120,
			DiskPath:            "/data",
			TopProcesses:        20,
		},
		Storage: StorageConfig{
			Enabled: true,
			DBPath:  "/var/lib/devmon/data.db",
		},
		Cleanup: CleanupConfig{
			RetentionDays: 7,
			IntervalHours: 24,
		},
	}
}

func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	return NormalizeAndValidate(cfg)
}

// LoadOrDefault is Load, except that a missing file yields the defaults.
func LoadOrDefault(path string) (*Config, error) {
	cfg, err := Load(path)
	if errors.Is(err, fs.ErrNotExist) {
		return DefaultConfig(), nil
	}
	return cfg, err
}

func NormalizeAndValidate(cfg *Config) (*Config, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config must not be nil")
	}

	sanitized := *cfg

	if err := normalizeDevice(&sanitized.Device); err != nil {
		return nil, err
	}

	var err error
	sanitized.Storage.DBPath, err = sanitizePath("storage.db_path", sanitized.Storage.DBPath)
	if err != nil {
		return nil, err
	}
	sanitized.Collection.DiskPath, err = sanitizePath("collection.disk_path", sanitized.Collection.DiskPath)
	if err != nil {
		return nil, err
	}

	if err := validateRange("collection.interval_seconds", sanitized.Collection.IntervalSeconds, minCollectionIntervalSeconds, maxCollectionIntervalSeconds); err != nil {
		return nil, err
	}
	if err := validateRange("collection.query_timeout_seconds", sanitized.Collection.QueryTimeoutSeconds, minQueryTimeoutSeconds, maxQueryTimeoutSeconds); err != nil {
		return nil, err
	}
	if err := validateRange("collection.history_capacity", sanitized.Collection.HistoryCapacity, minHistoryCapacity, maxHistoryCapacity); err != nil {
		return nil, err
	}
	if err := validateRange("collection.top_processes", sanitized.Collection.TopProcesses, minTopProcesses, maxTopProcesses); err != nil {
		return nil, err
	}
	if err := validateRange("cleanup.retention_days", sanitized.Cleanup.RetentionDays, minRetentionDays, maxRetentionDays); err != nil {
		return nil, err
	}
	if err := validateRange("cleanup.interval_hours", sanitized.Cleanup.IntervalHours, minCleanupIntervalHours, maxCleanupIntervalHours); err != nil {
		return nil, err
	}

	return &sanitized, nil
}

func normalizeDevice(d *DeviceConfig) error {
	d.Transport = strings.ToLower(strings.TrimSpace(d.Transport))
	d.Serial = strings.TrimSpace(d.Serial)
	d.Host = strings.TrimSpace(d.Host)
	d.User = strings.TrimSpace(d.User)

	switch d.Transport {
	case TransportADB:
		if strings.TrimSpace(d.ADBPath) == "" {
			d.ADBPath = "adb"
		}
	case TransportSSH:
		if d.Host == "" {
			return fmt.Errorf("device.host must not be empty for ssh transport")
		}
		if d.User == "" {
			return fmt.Errorf("device.user must not be empty for ssh transport")
		}
		if err := validateRange("device.port", d.Port, minPort, maxPort); err != nil {
			return err
		}
		for _, p := range []struct {
			name  string
			value *string
		}{
			{"device.identity_file", &d.IdentityFile},
			{"device.known_hosts", &d.KnownHosts},
		} {
			if strings.TrimSpace(*p.value) == "" {
				*p.value = ""
				continue
			}
			cleaned, err := sanitizePath(p.name, *p.value)
			if err != nil {
				return err
			}
			*p.value = cleaned
		}
	case TransportLocal:
	default:
		return fmt.Errorf("device.transport must be one of %s, %s, %s, got %q",
			TransportADB, TransportSSH, TransportLocal, d.Transport)
	}
	return nil
}

func Save(path string, cfg *Config) error {
	trimmedPath := strings.TrimSpace(path)
	if trimmedPath == "" {
		return fmt.Errorf("config path must not be empty")
	}

	sanitized, err := NormalizeAndValidate(cfg)
	if err != nil {
		return err
	}

	var data bytes.Buffer
	if err := toml.NewEncoder(&data).Encode(sanitized); err != nil {
		return fmt.Errorf("encode config TOML: %w", err)
	}

	dir := filepath.Dir(trimmedPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}

	tmpFile, err := os.CreateTemp(dir, ".config-*.toml")
	if err != nil {
		return fmt.Errorf("create temp config file: %w", err)
	}
	tmpPath := tmpFile.Name()
	defer func() {
		if tmpPath != "" {
			_ = os.Remove(tmpPath)
		}
	}()

	if _, err := tmpFile.Write(data.Bytes()); err != nil {
		_ = tmpFile.Close()
		return fmt.Errorf("write temp config file: %w", err)
	}
	// The file may hold a device password.
	if err := tmpFile.Chmod(0o600); err != nil {
		_ = tmpFile.Close()
		return fmt.Errorf("chmod temp config file: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("close temp config file: %w", err)
	}
	if err := os.Rename(tmpPath, trimmedPath); err != nil {
		return fmt.Errorf("replace config file: %w", err)
	}
	tmpPath = ""

	return nil
}

// RedactedPassword replaces the device password in Redacted output.
const RedactedPassword = "********"

// Redacted returns a copy of cfg with secrets removed, for display.
func (c Config) Redacted() Config {
	if c.Device.Password != "" {
		c.Device.Password = RedactedPassword
	}
	return c
}

func sanitizePath(name, value string) (string, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return "", fmt.Errorf("%s must not be empty", name)
	}
	cleaned := filepath.Clean(trimmed)
	if !filepath.IsAbs(cleaned) {
		return "", fmt.Errorf("%s must be an absolute path, got %q", name, value)
	}
	return cleaned, nil
}

func validateRange(name string, value, min, max int) error {
	if value < min || value > max {
		return fmt.Errorf("%s must be between %d and %d, got %d", name, min, max, value)
	}

	return nil
}
