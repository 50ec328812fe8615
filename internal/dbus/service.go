package dbus

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	godbus "github.com/godbus/dbus/v5"
	"github.com/godbus/dbus/v5/introspect"

	"github.com/cptspacemanspiff/device-monitor/internal/config"
	"github.com/cptspacemanspiff/device-monitor/internal/monitor"
	"github.com/cptspacemanspiff/device-monitor/internal/storage"
)

const (
	busName   = "org.devmon.Monitor"
	objPath   = "/org/devmon/Monitor"
	ifaceName = "org.devmon.Monitor"
)

// maxRangeSeconds bounds history queries.
const maxRangeSeconds = 365 * 24 * 60 * 60

const introspectXML = `
<node>
  <interface name="` + ifaceName + `">
    <method name="GetCurrentStats">
      <arg direction="out" type="s" name="json"/>
    </method>
    <method name="GetProcesses">
      <arg direction="out" type="s" name="json"/>
    </method>
    <method name="GetHistory">
      <arg direction="in" type="x" name="from_epoch"/>
      <arg direction="in" type="x" name="to_epoch"/>
      <arg direction="out" type="s" name="json"/>
    </method>
    <method name="GetProcessHistory">
      <arg direction="in" type="x" name="from_epoch"/>
      <arg direction="in" type="x" name="to_epoch"/>
      <arg direction="out" type="s" name="json"/>
    </method>
    <method name="Terminate">
      <arg direction="in" type="i" name="pid"/>
      <arg direction="in" type="b" name="force"/>
      <arg direction="out" type="s" name="task_id"/>
    </method>
    <method name="GetConfig">
      <arg direction="out" type="s" name="json"/>
    </method>
    <method name="UpdateConfig">
      <arg direction="in" type="s" name="json"/>
      <arg direction="out" type="s" name="json"/>
    </method>
  </interface>
` + introspect.IntrospectDataString + `
</node>`

// SnapshotSource provides the latest published snapshot.
type SnapshotSource interface {
	Load() *monitor.Snapshot
}

// Terminator sends termination requests to the device.
type Terminator interface {
	Terminate(pid int, force bool) *monitor.Task
}

// Options configures a Service. DB may be nil when history storage is
// disabled, and ConfigPath may be empty to make the configuration read-only.
type Options struct {
	Snapshots  SnapshotSource
	Terminator Terminator
	DB         *storage.DB
	Config     *config.Config
	ConfigPath string
	// OnConfigChange is called after UpdateConfig saved a new configuration.
	OnConfigChange func(*config.Config)
	Logger         *slog.Logger
}

// Service exposes the device monitor over D-Bus.
type Service struct {
	opts Options
	log  *slog.Logger

	mu  sync.Mutex
	cfg *config.Config
}

// NewService creates a new D-Bus service.
func NewService(opts Options) *Service {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	cfg := opts.Config
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	return &Service{opts: opts, log: logger, cfg: cfg}
}

// Export registers the service on the session bus.
func (s *Service) Export() (*godbus.Conn, error) {
	conn, err := godbus.SessionBus()
	if err != nil {
		return nil, fmt.Errorf("connect session bus: %w", err)
	}

	conn.Export(s, objPath, ifaceName)
	conn.Export(introspect.Introspectable(introspectXML), objPath, "org.freedesktop.DBus.Introspectable")

	reply, err := conn.RequestName(busName, godbus.NameFlagDoNotQueue)
	if err != nil {
		return nil, fmt.Errorf("request name: %w", err)
	}
	if reply != godbus.RequestNameReplyPrimaryOwner {
		return nil, fmt.Errorf("name %s already taken", busName)
	}

	return conn, nil
}

// SetConfig replaces the configuration reported by GetConfig, for instance
// after the file was edited by hand.
func (s *Service) SetConfig(cfg *config.Config) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cfg = cfg
}

func marshal(v any) (string, *godbus.Error) {
	data, err := json.Marshal(v)
	if err != nil {
		return "", godbus.MakeFailedError(err)
	}
	return string(data), nil
}

func validateRange(fromEpoch, toEpoch int64) *godbus.Error {
	switch {
	case fromEpoch < 0:
		return godbus.MakeFailedError(fmt.Errorf("from_epoch must not be negative, got %d", fromEpoch))
	case toEpoch < fromEpoch:
		return godbus.MakeFailedError(fmt.Errorf("to_epoch %d is before from_epoch %d", toEpoch, fromEpoch))
	case toEpoch-fromEpoch > maxRangeSeconds:
		return godbus.MakeFailedError(fmt.Errorf("range of %d seconds exceeds limit of %d", toEpoch-fromEpoch, maxRangeSeconds))
	}
	return nil
}

func (s *Service) db() (*storage.DB, *godbus.Error) {
	if s.opts.DB == nil {
		return nil, godbus.MakeFailedError(errors.New("history storage is disabled"))
	}
	return s.opts.DB, nil
}

// GetCurrentStats returns the latest snapshot as JSON.
func (s *Service) GetCurrentStats() (string, *godbus.Error) {
	return marshal(s.opts.Snapshots.Load())
}

// GetProcesses returns the latest process table, highest CPU first, as JSON.
func (s *Service) GetProcesses() (string, *godbus.Error) {
	procs := s.opts.Snapshots.Load().Processes
	if procs == nil {
		return "[]", nil
	}
	return marshal(procs)
}

// GetHistory returns stored metric samples in a time range as JSON.
func (s *Service) GetHistory(fromEpoch, toEpoch int64) (string, *godbus.Error) {
	if err := validateRange(fromEpoch, toEpoch); err != nil {
		return "", err
	}
	db, dbErr := s.db()
	if dbErr != nil {
		return "", dbErr
	}
	samples, err := db.MetricSamplesInRange(fromEpoch, toEpoch)
	if err != nil {
		return "", godbus.MakeFailedError(err)
	}
	return marshal(map[string]any{"metrics": samples})
}

// GetProcessHistory returns stored process samples and termination requests
// in a time range as JSON.
func (s *Service) GetProcessHistory(fromEpoch, toEpoch int64) (string, *godbus.Error) {
	if err := validateRange(fromEpoch, toEpoch); err != nil {
		return "", err
	}
	db, dbErr := s.db()
	if dbErr != nil {
		return "", dbErr
	}
	procs, err := db.ProcessSamplesInRange(fromEpoch, toEpoch)
	if err != nil {
		return "", godbus.MakeFailedError(err)
	}
	events, err := db.TerminateEventsInRange(fromEpoch, toEpoch)
	if err != nil {
		return "", godbus.MakeFailedError(err)
	}
	return marshal(map[string]any{"processes": procs, "terminations": events})
}

// Terminate asks the device to end pid and returns the request's task id
// without waiting for the outcome.
func (s *Service) Terminate(pid int32, force bool) (string, *godbus.Error) {
	if pid <= 0 {
		return "", godbus.MakeFailedError(fmt.Errorf("invalid pid %d", pid))
	}
	task := s.opts.Terminator.Terminate(int(pid), force)
	if s.opts.DB != nil {
		go s.recordTermination(task)
	}
	return task.ID, nil
}

func (s *Service) recordTermination(task *monitor.Task) {
	err := task.Err()
	e := storage.TerminateEvent{
		Timestamp: time.Now().Unix(),
		TaskID:    task.ID,
		PID:       task.PID,
		Force:     task.Force,
	}
	if err != nil {
		e.Err = err.Error()
	}
	if err := s.opts.DB.InsertTerminateEvent(e); err != nil {
		s.log.Error("store terminate event", "task", task.ID, "err", err)
	}
}

// GetConfig returns the current configuration, without secrets, as JSON.
func (s *Service) GetConfig() (string, *godbus.Error) {
	s.mu.Lock()
	cfg := s.cfg.Redacted()
	s.mu.Unlock()
	return marshal(cfg)
}

// UpdateConfig validates and saves a configuration given as JSON and returns
// the stored result. A redacted password keeps the current one.
func (s *Service) UpdateConfig(configJSON string) (string, *godbus.Error) {
	if s.opts.ConfigPath == "" {
		return "", godbus.MakeFailedError(errors.New("configuration is read-only"))
	}

	sanitized, dbusErr := s.replaceConfig(configJSON)
	if dbusErr != nil {
		return "", dbusErr
	}
	s.log.Info("config updated over D-Bus", "path", s.opts.ConfigPath)

	if s.opts.OnConfigChange != nil {
		s.opts.OnConfigChange(sanitized)
	}
	return marshal(sanitized.Redacted())
}

func (s *Service) replaceConfig(configJSON string) (*config.Config, *godbus.Error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := *s.cfg
	if err := json.Unmarshal([]byte(configJSON), &next); err != nil {
		return nil, godbus.MakeFailedError(fmt.Errorf("decode config: %w", err))
	}
	if next.Device.Password == config.RedactedPassword {
		next.Device.Password = s.cfg.Device.Password
	}

	sanitized, err := config.NormalizeAndValidate(&next)
	if err != nil {
		return nil, godbus.MakeFailedError(err)
	}
	if err := config.Save(s.opts.ConfigPath, sanitized); err != nil {
		return nil, godbus.MakeFailedError(err)
	}
	s.cfg = sanitized
	return sanitized, nil
}
