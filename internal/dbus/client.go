package dbus

import (
	"encoding/json"
	"fmt"
	"time"

	godbus "github.com/godbus/dbus/v5"

	"github.com/cptspacemanspiff/device-monitor/internal/collector"
	"github.com/cptspacemanspiff/device-monitor/internal/config"
	"github.com/cptspacemanspiff/device-monitor/internal/monitor"
	"github.com/cptspacemanspiff/device-monitor/internal/storage"
)

// History is the decoded reply of GetHistory.
type History struct {
	Metrics []storage.MetricSample `json:"metrics"`
}

// ProcessHistory is the decoded reply of GetProcessHistory.
type ProcessHistory struct {
	Processes    []storage.ProcessSample  `json:"processes"`
	Terminations []storage.TerminateEvent `json:"terminations"`
}

// Client calls a running devmon daemon over the session bus.
type Client struct {
	conn *godbus.Conn
	obj  godbus.BusObject
}

// NewClient connects to the session bus.
func NewClient() (*Client, error) {
	conn, err := godbus.SessionBus()
	if err != nil {
		return nil, fmt.Errorf("connect session bus: %w", err)
	}
	return &Client{conn: conn, obj: conn.Object(busName, objPath)}, nil
}

func (c *Client) callJSON(method string, out any, args ...any) error {
	var jsonStr string
	if err := c.obj.Call(ifaceName+"."+method, 0, args...).Store(&jsonStr); err != nil {
		return err
	}
	return json.Unmarshal([]byte(jsonStr), out)
}

func (c *Client) GetCurrentStats() (*monitor.Snapshot, error) {
	var snap monitor.Snapshot
	if err := c.callJSON("GetCurrentStats", &snap); err != nil {
		return nil, err
	}
	return &snap, nil
}

func (c *Client) GetProcesses() ([]collector.ProcessRecord, error) {
	var procs []collector.ProcessRecord
	if err := c.callJSON("GetProcesses", &procs); err != nil {
		return nil, err
	}
	return procs, nil
}

func (c *Client) GetHistory(from, to time.Time) (*History, error) {
	var data History
	if err := c.callJSON("GetHistory", &data, from.Unix(), to.Unix()); err != nil {
		return nil, err
	}
	return &data, nil
}

func (c *Client) GetProcessHistory(from, to time.Time) (*ProcessHistory, error) {
	var data ProcessHistory
	if err := c.callJSON("GetProcessHistory", &data, from.Unix(), to.Unix()); err != nil {
		return nil, err
	}
	return &data, nil
}

// Terminate requests termination of pid and returns the task id.
func (c *Client) Terminate(pid int, force bool) (string, error) {
	var taskID string
	err := c.obj.Call(ifaceName+".Terminate", 0, int32(pid), force).Store(&taskID)
	return taskID, err
}

func (c *Client) GetConfig() (*config.Config, error) {
	var cfg config.Config
	if err := c.callJSON("GetConfig", &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Client) UpdateConfig(cfg *config.Config) (*config.Config, error) {
	configJSON, err := json.Marshal(cfg)
	if err != nil {
		return nil, err
	}
	var updated config.Config
	if err := c.callJSON("UpdateConfig", &updated, string(configJSON)); err != nil {
		return nil, err
	}
	return &updated, nil
}

// Close closes the bus connection.
func (c *Client) Close() error {
	return c.conn.Close()
}
