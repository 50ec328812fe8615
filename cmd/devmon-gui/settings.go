package main

import (
	"fmt"
	"strconv"
	"strings"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/widget"

	"github.com/cptspacemanspiff/device-monitor/internal/config"
	"github.com/cptspacemanspiff/device-monitor/internal/dbus"
)

type settingsPage struct {
	client *dbus.Client
	loaded *config.Config // nil until the first successful Load

	transport *widget.Label
	diskPath  *widget.Entry
	dbPath    *widget.Entry

	interval      *widget.Entry
	queryTimeout  *widget.Entry
	topProcesses  *widget.Entry
	retentionDays *widget.Entry
	cleanupHours  *widget.Entry

	status    *widget.Label
	container fyne.CanvasObject
}

func newSettingsPage(client *dbus.Client) *settingsPage {
	p := &settingsPage{
		client:        client,
		transport:     widget.NewLabel(""),
		diskPath:      widget.NewEntry(),
		dbPath:        widget.NewEntry(),
		interval:      widget.NewEntry(),
		queryTimeout:  widget.NewEntry(),
		topProcesses:  widget.NewEntry(),
		retentionDays: widget.NewEntry(),
		cleanupHours:  widget.NewEntry(),
		status:        widget.NewLabel(""),
	}
	p.status.Wrapping = fyne.TextWrapWord

	form := widget.NewForm(
		widget.NewFormItem("Device", p.transport),
		widget.NewFormItem("Disk Path", p.diskPath),
		widget.NewFormItem("Interval (seconds)", p.interval),
		widget.NewFormItem("Query Timeout (seconds)", p.queryTimeout),
		widget.NewFormItem("Top Processes", p.topProcesses),
		widget.NewFormItem("Database Path", p.dbPath),
		widget.NewFormItem("Retention (days)", p.retentionDays),
		widget.NewFormItem("Cleanup Interval (hours)", p.cleanupHours),
	)

	reloadBtn := widget.NewButton("Reload", func() { go p.Load() })
	saveBtn := widget.NewButton("Save", p.save)
	saveBtn.Importance = widget.HighImportance

	p.container = container.NewVBox(form, container.NewHBox(reloadBtn, saveBtn), p.status)
	return p
}

// Load fetches the daemon configuration. It blocks on D-Bus.
func (p *settingsPage) Load() {
	cfg, err := p.client.GetConfig()
	fyne.Do(func() {
		if err != nil {
			p.status.SetText("Failed to load config: " + err.Error())
			return
		}
		p.fill(cfg)
		p.status.SetText("Loaded daemon config")
	})
}

func (p *settingsPage) fill(cfg *config.Config) {
	p.loaded = cfg
	p.transport.SetText(describeDevice(cfg.Device))
	p.diskPath.SetText(cfg.Collection.DiskPath)
	p.dbPath.SetText(cfg.Storage.DBPath)
	p.interval.SetText(strconv.Itoa(cfg.Collection.IntervalSeconds))
	p.queryTimeout.SetText(strconv.Itoa(cfg.Collection.QueryTimeoutSeconds))
	p.topProcesses.SetText(strconv.Itoa(cfg.Collection.TopProcesses))
	p.retentionDays.SetText(strconv.Itoa(cfg.Cleanup.RetentionDays))
	p.cleanupHours.SetText(strconv.Itoa(cfg.Cleanup.IntervalHours))
}

func describeDevice(d config.DeviceConfig) string {
	switch d.Transport {
	case config.TransportADB:
		if d.Serial == "" {
			return "adb (default device)"
		}
		return "adb " + d.Serial
	case config.TransportSSH:
		return fmt.Sprintf("ssh %s@%s:%d", d.User, d.Host, d.Port)
	}
	return d.Transport
}

func (p *settingsPage) save() {
	if p.loaded == nil {
		p.status.SetText("Load the config before saving")
		return
	}
	// The redacted password is sent back as is; the daemon keeps the stored one.
	cur := *p.loaded
	if err := p.apply(&cur); err != nil {
		p.status.SetText(err.Error())
		return
	}
	go func() {
		updated, err := p.client.UpdateConfig(&cur)
		fyne.Do(func() {
			if err != nil {
				p.status.SetText("Failed to save config: " + err.Error())
				return
			}
			p.fill(updated)
			p.status.SetText("Saved")
		})
	}()
}

// apply copies the form fields onto cfg.
func (p *settingsPage) apply(cfg *config.Config) error {
	ints := []struct {
		name  string
		entry *widget.Entry
		dst   *int
	}{
		{"interval", p.interval, &cfg.Collection.IntervalSeconds},
		{"query timeout", p.queryTimeout, &cfg.Collection.QueryTimeoutSeconds},
		{"top processes", p.topProcesses, &cfg.Collection.TopProcesses},
		{"retention", p.retentionDays, &cfg.Cleanup.RetentionDays},
		{"cleanup interval", p.cleanupHours, &cfg.Cleanup.IntervalHours},
	}
	for _, f := range ints {
		v, err := strconv.Atoi(strings.TrimSpace(f.entry.Text))
		if err != nil {
			return fmt.Errorf("%s must be a whole number", f.name)
		}
		*f.dst = v
	}
	cfg.Collection.DiskPath = strings.TrimSpace(p.diskPath.Text)
	cfg.Storage.DBPath = strings.TrimSpace(p.dbPath.Text)
	return nil
}
