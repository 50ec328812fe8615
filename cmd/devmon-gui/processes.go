package main

import (
	"fmt"
	"strconv"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/widget"

	"github.com/cptspacemanspiff/device-monitor/internal/collector"
	"github.com/cptspacemanspiff/device-monitor/internal/dbus"
	"github.com/cptspacemanspiff/device-monitor/internal/format"
)

var processColumns = []struct {
	title string
	width float32
}{
	{"PID", 80},
	{"User", 120},
	{"CPU", 80},
	{"Mem", 80},
	{"Name", 420},
}

// processHistoryWindow is how far back the per-process details look.
const processHistoryWindow = 15 * time.Minute

type processPage struct {
	client *dbus.Client
	win    fyne.Window

	procs    []collector.ProcessRecord
	selected int // pid, 0 when nothing is selected

	table     *widget.Table
	status    *widget.Label
	container fyne.CanvasObject
}

func newProcessPage(client *dbus.Client, win fyne.Window) *processPage {
	p := &processPage{client: client, win: win, status: widget.NewLabel("Select a process")}

	p.table = widget.NewTable(
		func() (int, int) { return len(p.procs), len(processColumns) },
		func() fyne.CanvasObject { return widget.NewLabel("") },
		func(id widget.TableCellID, obj fyne.CanvasObject) {
			if id.Row >= len(p.procs) {
				return
			}
			obj.(*widget.Label).SetText(processCell(p.procs[id.Row], id.Col))
		},
	)
	p.table.ShowHeaderRow = true
	p.table.CreateHeader = func() fyne.CanvasObject { return widget.NewLabel("") }
	p.table.UpdateHeader = func(id widget.TableCellID, obj fyne.CanvasObject) {
		obj.(*widget.Label).SetText(processColumns[id.Col].title)
	}
	for i, c := range processColumns {
		p.table.SetColumnWidth(i, c.width)
	}
	p.table.OnSelected = func(id widget.TableCellID) {
		if id.Row >= 0 && id.Row < len(p.procs) {
			p.selected = p.procs[id.Row].PID
			p.status.SetText(fmt.Sprintf("Selected %d %s", p.selected, p.procs[id.Row].Name))
		}
	}

	terminateBtn := widget.NewButton("Terminate", func() { p.confirmTerminate(false) })
	killBtn := widget.NewButton("Force Kill", func() { p.confirmTerminate(true) })
	killBtn.Importance = widget.DangerImportance
	detailsBtn := widget.NewButton("Details", p.showDetails)

	actions := container.NewHBox(terminateBtn, killBtn, detailsBtn, p.status)
	p.container = container.NewBorder(nil, actions, nil, nil, p.table)
	return p
}

func processCell(r collector.ProcessRecord, col int) string {
	switch col {
	case 0:
		return strconv.Itoa(r.PID)
	case 1:
		return r.User
	case 2:
		return format.Percent(r.CPUPercent)
	case 3:
		return format.Percent(r.MemPercent)
	case 4:
		return r.Name
	}
	return ""
}

// Update replaces the table rows. Must be called on the UI goroutine.
func (p *processPage) Update(procs []collector.ProcessRecord) {
	p.procs = procs
	p.table.Refresh()
}

func (p *processPage) confirmTerminate(force bool) {
	pid := p.selected
	if pid <= 0 {
		p.status.SetText("Select a process first")
		return
	}
	verb := "Terminate"
	if force {
		verb = "Force kill"
	}
	dialog.ShowConfirm(verb, fmt.Sprintf("%s process %d?", verb, pid), func(ok bool) {
		if !ok {
			return
		}
		go func() {
			taskID, err := p.client.Terminate(pid, force)
			fyne.Do(func() {
				if err != nil {
					dialog.ShowError(err, p.win)
					return
				}
				p.status.SetText(fmt.Sprintf("%s %d requested (task %s)", verb, pid, taskID))
			})
		}()
	}, p.win)
}

func (p *processPage) showDetails() {
	pid := p.selected
	if pid <= 0 {
		p.status.SetText("Select a process first")
		return
	}
	go func() {
		now := time.Now()
		hist, err := p.client.GetProcessHistory(now.Add(-processHistoryWindow), now)
		fyne.Do(func() {
			if err != nil {
				dialog.ShowError(err, p.win)
				return
			}
			dialog.ShowInformation(fmt.Sprintf("Process %d", pid), summarizeProcess(hist, pid), p.win)
		})
	}()
}

// summarizeProcess describes pid's recorded samples and termination requests.
func summarizeProcess(hist *dbus.ProcessHistory, pid int) string {
	var samples int
	var peakCPU, peakMem float64
	for _, s := range hist.Processes {
		if s.PID != pid {
			continue
		}
		samples++
		peakCPU = max(peakCPU, s.CPUPercent)
		peakMem = max(peakMem, s.MemPercent)
	}
	text := fmt.Sprintf("Last %s: %d samples, peak CPU %s, peak memory %s",
		processHistoryWindow, samples, format.Percent(peakCPU), format.Percent(peakMem))
	for _, e := range hist.Terminations {
		if e.PID != pid {
			continue
		}
		outcome := "ok"
		if e.Err != "" {
			outcome = e.Err
		}
		text += fmt.Sprintf("\n%s terminate (force=%t): %s", time.Unix(e.Timestamp, 0).Format(time.TimeOnly), e.Force, outcome)
	}
	return text
}
