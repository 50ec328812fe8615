package main

import (
	"image/color"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/layout"

	"github.com/cptspacemanspiff/device-monitor/internal/format"
	"github.com/cptspacemanspiff/device-monitor/internal/monitor"
)

var (
	colorGreenAccent = color.NRGBA{R: 77, G: 191, B: 102, A: 255}
	colorStale       = color.NRGBA{R: 150, G: 150, B: 150, A: 255}
	colorWhiteLabel  = color.NRGBA{R: 200, G: 200, B: 200, A: 255}
	colorAccentBg    = color.NRGBA{R: 77, G: 191, B: 102, A: 38}
)

type statsBar struct {
	cpuLabel  *canvas.Text
	memLabel  *canvas.Text
	netLabel  *canvas.Text
	diskLabel *canvas.Text
	container fyne.CanvasObject
}

func newStatsBar() *statsBar {
	s := &statsBar{
		cpuLabel:  newStatText("--%"),
		memLabel:  newStatText("--%"),
		netLabel:  newStatText("-- / --"),
		diskLabel: newStatText("--%"),
	}

	bg := canvas.NewRectangle(colorAccentBg)

	row := container.New(layout.NewHBoxLayout(),
		container.NewVBox(newLabelText("CPU"), s.cpuLabel),
		layout.NewSpacer(),
		container.NewVBox(newLabelText("Memory"), s.memLabel),
		layout.NewSpacer(),
		container.NewVBox(newLabelText("Network rx / tx"), s.netLabel),
		layout.NewSpacer(),
		container.NewVBox(newLabelText("Disk"), s.diskLabel),
	)

	s.container = container.NewStack(bg, container.NewPadded(row))
	return s
}

// Update shows snap. Metrics whose last query failed are greyed out.
func (s *statsBar) Update(snap *monitor.Snapshot) {
	if snap == nil || snap.Cycle == 0 {
		return
	}
	set := func(t *canvas.Text, metric, text string) {
		t.Text = text
		t.Color = colorGreenAccent
		if snap.Status[metric].Stale() {
			t.Color = colorStale
		}
		t.Refresh()
	}
	set(s.cpuLabel, monitor.MetricCPU, format.Percent(snap.CPUPercent))
	set(s.memLabel, monitor.MetricMemory, format.Percent(snap.MemPercent)+"  "+format.KB(snap.MemUsedKB)+" of "+format.KB(snap.MemTotalKB))
	set(s.netLabel, monitor.MetricNetwork, format.Rate(snap.RxBytesPerSec)+" / "+format.Rate(snap.TxBytesPerSec))
	set(s.diskLabel, monitor.MetricDisk, format.Percent(snap.DiskPercent)+"  "+snap.DiskMount)
}

func newStatText(text string) *canvas.Text {
	t := canvas.NewText(text, colorGreenAccent)
	t.TextSize = 18
	t.TextStyle = fyne.TextStyle{Bold: true}
	return t
}

func newLabelText(text string) *canvas.Text {
	t := canvas.NewText(text, colorWhiteLabel)
	t.TextSize = 12
	return t
}
