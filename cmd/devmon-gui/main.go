package main

import (
	"context"
	"log"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/widget"

	"github.com/cptspacemanspiff/device-monitor/internal/dbus"
	"github.com/cptspacemanspiff/device-monitor/internal/format"
	"github.com/cptspacemanspiff/device-monitor/internal/monitor"
)

const (
	liveRefresh    = time.Second
	historyRefresh = 5 * time.Second
)

type overviewPage struct {
	stats     *statsBar
	cpuGraph  *lineGraph
	memGraph  *lineGraph
	rxGraph   *lineGraph
	txGraph   *lineGraph
	status    *widget.Label
	container fyne.CanvasObject
}

func newOverviewPage() *overviewPage {
	o := &overviewPage{
		stats:    newStatsBar(),
		cpuGraph: newLineGraph("CPU", colGreenLine),
		memGraph: newLineGraph("Memory", colBlueLine),
		rxGraph:  newLineGraph("Network rx", colAmberLine),
		txGraph:  newLineGraph("Network tx", colAmberLine),
		status:   widget.NewLabel("Connecting..."),
	}
	graphs := container.NewGridWithColumns(2, o.cpuGraph.box, o.memGraph.box, o.rxGraph.box, o.txGraph.box)
	o.container = container.NewBorder(o.stats.container, o.status, nil, nil, graphs)
	return o
}

// indexed turns a history into points spaced one apart, newest at capacity-1.
func indexed(values []float64, capacity int) []point {
	offset := capacity - len(values)
	pts := make([]point, len(values))
	for i, v := range values {
		pts[i] = point{t: float64(offset + i), v: v}
	}
	return pts
}

func (o *overviewPage) Update(snap *monitor.Snapshot) {
	o.stats.Update(snap)

	capacity := max(monitor.DefaultHistoryCapacity, len(snap.CPUHistory))
	to := float64(capacity - 1)
	rx, tx := indexed(snap.RxHistory, capacity), indexed(snap.TxHistory, capacity)
	rxPeak, txPeak := peak(rx, 1024), peak(tx, 1024)

	o.cpuGraph.SetData("CPU "+format.Percent(snap.CPUPercent), indexed(snap.CPUHistory, capacity), 0, to, 100, 0)
	o.memGraph.SetData("Memory "+format.Percent(snap.MemPercent), indexed(snap.MemHistory, capacity), 0, to, 100, 0)
	o.rxGraph.SetData("Network rx "+format.Rate(snap.RxBytesPerSec), rx, 0, to, rxPeak*1.1, 0)
	o.txGraph.SetData("Network tx "+format.Rate(snap.TxBytesPerSec), tx, 0, to, txPeak*1.1, 0)

	o.status.SetText("Updated " + snap.CapturedAt.Local().Format(time.TimeOnly))
}

func main() {
	client, err := dbus.NewClient()
	if err != nil {
		log.Fatalf("Failed to connect to D-Bus: %v", err)
	}
	defer client.Close()

	a := app.NewWithID("org.devmon.Viewer")
	win := a.NewWindow("Device Monitor")
	win.Resize(fyne.NewSize(960, 640))

	overview := newOverviewPage()
	procs := newProcessPage(client, win)
	history := newHistoryPage(client)
	settings := newSettingsPage(client)

	tabs := container.NewAppTabs(
		container.NewTabItem("Overview", overview.container),
		container.NewTabItem("Processes", procs.container),
		container.NewTabItem("History", history.container),
		container.NewTabItem("Settings", container.NewVScroll(settings.container)),
	)
	win.SetContent(tabs)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go settings.Load()
	go poll(ctx, client, overview, procs, history)

	win.ShowAndRun()
}

// poll refreshes the live pages every second and the history page every
// few seconds until ctx is cancelled.
func poll(ctx context.Context, client *dbus.Client, overview *overviewPage, procs *processPage, history *historyPage) {
	live := time.NewTicker(liveRefresh)
	defer live.Stop()
	hist := time.NewTicker(historyRefresh)
	defer hist.Stop()

	refreshLive := func() {
		snap, err := client.GetCurrentStats()
		fyne.Do(func() {
			if err != nil {
				overview.status.SetText("Daemon unavailable: " + err.Error())
				return
			}
			overview.Update(snap)
			procs.Update(snap.Processes)
		})
	}

	refreshLive()
	history.Refresh()
	for {
		select {
		case <-live.C:
			refreshLive()
		case <-hist.C:
			history.Refresh()
		case <-ctx.Done():
			return
		}
	}
}
