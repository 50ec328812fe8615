package main

import (
	"sync/atomic"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/widget"

	"github.com/cptspacemanspiff/device-monitor/internal/dbus"
	"github.com/cptspacemanspiff/device-monitor/internal/format"
	"github.com/cptspacemanspiff/device-monitor/internal/storage"
)

// maxGraphPoints bounds the points drawn per graph.
const maxGraphPoints = 300

type historyPage struct {
	client   *dbus.Client
	selected atomic.Int32

	cpuGraph  *lineGraph
	memGraph  *lineGraph
	rxGraph   *lineGraph
	txGraph   *lineGraph
	status    *widget.Label
	container fyne.CanvasObject
}

func newHistoryPage(client *dbus.Client) *historyPage {
	h := &historyPage{
		client:   client,
		cpuGraph: newLineGraph("CPU", colGreenLine),
		memGraph: newLineGraph("Memory", colBlueLine),
		rxGraph:  newLineGraph("Network rx", colAmberLine),
		txGraph:  newLineGraph("Network tx", colAmberLine),
		status:   widget.NewLabel(""),
	}
	h.selected.Store(1) // 1h
	bar := newTimeRangeBar(1, func(i int) {
		h.selected.Store(int32(i))
		go h.Refresh()
	})
	graphs := container.NewGridWithColumns(2, h.cpuGraph.box, h.memGraph.box, h.rxGraph.box, h.txGraph.box)
	h.container = container.NewBorder(bar, h.status, nil, nil, graphs)
	return h
}

// Refresh fetches stored samples for the selected range. It blocks on D-Bus
// and must not run on the UI goroutine.
func (h *historyPage) Refresh() {
	now := time.Now()
	from := now.Add(-timeRanges[h.selected.Load()].Duration)

	hist, err := h.client.GetHistory(from, now)
	fyne.Do(func() {
		if err != nil {
			h.status.SetText("History unavailable: " + err.Error())
			return
		}
		h.status.SetText("")
		h.show(hist.Metrics, float64(from.Unix()), float64(now.Unix()))
	})
}

func (h *historyPage) show(samples []storage.MetricSample, from, to float64) {
	series := func(v func(storage.MetricSample) float64) []point {
		pts := make([]point, len(samples))
		for i, s := range samples {
			pts[i] = point{t: float64(s.Timestamp), v: v(s)}
		}
		return downsample(pts, from, to, maxGraphPoints)
	}
	gap := max(gapThresh, 2*(to-from)/maxGraphPoints)

	cpu := series(func(s storage.MetricSample) float64 { return s.CPUPercent })
	mem := series(func(s storage.MetricSample) float64 { return s.MemPercent })
	rx := series(func(s storage.MetricSample) float64 { return s.RxBytesPerSec })
	tx := series(func(s storage.MetricSample) float64 { return s.TxBytesPerSec })

	h.cpuGraph.SetData("CPU", cpu, from, to, 100, gap)
	h.memGraph.SetData("Memory", mem, from, to, 100, gap)
	rxPeak, txPeak := peak(rx, 1024), peak(tx, 1024)
	h.rxGraph.SetData("Network rx, peak "+format.Rate(rxPeak), rx, from, to, rxPeak*1.1, gap)
	h.txGraph.SetData("Network tx, peak "+format.Rate(txPeak), tx, from, to, txPeak*1.1, gap)
}
