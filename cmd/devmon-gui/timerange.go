package main

import (
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/layout"
	"fyne.io/fyne/v2/widget"
)

type timeRange struct {
	Label    string
	Duration time.Duration
}

var timeRanges = []timeRange{
	{"15m", 15 * time.Minute},
	{"1h", time.Hour},
	{"3h", 3 * time.Hour},
	{"6h", 6 * time.Hour},
	{"24h", 24 * time.Hour},
	{"7d", 7 * 24 * time.Hour},
}

func newTimeRangeBar(selected int, onSelect func(int)) fyne.CanvasObject {
	buttons := make([]*widget.Button, len(timeRanges))
	highlight := func(sel int) {
		for i, b := range buttons {
			b.Importance = widget.MediumImportance
			if i == sel {
				b.Importance = widget.HighImportance
			}
			b.Refresh()
		}
	}

	objs := make([]fyne.CanvasObject, len(timeRanges))
	for i, tr := range timeRanges {
		i := i
		btn := widget.NewButton(tr.Label, func() {
			highlight(i)
			onSelect(i)
		})
		if i == selected {
			btn.Importance = widget.HighImportance
		}
		buttons[i] = btn
		objs[i] = btn
	}
	row := container.New(layout.NewHBoxLayout(), objs...)
	bg := canvas.NewRectangle(colGraphBg)
	return container.NewStack(bg, container.NewPadded(row))
}
