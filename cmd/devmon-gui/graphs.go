package main

import (
	"image/color"
	"math"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/container"
)

var (
	colGraphBg   = color.NRGBA{R: 30, G: 30, B: 30, A: 230}
	colTitle     = color.NRGBA{R: 255, G: 255, B: 255, A: 180}
	colGreenLine = color.NRGBA{R: 77, G: 191, B: 102, A: 255}
	colBlueLine  = color.NRGBA{R: 89, G: 140, B: 230, A: 255}
	colAmberLine = color.NRGBA{R: 230, G: 170, B: 60, A: 255}
)

const (
	padLeft   = 10
	padRight  = 10
	padTop    = 26
	padBottom = 8
	gapThresh = 30 // seconds
)

type point struct {
	t, v float64
}

type segment struct {
	x1, y1, x2, y2 float32
}

// segments maps pts onto a w x h plot spanning [from, to] horizontally and
// [0, maxV] vertically. Neighbours more than gap apart are not joined; a gap
// of zero joins everything.
func segments(pts []point, from, to, maxV, gap float64, w, h float32) []segment {
	span := to - from
	if span <= 0 || maxV <= 0 || len(pts) < 2 {
		return nil
	}
	x := func(t float64) float32 {
		return float32((t - from) / span * float64(w))
	}
	y := func(v float64) float32 {
		v = math.Max(0, math.Min(v, maxV))
		return h - float32(v/maxV*float64(h))
	}

	var out []segment
	for i := 1; i < len(pts); i++ {
		a, b := pts[i-1], pts[i]
		if gap > 0 && b.t-a.t > gap {
			continue
		}
		if b.t < from || a.t > to {
			continue
		}
		out = append(out, segment{x(a.t), y(a.v), x(b.t), y(b.v)})
	}
	return out
}

// downsample averages pts into at most n equal time buckets over [from, to].
// Empty buckets are dropped, leaving a gap.
func downsample(pts []point, from, to float64, n int) []point {
	if len(pts) <= n || n <= 0 || to <= from {
		return pts
	}
	width := (to - from) / float64(n)
	type acc struct {
		t, v  float64
		count int
	}
	buckets := make([]acc, n)
	for _, p := range pts {
		i := int((p.t - from) / width)
		if i < 0 || i >= n {
			continue
		}
		buckets[i].t += p.t
		buckets[i].v += p.v
		buckets[i].count++
	}
	out := make([]point, 0, n)
	for _, b := range buckets {
		if b.count == 0 {
			continue
		}
		out = append(out, point{t: b.t / float64(b.count), v: b.v / float64(b.count)})
	}
	return out
}

// peak returns the largest value in pts, at least floor.
func peak(pts []point, floor float64) float64 {
	m := floor
	for _, p := range pts {
		m = math.Max(m, p.v)
	}
	return m
}

// lineGraph draws a line chart out of canvas lines. It is its own layout so
// the lines follow the container's size.
type lineGraph struct {
	bg    *canvas.Rectangle
	title *canvas.Text
	lines []*canvas.Line
	color color.Color
	box   *fyne.Container

	pts            []point
	from, to, maxV float64
	gap            float64
}

func newLineGraph(title string, c color.Color) *lineGraph {
	g := &lineGraph{
		bg:    canvas.NewRectangle(colGraphBg),
		title: canvas.NewText(title, colTitle),
		color: c,
	}
	g.title.TextSize = 11
	g.box = container.New(g, g.bg, g.title)
	return g
}

// SetData replaces the plotted points. Must be called on the UI goroutine.
func (g *lineGraph) SetData(title string, pts []point, from, to, maxV, gap float64) {
	g.title.Text = title
	g.pts, g.from, g.to, g.maxV, g.gap = pts, from, to, maxV, gap

	n := len(segments(pts, from, to, maxV, gap, 1, 1))
	for len(g.lines) < n {
		l := canvas.NewLine(g.color)
		l.StrokeWidth = 2
		g.lines = append(g.lines, l)
	}
	g.lines = g.lines[:n]

	objs := []fyne.CanvasObject{g.bg, g.title}
	for _, l := range g.lines {
		objs = append(objs, l)
	}
	g.box.Objects = objs
	g.box.Refresh()
}

func (g *lineGraph) Layout(_ []fyne.CanvasObject, size fyne.Size) {
	g.bg.Resize(size)
	g.bg.Move(fyne.NewPos(0, 0))
	g.title.Move(fyne.NewPos(padLeft, 6))

	plotW := size.Width - padLeft - padRight
	plotH := size.Height - padTop - padBottom
	if plotW <= 0 || plotH <= 0 {
		return
	}
	segs := segments(g.pts, g.from, g.to, g.maxV, g.gap, plotW, plotH)
	for i, l := range g.lines {
		if i >= len(segs) {
			l.Hide()
			continue
		}
		s := segs[i]
		l.Position1 = fyne.NewPos(padLeft+s.x1, padTop+s.y1)
		l.Position2 = fyne.NewPos(padLeft+s.x2, padTop+s.y2)
		l.Show()
	}
}

func (g *lineGraph) MinSize(_ []fyne.CanvasObject) fyne.Size {
	return fyne.NewSize(300, 140)
}
