package main

import (
	"fmt"
	"strings"
)

var sparkBlocks = []rune("▁▂▃▄▅▆▇█")

// sparkline renders the last width values scaled to [0, maxV] as block characters.
func sparkline(values []float64, maxV float64, width int) string {
	if maxV <= 0 || width <= 0 {
		return ""
	}
	if len(values) > width {
		values = values[len(values)-width:]
	}
	var b strings.Builder
	for _, v := range values {
		i := int(v / maxV * float64(len(sparkBlocks)-1))
		i = max(0, min(i, len(sparkBlocks)-1))
		b.WriteRune(sparkBlocks[i])
	}
	return b.String()
}

func (m Model) View() string {
	var b strings.Builder
	b.WriteString(m.renderTitle())
	b.WriteString("\n\n")
	b.WriteString(m.renderHeader())
	b.WriteString("\n\n")
	b.WriteString(baseStyle.Render(m.table.View()))
	b.WriteString("\n")

	switch m.mode {
	case filterMode:
		b.WriteString(m.filterInput.View())
	case confirmMode:
		verb := "Terminate"
		if m.pendingForce {
			verb = "Force kill"
		}
		b.WriteString(confirmStyle.Render(fmt.Sprintf("%s process %d? [y/n]", verb, m.pendingPID)))
	default:
		b.WriteString(m.renderQuickHelp())
	}

	if m.statusText != "" {
		b.WriteString("\n")
		style := successStyle
		if m.statusError {
			style = errorStyle
		}
		b.WriteString(style.Render(m.statusText))
	}
	b.WriteString("\n")
	return b.String()
}

func (m Model) renderTitle() string {
	title := "devmon-top"
	if m.filterText != "" {
		title += "  filter: " + m.filterText
	}
	title += "  sort: " + sortNames[m.sortBy]
	return titleStyle.Width(max(m.width, 0)).Render(title)
}

func (m Model) renderQuickHelp() string {
	keys := []struct{ key, desc string }{
		{"↑/↓", "select"},
		{"x", "terminate"},
		{"X", "force kill"},
		{"/", "filter"},
		{"s", "sort"},
		{"q", "quit"},
	}
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = keybindStyle.Render(k.key) + " " + keybindDescStyle.Render(k.desc)
	}
	return strings.Join(parts, "  ")
}
