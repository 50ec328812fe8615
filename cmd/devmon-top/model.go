package main

import (
	"cmp"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/cptspacemanspiff/device-monitor/internal/collector"
	"github.com/cptspacemanspiff/device-monitor/internal/format"
	"github.com/cptspacemanspiff/device-monitor/internal/monitor"
)

// daemon is the part of the D-Bus client the viewer uses.
type daemon interface {
	GetCurrentStats() (*monitor.Snapshot, error)
	Terminate(pid int, force bool) (string, error)
}

type uiMode int

const (
	normalMode uiMode = iota
	filterMode
	confirmMode
)

type sortKey int

const (
	sortCPU sortKey = iota
	sortMem
	sortPID
)

var sortNames = map[sortKey]string{sortCPU: "cpu", sortMem: "mem", sortPID: "pid"}

type (
	tickMsg     time.Time
	snapshotMsg struct {
		snap *monitor.Snapshot
		err  error
	}
	terminateMsg struct {
		pid    int
		force  bool
		taskID string
		err    error
	}
)

// Model holds the viewer state.
type Model struct {
	client   daemon
	interval time.Duration

	table  table.Model
	snap   *monitor.Snapshot
	sortBy sortKey
	width  int

	mode        uiMode
	filterInput textinput.Model
	filterText  string

	pendingPID   int
	pendingForce bool

	statusText  string
	statusError bool
}

func newModel(client daemon, interval time.Duration) Model {
	columns := []table.Column{
		{Title: "PID", Width: 7},
		{Title: "USER", Width: 12},
		{Title: "%CPU", Width: 7},
		{Title: "%MEM", Width: 7},
		{Title: "NAME", Width: 50},
	}

	t := table.New(
		table.WithColumns(columns),
		table.WithFocused(true),
		table.WithHeight(20),
	)
	s := table.DefaultStyles()
	s.Header = s.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(lipgloss.Color("240")).
		BorderBottom(true).
		Bold(true)
	s.Selected = s.Selected.
		Foreground(lipgloss.Color("229")).
		Background(lipgloss.Color("57")).
		Bold(false)
	t.SetStyles(s)

	ti := textinput.New()
	ti.Placeholder = "filter by name or user..."
	ti.CharLimit = 50

	return Model{
		client:      client,
		interval:    interval,
		table:       t,
		filterInput: ti,
	}
}

func (m Model) Init() tea.Cmd {
	return fetchCmd(m.client)
}

func tickCmd(interval time.Duration) tea.Cmd {
	return tea.Tick(interval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func fetchCmd(client daemon) tea.Cmd {
	return func() tea.Msg {
		snap, err := client.GetCurrentStats()
		return snapshotMsg{snap: snap, err: err}
	}
}

func terminateCmd(client daemon, pid int, force bool) tea.Cmd {
	return func() tea.Msg {
		taskID, err := client.Terminate(pid, force)
		return terminateMsg{pid: pid, force: force, taskID: taskID, err: err}
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch m.mode {
		case filterMode:
			return m.handleFilter(msg)
		case confirmMode:
			return m.handleConfirm(msg)
		}
		return m.handleKeyPress(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.table.SetHeight(max(msg.Height-12, 3))
		return m, nil

	case tickMsg:
		return m, fetchCmd(m.client)

	case snapshotMsg:
		if msg.err != nil {
			m.setStatus(fmt.Sprintf("daemon unavailable: %v", msg.err), true)
		} else {
			m.snap = msg.snap
			m.updateTable()
		}
		return m, tickCmd(m.interval)

	case terminateMsg:
		verb := "terminate"
		if msg.force {
			verb = "force kill"
		}
		if msg.err != nil {
			m.setStatus(fmt.Sprintf("%s %d failed: %v", verb, msg.pid, msg.err), true)
		} else {
			m.setStatus(fmt.Sprintf("%s %d requested (task %s)", verb, msg.pid, msg.taskID), false)
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)
	return m, cmd
}

func (m *Model) setStatus(text string, isErr bool) {
	m.statusText = text
	m.statusError = isErr
}

func (m Model) handleKeyPress(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit

	case "x", "X":
		pid := m.selectedPID()
		if pid <= 0 {
			m.setStatus("no process selected", true)
			return m, nil
		}
		m.pendingPID = pid
		m.pendingForce = msg.String() == "X"
		m.mode = confirmMode
		return m, nil

	case "/":
		m.mode = filterMode
		m.filterInput.SetValue(m.filterText)
		m.filterInput.Focus()
		return m, textinput.Blink

	case "s":
		m.sortBy = (m.sortBy + 1) % sortKey(len(sortNames))
		m.updateTable()
		return m, nil
	}

	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)
	return m, cmd
}

func (m Model) handleConfirm(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "y", "Y", "enter":
		m.mode = normalMode
		return m, terminateCmd(m.client, m.pendingPID, m.pendingForce)
	case "n", "N", "esc", "q":
		m.mode = normalMode
		m.setStatus("cancelled", false)
	}
	return m, nil
}

func (m Model) handleFilter(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "enter":
		m.filterText = strings.TrimSpace(m.filterInput.Value())
		m.filterInput.Blur()
		m.mode = normalMode
		m.updateTable()
		return m, nil
	case "esc":
		m.filterInput.Blur()
		m.mode = normalMode
		return m, nil
	}

	var cmd tea.Cmd
	m.filterInput, cmd = m.filterInput.Update(msg)
	return m, cmd
}

func (m Model) selectedPID() int {
	row := m.table.SelectedRow()
	if len(row) == 0 {
		return 0
	}
	pid, _ := strconv.Atoi(row[0])
	return pid
}

// visibleProcesses filters and sorts the snapshot's process table.
func (m Model) visibleProcesses() []collector.ProcessRecord {
	if m.snap == nil {
		return nil
	}
	needle := strings.ToLower(m.filterText)
	var out []collector.ProcessRecord
	for _, p := range m.snap.Processes {
		if needle != "" &&
			!strings.Contains(strings.ToLower(p.Name), needle) &&
			!strings.Contains(strings.ToLower(p.User), needle) {
			continue
		}
		out = append(out, p)
	}

	slices.SortStableFunc(out, func(a, b collector.ProcessRecord) int {
		switch m.sortBy {
		case sortMem:
			return cmp.Compare(b.MemPercent, a.MemPercent)
		case sortPID:
			return cmp.Compare(a.PID, b.PID)
		}
		return cmp.Compare(b.CPUPercent, a.CPUPercent)
	})
	return out
}

func (m *Model) updateTable() {
	selected := m.selectedPID()

	procs := m.visibleProcesses()
	rows := make([]table.Row, len(procs))
	for i, p := range procs {
		rows[i] = table.Row{
			strconv.Itoa(p.PID),
			p.User,
			fmt.Sprintf("%.1f", p.CPUPercent),
			fmt.Sprintf("%.1f", p.MemPercent),
			p.Name,
		}
	}
	m.table.SetRows(rows)

	for i, p := range procs {
		if p.PID == selected {
			m.table.SetCursor(i)
			return
		}
	}
	if m.table.Cursor() >= len(rows) {
		m.table.SetCursor(max(len(rows)-1, 0))
	}
}

// metric renders one header field, greyed out when the value is stale.
func (m Model) metric(label, name, value string) string {
	style := valueStyle
	if m.snap.Status[name].Stale() {
		style = staleStyle
		value += " (stale)"
	}
	return labelStyle.Render(label+" ") + style.Render(value)
}

func (m Model) renderHeader() string {
	s := m.snap
	if s == nil || s.Cycle == 0 {
		return labelStyle.Render("waiting for the first sample...")
	}
	lines := []string{
		m.metric("CPU", monitor.MetricCPU, format.Percent(s.CPUPercent)) + "  " + sparkStyle.Render(sparkline(s.CPUHistory, 100, 40)),
		m.metric("MEM", monitor.MetricMemory, format.Percent(s.MemPercent)+" "+format.KB(s.MemUsedKB)+"/"+format.KB(s.MemTotalKB)) + "  " + sparkStyle.Render(sparkline(s.MemHistory, 100, 40)),
		m.metric("NET", monitor.MetricNetwork, "rx "+format.Rate(s.RxBytesPerSec)+" tx "+format.Rate(s.TxBytesPerSec)),
		m.metric("DISK", monitor.MetricDisk, format.Percent(s.DiskPercent)+" "+s.DiskMount),
	}
	return strings.Join(lines, "\n")
}
