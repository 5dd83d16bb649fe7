// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/Thermoquad/standcan/pkg/capture"
	"github.com/Thermoquad/standcan/pkg/rd2"
)

// Event log entry
type eventLogEntry struct {
	timestamp time.Time
	message   string
	isError   bool // true for errors, false for events
}

// TUI model
type model struct {
	connInfo      string
	watcher       *watcher
	eventLog      []eventLogEntry
	maxLogEntries int
	synchronized  bool
	linkErr       error
	sensors       table.Model
	width         int
	height        int
	quitting      bool
}

type tickMsg time.Time

// formatElapsed formats a session duration as a human-friendly string
func formatElapsed(d time.Duration) string {
	seconds := int64(d / time.Second)
	if seconds <= 0 {
		return "0 seconds"
	}

	minutes := seconds / 60
	hours := minutes / 60
	days := hours / 24

	seconds %= 60
	minutes %= 60
	hours %= 24

	unit := func(n int64, name string) string {
		if n == 1 {
			return "1 " + name
		}
		return fmt.Sprintf("%d %ss", n, name)
	}

	parts := []string{}
	if days > 0 {
		parts = append(parts, unit(days, "day"))
	}
	if hours > 0 {
		parts = append(parts, unit(hours, "hour"))
	}
	if minutes > 0 {
		parts = append(parts, unit(minutes, "minute"))
	}
	if seconds > 0 {
		parts = append(parts, unit(seconds, "second"))
	}

	// Join with commas and "and" for last item
	if len(parts) == 1 {
		return parts[0]
	}
	if len(parts) == 2 {
		return parts[0] + " and " + parts[1]
	}
	last := parts[len(parts)-1]
	rest := strings.Join(parts[:len(parts)-1], ", ")
	return rest + ", and " + last
}

func newSensorTable() table.Model {
	columns := []table.Column{
		{Title: "Sensor", Width: 16},
		{Title: "ID", Width: 5},
		{Title: "Value", Width: 12},
		{Title: "Unit", Width: 6},
		{Title: "Raw", Width: 10},
		{Title: "Samples", Width: 8},
		{Title: "Time (s)", Width: 10},
	}

	t := table.New(
		table.WithColumns(columns),
		table.WithFocused(true),
		table.WithHeight(8),
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
	return t
}

func initialModel(connInfo string, w *watcher) model {
	return model{
		connInfo:      connInfo,
		watcher:       w,
		eventLog:      make([]eventLogEntry, 0),
		maxLogEntries: 100,
		sensors:       newSensorTable(),
		width:         80,
		height:        24,
	}
}

func (m model) Init() tea.Cmd {
	return tea.Batch(
		tickCmd(),
		tea.EnterAltScreen,
	)
}

func tickCmd() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			m.quitting = true
			return m, tea.Quit
		case "r":
			m.watcher.reset()
			m.sensors.SetRows(nil)
			m.addLogEntry("Session reset", false)
			return m, nil
		}
		var cmd tea.Cmd
		m.sensors, cmd = m.sensors.Update(msg)
		return m, cmd

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.sensors.SetHeight(max(5, m.height/3))

	case tickMsg:
		m.watcher.decoder.Statistics().CalculateRates()
		m.sensors.SetRows(m.sensorRows())
		return m, tickCmd()

	case frameMsg:
		var lerr *capture.LineError
		switch {
		case errors.As(msg.err, &lerr):
			if m.synchronized {
				m.addLogEntry(lerr.Error(), true)
			}
		case msg.err != nil:
			m.linkErr = msg.err
			m.addLogEntry(fmt.Sprintf("Link closed: %v", msg.err), true)
		default:
			if !m.synchronized {
				m.synchronized = true
				m.addLogEntry("First frame received", false)
			}
			for _, e := range m.watcher.handle(msg.frame) {
				m.addLogEntry(e.message, e.isError)
			}
		}
	}

	return m, nil
}

func (m *model) addLogEntry(message string, isError bool) {
	entry := eventLogEntry{
		timestamp: time.Now(),
		message:   message,
		isError:   isError,
	}
	m.eventLog = append(m.eventLog, entry)

	// Keep only last N entries
	if len(m.eventLog) > m.maxLogEntries {
		m.eventLog = m.eventLog[len(m.eventLog)-m.maxLogEntries:]
	}
}

// sensorRows renders the latest calibrated value of every active sensor
func (m model) sensorRows() []table.Row {
	s := m.watcher.decoder.State()
	tbl := m.watcher.table

	var rows []table.Row
	for _, id := range s.ActiveSensors() {
		ledger := s.Ledger(id)
		last := ledger[len(ledger)-1]
		unit := ""
		if sensor, ok := tbl.ByID(id); ok {
			unit = sensor.Unit
		}
		rows = append(rows, table.Row{
			tbl.Name(id),
			strconv.Itoa(int(id)),
			strconv.FormatFloat(tbl.Convert(id, last.Raw), 'f', 2, 64),
			unit,
			strconv.FormatUint(uint64(last.Raw), 10),
			strconv.Itoa(len(ledger)),
			strconv.FormatFloat(last.Time, 'f', 3, 64),
		})
	}
	return rows
}

func (m model) View() string {
	if m.quitting {
		return "Shutting down...\n"
	}

	// Styles
	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("12")).
		Background(lipgloss.Color("235")).
		Padding(0, 1)

	headerStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("241"))

	labelStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("12")).
		Bold(true)

	valueStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("10"))

	errorStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("9")).
		Bold(true)

	warningStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("11"))

	boxStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("240")).
		Padding(0, 1)

	d := m.watcher.decoder
	st := d.State()
	stats := d.Statistics()

	var s strings.Builder
	s.WriteString(titleStyle.Render("STANDCAN - BUS MONITOR"))
	s.WriteString("\n")
	s.WriteString(headerStyle.Render(fmt.Sprintf("%s | Elapsed: %s | 'r' reset, 'q' quit",
		m.connInfo, formatElapsed(time.Since(stats.StartTime)))))
	s.WriteString("\n\n")

	switch {
	case m.linkErr != nil:
		s.WriteString(errorStyle.Render(fmt.Sprintf("✗ Link closed: %v", m.linkErr)))
	case !m.synchronized:
		s.WriteString(warningStyle.Render("⏳ Waiting for frames..."))
	default:
		s.WriteString(valueStyle.Render("✓ Receiving"))
	}
	s.WriteString("\n\n")

	// Statistics
	var errorPercent float64
	if stats.TotalFrames > 0 {
		errorPercent = float64(stats.Errors()) * 100.0 / float64(stats.TotalFrames)
	}

	statsContent := strings.Builder{}
	statsContent.WriteString(fmt.Sprintf("%s %s   %s %s   %s %s   %s %s\n",
		labelStyle.Render("Frames:"), valueStyle.Render(fmt.Sprintf("%d", stats.TotalFrames)),
		labelStyle.Render("Decoded:"), valueStyle.Render(fmt.Sprintf("%d", stats.DecodedFrames)),
		labelStyle.Render("Ignored:"), headerStyle.Render(fmt.Sprintf("%d", stats.IgnoredFrames)),
		labelStyle.Render("Errors:"), errorStyle.Render(fmt.Sprintf("%d (%.1f%%)", stats.Errors(), errorPercent)),
	))

	if stats.Errors() > 0 {
		statsContent.WriteString(fmt.Sprintf("%s %d, %s %d, %s %d, %s %d\n",
			headerStyle.Render("short payloads"), stats.ShortPayloads,
			headerStyle.Render("too long"), stats.PayloadTooLong,
			headerStyle.Render("channel range"), stats.ChannelRange,
			headerStyle.Render("state rejects"), stats.NodeStateRejects,
		))
	}

	statsContent.WriteString(fmt.Sprintf("%s %s   %s %s",
		labelStyle.Render("Frame Rate:"), valueStyle.Render(fmt.Sprintf("%.1f frames/s", stats.FrameRate)),
		labelStyle.Render("Error Rate:"), func() string {
			if stats.ErrorRate > 0 {
				return errorStyle.Render(fmt.Sprintf("%.1f err/s", stats.ErrorRate))
			}
			return valueStyle.Render(fmt.Sprintf("%.1f err/s", stats.ErrorRate))
		}(),
	))

	s.WriteString(boxStyle.Render(statsContent.String()))
	s.WriteString("\n\n")

	// Nodes and valve banks
	nodeContent := strings.Builder{}
	for i, n := range rd2.Nodes {
		if i > 0 {
			nodeContent.WriteString("\n")
		}
		bank := st.Valve(n)
		var valves strings.Builder
		for ch := 1; ch <= 10; ch++ {
			valves.WriteString(fmt.Sprintf(" %d", bank[ch]))
		}
		nodeContent.WriteString(fmt.Sprintf("%s %s  %s%s",
			labelStyle.Render(fmt.Sprintf("%-8s", n.String()+":")),
			valueStyle.Render(fmt.Sprintf("%-13s", st.NodeState(n))),
			headerStyle.Render("valves"), valves.String(),
		))
	}
	nodeContent.WriteString(fmt.Sprintf("\n%s %s   %s %s   %s %s",
		labelStyle.Render("Autosequence:"), valueStyle.Render(fmt.Sprintf("T%+.3f s", st.AutosequenceTime)),
		labelStyle.Render("Throttle points:"), valueStyle.Render(fmt.Sprintf("%d", len(st.ThrottlePoints))),
		labelStyle.Render("Clock:"), valueStyle.Render(fmt.Sprintf("%d.%06d s", st.ClockSeconds, st.ClockMicros)),
	))
	s.WriteString(boxStyle.Render(nodeContent.String()))
	s.WriteString("\n\n")

	// Sensors
	s.WriteString(labelStyle.Render(fmt.Sprintf("Sensors (%d active):", len(m.sensors.Rows()))))
	s.WriteString("\n")
	s.WriteString(boxStyle.Render(m.sensors.View()))
	s.WriteString("\n\n")

	// Event log
	s.WriteString(labelStyle.Render("Recent Events:"))
	s.WriteString("\n")

	logHeight := max(m.height-m.sensors.Height()-22, 5)

	logContent := strings.Builder{}
	startIdx := max(len(m.eventLog)-logHeight, 0)

	if len(m.eventLog) == 0 {
		logContent.WriteString(headerStyle.Render("  (no events yet)"))
	} else {
		for i := startIdx; i < len(m.eventLog); i++ {
			entry := m.eventLog[i]
			timestamp := entry.timestamp.Format("01/02/06 15:04:05.000")
			if entry.isError {
				logContent.WriteString(fmt.Sprintf("%s %s\n",
					headerStyle.Render(timestamp),
					errorStyle.Render("✗ "+entry.message),
				))
			} else {
				logContent.WriteString(fmt.Sprintf("%s %s\n",
					headerStyle.Render(timestamp),
					warningStyle.Render("ℹ "+entry.message),
				))
			}
		}
	}

	s.WriteString(boxStyle.Width(m.width - 4).Render(logContent.String()))

	return s.String()
}
