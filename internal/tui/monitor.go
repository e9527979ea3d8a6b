// SPDX-License-Identifier: MIT
package tui

import (
	"fmt"
	"strings"
	"time"

	"musicpainter/internal/session"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

const (
	refreshInterval = 100 * time.Millisecond
	panStep         = 10.0  // Pixels per arrow key.
	wheelStep       = 120.0 // One wheel notch.
)

var (
	labelStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#A0A0A0")).Width(14)
	errorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF5F5F")).Bold(true)
)

// Session is the part of the controller the monitor reads.
type Session interface {
	Status() session.Status
	History() [][]float64
	Stop()
	Done() <-chan struct{}
}

// View is the live canvas the monitor steers. *viewport.Canvas satisfies it.
type View interface {
	Pan(dx, dy float64)
	Wheel(delta float64)
	Reset()
}

type tickMsg time.Time

func tick() tea.Cmd {
	return tea.Tick(refreshInterval, func(t time.Time) tea.Msg { return tickMsg(t) })
}

var (
	quitKeys  = key.NewBinding(key.WithKeys("q", "esc", "ctrl+c"))
	zoomIn    = key.NewBinding(key.WithKeys("+", "="))
	zoomOut   = key.NewBinding(key.WithKeys("-"))
	resetKeys = key.NewBinding(key.WithKeys("0"))
	panLeft   = key.NewBinding(key.WithKeys("left", "h"))
	panRight  = key.NewBinding(key.WithKeys("right", "l"))
	panUp     = key.NewBinding(key.WithKeys("up", "k"))
	panDown   = key.NewBinding(key.WithKeys("down", "j"))
)

// MonitorModel shows the progress of a running session and stops it on q.
type MonitorModel struct {
	session  Session
	view     View
	status   session.Status
	last     []float64
	progress progress.Model
	stopping bool
	finished bool
}

// NewMonitorModel returns a monitor for s. view may be nil.
func NewMonitorModel(s Session, view View) MonitorModel {
	return MonitorModel{
		session:  s,
		view:     view,
		status:   s.Status(),
		progress: progress.New(progress.WithDefaultGradient()),
	}
}

func (m MonitorModel) Init() tea.Cmd {
	return tick()
}

func (m MonitorModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.progress.Width = max(10, msg.Width-4)

	case tickMsg:
		m.refresh()
		select {
		case <-m.session.Done():
			m.refresh()
			m.finished = true
			return m, tea.Quit
		default:
		}
		return m, tick()

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, quitKeys):
			if m.stopping {
				return m, tea.Quit
			}
			m.stopping = true
			m.session.Stop()
		case m.view == nil:
		case key.Matches(msg, zoomIn):
			m.view.Wheel(wheelStep)
		case key.Matches(msg, zoomOut):
			m.view.Wheel(-wheelStep)
		case key.Matches(msg, resetKeys):
			m.view.Reset()
		case key.Matches(msg, panLeft):
			m.view.Pan(-panStep, 0)
		case key.Matches(msg, panRight):
			m.view.Pan(panStep, 0)
		case key.Matches(msg, panUp):
			m.view.Pan(0, -panStep)
		case key.Matches(msg, panDown):
			m.view.Pan(0, panStep)
		}
	}
	return m, nil
}

func (m *MonitorModel) refresh() {
	m.status = m.session.Status()
	if h := m.session.History(); len(h) > 0 {
		m.last = h[len(h)-1]
	}
}

func (m MonitorModel) View() string {
	s := m.status
	var sb strings.Builder

	sb.WriteString(titleStyle.Render(fmt.Sprintf("musicpainter · %s", s.Mode)))
	sb.WriteString("\n\n")

	row := func(label, value string) {
		sb.WriteString(labelStyle.Render(label))
		sb.WriteString(infoStyle.Render(value))
		sb.WriteString("\n")
	}
	row("Session", shortID(s.ID))
	row("State", s.State.String())
	row("Algorithm", s.Algorithm)
	row("Chunk size", fmt.Sprintf("%d", s.ChunkSize))
	if s.Total > 0 {
		row("Chunks", fmt.Sprintf("%d / %d", s.Chunks, s.Total))
	} else {
		row("Chunks", fmt.Sprintf("%d", s.Chunks))
	}
	row("Frequencies", formatFrequencies(m.last))
	row("Capped", fmt.Sprintf("%d", s.Capped))
	row("Primitives", fmt.Sprintf("%d", s.Primitives))
	if !s.Started.IsZero() {
		row("Elapsed", time.Since(s.Started).Truncate(100*time.Millisecond).String())
	}

	if s.Total > 0 {
		sb.WriteString("\n")
		sb.WriteString(m.progress.ViewAs(float64(s.Chunks) / float64(s.Total)))
		sb.WriteString("\n")
	}
	if s.Err != nil {
		sb.WriteString("\n")
		sb.WriteString(errorStyle.Render("Error: " + s.Err.Error()))
		sb.WriteString("\n")
	}

	sb.WriteString("\n")
	switch {
	case m.finished:
		sb.WriteString(infoStyle.Render("Session ended."))
	case m.stopping:
		sb.WriteString(infoStyle.Render("Stopping after the current chunk… q again to leave now"))
	case m.view != nil:
		sb.WriteString(infoStyle.Render("q: Stop • ←/→/↑/↓: Pan • +/-: Zoom • 0: Reset view"))
	default:
		sb.WriteString(infoStyle.Render("q: Stop"))
	}
	sb.WriteString("\n")
	return sb.String()
}

func formatFrequencies(freqs []float64) string {
	if len(freqs) == 0 {
		return "-"
	}
	parts := make([]string, len(freqs))
	for i, f := range freqs {
		parts[i] = fmt.Sprintf("%.1f Hz", f)
	}
	return strings.Join(parts, "  ")
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// RunMonitor shows the monitor until the session ends or the user leaves.
// Leaving stops the session.
func RunMonitor(s Session, view View) error {
	p := tea.NewProgram(NewMonitorModel(s, view), tea.WithAltScreen())
	_, err := p.Run()
	s.Stop()
	return err
}
