// ABOUTME: Bubbletea model for the playback status view
// ABOUTME: Renders engine state, formats, buffer fill and counters per session
package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/audiostream-go/audiostream/pkg/audiostream"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// SessionStatus is one engine as shown in the view
type SessionStatus struct {
	ID     string
	Remote string
	Stats  audiostream.Stats
}

// StatusMsg replaces the displayed status
type StatusMsg struct {
	Name     string
	Addr     string
	Output   string
	Source   string
	Sessions []SessionStatus
}

type tickMsg time.Time

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("205")).
			MarginBottom(1)
	headerStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("86"))
	valueStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("250"))
	sessionStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("220"))
	warnStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("203"))
	helpStyle    = lipgloss.NewStyle().Faint(true)
)

// Model represents the TUI state
type Model struct {
	title     string
	status    StatusMsg
	startTime time.Time
	detail    bool
	quitting  bool
	quitChan  chan struct{}
	width     int
}

// NewModel creates a model; quitChan may be nil
func NewModel(title string, quitChan chan struct{}) Model {
	return Model{
		title:     title,
		startTime: time.Now(),
		quitChan:  quitChan,
	}
}

// Init starts the uptime ticker
func (m Model) Init() tea.Cmd {
	return tickEvery()
}

func tickEvery() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// Update handles messages
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			m.quitting = true
			if m.quitChan != nil {
				select {
				case m.quitChan <- struct{}{}:
				default:
				}
			}
			return m, tea.Quit
		case "d":
			m.detail = !m.detail
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width

	case tickMsg:
		return m, tickEvery()

	case StatusMsg:
		m.status = msg
	}

	return m, nil
}

// View renders the TUI
func (m Model) View() string {
	if m.quitting {
		return "Shutting down...\n"
	}

	var b strings.Builder

	b.WriteString(titleStyle.Render(m.title))
	b.WriteString("\n\n")

	m.field(&b, "Name", m.status.Name)
	m.field(&b, "Listening", m.status.Addr)
	m.field(&b, "Output", m.status.Output)
	m.field(&b, "Source", m.status.Source)
	m.field(&b, "Uptime", time.Since(m.startTime).Round(time.Second).String())
	b.WriteString("\n")

	b.WriteString(sessionStyle.Render(fmt.Sprintf("Sessions (%d)", len(m.status.Sessions))))
	b.WriteString("\n\n")

	if len(m.status.Sessions) == 0 {
		b.WriteString(valueStyle.Render("  No active sessions"))
		b.WriteString("\n")
	}
	for _, s := range m.status.Sessions {
		b.WriteString(m.renderSession(s))
	}

	b.WriteString("\n")
	b.WriteString(helpStyle.Render("d: details  q: quit"))

	return b.String()
}

func (m Model) field(b *strings.Builder, name, value string) {
	if value == "" {
		return
	}
	b.WriteString(headerStyle.Render(name + ": "))
	b.WriteString(valueStyle.Render(value))
	b.WriteString("\n")
}

// renderSession renders one engine
func (m Model) renderSession(s SessionStatus) string {
	st := s.Stats
	label := s.Remote
	if label == "" {
		label = shortID(s.ID)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "  • %s %s\n", label, valueStyle.Render("["+st.State.String()+"]"))

	if st.State == audiostream.StateUninitialized {
		return b.String()
	}

	fmt.Fprintf(&b, "    %s -> %s (%s)\n", st.Format, st.DeviceFormat, st.Output)
	fmt.Fprintf(&b, "    Buffer [%s] %3d%%  %dms\n", renderBar(st.FillPercent(), 100, 20), st.FillPercent(), st.BufferedMs())

	counters := fmt.Sprintf("    RX: %d  Played: %d  Dropped: %d", st.Received, st.Played, st.Dropped)
	if st.Dropped > 0 || st.SubmitFailures > 0 {
		counters = warnStyle.Render(counters)
	}
	b.WriteString(counters)
	b.WriteString("\n")

	if m.detail {
		fmt.Fprintf(&b, "    Session: %s  Buffer: %d bytes  Submit failures: %d  Underruns: %d\n",
			shortID(st.SessionID), st.BufferBytes, st.SubmitFailures, st.Underruns)
	}
	return b.String()
}

func renderBar(value, total, width int) string {
	if total <= 0 {
		return strings.Repeat("░", width)
	}
	filled := value * width / total
	if filled > width {
		filled = width
	}
	if filled < 0 {
		filled = 0
	}
	return strings.Repeat("█", filled) + strings.Repeat("░", width-filled)
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
