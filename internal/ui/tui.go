// ABOUTME: TUI initialization and control
// ABOUTME: Wraps the bubbletea program and feeds it status updates
package ui

import (
	"sync"

	tea "github.com/charmbracelet/bubbletea"
)

// TUI runs the status view
type TUI struct {
	title    string
	updates  chan StatusMsg
	quitChan chan struct{}

	mu      sync.Mutex
	program *tea.Program
	stopped bool
}

// NewTUI creates a status view with the given title
func NewTUI(title string) *TUI {
	return &TUI{
		title:    title,
		updates:  make(chan StatusMsg, 10),
		quitChan: make(chan struct{}, 1),
	}
}

// Start runs the program until it quits
func (t *TUI) Start() error {
	program := tea.NewProgram(NewModel(t.title, t.quitChan), tea.WithAltScreen())

	t.mu.Lock()
	if t.stopped {
		t.mu.Unlock()
		return nil
	}
	t.program = program
	t.mu.Unlock()

	go func() {
		for status := range t.updates {
			program.Send(status)
		}
	}()

	_, err := program.Run()
	return err
}

// Update sends a status update without blocking
func (t *TUI) Update(status StatusMsg) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.stopped {
		return
	}
	select {
	case t.updates <- status:
	default:
	}
}

// Stop quits the program
func (t *TUI) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.stopped {
		return
	}
	t.stopped = true
	if t.program != nil {
		t.program.Quit()
	}
	close(t.updates)
}

// QuitChan signals when the user asks to quit
func (t *TUI) QuitChan() <-chan struct{} {
	return t.quitChan
}
