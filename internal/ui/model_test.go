// ABOUTME: Tests for TUI model and state management
// ABOUTME: Tests status updates, key handling and rendering
package ui

import (
	"strings"
	"testing"

	"github.com/audiostream-go/audiostream/pkg/audio"
	"github.com/audiostream-go/audiostream/pkg/audiostream"
	tea "github.com/charmbracelet/bubbletea"
)

func playingSession() SessionStatus {
	return SessionStatus{
		ID:     "0123456789abcdef",
		Remote: "10.0.0.5:51234",
		Stats: audiostream.Stats{
			SessionID:    "fedcba9876543210",
			State:        audiostream.StatePlaying,
			Format:       audio.NewFormat(44100, 2),
			DeviceFormat: audio.NewFormat(48000, 2),
			Output:       "oto",
			BufferBytes:  17640,
			Capacity:     8820,
			Buffered:     4410,
			Received:     1000,
			Played:       900,
		},
	}
}

func TestNewModel(t *testing.T) {
	model := NewModel("audiostream", nil)

	if model.quitting {
		t.Error("expected quitting to be false initially")
	}
	if model.detail {
		t.Error("expected detail to be false initially")
	}
	if len(model.status.Sessions) != 0 {
		t.Error("expected no sessions initially")
	}
}

func TestStatusMsgReplacesStatus(t *testing.T) {
	model := NewModel("audiostream", nil)

	updated, _ := model.Update(StatusMsg{Name: "bridge", Sessions: []SessionStatus{playingSession()}})
	m := updated.(Model)
	if m.status.Name != "bridge" || len(m.status.Sessions) != 1 {
		t.Fatalf("unexpected status %+v", m.status)
	}

	updated, _ = m.Update(StatusMsg{Name: "bridge"})
	m = updated.(Model)
	if len(m.status.Sessions) != 0 {
		t.Error("expected sessions to be replaced")
	}
}

func TestKeyHandling(t *testing.T) {
	quit := make(chan struct{}, 1)
	model := NewModel("audiostream", quit)

	updated, _ := model.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'d'}})
	m := updated.(Model)
	if !m.detail {
		t.Error("expected d to toggle detail")
	}

	updated, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'q'}})
	m = updated.(Model)
	if !m.quitting {
		t.Error("expected q to set quitting")
	}
	if cmd == nil {
		t.Error("expected a quit command")
	}
	select {
	case <-quit:
	default:
		t.Error("expected quit to be signalled")
	}
	if !strings.Contains(m.View(), "Shutting down") {
		t.Error("expected shutdown view")
	}
}

func TestViewRendersSession(t *testing.T) {
	model := NewModel("audiostream", nil)
	updated, _ := model.Update(StatusMsg{
		Name:     "bridge",
		Output:   "oto",
		Sessions: []SessionStatus{playingSession()},
	})
	view := updated.(Model).View()

	for _, want := range []string{"10.0.0.5:51234", "playing", "44100Hz stereo s16le", "48000Hz stereo", "50%", "RX: 1000"} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing %q:\n%s", want, view)
		}
	}
	if strings.Contains(view, "Underruns") {
		t.Error("details shown without d")
	}
}

func TestViewUninitializedSession(t *testing.T) {
	model := NewModel("audiostream", nil)
	updated, _ := model.Update(StatusMsg{Sessions: []SessionStatus{{ID: "abcdef0123456789"}}})
	view := updated.(Model).View()

	if !strings.Contains(view, "abcdef01") || !strings.Contains(view, "uninitialized") {
		t.Errorf("unexpected view:\n%s", view)
	}
	if strings.Contains(view, "Buffer [") {
		t.Error("buffer bar shown for uninitialized session")
	}
}

func TestRenderBar(t *testing.T) {
	tests := []struct {
		value, max, width int
		want              string
	}{
		{0, 100, 4, "░░░░"},
		{50, 100, 4, "██░░"},
		{100, 100, 4, "████"},
		{150, 100, 4, "████"},
		{5, 0, 2, "░░"},
	}

	for _, tt := range tests {
		if got := renderBar(tt.value, tt.max, tt.width); got != tt.want {
			t.Errorf("renderBar(%d, %d, %d) = %q, want %q", tt.value, tt.max, tt.width, got, tt.want)
		}
	}
}
