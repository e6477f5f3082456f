// ABOUTME: In-memory and null sink implementations
// ABOUTME: Memory records submitted PCM for inspection, Null discards it
package output

import (
	"errors"
	"sync"

	"github.com/audiostream-go/audiostream/pkg/audio"
)

// ErrSubmitRejected is returned by a Memory sink told to fail submissions
var ErrSubmitRejected = errors.New("submit rejected")

// ErrStartRejected is returned by a Memory sink told to fail Start
var ErrStartRejected = errors.New("start rejected")

// Memory is a sink that keeps every accepted byte.
//
// The exported fields shape its behaviour and must be set before Open.
type Memory struct {
	// MinBytes is reported by MinBufferSize (default: 10ms of the format)
	MinBytes int

	// DeviceFormat overrides the format returned by Open
	DeviceFormat *audio.Format

	// MaxAccept caps how many bytes a single Submit accepts; 0 = unlimited
	MaxAccept int

	// Stall makes Submit accept nothing
	Stall bool

	// FailSubmit makes Submit return ErrSubmitRejected
	FailSubmit bool

	// FailStart makes Start return ErrStartRejected
	FailStart bool

	mu       sync.Mutex
	data     []byte
	submits  int
	starts   int
	format   audio.Format
	opened   bool
	started  bool
	released int
}

// NewMemory creates a memory sink
func NewMemory() *Memory {
	return &Memory{}
}

// Name returns "memory"
func (m *Memory) Name() string { return "memory" }

// MinBufferSize returns MinBytes or 10ms of f
func (m *Memory) MinBufferSize(f audio.Format) int {
	if m.MinBytes > 0 {
		return m.MinBytes
	}
	return minBufferBytes(f, 10)
}

// Open records the format
func (m *Memory) Open(f audio.Format, bufferBytes int) (audio.Format, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.format = f
	if m.DeviceFormat != nil {
		m.format = *m.DeviceFormat
	}
	m.opened = true
	m.started = false
	return m.format, nil
}

// Start marks the sink as playing
func (m *Memory) Start() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.starts++
	if !m.opened {
		return errors.New("output not initialized")
	}
	if m.FailStart {
		return ErrStartRejected
	}
	m.started = true
	return nil
}

// StartCalls returns how many times Start was called
func (m *Memory) StartCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.starts
}

// SetFailStart changes FailStart while the sink is in use
func (m *Memory) SetFailStart(fail bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.FailStart = fail
}

// Submit appends up to MaxAccept bytes
func (m *Memory) Submit(p []byte) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.submits++
	if m.FailSubmit {
		return 0, ErrSubmitRejected
	}
	if m.Stall {
		return 0, nil
	}

	n := len(p)
	if m.MaxAccept > 0 && n > m.MaxAccept {
		n = m.MaxAccept
	}
	m.data = append(m.data, p[:n]...)
	return n, nil
}

// FlushAndRelease marks the sink closed; recorded data is kept
func (m *Memory) FlushAndRelease() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.opened = false
	m.started = false
	m.released++
	return nil
}

// Bytes returns a copy of everything accepted so far
func (m *Memory) Bytes() []byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]byte(nil), m.data...)
}

// Samples returns everything accepted so far as int16 samples
func (m *Memory) Samples() []int16 {
	return audio.DecodeInt16(m.Bytes())
}

// Submits returns how many times Submit was called
func (m *Memory) Submits() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.submits
}

// Started reports whether Start was called since the last Open
func (m *Memory) Started() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.started
}

// Released returns how many times FlushAndRelease was called
func (m *Memory) Released() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.released
}

// SetStall changes Stall while the sink is in use
func (m *Memory) SetStall(stall bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Stall = stall
}

// Null is a sink that accepts and discards everything
type Null struct {
	config Config
}

// NewNull creates a null sink
func NewNull(cfg Config) *Null {
	return &Null{config: cfg.withDefaults()}
}

// Name returns "null"
func (n *Null) Name() string { return "null" }

// MinBufferSize returns the bytes covering the configured latency
func (n *Null) MinBufferSize(f audio.Format) int {
	return minBufferBytes(f, n.config.LatencyMs)
}

// Open returns the configured device format
func (n *Null) Open(f audio.Format, bufferBytes int) (audio.Format, error) {
	return n.config.deviceFormat(f), nil
}

// Start does nothing
func (n *Null) Start() error { return nil }

// Submit accepts everything
func (n *Null) Submit(p []byte) (int, error) { return len(p), nil }

// FlushAndRelease does nothing
func (n *Null) FlushAndRelease() error { return nil }
