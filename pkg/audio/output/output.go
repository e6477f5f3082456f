// ABOUTME: Audio sink interface definition
// ABOUTME: Common interface the playback engine uses to reach an output device
package output

import (
	"context"
	"time"

	"github.com/audiostream-go/audiostream/pkg/audio"
)

// Sink represents an audio output device.
//
// The engine calls a Sink from a single goroutine: Open, then Start and
// any number of Submit calls, then FlushAndRelease. A sink may be opened
// again after FlushAndRelease.
type Sink interface {
	// Name returns the backend name (e.g. "oto", "pulse", "memory")
	Name() string

	// MinBufferSize returns the smallest buffer, in bytes of format f, the
	// device needs for glitch-free playback
	MinBufferSize(f audio.Format) int

	// Open prepares the device for a stream written in format f and
	// buffered with bufferBytes. It returns the format the device wants
	// samples submitted in, which may differ from f.
	Open(f audio.Format, bufferBytes int) (audio.Format, error)

	// Start begins playback. Calling Start on a started sink is a no-op.
	Start() error

	// Submit queues PCM bytes in the device format without blocking and
	// returns how many bytes were accepted. Accepting fewer than len(p)
	// means the device queue is full; the caller resubmits the rest.
	Submit(p []byte) (int, error)

	// FlushAndRelease discards anything still queued and releases the device
	FlushAndRelease() error
}

// Drainer is implemented by sinks that can wait for queued audio to
// finish playing before FlushAndRelease.
type Drainer interface {
	Drain(ctx context.Context) error
}

// New returns a sink for the named backend
func New(backend string, cfg Config) (Sink, error) {
	switch backend {
	case "oto", "":
		return NewOto(cfg), nil
	case "malgo":
		return NewMalgo(cfg), nil
	case "pulse":
		return NewPulse(cfg), nil
	case "null":
		return NewNull(cfg), nil
	case "memory":
		return NewMemory(), nil
	default:
		return nil, &UnknownBackendError{Backend: backend}
	}
}

// Config holds device options shared by the hardware backends
type Config struct {
	// SampleRate forces the device rate; 0 follows the stream
	SampleRate int

	// Channels forces the device channel count; 0 follows the stream
	Channels int

	// LatencyMs is the device buffer duration reported as the minimum
	// buffer size (default: 50)
	LatencyMs int
}

func (c Config) withDefaults() Config {
	if c.LatencyMs <= 0 {
		c.LatencyMs = 50
	}
	return c
}

// deviceFormat resolves the device format for a stream format
func (c Config) deviceFormat(f audio.Format) audio.Format {
	d := audio.NewFormat(f.SampleRate, f.Channels)
	if c.SampleRate > 0 {
		d.SampleRate = c.SampleRate
	}
	if c.Channels > 0 {
		d.Channels = c.Channels
	}
	return d
}

// minBufferBytes returns whole frames of f covering ms milliseconds
func minBufferBytes(f audio.Format, ms int) int {
	frames := (f.SampleRate*ms + 999) / 1000
	if frames < 1 {
		frames = 1
	}
	return frames * f.BytesPerFrame()
}

// deviceQueueBytes scales a stream buffer size to the device format,
// rounded to whole device frames
func deviceQueueBytes(stream, device audio.Format, bufferBytes int) int {
	frames := bufferBytes / stream.BytesPerFrame()
	frames = frames * device.SampleRate / stream.SampleRate
	if frames < 1 {
		frames = 1
	}
	return frames * device.BytesPerFrame()
}

func latencyDuration(ms int) time.Duration {
	return time.Duration(ms) * time.Millisecond
}

// wholeFrames truncates n to a multiple of frameSize
func wholeFrames(n, frameSize int) int {
	return n - n%frameSize
}

// UnknownBackendError is returned by New for an unrecognised backend name
type UnknownBackendError struct {
	Backend string
}

func (e *UnknownBackendError) Error() string {
	return "unknown output backend: " + e.Backend + " (supported: oto, malgo, pulse, null, memory)"
}
