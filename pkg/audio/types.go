// ABOUTME: Audio type definitions
// ABOUTME: Defines the PCM stream format shared by the ring, converter, sinks and engine
package audio

import (
	"errors"
	"fmt"
)

const (
	// BitDepth16 is the only sample width the pipeline carries
	BitDepth16 = 16

	// BytesPerSample for signed 16-bit PCM
	BytesPerSample = 2
)

var (
	// ErrUnsupportedFormat is returned when a format cannot be carried or converted
	ErrUnsupportedFormat = errors.New("unsupported audio format")
)

// Format describes an interleaved signed 16-bit little-endian PCM stream
type Format struct {
	SampleRate int
	Channels   int
	BitDepth   int
}

// NewFormat returns a 16-bit format with the given rate and channel count
func NewFormat(sampleRate, channels int) Format {
	return Format{
		SampleRate: sampleRate,
		Channels:   channels,
		BitDepth:   BitDepth16,
	}
}

// Validate checks that the format can be played by the pipeline
func (f Format) Validate() error {
	if f.SampleRate <= 0 {
		return fmt.Errorf("sample rate must be positive, got %d", f.SampleRate)
	}
	if f.Channels != 1 && f.Channels != 2 {
		return fmt.Errorf("channel count must be 1 or 2, got %d", f.Channels)
	}
	if f.BitDepth != BitDepth16 {
		return fmt.Errorf("%w: %d-bit samples (only 16-bit signed PCM)", ErrUnsupportedFormat, f.BitDepth)
	}
	return nil
}

// BytesPerFrame returns the size of one frame (one sample per channel)
func (f Format) BytesPerFrame() int {
	return f.Channels * BytesPerSample
}

// BytesPerSecond returns the byte rate of the stream
func (f Format) BytesPerSecond() int {
	return f.SampleRate * f.BytesPerFrame()
}

// SamplesFor returns the number of interleaved samples covering ms milliseconds
func (f Format) SamplesFor(ms int) int {
	return f.SampleRate * ms / 1000 * f.Channels
}

// String renders the format as e.g. "44100Hz stereo s16le"
func (f Format) String() string {
	return fmt.Sprintf("%dHz %s s%dle", f.SampleRate, ChannelName(f.Channels), f.BitDepth)
}

// ChannelName returns a human-readable channel layout name
func ChannelName(channels int) string {
	switch channels {
	case 1:
		return "mono"
	case 2:
		return "stereo"
	default:
		return fmt.Sprintf("%dch", channels)
	}
}
