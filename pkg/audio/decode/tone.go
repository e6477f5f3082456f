// ABOUTME: Test tone source
// ABOUTME: Generates a sine wave as s16le PCM, endless or for a fixed duration
package decode

import (
	"io"
	"math"
	"time"

	"github.com/audiostream-go/audiostream/pkg/audio"
)

// ToneSource generates a sine tone at half volume on every channel
type ToneSource struct {
	format      audio.Format
	frequency   float64
	sampleIndex uint64
	limit       uint64 // total frames, 0 = endless
}

// NewTone creates a tone generator. A zero duration never ends.
func NewTone(format audio.Format, frequency float64, duration time.Duration) *ToneSource {
	var limit uint64
	if duration > 0 {
		limit = uint64(duration * time.Duration(format.SampleRate) / time.Second)
	}
	return &ToneSource{
		format:    format,
		frequency: frequency,
		limit:     limit,
	}
}

// Read fills p with whole frames
func (s *ToneSource) Read(p []byte) (int, error) {
	frames := uint64(len(p) / s.format.BytesPerFrame())
	if s.limit > 0 {
		if s.sampleIndex >= s.limit {
			return 0, io.EOF
		}
		if left := s.limit - s.sampleIndex; frames > left {
			frames = left
		}
	}

	samples := make([]int16, 0, int(frames)*s.format.Channels)
	for i := uint64(0); i < frames; i++ {
		t := float64(s.sampleIndex+i) / float64(s.format.SampleRate)
		value := int16(math.Sin(2*math.Pi*s.frequency*t) * 32767.0 * 0.5)
		for ch := 0; ch < s.format.Channels; ch++ {
			samples = append(samples, value)
		}
	}
	s.sampleIndex += frames

	return copy(p, audio.EncodeInt16(samples)), nil
}

// Format returns the generated format
func (s *ToneSource) Format() audio.Format {
	return s.format
}

// Close does nothing
func (s *ToneSource) Close() error { return nil }
