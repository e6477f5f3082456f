// ABOUTME: WAV source
// ABOUTME: Decodes WAV files with beep and re-encodes them as s16le
package decode

import (
	"fmt"
	"io"
	"math"

	"github.com/audiostream-go/audiostream/pkg/audio"
	"github.com/gopxl/beep"
	"github.com/gopxl/beep/wav"
)

// WAVSource decodes a WAV file. Mono files stay mono; everything else is
// played as stereo.
type WAVSource struct {
	stream beep.StreamSeekCloser
	format audio.Format
	frames [][2]float64
}

// NewWAV parses the WAV header from r
func NewWAV(r io.Reader) (*WAVSource, error) {
	stream, format, err := wav.Decode(r)
	if err != nil {
		return nil, fmt.Errorf("failed to decode wav: %w", err)
	}

	channels := 2
	if format.NumChannels == 1 {
		channels = 1
	}

	return &WAVSource{
		stream: stream,
		format: audio.NewFormat(int(format.SampleRate), channels),
	}, nil
}

// Read fills p with whole frames. p must hold at least one frame.
func (s *WAVSource) Read(p []byte) (int, error) {
	frameSize := s.format.BytesPerFrame()
	want := len(p) / frameSize
	if want == 0 {
		if len(p) == 0 {
			return 0, nil
		}
		return 0, io.ErrShortBuffer
	}

	if cap(s.frames) < want {
		s.frames = make([][2]float64, want)
	}
	frames := s.frames[:want]

	n, ok := s.stream.Stream(frames)
	if !ok && n == 0 {
		if err := s.stream.Err(); err != nil {
			return 0, fmt.Errorf("wav decode error: %w", err)
		}
		return 0, io.EOF
	}

	samples := make([]int16, 0, n*s.format.Channels)
	for _, frame := range frames[:n] {
		samples = append(samples, floatToInt16(frame[0]))
		if s.format.Channels == 2 {
			samples = append(samples, floatToInt16(frame[1]))
		}
	}
	return copy(p, audio.EncodeInt16(samples)), nil
}

// Format returns the decoded format
func (s *WAVSource) Format() audio.Format {
	return s.format
}

// Close closes the beep stream and its reader
func (s *WAVSource) Close() error {
	return s.stream.Close()
}

func floatToInt16(v float64) int16 {
	v = math.Round(v * 32767)
	if v > 32767 {
		return 32767
	}
	if v < -32768 {
		return -32768
	}
	return int16(v)
}
