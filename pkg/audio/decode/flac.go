// ABOUTME: FLAC source
// ABOUTME: Decodes FLAC frame by frame with mewkiz/flac and rescales to 16-bit
package decode

import (
	"errors"
	"fmt"
	"io"

	"github.com/audiostream-go/audiostream/pkg/audio"
	"github.com/mewkiz/flac"
)

// FLACSource decodes FLAC audio. Files with more than two channels play
// their first two.
type FLACSource struct {
	r        io.Reader
	stream   *flac.Stream
	format   audio.Format
	bitDepth int
	pending  []byte
}

// NewFLAC parses the FLAC stream header from r
func NewFLAC(r io.Reader) (*FLACSource, error) {
	stream, err := flac.New(r)
	if err != nil {
		return nil, fmt.Errorf("failed to decode flac: %w", err)
	}

	channels := int(stream.Info.NChannels)
	if channels > 2 {
		channels = 2
	}

	return &FLACSource{
		r:        r,
		stream:   stream,
		format:   audio.NewFormat(int(stream.Info.SampleRate), channels),
		bitDepth: int(stream.Info.BitsPerSample),
	}, nil
}

// Read returns decoded PCM bytes, parsing frames as needed
func (s *FLACSource) Read(p []byte) (int, error) {
	for len(s.pending) == 0 {
		frame, err := s.stream.ParseNext()
		if errors.Is(err, io.EOF) {
			return 0, io.EOF
		}
		if err != nil {
			return 0, fmt.Errorf("flac decode error: %w", err)
		}

		blockSize := int(frame.BlockSize)
		samples := make([]int16, 0, blockSize*s.format.Channels)
		for i := 0; i < blockSize; i++ {
			for ch := 0; ch < s.format.Channels; ch++ {
				samples = append(samples, s.toInt16(frame.Subframes[ch].Samples[i]))
			}
		}
		s.pending = audio.AppendInt16(s.pending[:0], samples)
	}

	n := copy(p, s.pending)
	s.pending = s.pending[n:]
	return n, nil
}

// toInt16 rescales a sample of the stream's bit depth
func (s *FLACSource) toInt16(v int32) int16 {
	switch {
	case s.bitDepth > 16:
		return int16(v >> (s.bitDepth - 16))
	case s.bitDepth < 16:
		return int16(v << (16 - s.bitDepth))
	default:
		return int16(v)
	}
}

// Format returns the decoded format
func (s *FLACSource) Format() audio.Format {
	return s.format
}

// Close closes the underlying reader if it is closable
func (s *FLACSource) Close() error {
	return closeIfCloser(s.r)
}
