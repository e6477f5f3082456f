// ABOUTME: MP3 source
// ABOUTME: Decodes MP3 to stereo 16-bit PCM with go-mp3
package decode

import (
	"fmt"
	"io"
	"time"

	"github.com/audiostream-go/audiostream/pkg/audio"
	"github.com/hajimehoshi/go-mp3"
)

// MP3Source decodes MP3 audio. go-mp3 always produces stereo s16le at
// the stream's sample rate.
type MP3Source struct {
	r       io.Reader
	decoder *mp3.Decoder
	format  audio.Format
}

// NewMP3 creates a decoder reading from r. The first frame is parsed
// immediately to learn the sample rate.
func NewMP3(r io.Reader) (*MP3Source, error) {
	decoder, err := mp3.NewDecoder(r)
	if err != nil {
		return nil, fmt.Errorf("failed to create mp3 decoder: %w", err)
	}

	return &MP3Source{
		r:       r,
		decoder: decoder,
		format:  audio.NewFormat(decoder.SampleRate(), 2),
	}, nil
}

// Read returns decoded PCM bytes
func (s *MP3Source) Read(p []byte) (int, error) {
	n, err := s.decoder.Read(p)
	if err != nil && err != io.EOF {
		return n, fmt.Errorf("mp3 decode error: %w", err)
	}
	return n, err
}

// Format returns the decoded format
func (s *MP3Source) Format() audio.Format {
	return s.format
}

// Duration returns the stream length, or 0 when the reader is not seekable
func (s *MP3Source) Duration() time.Duration {
	length := s.decoder.Length()
	if length <= 0 {
		return 0
	}
	frames := length / int64(s.format.BytesPerFrame())
	return time.Duration(frames) * time.Second / time.Duration(s.format.SampleRate)
}

// Close closes the underlying reader if it is closable
func (s *MP3Source) Close() error {
	return closeIfCloser(s.r)
}
