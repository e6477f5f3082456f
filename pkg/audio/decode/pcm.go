// ABOUTME: Raw PCM source
// ABOUTME: Passes headerless s16le bytes through with a caller-supplied format
package decode

import (
	"fmt"
	"io"

	"github.com/audiostream-go/audiostream/pkg/audio"
)

// PCMSource reads headerless 16-bit PCM
type PCMSource struct {
	r      io.Reader
	format audio.Format
}

// NewPCM wraps r, which must already hold s16le samples in format
func NewPCM(r io.Reader, format audio.Format) (*PCMSource, error) {
	if err := format.Validate(); err != nil {
		return nil, fmt.Errorf("invalid raw PCM format: %w", err)
	}
	return &PCMSource{r: r, format: format}, nil
}

// Read reads raw PCM bytes
func (s *PCMSource) Read(p []byte) (int, error) {
	return s.r.Read(p)
}

// Format returns the configured format
func (s *PCMSource) Format() audio.Format {
	return s.format
}

// Close closes the underlying reader if it is closable
func (s *PCMSource) Close() error {
	return closeIfCloser(s.r)
}
