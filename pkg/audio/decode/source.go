// ABOUTME: Source interface and file opener
// ABOUTME: Picks a decoder from the file extension
package decode

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/audiostream-go/audiostream/pkg/audio"
)

// ErrUnknownFormat is returned for a file whose format cannot be determined
var ErrUnknownFormat = errors.New("unknown audio file format")

// Source produces interleaved 16-bit little-endian PCM
type Source interface {
	io.Reader

	// Format describes the bytes returned by Read
	Format() audio.Format

	// Close releases the underlying file or stream
	Close() error
}

// SupportedExtensions lists the file extensions OpenFile understands
func SupportedExtensions() []string {
	return []string{".mp3", ".flac", ".wav", ".pcm", ".raw"}
}

// OpenFile opens path and returns a source for it. raw describes the
// layout of headerless .pcm/.raw files and is ignored otherwise.
func OpenFile(path string, raw audio.Format) (Source, error) {
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".mp3", ".flac", ".wav", ".pcm", ".raw":
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, ext)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}

	var src Source
	switch ext {
	case ".mp3":
		src, err = NewMP3(f)
	case ".flac":
		src, err = NewFLAC(f)
	case ".wav":
		src, err = NewWAV(f)
	default:
		src, err = NewPCM(f, raw)
	}
	if err != nil {
		f.Close()
		return nil, err
	}
	return src, nil
}

// closeIfCloser closes r when it is an io.Closer
func closeIfCloser(r io.Reader) error {
	if c, ok := r.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
