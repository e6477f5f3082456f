// ABOUTME: Irregular chunk splitter
// ABOUTME: Cuts a byte stream into randomly sized chunks, including odd sizes
package decode

import (
	"errors"
	"io"
	"math/rand/v2"
)

// Chunker reads a stream in chunks whose sizes vary between min and max
// bytes. Sizes are not aligned to samples or frames.
type Chunker struct {
	r   io.Reader
	min int
	max int
	rng *rand.Rand
	buf []byte
	eof bool
}

// NewChunker creates a chunker. The same seed yields the same sizes.
func NewChunker(r io.Reader, minSize, maxSize int, seed uint64) *Chunker {
	if minSize < 1 {
		minSize = 1
	}
	if maxSize < minSize {
		maxSize = minSize
	}
	return &Chunker{
		r:   r,
		min: minSize,
		max: maxSize,
		rng: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
		buf: make([]byte, maxSize),
	}
}

// Next returns the next chunk, or io.EOF when the stream is exhausted.
// The chunk is only valid until the next call.
func (c *Chunker) Next() ([]byte, error) {
	if c.eof {
		return nil, io.EOF
	}

	size := c.min
	if c.max > c.min {
		size += c.rng.IntN(c.max - c.min + 1)
	}

	n, err := io.ReadFull(c.r, c.buf[:size])
	switch {
	case err == nil:
		return c.buf[:n], nil
	case errors.Is(err, io.EOF), errors.Is(err, io.ErrUnexpectedEOF):
		c.eof = true
		if n == 0 {
			return nil, io.EOF
		}
		return c.buf[:n], nil
	default:
		return nil, err
	}
}
