// ABOUTME: Audio fundamentals package providing core types and utilities
// ABOUTME: Defines Format and the s16le sample codec
// Package audio provides the fundamental PCM types used by audiostream.
//
// The pipeline only carries signed 16-bit little-endian interleaved
// samples. Format describes such a stream and validates it; DecodeInt16
// and EncodeInt16 move samples between byte and int16 form.
//
// Example:
//
//	format := audio.NewFormat(44100, 2)
//	if err := format.Validate(); err != nil {
//	    return err
//	}
//	samples := audio.DecodeInt16(chunk)
package audio
