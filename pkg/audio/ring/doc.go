// ABOUTME: Ring buffer package
// ABOUTME: Provides the SPSC circular queue between producers and audio consumers
// Package ring provides a generic fixed-capacity single-producer,
// single-consumer ring buffer.
//
// Writes never block and never allocate: when the buffer is full the
// excess is reported back to the caller. Reads can be exact (fail when
// underfilled) or short.
//
// Example:
//
//	rb := ring.New[int16](4096)
//	n := rb.WriteMany(samples)
//	batch, err := rb.ReadMany(960, false)
package ring
