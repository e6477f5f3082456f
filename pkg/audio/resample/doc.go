// ABOUTME: Audio resampling package using linear interpolation
// ABOUTME: Converts audio between different sample rates
// Package resample provides audio sample rate conversion.
//
// Uses linear interpolation for converting between sample rates.
// Handles both upsampling and downsampling. Output length is
// floor(inputFrames * outputRate / inputRate) frames.
//
// Example:
//
//	r := resample.New(44100, 48000, 2)
//	output := make([]int16, r.OutputSamplesNeeded(len(input)))
//	n := r.Resample(input, output)
package resample
