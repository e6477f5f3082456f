// ABOUTME: Simple linear resampler for converting audio sample rates
// ABOUTME: Used by the format converter between ingestion and device rates
package resample

import "math"

// Resampler performs linear interpolation to convert between sample rates.
// It keeps no state between calls; every Resample call maps one input
// chunk to one output chunk.
type Resampler struct {
	inputRate  int
	outputRate int
	channels   int
}

// New creates a new resampler
func New(inputRate, outputRate, channels int) *Resampler {
	return &Resampler{
		inputRate:  inputRate,
		outputRate: outputRate,
		channels:   channels,
	}
}

// Resample converts input samples to output sample rate using linear interpolation
// input: interleaved samples at inputRate
// output: interleaved samples at outputRate
// Returns the number of samples written to output.
func (r *Resampler) Resample(input []int16, output []int16) int {
	inputFrames := len(input) / r.channels
	if inputFrames == 0 {
		return 0
	}

	outputFrames := r.OutputSamplesNeeded(len(input)) / r.channels
	if limit := len(output) / r.channels; outputFrames > limit {
		outputFrames = limit
	}

	// Same rate: nothing to interpolate
	if r.inputRate == r.outputRate {
		return copy(output, input[:outputFrames*r.channels])
	}

	last := inputFrames - 1
	for outIdx := 0; outIdx < outputFrames; outIdx++ {
		// Exact integer position avoids drift on long chunks
		num := outIdx * r.inputRate
		inputIdx := num / r.outputRate
		frac := float64(num%r.outputRate) / float64(r.outputRate)

		next := inputIdx + 1
		if next > last {
			next = last
		}

		// Interpolate each channel
		for ch := 0; ch < r.channels; ch++ {
			sample1 := float64(input[inputIdx*r.channels+ch])
			sample2 := float64(input[next*r.channels+ch])
			interpolated := sample1*(1.0-frac) + sample2*frac
			output[outIdx*r.channels+ch] = clamp16(math.Round(interpolated))
		}
	}

	return outputFrames * r.channels
}

// OutputSamplesNeeded calculates how many output samples will be produced from input samples
func (r *Resampler) OutputSamplesNeeded(inputSamples int) int {
	inputFrames := inputSamples / r.channels
	outputFrames := inputFrames * r.outputRate / r.inputRate
	return outputFrames * r.channels
}

func clamp16(v float64) int16 {
	if v > math.MaxInt16 {
		return math.MaxInt16
	}
	if v < math.MinInt16 {
		return math.MinInt16
	}
	return int16(v)
}
