// ABOUTME: Format converter between ingestion and device PCM formats
// ABOUTME: Adapts channel layout and sample rate of interleaved s16le buffers
package convert

import (
	"fmt"

	"github.com/audiostream-go/audiostream/pkg/audio"
	"github.com/audiostream-go/audiostream/pkg/audio/resample"
)

// ChannelPolicy selects how stereo input is reduced to a mono device
type ChannelPolicy int

const (
	// PolicyAverage downmixes each stereo frame to (L+R)/2
	PolicyAverage ChannelPolicy = iota

	// PolicyLegacyRateDoubling treats interleaved stereo as mono at twice
	// the sample rate and resamples that to the device rate. Only applies
	// to stereo input on a mono device; it exists to reproduce older
	// players and is never selected implicitly.
	PolicyLegacyRateDoubling
)

// String returns the policy name
func (p ChannelPolicy) String() string {
	switch p {
	case PolicyAverage:
		return "average"
	case PolicyLegacyRateDoubling:
		return "legacy-rate-doubling"
	default:
		return fmt.Sprintf("ChannelPolicy(%d)", int(p))
	}
}

// ParsePolicy maps a policy name to its value
func ParsePolicy(name string) (ChannelPolicy, error) {
	switch name {
	case "", "average":
		return PolicyAverage, nil
	case "legacy-rate-doubling":
		return PolicyLegacyRateDoubling, nil
	default:
		return PolicyAverage, fmt.Errorf("unknown channel policy %q", name)
	}
}

// Converter maps buffers from a source format to a destination format.
// It is stateless between Convert calls and safe for concurrent use.
type Converter struct {
	src       audio.Format
	dst       audio.Format
	policy    ChannelPolicy
	inputRate int
	resampler *resample.Resampler
}

// New creates a converter from src to dst
func New(src, dst audio.Format, policy ChannelPolicy) (*Converter, error) {
	if err := checkFormat(src); err != nil {
		return nil, fmt.Errorf("source format: %w", err)
	}
	if err := checkFormat(dst); err != nil {
		return nil, fmt.Errorf("destination format: %w", err)
	}

	c := &Converter{
		src:    src,
		dst:    dst,
		policy: policy,
	}

	// Resampling runs after downmix and before upmix, so at the narrower layout
	channels := src.Channels
	if dst.Channels < channels {
		channels = dst.Channels
	}
	inputRate := src.SampleRate
	if c.rateDoubling() {
		inputRate = src.SampleRate * src.Channels
	}
	c.inputRate = inputRate
	if inputRate != dst.SampleRate {
		c.resampler = resample.New(inputRate, dst.SampleRate, channels)
	}

	return c, nil
}

// checkFormat rejects anything but 16-bit mono or stereo
func checkFormat(f audio.Format) error {
	if f.BitDepth != audio.BitDepth16 {
		return fmt.Errorf("%w: %d-bit samples", audio.ErrUnsupportedFormat, f.BitDepth)
	}
	if f.Channels != 1 && f.Channels != 2 {
		return fmt.Errorf("%w: %d channels", audio.ErrUnsupportedFormat, f.Channels)
	}
	if f.SampleRate <= 0 {
		return fmt.Errorf("%w: sample rate %d", audio.ErrUnsupportedFormat, f.SampleRate)
	}
	return nil
}

// Identity reports whether Convert is a plain copy
func (c *Converter) Identity() bool {
	return c.src == c.dst
}

func (c *Converter) rateDoubling() bool {
	return c.policy == PolicyLegacyRateDoubling && c.src.Channels == 2 && c.dst.Channels == 1
}

// Convert returns in, interleaved in the source format, converted to the
// destination format. A trailing partial frame is ignored.
func (c *Converter) Convert(in []int16) []int16 {
	frames := len(in) / c.src.Channels
	in = in[:frames*c.src.Channels]

	if c.Identity() {
		out := make([]int16, len(in))
		copy(out, in)
		return out
	}

	buf := in
	owned := false
	if c.src.Channels == 2 && c.dst.Channels == 1 && !c.rateDoubling() {
		buf = downmix(buf)
		owned = true
	}

	if c.resampler != nil {
		out := make([]int16, c.resampler.OutputSamplesNeeded(len(buf)))
		n := c.resampler.Resample(buf, out)
		buf = out[:n]
		owned = true
	}

	if c.src.Channels == 1 && c.dst.Channels == 2 {
		return upmix(buf)
	}
	if !owned {
		// Never hand the caller's slice back
		buf = append([]int16(nil), buf...)
	}
	return buf
}

// OutputSamples returns how many samples Convert produces for inSamples
func (c *Converter) OutputSamples(inSamples int) int {
	frames := inSamples / c.src.Channels
	if c.rateDoubling() {
		frames *= c.src.Channels
	}
	frames = frames * c.dst.SampleRate / c.inputRate
	return frames * c.dst.Channels
}

// downmix averages each L/R pair, truncating toward zero
func downmix(in []int16) []int16 {
	out := make([]int16, len(in)/2)
	for i := range out {
		out[i] = int16((int32(in[i*2]) + int32(in[i*2+1])) / 2)
	}
	return out
}

// upmix duplicates each mono sample into both channels
func upmix(in []int16) []int16 {
	out := make([]int16, len(in)*2)
	for i, s := range in {
		out[i*2] = s
		out[i*2+1] = s
	}
	return out
}
