// ABOUTME: Format conversion package
// ABOUTME: Channel and sample rate adaptation between ingestion and device formats
// Package convert adapts interleaved 16-bit PCM buffers from the format a
// caller writes to the format an output device plays.
//
// Mono input is duplicated onto stereo devices. Stereo input on a mono
// device is averaged per frame, or, with PolicyLegacyRateDoubling, read
// as mono at twice the rate. Rate changes use linear interpolation from
// the resample package.
//
// Example:
//
//	c, err := convert.New(audio.NewFormat(22050, 1), audio.NewFormat(48000, 2), convert.PolicyAverage)
//	if err != nil {
//	    return err
//	}
//	deviceSamples := c.Convert(samples)
package convert
