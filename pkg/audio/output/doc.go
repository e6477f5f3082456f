// ABOUTME: Audio output package for playing audio
// ABOUTME: Provides the Sink interface with oto, malgo, pulse, null and memory backends
// Package output provides audio sinks for the playback engine.
//
// A Sink accepts interleaved s16le bytes through a non-blocking Submit and
// reports how much it took. Hardware backends (oto, malgo, pulse) keep their own
// small byte ring that the device callback drains; the null sink discards
// and the memory sink records everything for inspection in tests.
//
// Example:
//
//	sink, err := output.New("oto", output.Config{})
//	deviceFormat, err := sink.Open(audio.NewFormat(44100, 2), 8820)
//	err = sink.Start()
//	n, err := sink.Submit(pcm)
package output
