// ABOUTME: Streaming PCM playback package
// ABOUTME: Provides the Engine that buffers, converts and plays caller-supplied PCM
// Package audiostream plays raw 16-bit PCM that arrives in small,
// irregular chunks.
//
// An Engine owns a ring buffer and an output sink. Write appends to the
// ring without touching the device; a per-session goroutine starts
// playback once more than one write unit (20ms by default) is buffered,
// converts each unit to the device format and submits it with a
// non-blocking, time-bounded retry. Close plays out what is buffered
// (or discards it, per Config.Close) and releases the sink.
//
// Engines are independent: create as many as needed, each with its own
// sink.
//
// Example:
//
//	engine := audiostream.New(output.NewOto(output.Config{}), audiostream.Config{})
//	if err := engine.Initialize(audio.NewFormat(44100, 2), 0); err != nil {
//	    return err
//	}
//	defer engine.Close()
//
//	for chunk := range chunks {
//	    if err := engine.Write(chunk); err != nil {
//	        log.Printf("write failed: %v", err)
//	    }
//	}
package audiostream
