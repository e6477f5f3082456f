// ABOUTME: Playback engine statistics
// ABOUTME: Snapshot of buffer fill and sample counters for a session
package audiostream

import "github.com/audiostream-go/audiostream/pkg/audio"

// Stats contains playback statistics. Sample counts are in the
// ingestion format.
type Stats struct {
	SessionID      string
	State          State
	Format         audio.Format
	DeviceFormat   audio.Format
	Output         string
	BufferBytes    int
	Capacity       int   // ring capacity in samples
	Buffered       int   // samples waiting in the ring
	Received       int64 // samples accepted by Write
	Played         int64 // samples submitted to the output
	Dropped        int64 // samples discarded on overflow, by timed out batches or by Close
	SubmitFailures int64 // batches the output did not take in time
	Underruns      int64 // device underruns, when the output reports them
}

// BufferedMs returns the buffered duration in milliseconds
func (s Stats) BufferedMs() int {
	if s.Format.SampleRate == 0 || s.Format.Channels == 0 {
		return 0
	}
	return s.Buffered / s.Format.Channels * 1000 / s.Format.SampleRate
}

// FillPercent returns how full the ring is, 0-100
func (s Stats) FillPercent() int {
	if s.Capacity == 0 {
		return 0
	}
	return s.Buffered * 100 / s.Capacity
}

// underrunReporter is implemented by outputs that count device underruns
type underrunReporter interface {
	Underruns() int64
}

// Stats returns a snapshot of the current session
func (e *Engine) Stats() Stats {
	s := e.current.Load()
	if s == nil {
		return Stats{State: StateUninitialized, Output: e.sink.Name()}
	}
	return e.statsFor(s)
}

func (e *Engine) statsFor(s *session) Stats {
	stats := Stats{
		SessionID:      s.id,
		State:          State(s.state.Load()),
		Format:         s.format,
		DeviceFormat:   s.device,
		Output:         e.sink.Name(),
		BufferBytes:    s.bufferBytes,
		Capacity:       s.ring.Capacity(),
		Buffered:       s.ring.Size(),
		Received:       s.received.Load(),
		Played:         s.played.Load(),
		Dropped:        s.dropped.Load(),
		SubmitFailures: s.submitFailures.Load(),
	}
	if u, ok := e.sink.(underrunReporter); ok {
		stats.Underruns = u.Underruns()
	}
	return stats
}
