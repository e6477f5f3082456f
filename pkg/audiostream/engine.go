// ABOUTME: Streaming PCM playback engine
// ABOUTME: Buffers bursty writes in a ring and drains them to a sink on a dedicated goroutine
package audiostream

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/audiostream-go/audiostream/pkg/audio"
	"github.com/audiostream-go/audiostream/pkg/audio/convert"
	"github.com/audiostream-go/audiostream/pkg/audio/output"
	"github.com/audiostream-go/audiostream/pkg/audio/ring"
	"github.com/google/uuid"
)

// State describes the engine lifecycle
type State int32

const (
	StateUninitialized State = iota
	StateReady
	StatePlaying
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateReady:
		return "ready"
	case StatePlaying:
		return "playing"
	default:
		return fmt.Sprintf("State(%d)", int32(s))
	}
}

// dropLogInterval rate-limits overflow warnings
const dropLogInterval = time.Second

const (
	// maxStartAttempts is how often a failing output is started before the
	// session stops trying until the next Write or Flush
	maxStartAttempts = 3

	// startRetryInterval spaces start attempts within one streak
	startRetryInterval = 50 * time.Millisecond
)

// Engine plays caller-supplied PCM through a sink.
//
// Write, WriteSamples, Flush, Initialize and Close may be called from any
// goroutine; producer calls are serialized internally. Samples play in
// the order they were written.
type Engine struct {
	id     string
	sink   output.Sink
	config Config

	mu      sync.Mutex
	session *session

	// current mirrors session so Close can interrupt a blocked Write
	// without waiting for mu
	current atomic.Pointer[session]
}

// session is one Initialize..Close cycle
type session struct {
	id          string
	format      audio.Format
	device      audio.Format
	bufferBytes int
	unit        int // samples per submission, whole frames
	ring        *ring.Buffer[int16]
	converter   *convert.Converter

	// producer side (guarded by Engine.mu)
	pending     []byte
	lastDropLog time.Time

	// consumer side (drain goroutine only)
	scratch      []int16
	out          []byte
	startRetryAt time.Time

	ctx       context.Context
	cancel    context.CancelFunc
	kick      chan struct{}
	space     chan struct{}
	abort     chan struct{}
	abortOnce sync.Once
	done      chan struct{}

	draining  atomic.Bool
	flushTail atomic.Bool
	state     atomic.Int32

	// output start failures: attempts in the current round, whether the
	// session gave up until new activity, and whether this streak was reported
	startAttempts atomic.Int32
	startGaveUp   atomic.Bool
	startReported atomic.Bool

	received       atomic.Int64
	played         atomic.Int64
	dropped        atomic.Int64
	submitFailures atomic.Int64
}

// New creates an engine that plays through sink
func New(sink output.Sink, config Config) *Engine {
	return &Engine{
		id:     uuid.New().String(),
		sink:   sink,
		config: config.withDefaults(),
	}
}

// ID returns the engine identifier
func (e *Engine) ID() string {
	return e.id
}

// Initialize validates format, sizes and allocates the ring buffer and
// opens the sink. Any previous session is closed first.
// bufferBytes is the requested buffer size; 0 selects the device minimum.
func (e *Engine) Initialize(format audio.Format, bufferBytes int) error {
	if err := format.Validate(); err != nil {
		if errors.Is(err, audio.ErrUnsupportedFormat) {
			return newError(KindInvalidConfig, fmt.Errorf("%w: %w", ErrUnsupportedFormat, err), "cannot initialize")
		}
		return newError(KindInvalidConfig, nil, "%v", err)
	}
	if bufferBytes < 0 {
		return newError(KindInvalidConfig, nil, "buffer size must not be negative, got %d", bufferBytes)
	}

	if prev := e.current.Load(); prev != nil {
		prev.abortWriters()
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.session != nil {
		log.Printf("[%s] Re-initializing, closing previous session", e.session.short())
		e.closeSessionLocked()
	}

	size := e.bufferSize(format, bufferBytes)

	device, err := e.sink.Open(format, size)
	if err != nil {
		return newError(KindInvalidConfig, err, "failed to open %s output", e.sink.Name())
	}

	converter, err := convert.New(format, device, e.config.ChannelPolicy)
	if err != nil {
		if releaseErr := e.sink.FlushAndRelease(); releaseErr != nil {
			log.Printf("Warning: output release error: %v", releaseErr)
		}
		return newError(KindInvalidConfig, fmt.Errorf("%w: %w", ErrUnsupportedFormat, err), "device format %v", device)
	}

	capFrames := size / format.BytesPerFrame()
	if capFrames < 2 {
		capFrames = 2
	}
	unitFrames := format.SampleRate * e.config.WriteUnitMs / 1000
	if unitFrames > capFrames/2 {
		unitFrames = capFrames / 2
	}
	if unitFrames < 1 {
		unitFrames = 1
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &session{
		id:          uuid.New().String(),
		format:      format,
		device:      device,
		bufferBytes: size,
		unit:        unitFrames * format.Channels,
		ring:        ring.New[int16](capFrames * format.Channels),
		converter:   converter,
		scratch:     make([]int16, unitFrames*format.Channels),
		out:         make([]byte, 0, converter.OutputSamples(unitFrames*format.Channels)*audio.BytesPerSample),
		ctx:         ctx,
		cancel:      cancel,
		kick:        make(chan struct{}, 1),
		space:       make(chan struct{}, 1),
		abort:       make(chan struct{}),
		done:        make(chan struct{}),
	}
	s.state.Store(int32(StateReady))

	e.session = s
	e.current.Store(s)
	go e.run(s)

	log.Printf("[%s] Initialized: %v -> %v (%s), buffer %d bytes, unit %d frames",
		s.short(), format, device, e.sink.Name(), size, unitFrames)
	return nil
}

// bufferSize clamps the requested size between the device minimum and the
// memory ceiling; when the device minimum exceeds the ceiling it wins
func (e *Engine) bufferSize(format audio.Format, requested int) int {
	minBytes := e.sink.MinBufferSize(format)
	maxBytes := format.BytesPerSecond() * e.config.MaxBufferSeconds

	size := requested
	if size > maxBytes {
		size = maxBytes
	}
	if size < minBytes {
		size = minBytes
	}
	return size
}

// Write queues little-endian 16-bit PCM bytes. Chunks may split samples;
// a trailing odd byte is held until the next call.
func (e *Engine) Write(data []byte) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	s := e.session
	if s == nil {
		return newError(KindNotInitialized, nil, "call Initialize before Write")
	}

	if len(s.pending) > 0 {
		data = append(s.pending, data...)
		s.pending = nil
	}
	if len(data)%audio.BytesPerSample != 0 {
		s.pending = []byte{data[len(data)-1]}
	}

	return e.enqueue(s, audio.DecodeInt16(data))
}

// WriteSamples queues interleaved samples
func (e *Engine) WriteSamples(samples []int16) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	s := e.session
	if s == nil {
		return newError(KindNotInitialized, nil, "call Initialize before Write")
	}

	return e.enqueue(s, samples)
}

// enqueue writes samples to the ring, applying the overflow policy (must hold e.mu)
func (e *Engine) enqueue(s *session, samples []int16) error {
	if len(samples) == 0 {
		return nil
	}
	s.received.Add(int64(len(samples)))
	s.rearmStart()

	var timer *time.Timer
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		n := s.ring.WriteMany(samples)
		samples = samples[n:]
		s.signal()

		if len(samples) == 0 {
			return nil
		}

		if e.config.Overflow == OverflowDrop {
			e.drop(s, len(samples))
			return nil
		}

		if timer == nil {
			timer = time.NewTimer(e.config.WriteTimeout)
		}

		select {
		case <-s.space:
		case <-timer.C:
			e.drop(s, len(samples))
			return newError(KindBufferOverflow, nil, "no room for %d samples after %v", len(samples), e.config.WriteTimeout)
		case <-s.abort:
			e.drop(s, len(samples))
			return newError(KindNotInitialized, nil, "engine closed during write")
		}
	}
}

// drop counts discarded samples and logs at most once per interval (must hold e.mu)
func (e *Engine) drop(s *session, n int) {
	total := s.dropped.Add(int64(n))
	if time.Since(s.lastDropLog) >= dropLogInterval {
		s.lastDropLog = time.Now()
		log.Printf("[%s] Buffer full, dropped %d samples (%d total)", s.short(), n, total)
	}
}

// Flush submits everything buffered, including a tail shorter than one
// write unit, and waits until the ring is empty or ctx is done
func (e *Engine) Flush(ctx context.Context) error {
	e.mu.Lock()
	s := e.session
	e.mu.Unlock()

	if s == nil {
		return newError(KindNotInitialized, nil, "call Initialize before Flush")
	}

	s.rearmStart()
	s.flushTail.Store(true)
	s.signal()
	return s.waitDrained(ctx)
}

// Close stops playback and releases the ring buffer and the sink. With
// CloseDrain, buffered audio is played out first. Close is idempotent and
// always returns nil.
func (e *Engine) Close() error {
	if s := e.current.Load(); s != nil {
		s.abortWriters()
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.session != nil {
		e.closeSessionLocked()
	}
	return nil
}

// closeSessionLocked drains (per policy), stops the consumer and releases
// the sink (must hold e.mu)
func (e *Engine) closeSessionLocked() {
	s := e.session

	if e.config.Close == CloseDrain {
		ctx, cancel := context.WithTimeout(context.Background(), e.config.CloseTimeout)
		s.flushTail.Store(true)
		s.signal()
		if err := s.waitDrained(ctx); err != nil {
			log.Printf("[%s] Close drain incomplete: %v", s.short(), err)
		} else if d, ok := e.sink.(output.Drainer); ok {
			if err := d.Drain(ctx); err != nil {
				log.Printf("[%s] Output drain incomplete: %v", s.short(), err)
			}
		}
		cancel()
	}

	s.cancel()
	<-s.done

	if err := e.sink.FlushAndRelease(); err != nil {
		log.Printf("[%s] Warning: output release error: %v", s.short(), err)
	}

	discarded := s.ring.Size()
	s.dropped.Add(int64(discarded))

	stats := e.statsFor(s)
	log.Printf("[%s] Closed: received=%d played=%d dropped=%d discarded=%d submit_failures=%d",
		s.short(), stats.Received, stats.Played, stats.Dropped, discarded, stats.SubmitFailures)

	s.state.Store(int32(StateUninitialized))
	e.session = nil
	e.current.Store(nil)
}

// run is the consumer goroutine of a session
func (e *Engine) run(s *session) {
	defer close(s.done)

	for {
		select {
		case <-s.ctx.Done():
			return
		case <-s.kick:
			e.playBuffer(s)
		}
	}
}

// playBuffer drains whole write units from the ring into the sink.
// Only one pass runs at a time; a concurrent call returns immediately.
func (e *Engine) playBuffer(s *session) {
	if !s.draining.CompareAndSwap(false, true) {
		return
	}
	defer s.draining.Store(false)

	frame := s.format.Channels
	for s.ctx.Err() == nil {
		size := s.ring.Size()
		tail := s.flushTail.Load() && size >= frame

		// Start once more than one unit is buffered; keep going while a full unit is
		if State(s.state.Load()) != StatePlaying {
			if size <= s.unit && !tail {
				break
			}
			if !e.startOutput(s) {
				break
			}
			e.setState(s, StatePlaying)
		}
		if size < s.unit && !tail {
			break
		}

		n := s.unit
		if size < n {
			n = size - size%frame
		}
		n = s.ring.ReadInto(s.scratch[:n])
		select {
		case s.space <- struct{}{}:
		default:
		}

		s.out = audio.AppendInt16(s.out[:0], s.converter.Convert(s.scratch[:n]))
		accepted := e.submit(s, s.out)
		if accepted >= len(s.out) {
			s.played.Add(int64(n))
			continue
		}

		// Split the batch by how much of its output the sink took
		played := 0
		if len(s.out) > 0 {
			played = n * accepted / len(s.out)
			played -= played % frame
		}
		s.played.Add(int64(played))
		s.dropped.Add(int64(n - played))
	}

	if s.ring.Size() < frame {
		s.flushTail.Store(false)
		if s.ctx.Err() == nil && State(s.state.Load()) == StatePlaying {
			e.setState(s, StateReady)
		}
	}
}

// startOutput starts the sink, retrying at most maxStartAttempts times
// per round of activity. Only the first failure of a streak is reported.
func (e *Engine) startOutput(s *session) bool {
	if s.startGaveUp.Load() || time.Now().Before(s.startRetryAt) {
		return false
	}

	err := e.sink.Start()
	if err == nil {
		s.startAttempts.Store(0)
		s.startReported.Store(false)
		s.startRetryAt = time.Time{}
		return true
	}

	attempts := s.startAttempts.Add(1)
	s.startRetryAt = time.Now().Add(startRetryInterval)
	if !s.startReported.Swap(true) {
		e.report(newError(KindSinkSubmissionFailure, err, "failed to start %s output", e.sink.Name()))
	}
	if attempts >= maxStartAttempts {
		s.startGaveUp.Store(true)
	}
	return false
}

// submit hands one batch to the sink, resubmitting the unaccepted
// remainder until it is taken or SubmitTimeout passes without progress.
// It returns how many bytes the sink accepted.
func (e *Engine) submit(s *session, batch []byte) int {
	deadline := time.Now().Add(e.config.SubmitTimeout)
	var lastErr error
	var timer *time.Timer
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for offset := 0; ; {
		n, err := e.sink.Submit(batch[offset:])
		offset += n
		if offset >= len(batch) {
			return offset
		}
		if err != nil {
			lastErr = err
		}
		if n > 0 {
			deadline = time.Now().Add(e.config.SubmitTimeout)
		} else if time.Now().After(deadline) {
			s.submitFailures.Add(1)
			e.report(newError(KindSinkSubmissionFailure, lastErr,
				"%s output took %d of %d bytes in %v, dropping the rest", e.sink.Name(), offset, len(batch), e.config.SubmitTimeout))
			return offset
		}

		if timer == nil {
			timer = time.NewTimer(e.config.SubmitRetryInterval)
		} else {
			timer.Reset(e.config.SubmitRetryInterval)
		}
		select {
		case <-s.ctx.Done():
			return offset
		case <-timer.C:
		}
	}
}

// report logs a recoverable error and passes it to OnError
func (e *Engine) report(err error) {
	log.Printf("Warning: %v", err)
	if e.config.OnError != nil {
		e.config.OnError(err)
	}
}

func (e *Engine) setState(s *session, state State) {
	if State(s.state.Swap(int32(state))) == state {
		return
	}
	if e.config.OnStateChange != nil {
		e.config.OnStateChange(state)
	}
}

// signal wakes the consumer without blocking
func (s *session) signal() {
	select {
	case s.kick <- struct{}{}:
	default:
	}
}

// rearmStart lets a session that gave up on a failing output try again
func (s *session) rearmStart() {
	if s.startGaveUp.Load() {
		s.startAttempts.Store(0)
		s.startGaveUp.Store(false)
	}
}

// abortWriters releases a Write blocked on a full ring
func (s *session) abortWriters() {
	s.abortOnce.Do(func() { close(s.abort) })
}

// waitDrained polls until the ring holds less than one frame and no drain
// pass is running. It fails once the output has given up starting.
func (s *session) waitDrained(ctx context.Context) error {
	ticker := time.NewTicker(2 * time.Millisecond)
	defer ticker.Stop()

	for {
		if s.ring.Size() < s.format.Channels && !s.draining.Load() {
			return nil
		}
		if s.startGaveUp.Load() && !s.draining.Load() {
			return newError(KindSinkSubmissionFailure, nil, "output could not be started, %d samples left unplayed", s.ring.Size())
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-s.done:
			return nil
		case <-ticker.C:
			s.signal()
		}
	}
}

func (s *session) short() string {
	return s.id[:8]
}

// State returns the current lifecycle state
func (e *Engine) State() State {
	if s := e.current.Load(); s != nil {
		return State(s.state.Load())
	}
	return StateUninitialized
}

// Format returns the ingestion format of the current session
func (e *Engine) Format() (audio.Format, bool) {
	if s := e.current.Load(); s != nil {
		return s.format, true
	}
	return audio.Format{}, false
}

// BufferBytes returns the size the ring buffer was allocated for, or 0
func (e *Engine) BufferBytes() int {
	if s := e.current.Load(); s != nil {
		return s.bufferBytes
	}
	return 0
}
