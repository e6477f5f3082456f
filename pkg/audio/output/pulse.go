// ABOUTME: PulseAudio sink implementation
// ABOUTME: Speaks the native pulse protocol in pure Go; the stream reader drains the submit queue
package output

import (
	"context"
	"encoding/binary"
	"fmt"
	"log"
	"sync"

	"github.com/audiostream-go/audiostream/pkg/audio"
	"github.com/jfreymuth/pulse"
)

// Pulse output implementation using a PulseAudio playback stream
type Pulse struct {
	config  Config
	client  *pulse.Client
	stream  *pulse.PlaybackStream
	queue   *deviceQueue
	scratch []byte
	format  audio.Format
	started bool
	mu      sync.Mutex
}

// NewPulse creates a new PulseAudio sink
func NewPulse(cfg Config) *Pulse {
	return &Pulse{config: cfg.withDefaults()}
}

// Name returns "pulse"
func (p *Pulse) Name() string { return "pulse" }

// MinBufferSize returns the bytes covering the stream latency
func (p *Pulse) MinBufferSize(f audio.Format) int {
	return minBufferBytes(f, p.config.LatencyMs)
}

// Open connects to the pulse server and creates a corked playback stream
func (p *Pulse) Open(f audio.Format, bufferBytes int) (audio.Format, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	deviceFormat := p.config.deviceFormat(f)
	if deviceFormat.Channels > 2 {
		return audio.Format{}, fmt.Errorf("pulse output supports mono or stereo, got %d channels", deviceFormat.Channels)
	}

	if p.stream != nil {
		log.Printf("Reopening pulse stream (%v -> %v)", p.format, deviceFormat)
		p.closeStream()
	}

	if p.client == nil {
		client, err := pulse.NewClient(pulse.ClientApplicationName("audiostream"))
		if err != nil {
			return audio.Format{}, fmt.Errorf("failed to connect to pulse server: %w", err)
		}
		p.client = client
	}

	p.queue = newDeviceQueue(deviceQueueBytes(f, deviceFormat, bufferBytes), deviceFormat.BytesPerFrame())
	p.format = deviceFormat

	layout := pulse.PlaybackMono
	if deviceFormat.Channels == 2 {
		layout = pulse.PlaybackStereo
	}

	stream, err := p.client.NewPlayback(
		pulse.Int16Reader(p.read),
		layout,
		pulse.PlaybackSampleRate(deviceFormat.SampleRate),
		pulse.PlaybackLatency(latencyDuration(p.config.LatencyMs).Seconds()),
	)
	if err != nil {
		return audio.Format{}, fmt.Errorf("failed to create pulse stream: %w", err)
	}

	p.stream = stream
	p.started = false

	log.Printf("Audio output initialized: %v (pulse)", deviceFormat)
	return deviceFormat, nil
}

// read is called by the pulse client whenever the server requests data
func (p *Pulse) read(out []int16) (int, error) {
	need := len(out) * 2
	if cap(p.scratch) < need {
		p.scratch = make([]byte, need)
	}
	buf := p.scratch[:need]
	p.queue.fill(buf)
	for i := range out {
		out[i] = int16(binary.LittleEndian.Uint16(buf[i*2:]))
	}
	return len(out), nil
}

// Start uncorks the stream
func (p *Pulse) Start() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.stream == nil {
		return fmt.Errorf("output not initialized")
	}
	if p.started {
		return nil
	}
	p.queue.playing.Store(true)
	p.stream.Start()
	if err := p.stream.Error(); err != nil {
		return fmt.Errorf("failed to start pulse stream: %w", err)
	}
	p.started = true
	return nil
}

// Submit queues PCM bytes without blocking
func (p *Pulse) Submit(b []byte) (int, error) {
	if p.queue == nil {
		return 0, fmt.Errorf("output not initialized")
	}
	return p.queue.submit(b), nil
}

// Drain waits for queued audio to reach the server
func (p *Pulse) Drain(ctx context.Context) error {
	if p.queue == nil || !p.started {
		return nil
	}
	return p.queue.drain(ctx)
}

// Underruns returns how many times the stream ran dry while playing
func (p *Pulse) Underruns() int64 {
	if p.queue == nil {
		return 0
	}
	return p.queue.underruns.Load()
}

// FlushAndRelease closes the stream and the server connection
func (p *Pulse) FlushAndRelease() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.closeStream()
	if p.client != nil {
		p.client.Close()
		p.client = nil
	}
	return nil
}

// closeStream stops and closes the playback stream (must hold p.mu)
func (p *Pulse) closeStream() {
	if p.stream == nil {
		return
	}
	if p.queue != nil {
		p.queue.playing.Store(false)
	}
	p.stream.Stop()
	p.stream.Close()
	p.stream = nil
	p.started = false
}
