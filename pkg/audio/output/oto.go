// ABOUTME: Oto-based audio sink implementation
// ABOUTME: Streams submitted PCM to an oto player through a device-side queue
package output

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/audiostream-go/audiostream/pkg/audio"
	"github.com/ebitengine/oto/v3"
)

// oto allows a single context per process; every Oto sink plays through
// it with its own player and oto mixes them.
var (
	otoMu     sync.Mutex
	otoCtx    *oto.Context
	otoFormat audio.Format
)

// sharedOtoContext returns the process context, creating it in format f
// on first use
func sharedOtoContext(f audio.Format, latencyMs int) (*oto.Context, audio.Format, error) {
	otoMu.Lock()
	defer otoMu.Unlock()

	if otoCtx != nil {
		if otoFormat != f {
			log.Printf("oto context already running at %v, converting %v to it", otoFormat, f)
		}
		return otoCtx, otoFormat, nil
	}

	op := &oto.NewContextOptions{
		SampleRate:   f.SampleRate,
		ChannelCount: f.Channels,
		Format:       oto.FormatSignedInt16LE,
		BufferSize:   latencyDuration(latencyMs),
	}

	ctx, readyChan, err := oto.NewContext(op)
	if err != nil {
		return nil, audio.Format{}, fmt.Errorf("failed to create oto context: %w", err)
	}

	<-readyChan

	otoCtx = ctx
	otoFormat = f
	return otoCtx, otoFormat, nil
}

// Oto output implementation using oto library
type Oto struct {
	config Config
	player *oto.Player
	queue  *deviceQueue
	format audio.Format
	mu     sync.Mutex
}

// NewOto creates a new Oto sink
func NewOto(cfg Config) *Oto {
	return &Oto{config: cfg.withDefaults()}
}

// Name returns "oto"
func (o *Oto) Name() string { return "oto" }

// MinBufferSize returns the bytes covering the device latency
func (o *Oto) MinBufferSize(f audio.Format) int {
	return minBufferBytes(f, o.config.LatencyMs)
}

// Open attaches a player to the shared oto context
func (o *Oto) Open(f audio.Format, bufferBytes int) (audio.Format, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.player != nil {
		o.releaseLocked()
	}

	ctx, deviceFormat, err := sharedOtoContext(o.config.deviceFormat(f), o.config.LatencyMs)
	if err != nil {
		return audio.Format{}, err
	}

	o.format = deviceFormat
	o.queue = newDeviceQueue(deviceQueueBytes(f, deviceFormat, bufferBytes), deviceFormat.BytesPerFrame())
	o.player = ctx.NewPlayer(&otoReader{queue: o.queue})

	log.Printf("Audio output initialized: %v (oto)", deviceFormat)
	return deviceFormat, nil
}

// Start begins playback
func (o *Oto) Start() error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.player == nil {
		return fmt.Errorf("output not initialized")
	}
	if !o.player.IsPlaying() {
		o.queue.playing.Store(true)
		o.player.Play()
	}
	return nil
}

// Submit queues PCM bytes without blocking
func (o *Oto) Submit(p []byte) (int, error) {
	if o.queue == nil {
		return 0, fmt.Errorf("output not initialized")
	}
	return o.queue.submit(p), nil
}

// Drain waits for queued audio to reach the device, then for the player
// to play what it has already pulled in. The reader never ends, so the
// player buffer never empties; its size when the queue runs dry bounds
// how long the tail still needs.
func (o *Oto) Drain(ctx context.Context) error {
	o.mu.Lock()
	queue, player, format := o.queue, o.player, o.format
	o.mu.Unlock()

	if queue == nil {
		return nil
	}
	if err := queue.drain(ctx); err != nil {
		return err
	}
	if player == nil {
		return nil
	}
	return sleepContext(ctx, playDuration(player.BufferedSize(), format))
}

// Underruns returns how many times the device ran dry while playing
func (o *Oto) Underruns() int64 {
	if o.queue == nil {
		return 0
	}
	return o.queue.underruns.Load()
}

// FlushAndRelease closes the player; the shared context stays alive
func (o *Oto) FlushAndRelease() error {
	o.mu.Lock()
	defer o.mu.Unlock()

	return o.releaseLocked()
}

func (o *Oto) releaseLocked() error {
	if o.player == nil {
		return nil
	}
	o.queue.playing.Store(false)
	err := o.player.Close()
	o.player = nil
	if err != nil {
		return fmt.Errorf("failed to close oto player: %w", err)
	}
	return nil
}

// otoReader feeds the oto player from the device queue; it never blocks
// and never reports EOF, so silence plays while the queue is empty
type otoReader struct {
	queue *deviceQueue
}

func (r *otoReader) Read(p []byte) (int, error) {
	r.queue.fill(p)
	return len(p), nil
}

// playDuration returns how long n bytes of f take to play
func playDuration(n int, f audio.Format) time.Duration {
	bps := f.BytesPerSecond()
	if n <= 0 || bps <= 0 {
		return 0
	}
	return time.Duration(n) * time.Second / time.Duration(bps)
}

// sleepContext waits for d or until ctx is done
func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
