// ABOUTME: Malgo-based audio sink implementation
// ABOUTME: Uses miniaudio via malgo; the device callback drains the submit queue
package output

import (
	"context"
	"fmt"
	"log"
	"sync"

	"github.com/audiostream-go/audiostream/pkg/audio"
	"github.com/gen2brain/malgo"
)

// Malgo output implementation using malgo/miniaudio library
type Malgo struct {
	config   Config
	malgoCtx *malgo.AllocatedContext
	device   *malgo.Device
	queue    *deviceQueue
	format   audio.Format
	started  bool
	mu       sync.Mutex
}

// NewMalgo creates a new Malgo sink
func NewMalgo(cfg Config) *Malgo {
	return &Malgo{config: cfg.withDefaults()}
}

// Name returns "malgo"
func (m *Malgo) Name() string { return "malgo" }

// MinBufferSize returns the bytes covering the device latency
func (m *Malgo) MinBufferSize(f audio.Format) int {
	return minBufferBytes(f, m.config.LatencyMs)
}

// Open initializes a playback device in the device format
func (m *Malgo) Open(f audio.Format, bufferBytes int) (audio.Format, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	deviceFormat := m.config.deviceFormat(f)

	// A second Open without release replaces the device
	if m.device != nil {
		log.Printf("Reopening device (%v -> %v)", m.format, deviceFormat)
		m.closeDevice()
	}

	// Create malgo context if needed
	if m.malgoCtx == nil {
		ctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, nil)
		if err != nil {
			return audio.Format{}, fmt.Errorf("failed to initialize malgo context: %w", err)
		}
		m.malgoCtx = ctx
	}

	queue := newDeviceQueue(deviceQueueBytes(f, deviceFormat, bufferBytes), deviceFormat.BytesPerFrame())

	// Configure device
	deviceConfig := malgo.DefaultDeviceConfig(malgo.Playback)
	deviceConfig.Playback.Format = malgo.FormatS16
	deviceConfig.Playback.Channels = uint32(deviceFormat.Channels)
	deviceConfig.SampleRate = uint32(deviceFormat.SampleRate)
	deviceConfig.PeriodSizeInMilliseconds = uint32(m.config.LatencyMs / 2)
	deviceConfig.Alsa.NoMMap = 1

	deviceCallbacks := malgo.DeviceCallbacks{
		Data: func(pOutputSample, pInputSamples []byte, frameCount uint32) {
			m.dataCallback(pOutputSample, frameCount)
		},
	}

	device, err := malgo.InitDevice(m.malgoCtx.Context, deviceConfig, deviceCallbacks)
	if err != nil {
		return audio.Format{}, fmt.Errorf("failed to initialize playback device: %w", err)
	}

	m.device = device
	m.queue = queue
	m.format = deviceFormat
	m.started = false

	log.Printf("Audio output initialized: %v (malgo)", deviceFormat)
	return deviceFormat, nil
}

// dataCallback is called by malgo to fill the audio output buffer
func (m *Malgo) dataCallback(pOutput []byte, frameCount uint32) {
	n := int(frameCount) * m.format.BytesPerFrame()
	if n > len(pOutput) {
		n = len(pOutput)
	}
	m.queue.fill(pOutput[:n])
}

// Start begins playback
func (m *Malgo) Start() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.device == nil {
		return fmt.Errorf("output not initialized")
	}
	if m.started {
		return nil
	}
	m.queue.playing.Store(true)
	if err := m.device.Start(); err != nil {
		return fmt.Errorf("failed to start device: %w", err)
	}
	m.started = true
	return nil
}

// Submit queues PCM bytes without blocking
func (m *Malgo) Submit(p []byte) (int, error) {
	if m.queue == nil {
		return 0, fmt.Errorf("output not initialized")
	}
	return m.queue.submit(p), nil
}

// Drain waits for queued audio to reach the device
func (m *Malgo) Drain(ctx context.Context) error {
	if m.queue == nil || !m.started {
		return nil
	}
	return m.queue.drain(ctx)
}

// Underruns returns how many times the device ran dry while playing
func (m *Malgo) Underruns() int64 {
	if m.queue == nil {
		return 0
	}
	return m.queue.underruns.Load()
}

// FlushAndRelease stops the device and frees the malgo context
func (m *Malgo) FlushAndRelease() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.closeDevice()

	if m.malgoCtx != nil {
		if err := m.malgoCtx.Uninit(); err != nil {
			log.Printf("Warning: malgo context uninit error: %v", err)
		}
		m.malgoCtx.Free()
		m.malgoCtx = nil
	}
	return nil
}

// closeDevice stops and uninitializes the device (must hold m.mu)
func (m *Malgo) closeDevice() {
	if m.device == nil {
		return
	}
	if m.queue != nil {
		m.queue.playing.Store(false)
	}
	if err := m.device.Stop(); err != nil {
		log.Printf("Warning: device stop error: %v", err)
	}
	m.device.Uninit()
	m.device = nil
	m.started = false
}
