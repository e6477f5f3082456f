// ABOUTME: Device-side byte queue shared by the hardware backends
// ABOUTME: Submit fills it without blocking, the device callback drains it
package output

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/audiostream-go/audiostream/pkg/audio/ring"
)

// drainPoll is how often Drain checks the queue
const drainPoll = 5 * time.Millisecond

// deviceQueue moves whole frames from Submit to the device callback
type deviceQueue struct {
	ring      *ring.Buffer[byte]
	frameSize int
	playing   atomic.Bool
	starved   atomic.Bool
	underruns atomic.Int64
}

func newDeviceQueue(capacityBytes, frameSize int) *deviceQueue {
	return &deviceQueue{
		ring:      ring.New[byte](wholeFrames(capacityBytes, frameSize)),
		frameSize: frameSize,
	}
}

// submit accepts as many whole frames of p as fit
func (q *deviceQueue) submit(p []byte) int {
	n := wholeFrames(len(p), q.frameSize)
	if free := wholeFrames(q.ring.Free(), q.frameSize); n > free {
		n = free
	}
	return q.ring.WriteMany(p[:n])
}

// fill copies whole frames into out and pads the rest with silence
func (q *deviceQueue) fill(out []byte) {
	n := wholeFrames(q.ring.Size(), q.frameSize)
	if n > len(out) {
		n = wholeFrames(len(out), q.frameSize)
	}
	read := q.ring.ReadInto(out[:n])

	if read == len(out) {
		q.starved.Store(false)
		return
	}

	// Count one underrun per stretch of silence while playing
	if q.playing.Load() && !q.starved.Swap(true) {
		q.underruns.Add(1)
	}
	clear(out[read:])
}

// drain waits until the device has consumed everything queued
func (q *deviceQueue) drain(ctx context.Context) error {
	ticker := time.NewTicker(drainPoll)
	defer ticker.Stop()

	for q.ring.Size() >= q.frameSize {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
	return nil
}

// pending returns the queued byte count
func (q *deviceQueue) pending() int {
	return q.ring.Size()
}
