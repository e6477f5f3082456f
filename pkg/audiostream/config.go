// ABOUTME: Playback engine configuration
// ABOUTME: Buffering, overflow, submission and close policies with defaults
package audiostream

import (
	"fmt"
	"time"

	"github.com/audiostream-go/audiostream/pkg/audio/convert"
)

// OverflowPolicy decides what Write does when the ring buffer is full
type OverflowPolicy int

const (
	// OverflowBlock waits for the drain loop to make room, up to WriteTimeout
	OverflowBlock OverflowPolicy = iota

	// OverflowDrop keeps what fits and discards the rest
	OverflowDrop
)

func (p OverflowPolicy) String() string {
	switch p {
	case OverflowBlock:
		return "block"
	case OverflowDrop:
		return "drop"
	default:
		return fmt.Sprintf("OverflowPolicy(%d)", int(p))
	}
}

// ParseOverflowPolicy parses "block" or "drop"
func ParseOverflowPolicy(name string) (OverflowPolicy, error) {
	switch name {
	case "", "block":
		return OverflowBlock, nil
	case "drop":
		return OverflowDrop, nil
	default:
		return OverflowBlock, fmt.Errorf("unknown overflow policy %q", name)
	}
}

// ClosePolicy decides what Close does with audio still buffered
type ClosePolicy int

const (
	// CloseDrain plays out everything buffered before releasing the sink
	CloseDrain ClosePolicy = iota

	// CloseDiscard drops buffered audio immediately
	CloseDiscard
)

func (p ClosePolicy) String() string {
	switch p {
	case CloseDrain:
		return "drain"
	case CloseDiscard:
		return "discard"
	default:
		return fmt.Sprintf("ClosePolicy(%d)", int(p))
	}
}

// ParseClosePolicy parses "drain" or "discard"
func ParseClosePolicy(name string) (ClosePolicy, error) {
	switch name {
	case "", "drain":
		return CloseDrain, nil
	case "discard":
		return CloseDiscard, nil
	default:
		return CloseDrain, fmt.Errorf("unknown close policy %q", name)
	}
}

// Config holds engine configuration
type Config struct {
	// MaxBufferSeconds caps the ring buffer size (default: 10)
	MaxBufferSeconds int

	// WriteUnitMs is the duration of one device submission (default: 20)
	WriteUnitMs int

	// Overflow selects the full-buffer behaviour of Write (default: OverflowBlock)
	Overflow OverflowPolicy

	// WriteTimeout bounds how long a blocked Write waits for room (default: 2s)
	WriteTimeout time.Duration

	// SubmitTimeout bounds how long one batch is retried against a sink
	// that accepts nothing (default: 1s)
	SubmitTimeout time.Duration

	// SubmitRetryInterval is the pause between partial submissions (default: 2ms)
	SubmitRetryInterval time.Duration

	// Close selects what Close does with buffered audio (default: CloseDrain)
	Close ClosePolicy

	// CloseTimeout bounds the drain on Close (default: 5s)
	CloseTimeout time.Duration

	// ChannelPolicy selects the stereo to mono downmix (default: average)
	ChannelPolicy convert.ChannelPolicy

	// OnError is called from the drain goroutine for recoverable errors
	OnError func(error)

	// OnStateChange is called from the drain goroutine when playback starts or idles
	OnStateChange func(State)
}

func (c Config) withDefaults() Config {
	if c.MaxBufferSeconds <= 0 {
		c.MaxBufferSeconds = 10
	}
	if c.WriteUnitMs <= 0 {
		c.WriteUnitMs = 20
	}
	if c.WriteTimeout <= 0 {
		c.WriteTimeout = 2 * time.Second
	}
	if c.SubmitTimeout <= 0 {
		c.SubmitTimeout = time.Second
	}
	if c.SubmitRetryInterval <= 0 {
		c.SubmitRetryInterval = 2 * time.Millisecond
	}
	if c.CloseTimeout <= 0 {
		c.CloseTimeout = 5 * time.Second
	}
	return c
}
