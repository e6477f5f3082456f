// ABOUTME: Playback targets for the file player
// ABOUTME: Wraps an in-process engine or a remote bridge session behind one interface
package main

import (
	"context"
	"errors"

	"github.com/audiostream-go/audiostream/internal/ui"
	"github.com/audiostream-go/audiostream/pkg/audio"
	"github.com/audiostream-go/audiostream/pkg/audio/output"
	"github.com/audiostream-go/audiostream/pkg/audiostream"
	"github.com/audiostream-go/audiostream/pkg/protocol"
)

// target is where the player sends PCM
type target interface {
	Initialize(format audio.Format, bufferBytes int) error
	Write(p []byte) error
	Flush(ctx context.Context) error
	Close() error
	Stats() ui.SessionStatus
}

// localTarget plays through an engine in this process
type localTarget struct {
	engine *audiostream.Engine
}

func newLocalTarget() (*localTarget, error) {
	sink, err := output.New(*backend, outputConfig())
	if err != nil {
		return nil, err
	}
	return &localTarget{
		engine: audiostream.New(sink, audiostream.Config{ChannelPolicy: channelPolicy()}),
	}, nil
}

func (l *localTarget) Initialize(format audio.Format, bufferBytes int) error {
	return l.engine.Initialize(format, bufferBytes)
}

func (l *localTarget) Write(p []byte) error { return l.engine.Write(p) }

func (l *localTarget) Flush(ctx context.Context) error { return l.engine.Flush(ctx) }

func (l *localTarget) Close() error { return l.engine.Close() }

func (l *localTarget) Stats() ui.SessionStatus {
	return ui.SessionStatus{ID: l.engine.ID(), Remote: "local", Stats: l.engine.Stats()}
}

// remoteTarget sends PCM to a bridge session
type remoteTarget struct {
	address string
	client  *protocol.Client
}

func newRemoteTarget(address string) (*remoteTarget, error) {
	client := protocol.NewClient(protocol.Config{ServerAddr: address})
	if err := client.Connect(); err != nil {
		return nil, err
	}
	return &remoteTarget{address: address, client: client}, nil
}

func (r *remoteTarget) Initialize(format audio.Format, bufferBytes int) error {
	_, err := r.client.Initialize(protocol.Initialize{
		SampleRate:  format.SampleRate,
		Channels:    format.Channels,
		BufferBytes: bufferBytes,
	})
	return engineError(err)
}

func (r *remoteTarget) Write(p []byte) error { return engineError(r.client.Write(p)) }

// Flush waits for the bridge; the request has its own reply timeout
func (r *remoteTarget) Flush(ctx context.Context) error { return engineError(r.client.Flush()) }

func (r *remoteTarget) Close() error {
	defer r.client.Disconnect()
	return engineError(r.client.Close())
}

func (r *remoteTarget) Stats() ui.SessionStatus {
	hello := r.client.Hello()
	status := ui.SessionStatus{ID: hello.SessionID, Remote: r.address}

	st, err := r.client.Stats()
	if err != nil {
		return status
	}
	status.Stats = fromWire(st)
	return status
}

// engineError maps a bridge error back to an engine error of the same kind
func engineError(err error) error {
	var info *protocol.ErrorInfo
	if errors.As(err, &info) {
		return &audiostream.Error{Kind: audiostream.Kind(info.Kind), Message: info.Message}
	}
	return err
}

func fromWire(st protocol.Stats) audiostream.Stats {
	stats := audiostream.Stats{
		SessionID:      st.SessionID,
		State:          parseState(st.State),
		Output:         st.Output,
		BufferBytes:    st.BufferBytes,
		Capacity:       st.Capacity,
		Buffered:       st.Buffered,
		Received:       st.Received,
		Played:         st.Played,
		Dropped:        st.Dropped,
		SubmitFailures: st.SubmitFailures,
		Underruns:      st.Underruns,
	}
	if st.Format != nil {
		stats.Format = audio.NewFormat(st.Format.SampleRate, st.Format.Channels)
	}
	if st.DeviceFormat != nil {
		stats.DeviceFormat = audio.NewFormat(st.DeviceFormat.SampleRate, st.DeviceFormat.Channels)
	}
	return stats
}

func parseState(s string) audiostream.State {
	for _, state := range []audiostream.State{audiostream.StateReady, audiostream.StatePlaying} {
		if state.String() == s {
			return state
		}
	}
	return audiostream.StateUninitialized
}

