// ABOUTME: Tests for the websocket bridge
// ABOUTME: Drives sessions end to end with the protocol client and memory sinks
package bridge

import (
	"encoding/json"
	"errors"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/audiostream-go/audiostream/pkg/audio"
	"github.com/audiostream-go/audiostream/pkg/audio/output"
	"github.com/audiostream-go/audiostream/pkg/audiostream"
	"github.com/audiostream-go/audiostream/pkg/protocol"
	"github.com/gorilla/websocket"
)

type sinkRecorder struct {
	mu    sync.Mutex
	sinks []*output.Memory
	stall bool
}

func (r *sinkRecorder) newSink() (output.Sink, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	mem := output.NewMemory()
	mem.Stall = r.stall
	r.sinks = append(r.sinks, mem)
	return mem, nil
}

func (r *sinkRecorder) get(t *testing.T, i int) *output.Memory {
	t.Helper()
	r.mu.Lock()
	defer r.mu.Unlock()
	if i >= len(r.sinks) {
		t.Fatalf("sink %d not created", i)
	}
	return r.sinks[i]
}

func startBridge(t *testing.T, rec *sinkRecorder, engine audiostream.Config) (*Server, string) {
	t.Helper()
	srv := New(Config{Name: "test-bridge", NewSink: rec.newSink, Engine: engine})
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return srv, strings.TrimPrefix(ts.URL, "http://")
}

func connect(t *testing.T, addr string) *protocol.Client {
	t.Helper()
	client := protocol.NewClient(protocol.Config{ServerAddr: addr, Timeout: 5 * time.Second})
	if err := client.Connect(); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	t.Cleanup(client.Disconnect)
	return client
}

func errorKind(err error) string {
	var info *protocol.ErrorInfo
	if errors.As(err, &info) {
		return info.Kind
	}
	return ""
}

func TestSessionRoundTrip(t *testing.T) {
	rec := &sinkRecorder{}
	_, addr := startBridge(t, rec, audiostream.Config{})
	client := connect(t, addr)

	hello := client.Hello()
	if hello.SessionID == "" || hello.Output != "memory" || hello.Name != "test-bridge" {
		t.Errorf("unexpected hello %+v", hello)
	}
	if hello.Version != protocol.ProtocolVersion {
		t.Errorf("version = %d", hello.Version)
	}

	if err := client.Write([]byte{1, 0}); errorKind(err) != string(audiostream.KindNotInitialized) {
		t.Fatalf("Write before initialize: got %v", err)
	}

	result, err := client.Initialize(protocol.Initialize{SampleRate: 8000, Channels: 1, BufferBytes: 16000})
	if err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	if result.BufferBytes != 16000 {
		t.Errorf("buffer bytes = %d, want 16000", result.BufferBytes)
	}

	input := make([]int16, 500)
	for i := range input {
		input[i] = int16(i * 3)
	}
	data := audio.EncodeInt16(input)
	for len(data) > 0 {
		n := 77
		if n > len(data) {
			n = len(data)
		}
		if err := client.Write(data[:n]); err != nil {
			t.Fatalf("Write: %v", err)
		}
		data = data[n:]
	}

	if err := client.Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}

	stats, err := client.Stats()
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if stats.Received != 500 || stats.Played != 500 {
		t.Errorf("received=%d played=%d, want 500/500", stats.Received, stats.Played)
	}
	if stats.Format == nil || stats.Format.SampleRate != 8000 || stats.Format.Channels != 1 {
		t.Errorf("format = %+v", stats.Format)
	}

	if err := client.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	got := rec.get(t, 0).Samples()
	if len(got) != len(input) {
		t.Fatalf("played %d samples, want %d", len(got), len(input))
	}
	for i := range input {
		if got[i] != input[i] {
			t.Fatalf("sample %d: got %d, want %d", i, got[i], input[i])
		}
	}

	stats, err = client.Stats()
	if err != nil {
		t.Fatalf("Stats after close: %v", err)
	}
	if stats.State != "uninitialized" {
		t.Errorf("state after close = %q", stats.State)
	}
}

func TestInitializeDefaultsAndErrors(t *testing.T) {
	rec := &sinkRecorder{}
	_, addr := startBridge(t, rec, audiostream.Config{})
	client := connect(t, addr)

	_, err := client.Initialize(protocol.Initialize{SampleRate: 44100, Channels: 3})
	if errorKind(err) != string(audiostream.KindInvalidConfig) {
		t.Fatalf("expected INVALID_CONFIG, got %v", err)
	}

	if _, err := client.Initialize(protocol.Initialize{}); err != nil {
		t.Fatalf("Initialize with defaults: %v", err)
	}
	stats, err := client.Stats()
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if stats.Format == nil || stats.Format.SampleRate != 44100 || stats.Format.Channels != 2 {
		t.Errorf("default format = %+v", stats.Format)
	}
}

func TestUnknownMessage(t *testing.T) {
	rec := &sinkRecorder{}
	_, addr := startBridge(t, rec, audiostream.Config{})

	conn, _, err := websocket.DefaultDialer.Dial("ws://"+addr+protocol.Path, nil)
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	defer conn.Close()
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))

	var hello struct{ Type string }
	if err := conn.ReadJSON(&hello); err != nil || hello.Type != protocol.TypeHello {
		t.Fatalf("expected hello, got %+v (%v)", hello, err)
	}

	for _, frame := range []string{`{"type":"rewind"}`, `not json`} {
		if err := conn.WriteMessage(websocket.TextMessage, []byte(frame)); err != nil {
			t.Fatalf("WriteMessage: %v", err)
		}

		var reply struct {
			Type    string          `json:"type"`
			Payload protocol.Result `json:"payload"`
		}
		if err := conn.ReadJSON(&reply); err != nil {
			t.Fatalf("ReadJSON: %v", err)
		}
		if reply.Type != protocol.TypeResult || reply.Payload.OK {
			t.Errorf("%s: unexpected reply %+v", frame, reply)
		}
		if reply.Payload.Error == nil || reply.Payload.Error.Kind != protocol.KindBadRequest {
			t.Errorf("%s: expected %s, got %+v", frame, protocol.KindBadRequest, reply.Payload.Error)
		}
	}
}

func TestDisconnectReleasesSink(t *testing.T) {
	rec := &sinkRecorder{}
	srv, addr := startBridge(t, rec, audiostream.Config{})
	client := connect(t, addr)

	if _, err := client.Initialize(protocol.Initialize{SampleRate: 8000, Channels: 1}); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	if got := len(srv.Status().Sessions); got != 1 {
		t.Fatalf("expected 1 session, got %d", got)
	}

	client.Disconnect()

	mem := rec.get(t, 0)
	deadline := time.Now().Add(5 * time.Second)
	for mem.Released() == 0 || len(srv.Status().Sessions) != 0 {
		if time.Now().After(deadline) {
			t.Fatal("session not cleaned up after disconnect")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestSubmissionErrorsForwarded(t *testing.T) {
	rec := &sinkRecorder{stall: true}
	_, addr := startBridge(t, rec, audiostream.Config{
		SubmitTimeout: 20 * time.Millisecond,
		Close:         audiostream.CloseDiscard,
	})
	client := connect(t, addr)

	if _, err := client.Initialize(protocol.Initialize{SampleRate: 8000, Channels: 1, BufferBytes: 16000}); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	if err := client.Write(make([]byte, 800)); err != nil {
		t.Fatalf("Write: %v", err)
	}

	select {
	case info := <-client.Errors:
		if info.Kind != string(audiostream.KindSinkSubmissionFailure) {
			t.Errorf("unexpected error kind %s", info.Kind)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("no submission error forwarded")
	}
}

func TestToProtocolStats(t *testing.T) {
	stats := toProtocolStats(audiostream.Stats{State: audiostream.StateUninitialized, Output: "null"})
	if stats.Format != nil || stats.State != "uninitialized" || stats.Output != "null" {
		t.Errorf("unexpected stats %+v", stats)
	}

	data, err := json.Marshal(toProtocolStats(audiostream.Stats{
		State:    audiostream.StateReady,
		Format:   audio.NewFormat(8000, 1),
		Buffered: 80,
	}))
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if !strings.Contains(string(data), `"buffered_ms":10`) {
		t.Errorf("unexpected json %s", data)
	}
}
