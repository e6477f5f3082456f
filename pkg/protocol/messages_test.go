// ABOUTME: Tests for audiostream protocol message types
// ABOUTME: Verifies wire field names and initialize defaults
package protocol

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestInitializeWireNames(t *testing.T) {
	data, err := json.Marshal(Message{
		Type:    TypeInitialize,
		Payload: Initialize{SampleRate: 48000, Channels: 1, BufferBytes: 9600},
	})
	if err != nil {
		t.Fatalf("failed to marshal: %v", err)
	}

	want := `{"type":"initialize","payload":{"rate":48000,"channels":1,"buffer_bytes":9600}}`
	if string(data) != want {
		t.Errorf("got %s, want %s", data, want)
	}
}

func TestInitializeDefaults(t *testing.T) {
	tests := []struct {
		name string
		in   Initialize
		want Initialize
	}{
		{"empty", Initialize{}, Initialize{SampleRate: 44100, Channels: 2}},
		{"rate only", Initialize{SampleRate: 16000}, Initialize{SampleRate: 16000, Channels: 2}},
		{"explicit", Initialize{SampleRate: 8000, Channels: 1, BufferBytes: 10}, Initialize{SampleRate: 8000, Channels: 1, BufferBytes: 10}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.in.WithDefaults(); got != tt.want {
				t.Errorf("got %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestResultOmitsEmptyError(t *testing.T) {
	data, err := json.Marshal(Result{Op: OpWrite, OK: true})
	if err != nil {
		t.Fatalf("failed to marshal: %v", err)
	}
	if strings.Contains(string(data), "error") {
		t.Errorf("unexpected error field in %s", data)
	}

	data, err = json.Marshal(Result{Op: TypeInitialize, Error: &ErrorInfo{Kind: "INVALID_CONFIG", Message: "bad rate"}})
	if err != nil {
		t.Fatalf("failed to marshal: %v", err)
	}
	var decoded Result
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("failed to unmarshal: %v", err)
	}
	if decoded.OK || decoded.Error == nil || decoded.Error.Kind != "INVALID_CONFIG" {
		t.Errorf("unexpected result %+v", decoded)
	}
	if decoded.Error.Error() != "INVALID_CONFIG: bad rate" {
		t.Errorf("unexpected error text %q", decoded.Error.Error())
	}
}
