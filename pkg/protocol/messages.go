// ABOUTME: Audiostream bridge message type definitions
// ABOUTME: Defines the JSON control messages exchanged over the websocket
package protocol

const (
	// ProtocolVersion is reported in server/hello
	ProtocolVersion = 1

	// Path is the websocket endpoint served by the bridge
	Path = "/audiostream"

	// DefaultSampleRate and DefaultChannels apply when initialize omits them
	DefaultSampleRate = 44100
	DefaultChannels   = 2
)

// Message types
const (
	TypeHello      = "server/hello"
	TypeInitialize = "initialize"
	TypeFlush      = "flush"
	TypeClose      = "close"
	TypeStats      = "stats"
	TypeResult     = "result"
	TypeError      = "error"
)

// OpWrite names the result of a binary write frame
const OpWrite = "write"

// KindBadRequest tags results for messages the bridge cannot parse or route
const KindBadRequest = "BAD_REQUEST"

// Message is the top-level wrapper for all text frames
type Message struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload,omitempty"`
}

// ServerHello is sent by the bridge as soon as a connection is accepted
type ServerHello struct {
	ServerID        string `json:"server_id"`
	SessionID       string `json:"session_id"`
	Name            string `json:"name"`
	Version         int    `json:"version"`
	Output          string `json:"output"`
	Product         string `json:"product"`
	Manufacturer    string `json:"manufacturer"`
	SoftwareVersion string `json:"software_version"`
}

// Initialize requests a new playback session
type Initialize struct {
	SampleRate  int `json:"rate,omitempty"`
	Channels    int `json:"channels,omitempty"`
	BufferBytes int `json:"buffer_bytes,omitempty"`
}

// WithDefaults fills a missing rate or channel count
func (i Initialize) WithDefaults() Initialize {
	if i.SampleRate == 0 {
		i.SampleRate = DefaultSampleRate
	}
	if i.Channels == 0 {
		i.Channels = DefaultChannels
	}
	return i
}

// Result answers every request, including binary writes
type Result struct {
	Op          string     `json:"op"`
	OK          bool       `json:"ok"`
	Error       *ErrorInfo `json:"error,omitempty"`
	BufferBytes int        `json:"buffer_bytes,omitempty"`
}

// ErrorInfo carries an engine error kind and message
type ErrorInfo struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

func (e *ErrorInfo) Error() string {
	return e.Kind + ": " + e.Message
}

// AudioFormat describes a PCM stream
type AudioFormat struct {
	SampleRate int `json:"rate"`
	Channels   int `json:"channels"`
	BitDepth   int `json:"bit_depth"`
}

// Stats mirrors the engine statistics
type Stats struct {
	SessionID      string       `json:"session_id,omitempty"`
	State          string       `json:"state"`
	Format         *AudioFormat `json:"format,omitempty"`
	DeviceFormat   *AudioFormat `json:"device_format,omitempty"`
	Output         string       `json:"output"`
	BufferBytes    int          `json:"buffer_bytes"`
	Capacity       int          `json:"capacity"`
	Buffered       int          `json:"buffered"`
	BufferedMs     int          `json:"buffered_ms"`
	Received       int64        `json:"received"`
	Played         int64        `json:"played"`
	Dropped        int64        `json:"dropped"`
	SubmitFailures int64        `json:"submit_failures"`
	Underruns      int64        `json:"underruns"`
}
