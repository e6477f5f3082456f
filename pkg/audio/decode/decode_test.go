// ABOUTME: Tests for audio sources and the chunker
// ABOUTME: Covers raw PCM, WAV, MP3 error paths and irregular chunking
package decode

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/audiostream-go/audiostream/pkg/audio"
)

func TestPCMSource(t *testing.T) {
	input := audio.EncodeInt16([]int16{1, -1, 1000, -1000})
	src, err := NewPCM(bytes.NewReader(input), audio.NewFormat(22050, 1))
	if err != nil {
		t.Fatalf("NewPCM: %v", err)
	}

	got, err := io.ReadAll(src)
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	if !bytes.Equal(got, input) {
		t.Errorf("got %v, want %v", got, input)
	}
	if src.Format() != audio.NewFormat(22050, 1) {
		t.Errorf("unexpected format %v", src.Format())
	}
	if err := src.Close(); err != nil {
		t.Errorf("Close: %v", err)
	}
}

func TestPCMSourceInvalidFormat(t *testing.T) {
	tests := []struct {
		name   string
		format audio.Format
	}{
		{"zero rate", audio.NewFormat(0, 2)},
		{"six channels", audio.NewFormat(48000, 6)},
		{"8-bit", audio.Format{SampleRate: 8000, Channels: 1, BitDepth: 8}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewPCM(bytes.NewReader(nil), tt.format); err == nil {
				t.Error("expected error")
			}
		})
	}
}

// wavFile builds a 16-bit PCM WAV file
func wavFile(rate, channels int, samples []int16) []byte {
	data := audio.EncodeInt16(samples)
	blockAlign := channels * 2

	var buf bytes.Buffer
	buf.WriteString("RIFF")
	binary.Write(&buf, binary.LittleEndian, uint32(36+len(data)))
	buf.WriteString("WAVE")
	buf.WriteString("fmt ")
	binary.Write(&buf, binary.LittleEndian, uint32(16))
	binary.Write(&buf, binary.LittleEndian, uint16(1))
	binary.Write(&buf, binary.LittleEndian, uint16(channels))
	binary.Write(&buf, binary.LittleEndian, uint32(rate))
	binary.Write(&buf, binary.LittleEndian, uint32(rate*blockAlign))
	binary.Write(&buf, binary.LittleEndian, uint16(blockAlign))
	binary.Write(&buf, binary.LittleEndian, uint16(16))
	buf.WriteString("data")
	binary.Write(&buf, binary.LittleEndian, uint32(len(data)))
	buf.Write(data)
	return buf.Bytes()
}

func TestWAVSource(t *testing.T) {
	tests := []struct {
		name     string
		channels int
		samples  []int16
	}{
		{"mono", 1, []int16{0, 16000, -16000, 32000}},
		{"stereo", 2, []int16{0, 0, 16000, -16000, 32000, -32000}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src, err := NewWAV(bytes.NewReader(wavFile(44100, tt.channels, tt.samples)))
			if err != nil {
				t.Fatalf("NewWAV: %v", err)
			}
			defer src.Close()

			if want := audio.NewFormat(44100, tt.channels); src.Format() != want {
				t.Fatalf("format %v, want %v", src.Format(), want)
			}

			raw, err := io.ReadAll(src)
			if err != nil {
				t.Fatalf("ReadAll: %v", err)
			}
			got := audio.DecodeInt16(raw)
			if len(got) != len(tt.samples) {
				t.Fatalf("got %d samples, want %d", len(got), len(tt.samples))
			}

			// beep goes through float64, so compare signs and ordering
			for i, want := range tt.samples {
				switch {
				case want == 0 && got[i] != 0:
					t.Errorf("sample %d: got %d, want 0", i, got[i])
				case want > 0 && got[i] <= 0, want < 0 && got[i] >= 0:
					t.Errorf("sample %d: got %d, want sign of %d", i, got[i], want)
				}
			}
		})
	}
}

func TestWAVSourceShortBuffer(t *testing.T) {
	src, err := NewWAV(bytes.NewReader(wavFile(8000, 2, []int16{1, 2})))
	if err != nil {
		t.Fatalf("NewWAV: %v", err)
	}
	defer src.Close()

	if _, err := src.Read(make([]byte, 3)); !errors.Is(err, io.ErrShortBuffer) {
		t.Errorf("expected io.ErrShortBuffer, got %v", err)
	}
}

func TestWAVSourceInvalid(t *testing.T) {
	if _, err := NewWAV(bytes.NewReader([]byte("not a wav file at all"))); err == nil {
		t.Error("expected error for invalid header")
	}
}

func TestMP3SourceInvalid(t *testing.T) {
	if _, err := NewMP3(bytes.NewReader(nil)); err == nil {
		t.Error("expected error for empty stream")
	}
}

func TestOpenFile(t *testing.T) {
	dir := t.TempDir()

	raw := filepath.Join(dir, "tone.pcm")
	input := audio.EncodeInt16([]int16{5, 6, 7, 8})
	if err := os.WriteFile(raw, input, 0o644); err != nil {
		t.Fatal(err)
	}

	src, err := OpenFile(raw, audio.NewFormat(48000, 2))
	if err != nil {
		t.Fatalf("OpenFile: %v", err)
	}
	got, _ := io.ReadAll(src)
	src.Close()
	if !bytes.Equal(got, input) {
		t.Errorf("got %v, want %v", got, input)
	}

	wavPath := filepath.Join(dir, "tone.WAV")
	if err := os.WriteFile(wavPath, wavFile(16000, 1, []int16{1, 2, 3}), 0o644); err != nil {
		t.Fatal(err)
	}
	src, err = OpenFile(wavPath, audio.Format{})
	if err != nil {
		t.Fatalf("OpenFile wav: %v", err)
	}
	if src.Format() != audio.NewFormat(16000, 1) {
		t.Errorf("unexpected wav format %v", src.Format())
	}
	src.Close()

	if _, err := OpenFile(filepath.Join(dir, "song.ogg"), audio.Format{}); !errors.Is(err, ErrUnknownFormat) {
		t.Errorf("expected ErrUnknownFormat, got %v", err)
	}
	if _, err := OpenFile(filepath.Join(dir, "missing.mp3"), audio.Format{}); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestChunker(t *testing.T) {
	input := make([]byte, 10000)
	for i := range input {
		input[i] = byte(i)
	}

	c := NewChunker(bytes.NewReader(input), 1, 97, 42)

	var out []byte
	odd := false
	for {
		chunk, err := c.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatalf("Next: %v", err)
		}
		if len(chunk) < 1 || len(chunk) > 97 {
			t.Fatalf("chunk size %d out of range", len(chunk))
		}
		if len(chunk)%2 == 1 {
			odd = true
		}
		out = append(out, chunk...)
	}

	if !bytes.Equal(out, input) {
		t.Error("chunks do not reassemble the input")
	}
	if !odd {
		t.Error("expected some odd-sized chunks")
	}
	if _, err := c.Next(); err != io.EOF {
		t.Errorf("expected io.EOF after end, got %v", err)
	}
}

func TestChunkerDeterministic(t *testing.T) {
	sizes := func() []int {
		c := NewChunker(bytes.NewReader(make([]byte, 5000)), 10, 500, 7)
		var s []int
		for {
			chunk, err := c.Next()
			if err != nil {
				return s
			}
			s = append(s, len(chunk))
		}
	}

	a, b := sizes(), sizes()
	if len(a) != len(b) {
		t.Fatalf("chunk counts differ: %d vs %d", len(a), len(b))
	}
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("chunk %d: %d vs %d", i, a[i], b[i])
		}
	}
}

func TestChunkerFixedSize(t *testing.T) {
	c := NewChunker(bytes.NewReader(make([]byte, 10)), 4, 4, 0)

	var sizes []int
	for {
		chunk, err := c.Next()
		if err != nil {
			break
		}
		sizes = append(sizes, len(chunk))
	}
	if len(sizes) != 3 || sizes[0] != 4 || sizes[1] != 4 || sizes[2] != 2 {
		t.Errorf("sizes = %v, want [4 4 2]", sizes)
	}
}

func TestToneSource(t *testing.T) {
	format := audio.NewFormat(8000, 2)
	src := NewTone(format, 1000, 10*time.Millisecond)

	raw, err := io.ReadAll(src)
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	samples := audio.DecodeInt16(raw)
	if len(samples) != 160 {
		t.Fatalf("got %d samples, want 160 (80 stereo frames)", len(samples))
	}

	// 1kHz at 8kHz: frame 2 is the positive peak, frame 6 the negative one
	if samples[0] != 0 || samples[4] != 16383 || samples[12] != -16383 {
		t.Errorf("unexpected waveform start %v", samples[:16])
	}
	for i := 0; i < len(samples); i += 2 {
		if samples[i] != samples[i+1] {
			t.Fatalf("frame %d: channels differ", i/2)
		}
	}
}

func TestToneSourceEndless(t *testing.T) {
	src := NewTone(audio.NewFormat(44100, 1), 440, 0)
	buf := make([]byte, 4096)
	for i := 0; i < 100; i++ {
		n, err := src.Read(buf)
		if err != nil || n != len(buf) {
			t.Fatalf("read %d: n=%d err=%v", i, n, err)
		}
	}
}

// id3v1 builds a 128 byte ID3v1 trailer
func id3v1(title, artist, album string) []byte {
	b := make([]byte, 128)
	copy(b, "TAG")
	copy(b[3:33], title)
	copy(b[33:63], artist)
	copy(b[63:93], album)
	copy(b[93:97], "2024")
	b[127] = 255
	return b
}

func TestReadTags(t *testing.T) {
	dir := t.TempDir()

	tagged := filepath.Join(dir, "tagged.mp3")
	data := append(make([]byte, 256), id3v1("Ramp", "Test Signals", "Fixtures")...)
	if err := os.WriteFile(tagged, data, 0644); err != nil {
		t.Fatal(err)
	}
	untagged := filepath.Join(dir, "plain.pcm")
	if err := os.WriteFile(untagged, make([]byte, 256), 0644); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		path string
		want string
	}{
		{tagged, "Test Signals - Ramp"},
		{untagged, "plain.pcm"},
	}

	for _, tt := range tests {
		t.Run(filepath.Base(tt.path), func(t *testing.T) {
			tags, err := ReadTags(tt.path)
			if err != nil {
				t.Fatalf("ReadTags: %v", err)
			}
			if got := tags.String(); got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}

	if _, err := ReadTags(filepath.Join(dir, "missing.mp3")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestFLACInvalid(t *testing.T) {
	if _, err := NewFLAC(bytes.NewReader([]byte("not a flac stream"))); err == nil {
		t.Fatal("expected error for invalid flac data")
	}

	path := filepath.Join(t.TempDir(), "broken.flac")
	if err := os.WriteFile(path, []byte("RIFF"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := OpenFile(path, audio.Format{}); err == nil {
		t.Fatal("expected OpenFile to reject broken flac")
	}
}

func TestFLACBitDepthScaling(t *testing.T) {
	tests := []struct {
		bitDepth int
		in       int32
		want     int16
	}{
		{16, -1234, -1234},
		{24, 0x7fffff, 32767},
		{24, -0x800000, -32768},
		{8, 127, 32512},
		{8, -128, -32768},
	}

	for _, tt := range tests {
		s := &FLACSource{bitDepth: tt.bitDepth}
		if got := s.toInt16(tt.in); got != tt.want {
			t.Errorf("%d-bit %d: got %d, want %d", tt.bitDepth, tt.in, got, tt.want)
		}
	}
}
