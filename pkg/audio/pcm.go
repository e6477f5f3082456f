// ABOUTME: PCM byte codec helpers
// ABOUTME: Converts between little-endian byte slices and int16 samples
package audio

import "encoding/binary"

// DecodeInt16 converts little-endian bytes to samples.
// A trailing odd byte is ignored; callers that stream bytes must carry it.
func DecodeInt16(data []byte) []int16 {
	samples := make([]int16, len(data)/BytesPerSample)
	for i := range samples {
		samples[i] = int16(binary.LittleEndian.Uint16(data[i*2:]))
	}
	return samples
}

// EncodeInt16 converts samples to little-endian bytes
func EncodeInt16(samples []int16) []byte {
	return AppendInt16(make([]byte, 0, len(samples)*BytesPerSample), samples)
}

// AppendInt16 appends the little-endian encoding of samples to dst
func AppendInt16(dst []byte, samples []int16) []byte {
	for _, s := range samples {
		dst = binary.LittleEndian.AppendUint16(dst, uint16(s))
	}
	return dst
}
