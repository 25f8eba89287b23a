// Package wav reads and writes RIFF/WAVE containers holding uncompressed PCM.
package wav

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
)

// WAV format constants.
const (
	// HeaderSize is the size of a canonical 44-byte WAV header.
	HeaderSize = 44

	// FormatPCM is the audio format code for integer PCM.
	FormatPCM = 1
	// FormatFloat is the audio format code for IEEE float samples.
	FormatFloat = 3
	// formatExtensible wraps one of the above in a sub-format GUID.
	formatExtensible = 0xFFFE
)

var (
	// ErrNotWAV is returned when the data has no RIFF/WAVE signature.
	ErrNotWAV = errors.New("not a WAV file")
	// ErrUnsupported is returned for encodings this package cannot decode.
	ErrUnsupported = errors.New("unsupported WAV encoding")
	// ErrMalformed is returned when chunks are missing or truncated.
	ErrMalformed = errors.New("malformed WAV file")
)

// Audio is a decoded WAV payload. Samples are interleaved and normalised
// to [-1, 1].
type Audio struct {
	Samples       []float64
	SampleRate    int
	Channels      int
	BitsPerSample int
}

// IsWAV reports whether data starts with a RIFF/WAVE signature.
func IsWAV(data []byte) bool {
	return len(data) >= 12 && string(data[0:4]) == "RIFF" && string(data[8:12]) == "WAVE"
}

// WrapRawPCM adds a WAV header to raw little-endian PCM data.
func WrapRawPCM(pcm []byte, sampleRate, channels, bitsPerSample int) []byte {
	dataSize := len(pcm)
	byteRate := sampleRate * channels * bitsPerSample / 8
	blockAlign := channels * bitsPerSample / 8

	header := make([]byte, HeaderSize)

	// RIFF header
	copy(header[0:4], "RIFF")
	PutLE32(header[4:8], uint32(36+dataSize))
	copy(header[8:12], "WAVE")

	// fmt subchunk
	copy(header[12:16], "fmt ")
	PutLE32(header[16:20], 16)
	PutLE16(header[20:22], FormatPCM)
	PutLE16(header[22:24], uint16(channels))
	PutLE32(header[24:28], uint32(sampleRate))
	PutLE32(header[28:32], uint32(byteRate))
	PutLE16(header[32:34], uint16(blockAlign))
	PutLE16(header[34:36], uint16(bitsPerSample))

	// data subchunk
	copy(header[36:40], "data")
	PutLE32(header[40:44], uint32(dataSize))

	return append(header, pcm...)
}

// Encode writes interleaved int16 samples as a 16-bit PCM WAV file.
func Encode(samples []int16, sampleRate, channels int) []byte {
	pcm := make([]byte, len(samples)*2)
	for i, s := range samples {
		PutLE16(pcm[i*2:], uint16(s))
	}
	return WrapRawPCM(pcm, sampleRate, channels, 16)
}

// Decode parses a WAV file. Chunks other than "fmt " and "data" are skipped,
// so files written by ffmpeg (LIST chunks) and other encoders decode as well.
func Decode(data []byte) (*Audio, error) {
	if !IsWAV(data) {
		return nil, ErrNotWAV
	}

	var (
		format, channels, bits uint16
		sampleRate             uint32
		haveFmt                bool
		payload                []byte
	)

	off := 12
	for off+8 <= len(data) {
		id := string(data[off : off+4])
		size := int(binary.LittleEndian.Uint32(data[off+4 : off+8]))
		body := off + 8
		end := body + size
		if id == "data" && (size == 0 || end > len(data)) {
			// Piped encoders (ffmpeg writing to stdout) cannot seek back to
			// patch the size, so it is 0 or 0xFFFFFFFF. Take what is there.
			end = len(data)
		} else if end > len(data) {
			return nil, fmt.Errorf("%w: chunk %q overruns file", ErrMalformed, id)
		}

		switch id {
		case "fmt ":
			if size < 16 {
				return nil, fmt.Errorf("%w: short fmt chunk", ErrMalformed)
			}
			format = binary.LittleEndian.Uint16(data[body:])
			channels = binary.LittleEndian.Uint16(data[body+2:])
			sampleRate = binary.LittleEndian.Uint32(data[body+4:])
			bits = binary.LittleEndian.Uint16(data[body+14:])
			if format == formatExtensible && size >= 26 {
				format = binary.LittleEndian.Uint16(data[body+24:])
			}
			haveFmt = true
		case "data":
			payload = data[body:end]
		}

		// Chunks are word aligned.
		off = end + (size & 1)
		if payload != nil && haveFmt {
			break
		}
	}

	if !haveFmt || payload == nil {
		return nil, fmt.Errorf("%w: missing fmt or data chunk", ErrMalformed)
	}
	if channels == 0 || sampleRate == 0 {
		return nil, fmt.Errorf("%w: zero channels or sample rate", ErrMalformed)
	}

	samples, err := decodeSamples(payload, format, bits)
	if err != nil {
		return nil, err
	}

	// Drop a trailing partial frame.
	samples = samples[:len(samples)-len(samples)%int(channels)]

	return &Audio{
		Samples:       samples,
		SampleRate:    int(sampleRate),
		Channels:      int(channels),
		BitsPerSample: int(bits),
	}, nil
}

func decodeSamples(payload []byte, format, bits uint16) ([]float64, error) {
	switch {
	case format == FormatPCM && bits == 8:
		out := make([]float64, len(payload))
		for i, b := range payload {
			out[i] = (float64(b) - 128) / 128
		}
		return out, nil
	case format == FormatPCM && bits == 16:
		out := make([]float64, len(payload)/2)
		for i := range out {
			out[i] = float64(int16(binary.LittleEndian.Uint16(payload[i*2:]))) / 32768
		}
		return out, nil
	case format == FormatPCM && bits == 24:
		out := make([]float64, len(payload)/3)
		for i := range out {
			b := payload[i*3:]
			v := int32(uint32(b[0])<<8|uint32(b[1])<<16|uint32(b[2])<<24) >> 8
			out[i] = float64(v) / 8388608
		}
		return out, nil
	case format == FormatPCM && bits == 32:
		out := make([]float64, len(payload)/4)
		for i := range out {
			out[i] = float64(int32(binary.LittleEndian.Uint32(payload[i*4:]))) / 2147483648
		}
		return out, nil
	case format == FormatFloat && bits == 32:
		out := make([]float64, len(payload)/4)
		for i := range out {
			out[i] = float64(math.Float32frombits(binary.LittleEndian.Uint32(payload[i*4:])))
		}
		return out, nil
	default:
		return nil, fmt.Errorf("%w: format %d, %d bits", ErrUnsupported, format, bits)
	}
}

// PutLE16 writes a uint16 value in little-endian format to a byte slice.
func PutLE16(b []byte, v uint16) {
	b[0] = byte(v)
	b[1] = byte(v >> 8)
}

// PutLE32 writes a uint32 value in little-endian format to a byte slice.
func PutLE32(b []byte, v uint32) {
	b[0] = byte(v)
	b[1] = byte(v >> 8)
	b[2] = byte(v >> 16)
	b[3] = byte(v >> 24)
}

// CreateMinimal creates a silent 16-bit WAV file with numFrames frames.
// Useful in tests.
func CreateMinimal(numFrames, sampleRate, channels int) []byte {
	return WrapRawPCM(make([]byte, numFrames*channels*2), sampleRate, channels, 16)
}
