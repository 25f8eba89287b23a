package wav

import (
	"bytes"
	"encoding/binary"
	"errors"
	"math"
	"testing"
)

func TestPutLE16(t *testing.T) {
	tests := []struct {
		name   string
		value  uint16
		expect []byte
	}{
		{"zero", 0, []byte{0x00, 0x00}},
		{"one", 1, []byte{0x01, 0x00}},
		{"256", 256, []byte{0x00, 0x01}},
		{"max", 0xFFFF, []byte{0xFF, 0xFF}},
		{"mixed", 0x1234, []byte{0x34, 0x12}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := make([]byte, 2)
			PutLE16(b, tt.value)
			if !bytes.Equal(b, tt.expect) {
				t.Errorf("PutLE16(%d) = %v, want %v", tt.value, b, tt.expect)
			}
		})
	}
}

func TestPutLE32(t *testing.T) {
	tests := []struct {
		name   string
		value  uint32
		expect []byte
	}{
		{"zero", 0, []byte{0x00, 0x00, 0x00, 0x00}},
		{"256", 256, []byte{0x00, 0x01, 0x00, 0x00}},
		{"mixed", 0x12345678, []byte{0x78, 0x56, 0x34, 0x12}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := make([]byte, 4)
			PutLE32(b, tt.value)
			if !bytes.Equal(b, tt.expect) {
				t.Errorf("PutLE32(%d) = %v, want %v", tt.value, b, tt.expect)
			}
		})
	}
}

func TestWrapRawPCM_Header(t *testing.T) {
	pcmData := []byte{0x01, 0x02, 0x03, 0x04, 0x05, 0x06, 0x07, 0x08}
	wavData := WrapRawPCM(pcmData, 44100, 2, 16)

	if len(wavData) != HeaderSize+len(pcmData) {
		t.Fatalf("expected %d bytes, got %d", HeaderSize+len(pcmData), len(wavData))
	}
	if !IsWAV(wavData) {
		t.Error("IsWAV() = false for wrapped PCM")
	}
	if got := binary.LittleEndian.Uint32(wavData[28:32]); got != 176400 {
		t.Errorf("byte rate = %d, want 176400", got)
	}
	if got := binary.LittleEndian.Uint16(wavData[32:34]); got != 4 {
		t.Errorf("block align = %d, want 4", got)
	}
	if !bytes.Equal(wavData[44:], pcmData) {
		t.Errorf("PCM data mismatch")
	}
}

func TestEncodeDecode_RoundTrip(t *testing.T) {
	samples := []int16{0, 16384, -16384, 32767, -32768, 1}
	data := Encode(samples, 22050, 2)

	got, err := Decode(data)
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if got.SampleRate != 22050 || got.Channels != 2 || got.BitsPerSample != 16 {
		t.Errorf("format = %d Hz %d ch %d bits, want 22050 Hz 2 ch 16 bits",
			got.SampleRate, got.Channels, got.BitsPerSample)
	}
	if len(got.Samples) != len(samples) {
		t.Fatalf("len(Samples) = %d, want %d", len(got.Samples), len(samples))
	}
	for i, s := range samples {
		want := float64(s) / 32768
		if got.Samples[i] != want {
			t.Errorf("Samples[%d] = %v, want %v", i, got.Samples[i], want)
		}
	}
}

func TestDecode_SkipsUnknownChunks(t *testing.T) {
	base := Encode([]int16{100, 200, 300}, 16000, 1)

	// Insert an odd-sized LIST chunk (with pad byte) between fmt and data.
	list := []byte("LIST\x03\x00\x00\x00abc\x00")
	data := append([]byte{}, base[:36]...)
	data = append(data, list...)
	data = append(data, base[36:]...)
	PutLE32(data[4:8], uint32(len(data)-8))

	got, err := Decode(data)
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if len(got.Samples) != 3 {
		t.Errorf("len(Samples) = %d, want 3", len(got.Samples))
	}
}

func TestDecode_Float32(t *testing.T) {
	values := []float32{0.5, -0.25}
	pcm := make([]byte, 8)
	for i, v := range values {
		binary.LittleEndian.PutUint32(pcm[i*4:], math.Float32bits(v))
	}
	data := WrapRawPCM(pcm, 8000, 1, 32)
	PutLE16(data[20:22], FormatFloat)

	got, err := Decode(data)
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if got.Samples[0] != 0.5 || got.Samples[1] != -0.25 {
		t.Errorf("Samples = %v, want [0.5 -0.25]", got.Samples)
	}
}

func TestDecode_Errors(t *testing.T) {
	unsupported := WrapRawPCM([]byte{0, 0}, 8000, 1, 12)
	noData := WrapRawPCM(nil, 8000, 1, 16)[:36]

	tests := []struct {
		name string
		data []byte
		want error
	}{
		{"empty", nil, ErrNotWAV},
		{"garbage", []byte("not a wav file at all"), ErrNotWAV},
		{"unsupported bits", unsupported, ErrUnsupported},
		{"missing data chunk", noData, ErrMalformed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode(tt.data)
			if !errors.Is(err, tt.want) {
				t.Errorf("Decode() error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestCreateMinimal(t *testing.T) {
	data := CreateMinimal(100, 44100, 2)

	expectedSize := HeaderSize + 100*2*2
	if len(data) != expectedSize {
		t.Errorf("CreateMinimal(100, 44100, 2) length = %d, want %d", len(data), expectedSize)
	}

	got, err := Decode(data)
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	for i, s := range got.Samples {
		if s != 0 {
			t.Fatalf("CreateMinimal should produce silence, got %v at %d", s, i)
		}
	}
}
