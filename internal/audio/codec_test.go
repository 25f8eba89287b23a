package audio

import (
	"context"
	"errors"
	"math"
	"os/exec"
	"testing"

	"github.com/dgnsrekt/prosodic-go/internal/wav"
)

func TestCodec_WAVRoundTrip(t *testing.T) {
	c := &Codec{}
	in := sine(2205, 22050, 300, 0.5)

	data, err := c.Encode(context.Background(), in, FormatWAV)
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}
	if !wav.IsWAV(data) {
		t.Fatal("Encode() did not produce a WAV file")
	}

	out, err := c.Decode(context.Background(), data)
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if out.Frames() != in.Frames() || out.SampleRate != in.SampleRate || out.Channels != in.Channels {
		t.Fatalf("decoded %d frames %s, want %d frames %s", out.Frames(), out.Format(), in.Frames(), in.Format())
	}
	for i := range in.Samples {
		if math.Abs(out.Samples[i]-in.Samples[i]) > 1.0/32768 {
			t.Fatalf("sample %d = %v, want %v", i, out.Samples[i], in.Samples[i])
		}
	}
}

func TestCodec_DecodeErrors(t *testing.T) {
	c := &Codec{}

	tests := []struct {
		name string
		data []byte
	}{
		{"nil", nil},
		{"empty", []byte{}},
		{"not wav without ffmpeg", []byte("ID3 not really an mp3")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := c.Decode(context.Background(), tt.data)
			if !errors.Is(err, ErrCodecFailed) {
				t.Errorf("Decode() error = %v, want ErrCodecFailed", err)
			}
		})
	}

	_, err := c.Decode(context.Background(), []byte("not a wav file"))
	if !errors.Is(err, ErrFFmpegNotFound) {
		t.Errorf("Decode() without ffmpeg error = %v, want ErrFFmpegNotFound", err)
	}
}

func TestCodec_EncodeErrors(t *testing.T) {
	c := &Codec{}
	buf := sine(100, 8000, 100, 0.5)

	if _, err := c.Encode(context.Background(), buf, "aiff"); !errors.Is(err, ErrCodecFailed) {
		t.Errorf("Encode(aiff) error = %v, want ErrCodecFailed", err)
	}
	if _, err := c.Encode(context.Background(), buf, FormatMP3); !errors.Is(err, ErrFFmpegNotFound) {
		t.Errorf("Encode(mp3) without ffmpeg error = %v, want ErrFFmpegNotFound", err)
	}
	if _, err := c.Encode(context.Background(), NewBuffer(nil, 0, 1), FormatWAV); !errors.Is(err, ErrCodecFailed) {
		t.Errorf("Encode(invalid buffer) error = %v, want ErrCodecFailed", err)
	}
}

func TestFormatForPath(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{"out.wav", FormatWAV},
		{"/tmp/OUT.MP3", FormatMP3},
		{"speech.flac", FormatFLAC},
		{"noext", FormatWAV},
	}
	for _, tt := range tests {
		if got := FormatForPath(tt.path); got != tt.want {
			t.Errorf("FormatForPath(%q) = %q, want %q", tt.path, got, tt.want)
		}
	}
}

func TestCodec_FFmpegRoundTrip(t *testing.T) {
	if _, err := exec.LookPath("ffmpeg"); err != nil {
		t.Skip("ffmpeg not installed, skipping codec tests")
	}

	c := NewCodec("")
	if !c.HasFFmpeg() {
		t.Fatal("HasFFmpeg() = false with ffmpeg in PATH")
	}

	flac, err := c.Encode(context.Background(), sine(8000, 16000, 440, 0.5), FormatFLAC)
	if err != nil {
		t.Fatalf("Encode(flac) error = %v", err)
	}

	out, err := c.Decode(context.Background(), flac)
	if err != nil {
		t.Fatalf("Decode(flac) error = %v", err)
	}
	if out.SampleRate != 16000 || out.Frames() != 8000 {
		t.Errorf("decoded %d frames at %d Hz, want 8000 at 16000", out.Frames(), out.SampleRate)
	}
}

func TestCodec_ContextCancel(t *testing.T) {
	if _, err := exec.LookPath("ffmpeg"); err != nil {
		t.Skip("ffmpeg not installed, skipping codec tests")
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewCodec("").Decode(ctx, []byte("not a wav file"))
	if err == nil {
		t.Error("Decode() with cancelled context should return error")
	}
}
