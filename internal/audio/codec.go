package audio

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/dgnsrekt/prosodic-go/internal/wav"
)

// ErrFFmpegNotFound is returned when a container other than WAV is requested
// and no ffmpeg binary is available.
var ErrFFmpegNotFound = errors.New("ffmpeg not found in PATH")

// Container formats accepted by Codec.Encode.
const (
	FormatWAV  = "wav"
	FormatMP3  = "mp3"
	FormatOGG  = "ogg"
	FormatFLAC = "flac"
)

// Codec decodes synthesized audio and encodes buffers for saving. WAV is
// handled natively; everything else is piped through ffmpeg.
type Codec struct {
	ffmpegPath string
}

// NewCodec creates a codec. An empty path looks ffmpeg up in PATH; when it
// cannot be found the codec still handles WAV.
func NewCodec(ffmpegPath string) *Codec {
	if ffmpegPath == "" {
		if p, err := exec.LookPath("ffmpeg"); err == nil {
			ffmpegPath = p
		}
	}
	return &Codec{ffmpegPath: ffmpegPath}
}

// HasFFmpeg reports whether non-WAV containers are available.
func (c *Codec) HasFFmpeg() bool {
	return c.ffmpegPath != ""
}

// Decode turns container bytes into a sample buffer.
func (c *Codec) Decode(ctx context.Context, data []byte) (*Buffer, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty input data", ErrCodecFailed)
	}

	if !wav.IsWAV(data) {
		// -f wav: decode whatever ffmpeg detects into 16-bit PCM WAV on stdout
		out, err := c.run(ctx, data,
			"-i", "pipe:0",
			"-f", "wav",
			"-acodec", "pcm_s16le",
			"-loglevel", "error",
			"pipe:1",
		)
		if err != nil {
			return nil, err
		}
		data = out
	}

	a, err := wav.Decode(data)
	if err != nil {
		return nil, errors.Join(ErrCodecFailed, err)
	}
	return NewBuffer(a.Samples, a.SampleRate, a.Channels), nil
}

// Encode writes the buffer in the named container format. WAV output is
// 16-bit PCM at the buffer's sample rate.
func (c *Codec) Encode(ctx context.Context, b *Buffer, format string) ([]byte, error) {
	if !b.Format().Valid() {
		return nil, fmt.Errorf("%w: invalid buffer format %s", ErrCodecFailed, b.Format())
	}

	pcm := wav.Encode(b.ToPCM16(), b.SampleRate, b.Channels)

	switch strings.ToLower(format) {
	case "", FormatWAV:
		return pcm, nil
	case FormatMP3, FormatOGG, FormatFLAC:
		return c.run(ctx, pcm,
			"-f", "wav",
			"-i", "pipe:0",
			"-f", strings.ToLower(format),
			"-loglevel", "error",
			"pipe:1",
		)
	default:
		return nil, fmt.Errorf("%w: unsupported output format %q", ErrCodecFailed, format)
	}
}

// FormatForPath picks a container format from a file extension, defaulting
// to WAV.
func FormatForPath(path string) string {
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
	if ext == "" {
		return FormatWAV
	}
	return ext
}

func (c *Codec) run(ctx context.Context, input []byte, args ...string) ([]byte, error) {
	if c.ffmpegPath == "" {
		return nil, errors.Join(ErrCodecFailed, ErrFFmpegNotFound)
	}

	cmd := exec.CommandContext(ctx, c.ffmpegPath, args...)
	cmd.Stdin = bytes.NewReader(input)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("%w: ffmpeg: %s", ErrCodecFailed, strings.TrimSpace(stderr.String()))
	}
	if stdout.Len() == 0 {
		return nil, fmt.Errorf("%w: ffmpeg produced no output", ErrCodecFailed)
	}
	return stdout.Bytes(), nil
}
