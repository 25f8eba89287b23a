package playback

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/dgnsrekt/prosodic-go/internal/audio"
	"github.com/dgnsrekt/prosodic-go/internal/wav"
)

// ErrNoPlayer is returned when no local player binary can be found.
var ErrNoPlayer = errors.New("no audio player found")

// candidates are tried in order by DetectCommand. The file path is appended.
var candidates = [][]string{
	{"ffplay", "-nodisp", "-autoexit", "-loglevel", "error"},
	{"paplay"},
	{"aplay", "-q"},
}

// DetectCommand returns the player command line. A non-empty override is
// split on whitespace and used as is; otherwise the first installed
// candidate wins.
func DetectCommand(override string) ([]string, error) {
	if fields := strings.Fields(override); len(fields) > 0 {
		if _, err := exec.LookPath(fields[0]); err != nil {
			return nil, fmt.Errorf("%w: %s", ErrNoPlayer, fields[0])
		}
		return fields, nil
	}
	for _, c := range candidates {
		if _, err := exec.LookPath(c[0]); err == nil {
			return c, nil
		}
	}
	return nil, ErrNoPlayer
}

// ExecStreamer plays audio by writing a temporary WAV file and running a
// local player binary on it.
type ExecStreamer struct {
	command []string
	tempDir string
	logger  *slog.Logger
}

// NewExecStreamer creates a streamer running command with the WAV path as
// its last argument.
func NewExecStreamer(command []string, tempDir string, logger *slog.Logger) (*ExecStreamer, error) {
	if len(command) == 0 {
		return nil, ErrNoPlayer
	}
	return &ExecStreamer{command: command, tempDir: tempDir, logger: logger}, nil
}

// NewExecPlayer detects a local player and wraps it in a Player.
func NewExecPlayer(override, tempDir string, logger *slog.Logger) (*Player, error) {
	command, err := DetectCommand(override)
	if err != nil {
		return nil, err
	}
	s, err := NewExecStreamer(command, tempDir, logger)
	if err != nil {
		return nil, err
	}
	logger.Info("using local audio player", "command", strings.Join(command, " "))
	return NewPlayer(s, logger), nil
}

// Stream runs the player and waits for it to exit. Cancelling ctx kills it.
func (e *ExecStreamer) Stream(ctx context.Context, buf *audio.Buffer) error {
	f, err := os.CreateTemp(e.tempDir, "prosodic-play-*.wav")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	path := f.Name()
	defer os.Remove(path)

	data := wav.Encode(buf.ToPCM16(), buf.SampleRate, buf.Channels)
	_, werr := f.Write(data)
	if err := errors.Join(werr, f.Close()); err != nil {
		return fmt.Errorf("write temp file: %w", err)
	}

	args := append(append([]string{}, e.command[1:]...), path)
	cmd := exec.CommandContext(ctx, e.command[0], args...)
	cmd.WaitDelay = time.Second

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	start := time.Now()
	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		e.logger.Error("player failed",
			"command", e.command[0],
			"error", err,
			"stderr", stderr.String(),
		)
		return fmt.Errorf("%s: %w", e.command[0], err)
	}

	e.logger.Debug("player exited", "command", e.command[0], "elapsed", time.Since(start))
	return nil
}

// SilentStreamer plays nothing for the buffer's duration. It stands in for
// a device on headless hosts.
type SilentStreamer struct{}

// Stream waits out the buffer's duration.
func (SilentStreamer) Stream(ctx context.Context, buf *audio.Buffer) error {
	t := time.NewTimer(buf.Duration())
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
