// Package playback plays generated audio on a device and runs queued
// generation jobs.
package playback

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/dgnsrekt/prosodic-go/internal/audio"
)

var (
	// ErrNothingLoaded is returned by Play before a buffer was loaded.
	ErrNothingLoaded = errors.New("no audio loaded")
	// ErrEmptyBuffer is returned when loading a buffer with no frames.
	ErrEmptyBuffer = errors.New("audio buffer is empty")
	// ErrBusy is returned when loading or playing during an active session.
	ErrBusy = errors.New("playback session active")
)

// Streamer renders a buffer on a device. Stream blocks until the audio has
// finished or ctx is done.
type Streamer interface {
	Stream(ctx context.Context, buf *audio.Buffer) error
}

// StreamerFunc adapts a function to Streamer.
type StreamerFunc func(ctx context.Context, buf *audio.Buffer) error

// Stream calls f.
func (f StreamerFunc) Stream(ctx context.Context, buf *audio.Buffer) error {
	return f(ctx, buf)
}

// Player runs one playback session at a time over a Streamer. Play returns
// as soon as the session has started; Done and Err report how it ended.
type Player struct {
	streamer Streamer
	logger   *slog.Logger

	mu      sync.Mutex
	buf     *audio.Buffer
	cancel  context.CancelFunc
	done    chan struct{}
	lastErr error
}

// NewPlayer creates a player.
func NewPlayer(s Streamer, logger *slog.Logger) *Player {
	done := make(chan struct{})
	close(done)
	return &Player{streamer: s, logger: logger, done: done}
}

// Load sets the buffer the next session plays.
func (p *Player) Load(buf *audio.Buffer) error {
	if buf == nil || buf.Frames() == 0 {
		return ErrEmptyBuffer
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cancel != nil {
		return ErrBusy
	}
	p.buf = buf
	return nil
}

// Play starts a session with the loaded buffer. The session outlives ctx's
// cancellation but keeps its values; use Stop to end it early.
func (p *Player) Play(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.cancel != nil {
		return ErrBusy
	}
	if p.buf == nil {
		return ErrNothingLoaded
	}

	sctx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	done := make(chan struct{})
	p.cancel = cancel
	p.done = done
	p.lastErr = nil

	go p.run(sctx, p.buf, done)
	return nil
}

func (p *Player) run(ctx context.Context, buf *audio.Buffer, done chan struct{}) {
	err := p.streamer.Stream(ctx, buf)
	if ctx.Err() != nil {
		// Stopped.
		err = nil
	}
	if err != nil {
		p.logger.Error("playback failed", "error", err)
	} else {
		p.logger.Debug("playback finished", "duration", buf.Duration())
	}

	p.mu.Lock()
	p.cancel()
	p.cancel = nil
	p.lastErr = err
	p.mu.Unlock()
	close(done)
}

// Stop ends the active session and waits for the device to let go. It is a
// no-op when nothing is playing.
func (p *Player) Stop() error {
	p.mu.Lock()
	cancel, done := p.cancel, p.done
	p.mu.Unlock()

	if cancel == nil {
		return nil
	}
	cancel()
	<-done
	return nil
}

// IsPlaying reports whether a session is active.
func (p *Player) IsPlaying() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.cancel != nil
}

// Done returns a channel closed when the current session ends. It is already
// closed when nothing is playing.
func (p *Player) Done() <-chan struct{} {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.done
}

// Err returns the error that ended the last session, if any. A stopped
// session has no error.
func (p *Player) Err() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.lastErr
}
