package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/dgnsrekt/prosodic-go/internal/audio"
)

// Play loads the current result into the player and starts it. It returns
// false with no error when a session is already active; overlapping sessions
// are never started. Playing before anything was generated is ErrInvalidInput.
func (p *Pipeline) Play(ctx context.Context) (bool, error) {
	p.playMu.Lock()
	defer p.playMu.Unlock()

	p.mu.Lock()
	res, closed := p.current, p.closed
	p.mu.Unlock()

	if closed {
		return false, ErrClosed
	}
	if res == nil {
		return false, errors.Join(ErrInvalidInput, ErrNoResult)
	}
	player := p.opts.Player
	if player == nil {
		return false, errors.Join(ErrPlayback, errNoPlayer)
	}
	if player.IsPlaying() {
		p.logger.Debug("playback already active, ignoring play", "result_id", res.ID)
		return false, nil
	}

	if err := player.Load(res.Buffer); err != nil {
		return false, errors.Join(ErrPlayback, err)
	}
	if err := player.Play(ctx); err != nil {
		if ctx.Err() != nil {
			return false, ctx.Err()
		}
		return false, errors.Join(ErrPlayback, err)
	}

	p.metrics.PlaybackStarted(ctx)
	done := player.Done()
	go func() {
		<-done
		p.metrics.PlaybackEnded(context.Background())
	}()

	p.logger.Info("playback started",
		"result_id", res.ID,
		"duration", res.Duration(),
	)
	return true, nil
}

// Stop halts any active playback. It is safe to call at any time.
func (p *Pipeline) Stop() error {
	if p.opts.Player == nil || !p.opts.Player.IsPlaying() {
		return nil
	}
	if err := p.opts.Player.Stop(); err != nil {
		return errors.Join(ErrPlayback, err)
	}
	p.logger.Info("playback stopped")
	return nil
}

// IsPlaying reports whether a playback session is active.
func (p *Pipeline) IsPlaying() bool {
	return p.opts.Player != nil && p.opts.Player.IsPlaying()
}

// Wait blocks until the active playback session ends or ctx is done. It
// returns immediately when nothing is playing.
func (p *Pipeline) Wait(ctx context.Context) error {
	if !p.IsPlaying() {
		return nil
	}
	select {
	case <-p.opts.Player.Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Save encodes the current result to path. The container format follows the
// file extension; anything but .wav needs ffmpeg.
func (p *Pipeline) Save(ctx context.Context, path string) error {
	res := p.Current()
	if res == nil {
		return errors.Join(ErrIOFailure, ErrNoResult)
	}

	format := audio.FormatForPath(path)
	data, err := p.opts.Codec.Encode(ctx, res.Buffer, format)
	if err != nil {
		if ctx.Err() != nil || errors.Is(err, ErrCodecFailure) {
			return err
		}
		return errors.Join(ErrCodecFailure, err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return errors.Join(ErrIOFailure, err)
	}

	p.logger.Info("result saved",
		"result_id", res.ID,
		"path", path,
		"format", format,
		"bytes", len(data),
	)
	return nil
}

// WAV returns the current result encoded as WAV. The artifact is read when
// there is one.
func (p *Pipeline) WAV(ctx context.Context) ([]byte, error) {
	res := p.Current()
	if res == nil {
		return nil, errors.Join(ErrInvalidInput, ErrNoResult)
	}
	if res.Artifact != nil {
		data, err := os.ReadFile(res.Artifact.Path())
		if err == nil {
			return data, nil
		}
		p.logger.Warn("artifact unreadable, re-encoding", "path", res.Artifact.Path(), "error", err)
	}
	data, err := p.opts.Codec.Encode(ctx, res.Buffer, audio.FormatWAV)
	if err != nil {
		return nil, fmt.Errorf("encode wav: %w", err)
	}
	return data, nil
}

// Close stops playback and releases the current result. Generation calls
// fail with ErrClosed afterwards.
func (p *Pipeline) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	res := p.current
	p.current = nil
	p.mu.Unlock()

	err := p.Stop()
	p.release(res)
	return err
}
