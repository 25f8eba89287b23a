package playback

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/dgnsrekt/prosodic-go/internal/audio"
)

// testTimeout is a failsafe, not primary synchronization.
const testTimeout = 5 * time.Second

// testLogger returns a no-op logger for tests
func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testBuffer() *audio.Buffer {
	return audio.NewBuffer(make([]float64, 1600), 16000, 1)
}

// blockingStreamer signals when a session starts and runs until cancelled.
func blockingStreamer(started chan<- struct{}) StreamerFunc {
	return func(ctx context.Context, buf *audio.Buffer) error {
		started <- struct{}{}
		<-ctx.Done()
		return ctx.Err()
	}
}

func waitStarted(t *testing.T, started <-chan struct{}) {
	t.Helper()
	select {
	case <-started:
	case <-time.After(testTimeout):
		t.Fatal("timeout waiting for session to start")
	}
}

func waitDone(t *testing.T, p *Player) {
	t.Helper()
	select {
	case <-p.Done():
	case <-time.After(testTimeout):
		t.Fatal("timeout waiting for session to end")
	}
}

func TestPlayer_Idle(t *testing.T) {
	p := NewPlayer(SilentStreamer{}, testLogger())

	if p.IsPlaying() {
		t.Error("IsPlaying() = true for a new player")
	}
	if err := p.Stop(); err != nil {
		t.Errorf("Stop() error = %v", err)
	}
	select {
	case <-p.Done():
	default:
		t.Error("Done() not closed while idle")
	}
	if err := p.Play(context.Background()); !errors.Is(err, ErrNothingLoaded) {
		t.Errorf("Play() error = %v, want ErrNothingLoaded", err)
	}
}

func TestPlayer_LoadEmpty(t *testing.T) {
	p := NewPlayer(SilentStreamer{}, testLogger())

	if err := p.Load(nil); !errors.Is(err, ErrEmptyBuffer) {
		t.Errorf("Load(nil) error = %v, want ErrEmptyBuffer", err)
	}
	if err := p.Load(audio.NewBuffer(nil, 16000, 1)); !errors.Is(err, ErrEmptyBuffer) {
		t.Errorf("Load(empty) error = %v, want ErrEmptyBuffer", err)
	}
}

func TestPlayer_SingleSession(t *testing.T) {
	started := make(chan struct{}, 1)
	p := NewPlayer(blockingStreamer(started), testLogger())

	if err := p.Load(testBuffer()); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if err := p.Play(context.Background()); err != nil {
		t.Fatalf("Play() error = %v", err)
	}
	waitStarted(t, started)

	if !p.IsPlaying() {
		t.Fatal("IsPlaying() = false during session")
	}
	if err := p.Play(context.Background()); !errors.Is(err, ErrBusy) {
		t.Errorf("second Play() error = %v, want ErrBusy", err)
	}
	if err := p.Load(testBuffer()); !errors.Is(err, ErrBusy) {
		t.Errorf("Load() during session error = %v, want ErrBusy", err)
	}

	if err := p.Stop(); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}
	if p.IsPlaying() {
		t.Error("IsPlaying() = true after Stop")
	}
	waitDone(t, p)
	if err := p.Err(); err != nil {
		t.Errorf("Err() after Stop = %v, want nil", err)
	}
}

func TestPlayer_SessionOutlivesRequestContext(t *testing.T) {
	started := make(chan struct{}, 1)
	p := NewPlayer(blockingStreamer(started), testLogger())
	p.Load(testBuffer())

	ctx, cancel := context.WithCancel(context.Background())
	if err := p.Play(ctx); err != nil {
		t.Fatal(err)
	}
	waitStarted(t, started)
	cancel()

	select {
	case <-p.Done():
		t.Fatal("session ended with the request context")
	case <-time.After(50 * time.Millisecond):
	}

	p.Stop()
	waitDone(t, p)
}

func TestPlayer_NaturalEnd(t *testing.T) {
	p := NewPlayer(StreamerFunc(func(ctx context.Context, buf *audio.Buffer) error {
		return nil
	}), testLogger())
	p.Load(testBuffer())

	if err := p.Play(context.Background()); err != nil {
		t.Fatal(err)
	}
	waitDone(t, p)

	if p.IsPlaying() {
		t.Error("IsPlaying() = true after session ended")
	}

	// The loaded buffer can be replayed.
	if err := p.Play(context.Background()); err != nil {
		t.Errorf("replay error = %v", err)
	}
	waitDone(t, p)
}

func TestPlayer_StreamError(t *testing.T) {
	deviceErr := errors.New("device unplugged")
	p := NewPlayer(StreamerFunc(func(ctx context.Context, buf *audio.Buffer) error {
		return deviceErr
	}), testLogger())
	p.Load(testBuffer())

	if err := p.Play(context.Background()); err != nil {
		t.Fatal(err)
	}
	waitDone(t, p)

	if err := p.Err(); !errors.Is(err, deviceErr) {
		t.Errorf("Err() = %v, want %v", err, deviceErr)
	}
}

func TestSilentStreamer(t *testing.T) {
	short := audio.NewBuffer(make([]float64, 160), 16000, 1)
	if err := (SilentStreamer{}).Stream(context.Background(), short); err != nil {
		t.Errorf("Stream() error = %v", err)
	}

	long := audio.NewBuffer(make([]float64, 16000*60), 16000, 1)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := (SilentStreamer{}).Stream(ctx, long); !errors.Is(err, context.Canceled) {
		t.Errorf("Stream() error = %v, want context.Canceled", err)
	}
}
