package playback

import (
	"context"
	"errors"
	"os/exec"
	"path/filepath"
	"testing"
	"time"
)

func requireShell(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}
}

func TestDetectCommand_Override(t *testing.T) {
	requireShell(t)

	got, err := DetectCommand("  sh -c  true ")
	if err != nil {
		t.Fatalf("DetectCommand() error = %v", err)
	}
	want := []string{"sh", "-c", "true"}
	if len(got) != len(want) {
		t.Fatalf("DetectCommand() = %q, want %q", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("arg %d = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestDetectCommand_MissingOverride(t *testing.T) {
	_, err := DetectCommand("definitely-not-a-player-binary")
	if !errors.Is(err, ErrNoPlayer) {
		t.Errorf("error = %v, want ErrNoPlayer", err)
	}
}

func TestNewExecStreamer_EmptyCommand(t *testing.T) {
	if _, err := NewExecStreamer(nil, "", testLogger()); !errors.Is(err, ErrNoPlayer) {
		t.Errorf("error = %v, want ErrNoPlayer", err)
	}
}

func TestExecStreamer_Stream(t *testing.T) {
	requireShell(t)
	dir := t.TempDir()

	tests := []struct {
		name    string
		script  string
		wantErr bool
	}{
		// The WAV path arrives as $0.
		{"file written", `test -s "$0" && head -c 4 "$0" | grep -q RIFF`, false},
		{"player fails", `exit 3`, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := NewExecStreamer([]string{"sh", "-c", tt.script}, dir, testLogger())
			if err != nil {
				t.Fatal(err)
			}

			err = s.Stream(context.Background(), testBuffer())
			if (err != nil) != tt.wantErr {
				t.Errorf("Stream() error = %v, wantErr %v", err, tt.wantErr)
			}

			files, _ := filepath.Glob(filepath.Join(dir, "prosodic-play-*.wav"))
			if len(files) != 0 {
				t.Errorf("temp files left behind: %v", files)
			}
		})
	}
}

func TestExecStreamer_Cancel(t *testing.T) {
	requireShell(t)

	s, err := NewExecStreamer([]string{"sh", "-c", "sleep 10"}, t.TempDir(), testLogger())
	if err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	start := time.Now()
	err = s.Stream(ctx, testBuffer())
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Stream() error = %v, want context.DeadlineExceeded", err)
	}
	if elapsed := time.Since(start); elapsed > 5*time.Second {
		t.Errorf("Stream() took %v after cancel", elapsed)
	}
}

func TestExecPlayer_StopKillsProcess(t *testing.T) {
	requireShell(t)

	s, err := NewExecStreamer([]string{"sh", "-c", "sleep 10"}, t.TempDir(), testLogger())
	if err != nil {
		t.Fatal(err)
	}
	p := NewPlayer(s, testLogger())
	p.Load(testBuffer())

	if err := p.Play(context.Background()); err != nil {
		t.Fatal(err)
	}
	if err := p.Stop(); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}
	if p.IsPlaying() {
		t.Error("IsPlaying() = true after Stop")
	}
}
