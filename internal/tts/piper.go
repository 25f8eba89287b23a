package tts

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"

	"github.com/dgnsrekt/prosodic-go/internal/wav"
)

var (
	// ErrPiperNotFound is returned when the piper binary is not on PATH.
	ErrPiperNotFound = errors.New("piper binary not found")
	// ErrNoModelSpecified is returned when no voice model is configured.
	ErrNoModelSpecified = errors.New("no piper model specified")
)

// PiperConfig holds configuration for the Piper TTS engine.
type PiperConfig struct {
	BinaryPath string
	// ModelPath is the ONNX voice model. The model fixes the language, so
	// SynthesizeRequest.Language is ignored.
	ModelPath string
	// DefaultVoice is the speaker used when a request names none.
	DefaultVoice string
	// SampleRate is the model's output rate. Defaults to 22050.
	SampleRate int
}

// PiperEngine runs one local Piper process per request and returns its raw
// 16-bit mono output as WAV.
type PiperEngine struct {
	config PiperConfig
	logger *slog.Logger
}

// NewPiperEngine checks that the binary exists and a model is set.
func NewPiperEngine(cfg PiperConfig, logger *slog.Logger) (*PiperEngine, error) {
	if cfg.BinaryPath == "" {
		cfg.BinaryPath = "piper"
	}
	if _, err := exec.LookPath(cfg.BinaryPath); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrPiperNotFound, cfg.BinaryPath)
	}
	if cfg.ModelPath == "" {
		return nil, ErrNoModelSpecified
	}
	if cfg.SampleRate <= 0 {
		cfg.SampleRate = 22050
	}
	return &PiperEngine{config: cfg, logger: logger}, nil
}

// Name returns "piper".
func (p *PiperEngine) Name() string { return "piper" }

// args builds the command line for one request. "default" and "" both
// select the configured speaker.
func (p *PiperEngine) args(voice string) []string {
	if voice == "" || voice == "default" {
		voice = p.config.DefaultVoice
	}
	args := []string{"--model", p.config.ModelPath, "--output-raw"}
	if voice != "" && voice != "default" {
		args = append(args, "--speaker", voice)
	}
	return args
}

// Synthesize feeds the text to piper on stdin.
func (p *PiperEngine) Synthesize(ctx context.Context, req SynthesizeRequest) (*AudioResult, error) {
	if strings.TrimSpace(req.Text) == "" {
		return nil, fmt.Errorf("%w: empty text", ErrSynthesisFailed)
	}

	args := p.args(req.Voice)
	cmd := exec.CommandContext(ctx, p.config.BinaryPath, args...)
	cmd.Stdin = strings.NewReader(req.Text)

	var pcm, stderr bytes.Buffer
	cmd.Stdout = &pcm
	cmd.Stderr = &stderr

	p.logger.Debug("running piper", "args", strings.Join(args, " "), "text_length", len(req.Text))

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		msg := strings.TrimSpace(stderr.String())
		p.logger.Error("piper failed", "error", err, "stderr", msg)
		return nil, errors.Join(ErrSynthesisFailed, fmt.Errorf("piper: %w: %s", err, msg))
	}
	// Odd byte counts mean a truncated final sample.
	raw := pcm.Bytes()
	raw = raw[:len(raw)&^1]
	if len(raw) == 0 {
		return nil, fmt.Errorf("%w: piper produced no audio", ErrSynthesisFailed)
	}

	p.logger.Debug("piper synthesis complete", "output_bytes", len(raw))

	return &AudioResult{
		Data:       wav.WrapRawPCM(raw, p.config.SampleRate, 1, 16),
		Format:     "wav",
		SampleRate: p.config.SampleRate,
		Channels:   1,
	}, nil
}
