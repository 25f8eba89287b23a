package playback

import (
	"context"
	"errors"
	"log/slog"

	"github.com/dgnsrekt/prosodic-go/internal/pipeline"
	"github.com/dgnsrekt/prosodic-go/internal/queue"
)

// Generator is the part of the pipeline the handler drives.
type Generator interface {
	Generate(ctx context.Context, req pipeline.Request) (*pipeline.Result, error)
	Play(ctx context.Context) (bool, error)
	Wait(ctx context.Context) error
	Stop() error
}

// Handler runs queued jobs: generate, then play when asked to.
type Handler struct {
	gen    Generator
	logger *slog.Logger
}

// NewHandler creates a new playback handler.
func NewHandler(gen Generator, logger *slog.Logger) *Handler {
	return &Handler{gen: gen, logger: logger}
}

// Handle processes a single job.
// This is the function passed to queue.SetHandler.
func (h *Handler) Handle(ctx context.Context, job *queue.Job) (*pipeline.Result, error) {
	h.logger.Info("processing generation job",
		"job_id", job.ID,
		"text_length", len(job.Request.Text),
		"dialect", job.Request.Dialect.String(),
		"emotion", job.Request.Emotion.String(),
		"play", job.Play,
	)

	res, err := h.gen.Generate(ctx, job.Request)
	if err != nil {
		return nil, err
	}

	h.logger.Debug("generation complete",
		"job_id", job.ID,
		"result_id", res.ID,
		"duration", res.Duration(),
	)

	if !job.Play {
		return res, nil
	}

	// A job asking for playback interrupts whatever is still playing.
	if err := h.gen.Stop(); err != nil {
		h.logger.Warn("failed to stop previous playback", "job_id", job.ID, "error", err)
	}

	started, err := h.gen.Play(ctx)
	if err != nil {
		h.logger.Error("playback failed", "job_id", job.ID, "error", err)
		return res, err
	}
	if !started {
		return res, nil
	}

	if err := h.gen.Wait(ctx); err != nil {
		if errors.Is(err, context.Canceled) {
			h.logger.Info("playback interrupted", "job_id", job.ID)
		}
		if serr := h.gen.Stop(); serr != nil {
			h.logger.Warn("failed to stop playback", "job_id", job.ID, "error", serr)
		}
		return res, err
	}

	h.logger.Info("speech playback complete", "job_id", job.ID)
	return res, nil
}
