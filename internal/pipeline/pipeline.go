// Package pipeline turns Marathi text into expressive speech. It rewrites
// the text for a dialect, synthesizes it, and shapes the waveform with the
// dialect's rhythm and articulation plus either an emotion transform or
// punctuation-driven per-segment processing. A Pipeline holds at most one
// generated result and drives playback and saving of it.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/dgnsrekt/prosodic-go/internal/audio"
	"github.com/dgnsrekt/prosodic-go/internal/dialect"
	"github.com/dgnsrekt/prosodic-go/internal/emotion"
	"github.com/dgnsrekt/prosodic-go/internal/observe"
	"github.com/dgnsrekt/prosodic-go/internal/segment"
	"github.com/dgnsrekt/prosodic-go/internal/tts"
)

// Codec decodes engine output and encodes results.
type Codec interface {
	Decode(ctx context.Context, data []byte) (*audio.Buffer, error)
	Encode(ctx context.Context, buf *audio.Buffer, format string) ([]byte, error)
}

// Player is a playback device holding one loaded buffer. Play starts a
// session and returns; Done is closed when the session ends.
type Player interface {
	Load(buf *audio.Buffer) error
	Play(ctx context.Context) error
	Stop() error
	IsPlaying() bool
	Done() <-chan struct{}
}

// Options configures a Pipeline.
type Options struct {
	Engine tts.Engine
	Codec  Codec
	// Store backs each result with a file. Nil keeps results in memory only.
	Store ArtifactStore
	// Player is optional; Play fails with ErrPlayback without one.
	Player Player

	// Language is passed to the engine. Defaults to "mr".
	Language string
	Voice    string

	// Compress shapes exclamation segments.
	Compress audio.CompressConfig
	// QuestionGainDB is applied to segments ending in '?'.
	QuestionGainDB float64
	// OtherGainDB is applied to every other segment.
	OtherGainDB float64

	Metrics *observe.Metrics
	Logger  *slog.Logger
}

// DefaultOptions returns the standard segment policy: +10 dB for questions,
// -5 dB for other segments, and 1.3x compression for exclamations.
func DefaultOptions() Options {
	return Options{
		Language:       "mr",
		Compress:       audio.DefaultCompressConfig(),
		QuestionGainDB: 10,
		OtherGainDB:    -5,
	}
}

// Pipeline generates speech and holds the current result.
type Pipeline struct {
	opts    Options
	metrics *observe.Metrics
	logger  *slog.Logger

	mu      sync.Mutex
	current *Result
	closed  bool

	playMu sync.Mutex
}

// New creates a pipeline. Engine and Codec are required.
func New(opts Options) (*Pipeline, error) {
	if opts.Engine == nil {
		return nil, errors.New("pipeline: engine is required")
	}
	if opts.Codec == nil {
		return nil, errors.New("pipeline: codec is required")
	}
	if opts.Language == "" {
		opts.Language = "mr"
	}
	if opts.Compress.Ratio == 0 {
		opts.Compress = audio.DefaultCompressConfig()
	}

	p := &Pipeline{
		opts:    opts,
		metrics: opts.Metrics,
		logger:  opts.Logger,
	}
	if p.metrics == nil {
		p.metrics = observe.Discard()
	}
	if p.logger == nil {
		p.logger = slog.Default()
	}
	return p, nil
}

// Generate dispatches on the request's emotion: the punctuation marker
// selects GeneratePunctuated, anything else GenerateBasic.
func (p *Pipeline) Generate(ctx context.Context, req Request) (*Result, error) {
	if req.Emotion.IsPunctuationMode() {
		return p.GeneratePunctuated(ctx, req.Text, req.Dialect)
	}
	return p.GenerateBasic(ctx, req.Text, req.Dialect, req.Emotion)
}

// GenerateBasic synthesizes the dialect-rewritten text as one utterance,
// applies the dialect's rhythm and articulation, then the emotion transform.
// On success the result replaces the current one.
func (p *Pipeline) GenerateBasic(ctx context.Context, text string, d dialect.Dialect, e emotion.Emotion) (res *Result, err error) {
	start := time.Now()
	ctx, span := observe.StartSpan(ctx, "pipeline.GenerateBasic",
		trace.WithAttributes(
			attribute.String("dialect", d.String()),
			attribute.String("emotion", e.String()),
		),
	)
	defer func() { p.finish(ctx, span, ModeBasic, d, e.String(), start, res, err) }()

	dp, err := p.dialectProfile(text, d)
	if err != nil {
		return nil, err
	}
	if e.IsPunctuationMode() {
		return nil, errors.Join(ErrInvalidInput, emotion.ErrNotTransform)
	}
	ep, err := e.Profile()
	if err != nil {
		return nil, errors.Join(ErrInvalidInput, err)
	}

	base, err := p.synthesize(ctx, dialect.Substitute(text, dp.Substitutions))
	if err != nil {
		return nil, err
	}

	out := audio.RhythmChange(base, dp.RhythmFactor)
	out = audio.IntensityScale(out, dp.ArticulationFactor)
	out = emotion.Transform(out, ep)

	return p.install(ctx, &Result{
		Buffer:     out,
		SampleRate: base.SampleRate,
		Mode:       ModeBasic,
		Dialect:    d,
		Emotion:    e,
		Segments:   1,
	})
}

// GeneratePunctuated splits text at terminal punctuation and synthesizes each
// segment in order. Questions get QuestionGainDB, exclamations are time
// compressed, and everything else gets OtherGainDB. Segments are joined with
// no gap, converting to the first segment's format where needed, and the
// dialect's rhythm and articulation are applied once to the whole buffer.
// Any segment failure aborts the call and keeps the current result.
func (p *Pipeline) GeneratePunctuated(ctx context.Context, text string, d dialect.Dialect) (res *Result, err error) {
	start := time.Now()
	ctx, span := observe.StartSpan(ctx, "pipeline.GeneratePunctuated",
		trace.WithAttributes(attribute.String("dialect", d.String())),
	)
	defer func() { p.finish(ctx, span, ModePunctuated, d, emotion.Punctuation.String(), start, res, err) }()

	dp, err := p.dialectProfile(text, d)
	if err != nil {
		return nil, err
	}

	segments := segment.Split(text)
	if len(segments) == 0 {
		return nil, errors.Join(ErrSynthesisFailure, errNoSegments)
	}

	var acc *audio.Buffer
	for _, seg := range segments {
		segAudio, err := p.synthesize(ctx, dialect.Substitute(seg.Text, dp.Substitutions))
		if err != nil {
			return nil, fmt.Errorf("segment %d: %w", seg.Index, err)
		}

		class := terminalClass(seg.Terminal)
		switch class {
		case "question":
			segAudio = audio.GainDB(segAudio, p.opts.QuestionGainDB)
		case "exclamation":
			segAudio = audio.TimeCompress(segAudio, p.opts.Compress)
		default:
			segAudio = audio.GainDB(segAudio, p.opts.OtherGainDB)
		}
		p.metrics.RecordSegment(ctx, class)

		p.logger.Debug("segment processed",
			"segment_index", seg.Index,
			"terminal", class,
			"frames", segAudio.Frames(),
			"sample_rate", segAudio.SampleRate,
		)

		if acc == nil {
			acc = segAudio
			continue
		}
		if !acc.Compatible(segAudio) {
			if segAudio, err = audio.ConvertFormat(segAudio, acc.Format()); err != nil {
				return nil, fmt.Errorf("segment %d: %w", seg.Index, err)
			}
		}
		if err := acc.Append(segAudio); err != nil {
			return nil, fmt.Errorf("segment %d: %w", seg.Index, err)
		}
	}

	out := audio.RhythmChange(acc, dp.RhythmFactor)
	out = audio.IntensityScale(out, dp.ArticulationFactor)

	return p.install(ctx, &Result{
		Buffer:     out,
		SampleRate: acc.SampleRate,
		Mode:       ModePunctuated,
		Dialect:    d,
		Emotion:    emotion.Punctuation,
		Segments:   len(segments),
	})
}

// Current returns the current result, or nil.
func (p *Pipeline) Current() *Result {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.current
}

func (p *Pipeline) dialectProfile(text string, d dialect.Dialect) (dialect.Profile, error) {
	p.mu.Lock()
	closed := p.closed
	p.mu.Unlock()
	if closed {
		return dialect.Profile{}, ErrClosed
	}
	if strings.TrimSpace(text) == "" {
		return dialect.Profile{}, fmt.Errorf("%w: empty text", ErrInvalidInput)
	}
	dp, err := d.Profile()
	if err != nil {
		return dialect.Profile{}, errors.Join(ErrInvalidInput, err)
	}
	return dp, nil
}

// synthesize runs the engine and decodes its output.
func (p *Pipeline) synthesize(ctx context.Context, text string) (*audio.Buffer, error) {
	engine := p.opts.Engine
	start := time.Now()

	ar, err := engine.Synthesize(ctx, tts.SynthesizeRequest{
		Text:     text,
		Language: p.opts.Language,
		Voice:    p.opts.Voice,
	})
	if err != nil {
		p.metrics.RecordSynthesis(ctx, engine.Name(), "error", time.Since(start))
		if ctx.Err() != nil || errors.Is(err, ErrSynthesisFailure) {
			return nil, err
		}
		return nil, errors.Join(ErrSynthesisFailure, err)
	}
	p.metrics.RecordSynthesis(ctx, engine.Name(), "ok", time.Since(start))

	if ar == nil || len(ar.Data) == 0 {
		return nil, errors.Join(ErrSynthesisFailure, errEmptyAudio)
	}

	buf, err := p.opts.Codec.Decode(ctx, ar.Data)
	if err != nil {
		if ctx.Err() != nil || errors.Is(err, ErrCodecFailure) {
			return nil, err
		}
		return nil, errors.Join(ErrCodecFailure, err)
	}
	if buf.Frames() == 0 {
		return nil, errors.Join(ErrSynthesisFailure, errEmptyAudio)
	}
	return buf, nil
}

// install writes the result's artifact, makes it current, and releases the
// previous result's artifact.
func (p *Pipeline) install(ctx context.Context, res *Result) (*Result, error) {
	res.ID = uuid.New().String()
	res.CreatedAt = time.Now()

	if p.opts.Store != nil {
		data, err := p.opts.Codec.Encode(ctx, res.Buffer, audio.FormatWAV)
		if err != nil {
			if !errors.Is(err, ErrCodecFailure) {
				err = errors.Join(ErrCodecFailure, err)
			}
			return nil, err
		}
		art, err := p.opts.Store.Create(data)
		if err != nil {
			if !errors.Is(err, ErrIOFailure) {
				err = errors.Join(ErrIOFailure, err)
			}
			return nil, err
		}
		res.Artifact = art
	}

	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		p.release(res)
		return nil, ErrClosed
	}
	prev := p.current
	p.current = res
	p.mu.Unlock()

	p.release(prev)
	return res, nil
}

func (p *Pipeline) release(res *Result) {
	if res == nil || res.Artifact == nil {
		return
	}
	if err := res.Artifact.Release(); err != nil {
		p.logger.Warn("failed to release artifact", "path", res.Artifact.Path(), "error", err)
	}
}

func (p *Pipeline) finish(ctx context.Context, span trace.Span, mode Mode, d dialect.Dialect, e string, start time.Time, res *Result, err error) {
	defer span.End()
	elapsed := time.Since(start)

	if err != nil {
		kind := Kind(err)
		span.RecordError(err)
		span.SetStatus(codes.Error, kind)
		p.metrics.RecordGeneration(ctx, string(mode), d.String(), e, "error", elapsed)
		p.metrics.RecordError(ctx, "generate", kind)
		observe.WithTrace(ctx, p.logger).Warn("generation failed",
			"mode", mode,
			"dialect", d.String(),
			"emotion", e,
			"kind", kind,
			"error", err,
		)
		return
	}

	p.metrics.RecordGeneration(ctx, string(mode), d.String(), e, "ok", elapsed)
	span.SetAttributes(attribute.String("result_id", res.ID))
	observe.WithTrace(ctx, p.logger).Info("generation complete",
		"result_id", res.ID,
		"mode", mode,
		"dialect", d.String(),
		"emotion", e,
		"segments", res.Segments,
		"frames", res.Buffer.Frames(),
		"sample_rate", res.SampleRate,
		"elapsed", elapsed,
	)
}

func terminalClass(r rune) string {
	switch r {
	case '?':
		return "question"
	case '!':
		return "exclamation"
	default:
		return "other"
	}
}
