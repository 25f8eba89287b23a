// Package observe holds the OpenTelemetry instruments for generation,
// synthesis, playback and the HTTP surface, plus the provider setup that
// exposes them for Prometheus scraping.
//
// Tests should build Metrics with NewMetrics over their own MeterProvider
// rather than the global one.
package observe

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
)

// meterName is the instrumentation scope for all prosodic metrics.
const meterName = "github.com/dgnsrekt/prosodic-go"

// Metrics holds the metric instruments. All fields are safe for concurrent use.
type Metrics struct {
	// GenerationDuration tracks end-to-end generation latency. Attributes:
	// mode, dialect, emotion, status.
	GenerationDuration metric.Float64Histogram

	// SynthesisDuration tracks a single call to the speech engine. Attributes:
	// engine, status.
	SynthesisDuration metric.Float64Histogram

	// Generations counts generation calls. Attributes: mode, dialect,
	// emotion, status.
	Generations metric.Int64Counter

	// Segments counts punctuated segments by terminal class
	// (question, exclamation, other).
	Segments metric.Int64Counter

	// Errors counts failures by stage and error kind.
	Errors metric.Int64Counter

	// PlaybackActive is 1 while a playback session runs.
	PlaybackActive metric.Int64UpDownCounter

	// HTTPRequestDuration tracks HTTP handling time. Attributes: method, path.
	HTTPRequestDuration metric.Float64Histogram
}

// latencyBuckets are histogram bounds in seconds sized for network synthesis
// plus resampling of a few seconds of audio.
var latencyBuckets = []float64{
	0.05, 0.1, 0.25, 0.5, 1, 2, 4, 8, 15, 30,
}

// NewMetrics creates all instruments on the given provider.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	if met.GenerationDuration, err = m.Float64Histogram("prosodic.generation.duration",
		metric.WithDescription("Latency of a full generation call."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.SynthesisDuration, err = m.Float64Histogram("prosodic.synthesis.duration",
		metric.WithDescription("Latency of one speech engine request."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.Generations, err = m.Int64Counter("prosodic.generations",
		metric.WithDescription("Generation calls by mode, dialect, emotion and status."),
	); err != nil {
		return nil, err
	}
	if met.Segments, err = m.Int64Counter("prosodic.segments",
		metric.WithDescription("Punctuated segments by terminal class."),
	); err != nil {
		return nil, err
	}
	if met.Errors, err = m.Int64Counter("prosodic.errors",
		metric.WithDescription("Failures by stage and kind."),
	); err != nil {
		return nil, err
	}
	if met.PlaybackActive, err = m.Int64UpDownCounter("prosodic.playback.active",
		metric.WithDescription("Number of running playback sessions."),
	); err != nil {
		return nil, err
	}
	if met.HTTPRequestDuration, err = m.Float64Histogram("prosodic.http.request.duration",
		metric.WithDescription("HTTP request latency by method and path."),
		metric.WithUnit("s"),
	); err != nil {
		return nil, err
	}

	return met, nil
}

// Discard returns instruments that record nothing.
func Discard() *Metrics {
	m, err := NewMetrics(noop.NewMeterProvider())
	if err != nil {
		panic("observe: noop metrics: " + err.Error())
	}
	return m
}

// RecordGeneration records one generation call.
func (m *Metrics) RecordGeneration(ctx context.Context, mode, dialect, emotion, status string, d time.Duration) {
	attrs := metric.WithAttributes(
		attribute.String("mode", mode),
		attribute.String("dialect", dialect),
		attribute.String("emotion", emotion),
		attribute.String("status", status),
	)
	m.Generations.Add(ctx, 1, attrs)
	m.GenerationDuration.Record(ctx, d.Seconds(), attrs)
}

// RecordSynthesis records one speech engine request.
func (m *Metrics) RecordSynthesis(ctx context.Context, engine, status string, d time.Duration) {
	m.SynthesisDuration.Record(ctx, d.Seconds(),
		metric.WithAttributes(
			attribute.String("engine", engine),
			attribute.String("status", status),
		),
	)
}

// RecordSegment counts a punctuated segment.
func (m *Metrics) RecordSegment(ctx context.Context, terminal string) {
	m.Segments.Add(ctx, 1, metric.WithAttributes(attribute.String("terminal", terminal)))
}

// RecordError counts a failure.
func (m *Metrics) RecordError(ctx context.Context, stage, kind string) {
	m.Errors.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("stage", stage),
			attribute.String("kind", kind),
		),
	)
}

// PlaybackStarted increments the active playback gauge.
func (m *Metrics) PlaybackStarted(ctx context.Context) {
	m.PlaybackActive.Add(ctx, 1)
}

// PlaybackEnded decrements the active playback gauge.
func (m *Metrics) PlaybackEnded(ctx context.Context) {
	m.PlaybackActive.Add(ctx, -1)
}
