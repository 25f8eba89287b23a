package pipeline

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/dgnsrekt/prosodic-go/internal/audio"
	"github.com/dgnsrekt/prosodic-go/internal/dialect"
	"github.com/dgnsrekt/prosodic-go/internal/emotion"
	"github.com/dgnsrekt/prosodic-go/internal/tts"
	"github.com/dgnsrekt/prosodic-go/internal/wav"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func sine(frames, rate, channels int, amp float64) *audio.Buffer {
	s := make([]float64, frames*channels)
	for i := 0; i < frames; i++ {
		v := amp * math.Sin(2*math.Pi*440*float64(i)/float64(rate))
		for c := 0; c < channels; c++ {
			s[i*channels+c] = v
		}
	}
	return audio.NewBuffer(s, rate, channels)
}

type clip struct {
	frames, rate, channels int
}

// fakeEngine returns a 440 Hz tone as WAV. Calls cycle through clips; the
// call numbered failOn (1-based) fails.
type fakeEngine struct {
	mu     sync.Mutex
	clips  []clip
	failOn int
	empty  bool
	calls  int
	texts  []string
}

func newFakeEngine(clips ...clip) *fakeEngine {
	if len(clips) == 0 {
		clips = []clip{{frames: 4000, rate: 16000, channels: 1}}
	}
	return &fakeEngine{clips: clips}
}

func (f *fakeEngine) Name() string { return "fake" }

func (f *fakeEngine) Synthesize(_ context.Context, req tts.SynthesizeRequest) (*tts.AudioResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.texts = append(f.texts, req.Text)
	if f.calls == f.failOn {
		return nil, errors.Join(tts.ErrSynthesisFailed, errors.New("upstream timeout"))
	}
	if f.empty {
		return &tts.AudioResult{Format: "wav"}, nil
	}
	c := f.clips[(f.calls-1)%len(f.clips)]
	return &tts.AudioResult{
		Data:       wav.Encode(sine(c.frames, c.rate, c.channels, 0.1).ToPCM16(), c.rate, c.channels),
		Format:     "wav",
		SampleRate: c.rate,
		Channels:   c.channels,
	}, nil
}

// decoded is the buffer the pipeline sees for a clip after WAV quantisation.
func decoded(t *testing.T, c clip) *audio.Buffer {
	t.Helper()
	data := wav.Encode(sine(c.frames, c.rate, c.channels, 0.1).ToPCM16(), c.rate, c.channels)
	buf, err := audio.NewCodec("").Decode(context.Background(), data)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	return buf
}

type fakePlayer struct {
	mu      sync.Mutex
	loads   int
	plays   int
	playing bool
	done    chan struct{}
}

func (f *fakePlayer) Load(*audio.Buffer) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.loads++
	return nil
}

func (f *fakePlayer) Play(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.plays++
	f.playing = true
	f.done = make(chan struct{})
	return nil
}

func (f *fakePlayer) Stop() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.playing {
		f.playing = false
		close(f.done)
	}
	return nil
}

func (f *fakePlayer) IsPlaying() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.playing
}

func (f *fakePlayer) Done() <-chan struct{} {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.done == nil {
		ch := make(chan struct{})
		close(ch)
		return ch
	}
	return f.done
}

func newTestPipeline(t *testing.T, engine tts.Engine, mutate func(*Options)) *Pipeline {
	t.Helper()
	opts := DefaultOptions()
	opts.Engine = engine
	opts.Codec = audio.NewCodec("")
	opts.Logger = discardLogger()
	if mutate != nil {
		mutate(&opts)
	}
	p, err := New(opts)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	t.Cleanup(func() { p.Close() })
	return p
}

func TestNew_RequiresCollaborators(t *testing.T) {
	if _, err := New(Options{Codec: audio.NewCodec("")}); err == nil {
		t.Error("expected error without engine")
	}
	if _, err := New(Options{Engine: newFakeEngine()}); err == nil {
		t.Error("expected error without codec")
	}
}

func TestGenerateBasic_InvalidInput(t *testing.T) {
	tests := []struct {
		name    string
		text    string
		dialect dialect.Dialect
		emotion emotion.Emotion
	}{
		{"empty text", "", dialect.Standard, emotion.Neutral},
		{"whitespace text", "  \n\t", dialect.Standard, emotion.Neutral},
		{"unknown dialect", "नमस्कार", dialect.Dialect(42), emotion.Neutral},
		{"unknown emotion", "नमस्कार", dialect.Standard, emotion.Emotion(42)},
		{"punctuation marker", "नमस्कार", dialect.Standard, emotion.Punctuation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			engine := newFakeEngine()
			p := newTestPipeline(t, engine, nil)

			_, err := p.GenerateBasic(context.Background(), tt.text, tt.dialect, tt.emotion)
			if !errors.Is(err, ErrInvalidInput) {
				t.Fatalf("error = %v, want ErrInvalidInput", err)
			}
			if engine.calls != 0 {
				t.Errorf("engine called %d times, want 0", engine.calls)
			}
			if p.Current() != nil {
				t.Error("invalid input installed a result")
			}
		})
	}
}

func TestGenerateBasic_NeutralScalesVolume(t *testing.T) {
	c := clip{frames: 8000, rate: 16000, channels: 1}
	p := newTestPipeline(t, newFakeEngine(c), nil)

	res, err := p.GenerateBasic(context.Background(), "नमस्कार", dialect.Standard, emotion.Neutral)
	if err != nil {
		t.Fatalf("GenerateBasic() error = %v", err)
	}

	in := decoded(t, c)
	if res.Buffer.Frames() != in.Frames() {
		t.Fatalf("frames = %d, want %d", res.Buffer.Frames(), in.Frames())
	}
	for i, v := range in.Samples {
		if math.Abs(res.Buffer.Samples[i]-v*0.9) > 1e-9 {
			t.Fatalf("sample %d = %v, want %v", i, res.Buffer.Samples[i], v*0.9)
		}
	}
	if res.SampleRate != 16000 {
		t.Errorf("SampleRate = %d, want 16000", res.SampleRate)
	}
	if res.Mode != ModeBasic || res.Segments != 1 {
		t.Errorf("Mode = %q, Segments = %d", res.Mode, res.Segments)
	}
	if res.ID == "" {
		t.Error("result has no ID")
	}
	if p.Current() != res {
		t.Error("result not installed as current")
	}
}

func TestGenerateBasic_DialectRhythm(t *testing.T) {
	c := clip{frames: 11000, rate: 16000, channels: 1}
	p := newTestPipeline(t, newFakeEngine(c), nil)

	// Varhadi rhythm 1.1, neutral leaves the length alone.
	res, err := p.GenerateBasic(context.Background(), "नमस्कार", dialect.Varhadi, emotion.Neutral)
	if err != nil {
		t.Fatalf("GenerateBasic() error = %v", err)
	}
	if got := res.Buffer.Frames(); got < 9999 || got > 10001 {
		t.Errorf("frames = %d, want 10000 ±1", got)
	}
}

func TestGenerateBasic_SubstitutesText(t *testing.T) {
	prof, err := dialect.Varhadi.Profile()
	if err != nil {
		t.Fatal(err)
	}
	if len(prof.Substitutions) == 0 {
		t.Fatal("varhadi has no substitutions")
	}
	text := prof.Substitutions[0].Pattern + " आहे"

	engine := newFakeEngine()
	p := newTestPipeline(t, engine, nil)
	if _, err := p.GenerateBasic(context.Background(), text, dialect.Varhadi, emotion.Happy); err != nil {
		t.Fatalf("GenerateBasic() error = %v", err)
	}

	want := dialect.Substitute(text, prof.Substitutions)
	if len(engine.texts) != 1 || engine.texts[0] != want {
		t.Errorf("engine got %q, want [%q]", engine.texts, want)
	}
}

func TestGenerateBasic_EmptyAudio(t *testing.T) {
	engine := newFakeEngine()
	engine.empty = true
	p := newTestPipeline(t, engine, nil)

	_, err := p.GenerateBasic(context.Background(), "नमस्कार", dialect.Standard, emotion.Neutral)
	if !errors.Is(err, ErrSynthesisFailure) {
		t.Errorf("error = %v, want ErrSynthesisFailure", err)
	}
}

func TestGeneratePunctuated_GainPolicy(t *testing.T) {
	c := clip{frames: 4000, rate: 16000, channels: 1}
	p := newTestPipeline(t, newFakeEngine(c), nil)

	res, err := p.GeneratePunctuated(context.Background(), "नमस्कार? कसे आहात.", dialect.Standard)
	if err != nil {
		t.Fatalf("GeneratePunctuated() error = %v", err)
	}
	if res.Segments != 2 {
		t.Fatalf("Segments = %d, want 2", res.Segments)
	}
	if res.Buffer.Frames() != 2*c.frames {
		t.Fatalf("frames = %d, want %d", res.Buffer.Frames(), 2*c.frames)
	}

	inRMS := audio.RMS(decoded(t, c))
	question := audio.NewBuffer(res.Buffer.Samples[:c.frames], c.rate, 1)
	other := audio.NewBuffer(res.Buffer.Samples[c.frames:], c.rate, 1)

	tests := []struct {
		name string
		buf  *audio.Buffer
		want float64
	}{
		{"question +10dB", question, math.Pow(10, 10.0/20)},
		{"other -5dB", other, math.Pow(10, -5.0/20)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := audio.RMS(tt.buf) / inRMS
			if math.Abs(got-tt.want) > 1e-3 {
				t.Errorf("RMS ratio = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestGeneratePunctuated_ExclamationCompressed(t *testing.T) {
	c := clip{frames: 48000, rate: 16000, channels: 1}
	p := newTestPipeline(t, newFakeEngine(c), nil)

	res, err := p.GeneratePunctuated(context.Background(), "किती सुंदर!", dialect.Standard)
	if err != nil {
		t.Fatalf("GeneratePunctuated() error = %v", err)
	}

	want := float64(c.frames) / 1.3
	block := float64(audio.DurationToFrames(audio.DefaultCompressConfig().BlockSize, c.rate))
	if got := float64(res.Buffer.Frames()); math.Abs(got-want) > block {
		t.Errorf("frames = %v, want %v ±%v", got, want, block)
	}
}

func TestGeneratePunctuated_ReconcilesFormats(t *testing.T) {
	engine := newFakeEngine(
		clip{frames: 4000, rate: 16000, channels: 1},
		clip{frames: 5512, rate: 22050, channels: 2},
	)
	p := newTestPipeline(t, engine, nil)

	res, err := p.GeneratePunctuated(context.Background(), "एक. दोन.", dialect.Standard)
	if err != nil {
		t.Fatalf("GeneratePunctuated() error = %v", err)
	}
	if got := res.Buffer.Format(); got != (audio.Format{SampleRate: 16000, Channels: 1}) {
		t.Errorf("format = %v, want 16000 Hz mono", got)
	}
	if res.SampleRate != 16000 {
		t.Errorf("SampleRate = %d, want 16000", res.SampleRate)
	}
	// 5512 frames at 22050 Hz is 4000 at 16000 Hz.
	if got := res.Buffer.Frames(); got < 7999 || got > 8001 {
		t.Errorf("frames = %d, want 8000 ±1", got)
	}
}

func TestGeneratePunctuated_NoSegments(t *testing.T) {
	engine := newFakeEngine()
	p := newTestPipeline(t, engine, nil)

	_, err := p.GeneratePunctuated(context.Background(), "?!", dialect.Standard)
	if !errors.Is(err, ErrSynthesisFailure) {
		t.Errorf("error = %v, want ErrSynthesisFailure", err)
	}
	if engine.calls != 0 {
		t.Errorf("engine called %d times", engine.calls)
	}
}

func TestGeneratePunctuated_FailureKeepsPrevious(t *testing.T) {
	engine := newFakeEngine()
	p := newTestPipeline(t, engine, func(o *Options) {
		o.Store = NewTempStore(t.TempDir())
	})

	prev, err := p.GenerateBasic(context.Background(), "नमस्कार", dialect.Standard, emotion.Neutral)
	if err != nil {
		t.Fatalf("GenerateBasic() error = %v", err)
	}

	// Call 1 was the basic generation; fail the second segment.
	engine.failOn = 3
	_, err = p.GeneratePunctuated(context.Background(), "नमस्कार? कसे आहात!", dialect.Standard)
	if !errors.Is(err, ErrSynthesisFailure) {
		t.Fatalf("error = %v, want ErrSynthesisFailure", err)
	}

	if p.Current() != prev {
		t.Error("failed generation replaced the current result")
	}
	if _, err := os.Stat(prev.Artifact.Path()); err != nil {
		t.Errorf("previous artifact gone: %v", err)
	}
}

func TestGenerate_Dispatch(t *testing.T) {
	tests := []struct {
		emotion emotion.Emotion
		want    Mode
	}{
		{emotion.Neutral, ModeBasic},
		{emotion.Angry, ModeBasic},
		{emotion.Punctuation, ModePunctuated},
	}

	for _, tt := range tests {
		t.Run(tt.emotion.String(), func(t *testing.T) {
			p := newTestPipeline(t, newFakeEngine(), nil)
			res, err := p.Generate(context.Background(), Request{
				Text:    "नमस्कार? कसे आहात!",
				Dialect: dialect.Standard,
				Emotion: tt.emotion,
			})
			if err != nil {
				t.Fatalf("Generate() error = %v", err)
			}
			if res.Mode != tt.want || res.Emotion != tt.emotion {
				t.Errorf("Mode = %q, Emotion = %v", res.Mode, res.Emotion)
			}
		})
	}
}

func TestGenerate_SingleLiveArtifact(t *testing.T) {
	dir := t.TempDir()
	p := newTestPipeline(t, newFakeEngine(), func(o *Options) {
		o.Store = NewTempStore(dir)
	})

	for i := 0; i < 3; i++ {
		if _, err := p.GenerateBasic(context.Background(), "नमस्कार", dialect.Standard, emotion.Sad); err != nil {
			t.Fatalf("generation %d: %v", i, err)
		}
	}

	files, _ := filepath.Glob(filepath.Join(dir, "prosodic-*.wav"))
	if len(files) != 1 {
		t.Fatalf("live artifacts = %v, want 1", files)
	}
	if files[0] != p.Current().Artifact.Path() {
		t.Errorf("artifact = %s, want %s", files[0], p.Current().Artifact.Path())
	}

	if err := p.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	files, _ = filepath.Glob(filepath.Join(dir, "prosodic-*.wav"))
	if len(files) != 0 {
		t.Errorf("artifacts after Close = %v", files)
	}
}

func TestClose_RejectsGeneration(t *testing.T) {
	engine := newFakeEngine()
	p := newTestPipeline(t, engine, nil)
	p.Close()

	_, err := p.GenerateBasic(context.Background(), "नमस्कार", dialect.Standard, emotion.Neutral)
	if !errors.Is(err, ErrClosed) {
		t.Errorf("error = %v, want ErrClosed", err)
	}
	if err := p.Close(); err != nil {
		t.Errorf("second Close() error = %v", err)
	}
}

func TestKind(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{nil, "ok"},
		{errors.Join(ErrInvalidInput, ErrNoResult), "invalid_input"},
		{errors.Join(tts.ErrSynthesisFailed, errors.New("x")), "synthesis"},
		{audio.ErrCodecFailed, "codec"},
		{errors.Join(ErrIOFailure, os.ErrPermission), "io"},
		{errors.Join(ErrPlayback, errNoPlayer), "playback"},
		{context.Canceled, "canceled"},
		{context.DeadlineExceeded, "canceled"},
		{errors.New("boom"), "unknown"},
	}

	for _, tt := range tests {
		if got := Kind(tt.err); got != tt.want {
			t.Errorf("Kind(%v) = %q, want %q", tt.err, got, tt.want)
		}
	}
}
