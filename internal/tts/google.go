package tts

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const (
	// DefaultGoogleEndpoint is the Google Translate speech endpoint.
	DefaultGoogleEndpoint = "https://translate.google.com/translate_tts"
	// googleMaxChars is the longest text the endpoint accepts per request.
	googleMaxChars = 100
	// maxResponseBytes bounds a single chunk's MP3 payload.
	maxResponseBytes = 10 << 20
)

// GoogleConfig holds configuration for the Google Translate engine.
type GoogleConfig struct {
	// Endpoint overrides DefaultGoogleEndpoint.
	Endpoint string
	// Language is used when a request does not set one. Defaults to "mr".
	Language string
	// Timeout bounds each HTTP request. Defaults to 15s.
	Timeout time.Duration
	// UserAgent is sent with every request; the endpoint rejects empty agents.
	UserAgent string
}

// GoogleEngine synthesizes speech through the Google Translate TTS endpoint.
// Long text is sent in chunks and the returned MP3 streams are concatenated.
type GoogleEngine struct {
	config GoogleConfig
	client *http.Client
	logger *slog.Logger
}

// NewGoogleEngine creates a Google Translate engine.
func NewGoogleEngine(cfg GoogleConfig, logger *slog.Logger) *GoogleEngine {
	if cfg.Endpoint == "" {
		cfg.Endpoint = DefaultGoogleEndpoint
	}
	if cfg.Language == "" {
		cfg.Language = "mr"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = "Mozilla/5.0 (X11; Linux x86_64) prosodic"
	}

	return &GoogleEngine{
		config: cfg,
		client: &http.Client{Timeout: cfg.Timeout},
		logger: logger,
	}
}

// Name returns the engine identifier.
func (g *GoogleEngine) Name() string {
	return "gtranslate"
}

// Synthesize fetches MP3 audio for the text. Voice is ignored.
func (g *GoogleEngine) Synthesize(ctx context.Context, req SynthesizeRequest) (*AudioResult, error) {
	chunks := splitText(req.Text, googleMaxChars)
	if len(chunks) == 0 {
		return nil, fmt.Errorf("%w: empty text", ErrSynthesisFailed)
	}

	lang := req.Language
	if lang == "" {
		lang = g.config.Language
	}

	g.logger.Debug("requesting google tts",
		"language", lang,
		"chunks", len(chunks),
		"text_length", len(req.Text),
	)

	var out bytes.Buffer
	for i, chunk := range chunks {
		data, err := g.fetch(ctx, lang, chunk, i, len(chunks))
		if err != nil {
			return nil, err
		}
		out.Write(data)
	}

	return &AudioResult{
		Data:       out.Bytes(),
		Format:     "mp3",
		SampleRate: 24000,
		Channels:   1,
	}, nil
}

func (g *GoogleEngine) fetch(ctx context.Context, lang, text string, idx, total int) ([]byte, error) {
	q := url.Values{}
	q.Set("ie", "UTF-8")
	q.Set("client", "tw-ob")
	q.Set("tl", lang)
	q.Set("q", text)
	q.Set("total", strconv.Itoa(total))
	q.Set("idx", strconv.Itoa(idx))
	q.Set("textlen", strconv.Itoa(len([]rune(text))))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.config.Endpoint+"?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSynthesisFailed, err)
	}
	req.Header.Set("User-Agent", g.config.UserAgent)

	resp, err := g.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("%w: %v", ErrSynthesisFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		g.logger.Error("google tts rejected request",
			"status", resp.StatusCode,
			"chunk", idx,
			"body", string(body),
		)
		return nil, fmt.Errorf("%w: unexpected status %d", ErrSynthesisFailed, resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("%w: %v", ErrSynthesisFailed, err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty response for chunk %d", ErrSynthesisFailed, idx)
	}
	return data, nil
}

// splitText breaks text into chunks of at most limit runes, joining words
// greedily and preferring to break after punctuation. Words longer than the
// limit are cut.
func splitText(text string, limit int) []string {
	var (
		chunks []string
		cur    []rune
	)
	flush := func() {
		if len(cur) > 0 {
			chunks = append(chunks, string(cur))
			cur = cur[:0:0]
		}
	}

	for _, word := range strings.Fields(text) {
		w := []rune(word)
		for len(w) > limit {
			flush()
			chunks = append(chunks, string(w[:limit]))
			w = w[limit:]
		}
		if len(w) == 0 {
			continue
		}
		if len(cur) > 0 && len(cur)+1+len(w) > limit {
			flush()
		}
		if len(cur) > 0 {
			cur = append(cur, ' ')
		}
		cur = append(cur, w...)

		// A sentence end past half the limit is a good place to break.
		if len(cur) >= limit/2 && strings.ContainsRune("।?!.", w[len(w)-1]) {
			flush()
		}
	}
	flush()

	return chunks
}
