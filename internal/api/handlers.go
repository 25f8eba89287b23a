package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/dgnsrekt/prosodic-go/internal/dialect"
	"github.com/dgnsrekt/prosodic-go/internal/emotion"
	"github.com/dgnsrekt/prosodic-go/internal/pipeline"
	"github.com/dgnsrekt/prosodic-go/internal/queue"
)

// SpeakRequest represents the request body for /v1/speak.
type SpeakRequest struct {
	Text string `json:"text"`
	// Dialect and Emotion default to the configured values.
	Dialect string `json:"dialect,omitempty"`
	Emotion string `json:"emotion,omitempty"`
	// Play defaults to true.
	Play      *bool  `json:"play,omitempty"`
	Interrupt bool   `json:"interrupt,omitempty"`
	TTLMS     int    `json:"ttl_ms,omitempty"`
	DedupeKey string `json:"dedupe_key,omitempty"`
}

// SpeakResponse represents the response body for /v1/speak.
type SpeakResponse struct {
	JobID   string `json:"job_id"`
	Message string `json:"message"`
}

// StopResponse represents the response body for /v1/stop.
type StopResponse struct {
	Stopped bool `json:"stopped"`
}

// ErrorResponse represents an error response.
type ErrorResponse struct {
	Error string `json:"error"`
}

// HealthResponse represents the response body for /v1/healthz.
type HealthResponse struct {
	Status  string `json:"status"`
	Playing bool   `json:"playing"`
	Queued  int    `json:"queued"`
}

// DialectInfo describes one dialect profile.
type DialectInfo struct {
	Key                string  `json:"key"`
	Name               string  `json:"name"`
	Substitutions      int     `json:"substitutions"`
	RhythmFactor       float64 `json:"rhythm_factor"`
	ArticulationFactor float64 `json:"articulation_factor"`
}

// EmotionInfo describes one emotion profile.
type EmotionInfo struct {
	Key            string  `json:"key"`
	Name           string  `json:"name"`
	Description    string  `json:"description"`
	Punctuation    bool    `json:"punctuation,omitempty"`
	Intensity      float64 `json:"intensity"`
	SpeedFactor    float64 `json:"speed_factor"`
	EffectiveSpeed float64 `json:"effective_speed"`
	VolumeGain     float64 `json:"volume_gain"`
	PauseLength    float64 `json:"pause_length"`
}

// ProfilesResponse represents the response body for /v1/profiles.
type ProfilesResponse struct {
	Dialects []DialectInfo `json:"dialects"`
	Emotions []EmotionInfo `json:"emotions"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, ErrorResponse{Error: msg})
}

// handleHealthz handles GET /v1/healthz requests.
func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	resp := HealthResponse{Status: "ok"}
	if s.session != nil {
		resp.Playing = s.session.IsPlaying()
	}
	if s.queue != nil {
		resp.Queued = s.queue.Len()
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleProfiles handles GET /v1/profiles requests.
func (s *Server) handleProfiles(w http.ResponseWriter, r *http.Request) {
	var resp ProfilesResponse

	for _, d := range dialect.All() {
		p, _ := d.Profile()
		resp.Dialects = append(resp.Dialects, DialectInfo{
			Key:                d.String(),
			Name:               p.Name,
			Substitutions:      len(p.Substitutions),
			RhythmFactor:       p.RhythmFactor,
			ArticulationFactor: p.ArticulationFactor,
		})
	}

	for _, e := range emotion.All() {
		p, _ := e.Profile()
		resp.Emotions = append(resp.Emotions, EmotionInfo{
			Key:            e.String(),
			Name:           e.Name(),
			Description:    e.Description(),
			Punctuation:    e.IsPunctuationMode(),
			Intensity:      p.Intensity,
			SpeedFactor:    p.SpeedFactor,
			EffectiveSpeed: emotion.EffectiveSpeed(p.SpeedFactor),
			VolumeGain:     p.VolumeGain,
			PauseLength:    p.PauseLength,
		})
	}

	writeJSON(w, http.StatusOK, resp)
}

// handleSpeak handles POST /v1/speak requests.
func (s *Server) handleSpeak(w http.ResponseWriter, r *http.Request) {
	var req SpeakRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.logger.Warn("failed to decode speak request", "error", err)
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	if strings.TrimSpace(req.Text) == "" {
		writeError(w, http.StatusBadRequest, "text is required")
		return
	}

	length := utf8.RuneCountInString(req.Text)
	if length > s.cfg.MaxTextLength {
		s.logger.Warn("text exceeds max length", "length", length, "max", s.cfg.MaxTextLength)
		writeError(w, http.StatusBadRequest, "text exceeds maximum length")
		return
	}

	if req.TTLMS < 0 {
		writeError(w, http.StatusBadRequest, "ttl_ms must be non-negative")
		return
	}

	d := s.cfg.Dialect()
	if req.Dialect != "" {
		parsed, err := dialect.Parse(req.Dialect)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		d = parsed
	}

	e := s.cfg.Emotion()
	if req.Emotion != "" {
		parsed, err := emotion.Parse(req.Emotion)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		e = parsed
	}

	play := true
	if req.Play != nil {
		play = *req.Play
	}

	var ttl time.Duration
	if req.TTLMS > 0 {
		ttl = time.Duration(req.TTLMS) * time.Millisecond
	} else if s.cfg.DefaultTTL > 0 {
		ttl = s.cfg.DefaultTTL
	}

	if s.queue == nil {
		writeError(w, http.StatusServiceUnavailable, "queue unavailable")
		return
	}

	job := queue.NewJob(pipeline.Request{Text: req.Text, Dialect: d, Emotion: e}, play, req.Interrupt, ttl, req.DedupeKey)

	if err := s.queue.Enqueue(job); err != nil {
		switch {
		case errors.Is(err, queue.ErrQueueFull):
			writeError(w, http.StatusServiceUnavailable, "queue is full")
		case errors.Is(err, queue.ErrDuplicateJob):
			writeError(w, http.StatusConflict, "duplicate job")
		case errors.Is(err, queue.ErrQueueClosed):
			writeError(w, http.StatusServiceUnavailable, "queue is closed")
		default:
			s.logger.Error("failed to enqueue job", "error", err)
			writeError(w, http.StatusInternalServerError, "failed to enqueue job")
		}
		return
	}

	s.logger.Info("speak request enqueued",
		"job_id", job.ID,
		"text_length", length,
		"dialect", d.String(),
		"emotion", e.String(),
		"play", play,
		"interrupt", req.Interrupt,
		"ttl_ms", req.TTLMS,
		"dedupe_key", req.DedupeKey,
	)

	writeJSON(w, http.StatusAccepted, SpeakResponse{
		JobID:   job.ID,
		Message: "job enqueued",
	})
}

// handleStop handles POST /v1/stop requests. It always succeeds.
func (s *Server) handleStop(w http.ResponseWriter, r *http.Request) {
	var stopped bool
	if s.session != nil {
		stopped = s.session.IsPlaying()
		if err := s.session.Stop(); err != nil {
			s.logger.Warn("stop failed", "error", err)
		}
	}
	writeJSON(w, http.StatusOK, StopResponse{Stopped: stopped})
}

// handleAudio handles GET /v1/audio requests with the current result as WAV.
func (s *Server) handleAudio(w http.ResponseWriter, r *http.Request) {
	if s.session == nil {
		writeError(w, http.StatusServiceUnavailable, "pipeline unavailable")
		return
	}

	res := s.session.Current()
	if res == nil {
		writeError(w, http.StatusNotFound, "no generated audio")
		return
	}

	data, err := s.session.WAV(r.Context())
	if err != nil {
		if errors.Is(err, pipeline.ErrNoResult) {
			writeError(w, http.StatusNotFound, "no generated audio")
			return
		}
		s.logger.Error("failed to encode audio", "error", err, "kind", pipeline.Kind(err))
		writeError(w, http.StatusInternalServerError, "failed to encode audio")
		return
	}

	w.Header().Set("Content-Type", "audio/wav")
	w.Header().Set("X-Result-ID", res.ID)
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}
