// Package app builds the pipeline and its collaborators from configuration.
// Both binaries share it.
package app

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/dgnsrekt/prosodic-go/internal/audio"
	"github.com/dgnsrekt/prosodic-go/internal/config"
	"github.com/dgnsrekt/prosodic-go/internal/discord"
	"github.com/dgnsrekt/prosodic-go/internal/observe"
	"github.com/dgnsrekt/prosodic-go/internal/pipeline"
	"github.com/dgnsrekt/prosodic-go/internal/playback"
	"github.com/dgnsrekt/prosodic-go/internal/tts"
)

// NewEngines registers the configured TTS engine as the registry default.
func NewEngines(cfg *config.Config, logger *slog.Logger) (*tts.Registry, error) {
	reg := tts.NewRegistry()

	var engine tts.Engine
	switch cfg.TTSEngine {
	case config.EnginePiper:
		p, err := tts.NewPiperEngine(tts.PiperConfig{
			BinaryPath:   cfg.PiperPath,
			ModelPath:    cfg.PiperModel,
			DefaultVoice: cfg.DefaultVoice,
		}, logger)
		if err != nil {
			return nil, fmt.Errorf("piper: %w", err)
		}
		engine = p
	case config.EngineGoogle:
		engine = tts.NewGoogleEngine(tts.GoogleConfig{
			Endpoint: cfg.TTSEndpoint,
			Language: cfg.TTSLanguage,
			Timeout:  cfg.TTSTimeout,
		}, logger)
	default:
		return nil, fmt.Errorf("unknown TTS engine %q", cfg.TTSEngine)
	}

	if err := reg.Register(engine); err != nil {
		return nil, err
	}
	logger.Info("TTS engine registered", "engine", engine.Name())
	return reg, nil
}

// Output is the selected playback backend. Voice is set only for Discord.
type Output struct {
	Player  *playback.Player
	Backend string
	Voice   *discord.VoiceManager
}

// Close releases the Discord session, if any.
func (o *Output) Close() error {
	if o.Player != nil {
		o.Player.Stop()
	}
	if o.Voice != nil {
		return o.Voice.Close()
	}
	return nil
}

// NewOutput selects a playback backend. Auto prefers a local player and
// falls back to silent timing when none is installed.
func NewOutput(cfg *config.Config, logger *slog.Logger) (*Output, error) {
	switch cfg.Player {
	case config.PlayerExec:
		p, err := playback.NewExecPlayer(cfg.PlayerCommand, cfg.TempDir, logger)
		if err != nil {
			return nil, err
		}
		return &Output{Player: p, Backend: config.PlayerExec}, nil

	case config.PlayerDiscord:
		vm, err := discord.NewVoiceManager(cfg.DiscordToken, cfg.GuildID, cfg.DefaultVoiceChannelID, logger)
		if err != nil {
			return nil, fmt.Errorf("creating voice manager: %w", err)
		}
		if err := vm.Open(); err != nil {
			return nil, fmt.Errorf("opening Discord session: %w", err)
		}
		logger.Info("Discord session opened")
		return &Output{Player: playback.NewPlayer(vm, logger), Backend: config.PlayerDiscord, Voice: vm}, nil

	case config.PlayerNone:
		return &Output{Player: playback.NewPlayer(playback.SilentStreamer{}, logger), Backend: config.PlayerNone}, nil

	case config.PlayerAuto, "":
		p, err := playback.NewExecPlayer(cfg.PlayerCommand, cfg.TempDir, logger)
		if err == nil {
			return &Output{Player: p, Backend: config.PlayerExec}, nil
		}
		if !errors.Is(err, playback.ErrNoPlayer) {
			return nil, err
		}
		logger.Warn("no local audio player found, playback will be silent")
		return &Output{Player: playback.NewPlayer(playback.SilentStreamer{}, logger), Backend: config.PlayerNone}, nil
	}

	return nil, fmt.Errorf("unknown player %q", cfg.Player)
}

// PipelineOptions maps configuration onto pipeline options. Engine, Codec,
// Store and Player are left for the caller.
func PipelineOptions(cfg *config.Config, metrics *observe.Metrics, logger *slog.Logger) pipeline.Options {
	opts := pipeline.DefaultOptions()
	opts.Language = cfg.TTSLanguage
	opts.Voice = cfg.DefaultVoice
	opts.Compress = audio.CompressConfig{
		Ratio:     cfg.ExclaimRatio,
		BlockSize: cfg.ExclaimBlock,
		Crossfade: cfg.ExclaimCrossfade,
	}
	opts.QuestionGainDB = cfg.QuestionGainDB
	opts.OtherGainDB = cfg.OtherGainDB
	opts.Metrics = metrics
	opts.Logger = logger
	return opts
}

// NewPipeline wires a pipeline from configuration. out may be nil for a
// pipeline that only generates and saves.
func NewPipeline(cfg *config.Config, engines *tts.Registry, out *Output, metrics *observe.Metrics, logger *slog.Logger) (*pipeline.Pipeline, error) {
	engine, err := engines.Default()
	if err != nil {
		return nil, err
	}

	codec := audio.NewCodec(cfg.FFmpegPath)
	if !codec.HasFFmpeg() {
		logger.Warn("ffmpeg not available, only WAV input and output will work")
	}

	opts := PipelineOptions(cfg, metrics, logger)
	opts.Engine = engine
	opts.Codec = codec
	opts.Store = pipeline.NewTempStore(cfg.TempDir)
	if out != nil && out.Player != nil {
		opts.Player = out.Player
	}

	return pipeline.New(opts)
}
