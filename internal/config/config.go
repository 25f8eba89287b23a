// Package config loads service configuration from the environment and an
// optional YAML file.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/viper"

	"github.com/dgnsrekt/prosodic-go/internal/dialect"
	"github.com/dgnsrekt/prosodic-go/internal/emotion"
)

// FileEnv names the environment variable holding an optional config file
// path. File keys are the lower-case environment variable names.
const FileEnv = "PROSODIC_CONFIG"

// Config holds all application configuration.
type Config struct {
	// Discord settings
	DiscordToken          string `mapstructure:"discord_token"`
	GuildID               string `mapstructure:"guild_id"`
	DefaultVoiceChannelID string `mapstructure:"default_voice_channel_id"`

	// HTTP settings
	HTTPPort    int    `mapstructure:"http_port"`
	BearerToken string `mapstructure:"bearer_token"`

	// TTS settings
	TTSEngine    string        `mapstructure:"tts_engine"`
	TTSLanguage  string        `mapstructure:"tts_language"`
	TTSEndpoint  string        `mapstructure:"tts_endpoint"`
	TTSTimeout   time.Duration `mapstructure:"tts_timeout"`
	PiperPath    string        `mapstructure:"piper_path"`
	PiperModel   string        `mapstructure:"piper_model"`
	DefaultVoice string        `mapstructure:"default_voice"`

	// Audio settings
	Player        string `mapstructure:"player"`
	PlayerCommand string `mapstructure:"player_command"`
	FFmpegPath    string `mapstructure:"ffmpeg_path"`
	TempDir       string `mapstructure:"temp_dir"`

	// Prosody settings
	DefaultDialect   string        `mapstructure:"default_dialect"`
	DefaultEmotion   string        `mapstructure:"default_emotion"`
	ExclaimRatio     float64       `mapstructure:"exclaim_ratio"`
	ExclaimBlock     time.Duration `mapstructure:"exclaim_block"`
	ExclaimCrossfade time.Duration `mapstructure:"exclaim_crossfade"`
	QuestionGainDB   float64       `mapstructure:"question_gain_db"`
	OtherGainDB      float64       `mapstructure:"other_gain_db"`

	// Behavior settings
	AutoLeaveIdle time.Duration `mapstructure:"auto_leave_idle"`
	MaxTextLength int           `mapstructure:"max_text_length"`
	QueueCapacity int           `mapstructure:"queue_capacity"`
	DefaultTTL    time.Duration `mapstructure:"default_ttl"`

	// Observability settings
	MetricsEnabled bool   `mapstructure:"metrics_enabled"`
	LogLevel       string `mapstructure:"log_level"`
	LogFormat      string `mapstructure:"log_format"`
}

// Player backends.
const (
	PlayerAuto    = "auto"
	PlayerExec    = "exec"
	PlayerDiscord = "discord"
	PlayerNone    = "none"
)

// TTS engines.
const (
	EngineGoogle = "gtranslate"
	EnginePiper  = "piper"
)

func setDefaults(v *viper.Viper) {
	v.SetDefault("discord_token", "")
	v.SetDefault("guild_id", "")
	v.SetDefault("default_voice_channel_id", "")

	v.SetDefault("http_port", 8080)
	v.SetDefault("bearer_token", "")

	v.SetDefault("tts_engine", EngineGoogle)
	v.SetDefault("tts_language", "mr")
	v.SetDefault("tts_endpoint", "")
	v.SetDefault("tts_timeout", 15*time.Second)
	v.SetDefault("piper_path", "piper")
	v.SetDefault("piper_model", "")
	v.SetDefault("default_voice", "")

	v.SetDefault("player", PlayerAuto)
	v.SetDefault("player_command", "")
	v.SetDefault("ffmpeg_path", "")
	v.SetDefault("temp_dir", "")

	v.SetDefault("default_dialect", dialect.Standard.String())
	v.SetDefault("default_emotion", emotion.Neutral.String())
	v.SetDefault("exclaim_ratio", 1.3)
	v.SetDefault("exclaim_block", 150*time.Millisecond)
	v.SetDefault("exclaim_crossfade", 25*time.Millisecond)
	v.SetDefault("question_gain_db", 10.0)
	v.SetDefault("other_gain_db", -5.0)

	v.SetDefault("auto_leave_idle", 5*time.Minute)
	v.SetDefault("max_text_length", 1000)
	v.SetDefault("queue_capacity", 100)
	v.SetDefault("default_ttl", 30*time.Second)

	v.SetDefault("metrics_enabled", true)
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "text")
}

// Load reads configuration from defaults, the file named by PROSODIC_CONFIG
// if set, and environment variables, in increasing precedence.
func Load() (*Config, error) {
	v := viper.New()
	setDefaults(v)

	// Every key has a default, so AutomaticEnv covers all of them.
	v.AutomaticEnv()

	if path := os.Getenv(FileEnv); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// AuthDisabled returns true if bearer token authentication is disabled.
func (c *Config) AuthDisabled() bool {
	return c.BearerToken == ""
}

// DiscordConfigured reports whether all Discord settings are present.
func (c *Config) DiscordConfigured() bool {
	return c.DiscordToken != "" && c.GuildID != "" && c.DefaultVoiceChannelID != ""
}

// Dialect returns the parsed default dialect.
func (c *Config) Dialect() dialect.Dialect {
	d, _ := dialect.Parse(c.DefaultDialect)
	return d
}

// Emotion returns the parsed default emotion.
func (c *Config) Emotion() emotion.Emotion {
	e, _ := emotion.Parse(c.DefaultEmotion)
	return e
}

// Validate checks that configuration values are usable.
func (c *Config) Validate() error {
	if c.HTTPPort < 1 || c.HTTPPort > 65535 {
		return errors.New("HTTP_PORT must be between 1 and 65535")
	}

	if c.MaxTextLength < 1 {
		return errors.New("MAX_TEXT_LENGTH must be at least 1")
	}

	if c.QueueCapacity < 1 {
		return errors.New("QUEUE_CAPACITY must be at least 1")
	}

	if c.AutoLeaveIdle < 0 {
		return errors.New("AUTO_LEAVE_IDLE must be non-negative")
	}

	switch c.TTSEngine {
	case EngineGoogle:
	case EnginePiper:
		if c.PiperModel == "" {
			return errors.New("PIPER_MODEL is required when TTS_ENGINE is piper")
		}
	default:
		return errors.New("TTS_ENGINE must be one of: gtranslate, piper")
	}

	if c.TTSTimeout <= 0 {
		return errors.New("TTS_TIMEOUT must be positive")
	}

	switch c.Player {
	case PlayerAuto, PlayerExec, PlayerNone:
	case PlayerDiscord:
		if !c.DiscordConfigured() {
			return errors.New("PLAYER discord requires DISCORD_TOKEN, GUILD_ID and DEFAULT_VOICE_CHANNEL_ID")
		}
	default:
		return errors.New("PLAYER must be one of: auto, exec, discord, none")
	}

	if _, err := dialect.Parse(c.DefaultDialect); err != nil {
		return fmt.Errorf("DEFAULT_DIALECT: %w", err)
	}
	if _, err := emotion.Parse(c.DefaultEmotion); err != nil {
		return fmt.Errorf("DEFAULT_EMOTION: %w", err)
	}

	if c.ExclaimRatio <= 0 {
		return errors.New("EXCLAIM_RATIO must be positive")
	}
	if c.ExclaimBlock <= 0 {
		return errors.New("EXCLAIM_BLOCK must be positive")
	}
	if c.ExclaimCrossfade < 0 {
		return errors.New("EXCLAIM_CROSSFADE must be non-negative")
	}

	validLogLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLogLevels[c.LogLevel] {
		return errors.New("LOG_LEVEL must be one of: debug, info, warn, error")
	}

	validLogFormats := map[string]bool{"text": true, "json": true}
	if !validLogFormats[c.LogFormat] {
		return errors.New("LOG_FORMAT must be one of: text, json")
	}

	return nil
}
