// Package discord streams generated speech into a Discord voice channel.
package discord

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"
	"layeh.com/gopus"

	"github.com/dgnsrekt/prosodic-go/internal/audio"
)

const (
	joinTimeout      = 10 * time.Second
	joinPollInterval = 100 * time.Millisecond
	frameDuration    = 20 * time.Millisecond
	// maxOpusBytes bounds one encoded frame.
	maxOpusBytes = 4000
)

var (
	// ErrNotConnected is returned when sending audio without a voice connection.
	ErrNotConnected = errors.New("not connected to voice channel")
	// ErrConnectionFailed is returned when joining the voice channel fails.
	ErrConnectionFailed = errors.New("failed to connect to voice channel")
)

// link is the part of a voice connection the streamer uses.
type link interface {
	Speaking(bool) error
	Opus() chan<- []byte
	Disconnect() error
}

// discordLink adapts a discordgo voice connection.
type discordLink struct{ vc *discordgo.VoiceConnection }

func (l discordLink) Speaking(b bool) error { return l.vc.Speaking(b) }
func (l discordLink) Opus() chan<- []byte   { return l.vc.OpusSend }
func (l discordLink) Disconnect() error     { return l.vc.Disconnect() }

// VoiceManager owns the bot session and at most one voice connection. It
// implements playback.Streamer.
type VoiceManager struct {
	session   *discordgo.Session
	guildID   string
	channelID string
	logger    *slog.Logger

	// join opens a voice connection; replaced in tests.
	join func(ctx context.Context) (link, error)

	mu   sync.Mutex
	conn link

	encMu   sync.Mutex
	encoder *gopus.Encoder
}

// NewVoiceManager creates a voice manager for one guild channel. Call Open
// before streaming.
func NewVoiceManager(token, guildID, channelID string, logger *slog.Logger) (*VoiceManager, error) {
	session, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("creating Discord session: %w", err)
	}

	// Speech, so the voip application profile.
	encoder, err := gopus.NewEncoder(audio.DiscordSampleRate, audio.DiscordChannels, gopus.Voip)
	if err != nil {
		return nil, fmt.Errorf("creating opus encoder: %w", err)
	}

	vm := &VoiceManager{
		session:   session,
		guildID:   guildID,
		channelID: channelID,
		logger:    logger,
		encoder:   encoder,
	}
	vm.join = vm.joinChannel
	return vm, nil
}

// Open opens the gateway session.
func (vm *VoiceManager) Open() error {
	return vm.session.Open()
}

// Close leaves the voice channel and closes the gateway session.
func (vm *VoiceManager) Close() error {
	err := vm.Disconnect()
	if vm.session != nil {
		err = errors.Join(err, vm.session.Close())
	}
	return err
}

// Connect joins the configured voice channel unless already joined.
func (vm *VoiceManager) Connect(ctx context.Context) error {
	vm.mu.Lock()
	defer vm.mu.Unlock()

	if vm.conn != nil {
		return nil
	}

	vm.logger.Info("connecting to voice channel", "guild_id", vm.guildID, "channel_id", vm.channelID)
	conn, err := vm.join(ctx)
	if err != nil {
		return err
	}
	vm.conn = conn
	vm.logger.Info("connected to voice channel")
	return nil
}

// joinChannel joins muted=false, deaf=true and polls until the connection
// reports ready.
func (vm *VoiceManager) joinChannel(ctx context.Context) (link, error) {
	vc, err := vm.session.ChannelVoiceJoin(vm.guildID, vm.channelID, false, true)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, joinTimeout)
	defer cancel()

	tick := time.NewTicker(joinPollInterval)
	defer tick.Stop()

	for !vc.Ready {
		select {
		case <-ctx.Done():
			vc.Disconnect()
			if errors.Is(ctx.Err(), context.DeadlineExceeded) {
				return nil, ErrConnectionFailed
			}
			return nil, ctx.Err()
		case <-tick.C:
		}
	}
	return discordLink{vc}, nil
}

// Disconnect leaves the voice channel. It is a no-op when not joined.
func (vm *VoiceManager) Disconnect() error {
	vm.mu.Lock()
	conn := vm.conn
	vm.conn = nil
	vm.mu.Unlock()

	if conn == nil {
		return nil
	}
	vm.logger.Info("disconnecting from voice channel")
	return conn.Disconnect()
}

// IsConnected reports whether a voice connection is held.
func (vm *VoiceManager) IsConnected() bool {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	return vm.conn != nil
}

// Stream joins the voice channel if needed and sends the buffer. It blocks
// until the audio has been sent or ctx is done.
func (vm *VoiceManager) Stream(ctx context.Context, buf *audio.Buffer) error {
	if err := vm.Connect(ctx); err != nil {
		return errors.Join(ErrConnectionFailed, err)
	}
	return vm.SendAudio(ctx, buf)
}

// SendAudio converts the buffer to 48kHz stereo, encodes it to Opus in 20ms
// frames and paces them to the voice connection in real time.
func (vm *VoiceManager) SendAudio(ctx context.Context, buf *audio.Buffer) error {
	vm.mu.Lock()
	conn := vm.conn
	vm.mu.Unlock()
	if conn == nil {
		return ErrNotConnected
	}

	frames, err := audio.NewDiscordFrameReader(buf)
	if err != nil {
		return err
	}

	if err := conn.Speaking(true); err != nil {
		vm.logger.Warn("failed to set speaking state", "error", err)
	}
	defer func() {
		if err := conn.Speaking(false); err != nil {
			vm.logger.Warn("failed to clear speaking state", "error", err)
		}
	}()

	vm.logger.Debug("sending audio",
		"duration", buf.Duration(),
		"sample_rate", buf.SampleRate,
		"channels", buf.Channels,
	)

	out := conn.Opus()
	tick := time.NewTicker(frameDuration)
	defer tick.Stop()

	for {
		frame, err := frames.ReadFrame()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}

		packet, err := vm.encode(frame)
		if err != nil {
			// One bad frame is a click, not a failed utterance.
			vm.logger.Warn("opus encoding failed", "error", err)
			continue
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-tick.C:
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case out <- packet:
		}
	}
}

func (vm *VoiceManager) encode(pcm []int16) ([]byte, error) {
	vm.encMu.Lock()
	defer vm.encMu.Unlock()
	return vm.encoder.Encode(pcm, audio.DiscordFrameSize, maxOpusBytes)
}
