// Package audio owns the Discord voice connection handle and the streaming
// player driving it. One Connection belongs to exactly one playback actor.
package audio

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/vuongmanhnghia/tacobot/pkg/logger"
)

var (
	// ErrConnectionFailed is returned when joining a voice channel fails.
	ErrConnectionFailed = errors.New("failed to connect to voice channel")
	// ErrAlreadyPlaying is returned when Play is called mid-playback.
	ErrAlreadyPlaying = errors.New("already playing")
)

// Connection is a voice connection with an attached streaming player.
// Playback runs on its own goroutine; when a track finishes or is stopped
// the completion callback fires exactly once.
type Connection struct {
	session   *discordgo.Session
	guildID   string
	channelID string
	encoder   *Encoder
	logger    *logger.Logger

	vc      *discordgo.VoiceConnection
	playing atomic.Bool
	paused  atomic.Bool
	stop    chan struct{}

	mu sync.Mutex
}

// Dial joins the voice channel and waits for the connection to become ready.
func Dial(session *discordgo.Session, guildID, channelID string, log *logger.Logger) (*Connection, error) {
	vc, err := session.ChannelVoiceJoin(context.Background(), guildID, channelID, false, true)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConnectionFailed, err)
	}

	readyTimeout := time.After(10 * time.Second)
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()
	for vc.Status != discordgo.VoiceConnectionStatusReady {
		select {
		case <-readyTimeout:
			vc.Disconnect(context.Background())
			return nil, fmt.Errorf("%w: connection not ready after 10s", ErrConnectionFailed)
		case <-ticker.C:
		}
	}

	log.WithFields(map[string]interface{}{
		"guild": guildID, "channel": channelID,
	}).Info("Joined voice channel")

	return &Connection{
		session:   session,
		guildID:   guildID,
		channelID: channelID,
		encoder:   NewEncoder(log),
		logger:    log,
		vc:        vc,
	}, nil
}

// ChannelID returns the channel this connection is bound to.
func (c *Connection) ChannelID() string { return c.channelID }

// Connected reports whether the underlying voice connection is usable.
func (c *Connection) Connected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.vc != nil && c.vc.Status == discordgo.VoiceConnectionStatusReady
}

// Playing reports whether a track is mid-playback (paused still counts).
func (c *Connection) Playing() bool { return c.playing.Load() }

// Paused reports whether playback is currently paused.
func (c *Connection) Paused() bool { return c.paused.Load() }

// SetPaused pauses or resumes frame delivery.
func (c *Connection) SetPaused(paused bool) {
	c.paused.Store(paused)
	if c.Connected() {
		c.vc.Speaking(!paused && c.playing.Load())
	}
}

// HasListeners reports whether any non-bot user shares the voice channel.
func (c *Connection) HasListeners() bool {
	guild, err := c.session.State.Guild(c.guildID)
	if err != nil {
		return true // can't tell, assume someone is listening
	}
	for _, vs := range guild.VoiceStates {
		if vs.ChannelID != c.channelID || vs.UserID == c.session.State.User.ID {
			continue
		}
		member, err := c.session.State.Member(c.guildID, vs.UserID)
		if err != nil || member.User == nil || !member.User.Bot {
			return true
		}
	}
	return false
}

// Play starts streaming the media at locator. onDone fires exactly once when
// playback ends, whether it ran to completion, failed, or was stopped.
func (c *Connection) Play(locator string, onDone func(err error)) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.playing.Load() {
		return ErrAlreadyPlaying
	}
	if c.vc == nil || c.vc.Status != discordgo.VoiceConnectionStatusReady {
		return ErrConnectionFailed
	}

	c.stop = make(chan struct{})
	c.playing.Store(true)

	go c.stream(locator, c.stop, onDone)
	return nil
}

func (c *Connection) stream(locator string, stop chan struct{}, onDone func(error)) {
	var playErr error
	defer func() {
		c.playing.Store(false)
		if onDone != nil {
			onDone(playErr)
		}
	}()

	c.vc.Speaking(true)
	defer c.vc.Speaking(false)

	frames, errs := c.encoder.EncodeStream(locator, stop)

	for {
		select {
		case <-stop:
			return

		case err := <-errs:
			if err != nil {
				c.logger.WithError(err).Error("Playback pipeline error")
				playErr = err
				return
			}

		case frame, ok := <-frames:
			if !ok {
				return
			}

			for c.paused.Load() {
				select {
				case <-stop:
					return
				case <-time.After(100 * time.Millisecond):
				}
			}

			select {
			case c.vc.OpusSend <- frame:
			case <-stop:
				return
			}
		}
	}
}

// Stop force-stops the current playback, if any. The completion callback
// still fires, which is what drives the actor's position advance.
func (c *Connection) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.playing.Load() {
		return
	}
	select {
	case <-c.stop:
	default:
		close(c.stop)
	}
}

// Disconnect stops playback and leaves the voice channel.
func (c *Connection) Disconnect() error {
	c.Stop()

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.vc == nil {
		return nil
	}
	err := c.vc.Disconnect(context.Background())
	c.vc = nil
	c.logger.WithField("guild", c.guildID).Info("Disconnected from voice channel")
	return err
}
