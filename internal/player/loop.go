package player

import (
	"context"
	"time"

	"github.com/vuongmanhnghia/tacobot/internal/domain/entities"
)

const (
	// idleTimeout bounds how long the loop keeps a voice connection alive
	// with nothing to play. Paused playback and an empty voice channel both
	// count as idle.
	idleTimeout = 600 * time.Second
	loopTick    = 500 * time.Millisecond
)

// ensureLoop starts the main loop goroutine if it is not already running.
// Called with mu held, after a voice connection is attached.
func (a *Actor) ensureLoop() {
	if a.loopRunning || a.voice == nil {
		return
	}
	a.loopRunning = true
	go a.run()
}

// run is the main playback loop: the only driver of "what plays next". It
// exits when the voice connection is gone; the next join recreates it.
// Completion events are applied here, at the loop's own suspension point,
// never on the audio goroutine that produced them.
func (a *Actor) run() {
	defer func() {
		a.mu.Lock()
		a.loopRunning = false
		// A join may have raced the shutdown and attached a fresh connection.
		if a.voice != nil && a.voice.Connected() {
			a.ensureLoop()
		}
		a.mu.Unlock()
	}()

	ctx := context.Background()
	idleSince := time.Now()
	ticker := time.NewTicker(loopTick)
	defer ticker.Stop()

	for {
		select {
		case err := <-a.trackDone:
			a.mu.Lock()
			if err != nil {
				a.logger.WithError(err).WithField("guild", a.guildID).Warn("Track ended with error")
			}
			a.advance()
			a.mu.Unlock()
		case <-ticker.C:
		}

		a.mu.Lock()
		if a.voice == nil || !a.voice.Connected() {
			a.mu.Unlock()
			return
		}

		if a.voice.Playing() && !a.voice.Paused() && a.voice.HasListeners() {
			idleSince = time.Now()
		}

		if !a.voice.Playing() && a.startCurrent(ctx) {
			idleSince = time.Now()
			a.mu.Unlock()
			continue
		}

		if time.Since(idleSince) > idleTimeout {
			channelID := a.textChannelID
			a.idleDisconnect()
			a.mu.Unlock()
			if channelID != "" {
				a.chat.SendMessage(channelID, "💤 Left the voice channel after 10 minutes of inactivity.")
			}
			a.logger.WithField("guild", a.guildID).Info("Idle timeout, disconnected")
			return
		}
		a.mu.Unlock()
	}
}

// advance is the position-advance algorithm, applied once per completion
// event. Loop-track wins over loop-queue; the one-shot skipped flag
// suppresses the loop-track revert exactly once and is cleared regardless
// of the branch taken. Called with mu held.
func (a *Actor) advance() {
	a.pos++
	if a.looped && !a.skipped {
		a.pos--
	} else if a.queueLooped {
		if a.pos > a.queue.Len() {
			if a.shuffleOnLoop {
				a.queue.ShuffleSuffix(0)
			}
			a.pos = 1
		}
		if a.pos == 0 {
			a.pos = a.queue.Len()
		}
	}
	a.skipped = false
}

// startCurrent begins playback of the track at the current position, if
// there is one. Called with mu held; releases it across the reload call and
// revalidates afterwards. Reports whether playback was started.
func (a *Actor) startCurrent(ctx context.Context) bool {
	track, err := a.queue.At(a.pos)
	if err != nil {
		return false
	}

	if !track.HasStream() || track.IsStale(time.Now()) {
		a.mu.Unlock()
		fresh, rerr := a.resolver.ResolveID(ctx, track.ID)
		a.mu.Lock()
		if rerr != nil {
			a.logger.WithError(rerr).WithFields(map[string]interface{}{
				"guild": a.guildID, "track": track.ID,
			}).Warn("Reload failed, skipping track")
			// Only skip if the queue did not shift underneath the reload.
			if cur, aerr := a.queue.At(a.pos); aerr == nil && cur == track {
				a.pos++
			}
			return false
		}
		track.Refresh(fresh)
		if cur, aerr := a.queue.At(a.pos); aerr != nil || cur != track {
			return false
		}
	}

	if a.voice == nil || !a.voice.Connected() || a.voice.Playing() {
		return false
	}
	if perr := a.voice.Play(track.StreamURL, a.onTrackDone); perr != nil {
		a.logger.WithError(perr).WithField("guild", a.guildID).Error("Failed to start playback")
		return false
	}
	a.startedAt = time.Now()
	a.voice.SetPaused(a.shouldBePaused)

	a.logger.WithFields(map[string]interface{}{
		"guild": a.guildID, "pos": a.pos, "track": track.Title,
	}).Info("Playing track")

	a.announceNowPlaying(track)
	a.reloadQueueAsync(ctx)
	return true
}

// onTrackDone is the completion callback handed to the voice layer. It only
// delivers the event; the main loop does the state mutation.
func (a *Actor) onTrackDone(err error) {
	select {
	case a.trackDone <- err:
	default:
		a.logger.WithField("guild", a.guildID).Warn("Dropped duplicate completion event")
	}
}

// idleDisconnect is the timeout teardown. Like Leave, an interrupted track
// gets its position offset so the pending completion advance lands back on
// it at the next join. Called with mu held.
func (a *Actor) idleDisconnect() {
	if a.voice != nil && a.voice.Playing() {
		a.pos--
		a.skipped = true
	}
	a.disconnectLocked()
}

// disconnectLocked tears down the voice connection. Queue and position are
// preserved so a later join resumes where things left off. Called with mu
// held.
func (a *Actor) disconnectLocked() {
	if a.voice == nil {
		return
	}
	a.voice.Stop()
	a.voice.Disconnect()
	a.voice = nil
}

// announceNowPlaying replaces the previous now-playing notice with a fresh
// one. Called with mu held; the chat round-trips happen on their own
// goroutine.
func (a *Actor) announceNowPlaying(track *entities.Track) {
	channelID := a.textChannelID
	if channelID == "" {
		return
	}
	embed := a.nowPlayingEmbed(track)
	oldChannel, oldMessage := a.npChannelID, a.npMessageID

	go func() {
		if oldMessage != "" {
			a.chat.DeleteMessage(oldChannel, oldMessage)
		}
		messageID, err := a.chat.SendEmbed(channelID, embed)
		if err != nil {
			return
		}
		a.mu.Lock()
		a.npChannelID, a.npMessageID = channelID, messageID
		a.mu.Unlock()
	}()
}

// reloadQueueAsync opportunistically re-resolves stale or preview-only
// tracks in the background so future plays hit fresh locators. At most one
// pass runs at a time. Called with mu held.
func (a *Actor) reloadQueueAsync(ctx context.Context) {
	if a.reloading {
		return
	}
	a.reloading = true
	tracks := a.queue.Tracks()

	go func() {
		defer func() {
			a.mu.Lock()
			a.reloading = false
			a.mu.Unlock()
		}()
		for _, t := range tracks {
			a.mu.Lock()
			needs := !t.HasStream() || t.IsStale(time.Now())
			a.mu.Unlock()
			if !needs {
				continue
			}
			fresh, err := a.resolver.ResolveID(ctx, t.ID)
			if err != nil {
				continue
			}
			a.mu.Lock()
			t.Refresh(fresh)
			a.mu.Unlock()
		}
	}()
}
