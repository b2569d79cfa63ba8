package player

import (
	"context"
	"fmt"
	"strings"

	boterrors "github.com/vuongmanhnghia/tacobot/internal/errors"
	"github.com/vuongmanhnghia/tacobot/internal/playlist"
)

// Play resolves a query, appends the result and lets the main loop pick it
// up. An empty query resumes paused playback instead.
func (a *Actor) Play(ctx context.Context, req Request, query string) error {
	if strings.TrimSpace(query) == "" {
		return a.Resume(req)
	}

	track, err := a.resolver.ResolveQuery(ctx, query)
	if err != nil {
		return err
	}
	track.Requester = req.AuthorMention

	a.mu.Lock()
	a.touch(req)
	a.queue.Add(track)
	pos := a.queue.Len()
	a.mu.Unlock()

	a.chat.SendMessage(req.ChannelID,
		fmt.Sprintf("➕ Queued **%d.** %s `%s`", pos, track.TruncatedMarkdown(trackLineWidth), track.DurationString()))
	return nil
}

// Pause suspends frame delivery without losing position.
func (a *Actor) Pause(req Request) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.touch(req)
	if a.voice == nil || !a.voice.Connected() {
		return boterrors.ErrNotConnected
	}
	if !a.voice.Playing() {
		return boterrors.ErrNothingPlaying
	}
	a.shouldBePaused = true
	a.voice.SetPaused(true)
	go a.chat.AddReaction(req.ChannelID, req.MessageID, "⏸️")
	return nil
}

// Resume lifts a pause.
func (a *Actor) Resume(req Request) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.touch(req)
	if a.voice == nil || !a.voice.Connected() {
		return boterrors.ErrNotConnected
	}
	a.shouldBePaused = false
	if a.voice.Playing() {
		a.voice.SetPaused(false)
	}
	go a.chat.AddReaction(req.ChannelID, req.MessageID, "▶️")
	return nil
}

// Leave disconnects from voice but keeps queue and position, so a later join
// resumes where things left off.
func (a *Actor) Leave(req Request) error {
	a.mu.Lock()
	a.touch(req)
	if a.voice == nil || !a.voice.Connected() {
		a.mu.Unlock()
		return boterrors.ErrNotConnected
	}
	if a.voice.Playing() {
		// The force-stop's completion event will advance pos by one; offset
		// now so the interrupted track resumes on the next join.
		a.pos--
		a.skipped = true
	}
	a.disconnectLocked()
	a.mu.Unlock()

	a.chat.SendMessage(req.ChannelID, "👋 Left the voice channel.")
	return nil
}

// NowPlaying posts a fresh now-playing notice, replacing the previous one.
func (a *Actor) NowPlaying(req Request) error {
	a.mu.Lock()
	a.touch(req)
	if a.voice == nil || !a.voice.Playing() {
		a.mu.Unlock()
		return boterrors.ErrNothingPlaying
	}
	track, err := a.queue.At(a.pos)
	if err != nil {
		a.mu.Unlock()
		return boterrors.ErrNothingPlaying
	}
	embed := a.nowPlayingEmbed(track)
	oldChannel, oldMessage := a.npChannelID, a.npMessageID
	a.mu.Unlock()

	if oldMessage != "" {
		a.chat.DeleteMessage(oldChannel, oldMessage)
	}
	messageID, err := a.chat.SendEmbed(req.ChannelID, embed)
	if err != nil {
		return err
	}
	a.mu.Lock()
	a.npChannelID, a.npMessageID = req.ChannelID, messageID
	a.mu.Unlock()
	return nil
}

// Skip force-stops the current track; the advance algorithm moves on.
func (a *Actor) Skip(req Request) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.touch(req)
	if a.voice == nil || !a.voice.Playing() {
		return boterrors.ErrNothingPlaying
	}
	a.skipped = true
	a.voice.Stop()
	go a.chat.AddReaction(req.ChannelID, req.MessageID, "⏭️")
	return nil
}

// Back steps one track backwards. While playing, pos drops by two so the
// pending completion advance lands one before the current track.
func (a *Actor) Back(req Request) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.touch(req)
	if a.pos <= 0 {
		return fmt.Errorf("%w: already at the start", boterrors.ErrOutOfRange)
	}
	if a.voice != nil && a.voice.Playing() {
		a.pos -= 2
		a.skipped = true
		a.voice.Stop()
	} else {
		a.pos--
	}
	go a.chat.AddReaction(req.ChannelID, req.MessageID, "⏮️")
	return nil
}

// Jump moves to target. Out-of-range targets reject without touching state.
func (a *Actor) Jump(req Request, target int) error {
	a.mu.Lock()
	a.touch(req)
	track, err := a.queue.At(target)
	if err != nil {
		a.mu.Unlock()
		return err
	}
	if a.voice != nil && a.voice.Playing() {
		a.pos = target - 1
		a.skipped = true
		a.voice.Stop()
	} else {
		a.pos = target
	}
	a.mu.Unlock()

	a.chat.SendMessage(req.ChannelID,
		fmt.Sprintf("↪️ Jumped to **%d.** %s", target, track.TruncatedMarkdown(trackLineWidth)))
	return nil
}

// FindByTitle returns the position of the first queued track whose title
// contains substr. Used by the dispatcher for by-title command variants.
func (a *Actor) FindByTitle(substr string) (int, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.queue.SearchTitle(substr)
}

// Clear empties the queue after confirmation, cancelling any in-flight bulk
// load first. Position resets to 1 and the default name comes back.
func (a *Actor) Clear(ctx context.Context, req Request) error {
	a.mu.Lock()
	a.touch(req)
	count := a.queue.Len()
	a.mu.Unlock()

	if count > 0 {
		outcome, err := a.askConfirmation(ctx, req, "clear",
			fmt.Sprintf("🗑️ Clear **%d** track(s) from the queue?", count), confirmTimeout)
		if err != nil {
			return err
		}
		switch outcome {
		case Declined:
			a.chat.SendMessage(req.ChannelID, "👌 Queue kept as is.")
			return nil
		case TimedOut:
			a.chat.SendMessage(req.ChannelID, "⌛ No answer, queue kept as is.")
			return nil
		}
	}

	a.cancelLoad(req.AuthorMention)

	a.mu.Lock()
	a.queue.Clear()
	a.queue.SetName(defaultQueueName(a.guildName))
	a.queue.LoadedBy = ""
	if a.voice != nil && a.voice.Playing() {
		// Park at 0 so the pending completion advance lands on 1.
		a.pos = 0
		a.skipped = true
		a.voice.Stop()
	} else {
		a.pos = 1
	}
	a.mu.Unlock()

	a.chat.SendMessage(req.ChannelID, "🗑️ Queue cleared.")
	return nil
}

// Remove drops the track at target, keeping pos consistent: removing at the
// current position force-stops, removing strictly before it only shifts.
func (a *Actor) Remove(req Request, target int) error {
	a.mu.Lock()
	a.touch(req)
	track, err := a.queue.Pop(target)
	if err != nil {
		a.mu.Unlock()
		return err
	}
	if target == a.pos {
		a.pos--
		if a.voice != nil && a.voice.Playing() {
			a.skipped = true
			a.voice.Stop()
		}
	} else if target < a.pos {
		a.pos--
	}
	a.mu.Unlock()

	a.chat.SendMessage(req.ChannelID, fmt.Sprintf("➖ Removed %s.", track.TruncatedMarkdown(trackLineWidth)))
	return nil
}

// RemoveRange drops the tracks in [pos1, pos2] with clamping semantics.
// Covering the playing track force-stops; a parked position inside the range
// is left alone.
func (a *Actor) RemoveRange(req Request, pos1, pos2 int) error {
	a.mu.Lock()
	a.touch(req)
	length := a.queue.Len()
	removed := a.queue.PopRange(pos1, pos2)
	if len(removed) == 0 {
		a.mu.Unlock()
		return fmt.Errorf("%w: nothing in [%d, %d]", boterrors.ErrOutOfRange, pos1, pos2)
	}
	lo, hi := pos1, pos2
	if lo < 1 {
		lo = 1
	}
	if hi > length {
		hi = length
	}
	switch {
	case a.pos > hi:
		a.pos -= len(removed)
	case a.pos >= lo && a.voice != nil && a.voice.Playing():
		a.pos = lo - 1
		a.skipped = true
		a.voice.Stop()
	}
	a.mu.Unlock()

	a.chat.SendMessage(req.ChannelID, fmt.Sprintf("➖ Removed **%d** track(s).", len(removed)))
	return nil
}

// Shuffle permutes everything after the current position.
func (a *Actor) Shuffle(req Request) error {
	a.mu.Lock()
	a.touch(req)
	if a.queue.Len() == 0 {
		a.mu.Unlock()
		return boterrors.ErrQueueEmpty
	}
	a.queue.ShuffleSuffix(a.pos)
	a.mu.Unlock()

	a.chat.SendMessage(req.ChannelID, "🔀 Shuffled the rest of the queue.")
	return nil
}

// applyToggle resolves an on/off/toggle argument against the current value.
func applyToggle(current bool, mode string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(mode)) {
	case "", "toggle":
		return !current, nil
	case "on", "true", "yes":
		return true, nil
	case "off", "false", "no":
		return false, nil
	}
	return current, boterrors.NewUserError(boterrors.ErrOutOfRange, "❌ Expected `on`, `off` or nothing")
}

func onOff(label string, v bool) string {
	if v {
		return label + " is now **on**."
	}
	return label + " is now **off**."
}

// Loop toggles replaying the current track. Wins over queue loop.
func (a *Actor) Loop(req Request, mode string) error {
	a.mu.Lock()
	a.touch(req)
	v, err := applyToggle(a.looped, mode)
	if err != nil {
		a.mu.Unlock()
		return err
	}
	a.looped = v
	a.mu.Unlock()

	a.chat.SendMessage(req.ChannelID, onOff("🔂 Track loop", v))
	return nil
}

// LoopQueue toggles wrapping around at the end of the queue. Turning it off
// also clears shuffle-on-loop.
func (a *Actor) LoopQueue(req Request, mode string) error {
	a.mu.Lock()
	a.touch(req)
	v, err := applyToggle(a.queueLooped, mode)
	if err != nil {
		a.mu.Unlock()
		return err
	}
	a.queueLooped = v
	if !v {
		a.shuffleOnLoop = false
	}
	a.mu.Unlock()

	a.chat.SendMessage(req.ChannelID, onOff("🔁 Queue loop", v))
	return nil
}

// ShuffleLoop toggles reshuffling the queue on each wraparound. Turning it
// on implies queue loop.
func (a *Actor) ShuffleLoop(req Request, mode string) error {
	a.mu.Lock()
	a.touch(req)
	v, err := applyToggle(a.shuffleOnLoop, mode)
	if err != nil {
		a.mu.Unlock()
		return err
	}
	a.shuffleOnLoop = v
	if v {
		a.queueLooped = true
	}
	a.mu.Unlock()

	a.chat.SendMessage(req.ChannelID, onOff("🔀 Shuffle loop", v))
	return nil
}

// NameQueue renames the queue; no argument restores the default name.
func (a *Actor) NameQueue(req Request, name string) error {
	a.mu.Lock()
	a.touch(req)
	if strings.TrimSpace(name) == "" {
		name = defaultQueueName(a.guildName)
	}
	a.queue.SetName(name)
	final := a.queue.Name()
	a.mu.Unlock()

	a.chat.SendMessage(req.ChannelID, fmt.Sprintf("✏️ The queue is now called **%s**.", final))
	return nil
}

// SaveQueue persists the queue's track IDs under name (default: the queue's
// own name). Overwriting an existing playlist is confirmation-gated, with a
// preview of what would be lost.
func (a *Actor) SaveQueue(ctx context.Context, req Request, name string) error {
	a.mu.Lock()
	a.touch(req)
	if a.queue.Len() == 0 {
		a.mu.Unlock()
		return boterrors.ErrQueueEmpty
	}
	if strings.TrimSpace(name) == "" {
		name = a.queue.Name()
	}
	ids := a.queue.IDs()
	a.mu.Unlock()

	// A failed download means no prior data, per the storage contract.
	records, _ := a.store.Load(ctx, req.AuthorID)

	if existing, found := playlist.Find(records, name); found {
		embed := a.previewEmbed(ctx, existing)
		outcome, err := a.askConfirmationEmbed(ctx, req, "savequeue",
			fmt.Sprintf("💾 A playlist named **%s** already exists. Overwrite it?", existing.Name),
			embed, confirmTimeout)
		if err != nil {
			return err
		}
		switch outcome {
		case Declined:
			a.chat.SendMessage(req.ChannelID, "👌 Nothing saved.")
			return nil
		case TimedOut:
			a.chat.SendMessage(req.ChannelID, "⌛ No answer, nothing saved.")
			return nil
		}
	}

	records = playlist.Upsert(records, playlist.Record{Name: name, IDs: ids})
	if !a.store.Save(ctx, req.AuthorID, records) {
		a.chat.SendMessage(req.ChannelID, "⚠ Could not save the playlist, try again later.")
		return nil
	}
	a.chat.SendMessage(req.ChannelID, fmt.Sprintf("💾 Saved **%s** (%d tracks).", name, len(ids)))
	return nil
}

func (a *Actor) lookupRecord(ctx context.Context, req Request, name string) (playlist.Record, error) {
	records, ok := a.store.Load(ctx, req.AuthorID)
	if !ok || len(records) == 0 {
		return playlist.Record{}, boterrors.ErrNoSavedPlaylists
	}
	rec, found := playlist.Find(records, name)
	if !found {
		return playlist.Record{}, boterrors.ErrPlaylistNotFound
	}
	return rec, nil
}

// LoadQueue replaces the queue with a saved playlist and bulk-loads it.
// Any load already in flight is superseded.
func (a *Actor) LoadQueue(ctx context.Context, req Request, name string) error {
	rec, err := a.lookupRecord(ctx, req, name)
	if err != nil {
		return err
	}

	a.cancelLoad(req.AuthorMention)

	a.mu.Lock()
	a.touch(req)
	a.queue.Clear()
	a.queue.SetName(rec.Name)
	a.queue.LoadedBy = req.AuthorMention
	if a.voice != nil && a.voice.Playing() {
		a.pos = 0
		a.skipped = true
		a.voice.Stop()
	} else {
		a.pos = 1
	}
	a.mu.Unlock()

	a.startBulkLoad(req, rec)
	return nil
}

// AddQueue appends a saved playlist to the current queue. When another load
// is in flight the caller must confirm superseding it.
func (a *Actor) AddQueue(ctx context.Context, req Request, name string) error {
	rec, err := a.lookupRecord(ctx, req, name)
	if err != nil {
		return err
	}

	a.mu.Lock()
	a.touch(req)
	a.mu.Unlock()

	if a.loadInFlight() {
		outcome, err := a.askConfirmation(ctx, req, "addqueue",
			"⚠ Another playlist is still loading. Cancel it and start this one?", confirmTimeout)
		if err != nil {
			return err
		}
		switch outcome {
		case Declined:
			a.chat.SendMessage(req.ChannelID, "👌 Kept the running load.")
			return nil
		case TimedOut:
			a.chat.SendMessage(req.ChannelID, "⌛ No answer, kept the running load.")
			return nil
		}
	}

	a.startBulkLoad(req, rec)
	return nil
}

// ShowQueues lists the caller's saved playlists with their sizes.
func (a *Actor) ShowQueues(ctx context.Context, req Request) error {
	a.mu.Lock()
	a.touch(req)
	a.mu.Unlock()

	records, ok := a.store.Load(ctx, req.AuthorID)
	if !ok || len(records) == 0 {
		return boterrors.ErrNoSavedPlaylists
	}

	_, err := a.chat.SendEmbed(req.ChannelID, savedPlaylistsEmbed(req.AuthorMention, records))
	return err
}
