package player

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/vuongmanhnghia/tacobot/internal/domain/entities"
	"github.com/vuongmanhnghia/tacobot/internal/playlist"
)

const (
	embedColor     = 0xE67E22
	trackLineWidth = 55
)

// footerState summarizes the actor's playback mode for embed footers.
// Called with mu held.
func (a *Actor) footerState() string {
	switch {
	case a.voice == nil || !a.voice.Connected():
		return "🔌 Disconnected"
	case a.shouldBePaused:
		return "⏸️ Paused"
	case a.looped:
		return "🔂 Looping this track"
	case a.shuffleOnLoop:
		return "🔀 Shuffle-looping the queue"
	case a.queueLooped:
		return "🔁 Looping the queue"
	}
	return "▶️ Playing"
}

// nowPlayingEmbed renders the current track. Called with mu held.
func (a *Actor) nowPlayingEmbed(track *entities.Track) *discordgo.MessageEmbed {
	elapsed := int(time.Since(a.startedAt).Seconds())
	if elapsed > track.Duration {
		elapsed = track.Duration
	}
	return &discordgo.MessageEmbed{
		Title:       "🎶 Now Playing",
		Description: track.Markdown(),
		Color:       embedColor,
		Fields: []*discordgo.MessageEmbedField{
			{Name: "Position", Value: fmt.Sprintf("%d / %d", a.pos, a.queue.Len()), Inline: true},
			{Name: "Duration", Value: fmt.Sprintf("%s / %s", formatSeconds(elapsed), track.DurationString()), Inline: true},
			{Name: "Requested by", Value: track.Requester, Inline: true},
		},
		Footer: &discordgo.MessageEmbedFooter{Text: a.footerState() + " • " + a.queue.Name()},
	}
}

// previewEmbed renders the first few tracks of a stored record through the
// cheap preview path; IDs that fail to preview fall back to the raw ID.
func (a *Actor) previewEmbed(ctx context.Context, rec playlist.Record) *discordgo.MessageEmbed {
	limit := pageSize
	if len(rec.IDs) < limit {
		limit = len(rec.IDs)
	}

	var sb strings.Builder
	for i := 0; i < limit; i++ {
		line, ok := a.resolver.Preview(ctx, rec.IDs[i])
		if !ok {
			line = "`" + rec.IDs[i] + "`"
		}
		fmt.Fprintf(&sb, "**%d.** %s\n", i+1, line)
	}
	if rest := len(rec.IDs) - limit; rest > 0 {
		fmt.Fprintf(&sb, "and %d more\n", rest)
	}

	return &discordgo.MessageEmbed{
		Title:       "💾 " + rec.Name,
		Description: sb.String(),
		Color:       embedColor,
		Footer:      &discordgo.MessageEmbedFooter{Text: fmt.Sprintf("%d track(s)", len(rec.IDs))},
	}
}

// savedPlaylistsEmbed lists a user's saved playlists with their sizes.
func savedPlaylistsEmbed(owner string, records []playlist.Record) *discordgo.MessageEmbed {
	var sb strings.Builder
	for i, rec := range records {
		fmt.Fprintf(&sb, "**%d.** %s (%d track(s))\n", i+1, rec.Name, len(rec.IDs))
	}
	return &discordgo.MessageEmbed{
		Title:       "💾 Saved playlists",
		Description: sb.String(),
		Color:       embedColor,
		Footer:      &discordgo.MessageEmbedFooter{Text: "Saved by " + owner},
	}
}

// formatSeconds renders a second count as [H:]MM:SS, matching the track
// duration format.
func formatSeconds(s int) string {
	if s < 0 {
		s = 0
	}
	hours := s / 3600
	minutes := s % 3600 / 60
	seconds := s % 60
	if hours > 0 {
		return fmt.Sprintf("%d:%02d:%02d", hours, minutes, seconds)
	}
	return fmt.Sprintf("%02d:%02d", minutes, seconds)
}
