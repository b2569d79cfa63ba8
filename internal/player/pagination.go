package player

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"

	boterrors "github.com/vuongmanhnghia/tacobot/internal/errors"
)

const (
	pageSize    = 10
	viewTimeout = 180 * time.Second
)

const (
	emojiRefresh = "🔄"
	emojiFirst   = "⏫"
	emojiPrev    = "⬆️"
	emojiNext    = "⬇️"
	emojiLast    = "⏬"
)

// ViewQueue posts the paginated queue view and starts its reaction-driven
// session. The session ends quietly after the idle timeout; the message
// stays where it is.
func (a *Actor) ViewQueue(ctx context.Context, req Request) error {
	a.mu.Lock()
	a.touch(req)
	if a.queue.Len() == 0 {
		a.mu.Unlock()
		return boterrors.ErrQueueEmpty
	}
	pages := a.renderPages()
	index := a.currentPageIndex()
	a.mu.Unlock()

	messageID, err := a.chat.SendEmbed(req.ChannelID, pages[index])
	if err != nil {
		return err
	}
	go a.runViewSession(ctx, req.ChannelID, messageID, pages, index)
	return nil
}

// currentPageIndex derives the page holding the current position. Called
// with mu held.
func (a *Actor) currentPageIndex() int {
	pos := a.pos
	if length := a.queue.Len(); pos > length {
		pos = length
	}
	if pos < 1 {
		pos = 1
	}
	return (pos - 1) / pageSize
}

// renderPages builds one embed per pageSize tracks; an empty queue yields a
// single placeholder page so refresh keeps working. Called with mu held.
func (a *Actor) renderPages() []*discordgo.MessageEmbed {
	tracks := a.queue.Tracks()
	name := a.queue.Name()
	total := len(tracks)

	if total == 0 {
		return []*discordgo.MessageEmbed{{
			Title:       "📜 " + name,
			Description: "The queue is empty. Use `%play` to add songs.",
			Color:       embedColor,
		}}
	}

	pageCount := (total + pageSize - 1) / pageSize
	pages := make([]*discordgo.MessageEmbed, 0, pageCount)
	for p := 0; p < pageCount; p++ {
		var sb strings.Builder
		for i := p * pageSize; i < (p+1)*pageSize && i < total; i++ {
			pos := i + 1
			marker := ""
			if pos == a.pos {
				marker = "▶ "
			}
			fmt.Fprintf(&sb, "%s**%d.** %s `%s`\n",
				marker, pos, tracks[i].TruncatedMarkdown(trackLineWidth), tracks[i].DurationString())
		}
		footer := fmt.Sprintf("Page %d/%d • %d track(s) • %s", p+1, pageCount, total, a.footerState())
		pages = append(pages, &discordgo.MessageEmbed{
			Title:       "📜 " + name,
			Description: sb.String(),
			Color:       embedColor,
			Footer:      &discordgo.MessageEmbedFooter{Text: footer},
		})
	}
	return pages
}

// desiredControls returns the affordance set for the page count: refresh
// alone for one page, prev/next for two, the full cursor set for three or
// more.
func desiredControls(pageCount int) []string {
	switch {
	case pageCount <= 1:
		return []string{emojiRefresh}
	case pageCount == 2:
		return []string{emojiRefresh, emojiPrev, emojiNext}
	}
	return []string{emojiRefresh, emojiFirst, emojiPrev, emojiNext, emojiLast}
}

func (a *Actor) runViewSession(ctx context.Context, channelID, messageID string, pages []*discordgo.MessageEmbed, index int) {
	var present []string

	for {
		// Housekeeping: only touch reactions when the required set changed,
		// so we do not race our own additions.
		desired := desiredControls(len(pages))
		if !slices.Equal(present, desired) {
			for _, e := range present {
				if !slices.Contains(desired, e) {
					a.chat.RemoveOwnReaction(channelID, messageID, e)
				}
			}
			for _, e := range desired {
				if !slices.Contains(present, e) {
					a.chat.AddReaction(channelID, messageID, e)
				}
			}
			present = desired
		}

		waitCtx, cancel := context.WithTimeout(ctx, viewTimeout)
		emoji, userID, err := a.chat.AwaitReaction(waitCtx, channelID, messageID, desired)
		cancel()
		if err != nil {
			return
		}
		a.chat.RemoveReaction(channelID, messageID, emoji, userID)

		switch emoji {
		case emojiRefresh:
			a.mu.Lock()
			pages = a.renderPages()
			index = a.currentPageIndex()
			a.mu.Unlock()
			if index > len(pages)-1 {
				index = len(pages) - 1
			}
		case emojiFirst:
			index = 0
		case emojiPrev:
			if index > 0 {
				index--
			}
		case emojiNext:
			if index < len(pages)-1 {
				index++
			}
		case emojiLast:
			index = len(pages) - 1
		}

		a.chat.EditEmbed(channelID, messageID, pages[index])
	}
}
