package entities

import (
	"fmt"
	"strings"
	"time"
)

// StaleAfter is how long a stream locator stays playable after it was
// generated. Googlevideo links have been observed to expire after 6 hours;
// reload an hour early to stay clear of the edge.
const StaleAfter = 5 * time.Hour

// Track represents one playable media item. The stream locator has a bounded
// lifetime; callers check IsStale before handing it to the audio pipeline.
//
// Tracks are owned by exactly one Queue and mutated only by the owning
// actor's goroutine, so no locking is needed here.
type Track struct {
	ID         string // stable source ID (YouTube video ID)
	Title      string
	Duration   int // seconds
	WebpageURL string
	StreamURL  string // expiring locator; empty for preview-only tracks
	Requester  string // mention of the user who queued it

	CreatedAt time.Time // set on creation, reset by Refresh
}

// NewTrack builds a full playable track from resolved metadata.
func NewTrack(id, title string, duration int, webpageURL, streamURL string) *Track {
	return &Track{
		ID:         id,
		Title:      title,
		Duration:   duration,
		WebpageURL: webpageURL,
		StreamURL:  streamURL,
		CreatedAt:  time.Now(),
	}
}

// IsStale reports whether the stream locator is past its validity window.
func (t *Track) IsStale(now time.Time) bool {
	return now.Sub(t.CreatedAt) > StaleAfter
}

// HasStream reports whether this track carries a playable locator.
// Preview tracks reconstructed from a persisted ID do not.
func (t *Track) HasStream() bool {
	return t.StreamURL != ""
}

// Refresh replaces this track's metadata with a freshly resolved copy and
// resets the creation time. The requester is preserved since the resolver
// knows nothing about it.
func (t *Track) Refresh(fresh *Track) {
	requester := t.Requester
	*t = *fresh
	t.Requester = requester
	t.CreatedAt = time.Now()
}

// Equal reports whether other refers to the same source item.
func (t *Track) Equal(other *Track) bool {
	return t != nil && other != nil && t.ID == other.ID
}

// Markdown renders the track as a chat hyperlink: [title](webpage_url).
func (t *Track) Markdown() string {
	return fmt.Sprintf("[%s](%s)", t.Title, t.WebpageURL)
}

// TruncatedMarkdown is Markdown with the title cut to maxChars runes (marked
// with an ellipsis) so queue lines stay on one row. Square brackets are
// stripped from the title since an unmatched bracket breaks link markdown.
func (t *Track) TruncatedMarkdown(maxChars int) string {
	title := t.Title
	if runes := []rune(title); len(runes) > maxChars {
		title = string(runes[:maxChars]) + "…"
	}
	title = strings.NewReplacer("[", "", "]", "").Replace(title)
	return fmt.Sprintf("[%s](%s)", title, t.WebpageURL)
}

// DurationString formats the duration as [H:]MM:SS.
func (t *Track) DurationString() string {
	seconds := t.Duration % (24 * 3600)
	hours := seconds / 3600
	minutes := seconds % 3600 / 60
	seconds %= 60

	if hours > 0 {
		return fmt.Sprintf("%d:%02d:%02d", hours, minutes, seconds)
	}
	return fmt.Sprintf("%02d:%02d", minutes, seconds)
}
