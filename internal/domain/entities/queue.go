package entities

import (
	"fmt"
	"math/rand"
	"strings"

	boterrors "github.com/vuongmanhnghia/tacobot/internal/errors"
)

// Queue is an ordered, 1-indexed sequence of tracks with a display name.
// Position 0 and position len+1 are "parked" sentinels used by the playback
// actor; they are never valid indices into the queue itself.
//
// A Queue belongs to exactly one actor and is mutated only under that actor's
// lock, so it carries no synchronization of its own.
type Queue struct {
	name     string
	LoadedBy string // mention of the principal who loaded a saved playlist, "" for the default queue
	tracks   []*Track
}

// NewQueue creates an empty queue. Braces are stripped from the name to keep
// the persisted text format unambiguous.
func NewQueue(name string) *Queue {
	q := &Queue{}
	q.SetName(name)
	return q
}

// Name returns the queue's display name.
func (q *Queue) Name() string { return q.name }

// SetName renames the queue, stripping '{' and '}' which would break the
// persisted record format.
func (q *Queue) SetName(name string) {
	q.name = strings.NewReplacer("{", "", "}", "").Replace(name)
}

// Len returns the number of tracks in the queue.
func (q *Queue) Len() int { return len(q.tracks) }

// Add appends a track to the end of the queue.
func (q *Queue) Add(t *Track) {
	q.tracks = append(q.tracks, t)
}

// At returns the track at 1-indexed pos, or ErrOutOfRange when pos is outside
// [1, Len].
func (q *Queue) At(pos int) (*Track, error) {
	if pos < 1 || pos > len(q.tracks) {
		return nil, fmt.Errorf("%w: %d not in [1, %d]", boterrors.ErrOutOfRange, pos, len(q.tracks))
	}
	return q.tracks[pos-1], nil
}

// Segment returns a new queue holding the tracks at positions [start, end],
// stopping early at the true end of the queue instead of failing.
func (q *Queue) Segment(start, end int) *Queue {
	seg := NewQueue(q.name)
	for pos := start; pos <= end; pos++ {
		t, err := q.At(pos)
		if err != nil {
			break
		}
		seg.Add(t)
	}
	return seg
}

// Pop removes and returns the track at 1-indexed pos.
func (q *Queue) Pop(pos int) (*Track, error) {
	t, err := q.At(pos)
	if err != nil {
		return nil, err
	}
	q.tracks = append(q.tracks[:pos-1], q.tracks[pos:]...)
	return t, nil
}

// PopRange removes and returns the tracks at positions [pos1, pos2]. Bounds
// are clamped with slice semantics, so out-of-range arguments never fail;
// an empty clamped range returns an empty slice.
func (q *Queue) PopRange(pos1, pos2 int) []*Track {
	lo := pos1 - 1
	if lo < 0 {
		lo = 0
	}
	hi := pos2
	if hi > len(q.tracks) {
		hi = len(q.tracks)
	}
	if lo >= hi {
		return nil
	}

	removed := make([]*Track, hi-lo)
	copy(removed, q.tracks[lo:hi])
	q.tracks = append(q.tracks[:lo], q.tracks[hi:]...)
	return removed
}

// SearchTitle returns the position of the first track whose title contains
// substr, case-insensitive.
func (q *Queue) SearchTitle(substr string) (int, bool) {
	substr = strings.ToLower(substr)
	for i, t := range q.tracks {
		if strings.Contains(strings.ToLower(t.Title), substr) {
			return i + 1, true
		}
	}
	return 0, false
}

// Swap exchanges the tracks at pos1 and pos2.
func (q *Queue) Swap(pos1, pos2 int) error {
	if _, err := q.At(pos1); err != nil {
		return err
	}
	if _, err := q.At(pos2); err != nil {
		return err
	}
	q.tracks[pos1-1], q.tracks[pos2-1] = q.tracks[pos2-1], q.tracks[pos1-1]
	return nil
}

// ShuffleSuffix randomly permutes the tracks from position boundary+1 onward,
// leaving everything at or before boundary untouched. A boundary of 0 (or
// below) shuffles the whole queue.
func (q *Queue) ShuffleSuffix(boundary int) {
	if boundary < 0 {
		boundary = 0
	}
	if boundary >= len(q.tracks) {
		return
	}
	tail := q.tracks[boundary:]
	rand.Shuffle(len(tail), func(i, j int) {
		tail[i], tail[j] = tail[j], tail[i]
	})
}

// Clear removes every track and returns how many were removed.
func (q *Queue) Clear() int {
	n := len(q.tracks)
	q.tracks = nil
	return n
}

// Tracks returns a copy of the track slice for display purposes.
func (q *Queue) Tracks() []*Track {
	out := make([]*Track, len(q.tracks))
	copy(out, q.tracks)
	return out
}

// IDs returns the ordered source IDs, the only part of a track that is
// persisted.
func (q *Queue) IDs() []string {
	ids := make([]string, len(q.tracks))
	for i, t := range q.tracks {
		ids[i] = t.ID
	}
	return ids
}

// Equal reports whether other holds the same tracks, by identity, at every
// position.
func (q *Queue) Equal(other *Queue) bool {
	if other == nil || len(q.tracks) != len(other.tracks) {
		return false
	}
	for i := range q.tracks {
		if !q.tracks[i].Equal(other.tracks[i]) {
			return false
		}
	}
	return true
}
