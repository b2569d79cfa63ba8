package entities

import (
	"errors"
	"sort"
	"testing"

	boterrors "github.com/vuongmanhnghia/tacobot/internal/errors"
)

func mkTrack(id string) *Track {
	return NewTrack(id, "Title "+id, 60, "https://example.com/"+id, "stream://"+id)
}

func mkQueue(ids ...string) *Queue {
	q := NewQueue("Test Queue")
	for _, id := range ids {
		q.Add(mkTrack(id))
	}
	return q
}

func TestQueueAtBounds(t *testing.T) {
	q := mkQueue("a", "b", "c")

	for _, pos := range []int{0, -1, 4} {
		if _, err := q.At(pos); !errors.Is(err, boterrors.ErrOutOfRange) {
			t.Errorf("At(%d) = %v, want ErrOutOfRange", pos, err)
		}
	}
	track, err := q.At(2)
	if err != nil || track.ID != "b" {
		t.Fatalf("At(2) = %v, %v; want b", track, err)
	}
}

func TestQueuePopKeepsOrder(t *testing.T) {
	q := mkQueue("a", "b", "c", "d")

	track, err := q.Pop(2)
	if err != nil || track.ID != "b" {
		t.Fatalf("Pop(2) = %v, %v; want b", track, err)
	}
	for pos, want := range map[int]string{1: "a", 2: "c", 3: "d"} {
		got, err := q.At(pos)
		if err != nil || got.ID != want {
			t.Errorf("At(%d) = %v, %v; want %s", pos, got, err, want)
		}
	}
	if _, err := q.Pop(4); !errors.Is(err, boterrors.ErrOutOfRange) {
		t.Errorf("Pop past end = %v, want ErrOutOfRange", err)
	}
}

func TestQueuePopRangeClamps(t *testing.T) {
	exact := mkQueue("a", "b", "c", "d", "e").PopRange(3, 5)
	clamped := mkQueue("a", "b", "c", "d", "e").PopRange(3, 99)

	if len(exact) != len(clamped) {
		t.Fatalf("clamped PopRange removed %d, exact removed %d", len(clamped), len(exact))
	}
	for i := range exact {
		if exact[i].ID != clamped[i].ID {
			t.Errorf("removed[%d]: %s vs %s", i, exact[i].ID, clamped[i].ID)
		}
	}

	q := mkQueue("a", "b", "c")
	if removed := q.PopRange(-5, 2); len(removed) != 2 || removed[0].ID != "a" {
		t.Errorf("PopRange(-5, 2) removed %v", removed)
	}
	if removed := q.PopRange(3, 2); removed != nil {
		t.Errorf("empty clamped range should return nil, got %v", removed)
	}
}

func TestQueueSegmentStopsEarly(t *testing.T) {
	q := mkQueue("a", "b", "c")

	seg := q.Segment(2, 10)
	if seg.Len() != 2 {
		t.Fatalf("Segment(2, 10).Len() = %d, want 2", seg.Len())
	}
	if ids := seg.IDs(); ids[0] != "b" || ids[1] != "c" {
		t.Errorf("segment IDs = %v", ids)
	}
	if q.Len() != 3 {
		t.Error("Segment must not mutate the source queue")
	}
}

func TestQueueSearchTitle(t *testing.T) {
	q := NewQueue("q")
	q.Add(NewTrack("a", "Bohemian Rhapsody", 355, "", ""))
	q.Add(NewTrack("b", "Under Pressure", 248, "", ""))
	q.Add(NewTrack("c", "Pressure Drop", 200, "", ""))

	if pos, ok := q.SearchTitle("PRESSURE"); !ok || pos != 2 {
		t.Errorf("SearchTitle(PRESSURE) = %d, %v; want first match at 2", pos, ok)
	}
	if _, ok := q.SearchTitle("zeppelin"); ok {
		t.Error("SearchTitle should miss on absent substring")
	}
}

func TestQueueSwap(t *testing.T) {
	q := mkQueue("a", "b", "c")
	if err := q.Swap(1, 3); err != nil {
		t.Fatalf("Swap(1, 3) = %v", err)
	}
	if ids := q.IDs(); ids[0] != "c" || ids[2] != "a" {
		t.Errorf("after swap IDs = %v", ids)
	}
	if err := q.Swap(1, 4); !errors.Is(err, boterrors.ErrOutOfRange) {
		t.Errorf("Swap out of range = %v, want ErrOutOfRange", err)
	}
}

func TestQueueShuffleSuffix(t *testing.T) {
	q := mkQueue("a", "b", "c", "d", "e", "f", "g", "h")

	q.ShuffleSuffix(2)

	ids := q.IDs()
	if ids[0] != "a" || ids[1] != "b" {
		t.Errorf("prefix disturbed: %v", ids[:2])
	}
	tail := append([]string(nil), ids[2:]...)
	sort.Strings(tail)
	want := []string{"c", "d", "e", "f", "g", "h"}
	for i := range want {
		if tail[i] != want[i] {
			t.Fatalf("suffix is not a permutation: %v", ids[2:])
		}
	}
}

func TestQueueSetNameStripsBraces(t *testing.T) {
	q := NewQueue("{My} {Queue}")
	if q.Name() != "My Queue" {
		t.Errorf("Name() = %q, want braces stripped", q.Name())
	}
}

func TestQueueEqual(t *testing.T) {
	a := mkQueue("x", "y")
	b := mkQueue("x", "y")
	b.SetName("Other Name") // identity is the track list, not the name

	if !a.Equal(b) {
		t.Error("queues with same IDs should be equal")
	}
	if a.Equal(mkQueue("x")) {
		t.Error("different lengths should not be equal")
	}
	if a.Equal(mkQueue("y", "x")) {
		t.Error("different order should not be equal")
	}
	if a.Equal(nil) {
		t.Error("nil should not be equal")
	}
}

func TestQueueClear(t *testing.T) {
	q := mkQueue("a", "b", "c")
	if n := q.Clear(); n != 3 {
		t.Errorf("Clear() = %d, want 3", n)
	}
	if q.Len() != 0 {
		t.Errorf("Len after clear = %d", q.Len())
	}
}
