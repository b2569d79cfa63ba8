package player

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	boterrors "github.com/vuongmanhnghia/tacobot/internal/errors"
	"github.com/vuongmanhnghia/tacobot/internal/playlist"
)

func TestClearDeclinedKeepsQueue(t *testing.T) {
	a, _, chat, _, _ := newTestActor(t)
	addTracks(a, "a", "b")

	chat.replies <- "n"
	if err := a.Clear(context.Background(), testReq); err != nil {
		t.Fatalf("Clear = %v", err)
	}
	if got := queueIDs(a); len(got) != 2 {
		t.Fatalf("declined clear emptied the queue: %v", got)
	}
	if !strings.Contains(chat.lastMessage(), "kept as is") {
		t.Errorf("last message = %q", chat.lastMessage())
	}
}

func TestClearConfirmed(t *testing.T) {
	a, voice, chat, _, _ := newTestActor(t)
	addTracks(a, "a", "b", "c")
	a.pos = 2
	a.queue.SetName("Road Trip")
	voice.playing = true

	chat.replies <- "y"
	if err := a.Clear(context.Background(), testReq); err != nil {
		t.Fatalf("Clear = %v", err)
	}
	if got := queueIDs(a); len(got) != 0 {
		t.Fatalf("queue not emptied: %v", got)
	}
	if got := position(a); got != 0 {
		t.Fatalf("pos = %d, want 0 while the stop settles", got)
	}
	if voice.stopCount() != 1 {
		t.Fatal("clearing mid-playback must force-stop")
	}
	a.mu.Lock()
	name := a.queue.Name()
	a.mu.Unlock()
	if name != "Testers Queue" {
		t.Errorf("name = %q, want the default back", name)
	}

	doAdvance(a)
	if got := position(a); got != 1 {
		t.Fatalf("pos after advance = %d, want 1", got)
	}
}

func TestClearEmptyQueueSkipsConfirmation(t *testing.T) {
	a, _, chat, _, _ := newTestActor(t)

	if err := a.Clear(context.Background(), testReq); err != nil {
		t.Fatalf("Clear = %v", err)
	}
	if !strings.Contains(chat.lastMessage(), "Queue cleared") {
		t.Errorf("last message = %q", chat.lastMessage())
	}
}

func TestConfirmationTimesOut(t *testing.T) {
	a, _, _, _, _ := newTestActor(t)

	outcome, err := a.askConfirmation(context.Background(), testReq, "clear", "sure?", 20*time.Millisecond)
	if err != nil {
		t.Fatalf("askConfirmation = %v", err)
	}
	if outcome != TimedOut {
		t.Fatalf("outcome = %v, want TimedOut", outcome)
	}
}

func TestConfirmationIgnoresChatter(t *testing.T) {
	a, _, chat, _, _ := newTestActor(t)

	chat.replies <- "hmm let me think"
	chat.replies <- "yes"
	outcome, err := a.askConfirmation(context.Background(), testReq, "clear", "sure?", time.Second)
	if err != nil || outcome != Confirmed {
		t.Fatalf("askConfirmation = %v, %v; want Confirmed", outcome, err)
	}
}

func TestDuplicateConfirmationRejected(t *testing.T) {
	a, _, chat, _, _ := newTestActor(t)

	first := make(chan Outcome, 1)
	go func() {
		outcome, _ := a.askConfirmation(context.Background(), testReq, "clear", "sure?", time.Second)
		first <- outcome
	}()
	<-chat.awaiting

	_, err := a.askConfirmation(context.Background(), testReq, "clear", "sure?", time.Second)
	if !errors.Is(err, boterrors.ErrAlreadyAsked) {
		t.Fatalf("second ask = %v, want ErrAlreadyAsked", err)
	}
	if !chat.hasReaction("🚫") {
		t.Error("duplicate ask must react with 🚫")
	}

	chat.replies <- "y"
	if outcome := <-first; outcome != Confirmed {
		t.Errorf("first ask outcome = %v, want Confirmed", outcome)
	}

	// The slot frees up once the first exchange ends.
	chat.replies <- "n"
	outcome, err := a.askConfirmation(context.Background(), testReq, "clear", "sure?", time.Second)
	if err != nil || outcome != Declined {
		t.Errorf("third ask = %v, %v; want Declined", outcome, err)
	}
}

func TestSaveQueueRequiresTracks(t *testing.T) {
	a, _, _, _, _ := newTestActor(t)

	if err := a.SaveQueue(context.Background(), testReq, "Party"); !errors.Is(err, boterrors.ErrQueueEmpty) {
		t.Fatalf("SaveQueue on empty queue = %v, want ErrQueueEmpty", err)
	}
}

func TestSaveQueueOverwriteConfirmed(t *testing.T) {
	a, _, chat, _, store := newTestActor(t)
	addTracks(a, "x", "y")
	store.data[testReq.AuthorID] = []playlist.Record{{Name: "Party", IDs: []string{"old"}}}

	chat.replies <- "y"
	if err := a.SaveQueue(context.Background(), testReq, "party"); err != nil {
		t.Fatalf("SaveQueue = %v", err)
	}

	records, ok := store.Load(context.Background(), testReq.AuthorID)
	if !ok || len(records) != 1 {
		t.Fatalf("store holds %d records, want exactly 1", len(records))
	}
	if len(records[0].IDs) != 2 || records[0].IDs[0] != "x" || records[0].IDs[1] != "y" {
		t.Errorf("saved IDs = %v", records[0].IDs)
	}
	if len(chat.embeds) == 0 {
		t.Error("overwrite must show a preview embed")
	}
}

func TestSaveQueueOverwriteDeclined(t *testing.T) {
	a, _, chat, _, store := newTestActor(t)
	addTracks(a, "x")
	store.data[testReq.AuthorID] = []playlist.Record{{Name: "Party", IDs: []string{"old"}}}

	chat.replies <- "n"
	if err := a.SaveQueue(context.Background(), testReq, "Party"); err != nil {
		t.Fatalf("SaveQueue = %v", err)
	}
	records, _ := store.Load(context.Background(), testReq.AuthorID)
	if len(records) != 1 || records[0].IDs[0] != "old" {
		t.Fatalf("declined overwrite changed the store: %#v", records)
	}
}

func TestLoadQueueErrors(t *testing.T) {
	a, _, _, _, store := newTestActor(t)

	if err := a.LoadQueue(context.Background(), testReq, "Party"); !errors.Is(err, boterrors.ErrNoSavedPlaylists) {
		t.Errorf("no store data = %v, want ErrNoSavedPlaylists", err)
	}

	store.data[testReq.AuthorID] = []playlist.Record{{Name: "Chill", IDs: []string{"a"}}}
	if err := a.LoadQueue(context.Background(), testReq, "Party"); !errors.Is(err, boterrors.ErrPlaylistNotFound) {
		t.Errorf("unknown name = %v, want ErrPlaylistNotFound", err)
	}
}

func TestLoadQueueReplacesAndLoads(t *testing.T) {
	a, voice, chat, _, store := newTestActor(t)
	addTracks(a, "old-1", "old-2")
	a.pos = 2
	voice.playing = true
	store.data[testReq.AuthorID] = []playlist.Record{{Name: "Party", IDs: []string{"p1", "p2", "p3"}}}

	if err := a.LoadQueue(context.Background(), testReq, "party"); err != nil {
		t.Fatalf("LoadQueue = %v", err)
	}
	if got := position(a); got != 0 {
		t.Fatalf("pos = %d, want 0 while the stop settles", got)
	}
	if voice.stopCount() != 1 {
		t.Fatal("replacing mid-playback must force-stop")
	}

	waitFor(t, "bulk load to finish", func() bool { return !a.loadInFlight() })
	if got := queueIDs(a); len(got) != 3 || got[0] != "p1" {
		t.Fatalf("queue = %v, want the playlist tracks", got)
	}
	a.mu.Lock()
	name, loadedBy := a.queue.Name(), a.queue.LoadedBy
	track, _ := a.queue.At(1)
	a.mu.Unlock()
	if name != "Party" || loadedBy != testReq.AuthorMention {
		t.Errorf("name = %q, loadedBy = %q", name, loadedBy)
	}
	if track.Requester != testReq.AuthorMention {
		t.Errorf("requester = %q", track.Requester)
	}
	if !strings.Contains(chat.lastEdit(), "✅ Loaded **Party**, 3/3") {
		t.Errorf("final progress edit = %q", chat.lastEdit())
	}

	progress := 0
	chat.mu.Lock()
	for _, edit := range chat.edits {
		if strings.Contains(edit, "📥 Loading **Party**") {
			progress++
		}
	}
	chat.mu.Unlock()
	if progress != 3 {
		t.Errorf("got %d progress edits, want one per loaded track", progress)
	}
}

func TestBulkLoadCancelKeepsPartial(t *testing.T) {
	a, _, chat, res, store := newTestActor(t)
	res.blockAfter = 3
	res.gate = make(chan struct{})
	store.data[testReq.AuthorID] = []playlist.Record{{Name: "Party", IDs: []string{"p1", "p2", "p3", "p4", "p5", "p6"}}}

	if err := a.LoadQueue(context.Background(), testReq, "Party"); err != nil {
		t.Fatalf("LoadQueue = %v", err)
	}
	waitFor(t, "three tracks loaded", func() bool { return len(queueIDs(a)) == 3 })

	chat.reacts <- [2]string{cancelEmoji, "user-2"}
	waitFor(t, "load to wind down", func() bool { return !a.loadInFlight() })

	if got := queueIDs(a); len(got) != 3 {
		t.Fatalf("partial load must stay: %v", got)
	}
	if edit := chat.lastEdit(); !strings.Contains(edit, "cancelled by <@user-2>") || !strings.Contains(edit, "3/6") {
		t.Errorf("final progress edit = %q", edit)
	}
}

func TestBulkLoadSupersession(t *testing.T) {
	a, _, chat, res, store := newTestActor(t)
	res.blockAfter = 2
	res.gate = make(chan struct{})
	store.data[testReq.AuthorID] = []playlist.Record{
		{Name: "Party", IDs: []string{"p1", "p2", "p3", "p4"}},
		{Name: "Chill", IDs: []string{"c1", "c2"}},
	}

	if err := a.LoadQueue(context.Background(), testReq, "Party"); err != nil {
		t.Fatalf("LoadQueue(Party) = %v", err)
	}
	waitFor(t, "partial first load", func() bool { return len(queueIDs(a)) == 2 })

	res.unblock()
	if err := a.LoadQueue(context.Background(), testReq, "Chill"); err != nil {
		t.Fatalf("LoadQueue(Chill) = %v", err)
	}
	waitFor(t, "second load to finish", func() bool { return !a.loadInFlight() })

	if got := queueIDs(a); len(got) != 2 || got[0] != "c1" || got[1] != "c2" {
		t.Fatalf("queue = %v, want the superseding playlist", got)
	}
	cancelled := false
	chat.mu.Lock()
	for _, edit := range chat.edits {
		if strings.Contains(edit, "Loading **Party** cancelled by") {
			cancelled = true
		}
	}
	chat.mu.Unlock()
	if !cancelled {
		t.Error("superseded load must report its cancellation")
	}
}

func TestAddQueueDeclinedKeepsRunningLoad(t *testing.T) {
	a, _, chat, res, store := newTestActor(t)
	res.blockAfter = 1
	res.gate = make(chan struct{})
	store.data[testReq.AuthorID] = []playlist.Record{{Name: "Party", IDs: []string{"p1", "p2", "p3"}}}

	if err := a.LoadQueue(context.Background(), testReq, "Party"); err != nil {
		t.Fatalf("LoadQueue = %v", err)
	}
	waitFor(t, "load in flight", func() bool { return a.loadInFlight() && len(queueIDs(a)) == 1 })

	chat.replies <- "n"
	if err := a.AddQueue(context.Background(), testReq, "Party"); err != nil {
		t.Fatalf("AddQueue = %v", err)
	}
	if !strings.Contains(chat.lastMessage(), "Kept the running load") {
		t.Errorf("last message = %q", chat.lastMessage())
	}
	if !a.loadInFlight() {
		t.Error("declined supersede must not cancel the running load")
	}

	a.cancelLoad("cleanup")
	waitFor(t, "cleanup", func() bool { return !a.loadInFlight() })
}

func TestAddQueueAppends(t *testing.T) {
	a, _, _, _, store := newTestActor(t)
	addTracks(a, "x")
	store.data[testReq.AuthorID] = []playlist.Record{{Name: "Party", IDs: []string{"p1", "p2"}}}

	if err := a.AddQueue(context.Background(), testReq, "Party"); err != nil {
		t.Fatalf("AddQueue = %v", err)
	}
	waitFor(t, "append load to finish", func() bool { return !a.loadInFlight() })

	if got := queueIDs(a); len(got) != 3 || got[0] != "x" || got[1] != "p1" {
		t.Fatalf("queue = %v, want existing tracks kept and playlist appended", got)
	}
}

func TestShowQueues(t *testing.T) {
	a, _, chat, _, store := newTestActor(t)

	if err := a.ShowQueues(context.Background(), testReq); !errors.Is(err, boterrors.ErrNoSavedPlaylists) {
		t.Fatalf("empty store = %v, want ErrNoSavedPlaylists", err)
	}

	store.data[testReq.AuthorID] = []playlist.Record{{Name: "Party", IDs: []string{"p1"}}}
	if err := a.ShowQueues(context.Background(), testReq); err != nil {
		t.Fatalf("ShowQueues = %v", err)
	}
	chat.mu.Lock()
	sent := len(chat.embeds)
	chat.mu.Unlock()
	if sent != 1 {
		t.Errorf("sent %d embeds, want 1", sent)
	}
}

func TestViewQueueEmpty(t *testing.T) {
	a, _, _, _, _ := newTestActor(t)

	if err := a.ViewQueue(context.Background(), testReq); !errors.Is(err, boterrors.ErrQueueEmpty) {
		t.Fatalf("ViewQueue on empty queue = %v, want ErrQueueEmpty", err)
	}
}

func TestViewQueueSessionNavigates(t *testing.T) {
	a, _, chat, _, _ := newTestActor(t)
	ids := make([]string, 25)
	for i := range ids {
		ids[i] = string(rune('a' + i))
	}
	addTracks(a, ids...)
	a.pos = 12

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := a.ViewQueue(ctx, testReq); err != nil {
		t.Fatalf("ViewQueue = %v", err)
	}
	chat.mu.Lock()
	opened := len(chat.embeds) == 1
	footer := ""
	if opened {
		footer = chat.embeds[0].Footer.Text
	}
	chat.mu.Unlock()
	if !opened {
		t.Fatal("view must post exactly one embed")
	}
	if !strings.Contains(footer, "Page 2/3") || !strings.Contains(footer, "25 track(s)") {
		t.Fatalf("initial footer = %q, want the page holding the current track", footer)
	}

	waitFor(t, "cursor controls", func() bool { return chat.hasReaction(emojiLast) })

	chat.reacts <- [2]string{emojiLast, "user-1"}
	chat.reacts <- [2]string{emojiFirst, "user-1"}
	chat.reacts <- [2]string{emojiNext, "user-1"}
	waitFor(t, "three page edits", func() bool { return chat.embedEditCount() == 3 })

	chat.mu.Lock()
	footers := []string{
		chat.embedEdits[0].Footer.Text,
		chat.embedEdits[1].Footer.Text,
		chat.embedEdits[2].Footer.Text,
	}
	chat.mu.Unlock()
	for i, want := range []string{"Page 3/3", "Page 1/3", "Page 2/3"} {
		if !strings.Contains(footers[i], want) {
			t.Errorf("edit %d footer = %q, want %s", i, footers[i], want)
		}
	}
}

func TestDesiredControls(t *testing.T) {
	tests := []struct {
		pages int
		want  int
	}{
		{1, 1},
		{2, 3},
		{3, 5},
		{9, 5},
	}
	for _, tt := range tests {
		if got := desiredControls(tt.pages); len(got) != tt.want {
			t.Errorf("desiredControls(%d) = %v, want %d controls", tt.pages, got, tt.want)
		}
	}
}

func TestCurrentPageIndex(t *testing.T) {
	a, _, _, _, _ := newTestActor(t)
	ids := make([]string, 25)
	for i := range ids {
		ids[i] = string(rune('a' + i))
	}
	addTracks(a, ids...)

	tests := []struct {
		pos  int
		want int
	}{
		{1, 0},
		{10, 0},
		{11, 1},
		{25, 2},
		{99, 2}, // parked past the end clamps to the last page
		{0, 0},
	}
	for _, tt := range tests {
		a.mu.Lock()
		a.pos = tt.pos
		got := a.currentPageIndex()
		a.mu.Unlock()
		if got != tt.want {
			t.Errorf("currentPageIndex at pos %d = %d, want %d", tt.pos, got, tt.want)
		}
	}
}

func TestRenderPagesMarksCurrentTrack(t *testing.T) {
	a, _, _, _, _ := newTestActor(t)
	addTracks(a, "a", "b", "c")
	a.pos = 2

	a.mu.Lock()
	pages := a.renderPages()
	a.mu.Unlock()

	if len(pages) != 1 {
		t.Fatalf("got %d pages, want 1", len(pages))
	}
	if !strings.Contains(pages[0].Description, "▶ **2.**") {
		t.Errorf("current track not marked:\n%s", pages[0].Description)
	}
	if strings.Contains(pages[0].Description, "▶ **1.**") {
		t.Error("marker leaked onto another line")
	}
}

func TestFooterState(t *testing.T) {
	a, voice, _, _, _ := newTestActor(t)

	if got := a.footerState(); got != "▶️ Playing" {
		t.Errorf("connected idle state = %q", got)
	}
	a.shouldBePaused = true
	if got := a.footerState(); !strings.Contains(got, "Paused") {
		t.Errorf("paused state = %q", got)
	}
	a.shouldBePaused = false
	a.looped = true
	a.queueLooped = true
	if got := a.footerState(); !strings.Contains(got, "this track") {
		t.Errorf("track loop must win over queue loop: %q", got)
	}
	a.looped = false
	a.shuffleOnLoop = true
	if got := a.footerState(); !strings.Contains(got, "Shuffle-looping") {
		t.Errorf("shuffle-loop state = %q", got)
	}
	voice.Disconnect()
	if got := a.footerState(); !strings.Contains(got, "Disconnected") {
		t.Errorf("disconnected state = %q", got)
	}
}
