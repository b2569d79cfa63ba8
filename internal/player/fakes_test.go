package player

import (
	"context"
	"io"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/vuongmanhnghia/tacobot/internal/domain/entities"
	"github.com/vuongmanhnghia/tacobot/internal/playlist"
	"github.com/vuongmanhnghia/tacobot/pkg/logger"
)

type fakeVoice struct {
	mu        sync.Mutex
	connected bool
	playing   bool
	paused    bool
	listeners bool
	played    []string
	stopped   int
}

func (v *fakeVoice) ChannelID() string { return "voice-chan" }

func (v *fakeVoice) Connected() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.connected
}

func (v *fakeVoice) Playing() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.playing
}

func (v *fakeVoice) Paused() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.paused
}

func (v *fakeVoice) SetPaused(paused bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.paused = paused
}

func (v *fakeVoice) HasListeners() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.listeners
}

func (v *fakeVoice) Play(locator string, onDone func(error)) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.playing = true
	v.played = append(v.played, locator)
	return nil
}

// Stop only flips the playing flag; tests deliver the completion event by
// calling advance themselves, which keeps the arithmetic deterministic.
func (v *fakeVoice) Stop() {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.playing {
		v.playing = false
		v.stopped++
	}
}

func (v *fakeVoice) Disconnect() error {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.connected = false
	v.playing = false
	return nil
}

func (v *fakeVoice) stopCount() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.stopped
}

type fakeChat struct {
	mu         sync.Mutex
	messages   []string
	edits      []string
	embeds     []*discordgo.MessageEmbed
	embedEdits []*discordgo.MessageEmbed
	reactions  []string
	nextID     int

	replies  chan string
	reacts   chan [2]string // emoji, userID
	awaiting chan struct{}  // signalled when AwaitMessage starts
}

func newFakeChat() *fakeChat {
	return &fakeChat{
		replies:  make(chan string, 8),
		reacts:   make(chan [2]string, 8),
		awaiting: make(chan struct{}, 8),
	}
}

func (c *fakeChat) id() string {
	c.nextID++
	return "msg-" + string(rune('a'+c.nextID))
}

func (c *fakeChat) SendMessage(channelID, content string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.messages = append(c.messages, content)
	return c.id(), nil
}

func (c *fakeChat) SendEmbed(channelID string, embed *discordgo.MessageEmbed) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.embeds = append(c.embeds, embed)
	return c.id(), nil
}

func (c *fakeChat) EditMessage(channelID, messageID, content string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.edits = append(c.edits, content)
	return nil
}

func (c *fakeChat) EditEmbed(channelID, messageID string, embed *discordgo.MessageEmbed) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.embedEdits = append(c.embedEdits, embed)
	return nil
}

func (c *fakeChat) DeleteMessage(channelID, messageID string) {}

func (c *fakeChat) AddReaction(channelID, messageID, emoji string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.reactions = append(c.reactions, emoji)
}

func (c *fakeChat) RemoveReaction(channelID, messageID, emoji, userID string) {}

func (c *fakeChat) RemoveOwnReaction(channelID, messageID, emoji string) {}

func (c *fakeChat) AwaitMessage(ctx context.Context, channelID, userID string) (string, error) {
	select {
	case c.awaiting <- struct{}{}:
	default:
	}
	select {
	case content := <-c.replies:
		return content, nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

func (c *fakeChat) AwaitReaction(ctx context.Context, channelID, messageID string, emojis []string) (string, string, error) {
	for {
		select {
		case hit := <-c.reacts:
			if slices.Contains(emojis, hit[0]) {
				return hit[0], hit[1], nil
			}
		case <-ctx.Done():
			return "", "", ctx.Err()
		}
	}
}

func (c *fakeChat) lastMessage() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.messages) == 0 {
		return ""
	}
	return c.messages[len(c.messages)-1]
}

func (c *fakeChat) lastEdit() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.edits) == 0 {
		return ""
	}
	return c.edits[len(c.edits)-1]
}

func (c *fakeChat) lastEmbedEdit() *discordgo.MessageEmbed {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.embedEdits) == 0 {
		return nil
	}
	return c.embedEdits[len(c.embedEdits)-1]
}

func (c *fakeChat) embedEditCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.embedEdits)
}

func (c *fakeChat) hasReaction(emoji string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Contains(c.reactions, emoji)
}

type fakeResolver struct {
	mu         sync.Mutex
	calls      int
	blockAfter int           // block calls beyond this count, 0 disables
	gate       chan struct{} // releases blocked calls
}

func testTrack(id string) *entities.Track {
	return entities.NewTrack(id, "Title "+id, 60, "https://w/"+id, "https://s/"+id)
}

func (r *fakeResolver) ResolveQuery(ctx context.Context, query string) (*entities.Track, error) {
	return r.ResolveID(ctx, "id-"+query)
}

func (r *fakeResolver) ResolveID(ctx context.Context, id string) (*entities.Track, error) {
	r.mu.Lock()
	r.calls++
	blocked := r.blockAfter > 0 && r.calls > r.blockAfter
	gate := r.gate
	r.mu.Unlock()

	if blocked {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return testTrack(id), nil
}

func (r *fakeResolver) Preview(ctx context.Context, id string) (string, bool) {
	return "[Preview " + id + "](https://w/" + id + ")", true
}

func (r *fakeResolver) unblock() {
	r.mu.Lock()
	r.blockAfter = 0
	r.mu.Unlock()
}

type fakeStore struct {
	mu   sync.Mutex
	data map[string][]playlist.Record
}

func (s *fakeStore) Exists(ctx context.Context, userID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.data[userID]) > 0
}

func (s *fakeStore) Load(ctx context.Context, userID string) ([]playlist.Record, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	records, ok := s.data[userID]
	if !ok || len(records) == 0 {
		return nil, false
	}
	return append([]playlist.Record(nil), records...), true
}

func (s *fakeStore) Save(ctx context.Context, userID string, records []playlist.Record) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[userID] = append([]playlist.Record(nil), records...)
	return true
}

var testReq = Request{
	ChannelID:     "chan-1",
	MessageID:     "msg-1",
	AuthorID:      "user-1",
	AuthorMention: "<@user-1>",
}

// newTestActor builds an actor with a connected fake voice attached
// directly, without the main loop, so tests control every advance.
func newTestActor(t *testing.T) (*Actor, *fakeVoice, *fakeChat, *fakeResolver, *fakeStore) {
	t.Helper()
	chat := newFakeChat()
	res := &fakeResolver{}
	store := &fakeStore{data: make(map[string][]playlist.Record)}
	log := logger.New(logger.Config{Level: "error", Output: io.Discard})

	a := NewActor("guild-1", "Testers", chat, res, store, log)
	a.pace = time.Millisecond

	voice := &fakeVoice{connected: true, listeners: true}
	a.voice = voice
	a.textChannelID = testReq.ChannelID
	return a, voice, chat, res, store
}

func addTracks(a *Actor, ids ...string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	for _, id := range ids {
		a.queue.Add(testTrack(id))
	}
}

func queueIDs(a *Actor) []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.queue.IDs()
}

func position(a *Actor) int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.pos
}

// waitFor polls cond until it holds or the deadline hits.
func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}
