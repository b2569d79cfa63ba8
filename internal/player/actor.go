// Package player implements the per-guild playback actor: one queue, one
// voice connection, position state and loop/shuffle flags, driven by a main
// loop that is the only decider of "what plays next".
package player

import (
	"context"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/vuongmanhnghia/tacobot/internal/domain/entities"
	"github.com/vuongmanhnghia/tacobot/internal/playlist"
	"github.com/vuongmanhnghia/tacobot/pkg/logger"
)

// Voice is the playback side of a voice connection. audio.Connection
// implements it; tests substitute a fake.
type Voice interface {
	ChannelID() string
	Connected() bool
	Playing() bool
	Paused() bool
	SetPaused(paused bool)
	HasListeners() bool
	// Play starts streaming the media at locator. onDone fires exactly once
	// when playback ends, naturally or by force-stop.
	Play(locator string, onDone func(err error)) error
	Stop()
	Disconnect() error
}

// Chat is the messaging surface the actor talks through. Await methods block
// until a matching event arrives or ctx expires.
type Chat interface {
	SendMessage(channelID, content string) (messageID string, err error)
	SendEmbed(channelID string, embed *discordgo.MessageEmbed) (messageID string, err error)
	EditMessage(channelID, messageID, content string) error
	EditEmbed(channelID, messageID string, embed *discordgo.MessageEmbed) error
	DeleteMessage(channelID, messageID string)
	AddReaction(channelID, messageID, emoji string)
	RemoveReaction(channelID, messageID, emoji, userID string)
	RemoveOwnReaction(channelID, messageID, emoji string)
	// AwaitMessage waits for the next message from userID in channelID.
	AwaitMessage(ctx context.Context, channelID, userID string) (content string, err error)
	// AwaitReaction waits for the next non-bot reaction on messageID matching
	// one of emojis.
	AwaitReaction(ctx context.Context, channelID, messageID string, emojis []string) (emoji, userID string, err error)
}

// Resolver turns queries and stable IDs into tracks. resolver.Service
// implements it.
type Resolver interface {
	ResolveQuery(ctx context.Context, query string) (*entities.Track, error)
	ResolveID(ctx context.Context, id string) (*entities.Track, error)
	Preview(ctx context.Context, id string) (string, bool)
}

// Request carries the chat context of the command invocation being served.
type Request struct {
	ChannelID     string
	MessageID     string
	AuthorID      string
	AuthorMention string
}

// Actor is the per-guild playback state machine. All queue and position
// state is guarded by mu; command handlers and the main loop take it for
// every mutation, and release it across network and chat waits so that the
// confirmation and cancellation protocols can interleave.
type Actor struct {
	guildID   string
	guildName string

	chat     Chat
	resolver Resolver
	store    playlist.Store
	logger   *logger.Logger

	mu             sync.Mutex
	voice          Voice
	queue          *entities.Queue
	pos            int
	startedAt      time.Time
	shouldBePaused bool
	looped         bool
	queueLooped    bool
	shuffleOnLoop  bool
	skipped        bool // one-shot, suppresses the loop-track revert once
	textChannelID  string
	npChannelID    string
	npMessageID    string
	reloading      bool
	loopRunning    bool

	// Completion events from the audio goroutine are delivered here and
	// processed by the main loop, never applied directly by the callback.
	// The platform guarantees at most one active playback per connection,
	// so one slot is enough.
	trackDone chan error

	confirmMu sync.Mutex
	pending   map[confirmKey]struct{}

	loadMu   sync.Mutex
	loadTask *loadTask
	pace     time.Duration // delay between bulk-load resolves
}

// NewActor creates an idle actor for one guild. The queue starts empty with
// the default name and the position parked at 1, waiting for the first track.
func NewActor(guildID, guildName string, chat Chat, res Resolver, store playlist.Store, log *logger.Logger) *Actor {
	a := &Actor{
		guildID:   guildID,
		guildName: guildName,
		chat:      chat,
		resolver:  res,
		store:     store,
		logger:    log,
		queue:     entities.NewQueue(defaultQueueName(guildName)),
		pos:       1,
		trackDone: make(chan error, 1),
		pending:   make(map[confirmKey]struct{}),
		pace:      loadPace,
	}
	return a
}

func defaultQueueName(guildName string) string {
	return guildName + " Queue"
}

// AttachVoice hands the actor a fresh voice connection and (re)starts the
// main loop. Called by the dispatcher after a successful join.
func (a *Actor) AttachVoice(v Voice) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.voice != nil && a.voice.Connected() {
		a.voice.Disconnect()
	}
	a.voice = v
	a.ensureLoop()
}

// Connected reports whether the actor currently holds a live voice
// connection.
func (a *Actor) Connected() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.voice != nil && a.voice.Connected()
}

// VoiceChannelID returns the channel of the current voice connection, or ""
// when disconnected.
func (a *Actor) VoiceChannelID() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.voice == nil {
		return ""
	}
	return a.voice.ChannelID()
}

// touch records the text channel the latest command came from; loop
// notifications and now-playing notices go there.
func (a *Actor) touch(req Request) {
	a.textChannelID = req.ChannelID
}
