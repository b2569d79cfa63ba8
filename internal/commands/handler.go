// Package commands parses prefixed chat commands, runs caller eligibility
// checks and delegates to the guild's playback actor.
package commands

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"github.com/bwmarrin/discordgo"

	"github.com/vuongmanhnghia/tacobot/internal/audio"
	boterrors "github.com/vuongmanhnghia/tacobot/internal/errors"
	"github.com/vuongmanhnghia/tacobot/internal/player"
	"github.com/vuongmanhnghia/tacobot/pkg/logger"
)

type handlerFunc func(ctx context.Context, actor *player.Actor, req player.Request, args string) error

type command struct {
	run handlerFunc
	// summons makes the bot join the caller's voice channel first when it
	// is not connected yet.
	summons bool
	// needsVoice rejects the command when the bot holds no voice
	// connection.
	needsVoice bool
}

// Handler dispatches prefixed message commands to playback actors.
type Handler struct {
	prefix   string
	session  *discordgo.Session
	registry *player.Registry
	logger   *logger.Logger
	table    map[string]command
}

// NewHandler builds the dispatcher with its command table.
func NewHandler(prefix string, session *discordgo.Session, registry *player.Registry, log *logger.Logger) *Handler {
	h := &Handler{
		prefix:   prefix,
		session:  session,
		registry: registry,
		logger:   log,
	}

	h.table = map[string]command{
		"join":        {run: h.join, summons: true},
		"play":        {run: h.play, summons: true},
		"pause":       {run: h.pause, needsVoice: true},
		"resume":      {run: h.resume, needsVoice: true},
		"leave":       {run: h.leave, needsVoice: true},
		"nowplaying":  {run: h.nowPlaying, needsVoice: true},
		"queue":       {run: h.viewQueue},
		"skip":        {run: h.skip, needsVoice: true},
		"back":        {run: h.back, needsVoice: true},
		"jump":        {run: h.jump},
		"clear":       {run: h.clear},
		"remove":      {run: h.remove},
		"removerange": {run: h.removeRange},
		"shuffle":     {run: h.shuffle},
		"loop":        {run: h.loop},
		"loopqueue":   {run: h.loopQueue},
		"shuffleloop": {run: h.shuffleLoop},
		"namequeue":   {run: h.nameQueue},
		"savequeue":   {run: h.saveQueue},
		"loadqueue":   {run: h.loadQueue, summons: true},
		"addqueue":    {run: h.addQueue, summons: true},
		"showqueues":  {run: h.showQueues},
	}
	for alias, target := range map[string]string{
		"p":  "play",
		"np": "nowplaying",
		"q":  "queue",
		"fs": "skip",
	} {
		h.table[alias] = h.table[target]
	}
	return h
}

// OnMessageCreate is the gateway entry point, registered on the session.
func (h *Handler) OnMessageCreate(s *discordgo.Session, m *discordgo.MessageCreate) {
	if m.Author == nil || m.Author.Bot || m.GuildID == "" {
		return
	}
	if !strings.HasPrefix(m.Content, h.prefix) {
		return
	}

	parts := strings.SplitN(strings.TrimPrefix(m.Content, h.prefix), " ", 2)
	name := strings.ToLower(strings.TrimSpace(parts[0]))
	args := ""
	if len(parts) > 1 {
		args = strings.TrimSpace(parts[1])
	}

	cmd, ok := h.table[name]
	if !ok {
		return
	}

	actor := h.registry.GetOrCreate(m.GuildID, h.guildName(m.GuildID))
	req := player.Request{
		ChannelID:     m.ChannelID,
		MessageID:     m.ID,
		AuthorID:      m.Author.ID,
		AuthorMention: m.Author.Mention(),
	}

	if err := h.dispatch(cmd, actor, m, req, args); err != nil {
		// The duplicate-confirmation reject already answered with a react.
		if errors.Is(err, boterrors.ErrAlreadyAsked) {
			return
		}
		h.logger.WithError(err).WithFields(map[string]interface{}{
			"command": name, "guild": m.GuildID, "user": m.Author.ID,
		}).Debug("Command rejected")
		s.ChannelMessageSend(m.ChannelID, boterrors.GetUserMessage(err))
	}
}

func (h *Handler) dispatch(cmd command, actor *player.Actor, m *discordgo.MessageCreate, req player.Request, args string) error {
	if cmd.summons && !actor.Connected() {
		if err := h.summon(actor, m.GuildID, m.Author.ID); err != nil {
			return err
		}
	}
	if cmd.needsVoice && !actor.Connected() {
		return boterrors.ErrNotConnected
	}
	return cmd.run(context.Background(), actor, req, args)
}

// summon joins the caller's voice channel and hands the connection to the
// actor. Callers outside voice cannot summon.
func (h *Handler) summon(actor *player.Actor, guildID, userID string) error {
	channelID, ok := h.callerVoiceChannel(guildID, userID)
	if !ok {
		return boterrors.ErrNotInVoice
	}
	conn, err := audio.Dial(h.session, guildID, channelID, h.logger)
	if err != nil {
		return boterrors.NewUserError(err, "🔊 I could not join your voice channel, try again later")
	}
	actor.AttachVoice(conn)
	return nil
}

func (h *Handler) callerVoiceChannel(guildID, userID string) (string, bool) {
	guild, err := h.session.State.Guild(guildID)
	if err != nil {
		return "", false
	}
	for _, vs := range guild.VoiceStates {
		if vs.UserID == userID {
			return vs.ChannelID, true
		}
	}
	return "", false
}

func (h *Handler) guildName(guildID string) string {
	if guild, err := h.session.State.Guild(guildID); err == nil && guild.Name != "" {
		return guild.Name
	}
	return "Guild"
}

// parseTarget turns a position argument or a title fragment into a queue
// position.
func parseTarget(actor *player.Actor, args string) (int, error) {
	if args == "" {
		return 0, boterrors.NewUserError(boterrors.ErrOutOfRange, "❌ Give me a queue position or part of a title")
	}
	if n, err := strconv.Atoi(args); err == nil {
		return n, nil
	}
	if pos, ok := actor.FindByTitle(args); ok {
		return pos, nil
	}
	return 0, boterrors.ErrTrackNotFound
}

func (h *Handler) join(_ context.Context, _ *player.Actor, req player.Request, _ string) error {
	h.session.ChannelMessageSend(req.ChannelID, "🎧 Connected and ready to play.")
	return nil
}

func (h *Handler) play(ctx context.Context, actor *player.Actor, req player.Request, args string) error {
	return actor.Play(ctx, req, args)
}

func (h *Handler) pause(_ context.Context, actor *player.Actor, req player.Request, _ string) error {
	return actor.Pause(req)
}

func (h *Handler) resume(_ context.Context, actor *player.Actor, req player.Request, _ string) error {
	return actor.Resume(req)
}

func (h *Handler) leave(_ context.Context, actor *player.Actor, req player.Request, _ string) error {
	return actor.Leave(req)
}

func (h *Handler) nowPlaying(_ context.Context, actor *player.Actor, req player.Request, _ string) error {
	return actor.NowPlaying(req)
}

func (h *Handler) viewQueue(ctx context.Context, actor *player.Actor, req player.Request, _ string) error {
	return actor.ViewQueue(ctx, req)
}

func (h *Handler) skip(_ context.Context, actor *player.Actor, req player.Request, _ string) error {
	return actor.Skip(req)
}

func (h *Handler) back(_ context.Context, actor *player.Actor, req player.Request, _ string) error {
	return actor.Back(req)
}

func (h *Handler) jump(_ context.Context, actor *player.Actor, req player.Request, args string) error {
	target, err := parseTarget(actor, args)
	if err != nil {
		return err
	}
	return actor.Jump(req, target)
}

func (h *Handler) clear(ctx context.Context, actor *player.Actor, req player.Request, _ string) error {
	return actor.Clear(ctx, req)
}

func (h *Handler) remove(_ context.Context, actor *player.Actor, req player.Request, args string) error {
	target, err := parseTarget(actor, args)
	if err != nil {
		return err
	}
	return actor.Remove(req, target)
}

func (h *Handler) removeRange(_ context.Context, actor *player.Actor, req player.Request, args string) error {
	fields := strings.Fields(args)
	if len(fields) != 2 {
		return boterrors.NewUserError(boterrors.ErrOutOfRange, "❌ Give me two positions, like `%%removerange 3 7`")
	}
	pos1, err1 := strconv.Atoi(fields[0])
	pos2, err2 := strconv.Atoi(fields[1])
	if err1 != nil || err2 != nil {
		return boterrors.NewUserError(boterrors.ErrOutOfRange, "❌ Positions must be numbers")
	}
	return actor.RemoveRange(req, pos1, pos2)
}

func (h *Handler) shuffle(_ context.Context, actor *player.Actor, req player.Request, _ string) error {
	return actor.Shuffle(req)
}

func (h *Handler) loop(_ context.Context, actor *player.Actor, req player.Request, args string) error {
	return actor.Loop(req, args)
}

func (h *Handler) loopQueue(_ context.Context, actor *player.Actor, req player.Request, args string) error {
	return actor.LoopQueue(req, args)
}

func (h *Handler) shuffleLoop(_ context.Context, actor *player.Actor, req player.Request, args string) error {
	return actor.ShuffleLoop(req, args)
}

func (h *Handler) nameQueue(_ context.Context, actor *player.Actor, req player.Request, args string) error {
	return actor.NameQueue(req, args)
}

func (h *Handler) saveQueue(ctx context.Context, actor *player.Actor, req player.Request, args string) error {
	return actor.SaveQueue(ctx, req, args)
}

func (h *Handler) loadQueue(ctx context.Context, actor *player.Actor, req player.Request, args string) error {
	if args == "" {
		return boterrors.NewUserError(boterrors.ErrPlaylistNotFound, "❌ Give me the name of a saved playlist")
	}
	return actor.LoadQueue(ctx, req, args)
}

func (h *Handler) addQueue(ctx context.Context, actor *player.Actor, req player.Request, args string) error {
	if args == "" {
		return boterrors.NewUserError(boterrors.ErrPlaylistNotFound, "❌ Give me the name of a saved playlist")
	}
	return actor.AddQueue(ctx, req, args)
}

func (h *Handler) showQueues(ctx context.Context, actor *player.Actor, req player.Request, _ string) error {
	return actor.ShowQueues(ctx, req)
}
