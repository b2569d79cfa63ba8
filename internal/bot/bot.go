// Package bot wires the discord session to the playback machinery.
package bot

import (
	"context"
	"fmt"
	"os"

	"github.com/bwmarrin/discordgo"

	"github.com/vuongmanhnghia/tacobot/internal/commands"
	"github.com/vuongmanhnghia/tacobot/internal/config"
	"github.com/vuongmanhnghia/tacobot/internal/database"
	"github.com/vuongmanhnghia/tacobot/internal/player"
	"github.com/vuongmanhnghia/tacobot/internal/playlist"
	"github.com/vuongmanhnghia/tacobot/internal/resolver"
	"github.com/vuongmanhnghia/tacobot/internal/storage"
	"github.com/vuongmanhnghia/tacobot/pkg/logger"
)

// Bot owns the session and all long-lived collaborators.
type Bot struct {
	cfg      *config.Config
	session  *discordgo.Session
	registry *player.Registry
	db       *database.DB
	logger   *logger.Logger
}

// New builds the bot: session, resolver, playlist store (S3 by default,
// Postgres when USE_DATABASE is set) and the command dispatcher.
func New(ctx context.Context, cfg *config.Config, log *logger.Logger) (*Bot, error) {
	session, err := discordgo.New("Bot " + cfg.BotToken)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}
	session.Identify.Intents = discordgo.IntentsGuilds |
		discordgo.IntentsGuildMessages |
		discordgo.IntentsGuildMessageReactions |
		discordgo.IntentsGuildVoiceStates |
		discordgo.IntentMessageContent

	b := &Bot{cfg: cfg, session: session, logger: log}

	var store playlist.Store
	if cfg.UseDatabase {
		db, err := database.Connect(ctx, database.DefaultConfig(cfg.DatabaseURL), log)
		if err != nil {
			return nil, err
		}
		if err := db.RunMigrations(ctx); err != nil {
			db.Close()
			return nil, err
		}
		b.db = db
		store = playlist.NewDBStore(db, log)
	} else {
		if err := os.MkdirAll(cfg.TempDir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create temp dir: %w", err)
		}
		s3Client, err := storage.NewS3Client(ctx, cfg.AWSAccessKey, cfg.AWSSecretKey, cfg.AWSRegion, log)
		if err != nil {
			return nil, err
		}
		store = playlist.NewS3Store(s3Client, cfg.S3Bucket, cfg.TempDir, log)
	}

	chat := NewChatAdapter(session, log)
	b.registry = player.NewRegistry(chat, resolver.New(log), store, log)

	handler := commands.NewHandler(cfg.CommandPrefix, session, b.registry, log)
	session.AddHandler(handler.OnMessageCreate)
	session.AddHandler(b.onReady)

	return b, nil
}

func (b *Bot) onReady(s *discordgo.Session, r *discordgo.Ready) {
	b.logger.WithField("user", r.User.Username).Info("Bot is ready")
	s.UpdateListeningStatus(b.cfg.CommandPrefix + "play")
}

// Start opens the gateway connection.
func (b *Bot) Start() error {
	if err := b.session.Open(); err != nil {
		return fmt.Errorf("failed to open gateway connection: %w", err)
	}
	b.logger.WithField("token", b.cfg.SafeToken()).Info("Gateway connection open")
	return nil
}

// Stop disconnects all voice connections and closes the session.
func (b *Bot) Stop() {
	b.registry.Shutdown()
	if err := b.session.Close(); err != nil {
		b.logger.WithError(err).Warn("Error closing session")
	}
	if b.db != nil {
		b.db.Close()
	}
	b.logger.Info("Bot stopped")
}
