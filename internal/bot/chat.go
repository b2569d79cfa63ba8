package bot

import (
	"context"
	"strings"

	"github.com/bwmarrin/discordgo"

	"github.com/vuongmanhnghia/tacobot/pkg/logger"
)

// ChatAdapter implements the player.Chat surface over a discordgo session.
// Await methods install a temporary gateway handler and remove it on return.
type ChatAdapter struct {
	session *discordgo.Session
	logger  *logger.Logger
}

// NewChatAdapter wraps a session.
func NewChatAdapter(session *discordgo.Session, log *logger.Logger) *ChatAdapter {
	return &ChatAdapter{session: session, logger: log}
}

func (c *ChatAdapter) SendMessage(channelID, content string) (string, error) {
	msg, err := c.session.ChannelMessageSend(channelID, content)
	if err != nil {
		return "", err
	}
	return msg.ID, nil
}

func (c *ChatAdapter) SendEmbed(channelID string, embed *discordgo.MessageEmbed) (string, error) {
	msg, err := c.session.ChannelMessageSendEmbed(channelID, embed)
	if err != nil {
		return "", err
	}
	return msg.ID, nil
}

func (c *ChatAdapter) EditMessage(channelID, messageID, content string) error {
	_, err := c.session.ChannelMessageEdit(channelID, messageID, content)
	return err
}

func (c *ChatAdapter) EditEmbed(channelID, messageID string, embed *discordgo.MessageEmbed) error {
	_, err := c.session.ChannelMessageEditEmbed(channelID, messageID, embed)
	return err
}

func (c *ChatAdapter) DeleteMessage(channelID, messageID string) {
	if err := c.session.ChannelMessageDelete(channelID, messageID); err != nil {
		c.logger.WithError(err).Debug("Could not delete message")
	}
}

func (c *ChatAdapter) AddReaction(channelID, messageID, emoji string) {
	if err := c.session.MessageReactionAdd(channelID, messageID, emoji); err != nil {
		c.logger.WithError(err).Debug("Could not add reaction")
	}
}

func (c *ChatAdapter) RemoveReaction(channelID, messageID, emoji, userID string) {
	if err := c.session.MessageReactionRemove(channelID, messageID, emoji, userID); err != nil {
		c.logger.WithError(err).Debug("Could not remove reaction")
	}
}

func (c *ChatAdapter) RemoveOwnReaction(channelID, messageID, emoji string) {
	c.RemoveReaction(channelID, messageID, emoji, "@me")
}

// AwaitMessage blocks until userID posts in channelID or ctx expires.
func (c *ChatAdapter) AwaitMessage(ctx context.Context, channelID, userID string) (string, error) {
	matched := make(chan string, 1)
	remove := c.session.AddHandler(func(_ *discordgo.Session, m *discordgo.MessageCreate) {
		if m.ChannelID != channelID || m.Author == nil || m.Author.ID != userID {
			return
		}
		select {
		case matched <- m.Content:
		default:
		}
	})
	defer remove()

	select {
	case content := <-matched:
		return content, nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// AwaitReaction blocks until a non-bot user reacts on messageID with one of
// emojis, or ctx expires.
func (c *ChatAdapter) AwaitReaction(ctx context.Context, channelID, messageID string, emojis []string) (string, string, error) {
	type hit struct{ emoji, userID string }
	matched := make(chan hit, 1)

	remove := c.session.AddHandler(func(s *discordgo.Session, r *discordgo.MessageReactionAdd) {
		if r.ChannelID != channelID || r.MessageID != messageID {
			return
		}
		if s.State.User != nil && r.UserID == s.State.User.ID {
			return
		}
		for _, want := range emojis {
			if emojiEqual(r.Emoji.Name, want) {
				select {
				case matched <- hit{emoji: want, userID: r.UserID}:
				default:
				}
				return
			}
		}
	})
	defer remove()

	select {
	case h := <-matched:
		return h.emoji, h.userID, nil
	case <-ctx.Done():
		return "", "", ctx.Err()
	}
}

// emojiEqual compares unicode emoji ignoring the variation selector, which
// clients include inconsistently.
func emojiEqual(a, b string) bool {
	const variationSelector = "️"
	return strings.TrimSuffix(a, variationSelector) == strings.TrimSuffix(b, variationSelector)
}
