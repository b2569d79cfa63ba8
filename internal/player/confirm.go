package player

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"

	boterrors "github.com/vuongmanhnghia/tacobot/internal/errors"
)

// Outcome is the result of a confirmation exchange.
type Outcome int

const (
	Confirmed Outcome = iota
	Declined
	TimedOut
)

const confirmTimeout = 10 * time.Second

type confirmKey struct {
	principal string
	op        string
}

// askConfirmation runs the yes/no exchange against the requesting user in
// the requesting channel. A second concurrent request by the same principal
// for the same op is rejected outright with a 🚫 react instead of queued.
// Must be called without mu held; this is a deliberate suspension point.
func (a *Actor) askConfirmation(ctx context.Context, req Request, op, prompt string, timeout time.Duration) (Outcome, error) {
	return a.confirm(ctx, req, op, prompt, nil, timeout)
}

// askConfirmationEmbed is askConfirmation with an attached preview embed.
func (a *Actor) askConfirmationEmbed(ctx context.Context, req Request, op, prompt string, embed *discordgo.MessageEmbed, timeout time.Duration) (Outcome, error) {
	return a.confirm(ctx, req, op, prompt, embed, timeout)
}

func (a *Actor) confirm(ctx context.Context, req Request, op, prompt string, embed *discordgo.MessageEmbed, timeout time.Duration) (Outcome, error) {
	key := confirmKey{principal: req.AuthorID, op: op}

	a.confirmMu.Lock()
	if _, dup := a.pending[key]; dup {
		a.confirmMu.Unlock()
		a.chat.AddReaction(req.ChannelID, req.MessageID, "🚫")
		return TimedOut, boterrors.ErrAlreadyAsked
	}
	a.pending[key] = struct{}{}
	a.confirmMu.Unlock()
	defer func() {
		a.confirmMu.Lock()
		delete(a.pending, key)
		a.confirmMu.Unlock()
	}()

	if embed != nil {
		a.chat.SendEmbed(req.ChannelID, embed)
	}
	if _, err := a.chat.SendMessage(req.ChannelID, prompt+" `(y/n)`"); err != nil {
		return TimedOut, err
	}

	waitCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	for {
		content, err := a.chat.AwaitMessage(waitCtx, req.ChannelID, req.AuthorID)
		if err != nil {
			return TimedOut, nil
		}
		switch strings.ToLower(strings.TrimSpace(content)) {
		case "y", "yes":
			return Confirmed, nil
		case "n", "no":
			return Declined, nil
		}
		// Unrelated chatter from the same user; keep waiting.
	}
}
