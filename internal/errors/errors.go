package errors

import (
	"errors"
	"fmt"
)

// Sentinel errors shared across the player, queue and playlist packages.
var (
	// Queue / position errors
	ErrOutOfRange = errors.New("queue position out of range")
	ErrQueueEmpty = errors.New("queue is empty")

	// Lookup errors
	ErrTrackNotFound    = errors.New("no track matched the search")
	ErrPlaylistNotFound = errors.New("playlist not found")
	ErrNoSavedPlaylists = errors.New("no saved playlists")

	// Task errors
	ErrCancelled     = errors.New("task was cancelled")
	ErrAlreadyAsked  = errors.New("a confirmation for this operation is already pending")
	ErrResolveFailed = errors.New("resolver returned no result")

	// Voice errors
	ErrNotConnected   = errors.New("not connected to a voice channel")
	ErrNotInVoice     = errors.New("caller is not in a voice channel")
	ErrNothingPlaying = errors.New("nothing is currently playing")
)

// UserError carries a message meant to be shown in chat alongside the
// underlying error.
type UserError struct {
	Err     error
	Message string
}

func (e *UserError) Error() string { return e.Err.Error() }

func (e *UserError) Unwrap() error { return e.Err }

// NewUserError wraps err with a user-facing message.
func NewUserError(err error, format string, args ...interface{}) *UserError {
	return &UserError{Err: err, Message: fmt.Sprintf(format, args...)}
}

// GetUserMessage extracts a chat-friendly message from an error.
func GetUserMessage(err error) string {
	var userErr *UserError
	if errors.As(err, &userErr) {
		return userErr.Message
	}

	switch {
	case errors.Is(err, ErrOutOfRange):
		return "❌ That track position is out of range"
	case errors.Is(err, ErrQueueEmpty):
		return "📜 The queue is empty. Use `%play` to add songs"
	case errors.Is(err, ErrTrackNotFound):
		return "🔍 Could not find a track matching that title"
	case errors.Is(err, ErrPlaylistNotFound):
		return "💾 You don't have a playlist with that name"
	case errors.Is(err, ErrNoSavedPlaylists):
		return "💾 You don't have any saved playlists!"
	case errors.Is(err, ErrNotConnected):
		return "🔊 I'm not connected to any voice channel! Use `%play` or `%join` to summon me"
	case errors.Is(err, ErrNotInVoice):
		return "🔊 You have to be connected to a voice channel before you can use this command!"
	case errors.Is(err, ErrNothingPlaying):
		return "❌ Nothing is playing right now"
	case errors.Is(err, ErrResolveFailed):
		return "⚠ I could not download a result for that query"
	default:
		return "❌ An error occurred. Please try again later"
	}
}
