package player

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/vuongmanhnghia/tacobot/internal/playlist"
)

const (
	// loadPace spaces out resolve calls so a big playlist does not hammer
	// the resolver.
	loadPace         = 500 * time.Millisecond
	progressBarWidth = 30
	cancelEmoji      = "❌"
)

// loadTask is one in-flight bulk load. At most one exists per actor;
// starting another cancels this one first.
type loadTask struct {
	id          uuid.UUID
	cancel      context.CancelFunc
	cancelledBy string // who or what cancelled, "" while running
	done        chan struct{}
}

// loadInFlight reports whether a bulk load is currently running.
func (a *Actor) loadInFlight() bool {
	a.loadMu.Lock()
	defer a.loadMu.Unlock()
	return a.loadTask != nil
}

// cancelLoad cancels any in-flight bulk load on behalf of by and waits for
// it to wind down. Partial loads stay in the queue.
func (a *Actor) cancelLoad(by string) {
	a.loadMu.Lock()
	task := a.loadTask
	if task != nil && task.cancelledBy == "" {
		task.cancelledBy = by
	}
	a.loadMu.Unlock()

	if task != nil {
		task.cancel()
		<-task.done
	}
}

// startBulkLoad kicks off loading rec's IDs into the queue, superseding any
// load already in flight.
func (a *Actor) startBulkLoad(req Request, rec playlist.Record) {
	a.cancelLoad(req.AuthorMention)

	ctx, cancel := context.WithCancel(context.Background())
	task := &loadTask{
		id:     uuid.New(),
		cancel: cancel,
		done:   make(chan struct{}),
	}

	a.loadMu.Lock()
	a.loadTask = task
	a.loadMu.Unlock()

	go a.runBulkLoad(ctx, req, rec, task)
}

func (a *Actor) runBulkLoad(ctx context.Context, req Request, rec playlist.Record, task *loadTask) {
	defer func() {
		task.cancel() // releases the cancel-watch goroutine
		a.loadMu.Lock()
		if a.loadTask == task {
			a.loadTask = nil
		}
		a.loadMu.Unlock()
		close(task.done)
	}()

	total := len(rec.IDs)
	messageID, err := a.chat.SendMessage(req.ChannelID, loadProgressLine(rec.Name, 0, total))
	if err != nil {
		a.logger.WithError(err).WithField("guild", a.guildID).Error("Could not post load progress message")
		return
	}
	a.chat.AddReaction(req.ChannelID, messageID, cancelEmoji)

	// Race the cancel affordance against the load itself.
	go func() {
		_, userID, rerr := a.chat.AwaitReaction(ctx, req.ChannelID, messageID, []string{cancelEmoji})
		if rerr != nil {
			return
		}
		a.loadMu.Lock()
		if task.cancelledBy == "" {
			task.cancelledBy = "<@" + userID + ">"
		}
		a.loadMu.Unlock()
		task.cancel()
	}()

	limiter := rate.NewLimiter(rate.Every(a.pace), 1)
	loaded := 0
	for _, id := range rec.IDs {
		if err := limiter.Wait(ctx); err != nil {
			break
		}
		track, rerr := a.resolver.ResolveID(ctx, id)
		if rerr != nil {
			a.logger.WithError(rerr).WithFields(map[string]interface{}{
				"guild": a.guildID, "id": id, "task": task.id,
			}).Warn("Skipping unresolvable track during bulk load")
			continue
		}
		track.Requester = req.AuthorMention

		a.mu.Lock()
		a.queue.Add(track)
		a.mu.Unlock()
		loaded++

		// The limiter already spaces these out below the edit rate limit.
		a.chat.EditMessage(req.ChannelID, messageID, loadProgressLine(rec.Name, loaded, total))
	}

	a.loadMu.Lock()
	cancelledBy := task.cancelledBy
	a.loadMu.Unlock()

	a.chat.RemoveOwnReaction(req.ChannelID, messageID, cancelEmoji)
	if cancelledBy != "" {
		a.chat.EditMessage(req.ChannelID, messageID,
			fmt.Sprintf("🚫 Loading **%s** cancelled by %s, %d/%d track(s) kept.", rec.Name, cancelledBy, loaded, total))
	} else {
		a.chat.EditMessage(req.ChannelID, messageID,
			fmt.Sprintf("✅ Loaded **%s**, %d/%d track(s).", rec.Name, loaded, total))
	}

	a.logger.WithFields(map[string]interface{}{
		"guild": a.guildID, "playlist": rec.Name, "loaded": loaded, "total": total, "task": task.id,
	}).Info("Bulk load finished")
}

func loadProgressLine(name string, done, total int) string {
	return fmt.Sprintf("📥 Loading **%s** %s %d/%d", name, progressBar(done, total), done, total)
}

func progressBar(done, total int) string {
	if total <= 0 {
		return "`" + strings.Repeat("█", progressBarWidth) + "`"
	}
	filled := done * progressBarWidth / total
	return "`" + strings.Repeat("█", filled) + strings.Repeat("░", progressBarWidth-filled) + "`"
}
