// Package resolver turns search queries and stable video IDs into playable
// tracks via yt-dlp, and provides a cheap oEmbed-based preview path that
// skips extraction entirely.
package resolver

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/lrstanley/go-ytdlp"

	"github.com/vuongmanhnghia/tacobot/internal/domain/entities"
	boterrors "github.com/vuongmanhnghia/tacobot/internal/errors"
	"github.com/vuongmanhnghia/tacobot/internal/utils"
	"github.com/vuongmanhnghia/tacobot/pkg/logger"
)

const (
	oembedEndpoint = "https://www.youtube.com/oembed"
	watchURLFormat = "https://www.youtube.com/watch?v=%s"

	// previewCacheSize bounds the oEmbed cache; previews are tiny and title
	// changes are rare, so a long TTL is fine.
	previewCacheSize = 1000
	previewCacheTTL  = 24 * time.Hour
)

// printTemplate extracts everything a Track needs in one yt-dlp invocation.
const printTemplate = "%(id)s\t%(title)s\t%(duration)s\t%(webpage_url)s\t%(url)s"

// Service resolves tracks through yt-dlp and previews through oEmbed.
type Service struct {
	previews *utils.Cache
	http     *http.Client
	logger   *logger.Logger
}

// New creates a resolver service. yt-dlp must be available in PATH.
func New(log *logger.Logger) *Service {
	return &Service{
		previews: utils.NewCache(previewCacheSize, previewCacheTTL),
		http:     &http.Client{Timeout: 10 * time.Second},
		logger:   log,
	}
}

// ResolveQuery searches for the query and returns the top result as a fully
// playable track.
func (s *Service) ResolveQuery(ctx context.Context, query string) (*entities.Track, error) {
	return s.extract(ctx, "ytsearch1:"+query)
}

// ResolveID re-extracts a track from its stable video ID. Used for reloading
// expired stream locators and for bulk playlist loads.
func (s *Service) ResolveID(ctx context.Context, id string) (*entities.Track, error) {
	return s.extract(ctx, fmt.Sprintf(watchURLFormat, id))
}

func (s *Service) extract(ctx context.Context, target string) (*entities.Track, error) {
	res, err := ytdlp.New().
		Print(printTemplate).
		Format("bestaudio[ext=webm]/bestaudio").
		NoCheckFormats().
		NoWarnings().
		IgnoreConfig().
		Run(ctx, "--skip-download", target)
	if err != nil {
		s.logger.WithError(err).WithField("target", target).Warn("yt-dlp extraction failed")
		return nil, fmt.Errorf("%w: %v", boterrors.ErrResolveFailed, err)
	}

	for _, line := range strings.Split(strings.TrimSpace(res.Stdout), "\n") {
		parts := strings.Split(line, "\t")
		if len(parts) < 5 {
			continue
		}
		duration, _ := strconv.ParseFloat(parts[2], 64)
		track := entities.NewTrack(parts[0], parts[1], int(duration), parts[3], parts[4])

		s.logger.WithFields(map[string]interface{}{
			"id": track.ID, "title": track.Title, "duration": track.Duration,
		}).Info("Resolved track")
		return track, nil
	}

	return nil, boterrors.ErrResolveFailed
}

// Preview returns the chat-markdown rendering of the track with the given ID
// without hitting yt-dlp. Returns "" and false when the lookup fails; callers
// degrade to a fallback string rather than aborting.
func (s *Service) Preview(ctx context.Context, id string) (string, bool) {
	if cached, ok := s.previews.Get(id); ok {
		return cached.(string), true
	}

	watchURL := fmt.Sprintf(watchURLFormat, id)
	params := url.Values{"format": {"json"}, "url": {watchURL}}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, oembedEndpoint+"?"+params.Encode(), nil)
	if err != nil {
		return "", false
	}
	resp, err := s.http.Do(req)
	if err != nil {
		s.logger.WithError(err).WithField("id", id).Debug("oEmbed request failed")
		return "", false
	}
	defer resp.Body.Close()

	// 400 means a malformed ID, 404 a deleted video.
	if resp.StatusCode != http.StatusOK {
		return "", false
	}

	var payload struct {
		Title string `json:"title"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", false
	}

	preview := fmt.Sprintf("[%s](%s)", payload.Title, watchURL)
	s.previews.Set(id, preview)
	return preview, true
}
