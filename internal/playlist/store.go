package playlist

import (
	"context"
	"os"
	"path/filepath"

	"github.com/vuongmanhnghia/tacobot/internal/storage"
	"github.com/vuongmanhnghia/tacobot/pkg/logger"
)

// Store persists a user's saved playlists. Implementations follow the
// storage contract: failures come back as false, never as errors, and a
// missing file means "no prior data".
type Store interface {
	// Exists reports whether the user has any saved playlists at all.
	Exists(ctx context.Context, userID string) bool
	// Load fetches all of the user's records. ok is false when the user has
	// no stored data or the fetch failed.
	Load(ctx context.Context, userID string) (records []Record, ok bool)
	// Save replaces the user's stored records wholesale.
	Save(ctx context.Context, userID string, records []Record) bool
}

// S3Store keeps one playlists.txt per user in an S3 bucket, in the text
// format implemented by this package.
type S3Store struct {
	client  *storage.S3Client
	bucket  string
	tempDir string
	logger  *logger.Logger
}

// NewS3Store creates a store backed by the given bucket. tempDir is scratch
// space for file transfers.
func NewS3Store(client *storage.S3Client, bucket, tempDir string, log *logger.Logger) *S3Store {
	return &S3Store{client: client, bucket: bucket, tempDir: tempDir, logger: log}
}

func (s *S3Store) userDir(userID string) string { return "users/" + userID + "/" }

func (s *S3Store) key(userID string) string { return s.userDir(userID) + "playlists.txt" }

func (s *S3Store) tempPath(userID string) string {
	return filepath.Join(s.tempDir, userID+"-playlists.txt")
}

// Exists reports whether the user has a playlists file.
func (s *S3Store) Exists(ctx context.Context, userID string) bool {
	return s.client.Exists(ctx, s.bucket, s.key(userID))
}

// Load downloads and parses the user's playlists file.
func (s *S3Store) Load(ctx context.Context, userID string) ([]Record, bool) {
	local := s.tempPath(userID)
	if !s.client.Download(ctx, s.key(userID), s.bucket, local) {
		return nil, false
	}
	defer os.Remove(local)

	content, err := os.ReadFile(local)
	if err != nil {
		s.logger.WithError(err).Error("Could not read downloaded playlists file")
		return nil, false
	}
	return Parse(string(content)), true
}

// Save serializes the records and uploads them, creating the user folder on
// first save.
func (s *S3Store) Save(ctx context.Context, userID string, records []Record) bool {
	s.client.CreateFolder(ctx, s.bucket, s.userDir(userID))

	local := s.tempPath(userID)
	if err := os.MkdirAll(filepath.Dir(local), 0o755); err != nil {
		s.logger.WithError(err).Error("Could not create temp directory")
		return false
	}
	if err := os.WriteFile(local, []byte(MarshalAll(records)), 0o644); err != nil {
		s.logger.WithError(err).Error("Could not write playlists temp file")
		return false
	}
	defer os.Remove(local)

	return s.client.Upload(ctx, local, s.bucket, s.key(userID))
}
