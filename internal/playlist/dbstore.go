package playlist

import (
	"context"

	"github.com/vuongmanhnghia/tacobot/internal/database"
	"github.com/vuongmanhnghia/tacobot/pkg/logger"
)

// DBStore keeps playlists in Postgres instead of the text file. Record
// semantics are identical to the S3 store; the text format stays the
// interchange format for exports.
type DBStore struct {
	db     *database.DB
	logger *logger.Logger
}

// NewDBStore creates a store over an established connection pool.
func NewDBStore(db *database.DB, log *logger.Logger) *DBStore {
	return &DBStore{db: db, logger: log}
}

// Exists reports whether the user has any saved playlists.
func (s *DBStore) Exists(ctx context.Context, userID string) bool {
	var exists bool
	err := s.db.Pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM playlists WHERE user_id = $1)`, userID).Scan(&exists)
	if err != nil {
		s.logger.WithError(err).Error("Playlist existence check failed")
		return false
	}
	return exists
}

// Load fetches the user's records in saved order.
func (s *DBStore) Load(ctx context.Context, userID string) ([]Record, bool) {
	rows, err := s.db.Pool.Query(ctx,
		`SELECT name, track_ids FROM playlists WHERE user_id = $1 ORDER BY position, id`, userID)
	if err != nil {
		s.logger.WithError(err).Error("Playlist load query failed")
		return nil, false
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var rec Record
		if err := rows.Scan(&rec.Name, &rec.IDs); err != nil {
			s.logger.WithError(err).Error("Playlist row scan failed")
			return nil, false
		}
		records = append(records, rec)
	}
	if rows.Err() != nil {
		s.logger.WithError(rows.Err()).Error("Playlist load failed")
		return nil, false
	}
	if len(records) == 0 {
		return nil, false
	}
	return records, true
}

// Save replaces the user's records wholesale, mirroring the whole-file
// rewrite of the text store.
func (s *DBStore) Save(ctx context.Context, userID string, records []Record) bool {
	tx, err := s.db.Pool.Begin(ctx)
	if err != nil {
		s.logger.WithError(err).Error("Playlist save begin failed")
		return false
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM playlists WHERE user_id = $1`, userID); err != nil {
		s.logger.WithError(err).Error("Playlist save delete failed")
		return false
	}
	for i, rec := range records {
		_, err := tx.Exec(ctx,
			`INSERT INTO playlists (user_id, name, track_ids, position) VALUES ($1, $2, $3, $4)`,
			userID, rec.Name, rec.IDs, i)
		if err != nil {
			s.logger.WithError(err).WithField("playlist", rec.Name).Error("Playlist save insert failed")
			return false
		}
	}
	if err := tx.Commit(ctx); err != nil {
		s.logger.WithError(err).Error("Playlist save commit failed")
		return false
	}
	return true
}
