package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/dbrvsk/yamusic-bot/internal/errs"
)

// FileCacheRepo implements FileCacheRepository using PostgreSQL.
// file_id_cache keys on track_id, so at most one row exists per track.
type FileCacheRepo struct{ db *DB }

// NewFileCacheRepo constructs a file cache repository.
func NewFileCacheRepo(db *DB) *FileCacheRepo { return &FileCacheRepo{db: db} }

// Get returns the cached file reference for a track.
func (r *FileCacheRepo) Get(ctx context.Context, trackID string) (string, error) {
	const q = `SELECT file_id FROM file_id_cache WHERE track_id=$1`
	var fileID string
	if err := r.db.Pool.QueryRow(ctx, q, trackID).Scan(&fileID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", errs.ErrNotFound
		}
		return "", err
	}
	return fileID, nil
}

// Put upserts the file reference for a track. Repeated puts for the same
// track keep exactly one row with the latest reference.
func (r *FileCacheRepo) Put(ctx context.Context, trackID, fileID string) error {
	const q = `
INSERT INTO file_id_cache (track_id, file_id)
VALUES ($1, $2)
ON CONFLICT (track_id) DO UPDATE SET file_id = EXCLUDED.file_id`
	_, err := r.db.Pool.Exec(ctx, q, trackID, fileID)
	return err
}
