package repository

import "context"

// FileCacheRepository is the permanent dedup ledger mapping a track id to a
// previously uploaded file reference. Not an LRU: entries live indefinitely.
type FileCacheRepository interface {
	// Get returns the cached file reference or errs.ErrNotFound.
	Get(ctx context.Context, trackID string) (string, error)
	// Put upserts the reference for a track. Idempotent; last write wins.
	Put(ctx context.Context, trackID, fileID string) error
}
