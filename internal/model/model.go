// Package model defines domain entities used by services and repositories.
package model

import "time"

// User is a registered bot user holding an opaque Yandex OAuth token.
// The token is stored verbatim and never validated or refreshed here.
type User struct {
	UserID    int64  // Telegram user id, PK
	Token     string // opaque bearer credential
	CreatedAt time.Time
}

// PlaybackState is a point-in-time snapshot of what a user's active session
// is playing. It is reconstructed fresh per query and stale immediately after.
type PlaybackState struct {
	Paused     bool
	DurationMs uint64
	ProgressMs uint64
	EntityID   string // playlist/album/etc the queue is built from
	EntityType string
	TrackID    string
}

// Track holds the metadata of a single Yandex Music track.
type Track struct {
	ID         string
	Title      string
	Artists    []string // ordered as returned by the backend
	DurationMs int64
	CoverURI   string // size-templated URI, empty if the track has no cover
	Available  bool
}

// ArtistLine joins artist names for display and upload metadata.
func (t Track) ArtistLine() string {
	line := ""
	for i, a := range t.Artists {
		if i > 0 {
			line += ", "
		}
		line += a
	}
	return line
}

// CacheEntry maps a track to a previously uploaded Telegram audio file.
// At most one entry exists per track id; writes are idempotent upserts.
type CacheEntry struct {
	TrackID   string // PK
	FileID    string // opaque Telegram file reference
	CreatedAt time.Time
}

// CachedTrack pairs a track with its hosted file reference, ready to be
// replayed with zero download.
type CachedTrack struct {
	Track  Track
	FileID string
}
