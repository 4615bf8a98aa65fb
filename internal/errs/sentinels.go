// Package errs contains sentinel errors used across layers for stable error mapping.
package errs

import "errors"

// Common sentinels across client/repo/service layers.
var (
	// ErrNotFound indicates the requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrProtocol indicates a handshake transport or decode failure during
	// playback discovery. Not retried automatically.
	ErrProtocol = errors.New("ynison protocol error")

	// ErrNoActivePlayback indicates a valid discovery response with an empty
	// or invalid queue: nothing is playing right now.
	ErrNoActivePlayback = errors.New("no active playback")

	// ErrAssetUnavailable indicates track metadata resolved but no
	// downloadable encoding exists for the requested codec/bitrate.
	ErrAssetUnavailable = errors.New("asset unavailable")

	// ErrUploadFailed indicates the delivery API rejected the push or the
	// push failed in transit. The cache is left untouched.
	ErrUploadFailed = errors.New("upload failed")

	// ErrNoUsableTracks indicates a non-empty search batch where every track
	// failed to resolve or upload. Distinct from "no matches".
	ErrNoUsableTracks = errors.New("no usable tracks")
)
