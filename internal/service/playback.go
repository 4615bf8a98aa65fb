package service

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/dbrvsk/yamusic-bot/internal/errs"
	"github.com/dbrvsk/yamusic-bot/internal/model"
)

// Discovery reports what a user's active session is playing right now.
type Discovery interface {
	CurrentPlayback(ctx context.Context, token string) (model.PlaybackState, error)
}

// Catalog resolves track metadata and text search.
type Catalog interface {
	Track(ctx context.Context, token, id string) (model.Track, error)
	Search(ctx context.Context, token, query string, limit int) ([]model.Track, error)
}

// DefaultSearchLimit caps a search fan-out when the caller does not.
const DefaultSearchLimit = 3

// PlaybackService ties discovery, the catalog and the upload pipeline into
// the two caller-facing operations: "what is playing" and text search.
type PlaybackService struct {
	log       *zap.Logger
	discovery Discovery
	catalog   Catalog
	uploader  Uploader
}

// NewPlaybackService constructs the service with its collaborators.
func NewPlaybackService(log *zap.Logger, discovery Discovery, catalog Catalog, uploader Uploader) *PlaybackService {
	return &PlaybackService{log: log, discovery: discovery, catalog: catalog, uploader: uploader}
}

// NowPlaying discovers the user's current track and returns it with a hosted
// file reference. ErrNoActivePlayback and ErrProtocol pass through for the
// caller to present distinctly.
func (s *PlaybackService) NowPlaying(ctx context.Context, token string) (model.CachedTrack, error) {
	if token == "" {
		return model.CachedTrack{}, errors.New("validation: empty token")
	}

	state, err := s.discovery.CurrentPlayback(ctx, token)
	if err != nil {
		return model.CachedTrack{}, err
	}
	s.log.Debug("playback discovered",
		zap.String("track_id", state.TrackID),
		zap.Bool("paused", state.Paused),
		zap.Uint64("progress_ms", state.ProgressMs),
	)

	track, err := s.catalog.Track(ctx, token, state.TrackID)
	if err != nil {
		return model.CachedTrack{}, fmt.Errorf("resolve track %s: %w", state.TrackID, err)
	}

	fileID, err := s.uploader.EnsureCached(ctx, token, track)
	if err != nil {
		return model.CachedTrack{}, err
	}
	return model.CachedTrack{Track: track, FileID: fileID}, nil
}

// Search resolves up to limit tracks for a query and ensures each is cached,
// fanning uploads out concurrently. Per-track failures are isolated: failed
// tracks are omitted. An empty result with nil error means no matches; a
// batch where every track failed is ErrNoUsableTracks.
func (s *PlaybackService) Search(ctx context.Context, token, query string, limit int) ([]model.CachedTrack, error) {
	if token == "" {
		return nil, errors.New("validation: empty token")
	}
	if query == "" {
		return nil, errors.New("validation: empty query")
	}
	if limit <= 0 {
		limit = DefaultSearchLimit
	}

	tracks, err := s.catalog.Search(ctx, token, query, limit)
	if err != nil {
		return nil, fmt.Errorf("search %q: %w", query, err)
	}
	if len(tracks) == 0 {
		return []model.CachedTrack{}, nil
	}

	var (
		mu      sync.Mutex
		wg      sync.WaitGroup
		results = make([]model.CachedTrack, 0, len(tracks))
	)
	for _, track := range tracks {
		wg.Add(1)
		go func(track model.Track) {
			defer wg.Done()
			fileID, err := s.uploader.EnsureCached(ctx, token, track)
			if err != nil {
				s.log.Warn("track skipped",
					zap.String("track_id", track.ID),
					zap.Error(err),
				)
				return
			}
			mu.Lock()
			results = append(results, model.CachedTrack{Track: track, FileID: fileID})
			mu.Unlock()
		}(track)
	}
	wg.Wait()

	if len(results) == 0 {
		return nil, errs.ErrNoUsableTracks
	}
	return results, nil
}
