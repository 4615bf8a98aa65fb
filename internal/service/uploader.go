// Package service contains application services for playback discovery and
// the upload/cache pipeline.
package service

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/dbrvsk/yamusic-bot/internal/errs"
	"github.com/dbrvsk/yamusic-bot/internal/model"
	"github.com/dbrvsk/yamusic-bot/internal/repository"
	"github.com/dbrvsk/yamusic-bot/internal/telegram"
)

// AssetSource resolves and fetches downloadable track assets.
type AssetSource interface {
	// DirectLink resolves a time-limited direct download URL.
	DirectLink(ctx context.Context, token, trackID string) (string, error)
	// CoverURL returns the thumbnail-sized cover URL, empty if none.
	CoverURL(t model.Track) string
	// Download fetches raw bytes from a resolved URL.
	Download(ctx context.Context, url string) ([]byte, error)
}

// Delivery pushes audio into the durable hosting channel.
type Delivery interface {
	SendAudio(ctx context.Context, a telegram.Audio) (string, error)
}

// Uploader guarantees a track has a hosted file reference, uploading at most
// once per track in the common case.
type Uploader interface {
	// EnsureCached returns the hosted file reference for a track, uploading
	// it first if the cache has no entry.
	EnsureCached(ctx context.Context, token string, track model.Track) (string, error)
}

type UploaderImpl struct {
	log      *zap.Logger
	cache    repository.FileCacheRepository
	assets   AssetSource
	delivery Delivery
	flight   singleflight.Group
}

// NewUploader constructs the upload orchestrator.
func NewUploader(log *zap.Logger, cache repository.FileCacheRepository, assets AssetSource, delivery Delivery) *UploaderImpl {
	return &UploaderImpl{log: log, cache: cache, assets: assets, delivery: delivery}
}

// EnsureCached short-circuits on a cache hit with zero network I/O. On a
// miss, concurrent callers for the same track id share one in-flight upload.
func (u *UploaderImpl) EnsureCached(ctx context.Context, token string, track model.Track) (string, error) {
	if track.ID == "" {
		return "", errors.New("validation: empty track id")
	}

	fileID, err := u.cache.Get(ctx, track.ID)
	if err == nil {
		return fileID, nil
	}
	if !errors.Is(err, errs.ErrNotFound) {
		return "", fmt.Errorf("cache lookup %s: %w", track.ID, err)
	}

	v, err, _ := u.flight.Do(track.ID, func() (any, error) {
		return u.upload(ctx, token, track)
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

// upload fetches audio and cover concurrently, pushes through the delivery
// API and records the reference. Cover failures degrade to "no thumbnail";
// everything else leaves the cache untouched.
func (u *UploaderImpl) upload(ctx context.Context, token string, track model.Track) (string, error) {
	link, err := u.assets.DirectLink(ctx, token, track.ID)
	if err != nil {
		return "", err
	}

	var audio, thumb []byte
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		b, err := u.assets.Download(gctx, link)
		if err != nil {
			return fmt.Errorf("%w: audio fetch %s: %v", errs.ErrUploadFailed, track.ID, err)
		}
		audio = b
		return nil
	})
	if coverURL := u.assets.CoverURL(track); coverURL != "" {
		g.Go(func() error {
			b, err := u.assets.Download(gctx, coverURL)
			if err != nil {
				u.log.Warn("cover fetch failed, uploading without thumbnail",
					zap.String("track_id", track.ID),
					zap.Error(err),
				)
				return nil
			}
			thumb = b
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return "", err
	}

	fileID, err := u.delivery.SendAudio(ctx, telegram.Audio{
		FileName:    track.ID + ".mp3",
		Data:        audio,
		Title:       track.Title,
		Performer:   track.ArtistLine(),
		DurationSec: int(track.DurationMs / 1000),
		Thumbnail:   thumb,
	})
	if err != nil {
		return "", err
	}

	if err := u.cache.Put(ctx, track.ID, fileID); err != nil {
		// The upload is already durable; the reference is still usable even
		// if the ledger write is lost, so a later call re-uploads at worst.
		u.log.Error("cache write failed",
			zap.String("track_id", track.ID),
			zap.String("file_id", fileID),
			zap.Error(err),
		)
	}
	return fileID, nil
}
