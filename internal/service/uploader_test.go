package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/dbrvsk/yamusic-bot/internal/errs"
	"github.com/dbrvsk/yamusic-bot/internal/model"
	"github.com/dbrvsk/yamusic-bot/internal/telegram"
)

// eventLog records cross-fake call ordering.
type eventLog struct {
	mu     sync.Mutex
	events []string
}

func (l *eventLog) add(e string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, e)
}

func (l *eventLog) list() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.events...)
}

type fakeCache struct {
	mu      sync.Mutex
	entries map[string]string
	gets    int
	puts    int
	log     *eventLog
}

func newFakeCache() *fakeCache { return &fakeCache{entries: map[string]string{}} }

func (c *fakeCache) Get(_ context.Context, trackID string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gets++
	if id, ok := c.entries[trackID]; ok {
		return id, nil
	}
	return "", errs.ErrNotFound
}

func (c *fakeCache) Put(_ context.Context, trackID, fileID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.puts++
	if c.log != nil {
		c.log.add("put")
	}
	c.entries[trackID] = fileID
	return nil
}

type fakeAssets struct {
	mu        sync.Mutex
	link      string
	linkErr   error
	cover     string
	coverErr  error
	audioErr  error
	downloads int
}

func (a *fakeAssets) DirectLink(context.Context, string, string) (string, error) {
	if a.linkErr != nil {
		return "", a.linkErr
	}
	return a.link, nil
}

func (a *fakeAssets) CoverURL(model.Track) string { return a.cover }

func (a *fakeAssets) Download(_ context.Context, url string) ([]byte, error) {
	a.mu.Lock()
	a.downloads++
	a.mu.Unlock()
	if url == a.cover {
		if a.coverErr != nil {
			return nil, a.coverErr
		}
		return []byte("cover-bytes"), nil
	}
	if a.audioErr != nil {
		return nil, a.audioErr
	}
	return []byte("audio-bytes"), nil
}

type fakeDelivery struct {
	mu     sync.Mutex
	calls  int
	last   telegram.Audio
	err    error
	log    *eventLog
	block  chan struct{} // if set, SendAudio waits on it
	inside chan struct{} // if set, signaled on entry
}

func (d *fakeDelivery) SendAudio(_ context.Context, a telegram.Audio) (string, error) {
	if d.inside != nil {
		d.inside <- struct{}{}
	}
	if d.block != nil {
		<-d.block
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.calls++
	d.last = a
	if d.log != nil {
		d.log.add("push")
	}
	if d.err != nil {
		return "", d.err
	}
	return fmt.Sprintf("file-%d", d.calls), nil
}

var testTrack = model.Track{
	ID:         "trk-42",
	Title:      "Enter Sandman",
	Artists:    []string{"Metallica"},
	DurationMs: 331560,
	CoverURI:   "avatars.example/cover/%%",
}

func TestEnsureCached_Hit(t *testing.T) {
	cache := newFakeCache()
	cache.entries["trk-42"] = "file-cached"
	assets := &fakeAssets{link: "https://dl/a.mp3"}
	delivery := &fakeDelivery{}
	u := NewUploader(zap.NewNop(), cache, assets, delivery)

	fileID, err := u.EnsureCached(context.Background(), "tok", testTrack)
	require.NoError(t, err)
	require.Equal(t, "file-cached", fileID)

	// hit short-circuits: zero downloads, zero pushes
	require.Zero(t, assets.downloads)
	require.Zero(t, delivery.calls)
}

func TestEnsureCached_Miss(t *testing.T) {
	log := &eventLog{}
	cache := newFakeCache()
	cache.log = log
	assets := &fakeAssets{link: "https://dl/a.mp3", cover: "https://cover/200"}
	delivery := &fakeDelivery{log: log}
	u := NewUploader(zap.NewNop(), cache, assets, delivery)

	fileID, err := u.EnsureCached(context.Background(), "tok", testTrack)
	require.NoError(t, err)
	require.Equal(t, "file-1", fileID)

	// exactly one push then one cache write
	require.Equal(t, []string{"push", "put"}, log.list())
	require.Equal(t, "file-1", cache.entries["trk-42"])

	require.Equal(t, []byte("audio-bytes"), delivery.last.Data)
	require.Equal(t, []byte("cover-bytes"), delivery.last.Thumbnail)
	require.Equal(t, "Enter Sandman", delivery.last.Title)
	require.Equal(t, "Metallica", delivery.last.Performer)
	require.Equal(t, 331, delivery.last.DurationSec)
	require.Equal(t, "trk-42.mp3", delivery.last.FileName)
}

func TestEnsureCached_CoverFailureNonFatal(t *testing.T) {
	cache := newFakeCache()
	assets := &fakeAssets{
		link:     "https://dl/a.mp3",
		cover:    "https://cover/200",
		coverErr: errors.New("connection reset"),
	}
	delivery := &fakeDelivery{}
	u := NewUploader(zap.NewNop(), cache, assets, delivery)

	fileID, err := u.EnsureCached(context.Background(), "tok", testTrack)
	require.NoError(t, err)
	require.Equal(t, "file-1", fileID)
	require.Nil(t, delivery.last.Thumbnail)
	require.Equal(t, []byte("audio-bytes"), delivery.last.Data)
}

func TestEnsureCached_NoCover(t *testing.T) {
	cache := newFakeCache()
	assets := &fakeAssets{link: "https://dl/a.mp3"}
	delivery := &fakeDelivery{}
	u := NewUploader(zap.NewNop(), cache, assets, delivery)

	track := testTrack
	track.CoverURI = ""
	_, err := u.EnsureCached(context.Background(), "tok", track)
	require.NoError(t, err)
	require.Equal(t, 1, assets.downloads) // audio only
	require.Nil(t, delivery.last.Thumbnail)
}

func TestEnsureCached_AudioFetchFails(t *testing.T) {
	cache := newFakeCache()
	assets := &fakeAssets{link: "https://dl/a.mp3", audioErr: errors.New("timeout")}
	delivery := &fakeDelivery{}
	u := NewUploader(zap.NewNop(), cache, assets, delivery)

	_, err := u.EnsureCached(context.Background(), "tok", testTrack)
	require.ErrorIs(t, err, errs.ErrUploadFailed)
	require.Zero(t, delivery.calls)
	require.Zero(t, cache.puts)
}

func TestEnsureCached_DeliveryFails_CacheUntouched(t *testing.T) {
	cache := newFakeCache()
	assets := &fakeAssets{link: "https://dl/a.mp3"}
	delivery := &fakeDelivery{err: fmt.Errorf("%w: flood wait", errs.ErrUploadFailed)}
	u := NewUploader(zap.NewNop(), cache, assets, delivery)

	_, err := u.EnsureCached(context.Background(), "tok", testTrack)
	require.ErrorIs(t, err, errs.ErrUploadFailed)
	require.Zero(t, cache.puts)
	require.Empty(t, cache.entries)
}

func TestEnsureCached_AssetUnavailable(t *testing.T) {
	cache := newFakeCache()
	assets := &fakeAssets{linkErr: fmt.Errorf("no mp3/192: %w", errs.ErrAssetUnavailable)}
	u := NewUploader(zap.NewNop(), cache, assets, &fakeDelivery{})

	_, err := u.EnsureCached(context.Background(), "tok", testTrack)
	require.ErrorIs(t, err, errs.ErrAssetUnavailable)
}

func TestEnsureCached_ConcurrentSameTrackSharesUpload(t *testing.T) {
	cache := newFakeCache()
	assets := &fakeAssets{link: "https://dl/a.mp3"}
	delivery := &fakeDelivery{
		block:  make(chan struct{}),
		inside: make(chan struct{}, 2),
	}
	u := NewUploader(zap.NewNop(), cache, assets, delivery)

	results := make(chan string, 2)
	start := func() {
		go func() {
			fileID, err := u.EnsureCached(context.Background(), "tok", testTrack)
			require.NoError(t, err)
			results <- fileID
		}()
	}

	start()
	<-delivery.inside // first caller reached the push
	start()           // second caller joins the in-flight upload
	require.Eventually(t, func() bool {
		cache.mu.Lock()
		defer cache.mu.Unlock()
		return cache.gets == 2
	}, time.Second, time.Millisecond)
	time.Sleep(20 * time.Millisecond) // let the second caller enter the flight group
	close(delivery.block)

	a, b := <-results, <-results
	require.Equal(t, a, b)
	require.Equal(t, 1, delivery.calls)
}
