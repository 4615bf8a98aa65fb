// Package telegram is a thin client of the Bot API used as the delivery and
// hosting channel: audio pushed once into the cache channel yields a file_id
// that replays with zero download forever after.
package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"github.com/dbrvsk/yamusic-bot/internal/errs"
	"github.com/dbrvsk/yamusic-bot/internal/httpx"
)

// Audio is one upload into the hosting channel.
type Audio struct {
	FileName    string
	Data        []byte
	Title       string
	Performer   string
	DurationSec int
	Thumbnail   []byte // optional
}

// Client pushes audio through the Bot API into a durable channel.
type Client struct {
	log    *zap.Logger
	http   *http.Client
	base   string // https://api.telegram.org/bot<token>
	chatID string // cache channel
}

// New constructs a delivery client for the given bot token and cache channel.
func New(log *zap.Logger, botToken, cacheChatID string) *Client {
	return &Client{
		log:    log,
		http:   httpx.Shared(),
		base:   "https://api.telegram.org/bot" + botToken,
		chatID: cacheChatID,
	}
}

type sendAudioResponse struct {
	OK          bool   `json:"ok"`
	Description string `json:"description"`
	Result      struct {
		Audio struct {
			FileID string `json:"file_id"`
		} `json:"audio"`
	} `json:"result"`
}

// SendAudio uploads the audio (and optional thumbnail) into the cache
// channel and returns the channel-assigned file reference.
func (c *Client) SendAudio(ctx context.Context, a Audio) (string, error) {
	body := &bytes.Buffer{}
	w := multipart.NewWriter(body)

	fields := map[string]string{
		"chat_id":   c.chatID,
		"title":     a.Title,
		"performer": a.Performer,
	}
	if a.DurationSec > 0 {
		fields["duration"] = strconv.Itoa(a.DurationSec)
	}
	for k, v := range fields {
		if v == "" {
			continue
		}
		if err := w.WriteField(k, v); err != nil {
			return "", fmt.Errorf("%w: build form: %v", errs.ErrUploadFailed, err)
		}
	}

	fw, err := w.CreateFormFile("audio", a.FileName)
	if err != nil {
		return "", fmt.Errorf("%w: build form: %v", errs.ErrUploadFailed, err)
	}
	if _, err := fw.Write(a.Data); err != nil {
		return "", fmt.Errorf("%w: build form: %v", errs.ErrUploadFailed, err)
	}

	if len(a.Thumbnail) > 0 {
		tw, err := w.CreateFormFile("thumbnail", "thumb.jpg")
		if err != nil {
			return "", fmt.Errorf("%w: build form: %v", errs.ErrUploadFailed, err)
		}
		if _, err := tw.Write(a.Thumbnail); err != nil {
			return "", fmt.Errorf("%w: build form: %v", errs.ErrUploadFailed, err)
		}
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("%w: build form: %v", errs.ErrUploadFailed, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base+"/sendAudio", body)
	if err != nil {
		return "", fmt.Errorf("%w: %v", errs.ErrUploadFailed, err)
	}
	req.Header.Set("Content-Type", w.FormDataContentType())

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", errs.ErrUploadFailed, err)
	}
	defer resp.Body.Close()

	var decoded sendAudioResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return "", fmt.Errorf("%w: decode response: %v", errs.ErrUploadFailed, err)
	}
	if !decoded.OK || decoded.Result.Audio.FileID == "" {
		return "", fmt.Errorf("%w: api rejected upload: %s", errs.ErrUploadFailed, decoded.Description)
	}

	c.log.Info("audio uploaded",
		zap.String("file_id", decoded.Result.Audio.FileID),
		zap.String("title", a.Title),
		zap.Int("bytes", len(a.Data)),
	)
	return decoded.Result.Audio.FileID, nil
}
