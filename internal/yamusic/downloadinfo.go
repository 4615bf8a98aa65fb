package yamusic

import (
	"context"
	"crypto/md5"
	"encoding/json"
	"encoding/xml"
	"fmt"

	"go.uber.org/zap"

	"github.com/dbrvsk/yamusic-bot/internal/errs"
)

// signSalt is the constant the storage host expects prepended to the signed
// portion of a direct link.
const signSalt = "XGRlBW9FXlekgbPrRHuSiA"

type downloadInfoJSON struct {
	Codec           string      `json:"codec"`
	BitrateInKbps   json.Number `json:"bitrateInKbps"`
	DownloadInfoURL string      `json:"downloadInfoUrl"`
}

// storageDescriptor is the XML document behind downloadInfoUrl.
type storageDescriptor struct {
	XMLName xml.Name `xml:"download-info"`
	Host    string   `xml:"host"`
	Path    string   `xml:"path"`
	TS      string   `xml:"ts"`
	S       string   `xml:"s"`
}

// DirectLink resolves a time-limited direct download URL for the track at
// the fixed mp3/192 policy. ErrAssetUnavailable when the backend reports no
// matching encoding.
func (c *Client) DirectLink(ctx context.Context, token, trackID string) (string, error) {
	var out struct {
		Result []downloadInfoJSON `json:"result"`
	}
	if err := c.getJSON(ctx, token, c.base+"/tracks/"+trackID+"/download-info", &out); err != nil {
		return "", fmt.Errorf("download-info %s: %w", trackID, err)
	}

	var infoURL string
	for _, info := range out.Result {
		kbps, _ := info.BitrateInKbps.Int64()
		if info.Codec == codecMP3 && kbps == bitrateKbps {
			infoURL = info.DownloadInfoURL
			break
		}
	}
	if infoURL == "" {
		return "", fmt.Errorf("track %s has no %s/%d encoding: %w",
			trackID, codecMP3, bitrateKbps, errs.ErrAssetUnavailable)
	}

	desc, err := c.fetchStorageDescriptor(ctx, token, infoURL)
	if err != nil {
		return "", fmt.Errorf("storage descriptor %s: %w", trackID, err)
	}
	c.log.Debug("direct link resolved",
		zap.String("track_id", trackID),
		zap.String("host", desc.Host),
	)
	return directLinkFromDescriptor(desc), nil
}

func (c *Client) fetchStorageDescriptor(ctx context.Context, token, rawURL string) (storageDescriptor, error) {
	if err := c.sem.Acquire(ctx, 1); err != nil {
		return storageDescriptor{}, err
	}
	defer c.sem.Release(1)
	if err := c.limiter.Wait(ctx); err != nil {
		return storageDescriptor{}, err
	}

	req, err := newGetRequest(ctx, rawURL, token)
	if err != nil {
		return storageDescriptor{}, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return storageDescriptor{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != 200 {
		return storageDescriptor{}, fmt.Errorf("status %d", resp.StatusCode)
	}
	var desc storageDescriptor
	if err := xml.NewDecoder(resp.Body).Decode(&desc); err != nil {
		return storageDescriptor{}, err
	}
	if desc.Host == "" || desc.Path == "" {
		return storageDescriptor{}, fmt.Errorf("incomplete descriptor")
	}
	return desc, nil
}

// directLinkFromDescriptor assembles the signed storage URL. The sign covers
// the salted path and the per-request secret; the ts segment time-limits it.
func directLinkFromDescriptor(d storageDescriptor) string {
	sign := md5.Sum([]byte(signSalt + d.Path[1:] + d.S))
	return fmt.Sprintf("https://%s/get-mp3/%x/%s%s", d.Host, sign, d.TS, d.Path)
}
