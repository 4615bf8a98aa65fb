// Package ynison discovers live playback state over the Ynison WebSocket
// protocol: a two-phase, ephemeral-identity handshake in which a synthetic
// shadow device registers itself and reads back the authoritative state of
// the user's real session.
package ynison

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/dbrvsk/yamusic-bot/internal/errs"
	"github.com/dbrvsk/yamusic-bot/internal/model"
)

const (
	defaultRedirectorURL = "wss://ynison.music.yandex.ru/redirector.YnisonRedirectService/GetRedirectToYnison"
	stateURLFormat       = "wss://%s/ynison_state.YnisonStateService/PutYnisonState"
	origin               = "http://music.yandex.ru"

	handshakeTimeout = 10 * time.Second
)

// Redirect is the phase-1 result: where to open the state connection and
// the ticket authorizing it.
type Redirect struct {
	Host   string `json:"host"`
	Ticket string `json:"redirect_ticket"`
}

// Client performs the two-phase Ynison handshake. Each discovery call uses a
// fresh device identity and two short-lived connections; nothing is kept
// between calls.
type Client struct {
	log    *zap.Logger
	dialer *websocket.Dialer

	redirectorURL string
	stateURL      func(host string) string
}

// New constructs a handshake client.
func New(log *zap.Logger) *Client {
	return &Client{
		log:           log,
		dialer:        &websocket.Dialer{HandshakeTimeout: handshakeTimeout},
		redirectorURL: defaultRedirectorURL,
		stateURL: func(host string) string {
			return fmt.Sprintf(stateURLFormat, host)
		},
	}
}

func handshakeHeaders(token string, h ProtocolHeader) (http.Header, error) {
	sub, err := h.Subprotocol()
	if err != nil {
		return nil, err
	}
	headers := http.Header{}
	headers.Set("Sec-WebSocket-Protocol", sub)
	headers.Set("Origin", origin)
	headers.Set("Authorization", "OAuth "+token)
	return headers, nil
}

// Resolve performs phase 1: one connection to the redirector, one response
// frame carrying the state host and redirect ticket. No retries here; that
// is the caller's call.
func (c *Client) Resolve(ctx context.Context, token string, h ProtocolHeader) (Redirect, error) {
	headers, err := handshakeHeaders(token, h)
	if err != nil {
		return Redirect{}, fmt.Errorf("%w: encode header: %v", errs.ErrProtocol, err)
	}

	conn, resp, err := c.dialer.DialContext(ctx, c.redirectorURL, headers)
	if err != nil {
		if resp != nil {
			return Redirect{}, fmt.Errorf("%w: redirector dial (status %d): %v", errs.ErrProtocol, resp.StatusCode, err)
		}
		return Redirect{}, fmt.Errorf("%w: redirector dial: %v", errs.ErrProtocol, err)
	}
	defer conn.Close()

	_, msg, err := conn.ReadMessage()
	if err != nil {
		return Redirect{}, fmt.Errorf("%w: redirector read: %v", errs.ErrProtocol, err)
	}

	var red Redirect
	if err := json.Unmarshal(msg, &red); err != nil {
		return Redirect{}, fmt.Errorf("%w: redirector decode: %v", errs.ErrProtocol, err)
	}
	if red.Host == "" || red.Ticket == "" {
		return Redirect{}, fmt.Errorf("%w: redirector response missing host or ticket", errs.ErrProtocol)
	}
	return red, nil
}

// Sync performs phase 2: connect to the redirect host with the ticket-bearing
// header, submit one synthetic full-state snapshot, read one response frame
// with the authoritative combined state. A request/response exchange, not a
// subscription.
func (c *Client) Sync(ctx context.Context, token string, h ProtocolHeader, host string) (*StateResponse, error) {
	headers, err := handshakeHeaders(token, h)
	if err != nil {
		return nil, fmt.Errorf("%w: encode header: %v", errs.ErrProtocol, err)
	}

	conn, _, err := c.dialer.DialContext(ctx, c.stateURL(host), headers)
	if err != nil {
		return nil, fmt.Errorf("%w: state dial: %v", errs.ErrProtocol, err)
	}
	defer conn.Close()

	snapshot, err := newStateSnapshot(h.DeviceID)
	if err != nil {
		return nil, fmt.Errorf("%w: build snapshot: %v", errs.ErrProtocol, err)
	}
	payload, err := json.Marshal(snapshot)
	if err != nil {
		return nil, fmt.Errorf("%w: encode snapshot: %v", errs.ErrProtocol, err)
	}
	if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
		return nil, fmt.Errorf("%w: state write: %v", errs.ErrProtocol, err)
	}

	_, msg, err := conn.ReadMessage()
	if err != nil {
		return nil, fmt.Errorf("%w: state read: %v", errs.ErrProtocol, err)
	}

	var st StateResponse
	if err := json.Unmarshal(msg, &st); err != nil {
		return nil, fmt.Errorf("%w: state decode: %v", errs.ErrProtocol, err)
	}
	return &st, nil
}

// CurrentPlayback runs the full discovery chain with a fresh device identity
// and returns a point-in-time playback snapshot.
func (c *Client) CurrentPlayback(ctx context.Context, token string) (model.PlaybackState, error) {
	deviceID := NewDeviceID()
	header, err := NewProtocolHeader(deviceID)
	if err != nil {
		return model.PlaybackState{}, fmt.Errorf("%w: build header: %v", errs.ErrProtocol, err)
	}

	red, err := c.Resolve(ctx, token, header)
	if err != nil {
		return model.PlaybackState{}, err
	}
	c.log.Debug("ynison redirect resolved",
		zap.String("host", red.Host),
		zap.String("device_id", deviceID),
	)

	st, err := c.Sync(ctx, token, header.WithTicket(red.Ticket), red.Host)
	if err != nil {
		return model.PlaybackState{}, err
	}
	return DecodePlaybackState(st)
}
