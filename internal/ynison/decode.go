package ynison

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/dbrvsk/yamusic-bot/internal/errs"
	"github.com/dbrvsk/yamusic-bot/internal/model"
)

// StateResponse is the authoritative combined state returned in phase 2.
// Only the fields the decoder needs are modeled; the remote encodes numbers
// protobuf-JSON style, so counters may arrive as strings and zero-valued
// fields may be omitted entirely.
type StateResponse struct {
	PlayerState *playerState `json:"player_state"`
}

type playerState struct {
	PlayerQueue *playerQueue    `json:"player_queue"`
	Status      *playbackStatus `json:"status"`
}

type playerQueue struct {
	CurrentPlayableIndex int        `json:"current_playable_index"`
	EntityID             string     `json:"entity_id"`
	EntityType           string     `json:"entity_type"`
	PlayableList         []playable `json:"playable_list"`
}

type playable struct {
	PlayableID string `json:"playable_id"`
}

type playbackStatus struct {
	Paused     bool    `json:"paused"`
	DurationMs counter `json:"duration_ms"`
	ProgressMs counter `json:"progress_ms"`
}

// counter is a protobuf-JSON 64-bit value: absent, numeric, or quoted.
type counter string

func (c *counter) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*c = counter(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*c = counter(n.String())
	return nil
}

// DecodePlaybackState flattens a phase-2 response into a PlaybackState.
// Pure; no network. Missing required structure fails with ErrProtocol; an
// empty queue or out-of-range index is ErrNoActivePlayback, never conflated
// with a transport error.
func DecodePlaybackState(st *StateResponse) (model.PlaybackState, error) {
	if st == nil || st.PlayerState == nil {
		return model.PlaybackState{}, fmt.Errorf("%w: response missing player_state", errs.ErrProtocol)
	}
	queue := st.PlayerState.PlayerQueue
	status := st.PlayerState.Status
	if queue == nil {
		return model.PlaybackState{}, fmt.Errorf("%w: response missing player_queue", errs.ErrProtocol)
	}
	if status == nil {
		return model.PlaybackState{}, fmt.Errorf("%w: response missing status", errs.ErrProtocol)
	}

	idx := queue.CurrentPlayableIndex
	if len(queue.PlayableList) == 0 || idx < 0 || idx >= len(queue.PlayableList) {
		return model.PlaybackState{}, errs.ErrNoActivePlayback
	}
	trackID := queue.PlayableList[idx].PlayableID
	if trackID == "" {
		return model.PlaybackState{}, fmt.Errorf("%w: playable entry missing playable_id", errs.ErrProtocol)
	}

	duration, err := decodeMillis(status.DurationMs)
	if err != nil {
		return model.PlaybackState{}, fmt.Errorf("%w: bad duration_ms %q", errs.ErrProtocol, status.DurationMs)
	}
	progress, err := decodeMillis(status.ProgressMs)
	if err != nil {
		return model.PlaybackState{}, fmt.Errorf("%w: bad progress_ms %q", errs.ErrProtocol, status.ProgressMs)
	}

	return model.PlaybackState{
		Paused:     status.Paused,
		DurationMs: duration,
		ProgressMs: progress,
		EntityID:   queue.EntityID,
		EntityType: queue.EntityType,
		TrackID:    trackID,
	}, nil
}

func decodeMillis(c counter) (uint64, error) {
	if c == "" {
		return 0, nil
	}
	v, err := strconv.ParseUint(string(c), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid counter: %s", c)
	}
	return v, nil
}
