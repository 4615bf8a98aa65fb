package ynison

import (
	"encoding/json"
	"fmt"
	"math/rand"

	"github.com/gofrs/uuid/v5"
)

// ProtocolHeader is carried in every handshake request as the third element
// of the Sec-WebSocket-Protocol value. The redirect ticket is absent in
// phase 1 and copied from the phase-1 response in phase 2.
type ProtocolHeader struct {
	DeviceID       string `json:"Ynison-Device-Id"`
	DeviceInfo     string `json:"Ynison-Device-Info"`
	RedirectTicket string `json:"Ynison-Redirect-Ticket,omitempty"`
}

type deviceInfo struct {
	AppName string `json:"app_name"`
	Type    int    `json:"type"`
}

// NewProtocolHeader builds the phase-1 header for a device id.
func NewProtocolHeader(deviceID string) (ProtocolHeader, error) {
	info, err := json.Marshal(deviceInfo{AppName: appName, Type: appType})
	if err != nil {
		return ProtocolHeader{}, err
	}
	return ProtocolHeader{DeviceID: deviceID, DeviceInfo: string(info)}, nil
}

// WithTicket returns a copy of the header carrying the redirect ticket.
func (h ProtocolHeader) WithTicket(ticket string) ProtocolHeader {
	h.RedirectTicket = ticket
	return h
}

// Subprotocol renders the header as the wire-format subprotocol value.
func (h ProtocolHeader) Subprotocol() (string, error) {
	b, err := json.Marshal(h)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("Bearer, v2, %s", b), nil
}

// The snapshot below fabricates a full state for a shadow device with no
// active queue. The service treats it as a "register shadow device" action
// and replies with the real session's state; the version markers are
// placeholders the service overwrites, never meant to win conflict
// resolution.

type versionMarker struct {
	DeviceID    string `json:"device_id"`
	Version     uint64 `json:"version"`
	TimestampMs uint64 `json:"timestamp_ms"`
}

type queueOptions struct {
	RepeatMode string `json:"repeat_mode"`
}

type syntheticQueue struct {
	CurrentPlayableIndex int           `json:"current_playable_index"`
	EntityID             string        `json:"entity_id"`
	EntityType           string        `json:"entity_type"`
	PlayableList         []struct{}    `json:"playable_list"`
	Options              queueOptions  `json:"options"`
	EntityContext        string        `json:"entity_context"`
	Version              versionMarker `json:"version"`
	FromOptional         string        `json:"from_optional"`
}

type syntheticStatus struct {
	DurationMs    uint64        `json:"duration_ms"`
	Paused        bool          `json:"paused"`
	PlaybackSpeed float64       `json:"playback_speed"`
	ProgressMs    uint64        `json:"progress_ms"`
	Version       versionMarker `json:"version"`
}

type syntheticPlayerState struct {
	PlayerQueue syntheticQueue  `json:"player_queue"`
	Status      syntheticStatus `json:"status"`
}

type deviceCapabilities struct {
	CanBePlayer           bool `json:"can_be_player"`
	CanBeRemoteController bool `json:"can_be_remote_controller"`
	VolumeGranularity     int  `json:"volume_granularity"`
}

type shadowDeviceInfo struct {
	DeviceID string `json:"device_id"`
	Type     string `json:"type"`
	Title    string `json:"title"`
	AppName  string `json:"app_name"`
}

type shadowDevice struct {
	Capabilities deviceCapabilities `json:"capabilities"`
	Info         shadowDeviceInfo   `json:"info"`
	VolumeInfo   struct {
		Volume float64 `json:"volume"`
	} `json:"volume_info"`
	IsShadow bool `json:"is_shadow"`
}

type fullState struct {
	PlayerState       syntheticPlayerState `json:"player_state"`
	Device            shadowDevice         `json:"device"`
	IsCurrentlyActive bool                 `json:"is_currently_active"`
}

type stateSnapshot struct {
	UpdateFullState          fullState `json:"update_full_state"`
	Rid                      string    `json:"rid"`
	PlayerActionTimestampMs  uint64    `json:"player_action_timestamp_ms"`
	ActivityInterceptionType string    `json:"activity_interception_type"`
}

// newStateSnapshot fabricates the phase-2 full-state payload for a shadow
// device owned by deviceID.
func newStateSnapshot(deviceID string) (stateSnapshot, error) {
	rid, err := uuid.NewV4()
	if err != nil {
		return stateSnapshot{}, err
	}
	placeholder := func() versionMarker {
		return versionMarker{DeviceID: deviceID, Version: rand.Uint64()}
	}
	return stateSnapshot{
		UpdateFullState: fullState{
			PlayerState: syntheticPlayerState{
				PlayerQueue: syntheticQueue{
					CurrentPlayableIndex: -1,
					EntityType:           "VARIOUS",
					PlayableList:         []struct{}{},
					Options:              queueOptions{RepeatMode: "NONE"},
					EntityContext:        "BASED_ON_ENTITY_BY_DEFAULT",
					Version:              placeholder(),
				},
				Status: syntheticStatus{
					Paused:        true,
					PlaybackSpeed: 1,
					Version:       placeholder(),
				},
			},
			Device: shadowDevice{
				Capabilities: deviceCapabilities{
					CanBePlayer:       true,
					VolumeGranularity: 16,
				},
				Info: shadowDeviceInfo{
					DeviceID: deviceID,
					Type:     "WEB",
					Title:    "Chrome Browser",
					AppName:  appName,
				},
				IsShadow: true,
			},
		},
		Rid:                      rid.String(),
		ActivityInterceptionType: "DO_NOT_INTERCEPT_BY_DEFAULT",
	}, nil
}
