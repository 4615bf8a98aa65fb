package ynison

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestProtocolHeader_Subprotocol(t *testing.T) {
	h, err := NewProtocolHeader("abcxyzabcxyzabcx")
	require.NoError(t, err)

	sub, err := h.Subprotocol()
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(sub, "Bearer, v2, "))

	var decoded map[string]string
	require.NoError(t, json.Unmarshal([]byte(strings.TrimPrefix(sub, "Bearer, v2, ")), &decoded))
	require.Equal(t, "abcxyzabcxyzabcx", decoded["Ynison-Device-Id"])
	require.JSONEq(t, `{"app_name":"Chrome","type":1}`, decoded["Ynison-Device-Info"])
	_, present := decoded["Ynison-Redirect-Ticket"]
	require.False(t, present, "phase-1 header must not carry a ticket")
}

func TestProtocolHeader_WithTicket(t *testing.T) {
	h, err := NewProtocolHeader("abcxyzabcxyzabcx")
	require.NoError(t, err)

	sub, err := h.WithTicket("t1").Subprotocol()
	require.NoError(t, err)

	var decoded map[string]string
	require.NoError(t, json.Unmarshal([]byte(strings.TrimPrefix(sub, "Bearer, v2, ")), &decoded))
	require.Equal(t, "t1", decoded["Ynison-Redirect-Ticket"])
}

func TestNewStateSnapshot(t *testing.T) {
	snap, err := newStateSnapshot("abcxyzabcxyzabcx")
	require.NoError(t, err)

	full := snap.UpdateFullState
	require.True(t, full.Device.IsShadow)
	require.False(t, full.IsCurrentlyActive)
	require.Equal(t, -1, full.PlayerState.PlayerQueue.CurrentPlayableIndex)
	require.Empty(t, full.PlayerState.PlayerQueue.PlayableList)
	require.Equal(t, "abcxyzabcxyzabcx", full.PlayerState.PlayerQueue.Version.DeviceID)
	require.Equal(t, "abcxyzabcxyzabcx", full.PlayerState.Status.Version.DeviceID)
	require.NotEmpty(t, snap.Rid)

	// playable_list must serialize as [], not null: the service rejects null.
	b, err := json.Marshal(snap)
	require.NoError(t, err)
	require.Contains(t, string(b), `"playable_list":[]`)
}

func TestNewStateSnapshot_FreshRid(t *testing.T) {
	a, err := newStateSnapshot("abcxyzabcxyzabcx")
	require.NoError(t, err)
	b, err := newStateSnapshot("abcxyzabcxyzabcx")
	require.NoError(t, err)
	require.NotEqual(t, a.Rid, b.Rid)
}
