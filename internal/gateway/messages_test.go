package gateway

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/glougarou/backend/internal/events"
)

func frame(t *testing.T, event events.Type, roomCode string, payload interface{}) []byte {
	t.Helper()
	raw, err := json.Marshal(payload)
	require.NoError(t, err)
	data, err := json.Marshal(clientMessage{Event: event, RoomCode: roomCode, Payload: raw})
	require.NoError(t, err)
	return data
}

func TestClientFrameJoinAndLeaveRoom(t *testing.T) {
	cm := newTestManager()
	conn := newTestConn(cm, "alice")

	conn.handleClientMessage(frame(t, clientEventJoinRoom, "ROOM42", nil))
	assert.Equal(t, 1, cm.RoomSize("ROOM42"))

	conn.handleClientMessage(frame(t, clientEventLeaveRoom, "ROOM42", nil))
	assert.Equal(t, 0, cm.RoomSize("ROOM42"))
}

func TestClientFrameRelayedUnderDeliveryName(t *testing.T) {
	cm := newTestManager()
	sender := newTestConn(cm, "alice")
	peer := newTestConn(cm, "bob")
	cm.JoinRoom(sender, "ROOM42")
	cm.JoinRoom(peer, "ROOM42")
	drain(cm)
	received(t, sender)
	received(t, peer)

	conn := sender
	conn.handleClientMessage(frame(t, events.TypeVote, "ROOM42", events.VotePayload{VoterID: "v1", TargetID: "t1"}))
	drain(cm)

	got := received(t, peer)
	require.Len(t, got, 1)
	assert.Equal(t, events.TypeVoteReceived, got[0].Type)
	assert.Equal(t, "ROOM42", got[0].RoomCode)

	var payload events.VotePayload
	require.NoError(t, json.Unmarshal(got[0].Data, &payload))
	assert.Equal(t, "v1", payload.VoterID)
	assert.Equal(t, "t1", payload.TargetID)

	assert.Empty(t, received(t, sender), "sender never hears its own broadcast")
}

func TestClientFrameDropsUnknownAndMalformed(t *testing.T) {
	cm := newTestManager()
	conn := newTestConn(cm, "alice")
	peer := newTestConn(cm, "bob")
	cm.JoinRoom(conn, "ROOM42")
	cm.JoinRoom(peer, "ROOM42")
	drain(cm)
	received(t, peer)

	conn.handleClientMessage([]byte("{not json"))
	conn.handleClientMessage(frame(t, "winGame", "ROOM42", nil))
	conn.handleClientMessage(frame(t, events.TypeVote, "", nil))
	drain(cm)

	assert.Empty(t, received(t, peer))
}
