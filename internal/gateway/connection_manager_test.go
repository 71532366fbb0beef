package gateway

import (
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/glougarou/backend/internal/events"
)

func newTestManager() *ConnectionManager {
	return NewConnectionManager(DefaultConnectionConfig(), clockwork.NewFakeClock())
}

func newTestConn(cm *ConnectionManager, playerID string) *Connection {
	return &Connection{
		ID:       uuid.New().String(),
		PlayerID: playerID,
		Send:     make(chan []byte, 16),
		Manager:  cm,
		rooms:    make(map[string]bool),
	}
}

// drain processes everything queued on the broadcast channel, the way
// Start would.
func drain(cm *ConnectionManager) {
	for {
		select {
		case msg := <-cm.broadcastCh:
			cm.deliver(msg)
		default:
			return
		}
	}
}

func received(t *testing.T, conn *Connection) []events.GameEvent {
	t.Helper()
	var got []events.GameEvent
	for {
		select {
		case data := <-conn.Send:
			var event events.GameEvent
			require.NoError(t, json.Unmarshal(data, &event))
			got = append(got, event)
		default:
			return got
		}
	}
}

func gameEvent(room string, eventType events.Type, payload interface{}) *events.GameEvent {
	data, _ := json.Marshal(payload)
	return &events.GameEvent{
		ID:        uuid.New().String(),
		RoomCode:  room,
		Type:      eventType,
		Timestamp: time.Now(),
		Data:      data,
	}
}

func TestDeliverDuringDisconnectDoesNotPanic(t *testing.T) {
	cm := newTestManager()
	data, err := json.Marshal(gameEvent("ROOM42", events.TypePhaseChange, nil))
	require.NoError(t, err)

	for i := 0; i < 500; i++ {
		a := newTestConn(cm, "alice")
		b := newTestConn(cm, "bob")
		cm.JoinRoom(a, "ROOM42")
		cm.JoinRoom(b, "ROOM42")
		drain(cm)

		var wg sync.WaitGroup
		wg.Add(2)
		go func() {
			defer wg.Done()
			cm.deliver(broadcastMessage{
				targets: []*Connection{a, b},
				data:    data,
				event:   events.TypePhaseChange,
				room:    "ROOM42",
			})
		}()
		go func() {
			defer wg.Done()
			cm.disconnect(b)
		}()
		wg.Wait()
		cm.disconnect(a)
		drain(cm)
	}
}

func TestJoinRoomNotifiesExistingMembers(t *testing.T) {
	cm := newTestManager()
	a := newTestConn(cm, "alice")
	b := newTestConn(cm, "bob")

	cm.JoinRoom(a, "ROOM42")
	drain(cm)
	assert.Empty(t, received(t, a), "first member has nobody to notify")

	cm.JoinRoom(b, "ROOM42")
	drain(cm)

	got := received(t, a)
	require.Len(t, got, 1)
	assert.Equal(t, events.TypePlayerJoined, got[0].Type)

	var payload events.PlayerJoinedPayload
	require.NoError(t, json.Unmarshal(got[0].Data, &payload))
	assert.Equal(t, b.ID, payload.SocketID)

	assert.Empty(t, received(t, b), "joiner does not hear its own join")
	assert.Equal(t, 2, cm.RoomSize("ROOM42"))
}

func TestBroadcastExcludesSender(t *testing.T) {
	cm := newTestManager()
	a := newTestConn(cm, "alice")
	b := newTestConn(cm, "bob")
	c := newTestConn(cm, "carol")
	for _, conn := range []*Connection{a, b, c} {
		cm.JoinRoom(conn, "ROOM42")
	}
	drain(cm)
	received(t, a)
	received(t, b)
	received(t, c)

	cm.Broadcast("ROOM42", gameEvent("ROOM42", events.TypeVoteReceived, events.VotePayload{VoterID: "v", TargetID: "t"}), a)
	drain(cm)

	assert.Empty(t, received(t, a))
	require.Len(t, received(t, b), 1)
	require.Len(t, received(t, c), 1)
}

func TestBroadcastSnapshotExcludesLaterJoiners(t *testing.T) {
	cm := newTestManager()
	a := newTestConn(cm, "alice")
	b := newTestConn(cm, "bob")
	cm.JoinRoom(a, "ROOM42")
	cm.JoinRoom(b, "ROOM42")
	drain(cm)
	received(t, a)
	received(t, b)

	// Queue a broadcast, then let a third member join before delivery.
	cm.Broadcast("ROOM42", gameEvent("ROOM42", events.TypePhaseChanged, nil), nil)
	c := newTestConn(cm, "carol")
	cm.JoinRoom(c, "ROOM42")
	drain(cm)

	assert.Empty(t, received(t, c), "joined after the broadcast snapshot")
	for _, conn := range []*Connection{a, b} {
		got := received(t, conn)
		require.Len(t, got, 2)
		assert.Equal(t, events.TypePhaseChanged, got[0].Type)
		assert.Equal(t, events.TypePlayerJoined, got[1].Type)
	}
}

func TestBroadcastToEmptyRoomIsNoOp(t *testing.T) {
	cm := newTestManager()
	cm.Broadcast("NOROOM", gameEvent("NOROOM", events.TypePhaseChanged, nil), nil)

	select {
	case <-cm.broadcastCh:
		t.Fatal("nothing should have been queued for an empty room")
	default:
	}
}

func TestLeaveRoomDiscardsEmptyRoomAndIsIdempotent(t *testing.T) {
	cm := newTestManager()
	a := newTestConn(cm, "alice")
	cm.JoinRoom(a, "ROOM42")
	drain(cm)

	cm.LeaveRoom(a, "ROOM42")
	assert.Equal(t, 0, cm.RoomSize("ROOM42"))
	assert.False(t, a.rooms["ROOM42"])

	// Leaving again, or leaving a room never joined, changes nothing.
	cm.LeaveRoom(a, "ROOM42")
	cm.LeaveRoom(a, "OTHER")
	assert.Equal(t, 0, cm.RoomSize("ROOM42"))
}

func TestDisconnectEmitsOnePlayerLeftPerRoom(t *testing.T) {
	cm := newTestManager()
	a := newTestConn(cm, "alice")
	b := newTestConn(cm, "bob")
	c := newTestConn(cm, "carol")
	cm.JoinRoom(b, "ROOM1")
	cm.JoinRoom(c, "ROOM2")
	cm.JoinRoom(a, "ROOM1")
	cm.JoinRoom(a, "ROOM2")
	drain(cm)
	received(t, b)
	received(t, c)

	cm.disconnect(a)
	drain(cm)

	for _, conn := range []*Connection{b, c} {
		got := received(t, conn)
		require.Len(t, got, 1)
		assert.Equal(t, events.TypePlayerLeft, got[0].Type)

		var payload events.PlayerLeftPayload
		require.NoError(t, json.Unmarshal(got[0].Data, &payload))
		assert.Equal(t, a.ID, payload.SocketID)
	}
	assert.Equal(t, 1, cm.RoomSize("ROOM1"))
	assert.Equal(t, 1, cm.RoomSize("ROOM2"))

	// A second disconnect must not close the send channel twice.
	cm.disconnect(a)
}

func TestSlowConsumerIsDropped(t *testing.T) {
	cm := newTestManager()
	a := newTestConn(cm, "alice")
	slow := newTestConn(cm, "bob")
	slow.Send = make(chan []byte) // no buffer, nobody reading
	cm.JoinRoom(a, "ROOM42")
	cm.JoinRoom(slow, "ROOM42")
	drain(cm)
	received(t, a)

	cm.Broadcast("ROOM42", gameEvent("ROOM42", events.TypePhaseChanged, nil), nil)
	drain(cm)

	assert.Equal(t, 1, cm.RoomSize("ROOM42"))
	assert.True(t, slow.closed)
	assert.True(t, a.rooms["ROOM42"])
}

func TestStats(t *testing.T) {
	cm := newTestManager()
	a := newTestConn(cm, "alice")
	b := newTestConn(cm, "bob")
	cm.JoinRoom(a, "ROOM1")
	cm.JoinRoom(b, "ROOM1")
	cm.JoinRoom(b, "ROOM2")
	drain(cm)

	stats := cm.Stats()
	assert.Equal(t, 3, stats["total_connections"])
	assert.Equal(t, 2, stats["active_rooms"])
}
