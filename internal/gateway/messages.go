package gateway

import (
	"encoding/json"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/glougarou/backend/internal/events"
)

// clientMessage is the frame clients send: a room-scoped event with an
// arbitrary JSON payload.
type clientMessage struct {
	Event    events.Type     `json:"event"`
	RoomCode string          `json:"room_code"`
	Payload  json.RawMessage `json:"payload"`
}

const (
	clientEventJoinRoom  events.Type = "joinRoom"
	clientEventLeaveRoom events.Type = "leaveRoom"
)

// handleClientMessage processes one frame from the client. joinRoom and
// leaveRoom mutate membership; every relayable game event is fanned out
// to the rest of the room under its delivery-side name. Anything else
// is logged and dropped.
func (c *Connection) handleClientMessage(message []byte) {
	var msg clientMessage
	if err := json.Unmarshal(message, &msg); err != nil {
		log.Warn().
			Err(err).
			Str("connection_id", c.ID).
			Msg("dropping malformed client frame")
		return
	}
	if msg.RoomCode == "" {
		log.Warn().
			Str("connection_id", c.ID).
			Str("event", string(msg.Event)).
			Msg("dropping client frame without room code")
		return
	}

	switch msg.Event {
	case clientEventJoinRoom:
		c.Manager.JoinRoom(c, msg.RoomCode)
		return
	case clientEventLeaveRoom:
		c.Manager.LeaveRoom(c, msg.RoomCode)
		return
	}

	delivered, ok := events.Delivered(msg.Event)
	if !ok {
		log.Warn().
			Str("connection_id", c.ID).
			Str("event", string(msg.Event)).
			Msg("dropping unknown client event")
		return
	}

	c.Manager.Broadcast(msg.RoomCode, &events.GameEvent{
		ID:        uuid.New().String(),
		RoomCode:  msg.RoomCode,
		Type:      delivered,
		Timestamp: c.Manager.clock.Now(),
		Data:      msg.Payload,
	}, c)
}
