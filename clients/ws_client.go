package clients

import (
	"encoding/json"
	"fmt"
	"net/url"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/glougarou/backend/internal/events"
)

// EventHandler receives every event delivered to this connection.
type EventHandler func(event *events.GameEvent)

// WSClient is the realtime side of the client: it connects to the
// gateway, broadcasts room events and dispatches received events to a
// handler. Send failures are logged and swallowed; the relay offers no
// delivery guarantee to surface.
type WSClient struct {
	conn    *websocket.Conn
	handler EventHandler

	mu     sync.Mutex
	closed bool
}

// DialWS connects to the gateway and starts dispatching received
// events to handler.
func DialWS(baseURL, roomCode, playerID string, handler EventHandler) (*WSClient, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid base URL: %w", err)
	}
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	}
	u.Path = "/ws"
	u.RawQuery = url.Values{
		"room_code": {roomCode},
		"player_id": {playerID},
	}.Encode()

	conn, _, err := websocket.DefaultDialer.Dial(u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to dial gateway: %w", err)
	}

	c := &WSClient{conn: conn, handler: handler}
	go c.readLoop()
	return c, nil
}

// Broadcast sends a fire-and-forget room event. The sender never
// receives its own broadcast back.
func (c *WSClient) Broadcast(roomCode string, event events.Type, payload interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	frame := struct {
		Event    events.Type     `json:"event"`
		RoomCode string          `json:"room_code"`
		Payload  json.RawMessage `json:"payload"`
	}{Event: event, RoomCode: roomCode, Payload: data}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return fmt.Errorf("connection is closed")
	}
	return c.conn.WriteJSON(frame)
}

// JoinRoom subscribes this connection to an additional room.
func (c *WSClient) JoinRoom(roomCode string) error {
	return c.control("joinRoom", roomCode)
}

// LeaveRoom unsubscribes this connection from a room.
func (c *WSClient) LeaveRoom(roomCode string) error {
	return c.control("leaveRoom", roomCode)
}

func (c *WSClient) control(event, roomCode string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return fmt.Errorf("connection is closed")
	}
	return c.conn.WriteJSON(map[string]string{"event": event, "room_code": roomCode})
}

// Close tears the connection down.
func (c *WSClient) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	return c.conn.Close()
}

func (c *WSClient) readLoop() {
	defer c.Close()
	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			log.Debug().Err(err).Msg("gateway connection closed")
			return
		}

		var event events.GameEvent
		if err := json.Unmarshal(data, &event); err != nil {
			log.Warn().Err(err).Msg("dropping malformed gateway event")
			continue
		}
		if c.handler != nil {
			c.handler(&event)
		}
	}
}
