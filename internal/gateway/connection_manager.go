package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/glougarou/backend/internal/events"
)

// ConnectionManager is the realtime relay. It holds the in-memory map
// of room code to connected members and fans events out to them. It
// keeps no durable state of its own; a client that misses a broadcast
// refetches full state over REST.
type ConnectionManager struct {
	rooms map[string]map[*Connection]bool
	mu    sync.RWMutex

	upgrader websocket.Upgrader
	config   ConnectionConfig
	clock    clockwork.Clock

	broadcastCh chan broadcastMessage
}

// Connection represents one WebSocket client. A connection may join any
// number of rooms; membership is tracked on both sides of the map.
type Connection struct {
	ID       string
	PlayerID string
	Conn     *websocket.Conn
	Send     chan []byte
	Manager  *ConnectionManager

	rooms  map[string]bool
	closed bool

	ConnectedAt time.Time
	LastPing    time.Time
}

// ConnectionConfig holds configuration for WebSocket connections.
type ConnectionConfig struct {
	WriteTimeout    time.Duration
	ReadTimeout     time.Duration
	PingInterval    time.Duration
	MaxMessageSize  int64
	ReadBufferSize  int
	WriteBufferSize int
	CheckOrigin     func(r *http.Request) bool
}

// broadcastMessage carries a pre-marshaled event and the membership
// snapshot taken when the broadcast was requested. Connections that
// join later never see it.
type broadcastMessage struct {
	targets []*Connection
	data    []byte
	event   events.Type
	room    string
}

// DefaultConnectionConfig returns default WebSocket configuration.
func DefaultConnectionConfig() ConnectionConfig {
	return ConnectionConfig{
		WriteTimeout:    10 * time.Second,
		ReadTimeout:     60 * time.Second,
		PingInterval:    30 * time.Second,
		MaxMessageSize:  16 * 1024,
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			// Allow all origins in development - restrict in production
			return true
		},
	}
}

// NewConnectionManager creates a new relay.
func NewConnectionManager(config ConnectionConfig, clock clockwork.Clock) *ConnectionManager {
	return &ConnectionManager{
		rooms: make(map[string]map[*Connection]bool),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  config.ReadBufferSize,
			WriteBufferSize: config.WriteBufferSize,
			CheckOrigin:     config.CheckOrigin,
		},
		config:      config,
		clock:       clock,
		broadcastCh: make(chan broadcastMessage, 1000),
	}
}

// Start begins processing queued broadcasts until ctx is cancelled.
func (cm *ConnectionManager) Start(ctx context.Context) {
	log.Info().Msg("connection manager started")

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("connection manager shutting down")
			return
		case message := <-cm.broadcastCh:
			cm.deliver(message)
		}
	}
}

// UpgradeConnection upgrades an HTTP request to a WebSocket connection
// and joins it to roomCode.
func (cm *ConnectionManager) UpgradeConnection(w http.ResponseWriter, r *http.Request, playerID, roomCode string) error {
	conn, err := cm.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Error().Err(err).Msg("failed to upgrade WebSocket connection")
		return fmt.Errorf("failed to upgrade connection: %w", err)
	}

	connection := &Connection{
		ID:          uuid.New().String(),
		PlayerID:    playerID,
		Conn:        conn,
		Send:        make(chan []byte, 256),
		Manager:     cm,
		rooms:       make(map[string]bool),
		ConnectedAt: cm.clock.Now(),
		LastPing:    cm.clock.Now(),
	}

	cm.JoinRoom(connection, roomCode)

	go connection.writePump()
	go connection.readPump()

	log.Info().
		Str("connection_id", connection.ID).
		Str("player_id", playerID).
		Str("room_code", roomCode).
		Msg("WebSocket connection established")
	return nil
}

// JoinRoom associates conn with roomCode. The room is created
// implicitly on first join; there is no capacity check and no
// acknowledgement. Other members receive playerJoined.
func (cm *ConnectionManager) JoinRoom(conn *Connection, roomCode string) {
	cm.mu.Lock()
	if cm.rooms[roomCode] == nil {
		cm.rooms[roomCode] = make(map[*Connection]bool)
	}
	cm.rooms[roomCode][conn] = true
	conn.rooms[roomCode] = true
	total := len(cm.rooms[roomCode])
	cm.mu.Unlock()

	log.Debug().
		Str("connection_id", conn.ID).
		Str("room_code", roomCode).
		Int("total_connections", total).
		Msg("connection joined room")

	cm.notifyRoom(roomCode, conn, events.TypePlayerJoined, events.PlayerJoinedPayload{SocketID: conn.ID})
}

// LeaveRoom removes conn from roomCode and discards the room when it
// becomes empty. Other members receive playerLeft.
func (cm *ConnectionManager) LeaveRoom(conn *Connection, roomCode string) {
	cm.mu.Lock()
	members, exists := cm.rooms[roomCode]
	if !exists || !members[conn] {
		cm.mu.Unlock()
		return
	}
	delete(members, conn)
	delete(conn.rooms, roomCode)
	if len(members) == 0 {
		delete(cm.rooms, roomCode)
	}
	cm.mu.Unlock()

	log.Debug().
		Str("connection_id", conn.ID).
		Str("room_code", roomCode).
		Msg("connection left room")

	cm.notifyRoom(roomCode, conn, events.TypePlayerLeft, events.PlayerLeftPayload{SocketID: conn.ID})
}

// disconnect removes conn from every room it had joined, emitting one
// playerLeft per room, and closes its send channel.
func (cm *ConnectionManager) disconnect(conn *Connection) {
	cm.mu.Lock()
	if conn.closed {
		cm.mu.Unlock()
		return
	}
	conn.closed = true
	joined := make([]string, 0, len(conn.rooms))
	for roomCode := range conn.rooms {
		joined = append(joined, roomCode)
	}
	cm.mu.Unlock()

	for _, roomCode := range joined {
		cm.LeaveRoom(conn, roomCode)
	}
	close(conn.Send)

	log.Info().
		Str("connection_id", conn.ID).
		Str("player_id", conn.PlayerID).
		Msg("connection disconnected")
}

// Broadcast delivers event to every member of roomCode other than
// sender. Delivery is at-most-once and fire-and-forget: the membership
// snapshot is taken now, nothing is buffered for later joiners, and
// nobody acknowledges. sender may be nil for server-originated events.
func (cm *ConnectionManager) Broadcast(roomCode string, event *events.GameEvent, sender *Connection) {
	targets := cm.snapshotTargets(roomCode, sender)
	if len(targets) == 0 {
		// Empty room is a silent no-op.
		return
	}

	data, err := json.Marshal(event)
	if err != nil {
		log.Error().Err(err).Msg("failed to marshal event for broadcast")
		return
	}

	select {
	case cm.broadcastCh <- broadcastMessage{targets: targets, data: data, event: event.Type, room: roomCode}:
	default:
		log.Warn().Str("room_code", roomCode).Msg("broadcast channel full, dropping message")
	}
}

func (cm *ConnectionManager) notifyRoom(roomCode string, exclude *Connection, eventType events.Type, payload interface{}) {
	data, err := json.Marshal(payload)
	if err != nil {
		log.Error().Err(err).Msg("failed to marshal membership payload")
		return
	}
	cm.Broadcast(roomCode, &events.GameEvent{
		ID:        uuid.New().String(),
		RoomCode:  roomCode,
		Type:      eventType,
		Timestamp: cm.clock.Now(),
		Data:      data,
	}, exclude)
}

func (cm *ConnectionManager) snapshotTargets(roomCode string, sender *Connection) []*Connection {
	cm.mu.RLock()
	defer cm.mu.RUnlock()

	members, exists := cm.rooms[roomCode]
	if !exists {
		return nil
	}
	targets := make([]*Connection, 0, len(members))
	for conn := range members {
		if conn == sender {
			continue
		}
		targets = append(targets, conn)
	}
	return targets
}

// deliver fans a queued broadcast out to its snapshot of targets.
func (cm *ConnectionManager) deliver(message broadcastMessage) {
	sent := 0
	for _, conn := range message.targets {
		// The send happens under the read lock: disconnect closes
		// conn.Send only after taking the write lock and setting
		// closed, so a send can never race the close.
		cm.mu.RLock()
		stillMember := conn.rooms[message.room] && !conn.closed
		delivered := false
		if stillMember {
			select {
			case conn.Send <- message.data:
				delivered = true
			default:
			}
		}
		cm.mu.RUnlock()

		if !stillMember {
			continue
		}
		if delivered {
			sent++
			continue
		}

		// Slow or dead consumer, drop the connection.
		log.Warn().
			Str("connection_id", conn.ID).
			Msg("connection send buffer full, closing connection")
		cm.disconnect(conn)
		if conn.Conn != nil {
			conn.Conn.Close()
		}
	}

	log.Debug().
		Str("event_type", string(message.event)).
		Str("room_code", message.room).
		Int("connections", sent).
		Msg("event broadcasted")
}

// RoomSize returns the current member count of a room.
func (cm *ConnectionManager) RoomSize(roomCode string) int {
	cm.mu.RLock()
	defer cm.mu.RUnlock()
	return len(cm.rooms[roomCode])
}

// Stats returns per-room connection counts.
func (cm *ConnectionManager) Stats() map[string]interface{} {
	cm.mu.RLock()
	defer cm.mu.RUnlock()

	total := 0
	roomCounts := make(map[string]int)
	for roomCode, members := range cm.rooms {
		roomCounts[roomCode] = len(members)
		total += len(members)
	}
	return map[string]interface{}{
		"total_connections": total,
		"active_rooms":      len(cm.rooms),
		"room_connections":  roomCounts,
	}
}

// writePump sends queued messages and pings to the WebSocket.
func (c *Connection) writePump() {
	ticker := c.Manager.clock.NewTicker(c.Manager.config.PingInterval)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(c.Manager.config.WriteTimeout))
			if !ok {
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				log.Error().
					Err(err).
					Str("connection_id", c.ID).
					Msg("failed to write message to WebSocket")
				return
			}

		case <-ticker.Chan():
			c.Conn.SetWriteDeadline(time.Now().Add(c.Manager.config.WriteTimeout))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
			c.LastPing = c.Manager.clock.Now()
		}
	}
}

// readPump reads client frames until the connection drops, then cleans
// up membership.
func (c *Connection) readPump() {
	defer func() {
		c.Manager.disconnect(c)
		c.Conn.Close()
	}()

	c.Conn.SetReadLimit(c.Manager.config.MaxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(c.Manager.config.ReadTimeout))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(c.Manager.config.ReadTimeout))
		c.LastPing = c.Manager.clock.Now()
		return nil
	})

	for {
		_, message, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Error().
					Err(err).
					Str("connection_id", c.ID).
					Msg("unexpected WebSocket close error")
			}
			break
		}

		c.handleClientMessage(message)
		c.Conn.SetReadDeadline(time.Now().Add(c.Manager.config.ReadTimeout))
	}
}
