package events

import (
	"encoding/json"
	"time"
)

// Type names a realtime game event. Inbound types are what a client
// broadcasts; delivered types are what the other room members receive.
type Type string

// Inbound broadcast types.
const (
	TypeGameStateUpdated Type = "gameStateUpdated"
	TypePlayerAction     Type = "playerAction"
	TypeNightAction      Type = "nightAction"
	TypeVote             Type = "vote"
	TypePhaseChange      Type = "phaseChange"
	TypePlayerEliminated Type = "playerEliminated"
	TypeRoleRevealed     Type = "roleRevealed"
)

// Delivered types. Relay-originated membership events only ever appear
// on the delivery side.
const (
	TypePlayerJoined         Type = "playerJoined"
	TypePlayerLeft           Type = "playerLeft"
	TypePlayerActionReceived Type = "playerActionReceived"
	TypeNightActionReceived  Type = "nightActionReceived"
	TypeVoteReceived         Type = "voteReceived"
	TypePhaseChanged         Type = "phaseChanged"
)

// deliveredTypes maps an inbound broadcast type onto the type the rest
// of the room receives. Types absent from the map are not relayed.
var deliveredTypes = map[Type]Type{
	TypeGameStateUpdated: TypeGameStateUpdated,
	TypePlayerAction:     TypePlayerActionReceived,
	TypeNightAction:      TypeNightActionReceived,
	TypeVote:             TypeVoteReceived,
	TypePhaseChange:      TypePhaseChanged,
	TypePlayerEliminated: TypePlayerEliminated,
	TypeRoleRevealed:     TypeRoleRevealed,
}

// Delivered returns the delivery-side type for an inbound broadcast
// type, or ok=false when the type is not relayable.
func Delivered(inbound Type) (Type, bool) {
	t, ok := deliveredTypes[inbound]
	return t, ok
}

// GameEvent is the wire structure for every relayed event.
type GameEvent struct {
	ID        string          `json:"id"`
	RoomCode  string          `json:"room_code"`
	Type      Type            `json:"type"`
	Timestamp time.Time       `json:"timestamp"`
	Data      json.RawMessage `json:"data"`
}
