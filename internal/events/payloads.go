package events

import (
	"encoding/json"

	"github.com/glougarou/backend/internal/models"
)

// Payload types shared between the gateway, the outbox and the client
// store.

// PlayerJoinedPayload notifies room members of a new connection.
type PlayerJoinedPayload struct {
	SocketID string `json:"socketId"`
}

// PlayerLeftPayload notifies room members of a departed connection.
type PlayerLeftPayload struct {
	SocketID string `json:"socketId"`
}

// GameStateUpdatedPayload replaces the receiver's game snapshot.
type GameStateUpdatedPayload struct {
	GameState *models.Game `json:"gameState"`
}

// PlayerActionPayload relays an arbitrary logged action.
type PlayerActionPayload struct {
	Action json.RawMessage `json:"action"`
}

// NightActionPayload relays a role-specific night action.
type NightActionPayload struct {
	PlayerID string          `json:"playerId"`
	Action   json.RawMessage `json:"action"`
}

// VotePayload relays a vote.
type VotePayload struct {
	VoterID  string `json:"voterId"`
	TargetID string `json:"targetId"`
}

// PhaseChangedPayload relays a phase transition.
type PhaseChangedPayload struct {
	Phase models.Phase `json:"phase"`
}

// PlayerEliminatedPayload relays an elimination.
type PlayerEliminatedPayload struct {
	PlayerID string `json:"playerId"`
}

// RoleRevealedPayload relays a role reveal.
type RoleRevealedPayload struct {
	PlayerID string      `json:"playerId"`
	Role     models.Role `json:"role"`
}
