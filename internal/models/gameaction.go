package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// ActionType identifies a logged player action.
type ActionType string

const (
	ActionTypeGameStarted ActionType = "game_started"
	ActionTypePhaseChange ActionType = "phase_change"
	ActionTypeVote        ActionType = "vote"
	ActionTypeNightAction ActionType = "night_action"
	ActionTypeUseAbility  ActionType = "use_ability"
	ActionTypeEliminate   ActionType = "eliminate"
	ActionTypeRevealRole  ActionType = "reveal_role"
)

// GameAction is an append-only audit record. It is written for history
// and never read back to reconstruct game state.
type GameAction struct {
	ID         uuid.UUID       `json:"id"`
	GameID     uuid.UUID       `json:"gameId"`
	PlayerID   uuid.UUID       `json:"playerId"`
	ActionType ActionType      `json:"actionType"`
	TargetID   *uuid.UUID      `json:"targetId,omitempty"`
	ActionData json.RawMessage `json:"actionData,omitempty"`
	CreatedAt  time.Time       `json:"created_at"`
}
