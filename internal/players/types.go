package players

import (
	"github.com/google/uuid"

	"github.com/glougarou/backend/internal/events"
	"github.com/glougarou/backend/internal/models"
)

// UpdatePlayerRequest is a shallow merge into a player row. Nil fields
// are left untouched. Each set field is validated, logged to the action
// log and queued for the relay inside one transaction.
type UpdatePlayerRequest struct {
	Role           *models.Role         `json:"role,omitempty"`
	Status         *models.PlayerStatus `json:"status,omitempty"`
	VoteTarget     *uuid.UUID           `json:"voteTarget,omitempty"`
	HasUsedAbility *bool                `json:"hasUsedAbility,omitempty"`
	LoverID        *uuid.UUID           `json:"loverId,omitempty"`
}

// ActionLog is one game_actions row to append alongside an update.
type ActionLog struct {
	ActionType models.ActionType
	TargetID   *uuid.UUID
	Data       []byte
}

// OutboxItem is one relay event to queue alongside an update.
type OutboxItem struct {
	Type    events.Type
	Payload []byte
}
