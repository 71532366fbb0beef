package models

import (
	"time"

	"github.com/google/uuid"
)

// Role defines a player's role in the game.
type Role string

const (
	RoleVillager Role = "villager"
	RoleWerewolf Role = "werewolf"
	RoleSeer     Role = "seer"
	RoleWitch    Role = "witch"
	RoleHunter   Role = "hunter"
	RoleCupid    Role = "cupid"
)

// PlayerStatus defines whether a player is still in the game.
type PlayerStatus string

const (
	PlayerStatusAlive      PlayerStatus = "alive"
	PlayerStatusDead       PlayerStatus = "dead"
	PlayerStatusEliminated PlayerStatus = "eliminated"
)

// Player represents a participant in a game. Players are never deleted;
// status transitions to eliminated instead.
type Player struct {
	ID             uuid.UUID    `json:"id"`
	GameID         uuid.UUID    `json:"gameId"`
	Name           string       `json:"name"`
	Role           Role         `json:"role"`
	Status         PlayerStatus `json:"status"`
	IsGameMaster   bool         `json:"isGameMaster"`
	IsLover        bool         `json:"isLover"`
	LoverID        *uuid.UUID   `json:"loverId,omitempty"`
	HasUsedAbility bool         `json:"hasUsedAbility"`
	VoteTarget     *uuid.UUID   `json:"voteTarget,omitempty"`
	CreatedAt      time.Time    `json:"created_at"`
	UpdatedAt      time.Time    `json:"updated_at"`
}

// Alive reports whether the player can still act.
func (p *Player) Alive() bool {
	return p.Status == PlayerStatusAlive
}
