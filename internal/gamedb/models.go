package gamedb

import (
	"time"

	"github.com/google/uuid"
	"github.com/sqlc-dev/pqtype"
)

// Row types mirror the Postgres columns one to one. The repositories
// convert them to the application models.

type Game struct {
	ID           uuid.UUID
	RoomCode     string
	Phase        string
	GameMasterID uuid.NullUUID
	CurrentNight int32
	Settings     []byte
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

type Player struct {
	ID             uuid.UUID
	GameID         uuid.UUID
	Name           string
	Role           string
	Status         string
	IsGameMaster   bool
	IsLover        bool
	LoverID        uuid.NullUUID
	HasUsedAbility bool
	VoteTarget     uuid.NullUUID
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

type GameAction struct {
	ID         uuid.UUID
	GameID     uuid.UUID
	PlayerID   uuid.UUID
	ActionType string
	TargetID   uuid.NullUUID
	ActionData pqtype.NullRawMessage
	CreatedAt  time.Time
}

type OutboxEvent struct {
	ID        uuid.UUID
	RoomCode  string
	EventType string
	Payload   []byte
	CreatedAt time.Time
	SentAt    *time.Time
}
