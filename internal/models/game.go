package models

import (
	"time"

	"github.com/google/uuid"
)

// Phase defines the current stage of a game.
type Phase string

const (
	PhaseWaiting     Phase = "waiting"
	PhasePreparation Phase = "preparation"
	PhaseNight       Phase = "night"
	PhaseDay         Phase = "day"
	PhaseVoting      Phase = "voting"
	PhaseEnded       Phase = "ended"
)

// Game represents one game session. The room code doubles as the
// realtime channel key.
type Game struct {
	ID           uuid.UUID    `json:"id"`
	RoomCode     string       `json:"roomCode"`
	Phase        Phase        `json:"phase"`
	GameMasterID uuid.UUID    `json:"gameMasterId"`
	CurrentNight int          `json:"currentNight"`
	Settings     GameSettings `json:"settings"`
	Players      []Player     `json:"players,omitempty"`
	CreatedAt    time.Time    `json:"created_at"`
	UpdatedAt    time.Time    `json:"updated_at"`
}
