package games

import "github.com/glougarou/backend/internal/models"

// CreateGameRequest carries everything needed to open a room. The
// creator is enrolled as the game-master player row in the same
// transaction as the game insert.
type CreateGameRequest struct {
	RoomCode   string
	MasterName string
	Settings   *models.GameSettings
}

// JoinGameRequest adds a player to an existing waiting room.
type JoinGameRequest struct {
	RoomCode   string
	PlayerName string
}

// StartGameRequest flips a waiting game into preparation and deals roles.
type StartGameRequest struct {
	RoomCode string
	PlayerID string
}

// ChangePhaseRequest forces the game onto a specific phase.
type ChangePhaseRequest struct {
	RoomCode string
	PlayerID string
	Phase    models.Phase
}
