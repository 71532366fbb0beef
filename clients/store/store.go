package store

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"

	"github.com/glougarou/backend/clients"
	"github.com/glougarou/backend/internal/events"
	"github.com/glougarou/backend/internal/models"
	"github.com/glougarou/backend/internal/rules"
)

// GameAPI is the REST side the store talks to. *clients.GameClient
// satisfies it.
type GameAPI interface {
	CreateGame(ctx context.Context, roomCode, masterName string, settings *models.GameSettings) (*models.Game, error)
	JoinGame(ctx context.Context, roomCode, name string) (*models.Player, error)
	GetGame(ctx context.Context, key string) (*models.Game, error)
	StartGame(ctx context.Context, roomCode, playerID string) (*models.Game, error)
	ChangePhase(ctx context.Context, roomCode, playerID string, phase models.Phase) (*models.Game, error)
	PatchPlayer(ctx context.Context, playerID string, patch clients.PlayerPatch) (*models.Player, error)
}

// Broadcaster is the realtime side. *clients.WSClient satisfies it.
// Broadcast failures are swallowed by the relay contract, so the store
// records them in lastError and moves on.
type Broadcaster interface {
	Broadcast(roomCode string, event events.Type, payload interface{}) error
}

// GameStore holds one participant's view of a game: the current game
// snapshot (roster included), the local player, a loading flag and the
// last error. It is an explicit dependency-injected container, not a
// process-wide singleton, and every mutation is mutex-guarded.
//
// Game mutations are authoritative round-trips: the REST call persists
// the change, the broadcast tells the rest of the room, and only then
// is the local snapshot updated.
type GameStore struct {
	mu    sync.Mutex
	api   GameAPI
	relay Broadcaster

	currentGame   *models.Game
	currentPlayer *models.Player
	loading       bool
	lastError     string
}

// NewGameStore creates a store over the given API and relay.
func NewGameStore(api GameAPI, relay Broadcaster) *GameStore {
	return &GameStore{api: api, relay: relay}
}

// CurrentGame returns the current game snapshot, nil before a create
// or join.
func (s *GameStore) CurrentGame() *models.Game {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.currentGame
}

// CurrentPlayer returns the local participant snapshot.
func (s *GameStore) CurrentPlayer() *models.Player {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.currentPlayer
}

// Loading reports whether a round-trip is in flight.
func (s *GameStore) Loading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loading
}

// LastError returns the last recorded error message, empty when the
// last operation succeeded.
func (s *GameStore) LastError() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastError
}

// SetCurrentGame unconditionally replaces the game snapshot.
func (s *GameStore) SetCurrentGame(game *models.Game) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.currentGame = game
}

// SetCurrentPlayer unconditionally replaces the player snapshot.
func (s *GameStore) SetCurrentPlayer(player *models.Player) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.currentPlayer = player
}

// ResetGame clears the store back to its initial state.
func (s *GameStore) ResetGame() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.currentGame = nil
	s.currentPlayer = nil
	s.loading = false
	s.lastError = ""
}

func (s *GameStore) begin() {
	s.mu.Lock()
	s.loading = true
	s.lastError = ""
	s.mu.Unlock()
}

func (s *GameStore) finish(err error) error {
	s.mu.Lock()
	s.loading = false
	if err != nil {
		s.lastError = err.Error()
	}
	s.mu.Unlock()
	return err
}

// CreateGame creates a room and folds the enrolled game-master row into
// both snapshots.
func (s *GameStore) CreateGame(ctx context.Context, roomCode, masterName string, settings *models.GameSettings) error {
	s.begin()
	game, err := s.api.CreateGame(ctx, roomCode, masterName, settings)
	if err != nil {
		return s.finish(err)
	}

	s.mu.Lock()
	s.currentGame = game
	for i := range game.Players {
		if game.Players[i].IsGameMaster {
			s.currentPlayer = &game.Players[i]
			break
		}
	}
	s.mu.Unlock()
	return s.finish(nil)
}

// JoinGame joins a room by code and resyncs the full roster, so the
// game snapshot includes the freshly added player.
func (s *GameStore) JoinGame(ctx context.Context, roomCode, name string) error {
	s.begin()
	player, err := s.api.JoinGame(ctx, roomCode, name)
	if err != nil {
		if errors.Is(err, clients.ErrNotFound) {
			return s.finish(clients.ErrNotFound)
		}
		return s.finish(err)
	}

	game, err := s.api.GetGame(ctx, roomCode)
	if err != nil {
		return s.finish(err)
	}

	s.mu.Lock()
	s.currentGame = game
	s.currentPlayer = player
	s.mu.Unlock()
	return s.finish(nil)
}

// StartGame asks the server to start the current game. Game master only.
func (s *GameStore) StartGame(ctx context.Context) error {
	game, player, err := s.snapshot()
	if err != nil {
		return s.finish(err)
	}

	s.begin()
	started, err := s.api.StartGame(ctx, game.RoomCode, player.ID.String())
	if err != nil {
		return s.finish(err)
	}
	s.SetCurrentGame(started)
	return s.finish(nil)
}

// Vote persists the local player's vote, broadcasts it to the room and
// applies it to the snapshot.
func (s *GameStore) Vote(ctx context.Context, targetID uuid.UUID) error {
	game, player, err := s.snapshot()
	if err != nil {
		return s.finish(err)
	}

	s.begin()
	updated, err := s.api.PatchPlayer(ctx, player.ID.String(), clients.PlayerPatch{VoteTarget: &targetID})
	if err != nil {
		return s.finish(err)
	}

	s.broadcast(game.RoomCode, events.TypeVote, events.VotePayload{
		VoterID:  player.ID.String(),
		TargetID: targetID.String(),
	})
	s.replacePlayer(updated)
	return s.finish(nil)
}

// UseAbility burns the local player's one-shot ability.
func (s *GameStore) UseAbility(ctx context.Context) error {
	game, player, err := s.snapshot()
	if err != nil {
		return s.finish(err)
	}

	s.begin()
	used := true
	updated, err := s.api.PatchPlayer(ctx, player.ID.String(), clients.PlayerPatch{HasUsedAbility: &used})
	if err != nil {
		return s.finish(err)
	}

	s.broadcast(game.RoomCode, events.TypeNightAction, events.NightActionPayload{
		PlayerID: player.ID.String(),
		Action:   []byte(`{"type":"use_ability"}`),
	})
	s.replacePlayer(updated)
	return s.finish(nil)
}

// EliminatePlayer marks a player eliminated and tells the room.
func (s *GameStore) EliminatePlayer(ctx context.Context, playerID uuid.UUID) error {
	game, _, err := s.snapshot()
	if err != nil {
		return s.finish(err)
	}

	s.begin()
	status := models.PlayerStatusEliminated
	updated, err := s.api.PatchPlayer(ctx, playerID.String(), clients.PlayerPatch{Status: &status})
	if err != nil {
		return s.finish(err)
	}

	s.broadcast(game.RoomCode, events.TypePlayerEliminated, events.PlayerEliminatedPayload{
		PlayerID: playerID.String(),
	})
	s.replacePlayer(updated)
	return s.finish(nil)
}

// RevealRole publishes a player's role to the room.
func (s *GameStore) RevealRole(ctx context.Context, playerID uuid.UUID, role models.Role) error {
	game, _, err := s.snapshot()
	if err != nil {
		return s.finish(err)
	}

	s.begin()
	updated, err := s.api.PatchPlayer(ctx, playerID.String(), clients.PlayerPatch{Role: &role})
	if err != nil {
		return s.finish(err)
	}

	s.broadcast(game.RoomCode, events.TypeRoleRevealed, events.RoleRevealedPayload{
		PlayerID: playerID.String(),
		Role:     role,
	})
	s.replacePlayer(updated)
	return s.finish(nil)
}

// NextPhase advances the game along the fixed cycle waiting →
// preparation → night → day → voting → waiting, bumping the night
// counter exactly when night begins.
func (s *GameStore) NextPhase(ctx context.Context) error {
	game, player, err := s.snapshot()
	if err != nil {
		return s.finish(err)
	}

	next := rules.Next(game.Phase)

	s.begin()
	updated, err := s.api.ChangePhase(ctx, game.RoomCode, player.ID.String(), next)
	if err != nil {
		return s.finish(err)
	}

	s.broadcast(game.RoomCode, events.TypePhaseChange, events.PhaseChangedPayload{Phase: next})
	s.SetCurrentGame(updated)
	return s.finish(nil)
}

// UpdatePlayer shallow-merges updates into the matching player
// snapshot. The realtime event handlers use it to fold remote changes
// into the local view.
func (s *GameStore) UpdatePlayer(playerID uuid.UUID, update func(p *models.Player)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.currentGame == nil {
		return
	}
	for i := range s.currentGame.Players {
		if s.currentGame.Players[i].ID == playerID {
			update(&s.currentGame.Players[i])
			break
		}
	}
	if s.currentPlayer != nil && s.currentPlayer.ID == playerID {
		update(s.currentPlayer)
	}
}

func (s *GameStore) snapshot() (*models.Game, *models.Player, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.currentGame == nil {
		return nil, nil, errors.New("no current game")
	}
	if s.currentPlayer == nil {
		return nil, nil, errors.New("no current player")
	}
	return s.currentGame, s.currentPlayer, nil
}

func (s *GameStore) broadcast(roomCode string, event events.Type, payload interface{}) {
	if s.relay == nil {
		return
	}
	if err := s.relay.Broadcast(roomCode, event, payload); err != nil {
		// Relay problems are not surfaced to the user, only recorded.
		s.mu.Lock()
		s.lastError = err.Error()
		s.mu.Unlock()
	}
}

func (s *GameStore) replacePlayer(updated *models.Player) {
	s.UpdatePlayer(updated.ID, func(p *models.Player) {
		*p = *updated
	})
}
