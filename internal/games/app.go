package games

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/glougarou/backend/internal/apierror"
	"github.com/glougarou/backend/internal/models"
	"github.com/glougarou/backend/internal/roomcode"
	"github.com/glougarou/backend/internal/rules"
)

// GamesRepository defines what the app layer needs from data access.
type GamesRepository interface {
	CreateGameWithMaster(ctx context.Context, roomCode, masterName string, settings models.GameSettings) (*models.Game, *models.Player, error)
	GameByRoomCode(ctx context.Context, roomCode string) (*models.Game, error)
	GameByID(ctx context.Context, id uuid.UUID) (*models.Game, error)
	AddPlayer(ctx context.Context, game *models.Game, name string) (*models.Player, error)
	StartGame(ctx context.Context, game *models.Game, assignments map[string]models.Role) (*models.Game, error)
	ChangePhase(ctx context.Context, game *models.Game, playerID uuid.UUID, next models.Phase, night int) (*models.Game, error)
}

// App implements the game-level business rules: room creation, joins,
// game start and phase transitions. Invariants the persistence layer
// does not enforce (player caps, role-count sums, master-only actions,
// legal phase transitions) are checked here, at the write boundary.
type App struct {
	repo GamesRepository
}

// NewApp creates a new games application.
func NewApp(repo GamesRepository) *App {
	return &App{repo: repo}
}

// CreateGame opens a room and enrolls the creator as its game master.
// An empty room code gets a generated one.
func (a *App) CreateGame(ctx context.Context, req CreateGameRequest) (*models.Game, error) {
	if req.MasterName == "" {
		return nil, apierror.ValidationError{Msg: "playerName is required"}
	}

	code := roomcode.Normalize(req.RoomCode)
	generated := code == ""
	if generated {
		code = roomcode.Generate()
	}

	settings := models.DefaultGameSettings()
	if req.Settings != nil {
		settings = *req.Settings
		if settings.MinPlayers == 0 {
			settings.MinPlayers = models.DefaultGameSettings().MinPlayers
		}
	}

	if !generated {
		if _, err := a.repo.GameByRoomCode(ctx, code); err == nil {
			return nil, apierror.ConflictError{Msg: fmt.Sprintf("room code %s is already in use", code)}
		} else if !errors.Is(err, ErrNotFound) {
			return nil, apierror.UpstreamError{Msg: "failed to check room code", Cause: err}
		}
	}

	// The unique constraint is the real collision check; the lookup
	// above only gives a friendlier error for user-supplied codes. A
	// generated code that collides is simply rolled again.
	var game *models.Game
	for attempt := 0; ; attempt++ {
		var err error
		game, _, err = a.repo.CreateGameWithMaster(ctx, code, req.MasterName, settings)
		if err == nil {
			break
		}
		if !errors.Is(err, ErrRoomCodeTaken) {
			return nil, apierror.UpstreamError{Msg: "failed to create game", Cause: err}
		}
		if !generated {
			return nil, apierror.ConflictError{Msg: fmt.Sprintf("room code %s is already in use", code)}
		}
		if attempt >= 4 {
			return nil, apierror.UpstreamError{Msg: "failed to allocate a room code", Cause: err}
		}
		code = roomcode.Generate()
	}

	log.Info().
		Str("room_code", game.RoomCode).
		Str("game_id", game.ID.String()).
		Msg("game created")
	return game, nil
}

// ResolveGame looks a game up by room code, or by game id when the key
// parses as a UUID.
func (a *App) ResolveGame(ctx context.Context, key string) (*models.Game, error) {
	var game *models.Game
	var err error
	if id, parseErr := uuid.Parse(key); parseErr == nil {
		game, err = a.repo.GameByID(ctx, id)
	} else {
		game, err = a.repo.GameByRoomCode(ctx, roomcode.Normalize(key))
	}
	if errors.Is(err, ErrNotFound) {
		return nil, apierror.NotFoundError{Msg: fmt.Sprintf("game %s not found", key)}
	}
	if err != nil {
		return nil, apierror.UpstreamError{Msg: "failed to load game", Cause: err}
	}
	return game, nil
}

// JoinGame adds a named player to a waiting room.
func (a *App) JoinGame(ctx context.Context, req JoinGameRequest) (*models.Player, error) {
	if req.PlayerName == "" {
		return nil, apierror.ValidationError{Msg: "playerName is required"}
	}
	if req.RoomCode == "" {
		return nil, apierror.ValidationError{Msg: "roomCode is required"}
	}

	game, err := a.ResolveGame(ctx, req.RoomCode)
	if err != nil {
		return nil, err
	}
	if game.Phase != models.PhaseWaiting {
		return nil, apierror.ValidationError{Msg: "game has already started"}
	}

	player, err := a.repo.AddPlayer(ctx, game, req.PlayerName)
	if errors.Is(err, ErrRoomFull) {
		return nil, apierror.ValidationError{Msg: "room is full"}
	}
	if err != nil {
		return nil, apierror.UpstreamError{Msg: "failed to join game", Cause: err}
	}

	log.Info().
		Str("room_code", game.RoomCode).
		Str("player_id", player.ID.String()).
		Str("name", player.Name).
		Msg("player joined")
	return player, nil
}

// JoinGameByKey joins by room code or game id, for the path-scoped
// roster endpoint.
func (a *App) JoinGameByKey(ctx context.Context, key, playerName string) (*models.Player, error) {
	return a.JoinGame(ctx, JoinGameRequest{RoomCode: key, PlayerName: playerName})
}

// StartGame deals roles and flips a waiting game into preparation. Only
// the game master may start, and only with enough players at the table.
func (a *App) StartGame(ctx context.Context, req StartGameRequest) (*models.Game, error) {
	if req.PlayerID == "" {
		return nil, apierror.ValidationError{Msg: "playerId is required"}
	}

	game, err := a.ResolveGame(ctx, req.RoomCode)
	if err != nil {
		return nil, err
	}
	if game.Phase != models.PhaseWaiting {
		return nil, apierror.ValidationError{Msg: "game has already started"}
	}
	if req.PlayerID != game.GameMasterID.String() {
		return nil, apierror.ForbiddenError{Msg: "only the game master can start the game"}
	}

	minPlayers := game.Settings.MinPlayers
	if minPlayers < 3 {
		minPlayers = 3
	}
	if len(game.Players) < minPlayers {
		return nil, apierror.ValidationError{Msg: fmt.Sprintf("need at least %d players to start", minPlayers)}
	}

	assignments, err := rules.AssignRoles(game.Settings, game.Players)
	if err != nil {
		return nil, apierror.ValidationError{Msg: err.Error()}
	}

	started, err := a.repo.StartGame(ctx, game, assignments)
	if err != nil {
		return nil, apierror.UpstreamError{Msg: "failed to start game", Cause: err}
	}

	log.Info().
		Str("room_code", started.RoomCode).
		Int("players", len(started.Players)).
		Msg("game started")
	return started, nil
}

// ChangePhase moves the game to the requested phase. Transitions are
// checked against the phase machine and restricted to the game master.
// The night counter increments exactly when night begins.
func (a *App) ChangePhase(ctx context.Context, req ChangePhaseRequest) (*models.Game, error) {
	if req.Phase == "" {
		return nil, apierror.ValidationError{Msg: "phase is required"}
	}
	playerID, err := uuid.Parse(req.PlayerID)
	if err != nil {
		return nil, apierror.ValidationError{Msg: "playerId must be a valid id"}
	}

	game, err := a.ResolveGame(ctx, req.RoomCode)
	if err != nil {
		return nil, err
	}
	if playerID != game.GameMasterID {
		return nil, apierror.ForbiddenError{Msg: "only the game master can change the phase"}
	}
	if !rules.CanTransitionTo(game.Phase, req.Phase) {
		return nil, apierror.ValidationError{Msg: fmt.Sprintf("cannot transition from %s to %s", game.Phase, req.Phase)}
	}

	night := game.CurrentNight
	if rules.EntersNight(req.Phase) {
		night++
	}

	updated, err := a.repo.ChangePhase(ctx, game, playerID, req.Phase, night)
	if err != nil {
		return nil, apierror.UpstreamError{Msg: "failed to change phase", Cause: err}
	}
	return updated, nil
}
