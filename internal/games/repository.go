package games

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/sqlc-dev/pqtype"

	"github.com/glougarou/backend/internal/events"
	"github.com/glougarou/backend/internal/gamedb"
	"github.com/glougarou/backend/internal/models"
	"github.com/glougarou/backend/internal/sqlutil"
)

// ErrRoomFull is returned when a join would exceed the configured
// player cap. No player row is created.
var ErrRoomFull = errors.New("room is full")

// ErrNotFound is returned when a room code or game id does not resolve.
var ErrNotFound = errors.New("game not found")

// ErrRoomCodeTaken is returned when the room-code unique constraint
// rejects an insert. The pre-insert lookup cannot catch a concurrent
// create, so the constraint is the authority.
var ErrRoomCodeTaken = errors.New("room code already taken")

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

// Repository implements game data access. Multi-row writes run inside a
// single transaction, including the outbox insert that feeds the relay.
type Repository struct {
	db      *sql.DB
	queries *gamedb.Queries
}

// NewRepository creates a new games repository.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{
		db:      db,
		queries: gamedb.New(db),
	}
}

// CreateGameWithMaster inserts the game and enrolls the creator as the
// game-master player row in the same transaction.
func (r *Repository) CreateGameWithMaster(ctx context.Context, roomCode, masterName string, settings models.GameSettings) (*models.Game, *models.Player, error) {
	settingsJSON, err := json.Marshal(settings)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to marshal game settings: %w", err)
	}

	var game gamedb.Game
	var master gamedb.Player
	err = sqlutil.Run(ctx, r.db, gamedb.NewTx, func(q *gamedb.Queries) error {
		game, err = q.CreateGame(ctx, gamedb.CreateGameParams{
			RoomCode: roomCode,
			Phase:    string(models.PhaseWaiting),
			Settings: settingsJSON,
		})
		if isUniqueViolation(err) {
			return ErrRoomCodeTaken
		}
		if err != nil {
			return fmt.Errorf("failed to create game: %w", err)
		}

		master, err = q.CreatePlayer(ctx, gamedb.CreatePlayerParams{
			GameID:       game.ID,
			Name:         masterName,
			Role:         string(models.RoleVillager),
			IsGameMaster: true,
		})
		if err != nil {
			return fmt.Errorf("failed to create game master player: %w", err)
		}

		game, err = q.UpdateGameMaster(ctx, game.ID, master.ID)
		if err != nil {
			return fmt.Errorf("failed to set game master: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	g := dbGameToModel(game)
	p := dbPlayerToModel(master)
	g.Players = []models.Player{*p}
	return g, p, nil
}

// GameByRoomCode retrieves a game and its roster by room code.
func (r *Repository) GameByRoomCode(ctx context.Context, roomCode string) (*models.Game, error) {
	game, err := r.queries.GetGameByRoomCode(ctx, roomCode)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get game by room code: %w", err)
	}
	return r.withPlayers(ctx, game)
}

// GameByID retrieves a game and its roster by id.
func (r *Repository) GameByID(ctx context.Context, id uuid.UUID) (*models.Game, error) {
	game, err := r.queries.GetGame(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get game: %w", err)
	}
	return r.withPlayers(ctx, game)
}

func (r *Repository) withPlayers(ctx context.Context, game gamedb.Game) (*models.Game, error) {
	players, err := r.queries.ListPlayersByGame(ctx, game.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list players: %w", err)
	}
	g := dbGameToModel(game)
	g.Players = dbPlayersToModels(players)
	return g, nil
}

// AddPlayer inserts a player row if the room has capacity left, and
// queues a roster update for the relay in the same transaction.
func (r *Repository) AddPlayer(ctx context.Context, game *models.Game, name string) (*models.Player, error) {
	var player gamedb.Player
	err := sqlutil.Run(ctx, r.db, gamedb.NewTx, func(q *gamedb.Queries) error {
		count, err := q.CountPlayersByGame(ctx, game.ID)
		if err != nil {
			return fmt.Errorf("failed to count players: %w", err)
		}
		if game.Settings.MaxPlayers > 0 && count >= int64(game.Settings.MaxPlayers) {
			return ErrRoomFull
		}

		player, err = q.CreatePlayer(ctx, gamedb.CreatePlayerParams{
			GameID: game.ID,
			Name:   name,
			Role:   string(models.RoleVillager),
		})
		if err != nil {
			return fmt.Errorf("failed to create player: %w", err)
		}

		return queueGameStateUpdate(ctx, q, game.RoomCode, game.ID)
	})
	if err != nil {
		return nil, err
	}
	return dbPlayerToModel(player), nil
}

// StartGame writes the dealt roles, flips the phase to preparation,
// logs the start action and queues the phase change, all in one
// transaction.
func (r *Repository) StartGame(ctx context.Context, game *models.Game, assignments map[string]models.Role) (*models.Game, error) {
	var updated gamedb.Game
	err := sqlutil.Run(ctx, r.db, gamedb.NewTx, func(q *gamedb.Queries) error {
		for i := range game.Players {
			p := &game.Players[i]
			role, ok := assignments[p.ID.String()]
			if !ok {
				continue
			}
			if _, err := q.UpdatePlayer(ctx, gamedb.UpdatePlayerParams{
				ID:             p.ID,
				Role:           string(role),
				Status:         string(models.PlayerStatusAlive),
				IsLover:        p.IsLover,
				LoverID:        toNullUUID(p.LoverID),
				HasUsedAbility: p.HasUsedAbility,
				VoteTarget:     toNullUUID(p.VoteTarget),
			}); err != nil {
				return fmt.Errorf("failed to assign role to player %s: %w", p.ID, err)
			}
		}

		var err error
		updated, err = q.UpdateGamePhase(ctx, gamedb.UpdateGamePhaseParams{
			ID:           game.ID,
			Phase:        string(models.PhasePreparation),
			CurrentNight: int32(game.CurrentNight),
		})
		if err != nil {
			return fmt.Errorf("failed to update game phase: %w", err)
		}

		if _, err := q.CreateGameAction(ctx, gamedb.CreateGameActionParams{
			GameID:     game.ID,
			PlayerID:   game.GameMasterID,
			ActionType: string(models.ActionTypeGameStarted),
		}); err != nil {
			return fmt.Errorf("failed to log game start: %w", err)
		}

		return queuePhaseChange(ctx, q, game.RoomCode, models.PhasePreparation)
	})
	if err != nil {
		return nil, err
	}
	return r.withPlayers(ctx, updated)
}

// ChangePhase writes the new phase and night counter, logs the change
// and queues the relay event in one transaction.
func (r *Repository) ChangePhase(ctx context.Context, game *models.Game, playerID uuid.UUID, next models.Phase, night int) (*models.Game, error) {
	var updated gamedb.Game
	err := sqlutil.Run(ctx, r.db, gamedb.NewTx, func(q *gamedb.Queries) error {
		var err error
		updated, err = q.UpdateGamePhase(ctx, gamedb.UpdateGamePhaseParams{
			ID:           game.ID,
			Phase:        string(next),
			CurrentNight: int32(night),
		})
		if err != nil {
			return fmt.Errorf("failed to update game phase: %w", err)
		}

		data, _ := json.Marshal(events.PhaseChangedPayload{Phase: next})
		if _, err := q.CreateGameAction(ctx, gamedb.CreateGameActionParams{
			GameID:     game.ID,
			PlayerID:   playerID,
			ActionType: string(models.ActionTypePhaseChange),
			ActionData: pqtype.NullRawMessage{RawMessage: data, Valid: true},
		}); err != nil {
			return fmt.Errorf("failed to log phase change: %w", err)
		}

		return queuePhaseChange(ctx, q, game.RoomCode, next)
	})
	if err != nil {
		return nil, err
	}
	return r.withPlayers(ctx, updated)
}

func queuePhaseChange(ctx context.Context, q *gamedb.Queries, roomCode string, phase models.Phase) error {
	payload, err := json.Marshal(events.PhaseChangedPayload{Phase: phase})
	if err != nil {
		return fmt.Errorf("failed to marshal phase change payload: %w", err)
	}
	if _, err := q.CreateOutboxEvent(ctx, gamedb.CreateOutboxEventParams{
		RoomCode:  roomCode,
		EventType: string(events.TypePhaseChanged),
		Payload:   payload,
	}); err != nil {
		return fmt.Errorf("failed to queue phase change event: %w", err)
	}
	return nil
}

func queueGameStateUpdate(ctx context.Context, q *gamedb.Queries, roomCode string, gameID uuid.UUID) error {
	game, err := q.GetGame(ctx, gameID)
	if err != nil {
		return fmt.Errorf("failed to reload game: %w", err)
	}
	players, err := q.ListPlayersByGame(ctx, gameID)
	if err != nil {
		return fmt.Errorf("failed to reload players: %w", err)
	}
	g := dbGameToModel(game)
	g.Players = dbPlayersToModels(players)

	payload, err := json.Marshal(events.GameStateUpdatedPayload{GameState: g})
	if err != nil {
		return fmt.Errorf("failed to marshal game state payload: %w", err)
	}
	if _, err := q.CreateOutboxEvent(ctx, gamedb.CreateOutboxEventParams{
		RoomCode:  roomCode,
		EventType: string(events.TypeGameStateUpdated),
		Payload:   payload,
	}); err != nil {
		return fmt.Errorf("failed to queue game state event: %w", err)
	}
	return nil
}

func dbGameToModel(g gamedb.Game) *models.Game {
	var settings models.GameSettings
	if len(g.Settings) > 0 {
		if err := json.Unmarshal(g.Settings, &settings); err != nil {
			settings = models.DefaultGameSettings()
		}
	}

	var masterID uuid.UUID
	if g.GameMasterID.Valid {
		masterID = g.GameMasterID.UUID
	}

	return &models.Game{
		ID:           g.ID,
		RoomCode:     g.RoomCode,
		Phase:        models.Phase(g.Phase),
		GameMasterID: masterID,
		CurrentNight: int(g.CurrentNight),
		Settings:     settings,
		CreatedAt:    g.CreatedAt,
		UpdatedAt:    g.UpdatedAt,
	}
}

func dbPlayerToModel(p gamedb.Player) *models.Player {
	return &models.Player{
		ID:             p.ID,
		GameID:         p.GameID,
		Name:           p.Name,
		Role:           models.Role(p.Role),
		Status:         models.PlayerStatus(p.Status),
		IsGameMaster:   p.IsGameMaster,
		IsLover:        p.IsLover,
		LoverID:        fromNullUUID(p.LoverID),
		HasUsedAbility: p.HasUsedAbility,
		VoteTarget:     fromNullUUID(p.VoteTarget),
		CreatedAt:      p.CreatedAt,
		UpdatedAt:      p.UpdatedAt,
	}
}

func dbPlayersToModels(dbPlayers []gamedb.Player) []models.Player {
	players := make([]models.Player, len(dbPlayers))
	for i, p := range dbPlayers {
		players[i] = *dbPlayerToModel(p)
	}
	return players
}

func toNullUUID(id *uuid.UUID) uuid.NullUUID {
	if id == nil {
		return uuid.NullUUID{}
	}
	return uuid.NullUUID{UUID: *id, Valid: true}
}

func fromNullUUID(id uuid.NullUUID) *uuid.UUID {
	if !id.Valid {
		return nil
	}
	u := id.UUID
	return &u
}
