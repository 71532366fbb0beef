package players

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/glougarou/backend/internal/apierror"
	"github.com/glougarou/backend/internal/events"
	"github.com/glougarou/backend/internal/models"
)

// PlayersRepository defines what the app layer needs from data access.
type PlayersRepository interface {
	Player(ctx context.Context, id uuid.UUID) (*models.Player, error)
	ListByGame(ctx context.Context, gameID uuid.UUID) ([]models.Player, error)
	ApplyUpdate(ctx context.Context, roomCode string, player *models.Player, logs []ActionLog, items []OutboxItem) (*models.Player, error)
	PairLovers(ctx context.Context, a, b *models.Player) error
}

// GameResolver looks up the owning game, roster included.
type GameResolver interface {
	ResolveGame(ctx context.Context, key string) (*models.Game, error)
}

// App implements player-level business rules. Vote-target scoping,
// elimination, one-shot abilities and symmetric lover pairing are all
// validated here before anything is written.
type App struct {
	repo  PlayersRepository
	games GameResolver
}

// NewApp creates a new players application.
func NewApp(repo PlayersRepository, games GameResolver) *App {
	return &App{repo: repo, games: games}
}

// GetPlayer retrieves one player.
func (a *App) GetPlayer(ctx context.Context, playerID string) (*models.Player, error) {
	id, err := uuid.Parse(playerID)
	if err != nil {
		return nil, apierror.ValidationError{Msg: "playerId must be a valid id"}
	}
	player, err := a.repo.Player(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return nil, apierror.NotFoundError{Msg: fmt.Sprintf("player %s not found", playerID)}
	}
	if err != nil {
		return nil, apierror.UpstreamError{Msg: "failed to load player", Cause: err}
	}
	return player, nil
}

// ListForGame retrieves the roster of the game identified by key (room
// code or game id).
func (a *App) ListForGame(ctx context.Context, key string) ([]models.Player, error) {
	game, err := a.games.ResolveGame(ctx, key)
	if err != nil {
		return nil, err
	}
	return game.Players, nil
}

// PatchPlayer shallow-merges req into the player row. Every set field
// is validated against the owning game, and the matching action-log
// entries and relay events are written in the same transaction as the
// update.
func (a *App) PatchPlayer(ctx context.Context, playerID string, req UpdatePlayerRequest) (*models.Player, error) {
	player, err := a.GetPlayer(ctx, playerID)
	if err != nil {
		return nil, err
	}
	game, err := a.games.ResolveGame(ctx, player.GameID.String())
	if err != nil {
		return nil, err
	}

	if req.LoverID != nil {
		if req.Role != nil || req.Status != nil || req.VoteTarget != nil || req.HasUsedAbility != nil {
			return nil, apierror.ValidationError{Msg: "loverId cannot be combined with other updates"}
		}
		return a.pairLovers(ctx, game, player, *req.LoverID)
	}

	var logs []ActionLog
	var items []OutboxItem

	if req.VoteTarget != nil {
		target := findPlayer(game, *req.VoteTarget)
		if target == nil {
			return nil, apierror.ValidationError{Msg: "vote target must be a player in the same game"}
		}
		if !player.Alive() {
			return nil, apierror.ValidationError{Msg: "dead players cannot vote"}
		}
		if !target.Alive() {
			return nil, apierror.ValidationError{Msg: "vote target is not alive"}
		}
		if game.Phase != models.PhaseVoting && game.Phase != models.PhaseNight {
			return nil, apierror.ValidationError{Msg: fmt.Sprintf("voting is not allowed during %s", game.Phase)}
		}
		if game.Phase == models.PhaseNight && player.Role != models.RoleWerewolf {
			return nil, apierror.ValidationError{Msg: "only werewolves vote during the night"}
		}
		player.VoteTarget = req.VoteTarget

		payload, _ := json.Marshal(events.VotePayload{
			VoterID:  player.ID.String(),
			TargetID: target.ID.String(),
		})
		logs = append(logs, ActionLog{ActionType: models.ActionTypeVote, TargetID: req.VoteTarget, Data: payload})
		items = append(items, OutboxItem{Type: events.TypeVoteReceived, Payload: payload})
	}

	if req.Status != nil {
		if *req.Status != models.PlayerStatusDead && *req.Status != models.PlayerStatusEliminated && *req.Status != models.PlayerStatusAlive {
			return nil, apierror.ValidationError{Msg: fmt.Sprintf("invalid status %s", *req.Status)}
		}
		player.Status = *req.Status
		if *req.Status != models.PlayerStatusAlive {
			payload, _ := json.Marshal(events.PlayerEliminatedPayload{PlayerID: player.ID.String()})
			logs = append(logs, ActionLog{ActionType: models.ActionTypeEliminate, Data: payload})
			items = append(items, OutboxItem{Type: events.TypePlayerEliminated, Payload: payload})
		}
	}

	if req.Role != nil {
		player.Role = *req.Role
		payload, _ := json.Marshal(events.RoleRevealedPayload{
			PlayerID: player.ID.String(),
			Role:     *req.Role,
		})
		logs = append(logs, ActionLog{ActionType: models.ActionTypeRevealRole, Data: payload})
		items = append(items, OutboxItem{Type: events.TypeRoleRevealed, Payload: payload})
	}

	if req.HasUsedAbility != nil && *req.HasUsedAbility {
		if player.HasUsedAbility {
			return nil, apierror.ValidationError{Msg: "ability has already been used"}
		}
		player.HasUsedAbility = true
		payload, _ := json.Marshal(events.PlayerActionPayload{
			Action: json.RawMessage(fmt.Sprintf(`{"playerId":%q,"type":"use_ability"}`, player.ID)),
		})
		logs = append(logs, ActionLog{ActionType: models.ActionTypeUseAbility, Data: payload})
		items = append(items, OutboxItem{Type: events.TypePlayerActionReceived, Payload: payload})
	}

	updated, err := a.repo.ApplyUpdate(ctx, game.RoomCode, player, logs, items)
	if err != nil {
		return nil, apierror.UpstreamError{Msg: "failed to update player", Cause: err}
	}
	return updated, nil
}

func (a *App) pairLovers(ctx context.Context, game *models.Game, player *models.Player, loverID uuid.UUID) (*models.Player, error) {
	lover := findPlayer(game, loverID)
	if lover == nil {
		return nil, apierror.ValidationError{Msg: "lover must be a player in the same game"}
	}
	if lover.ID == player.ID {
		return nil, apierror.ValidationError{Msg: "a player cannot be their own lover"}
	}

	if err := a.repo.PairLovers(ctx, player, lover); err != nil {
		return nil, apierror.UpstreamError{Msg: "failed to pair lovers", Cause: err}
	}

	log.Info().
		Str("room_code", game.RoomCode).
		Str("player_id", player.ID.String()).
		Str("lover_id", lover.ID.String()).
		Msg("lovers paired")
	return a.GetPlayer(ctx, player.ID.String())
}

func findPlayer(game *models.Game, id uuid.UUID) *models.Player {
	for i := range game.Players {
		if game.Players[i].ID == id {
			return &game.Players[i]
		}
	}
	return nil
}
