package actions

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/glougarou/backend/internal/apierror"
	"github.com/glougarou/backend/internal/models"
)

// ActionsRepository defines what the app layer needs from data access.
type ActionsRepository interface {
	ListByGame(ctx context.Context, gameID uuid.UUID) ([]models.GameAction, error)
	Append(ctx context.Context, roomCode string, action models.GameAction) (*models.GameAction, error)
}

// GameResolver looks up the owning game.
type GameResolver interface {
	ResolveGame(ctx context.Context, key string) (*models.Game, error)
}

// AppendActionRequest is the POST body for the action log.
type AppendActionRequest struct {
	PlayerID   string          `json:"playerId"`
	ActionType string          `json:"actionType"`
	TargetID   string          `json:"targetId,omitempty"`
	ActionData json.RawMessage `json:"actionData,omitempty"`
}

// App implements the action-log rules: the acting player (and target,
// when present) must belong to the addressed game.
type App struct {
	repo  ActionsRepository
	games GameResolver
}

// NewApp creates a new actions application.
func NewApp(repo ActionsRepository, games GameResolver) *App {
	return &App{repo: repo, games: games}
}

// ListActions returns a game's full action history.
func (a *App) ListActions(ctx context.Context, key string) ([]models.GameAction, error) {
	game, err := a.games.ResolveGame(ctx, key)
	if err != nil {
		return nil, err
	}
	actions, err := a.repo.ListByGame(ctx, game.ID)
	if err != nil {
		return nil, apierror.UpstreamError{Msg: "failed to list actions", Cause: err}
	}
	return actions, nil
}

// AppendAction validates and appends one action record.
func (a *App) AppendAction(ctx context.Context, key string, req AppendActionRequest) (*models.GameAction, error) {
	if req.ActionType == "" {
		return nil, apierror.ValidationError{Msg: "actionType is required"}
	}
	playerID, err := uuid.Parse(req.PlayerID)
	if err != nil {
		return nil, apierror.ValidationError{Msg: "playerId must be a valid id"}
	}

	game, err := a.games.ResolveGame(ctx, key)
	if err != nil {
		return nil, err
	}
	if !inGame(game, playerID) {
		return nil, apierror.ValidationError{Msg: "player does not belong to this game"}
	}

	action := models.GameAction{
		GameID:     game.ID,
		PlayerID:   playerID,
		ActionType: models.ActionType(req.ActionType),
		ActionData: req.ActionData,
	}
	if req.TargetID != "" {
		targetID, err := uuid.Parse(req.TargetID)
		if err != nil {
			return nil, apierror.ValidationError{Msg: "targetId must be a valid id"}
		}
		if !inGame(game, targetID) {
			return nil, apierror.ValidationError{Msg: fmt.Sprintf("target %s does not belong to this game", req.TargetID)}
		}
		action.TargetID = &targetID
	}

	inserted, err := a.repo.Append(ctx, game.RoomCode, action)
	if err != nil {
		return nil, apierror.UpstreamError{Msg: "failed to append action", Cause: err}
	}
	return inserted, nil
}

func inGame(game *models.Game, id uuid.UUID) bool {
	for i := range game.Players {
		if game.Players[i].ID == id {
			return true
		}
	}
	return false
}
