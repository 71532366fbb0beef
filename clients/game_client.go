package clients

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"github.com/google/uuid"

	"github.com/glougarou/backend/internal/models"
)

// ErrNotFound is returned when a room code or player id does not
// resolve on the server.
var ErrNotFound = errors.New("not found")

// PlayerPatch is a shallow player update. Nil fields are untouched.
type PlayerPatch struct {
	Role           *models.Role         `json:"role,omitempty"`
	Status         *models.PlayerStatus `json:"status,omitempty"`
	VoteTarget     *uuid.UUID           `json:"voteTarget,omitempty"`
	HasUsedAbility *bool                `json:"hasUsedAbility,omitempty"`
	LoverID        *uuid.UUID           `json:"loverId,omitempty"`
}

// GameClient is the typed REST client for the game API.
type GameClient struct {
	base *BaseClient
}

// NewGameClient creates a game client against baseURL.
func NewGameClient(baseURL string) *GameClient {
	return &GameClient{base: NewBaseClient(baseURL)}
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
}

func decode[T any](body []byte, err error) (*T, error) {
	if err != nil {
		var statusErr *APIStatusError
		if errors.As(err, &statusErr) && statusErr.StatusCode == http.StatusNotFound {
			return nil, ErrNotFound
		}
		return nil, err
	}

	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("failed to decode response envelope: %w", err)
	}
	if !env.Success {
		return nil, errors.New(env.Error)
	}

	var out T
	if err := json.Unmarshal(env.Data, &out); err != nil {
		return nil, fmt.Errorf("failed to decode response data: %w", err)
	}
	return &out, nil
}

func marshalBody(v interface{}) *bytes.Reader {
	data, _ := json.Marshal(v)
	return bytes.NewReader(data)
}

// CreateGame opens a room. The creator is enrolled as the game master.
func (c *GameClient) CreateGame(ctx context.Context, roomCode, masterName string, settings *models.GameSettings) (*models.Game, error) {
	body := marshalBody(map[string]interface{}{
		"action":     "create",
		"roomCode":   roomCode,
		"playerName": masterName,
		"settings":   settings,
	})
	return decode[models.Game](c.base.Post(ctx, "/api/games", body))
}

// JoinGame adds a named player to a waiting room.
func (c *GameClient) JoinGame(ctx context.Context, roomCode, name string) (*models.Player, error) {
	body := marshalBody(map[string]interface{}{
		"action":     "join",
		"roomCode":   roomCode,
		"playerName": name,
	})
	return decode[models.Player](c.base.Post(ctx, "/api/games", body))
}

// GetGame fetches a game and its roster by room code or game id.
func (c *GameClient) GetGame(ctx context.Context, key string) (*models.Game, error) {
	return decode[models.Game](c.base.Get(ctx, "/api/games/"+url.PathEscape(key)))
}

// StartGame asks the server to deal roles and begin preparation.
func (c *GameClient) StartGame(ctx context.Context, roomCode, playerID string) (*models.Game, error) {
	body := marshalBody(map[string]string{"playerId": playerID})
	return decode[models.Game](c.base.Post(ctx, "/api/games/"+url.PathEscape(roomCode)+"/start", body))
}

// ChangePhase forces the game onto a specific phase. Game master only.
func (c *GameClient) ChangePhase(ctx context.Context, roomCode, playerID string, phase models.Phase) (*models.Game, error) {
	body := marshalBody(map[string]string{"playerId": playerID, "phase": string(phase)})
	return decode[models.Game](c.base.Post(ctx, "/api/games/"+url.PathEscape(roomCode)+"/phase", body))
}

// PatchPlayer applies a shallow update to one player.
func (c *GameClient) PatchPlayer(ctx context.Context, playerID string, patch PlayerPatch) (*models.Player, error) {
	return decode[models.Player](c.base.Patch(ctx, "/api/players/"+url.PathEscape(playerID), marshalBody(patch)))
}

// AppendAction appends one record to the game's action log.
func (c *GameClient) AppendAction(ctx context.Context, roomCode string, playerID, actionType string, data json.RawMessage) (*models.GameAction, error) {
	body := marshalBody(map[string]interface{}{
		"playerId":   playerID,
		"actionType": actionType,
		"actionData": data,
	})
	return decode[models.GameAction](c.base.Post(ctx, "/api/games/"+url.PathEscape(roomCode)+"/actions", body))
}
