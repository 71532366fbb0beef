package players

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/glougarou/backend/internal/apierror"
	"github.com/glougarou/backend/internal/models"
)

// PlayersApp defines what the HTTP layer needs from the players
// application.
type PlayersApp interface {
	GetPlayer(ctx context.Context, playerID string) (*models.Player, error)
	ListForGame(ctx context.Context, key string) ([]models.Player, error)
	PatchPlayer(ctx context.Context, playerID string, req UpdatePlayerRequest) (*models.Player, error)
}

// Joiner is the slice of the games application the roster POST needs.
type Joiner interface {
	JoinGameByKey(ctx context.Context, key, playerName string) (*models.Player, error)
}

// Service exposes the player REST handlers.
type Service struct {
	app    PlayersApp
	joiner Joiner
}

// NewService creates the players HTTP service.
func NewService(app PlayersApp, joiner Joiner) *Service {
	return &Service{app: app, joiner: joiner}
}

// HandleListPlayers handles GET /api/games/{roomCode}/players.
func (s *Service) HandleListPlayers(w http.ResponseWriter, r *http.Request) {
	players, err := s.app.ListForGame(r.Context(), mux.Vars(r)["roomCode"])
	if err != nil {
		apierror.WriteError(w, err)
		return
	}
	apierror.WriteSuccess(w, http.StatusOK, players)
}

// HandleAddPlayer handles POST /api/games/{roomCode}/players, the
// path-scoped form of joining.
func (s *Service) HandleAddPlayer(w http.ResponseWriter, r *http.Request) {
	var body struct {
		PlayerName string `json:"playerName"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		apierror.WriteError(w, apierror.ValidationError{Msg: "invalid request body"})
		return
	}

	player, err := s.joiner.JoinGameByKey(r.Context(), mux.Vars(r)["roomCode"], body.PlayerName)
	if err != nil {
		apierror.WriteError(w, err)
		return
	}
	apierror.WriteSuccess(w, http.StatusCreated, player)
}

// HandleBulkUpdatePlayers handles PUT /api/games/{roomCode}/players. The
// body is a list of per-player patches; each patch runs through the same
// validation as PATCH /api/players/{playerId}.
func (s *Service) HandleBulkUpdatePlayers(w http.ResponseWriter, r *http.Request) {
	var body []struct {
		ID string `json:"id"`
		UpdatePlayerRequest
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		apierror.WriteError(w, apierror.ValidationError{Msg: "invalid request body"})
		return
	}

	updated := make([]models.Player, 0, len(body))
	for _, patch := range body {
		player, err := s.app.PatchPlayer(r.Context(), patch.ID, patch.UpdatePlayerRequest)
		if err != nil {
			apierror.WriteError(w, err)
			return
		}
		updated = append(updated, *player)
	}
	apierror.WriteSuccess(w, http.StatusOK, updated)
}

// HandleGetPlayer handles GET /api/players/{playerId}.
func (s *Service) HandleGetPlayer(w http.ResponseWriter, r *http.Request) {
	player, err := s.app.GetPlayer(r.Context(), mux.Vars(r)["playerId"])
	if err != nil {
		apierror.WriteError(w, err)
		return
	}
	apierror.WriteSuccess(w, http.StatusOK, player)
}

// HandlePatchPlayer handles PATCH /api/players/{playerId}.
func (s *Service) HandlePatchPlayer(w http.ResponseWriter, r *http.Request) {
	var req UpdatePlayerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apierror.WriteError(w, apierror.ValidationError{Msg: "invalid request body"})
		return
	}

	player, err := s.app.PatchPlayer(r.Context(), mux.Vars(r)["playerId"], req)
	if err != nil {
		apierror.WriteError(w, err)
		return
	}
	apierror.WriteSuccess(w, http.StatusOK, player)
}
