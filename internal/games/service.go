package games

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/gorilla/mux"
	qrcode "github.com/skip2/go-qrcode"

	"github.com/glougarou/backend/internal/apierror"
	"github.com/glougarou/backend/internal/models"
)

// GamesApp defines what the HTTP layer needs from the games application.
type GamesApp interface {
	CreateGame(ctx context.Context, req CreateGameRequest) (*models.Game, error)
	ResolveGame(ctx context.Context, key string) (*models.Game, error)
	JoinGame(ctx context.Context, req JoinGameRequest) (*models.Player, error)
	StartGame(ctx context.Context, req StartGameRequest) (*models.Game, error)
	ChangePhase(ctx context.Context, req ChangePhaseRequest) (*models.Game, error)
}

// Service exposes the game REST handlers.
type Service struct {
	app       GamesApp
	publicURL string
}

// NewService creates the games HTTP service. publicURL is the externally
// visible base URL used for join links and QR codes.
func NewService(app GamesApp, publicURL string) *Service {
	return &Service{app: app, publicURL: publicURL}
}

type gamesRequest struct {
	Action     string               `json:"action"`
	RoomCode   string               `json:"roomCode"`
	PlayerName string               `json:"playerName,omitempty"`
	Settings   *models.GameSettings `json:"settings,omitempty"`
}

// HandleGames handles POST /api/games with {action: "create"|"join"}.
func (s *Service) HandleGames(w http.ResponseWriter, r *http.Request) {
	var req gamesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apierror.WriteError(w, apierror.ValidationError{Msg: "invalid request body"})
		return
	}

	switch req.Action {
	case "create":
		game, err := s.app.CreateGame(r.Context(), CreateGameRequest{
			RoomCode:   req.RoomCode,
			MasterName: req.PlayerName,
			Settings:   req.Settings,
		})
		if err != nil {
			apierror.WriteError(w, err)
			return
		}
		apierror.WriteSuccess(w, http.StatusCreated, game)

	case "join":
		player, err := s.app.JoinGame(r.Context(), JoinGameRequest{
			RoomCode:   req.RoomCode,
			PlayerName: req.PlayerName,
		})
		if err != nil {
			apierror.WriteError(w, err)
			return
		}
		apierror.WriteSuccess(w, http.StatusCreated, player)

	default:
		apierror.WriteError(w, apierror.ValidationError{Msg: `action must be "create" or "join"`})
	}
}

// HandleListGames handles GET /api/games?roomCode=.
func (s *Service) HandleListGames(w http.ResponseWriter, r *http.Request) {
	code := r.URL.Query().Get("roomCode")
	if code == "" {
		apierror.WriteError(w, apierror.ValidationError{Msg: "roomCode query parameter is required"})
		return
	}

	game, err := s.app.ResolveGame(r.Context(), code)
	if err != nil {
		apierror.WriteError(w, err)
		return
	}
	apierror.WriteSuccess(w, http.StatusOK, game)
}

// HandleGetGame handles GET /api/games/{roomCode}. The path segment also
// accepts a game id.
func (s *Service) HandleGetGame(w http.ResponseWriter, r *http.Request) {
	game, err := s.app.ResolveGame(r.Context(), mux.Vars(r)["roomCode"])
	if err != nil {
		apierror.WriteError(w, err)
		return
	}
	apierror.WriteSuccess(w, http.StatusOK, game)
}

// HandleStartGame handles POST /api/games/{roomCode}/start.
func (s *Service) HandleStartGame(w http.ResponseWriter, r *http.Request) {
	var body struct {
		PlayerID string `json:"playerId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		apierror.WriteError(w, apierror.ValidationError{Msg: "invalid request body"})
		return
	}

	game, err := s.app.StartGame(r.Context(), StartGameRequest{
		RoomCode: mux.Vars(r)["roomCode"],
		PlayerID: body.PlayerID,
	})
	if err != nil {
		apierror.WriteError(w, err)
		return
	}
	apierror.WriteSuccess(w, http.StatusOK, game)
}

// HandleChangePhase handles POST /api/games/{roomCode}/phase.
func (s *Service) HandleChangePhase(w http.ResponseWriter, r *http.Request) {
	var body struct {
		PlayerID string `json:"playerId"`
		Phase    string `json:"phase"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		apierror.WriteError(w, apierror.ValidationError{Msg: "invalid request body"})
		return
	}

	game, err := s.app.ChangePhase(r.Context(), ChangePhaseRequest{
		RoomCode: mux.Vars(r)["roomCode"],
		PlayerID: body.PlayerID,
		Phase:    models.Phase(body.Phase),
	})
	if err != nil {
		apierror.WriteError(w, err)
		return
	}
	apierror.WriteSuccess(w, http.StatusOK, game)
}

// HandleQRCode handles GET /api/games/{roomCode}/qr and returns a PNG
// QR code of the join URL.
func (s *Service) HandleQRCode(w http.ResponseWriter, r *http.Request) {
	game, err := s.app.ResolveGame(r.Context(), mux.Vars(r)["roomCode"])
	if err != nil {
		apierror.WriteError(w, err)
		return
	}

	joinURL := fmt.Sprintf("%s/join/%s", s.publicURL, game.RoomCode)
	png, err := qrcode.Encode(joinURL, qrcode.Medium, 256)
	if err != nil {
		apierror.WriteError(w, apierror.UpstreamError{Msg: "failed to render QR code", Cause: err})
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(png)
}
