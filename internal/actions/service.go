package actions

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/glougarou/backend/internal/apierror"
	"github.com/glougarou/backend/internal/models"
)

// ActionsApp defines what the HTTP layer needs from the actions
// application.
type ActionsApp interface {
	ListActions(ctx context.Context, key string) ([]models.GameAction, error)
	AppendAction(ctx context.Context, key string, req AppendActionRequest) (*models.GameAction, error)
}

// Service exposes the action-log REST handlers.
type Service struct {
	app ActionsApp
}

// NewService creates the actions HTTP service.
func NewService(app ActionsApp) *Service {
	return &Service{app: app}
}

// HandleListActions handles GET /api/games/{roomCode}/actions.
func (s *Service) HandleListActions(w http.ResponseWriter, r *http.Request) {
	actions, err := s.app.ListActions(r.Context(), mux.Vars(r)["roomCode"])
	if err != nil {
		apierror.WriteError(w, err)
		return
	}
	apierror.WriteSuccess(w, http.StatusOK, actions)
}

// HandleAppendAction handles POST /api/games/{roomCode}/actions.
func (s *Service) HandleAppendAction(w http.ResponseWriter, r *http.Request) {
	var req AppendActionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apierror.WriteError(w, apierror.ValidationError{Msg: "invalid request body"})
		return
	}

	action, err := s.app.AppendAction(r.Context(), mux.Vars(r)["roomCode"], req)
	if err != nil {
		apierror.WriteError(w, err)
		return
	}
	apierror.WriteSuccess(w, http.StatusCreated, action)
}
