package actions

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/glougarou/backend/internal/apierror"
	"github.com/glougarou/backend/internal/models"
)

type fakeActionsRepo struct {
	appended []models.GameAction
}

func (r *fakeActionsRepo) ListByGame(ctx context.Context, gameID uuid.UUID) ([]models.GameAction, error) {
	return r.appended, nil
}

func (r *fakeActionsRepo) Append(ctx context.Context, roomCode string, action models.GameAction) (*models.GameAction, error) {
	action.ID = uuid.New()
	r.appended = append(r.appended, action)
	return &action, nil
}

type fakeResolver struct {
	game *models.Game
}

func (f *fakeResolver) ResolveGame(ctx context.Context, key string) (*models.Game, error) {
	return f.game, nil
}

func setupActionsApp() (*App, *fakeActionsRepo, *models.Game) {
	game := &models.Game{
		ID:       uuid.New(),
		RoomCode: "ABC234",
		Phase:    models.PhaseNight,
		Players: []models.Player{
			{ID: uuid.New(), Status: models.PlayerStatusAlive},
			{ID: uuid.New(), Status: models.PlayerStatusAlive},
		},
	}
	repo := &fakeActionsRepo{}
	return NewApp(repo, &fakeResolver{game: game}), repo, game
}

func TestAppendAction(t *testing.T) {
	app, repo, game := setupActionsApp()

	inserted, err := app.AppendAction(context.Background(), "ABC234", AppendActionRequest{
		PlayerID:   game.Players[0].ID.String(),
		ActionType: string(models.ActionTypeNightAction),
		TargetID:   game.Players[1].ID.String(),
		ActionData: []byte(`{"kind":"devour"}`),
	})
	require.NoError(t, err)

	assert.Equal(t, game.ID, inserted.GameID)
	assert.Equal(t, models.ActionTypeNightAction, inserted.ActionType)
	require.NotNil(t, inserted.TargetID)
	assert.Equal(t, game.Players[1].ID, *inserted.TargetID)
	assert.Len(t, repo.appended, 1)
}

func TestAppendActionValidation(t *testing.T) {
	app, repo, game := setupActionsApp()

	tests := []struct {
		name string
		req  AppendActionRequest
	}{
		{"missing action type", AppendActionRequest{PlayerID: game.Players[0].ID.String()}},
		{"bad player id", AppendActionRequest{PlayerID: "nope", ActionType: "vote"}},
		{"player outside game", AppendActionRequest{PlayerID: uuid.New().String(), ActionType: "vote"}},
		{"target outside game", AppendActionRequest{
			PlayerID:   game.Players[0].ID.String(),
			ActionType: "vote",
			TargetID:   uuid.New().String(),
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := app.AppendAction(context.Background(), "ABC234", tt.req)
			var validation apierror.ValidationError
			assert.ErrorAs(t, err, &validation)
		})
	}
	assert.Empty(t, repo.appended)
}

func TestListActions(t *testing.T) {
	app, _, game := setupActionsApp()

	_, err := app.AppendAction(context.Background(), "ABC234", AppendActionRequest{
		PlayerID:   game.Players[0].ID.String(),
		ActionType: string(models.ActionTypeVote),
	})
	require.NoError(t, err)

	actions, err := app.ListActions(context.Background(), "ABC234")
	require.NoError(t, err)
	assert.Len(t, actions, 1)
}
