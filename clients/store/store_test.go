package store

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/glougarou/backend/clients"
	"github.com/glougarou/backend/internal/events"
	"github.com/glougarou/backend/internal/models"
	"github.com/glougarou/backend/internal/rules"
)

// fakeAPI implements GameAPI against an in-memory game, applying the
// same mutations the server would.
type fakeAPI struct {
	game *models.Game
	err  error
}

func (f *fakeAPI) CreateGame(ctx context.Context, roomCode, masterName string, settings *models.GameSettings) (*models.Game, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.game, nil
}

func (f *fakeAPI) JoinGame(ctx context.Context, roomCode, name string) (*models.Player, error) {
	if f.err != nil {
		return nil, f.err
	}
	player := models.Player{
		ID:     uuid.New(),
		GameID: f.game.ID,
		Name:   name,
		Status: models.PlayerStatusAlive,
	}
	f.game.Players = append(f.game.Players, player)
	return &player, nil
}

func (f *fakeAPI) GetGame(ctx context.Context, key string) (*models.Game, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.game, nil
}

func (f *fakeAPI) StartGame(ctx context.Context, roomCode, playerID string) (*models.Game, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.game.Phase = models.PhasePreparation
	return f.game, nil
}

func (f *fakeAPI) ChangePhase(ctx context.Context, roomCode, playerID string, phase models.Phase) (*models.Game, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.game.Phase = phase
	if rules.EntersNight(phase) {
		f.game.CurrentNight++
	}
	return f.game, nil
}

func (f *fakeAPI) PatchPlayer(ctx context.Context, playerID string, patch clients.PlayerPatch) (*models.Player, error) {
	if f.err != nil {
		return nil, f.err
	}
	id, err := uuid.Parse(playerID)
	if err != nil {
		return nil, err
	}
	for i := range f.game.Players {
		if f.game.Players[i].ID != id {
			continue
		}
		p := &f.game.Players[i]
		if patch.Role != nil {
			p.Role = *patch.Role
		}
		if patch.Status != nil {
			p.Status = *patch.Status
		}
		if patch.VoteTarget != nil {
			p.VoteTarget = patch.VoteTarget
		}
		if patch.HasUsedAbility != nil {
			p.HasUsedAbility = *patch.HasUsedAbility
		}
		copied := *p
		return &copied, nil
	}
	return nil, clients.ErrNotFound
}

type sentEvent struct {
	roomCode string
	event    events.Type
	payload  interface{}
}

type fakeBroadcaster struct {
	sent []sentEvent
	err  error
}

func (f *fakeBroadcaster) Broadcast(roomCode string, event events.Type, payload interface{}) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, sentEvent{roomCode: roomCode, event: event, payload: payload})
	return nil
}

func newTestGame(n int) *models.Game {
	game := &models.Game{
		ID:       uuid.New(),
		RoomCode: "ABC234",
		Phase:    models.PhaseWaiting,
		Settings: models.DefaultGameSettings(),
	}
	for i := 0; i < n; i++ {
		player := models.Player{
			ID:     uuid.New(),
			GameID: game.ID,
			Name:   "player",
			Status: models.PlayerStatusAlive,
		}
		if i == 0 {
			player.IsGameMaster = true
			game.GameMasterID = player.ID
		}
		game.Players = append(game.Players, player)
	}
	return game
}

func setupStore(n int) (*GameStore, *fakeAPI, *fakeBroadcaster) {
	api := &fakeAPI{game: newTestGame(n)}
	relay := &fakeBroadcaster{}
	return NewGameStore(api, relay), api, relay
}

func TestCreateGameSetsMasterAsCurrentPlayer(t *testing.T) {
	s, api, _ := setupStore(1)

	require.NoError(t, s.CreateGame(context.Background(), "ABC234", "marie", nil))

	assert.Equal(t, api.game, s.CurrentGame())
	require.NotNil(t, s.CurrentPlayer())
	assert.True(t, s.CurrentPlayer().IsGameMaster)
	assert.False(t, s.Loading())
	assert.Empty(t, s.LastError())
}

func TestCreateGameRecordsError(t *testing.T) {
	s, api, _ := setupStore(1)
	api.err = errors.New("boom")

	err := s.CreateGame(context.Background(), "ABC234", "marie", nil)
	require.Error(t, err)
	assert.Nil(t, s.CurrentGame())
	assert.Equal(t, "boom", s.LastError())
	assert.False(t, s.Loading())
}

func TestJoinGameResyncsRoster(t *testing.T) {
	s, api, _ := setupStore(2)

	require.NoError(t, s.JoinGame(context.Background(), "ABC234", "paul"))

	require.NotNil(t, s.CurrentPlayer())
	assert.Equal(t, "paul", s.CurrentPlayer().Name)
	assert.Len(t, s.CurrentGame().Players, 3, "roster refetched after join")
	assert.Equal(t, api.game, s.CurrentGame())
}

func TestVoteRoundTrip(t *testing.T) {
	s, api, relay := setupStore(3)
	api.game.Phase = models.PhaseVoting
	require.NoError(t, s.JoinGame(context.Background(), "ABC234", "paul"))
	target := api.game.Players[0].ID

	require.NoError(t, s.Vote(context.Background(), target))

	require.Len(t, relay.sent, 1)
	assert.Equal(t, "ABC234", relay.sent[0].roomCode)
	assert.Equal(t, events.TypeVote, relay.sent[0].event)

	voter := s.CurrentPlayer()
	require.NotNil(t, voter.VoteTarget)
	assert.Equal(t, target, *voter.VoteTarget)
}

func TestUseAbility(t *testing.T) {
	s, _, relay := setupStore(3)
	require.NoError(t, s.JoinGame(context.Background(), "ABC234", "paul"))

	require.NoError(t, s.UseAbility(context.Background()))

	assert.True(t, s.CurrentPlayer().HasUsedAbility)
	require.Len(t, relay.sent, 1)
	assert.Equal(t, events.TypeNightAction, relay.sent[0].event)
}

func TestEliminatePlayer(t *testing.T) {
	s, api, relay := setupStore(3)
	require.NoError(t, s.CreateGame(context.Background(), "ABC234", "marie", nil))
	victim := api.game.Players[1].ID

	require.NoError(t, s.EliminatePlayer(context.Background(), victim))

	require.Len(t, relay.sent, 1)
	assert.Equal(t, events.TypePlayerEliminated, relay.sent[0].event)
	assert.Equal(t, models.PlayerStatusEliminated, s.CurrentGame().Players[1].Status)
}

func TestRevealRole(t *testing.T) {
	s, api, relay := setupStore(3)
	require.NoError(t, s.CreateGame(context.Background(), "ABC234", "marie", nil))
	playerID := api.game.Players[2].ID

	require.NoError(t, s.RevealRole(context.Background(), playerID, models.RoleWerewolf))

	require.Len(t, relay.sent, 1)
	assert.Equal(t, events.TypeRoleRevealed, relay.sent[0].event)
	assert.Equal(t, models.RoleWerewolf, s.CurrentGame().Players[2].Role)
}

func TestNextPhaseWalksFullCycle(t *testing.T) {
	s, _, relay := setupStore(3)
	require.NoError(t, s.CreateGame(context.Background(), "ABC234", "marie", nil))

	expected := []models.Phase{
		models.PhasePreparation,
		models.PhaseNight,
		models.PhaseDay,
		models.PhaseVoting,
		models.PhaseWaiting,
	}
	for _, phase := range expected {
		require.NoError(t, s.NextPhase(context.Background()))
		assert.Equal(t, phase, s.CurrentGame().Phase)
	}
	assert.Equal(t, 1, s.CurrentGame().CurrentNight, "one cycle crosses night once")
	assert.Len(t, relay.sent, len(expected))
	for _, sent := range relay.sent {
		assert.Equal(t, events.TypePhaseChange, sent.event)
	}
}

func TestBroadcastFailureIsRecordedNotReturned(t *testing.T) {
	s, api, relay := setupStore(3)
	api.game.Phase = models.PhaseVoting
	require.NoError(t, s.JoinGame(context.Background(), "ABC234", "paul"))
	relay.err = errors.New("relay down")

	require.NoError(t, s.Vote(context.Background(), api.game.Players[0].ID))
	assert.Equal(t, "relay down", s.LastError())
	require.NotNil(t, s.CurrentPlayer().VoteTarget, "the persisted vote still applies locally")
}

func TestResetGame(t *testing.T) {
	s, _, _ := setupStore(1)
	require.NoError(t, s.CreateGame(context.Background(), "ABC234", "marie", nil))

	s.ResetGame()

	assert.Nil(t, s.CurrentGame())
	assert.Nil(t, s.CurrentPlayer())
	assert.Empty(t, s.LastError())
}

func applyEvent(t *testing.T, s *GameStore, eventType events.Type, payload interface{}) {
	t.Helper()
	data, err := json.Marshal(payload)
	require.NoError(t, err)
	s.ApplyEvent(&events.GameEvent{
		ID:       uuid.New().String(),
		RoomCode: "ABC234",
		Type:     eventType,
		Data:     data,
	})
}

func TestApplyEventPhaseChanged(t *testing.T) {
	s, _, _ := setupStore(3)
	require.NoError(t, s.CreateGame(context.Background(), "ABC234", "marie", nil))

	applyEvent(t, s, events.TypePhaseChanged, events.PhaseChangedPayload{Phase: models.PhaseNight})
	assert.Equal(t, models.PhaseNight, s.CurrentGame().Phase)
	assert.Equal(t, 1, s.CurrentGame().CurrentNight)

	// A duplicate delivery of the same phase must not bump again.
	applyEvent(t, s, events.TypePhaseChanged, events.PhaseChangedPayload{Phase: models.PhaseNight})
	assert.Equal(t, 1, s.CurrentGame().CurrentNight)
}

func TestApplyEventVoteReceived(t *testing.T) {
	s, api, _ := setupStore(3)
	require.NoError(t, s.CreateGame(context.Background(), "ABC234", "marie", nil))
	voter, target := api.game.Players[1], api.game.Players[2]

	applyEvent(t, s, events.TypeVoteReceived, events.VotePayload{
		VoterID:  voter.ID.String(),
		TargetID: target.ID.String(),
	})

	got := s.CurrentGame().Players[1].VoteTarget
	require.NotNil(t, got)
	assert.Equal(t, target.ID, *got)
}

func TestApplyEventPlayerEliminated(t *testing.T) {
	s, api, _ := setupStore(3)
	require.NoError(t, s.CreateGame(context.Background(), "ABC234", "marie", nil))

	applyEvent(t, s, events.TypePlayerEliminated, events.PlayerEliminatedPayload{
		PlayerID: api.game.Players[0].ID.String(),
	})

	assert.Equal(t, models.PlayerStatusEliminated, s.CurrentGame().Players[0].Status)
	assert.Equal(t, models.PlayerStatusEliminated, s.CurrentPlayer().Status, "the current player snapshot tracks too")
}

func TestApplyEventRoleRevealed(t *testing.T) {
	s, api, _ := setupStore(3)
	require.NoError(t, s.CreateGame(context.Background(), "ABC234", "marie", nil))

	applyEvent(t, s, events.TypeRoleRevealed, events.RoleRevealedPayload{
		PlayerID: api.game.Players[1].ID.String(),
		Role:     models.RoleWerewolf,
	})

	assert.Equal(t, models.RoleWerewolf, s.CurrentGame().Players[1].Role)
}

func TestApplyEventGameStateUpdated(t *testing.T) {
	s, _, _ := setupStore(3)
	require.NoError(t, s.CreateGame(context.Background(), "ABC234", "marie", nil))
	masterID := s.CurrentPlayer().ID

	replacement := newTestGame(0)
	replacement.Phase = models.PhaseDay
	replacement.Players = []models.Player{{ID: masterID, Name: "marie", Role: models.RoleSeer, Status: models.PlayerStatusAlive}}

	applyEvent(t, s, events.TypeGameStateUpdated, events.GameStateUpdatedPayload{GameState: replacement})

	assert.Equal(t, models.PhaseDay, s.CurrentGame().Phase)
	assert.Equal(t, models.RoleSeer, s.CurrentPlayer().Role, "current player repointed into the new roster")
}

func TestApplyEventIgnoresUnknownAndMalformed(t *testing.T) {
	s, _, _ := setupStore(3)
	require.NoError(t, s.CreateGame(context.Background(), "ABC234", "marie", nil))
	before := s.CurrentGame().Phase

	s.ApplyEvent(&events.GameEvent{Type: "somethingElse", Data: []byte(`{}`)})
	s.ApplyEvent(&events.GameEvent{Type: events.TypePhaseChanged, Data: []byte(`{not json`)})
	s.ApplyEvent(&events.GameEvent{Type: events.TypeVoteReceived, Data: []byte(`{"voterId":"nope","targetId":"nope"}`)})

	assert.Equal(t, before, s.CurrentGame().Phase)
}
