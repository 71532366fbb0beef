package games

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/glougarou/backend/internal/apierror"
	"github.com/glougarou/backend/internal/models"
)

func newTestRouter() *mux.Router {
	service := NewService(NewApp(newFakeRepo()), "http://localhost:8080")
	router := mux.NewRouter()
	router.HandleFunc("/api/games", service.HandleGames).Methods(http.MethodPost)
	router.HandleFunc("/api/games", service.HandleListGames).Methods(http.MethodGet)
	router.HandleFunc("/api/games/{roomCode}", service.HandleGetGame).Methods(http.MethodGet)
	router.HandleFunc("/api/games/{roomCode}/start", service.HandleStartGame).Methods(http.MethodPost)
	router.HandleFunc("/api/games/{roomCode}/phase", service.HandleChangePhase).Methods(http.MethodPost)
	router.HandleFunc("/api/games/{roomCode}/qr", service.HandleQRCode).Methods(http.MethodGet)
	return router
}

func doJSON(t *testing.T, router *mux.Router, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	data, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(method, path, bytes.NewReader(data))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decodeGame(t *testing.T, rec *httptest.ResponseRecorder) *models.Game {
	t.Helper()
	var envelope struct {
		Success bool        `json:"success"`
		Data    models.Game `json:"data"`
		Error   string      `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	require.True(t, envelope.Success, "error: %s", envelope.Error)
	return &envelope.Data
}

func TestPostGamesCreate(t *testing.T) {
	router := newTestRouter()

	rec := doJSON(t, router, http.MethodPost, "/api/games", map[string]interface{}{
		"action":     "create",
		"roomCode":   "ABC234",
		"playerName": "marie",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	game := decodeGame(t, rec)
	assert.Equal(t, "ABC234", game.RoomCode)
	assert.Equal(t, models.PhaseWaiting, game.Phase)
	require.Len(t, game.Players, 1)
	assert.Equal(t, "marie", game.Players[0].Name)
}

func TestPostGamesJoin(t *testing.T) {
	router := newTestRouter()
	doJSON(t, router, http.MethodPost, "/api/games", map[string]interface{}{
		"action": "create", "roomCode": "ABC234", "playerName": "marie",
	})

	rec := doJSON(t, router, http.MethodPost, "/api/games", map[string]interface{}{
		"action": "join", "roomCode": "ABC234", "playerName": "paul",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	var envelope struct {
		Success bool          `json:"success"`
		Data    models.Player `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	require.True(t, envelope.Success)
	assert.Equal(t, "paul", envelope.Data.Name)
}

func TestPostGamesUnknownAction(t *testing.T) {
	router := newTestRouter()
	rec := doJSON(t, router, http.MethodPost, "/api/games", map[string]interface{}{"action": "explode"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetGameAndErrorEnvelope(t *testing.T) {
	router := newTestRouter()
	doJSON(t, router, http.MethodPost, "/api/games", map[string]interface{}{
		"action": "create", "roomCode": "ABC234", "playerName": "marie",
	})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/games/abc234", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	game := decodeGame(t, rec)
	assert.Equal(t, "ABC234", game.RoomCode, "lookup normalizes the room code")

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/games/ZZZZZZ", nil))
	require.Equal(t, http.StatusNotFound, rec.Code)

	var envelope apierror.APIResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	assert.False(t, envelope.Success)
	assert.NotEmpty(t, envelope.Error)
}

func TestStartAndChangePhaseOverHTTP(t *testing.T) {
	router := newTestRouter()

	rec := doJSON(t, router, http.MethodPost, "/api/games", map[string]interface{}{
		"action": "create", "roomCode": "ABC234", "playerName": "marie",
	})
	game := decodeGame(t, rec)
	for _, name := range []string{"paul", "jean"} {
		doJSON(t, router, http.MethodPost, "/api/games", map[string]interface{}{
			"action": "join", "roomCode": "ABC234", "playerName": name,
		})
	}

	rec = doJSON(t, router, http.MethodPost, "/api/games/ABC234/start", map[string]string{
		"playerId": game.GameMasterID.String(),
	})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, models.PhasePreparation, decodeGame(t, rec).Phase)

	rec = doJSON(t, router, http.MethodPost, "/api/games/ABC234/phase", map[string]string{
		"playerId": game.GameMasterID.String(),
		"phase":    "night",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	updated := decodeGame(t, rec)
	assert.Equal(t, models.PhaseNight, updated.Phase)
	assert.Equal(t, 1, updated.CurrentNight)

	// Skipping ahead is rejected and the phase stays put.
	rec = doJSON(t, router, http.MethodPost, "/api/games/ABC234/phase", map[string]string{
		"playerId": game.GameMasterID.String(),
		"phase":    "voting",
	})
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestQRCodeReturnsPNG(t *testing.T) {
	router := newTestRouter()
	doJSON(t, router, http.MethodPost, "/api/games", map[string]interface{}{
		"action": "create", "roomCode": "ABC234", "playerName": "marie",
	})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/games/ABC234/qr", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/png", rec.Header().Get("Content-Type"))
	assert.Equal(t, "\x89PNG", rec.Body.String()[:4])
}
