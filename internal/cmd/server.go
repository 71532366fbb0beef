package main

import (
	"fmt"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/rs/cors"
	"github.com/rs/zerolog/log"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"github.com/glougarou/backend/internal/gateway"
)

func setupServer(cfg *Config, services *Services, ws *gateway.WebSocketHandler) *http.Server {
	router := mux.NewRouter()

	registerRoutes(router, services, ws)
	setupHealthCheck(router)

	allowedOrigins := cfg.Server.AllowedOrigins
	if len(allowedOrigins) == 0 {
		allowedOrigins = []string{"*"}
	}
	c := cors.New(cors.Options{
		AllowedMethods: []string{
			http.MethodHead,
			http.MethodGet,
			http.MethodPost,
			http.MethodPut,
			http.MethodPatch,
			http.MethodDelete,
		},
		AllowedOrigins: allowedOrigins,
		AllowedHeaders: []string{"*"},
	})
	handler := c.Handler(router)

	return &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.port()),
		Handler: h2c.NewHandler(handler, &http2.Server{}),
	}
}

func registerRoutes(router *mux.Router, services *Services, ws *gateway.WebSocketHandler) {
	api := router.PathPrefix("/api").Subrouter()

	// Games
	api.HandleFunc("/games", services.Games.HandleGames).Methods(http.MethodPost)
	api.HandleFunc("/games", services.Games.HandleListGames).Methods(http.MethodGet)
	api.HandleFunc("/games/{roomCode}", services.Games.HandleGetGame).Methods(http.MethodGet)
	api.HandleFunc("/games/{roomCode}/start", services.Games.HandleStartGame).Methods(http.MethodPost)
	api.HandleFunc("/games/{roomCode}/phase", services.Games.HandleChangePhase).Methods(http.MethodPost)
	api.HandleFunc("/games/{roomCode}/qr", services.Games.HandleQRCode).Methods(http.MethodGet)

	// Players
	api.HandleFunc("/games/{roomCode}/players", services.Players.HandleListPlayers).Methods(http.MethodGet)
	api.HandleFunc("/games/{roomCode}/players", services.Players.HandleAddPlayer).Methods(http.MethodPost)
	api.HandleFunc("/games/{roomCode}/players", services.Players.HandleBulkUpdatePlayers).Methods(http.MethodPut)
	api.HandleFunc("/players/{playerId}", services.Players.HandleGetPlayer).Methods(http.MethodGet)
	api.HandleFunc("/players/{playerId}", services.Players.HandlePatchPlayer).Methods(http.MethodPatch)

	// Actions
	api.HandleFunc("/games/{roomCode}/actions", services.Actions.HandleListActions).Methods(http.MethodGet)
	api.HandleFunc("/games/{roomCode}/actions", services.Actions.HandleAppendAction).Methods(http.MethodPost)

	// Realtime
	router.HandleFunc("/ws", ws.HandleRoomConnection)
	router.HandleFunc("/ws/stats", ws.HandleConnectionStats)
}

func setupHealthCheck(router *mux.Router) {
	router.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte("OK")); err != nil {
			log.Error().Err(err).Msg("failed to write health check response")
		}
	})
}
