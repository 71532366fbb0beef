package main

import (
	"database/sql"

	"github.com/glougarou/backend/internal/actions"
	"github.com/glougarou/backend/internal/games"
	"github.com/glougarou/backend/internal/players"
)

type Services struct {
	Games   *games.Service
	Players *players.Service
	Actions *actions.Service
}

func setupServices(database *sql.DB, publicURL string) *Services {
	// Wire up dependency injection chain
	// Database layer → Repository layer → App layer → Service layer

	// Games
	gamesRepo := games.NewRepository(database)
	gamesApp := games.NewApp(gamesRepo)
	gamesService := games.NewService(gamesApp, publicURL)

	// Players
	playersRepo := players.NewRepository(database)
	playersApp := players.NewApp(playersRepo, gamesApp)
	playersService := players.NewService(playersApp, gamesApp)

	// Actions
	actionsRepo := actions.NewRepository(database)
	actionsApp := actions.NewApp(actionsRepo, gamesApp)
	actionsService := actions.NewService(actionsApp)

	return &Services{
		Games:   gamesService,
		Players: playersService,
		Actions: actionsService,
	}
}
