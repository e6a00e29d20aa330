package app

import (
	"github.com/vancomm/minefield/internal/handlers"
)

func (a *App) loadRoutes() {
	var recorder handlers.Recorder
	if a.repo != nil {
		recorder = a.repo
	}
	game := handlers.NewGameHandler(a.logger, a.events, a.games, recorder, a.ws)

	a.router.HandleFunc("POST /game", game.NewGame)
	a.router.HandleFunc("GET /game/{id}", game.Fetch)
	a.router.HandleFunc("POST /game/{id}/move", game.MakeAMove)
	a.router.HandleFunc("POST /game/{id}/reset", game.Reset)
	a.router.HandleFunc("POST /game/{id}/forfeit", game.Forfeit)
	a.router.HandleFunc("GET /game/{id}/connect", game.ConnectWS)

	if a.repo == nil {
		return
	}

	auth := handlers.NewAuth(a.logger, a.repo, a.cookies)
	a.router.HandleFunc("GET /auth/status", auth.Status)
	a.router.HandleFunc("POST /auth/register", auth.Register)
	a.router.HandleFunc("POST /auth/login", auth.Login)
	a.router.HandleFunc("POST /auth/logout", auth.Logout)

	highscores := handlers.NewHighscoreHandler(a.logger, a.repo)
	a.router.HandleFunc("GET /highscores", highscores.Fetch)

	records := handlers.NewRecordHandler(a.logger, a.repo)
	a.router.HandleFunc("GET /records/{id}", records.Fetch)
}
