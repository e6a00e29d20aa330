package app

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/vancomm/minefield/internal/config"
	"github.com/vancomm/minefield/internal/handlers"
	"github.com/vancomm/minefield/internal/middleware"
	"github.com/vancomm/minefield/internal/mines"
	"github.com/vancomm/minefield/internal/store"
)

const (
	shutdownTimeout = 15 * time.Second
	pruneInterval   = time.Minute
	finishedTTL     = 10 * time.Minute
	idleTTL         = 24 * time.Hour
)

// Repository is everything the server needs from the database.
type Repository interface {
	handlers.Players
	handlers.Recorder
	handlers.Highscores
	handlers.Records
}

type App struct {
	cfg     *config.App
	logger  *slog.Logger
	events  *logrus.Logger
	repo    Repository
	cookies *config.Cookies
	ws      *config.WebSocket
	games   *store.Memory
	router  *http.ServeMux
}

// New wires the server. repo and cookies may be nil, the game endpoints then
// work without accounts, highscores or archived results.
func New(
	cfg *config.App,
	logger *slog.Logger,
	events *logrus.Logger,
	repo Repository,
	cookies *config.Cookies,
	ws *config.WebSocket,
) *App {
	app := &App{
		cfg:     cfg,
		logger:  logger,
		events:  events,
		repo:    repo,
		cookies: cookies,
		ws:      ws,
		games:   store.NewMemory(mines.DefaultParams()),
		router:  http.NewServeMux(),
	}
	app.loadRoutes()
	return app
}

func (a *App) Handler() http.Handler {
	var h http.Handler = a.router
	if a.cfg.BasePath != "" {
		mux := http.NewServeMux()
		mux.Handle(a.cfg.BasePath+"/", http.StripPrefix(a.cfg.BasePath, a.router))
		h = mux
	}
	mws := []middleware.Middleware{middleware.Cors(a.cfg.CorsOrigins), middleware.Logging(a.logger)}
	if a.cookies != nil {
		mws = append([]middleware.Middleware{middleware.Auth(a.logger, a.cookies)}, mws...)
	}
	return middleware.Wrap(h, mws...)
}

// Start serves until ctx is cancelled, then shuts down gracefully.
func (a *App) Start(ctx context.Context) error {
	server := &http.Server{
		Addr:         a.cfg.Addr,
		Handler:      a.Handler(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
		BaseContext: func(net.Listener) context.Context {
			return ctx
		},
	}

	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		a.logger.Info("server listening", slog.String("addr", a.cfg.Addr))
		err := server.ListenAndServe()
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	})
	g.Go(func() error {
		<-gCtx.Done()
		a.logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})
	g.Go(func() error {
		a.prune(gCtx)
		return nil
	})

	return g.Wait()
}

func (a *App) prune(ctx context.Context) {
	ticker := time.NewTicker(pruneInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			if n := a.games.Prune(now.Add(-finishedTTL), now.Add(-idleTTL)); n > 0 {
				a.logger.Debug("pruned sessions", slog.Int("count", n), slog.Int("left", a.games.Len()))
			}
		}
	}
}
