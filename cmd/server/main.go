package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/vancomm/minefield/internal/app"
	"github.com/vancomm/minefield/internal/config"
	"github.com/vancomm/minefield/internal/database"
	"github.com/vancomm/minefield/internal/logging"
	"github.com/vancomm/minefield/internal/mines"
	"github.com/vancomm/minefield/internal/repository"
	"github.com/vancomm/minefield/migrations"
)

func main() {
	if config.Development() {
		if err := godotenv.Load(); err != nil {
			slog.Warn("no .env loaded", slog.Any("error", err))
		}
	}

	cfg := config.NewApp()
	logger := logging.New(os.Stderr, cfg.Development)
	mines.Log = logger.With(slog.String("component", "mines"))

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	gameLog, err := config.NewGameLog()
	if err != nil {
		logger.Error("failed to read game log config", slog.Any("error", err))
		os.Exit(1)
	}
	events, err := logging.NewEventLog(gameLog, cfg.Development)
	if err != nil {
		logger.Error("failed to open game log", slog.Any("error", err))
		os.Exit(1)
	}

	jwt, err := config.NewJWT()
	if err != nil {
		logger.Error("failed to read jwt config", slog.Any("error", err))
		os.Exit(1)
	}
	cookies, err := config.NewCookies(jwt)
	if err != nil {
		logger.Error("failed to read cookies config", slog.Any("error", err))
		os.Exit(1)
	}

	db, migrator, err := database.ConnectAndMigrate(ctx, migrations.FS)
	if err != nil {
		logger.Error("failed to connect and migrate db", slog.Any("error", err))
		os.Exit(1)
	}
	defer db.Close()
	if version, dirty, err := migrator.Version(); err == nil {
		logger.Info("database migrated", slog.Uint64("version", uint64(version)), slog.Bool("dirty", dirty))
	}
	migrator.Close()

	a := app.New(cfg, logger, events, repository.New(db), cookies, config.NewWebSocket())
	if err := a.Start(ctx); err != nil {
		logger.Error("server stopped", slog.Any("error", err))
		os.Exit(1)
	}
}
