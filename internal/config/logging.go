package config

import (
	"fmt"
	"os"
	"strconv"
)

// GameLog configures the rotating file the game event log is written to.
// An empty Filename keeps the event log on stderr only.
type GameLog struct {
	Filename   string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
}

func lookupInt(key string, fallback int) (int, error) {
	s, ok := os.LookupEnv(key)
	if !ok || s == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("unable to convert %s to int: %w", key, err)
	}
	return n, nil
}

func NewGameLog() (*GameLog, error) {
	var err error
	cfg := &GameLog{Filename: os.Getenv("GAME_LOG_FILE")}

	if cfg.MaxSizeMB, err = lookupInt("GAME_LOG_MAX_SIZE_MB", 50); err != nil {
		return nil, err
	}
	if cfg.MaxBackups, err = lookupInt("GAME_LOG_MAX_BACKUPS", 3); err != nil {
		return nil, err
	}
	if cfg.MaxAgeDays, err = lookupInt("GAME_LOG_MAX_AGE_DAYS", 28); err != nil {
		return nil, err
	}

	return cfg, nil
}
