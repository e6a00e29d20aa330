package config

import (
	"os"
	"strings"
)

const defaultAddr = ":8080"

type App struct {
	Addr        string
	BasePath    string
	Development bool
	// CorsOrigins lists the origins allowed to call the API, all when empty.
	CorsOrigins []string
}

func NewApp() *App {
	addr, ok := os.LookupEnv("APP_PORT")
	if !ok || addr == "" {
		addr = defaultAddr
	} else if !strings.Contains(addr, ":") {
		addr = ":" + addr
	}

	return &App{
		Addr:        addr,
		BasePath:    os.Getenv("APP_BASE_PATH"),
		Development: Development(),
		CorsOrigins: splitList(os.Getenv("CORS_ORIGINS")),
	}
}

func Development() bool {
	development, ok := os.LookupEnv("DEVELOPMENT")
	if !ok {
		return false
	}
	return development != "0"
}

func splitList(s string) []string {
	var items []string
	for _, item := range strings.Split(s, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	return items
}
