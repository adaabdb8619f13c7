package web

import (
	"fmt"
	"os"
	"strconv"
)

const (
	EnvListenAddr = "KINETYPE_LISTEN"
	EnvDevMode    = "KINETYPE_DEV"
)

// DefaultListenAddr is used when neither a flag nor KINETYPE_LISTEN is set.
const DefaultListenAddr = ":8080"

// ServerConfig contains settings for running the HTTP server.
type ServerConfig struct {
	ListenAddr string
	// DevMode enables permissive CORS so a separately served UI can call the API.
	DevMode bool
	// StaticDir, when set, replaces the embedded preview page.
	StaticDir string
}

func DefaultServerConfigFromEnv(defaultListenAddr string) (ServerConfig, error) {
	listenAddr := os.Getenv(EnvListenAddr)
	if listenAddr == "" {
		listenAddr = defaultListenAddr
	}

	devMode := false
	if raw := os.Getenv(EnvDevMode); raw != "" {
		parsed, err := strconv.ParseBool(raw)
		if err != nil {
			return ServerConfig{}, fmt.Errorf("%s must be a boolean (got %q): %w", EnvDevMode, raw, err)
		}
		devMode = parsed
	}

	return ServerConfig{ListenAddr: listenAddr, DevMode: devMode}, nil
}
