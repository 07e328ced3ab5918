package config

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// LoadDotEnv loads environment variables from a .env file if present.
// Existing environment variables are not overwritten.
func LoadDotEnv(path string) error {
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	return godotenv.Load(path)
}

type Config struct {
	Bind        string
	Port        int
	DatabaseURL string
	// PublicURL is the externally reachable base URL used in join links
	// and QR codes. Falls back to the request host when empty.
	PublicURL string
	Verbose   bool
}

func Default() Config {
	return Config{
		Bind: "0.0.0.0",
		Port: 8080,
	}
}

// Load builds a Config from defaults overlaid with environment
// variables. Flag handling on top of this lives in cmd/server.
func Load() Config {
	cfg := Default()
	if raw := os.Getenv("GAMEKIT_BIND"); raw != "" {
		cfg.Bind = raw
	}
	if raw := os.Getenv("GAMEKIT_PORT"); raw != "" {
		if value, err := strconv.Atoi(raw); err == nil && value > 0 {
			cfg.Port = value
		}
	}
	if raw := os.Getenv("DATABASE_URL"); raw != "" {
		cfg.DatabaseURL = raw
	}
	if raw := os.Getenv("GAMEKIT_PUBLIC_URL"); raw != "" {
		cfg.PublicURL = raw
	}
	if raw := os.Getenv("GAMEKIT_VERBOSE"); raw != "" {
		if value, err := strconv.ParseBool(raw); err == nil {
			cfg.Verbose = value
		}
	}
	return cfg
}
