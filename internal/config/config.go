// Package config loads server settings from the environment.
// A .env file in the working directory is read first when present.
package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	"github.com/robalobadob/cardduel/apps/go-server/internal/engine"
	"github.com/robalobadob/cardduel/apps/go-server/internal/game"
)

// Config is everything main needs to start the server.
type Config struct {
	Port           string
	LogLevel       string
	DBPath         string // empty disables the results ledger and accounts
	JWTSecret      string
	JWTExpiresDays int
	CookieName     string
	ClientOrigin   string
	Production     bool
	Engine         engine.Config
}

// Load reads .env (if any) and the process environment.
func Load() Config {
	_ = godotenv.Load()
	return FromEnv()
}

// FromEnv reads the process environment only.
func FromEnv() Config {
	dbPath, ok := os.LookupEnv("DB_PATH")
	if !ok {
		dbPath = "./data/duel.db"
	}
	return Config{
		Port:           GetEnv("PORT", "5175"),
		LogLevel:       GetEnv("LOG_LEVEL", "info"),
		DBPath:         dbPath,
		JWTSecret:      GetEnv("JWT_SECRET", "dev_secret_change_me"),
		JWTExpiresDays: envInt("JWT_EXPIRES_DAYS", 14),
		CookieName:     GetEnv("COOKIE_NAME", "duel_token"),
		ClientOrigin:   GetEnv("CLIENT_ORIGIN", "http://localhost:5173"),
		Production:     os.Getenv("NODE_ENV") == "production",
		Engine: engine.Config{
			Rules: game.Rules{
				InitialHP: envPositive("INITIAL_HP", game.DefaultRules.InitialHP),
				HandSize:  envPositive("HAND_SIZE", game.DefaultRules.HandSize),
			},
			RevealDelay:   envMillis("REVEAL_DELAY_MS", engine.DefaultConfig.RevealDelay),
			NextTurnDelay: envMillis("NEXT_TURN_DELAY_MS", engine.DefaultConfig.NextTurnDelay),
		},
	}
}

// GetEnv returns the value of k or def if unset/empty.
func GetEnv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func envInt(k string, def int) int {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		log.Warn().Str("key", k).Str("value", v).Int("default", def).Msg("invalid integer, using default")
		return def
	}
	return n
}

// envPositive is envInt for settings where zero is unplayable.
func envPositive(k string, def int) int {
	n := envInt(k, def)
	if n < 1 {
		log.Warn().Str("key", k).Int("value", n).Int("default", def).Msg("value must be at least 1, using default")
		return def
	}
	return n
}

func envMillis(k string, def time.Duration) time.Duration {
	return time.Duration(envInt(k, int(def/time.Millisecond))) * time.Millisecond
}
