// Package config loads runtime settings from an optional .env file and
// ALTSIM_* environment variables.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"

	"github.com/talgya/alt-history/internal/game"
)

// Config holds everything main needs to wire the simulation.
type Config struct {
	DBPath      string
	APIPort     int
	AdminKey    string
	Seed        uint64 // 0 means non-deterministic
	Era         string // auto-start a new game when set with Country
	Country     string
	Difficulty  game.Difficulty
	AutosaveDay int // simulated days between autosaves, 0 disables
	LogLevel    slog.Level
}

// Defaults returns the configuration used when nothing is set.
func Defaults() Config {
	return Config{
		DBPath:      "data/altsim.db",
		APIPort:     8080,
		Difficulty:  game.DifficultyNormal,
		AutosaveDay: 30,
		LogLevel:    slog.LevelInfo,
	}
}

// Load reads files (default ".env") into the environment, then builds a
// Config from ALTSIM_* variables. Missing env files are not an error;
// variables already set in the process environment win.
func Load(files ...string) (Config, error) {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("load %s: %w", f, err)
		}
	}
	return FromEnv(os.LookupEnv)
}

// FromEnv builds a Config from a lookup function.
func FromEnv(lookup func(string) (string, bool)) (Config, error) {
	cfg := Defaults()
	get := func(key string) (string, bool) {
		v, ok := lookup("ALTSIM_" + key)
		v = strings.TrimSpace(v)
		return v, ok && v != ""
	}

	if v, ok := get("DB_PATH"); ok {
		cfg.DBPath = v
	}
	if v, ok := get("PORT"); ok {
		port, err := strconv.Atoi(v)
		if err != nil || port <= 0 || port > 65535 {
			return Config{}, fmt.Errorf("ALTSIM_PORT: invalid port %q", v)
		}
		cfg.APIPort = port
	}
	if v, ok := get("ADMIN_KEY"); ok {
		cfg.AdminKey = v
	}
	if v, ok := get("SEED"); ok {
		seed, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			return Config{}, fmt.Errorf("ALTSIM_SEED: %w", err)
		}
		cfg.Seed = seed
	}
	if v, ok := get("ERA"); ok {
		cfg.Era = v
	}
	if v, ok := get("COUNTRY"); ok {
		cfg.Country = v
	}
	if v, ok := get("DIFFICULTY"); ok {
		d := game.Difficulty(strings.ToLower(v))
		if !d.Valid() {
			return Config{}, fmt.Errorf("ALTSIM_DIFFICULTY: unknown difficulty %q", v)
		}
		cfg.Difficulty = d
	}
	if v, ok := get("AUTOSAVE_DAYS"); ok {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return Config{}, fmt.Errorf("ALTSIM_AUTOSAVE_DAYS: invalid value %q", v)
		}
		cfg.AutosaveDay = n
	}
	if v, ok := get("LOG_LEVEL"); ok {
		if err := cfg.LogLevel.UnmarshalText([]byte(v)); err != nil {
			return Config{}, fmt.Errorf("ALTSIM_LOG_LEVEL: %w", err)
		}
	}
	return cfg, nil
}

// AutoStart reports whether a game should be started on launch.
func (c Config) AutoStart() bool {
	return c.Era != "" && c.Country != ""
}

// Autosave reports whether an autosave is due after the given day.
func (c Config) Autosave(daysPassed int) bool {
	return c.AutosaveDay > 0 && daysPassed > 0 && daysPassed%c.AutosaveDay == 0
}
