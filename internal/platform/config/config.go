// Package config loads process configuration from the environment,
// with an optional .env file for local development.
package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config is everything the binaries need from the environment. Session
// parameters (players, roles, seed) are flags, not environment.
type Config struct {
	// Addr is the HTTP listen address for the server binary.
	Addr string `env:"ARENA_ADDR" envDefault:":8080"`

	// DBPath is the SQLite database file.
	DBPath string `env:"ARENA_DB_PATH" envDefault:"arena.db"`

	// LLM endpoint. Any OpenAI-compatible chat completions API works.
	LLMBaseURL string `env:"ARENA_LLM_BASE_URL" envDefault:"https://api.openai.com/v1"`
	LLMAPIKey  string `env:"ARENA_LLM_API_KEY"`
	LLMModel   string `env:"ARENA_LLM_MODEL" envDefault:"gpt-4o-mini"`
}

// Load reads .env if present, then the environment.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}
