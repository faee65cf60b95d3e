package main

import (
	"github.com/rs/zerolog/log"

	"github.com/Nixie-Tech-LLC/salah/internal/config"
)

// loadEnvironment reads .env and the process environment, and exits when the
// server cannot run with what it found.
func loadEnvironment() *config.Config {
	if err := config.LoadDotEnv(); err != nil {
		log.Fatal().Err(err).Msg("failed to read .env")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	if err := cfg.RequireJWT(); err != nil {
		log.Fatal().Err(err).Msg("missing required environment variables")
	}
	return cfg
}
