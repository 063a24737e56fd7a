// Command seed provisions the admin account the dashboard logs in with.
// Safe to re-run: an existing email is left untouched.
package main

import (
	"context"
	"errors"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/modastyle/backend/internal/config"
	"github.com/modastyle/backend/internal/db"
	"github.com/modastyle/backend/internal/user"
)

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	cfg, err := config.Load(".env")
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load config")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	dbConn, err := db.New(ctx, cfg.Postgres)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer dbConn.Close()

	if err := db.MigrateUp(cfg.Postgres); err != nil {
		log.Fatal().Err(err).Msg("Failed to run migrations")
	}

	email := envOr("ADMIN_EMAIL", "admin@tienda.com")
	hash, err := user.HashPassword(envOr("ADMIN_PASSWORD", "admin123"))
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to hash admin password")
	}

	repo := user.NewRepository(dbConn.Pool)
	err = repo.Create(ctx, &user.Usuario{
		Email:    email,
		Nombre:   envOr("ADMIN_NOMBRE", "Administrador"),
		Password: hash,
		Rol:      user.RolAdmin,
	})
	switch {
	case errors.Is(err, user.ErrEmailExists):
		log.Info().Str("email", email).Msg("Admin user already exists, nothing to do")
	case err != nil:
		log.Fatal().Err(err).Msg("Failed to create admin user")
	default:
		log.Info().Str("email", email).Msg("Admin user created")
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
