package main

import (
	"context"

	"github.com/rs/zerolog/log"

	"songcatalog/internal/app/users"
	"songcatalog/internal/config"
)

// ensureAdmin creates the configured account on first start. An existing
// account with the same name is left untouched.
func ensureAdmin(ctx context.Context, cfg config.AdminConfig, svc users.Service) error {
	if cfg.Username == "" {
		return nil
	}

	created, err := svc.EnsureUser(ctx, cfg.Username, cfg.Password)
	if err != nil {
		return err
	}
	if created {
		log.Info().Str("username", cfg.Username).Msg("admin account created")
	}
	return nil
}
