package main

import (
	"fmt"
	"io"
	"net/http"

	"songcatalog/internal/app/songs"
	"songcatalog/internal/app/users"
	"songcatalog/internal/auth"
	"songcatalog/internal/catalog"
	"songcatalog/internal/config"
	"songcatalog/internal/httpapi"
	"songcatalog/internal/lyrics"
	"songcatalog/internal/store"
)

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// openLyricsStore returns the configured lyrics backend and a closer for it.
func openLyricsStore(cfg config.LyricsConfig) (lyrics.Store, io.Closer, error) {
	switch cfg.Backend {
	case config.LyricsBackendBadger:
		bs, err := lyrics.OpenBadgerStore(cfg.BadgerDir)
		if err != nil {
			return nil, nil, err
		}
		return bs, bs, nil
	case config.LyricsBackendFile:
		fs, err := lyrics.NewFileStore(cfg.Dir)
		if err != nil {
			return nil, nil, err
		}
		return fs, nopCloser{}, nil
	default:
		return nil, nil, fmt.Errorf("unknown lyrics backend %q", cfg.Backend)
	}
}

type services struct {
	users users.Service
	songs songs.Service
}

func newServices(cfg *config.Config, dataStore *store.Store, lyricsStore lyrics.Store) (services, error) {
	tokens, err := auth.NewTokenManager(cfg.Security.JWTSecret, cfg.Security.TokenTTL)
	if err != nil {
		return services{}, fmt.Errorf("token manager: %w", err)
	}

	builder := catalog.NewBuilder(dataStore, lyricsStore)
	importer := catalog.NewImporter(builder)
	lookup := catalog.NewLyricsService(dataStore, lyricsStore)

	return services{
		users: users.New(dataStore, tokens),
		songs: songs.New(dataStore, builder, importer, lookup),
	}, nil
}

func newHTTPHandler(cfg *config.Config, svc services) http.Handler {
	api := httpapi.New(svc.users, svc.songs, httpapi.Options{
		AllowedOrigins: cfg.CORS.AllowedOrigins,
		LoginRateLimit: cfg.Security.LoginRateLimit,
	})
	return api.Routes()
}
