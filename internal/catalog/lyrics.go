package catalog

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"songcatalog/internal/lyrics"
	"songcatalog/internal/metrics"
	"songcatalog/internal/store"
)

// SongFinder looks songs up by id or by case-insensitive name.
type SongFinder interface {
	SongByID(ctx context.Context, id int64) (store.Song, error)
	SongByName(ctx context.Context, name string) (store.Song, error)
}

// Lyrics is the read model returned by the lyrics endpoint.
type Lyrics struct {
	Name   string `json:"name"`
	Lyrics string `json:"lyrics"`
}

// LyricsService resolves an external identifier to a song and reads its lyrics.
type LyricsService struct {
	songs  SongFinder
	lyrics lyrics.Store
}

// NewLyricsService wires a LyricsService.
func NewLyricsService(songs SongFinder, lyricsStore lyrics.Store) *LyricsService {
	return &LyricsService{songs: songs, lyrics: lyricsStore}
}

// Lookup accepts a numeric song id or a hyphenated song name. The lyrics key
// always comes from the stored song name, never from identifier itself.
func (s *LyricsService) Lookup(ctx context.Context, identifier string) (Lyrics, error) {
	song, err := s.ResolveSong(ctx, identifier)
	if err != nil {
		if errors.Is(err, store.ErrSongNotFound) {
			metrics.LyricsLookups.WithLabelValues("song_not_found").Inc()
		} else {
			metrics.LyricsLookups.WithLabelValues("error").Inc()
		}
		return Lyrics{}, err
	}

	text, err := s.lyrics.Get(ctx, song.Name)
	if err != nil {
		if errors.Is(err, lyrics.ErrNotFound) || errors.Is(err, lyrics.ErrInvalidKey) {
			metrics.LyricsLookups.WithLabelValues("lyrics_not_found").Inc()
			return Lyrics{}, ErrLyricsNotFound
		}
		metrics.LyricsLookups.WithLabelValues("error").Inc()
		return Lyrics{}, fmt.Errorf("read lyrics: %w", err)
	}

	metrics.LyricsLookups.WithLabelValues("found").Inc()
	return Lyrics{Name: song.Name, Lyrics: text}, nil
}

// ResolveSong tries identifier as an id first, then as a slug whose hyphens
// stand for spaces.
func (s *LyricsService) ResolveSong(ctx context.Context, identifier string) (store.Song, error) {
	if err := ctx.Err(); err != nil {
		return store.Song{}, err
	}

	if id, err := strconv.ParseInt(strings.TrimSpace(identifier), 10, 64); err == nil {
		song, err := s.songs.SongByID(ctx, id)
		if err == nil {
			return song, nil
		}
		if !errors.Is(err, store.ErrSongNotFound) {
			return store.Song{}, err
		}
	}

	name := strings.ReplaceAll(identifier, "-", " ")
	if strings.TrimSpace(name) == "" {
		return store.Song{}, store.ErrSongNotFound
	}
	return s.songs.SongByName(ctx, name)
}
