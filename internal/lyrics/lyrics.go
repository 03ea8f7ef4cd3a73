// Package lyrics persists song lyrics outside the relational catalog.
//
// Lyrics are addressed by the slug of the song name, so the same name always
// maps to the same entry regardless of the backend in use.
package lyrics

import (
	"context"
	"errors"

	"songcatalog/internal/slug"
)

var (
	// ErrNotFound reports that no lyrics exist for a song.
	ErrNotFound = errors.New("lyrics not found")
	// ErrInvalidKey indicates a song name that normalizes to an empty key.
	ErrInvalidKey = errors.New("song name yields an empty lyrics key")
)

// Store reads and writes lyrics text keyed by song name.
type Store interface {
	Put(ctx context.Context, songName, text string) error
	Get(ctx context.Context, songName string) (string, error)
}

// Key returns the storage key for songName.
func Key(songName string) (string, error) {
	key := slug.Normalize(songName)
	if key == "" {
		return "", ErrInvalidKey
	}
	return key, nil
}
