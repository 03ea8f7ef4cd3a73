package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	"songcatalog/internal/lyrics"
	"songcatalog/internal/metrics"
	"songcatalog/internal/store"
)

// Source labels where a payload came from.
type Source string

const (
	SourceAPI Source = "api"
	SourceCSV Source = "csv"
)

// Builder creates songs together with their album, writers and singers.
type Builder struct {
	repo   Repository
	lyrics lyrics.Store
}

// NewBuilder returns a Builder persisting through repo and lyricsStore.
func NewBuilder(repo Repository, lyricsStore lyrics.Store) *Builder {
	return &Builder{repo: repo, lyrics: lyricsStore}
}

// Build persists the song described by p. Related entities are reused by
// name. Nothing is persisted when any step fails, including the lyrics write.
func (b *Builder) Build(ctx context.Context, p SongPayload, source Source) (store.Song, error) {
	if err := ctx.Err(); err != nil {
		return store.Song{}, err
	}
	if err := p.check(); err != nil {
		return store.Song{}, err
	}

	var song store.Song
	err := b.repo.InTx(ctx, func(tx store.CatalogTx) error {
		album, created, err := tx.ResolveAlbum(ctx, strings.TrimSpace(p.Album.Title))
		if err != nil {
			return err
		}
		countCreated("album", created)

		song = store.Song{
			Name:                p.Name,
			Album:               album,
			Rank:                *p.Rank,
			YearReleased:        *p.YearReleased,
			SongTime:            *p.SongTime,
			SpotifyStreams:      *p.SpotifyStreams,
			RollingStoneRanking: *p.RollingStoneRanking,
			NMERanking:          p.NMERanking.Value(),
			UGViews:             *p.UGViews,
			UGFavourites:        *p.UGFavourites,
			Writers:             []store.Writer{},
			Singers:             []store.Singer{},
		}
		if err := tx.InsertSong(ctx, &song); err != nil {
			return err
		}

		for _, name := range distinctNames(p.Writers) {
			writer, created, err := tx.ResolveWriter(ctx, name)
			if err != nil {
				return err
			}
			countCreated("writer", created)
			if err := tx.AttachWriter(ctx, song.ID, writer.ID); err != nil {
				return err
			}
			song.Writers = append(song.Writers, writer)
		}

		for _, name := range distinctNames(p.Singers) {
			singer, created, err := tx.ResolveSinger(ctx, name)
			if err != nil {
				return err
			}
			countCreated("singer", created)
			if err := tx.AttachSinger(ctx, song.ID, singer.ID); err != nil {
				return err
			}
			song.Singers = append(song.Singers, singer)
		}

		if text := p.Lyrics.First(); strings.TrimSpace(text) != "" {
			err := b.lyrics.Put(ctx, song.Name, text)
			if errors.Is(err, lyrics.ErrInvalidKey) {
				return fmt.Errorf("%w: %v", ErrInvalidSong, err)
			}
			if err != nil {
				return fmt.Errorf("store lyrics: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return store.Song{}, err
	}

	metrics.SongsCreated.WithLabelValues(string(source)).Inc()
	log.Ctx(ctx).Debug().
		Int64("song_id", song.ID).
		Str("song", song.Name).
		Str("album", song.Album.Title).
		Str("source", string(source)).
		Msg("song created")

	return song, nil
}

// distinctNames splits newline separated names, trims them and drops blanks
// and repeats while keeping first-seen order.
func distinctNames(refs []NameRef) []string {
	seen := make(map[string]struct{}, len(refs))
	var names []string
	for _, ref := range refs {
		for _, part := range strings.Split(ref.Name, "\n") {
			name := strings.TrimSpace(part)
			if name == "" {
				continue
			}
			if _, ok := seen[name]; ok {
				continue
			}
			seen[name] = struct{}{}
			names = append(names, name)
		}
	}
	return names
}

func countCreated(kind string, created bool) {
	if created {
		metrics.EntitiesCreated.WithLabelValues(kind).Inc()
	}
}
