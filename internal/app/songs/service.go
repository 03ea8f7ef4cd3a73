package songs

import (
	"context"
	"io"

	"songcatalog/internal/catalog"
	"songcatalog/internal/store"
)

// Store exposes the song reads required by the service.
type Store interface {
	ListSongs(ctx context.Context) ([]store.Song, error)
	SongByID(ctx context.Context, id int64) (store.Song, error)
}

// Service exposes song-centric operations.
type Service interface {
	List(ctx context.Context) ([]store.Song, error)
	Get(ctx context.Context, id int64) (store.Song, error)
	Create(ctx context.Context, payload catalog.SongPayload) (store.Song, error)
	Import(ctx context.Context, r io.Reader, mode catalog.ImportMode) (catalog.ImportResult, error)
	Lyrics(ctx context.Context, identifier string) (catalog.Lyrics, error)
}

type service struct {
	store    Store
	builder  *catalog.Builder
	importer *catalog.Importer
	lyrics   *catalog.LyricsService
}

// New constructs a song Service over the catalog pipeline.
func New(songStore Store, builder *catalog.Builder, importer *catalog.Importer, lyrics *catalog.LyricsService) Service {
	return &service{
		store:    songStore,
		builder:  builder,
		importer: importer,
		lyrics:   lyrics,
	}
}

func (s *service) List(ctx context.Context) ([]store.Song, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.store.ListSongs(ctx)
}

func (s *service) Get(ctx context.Context, id int64) (store.Song, error) {
	if err := ctx.Err(); err != nil {
		return store.Song{}, err
	}
	return s.store.SongByID(ctx, id)
}

func (s *service) Create(ctx context.Context, payload catalog.SongPayload) (store.Song, error) {
	return s.builder.Build(ctx, payload, catalog.SourceAPI)
}

func (s *service) Import(ctx context.Context, r io.Reader, mode catalog.ImportMode) (catalog.ImportResult, error) {
	if err := ctx.Err(); err != nil {
		return catalog.ImportResult{}, err
	}
	return s.importer.Import(ctx, r, mode)
}

func (s *service) Lyrics(ctx context.Context, identifier string) (catalog.Lyrics, error) {
	return s.lyrics.Lookup(ctx, identifier)
}
