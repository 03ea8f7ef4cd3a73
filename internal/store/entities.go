package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
)

// Album groups songs under a title. The title is the natural key.
type Album struct {
	ID    int64  `json:"-"`
	Title string `json:"title"`
}

// Writer is a songwriter identified by name.
type Writer struct {
	ID   int64  `json:"-"`
	Name string `json:"name"`
}

// Singer is a vocalist identified by name.
type Singer struct {
	ID   int64  `json:"-"`
	Name string `json:"name"`
}

// CatalogTx exposes the writes needed to assemble a song atomically.
type CatalogTx interface {
	ResolveAlbum(ctx context.Context, title string) (Album, bool, error)
	ResolveWriter(ctx context.Context, name string) (Writer, bool, error)
	ResolveSinger(ctx context.Context, name string) (Singer, bool, error)
	InsertSong(ctx context.Context, song *Song) error
	AttachWriter(ctx context.Context, songID, writerID int64) error
	AttachSinger(ctx context.Context, songID, singerID int64) error
}

type naturalKeyTable struct {
	table  string
	column string
}

var (
	albumsTable  = naturalKeyTable{table: "albums", column: "title"}
	writersTable = naturalKeyTable{table: "song_writers", column: "name"}
	singersTable = naturalKeyTable{table: "singers", column: "name"}
)

// resolveAttempts bounds retries when a concurrent insert of the same key has
// committed but is not yet visible to the statement snapshot.
const resolveAttempts = 3

// ResolveAlbum returns the album titled title, creating it when absent.
func (s *Store) ResolveAlbum(ctx context.Context, title string) (Album, bool, error) {
	return resolveAlbum(ctx, s.db, title)
}

// ResolveWriter returns the writer called name, creating it when absent.
func (s *Store) ResolveWriter(ctx context.Context, name string) (Writer, bool, error) {
	return resolveWriter(ctx, s.db, name)
}

// ResolveSinger returns the singer called name, creating it when absent.
func (s *Store) ResolveSinger(ctx context.Context, name string) (Singer, bool, error) {
	return resolveSinger(ctx, s.db, name)
}

func resolveAlbum(ctx context.Context, q queryer, title string) (Album, bool, error) {
	id, created, err := getOrCreate(ctx, q, albumsTable, title)
	if err != nil {
		return Album{}, false, err
	}
	return Album{ID: id, Title: title}, created, nil
}

func resolveWriter(ctx context.Context, q queryer, name string) (Writer, bool, error) {
	id, created, err := getOrCreate(ctx, q, writersTable, name)
	if err != nil {
		return Writer{}, false, err
	}
	return Writer{ID: id, Name: name}, created, nil
}

func resolveSinger(ctx context.Context, q queryer, name string) (Singer, bool, error) {
	id, created, err := getOrCreate(ctx, q, singersTable, name)
	if err != nil {
		return Singer{}, false, err
	}
	return Singer{ID: id, Name: name}, created, nil
}

// getOrCreate inserts key unless the unique index already holds it and
// returns the id of the single row carrying key.
func getOrCreate(ctx context.Context, q queryer, t naturalKeyTable, key string) (int64, bool, error) {
	if strings.TrimSpace(key) == "" {
		return 0, false, fmt.Errorf("%s %s is required", t.table, t.column)
	}

	query := fmt.Sprintf(`
		WITH inserted AS (
			INSERT INTO %[1]s (%[2]s)
			VALUES ($1)
			ON CONFLICT (%[2]s) DO NOTHING
			RETURNING id
		)
		SELECT id, TRUE FROM inserted
		UNION ALL
		SELECT id, FALSE FROM %[1]s WHERE %[2]s = $1
		LIMIT 1
	`, t.table, t.column)

	var lastErr error
	for attempt := 0; attempt < resolveAttempts; attempt++ {
		var (
			id      int64
			created bool
		)
		err := q.QueryRowContext(ctx, query, key).Scan(&id, &created)
		if err == nil {
			return id, created, nil
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return 0, false, fmt.Errorf("resolve %s %q: %w", t.table, key, err)
		}
		lastErr = err
	}
	return 0, false, fmt.Errorf("resolve %s %q: %w", t.table, key, lastErr)
}

type catalogTx struct {
	q queryer
}

func (t *catalogTx) ResolveAlbum(ctx context.Context, title string) (Album, bool, error) {
	return resolveAlbum(ctx, t.q, title)
}

func (t *catalogTx) ResolveWriter(ctx context.Context, name string) (Writer, bool, error) {
	return resolveWriter(ctx, t.q, name)
}

func (t *catalogTx) ResolveSinger(ctx context.Context, name string) (Singer, bool, error) {
	return resolveSinger(ctx, t.q, name)
}

func (t *catalogTx) InsertSong(ctx context.Context, song *Song) error {
	if song.Album.ID == 0 {
		return errors.New("song album is required")
	}

	err := t.q.QueryRowContext(ctx, `
		INSERT INTO songs (name, album_id, rank, year_released, song_time, spotify_streams,
		                   rolling_stone_ranking, nme_ranking, ug_views, ug_favourites)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id
	`,
		song.Name,
		song.Album.ID,
		song.Rank,
		song.YearReleased,
		song.SongTime,
		song.SpotifyStreams,
		song.RollingStoneRanking,
		nullableInt(song.NMERanking),
		song.UGViews,
		song.UGFavourites,
	).Scan(&song.ID)
	if err != nil {
		return fmt.Errorf("insert song: %w", err)
	}
	return nil
}

func (t *catalogTx) AttachWriter(ctx context.Context, songID, writerID int64) error {
	if _, err := t.q.ExecContext(ctx, `
		INSERT INTO song_writer_links (song_id, writer_id)
		VALUES ($1, $2)
		ON CONFLICT DO NOTHING
	`, songID, writerID); err != nil {
		return fmt.Errorf("attach writer: %w", err)
	}
	return nil
}

func (t *catalogTx) AttachSinger(ctx context.Context, songID, singerID int64) error {
	if _, err := t.q.ExecContext(ctx, `
		INSERT INTO song_singer_links (song_id, singer_id)
		VALUES ($1, $2)
		ON CONFLICT DO NOTHING
	`, songID, singerID); err != nil {
		return fmt.Errorf("attach singer: %w", err)
	}
	return nil
}
