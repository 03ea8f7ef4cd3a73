package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// Song is a catalog entry together with its album, writers and singers.
type Song struct {
	ID                  int64    `json:"id"`
	Name                string   `json:"name"`
	Album               Album    `json:"album"`
	Writers             []Writer `json:"writers"`
	Singers             []Singer `json:"singers"`
	Rank                int      `json:"rank"`
	YearReleased        int      `json:"year_released"`
	SongTime            string   `json:"song_time"`
	SpotifyStreams      int64    `json:"spotify_streams"`
	RollingStoneRanking int      `json:"rolling_stone_ranking"`
	NMERanking          *int     `json:"nme_ranking"`
	UGViews             int      `json:"ug_views"`
	UGFavourites        int      `json:"ug_favourites"`
}

const songColumns = `
		SELECT s.id, s.name, s.album_id, a.title, s.rank, s.year_released, s.song_time,
		       s.spotify_streams, s.rolling_stone_ranking, s.nme_ranking, s.ug_views, s.ug_favourites
		FROM songs s
		JOIN albums a ON a.id = s.album_id`

// ListSongs returns every song ordered by rank.
func (s *Store) ListSongs(ctx context.Context) ([]Song, error) {
	rows, err := s.db.QueryContext(ctx, songColumns+`
		ORDER BY s.rank ASC, s.id ASC`)
	if err != nil {
		return nil, fmt.Errorf("select songs: %w", err)
	}
	defer rows.Close()

	songs := []Song{}
	for rows.Next() {
		song, err := scanSong(rows)
		if err != nil {
			return nil, err
		}
		songs = append(songs, song)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate songs: %w", err)
	}

	if len(songs) == 0 {
		return songs, nil
	}

	writers, err := s.linkedNames(ctx, writerLinksQuery)
	if err != nil {
		return nil, fmt.Errorf("load writers: %w", err)
	}
	singers, err := s.linkedNames(ctx, singerLinksQuery)
	if err != nil {
		return nil, fmt.Errorf("load singers: %w", err)
	}

	for i := range songs {
		songs[i].Writers = toWriters(writers[songs[i].ID])
		songs[i].Singers = toSingers(singers[songs[i].ID])
	}
	return songs, nil
}

// SongByID returns the song with the given id.
func (s *Store) SongByID(ctx context.Context, id int64) (Song, error) {
	row := s.db.QueryRowContext(ctx, songColumns+`
		WHERE s.id = $1`, id)
	return s.loadSong(ctx, row)
}

// SongByName returns the oldest song whose name equals name ignoring case.
func (s *Store) SongByName(ctx context.Context, name string) (Song, error) {
	row := s.db.QueryRowContext(ctx, songColumns+`
		WHERE lower(s.name) = lower($1)
		ORDER BY s.id ASC
		LIMIT 1`, name)
	return s.loadSong(ctx, row)
}

func (s *Store) loadSong(ctx context.Context, row *sql.Row) (Song, error) {
	song, err := scanSong(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Song{}, ErrSongNotFound
		}
		return Song{}, err
	}

	writers, err := s.linkedNames(ctx, writerLinksQuery+`
		WHERE l.song_id = $1`, song.ID)
	if err != nil {
		return Song{}, fmt.Errorf("load writers: %w", err)
	}
	singers, err := s.linkedNames(ctx, singerLinksQuery+`
		WHERE l.song_id = $1`, song.ID)
	if err != nil {
		return Song{}, fmt.Errorf("load singers: %w", err)
	}

	song.Writers = toWriters(writers[song.ID])
	song.Singers = toSingers(singers[song.ID])
	return song, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSong(row rowScanner) (Song, error) {
	var (
		song Song
		nme  sql.NullInt64
	)
	if err := row.Scan(
		&song.ID,
		&song.Name,
		&song.Album.ID,
		&song.Album.Title,
		&song.Rank,
		&song.YearReleased,
		&song.SongTime,
		&song.SpotifyStreams,
		&song.RollingStoneRanking,
		&nme,
		&song.UGViews,
		&song.UGFavourites,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Song{}, err
		}
		return Song{}, fmt.Errorf("scan song: %w", err)
	}
	if nme.Valid {
		v := int(nme.Int64)
		song.NMERanking = &v
	}
	song.Writers = []Writer{}
	song.Singers = []Singer{}
	return song, nil
}

const (
	writerLinksQuery = `
		SELECT l.song_id, w.id, w.name
		FROM song_writer_links l
		JOIN song_writers w ON w.id = l.writer_id`
	singerLinksQuery = `
		SELECT l.song_id, p.id, p.name
		FROM song_singer_links l
		JOIN singers p ON p.id = l.singer_id`
)

type linkedName struct {
	id   int64
	name string
}

// linkedNames groups the (id, name) pairs returned by a link query by song id.
func (s *Store) linkedNames(ctx context.Context, query string, args ...any) (map[int64][]linkedName, error) {
	rows, err := s.db.QueryContext(ctx, query+`
		ORDER BY 1, 2`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[int64][]linkedName)
	for rows.Next() {
		var (
			songID int64
			n      linkedName
		)
		if err := rows.Scan(&songID, &n.id, &n.name); err != nil {
			return nil, err
		}
		out[songID] = append(out[songID], n)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func toWriters(names []linkedName) []Writer {
	writers := make([]Writer, 0, len(names))
	for _, n := range names {
		writers = append(writers, Writer{ID: n.id, Name: n.name})
	}
	return writers
}

func toSingers(names []linkedName) []Singer {
	singers := make([]Singer, 0, len(names))
	for _, n := range names {
		singers = append(singers, Singer{ID: n.id, Name: n.name})
	}
	return singers
}
