package store

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
)

func newMockStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return New(db), mock
}

func TestResolveAlbumCreatesMissing(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO albums (title)`)).
		WithArgs("Abbey Road").
		WillReturnRows(sqlmock.NewRows([]string{"id", "bool"}).AddRow(int64(7), true))

	album, created, err := s.ResolveAlbum(context.Background(), "Abbey Road")
	if err != nil {
		t.Fatalf("ResolveAlbum error: %v", err)
	}
	if !created {
		t.Fatalf("expected album to be created")
	}
	if album.ID != 7 || album.Title != "Abbey Road" {
		t.Fatalf("unexpected album %#v", album)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestResolveWriterReturnsExisting(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectQuery(regexp.QuoteMeta(`ON CONFLICT (name) DO NOTHING`)).
		WithArgs("John Lennon").
		WillReturnRows(sqlmock.NewRows([]string{"id", "bool"}).AddRow(int64(3), false))

	writer, created, err := s.ResolveWriter(context.Background(), "John Lennon")
	if err != nil {
		t.Fatalf("ResolveWriter error: %v", err)
	}
	if created {
		t.Fatalf("expected existing writer to be reused")
	}
	if writer.ID != 3 {
		t.Fatalf("expected writer ID 3, got %d", writer.ID)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestResolveSingerRetriesInvisibleConflict(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO singers (name)`)).
		WithArgs("Ringo Starr").
		WillReturnRows(sqlmock.NewRows([]string{"id", "bool"}))
	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO singers (name)`)).
		WithArgs("Ringo Starr").
		WillReturnRows(sqlmock.NewRows([]string{"id", "bool"}).AddRow(int64(11), false))

	singer, created, err := s.ResolveSinger(context.Background(), "Ringo Starr")
	if err != nil {
		t.Fatalf("ResolveSinger error: %v", err)
	}
	if created || singer.ID != 11 {
		t.Fatalf("unexpected singer %#v (created=%v)", singer, created)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestResolveRejectsBlankKey(t *testing.T) {
	s, mock := newMockStore(t)

	if _, _, err := s.ResolveAlbum(context.Background(), "   "); err == nil {
		t.Fatalf("expected error for blank album title")
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unexpected queries: %v", err)
	}
}

func TestInTxAssemblesSong(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO albums (title)`)).
		WithArgs("Revolver").
		WillReturnRows(sqlmock.NewRows([]string{"id", "bool"}).AddRow(int64(2), true))
	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO songs (name, album_id`)).
		WithArgs("Taxman", int64(2), 40, 1966, "02:39", int64(1000), 12, nil, 500, 20).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(99)))
	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO song_writers (name)`)).
		WithArgs("George Harrison").
		WillReturnRows(sqlmock.NewRows([]string{"id", "bool"}).AddRow(int64(5), true))
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO song_writer_links (song_id, writer_id)`)).
		WithArgs(int64(99), int64(5)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	song := Song{
		Name:                "Taxman",
		Rank:                40,
		YearReleased:        1966,
		SongTime:            "02:39",
		SpotifyStreams:      1000,
		RollingStoneRanking: 12,
		UGViews:             500,
		UGFavourites:        20,
	}

	err := s.InTx(context.Background(), func(tx CatalogTx) error {
		album, _, err := tx.ResolveAlbum(context.Background(), "Revolver")
		if err != nil {
			return err
		}
		song.Album = album
		if err := tx.InsertSong(context.Background(), &song); err != nil {
			return err
		}
		writer, _, err := tx.ResolveWriter(context.Background(), "George Harrison")
		if err != nil {
			return err
		}
		return tx.AttachWriter(context.Background(), song.ID, writer.ID)
	})
	if err != nil {
		t.Fatalf("InTx error: %v", err)
	}
	if song.ID != 99 {
		t.Fatalf("expected song ID 99, got %d", song.ID)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestInTxRollsBackOnError(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectRollback()

	boom := errors.New("boom")
	err := s.InTx(context.Background(), func(CatalogTx) error { return boom })
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestInsertSongRequiresAlbum(t *testing.T) {
	tx := &catalogTx{}
	if err := tx.InsertSong(context.Background(), &Song{Name: "Orphan"}); err == nil {
		t.Fatalf("expected error when album is missing")
	}
}
