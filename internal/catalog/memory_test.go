package catalog

import (
	"context"
	"sort"
	"strings"
	"sync"

	"songcatalog/internal/lyrics"
	"songcatalog/internal/store"
)

// memState mirrors the catalog tables closely enough to exercise the builder.
type memState struct {
	nextID      int64
	albums      map[string]int64
	writers     map[string]int64
	singers     map[string]int64
	songs       map[int64]store.Song
	writerLinks map[int64]map[int64]bool
	singerLinks map[int64]map[int64]bool
}

func newMemState() *memState {
	return &memState{
		albums:      map[string]int64{},
		writers:     map[string]int64{},
		singers:     map[string]int64{},
		songs:       map[int64]store.Song{},
		writerLinks: map[int64]map[int64]bool{},
		singerLinks: map[int64]map[int64]bool{},
	}
}

func (s *memState) clone() *memState {
	c := newMemState()
	c.nextID = s.nextID
	for k, v := range s.albums {
		c.albums[k] = v
	}
	for k, v := range s.writers {
		c.writers[k] = v
	}
	for k, v := range s.singers {
		c.singers[k] = v
	}
	for k, v := range s.songs {
		c.songs[k] = v
	}
	for k, v := range s.writerLinks {
		c.writerLinks[k] = copyLinks(v)
	}
	for k, v := range s.singerLinks {
		c.singerLinks[k] = copyLinks(v)
	}
	return c
}

func copyLinks(in map[int64]bool) map[int64]bool {
	out := make(map[int64]bool, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

type memRepo struct {
	mu    sync.Mutex
	state *memState
	txs   int
}

func newMemRepo() *memRepo {
	return &memRepo{state: newMemState()}
}

func (r *memRepo) InTx(ctx context.Context, fn func(store.CatalogTx) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.txs++
	staged := r.state.clone()
	if err := fn(&memTx{s: staged}); err != nil {
		return err
	}
	r.state = staged
	return nil
}

func (r *memRepo) SongByID(ctx context.Context, id int64) (store.Song, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	song, ok := r.state.songs[id]
	if !ok {
		return store.Song{}, store.ErrSongNotFound
	}
	return r.withRelations(song), nil
}

func (r *memRepo) SongByName(ctx context.Context, name string) (store.Song, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	ids := make([]int64, 0, len(r.state.songs))
	for id := range r.state.songs {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	for _, id := range ids {
		song := r.state.songs[id]
		if strings.EqualFold(song.Name, name) {
			return r.withRelations(song), nil
		}
	}
	return store.Song{}, store.ErrSongNotFound
}

func (r *memRepo) withRelations(song store.Song) store.Song {
	song.Writers = []store.Writer{}
	for name, id := range r.state.writers {
		if r.state.writerLinks[song.ID][id] {
			song.Writers = append(song.Writers, store.Writer{ID: id, Name: name})
		}
	}
	song.Singers = []store.Singer{}
	for name, id := range r.state.singers {
		if r.state.singerLinks[song.ID][id] {
			song.Singers = append(song.Singers, store.Singer{ID: id, Name: name})
		}
	}
	return song
}

func (r *memRepo) songCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.state.songs)
}

func (r *memRepo) albumCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.state.albums)
}

func (r *memRepo) linkCounts(songID int64) (writers, singers int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.state.writerLinks[songID]), len(r.state.singerLinks[songID])
}

type memTx struct {
	s *memState
}

func (t *memTx) getOrCreate(keys map[string]int64, key string) (int64, bool) {
	if id, ok := keys[key]; ok {
		return id, false
	}
	t.s.nextID++
	keys[key] = t.s.nextID
	return t.s.nextID, true
}

func (t *memTx) ResolveAlbum(ctx context.Context, title string) (store.Album, bool, error) {
	id, created := t.getOrCreate(t.s.albums, title)
	return store.Album{ID: id, Title: title}, created, nil
}

func (t *memTx) ResolveWriter(ctx context.Context, name string) (store.Writer, bool, error) {
	id, created := t.getOrCreate(t.s.writers, name)
	return store.Writer{ID: id, Name: name}, created, nil
}

func (t *memTx) ResolveSinger(ctx context.Context, name string) (store.Singer, bool, error) {
	id, created := t.getOrCreate(t.s.singers, name)
	return store.Singer{ID: id, Name: name}, created, nil
}

func (t *memTx) InsertSong(ctx context.Context, song *store.Song) error {
	t.s.nextID++
	song.ID = t.s.nextID
	stored := *song
	stored.Writers = nil
	stored.Singers = nil
	t.s.songs[song.ID] = stored
	return nil
}

func (t *memTx) AttachWriter(ctx context.Context, songID, writerID int64) error {
	if t.s.writerLinks[songID] == nil {
		t.s.writerLinks[songID] = map[int64]bool{}
	}
	t.s.writerLinks[songID][writerID] = true
	return nil
}

func (t *memTx) AttachSinger(ctx context.Context, songID, singerID int64) error {
	if t.s.singerLinks[songID] == nil {
		t.s.singerLinks[songID] = map[int64]bool{}
	}
	t.s.singerLinks[songID][singerID] = true
	return nil
}

// memLyrics is a map-backed lyrics.Store that can be told to fail writes.
type memLyrics struct {
	mu      sync.Mutex
	entries map[string]string
	putErr  error
}

func newMemLyrics() *memLyrics {
	return &memLyrics{entries: map[string]string{}}
}

func (m *memLyrics) Put(ctx context.Context, songName, text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.putErr != nil {
		return m.putErr
	}
	key, err := lyrics.Key(songName)
	if err != nil {
		return err
	}
	m.entries[key] = text
	return nil
}

func (m *memLyrics) Get(ctx context.Context, songName string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key, err := lyrics.Key(songName)
	if err != nil {
		return "", err
	}
	text, ok := m.entries[key]
	if !ok {
		return "", lyrics.ErrNotFound
	}
	return text, nil
}
