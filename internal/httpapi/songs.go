package httpapi

import (
	"errors"
	"net/http"
	"net/url"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"songcatalog/internal/auth"
	"songcatalog/internal/catalog"
	"songcatalog/internal/store"
)

type titleView struct {
	Title string `json:"title"`
}

type nameView struct {
	Name string `json:"name"`
}

// songSummary is the reduced song shape served to anonymous callers.
type songSummary struct {
	Name    string     `json:"name"`
	Album   titleView  `json:"album"`
	Writers []nameView `json:"writers"`
	Rank    int        `json:"rank"`
}

func summarize(song store.Song) songSummary {
	writers := make([]nameView, 0, len(song.Writers))
	for _, w := range song.Writers {
		writers = append(writers, nameView{Name: w.Name})
	}
	return songSummary{
		Name:    song.Name,
		Album:   titleView{Title: song.Album.Title},
		Writers: writers,
		Rank:    song.Rank,
	}
}

type rowErrorView struct {
	Row   int    `json:"row"`
	Error string `json:"error"`
}

type uploadResponse struct {
	Message   string         `json:"message"`
	Processed int            `json:"processed"`
	Failed    int            `json:"failed"`
	Errors    []rowErrorView `json:"errors"`
}

type uploadErrorResponse struct {
	Error     string         `json:"error"`
	Processed int            `json:"processed"`
	Failed    int            `json:"failed"`
	Errors    []rowErrorView `json:"errors"`
}

func rowErrorViews(errs []*catalog.RowError) []rowErrorView {
	views := make([]rowErrorView, 0, len(errs))
	for _, e := range errs {
		views = append(views, rowErrorView{Row: e.Row, Error: e.Err.Error()})
	}
	return views
}

// handleListSongs serves songs ordered by rank. Authenticated callers get the
// full shape; anonymous callers get the summary.
func (s *Server) handleListSongs(w http.ResponseWriter, r *http.Request) {
	authenticated := false
	if token := parseBearerToken(r.Header.Get("Authorization")); token != "" {
		if _, err := s.users.Authorize(r.Context(), token); err != nil {
			if errors.Is(err, auth.ErrInvalidToken) {
				writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "invalid token"})
				return
			}
			writeError(w, r, err)
			return
		}
		authenticated = true
	}

	songs, err := s.songs.List(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}

	if authenticated {
		writeJSON(w, http.StatusOK, songs)
		return
	}

	summaries := make([]songSummary, 0, len(songs))
	for _, song := range songs {
		summaries = append(summaries, summarize(song))
	}
	writeJSON(w, http.StatusOK, summaries)
}

func (s *Server) handleGetSong(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid song id"})
		return
	}

	song, err := s.songs.Get(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, song)
}

func (s *Server) handleCreateSong(w http.ResponseWriter, r *http.Request) {
	var payload catalog.SongPayload
	if err := s.decodeJSON(w, r, &payload); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid JSON payload"})
		return
	}

	song, err := s.songs.Create(r.Context(), payload)
	if err != nil {
		writeError(w, r, err)
		return
	}

	if user, ok := userFromContext(r.Context()); ok {
		log.Ctx(r.Context()).Info().
			Int64("song_id", song.ID).
			Str("created_by", user.Username).
			Msg("song created via api")
	}

	writeJSON(w, http.StatusCreated, song)
}

func (s *Server) handleUploadSongs(w http.ResponseWriter, r *http.Request) {
	mode, err := catalog.ParseImportMode(r.URL.Query().Get("on_error"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, s.opts.MaxUploadBytes)
	if err := r.ParseMultipartForm(s.opts.MaxUploadBytes); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "No file provided"})
		return
	}
	defer func() {
		if r.MultipartForm != nil {
			_ = r.MultipartForm.RemoveAll()
		}
	}()

	file, _, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "No file provided"})
		return
	}
	defer file.Close()

	result, err := s.songs.Import(r.Context(), file, mode)
	if err != nil {
		var rowErr *catalog.RowError
		if errors.As(err, &rowErr) && (errors.Is(err, catalog.ErrInvalidSong) || errors.Is(err, catalog.ErrInvalidCSV)) {
			writeJSON(w, http.StatusBadRequest, uploadErrorResponse{
				Error:     rowErr.Error(),
				Processed: result.Processed,
				Failed:    result.Failed,
				Errors:    rowErrorViews(result.Errors),
			})
			return
		}
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, uploadResponse{
		Message:   "CSV file processed successfully",
		Processed: result.Processed,
		Failed:    result.Failed,
		Errors:    rowErrorViews(result.Errors),
	})
}

func (s *Server) handleLyrics(w http.ResponseWriter, r *http.Request) {
	identifier := chi.URLParam(r, "identifier")
	if unescaped, err := url.PathUnescape(identifier); err == nil {
		identifier = unescaped
	}

	result, err := s.songs.Lyrics(r.Context(), identifier)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}
