package httpapi

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	"songcatalog/internal/auth"
	"songcatalog/internal/catalog"
	"songcatalog/internal/http/middleware"
	"songcatalog/internal/logging"
	"songcatalog/internal/store"
)

// UserService captures the account operations needed by the HTTP handlers.
type UserService interface {
	Login(ctx context.Context, username, password string) (string, error)
	Authorize(ctx context.Context, token string) (store.User, error)
}

// SongService coordinates catalog reads, writes and lyrics lookups.
type SongService interface {
	List(ctx context.Context) ([]store.Song, error)
	Get(ctx context.Context, id int64) (store.Song, error)
	Create(ctx context.Context, payload catalog.SongPayload) (store.Song, error)
	Import(ctx context.Context, r io.Reader, mode catalog.ImportMode) (catalog.ImportResult, error)
	Lyrics(ctx context.Context, identifier string) (catalog.Lyrics, error)
}

// Options tunes the HTTP surface.
type Options struct {
	AllowedOrigins []string
	LoginRateLimit int   // attempts per minute per client IP, 0 disables
	MaxUploadBytes int64 // multipart limit for CSV uploads
	MaxBodyBytes   int64 // JSON body limit
}

const (
	defaultMaxUploadBytes = 32 << 20
	defaultMaxBodyBytes   = 1 << 20
)

// Server wires HTTP handlers to the underlying services.
type Server struct {
	users UserService
	songs SongService
	opts  Options
}

// New configures a Server with the given services.
func New(users UserService, songs SongService, opts Options) *Server {
	if opts.MaxUploadBytes <= 0 {
		opts.MaxUploadBytes = defaultMaxUploadBytes
	}
	if opts.MaxBodyBytes <= 0 {
		opts.MaxBodyBytes = defaultMaxBodyBytes
	}
	return &Server{users: users, songs: songs, opts: opts}
}

// Routes exposes the HTTP handlers for the song catalog.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.RequestLogging(),
		middleware.Recovery(),
		middleware.CORS(s.opts.AllowedOrigins),
	)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			if s.opts.LoginRateLimit > 0 {
				r.Use(middleware.LoginRateLimit(s.opts.LoginRateLimit))
			}
			r.Post("/auth/login", s.handleLogin)
		})

		r.Route("/songs", func(r chi.Router) {
			r.Get("/", s.handleListSongs)
			r.Get("/{id}", s.handleGetSong)

			r.Group(func(r chi.Router) {
				r.Use(s.requireUser)
				r.Post("/", s.handleCreateSong)
				r.Post("/upload", s.handleUploadSongs)
				r.Get("/lyrics/{identifier}", s.handleLyrics)
			})
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "not found"})
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusMethodNotAllowed, errorResponse{Error: "method not allowed"})
	})

	return r
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type tokenResponse struct {
	Token string `json:"token"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := s.decodeJSON(w, r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid JSON payload"})
		return
	}

	token, err := s.users.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		if errors.Is(err, store.ErrInvalidCredentials) {
			writeJSON(w, http.StatusUnauthorized, errorResponse{Error: err.Error()})
			return
		}
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, tokenResponse{Token: token})
}

type userContextKey struct{}

// requireUser rejects requests without a valid bearer token and stores the
// authenticated user on the request context.
func (s *Server) requireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := parseBearerToken(r.Header.Get("Authorization"))
		if token == "" {
			writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "missing bearer token"})
			return
		}

		user, err := s.users.Authorize(r.Context(), token)
		if err != nil {
			if errors.Is(err, auth.ErrInvalidToken) {
				writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "invalid token"})
				return
			}
			writeError(w, r, err)
			return
		}

		next.ServeHTTP(w, r.WithContext(withUser(r.Context(), user)))
	})
}

func withUser(ctx context.Context, user store.User) context.Context {
	ctx = logging.WithUser(ctx, user.ID)
	return context.WithValue(ctx, userContextKey{}, user)
}

func userFromContext(ctx context.Context) (store.User, bool) {
	user, ok := ctx.Value(userContextKey{}).(store.User)
	return user, ok
}

func (s *Server) decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	body := http.MaxBytesReader(w, r.Body, s.opts.MaxBodyBytes)
	return json.NewDecoder(body).Decode(dst)
}

// writeError maps service errors to the three caller-visible outcomes: bad
// input, not found and server fault.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, catalog.ErrInvalidSong), errors.Is(err, catalog.ErrInvalidCSV):
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
	case errors.Is(err, store.ErrSongNotFound):
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "Song not found"})
	case errors.Is(err, catalog.ErrLyricsNotFound):
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "Lyrics not found"})
	default:
		log.Ctx(r.Context()).Error().Err(err).Str("path", r.URL.Path).Msg("request failed")
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal server error"})
	}
}

func parseBearerToken(header string) string {
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 {
		return ""
	}
	if !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload != nil {
		_ = json.NewEncoder(w).Encode(payload)
	}
}
