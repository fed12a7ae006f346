package server

import (
	"database/sql"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/dukerupert/marknotes/internal/config"
	"github.com/dukerupert/marknotes/internal/handler"
	"github.com/dukerupert/marknotes/internal/markdown"
	"github.com/dukerupert/marknotes/internal/middleware"
	"github.com/dukerupert/marknotes/internal/notes"
	"github.com/dukerupert/marknotes/internal/store"
	ws "github.com/dukerupert/marknotes/internal/websocket"
)

type Server struct {
	db          *sql.DB
	hub         *ws.Hub
	noteH       *handler.NoteHandler
	rateLimiter *middleware.RateLimiter
	cfg         *config.Config
	logger      *slog.Logger
}

func New(db *sql.DB, cfg *config.Config, logger *slog.Logger) *Server {
	hub := ws.NewHub(logger.With("component", "websocket"))

	noteStore := store.NewNoteStore(db)
	svc := notes.NewService(noteStore, markdown.NewProcessor(),
		notes.WithLogger(logger.With("component", "notes")))

	return &Server{
		db:          db,
		hub:         hub,
		noteH:       handler.NewNoteHandler(svc, hub, logger.With("component", "note")),
		rateLimiter: middleware.NewRateLimiter(),
		cfg:         cfg,
		logger:      logger,
	}
}

// RateLimiter returns the rate limiter for cleanup tasks.
func (s *Server) RateLimiter() *middleware.RateLimiter {
	return s.rateLimiter
}

// Hub returns the change notification hub.
func (s *Server) Hub() *ws.Hub {
	return s.hub
}

func (s *Server) Router() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", s.healthHandler)
	mux.HandleFunc("GET /api/ws", ws.HandleWebSocket(s.hub, originPatterns(s.cfg.CORS.AllowedOrigins), s.logger.With("component", "websocket")))

	mux.HandleFunc("GET /api/notes", s.noteH.List)
	mux.HandleFunc("POST /api/notes", s.rateLimited(s.noteH.Create))
	mux.HandleFunc("POST /api/notes/lint", s.rateLimited(s.noteH.Lint))
	mux.HandleFunc("GET /api/notes/{id}", s.noteH.Get)
	mux.HandleFunc("GET /api/notes/{id}/html", s.noteH.HTML)
	mux.HandleFunc("PUT /api/notes/{id}", s.rateLimited(s.noteH.Update))
	mux.HandleFunc("DELETE /api/notes/{id}", s.rateLimited(s.noteH.Delete))

	var h http.Handler = mux
	h = middleware.CORS(s.cfg.CORS.AllowedOrigins)(h)
	return middleware.RequestLogger(s.logger.With("component", "http"))(h)
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	status, code := "ok", http.StatusOK
	if err := s.db.PingContext(r.Context()); err != nil {
		s.logger.Error("health check failed", "error", err)
		status, code = "unavailable", http.StatusServiceUnavailable
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"status": status})
}

func (s *Server) rateLimited(h http.HandlerFunc) http.HandlerFunc {
	rl := middleware.RateLimit(s.rateLimiter, middleware.RealIP, s.cfg.RateLimit.RequestsPerMinute, time.Minute)
	limited := rl(h)
	return limited.ServeHTTP
}

// originPatterns turns configured origins into the host patterns the
// websocket upgrader matches against.
func originPatterns(origins []string) []string {
	var patterns []string
	for _, o := range origins {
		if o == "*" {
			patterns = append(patterns, "*")
			continue
		}
		u, err := url.Parse(o)
		if err != nil || u.Host == "" {
			continue
		}
		patterns = append(patterns, u.Host)
	}
	return patterns
}
