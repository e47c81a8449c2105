// Package httpapi serves the admin dashboard: auth, user management,
// analytics, stored posts, broadcasts and cron jobs, plus health and
// metrics endpoints.
package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	chi "github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"tg-anime-bot/internal/domain"
	"tg-anime-bot/internal/infra/config"
)

// Broadcaster fans stored posts out, the same service the bot commands use.
type Broadcaster interface {
	SendToAll(ctx context.Context, post domain.Post) (domain.BroadcastReport, error)
	SendTo(ctx context.Context, chatIDs []int64, post domain.Post) domain.BroadcastReport
}

// JobScheduler keeps the live schedule in sync with job edits. The cron
// service satisfies it.
type JobScheduler interface {
	Apply(job domain.CronJob) error
	Unschedule(jobID string)
	RunNow(jobID string)
}

// Uploader rehosts an image by URL so the post composer gets a stable link.
type Uploader interface {
	UploadURL(ctx context.Context, imageURL string) (string, error)
}

// Deps is everything the admin server needs.
type Deps struct {
	Cfg       config.AppConfig
	Users     domain.UserRepo
	Logs      domain.CommandLogRepo
	Posts     domain.PostStore
	Jobs      domain.CronJobRepo
	Sched     JobScheduler
	Broadcast Broadcaster
	Images    Uploader
	StartedAt time.Time
	Log       zerolog.Logger
}

// Server is the admin HTTP server.
type Server struct {
	cfg       config.AppConfig
	users     domain.UserRepo
	logs      domain.CommandLogRepo
	posts     domain.PostStore
	jobs      domain.CronJobRepo
	sched     JobScheduler
	bcast     Broadcaster
	images    Uploader
	startedAt time.Time
	log       zerolog.Logger

	router chi.Router
}

// NewServer builds the router with the shared middleware stack.
func NewServer(deps Deps) *Server {
	s := &Server{
		cfg:       deps.Cfg,
		users:     deps.Users,
		logs:      deps.Logs,
		posts:     deps.Posts,
		jobs:      deps.Jobs,
		sched:     deps.Sched,
		bcast:     deps.Broadcast,
		images:    deps.Images,
		startedAt: deps.StartedAt,
		log:       deps.Log,
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Get("/healthz", s.handleHealth)
	r.Get("/uptime", s.handleUptime)
	r.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
		promhttp.Handler().ServeHTTP(w, r)
	})

	r.Route("/api", func(r chi.Router) {
		r.Post("/auth/login", s.handleLogin)
		r.Post("/auth/logout", s.handleLogout)
		r.Get("/auth/check", s.handleAuthCheck)

		r.Group(func(r chi.Router) {
			r.Use(s.requireAuth)

			r.Get("/users", s.handleListUsers)
			r.Delete("/users/{userID}", s.handleDeleteUser)

			r.Get("/analytics", s.handleAnalytics)

			r.Get("/posts", s.handleListPosts)
			r.Post("/posts", s.handleSavePost)
			r.Get("/posts/{id}", s.handleGetPost)
			r.Delete("/posts/{id}", s.handleDeletePost)

			r.Get("/templates", s.handleListTemplates)
			r.Post("/templates", s.handleSaveTemplate)
			r.Delete("/templates/{name}", s.handleDeleteTemplate)

			r.Post("/broadcast", s.handleBroadcast)
			r.Post("/upload", s.handleUpload)

			r.Get("/cron", s.handleListJobs)
			r.Post("/cron", s.handleCreateJob)
			r.Put("/cron/{id}", s.handleUpdateJob)
			r.Delete("/cron/{id}", s.handleDeleteJob)
			r.Post("/cron/{id}/run", s.handleRunJob)

			r.Get("/settings", s.handleSettings)
		})
	})

	r.NotFound(s.handleStatic)

	s.router = r
	return s
}

// Router exposes the handler for embedding and tests.
func (s *Server) Router() http.Handler {
	return s.router
}

// Start runs the server until the listener fails or the process exits.
func (s *Server) Start(addr string) error {
	srv := &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
	}
	s.log.Info().Str("addr", addr).Msg("admin server listening")
	return srv.ListenAndServe()
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleUptime(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"startedAt": s.startedAt.UTC(),
		"uptime":    time.Since(s.startedAt).Round(time.Second).String(),
	})
}

// handleStatic serves the dashboard files. The dashboard itself requires a
// session, the login page and its assets do not.
func (s *Server) handleStatic(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusNotFound, "not_found", "no such route")
		return
	}
	path := r.URL.Path
	if strings.Contains(path, "..") {
		writeError(w, http.StatusBadRequest, "invalid_request", "bad path")
		return
	}
	if gatedPage(path) && !s.sessionValid(r) {
		http.Redirect(w, r, "/login.html", http.StatusFound)
		return
	}
	http.FileServer(http.Dir(s.cfg.Admin.PageDir)).ServeHTTP(w, r)
}

func gatedPage(path string) bool {
	switch path {
	case "/", "/index.html", "/dashboard.html":
		return true
	}
	return false
}

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorResponse{Error: message, Code: code})
}
