package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	chi "github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"tg-anime-bot/internal/domain"
	"tg-anime-bot/internal/usecase/cron"
)

const defaultPageSize = 50

func (s *Server) handleListUsers(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit := intQuery(q.Get("limit"), defaultPageSize)
	offset := intQuery(q.Get("offset"), 0)

	users, total, err := s.users.ListUsers(r.Context(), q.Get("search"), limit, offset)
	if err != nil {
		s.log.Error().Err(err).Msg("list users")
		writeError(w, http.StatusInternalServerError, "internal_error", "could not list users")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"users": users,
		"total": total,
	})
}

func (s *Server) handleDeleteUser(w http.ResponseWriter, r *http.Request) {
	userID, err := strconv.ParseInt(chi.URLParam(r, "userID"), 10, 64)
	if err != nil || userID == 0 {
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid user id")
		return
	}
	if err := s.users.DeleteUser(r.Context(), userID); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeError(w, http.StatusNotFound, "user_not_found", "user not found")
			return
		}
		s.log.Error().Err(err).Int64("user_id", userID).Msg("delete user")
		writeError(w, http.StatusInternalServerError, "internal_error", "could not delete user")
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (s *Server) handleAnalytics(w http.ResponseWriter, r *http.Request) {
	period := intQuery(r.URL.Query().Get("period"), 7)
	summary, err := s.logs.Aggregate(r.Context(), period)
	if err != nil {
		s.log.Error().Err(err).Msg("aggregate analytics")
		writeError(w, http.StatusInternalServerError, "internal_error", "could not build analytics")
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func (s *Server) handleListPosts(w http.ResponseWriter, r *http.Request) {
	posts, err := s.posts.ListPosts()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", "could not list posts")
		return
	}
	writeJSON(w, http.StatusOK, posts)
}

func (s *Server) handleSavePost(w http.ResponseWriter, r *http.Request) {
	var post domain.Post
	if err := json.NewDecoder(r.Body).Decode(&post); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid request body")
		return
	}
	if post.Type == "" {
		post.Type = domain.PostText
	}
	if post.Type == domain.PostText && post.Text == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "text posts need text")
		return
	}
	id, err := s.posts.SavePost(post)
	if err != nil {
		s.log.Error().Err(err).Msg("save post")
		writeError(w, http.StatusInternalServerError, "internal_error", "could not save post")
		return
	}
	post.ID = id
	writeJSON(w, http.StatusOK, post)
}

func (s *Server) handleGetPost(w http.ResponseWriter, r *http.Request) {
	id := intQuery(chi.URLParam(r, "id"), 0)
	post, err := s.posts.GetPost(id)
	if err != nil {
		writeError(w, http.StatusNotFound, "post_not_found", "post not found")
		return
	}
	writeJSON(w, http.StatusOK, post)
}

func (s *Server) handleDeletePost(w http.ResponseWriter, r *http.Request) {
	id := intQuery(chi.URLParam(r, "id"), 0)
	if err := s.posts.DeletePost(id); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeError(w, http.StatusNotFound, "post_not_found", "post not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "internal_error", "could not delete post")
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (s *Server) handleListTemplates(w http.ResponseWriter, r *http.Request) {
	templates, err := s.posts.ListTemplates()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", "could not list templates")
		return
	}
	writeJSON(w, http.StatusOK, templates)
}

func (s *Server) handleSaveTemplate(w http.ResponseWriter, r *http.Request) {
	var tpl domain.Template
	if err := json.NewDecoder(r.Body).Decode(&tpl); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid request body")
		return
	}
	if tpl.Name == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "template name is required")
		return
	}
	if err := s.posts.SaveTemplate(tpl); err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", "could not save template")
		return
	}
	writeJSON(w, http.StatusOK, tpl)
}

func (s *Server) handleDeleteTemplate(w http.ResponseWriter, r *http.Request) {
	if err := s.posts.DeleteTemplate(chi.URLParam(r, "name")); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeError(w, http.StatusNotFound, "template_not_found", "template not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "internal_error", "could not delete template")
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

type broadcastRequest struct {
	PostID    int     `json:"postId"`
	Target    string  `json:"target"` // all|custom
	CustomIDs []int64 `json:"customIds,omitempty"`
}

// handleBroadcast kicks the fan-out off in the background and returns
// immediately, long runs must not hold the request open.
func (s *Server) handleBroadcast(w http.ResponseWriter, r *http.Request) {
	var req broadcastRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid request body")
		return
	}
	post, err := s.posts.GetPost(req.PostID)
	if err != nil {
		writeError(w, http.StatusNotFound, "post_not_found", "post not found")
		return
	}
	if req.Target == "custom" && len(req.CustomIDs) == 0 {
		writeError(w, http.StatusBadRequest, "invalid_request", "custom target needs customIds")
		return
	}

	go func() {
		ctx := context.Background()
		var report domain.BroadcastReport
		if req.Target == "custom" {
			report = s.bcast.SendTo(ctx, req.CustomIDs, post)
		} else {
			var err error
			report, err = s.bcast.SendToAll(ctx, post)
			if err != nil {
				s.log.Error().Err(err).Int("post", post.ID).Msg("broadcast failed to start")
				return
			}
		}
		s.log.Info().
			Str("run_id", report.RunID).
			Int("success", report.Success).
			Int("failed", report.Failed).
			Msg("admin broadcast finished")
	}()
	writeJSON(w, http.StatusAccepted, map[string]bool{"started": true})
}

type uploadRequest struct {
	URL string `json:"url"`
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	var req uploadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.URL == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "url is required")
		return
	}
	link, err := s.images.UploadURL(r.Context(), req.URL)
	if err != nil {
		s.log.Error().Err(err).Msg("rehost image")
		writeError(w, http.StatusBadGateway, "upload_failed", "could not rehost image")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"link": link})
}

func (s *Server) handleListJobs(w http.ResponseWriter, r *http.Request) {
	jobs, err := s.jobs.ListJobs(r.Context(), false)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", "could not list jobs")
		return
	}
	writeJSON(w, http.StatusOK, jobs)
}

func (s *Server) handleCreateJob(w http.ResponseWriter, r *http.Request) {
	var job domain.CronJob
	if err := json.NewDecoder(r.Body).Decode(&job); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid request body")
		return
	}
	if code, msg := validateJob(job); msg != "" {
		writeError(w, http.StatusBadRequest, code, msg)
		return
	}

	created, err := s.jobs.CreateJob(r.Context(), job)
	if err != nil {
		s.log.Error().Err(err).Str("job", job.Name).Msg("create cron job")
		writeError(w, http.StatusInternalServerError, "internal_error", "could not create job")
		return
	}
	if err := s.sched.Apply(created); err != nil {
		s.log.Error().Err(err).Str("job", created.Name).Msg("schedule created job")
	}
	writeJSON(w, http.StatusOK, created)
}

func (s *Server) handleUpdateJob(w http.ResponseWriter, r *http.Request) {
	id, err := primitive.ObjectIDFromHex(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid job id")
		return
	}
	var job domain.CronJob
	if err := json.NewDecoder(r.Body).Decode(&job); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid request body")
		return
	}
	job.ID = id
	if code, msg := validateJob(job); msg != "" {
		writeError(w, http.StatusBadRequest, code, msg)
		return
	}

	if err := s.jobs.UpdateJob(r.Context(), job); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeError(w, http.StatusNotFound, "job_not_found", "job not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "internal_error", "could not update job")
		return
	}
	if err := s.sched.Apply(job); err != nil {
		s.log.Error().Err(err).Str("job", job.Name).Msg("reschedule updated job")
	}
	writeJSON(w, http.StatusOK, job)
}

func (s *Server) handleDeleteJob(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := s.jobs.DeleteJob(r.Context(), id); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeError(w, http.StatusNotFound, "job_not_found", "job not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "internal_error", "could not delete job")
		return
	}
	s.sched.Unschedule(id)
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (s *Server) handleRunJob(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, err := s.jobs.GetJob(r.Context(), id); err != nil {
		writeError(w, http.StatusNotFound, "job_not_found", "job not found")
		return
	}
	s.sched.RunNow(id)
	writeJSON(w, http.StatusAccepted, map[string]bool{"started": true})
}

func (s *Server) handleSettings(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"env":            s.cfg.AppEnv,
		"ownerId":        s.cfg.Telegram.OwnerID,
		"animeChannel":   s.cfg.Telegram.AnimeChannel,
		"mangaChannel":   s.cfg.Telegram.MangaChannel,
		"broadcastDelay": s.cfg.Broadcast.DelayMS,
		"storeDir":       s.cfg.Store.Dir,
	})
}

func validateJob(job domain.CronJob) (code, message string) {
	if job.Name == "" {
		return "invalid_request", "job name is required"
	}
	switch job.Type {
	case domain.CronJobCommand:
		if job.Action.Command == "" {
			return "invalid_request", "command jobs need action.command"
		}
	case domain.CronJobScript:
		if job.Action.Code == "" {
			return "invalid_request", "script jobs need action.code"
		}
	default:
		return "invalid_request", "job type must be command or script"
	}
	if err := cron.ValidateSpec(job.Schedule); err != nil {
		return "invalid_schedule", "schedule does not parse: " + err.Error()
	}
	return "", ""
}

func intQuery(raw string, fallback int) int {
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return fallback
	}
	return n
}
