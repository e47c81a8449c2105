package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"tg-anime-bot/internal/adapters/repo"
	"tg-anime-bot/internal/domain"
	"tg-anime-bot/internal/infra/config"
)

type stubUsers struct {
	domain.UserRepo
	users   []domain.User
	deleted []int64
}

func (s *stubUsers) ListUsers(_ context.Context, search string, limit, offset int) ([]domain.User, int64, error) {
	return s.users, int64(len(s.users)), nil
}

func (s *stubUsers) DeleteUser(_ context.Context, userID int64) error {
	s.deleted = append(s.deleted, userID)
	return nil
}

type stubLogs struct {
	domain.CommandLogRepo
	period int
}

func (s *stubLogs) Aggregate(_ context.Context, periodDays int) (domain.AnalyticsSummary, error) {
	s.period = periodDays
	return domain.AnalyticsSummary{TotalUsers: 7}, nil
}

type stubJobs struct {
	domain.CronJobRepo
}

type stubSched struct {
	applied     []string
	unscheduled []string
	ran         []string
}

func (s *stubSched) Apply(job domain.CronJob) error {
	s.applied = append(s.applied, job.Name)
	return nil
}
func (s *stubSched) Unschedule(id string) { s.unscheduled = append(s.unscheduled, id) }
func (s *stubSched) RunNow(id string)     { s.ran = append(s.ran, id) }

type stubUploader struct {
	got string
}

func (s *stubUploader) UploadURL(_ context.Context, imageURL string) (string, error) {
	s.got = imageURL
	return "https://i.imgur.com/rehosted.jpg", nil
}

type stubBroadcaster struct {
	sent chan domain.Post
}

func (s *stubBroadcaster) SendToAll(_ context.Context, post domain.Post) (domain.BroadcastReport, error) {
	s.sent <- post
	return domain.BroadcastReport{Total: 1, Success: 1}, nil
}

func (s *stubBroadcaster) SendTo(_ context.Context, chatIDs []int64, post domain.Post) domain.BroadcastReport {
	s.sent <- post
	return domain.BroadcastReport{Total: len(chatIDs), Success: len(chatIDs)}
}

func testServer(t *testing.T) (*Server, *stubUsers, *stubSched, *stubBroadcaster) {
	t.Helper()
	store, err := repo.NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("file store: %v", err)
	}
	var cfg config.AppConfig
	cfg.Admin.Username = "admin"
	cfg.Admin.Password = "hunter2"
	cfg.Admin.SessionSecret = "test-secret"
	cfg.Admin.PageDir = t.TempDir()

	users := &stubUsers{}
	sched := &stubSched{}
	bcast := &stubBroadcaster{sent: make(chan domain.Post, 1)}
	srv := NewServer(Deps{
		Cfg:       cfg,
		Users:     users,
		Logs:      &stubLogs{},
		Posts:     store,
		Jobs:      &stubJobs{},
		Sched:     sched,
		Broadcast: bcast,
		Images:    &stubUploader{},
		StartedAt: time.Now(),
		Log:       zerolog.Nop(),
	})
	return srv, users, sched, bcast
}

func login(t *testing.T, srv *Server) *http.Cookie {
	t.Helper()
	body := bytes.NewBufferString(`{"username":"admin","password":"hunter2"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/auth/login", body)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("login status = %d", rec.Code)
	}
	for _, cookie := range rec.Result().Cookies() {
		if cookie.Name == sessionCookie {
			return cookie
		}
	}
	t.Fatal("no session cookie set")
	return nil
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	srv, _, _, _ := testServer(t)
	body := bytes.NewBufferString(`{"username":"admin","password":"wrong"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/auth/login", body)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
}

func TestAPIRequiresSession(t *testing.T) {
	srv, _, _, _ := testServer(t)
	req := httptest.NewRequest(http.MethodGet, "/api/users", nil)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
}

func TestUsersListWithSession(t *testing.T) {
	srv, users, _, _ := testServer(t)
	users.users = []domain.User{{UserID: 1}, {UserID: 2}}
	cookie := login(t, srv)

	req := httptest.NewRequest(http.MethodGet, "/api/users?search=foo", nil)
	req.AddCookie(cookie)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var resp struct {
		Total int64 `json:"total"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Total != 2 {
		t.Errorf("total = %d, want 2", resp.Total)
	}
}

func TestPostCRUDOverAPI(t *testing.T) {
	srv, _, _, _ := testServer(t)
	cookie := login(t, srv)

	body := bytes.NewBufferString(`{"type":"text","text":"hello"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/posts", body)
	req.AddCookie(cookie)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("create status = %d: %s", rec.Code, rec.Body.String())
	}
	var created domain.Post
	if err := json.NewDecoder(rec.Body).Decode(&created); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if created.ID != 1 {
		t.Errorf("id = %d, want 1", created.ID)
	}

	req = httptest.NewRequest(http.MethodDelete, "/api/posts/1", nil)
	req.AddCookie(cookie)
	rec = httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("delete status = %d", rec.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/posts/1", nil)
	req.AddCookie(cookie)
	rec = httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("get deleted status = %d, want 404", rec.Code)
	}
}

func TestCronCreateRejectsBadSchedule(t *testing.T) {
	srv, _, sched, _ := testServer(t)
	cookie := login(t, srv)

	body := bytes.NewBufferString(`{"name":"bad","type":"script","schedule":"whenever","action":{"code":"1"}}`)
	req := httptest.NewRequest(http.MethodPost, "/api/cron", body)
	req.AddCookie(cookie)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	if len(sched.applied) != 0 {
		t.Errorf("bad job was scheduled: %v", sched.applied)
	}
}

func TestBroadcastStartsInBackground(t *testing.T) {
	srv, _, _, bcast := testServer(t)
	cookie := login(t, srv)

	body := bytes.NewBufferString(`{"type":"text","text":"announce"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/posts", body)
	req.AddCookie(cookie)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("create post status = %d", rec.Code)
	}

	req = httptest.NewRequest(http.MethodPost, "/api/broadcast", bytes.NewBufferString(`{"postId":1,"target":"all"}`))
	req.AddCookie(cookie)
	rec = httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)
	if rec.Code != http.StatusAccepted {
		t.Fatalf("status = %d, want 202", rec.Code)
	}

	select {
	case post := <-bcast.sent:
		if post.Text != "announce" {
			t.Errorf("broadcast text = %q", post.Text)
		}
	case <-time.After(time.Second):
		t.Fatal("broadcast never started")
	}
}

func TestUploadRehostsImage(t *testing.T) {
	srv, _, _, _ := testServer(t)
	cookie := login(t, srv)

	body := bytes.NewBufferString(`{"url":"https://example.com/cover.jpg"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/upload", body)
	req.AddCookie(cookie)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	var resp map[string]string
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp["link"] != "https://i.imgur.com/rehosted.jpg" {
		t.Errorf("link = %q", resp["link"])
	}
}

func TestHealthAndUptimeArePublic(t *testing.T) {
	srv, _, _, _ := testServer(t)
	for _, path := range []string{"/healthz", "/uptime"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		rec := httptest.NewRecorder()
		srv.Router().ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Errorf("%s status = %d", path, rec.Code)
		}
	}
}

func TestDashboardRedirectsWithoutSession(t *testing.T) {
	srv, _, _, _ := testServer(t)
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)
	if rec.Code != http.StatusFound {
		t.Fatalf("status = %d, want 302", rec.Code)
	}
	if loc := rec.Header().Get("Location"); loc != "/login.html" {
		t.Errorf("redirect to %q", loc)
	}
}
