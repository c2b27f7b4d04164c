package controller

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"desorientado_backend/internal/highlight"
	"desorientado_backend/internal/model"
	"desorientado_backend/internal/progress"
	"desorientado_backend/internal/service"
	"desorientado_backend/internal/util"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeProgress records the arguments it was called with and returns err
// when set.
type fakeProgress struct {
	err      error
	userID   uint
	lessonID string
	today    string
	score    int
	total    int
	limit    int
	resets   int
}

func (f *fakeProgress) Get(_ context.Context, userID uint) (service.ProgressView, error) {
	f.userID = userID
	return service.ProgressView{Progress: progress.Default(), Level: progress.GetLevel(0)}, f.err
}

func (f *fakeProgress) mutation(userID uint, lessonID, today string) (service.MutationResult, error) {
	f.userID, f.lessonID, f.today = userID, lessonID, today
	if f.err != nil {
		return service.MutationResult{}, f.err
	}
	return service.MutationResult{XPAwarded: 50, Saved: service.SaveResult{Remote: true, Local: true}}, nil
}

func (f *fakeProgress) CompleteLesson(_ context.Context, userID uint, lessonID, today string) (service.MutationResult, error) {
	return f.mutation(userID, lessonID, today)
}

func (f *fakeProgress) SubmitQuiz(_ context.Context, userID uint, lessonID string, score, total int, today string) (service.MutationResult, error) {
	f.score, f.total = score, total
	return f.mutation(userID, lessonID, today)
}

func (f *fakeProgress) ToggleFavorite(_ context.Context, userID uint, lessonID, today string) (service.MutationResult, error) {
	return f.mutation(userID, lessonID, today)
}

func (f *fakeProgress) History(_ context.Context, userID uint) (progress.QuizHistory, error) {
	f.userID = userID
	return progress.QuizHistory{}, f.err
}

func (f *fakeProgress) Reviews(_ context.Context, userID uint, today string, limit int) ([]progress.Suggestion, error) {
	f.userID, f.today, f.limit = userID, today, limit
	return []progress.Suggestion{{LessonID: "classes", Reason: progress.ReasonPeriodic}}, f.err
}

func (f *fakeProgress) Reset(_ context.Context, userID uint) (service.MutationResult, error) {
	f.userID = userID
	f.resets++
	return service.MutationResult{}, f.err
}

// withUser stands in for the auth middleware.
func withUser(id uint, role model.UserRole) gin.HandlerFunc {
	return func(c *gin.Context) {
		if id != 0 {
			c.Set(util.ContextUserKey, &util.Claims{UserID: id, Role: role})
		}
		c.Next()
	}
}

type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func do(t *testing.T, r *gin.Engine, method, path string, body any, headers map[string]string) (int, envelope) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	var env envelope
	if w.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	}
	return w.Code, env
}

func progressRouter(svc *fakeProgress, userID uint) *gin.Engine {
	gin.SetMode(gin.TestMode)
	c := NewProgressController(svc, time.UTC)
	c.now = func() time.Time { return time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC) }

	r := gin.New()
	g := r.Group("/api/progress", withUser(userID, model.Student))
	g.GET("", c.GetProgress)
	g.POST("/lessons/:lessonId/complete", c.CompleteLesson)
	g.POST("/lessons/:lessonId/quiz", c.SubmitQuiz)
	g.POST("/lessons/:lessonId/favorite", c.ToggleFavorite)
	g.GET("/history", c.GetHistory)
	g.GET("/reviews", c.GetReviews)
	return r
}

func TestProgressController_CompleteLessonUsesLearnerDate(t *testing.T) {
	svc := &fakeProgress{}
	r := progressRouter(svc, 4)

	code, env := do(t, r, http.MethodPost, "/api/progress/lessons/classes/complete", nil,
		map[string]string{util.HeaderLocalDate: "2025-03-09"})
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, http.StatusOK, env.Code)
	assert.Equal(t, uint(4), svc.userID)
	assert.Equal(t, "classes", svc.lessonID)
	assert.Equal(t, "2025-03-09", svc.today)

	var res service.MutationResult
	require.NoError(t, json.Unmarshal(env.Data, &res))
	assert.Equal(t, 50, res.XPAwarded)

	code, _ = do(t, r, http.MethodPost, "/api/progress/lessons/classes/complete", nil, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "2025-03-10", svc.today)

	code, _ = do(t, r, http.MethodPost, "/api/progress/lessons/classes/complete", nil,
		map[string]string{util.HeaderLocalDate: "amanhã"})
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestProgressController_SubmitQuiz(t *testing.T) {
	svc := &fakeProgress{}
	r := progressRouter(svc, 4)

	code, _ := do(t, r, http.MethodPost, "/api/progress/lessons/heranca/quiz", gin.H{"score": 0, "total": 5}, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, 0, svc.score)
	assert.Equal(t, 5, svc.total)

	code, _ = do(t, r, http.MethodPost, "/api/progress/lessons/heranca/quiz", gin.H{"total": 5}, nil)
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestProgressController_ErrorMapping(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{progress.ErrInvalidQuiz, http.StatusBadRequest},
		{progress.ErrInvalidLesson, http.StatusBadRequest},
		{util.ErrLessonNotFound, http.StatusNotFound},
		{fmt.Errorf("save: %w", service.ErrStoreUnavailable), http.StatusServiceUnavailable},
		{errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tc := range cases {
		t.Run(tc.err.Error(), func(t *testing.T) {
			r := progressRouter(&fakeProgress{err: tc.err}, 4)
			code, env := do(t, r, http.MethodPost, "/api/progress/lessons/x/quiz", gin.H{"score": 1, "total": 2}, nil)
			assert.Equal(t, tc.want, code)
			assert.Equal(t, tc.want, env.Code)
		})
	}
}

func TestProgressController_RequiresUser(t *testing.T) {
	r := progressRouter(&fakeProgress{}, 0)
	code, _ := do(t, r, http.MethodGet, "/api/progress", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, code)
}

func TestProgressController_Reviews(t *testing.T) {
	svc := &fakeProgress{}
	r := progressRouter(svc, 4)

	code, env := do(t, r, http.MethodGet, "/api/progress/reviews?limit=500", nil,
		map[string]string{util.HeaderTimezone: "UTC"})
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, maxReviewLimit, svc.limit)
	assert.Equal(t, "2025-03-10", svc.today)

	var body struct {
		Today   string                `json:"today"`
		Reviews []progress.Suggestion `json:"reviews"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &body))
	assert.Equal(t, "2025-03-10", body.Today)
	require.Len(t, body.Reviews, 1)
	assert.Equal(t, "classes", body.Reviews[0].LessonID)
}

type fakeLeaderboard struct {
	limit  int
	viewer uint
}

func (f *fakeLeaderboard) Top(_ context.Context, limit int, viewer uint) ([]service.LeaderboardEntry, error) {
	f.limit, f.viewer = limit, viewer
	return []service.LeaderboardEntry{}, nil
}

func TestLeaderboardController(t *testing.T) {
	gin.SetMode(gin.TestMode)
	svc := &fakeLeaderboard{}
	c := NewLeaderboardController(svc)

	anon := gin.New()
	anon.GET("/lb", c.GetLeaderboard)
	code, _ := do(t, anon, http.MethodGet, "/lb", nil, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, service.DefaultLeaderboardLimit, svc.limit)
	assert.Zero(t, svc.viewer)

	authed := gin.New()
	authed.GET("/lb", withUser(8, model.Student), c.GetLeaderboard)
	code, _ = do(t, authed, http.MethodGet, "/lb?limit=5", nil, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, 5, svc.limit)
	assert.Equal(t, uint(8), svc.viewer)
}

type fakeRunner struct {
	err error
}

func (f fakeRunner) Run(_ context.Context, req service.RunRequest) (*service.RunResult, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &service.RunResult{Stdout: "oi\n", Status: "Accepted"}, nil
}

func codeRouter(runner codeRunner) *gin.Engine {
	gin.SetMode(gin.TestMode)
	c := NewCodeController(runner)
	r := gin.New()
	r.POST("/highlight", c.Highlight)
	r.POST("/edit", c.EditKey)
	r.POST("/run", withUser(1, model.Student), c.RunCode)
	return r
}

func TestCodeController_Highlight(t *testing.T) {
	r := codeRouter(fakeRunner{})
	src := `class A { int x = 1; }`

	code, env := do(t, r, http.MethodPost, "/highlight", gin.H{"source": src}, nil)
	require.Equal(t, http.StatusOK, code)

	var spans []highlight.Span
	require.NoError(t, json.Unmarshal(env.Data, &spans))
	var sb strings.Builder
	for _, s := range spans {
		sb.WriteString(s.Text)
	}
	assert.Equal(t, src, sb.String())
	assert.Equal(t, highlight.KindKeyword, spans[0].Kind)
}

func TestCodeController_EditKey(t *testing.T) {
	r := codeRouter(fakeRunner{})

	code, env := do(t, r, http.MethodPost, "/edit", gin.H{"text": "ab", "cursor": 1, "key": "tab"}, nil)
	require.Equal(t, http.StatusOK, code)
	var edit highlight.Edit
	require.NoError(t, json.Unmarshal(env.Data, &edit))
	assert.Equal(t, "a    b", edit.Text)
	assert.Equal(t, 5, edit.Cursor)

	code, env = do(t, r, http.MethodPost, "/edit", gin.H{"text": "// Olá\n", "cursor": 6, "key": "tab"}, nil)
	require.Equal(t, http.StatusOK, code)
	require.NoError(t, json.Unmarshal(env.Data, &edit))
	assert.Equal(t, "// Olá    \n", edit.Text)
	assert.Equal(t, 10, edit.Cursor)

	code, _ = do(t, r, http.MethodPost, "/edit", gin.H{"text": "ab", "cursor": 1, "key": "paste"}, nil)
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestCodeController_RunErrors(t *testing.T) {
	code, _ := do(t, codeRouter(fakeRunner{}), http.MethodPost, "/run", gin.H{"source": "class A {}"}, nil)
	assert.Equal(t, http.StatusOK, code)

	code, _ = do(t, codeRouter(fakeRunner{}), http.MethodPost, "/run", gin.H{"stdin": "x"}, nil)
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = do(t, codeRouter(fakeRunner{err: fmt.Errorf("%w: status 500", util.ErrCodeRunnerFailed)}),
		http.MethodPost, "/run", gin.H{"source": "class A {}"}, nil)
	assert.Equal(t, http.StatusBadGateway, code)

	code, _ = do(t, codeRouter(fakeRunner{err: util.ErrCodeRunnerDown}),
		http.MethodPost, "/run", gin.H{"source": "class A {}"}, nil)
	assert.Equal(t, http.StatusServiceUnavailable, code)
}

type fakeExport struct{}

func (fakeExport) Export(context.Context) (*service.ExportResult, error) {
	return &service.ExportResult{Object: "exports/p.jsonl", Documents: 3}, nil
}

func TestAdminController(t *testing.T) {
	gin.SetMode(gin.TestMode)
	svc := &fakeProgress{}
	c := NewAdminController(svc, fakeExport{})
	r := gin.New()
	g := r.Group("/admin", withUser(1, model.Admin))
	g.GET("/users/:id/progress", c.GetUserProgress)
	g.POST("/users/:id/progress/reset", c.ResetUserProgress)
	g.POST("/export", c.ExportProgress)

	code, _ := do(t, r, http.MethodGet, "/admin/users/abc/progress", nil, nil)
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = do(t, r, http.MethodGet, "/admin/users/12/progress", nil, nil)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, uint(12), svc.userID)

	code, _ = do(t, r, http.MethodPost, "/admin/users/12/progress/reset", nil, nil)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, 1, svc.resets)

	code, env := do(t, r, http.MethodPost, "/admin/export", nil, nil)
	assert.Equal(t, http.StatusCreated, code)
	assert.Contains(t, string(env.Data), "exports/p.jsonl")
}

type fakeAuth struct{}

func (fakeAuth) Register(_ context.Context, name, email, _ string) (*model.User, error) {
	if email == "dup@example.com" {
		return nil, util.ErrEmailRegistered
	}
	u := &model.User{Name: name, Email: email}
	u.ID = 3
	return u, nil
}

func (fakeAuth) Login(_ context.Context, email, _ string) (string, *model.User, error) {
	if email != "ana@example.com" {
		return "", nil, util.ErrInvalidCredentials
	}
	return "token", &model.User{Email: email}, nil
}

func (fakeAuth) GetUser(_ context.Context, id uint) (*model.User, error) {
	return nil, util.ErrUserNotFound
}

func TestAuthController(t *testing.T) {
	gin.SetMode(gin.TestMode)
	c := NewAuthController(fakeAuth{})
	r := gin.New()
	r.POST("/register", c.Register)
	r.POST("/login", c.Login)
	r.GET("/profile", withUser(3, model.Student), c.GetProfile)

	code, _ := do(t, r, http.MethodPost, "/register", gin.H{"name": "Ana", "email": "ana@example.com", "password": "12345678"}, nil)
	assert.Equal(t, http.StatusCreated, code)

	code, _ = do(t, r, http.MethodPost, "/register", gin.H{"name": "Ana", "email": "dup@example.com", "password": "12345678"}, nil)
	assert.Equal(t, http.StatusConflict, code)

	code, _ = do(t, r, http.MethodPost, "/register", gin.H{"name": "Ana", "email": "ana@example.com", "password": "curta"}, nil)
	assert.Equal(t, http.StatusBadRequest, code)

	code, env := do(t, r, http.MethodPost, "/login", gin.H{"email": "ana@example.com", "password": "x"}, nil)
	assert.Equal(t, http.StatusOK, code)
	assert.Contains(t, string(env.Data), `"token":"token"`)
	assert.NotContains(t, string(env.Data), "password")

	code, _ = do(t, r, http.MethodPost, "/login", gin.H{"email": "bia@example.com", "password": "x"}, nil)
	assert.Equal(t, http.StatusUnauthorized, code)

	code, _ = do(t, r, http.MethodGet, "/profile", nil, nil)
	assert.Equal(t, http.StatusNotFound, code)
}

func TestHealthController(t *testing.T) {
	gin.SetMode(gin.TestMode)
	up := PingFunc(func(context.Context) error { return nil })
	down := PingFunc(func(context.Context) error { return errors.New("down") })

	r := gin.New()
	r.GET("/ok", NewHealthController(up, up).HealthCheck)
	r.GET("/degraded", NewHealthController(up, down).HealthCheck)
	r.GET("/down", NewHealthController(down, nil).HealthCheck)

	code, env := do(t, r, http.MethodGet, "/ok", nil, nil)
	assert.Equal(t, http.StatusOK, code)
	assert.Contains(t, string(env.Data), `"status":"ok"`)

	code, env = do(t, r, http.MethodGet, "/degraded", nil, nil)
	assert.Equal(t, http.StatusOK, code)
	assert.Contains(t, string(env.Data), `"status":"degraded"`)

	code, _ = do(t, r, http.MethodGet, "/down", nil, nil)
	assert.Equal(t, http.StatusServiceUnavailable, code)
}
