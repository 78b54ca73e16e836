package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/victornm/scholarway/internal/api"
	"github.com/victornm/scholarway/internal/authz"
	"github.com/victornm/scholarway/internal/domain"
	"github.com/victornm/scholarway/internal/event"
	"github.com/victornm/scholarway/internal/exam"
	"github.com/victornm/scholarway/internal/identity"
	"github.com/victornm/scholarway/internal/storage"
)

const prefix = "sw"

func TestAPI_Auth(t *testing.T) {
	h := makeHarness(t)

	rec := h.do(t, http.MethodGet, "/v1/me", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Unauthenticated", errorCode(t, rec))

	rec = h.do(t, http.MethodPost, "/v1/auth/login", "", gin.H{"email": "nobody@example.com"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	token := h.login(t, "teacher@example.com")

	rec = h.do(t, http.MethodGet, "/v1/me", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var u domain.User
	decode(t, rec, &u)
	assert.Equal(t, domain.RoleTeacher, u.Role)

	rec = h.do(t, http.MethodPost, "/v1/auth/logout", token, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = h.do(t, http.MethodGet, "/v1/me", token, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAPI_Register(t *testing.T) {
	h := makeHarness(t)

	rec := h.do(t, http.MethodPost, "/v1/auth/register", "", gin.H{
		"email": "carol@example.com",
		"name":  "Carol",
		"role":  "student",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = h.do(t, http.MethodPost, "/v1/auth/register", "", gin.H{
		"email": "student@example.com",
		"name":  "Dup",
		"role":  "student",
	})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = h.do(t, http.MethodPost, "/v1/auth/register", "", gin.H{"email": "x@example.com"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAPI_CheckPermission(t *testing.T) {
	h := makeHarness(t)
	student := h.login(t, "student@example.com")
	super := h.login(t, "superadmin@example.com")

	tests := map[string]struct {
		token   string
		query   string
		allowed bool
	}{
		"own feature":         {token: student, query: "role=student&feature=student-tests", allowed: true},
		"default role":        {token: student, query: "feature=student-progress", allowed: true},
		"other role":          {token: student, query: "role=teacher&feature=teacher-exams", allowed: false},
		"unknown feature":     {token: student, query: "role=student&feature=student-nope", allowed: false},
		"superadmin any":      {token: super, query: "role=teacher&feature=teacher-exams", allowed: true},
		"superadmin any role": {token: super, query: "role=nobody&feature=whatever", allowed: true},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			rec := h.do(t, http.MethodGet, "/v1/permissions/check?"+tt.query, tt.token, nil)
			require.Equal(t, http.StatusOK, rec.Code)

			var resp api.CheckPermissionResponse
			decode(t, rec, &resp)
			assert.Equal(t, tt.allowed, resp.Allowed)
		})
	}
}

func TestAPI_PermissionsAdmin(t *testing.T) {
	h := makeHarness(t)
	admin := h.login(t, "admin@example.com")
	super := h.login(t, "superadmin@example.com")
	student := h.login(t, "student@example.com")

	rec := h.do(t, http.MethodGet, "/v1/permissions", admin, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code, "only superadmin manages permissions")

	rec = h.do(t, http.MethodPatch, "/v1/permissions/student/dashboard", super, gin.H{"enabled": false})
	require.Equal(t, http.StatusOK, rec.Code)

	var table domain.PermissionTable
	decode(t, rec, &table)
	assert.False(t, table[domain.RoleStudent].Dashboard.Enabled)
	for _, f := range table[domain.RoleStudent].Features {
		assert.False(t, f.Enabled, f.ID)
	}

	rec = h.do(t, http.MethodGet, "/v1/tests", student, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code, "tests are hidden behind a disabled dashboard")

	rec = h.do(t, http.MethodPatch, "/v1/permissions/student/dashboard", super, gin.H{"enabled": true})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = h.do(t, http.MethodGet, "/v1/tests", student, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code, "features stay cleared after re-enabling the dashboard")

	rec = h.do(t, http.MethodPatch, "/v1/permissions/student/features/student-tests", super, gin.H{"enabled": true})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = h.do(t, http.MethodGet, "/v1/tests", student, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = h.do(t, http.MethodPatch, "/v1/permissions/student/features/student-nope", super, gin.H{"enabled": true})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = h.do(t, http.MethodPatch, "/v1/permissions/superadmin/dashboard", super, gin.H{"enabled": true})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = h.do(t, http.MethodPatch, "/v1/permissions/student/dashboard", super, gin.H{})
	assert.Equal(t, http.StatusBadRequest, rec.Code, "enabled is required")
}

func TestAPI_ExamFlow(t *testing.T) {
	h := makeHarness(t)
	student := h.login(t, "student@example.com")
	other := h.login(t, "alice@example.com")

	sub := h.redis.Subscribe(context.Background(), prefix+":user:1")
	t.Cleanup(func() { _ = sub.Close() })
	_, err := sub.Receive(context.Background())
	require.NoError(t, err)

	rec := h.do(t, http.MethodGet, "/v1/tests/2", student, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotContains(t, rec.Body.String(), "correct_answer")

	rec = h.do(t, http.MethodPost, "/v1/tests/404/sessions", student, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = h.do(t, http.MethodPost, "/v1/tests/2/sessions", student, nil)
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.NotContains(t, rec.Body.String(), "correct_answer")

	var v exam.View
	decode(t, rec, &v)
	assert.Equal(t, domain.PhaseNotStarted, v.Phase)
	assert.Equal(t, "45:00", v.Remaining)
	path := "/v1/sessions/" + v.ID

	rec = h.do(t, http.MethodGet, path, other, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code, "sessions are owner scoped")

	rec = h.do(t, http.MethodPost, path+"/start", student, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = h.do(t, http.MethodPost, path+"/answer", student, gin.H{"question_id": "q1", "value": "a"})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = h.do(t, http.MethodPost, path+"/flag", student, gin.H{"question_id": "q1"})
	require.Equal(t, http.StatusOK, rec.Code)
	decode(t, rec, &v)
	assert.Equal(t, 1.0, v.Progress)
	assert.Equal(t, []string{"q1"}, v.Flagged)

	rec = h.do(t, http.MethodPost, path+"/goto", student, gin.H{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = h.do(t, http.MethodPost, path+"/dance", student, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = h.do(t, http.MethodPost, path+"/submit", student, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	decode(t, rec, &v)
	assert.Equal(t, domain.PhaseSubmitted, v.Phase)
	require.NotNil(t, v.Result)
	assert.Equal(t, 1, v.Result.Correct)

	rec = h.do(t, http.MethodGet, "/v1/results/"+v.ID, student, nil)
	require.Equal(t, http.StatusOK, rec.Code, "result should be readable right after submit")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	msg, err := sub.ReceiveMessage(ctx)
	require.NoError(t, err)

	var n struct {
		Event string        `json:"event"`
		Data  api.Submitted `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(msg.Payload), &n))
	assert.Equal(t, domain.EventNameExamSubmitted, n.Event)
	assert.Equal(t, "100.00", n.Data.Score)

	rec = h.do(t, http.MethodGet, "/v1/results/"+v.ID, other, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

type harness struct {
	router *gin.Engine
	redis  *redis.Client
}

func makeHarness(t *testing.T) *harness {
	t.Helper()
	gin.SetMode(gin.TestMode)

	m := miniredis.RunT(t)
	r := redis.NewClient(&redis.Options{Addr: m.Addr()})

	store := storage.NewMemory()
	bus := event.NewBus()

	az := authz.NewService(authz.Config{Store: store, EventBus: bus})
	az.Init(context.Background())

	es := exam.NewService(exam.Config{
		Store:    store,
		EventBus: bus,
		NewTickerFunc: func(time.Duration) exam.Ticker {
			return idleTicker{c: make(chan time.Time)}
		},
	})

	router := gin.New()
	api.New(api.Config{
		Router:       router,
		EventBus:     bus,
		Identity:     identity.NewService(identity.Config{Store: store}),
		Authz:        az,
		Exam:         es,
		Redis:        r,
		PubsubPrefix: prefix,
	})

	t.Cleanup(func() {
		es.Shutdown(context.Background())
		bus.Stop()
		_ = r.Close()
	})

	return &harness{router: router, redis: r}
}

func (h *harness) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	h.router.ServeHTTP(rec, req)
	return rec
}

func (h *harness) login(t *testing.T, email string) string {
	t.Helper()

	rec := h.do(t, http.MethodPost, "/v1/auth/login", "", gin.H{"email": email})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var sess identity.Session
	decode(t, rec, &sess)
	return sess.Token
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), v), rec.Body.String())
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()

	var e struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	}
	decode(t, rec, &e)
	return e.Code
}

type idleTicker struct {
	c chan time.Time
}

func (t idleTicker) C() <-chan time.Time { return t.c }
func (t idleTicker) Stop()               {}
