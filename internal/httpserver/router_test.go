package httpserver

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap/zaptest"

	"fairshare/internal/handler"
	"fairshare/internal/service"
	"fairshare/internal/storage/sqlite"
	"fairshare/pkg/idempotency"
	"fairshare/pkg/trace"
)

func init() {
	gin.SetMode(gin.TestMode)
}

var fixedNow = time.Date(2026, time.March, 10, 9, 0, 0, 0, time.UTC)

func newTestRouter(t *testing.T, guard *idempotency.Guard) *gin.Engine {
	t.Helper()
	logger := zaptest.NewLogger(t)
	s, err := sqlite.Open(context.Background(), filepath.Join(t.TempDir(), "fairshare.db"), logger)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })

	tracker := service.NewTracker(s, logger, service.WithClock(func() time.Time { return fixedNow }))
	return NewRouter(
		handler.NewProjectHandler(tracker, guard, logger),
		handler.NewModuleHandler(tracker, guard, logger),
		tracker,
		logger,
	)
}

func do(t *testing.T, r http.Handler, method, path string, body any, headers ...string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder, dst any) {
	t.Helper()
	if err := json.Unmarshal(w.Body.Bytes(), dst); err != nil {
		t.Fatalf("decode %q: %v", w.Body.String(), err)
	}
}

func createdID(t *testing.T, w *httptest.ResponseRecorder, field string) int64 {
	t.Helper()
	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201 (body %s)", w.Code, w.Body.String())
	}
	var body map[string]int64
	decode(t, w, &body)
	id, ok := body[field]
	if !ok || id <= 0 {
		t.Fatalf("body %s has no %s", w.Body.String(), field)
	}
	return id
}

func TestHealthAndMetrics(t *testing.T) {
	t.Parallel()
	r := newTestRouter(t, nil)

	if w := do(t, r, http.MethodGet, "/healthz", nil); w.Code != http.StatusOK {
		t.Fatalf("healthz = %d", w.Code)
	}
	if w := do(t, r, http.MethodGet, "/readyz", nil); w.Code != http.StatusOK {
		t.Fatalf("readyz = %d (%s)", w.Code, w.Body.String())
	}
	w := do(t, r, http.MethodGet, "/metrics", nil)
	if w.Code != http.StatusOK || !bytes.Contains(w.Body.Bytes(), []byte("go_goroutines")) {
		t.Fatalf("metrics = %d", w.Code)
	}
}

func TestTraceHeader(t *testing.T) {
	t.Parallel()
	r := newTestRouter(t, nil)

	w := do(t, r, http.MethodGet, "/projects", nil, trace.HeaderName, "abc-123")
	if got := w.Header().Get(trace.HeaderName); got != "abc-123" {
		t.Fatalf("trace header = %q, want echo", got)
	}
	w = do(t, r, http.MethodGet, "/projects", nil)
	if _, err := uuid.Parse(w.Header().Get(trace.HeaderName)); err != nil {
		t.Fatalf("generated trace id %q: %v", w.Header().Get(trace.HeaderName), err)
	}
}

func TestProjectFlow(t *testing.T) {
	t.Parallel()
	r := newTestRouter(t, nil)

	pid := createdID(t, do(t, r, http.MethodPost, "/projects", map[string]string{"name": "Launch", "deadline": "2026-03-13"}), "project_id")
	ann := createdID(t, do(t, r, http.MethodPost, fmt.Sprintf("/projects/%d/members", pid), map[string]string{"name": "Ann"}), "member_id")
	mid := createdID(t, do(t, r, http.MethodPost, fmt.Sprintf("/projects/%d/modules", pid),
		map[string]any{"name": "Design", "member_id": ann, "priority": "medium"}), "module_id")
	createdID(t, do(t, r, http.MethodPost, fmt.Sprintf("/modules/%d/updates", mid), map[string]string{"date": "2026-03-10", "text": "started"}), "update_id")

	var report struct {
		Progress int `json:"progress"`
		Urgency  struct {
			Class string `json:"class"`
			Label string `json:"label"`
		} `json:"urgency"`
		Modules []struct {
			Assignee string `json:"assignee"`
			Priority string `json:"priority"`
			Updates  []struct {
				Date string `json:"date"`
				Text string `json:"text"`
			} `json:"updates"`
		} `json:"modules"`
	}
	w := do(t, r, http.MethodGet, fmt.Sprintf("/projects/%d/report", pid), nil)
	if w.Code != http.StatusOK {
		t.Fatalf("report = %d (%s)", w.Code, w.Body.String())
	}
	decode(t, w, &report)
	if report.Progress != 0 || report.Urgency.Label != "3 days left" {
		t.Fatalf("report = %+v", report)
	}
	if len(report.Modules) != 1 || report.Modules[0].Assignee != "Ann" || report.Modules[0].Priority != "Medium" {
		t.Fatalf("modules = %+v", report.Modules)
	}
	if u := report.Modules[0].Updates; len(u) != 1 || u[0].Date != "2026-03-10" || u[0].Text != "started" {
		t.Fatalf("updates = %+v", u)
	}

	if w := do(t, r, http.MethodPost, fmt.Sprintf("/modules/%d/complete", mid), nil); w.Code != http.StatusOK {
		t.Fatalf("complete = %d", w.Code)
	}
	if w := do(t, r, http.MethodPost, fmt.Sprintf("/modules/%d/complete", mid), nil); w.Code != http.StatusOK {
		t.Fatalf("complete again = %d", w.Code)
	}
	decode(t, do(t, r, http.MethodGet, fmt.Sprintf("/projects/%d/report", pid), nil), &report)
	if report.Progress != 100 {
		t.Fatalf("progress = %d, want 100", report.Progress)
	}

	var list struct {
		Projects []service.ProjectSummary `json:"projects"`
	}
	decode(t, do(t, r, http.MethodGet, "/projects", nil), &list)
	if len(list.Projects) != 1 || list.Projects[0].Progress != 100 {
		t.Fatalf("projects = %+v", list.Projects)
	}
}

func TestEditModule(t *testing.T) {
	t.Parallel()
	r := newTestRouter(t, nil)

	pid := createdID(t, do(t, r, http.MethodPost, "/projects", map[string]string{"name": "A"}), "project_id")
	ann := createdID(t, do(t, r, http.MethodPost, fmt.Sprintf("/projects/%d/members", pid), map[string]string{"name": "Ann"}), "member_id")
	mid := createdID(t, do(t, r, http.MethodPost, fmt.Sprintf("/projects/%d/modules", pid), map[string]any{"name": "Design"}), "module_id")

	w := do(t, r, http.MethodPatch, fmt.Sprintf("/modules/%d", mid), map[string]any{"member_id": ann, "priority": "High", "name": "Build"})
	if w.Code != http.StatusOK {
		t.Fatalf("patch = %d (%s)", w.Code, w.Body.String())
	}
	var view service.ModuleView
	decode(t, do(t, r, http.MethodGet, fmt.Sprintf("/modules/%d", mid), nil), &view)
	if view.Module.Name != "Build" || view.Member == nil || view.Member.Name != "Ann" || view.Module.Priority != "High" {
		t.Fatalf("view = %+v", view)
	}

	if w := do(t, r, http.MethodPatch, fmt.Sprintf("/modules/%d", mid), map[string]any{"unassign": true}); w.Code != http.StatusOK {
		t.Fatalf("unassign = %d", w.Code)
	}
	var after service.ModuleView
	decode(t, do(t, r, http.MethodGet, fmt.Sprintf("/modules/%d", mid), nil), &after)
	if after.Module.AssignedMemberID != nil || after.Member != nil || len(after.Candidates) != 1 {
		t.Fatalf("after unassign = %+v", after)
	}

	if w := do(t, r, http.MethodPatch, fmt.Sprintf("/modules/%d", mid), map[string]any{"priority": "urgent"}); w.Code != http.StatusBadRequest {
		t.Fatalf("bad priority = %d, want 400", w.Code)
	}
}

func TestErrorMapping(t *testing.T) {
	t.Parallel()
	r := newTestRouter(t, nil)
	pid := createdID(t, do(t, r, http.MethodPost, "/projects", map[string]string{"name": "A"}), "project_id")

	cases := []struct {
		name   string
		method string
		path   string
		body   any
		want   int
	}{
		{"blank project name", http.MethodPost, "/projects", map[string]string{"name": " "}, http.StatusBadRequest},
		{"bad deadline", http.MethodPost, "/projects", map[string]string{"name": "B", "deadline": "soon"}, http.StatusBadRequest},
		{"malformed body", http.MethodPost, "/projects", "not an object", http.StatusBadRequest},
		{"non-numeric id", http.MethodGet, "/projects/abc", nil, http.StatusBadRequest},
		{"missing project", http.MethodGet, "/projects/999", nil, http.StatusNotFound},
		{"missing project delete", http.MethodDelete, "/projects/999", nil, http.StatusNotFound},
		{"member for missing project", http.MethodPost, "/projects/999/members", map[string]string{"name": "Ann"}, http.StatusNotFound},
		{"unknown priority", http.MethodPost, fmt.Sprintf("/projects/%d/modules", pid), map[string]string{"name": "M", "priority": "urgent"}, http.StatusBadRequest},
		{"missing module", http.MethodGet, "/modules/999", nil, http.StatusNotFound},
		{"complete missing module", http.MethodPost, "/modules/999/complete", nil, http.StatusNotFound},
		{"delete missing module", http.MethodDelete, fmt.Sprintf("/projects/%d/modules/999", pid), nil, http.StatusNotFound},
		{"update bad date", http.MethodPost, "/modules/999/updates", map[string]string{"date": "03/10/2026", "text": "x"}, http.StatusBadRequest},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := do(t, r, tc.method, tc.path, tc.body)
			if w.Code != tc.want {
				t.Fatalf("status = %d, want %d (body %s)", w.Code, tc.want, w.Body.String())
			}
			var body map[string]string
			decode(t, w, &body)
			if body["error"] == "" {
				t.Fatalf("body %s has no error", w.Body.String())
			}
		})
	}
}

func TestDeleteProject(t *testing.T) {
	t.Parallel()
	r := newTestRouter(t, nil)

	pid := createdID(t, do(t, r, http.MethodPost, "/projects", map[string]string{"name": "A"}), "project_id")
	mid := createdID(t, do(t, r, http.MethodPost, fmt.Sprintf("/projects/%d/modules", pid), map[string]any{"name": "M"}), "module_id")

	if w := do(t, r, http.MethodDelete, fmt.Sprintf("/projects/%d", pid), nil); w.Code != http.StatusOK {
		t.Fatalf("delete = %d", w.Code)
	}
	if w := do(t, r, http.MethodDelete, fmt.Sprintf("/projects/%d", pid), nil); w.Code != http.StatusNotFound {
		t.Fatalf("second delete = %d, want 404", w.Code)
	}
	if w := do(t, r, http.MethodGet, fmt.Sprintf("/modules/%d", mid), nil); w.Code != http.StatusNotFound {
		t.Fatalf("module after cascade = %d, want 404", w.Code)
	}
}

func TestIdempotencyKeyIgnoredWithoutGuard(t *testing.T) {
	t.Parallel()
	r := newTestRouter(t, nil)

	first := createdID(t, do(t, r, http.MethodPost, "/projects", map[string]string{"name": "A"}, handler.IdempotencyKeyHeader, "k1"), "project_id")
	second := createdID(t, do(t, r, http.MethodPost, "/projects", map[string]string{"name": "A"}, handler.IdempotencyKeyHeader, "k1"), "project_id")
	if first == second {
		t.Fatalf("ids = %d, %d, want distinct without a guard", first, second)
	}
}

func TestIdempotentCreateReplays(t *testing.T) {
	addr := os.Getenv("FAIRSHARE_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("FAIRSHARE_TEST_REDIS_ADDR not set")
	}
	rdb := redis.NewClient(&redis.Options{Addr: addr})
	t.Cleanup(func() { _ = rdb.Close() })
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		t.Skipf("redis unavailable: %v", err)
	}

	r := newTestRouter(t, idempotency.NewGuard(rdb, time.Minute, zaptest.NewLogger(t)))
	key := uuid.NewString()

	first := createdID(t, do(t, r, http.MethodPost, "/projects", map[string]string{"name": "A"}, handler.IdempotencyKeyHeader, key), "project_id")
	w := do(t, r, http.MethodPost, "/projects", map[string]string{"name": "A"}, handler.IdempotencyKeyHeader, key)
	if w.Code != http.StatusOK || w.Header().Get(handler.IdempotentReplayHeader) != "true" {
		t.Fatalf("replay = %d, header %q", w.Code, w.Header().Get(handler.IdempotentReplayHeader))
	}
	var body map[string]int64
	decode(t, w, &body)
	if body["project_id"] != first {
		t.Fatalf("replayed id = %d, want %d", body["project_id"], first)
	}

	var list struct {
		Projects []service.ProjectSummary `json:"projects"`
	}
	decode(t, do(t, r, http.MethodGet, "/projects", nil), &list)
	if len(list.Projects) != 1 {
		t.Fatalf("projects = %d, want 1", len(list.Projects))
	}
}
