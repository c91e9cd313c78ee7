package web

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"warnboard/internal/core/app"
	"warnboard/internal/core/config"
	"warnboard/internal/data/history"
	"warnboard/internal/engine/chart"
	"warnboard/internal/engine/table"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const snapshot = `{
  "name": "core",
  "builds": [
    {"number": 1, "url": "https://ci/core/1", "results": [
      {"toolId": "checkstyle", "toolName": "CheckStyle",
       "outstanding": [{"severity": "HIGH", "file": "A.java"}],
       "new": [{"severity": "LOW", "file": "A.java"}, {"severity": "LOW", "file": "B.java"}],
       "infoMessages": ["parsed"], "errorMessages": ["one file skipped"]}
    ]},
    {"number": 2, "url": "https://ci/core/2", "label": "v2", "results": [
      {"toolId": "checkstyle", "toolName": "CheckStyle",
       "outstanding": [{"severity": "HIGH", "file": "A.java"}],
       "fixed": [{"severity": "LOW", "file": "B.java"}]}
    ]}
  ]
}`

func newTestServer(t *testing.T, mutate func(*config.Config)) http.Handler {
	t.Helper()
	cfg := config.Default()
	cfg.RateLimit.Enabled = false
	if mutate != nil {
		mutate(cfg)
	}

	store, err := history.Open(filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	adapter := history.NewAdapter(store)

	dash, err := app.NewDashboard(adapter, cfg)
	require.NoError(t, err)
	srv, err := NewServer(dash, app.NewHealthService(adapter), Options{
		Server:        cfg.Server,
		RateLimit:     cfg.RateLimit,
		EnableMetrics: true,
	})
	require.NoError(t, err)
	t.Cleanup(srv.closeLimiters)
	return srv.Handler()
}

func do(t *testing.T, h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, r)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func seeded(t *testing.T) http.Handler {
	t.Helper()
	h := newTestServer(t, nil)
	rec := do(t, h, http.MethodPost, "/api/jobs", snapshot)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	return h
}

func TestImportAndListJobs(t *testing.T) {
	h := newTestServer(t, nil)

	rec := do(t, h, http.MethodPost, "/api/jobs", snapshot)
	require.Equal(t, http.StatusCreated, rec.Code)
	res := decode[map[string]any](t, rec)
	assert.EqualValues(t, 2, res["builds"])

	rec = do(t, h, http.MethodGet, "/api/jobs", "")
	require.Equal(t, http.StatusOK, rec.Code)
	jobs := decode[[]map[string]any](t, rec)
	require.Len(t, jobs, 1)
	assert.Equal(t, "core", jobs[0]["name"])
	assert.EqualValues(t, 2, jobs[0]["latestBuild"])
	assert.NotEmpty(t, rec.Header().Get(headerRequestID))
}

func TestImportRejectsBadSnapshot(t *testing.T) {
	h := newTestServer(t, nil)

	rec := do(t, h, http.MethodPost, "/api/jobs", `{"builds": []}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	body := decode[errorBody](t, rec)
	assert.Equal(t, "VALIDATION_ERROR", string(body.Code))

	rec = do(t, h, http.MethodPost, "/api/jobs", `{"name": "x", "builds": [{"number": 1, "results": [{"toolId": ""}]}]}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestImportRejectsOversizedBody(t *testing.T) {
	h := newTestServer(t, func(cfg *config.Config) { cfg.Server.MaxBodyBytes = 16 })
	rec := do(t, h, http.MethodPost, "/api/jobs", snapshot)
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
}

func TestBuildRowsAndTools(t *testing.T) {
	h := seeded(t)

	rec := do(t, h, http.MethodGet, "/api/jobs/core/builds", "")
	require.Equal(t, http.StatusOK, rec.Code)
	rows := decode[[]table.BuildRow](t, rec)
	assert.Equal(t, []table.BuildRow{
		{BuildNumber: 1, BuildURL: "https://ci/core/1"},
		{BuildNumber: 2, BuildURL: "https://ci/core/2"},
	}, rows)

	rec = do(t, h, http.MethodGet, "/api/jobs/core/tools", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"CheckStyle"}, decode[[]string](t, rec))
}

func TestIssueRows(t *testing.T) {
	h := seeded(t)

	rec := do(t, h, http.MethodGet, "/api/jobs/core/builds/1/tools/checkstyle/issues?category=outstanding%2Bnew", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, []table.IssueRow{{Label: "LOW", Count: 2}, {Label: "HIGH", Count: 1}}, decode[[]table.IssueRow](t, rec))

	rec = do(t, h, http.MethodGet, "/api/jobs/core/builds/1/tools/checkstyle/issues?category=new&groupBy=file", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []table.IssueRow{{Label: "A.java", Count: 1}, {Label: "B.java", Count: 1}}, decode[[]table.IssueRow](t, rec))
}

func TestErrorMapping(t *testing.T) {
	h := seeded(t)

	cases := []struct {
		target string
		status int
		code   string
	}{
		{"/api/jobs/missing/builds", http.StatusNotFound, "NOT_FOUND"},
		{"/api/jobs/core/builds/9/summary", http.StatusNotFound, "NOT_FOUND"},
		{"/api/jobs/core/builds/x/summary", http.StatusBadRequest, "INVALID_ARGUMENT"},
		{"/api/jobs/core/builds/1/tools/pmd/issues", http.StatusNotFound, "NOT_FOUND"},
		{"/api/jobs/core/builds/1/tools/checkstyle/issues?category=open", http.StatusBadRequest, "INVALID_ARGUMENT"},
		{"/api/jobs/core/trend?metric=open", http.StatusBadRequest, "INVALID_ARGUMENT"},
		{"/api/jobs/core/trend?maxBuilds=two", http.StatusBadRequest, "INVALID_ARGUMENT"},
		{"/api/jobs/core/new-vs-fixed?tool=PMD", http.StatusNotFound, "NOT_FOUND"},
		{"/api/tables/widgets", http.StatusBadRequest, "INVALID_ARGUMENT"},
	}
	for _, tc := range cases {
		rec := do(t, h, http.MethodGet, tc.target, "")
		assert.Equal(t, tc.status, rec.Code, tc.target)
		body := decode[errorBody](t, rec)
		assert.Equal(t, tc.code, string(body.Code), tc.target)
		assert.NotEmpty(t, body.RequestID, tc.target)
	}

	rec := do(t, h, http.MethodGet, "/api/jobs/core/builds/1/tools/pmd/messages", "")
	body := decode[errorBody](t, rec)
	assert.Equal(t, "pmd", body.Context["tool"])
	assert.Equal(t, "core", body.Context["job"])
}

func TestMessages(t *testing.T) {
	h := seeded(t)
	rec := do(t, h, http.MethodGet, "/api/jobs/core/builds/1/tools/checkstyle/messages", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"info":["parsed"],"errors":["one file skipped"]}`, rec.Body.String())
}

func TestEmptyListsEncodeAsArrays(t *testing.T) {
	h := seeded(t)
	rec := do(t, h, http.MethodGet, "/api/jobs/core/builds/2/tools/checkstyle/messages", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"info":[],"errors":[]}`, rec.Body.String())

	rec = do(t, h, http.MethodGet, "/api/jobs/core", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"new":[]`)
	assert.NotContains(t, rec.Body.String(), "null")
}

func TestTrendEndpoints(t *testing.T) {
	h := seeded(t)

	rec := do(t, h, http.MethodGet, "/api/jobs/core/trend?useBuildLabel=true", "")
	require.Equal(t, http.StatusOK, rec.Code)
	m := decode[chart.Model](t, rec)
	assert.Equal(t, []string{"#1", "v2"}, m.XLabels)
	require.Len(t, m.Series, 1)
	assert.Equal(t, []int{3, 1}, m.Series[0].Values)

	rec = do(t, h, http.MethodGet, "/api/jobs/core/new-vs-fixed?maxBuilds=1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	m = decode[chart.Model](t, rec)
	assert.Equal(t, []string{"#2"}, m.XLabels)
	assert.Equal(t, "new", m.Series[0].Name)
	assert.Equal(t, []int{0}, m.Series[0].Values)
	assert.Equal(t, []int{1}, m.Series[1].Values)

	rec = do(t, h, http.MethodGet, "/api/jobs/core/builds/2/summary", "")
	require.Equal(t, http.StatusOK, rec.Code)
	m = decode[chart.Model](t, rec)
	assert.Equal(t, []string{"CheckStyle"}, m.XLabels)
}

func TestEmptyJobTrendIsEmptyChart(t *testing.T) {
	h := newTestServer(t, nil)
	require.Equal(t, http.StatusCreated, do(t, h, http.MethodPost, "/api/jobs", `{"name":"fresh"}`).Code)

	rec := do(t, h, http.MethodGet, "/api/jobs/fresh/new-vs-fixed?tool=PMD", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"xLabels":[],"series":[]}`, rec.Body.String())
}

func TestTableModel(t *testing.T) {
	h := newTestServer(t, nil)
	rec := do(t, h, http.MethodGet, "/api/tables/builds", "")
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode[map[string]any](t, rec)
	assert.Equal(t, "builds", body["id"])
	assert.JSONEq(t,
		`[{"data":"buildNumber","defaultContent":""},{"data":"buildUrl","defaultContent":""}]`,
		body["columnsDefinition"].(string))
}

func TestTableRows(t *testing.T) {
	h := seeded(t)

	rec := do(t, h, http.MethodGet, "/api/tables/builds/rows?job=core", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t,
		`[{"buildNumber":1,"buildUrl":"https://ci/core/1"},{"buildNumber":2,"buildUrl":"https://ci/core/2"}]`,
		rec.Body.String())

	rec = do(t, h, http.MethodGet, "/api/tables/issues/rows?job=core&build=1&tool=checkstyle&category=new&groupBy=file", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[{"label":"A.java","count":1},{"label":"B.java","count":1}]`, rec.Body.String())

	cases := []struct {
		target string
		status int
	}{
		{"/api/tables/tools/rows?job=core", http.StatusBadRequest},
		{"/api/tables/builds/rows", http.StatusBadRequest},
		{"/api/tables/issues/rows?job=core&build=x&tool=checkstyle", http.StatusBadRequest},
		{"/api/tables/builds/rows?job=missing", http.StatusNotFound},
	}
	for _, tc := range cases {
		rec := do(t, h, http.MethodGet, tc.target, "")
		assert.Equal(t, tc.status, rec.Code, tc.target)
	}
}

func TestHealthMetricsAndOpenAPI(t *testing.T) {
	h := newTestServer(t, nil)

	rec := do(t, h, http.MethodGet, "/health", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "up", decode[app.HealthStatus](t, rec).Status)

	do(t, h, http.MethodGet, "/api/jobs", "")
	rec = do(t, h, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "warnboard_http_requests_total")

	rec = do(t, h, http.MethodGet, "/openapi.json", "")
	require.Equal(t, http.StatusOK, rec.Code)
	loader := openapi3.NewLoader()
	doc, err := loader.LoadFromData(rec.Body.Bytes())
	require.NoError(t, err)
	require.NoError(t, doc.Validate(context.Background()))
	assert.NotNil(t, doc.Paths.Find("/api/jobs/{job}/trend"))
}

func TestRequestIDPropagation(t *testing.T) {
	h := newTestServer(t, nil)
	const id = "2b0e7c1c-5d4e-4c47-9a0e-2f1b2d3c4e5f"

	req := httptest.NewRequest(http.MethodGet, "/api/jobs", nil)
	req.Header.Set(headerRequestID, id)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, id, rec.Header().Get(headerRequestID))

	req = httptest.NewRequest(http.MethodGet, "/api/jobs", nil)
	req.Header.Set(headerRequestID, "not a uuid")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.NotEqual(t, "not a uuid", rec.Header().Get(headerRequestID))
}

func TestRateLimit(t *testing.T) {
	h := newTestServer(t, func(cfg *config.Config) {
		cfg.RateLimit = config.RateLimit{Enabled: true, RequestsPerSecond: 0.001, Burst: 2, ClientTTL: time.Minute}
	})

	assert.Equal(t, http.StatusOK, do(t, h, http.MethodGet, "/api/jobs", "").Code)
	assert.Equal(t, http.StatusOK, do(t, h, http.MethodGet, "/api/jobs", "").Code)
	rec := do(t, h, http.MethodGet, "/api/jobs", "")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))
}

func TestServeShutsDownOnCancel(t *testing.T) {
	cfg := config.Default()
	store, err := history.Open(filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)
	defer store.Close()
	adapter := history.NewAdapter(store)
	dash, err := app.NewDashboard(adapter, cfg)
	require.NoError(t, err)
	srv, err := NewServer(dash, app.NewHealthService(adapter), Options{Server: cfg.Server, RateLimit: cfg.RateLimit})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	cfg.Server.Address = "127.0.0.1:0"
	srv.cfg = cfg.Server
	go func() { done <- srv.Start(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}
