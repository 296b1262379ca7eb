// router_test.go drives the full HTTP surface against the API fake.
//
// Go Pattern: httptest.NewRecorder captures a response without a network
// listener, so every route runs through the real middleware chain.
package router

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Shimizu-Technology/placement-finder-api/internal/cache"
	"github.com/Shimizu-Technology/placement-finder-api/internal/handlers"
	"github.com/Shimizu-Technology/placement-finder-api/internal/middleware"
	"github.com/Shimizu-Technology/placement-finder-api/internal/models"
	"github.com/Shimizu-Technology/placement-finder-api/internal/services/placement"
	"github.com/Shimizu-Technology/placement-finder-api/internal/services/quota"
	"github.com/Shimizu-Technology/placement-finder-api/internal/services/worker"
	"github.com/Shimizu-Technology/placement-finder-api/internal/services/ytapi"
	"github.com/Shimizu-Technology/placement-finder-api/internal/services/ytapi/ytapitest"
)

const (
	testSecret   = "router-test-secret"
	testAdminKey = "admin-key"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type testEnv struct {
	engine  *gin.Engine
	handler *handlers.Handler
	api     *ytapitest.Fake
	meter   *quota.Meter

	mu   sync.Mutex
	keys []string // credentials the factory was called with
}

func newEnv(t *testing.T) *testEnv {
	t.Helper()

	api := ytapitest.New()
	api.SetCategories("US", map[string]string{"19": "Travel & Events", "10": "Music"})
	api.AddChannels(ytapitest.Channel("UC1", "Roamers", 5000))
	var ids []string
	for i := range 5 {
		id := ytapitest.VideoID(i)
		api.AddVideos(ytapitest.Video(id, "UC1", "Rome day "+id, "19", uint64(1000-i)))
		ids = append(ids, id)
	}
	api.AddPages(ids)

	env := &testEnv{api: api}
	factory := func(_ context.Context, key string) (ytapi.API, error) {
		env.mu.Lock()
		env.keys = append(env.keys, key)
		env.mu.Unlock()
		return api, nil
	}

	meter := quota.NewMeter(quota.NewFileStore(filepath.Join(t.TempDir(), "usage_log.csv")))
	env.meter = meter
	finder := placement.NewFinder(cache.New(cache.Options{}), meter, placement.Options{Usage: meter, DailyLimit: 10000})
	jobs := worker.NewJobStore()
	pool := worker.NewPool(1, 4, jobs, finder, factory, t.TempDir())
	pool.Start()
	t.Cleanup(pool.Stop)

	env.handler = &handlers.Handler{
		Finder:          finder,
		Meter:           meter,
		Worker:          pool,
		Jobs:            jobs,
		NewAPI:          factory,
		YouTubeAPIKey:   "server-key",
		DefaultRegion:   "US",
		DailyQuotaLimit: 10000,
		JWTSecret:       testSecret,
		LedgerBackend:   "csv",
		CacheBackend:    "memory",
	}
	env.engine = Setup(env.handler, Options{
		JWTSecret:   testSecret,
		AdminAPIKey: testAdminKey,
		RateLimit:   1000,
	})
	return env
}

// session creates an actor through the public endpoint.
func (e *testEnv) session(t *testing.T) string {
	t.Helper()
	w := e.do(t, http.MethodPost, "/api/v1/sessions", "", nil, nil)
	require.Equal(t, http.StatusCreated, w.Code)
	var s models.SessionResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &s))
	return s.Token
}

func (e *testEnv) do(t *testing.T, method, path, token string, body any, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	e.engine.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func TestPublicRoutes(t *testing.T) {
	env := newEnv(t)

	w := env.do(t, http.MethodGet, "/api/v1/health", "", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	health := decode[models.HealthResponse](t, w)
	assert.Equal(t, "ok", health.Status)
	assert.Equal(t, 1, health.Workers)

	w = env.do(t, http.MethodGet, "/api/docs/openapi.yaml", "", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Placement Finder API")

	w = env.do(t, http.MethodGet, "/api/docs", "", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, w.Body.String(), "url: '/api/docs/openapi.yaml'")
}

func TestSessionRequired(t *testing.T) {
	env := newEnv(t)

	w := env.do(t, http.MethodPost, "/api/v1/searches", "", map[string]any{"query": "rome", "target_count": 3}, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Empty(t, env.api.SearchCalls)
}

func TestSearchPreviewCacheAndExport(t *testing.T) {
	env := newEnv(t)
	token := env.session(t)

	w := env.do(t, http.MethodPost, "/api/v1/searches?preview=2", token, map[string]any{"query": "rome", "target_count": 3}, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	resp := decode[models.SearchResponse](t, w)
	assert.Len(t, resp.Records, 2)
	assert.Equal(t, 3, resp.TotalRecords)
	require.NotEmpty(t, resp.Fingerprint)
	assert.Equal(t, []string{"server-key"}, env.keys)

	w = env.do(t, http.MethodGet, "/api/v1/searches/"+resp.Fingerprint, token, nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	cached := decode[models.SearchResponse](t, w)
	assert.Len(t, cached.Records, 3, "preview does not trim the cached copy")
	require.Len(t, cached.Channels, 1)
	assert.InDelta(t, 100, cached.Channels[0].Share, 0.001)

	w = env.do(t, http.MethodGet, "/api/v1/searches/"+resp.Fingerprint+"/export?format=csv", token, nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Disposition"), "youtube_rome_AllTime.csv")
	lines := strings.Split(strings.TrimSpace(w.Body.String()), "\n")
	assert.Len(t, lines, 4, "header and three rows")
	assert.True(t, strings.HasPrefix(lines[0], "Search Year,Search Category Name,Rank"))

	w = env.do(t, http.MethodGet, "/api/v1/searches/"+resp.Fingerprint+"/export?format=pdf", token, nil, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	other := env.session(t)
	w = env.do(t, http.MethodGet, "/api/v1/searches/"+resp.Fingerprint, other, nil, nil)
	assert.Equal(t, http.StatusNotFound, w.Code, "cached results are per actor")
}

func TestSearchValidation(t *testing.T) {
	env := newEnv(t)
	token := env.session(t)

	tests := []struct {
		name string
		body map[string]any
		path string
	}{
		{"missing target", map[string]any{"query": "rome"}, "/api/v1/searches"},
		{"blank query", map[string]any{"query": "   ", "target_count": 3}, "/api/v1/searches"},
		{"target too large", map[string]any{"query": "rome", "target_count": 100000}, "/api/v1/searches"},
		{"bad order", map[string]any{"query": "rome", "target_count": 3, "sort_order": "random"}, "/api/v1/searches"},
		{"bad preview", map[string]any{"query": "rome", "target_count": 3}, "/api/v1/searches?preview=-1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := env.do(t, http.MethodPost, tt.path, token, tt.body, nil)
			assert.Equal(t, http.StatusBadRequest, w.Code, w.Body.String())
		})
	}
	assert.Empty(t, env.api.SearchCalls, "invalid requests never reach the API")
}

func TestSearchKeyHandling(t *testing.T) {
	env := newEnv(t)
	token := env.session(t)
	body := map[string]any{"query": "rome", "target_count": 1}

	w := env.do(t, http.MethodPost, "/api/v1/searches", token, body, map[string]string{middleware.YouTubeKeyHeader: "caller-key"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []string{"caller-key"}, env.keys)

	env.handler.YouTubeAPIKey = ""
	w = env.do(t, http.MethodPost, "/api/v1/searches", token, body, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "missing_api_key", decode[models.ErrorResponse](t, w).Error)
}

func TestSearchExactPhrase(t *testing.T) {
	env := newEnv(t)
	token := env.session(t)

	w := env.do(t, http.MethodPost, "/api/v1/searches", token, map[string]any{"query": "rome trip", "target_count": 1, "exact_phrase": true}, nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.NotEmpty(t, env.api.SearchCalls)
	assert.Equal(t, `"rome trip"`, env.api.SearchCalls[0].Query)
}

func TestSearchRemoteFailure(t *testing.T) {
	env := newEnv(t)
	token := env.session(t)
	env.api.SearchErrs[1] = errors.New("quotaExceeded")

	w := env.do(t, http.MethodPost, "/api/v1/searches", token, map[string]any{"query": "rome", "target_count": 3}, nil)
	assert.Equal(t, http.StatusBadGateway, w.Code)
	assert.Contains(t, w.Body.String(), "quotaExceeded")
}

func TestSpentBudgetRefusesNewWork(t *testing.T) {
	env := newEnv(t)
	token := env.session(t)
	env.meter.Record(context.Background(), "earlier", quota.EventSearch, 10000, quota.Metadata{Query: "earlier"})

	tests := []struct {
		name string
		path string
		body map[string]any
	}{
		{"search", "/api/v1/searches", map[string]any{"query": "rome", "target_count": 3}},
		{"analysis", "/api/v1/analyses", map[string]any{"items": []string{ytapitest.VideoID(0)}}},
		{"report", "/api/v1/reports", map[string]any{"query": "rome", "target_count": 2}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := env.do(t, http.MethodPost, tt.path, token, tt.body, nil)
			assert.Equal(t, http.StatusTooManyRequests, w.Code, w.Body.String())
			assert.Contains(t, w.Body.String(), "quota_exhausted")
		})
	}
	assert.Empty(t, env.api.SearchCalls)
	assert.Empty(t, env.api.VideoCalls)
}

func TestCategories(t *testing.T) {
	env := newEnv(t)
	token := env.session(t)

	w := env.do(t, http.MethodGet, "/api/v1/categories", token, nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	body := decode[struct {
		Region     string `json:"region"`
		Categories []struct {
			ID   string `json:"id"`
			Name string `json:"name"`
		} `json:"categories"`
	}](t, w)
	assert.Equal(t, "US", body.Region)
	require.Len(t, body.Categories, 2)
	assert.Equal(t, "10", body.Categories[0].ID, "numeric id order")
	assert.Equal(t, "Travel & Events", body.Categories[1].Name)
}

func TestAnalyzeJSON(t *testing.T) {
	env := newEnv(t)
	token := env.session(t)

	w := env.do(t, http.MethodPost, "/api/v1/analyses", token, map[string]any{
		"items": []string{ytapitest.VideoID(0), "https://youtu.be/" + ytapitest.VideoID(1), "not a video"},
	}, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	resp := decode[models.AnalyzeResponse](t, w)
	require.Len(t, resp.Records, 2)
	assert.Equal(t, ytapitest.VideoID(0), resp.Records[0].VideoID)
	assert.Equal(t, 1, resp.Unparsed)

	w = env.do(t, http.MethodPost, "/api/v1/analyses", token, map[string]any{"items": []string{"nothing here"}}, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAnalyzeUpload(t *testing.T) {
	env := newEnv(t)
	token := env.session(t)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", "links.csv")
	require.NoError(t, err)
	fw.Write([]byte("Name,Link\nfirst,https://www.youtube.com/watch?v=" + ytapitest.VideoID(2) + "\n"))
	require.NoError(t, mw.WriteField("column", "link"))
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/analyses", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	env.engine.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	resp := decode[models.AnalyzeResponse](t, w)
	require.Len(t, resp.Records, 1)
	assert.Equal(t, ytapitest.VideoID(2), resp.Records[0].VideoID)
}

func TestReportFlow(t *testing.T) {
	env := newEnv(t)
	token := env.session(t)

	w := env.do(t, http.MethodPost, "/api/v1/reports", token, map[string]any{
		"query":        "rome",
		"years":        []int{2024},
		"category_ids": []string{"19"},
		"target_count": 2,
		"filename":     "rome_report.csv",
	}, nil)
	require.Equal(t, http.StatusAccepted, w.Code, w.Body.String())
	job := decode[models.ReportJob](t, w)
	assert.Equal(t, models.SortOrder("viewCount"), job.Plan.SortOrder)

	require.Eventually(t, func() bool {
		w := env.do(t, http.MethodGet, "/api/v1/reports/"+job.ID, token, nil, nil)
		return decode[models.ReportJob](t, w).Status == models.JobCompleted
	}, 5*time.Second, 10*time.Millisecond)

	w = env.do(t, http.MethodGet, "/api/v1/reports/"+job.ID+"/download", token, nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Disposition"), "rome_report.csv")
	assert.Len(t, strings.Split(strings.TrimSpace(w.Body.String()), "\n"), 3)

	other := env.session(t)
	w = env.do(t, http.MethodGet, "/api/v1/reports/"+job.ID, other, nil, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = env.do(t, http.MethodPost, "/api/v1/reports", token, map[string]any{"target_count": 2}, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestQuotaAndAdminUsage(t *testing.T) {
	env := newEnv(t)
	token := env.session(t)

	w := env.do(t, http.MethodPost, "/api/v1/searches", token, map[string]any{"query": "rome", "target_count": 3}, nil)
	require.Equal(t, http.StatusOK, w.Code)
	cost := decode[models.SearchResponse](t, w).QuotaCost

	w = env.do(t, http.MethodGet, "/api/v1/quota", token, nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	q := decode[models.QuotaResponse](t, w)
	assert.Equal(t, cost, q.UnitsUsed)
	assert.Equal(t, 10000-cost, q.Remaining)

	w = env.do(t, http.MethodGet, "/api/v1/admin/usage", "", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	admin := map[string]string{middleware.AdminKeyHeader: testAdminKey}
	w = env.do(t, http.MethodGet, "/api/v1/admin/usage", "", nil, admin)
	require.Equal(t, http.StatusOK, w.Code)
	usage := decode[struct {
		Count      int `json:"count"`
		TotalUnits int `json:"total_units"`
	}](t, w)
	assert.Positive(t, usage.Count)
	assert.Equal(t, cost, usage.TotalUnits)

	w = env.do(t, http.MethodGet, "/api/v1/admin/usage?format=csv", "", nil, admin)
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, strings.HasPrefix(w.Body.String(), "Timestamp,User_ID,Event"))
}
