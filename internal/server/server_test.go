package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/realty-search/internal/cache"
	"github.com/sells-group/realty-search/internal/config"
	"github.com/sells-group/realty-search/internal/ratelimit"
	"github.com/sells-group/realty-search/pkg/upstash"
)

func testServerConfig() *config.Config {
	cfg := &config.Config{}
	cfg.Server.Port = 8000
	cfg.RateLimit.RequestsPerMinute = 10
	cfg.Pipeline.MaxQueryChars = 500
	return cfg
}

func newTestServer(runner Runner, ca *cache.Cache, limiter *ratelimit.Limiter) *Server {
	return New(testServerConfig(), runner, ca, limiter)
}

func TestHealth(t *testing.T) {
	t.Parallel()
	srv := newTestServer(&scriptedRunner{}, nil, nil)

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestPopular(t *testing.T) {
	r := new(mockRedis)
	r.On("ZRevRangeWithScores", mock.Anything, "popular:queries", 0, 9).
		Return([]upstash.MemberScore{
			{Member: "median price austin", Score: 12},
			{Member: "best schools dallas", Score: 4},
		}, nil)

	srv := newTestServer(&scriptedRunner{}, cache.New(r), nil)

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/popular", nil))

	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Queries []cache.PopularQuery `json:"queries"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Queries, 2)
	assert.Equal(t, "median price austin", body.Queries[0].Query)
	assert.Equal(t, int64(12), body.Queries[0].Count)
	r.AssertExpectations(t)
}

func TestPopular_CacheDisabledReturnsEmptyList(t *testing.T) {
	t.Parallel()
	srv := newTestServer(&scriptedRunner{}, nil, nil)

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/popular", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"queries":[]}`, rec.Body.String())
}

func TestPopular_LookupError(t *testing.T) {
	r := new(mockRedis)
	r.On("ZRevRangeWithScores", mock.Anything, "popular:queries", 0, 9).
		Return(nil, assert.AnError)

	srv := newTestServer(&scriptedRunner{}, cache.New(r), nil)

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/popular", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"error":"could not load popular queries"}`, rec.Body.String())
}

func TestStats(t *testing.T) {
	r := new(mockRedis)
	r.On("HGetAll", mock.Anything, "cache:metrics").
		Return(map[string]string{"hits": "7", "misses": "3"}, nil)

	srv := newTestServer(&scriptedRunner{}, cache.New(r), nil)

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/stats", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"hits":7,"misses":3}`, rec.Body.String())
}

func TestStats_CacheDisabledReturnsZeros(t *testing.T) {
	t.Parallel()
	srv := newTestServer(&scriptedRunner{}, nil, nil)

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/stats", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"hits":0,"misses":0}`, rec.Body.String())
}

func TestCORSPreflight(t *testing.T) {
	t.Parallel()
	srv := newTestServer(&scriptedRunner{}, nil, nil)

	req := httptest.NewRequest(http.MethodOptions, "/api/search", nil)
	req.Header.Set("Origin", "https://example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestClientIP(t *testing.T) {
	t.Parallel()

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "192.0.2.7:5123"
	assert.Equal(t, "192.0.2.7", clientIP(req))

	req.Header.Set("X-Forwarded-For", "203.0.113.9, 198.51.100.2")
	assert.Equal(t, "203.0.113.9", clientIP(req))

	req.Header.Set("X-Forwarded-For", " 203.0.113.10 ")
	assert.Equal(t, "203.0.113.10", clientIP(req))
}
