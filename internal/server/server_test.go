package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"actionpipe/internal/auth"
	"actionpipe/internal/featurecache"
	"actionpipe/internal/pipeline"
	"actionpipe/internal/ws"
)

type stubDetector struct {
	healthy bool
}

func (d *stubDetector) Name() string    { return "stub" }
func (d *stubDetector) IsHealthy() bool { return d.healthy }
func (d *stubDetector) Close() error    { return nil }

func (d *stubDetector) Preprocess(frame *pipeline.FrameData) ([]byte, error) {
	return frame.Data, nil
}

func (d *stubDetector) Detect(ctx context.Context, input []byte, dims pipeline.Size) ([]pipeline.Box, error) {
	return nil, nil
}

type stubScorer struct {
	pool featurecache.Pool
}

func (s *stubScorer) Update(ctx context.Context, frames []*pipeline.FrameData, persons, objects []pipeline.Box, key featurecache.Key) error {
	return s.pool.Put(ctx, key, featurecache.Entry{Person: []byte("p"), Object: []byte("o")})
}

func (s *stubScorer) Score(ctx context.Context, key featurecache.Key, size pipeline.Size) ([]pipeline.ActionDetection, error) {
	if _, err := s.pool.Get(ctx, key); err != nil {
		return nil, err
	}
	return nil, nil
}

func newTestServer(t *testing.T, healthy bool) *Server {
	t.Helper()

	pool := featurecache.NewMemoryPool()
	detector := &stubDetector{healthy: healthy}
	manager := pipeline.NewManager(detector, &stubScorer{pool: pool}, pool, nil)
	t.Cleanup(func() { _ = manager.Close() })

	defaults := pipeline.DefaultConfig("")
	defaults.StreamID = ""
	defaults.PollTimeout = 5 * time.Millisecond

	return New(Config{Addr: ":0", StreamDefaults: defaults},
		manager, ws.NewPredictionHub(), auth.NewAuthenticator(), detector, prometheus.NewRegistry())
}

func doJSON(t *testing.T, handler http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestServer_Health(t *testing.T) {
	t.Setenv("AUTH_ENABLED", "false")

	rec := doJSON(t, newTestServer(t, true).Handler(), http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, newTestServer(t, false).Handler(), http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestServer_StreamLifecycle(t *testing.T) {
	t.Setenv("AUTH_ENABLED", "false")
	handler := newTestServer(t, true).Handler()

	rec := doJSON(t, handler, http.MethodPost, "/api/streams",
		`{"stream_id": "video-1", "mode": "batch"}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	var created startStreamResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	assert.Equal(t, "video-1", created.StreamID)
	assert.Equal(t, pipeline.ModeBatch, created.Mode)

	// Duplicate id is rejected.
	rec = doJSON(t, handler, http.MethodPost, "/api/streams", `{"stream_id": "video-1"}`)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = doJSON(t, handler, http.MethodGet, "/api/streams", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "video-1")

	rec = doJSON(t, handler, http.MethodGet, "/api/streams/video-1/stats", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var stats pipeline.WorkerStats
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &stats))
	assert.Equal(t, "video-1", stats.StreamID)

	rec = doJSON(t, handler, http.MethodPost, "/api/streams/video-1/flush", "")
	assert.Equal(t, http.StatusAccepted, rec.Code)

	rec = doJSON(t, handler, http.MethodDelete, "/api/streams/video-1", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, handler, http.MethodDelete, "/api/streams/video-1", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestServer_FlushRealtimeConflicts(t *testing.T) {
	t.Setenv("AUTH_ENABLED", "false")
	handler := newTestServer(t, true).Handler()

	rec := doJSON(t, handler, http.MethodPost, "/api/streams",
		`{"stream_id": "rt", "mode": "realtime"}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = doJSON(t, handler, http.MethodPost, "/api/streams/rt/flush", "")
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = doJSON(t, handler, http.MethodPost, "/api/streams/missing/flush", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestServer_StartStreamRejectsBadConfig(t *testing.T) {
	t.Setenv("AUTH_ENABLED", "false")
	handler := newTestServer(t, true).Handler()

	rec := doJSON(t, handler, http.MethodPost, "/api/streams", `{"mode": "sideways"}`)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = doJSON(t, handler, http.MethodPost, "/api/streams", `not json`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestServer_AuthRequired(t *testing.T) {
	t.Setenv("AUTH_ENABLED", "true")
	t.Setenv("AUTH_USERNAME", "operator")
	t.Setenv("AUTH_PASSWORD", "hunter2")
	t.Setenv("JWT_SECRET", "test-secret")
	handler := newTestServer(t, true).Handler()

	// No token: rejected.
	rec := doJSON(t, handler, http.MethodGet, "/api/streams", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	// Health and login stay open.
	rec = doJSON(t, handler, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, handler, http.MethodPost, "/api/login",
		`{"username": "operator", "password": "hunter2"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var login loginResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &login))
	require.NotEmpty(t, login.Token)

	req := httptest.NewRequest(http.MethodGet, "/api/streams", nil)
	req.Header.Set("Authorization", "Bearer "+login.Token)
	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, req)
	assert.Equal(t, http.StatusOK, recorder.Code)
}

func TestServer_LoginFailures(t *testing.T) {
	t.Setenv("AUTH_ENABLED", "true")
	t.Setenv("AUTH_USERNAME", "operator")
	t.Setenv("AUTH_PASSWORD", "hunter2")
	handler := newTestServer(t, true).Handler()

	rec := doJSON(t, handler, http.MethodPost, "/api/login",
		`{"username": "operator", "password": "wrong"}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestServer_MetricsEndpoint(t *testing.T) {
	t.Setenv("AUTH_ENABLED", "false")
	handler := newTestServer(t, true).Handler()

	rec := doJSON(t, handler, http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}
