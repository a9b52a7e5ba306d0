package server

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentuity/go-objectcache/cache"
	"github.com/agentuity/go-objectcache/logger"
)

func newTestServer(t *testing.T) (*httptest.Server, *cache.Manager) {
	t.Helper()
	reg := prometheus.NewRegistry()
	m := cache.New(cache.NewMemoryStore(), cache.WithMetrics(cache.NewMetrics(reg)))
	t.Cleanup(func() { m.Close(context.Background()) })
	srv := httptest.NewServer(New(m, reg, logger.NewTestLogger()))
	t.Cleanup(srv.Close)
	return srv, m
}

func do(t *testing.T, method, url, body string) (*http.Response, string) {
	t.Helper()
	req, err := http.NewRequest(method, url, strings.NewReader(body))
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, string(data)
}

func TestPutGet(t *testing.T) {
	srv, m := newTestServer(t)

	resp, _ := do(t, http.MethodPut, srv.URL+"/v1/cache/user:1?ttl=1h", `{"name":"ada"}`)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp, body := do(t, http.MethodGet, srv.URL+"/v1/cache/user:1", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))
	assert.JSONEq(t, `{"key":"user:1","value":{"name":"ada"}}`, body)

	val, found, err := cache.Get[map[string]string](context.Background(), m, "user:1")
	assert.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "ada", val["name"])
}

func TestGetMissing(t *testing.T) {
	srv, _ := newTestServer(t)
	resp, body := do(t, http.MethodGet, srv.URL+"/v1/cache/nope", "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Contains(t, body, "not found")
}

func TestHead(t *testing.T) {
	srv, _ := newTestServer(t)
	resp, _ := do(t, http.MethodHead, srv.URL+"/v1/cache/a", "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	do(t, http.MethodPut, srv.URL+"/v1/cache/a", `1`)
	resp, _ = do(t, http.MethodHead, srv.URL+"/v1/cache/a", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestPutBadRequests(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, body := do(t, http.MethodPut, srv.URL+"/v1/cache/a?ttl=later", `1`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, body, "invalid ttl")

	resp, body = do(t, http.MethodPut, srv.URL+"/v1/cache/a", `{not json`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, body, "body must be a JSON document")
}

func TestPutTooLarge(t *testing.T) {
	m := cache.New(cache.NewMemoryStore())
	defer m.Close(context.Background())
	h := New(m, nil, logger.NewTestLogger())

	req := httptest.NewRequest(http.MethodPut, "/v1/cache/a", strings.NewReader(`"`+strings.Repeat("x", MaxBodySize)+`"`))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	assert.False(t, m.Exists(context.Background(), "a"))

	// no registry, no metrics route
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDeleteUnsetsByDefault(t *testing.T) {
	srv, _ := newTestServer(t)
	do(t, http.MethodPut, srv.URL+"/v1/cache/a", `42`)

	resp, _ := do(t, http.MethodDelete, srv.URL+"/v1/cache/a", "")
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp, body := do(t, http.MethodGet, srv.URL+"/v1/cache/a", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"key":"a","value":null}`, body)
}

func TestDeletePurge(t *testing.T) {
	srv, _ := newTestServer(t)
	do(t, http.MethodPut, srv.URL+"/v1/cache/a", `42`)

	resp, _ := do(t, http.MethodDelete, srv.URL+"/v1/cache/a?purge=true", "")
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	resp, _ = do(t, http.MethodGet, srv.URL+"/v1/cache/a", "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp, _ = do(t, http.MethodDelete, srv.URL+"/v1/cache/a?purge=true", "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestClear(t *testing.T) {
	srv, m := newTestServer(t)
	do(t, http.MethodPut, srv.URL+"/v1/cache/a", `1`)
	do(t, http.MethodPut, srv.URL+"/v1/cache/b", `2`)

	resp, _ := do(t, http.MethodDelete, srv.URL+"/v1/cache", "")
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.False(t, m.Exists(context.Background(), "a"))
	assert.False(t, m.Exists(context.Background(), "b"))
}

func TestMetricsAndHealth(t *testing.T) {
	srv, _ := newTestServer(t)
	do(t, http.MethodPut, srv.URL+"/v1/cache/a", `1`)

	resp, body := do(t, http.MethodGet, srv.URL+"/metrics", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "objectcache_writes_total 1")

	resp, body = do(t, http.MethodGet, srv.URL+"/healthz", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"status":"ok"}`, body)
}

func TestRun(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- Run(ctx, "127.0.0.1:0", http.NotFoundHandler(), logger.NewTestLogger())
	}()
	time.Sleep(50 * time.Millisecond)
	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}
