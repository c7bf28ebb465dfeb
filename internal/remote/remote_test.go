package remote

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/bytedance/sonic"
	"github.com/google/uuid"
	"github.com/klauspost/compress/gzip"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BigJoe84g/Krill-Browser/internal/infrastructure/monitoring"
	"github.com/BigJoe84g/Krill-Browser/internal/infrastructure/resilience"
	"github.com/BigJoe84g/Krill-Browser/internal/infrastructure/tracing"
	"github.com/BigJoe84g/Krill-Browser/internal/policy/engine"
)

const hostsFeed = `# ad servers
0.0.0.0 ads.example
127.0.0.1 track.example localhost
plain.example
`

func textServer(t *testing.T, status int, body string) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.Header().Set("Content-Type", "text/plain")
		w.WriteHeader(status)
		_, _ = io.WriteString(w, body)
	}))
	t.Cleanup(srv.Close)
	return srv, &hits
}

func newLoader(urls []string, retries int, metrics *monitoring.Metrics) *FeedLoader {
	return NewFeedLoader(FeedConfig{
		URLs:         urls,
		Timeout:      2 * time.Second,
		Retries:      retries,
		RetryWaitMin: time.Millisecond,
		Metrics:      metrics,
	})
}

func TestFeedFetchHostsFormat(t *testing.T) {
	srv, _ := textServer(t, http.StatusOK, hostsFeed)
	metrics := monitoring.NewMetrics()

	domains, err := newLoader(nil, 0, metrics).Fetch(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, []string{"ads.example", "track.example", "plain.example"}, domains)
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.ServiceCalls.WithLabelValues("feeds", http.MethodGet, "success")))
}

func TestFeedRetriesServerErrors(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = io.WriteString(w, "retry.example\n")
	}))
	defer srv.Close()

	domains, err := newLoader(nil, 2, nil).Fetch(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, []string{"retry.example"}, domains)
	assert.Equal(t, int32(2), hits.Load())
}

func TestFeedStatusError(t *testing.T) {
	srv, hits := textServer(t, http.StatusNotFound, "missing")

	_, err := newLoader(nil, 3, nil).Fetch(context.Background(), srv.URL)
	require.Error(t, err)

	var statusErr *StatusError
	require.True(t, errors.As(err, &statusErr))
	assert.Equal(t, http.StatusNotFound, statusErr.Code)
	assert.Equal(t, int32(1), hits.Load(), "client errors are not retried")
}

func TestFeedRejectsMarkup(t *testing.T) {
	srv, _ := textServer(t, http.StatusOK, "<!DOCTYPE html><html><body>captive portal</body></html>")

	_, err := newLoader(nil, 0, nil).Fetch(context.Background(), srv.URL)
	assert.ErrorIs(t, err, ErrNotText)
}

func TestFeedGzip(t *testing.T) {
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	_, err := io.WriteString(zw, hostsFeed)
	require.NoError(t, err)
	require.NoError(t, zw.Close())

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/gzip")
		_, _ = w.Write(buf.Bytes())
	}))
	defer srv.Close()

	domains, err := newLoader(nil, 0, nil).Fetch(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, []string{"ads.example", "track.example", "plain.example"}, domains)
}

func TestFeedCorruptGzip(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte{0x1f, 0x8b, 0x08, 0x00, 0xde, 0xad})
	}))
	defer srv.Close()

	_, err := newLoader(nil, 0, nil).Fetch(context.Background(), srv.URL)
	assert.Error(t, err)
}

func TestFeedBodyLimit(t *testing.T) {
	srv, _ := textServer(t, http.StatusOK, strings.Repeat("big.example\n", 400))

	loader := NewFeedLoader(FeedConfig{Timeout: 2 * time.Second, MaxBytes: 1024})
	_, err := loader.Fetch(context.Background(), srv.URL)
	require.Error(t, err)

	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	_, err = io.WriteString(zw, strings.Repeat("big.example\n", 400))
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	require.Less(t, buf.Len(), 1024)

	zsrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write(buf.Bytes())
	}))
	defer zsrv.Close()

	_, err = loader.Fetch(context.Background(), zsrv.URL)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "exceeds 1024 bytes")

	small, _ := textServer(t, http.StatusOK, "small.example\n")
	domains, err := loader.Fetch(context.Background(), small.URL)
	require.NoError(t, err)
	assert.Equal(t, []string{"small.example"}, domains)
}

func TestFeedEmptyBody(t *testing.T) {
	srv, _ := textServer(t, http.StatusOK, "")

	domains, err := newLoader(nil, 0, nil).Fetch(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Empty(t, domains)
}

func TestLoadAllSkipsFailures(t *testing.T) {
	good, _ := textServer(t, http.StatusOK, "one.example\ntwo.example\n")
	bad, _ := textServer(t, http.StatusForbidden, "")

	loader := newLoader([]string{bad.URL, good.URL}, 0, nil)
	domains, results, err := loader.LoadAll(context.Background())

	require.Error(t, err)
	assert.Equal(t, []string{"one.example", "two.example"}, domains)
	require.Len(t, results, 2)
	assert.Error(t, results[0].Err)
	assert.NoError(t, results[1].Err)
	assert.Equal(t, 2, results[1].Domains)

	eng, engErr := engine.New(engine.Options{})
	require.NoError(t, engErr)
	assert.Equal(t, 2, eng.MergeBlocklist(domains))
	assert.True(t, eng.Evaluate("https://two.example/").Blocked())
}

func TestFeedBreakerOpens(t *testing.T) {
	srv, hits := textServer(t, http.StatusInternalServerError, "")
	loader := newLoader(nil, 0, nil)

	for i := 0; i < 3; i++ {
		_, err := loader.Fetch(context.Background(), srv.URL)
		require.Error(t, err)
	}
	assert.Equal(t, resilience.StateOpen, loader.client.BreakerState())

	_, err := loader.Fetch(context.Background(), srv.URL)
	assert.ErrorIs(t, err, resilience.ErrCircuitOpen)
	assert.Equal(t, int32(3), hits.Load())
}

type hookServer struct {
	mu       sync.Mutex
	requests []ClearRequest
	headers  []http.Header
}

func (h *hookServer) handler(status int) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		var req ClearRequest
		_ = sonic.Unmarshal(body, &req)

		h.mu.Lock()
		h.requests = append(h.requests, req)
		h.headers = append(h.headers, r.Header.Clone())
		h.mu.Unlock()

		w.WriteHeader(status)
	}
}

func TestClearHook(t *testing.T) {
	hs := &hookServer{}
	srv := httptest.NewServer(hs.handler(http.StatusNoContent))
	defer srv.Close()

	hook := NewClearHook(srv.URL, nil, nil)

	in := http.Header{}
	in.Set(tracing.HeaderTraceID, "req_shell")
	ctx := tracing.Extract(context.Background(), in)

	require.NoError(t, hook.Clear(ctx, engine.ClearPanic))

	require.Len(t, hs.requests, 1)
	got := hs.requests[0]
	assert.Equal(t, "panic", got.Reason)
	_, err := uuid.Parse(got.RequestID)
	assert.NoError(t, err)
	assert.Equal(t, got.RequestID, hs.headers[0].Get("X-Request-ID"))
	assert.Equal(t, "req_shell", hs.headers[0].Get(tracing.HeaderTraceID))
	assert.Equal(t, UserAgent, hs.headers[0].Get("User-Agent"))
	assert.Contains(t, hs.headers[0].Get("Content-Type"), "application/json")
}

func TestClearHookThroughEngine(t *testing.T) {
	hs := &hookServer{}
	srv := httptest.NewServer(hs.handler(http.StatusOK))
	defer srv.Close()

	eng, err := engine.New(engine.Options{Clearer: NewClearHook(srv.URL, nil, nil)})
	require.NoError(t, err)

	require.NoError(t, eng.PanicClear(context.Background()))

	eng.SetClearOnExit(true)
	require.NoError(t, eng.Shutdown(context.Background()))

	require.Len(t, hs.requests, 2)
	assert.Equal(t, "panic", hs.requests[0].Reason)
	assert.Equal(t, "exit", hs.requests[1].Reason)
	assert.NotEqual(t, hs.requests[0].RequestID, hs.requests[1].RequestID)
}

func TestClearHookFailure(t *testing.T) {
	hs := &hookServer{}
	srv := httptest.NewServer(hs.handler(http.StatusUnauthorized))
	defer srv.Close()

	err := NewClearHook(srv.URL, nil, nil).Clear(context.Background(), engine.ClearExit)

	var statusErr *StatusError
	require.True(t, errors.As(err, &statusErr))
	assert.Equal(t, http.StatusUnauthorized, statusErr.Code)
}
