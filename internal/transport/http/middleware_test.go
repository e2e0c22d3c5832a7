package httptransport

import (
	"bytes"
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"example.com/tripplanner/internal/auth"
)

var okHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusNoContent)
})

func TestRateLimiterKeysBySubject(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	handler := NewRateLimiter(ctx, 0.001, 1).Middleware()(okHandler)

	serve := func(subject string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/v1/projects", nil)
		if subject != "" {
			req = req.WithContext(auth.WithClaims(req.Context(), &auth.Claims{Subject: subject}))
		}
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)
		return rr
	}

	require.Equal(t, http.StatusNoContent, serve("ana").Code)
	limited := serve("ana")
	require.Equal(t, http.StatusTooManyRequests, limited.Code)
	require.Equal(t, "1", limited.Header().Get("Retry-After"))
	require.JSONEq(t, `{"type":"rate_limited","detail":"too many requests"}`, limited.Body.String())

	require.Equal(t, http.StatusNoContent, serve("ben").Code, "other subjects have their own bucket")
	require.Equal(t, http.StatusNoContent, serve("").Code)
	require.Equal(t, http.StatusTooManyRequests, serve("").Code)

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.Equal(t, http.StatusNoContent, rr.Code)
}

func TestRateLimiterCleanupDropsStaleEntries(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	rl := NewRateLimiter(ctx, 1, 1)
	now := time.Now()
	rl.get("ip:1.2.3.4", now.Add(-time.Hour))
	rl.get("ip:5.6.7.8", now)
	rl.cleanup(now)

	rl.mu.Lock()
	defer rl.mu.Unlock()
	require.Len(t, rl.entries, 1)
	require.Contains(t, rl.entries, "ip:5.6.7.8")
}

func TestCORSPreflight(t *testing.T) {
	handler := CORS([]string{"https://app.example.com"})(okHandler)

	req := httptest.NewRequest(http.MethodOptions, "/v1/projects", nil)
	req.Header.Set("Origin", "https://app.example.com")
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	require.Equal(t, http.StatusNoContent, rr.Code)
	require.Equal(t, "https://app.example.com", rr.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodGet, "/v1/projects", nil)
	req.Header.Set("Origin", "https://evil.example.com")
	rr = httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	require.Empty(t, rr.Header().Get("Access-Control-Allow-Origin"))
}

func TestAccessLogAndRequestID(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	handler := Chain(okHandler, RequestID(), AccessLog(logger))

	req := httptest.NewRequest(http.MethodGet, "/v1/projects", nil)
	req.Header.Set(HeaderRequestID, "req-123")
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	require.Equal(t, "req-123", rr.Header().Get(HeaderRequestID))
	require.Contains(t, buf.String(), "request_id=req-123")
	require.Contains(t, buf.String(), "status=204")

	rr = httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.NotEmpty(t, rr.Header().Get(HeaderRequestID))
}
