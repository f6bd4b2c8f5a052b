package handler

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/time/rate"

	"github.com/hitoshi/rsvphook/internal/intake"
	"github.com/hitoshi/rsvphook/internal/middleware"
)

// mockHealthChecker はHealthCheckerのモック実装。
type mockHealthChecker struct {
	err error
}

func (m *mockHealthChecker) PingContext(ctx context.Context) error {
	return m.err
}

// createTestRouter はテスト用の完全なルーターを構築するヘルパー。
func createTestRouter(checker HealthChecker, limiter *middleware.RateLimiter) (http.Handler, *mockSubmissionRouter) {
	submissions := &mockSubmissionRouter{}
	reg := prometheus.NewRegistry()
	reg.MustRegister(prometheus.NewCounter(prometheus.CounterOpts{
		Name: "rsvphook_test_marker_total",
		Help: "marker",
	}))

	deps := &RouterDeps{
		RateLimiter:    limiter,
		HealthChecker:  checker,
		Gatherer:       reg,
		WebhookHandler: newTestWebhookHandler(submissions, 0),
	}
	return NewRouter(deps), submissions
}

func TestRouter_Health_OK(t *testing.T) {
	router, _ := createTestRouter(&mockHealthChecker{}, nil)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("GET /health status = %d, want %d", w.Code, http.StatusOK)
	}
	if !strings.Contains(w.Body.String(), `"ok"`) {
		t.Errorf("body = %s", w.Body.String())
	}
}

func TestRouter_Health_DBUnavailable(t *testing.T) {
	router, _ := createTestRouter(&mockHealthChecker{err: errors.New("connection refused")}, nil)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("GET /health status = %d, want %d", w.Code, http.StatusServiceUnavailable)
	}
}

func TestRouter_Metrics(t *testing.T) {
	router, _ := createTestRouter(&mockHealthChecker{}, nil)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("GET /metrics status = %d, want %d", w.Code, http.StatusOK)
	}
	body, _ := io.ReadAll(w.Body)
	if !strings.Contains(string(body), "rsvphook_test_marker_total") {
		t.Error("metrics output should include registered collectors")
	}
}

func TestRouter_WebhookRoutes(t *testing.T) {
	router, submissions := createTestRouter(&mockHealthChecker{}, nil)

	for _, path := range []string{"/webhooks/forms", "/webhooks/forms/TT01"} {
		req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(`{"code":"TT01"}`))
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		if w.Code != http.StatusOK {
			t.Errorf("POST %s status = %d, want %d", path, w.Code, http.StatusOK)
		}
	}
	if submissions.calls != 2 {
		t.Errorf("router called %d times, want 2", submissions.calls)
	}
	if submissions.lastEnv.Code != "TT01" {
		t.Errorf("Code = %q, want TT01", submissions.lastEnv.Code)
	}
}

func TestRouter_UnknownPath_ReturnsNotFound(t *testing.T) {
	router, _ := createTestRouter(&mockHealthChecker{}, nil)

	req := httptest.NewRequest(http.MethodPost, "/webhooks/other", strings.NewReader(`{}`))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want %d", w.Code, http.StatusNotFound)
	}
}

func TestRouter_SecurityHeaders(t *testing.T) {
	router, _ := createTestRouter(&mockHealthChecker{}, nil)

	req := httptest.NewRequest(http.MethodGet, "/webhooks/forms", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if got := w.Header().Get("X-Content-Type-Options"); got != "nosniff" {
		t.Errorf("X-Content-Type-Options = %q, want nosniff", got)
	}
	if got := w.Header().Get("Cache-Control"); got != "no-store" {
		t.Errorf("Cache-Control = %q, want no-store", got)
	}
}

func TestRouter_RateLimitAppliesToWebhooksOnly(t *testing.T) {
	limiter := middleware.NewRateLimiter(middleware.RateLimiterConfig{
		Rate:            rate.Limit(0.01),
		Burst:           1,
		CleanupInterval: time.Minute,
	})
	defer limiter.Stop()
	router, _ := createTestRouter(&mockHealthChecker{}, limiter)

	send := func(path string) int {
		req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(`{}`))
		req.RemoteAddr = "192.0.2.10:5000"
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		return w.Code
	}

	if code := send("/webhooks/forms/TT01"); code != http.StatusOK {
		t.Fatalf("first request status = %d, want %d", code, http.StatusOK)
	}
	if code := send("/webhooks/forms/TT01"); code != http.StatusTooManyRequests {
		t.Errorf("second request status = %d, want %d", code, http.StatusTooManyRequests)
	}

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.RemoteAddr = "192.0.2.10:5000"
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("GET /health should not be rate limited, status = %d", w.Code)
	}
}

func TestRouter_RecoversFromPanic(t *testing.T) {
	submissions := &mockSubmissionRouter{
		routeFn: func(ctx context.Context, env *intake.Envelope) (*intake.Outcome, error) {
			panic("boom")
		},
	}
	router := NewRouter(&RouterDeps{
		WebhookHandler: newTestWebhookHandler(submissions, 0),
	})

	req := httptest.NewRequest(http.MethodPost, "/webhooks/forms/TT01", strings.NewReader(`{}`))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want %d", w.Code, http.StatusInternalServerError)
	}
	if !strings.Contains(w.Body.String(), "INTERNAL_ERROR") {
		t.Errorf("body = %s", w.Body.String())
	}
}
