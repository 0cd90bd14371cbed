package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/voxline/voiceqa-backend/internal/pkg/metrics"
)

func okHandler(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
}

func TestCORSSetsHeaders(t *testing.T) {
	h := CORS(http.HandlerFunc(okHandler))

	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rr.Code)
	}
	if got := rr.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Errorf("Access-Control-Allow-Origin = %q", got)
	}
	if got := rr.Header().Get("Access-Control-Allow-Methods"); got != "GET, POST, OPTIONS" {
		t.Errorf("Access-Control-Allow-Methods = %q", got)
	}
}

func TestCORSPreflightShortCircuits(t *testing.T) {
	h := CORS(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("next handler should not be called for preflight")
	}))

	req := httptest.NewRequest(http.MethodOptions, "/api/submit-answer", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if rr.Code != http.StatusNoContent {
		t.Fatalf("status = %d, want 204", rr.Code)
	}
	if got := rr.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Errorf("Access-Control-Allow-Origin = %q", got)
	}
}

func TestRateLimiterBurstThen429(t *testing.T) {
	limiter := NewRateLimiter(60, 2, zap.NewNop())
	h := limiter.Handler(http.HandlerFunc(okHandler))

	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodGet, "/api/next-question", nil)
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, req)
		if rr.Code != http.StatusOK {
			t.Fatalf("request %d status = %d, want 200", i+1, rr.Code)
		}
	}

	req := httptest.NewRequest(http.MethodGet, "/api/next-question", nil)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if rr.Code != http.StatusTooManyRequests {
		t.Fatalf("status = %d, want 429 (body %s)", rr.Code, rr.Body.String())
	}
	if got := rr.Header().Get("Retry-After"); got != "1" {
		t.Errorf("Retry-After = %q", got)
	}
}

func TestRateLimiterTracksClientsSeparately(t *testing.T) {
	limiter := NewRateLimiter(60, 1, zap.NewNop())
	h := limiter.Handler(http.HandlerFunc(okHandler))

	send := func(remoteAddr string) int {
		req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
		req.RemoteAddr = remoteAddr
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, req)
		return rr.Code
	}

	if code := send("10.0.0.1:40001"); code != http.StatusOK {
		t.Fatalf("first client status = %d, want 200", code)
	}
	if code := send("10.0.0.1:40002"); code != http.StatusTooManyRequests {
		t.Fatalf("first client repeat status = %d, want 429", code)
	}
	if code := send("10.0.0.2:40001"); code != http.StatusOK {
		t.Fatalf("second client status = %d, want 200", code)
	}
}

func TestRateLimiterKeysOnForwardedClient(t *testing.T) {
	limiter := NewRateLimiter(60, 1, zap.NewNop())
	h := limiter.Handler(http.HandlerFunc(okHandler))

	send := func(forwardedFor string) int {
		req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
		req.Header.Set("X-Forwarded-For", forwardedFor)
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, req)
		return rr.Code
	}

	if code := send("203.0.113.7, 198.51.100.2"); code != http.StatusOK {
		t.Fatalf("first request status = %d, want 200", code)
	}
	// Same first hop behind a different proxy chain is the same client.
	if code := send("203.0.113.7"); code != http.StatusTooManyRequests {
		t.Fatalf("same client status = %d, want 429", code)
	}
	if code := send("198.51.100.9"); code != http.StatusOK {
		t.Fatalf("other client status = %d, want 200", code)
	}
}

func TestClientAddr(t *testing.T) {
	tests := []struct {
		name         string
		remoteAddr   string
		forwardedFor string
		want         string
	}{
		{name: "forwarded list", remoteAddr: "10.0.0.1:40001", forwardedFor: "203.0.113.7, 198.51.100.2", want: "203.0.113.7"},
		{name: "forwarded single", remoteAddr: "10.0.0.1:40001", forwardedFor: "203.0.113.7", want: "203.0.113.7"},
		{name: "remote host port", remoteAddr: "192.0.2.10:52100", want: "192.0.2.10"},
		{name: "remote host only", remoteAddr: "192.0.2.10", want: "192.0.2.10"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remoteAddr
			if tt.forwardedFor != "" {
				req.Header.Set("X-Forwarded-For", tt.forwardedFor)
			}
			if got := clientAddr(req); got != tt.want {
				t.Errorf("clientAddr() = %q, want %q", got, tt.want)
			}
		})
	}
}

// The logger middleware reads the chi route pattern, so it is exercised
// mounted on a router rather than wrapping a bare handler.
func TestLoggerPassesThrough(t *testing.T) {
	router := chi.NewRouter()
	router.Use(Logger(zap.NewNop(), metrics.DefaultMetrics))
	router.Get("/things/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte("ok"))
	})

	req := httptest.NewRequest(http.MethodGet, "/things/42", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201", rr.Code)
	}
	if rr.Body.String() != "ok" {
		t.Errorf("body = %q", rr.Body.String())
	}

	// Unmatched routes go through the same middleware without a pattern.
	req = httptest.NewRequest(http.MethodGet, "/nope", nil)
	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	if rr.Code != http.StatusNotFound {
		t.Fatalf("unmatched status = %d, want 404", rr.Code)
	}
}
