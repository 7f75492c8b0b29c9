package api

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestRequestIDMiddleware(t *testing.T) {
	_, router := newTestServer(t)

	t.Run("generates id", func(t *testing.T) {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/health", nil))

		if rec.Header().Get("X-Request-ID") == "" {
			t.Error("X-Request-ID header not set")
		}
	})

	t.Run("echoes client id", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/health", nil)
		req.Header.Set("X-Request-ID", "client-supplied-id")
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		if got := rec.Header().Get("X-Request-ID"); got != "client-supplied-id" {
			t.Errorf("X-Request-ID = %q, want client-supplied-id", got)
		}
	})
}

func TestCORSMiddleware(t *testing.T) {
	_, router := newTestServer(t)

	t.Run("preflight", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodOptions, "/api/v1/auth/login", nil)
		req.Header.Set("Origin", "http://localhost:5173")
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		if rec.Code != http.StatusNoContent {
			t.Errorf("preflight status = %d, want 204", rec.Code)
		}
		if rec.Header().Get("Access-Control-Allow-Origin") != "http://localhost:5173" {
			t.Errorf("allow-origin = %q", rec.Header().Get("Access-Control-Allow-Origin"))
		}
	})

	t.Run("no origin no cors headers", func(t *testing.T) {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/health", nil))

		if rec.Header().Get("Access-Control-Allow-Origin") != "" {
			t.Error("CORS headers set without an Origin header")
		}
	})
}

func TestBodySizeLimitMiddleware(t *testing.T) {
	_, router := newTestServer(t)

	oversized := `{"email":"a@b.co","password":"` + strings.Repeat("x", maxRequestBodySize+1) + `"}`
	rec := postJSON(t, router, "/api/v1/auth/register", oversized)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400 for oversized body", rec.Code)
	}
}

func TestRecoveryMiddleware(t *testing.T) {
	srv, _ := newTestServer(t)

	// Mount a panicking handler behind the real middleware chain.
	handler := srv.requestIDMiddleware(srv.recoveryMiddleware(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	})))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", rec.Code)
	}
}

func TestIsAllowedOrigin(t *testing.T) {
	srv, _ := newTestServer(t)

	if !srv.isAllowedOrigin("http://anywhere.example") {
		t.Error("empty allowlist should allow all origins")
	}

	srv.cfg.CORS.AllowedOrigins = []string{"https://app.example.com"}
	if !srv.isAllowedOrigin("https://app.example.com") {
		t.Error("listed origin rejected")
	}
	if srv.isAllowedOrigin("https://evil.example.com") {
		t.Error("unlisted origin allowed")
	}

	srv.cfg.CORS.AllowedOrigins = []string{"*"}
	if !srv.isAllowedOrigin("https://evil.example.com") {
		t.Error("wildcard should allow any origin")
	}
}
