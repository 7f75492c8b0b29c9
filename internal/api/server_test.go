package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/bikeviz/authd/internal/audit"
	"github.com/bikeviz/authd/internal/auth"
	"github.com/bikeviz/authd/internal/infrastructure/config"
	"github.com/bikeviz/authd/internal/infrastructure/database"
	"github.com/bikeviz/authd/internal/infrastructure/logging"
)

// newTestServer wires a full server against a temp-file SQLite
// database and returns it with its router.
func newTestServer(t *testing.T) (*Server, http.Handler) {
	t.Helper()

	db, err := database.Open(database.Config{
		Path:        filepath.Join(t.TempDir(), "api_test.db"),
		WALMode:     true,
		BusyTimeout: 5,
	})
	if err != nil {
		t.Fatalf("opening test database: %v", err)
	}
	t.Cleanup(func() {
		_ = db.Close()
	})

	schema := []string{
		`CREATE TABLE users (
			id            INTEGER PRIMARY KEY,
			email         TEXT NOT NULL UNIQUE,
			password_hash TEXT,
			role          TEXT NOT NULL,
			is_active     INTEGER NOT NULL DEFAULT 1,
			created_at    TEXT NOT NULL,
			updated_at    TEXT NOT NULL
		) STRICT`,
		`CREATE TABLE audit_logs (
			id          TEXT PRIMARY KEY,
			action      TEXT NOT NULL,
			entity_type TEXT NOT NULL,
			entity_id   TEXT,
			subject     TEXT,
			details     TEXT,
			created_at  TEXT NOT NULL
		) STRICT`,
	}
	for _, stmt := range schema {
		if _, err := db.ExecContext(context.Background(), stmt); err != nil {
			t.Fatalf("applying test schema: %v", err)
		}
	}

	codec, err := auth.NewCodec(config.JWTConfig{
		Secret:          "test-secret-key-0123456789abcdef0123",
		Algorithm:       "HS256",
		AccessTokenTTL:  30,
		RefreshTokenTTL: 10080,
	})
	if err != nil {
		t.Fatalf("creating codec: %v", err)
	}

	logger := logging.New(config.LoggingConfig{Level: "error", Format: "text"}, "test")
	users := auth.NewSQLiteUserRepository(db)
	auditRepo := audit.NewSQLiteRepository(db.DB)
	service := auth.NewService(users, codec, auditRepo, logger)
	resolver := auth.NewResolver(codec, users)

	srv, err := New(Deps{
		Config:   config.APIConfig{Host: "127.0.0.1", Port: 0},
		Logger:   logger,
		Service:  service,
		Resolver: resolver,
		Users:    users,
		Audit:    auditRepo,
		AppName:  "authd",
		Env:      "test",
		Version:  "test",
	})
	if err != nil {
		t.Fatalf("creating server: %v", err)
	}

	return srv, srv.buildRouter()
}

func TestNew_RequiredDeps(t *testing.T) {
	logger := logging.Default()

	tests := []struct {
		name string
		deps Deps
	}{
		{"missing logger", Deps{}},
		{"missing service", Deps{Logger: logger}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := New(tt.deps); err == nil {
				t.Error("expected error for incomplete deps")
			}
		})
	}
}

func TestHandleRoot(t *testing.T) {
	_, router := newTestServer(t)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decoding body: %v", err)
	}
	if body["app"] != "authd" || body["status"] != "ok" || body["env"] != "test" {
		t.Errorf("body = %v", body)
	}
}

func TestHandleHealth(t *testing.T) {
	_, router := newTestServer(t)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/health", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decoding body: %v", err)
	}
	if body["status"] != "ok" {
		t.Errorf("status field = %v, want ok", body["status"])
	}
	if body["version"] != "test" {
		t.Errorf("version = %v, want test", body["version"])
	}
}

func TestServerLifecycle(t *testing.T) {
	srv, _ := newTestServer(t)
	ctx := context.Background()

	if err := srv.HealthCheck(ctx); err == nil {
		t.Error("health check should fail before Start")
	}

	if err := srv.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	if err := srv.HealthCheck(ctx); err != nil {
		t.Errorf("health check failed after Start: %v", err)
	}

	if err := srv.Close(); err != nil {
		t.Errorf("Close failed: %v", err)
	}
}
