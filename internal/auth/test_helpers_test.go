package auth

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/bikeviz/authd/internal/infrastructure/config"
	"github.com/bikeviz/authd/internal/infrastructure/database"
)

// testJWTConfig returns a valid JWT configuration for tests.
func testJWTConfig() config.JWTConfig {
	return config.JWTConfig{
		Secret:          "test-secret-key-0123456789abcdef0123",
		Algorithm:       "HS256",
		AccessTokenTTL:  30,
		RefreshTokenTTL: 10080,
	}
}

// newTestDB opens a temp-file SQLite database with the users and
// audit_logs schema applied.
func newTestDB(t *testing.T) *database.DB {
	t.Helper()

	db, err := database.Open(database.Config{
		Path:        filepath.Join(t.TempDir(), "auth_test.db"),
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

	return db
}

// newTestCodec builds a codec with short but non-zero lifetimes.
func newTestCodec(t *testing.T) *Codec {
	t.Helper()

	codec, err := NewCodec(testJWTConfig())
	if err != nil {
		t.Fatalf("creating codec: %v", err)
	}
	return codec
}

// mustCreateUser inserts a user with a hashed password and fails the
// test on any error.
func mustCreateUser(t *testing.T, repo UserRepository, email, password string) *User {
	t.Helper()

	hash, err := HashPassword(password)
	if err != nil {
		t.Fatalf("hashing password: %v", err)
	}

	user := &User{
		Email:        email,
		PasswordHash: hash,
		Role:         RoleUser,
		IsActive:     true,
	}
	if err := repo.Create(context.Background(), user); err != nil {
		t.Fatalf("creating user %s: %v", email, err)
	}

	return user
}
