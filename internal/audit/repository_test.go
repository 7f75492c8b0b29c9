package audit

import (
	"context"
	"database/sql"
	"path/filepath"
	"strings"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

func newTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sql.Open("sqlite3", filepath.Join(t.TempDir(), "audit_test.db"))
	if err != nil {
		t.Fatalf("opening test database: %v", err)
	}
	t.Cleanup(func() {
		_ = db.Close()
	})

	schema := `CREATE TABLE audit_logs (
		id          TEXT PRIMARY KEY,
		action      TEXT NOT NULL,
		entity_type TEXT NOT NULL,
		entity_id   TEXT,
		subject     TEXT,
		details     TEXT,
		created_at  TEXT NOT NULL
	) STRICT`
	if _, err := db.Exec(schema); err != nil {
		t.Fatalf("applying test schema: %v", err)
	}

	return db
}

func TestCreate(t *testing.T) {
	repo := NewSQLiteRepository(newTestDB(t))
	ctx := context.Background()

	entry := &Entry{
		Action:     ActionLogin,
		EntityType: "user",
		EntityID:   "1",
		Subject:    "alice@example.com",
		Details:    map[string]any{"role": "user"},
	}

	if err := repo.Create(ctx, entry); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	if !strings.HasPrefix(entry.ID, "aud-") {
		t.Errorf("generated ID = %q, want aud- prefix", entry.ID)
	}
	if entry.CreatedAt.IsZero() {
		t.Error("CreatedAt was not set")
	}
}

func TestCreate_MinimalEntry(t *testing.T) {
	repo := NewSQLiteRepository(newTestDB(t))

	entry := &Entry{Action: ActionRefresh, EntityType: "user"}
	if err := repo.Create(context.Background(), entry); err != nil {
		t.Fatalf("Create failed: %v", err)
	}
}

func TestList(t *testing.T) {
	repo := NewSQLiteRepository(newTestDB(t))
	ctx := context.Background()

	base := time.Now().UTC().Add(-time.Hour)
	seed := []Entry{
		{Action: ActionRegister, EntityType: "user", Subject: "alice@example.com", CreatedAt: base},
		{Action: ActionLogin, EntityType: "user", Subject: "alice@example.com", CreatedAt: base.Add(time.Minute)},
		{Action: ActionLogin, EntityType: "user", Subject: "bob@example.com", CreatedAt: base.Add(2 * time.Minute)},
		{Action: ActionGuestLogin, EntityType: "user", Subject: "guest@local", CreatedAt: base.Add(3 * time.Minute)},
	}
	for i := range seed {
		if err := repo.Create(ctx, &seed[i]); err != nil {
			t.Fatalf("seeding entry %d: %v", i, err)
		}
	}

	t.Run("all entries newest first", func(t *testing.T) {
		result, err := repo.List(ctx, Filter{})
		if err != nil {
			t.Fatalf("List failed: %v", err)
		}
		if result.Total != 4 {
			t.Errorf("total = %d, want 4", result.Total)
		}
		if len(result.Entries) != 4 {
			t.Fatalf("entries = %d, want 4", len(result.Entries))
		}
		if result.Entries[0].Action != ActionGuestLogin {
			t.Errorf("newest entry action = %q, want guest_login", result.Entries[0].Action)
		}
	})

	t.Run("filter by action", func(t *testing.T) {
		result, err := repo.List(ctx, Filter{Action: ActionLogin})
		if err != nil {
			t.Fatalf("List failed: %v", err)
		}
		if result.Total != 2 {
			t.Errorf("total = %d, want 2", result.Total)
		}
	})

	t.Run("filter by subject", func(t *testing.T) {
		result, err := repo.List(ctx, Filter{Subject: "alice@example.com"})
		if err != nil {
			t.Fatalf("List failed: %v", err)
		}
		if result.Total != 2 {
			t.Errorf("total = %d, want 2", result.Total)
		}
	})

	t.Run("pagination", func(t *testing.T) {
		result, err := repo.List(ctx, Filter{Limit: 2, Offset: 2})
		if err != nil {
			t.Fatalf("List failed: %v", err)
		}
		if result.Total != 4 {
			t.Errorf("total = %d, want 4", result.Total)
		}
		if len(result.Entries) != 2 {
			t.Errorf("page size = %d, want 2", len(result.Entries))
		}
	})

	t.Run("no matches returns empty slice", func(t *testing.T) {
		result, err := repo.List(ctx, Filter{Action: "password_reset"})
		if err != nil {
			t.Fatalf("List failed: %v", err)
		}
		if result.Entries == nil {
			t.Error("entries should be empty slice, not nil")
		}
		if result.Total != 0 {
			t.Errorf("total = %d, want 0", result.Total)
		}
	})
}

// Entries stamped within the same second must keep a stable order, so
// paging through them never repeats or skips rows.
func TestList_StableOrderWithinSecond(t *testing.T) {
	repo := NewSQLiteRepository(newTestDB(t))
	ctx := context.Background()

	stamp := time.Now().UTC().Truncate(time.Second)
	for i := 0; i < 6; i++ {
		entry := &Entry{Action: ActionLogin, EntityType: "user", Subject: "alice@example.com", CreatedAt: stamp}
		if err := repo.Create(ctx, entry); err != nil {
			t.Fatalf("seeding entry %d: %v", i, err)
		}
	}

	seen := make(map[string]bool)
	for offset := 0; offset < 6; offset += 2 {
		result, err := repo.List(ctx, Filter{Limit: 2, Offset: offset})
		if err != nil {
			t.Fatalf("List at offset %d failed: %v", offset, err)
		}
		if len(result.Entries) != 2 {
			t.Fatalf("page at offset %d has %d entries, want 2", offset, len(result.Entries))
		}
		for _, e := range result.Entries {
			if seen[e.ID] {
				t.Errorf("entry %s appeared on more than one page", e.ID)
			}
			seen[e.ID] = true
		}
	}
	if len(seen) != 6 {
		t.Errorf("paged through %d distinct entries, want 6", len(seen))
	}
}

func TestList_ClampsLimit(t *testing.T) {
	repo := NewSQLiteRepository(newTestDB(t))

	result, err := repo.List(context.Background(), Filter{Limit: 1000, Offset: -5})
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if result.Limit != 200 {
		t.Errorf("limit = %d, want clamped to 200", result.Limit)
	}
	if result.Offset != 0 {
		t.Errorf("offset = %d, want clamped to 0", result.Offset)
	}
}

func TestList_DetailsRoundTrip(t *testing.T) {
	repo := NewSQLiteRepository(newTestDB(t))
	ctx := context.Background()

	entry := &Entry{
		Action:     ActionPasswordGrant,
		EntityType: "user",
		Subject:    "alice@example.com",
		Details:    map[string]any{"role": "user"},
	}
	if err := repo.Create(ctx, entry); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	result, err := repo.List(ctx, Filter{Action: ActionPasswordGrant})
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(result.Entries) != 1 {
		t.Fatalf("entries = %d, want 1", len(result.Entries))
	}
	if got := result.Entries[0].Details["role"]; got != "user" {
		t.Errorf("details role = %v, want user", got)
	}
}
