package auth

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mattn/go-sqlite3"

	"github.com/bikeviz/authd/internal/infrastructure/database"
)

// UserRepository provides user persistence operations.
type UserRepository interface {
	// Create inserts a new user and fills in its assigned ID and
	// timestamps. Returns ErrEmailExists if the email is taken.
	Create(ctx context.Context, user *User) error

	// GetByEmail retrieves a user by email. Returns ErrUserNotFound
	// if no user exists.
	GetByEmail(ctx context.Context, email string) (*User, error)

	// GetByID retrieves a user by ID. Returns ErrUserNotFound if no
	// user exists.
	GetByID(ctx context.Context, id int64) (*User, error)

	// GetOrCreateGuest returns the shared guest user, creating it on
	// first use. Safe under concurrent callers.
	GetOrCreateGuest(ctx context.Context) (*User, error)

	// Count returns the total number of users.
	Count(ctx context.Context) (int, error)
}

// SQLiteUserRepository implements UserRepository backed by SQLite.
type SQLiteUserRepository struct {
	db *database.DB
}

// NewSQLiteUserRepository creates a user repository.
func NewSQLiteUserRepository(db *database.DB) *SQLiteUserRepository {
	return &SQLiteUserRepository{db: db}
}

func (r *SQLiteUserRepository) Create(ctx context.Context, user *User) error {
	if !IsValidEmail(user.Email) {
		return fmt.Errorf("invalid email %q", user.Email)
	}
	if !IsValidRole(user.Role) {
		return fmt.Errorf("invalid role %q", user.Role)
	}

	now := time.Now().UTC()
	user.CreatedAt = now
	user.UpdatedAt = now

	query := `
		INSERT INTO users (email, password_hash, role, is_active, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`

	result, err := r.db.ExecContext(ctx, query,
		user.Email,
		nullString(user.PasswordHash),
		string(user.Role),
		boolToInt(user.IsActive),
		now.Format(time.RFC3339),
		now.Format(time.RFC3339),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrEmailExists
		}
		return fmt.Errorf("inserting user: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("reading inserted id: %w", err)
	}
	user.ID = id

	return nil
}

func (r *SQLiteUserRepository) GetByEmail(ctx context.Context, email string) (*User, error) {
	query := `
		SELECT id, email, password_hash, role, is_active, created_at, updated_at
		FROM users
		WHERE email = ?
	`

	row := r.db.QueryRowContext(ctx, query, email)

	user, err := scanUserFrom(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("querying user by email: %w", err)
	}

	return user, nil
}

func (r *SQLiteUserRepository) GetByID(ctx context.Context, id int64) (*User, error) {
	query := `
		SELECT id, email, password_hash, role, is_active, created_at, updated_at
		FROM users
		WHERE id = ?
	`

	row := r.db.QueryRowContext(ctx, query, id)

	user, err := scanUserFrom(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("querying user by id: %w", err)
	}

	return user, nil
}

func (r *SQLiteUserRepository) GetOrCreateGuest(ctx context.Context) (*User, error) {
	now := time.Now().UTC().Format(time.RFC3339)

	// Insert-if-absent then read back. ON CONFLICT DO NOTHING makes
	// the insert a no-op when another caller won the race, so both
	// callers resolve to the same row.
	insert := `
		INSERT INTO users (email, password_hash, role, is_active, created_at, updated_at)
		VALUES (?, NULL, ?, 1, ?, ?)
		ON CONFLICT(email) DO NOTHING
	`

	if _, err := r.db.ExecContext(ctx, insert, GuestEmail, string(RoleGuest), now, now); err != nil {
		return nil, fmt.Errorf("ensuring guest user: %w", err)
	}

	user, err := r.GetByEmail(ctx, GuestEmail)
	if err != nil {
		return nil, fmt.Errorf("loading guest user: %w", err)
	}

	return user, nil
}

func (r *SQLiteUserRepository) Count(ctx context.Context) (int, error) {
	var count int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&count); err != nil {
		return 0, fmt.Errorf("counting users: %w", err)
	}
	return count, nil
}

// scanner abstracts *sql.Row and *sql.Rows for shared scan logic.
type scanner interface {
	Scan(dest ...interface{}) error
}

func scanUserFrom(s scanner) (*User, error) {
	var (
		user         User
		passwordHash sql.NullString
		role         string
		isActive     int
		createdAt    string
		updatedAt    string
	)

	if err := s.Scan(&user.ID, &user.Email, &passwordHash, &role, &isActive, &createdAt, &updatedAt); err != nil {
		return nil, err
	}

	user.PasswordHash = passwordHash.String
	user.Role = Role(role)
	user.IsActive = isActive != 0

	var err error
	if user.CreatedAt, err = time.Parse(time.RFC3339, createdAt); err != nil {
		return nil, fmt.Errorf("parsing created_at: %w", err)
	}
	if user.UpdatedAt, err = time.Parse(time.RFC3339, updatedAt); err != nil {
		return nil, fmt.Errorf("parsing updated_at: %w", err)
	}

	return &user, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// isUniqueViolation reports whether an error is a SQLite unique
// constraint failure.
func isUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
			sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
