// Package profilestore persists named PEQ profiles in SQLite so a tune
// can be captured from one device and pushed to another later.
package profilestore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/graywave/daceq/internal/peq"
)

// ErrNotFound is returned when no stored profile has the requested name.
var ErrNotFound = errors.New("profile not found")

// SavedProfile is a stored profile with its bookkeeping fields.
type SavedProfile struct {
	Name      string      `json:"name"`
	Device    string      `json:"device,omitempty"` // product name the profile was read from, if any
	Profile   peq.Profile `json:"profile"`
	CreatedAt time.Time   `json:"created_at"`
	UpdatedAt time.Time   `json:"updated_at"`
}

// Repository defines the interface for profile storage operations.
type Repository interface {
	Save(ctx context.Context, name, device string, p peq.Profile) error
	Load(ctx context.Context, name string) (SavedProfile, error)
	List(ctx context.Context) ([]SavedProfile, error)
	Delete(ctx context.Context, name string) error
}

// SQLiteRepository stores profiles in SQLite. Saving under an existing
// name replaces the stored profile.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository creates a profile repository and ensures its
// schema exists. Safe to call on every startup.
func NewSQLiteRepository(ctx context.Context, db *sql.DB) (*SQLiteRepository, error) {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS profiles (
			name TEXT PRIMARY KEY,
			device TEXT,
			profile TEXT NOT NULL,
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL
		)
	`)
	if err != nil {
		return nil, fmt.Errorf("creating profiles table: %w", err)
	}
	return &SQLiteRepository{db: db}, nil
}

// Save stores a profile under name, replacing any existing profile with
// that name. The original created_at survives a replace.
func (r *SQLiteRepository) Save(ctx context.Context, name, device string, p peq.Profile) error {
	if name == "" {
		return errors.New("profile name is required")
	}

	body, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("encoding profile: %w", err)
	}

	now := time.Now().UTC().Format(time.RFC3339)
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO profiles (name, device, profile, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET
			device = excluded.device,
			profile = excluded.profile,
			updated_at = excluded.updated_at
	`, name, nullableString(device), string(body), now, now)
	if err != nil {
		return fmt.Errorf("saving profile %q: %w", name, err)
	}
	return nil
}

// Load returns the profile stored under name.
func (r *SQLiteRepository) Load(ctx context.Context, name string) (SavedProfile, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT name, device, profile, created_at, updated_at
		FROM profiles WHERE name = ?
	`, name)

	sp, err := scanProfile(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return SavedProfile{}, fmt.Errorf("%w: %q", ErrNotFound, name)
	}
	if err != nil {
		return SavedProfile{}, fmt.Errorf("loading profile %q: %w", name, err)
	}
	return sp, nil
}

// List returns all stored profiles ordered by name.
func (r *SQLiteRepository) List(ctx context.Context) ([]SavedProfile, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT name, device, profile, created_at, updated_at
		FROM profiles ORDER BY name
	`)
	if err != nil {
		return nil, fmt.Errorf("listing profiles: %w", err)
	}
	defer rows.Close() //nolint:errcheck // read-only cursor

	var out []SavedProfile
	for rows.Next() {
		sp, err := scanProfile(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scanning profile row: %w", err)
		}
		out = append(out, sp)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating profiles: %w", err)
	}
	return out, nil
}

// Delete removes the profile stored under name.
func (r *SQLiteRepository) Delete(ctx context.Context, name string) error {
	result, err := r.db.ExecContext(ctx, "DELETE FROM profiles WHERE name = ?", name)
	if err != nil {
		return fmt.Errorf("deleting profile %q: %w", name, err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("deleting profile %q: %w", name, err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %q", ErrNotFound, name)
	}
	return nil
}

// scanProfile decodes one row via the given Scan function.
func scanProfile(scan func(dest ...any) error) (SavedProfile, error) {
	var (
		sp      SavedProfile
		device  sql.NullString
		body    string
		created string
		updated string
	)
	if err := scan(&sp.Name, &device, &body, &created, &updated); err != nil {
		return SavedProfile{}, err
	}
	sp.Device = device.String

	if err := json.Unmarshal([]byte(body), &sp.Profile); err != nil {
		return SavedProfile{}, fmt.Errorf("decoding stored profile: %w", err)
	}

	var err error
	if sp.CreatedAt, err = time.Parse(time.RFC3339, created); err != nil {
		return SavedProfile{}, fmt.Errorf("parsing created_at: %w", err)
	}
	if sp.UpdatedAt, err = time.Parse(time.RFC3339, updated); err != nil {
		return SavedProfile{}, fmt.Errorf("parsing updated_at: %w", err)
	}
	return sp, nil
}

// nullableString returns nil for empty strings, or the string otherwise.
// Used for nullable TEXT columns in SQLite.
func nullableString(s string) any {
	if s == "" {
		return nil
	}
	return s
}
