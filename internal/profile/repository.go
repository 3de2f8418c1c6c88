package profile

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// SQLiteRepository implements Repository using SQLite.
type SQLiteRepository struct {
	db  *sql.DB
	now func() time.Time
}

// NewSQLiteRepository creates a new SQLite-backed repository.
// The db parameter should be an open, migrated SQLite connection.
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db, now: time.Now}
}

// Save inserts or replaces the profile for p.Output. A zero UpdatedAt is
// set to the current time.
func (r *SQLiteRepository) Save(ctx context.Context, p Profile) error {
	if p.Output == "" {
		return fmt.Errorf("saving profile: output name is required")
	}
	if p.UpdatedAt.IsZero() {
		p.UpdatedAt = r.now()
	}

	query := `
		INSERT INTO saturation_profiles (output, saturation, backend, source, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(output) DO UPDATE SET
			saturation = excluded.saturation,
			backend = excluded.backend,
			source = excluded.source,
			updated_at = excluded.updated_at`

	_, err := r.db.ExecContext(ctx, query,
		p.Output, p.Saturation, p.Backend, p.Source,
		p.UpdatedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("saving profile: %w", err)
	}
	return nil
}

// Get returns the profile for an output.
func (r *SQLiteRepository) Get(ctx context.Context, output string) (*Profile, error) {
	query := `
		SELECT output, saturation, backend, source, updated_at
		FROM saturation_profiles
		WHERE output = ?`

	p, err := scanProfile(r.db.QueryRowContext(ctx, query, output))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrProfileNotFound
		}
		return nil, fmt.Errorf("querying profile: %w", err)
	}
	return p, nil
}

// List returns all profiles ordered by output name.
func (r *SQLiteRepository) List(ctx context.Context) ([]Profile, error) {
	query := `
		SELECT output, saturation, backend, source, updated_at
		FROM saturation_profiles
		ORDER BY output`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("querying profiles: %w", err)
	}
	defer rows.Close()

	var profiles []Profile
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning profile: %w", err)
		}
		profiles = append(profiles, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating profiles: %w", err)
	}
	return profiles, nil
}

// Delete removes the profile for an output.
func (r *SQLiteRepository) Delete(ctx context.Context, output string) error {
	result, err := r.db.ExecContext(ctx, "DELETE FROM saturation_profiles WHERE output = ?", output)
	if err != nil {
		return fmt.Errorf("deleting profile: %w", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if n == 0 {
		return ErrProfileNotFound
	}
	return nil
}

// scanner is satisfied by *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanProfile(s scanner) (*Profile, error) {
	var p Profile
	var updatedAt string
	if err := s.Scan(&p.Output, &p.Saturation, &p.Backend, &p.Source, &updatedAt); err != nil {
		return nil, err
	}

	t, err := time.Parse(time.RFC3339Nano, updatedAt)
	if err != nil {
		return nil, fmt.Errorf("parsing updated_at %q: %w", updatedAt, err)
	}
	p.UpdatedAt = t
	return &p, nil
}
