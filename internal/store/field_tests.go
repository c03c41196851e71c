package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// AddFieldTest records a field test, assigning an ID when it has none
func (s *Store) AddFieldTest(ctx context.Context, ft *FieldTest) error {
	if !ft.Kind.Valid() {
		return fmt.Errorf("unknown field test kind %q", ft.Kind)
	}
	if ft.ID == "" {
		ft.ID = uuid.NewString()
	}
	if ft.TestedAt.IsZero() {
		ft.TestedAt = time.Now().UTC().Truncate(time.Second)
	}
	if ft.Source == "" {
		ft.Source = "manual"
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO field_tests (id, kind, value, distance_meters, duration_seconds, source, tested_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, ft.ID, string(ft.Kind), ft.Value, ft.DistanceMeters, ft.DurationSeconds, ft.Source,
		ft.TestedAt.UTC().Format(time.RFC3339))
	return err
}

// LatestFieldTest returns the most recent test of a kind
func (s *Store) LatestFieldTest(ctx context.Context, kind FieldTestKind) (*FieldTest, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, kind, value, distance_meters, duration_seconds, source, tested_at
		FROM field_tests
		WHERE kind = ?
		ORDER BY tested_at DESC, created_at DESC
		LIMIT 1
	`, string(kind))

	ft, err := scanFieldTest(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrFieldTestNotFound
	}
	return ft, err
}

// ListFieldTests returns tests newest first. An empty kind lists every kind.
func (s *Store) ListFieldTests(ctx context.Context, kind FieldTestKind, limit int) ([]FieldTest, error) {
	if limit <= 0 {
		limit = -1 // no limit in SQLite
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, kind, value, distance_meters, duration_seconds, source, tested_at
		FROM field_tests
		WHERE ? = '' OR kind = ?
		ORDER BY tested_at DESC, created_at DESC
		LIMIT ?
	`, string(kind), string(kind), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tests []FieldTest
	for rows.Next() {
		ft, err := scanFieldTest(rows)
		if err != nil {
			return nil, err
		}
		tests = append(tests, *ft)
	}
	return tests, rows.Err()
}

// rowScanner is satisfied by *sql.Row and *sql.Rows
type rowScanner interface {
	Scan(dest ...any) error
}

func scanFieldTest(row rowScanner) (*FieldTest, error) {
	var ft FieldTest
	var kind, testedAt string
	if err := row.Scan(&ft.ID, &kind, &ft.Value, &ft.DistanceMeters, &ft.DurationSeconds, &ft.Source, &testedAt); err != nil {
		return nil, err
	}
	ft.Kind = FieldTestKind(kind)

	var err error
	ft.TestedAt, err = time.Parse(time.RFC3339, testedAt)
	if err != nil {
		return nil, fmt.Errorf("parsing tested_at %q: %w", testedAt, err)
	}
	return &ft, nil
}
