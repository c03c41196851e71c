package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// SavePrediction stores a prediction in the history, assigning an ID and
// timestamp when missing
func (s *Store) SavePrediction(ctx context.Context, p *Prediction) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if p.ComputedAt.IsZero() {
		p.ComputedAt = time.Now().UTC().Truncate(time.Second)
	}
	if len(p.Summary) == 0 {
		p.Summary = []byte("{}")
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO predictions (id, kind, race_type, total_seconds, summary, computed_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, p.ID, p.Kind, nullString(p.RaceType), p.TotalSeconds, string(p.Summary),
		p.ComputedAt.UTC().Format(time.RFC3339))
	return err
}

// GetPrediction retrieves a single prediction by ID
func (s *Store) GetPrediction(ctx context.Context, id string) (*Prediction, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, kind, race_type, total_seconds, summary, computed_at
		FROM predictions
		WHERE id = ?
	`, id)

	p, err := scanPrediction(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrPredictionNotFound
	}
	return p, err
}

// ListPredictions returns predictions newest first. An empty kind lists both kinds.
func (s *Store) ListPredictions(ctx context.Context, kind string, limit int) ([]Prediction, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, kind, race_type, total_seconds, summary, computed_at
		FROM predictions
		WHERE ? = '' OR kind = ?
		ORDER BY computed_at DESC, rowid DESC
		LIMIT ?
	`, kind, kind, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var predictions []Prediction
	for rows.Next() {
		p, err := scanPrediction(rows)
		if err != nil {
			return nil, err
		}
		predictions = append(predictions, *p)
	}
	return predictions, rows.Err()
}

// DeletePredictions removes the whole prediction history
func (s *Store) DeletePredictions(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM predictions`)
	return err
}

func scanPrediction(row rowScanner) (*Prediction, error) {
	var p Prediction
	var raceType sql.NullString
	var summary, computedAt string

	if err := row.Scan(&p.ID, &p.Kind, &raceType, &p.TotalSeconds, &summary, &computedAt); err != nil {
		return nil, err
	}
	p.RaceType = raceType.String
	p.Summary = []byte(summary)

	var err error
	p.ComputedAt, err = time.Parse(time.RFC3339, computedAt)
	if err != nil {
		return nil, fmt.Errorf("parsing computed_at %q: %w", computedAt, err)
	}
	return &p, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
