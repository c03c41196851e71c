package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// GetProfile returns the stored athlete profile
func (s *Store) GetProfile(ctx context.Context) (*Profile, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT ftp_watts, athlete_weight_kg, bike_weight_kg, max_hr, resting_hr,
			swim_css_seconds, run_threshold_seconds, source, updated_at
		FROM athlete_profile
		WHERE id = 1
	`)

	var p Profile
	var updatedAt string
	err := row.Scan(
		&p.FTPWatts, &p.AthleteWeightKg, &p.BikeWeightKg, &p.MaxHR, &p.RestingHR,
		&p.SwimCSSSeconds, &p.RunThresholdSeconds, &p.Source, &updatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNoProfile
	}
	if err != nil {
		return nil, err
	}

	p.UpdatedAt, err = time.Parse(time.RFC3339, updatedAt)
	if err != nil {
		return nil, fmt.Errorf("parsing updated_at %q: %w", updatedAt, err)
	}
	return &p, nil
}

// SaveProfile stores or replaces the athlete profile.
// A zero UpdatedAt is stamped with the current time.
func (s *Store) SaveProfile(ctx context.Context, p *Profile) error {
	if p.UpdatedAt.IsZero() {
		p.UpdatedAt = time.Now().UTC().Truncate(time.Second)
	}
	if p.Source == "" {
		p.Source = "manual"
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO athlete_profile (
			id, ftp_watts, athlete_weight_kg, bike_weight_kg, max_hr, resting_hr,
			swim_css_seconds, run_threshold_seconds, source, updated_at
		) VALUES (1, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			ftp_watts = excluded.ftp_watts,
			athlete_weight_kg = excluded.athlete_weight_kg,
			bike_weight_kg = excluded.bike_weight_kg,
			max_hr = excluded.max_hr,
			resting_hr = excluded.resting_hr,
			swim_css_seconds = excluded.swim_css_seconds,
			run_threshold_seconds = excluded.run_threshold_seconds,
			source = excluded.source,
			updated_at = excluded.updated_at
	`,
		p.FTPWatts, p.AthleteWeightKg, p.BikeWeightKg, p.MaxHR, p.RestingHR,
		p.SwimCSSSeconds, p.RunThresholdSeconds, p.Source, p.UpdatedAt.Format(time.RFC3339),
	)
	return err
}
