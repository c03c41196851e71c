package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"racecalc/internal/analysis"
	"racecalc/internal/store"
	"racecalc/internal/strava"
)

// StravaClient is the part of the Strava API the sync needs
type StravaClient interface {
	GetAthlete(ctx context.Context) (*strava.Athlete, error)
	GetAllActivities(ctx context.Context, after time.Time, onProgress func(fetched int)) ([]strava.Activity, error)
	RateLimitStatus() (shortRemaining, dailyRemaining int)
}

// SyncService pulls the athlete's FTP, weight and a recent run from Strava
type SyncService struct {
	client StravaClient
	store  *store.Store
	logger *log.Logger
	now    func() time.Time
}

// NewSyncService creates a new sync service
func NewSyncService(client StravaClient, st *store.Store, logger *log.Logger) *SyncService {
	return &SyncService{client: client, store: st, logger: logger, now: time.Now}
}

// SyncProgress reports progress during sync
type SyncProgress struct {
	Phase     string // "athlete", "activities", "runs"
	Completed int
}

// SyncResult contains the results of a sync operation
type SyncResult struct {
	AthleteName       string
	ProfileUpdated    bool
	ActivitiesFetched int
	RunsConsidered    int
	BestRun           *store.FieldTest // nil when no run qualified or it was already stored
}

// SyncAll updates the profile from the athlete record, then records the
// best recent run as a run_performance test
func (s *SyncService) SyncAll(ctx context.Context, progress chan<- SyncProgress) (*SyncResult, error) {
	if progress != nil {
		defer close(progress)
	}

	result := &SyncResult{}

	send(progress, SyncProgress{Phase: "athlete"})
	if err := s.syncAthlete(ctx, result); err != nil {
		return result, fmt.Errorf("syncing athlete: %w", err)
	}

	if err := s.syncRuns(ctx, progress, result); err != nil {
		return result, fmt.Errorf("syncing runs: %w", err)
	}

	if err := s.store.SetSyncState(ctx, syncStateLastSync, s.now().UTC().Format(time.RFC3339)); err != nil {
		return result, fmt.Errorf("saving sync state: %w", err)
	}
	return result, nil
}

func send(progress chan<- SyncProgress, p SyncProgress) {
	if progress != nil {
		progress <- p
	}
}

func (s *SyncService) syncAthlete(ctx context.Context, result *SyncResult) error {
	athlete, err := s.client.GetAthlete(ctx)
	if err != nil {
		return err
	}
	result.AthleteName = athlete.Name()

	prof, err := s.store.GetProfile(ctx)
	if errors.Is(err, store.ErrNoProfile) {
		prof = &store.Profile{}
	} else if err != nil {
		return fmt.Errorf("loading profile: %w", err)
	}

	changed := false
	if athlete.FTP != nil && *athlete.FTP > 0 && float64(*athlete.FTP) != prof.FTPWatts {
		prof.FTPWatts = float64(*athlete.FTP)
		changed = true
	}
	if athlete.Weight > 0 && athlete.Weight != prof.AthleteWeightKg {
		prof.AthleteWeightKg = athlete.Weight
		changed = true
	}
	if !changed {
		return nil
	}

	prof.Source = SourceStrava
	prof.UpdatedAt = time.Time{}
	if err := s.store.SaveProfile(ctx, prof); err != nil {
		return fmt.Errorf("saving profile: %w", err)
	}
	result.ProfileUpdated = true
	s.logger.Printf("sync: profile from Strava athlete %d: ftp=%.0fW weight=%.1fkg", athlete.ID, prof.FTPWatts, prof.AthleteWeightKg)
	return nil
}

func (s *SyncService) syncRuns(ctx context.Context, progress chan<- SyncProgress, result *SyncResult) error {
	after := s.now().AddDate(0, 0, -RunLookbackDays)
	activities, err := s.client.GetAllActivities(ctx, after, func(fetched int) {
		send(progress, SyncProgress{Phase: "activities", Completed: fetched})
	})
	if err != nil {
		return err
	}
	result.ActivitiesFetched = len(activities)

	var best *strava.Activity
	bestNormalized := 0.0
	for i := range activities {
		a := &activities[i]
		if !qualifiesAsRunBase(a) {
			continue
		}
		result.RunsConsidered++

		normalized, err := analysis.PredictRiegel(float64(a.MovingTime), a.Distance/MetersPerKm, NormalizedRunKm)
		if err != nil {
			continue
		}
		if best == nil || normalized < bestNormalized {
			best, bestNormalized = a, normalized
		}
	}
	send(progress, SyncProgress{Phase: "runs", Completed: result.RunsConsidered})
	if best == nil {
		return nil
	}

	stored, err := s.alreadyStored(ctx, best)
	if err != nil || stored {
		return err
	}

	distance := best.Distance
	duration := float64(best.MovingTime)
	ft := &store.FieldTest{
		Kind:            store.KindRunPerformance,
		Value:           duration,
		DistanceMeters:  &distance,
		DurationSeconds: &duration,
		Source:          SourceStrava,
		TestedAt:        best.StartDate.UTC().Truncate(time.Second),
	}
	if err := s.store.AddFieldTest(ctx, ft); err != nil {
		return fmt.Errorf("saving run test: %w", err)
	}
	result.BestRun = ft
	s.logger.Printf("sync: best run %q %.2f km in %ds (10k equivalent %.0fs)", best.Name, distance/MetersPerKm, best.MovingTime, bestNormalized)
	return nil
}

// qualifiesAsRunBase keeps recorded runs of a race-like distance and speed
func qualifiesAsRunBase(a *strava.Activity) bool {
	if !a.IsRun() || a.Manual || a.MovingTime <= 0 {
		return false
	}
	km := a.Distance / MetersPerKm
	if km < MinRunBaseKm || km > MaxRunBaseKm {
		return false
	}
	return a.Distance/float64(a.MovingTime) >= MinRunSpeedMs
}

func (s *SyncService) alreadyStored(ctx context.Context, a *strava.Activity) (bool, error) {
	latest, err := s.store.LatestFieldTest(ctx, store.KindRunPerformance)
	if errors.Is(err, store.ErrFieldTestNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("loading run test: %w", err)
	}
	return latest.Source == SourceStrava &&
		latest.TestedAt.Equal(a.StartDate.UTC().Truncate(time.Second)) &&
		latest.Value == float64(a.MovingTime), nil
}

// LastSync returns when the last sync finished, zero if never
func (s *SyncService) LastSync(ctx context.Context) (time.Time, error) {
	v, err := s.store.GetSyncState(ctx, syncStateLastSync)
	if err != nil || v == "" {
		return time.Time{}, err
	}
	return time.Parse(time.RFC3339, v)
}

// RateLimitStatus returns remaining API quota
func (s *SyncService) RateLimitStatus() (shortRemaining, dailyRemaining int) {
	return s.client.RateLimitStatus()
}
