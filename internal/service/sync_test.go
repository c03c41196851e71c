package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"racecalc/internal/logging"
	"racecalc/internal/store"
	"racecalc/internal/strava"
)

type fakeStrava struct {
	athlete    *strava.Athlete
	activities []strava.Activity
	err        error
	after      time.Time
}

func (f *fakeStrava) GetAthlete(ctx context.Context) (*strava.Athlete, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.athlete, nil
}

func (f *fakeStrava) GetAllActivities(ctx context.Context, after time.Time, onProgress func(int)) ([]strava.Activity, error) {
	f.after = after
	if onProgress != nil {
		onProgress(len(f.activities))
	}
	return f.activities, nil
}

func (f *fakeStrava) RateLimitStatus() (int, int) { return 100, 1000 }

var syncNow = time.Date(2025, 5, 1, 12, 0, 0, 0, time.UTC)

func newTestSync(t *testing.T, client *fakeStrava) (*SyncService, *store.Store) {
	t.Helper()
	st := store.NewTestStore(t)
	s := NewSyncService(client, st, logging.Discard())
	s.now = func() time.Time { return syncNow }
	return s, st
}

func run(id int64, name string, km float64, seconds int, daysAgo int) strava.Activity {
	return strava.Activity{
		ID:         id,
		Name:       name,
		Type:       "Run",
		SportType:  "Run",
		StartDate:  syncNow.AddDate(0, 0, -daysAgo),
		Distance:   km * 1000,
		MovingTime: seconds,
	}
}

func TestSyncAll(t *testing.T) {
	ftp := 265
	client := &fakeStrava{
		athlete: &strava.Athlete{ID: 7, Firstname: "Ada", Lastname: "Byron", Weight: 61.5, FTP: &ftp},
		activities: []strava.Activity{
			run(1, "easy 8k", 8, 8*330, 3),
			run(2, "parkrun", 5, 1140, 10), // best 10k equivalent
			run(3, "long run", 21.1, 6300, 20),
			run(4, "walk", 5, 5000, 2),
			run(5, "shakeout", 2, 500, 1),
			{ID: 6, Name: "ride", SportType: "Ride", Distance: 40000, MovingTime: 4000, StartDate: syncNow},
		},
	}
	manual := run(7, "treadmill typo", 10, 1000, 5)
	manual.Manual = true
	client.activities = append(client.activities, manual)

	s, st := newTestSync(t, client)
	ctx := context.Background()

	progress := make(chan SyncProgress, 10)
	res, err := s.SyncAll(ctx, progress)
	require.NoError(t, err)

	var phases []string
	for p := range progress {
		phases = append(phases, p.Phase)
	}
	assert.Equal(t, []string{"athlete", "activities", "runs"}, phases)

	assert.Equal(t, "Ada Byron", res.AthleteName)
	assert.True(t, res.ProfileUpdated)
	assert.Equal(t, 7, res.ActivitiesFetched)
	assert.Equal(t, 3, res.RunsConsidered)
	assert.Equal(t, syncNow.AddDate(0, 0, -RunLookbackDays), client.after)

	require.NotNil(t, res.BestRun)
	assert.Equal(t, 1140.0, res.BestRun.Value)
	assert.Equal(t, 5000.0, *res.BestRun.DistanceMeters)

	prof, err := st.GetProfile(ctx)
	require.NoError(t, err)
	assert.Equal(t, 265.0, prof.FTPWatts)
	assert.Equal(t, 61.5, prof.AthleteWeightKg)
	assert.Equal(t, SourceStrava, prof.Source)

	last, err := s.LastSync(ctx)
	require.NoError(t, err)
	assert.True(t, last.Equal(syncNow))

	// a second sync finds nothing new
	again, err := s.SyncAll(ctx, nil)
	require.NoError(t, err)
	assert.False(t, again.ProfileUpdated)
	assert.Nil(t, again.BestRun)

	tests, err := st.ListFieldTests(ctx, store.KindRunPerformance, 0)
	require.NoError(t, err)
	assert.Len(t, tests, 1)
}

func TestSyncAllWithoutRuns(t *testing.T) {
	client := &fakeStrava{athlete: &strava.Athlete{ID: 1}}
	s, st := newTestSync(t, client)
	ctx := context.Background()

	res, err := s.SyncAll(ctx, nil)
	require.NoError(t, err)
	assert.False(t, res.ProfileUpdated)
	assert.Nil(t, res.BestRun)

	_, err = st.GetProfile(ctx)
	assert.ErrorIs(t, err, store.ErrNoProfile)
}

func TestSyncAllAthleteError(t *testing.T) {
	boom := errors.New("strava down")
	s, _ := newTestSync(t, &fakeStrava{err: boom})

	_, err := s.SyncAll(context.Background(), nil)
	assert.ErrorIs(t, err, boom)

	last, err := s.LastSync(context.Background())
	require.NoError(t, err)
	assert.True(t, last.IsZero())
}

func TestQualifiesAsRunBase(t *testing.T) {
	long := run(1, "", 50, 5*3600, 0)
	assert.False(t, qualifiesAsRunBase(&long))

	ok := run(1, "", 10, 2700, 0)
	assert.True(t, qualifiesAsRunBase(&ok))

	trail := ok
	trail.SportType = "TrailRun"
	assert.True(t, qualifiesAsRunBase(&trail))
}
