package analysis

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"racecalc/internal/timefmt"
)

func TestClassifyRace(t *testing.T) {
	tests := []struct {
		swim float64
		want RaceType
	}{
		{400, Sprint},
		{750, Sprint},
		{751, Olympic},
		{1500, Olympic},
		{1900, Half},
		{1901, Full},
		{3800, Full},
		{5000, Full},
	}
	for _, tt := range tests {
		got, err := ClassifyRace(tt.swim)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got, "%vm", tt.swim)
	}

	_, err := ClassifyRace(0)
	assert.True(t, errors.Is(err, ErrInvalidInput))
}

func TestRaceDistancesTable(t *testing.T) {
	want := map[RaceType]RaceDistances{
		Sprint:  {750, 20, 5, 60, 45},
		Olympic: {1500, 40, 10, 90, 60},
		Half:    {1900, 90, 21.1, 120, 90},
		Full:    {3800, 180, 42.2, 180, 120},
	}
	for _, rt := range RaceTypes {
		got, err := RaceDistancesFor(rt)
		require.NoError(t, err)
		assert.Equal(t, want[rt], got, rt.String())

		// the canonical swim distance classifies back to its own type
		back, err := ClassifyRace(got.SwimMeters)
		require.NoError(t, err)
		assert.Equal(t, rt, back)
	}

	_, err := RaceDistancesFor("ultra")
	assert.Error(t, err)

	rt, err := ParseRaceType(" Olympic ")
	require.NoError(t, err)
	assert.Equal(t, Olympic, rt)
}

func TestPredictSwim(t *testing.T) {
	base := SwimInput{BaselineDistanceM: 400, BaselineTimeSeconds: 360, RaceDistanceM: 750}

	pool, err := PredictSwim(base)
	require.NoError(t, err)
	assert.InDelta(t, 675, pool.TimeSeconds, 1e-9)
	assert.Empty(t, pool.Factors)

	worst := base
	worst.Venue, worst.Swell = VenueLake, SwellHigh
	slow, err := PredictSwim(worst)
	require.NoError(t, err)
	assert.InDelta(t, 675*1.05*1.10, slow.TimeSeconds, 1e-9)
	assert.Len(t, slow.Factors, 2)

	best := base
	best.Venue, best.Wetsuit = VenueSea, true
	fast, err := PredictSwim(best)
	require.NoError(t, err)
	assert.InDelta(t, 675*1.05*0.98*0.95, fast.TimeSeconds, 1e-9)
	assert.Equal(t, []string{
		"Open water (sea): sighting and no walls (+5%)",
		"Salt water buoyancy (-2%)",
		"Wetsuit (-5%)",
	}, fast.Factors)

	// swell is ignored in a pool
	poolSwell := base
	poolSwell.Swell = SwellModerate
	p, err := PredictSwim(poolSwell)
	require.NoError(t, err)
	assert.Equal(t, pool.TimeSeconds, p.TimeSeconds)

	for _, r := range []LegResult{pool, slow, fast} {
		assert.GreaterOrEqual(t, r.TimeSeconds, 675*0.95*0.98)
		assert.LessOrEqual(t, r.TimeSeconds, 675*1.05*1.10+1e-9)
	}

	bad := base
	bad.Venue = "river"
	_, err = PredictSwim(bad)
	assert.True(t, errors.Is(err, ErrInvalidInput))
}

func TestPredictRiegel(t *testing.T) {
	same, err := PredictRiegel(2400, 10, 10)
	require.NoError(t, err)
	assert.Equal(t, 2400.0, same)

	ten, err := PredictRiegel(1200, 5, 10)
	require.NoError(t, err)
	assert.InDelta(t, 1200*math.Pow(2, 1.06), ten, 1e-9)

	_, err = PredictRiegel(1200, 0, 10)
	assert.True(t, errors.Is(err, ErrInvalidInput))
}

func TestRunFatigueMultiplier(t *testing.T) {
	tests := []struct {
		race RaceType
		zone int
		want float64
	}{
		{Sprint, 1, 1.03},
		{Sprint, 2, 1.03},
		{Olympic, 3, 1.07},
		{Half, 4, 1.12},
		{Full, 5, 1.19},
		{Full, 7, 1.19},
	}
	for _, tt := range tests {
		got, err := RunFatigueMultiplier(tt.race, tt.zone)
		require.NoError(t, err)
		assert.InDelta(t, tt.want, got, 1e-9, "%s Z%d", tt.race, tt.zone)
	}

	// harder bike, slower run
	for _, rt := range RaceTypes {
		prev := 0.0
		for z := 1; z <= 7; z++ {
			m, err := RunFatigueMultiplier(rt, z)
			require.NoError(t, err)
			assert.GreaterOrEqual(t, m, prev)
			prev = m
		}
	}

	_, err := RunFatigueMultiplier("ultra", 2)
	assert.Error(t, err)
	_, err = RunFatigueMultiplier(Sprint, 0)
	assert.Error(t, err)
}

func olympicInput() TriathlonInput {
	return TriathlonInput{
		SwimDistanceM: 1500,
		Swim:          TriathlonSwim{BaselineDistanceM: 400, BaselineTimeSeconds: 360},
		Bike: TriathlonBike{
			Profile:        testRider,
			FTPPercentage:  80,
			ElevationGainM: 400,
		},
		Run: TriathlonRun{BaseDistanceKm: 5, BaseTimeSeconds: 1200},
	}
}

func TestPredictTriathlon(t *testing.T) {
	pred, err := PredictTriathlon(olympicInput())
	require.NoError(t, err)

	assert.Equal(t, Olympic, pred.RaceType)
	assert.Equal(t, 90.0, pred.T1Seconds)
	assert.Equal(t, 60.0, pred.T2Seconds)
	assert.Equal(t, 3, pred.BikeZone)

	assert.Equal(t,
		pred.Swim.TimeSeconds+pred.T1Seconds+pred.Bike.TimeSeconds+pred.T2Seconds+pred.Run.TimeSeconds,
		pred.TotalTimeSeconds)

	// 400 m elevation over 40 km is one 1% segment
	require.Len(t, pred.BikeDetail.Segments, 1)
	assert.InDelta(t, 1.0, pred.BikeDetail.Segments[0].Segment.GradientPercent, 1e-9)
	assert.Equal(t, pred.BikeDetail.TotalTimeSeconds, pred.Bike.TimeSeconds)

	fresh := 1200 * math.Pow(2, RiegelExponent)
	assert.InDelta(t, fresh*1.07, pred.Run.TimeSeconds, 1e-6)
	assert.InDelta(t, 1350, pred.Swim.TimeSeconds, 1e-9)
}

func TestPredictTriathlonCompositeTotal(t *testing.T) {
	for _, swim := range []float64{750, 1500, 1900, 3800} {
		in := olympicInput()
		in.SwimDistanceM = swim
		in.Swim.Venue, in.Swim.Wetsuit = VenueLake, true
		in.Bike.Environment = Environment{WindSpeedMs: Float(3)}
		in.T1, in.T2 = "2:30", "1:15"

		pred, err := PredictTriathlon(in)
		require.NoError(t, err)
		assert.Equal(t, 150.0, pred.T1Seconds)
		assert.Equal(t, 75.0, pred.T2Seconds)
		assert.Equal(t,
			pred.Swim.TimeSeconds+pred.T1Seconds+pred.Bike.TimeSeconds+pred.T2Seconds+pred.Run.TimeSeconds,
			pred.TotalTimeSeconds, "%vm", swim)
	}
}

func TestPredictTriathlonHarderBikeSlowerRun(t *testing.T) {
	easy := olympicInput()
	easy.Bike.FTPPercentage = 70
	hard := olympicInput()
	hard.Bike.FTPPercentage = 95

	e, err := PredictTriathlon(easy)
	require.NoError(t, err)
	h, err := PredictTriathlon(hard)
	require.NoError(t, err)

	assert.Less(t, h.Bike.TimeSeconds, e.Bike.TimeSeconds)
	assert.Greater(t, h.Run.TimeSeconds, e.Run.TimeSeconds)
}

func TestPredictTriathlonTransitions(t *testing.T) {
	in := olympicInput()
	in.T1 = "1:75"
	_, err := PredictTriathlon(in)
	require.Error(t, err)
	assert.True(t, errors.Is(err, timefmt.ErrInvalidFormat))

	in = olympicInput()
	in.T2 = "abc"
	_, err = PredictTriathlon(in)
	assert.True(t, errors.Is(err, timefmt.ErrInvalidFormat))

	// hour groups too large for an int are rejected, never wrapped negative
	in = olympicInput()
	in.T1 = "9223372036854775807:00:00"
	_, err = PredictTriathlon(in)
	assert.True(t, errors.Is(err, timefmt.ErrInvalidFormat))

	in = olympicInput()
	in.T1 = "   "
	pred, err := PredictTriathlon(in)
	require.NoError(t, err)
	assert.Equal(t, 90.0, pred.T1Seconds)
}

func TestPredictTriathlonSegmentsSetBikeDistance(t *testing.T) {
	in := olympicInput()
	in.Bike.Segments = []RaceSegment{
		{DistanceKm: 20, GradientPercent: 1},
		{DistanceKm: 15.5, GradientPercent: -1},
	}
	pred, err := PredictTriathlon(in)
	require.NoError(t, err)
	assert.InDelta(t, 35.5, pred.Distances.BikeKm, 1e-9)
	assert.Equal(t, pred.BikeDetail.TotalDistanceKm, pred.Distances.BikeKm)
	require.Len(t, pred.BikeDetail.Segments, 2)

	// without segments the race table distance stands
	pred, err = PredictTriathlon(olympicInput())
	require.NoError(t, err)
	assert.Equal(t, 40.0, pred.Distances.BikeKm)
}

func TestPredictTriathlonRejectsMissingLegs(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*TriathlonInput)
	}{
		{"no swim distance", func(in *TriathlonInput) { in.SwimDistanceM = 0 }},
		{"no swim baseline", func(in *TriathlonInput) { in.Swim.BaselineTimeSeconds = 0 }},
		{"no FTP", func(in *TriathlonInput) { in.Bike.Profile.FTPWatts = 0 }},
		{"no FTP percentage", func(in *TriathlonInput) { in.Bike.FTPPercentage = 0 }},
		{"negative elevation", func(in *TriathlonInput) { in.Bike.ElevationGainM = -10 }},
		{"no run base", func(in *TriathlonInput) { in.Run.BaseTimeSeconds = 0 }},
		{"no run base distance", func(in *TriathlonInput) { in.Run.BaseDistanceKm = 0 }},
		{"unknown swell", func(in *TriathlonInput) { in.Swim.Swell = "huge" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := olympicInput()
			tt.mutate(&in)
			_, err := PredictTriathlon(in)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidInput), "got %v", err)
		})
	}
}
