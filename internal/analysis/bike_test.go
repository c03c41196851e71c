package analysis

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testRider = AthleteProfile{FTPWatts: 250, AthleteWeightKg: 70, BikeWeightKg: 9}

func TestSolveSegmentFlat200W(t *testing.T) {
	env := Environment{WindSpeedMs: Float(0), CdA: Float(0.32)}
	seg := RaceSegment{DistanceKm: 40}

	res, err := SolveSegment(TargetPower(testRider.FTPWatts, 80), testRider, seg, env)
	require.NoError(t, err)

	assert.True(t, res.Converged)
	assert.LessOrEqual(t, math.Abs(res.ResidualWatts), PowerTolerance)
	got := PowerAtVelocity(res.VelocityMs, testRider, 0, env)
	assert.InDelta(t, 200, got, PowerTolerance)
	assert.InDelta(t, 40000/res.VelocityMs, res.TimeSeconds, 1e-9)

	// Roughly 34-36 km/h for 200 W on the flat
	assert.Greater(t, res.SpeedKmh(), 33.0)
	assert.Less(t, res.SpeedKmh(), 37.0)
}

func TestSolveSegmentTimeRisesWithGradient(t *testing.T) {
	prev := 0.0
	for g := -10.0; g <= 15.0; g += 0.5 {
		res, err := SolveSegment(200, testRider, RaceSegment{DistanceKm: 10, GradientPercent: g}, Environment{})
		require.NoError(t, err)
		assert.True(t, res.Converged, "gradient %v", g)
		assert.GreaterOrEqual(t, res.TimeSeconds, prev, "gradient %v", g)
		prev = res.TimeSeconds
	}
}

func TestSolveSegmentHeadwindSlows(t *testing.T) {
	seg := RaceSegment{DistanceKm: 20}
	calm, err := SolveSegment(200, testRider, seg, Environment{})
	require.NoError(t, err)
	head, err := SolveSegment(200, testRider, seg, Environment{WindSpeedMs: Float(5)})
	require.NoError(t, err)
	tail, err := SolveSegment(200, testRider, seg, Environment{WindSpeedMs: Float(-5)})
	require.NoError(t, err)

	assert.Greater(t, head.TimeSeconds, calm.TimeSeconds)
	assert.Less(t, tail.TimeSeconds, calm.TimeSeconds)
}

func TestAirDensity(t *testing.T) {
	assert.InDelta(t, 1.225, AirDensity(15), 0.001)
	assert.Greater(t, AirDensity(0), AirDensity(35))

	seg := RaceSegment{DistanceKm: 20}
	cold, err := SolveSegment(200, testRider, seg, Environment{TemperatureC: Float(0)})
	require.NoError(t, err)
	hot, err := SolveSegment(200, testRider, seg, Environment{TemperatureC: Float(35)})
	require.NoError(t, err)
	assert.Less(t, hot.TimeSeconds, cold.TimeSeconds)
}

func TestSolveSegmentFallbackIsBounded(t *testing.T) {
	seg := RaceSegment{DistanceKm: 40}
	model := newForceModel(testRider, 0, Environment{}.Resolve())
	target := 200.0

	res := solveSegment(model, target, seg, 3)

	assert.False(t, res.Converged)
	assert.Equal(t, 3, res.Iterations)
	assert.GreaterOrEqual(t, res.VelocityMs, MinVelocityMs)
	assert.LessOrEqual(t, res.VelocityMs, MaxVelocityMs)
	assert.InDelta(t, model.power(res.VelocityMs)-target, res.ResidualWatts, 1e-9)
	// The best candidate beats both ends of the bracket
	assert.Less(t, math.Abs(res.ResidualWatts), math.Abs(model.power(MinVelocityMs)-target))
	assert.Less(t, math.Abs(res.ResidualWatts), math.Abs(model.power(MaxVelocityMs)-target))

	full := solveSegment(model, target, seg, MaxIterations)
	assert.True(t, full.Converged)
	assert.LessOrEqual(t, full.Iterations, MaxIterations)
}

func TestSolveSegmentOutsideBracket(t *testing.T) {
	res, err := SolveSegment(5000, testRider, RaceSegment{DistanceKm: 1}, Environment{})
	require.NoError(t, err)
	assert.False(t, res.Converged)
	assert.Equal(t, MaxVelocityMs, res.VelocityMs)
	assert.Less(t, res.ResidualWatts, 0.0)
}

func TestSolveSegmentValidation(t *testing.T) {
	tests := []struct {
		name    string
		power   float64
		profile AthleteProfile
		seg     RaceSegment
		env     Environment
	}{
		{"zero power", 0, testRider, RaceSegment{DistanceKm: 1}, Environment{}},
		{"zero weight", 200, AthleteProfile{FTPWatts: 250, BikeWeightKg: 9}, RaceSegment{DistanceKm: 1}, Environment{}},
		{"zero distance", 200, testRider, RaceSegment{}, Environment{}},
		{"gradient too steep", 200, testRider, RaceSegment{DistanceKm: 1, GradientPercent: 30}, Environment{}},
		{"negative CdA", 200, testRider, RaceSegment{DistanceKm: 1}, Environment{CdA: Float(-0.3)}},
		{"gale", 200, testRider, RaceSegment{DistanceKm: 1}, Environment{WindSpeedMs: Float(40)}},
		{"NaN temperature", 200, testRider, RaceSegment{DistanceKm: 1}, Environment{TemperatureC: Float(math.NaN())}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := SolveSegment(tt.power, tt.profile, tt.seg, tt.env)
			assert.True(t, errors.Is(err, ErrInvalidInput), "got %v", err)
		})
	}
}

func TestPredictBikeRace(t *testing.T) {
	segments := []RaceSegment{
		{DistanceKm: 10, GradientPercent: 0},
		{DistanceKm: 5, GradientPercent: 4},
		{DistanceKm: 5, GradientPercent: -4},
	}
	pred, err := PredictBikeRace(testRider, 80, segments, Environment{})
	require.NoError(t, err)

	assert.Equal(t, 200.0, pred.TargetPowerWatts)
	assert.Equal(t, 20.0, pred.TotalDistanceKm)
	assert.InDelta(t, 200, pred.ElevationGainM, 1e-9)
	require.Len(t, pred.Segments, 3)
	assert.True(t, pred.Converged())

	sum := 0.0
	for _, s := range pred.SegmentTimes() {
		sum += s
	}
	assert.Equal(t, sum, pred.TotalTimeSeconds)
	assert.InDelta(t, 20/(pred.TotalTimeSeconds/3600), pred.AverageSpeedKmh, 1e-9)
	// the climb costs more than the descent gives back
	assert.Greater(t, pred.Segments[1].TimeSeconds, pred.Segments[2].TimeSeconds)
}

func TestPredictBikeRaceMonotonicInFTPPercentage(t *testing.T) {
	segments := []RaceSegment{{DistanceKm: 40, GradientPercent: 1}}
	prevPower, prevTime := 0.0, math.Inf(1)
	for pct := 50.0; pct <= 100; pct += 5 {
		pred, err := PredictBikeRace(testRider, pct, segments, Environment{})
		require.NoError(t, err)
		assert.GreaterOrEqual(t, pred.TargetPowerWatts, prevPower)
		assert.LessOrEqual(t, pred.TotalTimeSeconds, prevTime)
		prevPower, prevTime = pred.TargetPowerWatts, pred.TotalTimeSeconds
	}
}

func TestPredictBikeRaceFactors(t *testing.T) {
	hilly := []RaceSegment{{DistanceKm: 10, GradientPercent: 7}}
	env := Environment{WindSpeedMs: Float(6), TemperatureC: Float(32), CdA: Float(0.22)}

	pred, err := PredictBikeRace(testRider, 95, hilly, env)
	require.NoError(t, err)
	assert.Len(t, pred.Factors, 6)
	assert.Contains(t, pred.Factors[0], "Significant climbing")
	assert.Contains(t, pred.Factors[1], "Steep sections")
	assert.Contains(t, pred.Factors[2], "Strong headwind")
	assert.Contains(t, pred.Factors[3], "High intensity")
	assert.Contains(t, pred.Factors[4], "Hot conditions")
	assert.Contains(t, pred.Factors[5], "Aero position")

	flat, err := PredictBikeRace(testRider, 75, []RaceSegment{{DistanceKm: 40}}, Environment{})
	require.NoError(t, err)
	assert.Empty(t, flat.Factors)

	descent, err := PredictBikeRace(testRider, 60, []RaceSegment{{DistanceKm: 10, GradientPercent: -3}}, Environment{WindSpeedMs: Float(-3), CdA: Float(0.45)})
	require.NoError(t, err)
	assert.Equal(t, []string{
		"Net descent (-3.0% average gradient)",
		"Tailwind (3.0 m/s)",
		"Conservative pacing (60% FTP)",
		"Upright position (CdA 0.45)",
	}, descent.Factors)
}

func TestPredictBikeRaceValidation(t *testing.T) {
	seg := []RaceSegment{{DistanceKm: 40}}
	tests := []struct {
		name     string
		profile  AthleteProfile
		pct      float64
		segments []RaceSegment
	}{
		{"zero percentage", testRider, 0, seg},
		{"over 100 percent", testRider, 100.5, seg},
		{"no segments", testRider, 80, nil},
		{"zero bike weight", AthleteProfile{FTPWatts: 250, AthleteWeightKg: 70}, 80, seg},
		{"zero FTP", AthleteProfile{AthleteWeightKg: 70, BikeWeightKg: 9}, 80, seg},
		{"zero distance segment", testRider, 80, []RaceSegment{{DistanceKm: 10}, {DistanceKm: 0}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := PredictBikeRace(tt.profile, tt.pct, tt.segments, Environment{})
			var ve *ValidationError
			assert.True(t, errors.As(err, &ve), "got %v", err)
		})
	}

	pred, err := PredictBikeRace(testRider, 100, seg, Environment{})
	require.NoError(t, err)
	assert.Equal(t, 250.0, pred.TargetPowerWatts)
}
