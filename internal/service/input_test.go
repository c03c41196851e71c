package service

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"racecalc/internal/analysis"
	"racecalc/internal/timefmt"
)

func TestNormalizeLegDuration(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"25", "25:00"},
		{" 7 ", "7:00"},
		{"25:30", "25:30"},
		{"1:02:03", "1:02:03"},
		{"", ""},
		{"abc", "abc"},
		{"1.5", "1.5"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, NormalizeLegDuration(tt.in), "%q", tt.in)
	}
}

func TestParseLegDuration(t *testing.T) {
	secs, err := ParseLegDuration("20")
	require.NoError(t, err)
	assert.Equal(t, 1200.0, secs)

	secs, err = ParseLegDuration("1:30:00")
	require.NoError(t, err)
	assert.Equal(t, 5400.0, secs)

	_, err = ParseLegDuration("20:75")
	assert.True(t, errors.Is(err, timefmt.ErrInvalidFormat))
}

func TestParsePaceKeepsBareSeconds(t *testing.T) {
	secs, err := ParsePace("95")
	require.NoError(t, err)
	assert.Equal(t, 95.0, secs)

	secs, err = ParsePace("1:45")
	require.NoError(t, err)
	assert.Equal(t, 105.0, secs)
}

func TestCalculateZones(t *testing.T) {
	tests := []struct {
		name  string
		req   ZoneRequest
		count int
	}{
		{"swim", ZoneRequest{Sport: "swim", ThresholdPace: "1:40"}, 5},
		{"run", ZoneRequest{Sport: "Run", ThresholdPace: "4:30"}, 5},
		{"bike ftp", ZoneRequest{Sport: "bike", FTPWatts: 250}, 7},
		{"bike test", ZoneRequest{Sport: "bike", TestPowerWatts: 263, TestMinutes: 20}, 7},
		{"hr", ZoneRequest{Sport: "hr", MaxHR: 190, RestingHR: 60}, 5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			zones, err := CalculateZones(tt.req)
			require.NoError(t, err)
			assert.Len(t, zones, tt.count)
		})
	}

	fromTest, err := CalculateZones(ZoneRequest{Sport: "bike", TestPowerWatts: 300})
	require.NoError(t, err)
	direct, err := analysis.BikePowerZones(300 * 0.95)
	require.NoError(t, err)
	assert.Equal(t, direct[2].DisplayRange, fromTest[2].DisplayRange, "test minutes default to 20")
}

func TestCalculateZonesErrors(t *testing.T) {
	_, err := CalculateZones(ZoneRequest{Sport: "rowing"})
	assert.True(t, errors.Is(err, analysis.ErrInvalidInput))

	_, err = CalculateZones(ZoneRequest{Sport: "swim", ThresholdPace: "1:99"})
	assert.True(t, errors.Is(err, timefmt.ErrInvalidFormat))

	_, err = CalculateZones(ZoneRequest{Sport: "bike", TestPowerWatts: 250, TestMinutes: 30})
	assert.True(t, errors.Is(err, analysis.ErrInvalidInput))

	_, err = CalculateZones(ZoneRequest{Sport: "hr", MaxHR: 150, RestingHR: 160})
	assert.True(t, errors.Is(err, analysis.ErrInvalidInput))
}

func TestSegmentsFor(t *testing.T) {
	segs, err := segmentsFor(BikeRequest{DistanceKm: 20, ElevationGainM: 300})
	require.NoError(t, err)
	require.Len(t, segs, 1)
	assert.InDelta(t, 1.5, segs[0].GradientPercent, 1e-9)

	explicit := []analysis.RaceSegment{{DistanceKm: 5, GradientPercent: 2}}
	segs, err = segmentsFor(BikeRequest{Segments: explicit, DistanceKm: 99})
	require.NoError(t, err)
	assert.Equal(t, explicit, segs)

	_, err = segmentsFor(BikeRequest{})
	assert.True(t, errors.Is(err, analysis.ErrInvalidInput))
	_, err = segmentsFor(BikeRequest{DistanceKm: 10, ElevationGainM: -5})
	assert.True(t, errors.Is(err, analysis.ErrInvalidInput))
}

func TestParseSegments(t *testing.T) {
	segs, err := ParseSegments("10:0, 5:4.5,5:-4,2")
	require.NoError(t, err)
	assert.Equal(t, []analysis.RaceSegment{
		{DistanceKm: 10, GradientPercent: 0},
		{DistanceKm: 5, GradientPercent: 4.5},
		{DistanceKm: 5, GradientPercent: -4},
		{DistanceKm: 2, GradientPercent: 0},
	}, segs)

	for _, bad := range []string{"", " , ", "ten:1", "10:steep"} {
		_, err := ParseSegments(bad)
		assert.True(t, errors.Is(err, analysis.ErrInvalidInput), "%q", bad)
	}
}
