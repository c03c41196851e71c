package service

import (
	"fmt"
	"strconv"
	"strings"

	"racecalc/internal/analysis"
	"racecalc/internal/timefmt"
)

// NormalizeLegDuration turns a bare number typed for a leg duration into
// "<n>:00" so the codec does not read it as seconds. The codec reads two
// groups as M:SS, so "20" becomes 20 minutes, not 20 hours; hours need
// H:MM:SS ("2:00:00"). Anything else is returned trimmed and unchanged.
func NormalizeLegDuration(text string) string {
	t := strings.TrimSpace(text)
	if t == "" || strings.Contains(t, ":") {
		return t
	}
	for _, r := range t {
		if r < '0' || r > '9' {
			return t
		}
	}
	return t + ":00"
}

// ParseLegDuration parses leg duration text in seconds
func ParseLegDuration(text string) (float64, error) {
	secs, err := timefmt.Parse(NormalizeLegDuration(text))
	if err != nil {
		return 0, err
	}
	return float64(secs), nil
}

// ParsePace parses pace text ("1:45" per 100m, "4:30" per km) in seconds.
// Paces are never normalized: a bare number is seconds.
func ParsePace(text string) (float64, error) {
	secs, err := timefmt.Parse(text)
	if err != nil {
		return 0, err
	}
	return float64(secs), nil
}

// BikeRequest describes a bike race. Zero values fall back to the stored
// profile and config: FTPPercentage to bike.ftp_percentage, CdA/Crr to the
// configured bike, rider numbers to the athlete profile.
type BikeRequest struct {
	FTPPercentage  float64                `json:"ftp_percentage"`
	Segments       []analysis.RaceSegment `json:"segments,omitempty"`
	DistanceKm     float64                `json:"distance_km,omitempty"`
	ElevationGainM float64                `json:"elevation_gain_m,omitempty"`

	WindSpeedMs  *float64 `json:"wind_speed_ms,omitempty"`
	TemperatureC *float64 `json:"temperature_c,omitempty"`
	CdA          *float64 `json:"cda,omitempty"`
	Crr          *float64 `json:"crr,omitempty"`

	FTPWatts        float64 `json:"ftp_watts,omitempty"`
	AthleteWeightKg float64 `json:"athlete_weight_kg,omitempty"`
	BikeWeightKg    float64 `json:"bike_weight_kg,omitempty"`
}

// TriathlonRequest describes a full race with times as text. Empty
// baselines fall back to the latest field tests.
type TriathlonRequest struct {
	SwimDistanceM         float64 `json:"swim_distance_m"`
	SwimBaselineDistanceM float64 `json:"swim_baseline_distance_m,omitempty"`
	SwimBaselineTime      string  `json:"swim_baseline_time,omitempty"`
	Venue                 string  `json:"venue,omitempty"`
	Swell                 string  `json:"swell,omitempty"`
	Wetsuit               bool    `json:"wetsuit,omitempty"`

	Bike BikeRequest `json:"bike"`

	RunBaseDistanceKm float64 `json:"run_base_distance_km,omitempty"`
	RunBaseTime       string  `json:"run_base_time,omitempty"`
	RunDistanceKm     float64 `json:"run_distance_km,omitempty"`

	T1 string `json:"t1,omitempty"`
	T2 string `json:"t2,omitempty"`
}

// ZoneRequest asks for one zone table from explicit numbers.
// Sport is swim, bike, run or hr.
type ZoneRequest struct {
	Sport string `json:"sport"`
	// Threshold pace text for swim (per 100m) and run (per km)
	ThresholdPace string `json:"threshold_pace,omitempty"`
	// Bike: FTP directly, or a test power with its duration in minutes
	FTPWatts       float64 `json:"ftp_watts,omitempty"`
	TestPowerWatts float64 `json:"test_power_watts,omitempty"`
	TestMinutes    int     `json:"test_minutes,omitempty"`
	// Heart rate
	MaxHR     float64 `json:"max_hr,omitempty"`
	RestingHR float64 `json:"resting_hr,omitempty"`
}

// Zone sports
const (
	SportSwim = "swim"
	SportBike = "bike"
	SportRun  = "run"
	SportHR   = "hr"
)

// CalculateZones builds the table a ZoneRequest asks for
func CalculateZones(req ZoneRequest) ([]analysis.Zone, error) {
	switch strings.ToLower(strings.TrimSpace(req.Sport)) {
	case SportSwim:
		pace, err := ParsePace(req.ThresholdPace)
		if err != nil {
			return nil, err
		}
		return analysis.SwimPaceZones(pace)
	case SportRun:
		pace, err := ParsePace(req.ThresholdPace)
		if err != nil {
			return nil, err
		}
		return analysis.RunPaceZones(pace)
	case SportBike:
		if req.TestPowerWatts > 0 {
			minutes := req.TestMinutes
			if minutes == 0 {
				minutes = 20
			}
			test, err := analysis.FTPTestFromMinutes(minutes)
			if err != nil {
				return nil, err
			}
			return analysis.BikePowerZonesFromTest(req.TestPowerWatts, test)
		}
		return analysis.BikePowerZones(req.FTPWatts)
	case SportHR:
		return analysis.HeartRateZones(req.MaxHR, req.RestingHR)
	default:
		return nil, &analysis.ValidationError{
			Field:  "sport",
			Reason: "must be swim, bike, run or hr, got \"" + req.Sport + "\"",
		}
	}
}

// segmentsFor returns the explicit segments, or one average-gradient
// segment over the distance
func segmentsFor(req BikeRequest) ([]analysis.RaceSegment, error) {
	if len(req.Segments) > 0 {
		return req.Segments, nil
	}
	if !(req.DistanceKm > 0) {
		return nil, &analysis.ValidationError{Field: "distance", Reason: "segments or a positive distance are required"}
	}
	if req.ElevationGainM < 0 {
		return nil, &analysis.ValidationError{Field: "elevation gain", Reason: "must not be negative"}
	}
	gradient := req.ElevationGainM / (req.DistanceKm * MetersPerKm) * 100
	return []analysis.RaceSegment{{DistanceKm: req.DistanceKm, GradientPercent: gradient}}, nil
}

// ParseSegments reads a course as comma-separated "km:gradient" pairs,
// e.g. "10:0,5:4.5,5:-4". Range checks are left to the solver.
func ParseSegments(text string) ([]analysis.RaceSegment, error) {
	var segments []analysis.RaceSegment
	for i, part := range strings.Split(text, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		km, grade, ok := strings.Cut(part, ":")
		if !ok {
			grade = "0"
		}
		dist, err := strconv.ParseFloat(strings.TrimSpace(km), 64)
		if err != nil {
			return nil, &analysis.ValidationError{Field: "segments", Reason: fmt.Sprintf("segment %d: bad distance %q", i+1, km)}
		}
		g, err := strconv.ParseFloat(strings.TrimSpace(grade), 64)
		if err != nil {
			return nil, &analysis.ValidationError{Field: "segments", Reason: fmt.Sprintf("segment %d: bad gradient %q", i+1, grade)}
		}
		segments = append(segments, analysis.RaceSegment{DistanceKm: dist, GradientPercent: g})
	}
	if len(segments) == 0 {
		return nil, &analysis.ValidationError{Field: "segments", Reason: "no segments given"}
	}
	return segments, nil
}
