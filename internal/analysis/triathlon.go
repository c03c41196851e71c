package analysis

import (
	"fmt"
	"strings"

	"racecalc/internal/timefmt"
)

// RaceType is a triathlon distance category
type RaceType string

const (
	Sprint  RaceType = "sprint"
	Olympic RaceType = "olympic"
	Half    RaceType = "half"
	Full    RaceType = "full"
)

// RaceDistances is the canonical course and default transitions of a race type
type RaceDistances struct {
	SwimMeters float64 `json:"swim_meters"`
	BikeKm     float64 `json:"bike_km"`
	RunKm      float64 `json:"run_km"`
	T1Seconds  int     `json:"t1_seconds"`
	T2Seconds  int     `json:"t2_seconds"`
}

// RaceTypes lists the race types from shortest to longest
var RaceTypes = []RaceType{Sprint, Olympic, Half, Full}

var raceDistances = map[RaceType]RaceDistances{
	Sprint:  {SwimMeters: 750, BikeKm: 20, RunKm: 5, T1Seconds: 60, T2Seconds: 45},
	Olympic: {SwimMeters: 1500, BikeKm: 40, RunKm: 10, T1Seconds: 90, T2Seconds: 60},
	Half:    {SwimMeters: 1900, BikeKm: 90, RunKm: 21.1, T1Seconds: 120, T2Seconds: 90},
	Full:    {SwimMeters: 3800, BikeKm: 180, RunKm: 42.2, T1Seconds: 180, T2Seconds: 120},
}

// swimBreakpoints classifies by selected swim distance; the first row
// whose MaxSwimMeters is not exceeded wins, the last row catches the rest
var swimBreakpoints = []struct {
	MaxSwimMeters float64
	Type          RaceType
}{
	{750, Sprint},
	{1500, Olympic},
	{1900, Half},
}

func (r RaceType) String() string { return string(r) }

// ParseRaceType accepts a race type name, case-insensitively
func ParseRaceType(s string) (RaceType, error) {
	rt := RaceType(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := raceDistances[rt]; !ok {
		return "", invalid("race type", "must be sprint, olympic, half or full, got %q", s)
	}
	return rt, nil
}

// ClassifyRace derives the race type from the swim distance alone
func ClassifyRace(swimMeters float64) (RaceType, error) {
	if err := requirePositive("swim distance", swimMeters); err != nil {
		return "", err
	}
	for _, bp := range swimBreakpoints {
		if swimMeters <= bp.MaxSwimMeters {
			return bp.Type, nil
		}
	}
	return Full, nil
}

// RaceDistancesFor returns the canonical distances of a race type
func RaceDistancesFor(rt RaceType) (RaceDistances, error) {
	d, ok := raceDistances[rt]
	if !ok {
		return RaceDistances{}, invalid("race type", "unknown race type %q", rt)
	}
	return d, nil
}

// TriathlonSwim is the swim baseline and conditions
type TriathlonSwim struct {
	BaselineDistanceM   float64 `json:"baseline_distance_m"`
	BaselineTimeSeconds float64 `json:"baseline_time_seconds"`
	Venue               Venue   `json:"venue,omitempty"`
	Swell               Swell   `json:"swell,omitempty"`
	Wetsuit             bool    `json:"wetsuit,omitempty"`
}

// TriathlonBike is the bike leg setup. DistanceKm 0 means the race type's
// distance; ElevationGainM becomes one average-gradient segment unless
// Segments is set.
type TriathlonBike struct {
	Profile        AthleteProfile `json:"profile"`
	FTPPercentage  float64        `json:"ftp_percentage"`
	DistanceKm     float64        `json:"distance_km,omitempty"`
	ElevationGainM float64        `json:"elevation_gain_m,omitempty"`
	Segments       []RaceSegment  `json:"segments,omitempty"`
	Environment    Environment    `json:"environment"`
}

// TriathlonRun is the recent run performance. DistanceKm 0 means the race
// type's distance.
type TriathlonRun struct {
	BaseDistanceKm  float64 `json:"base_distance_km"`
	BaseTimeSeconds float64 `json:"base_time_seconds"`
	DistanceKm      float64 `json:"distance_km,omitempty"`
}

// TriathlonInput is everything needed for a full-race forecast. The race
// type is chosen from SwimDistanceM. T1/T2 are time text; empty takes the
// race-type default.
type TriathlonInput struct {
	SwimDistanceM float64       `json:"swim_distance_m"`
	Swim          TriathlonSwim `json:"swim"`
	Bike          TriathlonBike `json:"bike"`
	Run           TriathlonRun  `json:"run"`
	T1            string        `json:"t1,omitempty"`
	T2            string        `json:"t2,omitempty"`
}

// TriathlonPrediction is the finishing-time breakdown
type TriathlonPrediction struct {
	RaceType         RaceType       `json:"race_type"`
	Distances        RaceDistances  `json:"distances"`
	Swim             LegResult      `json:"swim"`
	Bike             LegResult      `json:"bike"`
	Run              LegResult      `json:"run"`
	BikeDetail       BikePrediction `json:"bike_detail"`
	BikeZone         int            `json:"bike_zone"`
	T1Seconds        float64        `json:"t1_seconds"`
	T2Seconds        float64        `json:"t2_seconds"`
	TotalTimeSeconds float64        `json:"total_time_seconds"`
}

// PredictTriathlon chains swim, T1, bike, T2 and run. The bike intensity
// feeds the run fatigue term. Transition text and every leg input are
// checked before any leg is computed.
func PredictTriathlon(in TriathlonInput) (TriathlonPrediction, error) {
	raceType, err := ClassifyRace(in.SwimDistanceM)
	if err != nil {
		return TriathlonPrediction{}, err
	}
	dist := raceDistances[raceType]
	dist.SwimMeters = in.SwimDistanceM

	t1, err := transitionSeconds(in.T1, dist.T1Seconds)
	if err != nil {
		return TriathlonPrediction{}, fmt.Errorf("T1: %w", err)
	}
	t2, err := transitionSeconds(in.T2, dist.T2Seconds)
	if err != nil {
		return TriathlonPrediction{}, fmt.Errorf("T2: %w", err)
	}

	if in.Bike.DistanceKm != 0 {
		dist.BikeKm = in.Bike.DistanceKm
	}
	if in.Run.DistanceKm != 0 {
		dist.RunKm = in.Run.DistanceKm
	}

	segments, err := bikeSegments(in.Bike, dist.BikeKm)
	if err != nil {
		return TriathlonPrediction{}, err
	}
	swimIn := SwimInput{
		BaselineDistanceM:   in.Swim.BaselineDistanceM,
		BaselineTimeSeconds: in.Swim.BaselineTimeSeconds,
		RaceDistanceM:       dist.SwimMeters,
		Venue:               in.Swim.Venue,
		Swell:               in.Swim.Swell,
		Wetsuit:             in.Swim.Wetsuit,
	}
	runIn := RunInput{
		BaseDistanceKm:  in.Run.BaseDistanceKm,
		BaseTimeSeconds: in.Run.BaseTimeSeconds,
		RaceDistanceKm:  dist.RunKm,
	}
	if err := validateTriathlon(swimIn, in.Bike, segments, runIn); err != nil {
		return TriathlonPrediction{}, err
	}

	swim, err := PredictSwim(swimIn)
	if err != nil {
		return TriathlonPrediction{}, fmt.Errorf("swim: %w", err)
	}
	bike, err := PredictBikeRace(in.Bike.Profile, in.Bike.FTPPercentage, segments, in.Bike.Environment)
	if err != nil {
		return TriathlonPrediction{}, fmt.Errorf("bike: %w", err)
	}
	// report the course actually ridden when segments replace the table distance
	dist.BikeKm = bike.TotalDistanceKm
	bikeZone := BikeIntensityZone(in.Bike.FTPPercentage)
	run, err := PredictRun(runIn, raceType, bikeZone)
	if err != nil {
		return TriathlonPrediction{}, fmt.Errorf("run: %w", err)
	}

	pred := TriathlonPrediction{
		RaceType:   raceType,
		Distances:  dist,
		Swim:       swim,
		Bike:       LegResult{TimeSeconds: bike.TotalTimeSeconds, Factors: bike.Factors},
		Run:        run,
		BikeDetail: bike,
		BikeZone:   bikeZone,
		T1Seconds:  float64(t1),
		T2Seconds:  float64(t2),
	}
	pred.TotalTimeSeconds = pred.Swim.TimeSeconds + pred.T1Seconds + pred.Bike.TimeSeconds + pred.T2Seconds + pred.Run.TimeSeconds
	return pred, nil
}

// transitionSeconds parses transition text; only empty text takes the default
func transitionSeconds(text string, def int) (int, error) {
	if strings.TrimSpace(text) == "" {
		return def, nil
	}
	return timefmt.Parse(text)
}

func bikeSegments(bike TriathlonBike, distanceKm float64) ([]RaceSegment, error) {
	if len(bike.Segments) > 0 {
		return bike.Segments, nil
	}
	if err := requirePositive("bike distance", distanceKm); err != nil {
		return nil, err
	}
	if bike.ElevationGainM < 0 {
		return nil, invalid("elevation gain", "must not be negative, got %v", bike.ElevationGainM)
	}
	gradient := bike.ElevationGainM / (distanceKm * 1000) * 100
	return []RaceSegment{{DistanceKm: distanceKm, GradientPercent: gradient}}, nil
}

// validateTriathlon checks every leg up front so no leg is computed when a
// later one would fail
func validateTriathlon(swim SwimInput, bike TriathlonBike, segments []RaceSegment, run RunInput) error {
	if err := requirePositive("swim baseline distance", swim.BaselineDistanceM); err != nil {
		return err
	}
	if err := requirePositive("swim baseline time", swim.BaselineTimeSeconds); err != nil {
		return err
	}
	if _, err := ParseVenue(string(swim.Venue)); err != nil {
		return err
	}
	if _, err := ParseSwell(string(swim.Swell)); err != nil {
		return err
	}
	if err := validateBikeRace(bike.Profile, bike.FTPPercentage, segments, bike.Environment.Resolve()); err != nil {
		return err
	}
	if err := requirePositive("run base distance", run.BaseDistanceKm); err != nil {
		return err
	}
	if err := requirePositive("run base time", run.BaseTimeSeconds); err != nil {
		return err
	}
	return requirePositive("run distance", run.RaceDistanceKm)
}
