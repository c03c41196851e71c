package analysis

import (
	"fmt"
	"math"
	"strings"
)

// Venue is where the swim leg takes place
type Venue string

const (
	VenuePool Venue = "pool"
	VenueLake Venue = "lake"
	VenueSea  Venue = "sea"
)

// Swell is the sea state of an open-water swim
type Swell string

const (
	SwellNone     Swell = "none"
	SwellLow      Swell = "low"
	SwellModerate Swell = "moderate"
	SwellHigh     Swell = "high"
)

// Swim time multipliers
const (
	openWaterFactor = 1.05
	seaFactor       = 0.98
	wetsuitFactor   = 0.95
)

var swellFactors = map[Swell]float64{
	SwellNone:     1.0,
	SwellLow:      1.02,
	SwellModerate: 1.05,
	SwellHigh:     1.10,
}

// SwimInput describes a baseline swim and the race conditions to scale it to
type SwimInput struct {
	BaselineDistanceM   float64 `json:"baseline_distance_m"`
	BaselineTimeSeconds float64 `json:"baseline_time_seconds"`
	RaceDistanceM       float64 `json:"race_distance_m"`
	Venue               Venue   `json:"venue,omitempty"`
	Swell               Swell   `json:"swell,omitempty"`
	Wetsuit             bool    `json:"wetsuit,omitempty"`
}

// LegResult is the time for one leg and the factors that shaped it
type LegResult struct {
	TimeSeconds float64  `json:"time_seconds"`
	Factors     []string `json:"factors"`
}

// ParseVenue accepts pool, lake or sea; empty means pool
func ParseVenue(s string) (Venue, error) {
	switch v := Venue(s); v {
	case "":
		return VenuePool, nil
	case VenuePool, VenueLake, VenueSea:
		return v, nil
	}
	return "", invalid("venue", "must be pool, lake or sea, got %q", s)
}

// ParseSwell accepts none, low, moderate or high; empty means none
func ParseSwell(s string) (Swell, error) {
	if s == "" {
		return SwellNone, nil
	}
	if _, ok := swellFactors[Swell(s)]; !ok {
		return "", invalid("swell", "must be none, low, moderate or high, got %q", s)
	}
	return Swell(s), nil
}

// PredictSwim scales the baseline linearly to race distance, then applies
// the venue, swell and wetsuit multipliers
func PredictSwim(in SwimInput) (LegResult, error) {
	if err := requirePositive("swim baseline distance", in.BaselineDistanceM); err != nil {
		return LegResult{}, err
	}
	if err := requirePositive("swim baseline time", in.BaselineTimeSeconds); err != nil {
		return LegResult{}, err
	}
	if err := requirePositive("swim race distance", in.RaceDistanceM); err != nil {
		return LegResult{}, err
	}
	venue, err := ParseVenue(string(in.Venue))
	if err != nil {
		return LegResult{}, err
	}
	swell, err := ParseSwell(string(in.Swell))
	if err != nil {
		return LegResult{}, err
	}

	pacePer100 := in.BaselineTimeSeconds / in.BaselineDistanceM * 100
	t := pacePer100 * in.RaceDistanceM / 100
	var factors []string

	openWater := venue != VenuePool
	if openWater {
		t *= openWaterFactor
		factors = append(factors, fmt.Sprintf("Open water (%s): sighting and no walls (+%.0f%%)", venue, pct(openWaterFactor)))
	}
	if venue == VenueSea {
		t *= seaFactor
		factors = append(factors, fmt.Sprintf("Salt water buoyancy (-%.0f%%)", -pct(seaFactor)))
	}
	if openWater && swell != SwellNone {
		f := swellFactors[swell]
		t *= f
		factors = append(factors, fmt.Sprintf("%s swell (+%.0f%%)", capitalize(string(swell)), pct(f)))
	}
	if in.Wetsuit {
		t *= wetsuitFactor
		factors = append(factors, fmt.Sprintf("Wetsuit (-%.0f%%)", -pct(wetsuitFactor)))
	}

	return LegResult{TimeSeconds: t, Factors: factors}, nil
}

// pct turns a multiplier into a signed percentage change
func pct(factor float64) float64 {
	return math.Round((factor - 1) * 100)
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
