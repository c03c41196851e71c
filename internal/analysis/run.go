package analysis

import (
	"fmt"
	"math"
)

// RiegelExponent is the fatigue exponent of T2 = T1 * (D2/D1)^k
const RiegelExponent = 1.06

// Post-bike fatigue: a base by race distance plus a surcharge for how hard
// the bike was ridden (power-zone index)
var raceFatigueBase = map[RaceType]float64{
	Sprint:  1.03,
	Olympic: 1.05,
	Half:    1.08,
	Full:    1.12,
}

// bikeZoneSurcharge is indexed by power zone; zones past the end use the last
// entry. PredictTriathlon caps the bike at 100% FTP (Z4), so Z5+ is only
// reached by callers passing a zone directly.
var bikeZoneSurcharge = []float64{
	0,    // unused
	0,    // Z1
	0,    // Z2
	0.02, // Z3
	0.04, // Z4
	0.07, // Z5+
}

// RunInput is a recent run performance and the distance to project it to
type RunInput struct {
	BaseDistanceKm  float64 `json:"base_distance_km"`
	BaseTimeSeconds float64 `json:"base_time_seconds"`
	RaceDistanceKm  float64 `json:"race_distance_km"`
}

// PredictRiegel projects a time over fromKm to toKm. toKm == fromKm
// returns baseSeconds unchanged.
func PredictRiegel(baseSeconds, fromKm, toKm float64) (float64, error) {
	if err := requirePositive("base time", baseSeconds); err != nil {
		return 0, err
	}
	if err := requirePositive("base distance", fromKm); err != nil {
		return 0, err
	}
	if err := requirePositive("target distance", toKm); err != nil {
		return 0, err
	}
	return riegel(baseSeconds, fromKm, toKm), nil
}

func riegel(baseSeconds, fromKm, toKm float64) float64 {
	if fromKm == toKm {
		return baseSeconds
	}
	return baseSeconds * math.Pow(toKm/fromKm, RiegelExponent)
}

// RunFatigueMultiplier is the post-bike slowdown for a race type and the
// power zone the bike leg was ridden in
func RunFatigueMultiplier(raceType RaceType, bikeZone int) (float64, error) {
	base, ok := raceFatigueBase[raceType]
	if !ok {
		return 0, invalid("race type", "unknown race type %q", raceType)
	}
	if bikeZone < 1 {
		return 0, invalid("bike zone", "must be 1 or above, got %d", bikeZone)
	}
	idx := min(bikeZone, len(bikeZoneSurcharge)-1)
	return base + bikeZoneSurcharge[idx], nil
}

// PredictRun applies Riegel then the post-bike fatigue multiplier
func PredictRun(in RunInput, raceType RaceType, bikeZone int) (LegResult, error) {
	fresh, err := PredictRiegel(in.BaseTimeSeconds, in.BaseDistanceKm, in.RaceDistanceKm)
	if err != nil {
		return LegResult{}, err
	}
	multiplier, err := RunFatigueMultiplier(raceType, bikeZone)
	if err != nil {
		return LegResult{}, err
	}

	factors := []string{
		fmt.Sprintf("Riegel projection from %.1f km (exponent %.2f)", in.BaseDistanceKm, RiegelExponent),
		fmt.Sprintf("Post-bike fatigue after a Z%d ride (+%.0f%%)", bikeZone, math.Round((multiplier-1)*100)),
	}
	if in.RaceDistanceKm > in.BaseDistanceKm*4 {
		factors = append(factors, "Race is much longer than the base performance; projection is less reliable")
	}
	return LegResult{TimeSeconds: fresh * multiplier, Factors: factors}, nil
}
