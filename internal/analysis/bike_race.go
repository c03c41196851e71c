package analysis

import (
	"fmt"
	"math"
)

// Factor thresholds. Factors only describe a prediction; they never feed
// back into the numbers.
const (
	climbingGradientPercent = 3.0
	steepGradientPercent    = 6.0
	descentGradientPercent  = -2.0
	strongHeadwindMs        = 5.0
	moderateHeadwindMs      = 2.0
	tailwindMs              = -2.0
	highIntensityPercent    = 90.0
	lowIntensityPercent     = 65.0
	hotTemperatureC         = 30.0
	coldTemperatureC        = 5.0
	aeroCdA                 = 0.25
	uprightCdA              = 0.40
)

// BikePrediction is the result of a constant-power bike race forecast
type BikePrediction struct {
	TotalTimeSeconds float64         `json:"total_time_seconds"`
	TargetPowerWatts float64         `json:"target_power_watts"`
	FTPPercentage    float64         `json:"ftp_percentage"`
	TotalDistanceKm  float64         `json:"total_distance_km"`
	ElevationGainM   float64         `json:"elevation_gain_m"`
	AverageSpeedKmh  float64         `json:"average_speed_kmh"`
	Segments         []SegmentResult `json:"segments"`
	Factors          []string        `json:"factors"`
}

// SegmentTimes returns the per-segment times in race order
func (p BikePrediction) SegmentTimes() []float64 {
	times := make([]float64, len(p.Segments))
	for i, s := range p.Segments {
		times[i] = s.TimeSeconds
	}
	return times
}

// Converged reports whether every segment met the power tolerance
func (p BikePrediction) Converged() bool {
	for _, s := range p.Segments {
		if !s.Converged {
			return false
		}
	}
	return true
}

// TargetPower is the constant race power for an FTP percentage
func TargetPower(ftpWatts, ftpPercentage float64) float64 {
	return ftpWatts * ftpPercentage / 100
}

// PredictBikeRace rides every segment at the same power (FTP * pct / 100)
// and sums the segment times. All inputs are validated before any segment
// is solved.
func PredictBikeRace(profile AthleteProfile, ftpPercentage float64, segments []RaceSegment, env Environment) (BikePrediction, error) {
	conditions := env.Resolve()
	if err := validateBikeRace(profile, ftpPercentage, segments, conditions); err != nil {
		return BikePrediction{}, err
	}

	power := TargetPower(profile.FTPWatts, ftpPercentage)
	pred := BikePrediction{
		TargetPowerWatts: power,
		FTPPercentage:    ftpPercentage,
		Segments:         make([]SegmentResult, 0, len(segments)),
	}

	for _, seg := range segments {
		model := newForceModel(profile, seg.GradientPercent, conditions)
		result := solveSegment(model, power, seg, MaxIterations)
		pred.Segments = append(pred.Segments, result)
		pred.TotalTimeSeconds += result.TimeSeconds
		pred.TotalDistanceKm += seg.DistanceKm
		if seg.GradientPercent > 0 {
			pred.ElevationGainM += seg.DistanceKm * 1000 * seg.GradientPercent / 100
		}
	}

	pred.AverageSpeedKmh = pred.TotalDistanceKm / (pred.TotalTimeSeconds / 3600)
	pred.Factors = bikeFactors(ftpPercentage, segments, pred.TotalDistanceKm, conditions)
	return pred, nil
}

func validateBikeRace(profile AthleteProfile, ftpPercentage float64, segments []RaceSegment, c Conditions) error {
	if err := validateProfile(profile); err != nil {
		return err
	}
	if math.IsNaN(ftpPercentage) || ftpPercentage <= 0 || ftpPercentage > 100 {
		return invalid("FTP percentage", "must be within (0, 100], got %v", ftpPercentage)
	}
	if len(segments) == 0 {
		return invalid("segments", "at least one segment is required")
	}
	if err := validateConditions(c); err != nil {
		return err
	}

	total := 0.0
	for i, seg := range segments {
		if err := validateSegment(seg); err != nil {
			return fmt.Errorf("segment %d: %w", i+1, err)
		}
		total += seg.DistanceKm
	}
	return requirePositive("total distance", total)
}

func bikeFactors(ftpPercentage float64, segments []RaceSegment, totalKm float64, c Conditions) []string {
	var factors []string

	var weightedClimb, weightedGradient float64
	steep := false
	for _, seg := range segments {
		weightedGradient += seg.GradientPercent * seg.DistanceKm
		if seg.GradientPercent > 0 {
			weightedClimb += seg.GradientPercent * seg.DistanceKm
		}
		if seg.GradientPercent > steepGradientPercent {
			steep = true
		}
	}
	avgClimb := weightedClimb / totalKm
	avgGradient := weightedGradient / totalKm

	switch {
	case avgClimb > climbingGradientPercent:
		factors = append(factors, fmt.Sprintf("Significant climbing (%.1f%% average on the climbs)", avgClimb))
	case avgGradient < descentGradientPercent:
		factors = append(factors, fmt.Sprintf("Net descent (%.1f%% average gradient)", avgGradient))
	}
	if steep {
		factors = append(factors, fmt.Sprintf("Steep sections above %.0f%%", steepGradientPercent))
	}

	switch {
	case c.WindSpeedMs >= strongHeadwindMs:
		factors = append(factors, fmt.Sprintf("Strong headwind (%.1f m/s)", c.WindSpeedMs))
	case c.WindSpeedMs >= moderateHeadwindMs:
		factors = append(factors, fmt.Sprintf("Moderate headwind (%.1f m/s)", c.WindSpeedMs))
	case c.WindSpeedMs <= tailwindMs:
		factors = append(factors, fmt.Sprintf("Tailwind (%.1f m/s)", -c.WindSpeedMs))
	}

	switch {
	case ftpPercentage > highIntensityPercent:
		factors = append(factors, fmt.Sprintf("High intensity (%.0f%% FTP) may be hard to sustain", ftpPercentage))
	case ftpPercentage < lowIntensityPercent:
		factors = append(factors, fmt.Sprintf("Conservative pacing (%.0f%% FTP)", ftpPercentage))
	}

	switch {
	case c.TemperatureC > hotTemperatureC:
		factors = append(factors, fmt.Sprintf("Hot conditions (%.0f°C)", c.TemperatureC))
	case c.TemperatureC < coldTemperatureC:
		factors = append(factors, fmt.Sprintf("Cold conditions (%.0f°C)", c.TemperatureC))
	}

	switch {
	case c.CdA < aeroCdA:
		factors = append(factors, fmt.Sprintf("Aero position (CdA %.2f)", c.CdA))
	case c.CdA > uprightCdA:
		factors = append(factors, fmt.Sprintf("Upright position (CdA %.2f)", c.CdA))
	}

	return factors
}
