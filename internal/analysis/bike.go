package analysis

import "math"

// Physical constants
const (
	Gravity            = 9.80665 // m/s²
	SeaLevelPressurePa = 101325.0
	DryAirGasConstant  = 287.05 // J/(kg·K)
	KelvinOffset       = 273.15
)

// Environment defaults applied when a field is nil
const (
	DefaultCdA          = 0.32
	DefaultCrr          = 0.004
	DefaultWindSpeedMs  = 0.0
	DefaultTemperatureC = 25.0
)

// Solver bounds. The bisection stops once the bracket is narrower than
// velocityResolution; a result within PowerTolerance counts as converged.
const (
	MinVelocityMs      = 0.5
	MaxVelocityMs      = 25.0
	PowerTolerance     = 0.5 // watts
	MaxIterations      = 60
	velocityResolution = 1e-6
	MaxGradientPercent = 25.0
	MaxWindSpeedMs     = 30.0
	MinTemperatureC    = -40.0
	MaxTemperatureC    = 55.0
)

// AthleteProfile holds the rider inputs of the force balance
type AthleteProfile struct {
	FTPWatts        float64 `json:"ftp_watts"`
	AthleteWeightKg float64 `json:"athlete_weight_kg"`
	BikeWeightKg    float64 `json:"bike_weight_kg"`
}

// TotalMassKg is rider plus bike
func (p AthleteProfile) TotalMassKg() float64 {
	return p.AthleteWeightKg + p.BikeWeightKg
}

// RaceSegment is one stretch of road at constant gradient.
// Gradient is a percentage and may be negative for descents.
type RaceSegment struct {
	DistanceKm      float64 `json:"distance_km"`
	GradientPercent float64 `json:"gradient_percent"`
}

// Environment holds optional conditions; nil fields take the defaults.
// Wind is signed along the direction of travel, headwind positive.
type Environment struct {
	WindSpeedMs  *float64 `json:"wind_speed_ms,omitempty"`
	TemperatureC *float64 `json:"temperature_c,omitempty"`
	CdA          *float64 `json:"cda,omitempty"`
	Crr          *float64 `json:"crr,omitempty"`
}

// Conditions is an Environment with every default resolved
type Conditions struct {
	WindSpeedMs  float64
	TemperatureC float64
	CdA          float64
	Crr          float64
}

// Resolve fills in defaults for missing fields
func (e Environment) Resolve() Conditions {
	return Conditions{
		WindSpeedMs:  valueOr(e.WindSpeedMs, DefaultWindSpeedMs),
		TemperatureC: valueOr(e.TemperatureC, DefaultTemperatureC),
		CdA:          valueOr(e.CdA, DefaultCdA),
		Crr:          valueOr(e.Crr, DefaultCrr),
	}
}

// Float returns a pointer to v, for filling Environment fields
func Float(v float64) *float64 {
	return &v
}

// AirDensity is the dry-air density in kg/m³ at sea-level pressure:
// rho = p / (R * T). Temperature feeds the force balance only through here.
func AirDensity(temperatureC float64) float64 {
	return SeaLevelPressurePa / (DryAirGasConstant * (temperatureC + KelvinOffset))
}

// SegmentResult is the solved steady state for one segment
type SegmentResult struct {
	Segment       RaceSegment `json:"segment"`
	VelocityMs    float64     `json:"velocity_ms"`
	TimeSeconds   float64     `json:"time_seconds"`
	ResidualWatts float64     `json:"residual_watts"`
	Iterations    int         `json:"iterations"`
	Converged     bool        `json:"converged"`
}

// SpeedKmh is the solved speed in km/h
func (r SegmentResult) SpeedKmh() float64 {
	return r.VelocityMs * 3.6
}

// forceModel holds the velocity-independent terms of the power balance
type forceModel struct {
	constantForce float64 // gravity + rolling resistance, N
	dragFactor    float64 // 0.5 * rho * CdA
	wind          float64
}

func newForceModel(profile AthleteProfile, gradientPercent float64, c Conditions) forceModel {
	theta := math.Atan(gradientPercent / 100)
	weight := profile.TotalMassKg() * Gravity
	return forceModel{
		constantForce: weight*math.Sin(theta) + weight*c.Crr*math.Cos(theta),
		dragFactor:    0.5 * AirDensity(c.TemperatureC) * c.CdA,
		wind:          c.WindSpeedMs,
	}
}

// power is the rider output needed to hold ground speed v
func (f forceModel) power(v float64) float64 {
	apparent := v + f.wind
	return v * (f.constantForce + f.dragFactor*apparent*math.Abs(apparent))
}

// PowerAtVelocity returns the power needed to hold velocity on a segment
func PowerAtVelocity(velocityMs float64, profile AthleteProfile, gradientPercent float64, env Environment) float64 {
	return newForceModel(profile, gradientPercent, env.Resolve()).power(velocityMs)
}

// SolveSegment finds the speed at which powerWatts balances the resistive
// forces on segment. Where the power is positive it rises strictly with
// speed, so bisection has a single root to find. If the target lies outside
// the velocity bracket, or the iteration cap is hit, the closest candidate
// is returned with Converged=false.
func SolveSegment(powerWatts float64, profile AthleteProfile, segment RaceSegment, env Environment) (SegmentResult, error) {
	conditions := env.Resolve()
	if err := validateSegmentInputs(powerWatts, profile, segment, conditions); err != nil {
		return SegmentResult{}, err
	}
	model := newForceModel(profile, segment.GradientPercent, conditions)
	return solveSegment(model, powerWatts, segment, MaxIterations), nil
}

func validateSegmentInputs(powerWatts float64, profile AthleteProfile, segment RaceSegment, c Conditions) error {
	if err := requirePositive("power", powerWatts); err != nil {
		return err
	}
	if err := validateProfile(profile); err != nil {
		return err
	}
	if err := validateConditions(c); err != nil {
		return err
	}
	return validateSegment(segment)
}

// validateConditions keeps the force balance inside the range the
// bisection bracket can resolve
func validateConditions(c Conditions) error {
	if err := requirePositive("CdA", c.CdA); err != nil {
		return err
	}
	if math.IsNaN(c.Crr) || c.Crr < 0 || c.Crr > 0.05 {
		return invalid("rolling resistance", "must be within 0-0.05, got %v", c.Crr)
	}
	if math.IsNaN(c.WindSpeedMs) || math.Abs(c.WindSpeedMs) > MaxWindSpeedMs {
		return invalid("wind speed", "must be within ±%.0f m/s, got %v", MaxWindSpeedMs, c.WindSpeedMs)
	}
	if math.IsNaN(c.TemperatureC) || c.TemperatureC < MinTemperatureC || c.TemperatureC > MaxTemperatureC {
		return invalid("temperature", "must be within %.0f to %.0f °C, got %v", MinTemperatureC, MaxTemperatureC, c.TemperatureC)
	}
	return nil
}

func validateProfile(profile AthleteProfile) error {
	if err := requirePositive("FTP", profile.FTPWatts); err != nil {
		return err
	}
	if err := requirePositive("athlete weight", profile.AthleteWeightKg); err != nil {
		return err
	}
	return requirePositive("bike weight", profile.BikeWeightKg)
}

func validateSegment(segment RaceSegment) error {
	if err := requirePositive("segment distance", segment.DistanceKm); err != nil {
		return err
	}
	if math.IsNaN(segment.GradientPercent) || math.Abs(segment.GradientPercent) > MaxGradientPercent {
		return invalid("gradient", "must be within ±%.0f%%, got %v", MaxGradientPercent, segment.GradientPercent)
	}
	return nil
}

func solveSegment(model forceModel, target float64, segment RaceSegment, maxIter int) SegmentResult {
	v, residual, iterations := bisectVelocity(model, target, maxIter)
	return SegmentResult{
		Segment:       segment,
		VelocityMs:    v,
		TimeSeconds:   segment.DistanceKm * 1000 / v,
		ResidualWatts: residual,
		Iterations:    iterations,
		Converged:     math.Abs(residual) <= PowerTolerance,
	}
}

// bisectVelocity returns the best velocity, its power residual and the
// number of halvings performed
func bisectVelocity(model forceModel, target float64, maxIter int) (float64, float64, int) {
	lo, hi := MinVelocityMs, MaxVelocityMs

	// Target outside the bracket: clamp to the nearer end
	if r := model.power(lo) - target; r >= 0 {
		return lo, r, 0
	}
	if r := model.power(hi) - target; r <= 0 {
		return hi, r, 0
	}

	best, bestResidual := lo, model.power(lo)-target
	iterations := 0
	for iterations < maxIter && hi-lo > velocityResolution {
		iterations++
		mid := (lo + hi) / 2
		r := model.power(mid) - target
		if math.Abs(r) < math.Abs(bestResidual) {
			best, bestResidual = mid, r
		}
		if r == 0 {
			break
		}
		if r < 0 {
			lo = mid
		} else {
			hi = mid
		}
	}
	return best, bestResidual, iterations
}

func valueOr(p *float64, def float64) float64 {
	if p == nil {
		return def
	}
	return *p
}
