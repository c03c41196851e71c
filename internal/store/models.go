package store

import (
	"encoding/json"
	"time"
)

// Auth represents OAuth tokens for Strava API access
type Auth struct {
	AthleteID    int64     `db:"athlete_id"`
	AccessToken  string    `db:"access_token"`
	RefreshToken string    `db:"refresh_token"`
	ExpiresAt    time.Time `db:"expires_at"`
	Scope        string    `db:"scope"` // comma-separated, as granted at login
}

// Profile is the stored athlete profile. Zero means "not known".
type Profile struct {
	FTPWatts            float64   `db:"ftp_watts" json:"ftp_watts"`
	AthleteWeightKg     float64   `db:"athlete_weight_kg" json:"athlete_weight_kg"`
	BikeWeightKg        float64   `db:"bike_weight_kg" json:"bike_weight_kg"`
	MaxHR               float64   `db:"max_hr" json:"max_hr"`
	RestingHR           float64   `db:"resting_hr" json:"resting_hr"`
	SwimCSSSeconds      float64   `db:"swim_css_seconds" json:"swim_css_seconds"`           // per 100m
	RunThresholdSeconds float64   `db:"run_threshold_seconds" json:"run_threshold_seconds"` // per km
	Source              string    `db:"source" json:"source"`
	UpdatedAt           time.Time `db:"updated_at" json:"updated_at"`
}

// FieldTestKind identifies what a field test measured
type FieldTestKind string

const (
	KindFTP20Min       FieldTestKind = "ftp_20min"       // Value: average watts
	KindFTP60Min       FieldTestKind = "ftp_60min"       // Value: average watts
	KindSwimCSS        FieldTestKind = "swim_css"        // Value: seconds per 100m
	KindRunThreshold   FieldTestKind = "run_threshold"   // Value: seconds per km
	KindRunPerformance FieldTestKind = "run_performance" // Value: seconds over DistanceMeters
	KindHeartRate      FieldTestKind = "heart_rate"      // Value: max HR, DurationSeconds unused
)

// FieldTestKinds lists every known kind
var FieldTestKinds = []FieldTestKind{
	KindFTP20Min, KindFTP60Min, KindSwimCSS, KindRunThreshold, KindRunPerformance, KindHeartRate,
}

// Valid reports whether k is a known kind
func (k FieldTestKind) Valid() bool {
	for _, known := range FieldTestKinds {
		if k == known {
			return true
		}
	}
	return false
}

// FieldTest is one recorded measurement
type FieldTest struct {
	ID              string        `db:"id" json:"id"`
	Kind            FieldTestKind `db:"kind" json:"kind"`
	Value           float64       `db:"value" json:"value"`
	DistanceMeters  *float64      `db:"distance_meters" json:"distance_meters"`   // nullable
	DurationSeconds *float64      `db:"duration_seconds" json:"duration_seconds"` // nullable
	Source          string        `db:"source" json:"source"`
	TestedAt        time.Time     `db:"tested_at" json:"tested_at"`
}

// Prediction kinds
const (
	PredictionBike      = "bike"
	PredictionTriathlon = "triathlon"
)

// Prediction is a stored forecast; Summary holds the full engine result as JSON
type Prediction struct {
	ID           string          `db:"id" json:"id"`
	Kind         string          `db:"kind" json:"kind"`
	RaceType     string          `db:"race_type" json:"race_type"`
	TotalSeconds float64         `db:"total_seconds" json:"total_seconds"`
	Summary      json.RawMessage `db:"summary" json:"summary"`
	ComputedAt   time.Time       `db:"computed_at" json:"computed_at"`
}
