package service

const (
	// History
	DefaultHistoryLimit = 20

	// Strava run selection for the Riegel base
	RunLookbackDays    = 90
	MinRunBaseKm       = 3.0
	MaxRunBaseKm       = 42.2
	NormalizedRunKm    = 10.0 // runs are ranked by their Riegel-projected 10k
	MinRunSpeedMs      = 1.5  // slower "runs" are walks or bad GPS
	StravaRunsPageSize = 100

	// Fallback run base when only a threshold pace is known
	ThresholdRunBaseKm = 10.0

	// Fallback swim baseline when only CSS is known
	CSSBaselineMeters = 100.0

	MetersPerKm = 1000.0
)

// Sync state keys
const (
	syncStateLastSync = "last_sync"
)

// Profile sources
const (
	SourceConfig    = "config"
	SourceFieldTest = "field_test"
	SourceStrava    = "strava"
	SourceFIT       = "fit"
)
