package analysis

import (
	"fmt"
	"math"

	"racecalc/internal/timefmt"
)

// Zone units for the classification bounds
const (
	UnitSpeed = "m/s"
	UnitWatts = "W"
	UnitBPM   = "bpm"
)

// Pace display units
const (
	SwimPaceUnit = "100m"
	RunPaceUnit  = "km"
)

// Zone is one band of a training-zone table.
// Lower/Upper classify a measurement: Lower inclusive, Upper exclusive,
// the first zone starts at 0 and the last one is unbounded (+Inf).
// RangeLow/RangeHigh hold the published band in the display unit
// (pace seconds for pace tables, watts, bpm).
type Zone struct {
	Index        int
	Name         string
	Description  string
	Lower        float64
	Upper        float64
	Unit         string
	RangeLow     float64
	RangeHigh    float64
	DisplayRange string
}

// zoneBand is a row of a static zone table.
// Edge is where the band starts: pace % of threshold for pace tables
// (slower is higher), % FTP for power, fraction of HR reserve for heart rate.
type zoneBand struct {
	Name        string
	Description string
	Edge        float64
}

var swimPaceBands = []zoneBand{
	{"Recovery", "Easy technique and recovery swimming", 0},
	{"Endurance", "Aerobic base, long continuous sets", 112},
	{"Tempo", "Steady, moderately hard aerobic work", 106},
	{"Threshold", "CSS pace, sustainable for about 30 minutes", 100},
	{"Speed", "VO2max and sprint repeats", 94},
}

var bikePowerBands = []zoneBand{
	{"Active Recovery", "Very easy spinning", 0},
	{"Endurance", "All-day aerobic riding", 55},
	{"Tempo", "Brisk, sustained group-ride effort", 75},
	{"Lactate Threshold", "Sweet spot to FTP, 10 to 60 minute efforts", 90},
	{"VO2max", "3 to 8 minute intervals", 105},
	{"Anaerobic Capacity", "30 second to 3 minute efforts", 120},
	{"Neuromuscular Power", "Short maximal sprints", 150},
}

var runPaceBands = []zoneBand{
	{"Recovery", "Easy jogging", 0},
	{"Aerobic", "Conversational long-run pace", 129},
	{"Tempo", "Comfortably hard, marathon to half-marathon effort", 114},
	{"Threshold", "Lactate threshold, about one hour race pace", 106},
	{"VO2max", "5K pace and faster intervals", 99},
}

var heartRateBands = []zoneBand{
	{"Recovery", "50-60% of heart-rate reserve", 0.5},
	{"Aerobic", "60-70% of heart-rate reserve", 0.6},
	{"Tempo", "70-80% of heart-rate reserve", 0.7},
	{"Threshold", "80-90% of heart-rate reserve", 0.8},
	{"Maximum", "90-100% of heart-rate reserve", 0.9},
}

// FTPTest identifies the duration of a power field test
type FTPTest int

const (
	Test20Min FTPTest = iota
	Test60Min
)

// ftpTestFactors converts a field-test average power into estimated FTP
var ftpTestFactors = map[FTPTest]float64{
	Test20Min: 0.95,
	Test60Min: 1.0,
}

func (t FTPTest) String() string {
	switch t {
	case Test20Min:
		return "20min"
	case Test60Min:
		return "60min"
	default:
		return fmt.Sprintf("FTPTest(%d)", int(t))
	}
}

// FTPTestFromMinutes maps a test length in minutes to an FTPTest
func FTPTestFromMinutes(minutes int) (FTPTest, error) {
	switch minutes {
	case 20:
		return Test20Min, nil
	case 60:
		return Test60Min, nil
	}
	return 0, invalid("test duration", "only 20 and 60 minute tests are supported, got %d", minutes)
}

// EstimateFTP applies the test-duration correction to a field-test power
func EstimateFTP(testPowerWatts float64, test FTPTest) (float64, error) {
	if err := requirePositive("test power", testPowerWatts); err != nil {
		return 0, err
	}
	factor, ok := ftpTestFactors[test]
	if !ok {
		return 0, invalid("test duration", "unknown test %v", test)
	}
	return testPowerWatts * factor, nil
}

// SwimPaceZones builds the 5-zone swim table from threshold pace (CSS) in seconds per 100m
func SwimPaceZones(thresholdPaceSecondsPer100m float64) ([]Zone, error) {
	if err := requirePositive("threshold pace", thresholdPaceSecondsPer100m); err != nil {
		return nil, err
	}
	return paceZones(swimPaceBands, thresholdPaceSecondsPer100m, 100, SwimPaceUnit), nil
}

// RunPaceZones builds the 5-zone run table from threshold pace in seconds per km
func RunPaceZones(thresholdPaceSecondsPerKm float64) ([]Zone, error) {
	if err := requirePositive("threshold pace", thresholdPaceSecondsPerKm); err != nil {
		return nil, err
	}
	return paceZones(runPaceBands, thresholdPaceSecondsPerKm, 1000, RunPaceUnit), nil
}

// BikePowerZones builds the 7-zone power table from FTP in watts.
// Field-test power must go through EstimateFTP first.
func BikePowerZones(ftpWatts float64) ([]Zone, error) {
	if err := requirePositive("FTP", ftpWatts); err != nil {
		return nil, err
	}

	zones := make([]Zone, len(bikePowerBands))
	for i, b := range bikePowerBands {
		lower := 0.0
		if i > 0 {
			lower = ftpWatts * b.Edge / 100
		}
		upper := math.Inf(1)
		if i < len(bikePowerBands)-1 {
			upper = ftpWatts * bikePowerBands[i+1].Edge / 100
		}

		var display string
		switch {
		case i == 0:
			display = fmt.Sprintf("<%.0fW", roundHalfUp(upper))
		case math.IsInf(upper, 1):
			display = fmt.Sprintf(">%.0fW", roundHalfUp(lower))
		default:
			display = fmt.Sprintf("%.0f-%.0fW", roundHalfUp(lower), roundHalfUp(upper))
		}

		zones[i] = Zone{
			Index:        i + 1,
			Name:         b.Name,
			Description:  b.Description,
			Lower:        lower,
			Upper:        upper,
			Unit:         UnitWatts,
			RangeLow:     lower,
			RangeHigh:    upper,
			DisplayRange: display,
		}
	}
	return zones, nil
}

// BikePowerZonesFromTest corrects a field test to FTP and builds the power table
func BikePowerZonesFromTest(testPowerWatts float64, test FTPTest) ([]Zone, error) {
	ftp, err := EstimateFTP(testPowerWatts, test)
	if err != nil {
		return nil, err
	}
	return BikePowerZones(ftp)
}

// HeartRateZones builds the 5 Karvonen zones:
// target = resting + (max - resting) * fraction of heart-rate reserve
func HeartRateZones(maxHR, restingHR float64) ([]Zone, error) {
	if err := requirePositive("max heart rate", maxHR); err != nil {
		return nil, err
	}
	if err := requirePositive("resting heart rate", restingHR); err != nil {
		return nil, err
	}
	if maxHR <= restingHR {
		return nil, invalid("max heart rate", "must be above resting heart rate (%v <= %v)", maxHR, restingHR)
	}

	target := func(fraction float64) float64 {
		return KarvonenTarget(maxHR, restingHR, fraction)
	}

	zones := make([]Zone, len(heartRateBands))
	for i, b := range heartRateBands {
		last := i == len(heartRateBands)-1

		lower := 0.0
		if i > 0 {
			lower = target(b.Edge)
		}
		upper := math.Inf(1)
		rangeHigh := target(1.0)
		if !last {
			upper = target(heartRateBands[i+1].Edge)
			rangeHigh = upper
		}
		rangeLow := target(b.Edge)

		zones[i] = Zone{
			Index:        i + 1,
			Name:         b.Name,
			Description:  b.Description,
			Lower:        lower,
			Upper:        upper,
			Unit:         UnitBPM,
			RangeLow:     rangeLow,
			RangeHigh:    rangeHigh,
			DisplayRange: fmt.Sprintf("%.0f-%.0fbpm", roundHalfUp(rangeLow), roundHalfUp(rangeHigh)),
		}
	}
	return zones, nil
}

// KarvonenTarget returns the heart rate at a fraction of heart-rate reserve
func KarvonenTarget(maxHR, restingHR, fraction float64) float64 {
	return restingHR + (maxHR-restingHR)*fraction
}

// ZoneForValue returns the index of the zone whose bounds contain value,
// or 0 when no zone does (negative input)
func ZoneForValue(zones []Zone, value float64) int {
	for _, z := range zones {
		if value >= z.Lower && value < z.Upper {
			return z.Index
		}
	}
	return 0
}

// BikeIntensityZone maps a percentage of FTP to its power-zone index (1-7)
func BikeIntensityZone(ftpPercentage float64) int {
	zone := 1
	for i, b := range bikePowerBands {
		if i > 0 && ftpPercentage >= b.Edge {
			zone = i + 1
		}
	}
	return zone
}

// paceZones builds a pace table. Classification bounds are speeds so that
// intensity ascends with the bound; ranges are paces in seconds per unit.
func paceZones(bands []zoneBand, thresholdPace, unitMeters float64, unit string) []Zone {
	thresholdSpeed := unitMeters / thresholdPace

	zones := make([]Zone, len(bands))
	for i, b := range bands {
		first := i == 0
		last := i == len(bands)-1

		lower, slowPace := 0.0, math.Inf(1)
		if !first {
			lower = thresholdSpeed * 100 / b.Edge
			slowPace = thresholdPace * b.Edge / 100
		}
		upper, fastPace := math.Inf(1), 0.0
		if !last {
			upper = thresholdSpeed * 100 / bands[i+1].Edge
			fastPace = thresholdPace * bands[i+1].Edge / 100
		}

		var display string
		switch {
		case first:
			display = ">" + timefmt.FormatPace(fastPace, unit)
		case last:
			display = "<" + timefmt.FormatPace(slowPace, unit)
		default:
			display = timefmt.FormatSeconds(fastPace) + "-" + timefmt.FormatPace(slowPace, unit)
		}

		zones[i] = Zone{
			Index:        i + 1,
			Name:         b.Name,
			Description:  b.Description,
			Lower:        lower,
			Upper:        upper,
			Unit:         UnitSpeed,
			RangeLow:     fastPace,
			RangeHigh:    slowPace,
			DisplayRange: display,
		}
	}
	return zones
}

func roundHalfUp(v float64) float64 {
	return math.Floor(v + 0.5)
}
