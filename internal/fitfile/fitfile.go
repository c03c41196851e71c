// Package fitfile reads activity FIT files and pulls out the power
// numbers used as bike field tests.
package fitfile

import (
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"sort"
	"time"

	"github.com/tormoder/fit"
)

// maxGapSeconds: a record holds its power for at most this long; longer
// gaps count as stopped (zero watts)
const maxGapSeconds = 5

// maxWindowSeconds is the longest rolling window summarised. A stopped gap
// is cut to this many zeros, which already separates the two sides of it
// for every window.
const maxWindowSeconds = 60 * 60

// ErrNoPower is returned when the file has no power samples
var ErrNoPower = errors.New("activity has no power data")

// Summary is what an imported ride contributes to the athlete profile
type Summary struct {
	Sport           string    `json:"sport"`
	StartTime       time.Time `json:"start_time"`
	DurationSeconds int       `json:"duration_seconds"`
	DistanceMeters  float64   `json:"distance_meters"`
	AvgPowerWatts   float64   `json:"avg_power_watts"`
	MaxHeartRate    float64   `json:"max_heart_rate"`
	Best20MinPower  float64   `json:"best_20min_power"` // 0 when the ride is shorter
	Best60MinPower  float64   `json:"best_60min_power"` // 0 when the ride is shorter
}

// HasTwentyMinutes reports whether a 20-minute field test can be taken from the ride
func (s *Summary) HasTwentyMinutes() bool { return s.Best20MinPower > 0 }

// HasHour reports whether a 60-minute field test can be taken from the ride
func (s *Summary) HasHour() bool { return s.Best60MinPower > 0 }

// ReadFile decodes and summarises an activity FIT file on disk
func ReadFile(path string) (*Summary, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open FIT file: %w", err)
	}
	defer f.Close()
	return Read(f)
}

// Read decodes and summarises an activity FIT stream
func Read(r io.Reader) (*Summary, error) {
	decoded, err := fit.Decode(r)
	if err != nil {
		return nil, fmt.Errorf("decode FIT file: %w", err)
	}
	activity, err := decoded.Activity()
	if err != nil {
		return nil, fmt.Errorf("activity FIT expected: %w", err)
	}

	power, start, maxHR, distance := resample(activity.Records)
	if len(power) == 0 {
		return nil, ErrNoPower
	}

	s := &Summary{
		Sport:           "unknown",
		StartTime:       start,
		DurationSeconds: len(power),
		DistanceMeters:  distance,
		AvgPowerWatts:   average(power),
		MaxHeartRate:    maxHR,
		Best20MinPower:  bestRollingPower(power, 20*60),
		Best60MinPower:  bestRollingPower(power, maxWindowSeconds),
	}
	if len(activity.Sessions) > 0 && activity.Sessions[0] != nil {
		s.Sport = activity.Sessions[0].Sport.String()
	}
	return s, nil
}

// resample turns records into a 1 Hz power series ordered by timestamp
func resample(records []*fit.RecordMsg) (power []float64, start time.Time, maxHR, distance float64) {
	type sample struct {
		ts    time.Time
		watts float64
	}
	samples := make([]sample, 0, len(records))
	for _, rec := range records {
		if rec == nil || rec.Timestamp.IsZero() || fit.IsBaseTime(rec.Timestamp) {
			continue
		}
		if rec.HeartRate != math.MaxUint8 {
			maxHR = math.Max(maxHR, float64(rec.HeartRate))
		}
		if d := rec.GetDistanceScaled(); !math.IsNaN(d) && !math.IsInf(d, 0) && d > distance {
			distance = d
		}
		if rec.Power == math.MaxUint16 {
			continue
		}
		samples = append(samples, sample{ts: rec.Timestamp, watts: float64(rec.Power)})
	}
	if len(samples) == 0 {
		return nil, time.Time{}, maxHR, distance
	}

	sort.Slice(samples, func(i, j int) bool { return samples[i].ts.Before(samples[j].ts) })
	start = samples[0].ts

	for i, s := range samples {
		hold := 1
		if i+1 < len(samples) {
			hold = int(samples[i+1].ts.Sub(s.ts) / time.Second)
		}
		hold = min(hold, maxGapSeconds+maxWindowSeconds)
		for k := 0; k < hold; k++ {
			if k < maxGapSeconds {
				power = append(power, s.watts)
			} else {
				power = append(power, 0)
			}
		}
	}
	return power, start, maxHR, distance
}

// bestRollingPower is the highest mean over any window of the given length,
// or 0 when the series is shorter than the window
func bestRollingPower(power []float64, seconds int) float64 {
	if seconds <= 0 || len(power) < seconds {
		return 0
	}

	sum := 0.0
	for i := 0; i < seconds; i++ {
		sum += power[i]
	}
	best := sum
	for i := seconds; i < len(power); i++ {
		sum += power[i] - power[i-seconds]
		if sum > best {
			best = sum
		}
	}
	return best / float64(seconds)
}

func average(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}
