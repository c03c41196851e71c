package strava

import (
	"strings"
	"time"
)

// Athlete is the authenticated athlete from GET /athlete.
// FTP and weight are only present with the profile:read_all scope.
type Athlete struct {
	ID        int64   `json:"id"`
	Username  string  `json:"username"`
	Firstname string  `json:"firstname"`
	Lastname  string  `json:"lastname"`
	Weight    float64 `json:"weight"` // kg, 0 when unset
	FTP       *int    `json:"ftp"`    // watts, null when unset
}

// Name is the display name of the athlete
func (a *Athlete) Name() string {
	return strings.TrimSpace(a.Firstname + " " + a.Lastname)
}

// Activity is a Strava activity summary from the API
type Activity struct {
	ID                 int64     `json:"id"`
	Name               string    `json:"name"`
	Type               string    `json:"type"`
	SportType          string    `json:"sport_type"`
	StartDate          time.Time `json:"start_date"`
	Distance           float64   `json:"distance"`             // meters
	MovingTime         int       `json:"moving_time"`          // seconds
	ElapsedTime        int       `json:"elapsed_time"`         // seconds
	TotalElevationGain float64   `json:"total_elevation_gain"` // meters
	AverageSpeed       float64   `json:"average_speed"`        // m/s
	AverageWatts       float64   `json:"average_watts"`
	DeviceWatts        bool      `json:"device_watts"`
	MaxHeartrate       float64   `json:"max_heartrate"` // bpm
	Manual             bool      `json:"manual"`
}

// IsRun reports whether the activity is a run of any sport type
func (a *Activity) IsRun() bool {
	switch a.SportType {
	case "Run", "TrailRun", "VirtualRun":
		return true
	}
	return a.SportType == "" && a.Type == "Run"
}

// IsRide reports whether the activity is a ride of any sport type
func (a *Activity) IsRide() bool {
	switch a.SportType {
	case "Ride", "VirtualRide", "GravelRide", "MountainBikeRide":
		return true
	}
	return a.SportType == "" && a.Type == "Ride"
}
