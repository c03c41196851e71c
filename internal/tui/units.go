package tui

import (
	"fmt"

	"racecalc/internal/config"
)

const (
	metersPerMile = 1609.34
	metersPerKm   = 1000.0
)

// Units provides unit conversion and formatting based on user preferences
type Units struct {
	cfg config.DisplayConfig
}

// NewUnits creates a new Units helper with the given display config
func NewUnits(cfg config.DisplayConfig) Units {
	return Units{cfg: cfg}
}

// FormatDistance formats a distance in meters to the user's preferred unit
func (u Units) FormatDistance(meters float64) string {
	if u.IsMiles() {
		return fmt.Sprintf("%.1f mi", meters/metersPerMile)
	}
	return fmt.Sprintf("%.1f km", meters/metersPerKm)
}

// SpeedValue converts km/h to the preferred speed unit
func (u Units) SpeedValue(kmh float64) float64 {
	if u.IsMiles() {
		return kmh * metersPerKm / metersPerMile
	}
	return kmh
}

// FormatSpeed formats a km/h speed with the preferred unit label
func (u Units) FormatSpeed(kmh float64) string {
	return fmt.Sprintf("%.1f %s", u.SpeedValue(kmh), u.SpeedLabel())
}

// SpeedLabel returns "mph" or "km/h"
func (u Units) SpeedLabel() string {
	if u.IsMiles() {
		return "mph"
	}
	return "km/h"
}

// IsMiles returns true if distance unit is miles
func (u Units) IsMiles() bool {
	return u.cfg.DistanceUnit == "mi"
}
