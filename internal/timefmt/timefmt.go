package timefmt

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ErrInvalidFormat is matched by every FormatError via errors.Is
var ErrInvalidFormat = errors.New("invalid time format")

// FormatError describes time text that could not be parsed
type FormatError struct {
	Input  string
	Reason string
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("invalid time %q: %s", e.Input, e.Reason)
}

// Is reports whether target is ErrInvalidFormat
func (e *FormatError) Is(target error) bool {
	return target == ErrInvalidFormat
}

// maxGroups is H:MM:SS
const maxGroups = 3

// Parse converts SS, MM:SS or H:MM:SS into whole seconds.
// A bare number is seconds. In multi-group forms the minute and second
// groups must be below 60; the leading group may be any size whose
// total still fits in an int. A single
// trailing empty group ("5:") is read as zero so text that is still being
// typed stays parseable.
func Parse(text string) (int, error) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return 0, &FormatError{Input: text, Reason: "empty"}
	}

	groups := strings.Split(trimmed, ":")
	if len(groups) > maxGroups {
		return 0, &FormatError{Input: text, Reason: "too many groups"}
	}

	values := make([]int, len(groups))
	for i, g := range groups {
		if g == "" {
			// Only a trailing group may be blank, and not the only group
			if i != len(groups)-1 || i == 0 {
				return 0, &FormatError{Input: text, Reason: "empty group"}
			}
			values[i] = 0
			continue
		}
		n, err := parseGroup(g)
		if err != nil {
			return 0, &FormatError{Input: text, Reason: err.Error()}
		}
		values[i] = n
	}

	// Every group after the first is a minute or second field
	for i := 1; i < len(values); i++ {
		if values[i] >= 60 {
			return 0, &FormatError{Input: text, Reason: fmt.Sprintf("group %q must be below 60", groups[i])}
		}
	}

	total := 0
	for _, v := range values {
		if total > (math.MaxInt-v)/60 {
			return 0, &FormatError{Input: text, Reason: "out of range"}
		}
		total = total*60 + v
	}
	return total, nil
}

// IsValidFormat reports whether Parse would accept text
func IsValidFormat(text string) bool {
	_, err := Parse(text)
	return err == nil
}

// Format renders seconds as M:SS or H:MM:SS. Negative input renders as 0:00.
func Format(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	h := seconds / 3600
	m := (seconds % 3600) / 60
	s := seconds % 60
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%d:%02d", m, s)
}

// FormatSeconds rounds a fractional duration half-up and formats it
func FormatSeconds(seconds float64) string {
	return Format(RoundSeconds(seconds))
}

// RoundSeconds rounds half-up to whole seconds, clamping at zero
func RoundSeconds(seconds float64) int {
	if math.IsNaN(seconds) || seconds <= 0 {
		return 0
	}
	return int(math.Floor(seconds + 0.5))
}

// FormatPace renders a pace such as "1:45/100m" or "4:30/km"
func FormatPace(secondsPerUnit float64, unit string) string {
	return FormatSeconds(secondsPerUnit) + "/" + unit
}

// parseGroup accepts decimal digits only
func parseGroup(g string) (int, error) {
	for _, r := range g {
		if r < '0' || r > '9' {
			return 0, fmt.Errorf("group %q is not a non-negative number", g)
		}
	}
	n, err := strconv.Atoi(g)
	if err != nil {
		return 0, fmt.Errorf("group %q out of range", g)
	}
	return n, nil
}
