package youtube

import (
	"fmt"
	"strconv"
	"strings"
)

// parseISO8601Duration converts a YouTube contentDetails.duration value
// (e.g. "PT4M13S") to whole seconds via a direct H/M/S scan rather than a
// general ISO 8601 duration library, since the format here is always the
// restricted PTnHnMnS subset YouTube emits.
func parseISO8601Duration(duration string) (int, error) {
	if !strings.HasPrefix(duration, "PT") {
		return 0, fmt.Errorf("invalid duration format: %q", duration)
	}
	rest := strings.TrimPrefix(duration, "PT")

	var hours, minutes, seconds int

	if idx := strings.IndexByte(rest, 'H'); idx != -1 {
		h, err := strconv.Atoi(rest[:idx])
		if err != nil {
			return 0, fmt.Errorf("invalid hours in duration %q: %w", duration, err)
		}
		hours = h
		rest = rest[idx+1:]
	}
	if idx := strings.IndexByte(rest, 'M'); idx != -1 {
		m, err := strconv.Atoi(rest[:idx])
		if err != nil {
			return 0, fmt.Errorf("invalid minutes in duration %q: %w", duration, err)
		}
		minutes = m
		rest = rest[idx+1:]
	}
	if idx := strings.IndexByte(rest, 'S'); idx != -1 {
		s, err := strconv.Atoi(rest[:idx])
		if err != nil {
			return 0, fmt.Errorf("invalid seconds in duration %q: %w", duration, err)
		}
		seconds = s
	}

	return hours*3600 + minutes*60 + seconds, nil
}

// durationOrZero parses an ISO 8601 duration, defaulting to 0 seconds when
// it is empty or unparseable, rather than rejecting the video outright on a
// parse failure (see DESIGN.md Open Question: duration handling).
// DurationSeconds is the exported form of durationOrZero, used by callers
// outside this package (the engine's normalize/filter stage) to convert
// RawVideo.Duration into whole seconds.
func DurationSeconds(duration string) int {
	return durationOrZero(duration)
}

func durationOrZero(duration string) int {
	if duration == "" {
		return 0
	}
	seconds, err := parseISO8601Duration(duration)
	if err != nil {
		return 0
	}
	return seconds
}
