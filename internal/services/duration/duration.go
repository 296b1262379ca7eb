// Package duration converts YouTube's compact ISO 8601 durations ("PT1H2M3S")
// to seconds and renders seconds back as clock-style strings.
//
// Go Pattern: Pure functions with no package state are the easiest code to
// test. Neither function can fail; bad input resolves to a safe zero value.
package duration

import (
	"fmt"
	"regexp"
	"strconv"
)

// isoPattern accepts the hours/minutes/seconds subset the Data API emits for
// regular videos. Days, weeks, months and years are not supported.
var isoPattern = regexp.MustCompile(`^PT(?:(\d+)H)?(?:(\d+)M)?(?:(\d+)S)?$`)

// Decode converts an ISO 8601 duration like "PT1H2M3S" into seconds.
// Empty or malformed input returns 0.
func Decode(iso string) int {
	m := isoPattern.FindStringSubmatch(iso)
	if m == nil {
		return 0
	}

	total := 0
	for i, unit := range []int{3600, 60, 1} {
		if m[i+1] == "" {
			continue
		}
		n, err := strconv.Atoi(m[i+1])
		if err != nil {
			return 0
		}
		total += n * unit
	}
	return total
}

// Encode renders seconds as "H:MM:SS" when there is at least one hour,
// otherwise as "M:SS". Negative input is treated as zero.
func Encode(seconds int) string {
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
