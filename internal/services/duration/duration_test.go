// duration_test.go covers both directions of the duration codec.
package duration

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDecode(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  int
	}{
		{"hours minutes seconds", "PT1H2M3S", 3723},
		{"seconds only", "PT45S", 45},
		{"minutes only", "PT10M", 600},
		{"hours only", "PT2H", 7200},
		{"hours and seconds", "PT1H5S", 3605},
		{"zero", "PT0S", 0},
		{"bare PT", "PT", 0},
		{"empty", "", 0},
		{"garbage", "garbage", 0},
		{"days are unsupported", "P1DT2H", 0},
		{"lowercase rejected", "pt1m", 0},
		{"trailing junk", "PT1M2SX", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Decode(tt.input), "Decode(%q)", tt.input)
		})
	}
}

func TestEncode(t *testing.T) {
	tests := []struct {
		name    string
		seconds int
		want    string
	}{
		{"zero", 0, "0:00"},
		{"seconds only", 5, "0:05"},
		{"minutes and seconds", 125, "2:05"},
		{"just under an hour", 3599, "59:59"},
		{"exact hour", 3600, "1:00:00"},
		{"hours minutes seconds", 3723, "1:02:03"},
		{"long", 36061, "10:01:01"},
		{"negative clamps", -10, "0:00"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Encode(tt.seconds), "Encode(%d)", tt.seconds)
		})
	}
}

// Encode output is for display, but decoding the equivalent ISO form must
// land on the same second count.
func TestDecodeMatchesEncodeComponents(t *testing.T) {
	for _, s := range []int{0, 1, 59, 60, 61, 3599, 3600, 3723, 86399} {
		iso := "PT" + itoaUnit(s/3600, "H") + itoaUnit((s%3600)/60, "M") + itoaUnit(s%60, "S")
		assert.Equal(t, s, Decode(iso), "Decode(%q)", iso)
	}
}

func itoaUnit(n int, unit string) string {
	if n == 0 {
		return ""
	}
	return fmt.Sprintf("%d%s", n, unit)
}
