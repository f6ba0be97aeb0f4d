package seeding

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func scored(scores ...float64) []HourlyResult {
	rs := make([]HourlyResult, len(scores))
	for i, s := range scores {
		rs[i] = HourlyResult{DisplayTime: string(rune('a' + i)), Score: s, Viable: s >= 50}
	}
	return rs
}

func displayTimes(rs []HourlyResult) []string {
	out := make([]string, len(rs))
	for i, r := range rs {
		out[i] = r.DisplayTime
	}
	return out
}

func TestViableHoursKeepsOrder(t *testing.T) {
	rs := scored(70, 10, 55, 90, 49.9)
	assert.Equal(t, []string{"a", "c", "d"}, displayTimes(ViableHours(rs)))
}

func TestBestHours(t *testing.T) {
	rs := scored(70, 10, 55, 90, 70, 60)

	assert.Equal(t, []string{"d", "a", "e"}, displayTimes(BestHours(rs, 3)))
	assert.Equal(t, []string{"d", "a", "e", "f", "c"}, displayTimes(BestHours(rs, 0)))
	// Input is not reordered.
	assert.Equal(t, "a", rs[0].DisplayTime)
}

func TestClosestHours(t *testing.T) {
	rs := scored(10, 30, 20, 45)
	assert.Equal(t, []string{"d", "b", "c"}, displayTimes(ClosestHours(rs, 3)))
	assert.Equal(t, "a", rs[0].DisplayTime)
}

func TestLimitingFactors(t *testing.T) {
	tropical := Rules(TropicalHumid)
	r := HourlyResult{
		CloudCover:    20,
		Humidity:      95,
		WindSpeed:     0.5,
		CloudType:     "High Tropical Cloud System",
		SeedingMethod: MethodNotRecommended,
	}

	assert.Equal(t, []string{
		"insufficient cloud cover (< 50%)",
		"insufficient wind (< 1 m/s)",
		"unsuitable cloud type",
		"excessive humidity (natural precipitation likely)",
	}, LimitingFactors(r, tropical))

	arid := Rules(Arid)
	hot := HourlyResult{CloudCover: 60, Humidity: 20, WindSpeed: 3, Temperature: 41, CloudType: "Low Cumulus Cloud"}
	assert.Equal(t, []string{
		"low humidity (< 35%)",
		"extreme heat reducing cloud development",
	}, LimitingFactors(hot, arid))

	fine := HourlyResult{CloudCover: 60, Humidity: 70, WindSpeed: 2, Temperature: 25, CloudType: "Warm Boundary Layer Cloud"}
	assert.Empty(t, LimitingFactors(fine, Rules(Temperate)))
}
