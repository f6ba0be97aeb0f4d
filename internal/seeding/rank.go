package seeding

import (
	"fmt"
	"sort"
	"strings"
)

// ViableHours keeps the viable hours in forecast order.
func ViableHours(results []HourlyResult) []HourlyResult {
	viable := make([]HourlyResult, 0, len(results))
	for _, r := range results {
		if r.Viable {
			viable = append(viable, r)
		}
	}
	return viable
}

// BestHours returns up to n viable hours ranked by score, highest first. Ties
// keep forecast order. n <= 0 returns all of them.
func BestHours(results []HourlyResult, n int) []HourlyResult {
	return topByScore(ViableHours(results), n)
}

// ClosestHours ranks every hour by score regardless of viability. Used to
// point at near misses when nothing clears the threshold.
func ClosestHours(results []HourlyResult, n int) []HourlyResult {
	all := make([]HourlyResult, len(results))
	copy(all, results)
	return topByScore(all, n)
}

func topByScore(rs []HourlyResult, n int) []HourlyResult {
	sort.SliceStable(rs, func(i, j int) bool {
		return rs[i].Score > rs[j].Score
	})
	if n > 0 && len(rs) > n {
		rs = rs[:n]
	}
	return rs
}

// LimitingFactors lists why an hour falls short of the zone's requirements.
// An empty slice means the hour is borderline rather than clearly deficient.
func LimitingFactors(r HourlyResult, rules ZoneRules) []string {
	p := rules.Params
	var factors []string

	if r.CloudCover < p.MinCloudCover {
		factors = append(factors, fmt.Sprintf("insufficient cloud cover (< %g%%)", p.MinCloudCover))
	}
	if r.Humidity < p.MinHumidity {
		factors = append(factors, fmt.Sprintf("low humidity (< %g%%)", p.MinHumidity))
	}
	if r.WindSpeed < p.MinWind {
		factors = append(factors, fmt.Sprintf("insufficient wind (< %g m/s)", p.MinWind))
	}
	if strings.Contains(r.CloudType, "High") || r.SeedingMethod == MethodNotRecommended {
		factors = append(factors, "unsuitable cloud type")
	}

	switch {
	case rules.ExcessHumidity > 0 && r.Humidity > rules.ExcessHumidity:
		factors = append(factors, "excessive humidity (natural precipitation likely)")
	case rules.ExtremeHeat > 0 && r.Temperature > rules.ExtremeHeat:
		factors = append(factors, "extreme heat reducing cloud development")
	}

	return factors
}
