package report

import (
	"time"

	"gonum.org/v1/gonum/stat"

	"cloudseed-monitor/internal/seeding"
)

// Summary condenses a forecast window for publishing and reporting.
type Summary struct {
	Zone        seeding.ClimateZone `json:"zone"`
	GeneratedAt time.Time           `json:"generated_at"`
	Hours       int                 `json:"hours"`
	ViableHours int                 `json:"viable_hours"`

	// BestScore is the highest score in the window, viable or not.
	BestScore float64   `json:"best_score"`
	BestTime  time.Time `json:"best_time"`
	// NextViable is the earliest viable hour in the window.
	NextViable *time.Time `json:"next_viable_time,omitempty"`

	MeanScore   float64 `json:"mean_score"`
	StdDevScore float64 `json:"stddev_score"`

	ExpectedPrecipitationMM  float64 `json:"expected_precipitation_mm"`
	PrecipitationProbability float64 `json:"precipitation_probability"`
}

// Summarize computes window statistics. Expected precipitation is the sum over
// viable hours; probability is the highest among them.
func Summarize(zone seeding.ClimateZone, results []seeding.HourlyResult, generatedAt time.Time) Summary {
	s := Summary{
		Zone:        zone,
		GeneratedAt: generatedAt,
		Hours:       len(results),
	}
	if len(results) == 0 {
		return s
	}

	scores := make([]float64, len(results))
	s.BestScore = results[0].Score
	s.BestTime = results[0].Time
	for i, r := range results {
		scores[i] = r.Score
		if r.Score > s.BestScore {
			s.BestScore = r.Score
			s.BestTime = r.Time
		}
	}
	s.MeanScore = stat.Mean(scores, nil)
	if len(scores) > 1 {
		s.StdDevScore = stat.StdDev(scores, nil)
	}

	for _, r := range results {
		if !r.Viable {
			continue
		}
		s.ViableHours++
		s.ExpectedPrecipitationMM += r.PrecipitationPotentialMM
		s.PrecipitationProbability = max(s.PrecipitationProbability, r.PrecipitationProbability)
		if s.NextViable == nil {
			t := r.Time
			s.NextViable = &t
		}
	}
	return s
}
