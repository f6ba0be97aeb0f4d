package storage

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"time"

	"cloudseed-monitor/internal/seeding"
)

// FileTimeLayout is the timestamp layout of forecast files, matching the
// provider's hourly timestamps.
const FileTimeLayout = "2006-01-02T15:04"

// ForecastEntry is one hour of a forecast file. Derived values are rounded.
type ForecastEntry struct {
	DateTime       string  `json:"datetime"`
	DisplayTime    string  `json:"display_time"`
	Temperature    float64 `json:"temperature"`
	Humidity       float64 `json:"humidity"`
	DewPoint       float64 `json:"dewpoint"`
	Spread         float64 `json:"spread"`
	CloudCover     float64 `json:"cloudcover"`
	CloudCoverLow  float64 `json:"cloudcover_low"`
	CloudCoverMid  float64 `json:"cloudcover_mid"`
	CloudCoverHigh float64 `json:"cloudcover_high"`
	Pressure       float64 `json:"pressure"`
	WindSpeed      float64 `json:"windspeed"`
	CloudType      string  `json:"cloud_type"`
	EstimatedLWC   float64 `json:"estimated_lwc"`
	SeedingMethod  string  `json:"recommended_seeding_method"`
	Score          float64 `json:"seedability_score"`
	Viable         bool    `json:"is_seedable"`
	PotentialMM    float64 `json:"precipitation_potential_mm"`
	Probability    float64 `json:"precipitation_probability"`
}

// ViableEntry is one row of the rain calendar.
type ViableEntry struct {
	DateTime    string  `json:"datetime"`
	PotentialMM float64 `json:"precipitation_potential_mm"`
	Probability float64 `json:"precipitation_probability"`
}

func round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}

func EntryFromResult(r seeding.HourlyResult) ForecastEntry {
	return ForecastEntry{
		DateTime:       r.Time.Format(FileTimeLayout),
		DisplayTime:    r.DisplayTime,
		Temperature:    r.Temperature,
		Humidity:       r.Humidity,
		DewPoint:       r.DewPoint,
		Spread:         round(r.Spread, 1),
		CloudCover:     r.CloudCover,
		CloudCoverLow:  r.CloudCoverLow,
		CloudCoverMid:  r.CloudCoverMid,
		CloudCoverHigh: r.CloudCoverHigh,
		Pressure:       r.Pressure,
		WindSpeed:      r.WindSpeed,
		CloudType:      r.CloudType,
		EstimatedLWC:   round(r.EstimatedLWC, 2),
		SeedingMethod:  r.SeedingMethod,
		Score:          round(r.Score, 1),
		Viable:         r.Viable,
		PotentialMM:    round(r.PrecipitationPotentialMM, 2),
		Probability:    round(r.PrecipitationProbability, 1),
	}
}

// Result converts a file entry back, parsing its timestamp in loc.
func (e ForecastEntry) Result(loc *time.Location) (seeding.HourlyResult, error) {
	if loc == nil {
		loc = time.UTC
	}
	t, err := time.ParseInLocation(FileTimeLayout, e.DateTime, loc)
	if err != nil {
		return seeding.HourlyResult{}, fmt.Errorf("bad datetime %q: %w", e.DateTime, err)
	}
	return seeding.HourlyResult{
		Time:                     t,
		DisplayTime:              e.DisplayTime,
		Temperature:              e.Temperature,
		Humidity:                 e.Humidity,
		DewPoint:                 e.DewPoint,
		CloudCover:               e.CloudCover,
		CloudCoverLow:            e.CloudCoverLow,
		CloudCoverMid:            e.CloudCoverMid,
		CloudCoverHigh:           e.CloudCoverHigh,
		Pressure:                 e.Pressure,
		WindSpeed:                e.WindSpeed,
		Spread:                   e.Spread,
		EstimatedLWC:             e.EstimatedLWC,
		CloudType:                e.CloudType,
		SeedingMethod:            e.SeedingMethod,
		Score:                    e.Score,
		Viable:                   e.Viable,
		PrecipitationPotentialMM: e.PotentialMM,
		PrecipitationProbability: e.Probability,
	}, nil
}

// WriteForecastFile writes the forecast as an indented JSON array.
func WriteForecastFile(path string, results []seeding.HourlyResult) error {
	entries := make([]ForecastEntry, len(results))
	for i, r := range results {
		entries[i] = EntryFromResult(r)
	}
	return writeJSON(path, entries)
}

// WriteViableFile writes only the viable hours with their expected yield.
func WriteViableFile(path string, results []seeding.HourlyResult) error {
	entries := make([]ViableEntry, 0, len(results))
	for _, r := range seeding.ViableHours(results) {
		entries = append(entries, ViableEntry{
			DateTime:    r.Time.Format(FileTimeLayout),
			PotentialMM: round(r.PrecipitationPotentialMM, 2),
			Probability: round(r.PrecipitationProbability, 1),
		})
	}
	return writeJSON(path, entries)
}

func ReadForecastFile(path string, loc *time.Location) ([]seeding.HourlyResult, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read forecast file: %w", err)
	}

	var entries []ForecastEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("failed to parse forecast file: %w", err)
	}

	results := make([]seeding.HourlyResult, len(entries))
	for i, e := range entries {
		r, err := e.Result(loc)
		if err != nil {
			return nil, fmt.Errorf("forecast file entry %d: %w", i, err)
		}
		results[i] = r
	}
	return results, nil
}

func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", path, err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}
