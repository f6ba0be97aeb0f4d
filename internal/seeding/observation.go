package seeding

import "time"

// Observation is one hour of forecast input. Cloud cover bands are percentages
// and may overlap, so they need not sum to 100.
type Observation struct {
	Time           time.Time `json:"time"`
	Temperature    float64   `json:"temperature"`
	Humidity       float64   `json:"humidity"`
	DewPoint       float64   `json:"dewpoint"`
	CloudCover     float64   `json:"cloudcover"`
	CloudCoverLow  float64   `json:"cloudcover_low"`
	CloudCoverMid  float64   `json:"cloudcover_mid"`
	CloudCoverHigh float64   `json:"cloudcover_high"`
	Pressure       float64   `json:"pressure"`
	WindSpeed      float64   `json:"windspeed"`
	Precipitation  float64   `json:"precipitation"`
}

// HourlyResult is the forecast record for one hour.
type HourlyResult struct {
	Time        time.Time `json:"time"`
	DisplayTime string    `json:"display_time"`

	Temperature    float64 `json:"temperature"`
	Humidity       float64 `json:"humidity"`
	DewPoint       float64 `json:"dewpoint"`
	CloudCover     float64 `json:"cloudcover"`
	CloudCoverLow  float64 `json:"cloudcover_low"`
	CloudCoverMid  float64 `json:"cloudcover_mid"`
	CloudCoverHigh float64 `json:"cloudcover_high"`
	Pressure       float64 `json:"pressure"`
	WindSpeed      float64 `json:"windspeed"`
	Precipitation  float64 `json:"precipitation"`

	Spread        float64 `json:"spread"`
	EstimatedLWC  float64 `json:"estimated_lwc"`
	CloudType     string  `json:"cloud_type"`
	SeedingMethod string  `json:"recommended_seeding_method"`
	Effectiveness float64 `json:"effectiveness"`
	WindFactor    float64 `json:"wind_factor"`
	MonsoonFactor float64 `json:"monsoon_factor"`

	Score                    float64 `json:"seedability_score"`
	Viable                   bool    `json:"is_seedable"`
	PrecipitationPotentialMM float64 `json:"precipitation_potential_mm"`
	PrecipitationProbability float64 `json:"precipitation_probability"`
}

// DisplayLayout formats HourlyResult.DisplayTime.
const DisplayLayout = "2006-01-02 15:00"

// Assess evaluates one observation and, if the hour is viable, estimates its
// precipitation yield.
func Assess(obs Observation, rules ZoneRules) HourlyResult {
	ev := Evaluate(obs, rules)
	precip := EstimatePrecipitation(obs, ev, rules)

	return HourlyResult{
		Time:        obs.Time,
		DisplayTime: obs.Time.Format(DisplayLayout),

		Temperature:    obs.Temperature,
		Humidity:       obs.Humidity,
		DewPoint:       obs.DewPoint,
		CloudCover:     obs.CloudCover,
		CloudCoverLow:  obs.CloudCoverLow,
		CloudCoverMid:  obs.CloudCoverMid,
		CloudCoverHigh: obs.CloudCoverHigh,
		Pressure:       obs.Pressure,
		WindSpeed:      obs.WindSpeed,
		Precipitation:  obs.Precipitation,

		Spread:        ev.Spread,
		EstimatedLWC:  ev.EstimatedLWC,
		CloudType:     ev.Cloud.Type,
		SeedingMethod: ev.Cloud.Method,
		Effectiveness: ev.Cloud.Effectiveness,
		WindFactor:    ev.WindFactor,
		MonsoonFactor: ev.MonsoonFactor,

		Score:                    ev.Score,
		Viable:                   ev.Viable,
		PrecipitationPotentialMM: precip.PotentialMM,
		PrecipitationProbability: precip.Probability,
	}
}
