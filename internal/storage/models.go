package storage

import (
	"time"

	"gorm.io/gorm"
)

// ForecastRun is one evaluated forecast window.
type ForecastRun struct {
	gorm.Model
	RunID       string    `gorm:"uniqueIndex;size:36" json:"run_id"`
	GeneratedAt time.Time `gorm:"index" json:"generated_at"`

	// Location
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Timezone  string  `json:"timezone"`
	Zone      string  `gorm:"index" json:"zone"`

	// Window
	StartTime time.Time `json:"start_time"`
	Hours     int       `json:"hours"`

	// Summary
	ViableHours      int     `json:"viable_hours"`
	BestScore        float64 `json:"best_score"`
	TotalPotentialMM float64 `json:"total_potential_mm"`

	Records []HourlyRecord `gorm:"foreignKey:ForecastRunID;constraint:OnDelete:CASCADE" json:"-"`
}

// HourlyRecord is one evaluated hour of a run.
type HourlyRecord struct {
	gorm.Model
	ForecastRunID uint      `gorm:"index" json:"-"`
	Time          time.Time `gorm:"index" json:"time"`
	DisplayTime   string    `json:"display_time"`

	// Weather
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

	// Evaluation
	Spread        float64 `json:"spread"`
	EstimatedLWC  float64 `json:"estimated_lwc"`
	CloudType     string  `json:"cloud_type"`
	SeedingMethod string  `json:"recommended_seeding_method"`
	Effectiveness float64 `json:"effectiveness"`
	WindFactor    float64 `json:"wind_factor"`
	MonsoonFactor float64 `json:"monsoon_factor"`
	Score         float64 `json:"seedability_score"`
	Viable        bool    `gorm:"index" json:"is_seedable"`

	// Precipitation
	PotentialMM float64 `json:"precipitation_potential_mm"`
	Probability float64 `json:"precipitation_probability"`
}

// DailyStats aggregates a run's hours per calendar day.
type DailyStats struct {
	Date             string  `json:"date"`
	Hours            int64   `json:"hours"`
	ViableHours      int64   `json:"viable_hours"`
	MaxScore         float64 `json:"max_score"`
	AvgScore         float64 `json:"avg_score"`
	TotalPotentialMM float64 `json:"total_potential_mm"`
}
