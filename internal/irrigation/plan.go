package irrigation

import (
	"errors"
	"fmt"
	"time"

	"cloudseed-monitor/internal/seeding"
)

var (
	// ErrInvalidCapacity is returned for a non-positive daily capacity, which
	// could never satisfy a positive requirement.
	ErrInvalidCapacity  = errors.New("irrigation capacity must be positive")
	ErrOptionOutOfRange = errors.New("seeding option out of range")
)

// NoRainDay marks a plan without a selected seeding option.
const NoRainDay = -1

// Weekdays is the planning order. Plan slots are indexed the same way.
var Weekdays = [7]time.Weekday{
	time.Monday, time.Tuesday, time.Wednesday, time.Thursday,
	time.Friday, time.Saturday, time.Sunday,
}

// DayIndex maps a weekday to its plan slot.
func DayIndex(wd time.Weekday) int {
	return (int(wd) + 6) % 7
}

// Requirement is the crop water demand and the irrigation system's daily limit.
type Requirement struct {
	Crop        string  `json:"crop,omitempty"`
	GrowthStage string  `json:"growth_stage,omitempty"`
	WeeklyMM    float64 `json:"weekly_mm"`
	MaxPerDayMM float64 `json:"max_per_day_mm"`
}

type Plan struct {
	Requirement Requirement `json:"requirement"`
	// Irrigation holds mm per weekday, Monday first.
	Irrigation [7]float64 `json:"irrigation_mm"`
	// RainDay is the slot of the seeded day or NoRainDay.
	RainDay    int                    `json:"rain_day"`
	RainfallMM float64                `json:"rainfall_mm"`
	Selected   *seeding.HourlyResult  `json:"selected,omitempty"`
	Options    []seeding.HourlyResult `json:"options"`
}

func (p *Plan) TotalIrrigationMM() float64 {
	var total float64
	for _, mm := range p.Irrigation {
		total += mm
	}
	return total
}

func (p *Plan) HasRainDay() bool {
	return p.RainDay != NoRainDay
}

// BuildPlan builds a weekly irrigation schedule. option selects one of the viable
// hours (0-based, forecast order) as the seeding event. Its weekday receives
// no irrigation and its expected rainfall is subtracted from the weekly need.
// With no viable hours the option is ignored and the full requirement is
// spread over all seven days.
//
// Water is handed out round-robin in chunks of at most MaxPerDayMM, so a day
// can exceed the daily limit when the remaining requirement is larger than
// the combined capacity of the available days.
func BuildPlan(results []seeding.HourlyResult, req Requirement, option int) (*Plan, error) {
	if req.MaxPerDayMM <= 0 {
		return nil, ErrInvalidCapacity
	}

	plan := &Plan{
		Requirement: req,
		RainDay:     NoRainDay,
		Options:     seeding.ViableHours(results),
	}

	days := make([]int, 0, len(Weekdays))
	remaining := req.WeeklyMM

	if len(plan.Options) > 0 {
		if option < 0 || option >= len(plan.Options) {
			return nil, fmt.Errorf("%w: %d not in [0, %d)", ErrOptionOutOfRange, option, len(plan.Options))
		}
		selected := plan.Options[option]
		plan.Selected = &selected
		plan.RainDay = DayIndex(selected.Time.Weekday())
		plan.RainfallMM = selected.PrecipitationPotentialMM
		remaining = max(0, req.WeeklyMM-plan.RainfallMM)
	}

	for i := range Weekdays {
		if i != plan.RainDay {
			days = append(days, i)
		}
	}

	for i := 0; remaining > 0; i++ {
		water := min(remaining, req.MaxPerDayMM)
		plan.Irrigation[days[i%len(days)]] += water
		remaining -= water
	}

	return plan, nil
}

// Contribution summarises how much of the weekly requirement the viable hours
// could cover if every one of them were seeded.
type Contribution struct {
	ViableHours      int     `json:"viable_hours"`
	TotalPotentialMM float64 `json:"total_potential_mm"`
	RequirementPct   float64 `json:"requirement_pct"`
}

func WaterContribution(results []seeding.HourlyResult, weeklyMM float64) Contribution {
	var c Contribution
	for _, r := range seeding.ViableHours(results) {
		c.ViableHours++
		c.TotalPotentialMM += r.PrecipitationPotentialMM
	}
	if weeklyMM > 0 {
		c.RequirementPct = c.TotalPotentialMM / weeklyMM * 100
	}
	return c
}
