package irrigation

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cloudseed-monitor/internal/seeding"
)

// 2024-08-05 is a Monday.
var monday = time.Date(2024, 8, 5, 0, 0, 0, 0, time.UTC)

func viableAt(t time.Time, mm float64) seeding.HourlyResult {
	return seeding.HourlyResult{Time: t, Score: 70, Viable: true, PrecipitationPotentialMM: mm}
}

func TestDayIndex(t *testing.T) {
	assert.Equal(t, 0, DayIndex(time.Monday))
	assert.Equal(t, 5, DayIndex(time.Saturday))
	assert.Equal(t, 6, DayIndex(time.Sunday))
	for i, wd := range Weekdays {
		assert.Equal(t, i, DayIndex(wd))
	}
}

func TestPlanWithoutViableHours(t *testing.T) {
	results := []seeding.HourlyResult{{Time: monday, Score: 20}}

	plan, err := BuildPlan(results, Requirement{WeeklyMM: 35, MaxPerDayMM: 10}, 3)
	require.NoError(t, err)

	assert.False(t, plan.HasRainDay())
	assert.Nil(t, plan.Selected)
	assert.Equal(t, [7]float64{10, 10, 10, 5, 0, 0, 0}, plan.Irrigation)
	assert.Equal(t, 35.0, plan.TotalIrrigationMM())
}

func TestPlanWrapsAroundWhenCapacityIsShort(t *testing.T) {
	plan, err := BuildPlan(nil, Requirement{WeeklyMM: 80, MaxPerDayMM: 10}, 0)
	require.NoError(t, err)

	assert.Equal(t, [7]float64{20, 10, 10, 10, 10, 10, 10}, plan.Irrigation)
}

func TestPlanWithSeedingOption(t *testing.T) {
	results := []seeding.HourlyResult{
		{Time: monday, Score: 10},
		viableAt(monday.Add(26*time.Hour), 0.8),  // Tuesday
		viableAt(monday.Add(74*time.Hour), 12.5), // Thursday
	}
	req := Requirement{Crop: "Wheat", WeeklyMM: 30, MaxPerDayMM: 5}

	plan, err := BuildPlan(results, req, 1)
	require.NoError(t, err)

	require.Len(t, plan.Options, 2)
	require.NotNil(t, plan.Selected)
	assert.Equal(t, DayIndex(time.Thursday), plan.RainDay)
	assert.Equal(t, 12.5, plan.RainfallMM)
	assert.Zero(t, plan.Irrigation[DayIndex(time.Thursday)])
	assert.Equal(t, [7]float64{5, 5, 5, 0, 2.5, 0, 0}, plan.Irrigation)
	assert.InDelta(t, 17.5, plan.TotalIrrigationMM(), 1e-9)
}

func TestPlanRainfallCoversRequirement(t *testing.T) {
	results := []seeding.HourlyResult{viableAt(monday.Add(5*24*time.Hour), 40)}

	plan, err := BuildPlan(results, Requirement{WeeklyMM: 25, MaxPerDayMM: 10}, 0)
	require.NoError(t, err)

	assert.Equal(t, DayIndex(time.Saturday), plan.RainDay)
	assert.Zero(t, plan.TotalIrrigationMM())
}

func TestPlanOptionOutOfRange(t *testing.T) {
	results := []seeding.HourlyResult{viableAt(monday, 1)}

	_, err := BuildPlan(results, Requirement{WeeklyMM: 25, MaxPerDayMM: 10}, 1)
	assert.ErrorIs(t, err, ErrOptionOutOfRange)

	_, err = BuildPlan(results, Requirement{WeeklyMM: 25, MaxPerDayMM: 10}, -1)
	assert.ErrorIs(t, err, ErrOptionOutOfRange)
}

func TestPlanInvalidCapacity(t *testing.T) {
	_, err := BuildPlan(nil, Requirement{WeeklyMM: 25, MaxPerDayMM: 0}, 0)
	assert.ErrorIs(t, err, ErrInvalidCapacity)
}

func TestWaterContribution(t *testing.T) {
	results := []seeding.HourlyResult{
		viableAt(monday, 1.5),
		{Time: monday.Add(time.Hour), Score: 30},
		viableAt(monday.Add(2*time.Hour), 2.5),
	}

	c := WaterContribution(results, 40)
	assert.Equal(t, 2, c.ViableHours)
	assert.Equal(t, 4.0, c.TotalPotentialMM)
	assert.Equal(t, 10.0, c.RequirementPct)

	assert.Zero(t, WaterContribution(results, 0).RequirementPct)
}
