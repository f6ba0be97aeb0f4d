package seeding

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func at(month time.Month, hour int) time.Time {
	return time.Date(2024, month, 15, hour, 0, 0, 0, time.UTC)
}

// Mid-level cloud over the desert on a cool afternoon.
func aridMidLevel(month time.Month) Observation {
	return Observation{
		Time:          at(month, 14),
		Temperature:   8,
		Humidity:      65,
		DewPoint:      6,
		CloudCover:    50,
		CloudCoverMid: 50,
		Pressure:      1008,
		WindSpeed:     2.0,
	}
}

// Sum of the score components for aridMidLevel before multipliers:
// 10.5 cloud + 27.857 humidity + 12.857 wind + 12.133 LWC + 8 convection.
const aridMidLevelSum = 71.347619

func TestEvaluateAridMonsoonOverride(t *testing.T) {
	rules := Rules(Arid)

	monsoon := Evaluate(aridMidLevel(time.August), rules)
	assert.Equal(t, "Rare Monsoon Cloud System", monsoon.Cloud.Type)
	assert.Equal(t, "Aircraft Silver Iodide/Hygroscopic", monsoon.Cloud.Method)
	assert.Equal(t, KindMonsoon, monsoon.Cloud.Kind)
	assert.Equal(t, 1.5, monsoon.MonsoonFactor)
	assert.InDelta(t, aridMidLevelSum*0.9*1.5, monsoon.Score, 1e-3)
	assert.True(t, monsoon.Viable)

	dry := Evaluate(aridMidLevel(time.March), rules)
	assert.Equal(t, "Warm Mid-level Cloud", dry.Cloud.Type)
	assert.Equal(t, 1.0, dry.MonsoonFactor)
	assert.InDelta(t, aridMidLevelSum*0.8, dry.Score, 1e-3)
	assert.True(t, dry.Viable)

	assert.Greater(t, monsoon.Score, dry.Score)
}

func TestEvaluateComponents(t *testing.T) {
	ev := Evaluate(aridMidLevel(time.March), Rules(Arid))

	assert.InDelta(t, 2.0, ev.Spread, 1e-9)
	assert.InDelta(t, 0.65*(1-2.0/30), ev.EstimatedLWC, 1e-9)
	assert.Equal(t, 1.0, ev.Convection)
	assert.InDelta(t, 8.0/15, ev.TemperatureFactor, 1e-9)
	assert.InDelta(t, 1-1.0/7, ev.WindFactor, 1e-9)
	assert.Equal(t, 1.0, ev.RainFactor)
}

func TestEvaluateMonsoonNeedsHumidity(t *testing.T) {
	obs := aridMidLevel(time.August)
	obs.Humidity = 60

	ev := Evaluate(obs, Rules(Arid))
	assert.Equal(t, "Warm Mid-level Cloud", ev.Cloud.Type)
	assert.Equal(t, 1.0, ev.MonsoonFactor)
}

func TestEvaluateHighAltitudeCloud(t *testing.T) {
	obs := Observation{
		Time:           at(time.January, 14),
		Temperature:    26,
		Humidity:       80,
		DewPoint:       22,
		CloudCover:     80,
		CloudCoverHigh: 80,
		WindSpeed:      2,
	}

	ev := Evaluate(obs, Rules(TropicalHumid))
	assert.Equal(t, "High Tropical Cloud System", ev.Cloud.Type)
	assert.Equal(t, MethodNotRecommended, ev.Cloud.Method)
	assert.Equal(t, 0.1, ev.Cloud.Effectiveness)
	assert.Zero(t, ev.Score)
	assert.False(t, ev.Viable)
}

func TestEvaluateClearSky(t *testing.T) {
	obs := Observation{Time: at(time.January, 12), Temperature: 20, Humidity: 40, DewPoint: 6, WindSpeed: 3}

	ev := Evaluate(obs, Rules(Temperate))
	assert.Equal(t, CloudUnknown, ev.Cloud.Type)
	assert.Equal(t, MethodNone, ev.Cloud.Method)
	assert.Zero(t, ev.Score)
	assert.False(t, ev.Viable)
}

func TestEvaluateMonsoonOverridesUnknownCloud(t *testing.T) {
	obs := Observation{Time: at(time.July, 15), Temperature: 28, Humidity: 85, DewPoint: 25, WindSpeed: 2}

	ev := Evaluate(obs, Rules(TropicalHumid))
	assert.Equal(t, "Monsoon Cloud System", ev.Cloud.Type)
	assert.Equal(t, 1.2, ev.MonsoonFactor)
	assert.Greater(t, ev.Score, 0.0)
}

func TestEvaluateThresholdIsInclusive(t *testing.T) {
	obs := aridMidLevel(time.March)
	rules := Rules(Arid)

	ev := Evaluate(obs, rules)
	rules.Params.SeedabilityThreshold = ev.Score

	assert.True(t, Evaluate(obs, rules).Viable)
}

func TestEvaluateCloudBoundaryIsExclusive(t *testing.T) {
	obs := aridMidLevel(time.March)
	obs.CloudCoverMid = 40

	ev := Evaluate(obs, Rules(Arid))
	assert.Equal(t, CloudUnknown, ev.Cloud.Type)
}

func TestEvaluateRainingHourIsHalved(t *testing.T) {
	dry := aridMidLevel(time.March)
	wet := dry
	wet.Precipitation = 0.6

	rules := Rules(Arid)
	assert.InDelta(t, Evaluate(dry, rules).Score/2, Evaluate(wet, rules).Score, 1e-9)
}

func TestWindFactor(t *testing.T) {
	semi := Rules(SemiArid).Params

	tests := []struct {
		name  string
		speed float64
		want  float64
	}{
		{"calm floors at 0.2", 0, 0.2},
		{"below minimum ramps", 0.6, 0.5},
		{"ideal", 2.5, 1.0},
		{"tent", 6.0, 0.5},
		{"gale", 20, 0.5},
		{"storm floors at 0.2", 100, 0.2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, windFactor(tt.speed, semi), 1e-9)
		})
	}
}

func TestTemperatureFactor(t *testing.T) {
	assert.Equal(t, 0.2, temperatureFactor(0, 15))
	assert.Equal(t, 0.2, temperatureFactor(-5, 15))
	assert.Equal(t, 1.0, temperatureFactor(30, 15))
	assert.InDelta(t, 0.5, temperatureFactor(7.5, 15), 1e-9)
}

func TestLWCCurve(t *testing.T) {
	tropical := Rules(TropicalHumid).LWC
	assert.Equal(t, 0.9, tropical.estimate(2, 90))
	assert.Equal(t, 0.3, tropical.estimate(16, 90))

	arid := Rules(Arid).LWC
	// Floor kicks in when the interpolation drops below it.
	assert.Equal(t, 0.15, arid.estimate(19, 20))
	assert.Equal(t, 0.8, arid.estimate(0, 20))
	assert.Equal(t, 0.8, arid.estimate(-1, 20))
}

func TestConvectionWindows(t *testing.T) {
	hr := Rules(HighRainfall).Convection
	assert.Equal(t, 1.0, hr.factor(6))
	assert.Equal(t, 1.0, hr.factor(19))
	assert.Equal(t, 0.6, hr.factor(12))
}

func TestEvaluateScoreBounds(t *testing.T) {
	for _, zone := range Zones {
		rules := Rules(zone)
		for month := time.January; month <= time.December; month++ {
			for hour := 0; hour < 24; hour += 3 {
				for _, hum := range []float64{0, 30, 75, 100, 250} {
					for _, cover := range []float64{0, 45, 70, 100} {
						obs := Observation{
							Time:           at(month, hour),
							Temperature:    float64(hour) - 5,
							Humidity:       hum,
							DewPoint:       float64(hour) - 10,
							CloudCover:     cover,
							CloudCoverLow:  cover,
							CloudCoverMid:  cover / 2,
							CloudCoverHigh: 100 - cover,
							WindSpeed:      float64(hour) / 2,
							Precipitation:  float64(hour % 2),
						}
						ev := Evaluate(obs, rules)
						require.GreaterOrEqual(t, ev.Score, 0.0)
						require.LessOrEqual(t, ev.Score, 100.0)
						require.GreaterOrEqual(t, ev.EstimatedLWC, 0.0)
						require.LessOrEqual(t, ev.EstimatedLWC, 1.0)
						require.GreaterOrEqual(t, ev.WindFactor, 0.2)
						require.LessOrEqual(t, ev.WindFactor, 1.0)
						require.Equal(t, ev.Score >= rules.Params.SeedabilityThreshold, ev.Viable)
					}
				}
			}
		}
	}
}

func TestEvaluateIsDeterministic(t *testing.T) {
	obs := aridMidLevel(time.August)
	rules := Rules(Arid)
	assert.Equal(t, Evaluate(obs, rules), Evaluate(obs, rules))
}
