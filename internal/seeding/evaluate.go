package seeding

import (
	"math"
	"time"
)

const (
	// Hours with more than this much rain already falling are down-weighted.
	rainingThresholdMM = 0.5
	rainingFactor      = 0.5

	// Above this speed the wind factor decays as highWindSpeed/speed.
	highWindSpeed = 10.0
	windTentWidth = 7.0

	minWindFactor = 0.2
	// Used as the temperature factor when the temperature is at or below 0 °C.
	frozenTempFactor = 0.2

	maxScore = 100.0
)

// Evaluation is the per-hour output of the seedability evaluator.
type Evaluation struct {
	Spread            float64
	EstimatedLWC      float64
	Convection        float64
	TemperatureFactor float64
	RainFactor        float64
	WindFactor        float64
	Cloud             CloudClass
	MonsoonFactor     float64
	Score             float64
	Viable            bool
}

// Evaluate scores one hour against a zone's rules. Month and hour of day come
// from the observation timestamp. Implausible inputs are not rejected; they
// flow through the arithmetic and the score is clamped to [0, 100].
func Evaluate(obs Observation, rules ZoneRules) Evaluation {
	p := rules.Params

	ev := Evaluation{
		Spread:            obs.Temperature - obs.DewPoint,
		Convection:        rules.Convection.factor(obs.Time.Hour()),
		TemperatureFactor: temperatureFactor(obs.Temperature, p.ConvectiveTemp),
		RainFactor:        rainFactor(obs.Precipitation),
		WindFactor:        windFactor(obs.WindSpeed, p),
	}
	ev.EstimatedLWC = rules.LWC.estimate(ev.Spread, obs.Humidity)

	base := rules.classify(obs)
	ev.Cloud, ev.MonsoonFactor = rules.Monsoon.apply(base, obs.Time.Month(), obs.Humidity)

	if ev.Cloud.Kind.Scorable() {
		w := rules.Weights
		cloudScore := (obs.CloudCoverLow*w.Low + obs.CloudCoverMid*w.Mid + obs.CloudCoverHigh*w.High) / 100 * 30

		sum := cloudScore +
			math.Min(obs.Humidity/p.MinHumidity, 2)*15 +
			ev.WindFactor*15 +
			ev.EstimatedLWC*20 +
			ev.Convection*ev.TemperatureFactor*15

		ev.Score = clamp(sum*ev.Cloud.Effectiveness*ev.MonsoonFactor*ev.RainFactor, 0, maxScore)
	}

	ev.Viable = ev.Score >= p.SeedabilityThreshold
	return ev
}

func (c LWCCurve) estimate(spread, humidity float64) float64 {
	var lwc float64
	switch {
	case spread <= c.SaturatedSpread:
		lwc = c.SaturatedLWC
	case spread > c.DrySpread:
		lwc = c.DryLWC
	default:
		lwc = math.Max(c.Floor, humidity/100*(1-spread/c.Divisor))
	}
	return clamp(lwc, 0, 1)
}

func (c Convection) factor(hour int) float64 {
	for _, w := range c.Windows {
		if hour >= w.From && hour <= w.To {
			return 1.0
		}
	}
	return c.OffPeak
}

func temperatureFactor(temp, threshold float64) float64 {
	if temp > 0 {
		return math.Min(1.0, temp/threshold)
	}
	return frozenTempFactor
}

func rainFactor(precipitation float64) float64 {
	if precipitation > rainingThresholdMM {
		return rainingFactor
	}
	return 1.0
}

func windFactor(speed float64, p ZoneParameters) float64 {
	var f float64
	switch {
	case speed < p.MinWind:
		f = speed / p.MinWind
	case speed > highWindSpeed:
		f = highWindSpeed / speed
	default:
		f = 1 - math.Abs(speed-p.IdealWind)/windTentWidth
	}
	return clamp(f, minWindFactor, 1.0)
}

func (r ZoneRules) classify(obs Observation) CloudClass {
	for _, rule := range r.Clouds {
		if rule.Band.cover(obs) <= rule.Above {
			continue
		}
		if rule.Cold.Type != "" && obs.Temperature < rule.ColdBelow {
			return rule.Cold
		}
		return rule.Warm
	}
	return unknownCloud
}

// apply returns the monsoon class and multiplier when the override fires,
// otherwise the base class and 1.
func (m *MonsoonRule) apply(base CloudClass, month time.Month, humidity float64) (CloudClass, float64) {
	if m == nil || month < m.FromMonth || month > m.ToMonth || humidity <= m.MinHumidity {
		return base, 1.0
	}
	return m.Class, m.Factor
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
