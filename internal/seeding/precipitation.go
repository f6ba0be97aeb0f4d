package seeding

import "math"

const (
	// Fraction of the cloud water path that falls without intervention.
	naturalEfficiency = 0.3
	enhancementScale  = 0.3

	coldCloudTemp = 5.0
	coolCloudTemp = 10.0

	floorRescale = 1.5

	baseProbability = 40.0
	maxProbability  = 95.0
)

// Precipitation is the estimated yield of a viable hour.
type Precipitation struct {
	CloudWaterPath float64
	Natural        float64
	Enhancement    float64
	PotentialMM    float64
	Probability    float64
}

// EstimatePrecipitation returns the zero value for non-viable hours.
func EstimatePrecipitation(obs Observation, ev Evaluation, rules ZoneRules) Precipitation {
	if !ev.Viable {
		return Precipitation{}
	}
	p := rules.Params

	cwp := rules.WaterPath.cloudWaterPath(ev.EstimatedLWC, ev.Cloud.Kind, obs)
	natural := cwp * naturalEfficiency
	enhancement := ev.Cloud.Effectiveness * p.EnhancementFactor * enhancementScale

	potential := math.Max(
		p.MinViablePrecipitation,
		p.BasePotential*natural*(1+enhancement)*p.Efficiency*(ev.Score/100),
	)
	if p.PrecipitationFloor > 0 && potential < p.PrecipitationFloor {
		potential = math.Max(p.PrecipitationFloor, potential*floorRescale)
	}

	return Precipitation{
		CloudWaterPath: cwp,
		Natural:        natural,
		Enhancement:    enhancement,
		PotentialMM:    potential,
		Probability:    math.Min(maxProbability, baseProbability+ev.Score/2),
	}
}

func (w WaterPath) cloudWaterPath(lwc float64, kind CloudKind, obs Observation) float64 {
	var cwp float64
	switch kind {
	case KindLowCumulus:
		cwp = lwc * w.LowCumulus * obs.CloudCoverLow / 100
	case KindMidLevel:
		cwp = lwc * w.MidLevel * obs.CloudCoverMid / 100
	case KindMonsoon:
		cwp = lwc * w.Monsoon * (obs.CloudCoverLow + obs.CloudCoverMid) / 200
	default:
		cwp = lwc * w.Fallback * obs.CloudCover / 100
	}

	switch {
	case obs.Temperature < coldCloudTemp:
		cwp *= w.ColdPenalty
	case obs.Temperature < coolCloudTemp:
		cwp *= w.CoolPenalty
	}
	return cwp
}
