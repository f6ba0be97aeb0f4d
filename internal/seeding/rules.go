package seeding

import "time"

// Cloud type and seeding method tags that carry meaning outside the rule table.
const (
	CloudUnknown         = "Unknown"
	MethodNone           = "N/A"
	MethodNotRecommended = "Not Recommended"
)

// CloudKind groups cloud types by how they feed the precipitation model.
type CloudKind int

const (
	KindUnknown CloudKind = iota
	KindLowCumulus
	KindMidLevel
	KindMonsoon
	KindOther
	KindHighAltitude
)

func (k CloudKind) String() string {
	switch k {
	case KindLowCumulus:
		return "low_cumulus"
	case KindMidLevel:
		return "mid_level"
	case KindMonsoon:
		return "monsoon"
	case KindOther:
		return "other"
	case KindHighAltitude:
		return "high_altitude"
	default:
		return "unknown"
	}
}

// Scorable reports whether an hour with this kind of cloud can earn a score.
func (k CloudKind) Scorable() bool {
	return k != KindUnknown && k != KindHighAltitude
}

// CloudClass is the outcome of cloud classification for one hour.
type CloudClass struct {
	Type          string    `json:"cloud_type"`
	Method        string    `json:"seeding_method"`
	Effectiveness float64   `json:"effectiveness"`
	Kind          CloudKind `json:"-"`
}

var unknownCloud = CloudClass{Type: CloudUnknown, Method: MethodNone, Kind: KindUnknown}

func highAltitude(name string) CloudClass {
	return CloudClass{Type: name, Method: MethodNotRecommended, Effectiveness: 0.1, Kind: KindHighAltitude}
}

// Band is a cloud-cover altitude band.
type Band int

const (
	LowBand Band = iota
	MidBand
	HighBand
)

func (b Band) cover(o Observation) float64 {
	switch b {
	case LowBand:
		return o.CloudCoverLow
	case MidBand:
		return o.CloudCoverMid
	default:
		return o.CloudCoverHigh
	}
}

// CloudRule matches when the band cover exceeds Above. If Cold is set and the
// temperature is below ColdBelow, Cold is chosen instead of Warm.
type CloudRule struct {
	Band      Band
	Above     float64
	ColdBelow float64
	Cold      CloudClass
	Warm      CloudClass
}

// MonsoonRule reclassifies an hour inside the monsoon months when humidity
// exceeds MinHumidity.
type MonsoonRule struct {
	FromMonth   time.Month
	ToMonth     time.Month
	MinHumidity float64
	Class       CloudClass
	Factor      float64
}

// LWCCurve estimates liquid water content from dew-point spread.
type LWCCurve struct {
	SaturatedSpread float64
	SaturatedLWC    float64
	DrySpread       float64
	DryLWC          float64
	Divisor         float64
	Floor           float64
}

// HourWindow is an inclusive hour-of-day range.
type HourWindow struct {
	From int
	To   int
}

// Convection holds the hours of peak surface-driven convection.
type Convection struct {
	Windows []HourWindow
	OffPeak float64
}

// CloudWeights weight each band in the cloud-cover score.
type CloudWeights struct {
	Low  float64
	Mid  float64
	High float64
}

// WaterPath weights LWC against the relevant cloud cover per cloud kind and
// derates cold (< 5 °C) and cool (< 10 °C) hours.
type WaterPath struct {
	LowCumulus  float64
	MidLevel    float64
	Monsoon     float64
	Fallback    float64
	ColdPenalty float64
	CoolPenalty float64
}

// ZoneParameters is the threshold and precipitation-constant bundle of a zone.
type ZoneParameters struct {
	MinCloudCover          float64 `json:"min_cloud_cover"`
	MinHumidity            float64 `json:"min_humidity"`
	IdealWind              float64 `json:"ideal_wind"`
	MinWind                float64 `json:"min_wind"`
	ConvectiveTemp         float64 `json:"convective_temp"`
	SeedabilityThreshold   float64 `json:"seedability_threshold"`
	BasePotential          float64 `json:"base_precipitation_potential"`
	Efficiency             float64 `json:"precipitation_efficiency"`
	MinViablePrecipitation float64 `json:"min_viable_precipitation"`
	EnhancementFactor      float64 `json:"seeding_enhancement_factor"`
	// PrecipitationFloor > 0 rescales viable estimates below it to
	// max(floor, estimate*1.5).
	PrecipitationFloor float64 `json:"precipitation_floor,omitempty"`
}

// ZoneRules is everything the evaluator and estimator need for one zone. It is
// selected once per run and never modified.
type ZoneRules struct {
	Zone       ClimateZone
	Params     ZoneParameters
	LWC        LWCCurve
	Convection Convection
	Weights    CloudWeights
	Clouds     []CloudRule
	Monsoon    *MonsoonRule
	WaterPath  WaterPath

	// Zone-specific limiting-factor thresholds; zero disables the check.
	ExcessHumidity float64
	ExtremeHeat    float64
}

var standardWaterPath = WaterPath{
	LowCumulus:  1.0,
	MidLevel:    1.5,
	Monsoon:     2.5,
	Fallback:    1.0,
	ColdPenalty: 0.7,
	CoolPenalty: 0.85,
}

var afternoonConvection = Convection{Windows: []HourWindow{{From: 12, To: 17}}, OffPeak: 0.5}

var boundaryLayerWeights = CloudWeights{Low: 0.4, Mid: 0.5, High: 0.1}

var boundaryLayerLWC = LWCCurve{
	SaturatedSpread: 1, SaturatedLWC: 0.85,
	DrySpread: 18, DryLWC: 0.2,
	Divisor: 22,
}

var boundaryLayerClouds = []CloudRule{
	{
		Band: LowBand, Above: 45, ColdBelow: 8,
		Cold: CloudClass{Type: "Cold Boundary Layer Cloud", Method: "Silver Iodide", Effectiveness: 0.75, Kind: KindOther},
		Warm: CloudClass{Type: "Warm Boundary Layer Cloud", Method: "Hygroscopic Materials", Effectiveness: 0.80, Kind: KindOther},
	},
	{
		Band: MidBand, Above: 45, ColdBelow: 5,
		Cold: CloudClass{Type: "Cold Mid-level Cloud", Method: "Aircraft Silver Iodide", Effectiveness: 0.80, Kind: KindMidLevel},
		Warm: CloudClass{Type: "Mixed-phase Cloud", Method: "Combined Approach", Effectiveness: 0.75, Kind: KindOther},
	},
	{Band: HighBand, Above: 65, Warm: highAltitude("High Cloud Formation")},
}

var zoneRules = map[ClimateZone]ZoneRules{
	TropicalHumid: {
		Zone: TropicalHumid,
		Params: ZoneParameters{
			MinCloudCover: 50, MinHumidity: 65,
			IdealWind: 2.0, MinWind: 1.0,
			ConvectiveTemp: 22, SeedabilityThreshold: 60,
			BasePotential: 3.0, Efficiency: 0.7,
			MinViablePrecipitation: 0.2, EnhancementFactor: 1.2,
		},
		LWC: LWCCurve{
			SaturatedSpread: 2, SaturatedLWC: 0.9,
			DrySpread: 15, DryLWC: 0.3,
			Divisor: 20,
		},
		Convection: Convection{Windows: []HourWindow{{From: 13, To: 17}}, OffPeak: 0.5},
		Weights:    CloudWeights{Low: 0.5, Mid: 0.4, High: 0.1},
		Clouds: []CloudRule{
			{
				Band: LowBand, Above: 50,
				Warm: CloudClass{Type: "Warm Cumulus/Stratocumulus", Method: "Hygroscopic Materials", Effectiveness: 0.85, Kind: KindLowCumulus},
			},
			{
				Band: MidBand, Above: 50, ColdBelow: 10,
				Cold: CloudClass{Type: "Mixed-phase Mid-level Cloud", Method: "Combined Silver Iodide/Hygroscopic", Effectiveness: 0.80, Kind: KindMidLevel},
				Warm: CloudClass{Type: "Warm Mid-level Cloud", Method: "Hygroscopic Materials", Effectiveness: 0.85, Kind: KindMidLevel},
			},
			{Band: HighBand, Above: 70, Warm: highAltitude("High Tropical Cloud System")},
		},
		Monsoon: &MonsoonRule{
			FromMonth: time.June, ToMonth: time.September, MinHumidity: 70,
			Class:  CloudClass{Type: "Monsoon Cloud System", Method: "Limited Intervention Needed", Effectiveness: 0.4, Kind: KindMonsoon},
			Factor: 1.2,
		},
		WaterPath:      standardWaterPath,
		ExcessHumidity: 90,
	},
	Arid: {
		Zone: Arid,
		Params: ZoneParameters{
			MinCloudCover: 30, MinHumidity: 35,
			IdealWind: 3.0, MinWind: 1.5,
			ConvectiveTemp: 15, SeedabilityThreshold: 40,
			BasePotential: 0.8, Efficiency: 0.5,
			MinViablePrecipitation: 0.1, EnhancementFactor: 1.5,
			PrecipitationFloor: 0.2,
		},
		LWC: LWCCurve{
			SaturatedSpread: 0, SaturatedLWC: 0.8,
			DrySpread: 20, DryLWC: 0.15,
			Divisor: 30, Floor: 0.15,
		},
		Convection: Convection{Windows: []HourWindow{{From: 11, To: 18}}, OffPeak: 0.5},
		Weights:    CloudWeights{Low: 0.3, Mid: 0.7, High: 0.1},
		Clouds: []CloudRule{
			{
				Band: MidBand, Above: 40, ColdBelow: 5,
				Cold: CloudClass{Type: "Cold Mid-level Cloud", Method: "Silver Iodide", Effectiveness: 0.90, Kind: KindMidLevel},
				Warm: CloudClass{Type: "Warm Mid-level Cloud", Method: "Hygroscopic Materials", Effectiveness: 0.80, Kind: KindMidLevel},
			},
			{
				Band: LowBand, Above: 40, ColdBelow: 10,
				Cold: CloudClass{Type: "Low Stratiform Cloud", Method: "Ground-based Silver Iodide", Effectiveness: 0.75, Kind: KindOther},
				Warm: CloudClass{Type: "Low Cumulus Cloud", Method: "Hygroscopic Materials", Effectiveness: 0.80, Kind: KindLowCumulus},
			},
			{Band: HighBand, Above: 60, Warm: highAltitude("High Cirrus Cloud")},
		},
		Monsoon: &MonsoonRule{
			FromMonth: time.July, ToMonth: time.September, MinHumidity: 60,
			Class:  CloudClass{Type: "Rare Monsoon Cloud System", Method: "Aircraft Silver Iodide/Hygroscopic", Effectiveness: 0.9, Kind: KindMonsoon},
			Factor: 1.5,
		},
		WaterPath: WaterPath{
			LowCumulus:  1.2,
			MidLevel:    1.8,
			Monsoon:     3.0,
			Fallback:    1.5,
			ColdPenalty: 0.8,
			CoolPenalty: 0.9,
		},
		ExtremeHeat: 35,
	},
	SemiArid: {
		Zone: SemiArid,
		Params: ZoneParameters{
			MinCloudCover: 40, MinHumidity: 45,
			IdealWind: 2.5, MinWind: 1.2,
			ConvectiveTemp: 18, SeedabilityThreshold: 50,
			BasePotential: 1.2, Efficiency: 0.55,
			MinViablePrecipitation: 0.15, EnhancementFactor: 1.3,
		},
		LWC:        boundaryLayerLWC,
		Convection: afternoonConvection,
		Weights:    boundaryLayerWeights,
		Clouds:     boundaryLayerClouds,
		WaterPath:  standardWaterPath,
	},
	Temperate: {
		Zone: Temperate,
		Params: ZoneParameters{
			MinCloudCover: 45, MinHumidity: 50,
			IdealWind: 2.2, MinWind: 1.3,
			ConvectiveTemp: 12, SeedabilityThreshold: 55,
			BasePotential: 1.5, Efficiency: 0.6,
			MinViablePrecipitation: 0.15, EnhancementFactor: 1.25,
		},
		LWC:        boundaryLayerLWC,
		Convection: afternoonConvection,
		Weights:    boundaryLayerWeights,
		Clouds:     boundaryLayerClouds,
		WaterPath:  standardWaterPath,
	},
	HighRainfall: {
		Zone: HighRainfall,
		Params: ZoneParameters{
			MinCloudCover: 60, MinHumidity: 75,
			IdealWind: 1.5, MinWind: 1.0,
			ConvectiveTemp: 24, SeedabilityThreshold: 70,
			BasePotential: 4.0, Efficiency: 0.8,
			MinViablePrecipitation: 0.3, EnhancementFactor: 1.1,
		},
		LWC: LWCCurve{
			SaturatedSpread: 3, SaturatedLWC: 1.0,
			DrySpread: 10, DryLWC: 0.5,
			Divisor: 15,
		},
		Convection: Convection{Windows: []HourWindow{{From: 6, To: 10}, {From: 15, To: 19}}, OffPeak: 0.6},
		Weights:    CloudWeights{Low: 0.6, Mid: 0.3, High: 0.1},
		Clouds: []CloudRule{
			{
				Band: LowBand, Above: 60,
				Warm: CloudClass{Type: "Rain-bearing Low Cloud", Method: "Targeted Hygroscopic", Effectiveness: 0.70, Kind: KindOther},
			},
			{
				Band: MidBand, Above: 60,
				Warm: CloudClass{Type: "Developing Convective System", Method: "Limited Intervention/Monitoring", Effectiveness: 0.50, Kind: KindOther},
			},
			{Band: HighBand, Above: 75, Warm: highAltitude("High Moisture System")},
		},
		WaterPath: standardWaterPath,
	},
}

// Rules returns the rule set for a zone. Unknown tags get a generic
// semi-arid-style rule set with middle-of-the-road constants.
func Rules(zone ClimateZone) ZoneRules {
	if r, ok := zoneRules[zone]; ok {
		return r
	}
	return ZoneRules{
		Zone: zone,
		Params: ZoneParameters{
			MinCloudCover: 40, MinHumidity: 50,
			IdealWind: 2.5, MinWind: 1.2,
			ConvectiveTemp: 18, SeedabilityThreshold: 50,
			BasePotential: 1.5, Efficiency: 0.6,
			MinViablePrecipitation: 0.15, EnhancementFactor: 1.3,
		},
		LWC:        boundaryLayerLWC,
		Convection: afternoonConvection,
		Weights:    boundaryLayerWeights,
		Clouds:     boundaryLayerClouds,
		WaterPath:  standardWaterPath,
	}
}

// RulesFor classifies a location and returns its rule set.
func RulesFor(lat, lon float64) ZoneRules {
	return Rules(Classify(lat, lon))
}
