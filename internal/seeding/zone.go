package seeding

// ClimateZone selects the parameter bundle and rule set used for a run.
type ClimateZone string

const (
	TropicalHumid ClimateZone = "tropical_humid"
	Arid          ClimateZone = "arid"
	SemiArid      ClimateZone = "semi_arid"
	Temperate     ClimateZone = "temperate"
	HighRainfall  ClimateZone = "high_rainfall"
)

// Zones lists every zone the classifier can return.
var Zones = []ClimateZone{TropicalHumid, Arid, SemiArid, Temperate, HighRainfall}

// zoneBox is a rectangular lat/lon region mapped to a zone. Bounds are inclusive.
type zoneBox struct {
	name           string
	zone           ClimateZone
	minLat, maxLat float64
	minLon, maxLon float64
}

func (b zoneBox) contains(lat, lon float64) bool {
	return lat >= b.minLat && lat <= b.maxLat && lon >= b.minLon && lon <= b.maxLon
}

// Boxes are tested in order; the first match wins. Rajasthan is listed before
// Punjab/Haryana so the overlap resolves to arid.
var zoneBoxes = []zoneBox{
	{name: "kerala", zone: TropicalHumid, minLat: 8.0, maxLat: 13.0, minLon: 74.5, maxLon: 78.0},
	{name: "rajasthan", zone: Arid, minLat: 23.0, maxLat: 31.0, minLon: 69.0, maxLon: 79.0},
	{name: "maharashtra", zone: SemiArid, minLat: 15.6, maxLat: 22.0, minLon: 72.6, maxLon: 80.9},
	{name: "punjab-haryana", zone: Temperate, minLat: 27.7, maxLat: 32.5, minLon: 73.8, maxLon: 77.0},
	{name: "northeast", zone: HighRainfall, minLat: 22.0, maxLat: 29.5, minLon: 88.0, maxLon: 97.5},
}

// Classify maps a coordinate to a climate zone. It never fails: coordinates
// outside every box fall into a latitude band (<= 20 tropical_humid,
// <= 28 semi_arid, otherwise temperate).
func Classify(lat, lon float64) ClimateZone {
	for _, b := range zoneBoxes {
		if b.contains(lat, lon) {
			return b.zone
		}
	}

	switch {
	case lat <= 20.0:
		return TropicalHumid
	case lat <= 28.0:
		return SemiArid
	default:
		return Temperate
	}
}

// ParseZone returns the zone for a tag and whether the tag is known.
func ParseZone(s string) (ClimateZone, bool) {
	for _, z := range Zones {
		if string(z) == s {
			return z, true
		}
	}
	return "", false
}
