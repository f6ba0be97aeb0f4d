// Package seeding estimates which forecast hours are viable for cloud seeding
// and how much precipitation seeding could yield.
//
// A run classifies the location into a climate zone once ([Classify]), looks
// up that zone's [ZoneRules], and then assesses every hour of the window
// independently ([Assess]): dew-point spread, estimated liquid water content,
// convective potential, wind factor, cloud classification with an optional
// monsoon override, a 0-100 seedability score, and, for viable hours, a
// precipitation estimate in millimetres with a probability.
//
// Hours share nothing but the read-only rule set, so [Runner] evaluates them
// concurrently and reassembles the results in input order.
//
// Score composition (before effectiveness, monsoon and rain multipliers):
//
//	cloud cover   zone-weighted low/mid/high bands      max 30
//	humidity      min(RH/minRH, 2) * 15                 max 30
//	wind          wind factor * 15                      max 15
//	LWC           estimated LWC * 20                    max 20
//	convection    window factor * temperature factor * 15  max 15
package seeding
