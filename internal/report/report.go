// Package report renders forecasts and irrigation plans as plain text.
package report

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"cloudseed-monitor/internal/irrigation"
	"cloudseed-monitor/internal/seeding"
)

const (
	// Hours at or below this total cloud cover are left out of the hourly table.
	minReportedCloudCover = 15.0

	bestHoursShown    = 5
	closestHoursShown = 3

	// One millimetre over one hectare is ten cubic metres.
	cubicMetresPerHectareMM = 10.0
)

// Forecast bundles what WriteForecast needs.
type Forecast struct {
	Rules       seeding.ZoneRules
	Results     []seeding.HourlyResult
	Requirement irrigation.Requirement
}

func WriteForecast(w io.Writer, f Forecast) error {
	zone := f.Rules.Zone
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)

	fmt.Fprintf(tw, "Climate zone: %s (threshold %.0f)\n\n", zone, f.Rules.Params.SeedabilityThreshold)
	fmt.Fprintln(tw, "TIME\tCLOUD\tHUMIDITY\tTEMP\tWIND\tSCORE\tPRECIPITATION\tSTATUS")
	for _, r := range f.Results {
		if r.CloudCover <= minReportedCloudCover {
			continue
		}
		status, precip := "not suitable", "-"
		if r.Viable {
			status = "SEEDABLE"
			precip = fmt.Sprintf("%.1f%% (%.2f mm)", r.PrecipitationProbability, r.PrecipitationPotentialMM)
		}
		fmt.Fprintf(tw, "%s\t%.0f%%\t%.0f%%\t%.1f°C\t%.1f m/s\t%.1f/100\t%s\t%s\n",
			r.DisplayTime, r.CloudCover, r.Humidity, r.Temperature, r.WindSpeed, r.Score, precip, status)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	viable := seeding.ViableHours(f.Results)
	if len(viable) > 0 {
		fmt.Fprintf(w, "\nSeedable conditions found in this %s region.\n", zone)
		fmt.Fprintln(w, "\nBest hours for cloud seeding:")
		for _, r := range seeding.BestHours(f.Results, bestHoursShown) {
			fmt.Fprintf(w, "- %s (Score: %.1f/100)\n", r.DisplayTime, r.Score)
			fmt.Fprintf(w, "  Cloud type: %s\n", r.CloudType)
			fmt.Fprintf(w, "  Method: %s\n", r.SeedingMethod)
			fmt.Fprintf(w, "  Expected precipitation: %.2f mm (%.1f%% probability)\n", r.PrecipitationPotentialMM, r.PrecipitationProbability)
			fmt.Fprintf(w, "  Conditions: cloud %.0f%% | humidity %.0f%% | %.1f°C\n", r.CloudCover, r.Humidity, r.Temperature)
		}
		if zone == seeding.Arid {
			fmt.Fprintln(w, "\nContext for arid region cloud seeding:")
			fmt.Fprintln(w, "  Even small precipitation amounts (0.2-0.5 mm) are significant in arid regions.")
			fmt.Fprintln(w, "  Natural rainfall during dry periods can be less than 1 mm per week.")
			fmt.Fprintln(w, "  Repeated seeding operations accumulate into meaningful drought relief.")
		}
	} else {
		fmt.Fprintf(w, "\nNo seedable hours found in the next %d hours for this %s region.\n", len(f.Results), zone)
		fmt.Fprintln(w, "\nClosest conditions to seedable (may require monitoring):")
		for _, r := range seeding.ClosestHours(f.Results, closestHoursShown) {
			factors := seeding.LimitingFactors(r, f.Rules)
			limits := "borderline conditions"
			if len(factors) > 0 {
				limits = strings.Join(factors, ", ")
			}
			fmt.Fprintf(w, "- %s (Score: %.1f/100)\n", r.DisplayTime, r.Score)
			fmt.Fprintf(w, "  Limitations: %s\n", limits)
		}
	}

	if len(f.Results) > 0 {
		s := Summarize(zone, f.Results, f.Results[0].Time)
		fmt.Fprintf(w, "\nScore statistics: mean %.1f, std dev %.1f, best %.1f at %s\n",
			s.MeanScore, s.StdDevScore, s.BestScore, s.BestTime.Format(seeding.DisplayLayout))
	}

	req := f.Requirement
	if len(viable) > 0 && req.WeeklyMM > 0 {
		c := irrigation.WaterContribution(f.Results, req.WeeklyMM)
		fmt.Fprintln(w, "\nAgricultural context:")
		fmt.Fprintf(w, "Your %s crop at %s stage requires approximately %.1f mm of water per week.\n",
			orUnknown(req.Crop), orUnknown(req.GrowthStage), req.WeeklyMM)
		fmt.Fprintf(w, "Successful cloud seeding could provide approximately %.1f mm of water.\n", c.TotalPotentialMM)
		fmt.Fprintf(w, "This would meet %.1f%% of your weekly water requirement.\n", c.RequirementPct)
		if zone == seeding.Arid {
			fmt.Fprintf(w, "Irrigation demand could drop by %.1f mm, saving about %.1f cubic metres of water per hectare.\n",
				c.TotalPotentialMM, c.TotalPotentialMM*cubicMetresPerHectareMM)
		}
	}

	return nil
}

// WritePlan prints the weekly plan followed by a text bar chart of the
// water each day receives.
func WritePlan(w io.Writer, plan *irrigation.Plan) error {
	req := plan.Requirement
	if req.Crop != "" {
		fmt.Fprintf(w, "Irrigation plan for %s (%s stage)\n", req.Crop, orUnknown(req.GrowthStage))
	} else {
		fmt.Fprintln(w, "Irrigation plan")
	}
	fmt.Fprintf(w, "Weekly requirement: %.1f mm | Max/day: %.1f mm\n", req.WeeklyMM, req.MaxPerDayMM)

	if plan.HasRainDay() {
		fmt.Fprintf(w, "Cloud seeding on %s (%s): %.2f mm\n\n",
			irrigation.Weekdays[plan.RainDay], plan.Selected.DisplayTime, plan.RainfallMM)
	} else {
		fmt.Fprintln(w, "No rainfall included")
		fmt.Fprintln(w)
	}

	peak := plan.RainfallMM
	for _, mm := range plan.Irrigation {
		peak = max(peak, mm)
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	for i, day := range irrigation.Weekdays {
		mm := plan.Irrigation[i]
		switch {
		case mm > 0:
			fmt.Fprintf(tw, "%s\tirrigate %.1f mm\t%s\n", day, mm, bar(mm, peak, '#'))
		case i == plan.RainDay:
			fmt.Fprintf(tw, "%s\trainfall %.2f mm, no irrigation\t%s\n", day, plan.RainfallMM, bar(plan.RainfallMM, peak, '~'))
		default:
			fmt.Fprintf(tw, "%s\tno irrigation needed\t\n", day)
		}
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	fmt.Fprintf(w, "\nTotal irrigation: %.1f mm\n", plan.TotalIrrigationMM())
	return nil
}

// WriteOptions lists the viable hours a plan can choose from.
func WriteOptions(w io.Writer, options []seeding.HourlyResult) {
	if len(options) == 0 {
		fmt.Fprintln(w, "No seedable clouds available.")
		return
	}
	fmt.Fprintln(w, "Available seeding options:")
	for i, r := range options {
		fmt.Fprintf(w, "%d. %s (%s) - rainfall %.2f mm\n", i+1, r.DisplayTime, r.Time.Weekday(), r.PrecipitationPotentialMM)
	}
}

const barWidth = 30

func bar(v, peak float64, mark byte) string {
	if peak <= 0 || v <= 0 {
		return ""
	}
	n := max(1, int(v/peak*barWidth+0.5))
	return strings.Repeat(string(mark), n)
}

func orUnknown(s string) string {
	if s == "" {
		return "unknown"
	}
	return s
}
