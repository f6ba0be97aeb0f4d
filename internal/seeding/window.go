package seeding

import (
	"context"
	"errors"
	"math"
	"time"

	"golang.org/x/sync/errgroup"
)

const (
	DefaultWindowHours = 48
	DefaultParallelism = 8
)

// ErrNoObservations is returned when there is nothing to evaluate.
var ErrNoObservations = errors.New("no observations to evaluate")

// Runner evaluates a bounded window of hours for a single zone.
type Runner struct {
	rules       ZoneRules
	window      int
	parallelism int
}

type RunnerOption func(*Runner)

// WithWindow sets the maximum number of hours evaluated per run.
func WithWindow(hours int) RunnerOption {
	return func(r *Runner) {
		if hours > 0 {
			r.window = hours
		}
	}
}

// WithParallelism bounds how many hours are evaluated concurrently.
func WithParallelism(n int) RunnerOption {
	return func(r *Runner) {
		if n > 0 {
			r.parallelism = n
		}
	}
}

func NewRunner(rules ZoneRules, opts ...RunnerOption) *Runner {
	r := &Runner{
		rules:       rules,
		window:      DefaultWindowHours,
		parallelism: DefaultParallelism,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Runner) Rules() ZoneRules { return r.rules }

func (r *Runner) Window() int { return r.window }

// Run evaluates up to Window hours starting at the hour matching now. A short
// input yields a short forecast rather than an error. Results keep input order.
func (r *Runner) Run(ctx context.Context, obs []Observation, now time.Time) ([]HourlyResult, error) {
	if len(obs) == 0 {
		return nil, ErrNoObservations
	}

	start := StartIndex(obs, now)
	end := min(start+r.window, len(obs))
	hours := obs[start:end]

	results := make([]HourlyResult, len(hours))

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(r.parallelism)

	for i, o := range hours {
		i, o := i, o
		g.Go(func() error {
			if err := gCtx.Err(); err != nil {
				return err
			}
			// Each goroutine owns exactly one slot.
			results[i] = Assess(o, r.rules)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// StartIndex finds the observation for the hour containing now, compared in
// the observations' time zone. Without an exact match it falls back to the
// observation whose hour of day is numerically closest to now, ignoring the
// date, so the chosen hour may be up to 23 hours away when the input spans
// several days. Returns -1 for empty input.
func StartIndex(obs []Observation, now time.Time) int {
	if len(obs) == 0 {
		return -1
	}

	local := now.In(obs[0].Time.Location())
	// Built from calendar fields so half-hour UTC offsets truncate correctly.
	target := time.Date(local.Year(), local.Month(), local.Day(), local.Hour(), 0, 0, 0, local.Location())

	for i, o := range obs {
		if o.Time.Equal(target) {
			return i
		}
	}

	nowHour := float64(local.Hour()) + float64(local.Minute())/60
	closest := 0
	minDiff := 24.0
	for i, o := range obs {
		diff := math.Abs(float64(o.Time.Hour()) - nowHour)
		if diff < minDiff {
			minDiff = diff
			closest = i
		}
	}
	return closest
}
