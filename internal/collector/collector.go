package collector

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"cloudseed-monitor/internal/irrigation"
	"cloudseed-monitor/internal/log"
	"cloudseed-monitor/internal/mqtt"
	"cloudseed-monitor/internal/observability"
	"cloudseed-monitor/internal/report"
	"cloudseed-monitor/internal/seeding"
	"cloudseed-monitor/internal/storage"
	"cloudseed-monitor/internal/weather"
)

// ErrNoSnapshot is returned before the first successful refresh.
var ErrNoSnapshot = errors.New("no forecast available yet")

// Relocatable providers can follow location changes at runtime.
type Relocatable interface {
	SetLocation(city, country string, latitude, longitude float64)
}

// Snapshot is the latest evaluated forecast window.
type Snapshot struct {
	RunID       string                 `json:"run_id,omitempty"`
	GeneratedAt time.Time              `json:"generated_at"`
	Latitude    float64                `json:"latitude"`
	Longitude   float64                `json:"longitude"`
	Timezone    string                 `json:"timezone"`
	Zone        seeding.ClimateZone    `json:"zone"`
	Summary     report.Summary         `json:"summary"`
	Results     []seeding.HourlyResult `json:"results"`

	Rules seeding.ZoneRules `json:"-"`
}

type Collector struct {
	provider   weather.Provider
	db         *storage.Database
	publisher  *mqtt.Publisher
	controller *irrigation.Controller
	metrics    *observability.Metrics
	clock      clockwork.Clock

	interval    time.Duration
	windowHours int
	parallelism int
	retention   time.Duration
	outputFile  string
	viableFile  string
	requirement irrigation.Requirement
	option      int
	autoApply   bool
	enabled     bool

	// refreshMu serialises refreshes from the ticker and from the API.
	refreshMu sync.Mutex

	mu           sync.RWMutex
	zone         seeding.ClimateZone
	latest       *Snapshot
	isCollecting bool
}

type CollectorConfig struct {
	Provider   weather.Provider
	Database   *storage.Database
	Publisher  *mqtt.Publisher
	Controller *irrigation.Controller
	Metrics    *observability.Metrics
	Clock      clockwork.Clock

	Interval    time.Duration
	WindowHours int
	Parallelism int
	Retention   time.Duration
	OutputFile  string
	ViableFile  string

	// Zone overrides coordinate classification when set.
	Zone seeding.ClimateZone

	Requirement irrigation.Requirement
	Option      int
	AutoApply   bool
	Enabled     bool
}

func NewCollector(cfg CollectorConfig) *Collector {
	clock := cfg.Clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	metrics := cfg.Metrics
	if metrics == nil {
		metrics = observability.NewUnregisteredMetrics()
	}
	interval := cfg.Interval
	if interval <= 0 {
		interval = time.Hour
	}

	return &Collector{
		provider:    cfg.Provider,
		db:          cfg.Database,
		publisher:   cfg.Publisher,
		controller:  cfg.Controller,
		metrics:     metrics,
		clock:       clock,
		interval:    interval,
		windowHours: cfg.WindowHours,
		parallelism: cfg.Parallelism,
		retention:   cfg.Retention,
		outputFile:  cfg.OutputFile,
		viableFile:  cfg.ViableFile,
		zone:        cfg.Zone,
		requirement: cfg.Requirement,
		option:      cfg.Option,
		autoApply:   cfg.AutoApply,
		enabled:     cfg.Enabled,
	}
}

func (c *Collector) Start(ctx context.Context) error {
	if !c.enabled {
		log.Info("Collector is disabled")
		return nil
	}

	c.setCollecting(true)
	defer c.setCollecting(false)

	log.Infow("Starting forecast collector", "interval", c.interval.String())

	c.refreshAndLog(ctx)

	ticker := c.clock.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info("Collector stopped")
			return nil
		case <-ticker.Chan():
			c.refreshAndLog(ctx)
		}
	}
}

func (c *Collector) setCollecting(on bool) {
	c.mu.Lock()
	c.isCollecting = on
	c.mu.Unlock()

	if on {
		c.metrics.CollectorRunning.Set(1)
	} else {
		c.metrics.CollectorRunning.Set(0)
	}
}

func (c *Collector) refreshAndLog(ctx context.Context) {
	if _, err := c.Refresh(ctx); err != nil && ctx.Err() == nil {
		log.Errorf("Forecast refresh failed: %v", err)
	}
}

// Refresh fetches the forecast, evaluates the window starting at the current
// hour and fans the result out to storage, files, MQTT and the controller.
// Only fetching and evaluation failures are returned; downstream failures are
// logged.
func (c *Collector) Refresh(ctx context.Context) (*Snapshot, error) {
	c.refreshMu.Lock()
	defer c.refreshMu.Unlock()

	started := c.clock.Now()
	defer func() {
		c.metrics.RefreshDuration.Observe(c.clock.Since(started).Seconds())
	}()

	if c.provider == nil {
		c.metrics.RefreshErrors.Inc()
		return nil, fmt.Errorf("collector has no weather provider")
	}

	forecast, err := c.provider.Hourly(ctx)
	if err != nil {
		c.metrics.ProviderRequests.WithLabelValues("error").Inc()
		c.metrics.RefreshErrors.Inc()
		return nil, fmt.Errorf("failed to fetch forecast: %w", err)
	}
	c.metrics.ProviderRequests.WithLabelValues("success").Inc()

	zone := c.zoneFor(forecast.Latitude, forecast.Longitude)
	runner := seeding.NewRunner(seeding.Rules(zone),
		seeding.WithWindow(c.windowHours),
		seeding.WithParallelism(c.parallelism),
	)

	now := c.clock.Now()
	results, err := runner.Run(ctx, forecast.Observations, now)
	if err != nil {
		c.metrics.RefreshErrors.Inc()
		return nil, fmt.Errorf("failed to evaluate forecast: %w", err)
	}
	c.metrics.ForecastRuns.Inc()
	c.metrics.HoursEvaluated.Add(float64(len(results)))

	snap := &Snapshot{
		GeneratedAt: now,
		Latitude:    forecast.Latitude,
		Longitude:   forecast.Longitude,
		Timezone:    forecast.Timezone,
		Zone:        zone,
		Summary:     report.Summarize(zone, results, now),
		Results:     results,
		Rules:       runner.Rules(),
	}

	c.store(snap)
	c.export(results)
	c.publish(&snap.Summary)

	c.metrics.ViableHours.Reset()
	c.metrics.BestScore.Reset()
	c.metrics.ViableHours.WithLabelValues(string(zone)).Set(float64(snap.Summary.ViableHours))
	c.metrics.BestScore.WithLabelValues(string(zone)).Set(snap.Summary.BestScore)

	c.mu.Lock()
	c.latest = snap
	c.mu.Unlock()

	c.applyPlan(results)

	log.Infow("Forecast refreshed",
		"zone", zone,
		"hours", len(results),
		"viable_hours", snap.Summary.ViableHours,
		"best_score", snap.Summary.BestScore,
		"expected_precipitation_mm", snap.Summary.ExpectedPrecipitationMM,
	)

	return snap, nil
}

func (c *Collector) zoneFor(lat, lon float64) seeding.ClimateZone {
	c.mu.RLock()
	zone := c.zone
	c.mu.RUnlock()

	if zone != "" {
		return zone
	}
	return seeding.Classify(lat, lon)
}

func (c *Collector) store(snap *Snapshot) {
	if c.db == nil {
		return
	}

	run, err := c.db.SaveForecast(storage.RunInfo{
		GeneratedAt: snap.GeneratedAt,
		Latitude:    snap.Latitude,
		Longitude:   snap.Longitude,
		Timezone:    snap.Timezone,
		Zone:        snap.Zone,
	}, snap.Results)
	if err != nil {
		log.Errorf("Error saving forecast: %v", err)
		return
	}
	snap.RunID = run.RunID

	if c.retention > 0 {
		removed, err := c.db.CleanOldRuns(snap.GeneratedAt, c.retention)
		if err != nil {
			log.Warnf("Error cleaning old forecasts: %v", err)
		} else if removed > 0 {
			log.Debugw("Removed old forecast runs", "count", removed)
		}
	}
}

func (c *Collector) export(results []seeding.HourlyResult) {
	if c.outputFile != "" {
		if err := storage.WriteForecastFile(c.outputFile, results); err != nil {
			log.Errorf("Error writing forecast file: %v", err)
		}
	}
	if c.viableFile != "" {
		if err := storage.WriteViableFile(c.viableFile, results); err != nil {
			log.Errorf("Error writing viable hours file: %v", err)
		}
	}
}

func (c *Collector) publish(summary *report.Summary) {
	if c.publisher == nil {
		return
	}
	if err := c.publisher.Publish(summary); err != nil {
		log.Errorf("Error publishing to MQTT: %v", err)
	}
}

func (c *Collector) applyPlan(results []seeding.HourlyResult) {
	if c.controller == nil || !c.autoApply {
		return
	}

	plan, err := irrigation.BuildPlan(results, c.requirement, c.option)
	if errors.Is(err, irrigation.ErrOptionOutOfRange) {
		// Fewer options than configured this time round; fall back to the first.
		plan, err = irrigation.BuildPlan(results, c.requirement, 0)
	}
	if err != nil {
		log.Errorf("Error building irrigation plan: %v", err)
		return
	}

	if err := c.controller.Connect(); err != nil {
		log.Errorf("Error connecting to irrigation controller: %v", err)
		return
	}
	if err := c.controller.Apply(plan); err != nil {
		log.Warnf("Error applying irrigation plan, reconnecting: %v", err)
		if err := c.controller.Reconnect(); err != nil {
			log.Errorf("Error reconnecting to irrigation controller: %v", err)
			return
		}
		if err := c.controller.Apply(plan); err != nil {
			log.Errorf("Error applying irrigation plan: %v", err)
			return
		}
	}
	log.Infow("Irrigation plan applied",
		"controller", c.controller.Address(),
		"total_mm", plan.TotalIrrigationMM(),
		"rain_day", plan.RainDay,
	)
}

// Latest returns the most recent snapshot, or nil before the first refresh.
func (c *Collector) Latest() *Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.latest
}

// Plan builds an irrigation plan from the latest snapshot.
func (c *Collector) Plan(option int) (*irrigation.Plan, error) {
	snap := c.Latest()
	if snap == nil {
		return nil, ErrNoSnapshot
	}
	return irrigation.BuildPlan(snap.Results, c.requirement, option)
}

func (c *Collector) Requirement() irrigation.Requirement {
	return c.requirement
}

func (c *Collector) IsCollecting() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.isCollecting
}

// UpdateLocation points the provider at a new location and sets the zone
// override. An empty zone re-enables classification. The next refresh picks
// up the change.
func (c *Collector) UpdateLocation(city, country string, latitude, longitude float64, zone seeding.ClimateZone) error {
	relocatable, ok := c.provider.(Relocatable)
	if !ok {
		return fmt.Errorf("weather provider does not support location changes")
	}
	relocatable.SetLocation(city, country, latitude, longitude)

	c.mu.Lock()
	c.zone = zone
	c.mu.Unlock()

	log.Infow("Forecast location updated", "city", city, "latitude", latitude, "longitude", longitude, "zone", zone)
	return nil
}

func (c *Collector) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.controller != nil {
		c.controller.Close()
	}
	if c.publisher != nil {
		c.publisher.Close()
	}
	if c.db != nil {
		c.db.Close()
	}
}
