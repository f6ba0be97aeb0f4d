package collector

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cloudseed-monitor/internal/irrigation"
	"cloudseed-monitor/internal/observability"
	"cloudseed-monitor/internal/seeding"
	"cloudseed-monitor/internal/storage"
	"cloudseed-monitor/internal/weather"
)

// Jodhpur, inside the Rajasthan box.
const (
	testLat = 26.3
	testLon = 73.0
)

var forecastStart = time.Date(2024, 8, 5, 0, 0, 0, 0, time.UTC)

type fakeProvider struct {
	mu    sync.Mutex
	obs   []seeding.Observation
	err   error
	calls int

	city     string
	lat, lon float64
}

func newFakeProvider(hours int) *fakeProvider {
	obs := make([]seeding.Observation, hours)
	for i := range obs {
		obs[i] = seeding.Observation{
			Time:          forecastStart.Add(time.Duration(i) * time.Hour),
			Temperature:   8,
			Humidity:      65,
			DewPoint:      6,
			CloudCover:    50,
			CloudCoverMid: 50,
			Pressure:      1008,
			WindSpeed:     2.0,
		}
	}
	return &fakeProvider{obs: obs, lat: testLat, lon: testLon}
}

func (p *fakeProvider) Hourly(ctx context.Context) (*weather.Forecast, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls++
	if p.err != nil {
		return nil, p.err
	}
	return &weather.Forecast{
		Provider:     "fake",
		Latitude:     p.lat,
		Longitude:    p.lon,
		Timezone:     "UTC",
		Observations: append([]seeding.Observation(nil), p.obs...),
	}, nil
}

func (p *fakeProvider) SetLocation(city, country string, lat, lon float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.city, p.lat, p.lon = city, lat, lon
}

func (p *fakeProvider) Calls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls
}

type providerFunc func(ctx context.Context) (*weather.Forecast, error)

func (f providerFunc) Hourly(ctx context.Context) (*weather.Forecast, error) { return f(ctx) }

type fixture struct {
	collector *Collector
	provider  *fakeProvider
	clock     *clockwork.FakeClock
	metrics   *observability.Metrics
	db        *storage.Database
	dir       string
}

func newFixture(t *testing.T, mutate func(*CollectorConfig)) *fixture {
	t.Helper()

	dir := t.TempDir()
	db, err := storage.NewDatabase(filepath.Join(dir, "cloudseed.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	metrics, _ := observability.NewMetricsForTesting()
	f := &fixture{
		provider: newFakeProvider(72),
		clock:    clockwork.NewFakeClockAt(forecastStart.Add(6*time.Hour + 20*time.Minute)),
		metrics:  metrics,
		db:       db,
		dir:      dir,
	}

	cfg := CollectorConfig{
		Provider:    f.provider,
		Database:    db,
		Metrics:     metrics,
		Clock:       f.clock,
		Interval:    time.Hour,
		WindowHours: 24,
		Parallelism: 4,
		Retention:   24 * time.Hour,
		OutputFile:  filepath.Join(dir, "seedable_forecast.json"),
		ViableFile:  filepath.Join(dir, "filtered_seedable_forecast.json"),
		Requirement: irrigation.Requirement{Crop: "millet", WeeklyMM: 20, MaxPerDayMM: 5},
		Enabled:     true,
	}
	if mutate != nil {
		mutate(&cfg)
	}
	f.collector = NewCollector(cfg)
	return f
}

func TestRefresh(t *testing.T) {
	f := newFixture(t, nil)

	snap, err := f.collector.Refresh(context.Background())
	require.NoError(t, err)

	assert.Equal(t, seeding.Arid, snap.Zone)
	assert.Equal(t, seeding.Arid, snap.Rules.Zone)
	require.Len(t, snap.Results, 24)
	assert.Equal(t, forecastStart.Add(6*time.Hour), snap.Results[0].Time)
	assert.Equal(t, f.clock.Now(), snap.GeneratedAt)

	viable := seeding.ViableHours(snap.Results)
	assert.NotEmpty(t, viable)
	assert.Equal(t, len(viable), snap.Summary.ViableHours)
	assert.Equal(t, 24, snap.Summary.Hours)

	assert.Same(t, snap, f.collector.Latest())

	require.NotEmpty(t, snap.RunID)
	run, err := f.db.LatestRun()
	require.NoError(t, err)
	assert.Equal(t, snap.RunID, run.RunID)
	assert.Equal(t, len(viable), run.ViableHours)

	stored, err := storage.ReadForecastFile(filepath.Join(f.dir, "seedable_forecast.json"), time.UTC)
	require.NoError(t, err)
	assert.Len(t, stored, 24)
	_, err = os.Stat(filepath.Join(f.dir, "filtered_seedable_forecast.json"))
	assert.NoError(t, err)

	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.ForecastRuns))
	assert.Equal(t, 24.0, testutil.ToFloat64(f.metrics.HoursEvaluated))
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.ProviderRequests.WithLabelValues("success")))
	assert.Equal(t, float64(len(viable)), testutil.ToFloat64(f.metrics.ViableHours.WithLabelValues("arid")))
	assert.Equal(t, snap.Summary.BestScore, testutil.ToFloat64(f.metrics.BestScore.WithLabelValues("arid")))
	assert.Zero(t, testutil.ToFloat64(f.metrics.RefreshErrors))
}

func TestRefreshProviderError(t *testing.T) {
	f := newFixture(t, nil)
	f.provider.err = errors.New("upstream down")

	_, err := f.collector.Refresh(context.Background())
	assert.ErrorContains(t, err, "upstream down")
	assert.Nil(t, f.collector.Latest())

	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.RefreshErrors))
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.ProviderRequests.WithLabelValues("error")))

	_, err = f.db.LatestRun()
	assert.ErrorIs(t, err, storage.ErrNoForecast)
}

func TestRefreshEmptyForecast(t *testing.T) {
	f := newFixture(t, func(cfg *CollectorConfig) {
		cfg.Provider = providerFunc(func(context.Context) (*weather.Forecast, error) {
			return &weather.Forecast{Latitude: testLat, Longitude: testLon}, nil
		})
	})

	_, err := f.collector.Refresh(context.Background())
	assert.ErrorIs(t, err, seeding.ErrNoObservations)
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.RefreshErrors))
}

func TestRefreshZoneOverride(t *testing.T) {
	f := newFixture(t, func(cfg *CollectorConfig) {
		cfg.Zone = seeding.TropicalHumid
	})

	snap, err := f.collector.Refresh(context.Background())
	require.NoError(t, err)
	assert.Equal(t, seeding.TropicalHumid, snap.Zone)
	assert.Equal(t, seeding.TropicalHumid, snap.Summary.Zone)
}

func TestRefreshRemovesExpiredRuns(t *testing.T) {
	f := newFixture(t, nil)

	old, err := f.db.SaveForecast(storage.RunInfo{GeneratedAt: f.clock.Now().Add(-48 * time.Hour)}, nil)
	require.NoError(t, err)

	_, err = f.collector.Refresh(context.Background())
	require.NoError(t, err)

	_, err = f.db.GetRun(old.RunID)
	assert.ErrorIs(t, err, storage.ErrNoForecast)
}

func TestUpdateLocation(t *testing.T) {
	f := newFixture(t, nil)

	require.NoError(t, f.collector.UpdateLocation("Kochi", "IN", 9.9, 76.3, ""))
	assert.Equal(t, "Kochi", f.provider.city)

	snap, err := f.collector.Refresh(context.Background())
	require.NoError(t, err)
	assert.Equal(t, seeding.TropicalHumid, snap.Zone)
	assert.Equal(t, 9.9, snap.Latitude)

	require.NoError(t, f.collector.UpdateLocation("Kochi", "IN", 9.9, 76.3, seeding.Temperate))
	snap, err = f.collector.Refresh(context.Background())
	require.NoError(t, err)
	assert.Equal(t, seeding.Temperate, snap.Zone)
}

func TestUpdateLocationUnsupported(t *testing.T) {
	f := newFixture(t, func(cfg *CollectorConfig) {
		cfg.Provider = providerFunc(func(context.Context) (*weather.Forecast, error) { return nil, nil })
	})
	assert.Error(t, f.collector.UpdateLocation("Pune", "IN", 18.5, 73.8, ""))
}

func TestPlan(t *testing.T) {
	f := newFixture(t, nil)

	_, err := f.collector.Plan(0)
	assert.ErrorIs(t, err, ErrNoSnapshot)

	snap, err := f.collector.Refresh(context.Background())
	require.NoError(t, err)

	plan, err := f.collector.Plan(0)
	require.NoError(t, err)
	assert.Equal(t, "millet", plan.Requirement.Crop)
	require.True(t, plan.HasRainDay())
	first := seeding.ViableHours(snap.Results)[0]
	assert.Equal(t, first.Time, plan.Selected.Time)
	assert.InDelta(t, max(0, 20-first.PrecipitationPotentialMM), plan.TotalIrrigationMM(), 1e-9)

	_, err = f.collector.Plan(len(plan.Options))
	assert.ErrorIs(t, err, irrigation.ErrOptionOutOfRange)
}

func TestStartRefreshesOnTicker(t *testing.T) {
	f := newFixture(t, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- f.collector.Start(ctx) }()

	require.Eventually(t, func() bool { return f.provider.Calls() == 1 }, time.Second, 5*time.Millisecond)
	assert.True(t, f.collector.IsCollecting())

	blockCtx, blockCancel := context.WithTimeout(context.Background(), time.Second)
	defer blockCancel()
	require.NoError(t, f.clock.BlockUntilContext(blockCtx, 1))

	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.CollectorRunning))

	f.clock.Advance(time.Hour)
	require.Eventually(t, func() bool { return f.provider.Calls() == 2 }, time.Second, 5*time.Millisecond)
	require.Eventually(t, func() bool {
		return f.collector.Latest().Results[0].Time.Equal(forecastStart.Add(7 * time.Hour))
	}, time.Second, 5*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("collector did not stop")
	}
	assert.False(t, f.collector.IsCollecting())
	assert.Zero(t, testutil.ToFloat64(f.metrics.CollectorRunning))
}

func TestStartDisabled(t *testing.T) {
	f := newFixture(t, func(cfg *CollectorConfig) { cfg.Enabled = false })
	assert.NoError(t, f.collector.Start(context.Background()))
	assert.Zero(t, f.provider.Calls())
}
