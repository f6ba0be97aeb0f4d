package storage

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"cloudseed-monitor/internal/log"
	"cloudseed-monitor/internal/seeding"
)

// ErrNoForecast is returned when no stored run matches a query.
var ErrNoForecast = errors.New("no forecast stored")

type Database struct {
	db *gorm.DB
}

// RunInfo describes the run being saved.
type RunInfo struct {
	GeneratedAt time.Time
	Latitude    float64
	Longitude   float64
	Timezone    string
	Zone        seeding.ClimateZone
}

func NewDatabase(path string) (*Database, error) {
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	dbLogger := logger.New(
		zap.NewStdLog(log.GetZapLogger()),
		logger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  logger.Warn,
			IgnoreRecordNotFoundError: true,
		},
	)

	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: dbLogger,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.AutoMigrate(&ForecastRun{}, &HourlyRecord{}); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return &Database{db: db}, nil
}

// SaveForecast stores a run and its hours in one transaction.
func (d *Database) SaveForecast(info RunInfo, results []seeding.HourlyResult) (*ForecastRun, error) {
	run := &ForecastRun{
		RunID:       uuid.NewString(),
		GeneratedAt: info.GeneratedAt.UTC(),
		Latitude:    info.Latitude,
		Longitude:   info.Longitude,
		Timezone:    info.Timezone,
		Zone:        string(info.Zone),
		Hours:       len(results),
	}
	if len(results) > 0 {
		run.StartTime = results[0].Time.UTC()
	}

	records := make([]HourlyRecord, len(results))
	for i, r := range results {
		records[i] = recordFromResult(r)
		if r.Viable {
			run.ViableHours++
			run.TotalPotentialMM += r.PrecipitationPotentialMM
			if r.Score > run.BestScore {
				run.BestScore = r.Score
			}
		}
	}

	err := d.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(run).Error; err != nil {
			return err
		}
		if len(records) == 0 {
			return nil
		}
		for i := range records {
			records[i].ForecastRunID = run.ID
		}
		return tx.CreateInBatches(records, 100).Error
	})
	if err != nil {
		return nil, fmt.Errorf("failed to save forecast: %w", err)
	}
	return run, nil
}

func (d *Database) LatestRun() (*ForecastRun, error) {
	var run ForecastRun
	result := d.db.Order("generated_at desc").Order("id desc").First(&run)
	if result.Error != nil {
		return nil, notFound(result.Error)
	}
	return &run, nil
}

func (d *Database) GetRun(runID string) (*ForecastRun, error) {
	var run ForecastRun
	result := d.db.Where("run_id = ?", runID).First(&run)
	if result.Error != nil {
		return nil, notFound(result.Error)
	}
	return &run, nil
}

func (d *Database) ListRuns(limit int) ([]ForecastRun, error) {
	var runs []ForecastRun
	q := d.db.Order("generated_at desc").Order("id desc")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&runs).Error; err != nil {
		return nil, err
	}
	return runs, nil
}

// RunResults loads the hours of a run in forecast order, restored to the
// run's time zone.
func (d *Database) RunResults(runID string) ([]seeding.HourlyResult, error) {
	run, err := d.GetRun(runID)
	if err != nil {
		return nil, err
	}

	var records []HourlyRecord
	result := d.db.Where("forecast_run_id = ?", run.ID).Order("time asc").Find(&records)
	if result.Error != nil {
		return nil, result.Error
	}

	loc := runLocation(run.Timezone)
	out := make([]seeding.HourlyResult, len(records))
	for i, rec := range records {
		out[i] = rec.toResult(loc)
	}
	return out, nil
}

// ViableHoursBetween returns viable hours from the most recent run covering
// each hour in [from, to].
func (d *Database) ViableHoursBetween(from, to time.Time) ([]HourlyRecord, error) {
	run, err := d.LatestRun()
	if err != nil {
		return nil, err
	}

	var records []HourlyRecord
	result := d.db.Where("forecast_run_id = ? AND viable = ? AND time BETWEEN ? AND ?", run.ID, true, from.UTC(), to.UTC()).
		Order("time asc").
		Find(&records)
	if result.Error != nil {
		return nil, result.Error
	}
	return records, nil
}

// DailyStats groups a run's hours by local calendar day.
func (d *Database) DailyStats(runID string) ([]DailyStats, error) {
	run, err := d.GetRun(runID)
	if err != nil {
		return nil, err
	}

	var stats []DailyStats
	result := d.db.Model(&HourlyRecord{}).
		Select("substr(display_time, 1, 10) AS date, COUNT(*) AS hours, "+
			"SUM(CASE WHEN viable THEN 1 ELSE 0 END) AS viable_hours, "+
			"MAX(score) AS max_score, AVG(score) AS avg_score, "+
			"SUM(potential_mm) AS total_potential_mm").
		Where("forecast_run_id = ?", run.ID).
		Group("date").
		Order("date asc").
		Scan(&stats)
	if result.Error != nil {
		return nil, result.Error
	}
	return stats, nil
}

// CleanOldRuns permanently removes runs generated before now-olderThan.
func (d *Database) CleanOldRuns(now time.Time, olderThan time.Duration) (int64, error) {
	cutoff := now.Add(-olderThan).UTC()

	var removed int64
	err := d.db.Transaction(func(tx *gorm.DB) error {
		var ids []uint
		if err := tx.Model(&ForecastRun{}).Where("generated_at < ?", cutoff).Pluck("id", &ids).Error; err != nil {
			return err
		}
		if len(ids) == 0 {
			return nil
		}
		if err := tx.Unscoped().Where("forecast_run_id IN ?", ids).Delete(&HourlyRecord{}).Error; err != nil {
			return err
		}
		res := tx.Unscoped().Where("id IN ?", ids).Delete(&ForecastRun{})
		removed = res.RowsAffected
		return res.Error
	})
	return removed, err
}

func (d *Database) Close() error {
	sqlDB, err := d.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNoForecast
	}
	return err
}

func runLocation(name string) *time.Location {
	if name == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return time.UTC
	}
	return loc
}

func recordFromResult(r seeding.HourlyResult) HourlyRecord {
	return HourlyRecord{
		Time:           r.Time.UTC(),
		DisplayTime:    r.DisplayTime,
		Temperature:    r.Temperature,
		Humidity:       r.Humidity,
		DewPoint:       r.DewPoint,
		CloudCover:     r.CloudCover,
		CloudCoverLow:  r.CloudCoverLow,
		CloudCoverMid:  r.CloudCoverMid,
		CloudCoverHigh: r.CloudCoverHigh,
		Pressure:       r.Pressure,
		WindSpeed:      r.WindSpeed,
		Precipitation:  r.Precipitation,
		Spread:         r.Spread,
		EstimatedLWC:   r.EstimatedLWC,
		CloudType:      r.CloudType,
		SeedingMethod:  r.SeedingMethod,
		Effectiveness:  r.Effectiveness,
		WindFactor:     r.WindFactor,
		MonsoonFactor:  r.MonsoonFactor,
		Score:          r.Score,
		Viable:         r.Viable,
		PotentialMM:    r.PrecipitationPotentialMM,
		Probability:    r.PrecipitationProbability,
	}
}

func (rec HourlyRecord) toResult(loc *time.Location) seeding.HourlyResult {
	return seeding.HourlyResult{
		Time:                     rec.Time.In(loc),
		DisplayTime:              rec.DisplayTime,
		Temperature:              rec.Temperature,
		Humidity:                 rec.Humidity,
		DewPoint:                 rec.DewPoint,
		CloudCover:               rec.CloudCover,
		CloudCoverLow:            rec.CloudCoverLow,
		CloudCoverMid:            rec.CloudCoverMid,
		CloudCoverHigh:           rec.CloudCoverHigh,
		Pressure:                 rec.Pressure,
		WindSpeed:                rec.WindSpeed,
		Precipitation:            rec.Precipitation,
		Spread:                   rec.Spread,
		EstimatedLWC:             rec.EstimatedLWC,
		CloudType:                rec.CloudType,
		SeedingMethod:            rec.SeedingMethod,
		Effectiveness:            rec.Effectiveness,
		WindFactor:               rec.WindFactor,
		MonsoonFactor:            rec.MonsoonFactor,
		Score:                    rec.Score,
		Viable:                   rec.Viable,
		PrecipitationPotentialMM: rec.PotentialMM,
		PrecipitationProbability: rec.Probability,
	}
}
