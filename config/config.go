package config

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Location   LocationConfig   `mapstructure:"location"`
	Crop       CropConfig       `mapstructure:"crop"`
	Irrigation IrrigationConfig `mapstructure:"irrigation"`
	Forecast   ForecastConfig   `mapstructure:"forecast"`
	API        APIConfig        `mapstructure:"api"`
	MQTT       MQTTConfig       `mapstructure:"mqtt"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Controller ControllerConfig `mapstructure:"controller"`
	Log        LogConfig        `mapstructure:"log"`

	v *viper.Viper
}

type LocationConfig struct {
	City      string  `mapstructure:"city" json:"city"`
	Country   string  `mapstructure:"country" json:"country"`
	Latitude  float64 `mapstructure:"latitude" json:"latitude"`
	Longitude float64 `mapstructure:"longitude" json:"longitude"`
	// Zone forces a climate zone instead of classifying the coordinates.
	Zone string `mapstructure:"zone" json:"zone,omitempty"`
}

type CropConfig struct {
	Type                 string  `mapstructure:"type"`
	GrowthStage          string  `mapstructure:"growth_stage"`
	WaterRequirementWeek float64 `mapstructure:"water_requirement_mm_per_week"`
}

type IrrigationConfig struct {
	MaxCapacityPerDay float64 `mapstructure:"max_capacity_mm_per_day"`
	// Option is the default seeding option used when a plan is built unattended.
	Option int `mapstructure:"option"`
}

type ForecastConfig struct {
	Enabled      bool          `mapstructure:"enabled"`
	Interval     time.Duration `mapstructure:"interval"`
	WindowHours  int           `mapstructure:"window_hours"`
	Parallelism  int           `mapstructure:"parallelism"`
	ForecastDays int           `mapstructure:"forecast_days"`
	Retention    time.Duration `mapstructure:"retention"`
	OutputFile   string        `mapstructure:"output_file"`
	ViableFile   string        `mapstructure:"viable_file"`
}

type APIConfig struct {
	Port    int  `mapstructure:"port"`
	Enabled bool `mapstructure:"enabled"`
}

type MQTTConfig struct {
	Enabled     bool   `mapstructure:"enabled"`
	Broker      string `mapstructure:"broker"`
	TopicPrefix string `mapstructure:"topic_prefix"`
	ClientID    string `mapstructure:"client_id"`
	Username    string `mapstructure:"username"`
	Password    string `mapstructure:"password"`
	Discovery   bool   `mapstructure:"discovery"`
}

type DatabaseConfig struct {
	Path string `mapstructure:"path"`
}

type ControllerConfig struct {
	Enabled   bool          `mapstructure:"enabled"`
	IP        string        `mapstructure:"ip"`
	Port      int           `mapstructure:"port"`
	SlaveID   uint8         `mapstructure:"slave_id"`
	Timeout   time.Duration `mapstructure:"timeout"`
	AutoApply bool          `mapstructure:"auto_apply"`
}

type LogConfig struct {
	Debug bool `mapstructure:"debug"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("location.city", "")
	v.SetDefault("location.country", "")
	v.SetDefault("location.latitude", 0)
	v.SetDefault("location.longitude", 0)
	v.SetDefault("location.zone", "")
	v.SetDefault("crop.type", "wheat")
	v.SetDefault("crop.growth_stage", "vegetative")
	v.SetDefault("crop.water_requirement_mm_per_week", 25)
	v.SetDefault("irrigation.max_capacity_mm_per_day", 10)
	v.SetDefault("irrigation.option", 0)
	v.SetDefault("forecast.enabled", true)
	v.SetDefault("forecast.interval", "1h")
	v.SetDefault("forecast.window_hours", 48)
	v.SetDefault("forecast.parallelism", 8)
	v.SetDefault("forecast.forecast_days", 0)
	v.SetDefault("forecast.retention", "720h")
	v.SetDefault("forecast.output_file", "")
	v.SetDefault("forecast.viable_file", "")
	v.SetDefault("api.port", 8046)
	v.SetDefault("api.enabled", true)
	v.SetDefault("mqtt.enabled", false)
	v.SetDefault("mqtt.broker", "tcp://localhost:1883")
	v.SetDefault("mqtt.topic_prefix", "cloudseed")
	v.SetDefault("mqtt.client_id", "cloudseed-monitor")
	v.SetDefault("mqtt.discovery", true)
	v.SetDefault("database.path", "./cloudseed.db")
	v.SetDefault("controller.enabled", false)
	v.SetDefault("controller.ip", "192.168.1.50")
	v.SetDefault("controller.port", 502)
	v.SetDefault("controller.slave_id", 1)
	v.SetDefault("controller.timeout", "10s")
	v.SetDefault("controller.auto_apply", false)
	v.SetDefault("log.debug", false)
}

func Load(configPath string) (*Config, error) {
	v := viper.New()
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("/etc/cloudseed-monitor")
	}

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	cfg.v = v

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) Validate() error {
	if c.Location.Latitude < -90 || c.Location.Latitude > 90 {
		return fmt.Errorf("location.latitude %v out of range", c.Location.Latitude)
	}
	if c.Location.Longitude < -180 || c.Location.Longitude > 180 {
		return fmt.Errorf("location.longitude %v out of range", c.Location.Longitude)
	}
	if c.Irrigation.MaxCapacityPerDay <= 0 {
		return fmt.Errorf("irrigation.max_capacity_mm_per_day must be positive")
	}
	if c.Crop.WaterRequirementWeek < 0 {
		return fmt.Errorf("crop.water_requirement_mm_per_week must not be negative")
	}
	if c.Forecast.WindowHours <= 0 {
		return fmt.Errorf("forecast.window_hours must be positive")
	}
	return nil
}

// SetLocation updates the location in memory and in the backing viper state.
func (c *Config) SetLocation(loc LocationConfig) {
	c.Location = loc
	if c.v == nil {
		return
	}
	c.v.Set("location.city", loc.City)
	c.v.Set("location.country", loc.Country)
	c.v.Set("location.latitude", loc.Latitude)
	c.v.Set("location.longitude", loc.Longitude)
	c.v.Set("location.zone", loc.Zone)
}

// Save writes the current settings back to the file they were loaded from,
// or to path when one is given.
func (c *Config) Save(path string) error {
	if c.v == nil {
		return fmt.Errorf("config was not loaded from viper")
	}
	if path != "" {
		return c.v.WriteConfigAs(path)
	}
	if used := c.v.ConfigFileUsed(); used != "" {
		return c.v.WriteConfigAs(used)
	}
	return c.v.SafeWriteConfig()
}
