package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"cloudseed-monitor/config"
	"cloudseed-monitor/internal/api"
	"cloudseed-monitor/internal/collector"
	"cloudseed-monitor/internal/irrigation"
	"cloudseed-monitor/internal/log"
	"cloudseed-monitor/internal/modbus"
	"cloudseed-monitor/internal/mqtt"
	"cloudseed-monitor/internal/observability"
	"cloudseed-monitor/internal/report"
	"cloudseed-monitor/internal/seeding"
	"cloudseed-monitor/internal/storage"
	"cloudseed-monitor/internal/weather"
)

var (
	configFile string
	verbose    bool
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "cloudseed-monitor",
		Short: "Cloud seeding opportunity monitor",
		Long:  "Scores hourly forecasts for cloud seeding potential and plans irrigation around the expected rain",
	}

	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(forecastCmd())
	rootCmd.AddCommand(planCmd())
	rootCmd.AddCommand(zoneCmd())
	rootCmd.AddCommand(testCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// loadConfig reads the configuration and sets up logging.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := log.Init(cfg.Log.Debug || verbose); err != nil {
		return nil, err
	}
	return cfg, nil
}

func newProvider(cfg *config.Config) *weather.OpenMeteoClient {
	return weather.NewOpenMeteoClient(
		cfg.Location.City,
		cfg.Location.Country,
		cfg.Location.Latitude,
		cfg.Location.Longitude,
		weather.WithForecastDays(cfg.Forecast.ForecastDays),
	)
}

// zoneOverride returns the configured zone, or "" to classify by coordinates.
func zoneOverride(cfg *config.Config) (seeding.ClimateZone, error) {
	if cfg.Location.Zone == "" {
		return "", nil
	}
	zone, ok := seeding.ParseZone(cfg.Location.Zone)
	if !ok {
		return "", fmt.Errorf("unknown climate zone %q (valid: %v)", cfg.Location.Zone, seeding.Zones)
	}
	return zone, nil
}

func requirement(cfg *config.Config) irrigation.Requirement {
	return irrigation.Requirement{
		Crop:        cfg.Crop.Type,
		GrowthStage: cfg.Crop.GrowthStage,
		WeeklyMM:    cfg.Crop.WaterRequirementWeek,
		MaxPerDayMM: cfg.Irrigation.MaxCapacityPerDay,
	}
}

func newController(cfg *config.Config) *irrigation.Controller {
	return irrigation.NewController(modbus.NewClient(
		cfg.Controller.IP,
		cfg.Controller.Port,
		cfg.Controller.SlaveID,
		cfg.Controller.Timeout,
	))
}

// oneShot builds a collector without storage, MQTT or a ticker, for the
// single-run commands.
func oneShot(cfg *config.Config) (*collector.Collector, error) {
	zone, err := zoneOverride(cfg)
	if err != nil {
		return nil, err
	}
	return collector.NewCollector(collector.CollectorConfig{
		Provider:    newProvider(cfg),
		WindowHours: cfg.Forecast.WindowHours,
		Parallelism: cfg.Forecast.Parallelism,
		OutputFile:  cfg.Forecast.OutputFile,
		ViableFile:  cfg.Forecast.ViableFile,
		Zone:        zone,
		Requirement: requirement(cfg),
	}), nil
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the monitoring service",
		Long:  "Start the forecast collector, API server, and MQTT publisher",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			defer log.Sync()

			zone, err := zoneOverride(cfg)
			if err != nil {
				return err
			}

			db, err := storage.NewDatabase(cfg.Database.Path)
			if err != nil {
				return fmt.Errorf("failed to open database: %w", err)
			}
			log.Infof("Database opened at %s", cfg.Database.Path)

			publisher, err := mqtt.NewPublisher(mqtt.PublisherConfig{
				Broker:      cfg.MQTT.Broker,
				ClientID:    cfg.MQTT.ClientID,
				Username:    cfg.MQTT.Username,
				Password:    cfg.MQTT.Password,
				TopicPrefix: cfg.MQTT.TopicPrefix,
				Enabled:     cfg.MQTT.Enabled,
			})
			if err != nil {
				log.Warnf("MQTT connection failed: %v", err)
				publisher = nil
			} else if cfg.MQTT.Enabled {
				log.Infof("MQTT connected to %s", cfg.MQTT.Broker)
				if cfg.MQTT.Discovery {
					if err := publisher.PublishHomeAssistantDiscovery(); err != nil {
						log.Warnf("Home Assistant discovery failed: %v", err)
					}
				}
			}

			var controller *irrigation.Controller
			if cfg.Controller.Enabled {
				controller = newController(cfg)
			}

			coll := collector.NewCollector(collector.CollectorConfig{
				Provider:    newProvider(cfg),
				Database:    db,
				Publisher:   publisher,
				Controller:  controller,
				Metrics:     observability.NewMetrics(),
				Interval:    cfg.Forecast.Interval,
				WindowHours: cfg.Forecast.WindowHours,
				Parallelism: cfg.Forecast.Parallelism,
				Retention:   cfg.Forecast.Retention,
				OutputFile:  cfg.Forecast.OutputFile,
				ViableFile:  cfg.Forecast.ViableFile,
				Zone:        zone,
				Requirement: requirement(cfg),
				Option:      cfg.Irrigation.Option,
				AutoApply:   cfg.Controller.AutoApply,
				Enabled:     cfg.Forecast.Enabled,
			})

			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()

			sigChan := make(chan os.Signal, 1)
			signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

			go func() {
				if err := coll.Start(ctx); err != nil {
					log.Errorf("Collector error: %v", err)
				}
			}()

			var server *api.Server
			if cfg.API.Enabled {
				server = api.NewServer(api.ServerConfig{
					Port:       cfg.API.Port,
					Collector:  coll,
					Database:   db,
					Controller: controller,
					Config:     cfg,
					ConfigPath: configFile,
				})

				go func() {
					if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
						log.Errorf("API server error: %v", err)
					}
				}()
			}

			log.Info("Cloudseed Monitor started. Press Ctrl+C to stop.")

			<-sigChan
			log.Info("Shutting down...")
			cancel()

			if server != nil {
				shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
				if err := server.Stop(shutdownCtx); err != nil {
					log.Warnf("API server shutdown: %v", err)
				}
				shutdownCancel()
			}
			coll.Stop()

			return nil
		},
	}
}

func forecastCmd() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "forecast",
		Short: "Fetch and score the forecast once",
		Long:  "Fetch the hourly forecast, score every hour of the window, and print a report",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			defer log.Sync()

			coll, err := oneShot(cfg)
			if err != nil {
				return err
			}

			snap, err := coll.Refresh(cmd.Context())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(snap)
			}

			fmt.Fprintf(out, "Forecast for %.4f, %.4f (%s)\n", snap.Latitude, snap.Longitude, snap.Timezone)
			return report.WriteForecast(out, report.Forecast{
				Rules:       snap.Rules,
				Results:     snap.Results,
				Requirement: requirement(cfg),
			})
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "print the evaluated forecast as JSON")
	return cmd
}

func planCmd() *cobra.Command {
	var (
		option   int
		fromFile string
		apply    bool
	)

	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Build a weekly irrigation plan",
		Long:  "Pick one seedable hour as the rain day and spread the remaining crop water need over the other days",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			defer log.Sync()

			var results []seeding.HourlyResult
			if fromFile != "" {
				results, err = storage.ReadForecastFile(fromFile, time.Local)
				if err != nil {
					return err
				}
			} else {
				coll, err := oneShot(cfg)
				if err != nil {
					return err
				}
				snap, err := coll.Refresh(cmd.Context())
				if err != nil {
					return err
				}
				results = snap.Results
			}

			out := cmd.OutOrStdout()
			report.WriteOptions(out, seeding.ViableHours(results))
			fmt.Fprintln(out)

			// Options are numbered from 1 on the command line.
			plan, err := irrigation.BuildPlan(results, requirement(cfg), option-1)
			if err != nil {
				return err
			}
			if err := report.WritePlan(out, plan); err != nil {
				return err
			}

			if !apply {
				return nil
			}
			controller := newController(cfg)
			if err := controller.Connect(); err != nil {
				return err
			}
			defer controller.Close()
			if err := controller.Apply(plan); err != nil {
				return err
			}
			fmt.Fprintf(out, "\nPlan applied to controller at %s\n", controller.Address())
			return nil
		},
	}

	cmd.Flags().IntVarP(&option, "option", "o", 1, "seeding option to use as the rain day (1-based)")
	cmd.Flags().StringVar(&fromFile, "from-file", "", "read the forecast from a previously written forecast file")
	cmd.Flags().BoolVar(&apply, "apply", false, "push the plan to the irrigation controller")
	return cmd
}

func zoneCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "zone <latitude> <longitude>",
		Short: "Show the climate zone and seeding thresholds for a location",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			lat, err := strconv.ParseFloat(args[0], 64)
			if err != nil {
				return fmt.Errorf("invalid latitude %q: %w", args[0], err)
			}
			lon, err := strconv.ParseFloat(args[1], 64)
			if err != nil {
				return fmt.Errorf("invalid longitude %q: %w", args[1], err)
			}

			rules := seeding.RulesFor(lat, lon)
			p := rules.Params
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Climate zone: %s\n", rules.Zone)
			fmt.Fprintf(out, "  Min cloud cover:       %g%%\n", p.MinCloudCover)
			fmt.Fprintf(out, "  Min humidity:          %g%%\n", p.MinHumidity)
			fmt.Fprintf(out, "  Wind (min/ideal):      %g / %g m/s\n", p.MinWind, p.IdealWind)
			fmt.Fprintf(out, "  Convective temp:       %g °C\n", p.ConvectiveTemp)
			fmt.Fprintf(out, "  Seedability threshold: %g\n", p.SeedabilityThreshold)
			fmt.Fprintf(out, "  Min viable rainfall:   %g mm\n", p.MinViablePrecipitation)
			if rules.Monsoon != nil {
				fmt.Fprintf(out, "  Monsoon:               %s-%s (humidity > %g%%)\n",
					rules.Monsoon.FromMonth, rules.Monsoon.ToMonth, rules.Monsoon.MinHumidity)
			}
			return nil
		},
	}
}

func testCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "test",
		Short: "Test connection to the irrigation controller",
		Long:  "Test the Modbus TCP connection to the irrigation controller",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			defer log.Sync()

			fmt.Printf("Testing connection to %s:%d...\n", cfg.Controller.IP, cfg.Controller.Port)

			controller := newController(cfg)
			if err := controller.Connect(); err != nil {
				fmt.Printf("Connection FAILED: %v\n", err)
				return err
			}
			defer controller.Close()

			status, err := controller.Status()
			if err != nil {
				fmt.Printf("Connection FAILED: %v\n", err)
				return err
			}

			fmt.Println("Connection SUCCESS!")
			fmt.Printf("\nController Info:\n")
			fmt.Printf("  Device:        %s\n", status.DeviceName)
			fmt.Printf("  State:         %s\n", status.StateString)
			fmt.Printf("  Active Day:    %s\n", status.ActiveDay)
			fmt.Printf("  Applied Today: %.1f mm\n", status.AppliedTodayMM)
			fmt.Printf("  Applied Total: %.1f mm\n", status.AppliedTotalMM)
			fmt.Printf("  Soil Moisture: %.1f %%\n", status.SoilMoisture)
			fmt.Printf("  Valve Temp:    %.1f °C\n", status.ValveTemp)

			schedule, err := controller.Schedule()
			if err != nil {
				fmt.Printf("Warning: Could not read schedule: %v\n", err)
				return nil
			}
			fmt.Printf("\nStored Schedule:\n")
			for i, day := range irrigation.Weekdays {
				fmt.Printf("  %-10s %.1f mm\n", day, schedule.Irrigation[i])
			}
			return nil
		},
	}
}
