package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"cloudseed-monitor/config"
	"cloudseed-monitor/internal/collector"
	"cloudseed-monitor/internal/irrigation"
	"cloudseed-monitor/internal/log"
	"cloudseed-monitor/internal/seeding"
	"cloudseed-monitor/internal/storage"
)

const (
	defaultBestLimit = 5
	defaultRunsLimit = 20
	maxLimit         = 500
	refreshTimeout   = 30 * time.Second
)

type Server struct {
	router      *gin.Engine
	server      *http.Server
	collector   *collector.Collector
	db          *storage.Database
	controller  *irrigation.Controller
	port        int
	config      *config.Config
	configPath  string
	configMutex sync.RWMutex
}

type ServerConfig struct {
	Port       int
	Collector  *collector.Collector
	Database   *storage.Database
	Controller *irrigation.Controller
	Config     *config.Config
	ConfigPath string
}

func NewServer(cfg ServerConfig) *Server {
	if gin.Mode() == gin.DebugMode {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(requestLogger())

	s := &Server{
		router:     router,
		collector:  cfg.Collector,
		db:         cfg.Database,
		controller: cfg.Controller,
		port:       cfg.Port,
		config:     cfg.Config,
		configPath: cfg.ConfigPath,
	}

	s.setupRoutes()
	return s
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.Debugw("HTTP request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration", time.Since(start).String(),
		)
	}
}

func (s *Server) setupRoutes() {
	s.router.GET("/health", s.healthHandler)
	s.router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := s.router.Group("/api/v1")
	{
		api.GET("/forecast", s.forecastHandler)
		api.GET("/forecast/viable", s.viableHandler)
		api.GET("/forecast/best", s.bestHoursHandler)
		api.POST("/forecast/refresh", s.refreshHandler)
		api.GET("/forecast/runs", s.runsHandler)
		api.GET("/forecast/runs/:id", s.runHandler)
		api.GET("/forecast/runs/:id/daily", s.runDailyHandler)

		api.GET("/zone", s.zoneHandler)
		api.POST("/evaluate", s.evaluateHandler)

		api.GET("/irrigation/plan", s.planHandler)

		api.GET("/controller/status", s.controllerStatusHandler)
		api.POST("/controller/apply", s.controllerApplyHandler)

		api.GET("/config/location", s.getLocationConfigHandler)
		api.PUT("/config/location", s.updateLocationConfigHandler)
	}
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", s.port),
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	log.Infof("API server starting on port %d", s.port)
	return s.server.ListenAndServe()
}

func (s *Server) Stop(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}

func (s *Server) healthHandler(c *gin.Context) {
	resp := gin.H{
		"status":     "healthy",
		"collecting": s.collector.IsCollecting(),
		"timestamp":  time.Now(),
	}
	if snap := s.collector.Latest(); snap != nil {
		resp["last_forecast"] = snap.GeneratedAt
		resp["zone"] = snap.Zone
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) latestOrUnavailable(c *gin.Context) *collector.Snapshot {
	snap := s.collector.Latest()
	if snap == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "No forecast available yet"})
	}
	return snap
}

func (s *Server) forecastHandler(c *gin.Context) {
	snap := s.latestOrUnavailable(c)
	if snap == nil {
		return
	}
	c.JSON(http.StatusOK, snap)
}

// viableHandler serves the rain calendar. With from and to it reads the
// stored forecast instead of the in-memory snapshot.
func (s *Server) viableHandler(c *gin.Context) {
	fromStr, toStr := c.Query("from"), c.Query("to")
	if fromStr != "" || toStr != "" {
		from, err := time.Parse(time.RFC3339, fromStr)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid 'from' date format"})
			return
		}
		to, err := time.Parse(time.RFC3339, toStr)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid 'to' date format"})
			return
		}

		records, err := s.db.ViableHoursBetween(from, to)
		if errors.Is(err, storage.ErrNoForecast) {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, records)
		return
	}

	snap := s.latestOrUnavailable(c)
	if snap == nil {
		return
	}
	viable := seeding.ViableHours(snap.Results)
	entries := make([]storage.ViableEntry, len(viable))
	for i, r := range viable {
		entries[i] = storage.ViableEntry{
			DateTime:    r.Time.Format(storage.FileTimeLayout),
			PotentialMM: r.PrecipitationPotentialMM,
			Probability: r.PrecipitationProbability,
		}
	}
	c.JSON(http.StatusOK, entries)
}

type nearMiss struct {
	seeding.HourlyResult
	LimitingFactors []string `json:"limiting_factors"`
}

func (s *Server) bestHoursHandler(c *gin.Context) {
	limit, ok := queryLimit(c, defaultBestLimit)
	if !ok {
		return
	}
	snap := s.latestOrUnavailable(c)
	if snap == nil {
		return
	}

	best := seeding.BestHours(snap.Results, limit)
	resp := gin.H{
		"zone":  snap.Zone,
		"best":  best,
		"found": len(best) > 0,
	}
	if len(best) == 0 {
		closest := seeding.ClosestHours(snap.Results, min(limit, 3))
		misses := make([]nearMiss, len(closest))
		for i, r := range closest {
			misses[i] = nearMiss{HourlyResult: r, LimitingFactors: seeding.LimitingFactors(r, snap.Rules)}
		}
		resp["closest"] = misses
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) refreshHandler(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), refreshTimeout)
	defer cancel()

	snap, err := s.collector.Refresh(ctx)
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"run_id":  snap.RunID,
		"summary": snap.Summary,
	})
}

func (s *Server) runsHandler(c *gin.Context) {
	limit, ok := queryLimit(c, defaultRunsLimit)
	if !ok {
		return
	}
	runs, err := s.db.ListRuns(limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, runs)
}

func (s *Server) runHandler(c *gin.Context) {
	id := c.Param("id")
	run, err := s.db.GetRun(id)
	if err != nil {
		writeStorageError(c, err)
		return
	}
	results, err := s.db.RunResults(id)
	if err != nil {
		writeStorageError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"run":     run,
		"results": results,
	})
}

func (s *Server) runDailyHandler(c *gin.Context) {
	stats, err := s.db.DailyStats(c.Param("id"))
	if err != nil {
		writeStorageError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

func (s *Server) zoneHandler(c *gin.Context) {
	lat, err := strconv.ParseFloat(c.Query("lat"), 64)
	if err != nil || lat < -90 || lat > 90 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid 'lat' parameter"})
		return
	}
	lon, err := strconv.ParseFloat(c.Query("lon"), 64)
	if err != nil || lon < -180 || lon > 180 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid 'lon' parameter"})
		return
	}

	rules := seeding.RulesFor(lat, lon)
	c.JSON(http.StatusOK, gin.H{
		"latitude":   lat,
		"longitude":  lon,
		"zone":       rules.Zone,
		"parameters": rules.Params,
	})
}

// EvaluateRequest scores a single observation. Zone wins over coordinates.
type EvaluateRequest struct {
	Observation seeding.Observation `json:"observation"`
	Zone        string              `json:"zone"`
	Latitude    *float64            `json:"latitude" binding:"omitempty,min=-90,max=90"`
	Longitude   *float64            `json:"longitude" binding:"omitempty,min=-180,max=180"`
}

func (s *Server) evaluateHandler(c *gin.Context) {
	var req EvaluateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var rules seeding.ZoneRules
	switch {
	case req.Zone != "":
		zone, ok := seeding.ParseZone(req.Zone)
		if !ok {
			c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("Unknown zone %q", req.Zone)})
			return
		}
		rules = seeding.Rules(zone)
	case req.Latitude != nil && req.Longitude != nil:
		rules = seeding.RulesFor(*req.Latitude, *req.Longitude)
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "Either zone or latitude and longitude are required"})
		return
	}

	result := seeding.Assess(req.Observation, rules)
	resp := gin.H{
		"zone":   rules.Zone,
		"result": result,
	}
	if !result.Viable {
		resp["limiting_factors"] = seeding.LimitingFactors(result, rules)
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) planFromQuery(c *gin.Context) *irrigation.Plan {
	option := 0
	if v := c.Query("option"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid 'option' parameter"})
			return nil
		}
		option = n
	}

	plan, err := s.collector.Plan(option)
	switch {
	case errors.Is(err, collector.ErrNoSnapshot):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
		return nil
	case errors.Is(err, irrigation.ErrOptionOutOfRange), errors.Is(err, irrigation.ErrInvalidCapacity):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return nil
	case err != nil:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return nil
	}
	return plan
}

func (s *Server) planHandler(c *gin.Context) {
	plan := s.planFromQuery(c)
	if plan == nil {
		return
	}

	contribution := irrigation.WaterContribution(plan.Options, plan.Requirement.WeeklyMM)
	c.JSON(http.StatusOK, gin.H{
		"plan":               plan,
		"total_irrigation":   plan.TotalIrrigationMM(),
		"water_contribution": contribution,
	})
}

func (s *Server) controllerStatusHandler(c *gin.Context) {
	if s.controller == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Irrigation controller not configured"})
		return
	}
	if err := s.controller.Connect(); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
		return
	}

	status, err := s.controller.Status()
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error(), "status": status})
		return
	}
	schedule, err := s.controller.Schedule()
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error(), "status": status})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status":   status,
		"schedule": schedule,
	})
}

func (s *Server) controllerApplyHandler(c *gin.Context) {
	if s.controller == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Irrigation controller not configured"})
		return
	}
	plan := s.planFromQuery(c)
	if plan == nil {
		return
	}

	if err := s.controller.Connect(); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
		return
	}
	if err := s.controller.Apply(plan); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	log.Infow("Irrigation plan applied via API", "controller", s.controller.Address(), "rain_day", plan.RainDay)
	c.JSON(http.StatusOK, gin.H{
		"message": "Plan applied",
		"plan":    plan,
	})
}

// LocationConfigRequest updates the forecast location.
type LocationConfigRequest struct {
	City      string  `json:"city"`
	Country   string  `json:"country"`
	Latitude  float64 `json:"latitude" binding:"min=-90,max=90"`
	Longitude float64 `json:"longitude" binding:"min=-180,max=180"`
	Zone      string  `json:"zone"`
}

func (s *Server) getLocationConfigHandler(c *gin.Context) {
	s.configMutex.RLock()
	defer s.configMutex.RUnlock()

	c.JSON(http.StatusOK, s.config.Location)
}

func (s *Server) updateLocationConfigHandler(c *gin.Context) {
	var req LocationConfigRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var zone seeding.ClimateZone
	if req.Zone != "" {
		z, ok := seeding.ParseZone(req.Zone)
		if !ok {
			c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("Unknown zone %q", req.Zone)})
			return
		}
		zone = z
	}
	if req.City == "" && req.Latitude == 0 && req.Longitude == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Either city or coordinates are required"})
		return
	}

	if err := s.collector.UpdateLocation(req.City, req.Country, req.Latitude, req.Longitude, zone); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": fmt.Sprintf("Failed to apply location: %v", err),
		})
		return
	}

	s.configMutex.Lock()
	s.config.SetLocation(config.LocationConfig{
		City:      req.City,
		Country:   req.Country,
		Latitude:  req.Latitude,
		Longitude: req.Longitude,
		Zone:      req.Zone,
	})
	err := s.config.Save(s.configPath)
	s.configMutex.Unlock()

	if err != nil {
		log.Warnf("Failed to save config to file: %v", err)
		c.JSON(http.StatusOK, gin.H{
			"message": "Location applied but not persisted to file",
			"warning": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Location updated successfully",
	})
}

func queryLimit(c *gin.Context, def int) (int, bool) {
	v := c.Query("limit")
	if v == "" {
		return def, true
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid 'limit' parameter"})
		return 0, false
	}
	return min(n, maxLimit), true
}

func writeStorageError(c *gin.Context, err error) {
	if errors.Is(err, storage.ErrNoForecast) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Forecast run not found"})
		return
	}
	c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
}
