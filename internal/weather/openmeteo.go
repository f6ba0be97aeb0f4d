package weather

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/sony/gobreaker/v2"

	"cloudseed-monitor/internal/seeding"
)

const (
	defaultForecastURL  = "https://api.open-meteo.com/v1/forecast"
	defaultGeocodingURL = "https://geocoding-api.open-meteo.com/v1/search"

	hourlyFields = "temperature_2m,relativehumidity_2m,dewpoint_2m,cloudcover,cloudcover_low,cloudcover_mid,cloudcover_high,pressure_msl,windspeed_10m,precipitation"
)

type OpenMeteoClient struct {
	city         string
	country      string
	latitude     float64
	longitude    float64
	forecastDays int

	forecastURL  string
	geocodingURL string

	client  *http.Client
	breaker *gobreaker.CircuitBreaker[*http.Response]
	mu      sync.Mutex
}

type Option func(*OpenMeteoClient)

// WithBaseURLs points the client at alternative forecast and geocoding endpoints.
func WithBaseURLs(forecastURL, geocodingURL string) Option {
	return func(c *OpenMeteoClient) {
		if forecastURL != "" {
			c.forecastURL = forecastURL
		}
		if geocodingURL != "" {
			c.geocodingURL = geocodingURL
		}
	}
}

func WithHTTPClient(client *http.Client) Option {
	return func(c *OpenMeteoClient) {
		if client != nil {
			c.client = client
		}
	}
}

// WithForecastDays limits how many days Open-Meteo returns. Zero keeps the API default.
func WithForecastDays(days int) Option {
	return func(c *OpenMeteoClient) {
		c.forecastDays = days
	}
}

func NewOpenMeteoClient(city, country string, latitude, longitude float64, opts ...Option) *OpenMeteoClient {
	c := &OpenMeteoClient{
		city:         city,
		country:      country,
		latitude:     latitude,
		longitude:    longitude,
		forecastURL:  defaultForecastURL,
		geocodingURL: defaultGeocodingURL,
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
	for _, opt := range opts {
		opt(c)
	}

	c.breaker = gobreaker.NewCircuitBreaker[*http.Response](gobreaker.Settings{
		Name:        "open-meteo",
		MaxRequests: 1,
		Interval:    60 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures > 5
		},
	})

	return c
}

// SetLocation replaces the configured coordinates. Zero coordinates with a
// city name trigger geocoding on the next request.
func (c *OpenMeteoClient) SetLocation(city, country string, latitude, longitude float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.city = city
	c.country = country
	c.latitude = latitude
	c.longitude = longitude
}

// BreakerState exposes the circuit breaker state for health reporting.
func (c *OpenMeteoClient) BreakerState() string {
	return c.breaker.State().String()
}

type openMeteoHourlyResponse struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Timezone  string  `json:"timezone"`
	Hourly    struct {
		Time             []string  `json:"time"`
		Temperature      []float64 `json:"temperature_2m"`
		RelativeHumidity []float64 `json:"relativehumidity_2m"`
		DewPoint         []float64 `json:"dewpoint_2m"`
		CloudCover       []float64 `json:"cloudcover"`
		CloudCoverLow    []float64 `json:"cloudcover_low"`
		CloudCoverMid    []float64 `json:"cloudcover_mid"`
		CloudCoverHigh   []float64 `json:"cloudcover_high"`
		Pressure         []float64 `json:"pressure_msl"`
		WindSpeed        []float64 `json:"windspeed_10m"`
		Precipitation    []float64 `json:"precipitation"`
	} `json:"hourly"`
}

type openMeteoGeoResponse struct {
	Results []struct {
		Latitude  float64 `json:"latitude"`
		Longitude float64 `json:"longitude"`
	} `json:"results"`
}

// Hourly fetches the hourly forecast. Wind speed is requested in m/s.
func (c *OpenMeteoClient) Hourly(ctx context.Context) (*Forecast, error) {
	lat, lon, err := c.resolveLocation(ctx)
	if err != nil {
		return nil, err
	}

	query := url.Values{}
	query.Set("latitude", fmt.Sprintf("%.6f", lat))
	query.Set("longitude", fmt.Sprintf("%.6f", lon))
	query.Set("hourly", hourlyFields)
	query.Set("timezone", "auto")
	query.Set("wind_speed_unit", "ms")
	if c.forecastDays > 0 {
		query.Set("forecast_days", fmt.Sprintf("%d", c.forecastDays))
	}

	var payload openMeteoHourlyResponse
	if err := c.getJSON(ctx, c.forecastURL, query, &payload); err != nil {
		return nil, fmt.Errorf("open-meteo forecast: %w", err)
	}

	obs, err := payload.observations()
	if err != nil {
		return nil, err
	}

	return &Forecast{
		Provider:     "openmeteo",
		Latitude:     lat,
		Longitude:    lon,
		Timezone:     payload.Timezone,
		Observations: obs,
	}, nil
}

func (p *openMeteoHourlyResponse) observations() ([]seeding.Observation, error) {
	h := p.Hourly
	if len(h.Time) == 0 {
		return nil, fmt.Errorf("open-meteo hourly data missing")
	}

	required := [][]float64{
		h.Temperature, h.RelativeHumidity, h.DewPoint,
		h.CloudCover, h.CloudCoverLow, h.CloudCoverMid, h.CloudCoverHigh,
		h.Pressure, h.WindSpeed,
	}
	n := len(h.Time)
	for _, series := range required {
		n = min(n, len(series))
	}
	if n == 0 {
		return nil, fmt.Errorf("open-meteo hourly series empty")
	}

	loc := loadLocation(p.Timezone)
	obs := make([]seeding.Observation, 0, n)
	for i := 0; i < n; i++ {
		t, ok := parseOpenMeteoTime(h.Time[i], loc)
		if !ok {
			return nil, fmt.Errorf("open-meteo bad timestamp %q", h.Time[i])
		}
		var precip float64
		if i < len(h.Precipitation) {
			precip = h.Precipitation[i]
		}
		obs = append(obs, seeding.Observation{
			Time:           t,
			Temperature:    h.Temperature[i],
			Humidity:       h.RelativeHumidity[i],
			DewPoint:       h.DewPoint[i],
			CloudCover:     h.CloudCover[i],
			CloudCoverLow:  h.CloudCoverLow[i],
			CloudCoverMid:  h.CloudCoverMid[i],
			CloudCoverHigh: h.CloudCoverHigh[i],
			Pressure:       h.Pressure[i],
			WindSpeed:      h.WindSpeed[i],
			Precipitation:  precip,
		})
	}
	return obs, nil
}

func (c *OpenMeteoClient) resolveLocation(ctx context.Context) (float64, float64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.latitude != 0 || c.longitude != 0 {
		return c.latitude, c.longitude, nil
	}

	if strings.TrimSpace(c.city) == "" {
		return 0, 0, fmt.Errorf("open-meteo location is empty")
	}

	query := url.Values{}
	query.Set("name", c.city)
	query.Set("count", "1")
	query.Set("language", "en")
	query.Set("format", "json")
	if strings.TrimSpace(c.country) != "" {
		query.Set("country", c.country)
	}

	var payload openMeteoGeoResponse
	if err := c.getJSON(ctx, c.geocodingURL, query, &payload); err != nil {
		return 0, 0, fmt.Errorf("open-meteo geocoding: %w", err)
	}

	if len(payload.Results) == 0 {
		return 0, 0, fmt.Errorf("open-meteo geocoding found no results for %q", c.city)
	}

	c.latitude = payload.Results[0].Latitude
	c.longitude = payload.Results[0].Longitude

	return c.latitude, c.longitude, nil
}

func (c *OpenMeteoClient) getJSON(ctx context.Context, endpoint string, query url.Values, out any) error {
	u, err := url.Parse(endpoint)
	if err != nil {
		return fmt.Errorf("bad endpoint: %w", err)
	}
	u.RawQuery = query.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return fmt.Errorf("request: %w", err)
	}

	resp, err := c.breaker.Execute(func() (*http.Response, error) {
		r, doErr := c.client.Do(req)
		if doErr != nil {
			return nil, doErr
		}
		if r.StatusCode >= 500 || r.StatusCode == http.StatusTooManyRequests {
			r.Body.Close()
			return nil, fmt.Errorf("bad status: %s", r.Status)
		}
		return r, nil
	})
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("bad status: %s", resp.Status)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode: %w", err)
	}
	return nil
}

func loadLocation(timezone string) *time.Location {
	if strings.TrimSpace(timezone) != "" {
		if loc, err := time.LoadLocation(timezone); err == nil {
			return loc
		}
	}
	return time.UTC
}

func parseOpenMeteoTime(value string, loc *time.Location) (time.Time, bool) {
	if t, err := time.ParseInLocation("2006-01-02T15:04", value, loc); err == nil {
		return t, true
	}
	if t, err := time.ParseInLocation(time.RFC3339, value, loc); err == nil {
		return t, true
	}
	return time.Time{}, false
}
