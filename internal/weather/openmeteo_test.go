package weather

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const hourlyPayload = `{
  "latitude": 26.0,
  "longitude": 73.5,
  "timezone": "Asia/Kolkata",
  "hourly": {
    "time": ["2024-08-01T00:00", "2024-08-01T01:00", "2024-08-01T02:00"],
    "temperature_2m": [28.1, 27.6, 27.0],
    "relativehumidity_2m": [70, 72, 75],
    "dewpoint_2m": [22.0, 22.1, 22.3],
    "cloudcover": [80, 60, 40],
    "cloudcover_low": [50, 30, 10],
    "cloudcover_mid": [60, 45, 20],
    "cloudcover_high": [10, 5, 0],
    "pressure_msl": [1002.1, 1002.4, 1002.8],
    "windspeed_10m": [2.1, 2.4, 3.0],
    "precipitation": [0.0, 0.2, 0.0]
  }
}`

func TestOpenMeteoHourly(t *testing.T) {
	var query atomic.Value
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		query.Store(r.URL.Query())
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(hourlyPayload))
	}))
	defer server.Close()

	client := NewOpenMeteoClient("", "", 26.0, 73.5, WithBaseURLs(server.URL, ""))
	forecast, err := client.Hourly(context.Background())
	require.NoError(t, err)

	q := query.Load().(url.Values)
	assert.Equal(t, []string{hourlyFields}, q["hourly"])
	assert.Equal(t, []string{"auto"}, q["timezone"])
	assert.Equal(t, []string{"ms"}, q["wind_speed_unit"])
	assert.Equal(t, []string{"26.000000"}, q["latitude"])

	assert.Equal(t, "openmeteo", forecast.Provider)
	assert.Equal(t, "Asia/Kolkata", forecast.Timezone)
	require.Len(t, forecast.Observations, 3)

	first := forecast.Observations[0]
	ist, err := time.LoadLocation("Asia/Kolkata")
	require.NoError(t, err)
	assert.True(t, first.Time.Equal(time.Date(2024, 8, 1, 0, 0, 0, 0, ist)))
	assert.Equal(t, 28.1, first.Temperature)
	assert.Equal(t, 70.0, first.Humidity)
	assert.Equal(t, 80.0, first.CloudCover)
	assert.Equal(t, 60.0, first.CloudCoverMid)
	assert.Equal(t, 1002.1, first.Pressure)
	assert.Equal(t, 0.2, forecast.Observations[1].Precipitation)
}

func TestOpenMeteoMissingPrecipitation(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"timezone":"UTC","hourly":{
			"time":["2024-08-01T00:00","2024-08-01T01:00"],
			"temperature_2m":[20,21],"relativehumidity_2m":[50,55],"dewpoint_2m":[10,11],
			"cloudcover":[10,20],"cloudcover_low":[5,10],"cloudcover_mid":[5,10],"cloudcover_high":[0,0],
			"pressure_msl":[1010,1011],"windspeed_10m":[1,2]}}`))
	}))
	defer server.Close()

	forecast, err := NewOpenMeteoClient("", "", 10, 10, WithBaseURLs(server.URL, "")).Hourly(context.Background())
	require.NoError(t, err)
	require.Len(t, forecast.Observations, 2)
	assert.Zero(t, forecast.Observations[1].Precipitation)
}

func TestOpenMeteoTruncatesToShortestSeries(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"timezone":"UTC","hourly":{
			"time":["2024-08-01T00:00","2024-08-01T01:00","2024-08-01T02:00"],
			"temperature_2m":[20,21,22],"relativehumidity_2m":[50,55],"dewpoint_2m":[10,11,12],
			"cloudcover":[10,20,30],"cloudcover_low":[5,10,15],"cloudcover_mid":[5,10,15],"cloudcover_high":[0,0,0],
			"pressure_msl":[1010,1011,1012],"windspeed_10m":[1,2,3],"precipitation":[0,0,0]}}`))
	}))
	defer server.Close()

	forecast, err := NewOpenMeteoClient("", "", 10, 10, WithBaseURLs(server.URL, "")).Hourly(context.Background())
	require.NoError(t, err)
	assert.Len(t, forecast.Observations, 2)
}

func TestOpenMeteoGeocodesCity(t *testing.T) {
	var forecastLat string
	mux := http.NewServeMux()
	mux.HandleFunc("/search", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Jaipur", r.URL.Query().Get("name"))
		assert.Equal(t, "IN", r.URL.Query().Get("country"))
		w.Write([]byte(`{"results":[{"latitude":26.9124,"longitude":75.7873}]}`))
	})
	mux.HandleFunc("/forecast", func(w http.ResponseWriter, r *http.Request) {
		forecastLat = r.URL.Query().Get("latitude")
		w.Write([]byte(hourlyPayload))
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	client := NewOpenMeteoClient("Jaipur", "IN", 0, 0, WithBaseURLs(server.URL+"/forecast", server.URL+"/search"))
	forecast, err := client.Hourly(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "26.912400", forecastLat)
	assert.Equal(t, 26.9124, forecast.Latitude)
	assert.Equal(t, 75.7873, forecast.Longitude)
}

func TestOpenMeteoEmptyLocation(t *testing.T) {
	_, err := NewOpenMeteoClient("", "", 0, 0).Hourly(context.Background())
	assert.ErrorContains(t, err, "location is empty")
}

func TestOpenMeteoBadStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer server.Close()

	_, err := NewOpenMeteoClient("", "", 1, 1, WithBaseURLs(server.URL, "")).Hourly(context.Background())
	assert.ErrorContains(t, err, "bad status")
}

func TestOpenMeteoBreakerOpensAfterRepeatedFailures(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	client := NewOpenMeteoClient("", "", 1, 1, WithBaseURLs(server.URL, ""))
	for i := 0; i < 10; i++ {
		_, err := client.Hourly(context.Background())
		require.Error(t, err)
	}

	assert.Equal(t, int32(6), calls.Load())
	assert.Equal(t, "open", client.BreakerState())
}

func TestOpenMeteoSetLocation(t *testing.T) {
	var lat string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		lat = r.URL.Query().Get("latitude")
		w.Write([]byte(hourlyPayload))
	}))
	defer server.Close()

	client := NewOpenMeteoClient("", "", 1, 1, WithBaseURLs(server.URL, ""))
	client.SetLocation("", "", 12.5, 77.5)

	_, err := client.Hourly(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "12.500000", lat)
}
