package weather

import (
	"context"

	"cloudseed-monitor/internal/seeding"
)

// Provider supplies hourly forecast observations for a configured location.
type Provider interface {
	Hourly(ctx context.Context) (*Forecast, error)
}

// Forecast is one provider response.
type Forecast struct {
	Provider     string                `json:"provider"`
	Latitude     float64               `json:"latitude"`
	Longitude    float64               `json:"longitude"`
	Timezone     string                `json:"timezone"`
	Observations []seeding.Observation `json:"observations"`
}
