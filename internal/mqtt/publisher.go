package mqtt

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"cloudseed-monitor/internal/log"
	"cloudseed-monitor/internal/report"
)

const (
	deviceID     = "cloudseed_monitor"
	publishGrace = 5 * time.Second
)

type Publisher struct {
	client      mqtt.Client
	topicPrefix string
	enabled     bool
}

type PublisherConfig struct {
	Broker      string
	ClientID    string
	Username    string
	Password    string
	TopicPrefix string
	Enabled     bool
}

func NewPublisher(cfg PublisherConfig) (*Publisher, error) {
	if !cfg.Enabled {
		return &Publisher{enabled: false}, nil
	}

	opts := mqtt.NewClientOptions().
		AddBroker(cfg.Broker).
		SetClientID(cfg.ClientID).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5 * time.Second).
		SetConnectionLostHandler(func(c mqtt.Client, err error) {
			log.Warnf("MQTT connection lost: %v", err)
		}).
		SetOnConnectHandler(func(c mqtt.Client) {
			log.Infow("MQTT connected", "broker", cfg.Broker)
		})

	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
		opts.SetPassword(cfg.Password)
	}

	client := mqtt.NewClient(opts)
	token := client.Connect()
	if token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("failed to connect to MQTT broker: %w", token.Error())
	}

	return NewPublisherWithClient(client, cfg.TopicPrefix), nil
}

// NewPublisherWithClient wraps an already connected client.
func NewPublisherWithClient(client mqtt.Client, topicPrefix string) *Publisher {
	return &Publisher{
		client:      client,
		topicPrefix: strings.TrimSuffix(topicPrefix, "/"),
		enabled:     true,
	}
}

func (p *Publisher) topic(name string) string {
	return fmt.Sprintf("%s/forecast/%s", p.topicPrefix, name)
}

// Publish sends each summary field to its own topic and the whole summary as
// retained JSON on {prefix}/forecast/summary.
func (p *Publisher) Publish(s *report.Summary) error {
	if !p.enabled {
		return nil
	}

	nextViable := ""
	if s.NextViable != nil {
		nextViable = s.NextViable.Format(time.RFC3339)
	}

	values := []struct {
		name  string
		value any
	}{
		{"zone", s.Zone},
		{"viable_hours", s.ViableHours},
		{"best_score", fmt.Sprintf("%.1f", s.BestScore)},
		{"next_viable_time", nextViable},
		{"expected_precipitation_mm", fmt.Sprintf("%.2f", s.ExpectedPrecipitationMM)},
		{"precipitation_probability", fmt.Sprintf("%.1f", s.PrecipitationProbability)},
	}

	for _, v := range values {
		topic := p.topic(v.name)
		payload := fmt.Sprintf("%v", v.value)
		token := p.client.Publish(topic, 0, false, payload)
		if !token.WaitTimeout(publishGrace) {
			log.Warnw("MQTT publish timed out", "topic", topic)
			continue
		}
		if token.Error() != nil {
			log.Warnw("MQTT publish failed", "topic", topic, "error", token.Error())
		}
	}

	summaryJSON, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("failed to marshal summary: %w", err)
	}

	token := p.client.Publish(p.topic("summary"), 0, true, summaryJSON)
	token.Wait()
	if token.Error() != nil {
		return fmt.Errorf("failed to publish summary: %w", token.Error())
	}

	return nil
}

func (p *Publisher) PublishHomeAssistantDiscovery() error {
	if !p.enabled {
		return nil
	}

	sensors := []struct {
		Name        string
		ID          string
		Unit        string
		DeviceClass string
		Icon        string
	}{
		{"Climate Zone", "zone", "", "", "mdi:earth"},
		{"Seedable Hours", "viable_hours", "h", "", "mdi:weather-cloudy-clock"},
		{"Best Seedability Score", "best_score", "", "", "mdi:chart-bell-curve"},
		{"Next Seedable Hour", "next_viable_time", "", "timestamp", ""},
		{"Expected Precipitation", "expected_precipitation_mm", "mm", "precipitation", ""},
		{"Precipitation Probability", "precipitation_probability", "%", "", "mdi:water-percent"},
	}

	var failed int
	for _, sensor := range sensors {
		discoveryTopic := fmt.Sprintf("homeassistant/sensor/%s/%s/config", deviceID, sensor.ID)

		config := map[string]any{
			"name":        sensor.Name,
			"unique_id":   fmt.Sprintf("%s_%s", deviceID, sensor.ID),
			"state_topic": p.topic(sensor.ID),
			"device": map[string]any{
				"identifiers":  []string{deviceID},
				"name":         "Cloud Seeding Monitor",
				"manufacturer": "cloudseed-monitor",
				"model":        "Seedability Forecast",
			},
		}
		if sensor.Unit != "" {
			config["unit_of_measurement"] = sensor.Unit
		}
		if sensor.DeviceClass != "" {
			config["device_class"] = sensor.DeviceClass
		}
		if sensor.Icon != "" {
			config["icon"] = sensor.Icon
		}

		payload, err := json.Marshal(config)
		if err != nil {
			return fmt.Errorf("failed to marshal discovery config: %w", err)
		}
		token := p.client.Publish(discoveryTopic, 0, true, payload)
		token.Wait()
		if token.Error() != nil {
			log.Warnw("MQTT discovery publish failed", "topic", discoveryTopic, "error", token.Error())
			failed++
		}
	}

	if failed > 0 {
		return fmt.Errorf("failed to publish %d of %d discovery configs", failed, len(sensors))
	}
	return nil
}

func (p *Publisher) Enabled() bool {
	return p.enabled
}

func (p *Publisher) IsConnected() bool {
	if !p.enabled {
		return false
	}
	return p.client.IsConnected()
}

func (p *Publisher) Close() {
	if p.enabled && p.client != nil {
		p.client.Disconnect(1000)
	}
}
