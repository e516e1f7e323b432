package protocol

import (
	"encoding/json"
	"time"

	"github.com/tideraider/surf-alert-server/internal/alert"
)

// ForecastMessage is the internal Kafka format for one scraped region
// forecast. Keyed by region so one region's updates stay ordered.
type ForecastMessage struct {
	RegionID       string    `json:"region_id"`
	RegionName     string    `json:"region_name"`
	Date           string    `json:"date"` // YYYY-MM-DD, UTC
	WindSpeed      *float64  `json:"wind_speed,omitempty"`
	WindDirection  *float64  `json:"wind_direction,omitempty"`
	SwellHeight    *float64  `json:"swell_height,omitempty"`
	SwellPeriod    *float64  `json:"swell_period,omitempty"`
	SwellDirection *float64  `json:"swell_direction,omitempty"`
	ScrapedAt      time.Time `json:"scraped_at"`
}

// ParseDate returns the message's forecast day as a UTC timestamp.
func (m *ForecastMessage) ParseDate() (time.Time, error) {
	return time.Parse("2006-01-02", m.Date)
}

// MatchMessage announces one fired alert for the dashboard feed.
type MatchMessage struct {
	AlertID   string            `json:"alert_id"`
	UserID    string            `json:"user_id"`
	AlertName string            `json:"alert_name"`
	RegionID  string            `json:"region_id"`
	BeachID   string            `json:"beach_id,omitempty"`
	Channel   string            `json:"channel"`
	Summary   string            `json:"summary"`
	Details   alert.MatchResult `json:"details"`
	MatchedAt time.Time         `json:"matched_at"`
}

// EncodeForecastMessage encodes a ForecastMessage to JSON
func EncodeForecastMessage(msg *ForecastMessage) ([]byte, error) {
	return json.Marshal(msg)
}

// DecodeForecastMessage decodes JSON to ForecastMessage
func DecodeForecastMessage(data []byte) (*ForecastMessage, error) {
	var msg ForecastMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

// EncodeMatchMessage encodes a MatchMessage to JSON
func EncodeMatchMessage(msg *MatchMessage) ([]byte, error) {
	return json.Marshal(msg)
}

// DecodeMatchMessage decodes JSON to MatchMessage
func DecodeMatchMessage(data []byte) (*MatchMessage, error) {
	var msg MatchMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
