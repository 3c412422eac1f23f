package dto

import "time"

// StaffRequest payload for create and update.
type StaffRequest struct {
	Name               string   `json:"name"`
	Skills             []string `json:"skills"`
	Level              string   `json:"level"`
	WorkloadPercent    int      `json:"workload_percent"`
	Availability       string   `json:"availability"`
	EfficiencyScore    int      `json:"efficiency_score"`
	HourlyRate         float64  `json:"hourly_rate"`
	Region             string   `json:"region,omitempty"`
	SeasonalPreference []string `json:"seasonal_preference,omitempty"`
	WeatherSuitability []string `json:"weather_suitability,omitempty"`
}

// StaffResponse payload.
type StaffResponse struct {
	ID                 string    `json:"id"`
	Name               string    `json:"name"`
	Skills             []string  `json:"skills"`
	Level              string    `json:"level"`
	WorkloadPercent    int       `json:"workload_percent"`
	Availability       string    `json:"availability"`
	EfficiencyScore    int       `json:"efficiency_score"`
	HourlyRate         float64   `json:"hourly_rate"`
	Region             string    `json:"region,omitempty"`
	SeasonalPreference []string  `json:"seasonal_preference,omitempty"`
	WeatherSuitability []string  `json:"weather_suitability,omitempty"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}
