package dto

import "time"

// WorkItemRequest payload for create and update.
type WorkItemRequest struct {
	Name              string     `json:"name"`
	RequiredSkills    []string   `json:"required_skills"`
	Priority          string     `json:"priority"`
	StartDate         *time.Time `json:"start_date,omitempty"`
	Deadline          time.Time  `json:"deadline"`
	EstimatedHours    float64    `json:"estimated_hours"`
	Status            string     `json:"status,omitempty"`
	Season            string     `json:"season,omitempty"`
	WeatherDependency string     `json:"weather_dependency,omitempty"`
	Region            string     `json:"region,omitempty"`
}

// WorkItemResponse payload.
type WorkItemResponse struct {
	ID                string     `json:"id"`
	Name              string     `json:"name"`
	RequiredSkills    []string   `json:"required_skills"`
	Priority          string     `json:"priority"`
	StartDate         *time.Time `json:"start_date,omitempty"`
	Deadline          time.Time  `json:"deadline"`
	EstimatedHours    float64    `json:"estimated_hours"`
	AssignedStaffIDs  []string   `json:"assigned_staff_ids"`
	Status            string     `json:"status"`
	Season            string     `json:"season,omitempty"`
	WeatherDependency string     `json:"weather_dependency,omitempty"`
	Region            string     `json:"region,omitempty"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
}

// CandidateResponse is one ranked eligible staff member.
type CandidateResponse struct {
	StaffID string  `json:"staff_id"`
	Name    string  `json:"name"`
	Score   float64 `json:"score"`
}
